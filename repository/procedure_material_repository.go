// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"fmt"

	"github.com/kimmokhwa/beautiful-management-app/models"
	"github.com/kimmokhwa/beautiful-management-app/utils"
	"gorm.io/gorm"
)

// ProcedureMaterialRepositoryImpl implements ProcedureMaterialRepository interface
type ProcedureMaterialRepositoryImpl struct {
	*BaseRepository[models.ProcedureMaterial, models.ProcedureMaterialFilter]
}

// NewProcedureMaterialRepository creates a new procedure material repository
func NewProcedureMaterialRepository(db *gorm.DB) ProcedureMaterialRepository {
	return &ProcedureMaterialRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ProcedureMaterial, models.ProcedureMaterialFilter](db),
	}
}

// ByProcedureID lists the links of a procedure ordered by id
func (r *ProcedureMaterialRepositoryImpl) ByProcedureID(ctx context.Context, procedureID uint) ([]*models.ProcedureMaterial, error) {
	return r.ByFilter(ctx, models.ProcedureMaterialFilter{ProcedureID: &procedureID}, "id ASC", 0, 0)
}

// CountProceduresUsingMaterial counts distinct procedures linked to the material
func (r *ProcedureMaterialRepositoryImpl) CountProceduresUsingMaterial(ctx context.Context, materialID uint) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.ProcedureMaterial{}).
		Where("material_id = ?", materialID).
		Distinct("procedure_id").
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CountLinkedMaterials counts distinct materials referenced by any procedure
func (r *ProcedureMaterialRepositoryImpl) CountLinkedMaterials(ctx context.Context) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	if err := db.Model(&models.ProcedureMaterial{}).Distinct("material_id").Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ReplaceForProcedure makes the stored links equal to links: removed pairs are
// deleted, changed quantities updated and new pairs inserted.
func (r *ProcedureMaterialRepositoryImpl) ReplaceForProcedure(ctx context.Context, procedureID uint, links []*models.ProcedureMaterial) error {
	return r.write(ctx, func(db *gorm.DB) error {
		var existing []*models.ProcedureMaterial
		if err := db.Where("procedure_id = ?", procedureID).Find(&existing).Error; err != nil {
			return fmt.Errorf("failed to load links of procedure %d: %w", procedureID, err)
		}

		current := make(map[uint]*models.ProcedureMaterial, len(existing))
		for _, l := range existing {
			current[l.MaterialID] = l
		}

		wanted := make(map[uint]struct{}, len(links))
		toInsert := make([]*models.ProcedureMaterial, 0, len(links))
		for _, l := range links {
			wanted[l.MaterialID] = struct{}{}
			old, ok := current[l.MaterialID]
			if !ok {
				toInsert = append(toInsert, &models.ProcedureMaterial{
					ProcedureID: procedureID,
					MaterialID:  l.MaterialID,
					Quantity:    l.Quantity,
					CreatedAt:   utils.UTCNow(),
				})
				continue
			}
			if !old.Quantity.Equal(l.Quantity) {
				if err := db.Model(&models.ProcedureMaterial{}).Where("id = ?", old.ID).Update("quantity", l.Quantity).Error; err != nil {
					return fmt.Errorf("failed to update link %d: %w", old.ID, err)
				}
			}
		}

		var stale []uint
		for materialID, l := range current {
			if _, ok := wanted[materialID]; !ok {
				stale = append(stale, l.ID)
			}
		}
		if len(stale) > 0 {
			if err := db.Where("id IN ?", stale).Delete(&models.ProcedureMaterial{}).Error; err != nil {
				return fmt.Errorf("failed to delete links of procedure %d: %w", procedureID, err)
			}
		}

		if len(toInsert) > 0 {
			if err := db.Create(toInsert).Error; err != nil {
				return fmt.Errorf("failed to insert links of procedure %d: %w", procedureID, err)
			}
		}
		return nil
	})
}

// DeleteByProcedureID removes all links of a procedure
func (r *ProcedureMaterialRepositoryImpl) DeleteByProcedureID(ctx context.Context, procedureID uint) (int64, error) {
	var affected int64
	err := r.write(ctx, func(db *gorm.DB) error {
		res := db.Where("procedure_id = ?", procedureID).Delete(&models.ProcedureMaterial{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete links of procedure %d: %w", procedureID, res.Error)
		}
		affected = res.RowsAffected
		return nil
	})
	return affected, err
}

// applyFilter applies filter criteria to a GORM query
func (r *ProcedureMaterialRepositoryImpl) applyFilter(query *gorm.DB, filter models.ProcedureMaterialFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.ProcedureID != nil {
		query = query.Where("procedure_id = ?", *filter.ProcedureID)
	}
	if filter.MaterialID != nil {
		query = query.Where("material_id = ?", *filter.MaterialID)
	}
	return query
}

// ByFilter retrieves links based on filter criteria
func (r *ProcedureMaterialRepositoryImpl) ByFilter(ctx context.Context, filter models.ProcedureMaterialFilter, orderBy string, limit, offset int) ([]*models.ProcedureMaterial, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.ProcedureMaterial{}), filter)

	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var links []*models.ProcedureMaterial
	if err := query.Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

// Count returns the number of links matching the filter
func (r *ProcedureMaterialRepositoryImpl) Count(ctx context.Context, filter models.ProcedureMaterialFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.ProcedureMaterial{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any link matching the filter exists
func (r *ProcedureMaterialRepositoryImpl) Exists(ctx context.Context, filter models.ProcedureMaterialFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
