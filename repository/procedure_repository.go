// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/kimmokhwa/beautiful-management-app/models"
	"github.com/kimmokhwa/beautiful-management-app/utils"
	"gorm.io/gorm"
)

// ProcedureRepositoryImpl implements ProcedureRepository interface
type ProcedureRepositoryImpl struct {
	*BaseRepository[models.Procedure, models.ProcedureFilter]
}

// NewProcedureRepository creates a new procedure repository
func NewProcedureRepository(db *gorm.DB) ProcedureRepository {
	return &ProcedureRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Procedure, models.ProcedureFilter](db),
	}
}

// applyFilter applies filter criteria to a GORM query
func (r *ProcedureRepositoryImpl) applyFilter(query *gorm.DB, filter models.ProcedureFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Name != nil {
		query = query.Where("name = ?", *filter.Name)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.IsRecommended != nil {
		query = query.Where("is_recommended = ?", *filter.IsRecommended)
	}
	return query
}

// ByFilter retrieves procedures based on filter criteria
func (r *ProcedureRepositoryImpl) ByFilter(ctx context.Context, filter models.ProcedureFilter, orderBy string, limit, offset int) ([]*models.Procedure, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Procedure{}), filter)

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

	var procedures []*models.Procedure
	if err := query.Find(&procedures).Error; err != nil {
		return nil, err
	}
	return procedures, nil
}

// Count returns the number of procedures matching the filter
func (r *ProcedureRepositoryImpl) Count(ctx context.Context, filter models.ProcedureFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Procedure{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any procedure matching the filter exists
func (r *ProcedureRepositoryImpl) Exists(ctx context.Context, filter models.ProcedureFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Update applies a partial update and always bumps updated_at
func (r *ProcedureRepositoryImpl) Update(ctx context.Context, id uint, update models.ProcedureUpdate) error {
	updates := map[string]any{"updated_at": utils.UTCNow()}
	if update.Name != nil {
		updates["name"] = *update.Name
	}
	if update.CustomerPrice != nil {
		updates["customer_price"] = *update.CustomerPrice
	}
	if update.IsRecommended != nil {
		updates["is_recommended"] = *update.IsRecommended
	}
	if update.SetCategoryID {
		updates["category_id"] = update.CategoryID
	}
	if update.SetNotes {
		updates["notes"] = update.Notes
	}

	return r.write(ctx, func(db *gorm.DB) error {
		if err := db.Model(&models.Procedure{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update procedure %d: %w", id, err)
		}
		return nil
	})
}

// ToggleRecommended flips is_recommended in a single statement and returns the stored row.
// Returns nil, nil when the procedure does not exist.
func (r *ProcedureRepositoryImpl) ToggleRecommended(ctx context.Context, id uint) (*models.Procedure, error) {
	var procedure *models.Procedure
	err := r.write(ctx, func(db *gorm.DB) error {
		res := db.Model(&models.Procedure{}).Where("id = ?", id).Updates(map[string]any{
			"is_recommended": gorm.Expr("NOT is_recommended"),
			"updated_at":     utils.UTCNow(),
		})
		if res.Error != nil {
			return fmt.Errorf("failed to toggle procedure %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		var stored models.Procedure
		if err := db.Where("id = ?", id).Take(&stored).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		procedure = &stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return procedure, nil
}

// Delete removes one procedure by ID. Links must be removed first or cascade.
func (r *ProcedureRepositoryImpl) Delete(ctx context.Context, id uint) error {
	return r.write(ctx, func(db *gorm.DB) error {
		if err := db.Where("id = ?", id).Delete(&models.Procedure{}).Error; err != nil {
			return fmt.Errorf("failed to delete procedure %d: %w", id, err)
		}
		return nil
	})
}
