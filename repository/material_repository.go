// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kimmokhwa/beautiful-management-app/models"
	"github.com/kimmokhwa/beautiful-management-app/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaterialRepositoryImpl implements MaterialRepository interface
type MaterialRepositoryImpl struct {
	*BaseRepository[models.Material, models.MaterialFilter]
}

// NewMaterialRepository creates a new material repository
func NewMaterialRepository(db *gorm.DB) MaterialRepository {
	return &MaterialRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Material, models.MaterialFilter](db),
	}
}

// ByName retrieves a material by its exact name
func (r *MaterialRepositoryImpl) ByName(ctx context.Context, name string) (*models.Material, error) {
	db := r.getDB(ctx)

	var material models.Material
	err := db.Where("name = ?", name).Take(&material).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &material, nil
}

// ByNames resolves a set of names in one query. Missing names are absent from the map.
func (r *MaterialRepositoryImpl) ByNames(ctx context.Context, names []string) (map[string]*models.Material, error) {
	result := make(map[string]*models.Material, len(names))
	if len(names) == 0 {
		return result, nil
	}

	items, err := r.ByFilter(ctx, models.MaterialFilter{Names: names}, "id ASC", 0, 0)
	if err != nil {
		return nil, err
	}
	for _, m := range items {
		result[m.Name] = m
	}
	return result, nil
}

// applyFilter applies filter criteria to a GORM query
func (r *MaterialRepositoryImpl) applyFilter(query *gorm.DB, filter models.MaterialFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if len(filter.IDs) > 0 {
		query = query.Where("id IN ?", filter.IDs)
	}
	if filter.Name != nil {
		query = query.Where("name = ?", *filter.Name)
	}
	if len(filter.Names) > 0 {
		query = query.Where("name IN ?", filter.Names)
	}
	if filter.NameSearch != nil && strings.TrimSpace(*filter.NameSearch) != "" {
		query = query.Where("LOWER(name) LIKE LOWER(?)", "%"+strings.TrimSpace(*filter.NameSearch)+"%")
	}
	return query
}

// ByFilter retrieves materials based on filter criteria
func (r *MaterialRepositoryImpl) ByFilter(ctx context.Context, filter models.MaterialFilter, orderBy string, limit, offset int) ([]*models.Material, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Material{})

	query = r.applyFilter(query, filter)

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

	var materials []*models.Material
	if err := query.Find(&materials).Error; err != nil {
		return nil, err
	}
	return materials, nil
}

// Count returns the number of materials matching the filter
func (r *MaterialRepositoryImpl) Count(ctx context.Context, filter models.MaterialFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Material{})
	query = r.applyFilter(query, filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any material matching the filter exists
func (r *MaterialRepositoryImpl) Exists(ctx context.Context, filter models.MaterialFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Update applies a partial update and always bumps updated_at
func (r *MaterialRepositoryImpl) Update(ctx context.Context, id uint, update models.MaterialUpdate) error {
	updates := map[string]any{"updated_at": utils.UTCNow()}
	if update.Name != nil {
		updates["name"] = *update.Name
	}
	if update.Cost != nil {
		updates["cost"] = *update.Cost
	}
	if update.SetDescription {
		updates["description"] = update.Description
	}
	if update.SetSupplier {
		updates["supplier"] = update.Supplier
	}

	return r.write(ctx, func(db *gorm.DB) error {
		res := db.Model(&models.Material{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to update material %d: %w", id, res.Error)
		}
		return nil
	})
}

// UpsertByName inserts the material, or overwrites cost, description and supplier
// of the row sharing its name. The material is reloaded from the store afterwards.
func (r *MaterialRepositoryImpl) UpsertByName(ctx context.Context, material *models.Material) error {
	now := utils.UTCNow()
	if material.CreatedAt.IsZero() {
		material.CreatedAt = now
	}
	material.UpdatedAt = now

	return r.write(ctx, func(db *gorm.DB) error {
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"cost", "description", "supplier", "updated_at"}),
		}).Create(material).Error
		if err != nil {
			return fmt.Errorf("failed to upsert material %q: %w", material.Name, err)
		}
		var stored models.Material
		if err := db.Where("name = ?", material.Name).Take(&stored).Error; err != nil {
			return fmt.Errorf("failed to reload material %q: %w", material.Name, err)
		}
		*material = stored
		return nil
	})
}

// Delete removes one material by ID
func (r *MaterialRepositoryImpl) Delete(ctx context.Context, id uint) error {
	return r.write(ctx, func(db *gorm.DB) error {
		if err := db.Where("id = ?", id).Delete(&models.Material{}).Error; err != nil {
			return fmt.Errorf("failed to delete material %d: %w", id, err)
		}
		return nil
	})
}

// DeleteAll removes every material and returns the number of rows deleted
func (r *MaterialRepositoryImpl) DeleteAll(ctx context.Context) (int64, error) {
	var affected int64
	err := r.write(ctx, func(db *gorm.DB) error {
		res := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Material{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete materials: %w", res.Error)
		}
		affected = res.RowsAffected
		return nil
	})
	return affected, err
}
