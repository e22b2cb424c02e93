// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/kimmokhwa/beautiful-management-app/models"
	"github.com/kimmokhwa/beautiful-management-app/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UploadJobRepositoryImpl implements UploadJobRepository interface
type UploadJobRepositoryImpl struct {
	*BaseRepository[models.UploadJob, models.UploadJobFilter]
}

// NewUploadJobRepository creates a new upload job repository
func NewUploadJobRepository(db *gorm.DB) UploadJobRepository {
	return &UploadJobRepositoryImpl{
		BaseRepository: NewBaseRepository[models.UploadJob, models.UploadJobFilter](db),
	}
}

// Update persists the mutable progress fields of a job
func (r *UploadJobRepositoryImpl) Update(ctx context.Context, job *models.UploadJob) error {
	job.UpdatedAt = utils.UTCNow()
	updates := map[string]any{
		"status":        job.Status,
		"total_rows":    job.TotalRows,
		"success_rows":  job.SuccessRows,
		"error_rows":    job.ErrorRows,
		"error_details": job.ErrorDetails,
		"original_data": job.OriginalData,
		"started_at":    job.StartedAt,
		"completed_at":  job.CompletedAt,
		"updated_at":    job.UpdatedAt,
	}

	return r.write(ctx, func(db *gorm.DB) error {
		if err := db.Model(&models.UploadJob{}).Where("id = ?", job.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update upload job %d: %w", job.ID, err)
		}
		return nil
	})
}

// FailStale marks jobs still processing that started before the cutoff as failed
func (r *UploadJobRepositoryImpl) FailStale(ctx context.Context, startedBefore time.Time, details []byte) (int64, error) {
	var affected int64
	now := utils.UTCNow()
	err := r.write(ctx, func(db *gorm.DB) error {
		res := db.Model(&models.UploadJob{}).
			Where("status = ? AND started_at < ?", models.UploadStatusProcessing, startedBefore).
			Updates(map[string]any{
				"status":        models.UploadStatusFailed,
				"error_details": datatypes.JSON(details),
				"completed_at":  now,
				"updated_at":    now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to fail stale upload jobs: %w", res.Error)
		}
		affected = res.RowsAffected
		return nil
	})
	return affected, err
}

// applyFilter applies filter criteria to a GORM query
func (r *UploadJobRepositoryImpl) applyFilter(query *gorm.DB, filter models.UploadJobFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	return query
}

// ByFilter retrieves jobs based on filter criteria
func (r *UploadJobRepositoryImpl) ByFilter(ctx context.Context, filter models.UploadJobFilter, orderBy string, limit, offset int) ([]*models.UploadJob, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.UploadJob{}), filter)

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

	var jobs []*models.UploadJob
	if err := query.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// Count returns the number of jobs matching the filter
func (r *UploadJobRepositoryImpl) Count(ctx context.Context, filter models.UploadJobFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.UploadJob{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any job matching the filter exists
func (r *UploadJobRepositoryImpl) Exists(ctx context.Context, filter models.UploadJobFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
