// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/kimmokhwa/beautiful-management-app/models"
)

type contextKey string

// TxContextKey carries the active *gorm.DB transaction in a context
const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// MaterialRepository defines operations for materials
type MaterialRepository interface {
	Repository[models.Material, models.MaterialFilter]
	ByName(ctx context.Context, name string) (*models.Material, error)
	ByNames(ctx context.Context, names []string) (map[string]*models.Material, error)
	Update(ctx context.Context, id uint, update models.MaterialUpdate) error
	UpsertByName(ctx context.Context, material *models.Material) error
	Delete(ctx context.Context, id uint) error
	DeleteAll(ctx context.Context) (int64, error)
}

// CategoryRepository defines operations for categories
type CategoryRepository interface {
	Repository[models.Category, models.CategoryFilter]
	ByName(ctx context.Context, name string) (*models.Category, error)
	FindOrCreate(ctx context.Context, name string) (*models.Category, error)
}

// ProcedureRepository defines operations for procedures
type ProcedureRepository interface {
	Repository[models.Procedure, models.ProcedureFilter]
	Update(ctx context.Context, id uint, update models.ProcedureUpdate) error
	ToggleRecommended(ctx context.Context, id uint) (*models.Procedure, error)
	Delete(ctx context.Context, id uint) error
}

// ProcedureMaterialRepository defines operations for procedure-material links
type ProcedureMaterialRepository interface {
	Repository[models.ProcedureMaterial, models.ProcedureMaterialFilter]
	ByProcedureID(ctx context.Context, procedureID uint) ([]*models.ProcedureMaterial, error)
	CountProceduresUsingMaterial(ctx context.Context, materialID uint) (int64, error)
	CountLinkedMaterials(ctx context.Context) (int64, error)
	ReplaceForProcedure(ctx context.Context, procedureID uint, links []*models.ProcedureMaterial) error
	DeleteByProcedureID(ctx context.Context, procedureID uint) (int64, error)
}

// UploadJobRepository defines operations for upload jobs
type UploadJobRepository interface {
	Repository[models.UploadJob, models.UploadJobFilter]
	Update(ctx context.Context, job *models.UploadJob) error
	FailStale(ctx context.Context, startedBefore time.Time, details []byte) (int64, error)
}

// ProcedureCostReader loads procedures joined with their category and material cost lines
type ProcedureCostReader interface {
	List(ctx context.Context, query ProcedureCostQuery) ([]*ProcedureCostRow, error)
}
