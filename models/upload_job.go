package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Upload types
const (
	UploadTypeMaterials  = "materials"
	UploadTypeProcedures = "procedures"
)

// Upload merge modes
const (
	UploadModeAdd     = "add"
	UploadModeUpdate  = "update"
	UploadModeReplace = "replace"
)

// Upload job statuses. pending -> processing -> completed|failed, completed -> rollback.
const (
	UploadStatusPending    = "pending"
	UploadStatusProcessing = "processing"
	UploadStatusCompleted  = "completed"
	UploadStatusFailed     = "failed"
	UploadStatusRollback   = "rollback"
)

// UploadJob tracks one bulk import attempt and its per-row outcome
type UploadJob struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UUID         uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_upload_jobs_uuid" json:"uuid"`
	Type         string         `gorm:"size:20;not null;index:idx_upload_jobs_type" json:"type"`
	Mode         string         `gorm:"size:20;not null" json:"mode"`
	FileName     string         `gorm:"size:512;not null" json:"file_name"`
	FileSize     int64          `gorm:"not null" json:"file_size"`
	Status       string         `gorm:"size:20;not null;index:idx_upload_jobs_status" json:"status"`
	TotalRows    int            `gorm:"not null;default:0" json:"total_rows"`
	SuccessRows  int            `gorm:"not null;default:0" json:"success_rows"`
	ErrorRows    int            `gorm:"not null;default:0" json:"error_rows"`
	ErrorDetails datatypes.JSON `json:"error_details,omitempty"`
	OriginalData datatypes.JSON `json:"original_data,omitempty"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	CreatedAt    time.Time      `gorm:"index:idx_upload_jobs_created_at" json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (UploadJob) TableName() string {
	return "upload_jobs"
}

// UploadJobFilter represents filter criteria for upload job queries
type UploadJobFilter struct {
	ID     *uint
	UUID   *uuid.UUID
	Type   *string
	Status *string
}

// RowError is one failed row of an import, keyed by its display row number
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// UploadErrorDetails is the JSON document stored in upload_jobs.error_details
type UploadErrorDetails struct {
	Errors   []RowError `json:"errors"`
	Warnings []RowError `json:"warnings,omitempty"`
}

// MaterialSnapshot is the JSON document stored in upload_jobs.original_data
type MaterialSnapshot struct {
	Data []Material `json:"data"`
}

// AllModels lists every table owned by the service, in dependency order
func AllModels() []any {
	return []any{
		&Category{},
		&Material{},
		&Procedure{},
		&ProcedureMaterial{},
		&UploadJob{},
	}
}
