package dto

// UploadRequest carries the multipart form fields besides the file itself
type UploadRequest struct {
	Type     string
	Mode     string
	FileName string
	FileSize int64
}

// RowErrorDTO is a failed or warned row, keyed by its spreadsheet row number
type RowErrorDTO struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// UploadResultDTO summarizes a finished import
type UploadResultDTO struct {
	JobID           uint          `json:"jobId"`
	JobUUID         string        `json:"jobUuid"`
	Type            string        `json:"type"`
	Mode            string        `json:"mode"`
	Status          string        `json:"status"`
	TotalRows       int           `json:"totalRows"`
	SuccessRows     int           `json:"successRows"`
	ErrorRows       int           `json:"errorRows"`
	Errors          []RowErrorDTO `json:"errors"`
	ErrorsTruncated bool          `json:"errorsTruncated"`
	Warnings        []RowErrorDTO `json:"warnings,omitempty"`
}

// UploadHistoryQuery filters the upload history
type UploadHistoryQuery struct {
	Type  string `query:"type" validate:"omitempty,oneof=materials procedures"`
	Limit int    `query:"limit" validate:"omitempty,gte=0"`
}

// UploadJobDTO represents an upload job in the history
type UploadJobDTO struct {
	ID          uint          `json:"id"`
	UUID        string        `json:"uuid"`
	Type        string        `json:"type"`
	Mode        string        `json:"mode"`
	FileName    string        `json:"fileName"`
	FileSize    int64         `json:"fileSize"`
	Status      string        `json:"status"`
	TotalRows   int           `json:"totalRows"`
	SuccessRows int           `json:"successRows"`
	ErrorRows   int           `json:"errorRows"`
	Errors      []RowErrorDTO `json:"errors"`
	Warnings    []RowErrorDTO `json:"warnings,omitempty"`
	CanRollback bool          `json:"canRollback"`
	StartedAt   *string       `json:"startedAt"`
	CompletedAt *string       `json:"completedAt"`
	CreatedAt   string        `json:"createdAt"`
}

// RollbackResultDTO reports a restored materials snapshot
type RollbackResultDTO struct {
	JobID             uint   `json:"jobId"`
	Status            string `json:"status"`
	RestoredMaterials int    `json:"restoredMaterials"`
	RemovedMaterials  int64  `json:"removedMaterials"`
}
