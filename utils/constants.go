package utils

import (
	"time"
)

// Request timeouts
const (
	DefaultRequestTimeout = 30 * time.Second
	UploadRequestTimeout  = 60 * time.Second
	UploadFinalizeTimeout = 10 * time.Second
)

// Upload limits
const (
	// MaxUploadFileSize is the largest accepted spreadsheet (10MB)
	MaxUploadFileSize = 10 * 1024 * 1024

	// MaxResponseRowErrors caps row errors echoed back in an upload response
	MaxResponseRowErrors = 10

	DefaultUploadHistoryLimit = 20
	MaxUploadHistoryLimit     = 100
)

// Dashboard constants
const (
	// TopProceduresLimit is the size of the top-N dashboard lists
	TopProceduresLimit = 5

	DashboardCacheTTL = 30 * time.Second
)
