// Package scheduler runs periodic maintenance for the upload pipeline
package scheduler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kimmokhwa/beautiful-management-app/models"
	"github.com/kimmokhwa/beautiful-management-app/repository"
	"github.com/kimmokhwa/beautiful-management-app/utils"
	"go.uber.org/zap"
)

// interruptedMessage is recorded as the row 0 error of a reaped job
const interruptedMessage = "import was interrupted before completion"

// UploadJobReaper periodically fails upload jobs that were left in processing,
// e.g. after the process died mid-import
type UploadJobReaper struct {
	jobRepo    repository.UploadJobRepository
	staleAfter time.Duration
	interval   time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

func NewUploadJobReaper(
	jobRepo repository.UploadJobRepository,
	staleAfter time.Duration,
	interval time.Duration,
	logger *zap.Logger,
) *UploadJobReaper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 15 * time.Minute
	}
	return &UploadJobReaper{
		jobRepo:    jobRepo,
		staleAfter: staleAfter,
		interval:   interval,
		logger:     logger,
		now:        utils.UTCNow,
	}
}

// Start runs the reaper once immediately and then on every tick. The returned func stops it.
func (r *UploadJobReaper) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.runLogged(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.runLogged(ctx)
			}
		}
	}()

	return cancel
}

func (r *UploadJobReaper) runLogged(ctx context.Context) {
	n, err := r.RunOnce(ctx)
	if err != nil {
		r.logger.Error("upload reaper: run failed", zap.Error(err))
		return
	}
	if n > 0 {
		r.logger.Warn("upload reaper: failed stale jobs", zap.Int64("jobs", n), zap.Duration("stale_after", r.staleAfter))
	}
}

// RunOnce fails every job still processing past the stale threshold and returns how many were touched
func (r *UploadJobReaper) RunOnce(ctx context.Context) (int64, error) {
	details, err := json.Marshal(models.UploadErrorDetails{
		Errors: []models.RowError{{Row: 0, Message: interruptedMessage}},
	})
	if err != nil {
		return 0, err
	}
	return r.jobRepo.FailStale(ctx, r.now().Add(-r.staleAfter), details)
}
