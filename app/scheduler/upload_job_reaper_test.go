package scheduler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kimmokhwa/beautiful-management-app/models"
	"github.com/kimmokhwa/beautiful-management-app/repository"
	testingutil "github.com/kimmokhwa/beautiful-management-app/testing"
	"github.com/kimmokhwa/beautiful-management-app/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func saveJob(t *testing.T, repo repository.UploadJobRepository, status string, startedAt time.Time) *models.UploadJob {
	t.Helper()
	job := &models.UploadJob{
		UUID:      uuid.New(),
		Type:      models.UploadTypeMaterials,
		Mode:      models.UploadModeAdd,
		FileName:  "materials.xlsx",
		FileSize:  1024,
		Status:    status,
		StartedAt: &startedAt,
		CreatedAt: startedAt,
		UpdatedAt: startedAt,
	}
	require.NoError(t, repo.Save(context.Background(), job))
	return job
}

func TestUploadJobReaper_RunOnce(t *testing.T) {
	tdb, err := testingutil.SetupTestDB()
	require.NoError(t, err)
	defer func() { _ = tdb.TeardownTestDB() }()

	ctx := context.Background()
	repo := repository.NewUploadJobRepository(tdb.DB)
	now := utils.UTCNow()

	stale := saveJob(t, repo, models.UploadStatusProcessing, now.Add(-time.Hour))
	fresh := saveJob(t, repo, models.UploadStatusProcessing, now.Add(-time.Minute))
	done := saveJob(t, repo, models.UploadStatusCompleted, now.Add(-time.Hour))

	reaper := NewUploadJobReaper(repo, 15*time.Minute, time.Minute, zap.NewNop())
	reaper.now = func() time.Time { return now }

	n, err := reaper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.ByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusFailed, got.Status)
	require.NotNil(t, got.CompletedAt)
	var details models.UploadErrorDetails
	require.NoError(t, json.Unmarshal(got.ErrorDetails, &details))
	require.Len(t, details.Errors, 1)
	assert.Equal(t, 0, details.Errors[0].Row)
	assert.Equal(t, interruptedMessage, details.Errors[0].Message)

	got, err = repo.ByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusProcessing, got.Status)

	got, err = repo.ByID(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusCompleted, got.Status)

	// second pass finds nothing
	n, err = reaper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUploadJobReaper_StartStops(t *testing.T) {
	tdb, err := testingutil.SetupTestDB()
	require.NoError(t, err)
	defer func() { _ = tdb.TeardownTestDB() }()

	repo := repository.NewUploadJobRepository(tdb.DB)
	job := saveJob(t, repo, models.UploadStatusProcessing, utils.UTCNow().Add(-2*time.Hour))

	reaper := NewUploadJobReaper(repo, 15*time.Minute, time.Hour, zap.NewNop())
	stop := reaper.Start(context.Background())
	defer stop()

	assert.Eventually(t, func() bool {
		got, err := repo.ByID(context.Background(), job.ID)
		return err == nil && got != nil && got.Status == models.UploadStatusFailed
	}, 5*time.Second, 20*time.Millisecond)
}
