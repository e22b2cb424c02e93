package businessflow

import (
	"bytes"
	"context"
	"testing"

	"github.com/kimmokhwa/beautiful-management-app/config"
	"github.com/kimmokhwa/beautiful-management-app/repository"
	testingutil "github.com/kimmokhwa/beautiful-management-app/testing"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type flowSuite struct {
	db         *testingutil.TestDB
	fixtures   *testingutil.TestFixtures
	materials  MaterialFlow
	procedures ProcedureFlow
	dashboard  DashboardFlow
	uploads    UploadFlow
	ctx        context.Context
	md         *ClientMetadata
}

func newFlowSuite(t *testing.T) *flowSuite {
	t.Helper()
	return newFlowSuiteWithCache(t, NewDashboardCache(nil, "", 0, nil))
}

func newFlowSuiteWithCache(t *testing.T, cache *DashboardCache) *flowSuite {
	t.Helper()

	tdb, err := testingutil.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = tdb.TeardownTestDB() })

	db := tdb.DB
	materialRepo := repository.NewMaterialRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	procedureRepo := repository.NewProcedureRepository(db)
	linkRepo := repository.NewProcedureMaterialRepository(db)
	jobRepo := repository.NewUploadJobRepository(db)
	costReader := repository.NewProcedureCostReader(db)
	logger := zap.NewNop()

	md := NewClientMetadata("127.0.0.1", "go-test")
	md.SetRequestID("test-request")

	return &flowSuite{
		db:         tdb,
		fixtures:   testingutil.NewTestFixtures(tdb),
		materials:  NewMaterialFlow(materialRepo, linkRepo, cache, logger),
		procedures: NewProcedureFlow(procedureRepo, categoryRepo, materialRepo, linkRepo, costReader, cache, logger, db),
		dashboard:  NewDashboardFlow(procedureRepo, materialRepo, categoryRepo, costReader, cache, logger),
		uploads: NewUploadFlow(jobRepo, materialRepo, categoryRepo, procedureRepo, linkRepo, cache,
			config.UploadConfig{}, logger, db),
		ctx: testingutil.CreateTestContext(),
		md:  md,
	}
}

func f64(v float64) *float64 { return &v }

func strPtr(v string) *string { return &v }

// workbook builds an xlsx file with the given rows on its first sheet
func workbook(t *testing.T, rows ...[]any) []byte {
	t.Helper()

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := xl.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, xl.SetSheetRow(sheet, cell, &row))
	}
	buf, err := xl.WriteToBuffer()
	require.NoError(t, err)
	return bytes.Clone(buf.Bytes())
}
