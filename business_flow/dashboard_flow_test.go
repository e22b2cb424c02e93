package businessflow

import (
	"testing"

	"github.com/kimmokhwa/beautiful-management-app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedDashboard(t *testing.T, s *flowSuite) map[string]*models.Procedure {
	t.Helper()

	botoxCat, err := s.fixtures.CreateCategory("보톡스")
	require.NoError(t, err)
	fillerCat, err := s.fixtures.CreateCategory("필러")
	require.NoError(t, err)
	_, err = s.fixtures.CreateCategory("리프팅")
	require.NoError(t, err)

	botox, err := s.fixtures.CreateMaterial("보톡스 100u", 120000)
	require.NoError(t, err)
	filler, err := s.fixtures.CreateMaterial("필러 1cc", 150000)
	require.NoError(t, err)

	out := map[string]*models.Procedure{}
	add := func(name string, cat *models.Category, price int64, recommended bool, m *models.Material, qty string) {
		p, err := s.fixtures.CreateProcedure(name, cat, price, recommended)
		require.NoError(t, err)
		if m != nil {
			_, err = s.fixtures.LinkMaterial(p, m, qty)
			require.NoError(t, err)
		}
		out[name] = p
	}

	add("이마", botoxCat, 400000, true, botox, "1")  // margin 280000, 70.0
	add("턱", botoxCat, 300000, false, botox, "1")  // margin 180000, 60.0
	add("코", fillerCat, 600000, true, filler, "2") // margin 300000, 50.0
	add("상담", nil, 10000, false, nil, "")          // margin 10000, 100.0
	return out
}

func TestDashboardFlow_Stats(t *testing.T) {
	s := newFlowSuite(t)
	seedDashboard(t, s)

	stats, err := s.dashboard.Stats(s.ctx, s.md)
	require.NoError(t, err)

	assert.EqualValues(t, 4, stats.TotalProcedures)
	assert.EqualValues(t, 2, stats.RecommendedCount)
	assert.EqualValues(t, 2, stats.TotalMaterials)
	assert.EqualValues(t, 3, stats.TotalCategories)
	assert.Equal(t, 70.0, stats.AvgMarginRate)
	assert.Equal(t, 300000.0, stats.MaxMargin)
	assert.Equal(t, 327500.0, stats.AvgPrice)
}

func TestDashboardFlow_StatsEmpty(t *testing.T) {
	s := newFlowSuite(t)

	stats, err := s.dashboard.Stats(s.ctx, s.md)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalProcedures)
	assert.Zero(t, stats.AvgMarginRate)
	assert.Zero(t, stats.MaxMargin)
	assert.Zero(t, stats.AvgPrice)
}

func TestDashboardFlow_Top(t *testing.T) {
	s := newFlowSuite(t)
	seeded := seedDashboard(t, s)

	byMargin, err := s.dashboard.TopMargin(s.ctx, s.md)
	require.NoError(t, err)
	require.Len(t, byMargin, 4)
	assert.Equal(t, seeded["코"].ID, byMargin[0].ID)
	assert.Equal(t, seeded["이마"].ID, byMargin[1].ID)
	assert.Equal(t, "필러", byMargin[0].Category)

	byRate, err := s.dashboard.TopMarginRate(s.ctx, s.md)
	require.NoError(t, err)
	require.Len(t, byRate, 4)
	assert.Equal(t, seeded["상담"].ID, byRate[0].ID)
	assert.Equal(t, models.UncategorizedName, byRate[0].Category)
	assert.Equal(t, 100.0, byRate[0].MarginRate)
	assert.Equal(t, seeded["이마"].ID, byRate[1].ID)
}

func TestDashboardFlow_TopLimitsToFive(t *testing.T) {
	s := newFlowSuite(t)

	var ids []uint
	for i := 0; i < 7; i++ {
		p, err := s.fixtures.CreateProcedure("same", nil, 1000, false)
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	top, err := s.dashboard.TopMarginRate(s.ctx, s.md)
	require.NoError(t, err)
	require.Len(t, top, 5)
	for i := range top {
		assert.Equal(t, ids[i], top[i].ID)
	}
}

func TestDashboardFlow_Recommended(t *testing.T) {
	s := newFlowSuite(t)
	seeded := seedDashboard(t, s)

	list, err := s.dashboard.Recommended(s.ctx, s.md)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, seeded["이마"].ID, list[0].ID)
	assert.Equal(t, seeded["코"].ID, list[1].ID)
	for _, p := range list {
		assert.True(t, p.IsRecommended)
	}
}

func TestDashboardFlow_CategoryStats(t *testing.T) {
	s := newFlowSuite(t)
	seedDashboard(t, s)

	stats, err := s.dashboard.CategoryStats(s.ctx, s.md)
	require.NoError(t, err)
	require.Len(t, stats, 4)

	names := make([]string, 0, len(stats))
	for _, st := range stats {
		names = append(names, st.Name)
	}
	assert.Equal(t, []string{"리프팅", "보톡스", "필러", models.UncategorizedName}, names)

	assert.Equal(t, 0, stats[0].ProcedureCount)
	assert.Zero(t, stats[0].AvgMarginRate)

	assert.Equal(t, 2, stats[1].ProcedureCount)
	assert.Equal(t, 65.0, stats[1].AvgMarginRate)
	assert.Equal(t, 460000.0, stats[1].TotalMargin)

	assert.Nil(t, stats[3].ID)
	assert.Equal(t, 1, stats[3].ProcedureCount)
}

func TestDashboardFlow_CategoryStatsWithoutUncategorized(t *testing.T) {
	s := newFlowSuite(t)

	cat, err := s.fixtures.CreateCategory("보톡스")
	require.NoError(t, err)
	_, err = s.fixtures.CreateProcedure("이마", cat, 1000, false)
	require.NoError(t, err)

	stats, err := s.dashboard.CategoryStats(s.ctx, s.md)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "보톡스", stats[0].Name)
}
