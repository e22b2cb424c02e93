package businessflow

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kimmokhwa/beautiful-management-app/app/dto"
	testingutil "github.com/kimmokhwa/beautiful-management-app/testing"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRedisCache(t *testing.T) (*DashboardCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return NewDashboardCache(rc, "test:", time.Minute, zap.NewNop()), mr
}

func TestDashboardCache_SetGetInvalidate(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := testingutil.CreateTestContext()

	var out []int
	gen, ok := c.get(ctx, dashboardKeyStats, &out)
	assert.False(t, ok)
	assert.Equal(t, "0", gen)

	c.set(ctx, gen, dashboardKeyStats, []int{1, 2})
	assert.True(t, mr.Exists("test:dashboard:stats:0"))
	assert.Equal(t, time.Minute, mr.TTL("test:dashboard:stats:0"))

	_, ok = c.get(ctx, dashboardKeyStats, &out)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, out)

	c.Invalidate(ctx)
	out = nil
	gen, ok = c.get(ctx, dashboardKeyStats, &out)
	assert.False(t, ok)
	assert.Equal(t, "1", gen)
	assert.Nil(t, out)
}

func TestDashboardCache_WriteDuringRecomputeIsNotServed(t *testing.T) {
	c, _ := newRedisCache(t)
	ctx := testingutil.CreateTestContext()

	var out []int
	gen, ok := c.get(ctx, dashboardKeyTopMargin, &out)
	require.False(t, ok)

	// a write lands while the reader is still computing from old rows
	c.Invalidate(ctx)
	c.set(ctx, gen, dashboardKeyTopMargin, []int{9})

	_, ok = c.get(ctx, dashboardKeyTopMargin, &out)
	assert.False(t, ok)
}

func TestDashboardCache_UnavailableRedis(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := testingutil.CreateTestContext()
	mr.Close()

	var out []int
	gen, ok := c.get(ctx, dashboardKeyStats, &out)
	assert.False(t, ok)
	assert.Empty(t, gen)
	c.set(ctx, gen, dashboardKeyStats, []int{1})
	c.Invalidate(ctx)
}

func TestDashboardFlow_StatsServedFromRedis(t *testing.T) {
	cache, _ := newRedisCache(t)
	s := newFlowSuiteWithCache(t, cache)
	seedDashboard(t, s)

	stats, err := s.dashboard.Stats(s.ctx, s.md)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalMaterials)

	// fixtures bypass the flows, so the cached payload is still served
	_, err = s.fixtures.CreateMaterial("거즈", 500)
	require.NoError(t, err)
	stats, err = s.dashboard.Stats(s.ctx, s.md)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalMaterials)

	_, err = s.materials.Create(s.ctx, &dto.CreateMaterialRequest{Name: "리도카인", Cost: f64(5000)}, s.md)
	require.NoError(t, err)
	stats, err = s.dashboard.Stats(s.ctx, s.md)
	require.NoError(t, err)
	assert.EqualValues(t, 4, stats.TotalMaterials)
}
