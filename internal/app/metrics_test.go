package app

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seedfinder/internal/domain"
)

func TestQueueMetrics(t *testing.T) {
	q, sp := newTestQueue(t, 2)
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, q.RegisterMetrics(reg))
	assert.Error(t, q.RegisterMetrics(reg), "second registration must fail")

	req := domain.AreaRequest{Version: "1.20", Seed: "9", WidthX: 1, WidthY: 1}
	got := make(chan domain.ColorGrid, 3)
	callback := func(g domain.ColorGrid) { got <- g }

	require.NoError(t, q.SubmitAreaRender(req, callback, false))
	sp.waitBusy(t, domain.KindGetArea).reply(domain.KindDoneGetArea, domain.AreaResult{AreaRequest: req, Colors: domain.ColorGrid{{1}}})
	receive(t, got)
	require.NoError(t, q.SubmitAreaRender(req, callback, false))
	receive(t, got)
	require.NoError(t, q.SubmitAreaRender(req, callback, true))
	sp.waitBusy(t, domain.KindGetArea).reply(domain.KindDoneGetArea, domain.AreaResult{AreaRequest: req, Colors: domain.ColorGrid{{1}}})
	receive(t, got)

	assert.Equal(t, 1.0, testutil.ToFloat64(q.metrics.cache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(q.metrics.cache.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(q.metrics.cache.WithLabelValues("forced")))
	assert.Equal(t, 1.0, testutil.ToFloat64(q.metrics.dispatched.WithLabelValues(string(domain.KindGetColors))))
	assert.Equal(t, 2.0, testutil.ToFloat64(q.metrics.dispatched.WithLabelValues(string(domain.KindGetArea))))

	found := make(chan domain.SeedResult, 1)
	require.NoError(t, q.SubmitStructureSearch(domain.StructureSearchRequest{StructType: "village"}, 2, func(res domain.SeedResult) { found <- res }))
	require.Eventually(t, func() bool { return len(sp.busy()) == 2 }, waitFor, tick)
	sp.busy()[0].reply(domain.KindDoneFindStructures, domain.SeedResult{Seed: 5, Found: true})
	assert.Equal(t, domain.SeedResult{Seed: 5, Found: true}, receive(t, found))
	assert.Equal(t, 1.0, testutil.ToFloat64(q.metrics.races.WithLabelValues("found")))

	require.Eventually(t, func() bool { return q.PoolStatus().Busy == 0 }, waitFor, tick)
	expected := `
# HELP seedfinder_pool_busy_workers Workers loading or serving a request.
# TYPE seedfinder_pool_busy_workers gauge
seedfinder_pool_busy_workers 0
# HELP seedfinder_pool_workers Workers currently owned by the pool.
# TYPE seedfinder_pool_workers gauge
seedfinder_pool_workers 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"seedfinder_pool_workers", "seedfinder_pool_busy_workers"))

	require.NoError(t, q.SubmitSpawnLookup(domain.SpawnRequest{Seed: "1"}, func(x, z int) {}))
	sp.waitBusy(t, domain.KindGetSpawn)
	q.TerminateAll()
	assert.Equal(t, 1.0, testutil.ToFloat64(q.metrics.abandoned))
}
