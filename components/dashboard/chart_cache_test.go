package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChartCacheStoresEntry(t *testing.T) {
	cache := NewChartCache(time.Minute)
	calls := 0
	render := func() (string, error) {
		calls++
		return "html", nil
	}

	val1, err := cache.GetOrRender("key", render)
	require.NoError(t, err)
	val2, err := cache.GetOrRender("key", render)
	require.NoError(t, err)

	assert.Equal(t, "html", val1)
	assert.Equal(t, val1, val2)
	assert.Equal(t, 1, calls)
}

func TestChartCacheExpiresAndPurges(t *testing.T) {
	clock := newFakeClock()
	cache := NewChartCache(time.Minute)
	cache.now = clock.Now
	calls := 0
	render := func() (string, error) {
		calls++
		return "fresh", nil
	}

	_, err := cache.GetOrRender("a", render)
	require.NoError(t, err)
	_, err = cache.GetOrRender("b", render)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 2, cache.Purge())
	assert.Zero(t, cache.Len())

	_, err = cache.GetOrRender("a", render)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestChartCacheStartPurgeReclaimsUnreadEntries(t *testing.T) {
	clock := newFakeClock()
	cache := NewChartCache(time.Minute)
	cache.now = clock.Now
	for _, version := range []string{"v1", "v2", "v3"} {
		_, err := cache.GetOrRender(chartKey("activity", "token", version), func() (string, error) {
			return "chart", nil
		})
		require.NoError(t, err)
	}
	require.Equal(t, 3, cache.Len())

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	cache.StartPurge(ctx, 5*time.Millisecond)

	clock.Advance(2 * time.Minute)
	assert.Eventually(t, func() bool { return cache.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestChartCacheDoesNotStoreErrors(t *testing.T) {
	cache := NewChartCache(time.Minute)
	_, err := cache.GetOrRender("key", func() (string, error) { return "", errors.New("boom") })
	require.Error(t, err)
	assert.Zero(t, cache.Len())
}

func TestChartKeyHidesParts(t *testing.T) {
	key := chartKey("sales", "secret-token")
	assert.NotContains(t, key, "secret-token")
	assert.Equal(t, key, chartKey("sales", "secret-token"))
	assert.NotEqual(t, key, chartKey("sales", "other-token"))
}

func TestChartRendererMemoizesByVersion(t *testing.T) {
	cache := NewChartCache(time.Minute)
	renderer := NewChartRenderer(WithChartCache(cache))
	series, err := (&SalesGenerator{}).Generate(t.Context())
	require.NoError(t, err)

	html, err := renderer.SalesChart("v1", series)
	require.NoError(t, err)
	assert.Contains(t, html, "Revenue")
	_, err = renderer.SalesChart("v1", series)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())

	cells, err := (&ActivityGenerator{Seeds: FixedSeeds(1, 2)}).Generate(t.Context())
	require.NoError(t, err)
	heatmap, err := renderer.ActivityHeatmap("v1", cells)
	require.NoError(t, err)
	assert.NotEmpty(t, heatmap)
	assert.Equal(t, 2, cache.Len())

	_, err = renderer.ActivityHeatmap("v2", nil)
	assert.Error(t, err)
}
