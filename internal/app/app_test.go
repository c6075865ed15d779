package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/creek-quality-service/internal/adapter/feed"
	"github.com/couchcryptid/creek-quality-service/internal/adapter/geo"
	"github.com/couchcryptid/creek-quality-service/internal/adapter/mapbox"
	"github.com/couchcryptid/creek-quality-service/internal/config"
	"github.com/couchcryptid/creek-quality-service/internal/observability"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenSource_CSVByDefault(t *testing.T) {
	cfg := &config.Config{SampleFeed: "results.csv", CatalogFeed: "sites.csv", SampleSkipRows: 2, FeedTimeout: time.Second}

	src, closeFn, err := OpenSource(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &feed.Source{}, src)
	assert.NoError(t, closeFn())
}

func TestNewRouter(t *testing.T) {
	metrics := observability.NewMetricsForTesting()

	offline := NewRouter(&config.Config{}, metrics, discardLogger())
	assert.IsType(t, &geo.Router{}, offline)
	assert.Zero(t, testutil.ToFloat64(metrics.RoutingEnabled))

	cfg := &config.Config{MapboxEnabled: true, MapboxToken: "pk.test", MapboxTimeout: time.Second, MapboxCacheSize: 10}
	online := NewRouter(cfg, metrics, discardLogger())
	assert.IsType(t, &mapbox.Router{}, online)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RoutingEnabled))
}

func TestNearestOptions(t *testing.T) {
	opts := NearestOptions(&config.Config{RouteWorkers: 6, RouteTimeout: 3 * time.Second, NearZeroMeters: 25})
	assert.Equal(t, 6, opts.Workers)
	assert.Equal(t, 3*time.Second, opts.CallTimeout)
	assert.Equal(t, 25.0, opts.NearZeroMeters)
}
