package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/creek-quality-service/internal/adapter/http"
	"github.com/couchcryptid/creek-quality-service/internal/domain"
	"github.com/couchcryptid/creek-quality-service/internal/nearest"
	"github.com/couchcryptid/creek-quality-service/internal/query"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type finderFunc func(ctx context.Context, origin string) (domain.NearestSiteResult, error)

func (f finderFunc) Nearest(ctx context.Context, origin string) (domain.NearestSiteResult, error) {
	return f(ctx, origin)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strp(s string) *string { return &s }

func readyService(t *testing.T) *query.Service {
	t.Helper()
	catalog, err := domain.NewCatalog([]domain.SiteRecord{
		{Code: "peav@oldb", DisplayName: "Peavine creek/Old briarcliff way", Lat: 33.7901, Lon: -84.3250},
		{Code: "lull@lull", DisplayName: "Lullwater creek", Lat: 33.7950, Lon: -84.3190},
	})
	require.NoError(t, err)
	rows := []domain.RawSample{
		{SiteToken: "peav@oldb", Timestamp: "2024-06-03", EcoliRaw: strp("200")},
		{SiteToken: "peav@oldb", Timestamp: "2024-06-10", EcoliRaw: strp("1500")},
		{SiteToken: "lull@lull", Timestamp: "2024-06-10", EcoliRaw: strp("40")},
	}
	svc := query.NewService(domain.DefaultThresholds())
	svc.Swap(domain.BuildSnapshot(catalog, rows, domain.SnapshotOptions{Anchor: domain.DefaultWeekAnchor()}))
	return svc
}

func newTestServer(t *testing.T, svc *query.Service, finder httpadapter.NearestFinder) *httpadapter.Server {
	t.Helper()
	api := httpadapter.NewAPI(svc, finder, discardLogger())
	return httpadapter.NewServer(":0", svc, api, discardLogger())
}

func get(t *testing.T, srv http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	var body struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NoError(t, json.Unmarshal(body.Data, v))
}

func TestHealthzReturns200(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockReadiness{}, nil, discardLogger())
	assert.Equal(t, http.StatusOK, get(t, srv, "/healthz").Code)
}

func TestReadyzReflectsChecker(t *testing.T) {
	ready := httpadapter.NewServer(":0", &mockReadiness{}, nil, discardLogger())
	assert.Equal(t, http.StatusOK, get(t, ready, "/readyz").Code)

	notReady := httpadapter.NewServer(":0", &mockReadiness{err: fmt.Errorf("no snapshot yet")}, nil, discardLogger())
	assert.Equal(t, http.StatusServiceUnavailable, get(t, notReady, "/readyz").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockReadiness{}, nil, discardLogger())
	rec := get(t, srv, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestAPI_NotReady(t *testing.T) {
	svc := query.NewService(nil)
	srv := newTestServer(t, svc, nil)

	assert.Equal(t, http.StatusServiceUnavailable, get(t, srv, "/readyz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, srv, "/api/sites").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, srv, "/api/overview").Code)
}

func TestAPI_Sites(t *testing.T) {
	srv := newTestServer(t, readyService(t), nil)

	rec := get(t, srv, "/api/sites")
	require.Equal(t, http.StatusOK, rec.Code)

	var sites []domain.CanonicalSite
	decodeData(t, rec, &sites)
	require.Len(t, sites, 2)
	assert.Equal(t, "peav@oldb", sites[0].Code)
}

func TestAPI_Summary(t *testing.T) {
	srv := newTestServer(t, readyService(t), nil)

	rec := get(t, srv, "/api/sites/PEAV@OLDB/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var report query.SiteReport
	decodeData(t, rec, &report)
	require.NotNil(t, report.Latest)
	assert.Equal(t, 1500.0, *report.Latest.Ecoli)
}

func TestAPI_SummaryByEscapedDisplayName(t *testing.T) {
	srv := newTestServer(t, readyService(t), nil)

	rec := get(t, srv, "/api/sites/Peavine%20creek%2FOld%20briarcliff%20way/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var report query.SiteReport
	decodeData(t, rec, &report)
	assert.Equal(t, "peav@oldb", report.Site.Code)
}

func TestAPI_Trend(t *testing.T) {
	srv := newTestServer(t, readyService(t), nil)

	rec := get(t, srv, "/api/sites/peav@oldb/trend?field=ecoli_conc&weeks=4")
	require.Equal(t, http.StatusOK, rec.Code)

	var trend query.Trend
	decodeData(t, rec, &trend)
	assert.Equal(t, 1300.0, trend.Delta)
	assert.Equal(t, query.DirectionIncreasing, trend.Direction)
}

func TestAPI_Compare(t *testing.T) {
	srv := newTestServer(t, readyService(t), nil)

	rec := get(t, srv, "/api/compare?field=E.%20coli")
	require.Equal(t, http.StatusOK, rec.Code)

	var cmp query.Comparison
	decodeData(t, rec, &cmp)
	require.Len(t, cmp.Ranking, 2)
	assert.Equal(t, "peav@oldb", cmp.Ranking[0].Site.Code)
	assert.Equal(t, domain.StatusAbove, cmp.Ranking[0].Status)
}

func TestAPI_Measurement(t *testing.T) {
	srv := newTestServer(t, readyService(t), nil)

	rec := get(t, srv, "/api/measurements/ph")
	require.Equal(t, http.StatusOK, rec.Code)

	var info query.MeasurementInfo
	decodeData(t, rec, &info)
	assert.Equal(t, domain.FieldPH, info.Field)
}

func TestAPI_ErrorStatus(t *testing.T) {
	srv := newTestServer(t, readyService(t), nil)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"unknown site", "/api/sites/nowhere/summary", http.StatusNotFound},
		{"unknown field", "/api/compare?field=salinity", http.StatusBadRequest},
		{"bad weeks", "/api/sites/peav@oldb/trend?weeks=abc", http.StatusBadRequest},
		{"single week", "/api/sites/lull@lull/trend", http.StatusUnprocessableEntity},
		{"unknown measurement", "/api/measurements/lead", http.StatusBadRequest},
		{"routing disabled", "/api/nearest?origin=home", http.StatusNotImplemented},
		{"no route", "/api/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, srv, tt.path)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAPI_Nearest(t *testing.T) {
	dist := 420.0
	finder := finderFunc(func(_ context.Context, origin string) (domain.NearestSiteResult, error) {
		switch origin {
		case "":
			return domain.NearestSiteResult{}, nearest.ErrInvalidOrigin
		case "denied":
			return domain.NearestSiteResult{}, domain.ErrRoutingUnauthorized
		case "offline":
			return domain.NearestSiteResult{}, fmt.Errorf("all sites: %w", domain.ErrRoutingUnavailable)
		}
		return domain.NearestSiteResult{Site: &domain.CanonicalSite{Code: "lull@lull"}, DistanceMeters: &dist, Found: true}, nil
	})
	srv := newTestServer(t, readyService(t), finder)

	rec := get(t, srv, "/api/nearest?origin=Emory%20Village")
	require.Equal(t, http.StatusOK, rec.Code)
	var res domain.NearestSiteResult
	decodeData(t, rec, &res)
	assert.True(t, res.Found)
	assert.Equal(t, "lull@lull", res.Site.Code)
	assert.Equal(t, 420.0, *res.DistanceMeters)

	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/nearest").Code)
	assert.Equal(t, http.StatusBadGateway, get(t, srv, "/api/nearest?origin=denied").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, srv, "/api/nearest?origin=offline").Code)
}
