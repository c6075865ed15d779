package mapbox

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/creek-quality-service/internal/domain"
	"github.com/couchcryptid/creek-quality-service/internal/observability"
)

const (
	testToken         = "test-token"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func testClient(baseURL string) *Client {
	return &Client{
		token:         testToken,
		httpClient:    &http.Client{Timeout: 5 * time.Second},
		geocodingURL:  baseURL + "/geocoding",
		directionsURL: baseURL + "/directions",
		metrics:       testMetrics(),
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set(headerContentType, contentTypeJSON)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestClient_ForwardGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "Emory Village")
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, testToken, r.URL.Query().Get("access_token"))

		writeJSON(t, w, geocodingResponse{
			Features: []feature{{
				Center:    []float64{-84.3239, 33.7906},
				PlaceName: "Emory Village, Atlanta, Georgia, United States",
				Text:      "Emory Village",
				Relevance: 0.95,
			}},
		})
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	result, err := c.ForwardGeocode(context.Background(), "Emory Village")
	require.NoError(t, err)

	assert.Equal(t, 33.7906, result.Lat)
	assert.Equal(t, -84.3239, result.Lon)
	assert.Equal(t, "Emory Village, Atlanta, Georgia, United States", result.FormattedAddress)
	assert.Equal(t, "Emory Village", result.PlaceName)
	assert.Equal(t, 0.95, result.Confidence)
	assert.True(t, result.Found())
}

func TestClient_ForwardGeocode_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, geocodingResponse{Features: []feature{}})
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	result, err := c.ForwardGeocode(context.Background(), "NONEXISTENT")
	require.NoError(t, err)
	assert.False(t, result.Found())
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, domain.ErrRoutingUnauthorized},
		{http.StatusForbidden, domain.ErrRoutingUnauthorized},
		{http.StatusTooManyRequests, domain.ErrRoutingUnavailable},
		{http.StatusBadGateway, domain.ErrRoutingUnavailable},
		{http.StatusUnprocessableEntity, domain.ErrNoRoute},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"message":"nope"}`))
			}))
			defer srv.Close()

			c := testClient(srv.URL)
			_, err := c.Directions(context.Background(), domain.Coordinates{Lat: 33.79, Lon: -84.32}, domain.Coordinates{Lat: 33.80, Lon: -84.31}, domain.ModeWalking)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), strconv.Itoa(tt.status))
		})
	}
}

func TestClient_ForwardGeocode_BadRequestIsPlainError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ForwardGeocode(context.Background(), "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrRoutingUnavailable)
	assert.Contains(t, err.Error(), "400")
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}

	_, err := c.ForwardGeocode(context.Background(), "Emory Village")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRoutingUnavailable)
}

func TestClient_Directions_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/directions/walking/-84.320000,33.790000;-84.310000,33.800000", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("overview"))
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"distance":1523.4,"duration":1088.1},{"distance":1800,"duration":1300}]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	route, err := c.Directions(context.Background(),
		domain.Coordinates{Lat: 33.79, Lon: -84.32},
		domain.Coordinates{Lat: 33.80, Lon: -84.31},
		domain.ModeWalking)
	require.NoError(t, err)
	assert.Equal(t, 1523.4, route.DistanceMeters)
	assert.Equal(t, 1088.1, route.DurationSeconds)
}

func TestClient_Directions_NoRoute(t *testing.T) {
	for name, body := range map[string]string{
		"no route code": `{"code":"NoRoute","routes":[]}`,
		"empty routes":  `{"code":"Ok","routes":[]}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := testClient(srv.URL).Directions(context.Background(), domain.Coordinates{}, domain.Coordinates{Lat: 1, Lon: 1}, domain.ModeWalking)
			assert.ErrorIs(t, err, domain.ErrNoRoute)
		})
	}
}

func TestRouter_GeocodesOriginThenRoutes(t *testing.T) {
	var geocodes, directions int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/geocoding/"):
			geocodes++
			writeJSON(t, w, geocodingResponse{Features: []feature{{Center: []float64{-84.32, 33.79}, PlaceName: "Emory"}}})
		case strings.HasPrefix(r.URL.Path, "/directions/walking/-84.320000,33.790000;"):
			directions++
			_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"distance":640,"duration":457}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	router := NewRouter(NewCachedGeocoder(c, 10, testMetrics()), c)

	for _, dest := range []domain.Coordinates{{Lat: 33.78, Lon: -84.33}, {Lat: 33.80, Lon: -84.31}} {
		route, err := router.Route(context.Background(), "Emory", dest, domain.ModeWalking)
		require.NoError(t, err)
		assert.Equal(t, 640.0, route.DistanceMeters)
	}
	assert.Equal(t, 1, geocodes, "origin geocode should be cached")
	assert.Equal(t, 2, directions)
}

func TestRouter_CoordinateOriginSkipsGeocoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/directions/"), r.URL.Path)
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"distance":10,"duration":7}]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	route, err := NewRouter(c, c).Route(context.Background(), "33.79,-84.32", domain.Coordinates{Lat: 33.7901, Lon: -84.3201}, domain.ModeWalking)
	require.NoError(t, err)
	assert.Equal(t, 10.0, route.DistanceMeters)
}

func TestRouter_UnknownOrigin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, geocodingResponse{})
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := NewRouter(c, c).Route(context.Background(), "atlantis", domain.Coordinates{Lat: 1, Lon: 1}, domain.ModeWalking)
	assert.ErrorIs(t, err, domain.ErrNoRoute)
}
