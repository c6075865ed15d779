package mapbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/creek-quality-service/internal/domain"
	"github.com/couchcryptid/creek-quality-service/internal/observability"
)

const (
	defaultGeocodingURL  = "https://api.mapbox.com/geocoding/v5/mapbox.places"
	defaultDirectionsURL = "https://api.mapbox.com/directions/v5/mapbox"
)

// Client talks to the Mapbox Geocoding and Directions APIs. It implements
// domain.Geocoder.
type Client struct {
	token         string
	httpClient    *http.Client
	geocodingURL  string
	directionsURL string
	metrics       *observability.Metrics
	logger        *slog.Logger
}

// NewClient creates a Mapbox client.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		geocodingURL:  defaultGeocodingURL,
		directionsURL: defaultDirectionsURL,
		metrics:       metrics,
		logger:        logger,
	}
}

// ForwardGeocode converts a free-text place description to coordinates. An
// empty result with a nil error means Mapbox found nothing.
func (c *Client) ForwardGeocode(ctx context.Context, query string) (domain.GeocodingResult, error) {
	u := fmt.Sprintf("%s/%s.json", c.geocodingURL, url.PathEscape(query))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {"address,poi,place,postcode,locality,neighborhood"},
	}

	var resp geocodingResponse
	if err := c.get(ctx, u+"?"+params.Encode(), "forward", &resp); err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("forward", "error").Inc()
		return domain.GeocodingResult{}, err
	}

	if len(resp.Features) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues("forward", "empty").Inc()
		return domain.GeocodingResult{}, nil
	}
	c.metrics.GeocodeRequests.WithLabelValues("forward", "success").Inc()

	f := resp.Features[0]
	result := domain.GeocodingResult{
		FormattedAddress: f.PlaceName,
		PlaceName:        f.Text,
		Confidence:       f.Relevance,
	}
	if len(f.Center) == 2 {
		result.Lon = f.Center[0]
		result.Lat = f.Center[1]
	}
	return result, nil
}

// Directions returns the best route between two points for the travel mode.
func (c *Client) Directions(ctx context.Context, from, to domain.Coordinates, mode domain.TravelMode) (domain.Route, error) {
	// Mapbox uses lon,lat order.
	waypoints := fmt.Sprintf("%.6f,%.6f;%.6f,%.6f", from.Lon, from.Lat, to.Lon, to.Lat)
	u := fmt.Sprintf("%s/%s/%s", c.directionsURL, profile(mode), waypoints)
	params := url.Values{
		"access_token": {c.token},
		"overview":     {"false"},
		"alternatives": {"false"},
	}

	var resp directionsResponse
	err := c.get(ctx, u+"?"+params.Encode(), "directions", &resp)
	switch {
	case errors.Is(err, domain.ErrNoRoute):
		c.metrics.GeocodeRequests.WithLabelValues("directions", "empty").Inc()
		return domain.Route{}, err
	case err != nil:
		c.metrics.GeocodeRequests.WithLabelValues("directions", "error").Inc()
		return domain.Route{}, err
	}

	if resp.Code != "Ok" || len(resp.Routes) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues("directions", "empty").Inc()
		return domain.Route{}, fmt.Errorf("directions %s: %w", resp.Code, domain.ErrNoRoute)
	}
	c.metrics.GeocodeRequests.WithLabelValues("directions", "success").Inc()

	return domain.Route{
		DistanceMeters:  resp.Routes[0].Distance,
		DurationSeconds: resp.Routes[0].Duration,
	}, nil
}

func profile(mode domain.TravelMode) string {
	switch mode {
	case domain.ModeWalking:
		return "walking"
	default:
		return string(mode)
	}
}

// get issues a GET and decodes a JSON body into out. Credential rejections
// map to domain.ErrRoutingUnauthorized; throttling, server faults and
// transport failures map to domain.ErrRoutingUnavailable.
func (c *Client) get(ctx context.Context, fullURL, method string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.GeocodeAPIDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%s request: %w: %w", method, domain.ErrRoutingUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		apiErr := fmt.Errorf("mapbox %s API error: status %d: %s", method, resp.StatusCode, body)
		c.logger.Warn("mapbox request failed", "method", method, "status", resp.StatusCode)

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return fmt.Errorf("%w: %w", domain.ErrRoutingUnauthorized, apiErr)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("%w: %w", domain.ErrRoutingUnavailable, apiErr)
		case resp.StatusCode == http.StatusUnprocessableEntity && method == "directions":
			// Unroutable coordinates, for example a point far from any road.
			return fmt.Errorf("%w: %w", domain.ErrNoRoute, apiErr)
		default:
			return apiErr
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}

// Mapbox API response types.

type geocodingResponse struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}

type directionsResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"` // meters
		Duration float64 `json:"duration"` // seconds
	} `json:"routes"`
}
