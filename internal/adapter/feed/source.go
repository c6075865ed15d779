package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/creek-quality-service/internal/domain"
)

// Source fetches both feeds from file paths or HTTP(S) URLs.
type Source struct {
	samples    string
	catalog    string
	skipRows   int
	httpClient *http.Client
}

// NewSource creates a feed source. Locations starting with http:// or
// https:// are downloaded; anything else is a local path.
func NewSource(samples, catalog string, skipRows int, timeout time.Duration) *Source {
	return &Source{
		samples:  samples,
		catalog:  catalog,
		skipRows: skipRows,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchSamples reads the raw sample rows.
func (s *Source) FetchSamples(ctx context.Context) ([]domain.RawSample, error) {
	rc, err := s.open(ctx, s.samples)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	rows, err := ReadSamples(rc, s.skipRows)
	if err != nil {
		return nil, fmt.Errorf("sample feed %s: %w", s.samples, err)
	}
	return rows, nil
}

// FetchCatalog reads the site catalog records.
func (s *Source) FetchCatalog(ctx context.Context) ([]domain.SiteRecord, error) {
	rc, err := s.open(ctx, s.catalog)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	records, err := ReadCatalog(rc)
	if err != nil {
		return nil, fmt.Errorf("catalog feed %s: %w", s.catalog, err)
	}
	return records, nil
}

func (s *Source) open(ctx context.Context, location string) (io.ReadCloser, error) {
	if !isURL(location) {
		f, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("open feed: %w", err)
		}
		return f, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", location, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch feed %s: status %d", location, resp.StatusCode)
	}
	return resp.Body, nil
}

func isURL(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}
