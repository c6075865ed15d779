// Package feed reads the sample and site catalog CSV feeds from a local file
// or an HTTP(S) URL.
package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/couchcryptid/creek-quality-service/internal/domain"
)

// ErrMissingColumn means a required header column was not found.
var ErrMissingColumn = errors.New("missing column")

var (
	dateColumns = []string{"date", "sample_date", "sampled_at", "timestamp"}
	siteColumns = []string{"site", "site_code", "code"}
	latColumns  = []string{"lat", "latitude"}
	lonColumns  = []string{"lon", "lng", "longitude"}
	nameColumns = []string{"name", "display_name", "site_name"}
)

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	return cr
}

type header map[string]int

func readHeader(cr *csv.Reader) (header, error) {
	rec, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read header: %w", io.ErrUnexpectedEOF)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	h := make(header, len(rec))
	for i, name := range rec {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := h[key]; !dup {
			h[key] = i
		}
	}
	return h, nil
}

func (h header) find(aliases []string) (int, bool) {
	for _, a := range aliases {
		if i, ok := h[a]; ok {
			return i, true
		}
	}
	return -1, false
}

func (h header) require(aliases []string) (int, error) {
	i, ok := h.find(aliases)
	if !ok {
		return -1, fmt.Errorf("%w: %s", ErrMissingColumn, aliases[0])
	}
	return i, nil
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func optionalCell(rec []string, i int) *string {
	s := cell(rec, i)
	if s == "" {
		return nil
	}
	return &s
}

// ReadSamples parses the sample feed. The first skipRows lines are metadata
// and are discarded before the header. Measurement columns are located by
// name (see domain.ParseField); missing ones leave the field nil.
func ReadSamples(r io.Reader, skipRows int) ([]domain.RawSample, error) {
	cr := newReader(r)
	for i := 0; i < skipRows; i++ {
		if _, err := cr.Read(); err != nil {
			return nil, fmt.Errorf("skip metadata row %d: %w", i+1, err)
		}
	}

	h, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	dateCol, err := h.require(dateColumns)
	if err != nil {
		return nil, err
	}
	siteCol, err := h.require(siteColumns)
	if err != nil {
		return nil, err
	}
	fieldCols := make(map[domain.Field]int, len(domain.Fields))
	for name, i := range h {
		if f, err := domain.ParseField(name); err == nil {
			if prev, seen := fieldCols[f]; !seen || i < prev {
				fieldCols[f] = i
			}
		}
	}

	var rows []domain.RawSample
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read sample row: %w", err)
		}
		if isBlank(rec) {
			continue
		}

		row := domain.RawSample{
			SiteToken: cell(rec, siteCol),
			Timestamp: cell(rec, dateCol),
		}
		for f, i := range fieldCols {
			v := optionalCell(rec, i)
			switch f {
			case domain.FieldTotalColiform:
				row.TotalColiformRaw = v
			case domain.FieldEcoli:
				row.EcoliRaw = v
			case domain.FieldPH:
				row.PHRaw = v
			case domain.FieldTurbidity:
				row.TurbidityRaw = v
			}
		}
		rows = append(rows, row)
	}
}

// ReadCatalog parses the site catalog feed: site, lat, lon and an optional
// name column.
func ReadCatalog(r io.Reader) ([]domain.SiteRecord, error) {
	cr := newReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	siteCol, err := h.require(siteColumns)
	if err != nil {
		return nil, err
	}
	latCol, err := h.require(latColumns)
	if err != nil {
		return nil, err
	}
	lonCol, err := h.require(lonColumns)
	if err != nil {
		return nil, err
	}
	nameCol, _ := h.find(nameColumns)

	var records []domain.SiteRecord
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read catalog row: %w", err)
		}
		if isBlank(rec) {
			continue
		}

		line, _ := cr.FieldPos(0)
		lat, err := strconv.ParseFloat(cell(rec, latCol), 64)
		if err != nil {
			return nil, &domain.CatalogError{Code: cell(rec, siteCol), Reason: fmt.Sprintf("line %d: invalid lat %q", line, cell(rec, latCol))}
		}
		lon, err := strconv.ParseFloat(cell(rec, lonCol), 64)
		if err != nil {
			return nil, &domain.CatalogError{Code: cell(rec, siteCol), Reason: fmt.Sprintf("line %d: invalid lon %q", line, cell(rec, lonCol))}
		}
		records = append(records, domain.SiteRecord{
			Code:        cell(rec, siteCol),
			DisplayName: cell(rec, nameCol),
			Lat:         lat,
			Lon:         lon,
		})
	}
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
