// Package postgres reads the sample and catalog feeds from PostgreSQL tables.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/couchcryptid/creek-quality-service/internal/domain"
)

const (
	DefaultSamplesTable = "creek_samples"
	DefaultSitesTable   = "creek_sites"
)

// Source implements the feed interfaces on top of two tables. Measurement
// columns are text so censored values such as ">2419.6" survive unchanged.
type Source struct {
	db           *sql.DB
	samplesTable string
	sitesTable   string
}

// Open connects to databaseURL and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	return db, nil
}

// NewSource creates a Source using the default table names.
func NewSource(db *sql.DB) *Source {
	return &Source{db: db, samplesTable: DefaultSamplesTable, sitesTable: DefaultSitesTable}
}

// EnsureSchema creates both tables if they do not exist. Sites carry a
// position assigned on first insert; it defines catalog order and is never
// changed by later upserts.
func (s *Source) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	position BIGSERIAL NOT NULL,
	site TEXT PRIMARY KEY,
	lat DOUBLE PRECISION NOT NULL,
	lon DOUBLE PRECISION NOT NULL,
	name TEXT
)`, pq.QuoteIdentifier(s.sitesTable)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	sample_date TEXT,
	site TEXT,
	tot_coli_conc TEXT,
	ecoli_conc TEXT,
	ph TEXT,
	turbidity TEXT
)`, pq.QuoteIdentifier(s.samplesTable)),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// FetchSamples reads every sample row in insertion order.
func (s *Source) FetchSamples(ctx context.Context) ([]domain.RawSample, error) {
	q := fmt.Sprintf(`SELECT sample_date, site, tot_coli_conc, ecoli_conc, ph, turbidity FROM %s ORDER BY id`,
		pq.QuoteIdentifier(s.samplesTable))
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []domain.RawSample
	for rows.Next() {
		var date, site, totColi, ecoli, ph, turbidity sql.NullString
		if err := rows.Scan(&date, &site, &totColi, &ecoli, &ph, &turbidity); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		out = append(out, domain.RawSample{
			SiteToken:        site.String,
			Timestamp:        date.String,
			TotalColiformRaw: nullable(totColi),
			EcoliRaw:         nullable(ecoli),
			PHRaw:            nullable(ph),
			TurbidityRaw:     nullable(turbidity),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return out, nil
}

// FetchCatalog reads the site table in first-insert order.
func (s *Source) FetchCatalog(ctx context.Context) ([]domain.SiteRecord, error) {
	q := fmt.Sprintf(`SELECT site, lat, lon, name FROM %s ORDER BY position, site`, pq.QuoteIdentifier(s.sitesTable))
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query sites: %w", err)
	}
	defer rows.Close()

	var out []domain.SiteRecord
	for rows.Next() {
		var (
			rec  domain.SiteRecord
			name sql.NullString
		)
		if err := rows.Scan(&rec.Code, &rec.Lat, &rec.Lon, &name); err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		rec.DisplayName = name.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sites: %w", err)
	}
	return out, nil
}

// InsertSites upserts catalog records in one transaction. Existing sites keep
// their position.
func (s *Source) InsertSites(ctx context.Context, records []domain.SiteRecord) error {
	q := fmt.Sprintf(`INSERT INTO %s (site, lat, lon, name) VALUES ($1, $2, $3, $4)
ON CONFLICT (site) DO UPDATE SET lat = EXCLUDED.lat, lon = EXCLUDED.lon, name = EXCLUDED.name`,
		pq.QuoteIdentifier(s.sitesTable))
	return s.insert(ctx, q, len(records), func(stmt *sql.Stmt, i int) error {
		r := records[i]
		_, err := stmt.ExecContext(ctx, r.Code, r.Lat, r.Lon, sql.NullString{String: r.DisplayName, Valid: r.DisplayName != ""})
		return err
	})
}

// InsertSamples appends raw sample rows in one transaction.
func (s *Source) InsertSamples(ctx context.Context, samples []domain.RawSample) error {
	q := fmt.Sprintf(`INSERT INTO %s (sample_date, site, tot_coli_conc, ecoli_conc, ph, turbidity) VALUES ($1, $2, $3, $4, $5, $6)`,
		pq.QuoteIdentifier(s.samplesTable))
	return s.insert(ctx, q, len(samples), func(stmt *sql.Stmt, i int) error {
		r := samples[i]
		_, err := stmt.ExecContext(ctx, r.Timestamp, r.SiteToken,
			nullString(r.TotalColiformRaw), nullString(r.EcoliRaw), nullString(r.PHRaw), nullString(r.TurbidityRaw))
		return err
	})
}

func (s *Source) insert(ctx context.Context, query string, n int, exec func(*sql.Stmt, int) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if err := exec(stmt, i); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid || s.String == "" {
		return nil
	}
	v := s.String
	return &v
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}
