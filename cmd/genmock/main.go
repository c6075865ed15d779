// Command genmock writes deterministic mock sample and site feeds for local
// runs and tests, and can load the same data into Postgres.
//
// Usage:
//
//	go run ./cmd/genmock -out-dir data/mock -weeks 12
//	go run ./cmd/genmock -database-url postgres://localhost/creek?sslmode=disable
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/creek-quality-service/internal/adapter/postgres"
	"github.com/couchcryptid/creek-quality-service/internal/domain"
)

// censorBound is the upper detection limit of the Colilert method.
const censorBound = 2419.6

var sites = []domain.SiteRecord{
	{Code: "peav@oldb", DisplayName: "Peavine creek/Old briarcliff way", Lat: 33.7901, Lon: -84.3250},
	{Code: "peav@ndec", DisplayName: "Peavine creek/Oxford Rd NE", Lat: 33.7921, Lon: -84.3229},
	{Code: "peav@vick", DisplayName: "Peavine creek/Chelsea Cir NE", Lat: 33.7862, Lon: -84.3301},
	{Code: "lull@lull", DisplayName: "Lullwater creek/Lullwater Rd NE", Lat: 33.7950, Lon: -84.3190},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "data/mock", "directory for the generated CSV feeds")
	weeks := flag.Int("weeks", 12, "number of weekly sampling rounds")
	start := flag.String("start", "2024-04-01", "date of the first sampling round")
	seed := flag.Uint64("seed", 1, "random seed")
	databaseURL := flag.String("database-url", "", "also load the data into this Postgres database")
	flag.Parse()

	first, err := time.Parse(time.DateOnly, *start)
	if err != nil {
		return fmt.Errorf("parse -start: %w", err)
	}
	if *weeks < 1 {
		return fmt.Errorf("-weeks must be positive")
	}

	samples := generate(rand.New(rand.NewPCG(*seed, *seed)), first, *weeks)
	log.Printf("generated %d sample rows for %d sites", len(samples), len(sites))

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}
	samplesPath := filepath.Join(*outDir, "Updated results.csv")
	if err := writeSamples(samplesPath, samples); err != nil {
		return fmt.Errorf("writing samples: %w", err)
	}
	log.Printf("wrote %s", samplesPath)

	sitesPath := filepath.Join(*outDir, "Site_loc.csv")
	if err := writeSites(sitesPath); err != nil {
		return fmt.Errorf("writing sites: %w", err)
	}
	log.Printf("wrote %s", sitesPath)

	if *databaseURL != "" {
		if err := load(*databaseURL, samples); err != nil {
			return fmt.Errorf("loading database: %w", err)
		}
		log.Printf("loaded %d sites and %d samples into postgres", len(sites), len(samples))
	}
	return nil
}

// generate produces one row per site per week with the quirks of the real
// spreadsheet: censored coliform counts, blank cells, labels with extra
// text and a few rows that match no site.
func generate(rng *rand.Rand, first time.Time, weeks int) []domain.RawSample {
	var out []domain.RawSample
	for w := range weeks {
		day := first.AddDate(0, 0, 7*w+rng.IntN(3))
		date := fmt.Sprintf("%d/%d/%d", int(day.Month()), day.Day(), day.Year())

		for i, s := range sites {
			ecoli := math.Round(math.Exp(4+rng.NormFloat64()*1.2+float64(i)*0.3)*10) / 10
			totColi := math.Min(ecoli*(3+rng.Float64()*10), censorBound)

			label := strings.ToUpper(s.Code)
			if rng.IntN(5) == 0 {
				label = s.Code + " - upstream"
			}

			row := domain.RawSample{
				SiteToken:        label,
				Timestamp:        date,
				TotalColiformRaw: cell(totColi, totColi >= censorBound),
				EcoliRaw:         cell(ecoli, false),
				PHRaw:            cell(math.Round((7+rng.NormFloat64()*0.4)*10)/10, false),
				TurbidityRaw:     cell(math.Round(math.Abs(5+rng.NormFloat64()*4)*10)/10, false),
			}
			if rng.IntN(8) == 0 {
				row.PHRaw = nil
			}
			out = append(out, row)
		}

		if w%4 == 3 {
			out = append(out, domain.RawSample{SiteToken: "field blank", Timestamp: date, EcoliRaw: cell(0, false)})
		}
	}
	return out
}

func cell(v float64, censored bool) *string {
	s := domain.FormatValue(v)
	if censored {
		s = ">" + s
	}
	return &s
}

func writeSamples(path string, samples []domain.RawSample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	// Two metadata rows precede the header, as in the published sheet.
	records := [][]string{
		{"Creek water quality monitoring (mock)", "", "", "", "", ""},
		{"Generated " + time.Now().UTC().Format(time.DateOnly), "", "", "", "", ""},
		{"Date", "site", "tot_coli_conc", "ecoli_conc", "ph", "tubidity"},
	}
	for _, s := range samples {
		records = append(records, []string{
			s.Timestamp, s.SiteToken,
			deref(s.TotalColiformRaw), deref(s.EcoliRaw), deref(s.PHRaw), deref(s.TurbidityRaw),
		})
	}
	if err := w.WriteAll(records); err != nil {
		return err
	}
	return f.Close()
}

func writeSites(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	records := [][]string{{"site", "lat", "lon", "name"}}
	for _, s := range sites {
		records = append(records, []string{
			s.Code,
			strconv.FormatFloat(s.Lat, 'f', -1, 64),
			strconv.FormatFloat(s.Lon, 'f', -1, 64),
			s.DisplayName,
		})
	}
	if err := w.WriteAll(records); err != nil {
		return err
	}
	return f.Close()
}

func load(databaseURL string, samples []domain.RawSample) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := postgres.Open(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	src := postgres.NewSource(db)
	if err := src.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := src.InsertSites(ctx, sites); err != nil {
		return err
	}
	return src.InsertSamples(ctx, samples)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
