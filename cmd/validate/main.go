// Command validate checks a pair of feeds before they are published: it loads
// the catalog, ingests every sample row and reports what was accepted,
// dropped or ambiguous, plus the weekly coverage of each site.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -samples "data/Updated results.csv" \
//	  -sites data/Site_loc.csv \
//	  -max-dropped 0.05
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/creek-quality-service/internal/adapter/feed"
	"github.com/couchcryptid/creek-quality-service/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	samples := flag.String("samples", "data/Updated results.csv", "sample feed path or URL")
	sites := flag.String("sites", "data/Site_loc.csv", "site catalog path or URL")
	skipRows := flag.Int("skip-rows", 2, "metadata rows before the sample header")
	maxDropped := flag.Float64("max-dropped", 0.1, "fail when more than this fraction of rows is dropped")
	verbose := flag.Bool("v", false, "log every dropped or ambiguous row")
	flag.Parse()

	level := slog.LevelError
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	src := feed.NewSource(*samples, *sites, *skipRows, 30*time.Second)
	os.Exit(run(context.Background(), os.Stdout, src, *maxDropped, logger))
}

func run(ctx context.Context, out io.Writer, src *feed.Source, maxDropped float64, logger *slog.Logger) int {
	// Fixed clock so repeated runs print identical reports.
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	catalogPhase := &phase{name: "catalog"}
	records, err := src.FetchCatalog(ctx)
	if err != nil {
		catalogPhase.errorf("read: %v", err)
		return report(out, catalogPhase)
	}
	catalog, err := domain.NewCatalog(records)
	if err != nil {
		catalogPhase.errorf("load: %v", err)
		return report(out, catalogPhase)
	}

	ingestPhase := &phase{name: "ingest"}
	rows, err := src.FetchSamples(ctx)
	if err != nil {
		ingestPhase.errorf("read: %v", err)
		return report(out, catalogPhase, ingestPhase)
	}
	snap := domain.BuildSnapshot(catalog, rows, domain.SnapshotOptions{Anchor: domain.DefaultWeekAnchor(), Logger: logger})
	stats := snap.Stats

	if stats.Rows == 0 {
		ingestPhase.errorf("sample feed has no rows")
	} else if frac := float64(stats.Dropped()) / float64(stats.Rows); frac > maxDropped {
		ingestPhase.errorf("%.1f%% of rows dropped (limit %.1f%%)", frac*100, maxDropped*100)
	}

	coveragePhase := &phase{name: "coverage"}
	for _, s := range snap.Summaries {
		if s.Latest == nil {
			coveragePhase.errorf("site %s has no samples", s.Site.Code)
		}
	}

	fmt.Fprintf(out, "rows=%d accepted=%d unmatched=%d bad_timestamp=%d ambiguous=%d null_fields=%d\n\n",
		stats.Rows, stats.Accepted, stats.Unmatched, stats.BadTimestamp, stats.Ambiguous, stats.NullFields)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SITE\tWEEKS\tFIRST\tLATEST")
	for _, s := range catalog.All() {
		series := snap.Series(s.Code)
		if len(series) == 0 {
			fmt.Fprintf(tw, "%s\t0\t-\t-\n", s.Code)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", s.Code, len(series),
			series[0].WeekStart.Format(time.DateOnly), series[len(series)-1].WeekStart.Format(time.DateOnly))
	}
	tw.Flush()
	fmt.Fprintln(out)

	return report(out, catalogPhase, ingestPhase, coveragePhase)
}

func report(out io.Writer, phases ...*phase) int {
	code := 0
	for _, p := range phases {
		if p.passed() {
			fmt.Fprintf(out, "PASS %s\n", p.name)
			continue
		}
		code = 1
		fmt.Fprintf(out, "FAIL %s\n", p.name)
		for _, e := range p.errors {
			fmt.Fprintf(out, "  - %s\n", e)
		}
	}
	return code
}
