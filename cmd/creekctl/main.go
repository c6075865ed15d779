// Command creekctl answers water-quality questions from the command line.
// It builds a snapshot from the configured feeds on every invocation, so it
// needs no running creekd.
//
// Usage:
//
//	creekctl sites
//	creekctl summary peav@oldb
//	creekctl trend "Peavine creek/Old briarcliff way" --field ph --weeks 6
//	creekctl compare --field ecoli
//	creekctl nearest "1600 Clifton Rd, Atlanta"
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/creek-quality-service/internal/app"
	"github.com/couchcryptid/creek-quality-service/internal/config"
	"github.com/couchcryptid/creek-quality-service/internal/observability"
	"github.com/couchcryptid/creek-quality-service/internal/pipeline"
	"github.com/couchcryptid/creek-quality-service/internal/query"
)

// env is populated by the root command before any subcommand runs.
type env struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	svc     *query.Service
	out     io.Writer
}

var state env

var rootCmd = &cobra.Command{
	Use:   "creekctl",
	Short: "Query creek water-quality data",
	Long: `creekctl loads the sample and site feeds configured through the environment
(or a .env file), aggregates them into weekly buckets and answers queries.`,
	SilenceUsage:      true,
	PersistentPreRunE: load,
}

var verbose bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log ingestion details to stderr")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// load builds a snapshot once for the invoked subcommand.
func load(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: observability.ParseLevel(level)}))
	metrics := observability.NewMetrics()

	ctx := cmd.Context()
	source, closeSource, err := app.OpenSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSource() //nolint:errcheck // read-only

	svc := query.NewService(cfg.Thresholds)
	refresher := pipeline.New(source, source, svc, nil, pipeline.Options{Anchor: cfg.WeekAnchor}, logger, metrics)
	if _, err := refresher.Refresh(ctx); err != nil {
		return fmt.Errorf("build snapshot: %w", err)
	}

	state = env{cfg: cfg, logger: logger, metrics: metrics, svc: svc, out: cmd.OutOrStdout()}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(state.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
