package main

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/creek-quality-service/internal/app"
	"github.com/couchcryptid/creek-quality-service/internal/nearest"
)

var nearestTimeout time.Duration

var nearestCmd = &cobra.Command{
	Use:   "nearest <origin>",
	Short: "Find the monitoring site closest to an address or \"lat,lon\"",
	Long: `Find the monitoring site with the shortest walking route from an origin.
With MAPBOX_ENABLED unset the origin must be "lat,lon" and straight-line
distance is used.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		router := app.NewRouter(state.cfg, state.metrics, state.logger)
		finder := nearest.NewFinder(router, state.svc, app.NearestOptions(state.cfg), state.logger, state.metrics)

		ctx, cancel := context.WithTimeout(cmd.Context(), nearestTimeout)
		defer cancel()

		res, err := finder.Nearest(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

func init() {
	nearestCmd.Flags().DurationVar(&nearestTimeout, "timeout", 30*time.Second, "overall deadline")
	rootCmd.AddCommand(nearestCmd)
}
