package main

import (
	"github.com/spf13/cobra"

	"github.com/couchcryptid/creek-quality-service/internal/domain"
	"github.com/couchcryptid/creek-quality-service/internal/query"
)

var (
	fieldFlag string
	weeksFlag int
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List monitoring sites",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		sites, err := state.svc.Sites()
		if err != nil {
			return err
		}
		return printJSON(sites)
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary <site>",
	Short: "Show the latest weekly readings for a site",
	Long:  `Show the latest weekly readings for a site, given by code or display name.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		report, err := state.svc.Summary(args[0])
		if err != nil {
			return err
		}
		return printJSON(report)
	},
}

var trendCmd = &cobra.Command{
	Use:   "trend <site>",
	Short: "Show how a measurement changed over recent weeks",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		field, err := domain.ParseField(fieldFlag)
		if err != nil {
			return err
		}
		trend, err := state.svc.Trend(args[0], field, weeksFlag)
		if err != nil {
			return err
		}
		return printJSON(trend)
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Rank sites by their latest value of a measurement",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		field, err := domain.ParseField(fieldFlag)
		if err != nil {
			return err
		}
		cmp, err := state.svc.Compare(field)
		if err != nil {
			return err
		}
		return printJSON(cmp)
	},
}

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Show latest readings for every site and E. coli exceedances",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ov, err := state.svc.Overview()
		if err != nil {
			return err
		}
		return printJSON(ov)
	},
}

var measurementCmd = &cobra.Command{
	Use:   "measurement <field>",
	Short: "Describe a measurement, its unit and standard",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		field, err := domain.ParseField(args[0])
		if err != nil {
			return err
		}
		info, err := state.svc.Measurement(field)
		if err != nil {
			return err
		}
		return printJSON(info)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show ingestion statistics for the current feeds",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		snap, err := state.svc.Snapshot()
		if err != nil {
			return err
		}
		return printJSON(snap.Stats)
	},
}

func init() {
	for _, c := range []*cobra.Command{trendCmd, compareCmd} {
		c.Flags().StringVarP(&fieldFlag, "field", "f", string(domain.FieldEcoli), "measurement: total_coliform, ecoli, ph or turbidity")
	}
	trendCmd.Flags().IntVarP(&weeksFlag, "weeks", "w", query.DefaultTrendWindows, "number of recent weeks")

	rootCmd.AddCommand(sitesCmd, summaryCmd, trendCmd, compareCmd, overviewCmd, measurementCmd, statsCmd)
}
