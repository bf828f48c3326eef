package cli

import (
	"io"

	"github.com/spf13/cobra"
)

func statsCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show document and queue counts with recent activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(a *app) error {
				s, err := a.api.Dashboard.Stats(cmd.Context())
				if err != nil {
					return err
				}
				return printOut(cmd.OutOrStdout(), g.format, s, func(w io.Writer) { printStats(w, s) })
			})
		},
	}
}

func metricsCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Show processing time, accuracy, error and volume metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(a *app) error {
				m, err := a.api.Dashboard.ProcessingMetrics(cmd.Context())
				if err != nil {
					return err
				}
				return printOut(cmd.OutOrStdout(), g.format, m, func(w io.Writer) { printMetrics(w, m) })
			})
		},
	}
}
