package main

import (
	"fmt"

	"github.com/lyndonlyu/secretshield/internal/metrics"
	"github.com/spf13/cobra"
)

var metricsFormat string

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show usage and health metrics",
	Long:  "Collect and display counters from the scrub history, the audit log and the health checks.",
	RunE:  showMetrics,
}

func init() {
	metricsCmd.Flags().StringVar(&metricsFormat, "format", "human", "Output format: human or jsonl")
}

func showMetrics(cmd *cobra.Command, args []string) error {
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}
	collected, err := metrics.NewCollector(cfg).Collect()
	if err != nil {
		return fmt.Errorf("metrics collection failed: %w", err)
	}

	out := cmd.OutOrStdout()
	switch metricsFormat {
	case "jsonl":
		output, fmtErr := metrics.FormatJSONL(collected)
		if fmtErr != nil {
			return fmt.Errorf("format error: %w", fmtErr)
		}
		fmt.Fprint(out, output)
	case "human":
		fmt.Fprint(out, metrics.FormatHuman(collected))
	default:
		return fmt.Errorf("unknown format %q (want human or jsonl)", metricsFormat)
	}
	return nil
}
