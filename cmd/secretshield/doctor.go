package main

import (
	"encoding/json"
	"fmt"

	"github.com/lyndonlyu/secretshield/internal/health"
	"github.com/spf13/cobra"
)

var doctorFormat string

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check config, audit chain, history and clipboard",
	RunE:  runDoctor,
}

func init() {
	doctorCmd.Flags().StringVar(&doctorFormat, "format", "", "Output format (json)")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}
	report := health.Evaluate(cfg)
	out := cmd.OutOrStdout()

	if doctorFormat == "json" {
		data, err := json.MarshalIndent(struct {
			Level string `json:"level"`
			*health.Report
		}{report.Level.String(), report}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	} else {
		fmt.Fprintln(out, styleBanner.Render("SecretShield Doctor"))
		fmt.Fprintln(out, "===================")
		for _, c := range report.Components {
			fmt.Fprintf(out, "%-8s %-12s %s\n", componentIcon(c), c.Name, c.Detail)
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Health: %s\n", renderLevel(report.Level))
	}

	if report.Level >= health.RED {
		return fmt.Errorf("health check failed: %s", report.Level)
	}
	return nil
}

func componentIcon(c health.ComponentStatus) string {
	switch {
	case c.Healthy:
		return styleSuccess.Render("[OK]")
	case c.Category == health.Optional:
		return styleDim.Render("[SKIP]")
	case c.Category == health.Important:
		return styleWarn.Render("[WARN]")
	default:
		return styleError.Render("[FAIL]")
	}
}

func renderLevel(l health.Level) string {
	switch l {
	case health.GREEN:
		return styleSuccess.Render(l.String())
	case health.YELLOW:
		return styleWarn.Render(l.String())
	default:
		return styleError.Render(l.String())
	}
}
