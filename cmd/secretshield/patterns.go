package main

import (
	"fmt"

	"github.com/lyndonlyu/secretshield/internal/secret"
	"github.com/spf13/cobra"
)

var patternsSensitivity string

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List the detection patterns active at a sensitivity",
	Long:  "List the detection patterns active at a sensitivity. With --verbose each pattern's regular expression is printed below it.",
	RunE: func(cmd *cobra.Command, args []string) error {
		level := cfg.Sensitivity
		if cmd.Flags().Changed("sensitivity") {
			level = patternsSensitivity
		}
		s, err := secret.ParseSensitivity(level)
		if err != nil {
			return err
		}
		var patterns []secret.Pattern
		if s == secret.Strict {
			patterns = secret.Catalog()
		} else if patterns, err = secret.PatternsFor(s); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n\n", styleBanner.Render("Sensitivity:"), s)
		fmt.Fprintf(out, "%-18s %-5s %s\n", "TYPE", "CONF", "DESCRIPTION")
		for _, p := range patterns {
			fmt.Fprintf(out, "%-18s %s %s\n", p.Type, renderConfidence(p.Confidence), p.Description)
			if verbose {
				fmt.Fprintf(out, "%-18s %s\n", "", styleDim.Render(p.Expr()))
			}
		}
		fmt.Fprintf(out, "\n%d pattern(s)\n", len(patterns))
		return nil
	},
}

func init() {
	patternsCmd.Flags().StringVar(&patternsSensitivity, "sensitivity", "", "strict, balanced or lenient (default from config)")
}
