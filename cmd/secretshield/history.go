package main

import (
	"fmt"

	"github.com/lyndonlyu/secretshield/internal/statedb"
	"github.com/spf13/cobra"
)

var (
	historyLimit  int
	historyFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent scrubs and copies",
	RunE:  showHistory,
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show redaction totals by secret type",
	RunE:  showHistoryStats,
}

func init() {
	historyCmd.PersistentFlags().StringVar(&historyFormat, "format", "", "Output format (json)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show")
	historyCmd.AddCommand(historyStatsCmd)
}

func openHistory() (*statedb.DB, error) {
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}
	return statedb.Open(cfg.HistoryPath())
}

func showHistory(cmd *cobra.Command, args []string) error {
	db, err := openHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := db.ListScrubs(historyLimit)
	if err != nil {
		return err
	}

	if historyFormat == "json" {
		out, err := statedb.FormatScrubListJSON(records)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), statedb.FormatScrubList(records))
	return nil
}

func showHistoryStats(cmd *cobra.Command, args []string) error {
	db, err := openHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	s, err := db.Stats()
	if err != nil {
		return err
	}

	if historyFormat == "json" {
		out, err := statedb.FormatStatsJSON(s)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), statedb.FormatStats(db.Path(), s))

	state, err := db.ListState()
	if err != nil {
		return err
	}
	if len(state) > 0 {
		fmt.Fprintln(cmd.OutOrStdout())
		for _, e := range state {
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", e.Key, e.Value)
		}
	}
	return nil
}
