package main

import (
	"fmt"
	"time"

	"github.com/lyndonlyu/secretshield/internal/audit"
	"github.com/lyndonlyu/secretshield/internal/gc"
	"github.com/spf13/cobra"
)

var (
	gcDryRun      bool
	gcHistoryDays int
	gcAuditDays   int
)

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Delete history and audit logs past their retention",
	RunE:  runGC,
}

func init() {
	gcCmd.Flags().BoolVar(&gcDryRun, "dry-run", false, "Report what would be removed without deleting")
	gcCmd.Flags().IntVar(&gcHistoryDays, "history-days", 0, "Keep history for N days (default from config, 0 in config keeps all)")
	gcCmd.Flags().IntVar(&gcAuditDays, "audit-days", 0, "Keep audit logs for N days (default from config, 0 in config keeps all)")
}

func runGC(cmd *cobra.Command, args []string) error {
	policy := gc.Policy{
		MaxHistoryDays: cfg.HistoryRetentionDays,
		MaxAuditDays:   cfg.AuditRetentionDays,
		DryRun:         gcDryRun,
	}
	if cmd.Flags().Changed("history-days") {
		policy.MaxHistoryDays = gcHistoryDays
	}
	if cmd.Flags().Changed("audit-days") {
		policy.MaxAuditDays = gcAuditDays
	}

	db, err := openHistory()
	if err != nil {
		return err
	}
	defer db.Close()
	logger, err := audit.NewLogger(cfg.AuditDir())
	if err != nil {
		return fmt.Errorf("audit error: %w", err)
	}

	result, err := gc.Run(db, logger, policy, time.Now())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	verb := "Removed"
	if gcDryRun {
		verb = "Would remove"
	}
	fmt.Fprintf(out, "%s %d history record(s), %d audit file(s) with %d record(s) (%d bytes).\n",
		verb, result.HistoryRemoved, result.AuditFilesRemoved, result.AuditRecords, result.BytesFreed)
	return nil
}
