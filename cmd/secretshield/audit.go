package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lyndonlyu/secretshield/internal/audit"
	"github.com/spf13/cobra"
)

var (
	auditCount  int
	auditFormat string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the tamper-evident audit log",
}

var auditRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show the newest audit records",
	RunE:  runAuditRecent,
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the hash chain and daily anchors",
	RunE:  runAuditVerify,
}

func init() {
	auditRecentCmd.Flags().IntVarP(&auditCount, "count", "n", 10, "Number of records to show")
	auditRecentCmd.Flags().StringVar(&auditFormat, "format", "", "Output format (json)")
	auditCmd.AddCommand(auditRecentCmd, auditVerifyCmd)
}

func runAuditRecent(cmd *cobra.Command, args []string) error {
	logger, err := audit.NewLogger(cfg.AuditDir())
	if err != nil {
		return fmt.Errorf("audit error: %w", err)
	}

	records, err := logger.Recent(auditCount)
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	out := cmd.OutOrStdout()
	if auditFormat == "json" {
		if records == nil {
			records = []audit.Record{}
		}
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if len(records) == 0 {
		fmt.Fprintln(out, "No audit records yet.")
		return nil
	}
	for _, r := range records {
		icon := "[OK]"
		switch r.Outcome {
		case audit.OutcomeFailed:
			icon = "[FAIL]"
		case audit.OutcomeCancelled:
			icon = "[CANCELLED]"
		case audit.OutcomeBypassed:
			icon = "[BYPASS]"
		case audit.OutcomeRedacted:
			icon = "[REDACTED]"
		}
		ts := r.Timestamp
		if len(ts) > 19 {
			ts = ts[:19]
		}
		line := fmt.Sprintf("%s %s %s %s", icon, ts, r.Action, r.Source)
		if r.Redactions > 0 {
			line += fmt.Sprintf(" (%d: %s)", r.Redactions, strings.Join(r.Types, ", "))
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	logger, err := audit.NewLogger(cfg.AuditDir())
	if err != nil {
		return fmt.Errorf("audit error: %w", err)
	}
	out := cmd.OutOrStdout()

	ok, idx, err := logger.Verify()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(out, styleError.Render(fmt.Sprintf("Audit chain broken at record %d.", idx)))
		return fmt.Errorf("audit chain verification failed")
	}
	fmt.Fprintln(out, styleSuccess.Render("Audit chain intact."))

	results, err := audit.VerifyAnchors(logger)
	if err != nil {
		return err
	}
	bad := 0
	for _, r := range results {
		if !r.OK {
			bad++
			fmt.Fprintln(out, styleError.Render(fmt.Sprintf("Anchor %s: %s", r.Date, r.Message)))
		}
	}
	if bad > 0 {
		return fmt.Errorf("%d anchor(s) failed verification", bad)
	}
	fmt.Fprintf(out, "%d anchor(s) verified.\n", len(results))
	return nil
}
