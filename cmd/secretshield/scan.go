package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lyndonlyu/secretshield/internal/audit"
	"github.com/lyndonlyu/secretshield/internal/report"
	"github.com/lyndonlyu/secretshield/internal/scrub"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/wandb/parallel"
)

var (
	scanOpts    scrubFlags
	scanFormat  string
	scanFail    bool
	scanWorkers int
)

var scanCmd = &cobra.Command{
	Use:   "scan [files...]",
	Short: "Report secrets without changing anything",
	Long:  "Scans files, or stdin when none are given, and lists every secret the allow and deny lists would redact.",
	RunE:  runScan,
}

func init() {
	scanOpts.register(scanCmd.Flags())
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "text", "Output format: text, json")
	scanCmd.Flags().BoolVar(&scanFail, "fail", false, "Exit with status 1 when any secret is found")
	scanCmd.Flags().IntVarP(&scanWorkers, "workers", "w", 4, "Files scanned in parallel")
}

type scanResult struct {
	source   string
	findings []report.Finding
	found    int
	err      error
}

func runScan(cmd *cobra.Command, args []string) error {
	opts, err := scanOpts.apply(cmd)
	if err != nil {
		return err
	}
	if scanFormat != "text" && scanFormat != "json" {
		return fmt.Errorf("unknown format %q (want text or json)", scanFormat)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var results []scanResult
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		source, text, err := readInput(nil, cmd.InOrStdin())
		if err != nil {
			return err
		}
		results = []scanResult{scanText(ctx, source, text, opts)}
	} else {
		results = scanFiles(ctx, args, opts, max(scanWorkers, 1))
	}

	rec := openRecorders()
	defer rec.close()

	var all []report.Finding
	total := 0
	for _, r := range results {
		if r.err != nil {
			log.Error().Err(r.err).Str("source", r.source).Msg("scan failed")
			continue
		}
		all = append(all, r.findings...)
		total += r.found
		outcome := audit.OutcomeClean
		if r.found > 0 {
			outcome = audit.OutcomeRedacted
		}
		res := scrub.Result{Redactions: findingsAsRedactions(r.findings), Found: r.found > 0}
		rec.record(context.Background(), audit.ActionScan, r.source, outcome, res, opts, 0)
	}

	out := cmd.OutOrStdout()
	if scanFormat == "json" {
		js, err := report.FormatFindingsJSON(all)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, js)
	} else {
		fmt.Fprint(out, report.FormatFindings(all))
		if total > 0 {
			fmt.Fprintln(out, styleWarn.Render(fmt.Sprintf("%d secret(s) in %d input(s)", total, len(results))))
		}
	}

	for _, r := range results {
		if r.err != nil {
			return fmt.Errorf("scan %s: %w", r.source, r.err)
		}
	}
	if scanFail && total > 0 {
		return errSecretsFound
	}
	return nil
}

// scanFiles scans each path on a bounded pool of goroutines. Results keep
// the order of paths.
func scanFiles(ctx context.Context, paths []string, opts scrub.Options, workers int) []scanResult {
	results := make([]scanResult, len(paths))
	group := parallel.Limited(ctx, workers)
	for i, path := range paths {
		group.Go(func(ctx context.Context) {
			data, err := os.ReadFile(path)
			if err != nil {
				results[i] = scanResult{source: path, err: err}
				return
			}
			results[i] = scanText(ctx, path, string(data), opts)
		})
	}
	group.Wait()
	return results
}

func scanText(ctx context.Context, source, text string, opts scrub.Options) scanResult {
	start := time.Now()
	if cfg.ScanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ScanTimeout)
		defer cancel()
	}

	type planned struct {
		findings []report.Finding
		err      error
	}
	done := make(chan planned, 1)
	go func() {
		found, err := scrub.Plan(text, opts)
		done <- planned{report.Findings(source, text, found), err}
	}()

	select {
	case <-ctx.Done():
		return scanResult{source: source, err: ctx.Err()}
	case p := <-done:
		if p.err != nil {
			return scanResult{source: source, err: p.err}
		}
		log.Debug().Str("source", source).Int("found", len(p.findings)).Dur("took", time.Since(start)).Msg("scanned")
		return scanResult{source: source, findings: p.findings, found: len(p.findings)}
	}
}

func findingsAsRedactions(fs []report.Finding) []scrub.Redaction {
	out := make([]scrub.Redaction, 0, len(fs))
	for _, f := range fs {
		out = append(out, scrub.Redaction{Type: f.Type, Start: f.Start, End: f.End})
	}
	return out
}
