package main

import (
	"context"
	"fmt"
	"time"

	"github.com/lyndonlyu/secretshield/internal/audit"
	"github.com/lyndonlyu/secretshield/internal/report"
	"github.com/lyndonlyu/secretshield/internal/scrub"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	scrubOpts    scrubFlags
	scrubFormat  string
	scrubSummary bool
	scrubReveal  bool
)

var scrubCmd = &cobra.Command{
	Use:   "scrub [file]",
	Short: "Print text with secrets redacted",
	Long:  "Reads a file, or stdin when no file is given, and prints it with every detected secret replaced.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScrub,
}

func init() {
	scrubOpts.register(scrubCmd.Flags())
	scrubCmd.Flags().StringVarP(&scrubFormat, "format", "f", "text", "Output format: text, json, markdown")
	scrubCmd.Flags().BoolVar(&scrubSummary, "summary", false, "Also print a summary of redactions to stderr")
	scrubCmd.Flags().BoolVar(&scrubReveal, "reveal", false, "Show original secret values in summaries and JSON")
}

func runScrub(cmd *cobra.Command, args []string) error {
	opts, err := scrubOpts.apply(cmd)
	if err != nil {
		return err
	}
	source, text, err := readInput(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.ScanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ScanTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := scrub.ScrubContext(ctx, text, opts)
	if err != nil {
		return err
	}
	log.Debug().Str("source", source).Int("redactions", len(res.Redactions)).Dur("took", time.Since(start)).Msg("scrubbed")

	rec := openRecorders()
	defer rec.close()
	rec.record(context.Background(), audit.ActionScrub, source, outcomeOf(res), res, opts, time.Since(start))

	out := cmd.OutOrStdout()
	switch scrubFormat {
	case "json":
		js, err := report.JSON(res, scrubReveal)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, js)
	case "markdown", "md":
		md := report.Markdown(res, scrubReveal)
		if isTerminal(out) {
			md = report.RenderMarkdown(md, 100)
		}
		fmt.Fprintln(out, md)
	case "text", "":
		fmt.Fprint(out, res.Scrubbed)
	default:
		return fmt.Errorf("unknown format %q (want text, json or markdown)", scrubFormat)
	}

	if scrubSummary {
		fmt.Fprintln(cmd.ErrOrStderr(), report.Summary(res, scrubReveal))
	}
	return nil
}
