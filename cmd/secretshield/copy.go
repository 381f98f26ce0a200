package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/lyndonlyu/secretshield/internal/clipboard"
	"github.com/lyndonlyu/secretshield/internal/report"
	"github.com/lyndonlyu/secretshield/internal/shield"
	"github.com/spf13/cobra"
)

var (
	copyOpts    scrubFlags
	copyRaw     bool
	copyDiff    bool
	copyConfirm bool
	copyYes     bool
	copyStdout  bool
)

var copyCmd = &cobra.Command{
	Use:   "copy [file]",
	Short: "Copy text to the clipboard with secrets redacted",
	Long: `Copies a file, or stdin, to the system clipboard. Text without secrets is
copied as is. Otherwise the redacted text is copied, after an optional diff
and confirmation. --raw copies without scanning.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCopy,
}

func init() {
	copyOpts.register(copyCmd.Flags())
	f := copyCmd.Flags()
	f.BoolVar(&copyRaw, "raw", false, "Copy without scanning (bypass)")
	f.BoolVar(&copyDiff, "diff", false, "Show a diff before copying (overrides show_diff)")
	f.BoolVar(&copyConfirm, "confirm", false, "Ask before copying redacted text (overrides show_confirmation)")
	f.BoolVarP(&copyYes, "yes", "y", false, "Answer yes to the confirmation")
	f.BoolVar(&copyStdout, "stdout", false, "Write to stdout instead of the clipboard")
}

// streamWriter stands in for the clipboard with --stdout.
type streamWriter struct{ w io.Writer }

func (s streamWriter) WriteAll(text string) error {
	_, err := io.WriteString(s.w, text)
	return err
}

func runCopy(cmd *cobra.Command, args []string) error {
	opts, err := copyOpts.apply(cmd)
	if err != nil {
		return err
	}
	source, text, err := readInput(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	var clip clipboard.Writer = clipboard.System{}
	if copyStdout {
		clip = streamWriter{w: cmd.OutOrStdout()}
	}

	rec := openRecorders()
	defer rec.close()

	showDiff := cfg.ShowDiff
	if cmd.Flags().Changed("diff") {
		showDiff = copyDiff
	}
	showConfirm := cfg.ShowConfirmation
	if cmd.Flags().Changed("confirm") {
		showConfirm = copyConfirm
	}

	stderr := cmd.ErrOrStderr()
	svc := &shield.Service{
		Clip:             clip,
		Options:          opts,
		ShowDiff:         showDiff,
		ShowConfirmation: showConfirm,
		Timeout:          cfg.ScanTimeout,
		Presenter:        shield.DiffPresenter{Out: stderr, Color: isTerminal(stderr)},
		Recorders:        rec.list,
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if copyRaw {
		if err := svc.CopyRaw(ctx, source, text); err != nil {
			return err
		}
		if !copyStdout {
			fmt.Fprintln(stderr, styleWarn.Render("Copied without scanning."))
		}
		return nil
	}

	switch {
	case copyYes:
		svc.Confirmer = shield.AutoConfirmer(true)
	case isTerminal(os.Stdin) && len(args) > 0:
		svc.Confirmer = shield.PromptConfirmer{}
	case showConfirm:
		return errors.New("confirmation needs an interactive terminal; pass a file argument from a terminal or use --yes")
	}

	res, err := svc.Copy(ctx, source, text)
	if errors.Is(err, shield.ErrCancelled) {
		fmt.Fprintln(stderr, styleDim.Render("Cancelled. Nothing was copied."))
		return nil
	}
	if err != nil {
		return err
	}

	if !copyStdout {
		if res.Found {
			fmt.Fprintln(stderr, styleSuccess.Render(fmt.Sprintf("Copied with %d secret(s) redacted.", len(res.Redactions))))
		} else {
			fmt.Fprintln(stderr, styleSuccess.Render("Copied. No secrets detected."))
		}
	}
	if res.Found {
		fmt.Fprintln(stderr, styleDim.Render(report.Summary(res, false)))
	}
	return nil
}
