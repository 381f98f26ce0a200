package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/lyndonlyu/secretshield/internal/audit"
	"github.com/lyndonlyu/secretshield/internal/clipboard"
	"github.com/lyndonlyu/secretshield/internal/filelock"
	"github.com/lyndonlyu/secretshield/internal/killswitch"
	"github.com/lyndonlyu/secretshield/internal/scrub"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	guardOpts     scrubFlags
	guardInterval time.Duration
)

var guardCmd = &cobra.Command{
	Use:   "guard",
	Short: "Watch the clipboard and redact secrets copied by any program",
	Long: `Polls the system clipboard and replaces any content that contains secrets
with its redacted form. Requires intercept_all_copy to be enabled. Stops on
Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runGuard,
}

var guardPauseCmd = &cobra.Command{
	Use:   "pause [reason]",
	Short: "Let the next copies through unredacted until resume",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason := "paused"
		if len(args) == 1 {
			reason = args[0]
		}
		if err := killswitch.Pause(cfg.BaseDir).Activate(reason); err != nil {
			return err
		}
		rec := openRecorders()
		defer rec.close()
		if rec.logger != nil {
			if err := rec.logger.Log(audit.Entry{Action: audit.ActionGuard, Source: reason, Outcome: audit.OutcomeBypassed}); err != nil {
				log.Warn().Err(err).Msg("audit guard pause")
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), styleWarn.Render("Guard paused.")+" Run 'secretshield guard resume' when done.")
		return nil
	},
}

var guardResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume redacting after a pause",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := killswitch.Pause(cfg.BaseDir).Clear(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), styleSuccess.Render("Guard resumed."))
		return nil
	},
}

var guardStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running guard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lockPath := filepath.Join(cfg.BaseDir, "guard.lock")
		if lock, err := filelock.TryAcquire(lockPath); err == nil {
			lock.Release()
			fmt.Fprintln(cmd.OutOrStdout(), "No guard is running.")
			return nil
		}
		if err := killswitch.Stop(cfg.BaseDir).Activate("stop requested"); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Stop requested.")
		return nil
	},
}

func init() {
	guardOpts.register(guardCmd.Flags())
	guardCmd.Flags().DurationVar(&guardInterval, "interval", 0, "Poll interval (default from config)")
	guardCmd.AddCommand(guardPauseCmd, guardResumeCmd, guardStopCmd)
}

func runGuard(cmd *cobra.Command, args []string) error {
	if !cfg.InterceptAllCopy {
		return errors.New("intercept_all_copy is disabled in the config; enable it to run the guard")
	}
	opts, err := guardOpts.apply(cmd)
	if err != nil {
		return err
	}
	interval := cfg.GuardInterval
	if guardInterval > 0 {
		interval = guardInterval
	}

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}
	lock, err := filelock.TryAcquire(filepath.Join(cfg.BaseDir, "guard.lock"))
	if errors.Is(err, filelock.ErrLocked) {
		return fmt.Errorf("another guard is already running: %w", err)
	}
	if err != nil {
		return err
	}
	defer lock.Release()

	stopSwitch := killswitch.Stop(cfg.BaseDir)
	if err := stopSwitch.Clear(); err != nil {
		return err
	}
	pauseSwitch := killswitch.Pause(cfg.BaseDir)

	rec := openRecorders()
	defer rec.close()

	rewrites := 0
	if rec.db != nil {
		if e, err := rec.db.GetState("guard.rewrites"); err == nil {
			rewrites, _ = strconv.Atoi(e.Value)
		}
		if err := rec.db.SetState("guard.started_at", time.Now().UTC().Format(time.RFC3339)); err != nil {
			log.Debug().Err(err).Msg("guard state")
		}
	}

	g := &clipboard.Guard{
		Clip:     clipboard.System{},
		Options:  opts,
		Interval: interval,
		Timeout:  cfg.ScanTimeout,
		Paused:   pauseSwitch.IsActive,
		OnRewrite: func(res scrub.Result) {
			rewrites++
			rec.record(context.Background(), audit.ActionGuard, "clipboard", audit.OutcomeRedacted, res, opts, 0)
			if rec.db != nil {
				if err := rec.db.SetState("guard.rewrites", strconv.Itoa(rewrites)); err != nil {
					log.Debug().Err(err).Msg("guard state")
				}
			}
			fmt.Fprintln(cmd.ErrOrStderr(), styleWarn.Render(fmt.Sprintf("Redacted %d secret(s) on the clipboard.", len(res.Redactions))))
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := stopSwitch.Watch(ctx)
	defer cancel()
	defer stopSwitch.Clear()

	fmt.Fprintln(cmd.ErrOrStderr(), styleBanner.Render("Clipboard guard running.")+" "+styleDim.Render("Press Ctrl-C to stop."))
	err = g.Run(ctx)
	if stopSwitch.WasTriggered() {
		fmt.Fprintln(cmd.ErrOrStderr(), styleDim.Render("Guard stopped on request."))
	}
	return err
}
