package main

import (
	"context"
	"time"

	"github.com/lyndonlyu/secretshield/internal/audit"
	"github.com/lyndonlyu/secretshield/internal/scrub"
	"github.com/lyndonlyu/secretshield/internal/shield"
	"github.com/lyndonlyu/secretshield/internal/statedb"
	"github.com/rs/zerolog/log"
)

// recorders holds the audit log and history database for one command run.
type recorders struct {
	list   []shield.Recorder
	logger *audit.Logger
	db     *statedb.DB
}

// openRecorders opens whichever stores the config enables. A store that
// fails to open is logged and skipped so the copy itself still works.
func openRecorders() *recorders {
	r := &recorders{}
	if err := cfg.EnsureDirs(); err != nil {
		log.Warn().Err(err).Msg("cannot create data directory, history and audit disabled")
		return r
	}

	if cfg.Audit {
		logger, err := audit.NewLogger(cfg.AuditDir())
		if err != nil {
			log.Warn().Err(err).Msg("audit log unavailable")
		} else {
			logger.SetSanitizer(shield.Sanitize)
			r.logger = logger
			r.list = append(r.list, shield.AuditRecorder{Logger: logger})
			r.checkConfig()
		}
	}
	if cfg.History {
		db, err := statedb.Open(cfg.HistoryPath())
		if err != nil {
			log.Warn().Err(err).Msg("history database unavailable")
		} else {
			r.db = db
			r.list = append(r.list, shield.HistoryRecorder{DB: db})
		}
	}
	return r
}

// checkConfig writes an audit record when the config file changed since the
// last run.
func (r *recorders) checkConfig() {
	changes, err := audit.NewConfigWatcher(cfg.BaseDir).Check([]string{cfg.Path()})
	if err != nil {
		log.Debug().Err(err).Msg("config watch failed")
		return
	}
	for _, c := range changes {
		if err := r.logger.Log(audit.Entry{Action: audit.ActionConfigMod, Source: c.File, Outcome: "changed"}); err != nil {
			log.Warn().Err(err).Msg("audit config change")
		}
	}
}

// record sends an event for commands that do not go through shield.Service.
func (r *recorders) record(ctx context.Context, action, source, outcome string, res scrub.Result, opts scrub.Options, d time.Duration) {
	ev := shield.Event{Action: action, Source: source, Outcome: outcome, Result: res, Options: opts, Duration: d}
	for _, rec := range r.list {
		if err := rec.Record(ctx, ev); err != nil {
			log.Warn().Err(err).Str("action", action).Msg("record event")
		}
	}
}

func (r *recorders) close() {
	if r.logger != nil {
		if _, err := audit.MaybeCreateAnchor(r.logger); err != nil {
			log.Debug().Err(err).Msg("audit anchor")
		}
	}
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			log.Warn().Err(err).Msg("close history")
		}
	}
}

func outcomeOf(res scrub.Result) string {
	if res.Found {
		return audit.OutcomeRedacted
	}
	return audit.OutcomeClean
}
