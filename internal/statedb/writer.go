package statedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	queueSize = 256
	flushTick = 50 * time.Millisecond
	maxBatch  = 64
)

var errClosed = errors.New("statedb: writer closed")

type writeOp struct {
	rec    ScrubRecord
	result chan error
}

// writer serialises history inserts through one goroutine and commits them
// in batches. SQLite allows a single writer, so parallel scans funnel here.
type writer struct {
	db     *sql.DB
	ops    chan writeOp
	stop   chan struct{}
	done   chan struct{}
	mu     sync.Mutex
	closed bool
}

func newWriter(db *sql.DB) *writer {
	w := &writer{
		db:   db,
		ops:  make(chan writeOp, queueSize),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *writer) submit(ctx context.Context, r ScrubRecord) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return errClosed
	}
	w.mu.Unlock()

	op := writeOp{rec: r, result: make(chan error, 1)}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.done:
		return errClosed
	case w.ops <- op:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-op.result:
		return err
	case <-w.done:
		select {
		case err := <-op.result:
			return err
		default:
			return errClosed
		}
	}
}

// close stops the loop after draining queued ops. Safe to call twice.
func (w *writer) close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.stop)
	}
	w.mu.Unlock()
	<-w.done
}

func (w *writer) loop() {
	defer close(w.done)

	ticker := time.NewTicker(flushTick)
	defer ticker.Stop()

	batch := make([]writeOp, 0, maxBatch)
	flush := func() {
		if len(batch) > 0 {
			w.commit(batch)
			batch = batch[:0]
		}
	}

	for {
		select {
		case op := <-w.ops:
			batch = append(batch, op)
			if len(batch) >= maxBatch {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-w.stop:
			for {
				select {
				case op := <-w.ops:
					batch = append(batch, op)
				default:
					flush()
					return
				}
			}
		}
	}
}

// commit writes the batch in one transaction. If any record fails, the
// transaction is rolled back and each record is retried on its own so one
// bad row does not sink the others.
func (w *writer) commit(batch []writeOp) {
	err := w.tx(func(tx *sql.Tx) error {
		for _, op := range batch {
			if err := insertScrub(tx, op.rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		for _, op := range batch {
			op.result <- nil
		}
		return
	}

	log.Debug().Err(err).Int("batch", len(batch)).Msg("history batch failed, retrying singly")
	for _, op := range batch {
		op.result <- w.tx(func(tx *sql.Tx) error { return insertScrub(tx, op.rec) })
	}
}

func (w *writer) tx(fn func(*sql.Tx) error) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func insertScrub(tx *sql.Tx, r ScrubRecord) error {
	types, err := json.Marshal(r.Types)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(
		`INSERT INTO scrubs (`+scrubColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Action, r.Source, r.Outcome, r.Redactions, string(types),
		r.Style, r.Sensitivity, r.Bytes, r.CreatedAt,
	); err != nil {
		return err
	}

	perType := make(map[string]int)
	for _, t := range r.Types {
		perType[t]++
	}
	for t, n := range perType {
		if _, err := tx.Exec(
			`INSERT INTO type_counts (type, count) VALUES (?, ?)
			 ON CONFLICT(type) DO UPDATE SET count = count + excluded.count`,
			t, n,
		); err != nil {
			return err
		}
	}
	return nil
}
