// Package metrics gathers counters from the history database, the audit log
// and the health checks into flat name/value points.
package metrics

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/lyndonlyu/secretshield/internal/audit"
	"github.com/lyndonlyu/secretshield/internal/config"
	"github.com/lyndonlyu/secretshield/internal/health"
	"github.com/lyndonlyu/secretshield/internal/statedb"
)

// Metric represents a single metric data point.
type Metric struct {
	Name      string            `json:"name"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
	Timestamp string            `json:"timestamp"`
}

type Collector struct {
	cfg *config.Config
	now func() time.Time
}

func NewCollector(cfg *config.Config) *Collector {
	return &Collector{cfg: cfg, now: time.Now}
}

// Collect gathers all metrics from history, health and audit. A missing
// history database contributes nothing rather than being created.
func (c *Collector) Collect() ([]Metric, error) {
	now := c.now().UTC().Format(time.RFC3339)
	var metrics []Metric

	if _, err := os.Stat(c.cfg.HistoryPath()); err == nil {
		db, err := statedb.Open(c.cfg.HistoryPath())
		if err != nil {
			return nil, err
		}
		stats, err := db.Stats()
		db.Close()
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, historyMetrics(stats, now)...)
	}

	report := health.Evaluate(c.cfg)
	metrics = append(metrics, Metric{
		Name:      "secretshield_health_level",
		Value:     float64(report.Level),
		Labels:    map[string]string{"level": report.Level.String()},
		Timestamp: now,
	})

	logger, err := audit.NewLogger(c.cfg.AuditDir())
	if err != nil {
		return nil, fmt.Errorf("metrics: audit: %w", err)
	}
	return append(metrics, auditMetrics(logger, now)...), nil
}

func historyMetrics(s statedb.Stats, now string) []Metric {
	metrics := []Metric{
		{Name: "secretshield_scrubs_total", Value: float64(s.Scrubs), Timestamp: now},
		{Name: "secretshield_scrubs_redacted", Value: float64(s.Redacted), Timestamp: now},
		{Name: "secretshield_scrubs_cancelled", Value: float64(s.Cancelled), Timestamp: now},
		{Name: "secretshield_redactions_total", Value: float64(s.Redactions), Timestamp: now},
	}
	for _, tc := range s.ByType {
		metrics = append(metrics, Metric{
			Name: "secretshield_redactions_by_type", Value: float64(tc.Count),
			Labels: map[string]string{"type": tc.Type}, Timestamp: now,
		})
	}
	return metrics
}

func auditMetrics(logger *audit.Logger, now string) []Metric {
	var metrics []Metric

	records, err := logger.Recent(100000) // all
	if err == nil {
		metrics = append(metrics, Metric{
			Name: "secretshield_audit_entries_total", Value: float64(len(records)), Timestamp: now,
		})

		type key struct{ action, outcome string }
		counts := map[key]int{}
		var totalMs int64
		for _, r := range records {
			counts[key{r.Action, r.Outcome}]++
			totalMs += r.DurationMs
		}
		keys := make([]key, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].action != keys[j].action {
				return keys[i].action < keys[j].action
			}
			return keys[i].outcome < keys[j].outcome
		})
		for _, k := range keys {
			metrics = append(metrics, Metric{
				Name: "secretshield_audit_entries", Value: float64(counts[k]),
				Labels: map[string]string{"action": k.action, "outcome": k.outcome}, Timestamp: now,
			})
		}
		if len(records) > 0 {
			metrics = append(metrics, Metric{
				Name:      "secretshield_audit_duration_ms_avg",
				Value:     float64(totalMs) / float64(len(records)),
				Timestamp: now,
			})
		}
	}

	valid, _, verifyErr := logger.Verify()
	chainVal := float64(0)
	if verifyErr == nil && valid {
		chainVal = 1
	}
	metrics = append(metrics, Metric{
		Name: "secretshield_audit_chain_valid", Value: chainVal, Timestamp: now,
	})

	return metrics
}
