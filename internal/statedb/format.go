package statedb

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatScrubList returns a table of history records with columns WHEN,
// ACTION, OUTCOME, FOUND, TYPES and SOURCE. Returns "No history.\n" if the
// slice is empty.
func FormatScrubList(records []ScrubRecord) string {
	if len(records) == 0 {
		return "No history.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %-15s %-10s %-6s %-40s %s\n", "WHEN", "ACTION", "OUTCOME", "FOUND", "TYPES", "SOURCE")
	for _, r := range records {
		when := r.CreatedAt
		if len(when) > 19 {
			when = when[:19]
		}
		fmt.Fprintf(&b, "%-20s %-15s %-10s %-6d %-40s %s\n",
			when, r.Action, r.Outcome, r.Redactions, truncate(strings.Join(distinct(r.Types), ","), 40), r.Source)
	}
	return b.String()
}

// FormatStats returns a human-readable summary of the history counters.
func FormatStats(path string, s Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Database: %s\n", path)
	fmt.Fprintf(&b, "Scrubs: %d\n", s.Scrubs)
	fmt.Fprintf(&b, "With redactions: %d\n", s.Redacted)
	fmt.Fprintf(&b, "Cancelled: %d\n", s.Cancelled)
	fmt.Fprintf(&b, "Secrets redacted: %d\n", s.Redactions)
	if len(s.ByType) > 0 {
		b.WriteString("\nBy type:\n")
		for _, c := range s.ByType {
			fmt.Fprintf(&b, "  %-20s %d\n", c.Type, c.Count)
		}
	}
	return b.String()
}

// FormatScrubListJSON returns the records as indented JSON.
func FormatScrubListJSON(records []ScrubRecord) (string, error) {
	if records == nil {
		records = []ScrubRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("statedb: json marshal: %w", err)
	}
	return string(data), nil
}

// FormatStatsJSON returns the stats as indented JSON.
func FormatStatsJSON(s Stats) (string, error) {
	if s.ByType == nil {
		s.ByType = []TypeCount{}
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("statedb: json marshal: %w", err)
	}
	return string(data), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func distinct(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
