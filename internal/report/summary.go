// Package report turns scrub results into text for people and machines:
// summaries, unified diffs and scan findings.
package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lyndonlyu/secretshield/internal/redact"
	"github.com/lyndonlyu/secretshield/internal/scrub"
)

const arrow = "→"

// Mask hides a secret value for display. It reuses partial redaction so a
// reader can still tell values apart by their first characters.
func Mask(value string) string {
	out, err := redact.Replacement(value, redact.Partial, "")
	if err != nil {
		return redact.FullText
	}
	return out
}

func shown(value string, reveal bool) string {
	if reveal {
		return value
	}
	return Mask(value)
}

// Summary returns "No secrets detected." for a clean result, otherwise a
// "Found N secret(s):" header followed by one line per redaction. Original
// values are masked unless reveal is set.
func Summary(res scrub.Result, reveal bool) string {
	if len(res.Redactions) == 0 {
		return "No secrets detected."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d secret(s):", len(res.Redactions))
	for _, r := range res.Redactions {
		fmt.Fprintf(&b, "\n- %s: %s %s %s", r.Type, shown(r.Original, reveal), arrow, r.Replacement)
	}
	return b.String()
}

// Markdown returns the summary as a markdown document with a table of
// redactions.
func Markdown(res scrub.Result, reveal bool) string {
	var b strings.Builder
	b.WriteString("# Secret scan\n\n")
	if len(res.Redactions) == 0 {
		b.WriteString("No secrets detected.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Found **%d** secret(s).\n\n", len(res.Redactions))
	b.WriteString("| # | Type | Offset | Original | Replacement |\n")
	b.WriteString("|---|------|--------|----------|-------------|\n")
	for i, r := range res.Redactions {
		fmt.Fprintf(&b, "| %d | %s | %d-%d | `%s` | `%s` |\n",
			i+1, r.Type, r.Start, r.End, mdCell(shown(r.Original, reveal)), mdCell(r.Replacement))
	}
	return b.String()
}

func mdCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "`", "'")
}

// JSON encodes the result. Originals are masked unless reveal is set; the
// Original text field is dropped in that case as well.
func JSON(res scrub.Result, reveal bool) (string, error) {
	out := res
	if !reveal {
		out.Original = ""
		out.Redactions = make([]scrub.Redaction, len(res.Redactions))
		for i, r := range res.Redactions {
			r.Original = Mask(r.Original)
			out.Redactions[i] = r
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("report: json marshal: %w", err)
	}
	return string(data), nil
}
