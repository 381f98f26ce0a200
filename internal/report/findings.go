package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/acarl005/stripansi"
	"github.com/lyndonlyu/secretshield/internal/secret"
)

// snippetBytes is how much surrounding text a finding shows on each side.
const snippetBytes = 50

// Finding is one detected secret located in a named input.
type Finding struct {
	Source      string      `json:"source"`
	Type        secret.Type `json:"type"`
	Description string      `json:"description"`
	Line        int         `json:"line"`
	Column      int         `json:"column"`
	Start       int         `json:"start"`
	End         int         `json:"end"`
	Confidence  float64     `json:"confidence"`
	Context     string      `json:"context,omitempty"`
	Snippet     string      `json:"snippet"`
}

// Findings converts detections in text into findings. The snippet shows the
// surrounding text with the secret itself masked.
func Findings(source, text string, found []secret.Detected) []Finding {
	out := make([]Finding, 0, len(found))
	for _, d := range found {
		line, col := position(text, d.Start)
		out = append(out, Finding{
			Source:      source,
			Type:        d.Type,
			Description: d.Description,
			Line:        line,
			Column:      col,
			Start:       d.Start,
			End:         d.End,
			Confidence:  d.Confidence,
			Context:     d.Context,
			Snippet:     snippet(text, d.Start, d.End),
		})
	}
	return out
}

// position returns the 1-based line and byte column of offset.
func position(text string, offset int) (int, int) {
	before := text[:offset]
	line := strings.Count(before, "\n") + 1
	col := offset - strings.LastIndexByte(before, '\n')
	return line, col
}

func snippet(text string, start, end int) string {
	from := max(start-snippetBytes, 0)
	to := min(end+snippetBytes, len(text))
	s := text[from:start] + Mask(text[start:end]) + text[end:to]
	return cleanLine(s)
}

func cleanLine(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(stripansi.Strip(strings.ToValidUTF8(s, "")))
}

// FormatFindings returns a table of findings. Returns "No secrets detected.\n"
// for an empty slice.
func FormatFindings(findings []Finding) string {
	if len(findings) == 0 {
		return "No secrets detected.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-30s %-16s %-5s %s\n", "LOCATION", "TYPE", "CONF", "SNIPPET")
	for _, f := range findings {
		loc := fmt.Sprintf("%s:%d:%d", f.Source, f.Line, f.Column)
		fmt.Fprintf(&b, "%-30s %-16s %-5.2f %s\n", loc, f.Type, f.Confidence, f.Snippet)
	}
	return b.String()
}

// FormatFindingsJSON returns the findings as indented JSON.
func FormatFindingsJSON(findings []Finding) (string, error) {
	if findings == nil {
		findings = []Finding{}
	}
	data, err := json.MarshalIndent(findings, "", "  ")
	if err != nil {
		return "", fmt.Errorf("report: json marshal: %w", err)
	}
	return string(data), nil
}
