package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pmezard/go-difflib/difflib"
)

var (
	styleAdd  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleDel  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	styleHunk = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	styleHead = lipgloss.NewStyle().Bold(true)
)

// Diff returns a unified diff from original to scrubbed with three lines of
// context. It is empty when the texts are equal.
func Diff(original, scrubbed, fromName, toName string) (string, error) {
	if original == scrubbed {
		return "", nil
	}
	d := difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(scrubbed),
		FromFile: fromName,
		ToFile:   toName,
		Context:  3,
	}
	out, err := difflib.GetUnifiedDiffString(d)
	if err != nil {
		return "", fmt.Errorf("report: diff: %w", err)
	}
	return out, nil
}

// ColorDiff styles a unified diff for a terminal.
func ColorDiff(diff string) string {
	if diff == "" {
		return ""
	}
	lines := strings.Split(strings.TrimSuffix(diff, "\n"), "\n")
	for i, l := range lines {
		switch {
		case strings.HasPrefix(l, "+++"), strings.HasPrefix(l, "---"):
			lines[i] = styleHead.Render(l)
		case strings.HasPrefix(l, "@@"):
			lines[i] = styleHunk.Render(l)
		case strings.HasPrefix(l, "+"):
			lines[i] = styleAdd.Render(l)
		case strings.HasPrefix(l, "-"):
			lines[i] = styleDel.Render(l)
		}
	}
	return strings.Join(lines, "\n") + "\n"
}
