// Package redact computes the replacement text for a detected secret under
// one of the supported redaction styles.
package redact

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lyndonlyu/secretshield/internal/secret"
)

// Style is a replacement strategy.
type Style string

const (
	// Partial keeps a short prefix and masks the rest: AKIA****...****
	Partial Style = "partial"
	// Full replaces the value with [REDACTED].
	Full Style = "full"
	// Placeholder hints at what belongs there: <YOUR_GITHUB_TOKEN_HERE>
	Placeholder Style = "placeholder"
	// Labeled names the secret type: [GITHUB_TOKEN]
	Labeled Style = "labeled"
)

// FullText is the replacement used by the Full style.
const FullText = "[REDACTED]"

// Styles returns every supported style.
func Styles() []Style {
	return []Style{Partial, Full, Placeholder, Labeled}
}

// ParseStyle converts a settings string into a Style. An empty string yields
// Partial.
func ParseStyle(s string) (Style, error) {
	switch Style(s) {
	case "":
		return Partial, nil
	case Partial, Full, Placeholder, Labeled:
		return Style(s), nil
	}
	return "", fmt.Errorf("%w: unknown redaction style %q", secret.ErrInvalidConfiguration, s)
}

// Replacement returns the text that replaces value. t may be empty when the
// secret type is unknown.
func Replacement(value string, style Style, t secret.Type) (string, error) {
	switch style {
	case Partial:
		return partial(value), nil
	case Full:
		return FullText, nil
	case Placeholder:
		return "<YOUR_" + label(t) + "_HERE>", nil
	case Labeled:
		return "[" + label(t) + "]", nil
	}
	return "", fmt.Errorf("%w: unknown redaction style %q", secret.ErrInvalidConfiguration, string(style))
}

// partial keeps the first min(4, 20%) characters and always appends a
// fixed-width mask. The tail of the value is never shown.
func partial(value string) string {
	n := utf8.RuneCountInString(value)
	if n <= 8 {
		return strings.Repeat("*", n)
	}
	keep := min(4, n/5)
	runes := []rune(value)
	return string(runes[:keep]) + "****...****"
}
