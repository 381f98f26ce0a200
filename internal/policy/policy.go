// Package policy decides whether a detected value is redacted, using
// case-insensitive glob allow and deny lists.
package policy

import (
	"regexp"
	"strings"
)

// Policy holds compiled allow and deny globs. The zero value redacts
// everything.
type Policy struct {
	allow []*regexp.Regexp
	deny  []*regexp.Regexp
}

// New compiles the allow and deny lists. Globs use `*` for any run of
// characters; every other character matches itself.
func New(allow, deny []string) *Policy {
	return &Policy{
		allow: compileAll(allow),
		deny:  compileAll(deny),
	}
}

// ShouldRedact reports whether value must be redacted. A deny match always
// redacts, an allow match otherwise suppresses, and anything else is
// redacted.
func (p *Policy) ShouldRedact(value string) bool {
	if p.Denies(value) {
		return true
	}
	if matchAny(p.allow, value) {
		return false
	}
	return true
}

// Denies reports whether value matches a deny glob.
func (p *Policy) Denies(value string) bool {
	return matchAny(p.deny, value)
}

// ShouldRedact is the one-shot form of New(allow, deny).ShouldRedact(value).
func ShouldRedact(value string, allow, deny []string) bool {
	return New(allow, deny).ShouldRedact(value)
}

func compileAll(globs []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(globs))
	for _, g := range globs {
		out = append(out, compile(g))
	}
	return out
}

// compile never fails: every literal run is quoted.
func compile(glob string) *regexp.Regexp {
	parts := strings.Split(glob, "*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	return regexp.MustCompile(`(?is)\A` + strings.Join(parts, ".*") + `\z`)
}

func matchAny(res []*regexp.Regexp, value string) bool {
	for _, re := range res {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}
