package secret

import (
	"regexp"
	"sort"
)

// contextWindow is how many bytes before a match are searched for the name
// of the variable or key being assigned.
const contextWindow = 50

var contextRe = regexp.MustCompile(`([a-zA-Z_][a-zA-Z0-9_]*)\s*[:=]\s*['"]?$`)

type dedupKey struct {
	start, end int
	value      string
}

// Detect scans text with every pattern active at sensitivity s and returns
// the occurrences sorted by start offset. Identical (start, end, value)
// occurrences are reported once; overlapping occurrences from different
// patterns are kept, see ResolveOverlaps.
func Detect(text string, s Sensitivity) ([]Detected, error) {
	patterns, err := PatternsFor(s)
	if err != nil {
		return nil, err
	}

	seen := make(map[dedupKey]struct{})
	var found []Detected
	for _, p := range patterns {
		for m := range p.Matches(text) {
			value := text[m.Start:m.End]
			key := dedupKey{start: m.Start, end: m.End, value: value}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			found = append(found, Detected{
				Type:        p.Type,
				Value:       value,
				Start:       m.Start,
				End:         m.End,
				Confidence:  p.Confidence,
				Context:     contextBefore(text, m.Start),
				Description: p.Description,
				rank:        p.rank,
			})
		}
	}

	// Stable so equal starts keep catalog order.
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Start < found[j].Start
	})
	return found, nil
}

// contextBefore returns the identifier assigned to the value starting at
// start, e.g. "API_KEY" for `API_KEY = "..."`, or "" when there is none.
func contextBefore(text string, start int) string {
	lo := max(0, start-contextWindow)
	m := contextRe.FindStringSubmatch(text[lo:start])
	if m == nil {
		return ""
	}
	return m[1]
}

// ResolveOverlaps drops occurrences whose range intersects a stronger one.
// Strength is confidence, then match length, then catalog order. The result
// is sorted by start and contains no two overlapping ranges, which the
// offset-tracking rewrite in package scrub relies on.
func ResolveOverlaps(found []Detected) []Detected {
	if len(found) < 2 {
		return found
	}

	ranked := make([]Detected, len(found))
	copy(ranked, found)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Len() != b.Len() {
			return a.Len() > b.Len()
		}
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		return a.Start < b.Start
	})

	kept := make([]Detected, 0, len(ranked))
	for _, d := range ranked {
		clash := false
		for _, k := range kept {
			if d.overlaps(k) {
				clash = true
				break
			}
		}
		if !clash {
			kept = append(kept, d)
		}
	}

	sort.Slice(kept, func(i, j int) bool {
		return kept[i].Start < kept[j].Start
	})
	return kept
}
