package metrics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FormatHuman returns a table of metrics with the name column sized to the
// longest name. Labels are printed sorted by key.
func FormatHuman(metrics []Metric) string {
	nameW := len("METRIC")
	for _, m := range metrics {
		nameW = max(nameW, len(m.Name))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-*s %12s  %s\n", nameW, "METRIC", "VALUE", "LABELS")
	b.WriteString(strings.Repeat("-", nameW+22) + "\n")
	for _, m := range metrics {
		fmt.Fprintf(&b, "%-*s %12s  %s\n", nameW, m.Name, formatValue(m.Value), formatLabels(m.Labels))
	}
	return b.String()
}

func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatLabels(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + labels[k]
	}
	return strings.Join(parts, ", ")
}

// FormatJSONL returns one JSON object per line.
func FormatJSONL(metrics []Metric) (string, error) {
	var b strings.Builder
	for _, m := range metrics {
		data, err := json.Marshal(m)
		if err != nil {
			return "", err
		}
		b.Write(data)
		b.WriteByte('\n')
	}
	return b.String(), nil
}
