// Package strings holds small string helpers shared by config parsing.
package strings

import (
	"strings"
)

// SplitList splits a separated setting such as "b1:9092, b2:9092,b1:9092"
// into trimmed, non-empty, unique items in first-seen order. An empty input
// yields nil.
func SplitList(raw, sep string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, sep)
	seen := make(map[string]struct{}, len(parts))
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
