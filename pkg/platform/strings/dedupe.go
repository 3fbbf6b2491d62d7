// Package strings normalizes comma-separated list values from environment
// variables and query strings.
package strings

import (
	"strings"
)

// SplitList splits a comma-separated value, trims each element and drops
// empty and repeated ones. Order is preserved; an empty input yields nil.
//
//	SplitList(" kafka-1:9092, kafka-2:9092,,kafka-1:9092")
//	// []string{"kafka-1:9092", "kafka-2:9092"}
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return dedupe(strings.Split(s, ","), strings.TrimSpace)
}

// SplitUpperList is SplitList for enum values, which are compared upper-case.
func SplitUpperList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return dedupe(strings.Split(s, ","), func(v string) string {
		return strings.ToUpper(strings.TrimSpace(v))
	})
}

func dedupe(values []string, norm func(string) string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = norm(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			result = append(result, v)
		}
	}
	return result
}
