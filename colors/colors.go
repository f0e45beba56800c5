// Package colors assigns deterministic display colors to plan names. The
// same set of plans always maps to the same colors, independent of the order
// charts are drawn in.
package colors

import "sort"

// palette holds the dashboard line colors in assignment order.
var palette = []string{
	"#14B8A6", "#6366F1", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#34D399",
	"#FBBF24", "#60A5FA",
}

// fallback is used for plans asked about outside an assigned set.
const fallback = "#6B7280"

// Map is the default ColorAssigner for the dashboard.
type Map struct{}

// Assign maps each distinct plan to a palette color. Input order does not
// matter: plans are deduplicated and sorted before colors are dealt out, so
// the mapping is a pure function of the name set.
func (Map) Assign(plans []string) map[string]string {
	distinct := make([]string, 0, len(plans))
	seen := make(map[string]struct{}, len(plans))
	for _, p := range plans {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		distinct = append(distinct, p)
	}
	sort.Strings(distinct)

	out := make(map[string]string, len(distinct))
	for i, p := range distinct {
		out[p] = palette[i%len(palette)]
	}
	return out
}

// Lookup returns the color for a plan within an assigned set, or the neutral
// fallback when the plan is not part of the set.
func Lookup(assigned map[string]string, plan string) string {
	if c, ok := assigned[plan]; ok {
		return c
	}
	return fallback
}
