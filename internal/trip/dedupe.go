package trip

import (
	"strconv"
	"strings"
)

// Dedupe removes journeys that share the first departure time, the final
// arrival time and the exact ordered route sequence of an earlier journey.
// The first occurrence is kept and order is preserved. Nil journeys, journeys
// without legs and journeys containing a nil leg are dropped.
func Dedupe(journeys []*Journey) []*Journey {
	seen := make(map[string]struct{}, len(journeys))
	out := make([]*Journey, 0, len(journeys))

	for _, j := range journeys {
		key, ok := dedupeKey(j)
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, j)
	}

	return out
}

// dedupeKey builds the identity of a journey. Each component is quoted so
// that separators inside values cannot produce collisions.
func dedupeKey(j *Journey) (string, bool) {
	if j == nil || len(j.Legs) == 0 {
		return "", false
	}

	for _, leg := range j.Legs {
		if leg == nil {
			return "", false
		}
	}

	var b strings.Builder

	b.WriteString(strconv.Quote(j.FirstLeg().DepartTime))
	b.WriteByte('|')
	b.WriteString(strconv.Quote(j.LastLeg().ArrivalTime))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(len(j.Legs)))
	for _, leg := range j.Legs {
		b.WriteByte('|')
		b.WriteString(strconv.Quote(leg.RouteNo))
	}

	return b.String(), true
}
