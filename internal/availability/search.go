package availability

import (
	"fmt"
	"strings"
)

// DefaultSearchLimit caps the number of listings a search returns.
const DefaultSearchLimit = 200

// SearchMode selects what happens to unavailable candidates.
type SearchMode string

const (
	// ModeFilter drops unavailable candidates, then applies the cap, so up to
	// limit available listings come back.
	ModeFilter SearchMode = "filter"
	// ModeAnnotate applies the cap to the nearest candidates first and marks
	// each one, so near-miss unavailable listings stay visible.
	ModeAnnotate SearchMode = "annotate"
)

func ParseSearchMode(s string) (SearchMode, error) {
	switch SearchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeFilter:
		return ModeFilter, nil
	case ModeAnnotate:
		return ModeAnnotate, nil
	}
	return "", fmt.Errorf("unknown search mode %q", s)
}

// Candidate pairs a listing (already ordered by distance) with its record.
type Candidate[T any] struct {
	Item   T
	Record Record
}

type Result[T any] struct {
	Item        T
	IsAvailable bool
	Reason      Reason
}

// Search resolves every candidate against q. Candidate order is kept as-is.
// A limit <= 0 means DefaultSearchLimit.
func Search[T any](r *Resolver, candidates []Candidate[T], q Interval, mode SearchMode, limit int) []Result[T] {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	if mode == ModeAnnotate {
		if len(candidates) > limit {
			candidates = candidates[:limit]
		}
		out := make([]Result[T], 0, len(candidates))
		for _, c := range candidates {
			v := r.Resolve(c.Record, q)
			out = append(out, Result[T]{Item: c.Item, IsAvailable: v.Available, Reason: v.Reason})
		}
		return out
	}

	out := make([]Result[T], 0, min(len(candidates), limit))
	for _, c := range candidates {
		if len(out) == limit {
			break
		}
		if r.IsAvailable(c.Record, q) {
			out = append(out, Result[T]{Item: c.Item, IsAvailable: true})
		}
	}
	return out
}
