package stash

import (
	"maps"
	"slices"
	"time"
)

// Snapshot is a point-in-time label→quantity observation of storage.
// Absent labels mean zero.
type Snapshot struct {
	Items      map[string]uint64 `json:"items"`
	CapturedAt time.Time         `json:"capturedAt"`
	Actor      ActorID           `json:"actor"`
}

// NewSnapshot copies items so later changes by the caller do not leak in.
func NewSnapshot(actor ActorID, at time.Time, items map[string]uint64) Snapshot {
	return Snapshot{
		Items:      maps.Clone(items),
		CapturedAt: at,
		Actor:      actor,
	}
}

// Quantity returns the quantity recorded for label, zero when absent.
func (s Snapshot) Quantity(label string) uint64 {
	return s.Items[label]
}

// Delta is a signed per-category change.
type Delta map[Category]int64

// Categories returns the categories with a non-zero change, sorted.
func (d Delta) Categories() []Category {
	out := make([]Category, 0, len(d))
	for c, v := range d {
		if v != 0 {
			out = append(out, c)
		}
	}

	slices.Sort(out)

	return out
}

// IsZero reports whether nothing changed.
func (d Delta) IsZero() bool {
	for _, v := range d {
		if v != 0 {
			return false
		}
	}

	return true
}

// Negate returns -d.
func (d Delta) Negate() Delta {
	out := make(Delta, len(d))
	for c, v := range d {
		out[c] = -v
	}

	return out
}
