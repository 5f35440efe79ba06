// Package differ computes signed per-category changes between snapshots.
package differ

import (
	"fmt"
	"math"

	"github.com/fastprodman/stashledger/internal/stash"
)

// Canonicalizer folds raw labels onto categories.
type Canonicalizer interface {
	Canonicalize(items map[string]uint64) (map[stash.Category]uint64, error)
}

// Diff returns cur − prev per category. A nil prev is a cold start and yields
// an empty delta. Labels are folded through canon before comparison.
func Diff(prev *stash.Snapshot, cur stash.Snapshot, canon Canonicalizer) (stash.Delta, error) {
	curQ, err := canon.Canonicalize(cur.Items)
	if err != nil {
		return nil, fmt.Errorf("current snapshot: %w", err)
	}

	if prev == nil {
		return stash.Delta{}, nil
	}

	prevQ, err := canon.Canonicalize(prev.Items)
	if err != nil {
		return nil, fmt.Errorf("previous snapshot: %w", err)
	}

	return Quantities(prevQ, curQ)
}

// Quantities diffs two already canonical quantity maps. Categories absent or
// zero on both sides are omitted.
func Quantities(prev, cur map[stash.Category]uint64) (stash.Delta, error) {
	out := make(stash.Delta, len(cur))

	for c, q := range cur {
		d, err := sub(q, prev[c])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c, err)
		}

		if d != 0 {
			out[c] = d
		}
	}

	for c, q := range prev {
		if _, seen := cur[c]; seen {
			continue
		}

		d, err := sub(0, q)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c, err)
		}

		if d != 0 {
			out[c] = d
		}
	}

	return out, nil
}

func sub(a, b uint64) (int64, error) {
	if a > math.MaxInt64 || b > math.MaxInt64 {
		return 0, fmt.Errorf("%w: quantity exceeds %d", stash.ErrInvalidAmount, int64(math.MaxInt64))
	}

	return int64(a) - int64(b), nil
}
