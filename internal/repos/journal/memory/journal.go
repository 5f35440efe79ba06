package journal

import (
	"context"
	"slices"
	"sync"

	"github.com/fastprodman/stashledger/internal/repos/journal"
)

var _ journal.Journal = (*journalRepo)(nil)

// DefaultCapacity bounds the in-memory journal; older entries are dropped.
const DefaultCapacity = 1000

type journalRepo struct {
	mu       sync.Mutex
	capacity int
	entries  []journal.Entry
	ids      map[string]struct{}
}

func New(capacity int) *journalRepo {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &journalRepo{
		capacity: capacity,
		ids:      make(map[string]struct{}),
	}
}

func (r *journalRepo) Append(_ context.Context, e journal.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ids[e.ID]; ok {
		return journal.ErrDuplicateEntry
	}

	if len(r.entries) == r.capacity {
		delete(r.ids, r.entries[0].ID)
		r.entries = r.entries[1:]
	}

	r.entries = append(r.entries, e)
	r.ids[e.ID] = struct{}{}

	return nil
}

// List returns up to limit entries, newest first.
func (r *journalRepo) List(_ context.Context, limit int) ([]journal.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := max(min(limit, len(r.entries)), 0)
	out := slices.Clone(r.entries[len(r.entries)-n:])
	slices.Reverse(out)

	return out, nil
}
