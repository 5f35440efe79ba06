package journal

import (
	"context"
	"errors"
	"time"
)

var ErrDuplicateEntry = errors.New("duplicate journal entry")

// Entry is one reported reconciliation result.
type Entry struct {
	ID      string
	At      time.Time
	Source  string
	Status  string
	Outcome string
	Reason  string
	Actor   string
	Target  string
	Payload []byte // JSON encoded result
}

type Journal interface {
	Append(ctx context.Context, e Entry) error
	List(ctx context.Context, limit int) ([]Entry, error)
}
