package collection

import (
	"context"
	"time"

	"github.com/mosaek2/lepisong/internal/sequencer"
)

// Backend persists collections and their items.
//
// Begin is the only way to change items: it takes the exclusive scope for one
// key and returns a Tx whose writes become visible together on Commit or not at
// all. Snapshot must never wait on an open Tx.
type Backend interface {
	Begin(ctx context.Context, key string, wait time.Duration) (Tx, error)
	Snapshot(ctx context.Context, key string) (Snapshot, error)

	CreateCollection(ctx context.Context, c Collection) error
	Collection(ctx context.Context, key string) (Collection, error)
	Collections(ctx context.Context, kind Kind, ownerID string) ([]Collection, error)
	RenameCollection(ctx context.Context, key, name string, at time.Time) (Collection, error)
}

// Tx is one atomic unit of work on a single collection.
type Tx interface {
	Collection() Collection
	// Items returns the current items ordered by position.
	Items(ctx context.Context) ([]Item, error)
	Insert(ctx context.Context, it Item) error
	Delete(ctx context.Context, itemID string) error
	SetPositions(ctx context.Context, changes []sequencer.Entry) error
	DropCollection(ctx context.Context) error
	// Commit makes the writes durable, bumps the revision and returns it.
	Commit(ctx context.Context) (int64, error)
	// Rollback discards the writes. It is safe to call after Commit.
	Rollback(ctx context.Context) error
}

// Notifier receives snapshot events after commits. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) error { return nil }
