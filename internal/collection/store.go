package collection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mosaek2/lepisong/internal/sequencer"
)

const DefaultLockWait = 2 * time.Second

// Store applies sequencer operations to a Backend one collection at a time and
// tells the Notifier about every committed result.
type Store struct {
	backend  Backend
	notifier Notifier
	wait     time.Duration
	log      *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewStore builds a Store. wait bounds how long a mutation queues behind
// another one on the same collection before failing with ErrBusy.
func NewStore(backend Backend, notifier Notifier, logger *slog.Logger, wait time.Duration) *Store {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if wait <= 0 {
		wait = DefaultLockWait
	}
	return &Store{
		backend:  backend,
		notifier: notifier,
		wait:     wait,
		log:      logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func (s *Store) Backend() Backend { return s.backend }

// List returns the last committed snapshot of key.
func (s *Store) List(ctx context.Context, key string) (Snapshot, error) {
	snap, err := s.backend.Snapshot(ctx, key)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list %s: %w", key, err)
	}
	return snap, nil
}

// Append adds a new item after the last one.
func (s *Store) Append(ctx context.Context, key string, in NewItem) (Snapshot, Item, error) {
	return s.insert(ctx, key, in, false)
}

// PriorityInsert adds a new item in front of all others.
func (s *Store) PriorityInsert(ctx context.Context, key string, in NewItem) (Snapshot, Item, error) {
	return s.insert(ctx, key, in, true)
}

func (s *Store) insert(ctx context.Context, key string, in NewItem, priority bool) (Snapshot, Item, error) {
	op := "append"
	if priority {
		op = "priority insert"
	}

	item := Item{
		ID:            s.newID(),
		CollectionKey: key,
		PayloadRef:    in.PayloadRef,
		IsPriority:    priority,
		AddedBy:       in.AddedBy,
		AddedAt:       s.now().UTC(),
	}

	snap, err := s.mutate(ctx, key, op, func(tx Tx, items []Item) ([]Item, error) {
		cur := entries(items)
		var next []sequencer.Entry
		if priority {
			next = sequencer.PriorityInsert(cur, item.ID)
		} else {
			next = sequencer.Append(cur, item.ID)
		}

		if err := tx.SetPositions(ctx, sequencer.Changed(cur, next)); err != nil {
			return nil, err
		}
		out := arrange(items, next, item)
		for _, it := range out {
			if it.ID == item.ID {
				item.Position = it.Position
			}
		}
		if err := tx.Insert(ctx, item); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return Snapshot{}, Item{}, err
	}
	return snap, item, nil
}

// Remove deletes itemID and closes the gap behind it.
func (s *Store) Remove(ctx context.Context, key, itemID string) (Snapshot, error) {
	return s.mutate(ctx, key, "remove", func(tx Tx, items []Item) ([]Item, error) {
		cur := entries(items)
		next, err := sequencer.Remove(cur, itemID)
		if err != nil {
			return nil, err
		}
		if err := tx.Delete(ctx, itemID); err != nil {
			return nil, err
		}
		if err := tx.SetPositions(ctx, sequencer.Changed(cur, next)); err != nil {
			return nil, err
		}
		return arrange(items, next), nil
	})
}

// Move relocates the item at position from to position to (both 1-based).
func (s *Store) Move(ctx context.Context, key string, from, to int) (Snapshot, error) {
	return s.mutate(ctx, key, "move", func(tx Tx, items []Item) ([]Item, error) {
		cur := entries(items)
		next, err := sequencer.Move(cur, from, to)
		if err != nil {
			return nil, err
		}
		if err := tx.SetPositions(ctx, sequencer.Changed(cur, next)); err != nil {
			return nil, err
		}
		return arrange(items, next), nil
	})
}

// Drop deletes the collection and every item in it.
func (s *Store) Drop(ctx context.Context, key string) error {
	tx, err := s.backend.Begin(ctx, key, s.wait)
	if err != nil {
		return fmt.Errorf("drop %s: %w", key, err)
	}
	defer tx.Rollback(ctx)

	kind := tx.Collection().Kind
	if err := tx.DropCollection(ctx); err != nil {
		return fmt.Errorf("drop %s: %w", key, err)
	}
	rev, err := tx.Commit(ctx)
	if err != nil {
		return fmt.Errorf("drop %s: commit: %w", key, err)
	}

	s.notify(ctx, Event{
		Type:          string(kind) + ".deleted",
		CollectionKey: key,
		Revision:      rev,
		Items:         []Item{},
	})
	return nil
}

func (s *Store) mutate(ctx context.Context, key, op string, apply func(Tx, []Item) ([]Item, error)) (Snapshot, error) {
	tx, err := s.backend.Begin(ctx, key, s.wait)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s %s: %w", op, key, err)
	}
	defer tx.Rollback(ctx)

	items, err := tx.Items(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s %s: load: %w", op, key, err)
	}
	if err := sequencer.Validate(entries(items)); err != nil {
		s.log.Error("collection positions are not contiguous",
			"op", op, "collection", key, "err", err)
		return Snapshot{}, fmt.Errorf("%s %s: %v: %w", op, key, err, ErrCorruptState)
	}

	out, err := apply(tx, items)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s %s: %w", op, key, err)
	}

	rev, err := tx.Commit(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s %s: commit: %w", op, key, err)
	}
	s.log.Debug("collection committed", "op", op, "collection", key, "revision", rev, "items", len(out))

	snap := Snapshot{CollectionKey: key, Revision: rev, Items: out}
	s.notify(ctx, Event{
		Type:          string(tx.Collection().Kind) + ".updated",
		CollectionKey: key,
		Revision:      rev,
		Items:         out,
	})
	return snap, nil
}

func (s *Store) notify(ctx context.Context, ev Event) {
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.log.Warn("notify subscribers", "type", ev.Type, "collection", ev.CollectionKey,
			"revision", ev.Revision, "err", err)
	}
}
