// Package memstore keeps collections in process memory. It fits a single
// instance deployment: the per-collection scope is an in-process key mutex.
package memstore

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/mosaek2/lepisong/internal/collection"
	"github.com/mosaek2/lepisong/internal/lock"
	"github.com/mosaek2/lepisong/internal/sequencer"
)

type state struct {
	coll     collection.Collection
	items    []collection.Item
	revision int64
}

type Store struct {
	locks *lock.KeyedMutex

	mu    sync.RWMutex
	state map[string]*state
}

var _ collection.Backend = (*Store)(nil)

func New() *Store {
	return &Store{
		locks: lock.NewKeyedMutex(),
		state: make(map[string]*state),
	}
}

func (s *Store) Begin(ctx context.Context, key string, wait time.Duration) (collection.Tx, error) {
	release, err := s.locks.Acquire(ctx, key, wait)
	if errors.Is(err, lock.ErrTimeout) {
		return nil, collection.ErrBusy
	}
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	st, ok := s.state[key]
	var coll collection.Collection
	var items map[string]collection.Item
	if ok {
		coll = st.coll
		items = make(map[string]collection.Item, len(st.items))
		for _, it := range st.items {
			items[it.ID] = it
		}
	}
	s.mu.RUnlock()

	if !ok {
		release()
		return nil, fmt.Errorf("collection %s: %w", key, collection.ErrNotFound)
	}

	return &tx{store: s, key: key, coll: coll, items: items, release: release}, nil
}

func (s *Store) Snapshot(_ context.Context, key string) (collection.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.state[key]
	if !ok {
		return collection.Snapshot{}, fmt.Errorf("collection %s: %w", key, collection.ErrNotFound)
	}
	return collection.Snapshot{
		CollectionKey: key,
		Revision:      st.revision,
		Items:         slices.Clone(st.items),
	}, nil
}

func (s *Store) CreateCollection(_ context.Context, c collection.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state[c.Key]; ok {
		return fmt.Errorf("collection %s: %w", c.Key, collection.ErrExists)
	}
	s.state[c.Key] = &state{coll: c, items: []collection.Item{}}
	return nil
}

func (s *Store) Collection(_ context.Context, key string) (collection.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.state[key]
	if !ok {
		return collection.Collection{}, fmt.Errorf("collection %s: %w", key, collection.ErrNotFound)
	}
	return st.coll, nil
}

func (s *Store) Collections(_ context.Context, kind collection.Kind, ownerID string) ([]collection.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []collection.Collection{}
	for _, st := range s.state {
		if st.coll.Kind != kind {
			continue
		}
		if ownerID != "" && st.coll.OwnerID != ownerID {
			continue
		}
		out = append(out, st.coll)
	}
	slices.SortFunc(out, func(a, b collection.Collection) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return out, nil
}

func (s *Store) RenameCollection(_ context.Context, key, name string, at time.Time) (collection.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.state[key]
	if !ok {
		return collection.Collection{}, fmt.Errorf("collection %s: %w", key, collection.ErrNotFound)
	}
	st.coll.Name = name
	st.coll.UpdatedAt = at
	return st.coll, nil
}

// tx works on a private copy of one collection and swaps it in on Commit.
type tx struct {
	store   *Store
	key     string
	coll    collection.Collection
	items   map[string]collection.Item
	dropped bool
	release func()
	done    bool
}

func (t *tx) Collection() collection.Collection { return t.coll }

func (t *tx) Items(context.Context) ([]collection.Item, error) {
	return t.ordered(), nil
}

func (t *tx) Insert(_ context.Context, it collection.Item) error {
	if _, ok := t.items[it.ID]; ok {
		return fmt.Errorf("item %s already exists", it.ID)
	}
	t.items[it.ID] = it
	return nil
}

func (t *tx) Delete(_ context.Context, itemID string) error {
	if _, ok := t.items[itemID]; !ok {
		return fmt.Errorf("item %s: %w", itemID, collection.ErrNotFound)
	}
	delete(t.items, itemID)
	return nil
}

func (t *tx) SetPositions(_ context.Context, changes []sequencer.Entry) error {
	for _, c := range changes {
		it, ok := t.items[c.ID]
		if !ok {
			return fmt.Errorf("item %s: %w", c.ID, collection.ErrNotFound)
		}
		it.Position = c.Position
		t.items[c.ID] = it
	}
	return nil
}

func (t *tx) DropCollection(context.Context) error {
	t.dropped = true
	return nil
}

func (t *tx) Commit(context.Context) (int64, error) {
	if t.done {
		return 0, errors.New("memstore: transaction already finished")
	}
	defer t.finish()

	items := t.ordered()

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	st, ok := t.store.state[t.key]
	if !ok {
		return 0, fmt.Errorf("collection %s: %w", t.key, collection.ErrNotFound)
	}
	st.revision++
	if t.dropped {
		delete(t.store.state, t.key)
		return st.revision, nil
	}
	st.items = items
	return st.revision, nil
}

func (t *tx) Rollback(context.Context) error {
	if !t.done {
		t.finish()
	}
	return nil
}

func (t *tx) finish() {
	t.done = true
	t.release()
}

func (t *tx) ordered() []collection.Item {
	out := make([]collection.Item, 0, len(t.items))
	for _, it := range t.items {
		out = append(out, it)
	}
	slices.SortFunc(out, func(a, b collection.Item) int {
		return cmp.Compare(a.Position, b.Position)
	})
	return out
}
