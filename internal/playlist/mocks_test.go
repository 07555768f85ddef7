package playlist

import (
	"context"
	"fmt"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/mosaek2/lepisong/internal/collection"
	"github.com/mosaek2/lepisong/internal/memstore"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, ev collection.Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

// busyBackend behaves like memstore but every mutation finds the scope taken.
type busyBackend struct {
	*memstore.Store
}

func (b busyBackend) Begin(_ context.Context, key string, _ time.Duration) (collection.Tx, error) {
	return nil, fmt.Errorf("collection %s: %w", key, collection.ErrBusy)
}

func newTestQueue(backend collection.Backend) (*Queue, *collection.Store) {
	store := collection.NewStore(backend, nil, nil, 100*time.Millisecond)
	q := NewQueue(store)
	if err := q.Ensure(context.Background()); err != nil {
		panic(err)
	}
	return q, store
}
