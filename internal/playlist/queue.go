package playlist

import (
	"context"
	"errors"
	"time"

	"github.com/mosaek2/lepisong/internal/collection"
)

// QueueKey is the collection key of the shared queue.
const QueueKey = "queue"

// Queue is the single shared listening queue. Any signed-in user may change it.
type Queue struct {
	store *collection.Store
}

func NewQueue(store *collection.Store) *Queue {
	return &Queue{store: store}
}

// Ensure creates the queue collection on first start.
func (q *Queue) Ensure(ctx context.Context) error {
	now := time.Now().UTC()
	err := q.store.Backend().CreateCollection(ctx, collection.Collection{
		Key:       QueueKey,
		Kind:      collection.KindQueue,
		Name:      QueueKey,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil && !errors.Is(err, collection.ErrExists) {
		return err
	}
	return nil
}

func (q *Queue) List(ctx context.Context) (collection.Snapshot, error) {
	return q.store.List(ctx, QueueKey)
}

// Add puts payloadRef at the tail, or at the head when isPriority is set.
func (q *Queue) Add(ctx context.Context, payloadRef, submitterID string, isPriority bool) (collection.Snapshot, collection.Item, error) {
	ref, err := normalizeVideoID(payloadRef)
	if err != nil {
		return collection.Snapshot{}, collection.Item{}, err
	}

	in := collection.NewItem{PayloadRef: ref, AddedBy: submitterID}
	if isPriority {
		return q.store.PriorityInsert(ctx, QueueKey, in)
	}
	return q.store.Append(ctx, QueueKey, in)
}

func (q *Queue) Remove(ctx context.Context, itemID string) (collection.Snapshot, error) {
	return q.store.Remove(ctx, QueueKey, itemID)
}

func (q *Queue) Reorder(ctx context.Context, from, to int) (collection.Snapshot, error) {
	return q.store.Move(ctx, QueueKey, from, to)
}
