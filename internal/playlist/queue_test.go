package playlist

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaek2/lepisong/internal/collection"
	"github.com/mosaek2/lepisong/internal/memstore"
)

func payloads(items []collection.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.PayloadRef
	}
	return out
}

func TestQueue_AddPriorityRemoveReorder(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(memstore.New())

	_, a, err := q.Add(ctx, "A", "u1", false)
	require.NoError(t, err)
	_, _, err = q.Add(ctx, "B", "u1", false)
	require.NoError(t, err)
	snap, c, err := q.Add(ctx, " C ", "u2", true)
	require.NoError(t, err)

	assert.Equal(t, []string{"C", "A", "B"}, payloads(snap.Items))
	assert.Equal(t, 1, c.Position)
	assert.True(t, c.IsPriority)
	assert.Equal(t, "u2", c.AddedBy)

	snap, err = q.Remove(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B"}, payloads(snap.Items))

	snap, err = q.Reorder(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, payloads(snap.Items))
	for i, it := range snap.Items {
		assert.Equal(t, i+1, it.Position)
	}

	listed, err := q.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap, listed)
}

func TestQueue_EnsureIsIdempotent(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(memstore.New())

	_, _, err := q.Add(ctx, "A", "u1", false)
	require.NoError(t, err)
	require.NoError(t, q.Ensure(ctx))

	snap, err := q.List(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Items, 1)
}

func TestQueue_Errors(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(memstore.New())

	_, _, err := q.Add(ctx, "   ", "u1", false)
	assert.ErrorIs(t, err, ErrInvalid)
	_, _, err = q.Add(ctx, strings.Repeat("x", 65), "u1", false)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = q.Remove(ctx, "missing")
	assert.ErrorIs(t, err, collection.ErrNotFound)

	_, err = q.Reorder(ctx, 1, 1)
	assert.ErrorIs(t, err, collection.ErrOutOfRange)

	snap, err := q.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), snap.Revision)
}
