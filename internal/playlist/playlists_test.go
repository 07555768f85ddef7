package playlist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mosaek2/lepisong/internal/collection"
	"github.com/mosaek2/lepisong/internal/memstore"
)

func newTestPlaylists(t *testing.T) (*Playlists, *MockNotifier) {
	t.Helper()
	n := new(MockNotifier)
	store := collection.NewStore(memstore.New(), n, nil, 100*time.Millisecond)
	return NewPlaylists(store, n, nil), n
}

func TestPlaylists_Lifecycle(t *testing.T) {
	ctx := context.Background()
	p, n := newTestPlaylists(t)
	n.On("Notify", mock.Anything, mock.Anything).Return(nil)

	pl, err := p.Create(ctx, "owner", "  Road trip ")
	require.NoError(t, err)
	assert.Equal(t, "Road trip", pl.Name)
	assert.Equal(t, collection.KindPlaylist, pl.Kind)
	n.AssertCalled(t, "Notify", mock.Anything, mock.MatchedBy(func(ev collection.Event) bool {
		return ev.Type == "playlist.created" && ev.CollectionKey == pl.Key
	}))

	_, v1, err := p.AddVideo(ctx, "owner", pl.Key, "v1")
	require.NoError(t, err)
	_, _, err = p.AddVideo(ctx, "owner", pl.Key, "v2")
	require.NoError(t, err)
	snap, err := p.Move(ctx, "owner", pl.Key, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"v2", "v1"}, payloads(snap.Items))

	snap, err = p.RemoveVideo(ctx, "owner", pl.Key, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"v2"}, payloads(snap.Items))

	renamed, err := p.Rename(ctx, "owner", pl.Key, "Night drive")
	require.NoError(t, err)
	assert.Equal(t, "Night drive", renamed.Name)

	d, err := p.Get(ctx, "owner", pl.Key)
	require.NoError(t, err)
	assert.Equal(t, "Night drive", d.Name)
	assert.Equal(t, int64(4), d.Revision)
	assert.Len(t, d.Items, 1)

	mine, err := p.Mine(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, mine, 1)

	require.NoError(t, p.Delete(ctx, "owner", pl.Key))
	n.AssertCalled(t, "Notify", mock.Anything, mock.MatchedBy(func(ev collection.Event) bool {
		return ev.Type == "playlist.deleted" && ev.CollectionKey == pl.Key
	}))

	_, err = p.Get(ctx, "owner", pl.Key)
	assert.ErrorIs(t, err, collection.ErrNotFound)
	mine, err = p.Mine(ctx, "owner")
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestPlaylists_OwnerOnly(t *testing.T) {
	ctx := context.Background()
	p, n := newTestPlaylists(t)
	n.On("Notify", mock.Anything, mock.Anything).Return(nil)

	pl, err := p.Create(ctx, "owner", "mine")
	require.NoError(t, err)

	_, err = p.Get(ctx, "intruder", pl.Key)
	assert.ErrorIs(t, err, ErrForbidden)
	_, _, err = p.AddVideo(ctx, "intruder", pl.Key, "v1")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = p.RemoveVideo(ctx, "intruder", pl.Key, "x")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = p.Move(ctx, "intruder", pl.Key, 1, 1)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = p.Rename(ctx, "intruder", pl.Key, "theirs")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, p.Delete(ctx, "intruder", pl.Key), ErrForbidden)

	d, err := p.Get(ctx, "owner", pl.Key)
	require.NoError(t, err)
	assert.Equal(t, "mine", d.Name)
	assert.Empty(t, d.Items)

	mine, err := p.Mine(ctx, "intruder")
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestPlaylists_QueueIsNotAPlaylist(t *testing.T) {
	ctx := context.Background()
	n := new(MockNotifier)
	n.On("Notify", mock.Anything, mock.Anything).Return(nil)
	_, store := newTestQueue(memstore.New())
	p := NewPlaylists(store, n, nil)

	_, err := p.Get(ctx, "", QueueKey)
	assert.ErrorIs(t, err, collection.ErrNotFound)
	assert.ErrorIs(t, p.Delete(ctx, "", QueueKey), collection.ErrNotFound)
}

func TestPlaylists_Validation(t *testing.T) {
	ctx := context.Background()
	p, n := newTestPlaylists(t)
	n.On("Notify", mock.Anything, mock.Anything).Return(nil)

	_, err := p.Create(ctx, "owner", "   ")
	assert.ErrorIs(t, err, ErrInvalid)
	n.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)

	pl, err := p.Create(ctx, "owner", "ok")
	require.NoError(t, err)
	_, _, err = p.AddVideo(ctx, "owner", pl.Key, "")
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = p.Move(ctx, "owner", pl.Key, 1, 1)
	assert.ErrorIs(t, err, collection.ErrOutOfRange)
	_, _, err = p.AddVideo(ctx, "owner", "nope", "v1")
	assert.ErrorIs(t, err, collection.ErrNotFound)
}

func TestPlaylists_CreateSurvivesNotifierFailure(t *testing.T) {
	ctx := context.Background()
	p, n := newTestPlaylists(t)
	n.On("Notify", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	pl, err := p.Create(ctx, "owner", "still here")
	require.NoError(t, err)

	d, err := p.Get(ctx, "owner", pl.Key)
	require.NoError(t, err)
	assert.Equal(t, "still here", d.Name)
}
