package playlist

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mosaek2/lepisong/internal/collection"
)

// Playlists manages user-owned playlists. Every operation expects callerID to
// be an already authenticated user id; only the owner may read or change a
// playlist.
type Playlists struct {
	store    *collection.Store
	notifier collection.Notifier
	log      *slog.Logger

	now   func() time.Time
	newID func() string
}

func NewPlaylists(store *collection.Store, notifier collection.Notifier, logger *slog.Logger) *Playlists {
	if notifier == nil {
		notifier = collection.NopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Playlists{
		store:    store,
		notifier: notifier,
		log:      logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func (p *Playlists) Create(ctx context.Context, ownerID, name string) (collection.Collection, error) {
	name, err := normalizeName(name)
	if err != nil {
		return collection.Collection{}, err
	}

	now := p.now().UTC()
	c := collection.Collection{
		Key:       p.newID(),
		Kind:      collection.KindPlaylist,
		OwnerID:   ownerID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.store.Backend().CreateCollection(ctx, c); err != nil {
		return collection.Collection{}, fmt.Errorf("create playlist: %w", err)
	}

	ev := collection.Event{Type: "playlist.created", CollectionKey: c.Key, Items: []collection.Item{}}
	if err := p.notifier.Notify(ctx, ev); err != nil {
		p.log.Warn("notify subscribers", "type", ev.Type, "collection", c.Key, "err", err)
	}
	return c, nil
}

// Mine lists the playlists owned by ownerID, newest first.
func (p *Playlists) Mine(ctx context.Context, ownerID string) ([]collection.Collection, error) {
	out, err := p.store.Backend().Collections(ctx, collection.KindPlaylist, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	if out == nil {
		out = []collection.Collection{}
	}
	return out, nil
}

func (p *Playlists) Get(ctx context.Context, callerID, id string) (Detail, error) {
	c, err := p.authorize(ctx, callerID, id)
	if err != nil {
		return Detail{}, err
	}
	snap, err := p.store.List(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Collection: c, Revision: snap.Revision, Items: snap.Items}, nil
}

func (p *Playlists) Rename(ctx context.Context, callerID, id, name string) (collection.Collection, error) {
	name, err := normalizeName(name)
	if err != nil {
		return collection.Collection{}, err
	}
	if _, err := p.authorize(ctx, callerID, id); err != nil {
		return collection.Collection{}, err
	}
	c, err := p.store.Backend().RenameCollection(ctx, id, name, p.now().UTC())
	if err != nil {
		return collection.Collection{}, fmt.Errorf("rename playlist %s: %w", id, err)
	}
	return c, nil
}

// Delete removes the playlist and its items in one unit of work.
func (p *Playlists) Delete(ctx context.Context, callerID, id string) error {
	if _, err := p.authorize(ctx, callerID, id); err != nil {
		return err
	}
	return p.store.Drop(ctx, id)
}

func (p *Playlists) AddVideo(ctx context.Context, callerID, id, videoID string) (collection.Snapshot, collection.Item, error) {
	ref, err := normalizeVideoID(videoID)
	if err != nil {
		return collection.Snapshot{}, collection.Item{}, err
	}
	if _, err := p.authorize(ctx, callerID, id); err != nil {
		return collection.Snapshot{}, collection.Item{}, err
	}
	return p.store.Append(ctx, id, collection.NewItem{PayloadRef: ref, AddedBy: callerID})
}

func (p *Playlists) RemoveVideo(ctx context.Context, callerID, id, itemID string) (collection.Snapshot, error) {
	if _, err := p.authorize(ctx, callerID, id); err != nil {
		return collection.Snapshot{}, err
	}
	return p.store.Remove(ctx, id, itemID)
}

func (p *Playlists) Move(ctx context.Context, callerID, id string, from, to int) (collection.Snapshot, error) {
	if _, err := p.authorize(ctx, callerID, id); err != nil {
		return collection.Snapshot{}, err
	}
	return p.store.Move(ctx, id, from, to)
}

// authorize loads the playlist and checks that callerID owns it. Ownership
// never changes, so the check stays valid for the mutation that follows; a
// concurrent delete surfaces as ErrNotFound from the store.
func (p *Playlists) authorize(ctx context.Context, callerID, id string) (collection.Collection, error) {
	c, err := p.store.Backend().Collection(ctx, id)
	if err != nil {
		return collection.Collection{}, fmt.Errorf("playlist %s: %w", id, err)
	}
	if c.Kind != collection.KindPlaylist {
		return collection.Collection{}, fmt.Errorf("playlist %s: %w", id, collection.ErrNotFound)
	}
	if c.OwnerID != callerID {
		return collection.Collection{}, fmt.Errorf("playlist %s: %w", id, ErrForbidden)
	}
	return c, nil
}
