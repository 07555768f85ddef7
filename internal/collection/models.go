package collection

import (
	"time"

	"github.com/mosaek2/lepisong/internal/sequencer"
)

type Kind string

const (
	KindQueue    Kind = "queue"
	KindPlaylist Kind = "playlist"
)

// Collection is a named ordered set of items: the shared queue or one playlist.
type Collection struct {
	Key       string    `json:"id"`
	Kind      Kind      `json:"kind"`
	OwnerID   string    `json:"ownerId,omitempty"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Item is one entry of a collection. Position is owned by the Store; the other
// fields never change after creation.
type Item struct {
	ID            string    `json:"id"`
	CollectionKey string    `json:"collectionKey"`
	PayloadRef    string    `json:"videoId"`
	Position      int       `json:"position"`
	IsPriority    bool      `json:"isPriority"`
	AddedBy       string    `json:"addedBy"`
	AddedAt       time.Time `json:"addedAt"`
}

// NewItem carries what a caller supplies on insert.
type NewItem struct {
	PayloadRef string
	AddedBy    string
}

// Snapshot is the full ordered item list of a collection at one revision.
type Snapshot struct {
	CollectionKey string `json:"collectionKey"`
	Revision      int64  `json:"revision"`
	Items         []Item `json:"items"`
}

// Event is what subscribers receive after every committed mutation.
type Event struct {
	Type          string `json:"type"`
	CollectionKey string `json:"collectionKey"`
	Revision      int64  `json:"revision"`
	Items         []Item `json:"items"`
}

func entries(items []Item) []sequencer.Entry {
	out := make([]sequencer.Entry, len(items))
	for i, it := range items {
		out[i] = sequencer.Entry{ID: it.ID, Position: it.Position}
	}
	return out
}

// arrange lays items out in the order of next, taking positions from it.
// added is consulted for ids that are not in items.
func arrange(items []Item, next []sequencer.Entry, added ...Item) []Item {
	byID := make(map[string]Item, len(items)+len(added))
	for _, it := range items {
		byID[it.ID] = it
	}
	for _, it := range added {
		byID[it.ID] = it
	}

	out := make([]Item, 0, len(next))
	for _, e := range next {
		it := byID[e.ID]
		it.Position = e.Position
		out = append(out, it)
	}
	return out
}
