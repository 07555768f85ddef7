package playlist

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mosaek2/lepisong/internal/collection"
)

const (
	maxNameLen    = 200
	maxVideoIDLen = 64
)

// Detail is a playlist together with its current items.
type Detail struct {
	collection.Collection
	Revision int64             `json:"revision"`
	Items    []collection.Item `json:"items"`
}

type addedItem struct {
	Item     collection.Item     `json:"item"`
	Snapshot collection.Snapshot `json:"snapshot"`
}

func normalizeVideoID(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" || utf8.RuneCountInString(v) > maxVideoIDLen {
		return "", fmt.Errorf("%w: videoId must be between 1 and %d characters", ErrInvalid, maxVideoIDLen)
	}
	return v, nil
}

func normalizeName(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" || utf8.RuneCountInString(v) > maxNameLen {
		return "", fmt.Errorf("%w: name must be between 1 and %d characters", ErrInvalid, maxNameLen)
	}
	return v, nil
}
