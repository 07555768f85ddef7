// Package sequencer computes position assignments for one ordered collection.
//
// Every function takes a list that is already contiguous (positions 1..N in
// slice order) and returns a fresh list that is contiguous again. Inputs are
// never modified.
package sequencer

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrOutOfRange = errors.New("position out of range")
)

// Entry is the part of an item the sequencer cares about.
type Entry struct {
	ID       string
	Position int
}

// Append places id after the last entry.
func Append(list []Entry, id string) []Entry {
	out := make([]Entry, 0, len(list)+1)
	out = append(out, list...)
	return append(out, Entry{ID: id, Position: len(list) + 1})
}

// PriorityInsert places id at position 1 and pushes every existing entry back
// by one. When two priority inserts race, the one committed last ends up first.
func PriorityInsert(list []Entry, id string) []Entry {
	out := make([]Entry, 0, len(list)+1)
	out = append(out, Entry{ID: id, Position: 1})
	for _, e := range list {
		out = append(out, Entry{ID: e.ID, Position: e.Position + 1})
	}
	return out
}

// Remove deletes id and closes the gap it leaves. Entries before it keep
// their positions.
func Remove(list []Entry, id string) ([]Entry, error) {
	idx := indexOf(list, id)
	if idx < 0 {
		return nil, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	removed := list[idx].Position

	out := make([]Entry, 0, len(list)-1)
	for i, e := range list {
		if i == idx {
			continue
		}
		if e.Position > removed {
			e.Position--
		}
		out = append(out, e)
	}
	return out, nil
}

// Move relocates the entry at from to to, shifting the entries in between by
// one toward the vacated slot. from == to is a successful no-op.
func Move(list []Entry, from, to int) ([]Entry, error) {
	n := len(list)
	if from < 1 || from > n || to < 1 || to > n {
		return nil, fmt.Errorf("move %d -> %d in %d items: %w", from, to, n, ErrOutOfRange)
	}

	out := make([]Entry, n)
	copy(out, list)
	if from == to {
		return out, nil
	}

	moved := out[from-1]
	if to > from {
		copy(out[from-1:to-1], out[from:to])
	} else {
		copy(out[to:from], out[to-1:from-1])
	}
	out[to-1] = moved

	for i := range out {
		out[i].Position = i + 1
	}
	return out, nil
}

// Validate reports why list is not a contiguous 1..N assignment, or nil.
func Validate(list []Entry) error {
	seen := make(map[string]struct{}, len(list))
	for i, e := range list {
		if e.Position != i+1 {
			return fmt.Errorf("entry %s at index %d has position %d, want %d", e.ID, i, e.Position, i+1)
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("entry %s appears twice", e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}

// Changed returns the entries of after that exist in before under a different
// position. New and removed ids are not reported.
func Changed(before, after []Entry) []Entry {
	prev := make(map[string]int, len(before))
	for _, e := range before {
		prev[e.ID] = e.Position
	}

	var out []Entry
	for _, e := range after {
		if p, ok := prev[e.ID]; ok && p != e.Position {
			out = append(out, e)
		}
	}
	return out
}

func indexOf(list []Entry, id string) int {
	for i, e := range list {
		if e.ID == id {
			return i
		}
	}
	return -1
}
