package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mosaek2/lepisong/internal/collection"
	"github.com/mosaek2/lepisong/internal/sequencer"
)

// txn holds the row lock on one collection until Commit or Rollback.
type txn struct {
	tx       pgx.Tx
	coll     collection.Collection
	revision int64
	dropped  bool
	done     bool
}

func (t *txn) Collection() collection.Collection { return t.coll }

func (t *txn) Items(ctx context.Context) ([]collection.Item, error) {
	return loadItems(ctx, t.tx, t.coll.Key)
}

func (t *txn) Insert(ctx context.Context, it collection.Item) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO collection_items (
			id, collection_key, payload_ref, position, is_priority, added_by, added_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, it.ID, t.coll.Key, it.PayloadRef, it.Position, it.IsPriority, it.AddedBy, it.AddedAt)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (t *txn) Delete(ctx context.Context, itemID string) error {
	tag, err := t.tx.Exec(ctx, `
		DELETE FROM collection_items
		WHERE id = $1::uuid AND collection_key = $2
	`, itemID, t.coll.Key)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %s: %w", itemID, collection.ErrNotFound)
	}
	return nil
}

// SetPositions writes all changes in one statement; the unique constraint on
// (collection_key, position) is deferred to commit.
func (t *txn) SetPositions(ctx context.Context, changes []sequencer.Entry) error {
	if len(changes) == 0 {
		return nil
	}
	ids := make([]string, len(changes))
	positions := make([]int32, len(changes))
	for i, c := range changes {
		ids[i] = c.ID
		positions[i] = int32(c.Position)
	}

	tag, err := t.tx.Exec(ctx, `
		UPDATE collection_items AS ci
		SET position = c.position
		FROM unnest($2::text[], $3::int[]) AS c(id, position)
		WHERE ci.collection_key = $1 AND ci.id = c.id::uuid
	`, t.coll.Key, ids, positions)
	if err != nil {
		return fmt.Errorf("update positions: %w", err)
	}
	if n := tag.RowsAffected(); n != int64(len(changes)) {
		return fmt.Errorf("update positions: %d of %d rows matched", n, len(changes))
	}
	return nil
}

func (t *txn) DropCollection(ctx context.Context) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM collection_items WHERE collection_key = $1`, t.coll.Key); err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM collections WHERE id = $1`, t.coll.Key); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	t.dropped = true
	return nil
}

func (t *txn) Commit(ctx context.Context) (int64, error) {
	if t.done {
		return 0, errors.New("pgstore: transaction already finished")
	}

	revision := t.revision + 1
	if !t.dropped {
		err := t.tx.QueryRow(ctx, `
			UPDATE collections
			SET revision = revision + 1
			WHERE id = $1
			RETURNING revision
		`, t.coll.Key).Scan(&revision)
		if err != nil {
			return 0, fmt.Errorf("bump revision: %w", err)
		}
	}

	if err := t.tx.Commit(ctx); err != nil {
		t.done = true
		return 0, fmt.Errorf("commit: %w", err)
	}
	t.done = true
	return revision, nil
}

func (t *txn) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Rollback(ctx)
}
