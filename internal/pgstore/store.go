// Package pgstore keeps collections in PostgreSQL. The per-collection scope is
// a row lock on the collection, so any number of service instances can share
// one database.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mosaek2/lepisong/internal/collection"
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	codeLockNotAvailable = "55P03"
	codeUniqueViolation  = "23505"
)

type Store struct {
	db DB
}

var _ collection.Backend = (*Store)(nil)

func New(db DB) *Store {
	return &Store{db: db}
}

const selectCollection = `
	SELECT id, kind, owner_id, name, revision, created_at, updated_at
	FROM collections
`

func (s *Store) Begin(ctx context.Context, key string, wait time.Duration) (collection.Tx, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}

	if wait > 0 {
		if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`,
			fmt.Sprintf("%dms", wait.Milliseconds())); err != nil {
			_ = tx.Rollback(ctx)
			return nil, fmt.Errorf("set lock timeout: %w", err)
		}
	}

	var c collection.Collection
	var revision int64
	err = tx.QueryRow(ctx, selectCollection+`WHERE id = $1 FOR UPDATE`, key).Scan(
		&c.Key, &c.Kind, &c.OwnerID, &c.Name, &revision, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		_ = tx.Rollback(ctx)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("collection %s: %w", key, collection.ErrNotFound)
		}
		if isCode(err, codeLockNotAvailable) {
			return nil, collection.ErrBusy
		}
		return nil, fmt.Errorf("lock collection: %w", err)
	}

	return &txn{tx: tx, coll: c, revision: revision}, nil
}

// Snapshot reads revision and items in one repeatable-read transaction so the
// pair is consistent. Plain reads never wait on row locks.
func (s *Store) Snapshot(ctx context.Context, key string) (collection.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return collection.Snapshot{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	snap := collection.Snapshot{CollectionKey: key}
	err = tx.QueryRow(ctx, `SELECT revision FROM collections WHERE id = $1`, key).Scan(&snap.Revision)
	if errors.Is(err, pgx.ErrNoRows) {
		return collection.Snapshot{}, fmt.Errorf("collection %s: %w", key, collection.ErrNotFound)
	}
	if err != nil {
		return collection.Snapshot{}, fmt.Errorf("load revision: %w", err)
	}

	snap.Items, err = loadItems(ctx, tx, key)
	if err != nil {
		return collection.Snapshot{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return collection.Snapshot{}, fmt.Errorf("commit read: %w", err)
	}
	return snap, nil
}

func (s *Store) CreateCollection(ctx context.Context, c collection.Collection) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO collections (id, kind, owner_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.Key, string(c.Kind), c.OwnerID, c.Name, c.CreatedAt, c.UpdatedAt)
	if isCode(err, codeUniqueViolation) {
		return fmt.Errorf("collection %s: %w", c.Key, collection.ErrExists)
	}
	if err != nil {
		return fmt.Errorf("insert collection: %w", err)
	}
	return nil
}

func (s *Store) Collection(ctx context.Context, key string) (collection.Collection, error) {
	var c collection.Collection
	var revision int64
	err := s.db.QueryRow(ctx, selectCollection+`WHERE id = $1`, key).Scan(
		&c.Key, &c.Kind, &c.OwnerID, &c.Name, &revision, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return collection.Collection{}, fmt.Errorf("collection %s: %w", key, collection.ErrNotFound)
	}
	if err != nil {
		return collection.Collection{}, fmt.Errorf("load collection: %w", err)
	}
	return c, nil
}

func (s *Store) Collections(ctx context.Context, kind collection.Kind, ownerID string) ([]collection.Collection, error) {
	rows, err := s.db.Query(ctx, selectCollection+`
		WHERE kind = $1 AND ($2 = '' OR owner_id = $2)
		ORDER BY created_at DESC, id ASC
		LIMIT 200
	`, string(kind), ownerID)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	out := []collection.Collection{}
	for rows.Next() {
		var c collection.Collection
		var revision int64
		if err := rows.Scan(&c.Key, &c.Kind, &c.OwnerID, &c.Name, &revision, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list collections rows: %w", err)
	}
	return out, nil
}

func (s *Store) RenameCollection(ctx context.Context, key, name string, at time.Time) (collection.Collection, error) {
	var c collection.Collection
	var revision int64
	err := s.db.QueryRow(ctx, `
		UPDATE collections
		SET name = $2, updated_at = $3
		WHERE id = $1
		RETURNING id, kind, owner_id, name, revision, created_at, updated_at
	`, key, name, at).Scan(&c.Key, &c.Kind, &c.OwnerID, &c.Name, &revision, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return collection.Collection{}, fmt.Errorf("collection %s: %w", key, collection.ErrNotFound)
	}
	if err != nil {
		return collection.Collection{}, fmt.Errorf("rename collection: %w", err)
	}
	return c, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadItems(ctx context.Context, q querier, key string) ([]collection.Item, error) {
	rows, err := q.Query(ctx, `
		SELECT id::text, collection_key, payload_ref, position, is_priority, added_by, added_at
		FROM collection_items
		WHERE collection_key = $1
		ORDER BY position ASC
	`, key)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	defer rows.Close()

	items := []collection.Item{}
	for rows.Next() {
		var it collection.Item
		if err := rows.Scan(&it.ID, &it.CollectionKey, &it.PayloadRef, &it.Position,
			&it.IsPriority, &it.AddedBy, &it.AddedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load items rows: %w", err)
	}
	return items, nil
}

func isCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
