package pgstore

import (
	"context"
	"fmt"
)

// AutoMigrate creates the tables the store needs. It is safe to run on every start.
func AutoMigrate(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS collections (
          id          TEXT PRIMARY KEY,
          kind        TEXT NOT NULL,
          owner_id    TEXT NOT NULL DEFAULT '',
          name        TEXT NOT NULL,
          revision    BIGINT NOT NULL DEFAULT 0,
          created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
          updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
      )
    `); err != nil {
		return fmt.Errorf("migrate collections: %w", err)
	}

	// Items are never cascaded away: dropping a collection deletes them explicitly.
	if _, err := db.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS collection_items (
          id             uuid PRIMARY KEY,
          collection_key TEXT NOT NULL REFERENCES collections(id),
          payload_ref    TEXT NOT NULL,
          position       INT NOT NULL,
          is_priority    BOOLEAN NOT NULL DEFAULT FALSE,
          added_by       TEXT NOT NULL DEFAULT '',
          added_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
          CONSTRAINT collection_items_position_key
              UNIQUE (collection_key, position) DEFERRABLE INITIALLY DEFERRED
      )
    `); err != nil {
		return fmt.Errorf("migrate collection_items: %w", err)
	}

	if _, err := db.Exec(ctx, `
      CREATE INDEX IF NOT EXISTS idx_collections_kind_owner
      ON collections(kind, owner_id, created_at DESC)
    `); err != nil {
		return fmt.Errorf("migrate collections index: %w", err)
	}

	return nil
}
