package tags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates a PostgreSQL-backed tag repository.
func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) Upsert(ctx context.Context, key string, def *TagDefinition) error {
	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("encode tag %s: %w", key, err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO tag_definitions (key, definition, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE SET definition = EXCLUDED.definition, updated_at = NOW()`,
		key, data)
	if err != nil {
		return fmt.Errorf("upsert tag %s: %w", key, err)
	}
	return nil
}

func (r *repoPG) Get(ctx context.Context, key string) (*TagDefinition, error) {
	var data []byte
	err := r.pool.QueryRow(ctx,
		`SELECT definition FROM tag_definitions WHERE key = $1`, key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tag %s: %w", key, err)
	}
	return DecodeDefinition(data)
}

func (r *repoPG) Delete(ctx context.Context, key string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM tag_definitions WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete tag %s: %w", key, err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*TagDefinition, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tag_definitions`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tags: %w", err)
	}
	rows, err := r.pool.Query(ctx,
		`SELECT definition FROM tag_definitions ORDER BY key LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()
	defs, err := scanDefinitions(rows)
	return defs, total, err
}

func (r *repoPG) ListAll(ctx context.Context) ([]*TagDefinition, error) {
	rows, err := r.pool.Query(ctx, `SELECT definition FROM tag_definitions ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()
	return scanDefinitions(rows)
}

func (r *repoPG) LoadLegacy(ctx context.Context) ([]*LegacyTag, error) {
	var data []byte
	err := r.pool.QueryRow(ctx, `SELECT data FROM legacy_tags WHERE id = 1`).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load legacy tags: %w", err)
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode legacy tags: %w", err)
	}
	var legacy []*LegacyTag
	for _, entry := range raw {
		_, l, err := DecodeAny(entry)
		if err != nil {
			return nil, err
		}
		if l != nil {
			legacy = append(legacy, l)
		}
	}
	return legacy, nil
}

func (r *repoPG) ClearLegacy(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM legacy_tags WHERE id = 1`); err != nil {
		return fmt.Errorf("clear legacy tags: %w", err)
	}
	return nil
}

func scanDefinitions(rows pgx.Rows) ([]*TagDefinition, error) {
	var defs []*TagDefinition
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		def, err := DecodeDefinition(data)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}
