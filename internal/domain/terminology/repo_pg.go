package terminology

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates a PostgreSQL-backed terminology repository.
func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) ReplaceSystem(ctx context.Context, system string, codes []*ClinicalCode) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace %s: %w", system, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM clinical_codes WHERE system = $1`, system); err != nil {
		return fmt.Errorf("clear %s: %w", system, err)
	}

	rows := make([][]interface{}, 0, len(codes))
	for _, c := range codes {
		rows = append(rows, []interface{}{c.System, c.Code, c.Display, c.NormalizedCode, c.NormalizedDisplay})
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"clinical_codes"},
		[]string{"system", "code", "display", "normalized_code", "normalized_display"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy %s codes: %w", system, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace %s: %w", system, err)
	}
	return nil
}

func (r *repoPG) ListBySystem(ctx context.Context, system string) ([]*ClinicalCode, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT system, code, display, normalized_code, normalized_display
		 FROM clinical_codes WHERE system = $1 ORDER BY code`, system)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", system, err)
	}
	defer rows.Close()
	return scanCodes(rows)
}

func (r *repoPG) Search(ctx context.Context, codeQuery, textQuery string, limit int) ([]*ClinicalCode, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx,
		`SELECT system, code, display, normalized_code, normalized_display
		 FROM clinical_codes
		 WHERE ($1 <> '' AND normalized_code LIKE '%' || $1 || '%')
		    OR ($2 <> '' AND normalized_display LIKE '%' || $2 || '%')
		 ORDER BY system, code LIMIT $3`, codeQuery, textQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("terminology search: %w", err)
	}
	defer rows.Close()
	return scanCodes(rows)
}

func scanCodes(rows pgx.Rows) ([]*ClinicalCode, error) {
	var results []*ClinicalCode
	for rows.Next() {
		var c ClinicalCode
		if err := rows.Scan(&c.System, &c.Code, &c.Display, &c.NormalizedCode, &c.NormalizedDisplay); err != nil {
			return nil, err
		}
		results = append(results, &c)
	}
	return results, rows.Err()
}
