package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig defines the parameters for a single-row upsert.
type UpsertConfig struct {
	Table        string   // target table (e.g., "mst_ai_jobs")
	Columns      []string // all columns being inserted, in value order
	ConflictKeys []string // columns forming the unique constraint
	UpdateCols   []string // columns to update on conflict; nil = all non-conflict columns
	TouchCols    []string // columns set to now() on conflict (e.g., "updated_at")
}

// UpsertReturning inserts one row or updates the row that collides on the
// conflict keys, and reports the resulting id and whether a new row was
// inserted. The insert/update distinction comes from xmax, which is zero
// only for tuples created by the current statement.
func UpsertReturning(ctx context.Context, q Querier, cfg UpsertConfig, values []any) (int64, bool, error) {
	query, err := BuildUpsertSQL(cfg)
	if err != nil {
		return 0, false, err
	}
	if len(values) != len(cfg.Columns) {
		return 0, false, eris.Errorf("db: upsert: %d values for %d columns", len(values), len(cfg.Columns))
	}

	var id int64
	var inserted bool
	if err := q.QueryRow(ctx, query, values...).Scan(&id, &inserted); err != nil {
		return 0, false, eris.Wrapf(err, "db: upsert into %s", cfg.Table)
	}
	return id, inserted, nil
}

// BuildUpsertSQL renders INSERT ... ON CONFLICT (keys) DO UPDATE SET ...
// RETURNING id, (xmax = 0).
func BuildUpsertSQL(cfg UpsertConfig) (string, error) {
	if len(cfg.Columns) == 0 {
		return "", eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return "", eris.New("db: upsert: no conflict keys specified")
	}

	updateCols := cfg.UpdateCols
	if updateCols == nil {
		conflictSet := make(map[string]bool, len(cfg.ConflictKeys))
		for _, k := range cfg.ConflictKeys {
			conflictSet[k] = true
		}
		for _, c := range cfg.Columns {
			if !conflictSet[c] {
				updateCols = append(updateCols, c)
			}
		}
	}

	placeholders := make([]string, len(cfg.Columns))
	for i := range cfg.Columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	// With nothing to update, touch a conflict key so RETURNING still yields the row.
	setClauses := make([]string, 0, len(updateCols)+len(cfg.TouchCols)+1)
	for _, col := range updateCols {
		ident := pgx.Identifier{col}.Sanitize()
		setClauses = append(setClauses, fmt.Sprintf("%s = EXCLUDED.%s", ident, ident))
	}
	for _, col := range cfg.TouchCols {
		setClauses = append(setClauses, fmt.Sprintf("%s = now()", pgx.Identifier{col}.Sanitize()))
	}
	if len(setClauses) == 0 {
		ident := pgx.Identifier{cfg.ConflictKeys[0]}.Sanitize()
		setClauses = append(setClauses, fmt.Sprintf("%s = EXCLUDED.%s", ident, ident))
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s RETURNING id, (xmax = 0) AS inserted",
		sanitizeTable(cfg.Table),
		quoteAndJoin(cfg.Columns),
		strings.Join(placeholders, ", "),
		quoteAndJoin(cfg.ConflictKeys),
		strings.Join(setClauses, ", "),
	), nil
}

// sanitizeTable handles schema-qualified table names like "master.mst_ai_jobs".
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
