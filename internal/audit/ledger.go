// Package audit is the append-only version ledger. Every mutation goes
// through Ledger.Mutate so the change and its log entry commit together.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/diagnostic-versions/internal/db"
	"github.com/sells-group/diagnostic-versions/internal/model"
)

// MutateFunc performs a mutation inside tx and returns the entry that
// describes it.
type MutateFunc func(ctx context.Context, tx pgx.Tx) (*model.AuditEntry, error)

// Ledger runs mutations and records them.
type Ledger struct {
	pool db.Pool
	now  func() time.Time
}

// NewLedger creates a Ledger on pool. A nil now uses time.Now in UTC.
func NewLedger(pool db.Pool, now func() time.Time) *Ledger {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Ledger{pool: pool, now: now}
}

// Now is the ledger clock; services stamp their rows with it so row times
// and entry times agree.
func (l *Ledger) Now() time.Time {
	return l.now()
}

// Mutate runs fn in one transaction and appends the entry it returns before
// committing. If fn fails, or returns no entry, nothing is written.
func (l *Ledger) Mutate(ctx context.Context, fn MutateFunc) error {
	return db.InTx(ctx, l.pool, func(tx pgx.Tx) error {
		entry, err := fn(ctx, tx)
		if err != nil {
			return err
		}
		if entry == nil {
			return eris.New("audit: mutation returned no entry")
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = l.now()
		}
		id, err := Append(ctx, tx, entry)
		if err != nil {
			return err
		}
		entry.ID = id
		return nil
	})
}

// Append inserts one entry and returns its id.
func Append(ctx context.Context, q db.Querier, e *model.AuditEntry) (int64, error) {
	oldValue, err := Encode(e.OldValue)
	if err != nil {
		return 0, err
	}
	newValue, err := Encode(e.NewValue)
	if err != nil {
		return 0, err
	}

	var id int64
	err = q.QueryRow(ctx,
		`INSERT INTO aud_diagnostic_version_logs
			(version_id, actor_id, action, field_name, old_value, new_value, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		e.VersionID, e.ActorID, string(e.Action), e.FieldName, oldValue, newValue, e.Note, e.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "audit: append %s for version %d", e.Action, e.VersionID)
	}
	return id, nil
}

// Encode renders a payload for the old_value/new_value columns: nil stays
// NULL, strings pass through, maps and slices become sorted-key JSON.
func Encode(v any) (*string, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return &x, nil
	case *string:
		return x, nil
	case map[string]any, []any, []string:
		b, err := json.Marshal(x)
		if err != nil {
			return nil, eris.Wrap(err, "audit: encode payload")
		}
		s := string(b)
		return &s, nil
	default:
		s := fmt.Sprint(x)
		return &s, nil
	}
}
