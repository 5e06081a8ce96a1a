package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/diagnostic-versions/internal/db"
	"github.com/sells-group/diagnostic-versions/internal/model"
)

// LastAction is the newest ledger entry of one action for a version.
type LastAction struct {
	At      time.Time
	ActorID int64
}

// LatestAction returns the newest entry for (version, action), or nil.
func LatestAction(ctx context.Context, q db.Querier, versionID int64, action model.AuditAction) (*LastAction, error) {
	var la LastAction
	err := q.QueryRow(ctx,
		`SELECT created_at, actor_id FROM aud_diagnostic_version_logs
		WHERE version_id = $1 AND action = $2 ORDER BY created_at DESC, id DESC LIMIT 1`,
		versionID, string(action),
	).Scan(&la.At, &la.ActorID)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "store: latest %s for version %d", action, versionID)
	}
	return &la, nil
}

// AuditEntries lists a version's ledger oldest first.
func AuditEntries(ctx context.Context, q db.Querier, versionID int64) ([]model.AuditEntry, error) {
	rows, err := q.Query(ctx,
		`SELECT id, version_id, actor_id, action, field_name, old_value, new_value, note, created_at
		FROM aud_diagnostic_version_logs WHERE version_id = $1 ORDER BY created_at, id`,
		versionID)
	if err != nil {
		return nil, eris.Wrap(err, "store: audit entries")
	}
	defer rows.Close()

	var out []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var action string
		var oldValue, newValue *string
		if err := rows.Scan(&e.ID, &e.VersionID, &e.ActorID, &action, &e.FieldName,
			&oldValue, &newValue, &e.Note, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "store: scan audit entry")
		}
		e.Action = model.AuditAction(action)
		if oldValue != nil {
			e.OldValue = *oldValue
		}
		if newValue != nil {
			e.NewValue = *newValue
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "store: audit entries iterate")
}
