package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/diagnostic-versions/internal/db"
	"github.com/sells-group/diagnostic-versions/internal/model"
)

// LockActivePointer returns the diagnostic's pointer row under lock, or nil
// when the diagnostic has never been activated.
func LockActivePointer(ctx context.Context, q db.Querier, diagnosticID int64) (*model.ActivePointer, error) {
	var p model.ActivePointer
	err := q.QueryRow(ctx,
		`SELECT id, diagnostic_id, version_id, created_by_admin_id, updated_by_admin_id, created_at, updated_at
		FROM cfg_active_versions WHERE diagnostic_id = $1 FOR UPDATE`,
		diagnosticID,
	).Scan(&p.ID, &p.DiagnosticID, &p.VersionID, &p.CreatedBy, &p.UpdatedBy, &p.CreatedAt, &p.UpdatedAt)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "store: lock active pointer for diagnostic %d", diagnosticID)
	}
	return &p, nil
}

// SetActivePointer creates or repoints the diagnostic's single pointer row.
func SetActivePointer(ctx context.Context, q db.Querier, diagnosticID, versionID, actorID int64, at time.Time) (*model.ActivePointer, error) {
	var p model.ActivePointer
	err := q.QueryRow(ctx,
		`INSERT INTO cfg_active_versions
			(diagnostic_id, version_id, created_by_admin_id, updated_by_admin_id, created_at, updated_at)
		VALUES ($1, $2, $3, $3, $4, $4)
		ON CONFLICT (diagnostic_id) DO UPDATE
		SET version_id = EXCLUDED.version_id, updated_by_admin_id = EXCLUDED.updated_by_admin_id, updated_at = EXCLUDED.updated_at
		RETURNING id, diagnostic_id, version_id, created_by_admin_id, updated_by_admin_id, created_at, updated_at`,
		diagnosticID, versionID, actorID, at,
	).Scan(&p.ID, &p.DiagnosticID, &p.VersionID, &p.CreatedBy, &p.UpdatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "store: set active pointer for diagnostic %d", diagnosticID)
	}
	return &p, nil
}

// ActiveVersionID returns the active version of a diagnostic, or 0.
func ActiveVersionID(ctx context.Context, q db.Querier, diagnosticID int64) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `SELECT version_id FROM cfg_active_versions WHERE diagnostic_id = $1`, diagnosticID).Scan(&id)
	if noRows(err) {
		return 0, nil
	}
	return id, eris.Wrapf(err, "store: active version for diagnostic %d", diagnosticID)
}

// ActiveSlot is one diagnostic with its active version, if any.
type ActiveSlot struct {
	DiagnosticID   int64
	DiagnosticCode string
	Description    *string
	VersionID      *int64
	VersionName    *string
	SrcHash        *string
	ActivatedAt    *time.Time
	ActivatedBy    *int64
}

// ActiveSlotFilter selects by id or code; zero values mean all.
type ActiveSlotFilter struct {
	DiagnosticID int64
	Code         string
}

// ListActiveSlots joins every matching diagnostic to its pointer and the
// pointed-at version.
func ListActiveSlots(ctx context.Context, q db.Querier, f ActiveSlotFilter) ([]ActiveSlot, error) {
	query := `SELECT d.id, d.code, d.description, av.version_id, v.name, v.src_hash, av.updated_at, av.updated_by_admin_id
		FROM diagnostics d
		LEFT JOIN cfg_active_versions av ON av.diagnostic_id = d.id
		LEFT JOIN diagnostic_versions v ON v.id = av.version_id`
	var args []any
	switch {
	case f.DiagnosticID > 0:
		query += ` WHERE d.id = $1`
		args = append(args, f.DiagnosticID)
	case f.Code != "":
		query += ` WHERE d.code = $1`
		args = append(args, f.Code)
	}
	query += ` ORDER BY d.code`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: list active slots")
	}
	defer rows.Close()

	var out []ActiveSlot
	for rows.Next() {
		var s ActiveSlot
		if err := rows.Scan(&s.DiagnosticID, &s.DiagnosticCode, &s.Description, &s.VersionID,
			&s.VersionName, &s.SrcHash, &s.ActivatedAt, &s.ActivatedBy); err != nil {
			return nil, eris.Wrap(err, "store: scan active slot")
		}
		out = append(out, s)
	}
	return out, eris.Wrap(rows.Err(), "store: list active slots iterate")
}
