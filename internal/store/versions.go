package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/diagnostic-versions/internal/apperr"
	"github.com/sells-group/diagnostic-versions/internal/db"
	"github.com/sells-group/diagnostic-versions/internal/model"
)

const versionColumns = `v.id, v.diagnostic_id, v.name, v.description, v.system_prompt, v.note, v.src_hash,
	v.created_by_admin_id, v.updated_by_admin_id, v.finalized_by_admin_id, v.finalized_at,
	v.created_at, v.updated_at`

// VersionColumns lists the scan order of versionColumns, for tests.
var VersionColumns = []string{
	"id", "diagnostic_id", "name", "description", "system_prompt", "note", "src_hash",
	"created_by_admin_id", "updated_by_admin_id", "finalized_by_admin_id", "finalized_at",
	"created_at", "updated_at",
}

func scanVersion(row pgx.Row, extra ...any) (*model.Version, error) {
	var v model.Version
	dest := []any{
		&v.ID, &v.DiagnosticID, &v.Name, &v.Description, &v.SystemPrompt, &v.Note, &v.SrcHash,
		&v.CreatedBy, &v.UpdatedBy, &v.FinalizedBy, &v.FinalizedAt, &v.CreatedAt, &v.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &v, nil
}

// GetVersion loads a version without locking it.
func GetVersion(ctx context.Context, q db.Querier, id int64) (*model.Version, error) {
	return getVersion(ctx, q, id, "")
}

// LockVersion loads a version and takes its row lock for the rest of the
// transaction.
func LockVersion(ctx context.Context, q db.Querier, id int64) (*model.Version, error) {
	return getVersion(ctx, q, id, " FOR UPDATE")
}

func getVersion(ctx context.Context, q db.Querier, id int64, suffix string) (*model.Version, error) {
	v, err := scanVersion(q.QueryRow(ctx,
		`SELECT `+versionColumns+` FROM diagnostic_versions v WHERE v.id = $1`+suffix, id))
	if noRows(err) {
		return nil, apperr.New(apperr.KindVersionNotFound, fmt.Sprintf("version %d not found", id))
	}
	if err != nil {
		return nil, eris.Wrapf(err, "store: get version %d", id)
	}
	return v, nil
}

// NewVersion is the insert payload for a draft.
type NewVersion struct {
	DiagnosticID int64
	Name         string
	Description  *string
	SystemPrompt *string
	Note         *string
	ActorID      int64
	At           time.Time
}

// InsertVersion creates a draft. A duplicate (diagnostic_id, name) is
// reported as DuplicateVersionName.
func InsertVersion(ctx context.Context, q db.Querier, nv NewVersion) (*model.Version, error) {
	v, err := scanVersion(q.QueryRow(ctx,
		`INSERT INTO diagnostic_versions AS v
			(diagnostic_id, name, description, system_prompt, note,
			 created_by_admin_id, updated_by_admin_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $7, $7)
		RETURNING `+versionColumns,
		nv.DiagnosticID, nv.Name, nv.Description, nv.SystemPrompt, nv.Note, nv.ActorID, nv.At))
	if UniqueViolation(err, "uq_diagnostic_versions_name") {
		return nil, apperr.Wrap(err, apperr.KindDuplicateVersionName,
			fmt.Sprintf("version name %q already exists for diagnostic %d", nv.Name, nv.DiagnosticID))
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: insert version")
	}
	return v, nil
}

// UpdatePrompt sets the system prompt, optionally overwrites the note, and
// stamps the editor.
func UpdatePrompt(ctx context.Context, q db.Querier, id int64, prompt, note *string, actorID int64, at time.Time) (*model.Version, error) {
	v, err := scanVersion(q.QueryRow(ctx,
		`UPDATE diagnostic_versions AS v
		SET system_prompt = $2, note = COALESCE($3, v.note), updated_by_admin_id = $4, updated_at = $5
		WHERE v.id = $1
		RETURNING `+versionColumns,
		id, prompt, note, actorID, at))
	if err != nil {
		return nil, eris.Wrapf(err, "store: update prompt for version %d", id)
	}
	return v, nil
}

// MarkFinalized freezes a version.
func MarkFinalized(ctx context.Context, q db.Querier, id int64, srcHash string, actorID int64, at time.Time) error {
	_, err := q.Exec(ctx,
		`UPDATE diagnostic_versions
		SET src_hash = $2, finalized_by_admin_id = $3, finalized_at = $4, updated_by_admin_id = $3, updated_at = $4
		WHERE id = $1 AND src_hash IS NULL`,
		id, srcHash, actorID, at)
	return eris.Wrapf(err, "store: finalize version %d", id)
}

// TouchVersion stamps the last editor.
func TouchVersion(ctx context.Context, q db.Querier, id, actorID int64, at time.Time) error {
	_, err := q.Exec(ctx,
		`UPDATE diagnostic_versions SET updated_by_admin_id = $2, updated_at = $3 WHERE id = $1`,
		id, actorID, at)
	return eris.Wrapf(err, "store: touch version %d", id)
}

// VersionFilter narrows ListVersions.
type VersionFilter struct {
	DiagnosticID int64
	Status       model.VersionStatus // empty = all
	Limit        int                 // 0 = 1000
}

// VersionListItem is a version row with its derived flags.
type VersionListItem struct {
	model.Version
	IsActive bool
}

// ListVersions returns finalized versions before drafts, then most
// recently updated first.
func ListVersions(ctx context.Context, q db.Querier, f VersionFilter) ([]VersionListItem, error) {
	query := `SELECT ` + versionColumns + `, (av.version_id IS NOT NULL) AS is_active
		FROM diagnostic_versions v
		LEFT JOIN cfg_active_versions av ON av.diagnostic_id = v.diagnostic_id AND av.version_id = v.id
		WHERE v.diagnostic_id = $1`
	switch f.Status {
	case model.VersionStatusDraft:
		query += ` AND v.src_hash IS NULL`
	case model.VersionStatusFinalized:
		query += ` AND v.src_hash IS NOT NULL`
	}
	query += ` ORDER BY (v.src_hash IS NULL), v.updated_at DESC, v.id DESC LIMIT $2`

	limit := f.Limit
	if limit <= 0 {
		limit = 1000
	}

	rows, err := q.Query(ctx, query, f.DiagnosticID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "store: list versions")
	}
	defer rows.Close()

	var out []VersionListItem
	for rows.Next() {
		var active bool
		v, err := scanVersion(rows, &active)
		if err != nil {
			return nil, eris.Wrap(err, "store: scan version")
		}
		out = append(out, VersionListItem{Version: *v, IsActive: active})
	}
	return out, eris.Wrap(rows.Err(), "store: list versions iterate")
}

// LatestDraftID returns the newest draft of a diagnostic, or 0.
func LatestDraftID(ctx context.Context, q db.Querier, diagnosticID int64) (int64, error) {
	var id int64
	err := q.QueryRow(ctx,
		`SELECT id FROM diagnostic_versions WHERE diagnostic_id = $1 AND src_hash IS NULL ORDER BY id DESC LIMIT 1`,
		diagnosticID).Scan(&id)
	if noRows(err) {
		return 0, nil
	}
	return id, eris.Wrapf(err, "store: latest draft for diagnostic %d", diagnosticID)
}
