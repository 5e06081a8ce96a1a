package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/diagnostic-versions/internal/apperr"
	"github.com/sells-group/diagnostic-versions/internal/db"
	"github.com/sells-group/diagnostic-versions/internal/model"
)

const diagnosticColumns = `d.id, d.code, d.description, d.outcome_table_name, d.is_active, d.created_at, d.updated_at`

// DiagnosticColumns lists the scan order of diagnosticColumns, for tests.
var DiagnosticColumns = []string{"id", "code", "description", "outcome_table_name", "is_active", "created_at", "updated_at"}

func scanDiagnostic(row pgx.Row) (*model.Diagnostic, error) {
	var d model.Diagnostic
	if err := row.Scan(&d.ID, &d.Code, &d.Description, &d.OutcomeTableName, &d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDiagnostic loads a diagnostic by id.
func GetDiagnostic(ctx context.Context, q db.Querier, id int64) (*model.Diagnostic, error) {
	return getDiagnostic(ctx, q, `d.id = $1`, "", id)
}

// GetDiagnosticByCode loads a diagnostic by its unique code.
func GetDiagnosticByCode(ctx context.Context, q db.Querier, code string) (*model.Diagnostic, error) {
	return getDiagnostic(ctx, q, `d.code = $1`, "", code)
}

// LockDiagnostic takes the diagnostic row lock, which serializes the first
// activation of a diagnostic that has no pointer row yet.
func LockDiagnostic(ctx context.Context, q db.Querier, id int64) (*model.Diagnostic, error) {
	return getDiagnostic(ctx, q, `d.id = $1`, " FOR UPDATE", id)
}

func getDiagnostic(ctx context.Context, q db.Querier, where, suffix string, arg any) (*model.Diagnostic, error) {
	d, err := scanDiagnostic(q.QueryRow(ctx,
		`SELECT `+diagnosticColumns+` FROM diagnostics d WHERE `+where+suffix, arg))
	if noRows(err) {
		return nil, apperr.New(apperr.KindDiagnosticNotFound, fmt.Sprintf("diagnostic %v not found", arg))
	}
	if err != nil {
		return nil, eris.Wrapf(err, "store: get diagnostic %v", arg)
	}
	return d, nil
}

// ListDiagnostics returns diagnostics ordered by code; inactive ones only
// when includeInactive is set.
func ListDiagnostics(ctx context.Context, q db.Querier, includeInactive bool) ([]model.Diagnostic, error) {
	query := `SELECT ` + diagnosticColumns + ` FROM diagnostics d`
	if !includeInactive {
		query += ` WHERE d.is_active`
	}
	query += ` ORDER BY d.code`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "store: list diagnostics")
	}
	defer rows.Close()

	var out []model.Diagnostic
	for rows.Next() {
		d, err := scanDiagnostic(rows)
		if err != nil {
			return nil, eris.Wrap(err, "store: scan diagnostic")
		}
		out = append(out, *d)
	}
	return out, eris.Wrap(rows.Err(), "store: list diagnostics iterate")
}
