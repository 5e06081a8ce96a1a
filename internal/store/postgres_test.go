package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/diagnostic-versions/internal/apperr"
	"github.com/sells-group/diagnostic-versions/internal/model"
)

var t0 = time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return mock
}

func strPtr(s string) *string { return &s }

func versionRow(id, diagnosticID int64, name string, srcHash *string) []any {
	return []any{
		id, diagnosticID, name, (*string)(nil), (*string)(nil), (*string)(nil), srcHash,
		int64(1), int64(1), (*int64)(nil), (*time.Time)(nil), t0, t0,
	}
}

func TestPostgresStore_MigrateAndPing(t *testing.T) {
	mock := newMock(t)
	s := NewWithPool(mock)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS diagnostics`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`SELECT 1`).WillReturnResult(pgxmock.NewResult("SELECT", 1))

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close())
	assert.Same(t, mock, s.Pool())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigration_DeferrableOptionConstraints(t *testing.T) {
	assert.Contains(t, postgresMigration, "uq_options_question_code UNIQUE (question_id, opt_code) DEFERRABLE INITIALLY DEFERRED")
	assert.Contains(t, postgresMigration, "uq_options_question_sort UNIQUE (question_id, sort_order) DEFERRABLE INITIALLY DEFERRED")
	assert.Contains(t, postgresMigration, "uq_cfg_active_versions_scope UNIQUE (diagnostic_id)")
}

func TestGetVersion_NotFound(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`FROM diagnostic_versions v WHERE v.id = \$1$`).
		WithArgs(int64(42)).
		WillReturnError(pgx.ErrNoRows)

	_, err := GetVersion(context.Background(), mock, 42)
	require.Error(t, err)
	assert.Equal(t, apperr.KindVersionNotFound, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockVersion_ForUpdate(t *testing.T) {
	mock := newMock(t)
	hash := strPtr("abc")
	mock.ExpectQuery(`FROM diagnostic_versions v WHERE v.id = \$1 FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows(VersionColumns).AddRow(versionRow(7, 3, "v1", hash)...))

	v, err := LockVersion(context.Background(), mock, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v.DiagnosticID)
	assert.Equal(t, model.VersionStatusFinalized, v.Status())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetVersion_InfraError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`FROM diagnostic_versions`).WithArgs(int64(1)).WillReturnError(errors.New("conn reset"))

	_, err := GetVersion(context.Background(), mock, 1)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnexpected, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "store: get version 1")
	assert.Contains(t, err.Error(), "conn reset")
}

func TestInsertVersion(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO diagnostic_versions AS v`).
		WithArgs(int64(3), "spring", (*string)(nil), (*string)(nil), strPtr("first"), int64(9), t0).
		WillReturnRows(pgxmock.NewRows(VersionColumns).AddRow(versionRow(11, 3, "spring", nil)...))

	v, err := InsertVersion(context.Background(), mock, NewVersion{
		DiagnosticID: 3, Name: "spring", Note: strPtr("first"), ActorID: 9, At: t0,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), v.ID)
	assert.True(t, v.IsDraft())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertVersion_DuplicateName(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO diagnostic_versions`).
		WithArgs(int64(3), "spring", (*string)(nil), (*string)(nil), (*string)(nil), int64(9), t0).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_diagnostic_versions_name"})

	_, err := InsertVersion(context.Background(), mock, NewVersion{DiagnosticID: 3, Name: "spring", ActorID: 9, At: t0})
	require.Error(t, err)
	assert.Equal(t, apperr.KindDuplicateVersionName, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "uq_options_question_sort"}
	assert.True(t, UniqueViolation(eris.Wrap(pgErr, "db: commit tx"), "uq_options_"))
	assert.False(t, UniqueViolation(pgErr, "uq_diagnostic_versions"))
	assert.False(t, UniqueViolation(&pgconn.PgError{Code: "23503", ConstraintName: "uq_options_x"}, "uq_options_"))
	assert.False(t, UniqueViolation(errors.New("plain"), ""))
}

func TestListVersions_StatusFilterAndOrder(t *testing.T) {
	mock := newMock(t)
	cols := append(append([]string(nil), VersionColumns...), "is_active")
	mock.ExpectQuery(`WHERE v.diagnostic_id = \$1 AND v.src_hash IS NOT NULL ORDER BY \(v.src_hash IS NULL\), v.updated_at DESC, v.id DESC LIMIT \$2`).
		WithArgs(int64(3), 50).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(append(versionRow(2, 3, "v2", strPtr("h2")), true)...).
			AddRow(append(versionRow(1, 3, "v1", strPtr("h1")), false)...))

	items, err := ListVersions(context.Background(), mock, VersionFilter{
		DiagnosticID: 3, Status: model.VersionStatusFinalized, Limit: 50,
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, items[0].IsActive)
	assert.Equal(t, "v1", items[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListVersions_DefaultLimit(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`WHERE v.diagnostic_id = \$1 ORDER BY`).
		WithArgs(int64(3), 1000).
		WillReturnRows(pgxmock.NewRows(append(append([]string(nil), VersionColumns...), "is_active")))

	items, err := ListVersions(context.Background(), mock, VersionFilter{DiagnosticID: 3})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestDraftID(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`src_hash IS NULL ORDER BY id DESC LIMIT 1`).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(8)))
	mock.ExpectQuery(`src_hash IS NULL ORDER BY id DESC LIMIT 1`).
		WithArgs(int64(4)).
		WillReturnError(pgx.ErrNoRows)

	id, err := LatestDraftID(context.Background(), mock, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(8), id)

	id, err = LatestDraftID(context.Background(), mock, 4)
	require.NoError(t, err)
	assert.Zero(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDiagnostic(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`FROM diagnostics d WHERE d.id = \$1 FOR UPDATE`).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows(DiagnosticColumns).
			AddRow(int64(3), "ai_career", (*string)(nil), "MST_AI_JOBS", true, t0, t0))
	mock.ExpectQuery(`FROM diagnostics d WHERE d.code = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	d, err := LockDiagnostic(context.Background(), mock, 3)
	require.NoError(t, err)
	assert.Equal(t, "MST_AI_JOBS", d.OutcomeTableName)

	_, err = GetDiagnosticByCode(context.Background(), mock, "missing")
	assert.Equal(t, apperr.KindDiagnosticNotFound, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDiagnostics(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`FROM diagnostics d WHERE d.is_active ORDER BY d.code`).
		WillReturnRows(pgxmock.NewRows(DiagnosticColumns).
			AddRow(int64(3), "ai_career", strPtr("AI career"), "MST_AI_JOBS", true, t0, t0))
	mock.ExpectQuery(`FROM diagnostics d ORDER BY d.code`).
		WillReturnRows(pgxmock.NewRows(DiagnosticColumns))

	list, err := ListDiagnostics(context.Background(), mock, false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "AI career", *list[0].Description)

	list, err = ListDiagnostics(context.Background(), mock, true)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePrompt_KeepsNoteWhenNil(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`note = COALESCE($3, v.note)`)).
		WithArgs(int64(5), strPtr("be kind"), (*string)(nil), int64(9), t0).
		WillReturnRows(pgxmock.NewRows(VersionColumns).AddRow(versionRow(5, 3, "v", nil)...))

	_, err := UpdatePrompt(context.Background(), mock, 5, strPtr("be kind"), nil, 9, t0)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkFinalized(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`UPDATE diagnostic_versions\s+SET src_hash = \$2`).
		WithArgs(int64(5), "deadbeef", int64(9), t0).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, MarkFinalized(context.Background(), mock, 5, "deadbeef", 9, t0))
	assert.NoError(t, mock.ExpectationsWereMet())
}
