package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/diagnostic-versions/internal/model"
)

func TestDeleteSnapshot_ChildrenFirst(t *testing.T) {
	mock := newMock(t)
	for _, table := range []string{"version_outcomes", "version_options", "version_questions"} {
		mock.ExpectExec(`DELETE FROM ` + table + ` WHERE version_id = \$1`).
			WithArgs(int64(5)).
			WillReturnResult(pgxmock.NewResult("DELETE", 2))
	}

	require.NoError(t, DeleteSnapshot(context.Background(), mock, 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteSnapshot_Error(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`DELETE FROM version_outcomes`).WithArgs(int64(5)).WillReturnError(errors.New("lock timeout"))

	err := DeleteSnapshot(context.Background(), mock, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear version_outcomes for version 5")
	assert.Contains(t, err.Error(), "lock timeout")
}

func TestInsertVersionQuestion(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO version_questions`).
		WithArgs(int64(5), int64(3), int64(20), "Q1", "Do you like AI?", false, 1, true, int64(9)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(300)))

	id, err := InsertVersionQuestion(context.Background(), mock, model.VersionQuestion{
		VersionID: 5, DiagnosticID: 3, QuestionID: 20, QCode: "Q1",
		DisplayText: "Do you like AI?", SortOrder: 1, IsActive: true,
	}, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(300), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyVersionOptionsAndOutcomes(t *testing.T) {
	mock := newMock(t)
	mock.ExpectCopyFrom(pgx.Identifier{"version_options"}, VersionOptionColumns).WillReturnResult(2)
	mock.ExpectCopyFrom(pgx.Identifier{"version_outcomes"}, VersionOutcomeColumns).WillReturnResult(1)

	n, err := CopyVersionOptions(context.Background(), mock, []model.VersionOption{
		{VersionID: 5, VersionQuestionID: 300, OptionID: 40, QCode: "Q1", OptCode: "Y", SortOrder: 1, IsActive: true},
		{VersionID: 5, VersionQuestionID: 300, OptionID: 41, QCode: "Q1", OptCode: "N", SortOrder: 2, IsActive: true},
	}, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = CopyVersionOutcomes(context.Background(), mock, []model.VersionOutcome{
		{VersionID: 5, OutcomeID: 11, Meta: map[string]any{"name": "Engineer"}, SortOrder: 1, IsActive: true},
	}, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyVersionOptions_Empty(t *testing.T) {
	n, err := CopyVersionOptions(context.Background(), nil, nil, 9)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLoadSnapshot(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`FROM version_questions WHERE version_id = \$1 ORDER BY sort_order, id`).
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "version_id", "diagnostic_id", "question_id", "q_code", "display_text", "multi", "sort_order", "is_active"}).
			AddRow(int64(300), int64(5), int64(3), int64(20), "Q1", "Do you like AI?", false, 1, true))
	mock.ExpectQuery(`FROM version_options WHERE version_id = \$1 ORDER BY version_question_id, sort_order, id`).
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "version_id", "version_question_id", "option_id", "q_code", "opt_code", "display_label", "llm_op", "sort_order", "is_active"}).
			AddRow(int64(500), int64(5), int64(300), int64(40), "Q1", "Y", "Yes", map[string]any(nil), 1, true).
			AddRow(int64(501), int64(5), int64(300), int64(41), "Q1", "N", "No", map[string]any{"w": 1.0}, 2, false))
	mock.ExpectQuery(`FROM version_outcomes WHERE version_id = \$1 ORDER BY sort_order, outcome_id, id`).
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "version_id", "outcome_id", "outcome_meta", "sort_order", "is_active"}).
			AddRow(int64(700), int64(5), int64(11), map[string]any{"name": "Engineer"}, 1, true))

	s, err := LoadSnapshot(context.Background(), mock, 5)
	require.NoError(t, err)
	require.Len(t, s.Questions, 1)
	require.Len(t, s.Options, 2)
	require.Len(t, s.Outcomes, 1)
	assert.Equal(t, 1, s.ActiveOptionCount())
	assert.Equal(t, "Engineer", s.Outcomes[0].Meta["name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountSnapshot(t *testing.T) {
	mock := newMock(t)
	mock.MatchExpectationsInOrder(false)
	mock.ExpectQuery(`SELECT count\(\*\) FROM version_questions`).WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT count\(\*\) FROM version_options`).WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT count\(\*\) FROM version_outcomes`).WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	c, err := CountSnapshot(context.Background(), mock, 5)
	require.NoError(t, err)
	assert.Equal(t, SnapshotCounts{Questions: 1, Options: 2, Outcomes: 1}, c)
	assert.NoError(t, mock.ExpectationsWereMet())
}
