package lifecycle

import (
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/diagnostic-versions/internal/audit"
	"github.com/sells-group/diagnostic-versions/internal/model"
	"github.com/sells-group/diagnostic-versions/internal/store"
)

var t0 = time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)

const (
	versionID    = int64(5)
	diagnosticID = int64(3)
	actorID      = int64(9)
)

func strPtr(s string) *string { return &s }

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return mock
}

func newService(mock pgxmock.PgxPoolIface) *Service {
	return NewService(mock, audit.NewLedger(mock, func() time.Time { return t0 }))
}

func versionValues(id int64, name string, prompt, srcHash *string) []any {
	return []any{
		id, diagnosticID, name, (*string)(nil), prompt, (*string)(nil), srcHash,
		actorID, actorID, (*int64)(nil), (*time.Time)(nil), t0, t0,
	}
}

func versionRows(id int64, prompt, srcHash *string) *pgxmock.Rows {
	return pgxmock.NewRows(store.VersionColumns).AddRow(versionValues(id, "v1", prompt, srcHash)...)
}

func diagnosticRows() *pgxmock.Rows {
	return pgxmock.NewRows(store.DiagnosticColumns).
		AddRow(diagnosticID, "ai_career", strPtr("AI career"), "MST_AI_JOBS", true, t0, t0)
}

// scenarioSnapshot is one question with two options and one outcome.
func scenarioSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Questions: []model.VersionQuestion{
			{ID: 300, VersionID: versionID, DiagnosticID: diagnosticID, QuestionID: 20, QCode: "Q1", DisplayText: "Do you like AI?", SortOrder: 1, IsActive: true},
		},
		Options: []model.VersionOption{
			{ID: 500, VersionID: versionID, VersionQuestionID: 300, OptionID: 40, QCode: "Q1", OptCode: "Y", DisplayLabel: "Yes", SortOrder: 1, IsActive: true},
			{ID: 501, VersionID: versionID, VersionQuestionID: 300, OptionID: 41, QCode: "Q1", OptCode: "N", DisplayLabel: "No", LLMOp: map[string]any{"weight": 2.0}, SortOrder: 2, IsActive: true},
		},
		Outcomes: []model.VersionOutcome{
			{ID: 700, VersionID: versionID, OutcomeID: 11, Meta: map[string]any{"name": "Engineer", "description": "Builds things"}, SortOrder: 1, IsActive: true},
		},
	}
}

// expectLoadSnapshot registers the three snapshot reads for snap.
func expectLoadSnapshot(mock pgxmock.PgxPoolIface, id int64, snap *model.Snapshot) {
	qs := pgxmock.NewRows([]string{"id", "version_id", "diagnostic_id", "question_id", "q_code", "display_text", "multi", "sort_order", "is_active"})
	for _, q := range snap.Questions {
		qs.AddRow(q.ID, q.VersionID, q.DiagnosticID, q.QuestionID, q.QCode, q.DisplayText, q.Multi, q.SortOrder, q.IsActive)
	}
	optRows := pgxmock.NewRows([]string{"id", "version_id", "version_question_id", "option_id", "q_code", "opt_code", "display_label", "llm_op", "sort_order", "is_active"})
	for _, o := range snap.Options {
		optRows.AddRow(o.ID, o.VersionID, o.VersionQuestionID, o.OptionID, o.QCode, o.OptCode, o.DisplayLabel, o.LLMOp, o.SortOrder, o.IsActive)
	}
	outs := pgxmock.NewRows([]string{"id", "version_id", "outcome_id", "outcome_meta", "sort_order", "is_active"})
	for _, o := range snap.Outcomes {
		outs.AddRow(o.ID, o.VersionID, o.OutcomeID, o.Meta, o.SortOrder, o.IsActive)
	}
	mock.ExpectQuery(`FROM version_questions WHERE version_id = \$1`).WithArgs(id).WillReturnRows(qs)
	mock.ExpectQuery(`FROM version_options WHERE version_id = \$1`).WithArgs(id).WillReturnRows(optRows)
	mock.ExpectQuery(`FROM version_outcomes WHERE version_id = \$1`).WithArgs(id).WillReturnRows(outs)
}
