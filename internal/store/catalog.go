package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/diagnostic-versions/internal/db"
	"github.com/sells-group/diagnostic-versions/internal/model"
)

var questionUpsert = db.UpsertConfig{
	Table:        "questions",
	Columns:      []string{"diagnostic_id", "q_code", "display_text", "multi", "sort_order", "is_active"},
	ConflictKeys: []string{"diagnostic_id", "q_code"},
	TouchCols:    []string{"updated_at"},
}

// UpsertQuestion creates or updates a master question by (diagnostic_id,
// q_code), keeping the id of an existing row.
func UpsertQuestion(ctx context.Context, q db.Querier, diagnosticID int64, row model.QuestionRow) (int64, bool, error) {
	id, inserted, err := db.UpsertReturning(ctx, q, questionUpsert, []any{
		diagnosticID, row.QCode, row.DisplayText, row.Multi, row.SortOrder, row.IsActive,
	})
	if err != nil {
		return 0, false, eris.Wrapf(err, "store: upsert question %s", row.QCode)
	}
	return id, inserted, nil
}

// ListOptions returns the master options of the given questions.
func ListOptions(ctx context.Context, q db.Querier, questionIDs []int64) ([]model.Option, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}
	rows, err := q.Query(ctx,
		`SELECT id, question_id, opt_code, display_label, llm_op, sort_order, is_active
		FROM options WHERE question_id = ANY($1) ORDER BY question_id, sort_order, id`,
		questionIDs)
	if err != nil {
		return nil, eris.Wrap(err, "store: list options")
	}
	defer rows.Close()

	var out []model.Option
	for rows.Next() {
		var o model.Option
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.OptCode, &o.DisplayLabel, &o.LLMOp, &o.SortOrder, &o.IsActive); err != nil {
			return nil, eris.Wrap(err, "store: scan option")
		}
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "store: list options iterate")
}

// InsertOption creates a master option and returns its id.
func InsertOption(ctx context.Context, q db.Querier, o model.Option) (int64, error) {
	var id int64
	err := q.QueryRow(ctx,
		`INSERT INTO options (question_id, opt_code, display_label, llm_op, sort_order, is_active)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		o.QuestionID, o.OptCode, o.DisplayLabel, jsonArg(o.LLMOp), o.SortOrder, o.IsActive,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "store: insert option %s", o.OptCode)
	}
	return id, nil
}

// UpdateOption overwrites every mutable field of a master option by id,
// including opt_code for renames.
func UpdateOption(ctx context.Context, q db.Querier, o model.Option, at time.Time) error {
	_, err := q.Exec(ctx,
		`UPDATE options SET opt_code = $2, display_label = $3, llm_op = $4, sort_order = $5, is_active = $6, updated_at = $7
		WHERE id = $1`,
		o.ID, o.OptCode, o.DisplayLabel, jsonArg(o.LLMOp), o.SortOrder, o.IsActive, at)
	return eris.Wrapf(err, "store: update option %d", o.ID)
}

// MasterQuestions returns a diagnostic's active master questions.
func MasterQuestions(ctx context.Context, q db.Querier, diagnosticID int64) ([]model.VersionQuestion, error) {
	rows, err := q.Query(ctx,
		`SELECT q_code, display_text, multi, sort_order, is_active
		FROM questions WHERE diagnostic_id = $1 AND is_active ORDER BY sort_order, id`,
		diagnosticID)
	if err != nil {
		return nil, eris.Wrap(err, "store: master questions")
	}
	defer rows.Close()

	var out []model.VersionQuestion
	for rows.Next() {
		var vq model.VersionQuestion
		if err := rows.Scan(&vq.QCode, &vq.DisplayText, &vq.Multi, &vq.SortOrder, &vq.IsActive); err != nil {
			return nil, eris.Wrap(err, "store: scan master question")
		}
		out = append(out, vq)
	}
	return out, eris.Wrap(rows.Err(), "store: master questions iterate")
}

// MasterOptions returns the active options of a diagnostic's active master
// questions.
func MasterOptions(ctx context.Context, q db.Querier, diagnosticID int64) ([]model.VersionOption, error) {
	rows, err := q.Query(ctx,
		`SELECT q.q_code, o.opt_code, o.display_label, o.sort_order, o.llm_op, o.is_active
		FROM options o JOIN questions q ON q.id = o.question_id
		WHERE q.diagnostic_id = $1 AND q.is_active AND o.is_active
		ORDER BY q.sort_order, q.id, o.sort_order, o.id`,
		diagnosticID)
	if err != nil {
		return nil, eris.Wrap(err, "store: master options")
	}
	defer rows.Close()

	var out []model.VersionOption
	for rows.Next() {
		var vo model.VersionOption
		if err := rows.Scan(&vo.QCode, &vo.OptCode, &vo.DisplayLabel, &vo.SortOrder, &vo.LLMOp, &vo.IsActive); err != nil {
			return nil, eris.Wrap(err, "store: scan master option")
		}
		out = append(out, vo)
	}
	return out, eris.Wrap(rows.Err(), "store: master options iterate")
}

// jsonArg sends a nil map as SQL NULL rather than JSON null.
func jsonArg(m map[string]any) any {
	if m == nil {
		return nil
	}
	return m
}
