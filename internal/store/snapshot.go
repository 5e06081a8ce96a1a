package store

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/diagnostic-versions/internal/db"
	"github.com/sells-group/diagnostic-versions/internal/model"
)

var (
	versionOptionColumns = []string{
		"version_id", "version_question_id", "option_id", "q_code", "opt_code",
		"display_label", "llm_op", "sort_order", "is_active", "created_by_admin_id",
	}
	versionOutcomeColumns = []string{
		"version_id", "outcome_id", "outcome_meta", "sort_order", "is_active", "created_by_admin_id",
	}
)

// VersionOptionColumns and VersionOutcomeColumns are the COPY column lists,
// for tests.
var (
	VersionOptionColumns  = versionOptionColumns
	VersionOutcomeColumns = versionOutcomeColumns
)

// DeleteSnapshot removes every snapshot row of a version, children first.
func DeleteSnapshot(ctx context.Context, q db.Querier, versionID int64) error {
	for _, table := range []string{"version_outcomes", "version_options", "version_questions"} {
		if _, err := q.Exec(ctx, `DELETE FROM `+table+` WHERE version_id = $1`, versionID); err != nil {
			return eris.Wrapf(err, "store: clear %s for version %d", table, versionID)
		}
	}
	return nil
}

// InsertVersionQuestion writes one snapshot question and returns its id,
// which its snapshot options reference.
func InsertVersionQuestion(ctx context.Context, q db.Querier, vq model.VersionQuestion, actorID int64) (int64, error) {
	var id int64
	err := q.QueryRow(ctx,
		`INSERT INTO version_questions
			(version_id, diagnostic_id, question_id, q_code, display_text, multi, sort_order, is_active, created_by_admin_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		vq.VersionID, vq.DiagnosticID, vq.QuestionID, vq.QCode, vq.DisplayText, vq.Multi, vq.SortOrder, vq.IsActive, actorID,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "store: insert version question %s", vq.QCode)
	}
	return id, nil
}

// CopyVersionOptions bulk-inserts snapshot options.
func CopyVersionOptions(ctx context.Context, q db.Querier, opts []model.VersionOption, actorID int64) (int64, error) {
	rows := make([][]any, len(opts))
	for i, o := range opts {
		rows[i] = []any{
			o.VersionID, o.VersionQuestionID, o.OptionID, o.QCode, o.OptCode,
			o.DisplayLabel, jsonArg(o.LLMOp), o.SortOrder, o.IsActive, actorID,
		}
	}
	n, err := db.CopyFrom(ctx, q, "version_options", versionOptionColumns, rows)
	return n, eris.Wrap(err, "store: copy version options")
}

// CopyVersionOutcomes bulk-inserts snapshot outcomes.
func CopyVersionOutcomes(ctx context.Context, q db.Querier, outs []model.VersionOutcome, actorID int64) (int64, error) {
	rows := make([][]any, len(outs))
	for i, o := range outs {
		rows[i] = []any{o.VersionID, o.OutcomeID, jsonArg(o.Meta), o.SortOrder, o.IsActive, actorID}
	}
	n, err := db.CopyFrom(ctx, q, "version_outcomes", versionOutcomeColumns, rows)
	return n, eris.Wrap(err, "store: copy version outcomes")
}

// VersionQuestions loads snapshot questions ordered by (sort_order, id).
func VersionQuestions(ctx context.Context, q db.Querier, versionID int64) ([]model.VersionQuestion, error) {
	rows, err := q.Query(ctx,
		`SELECT id, version_id, diagnostic_id, question_id, q_code, display_text, multi, sort_order, is_active
		FROM version_questions WHERE version_id = $1 ORDER BY sort_order, id`,
		versionID)
	if err != nil {
		return nil, eris.Wrap(err, "store: version questions")
	}
	defer rows.Close()

	var out []model.VersionQuestion
	for rows.Next() {
		var vq model.VersionQuestion
		if err := rows.Scan(&vq.ID, &vq.VersionID, &vq.DiagnosticID, &vq.QuestionID, &vq.QCode,
			&vq.DisplayText, &vq.Multi, &vq.SortOrder, &vq.IsActive); err != nil {
			return nil, eris.Wrap(err, "store: scan version question")
		}
		out = append(out, vq)
	}
	return out, eris.Wrap(rows.Err(), "store: version questions iterate")
}

// VersionOptions loads snapshot options ordered by (version_question_id,
// sort_order, id).
func VersionOptions(ctx context.Context, q db.Querier, versionID int64) ([]model.VersionOption, error) {
	rows, err := q.Query(ctx,
		`SELECT id, version_id, version_question_id, option_id, q_code, opt_code, display_label, llm_op, sort_order, is_active
		FROM version_options WHERE version_id = $1 ORDER BY version_question_id, sort_order, id`,
		versionID)
	if err != nil {
		return nil, eris.Wrap(err, "store: version options")
	}
	defer rows.Close()

	var out []model.VersionOption
	for rows.Next() {
		var vo model.VersionOption
		if err := rows.Scan(&vo.ID, &vo.VersionID, &vo.VersionQuestionID, &vo.OptionID, &vo.QCode, &vo.OptCode,
			&vo.DisplayLabel, &vo.LLMOp, &vo.SortOrder, &vo.IsActive); err != nil {
			return nil, eris.Wrap(err, "store: scan version option")
		}
		out = append(out, vo)
	}
	return out, eris.Wrap(rows.Err(), "store: version options iterate")
}

// VersionOutcomes loads snapshot outcomes ordered by (sort_order,
// outcome_id, id).
func VersionOutcomes(ctx context.Context, q db.Querier, versionID int64) ([]model.VersionOutcome, error) {
	rows, err := q.Query(ctx,
		`SELECT id, version_id, outcome_id, outcome_meta, sort_order, is_active
		FROM version_outcomes WHERE version_id = $1 ORDER BY sort_order, outcome_id, id`,
		versionID)
	if err != nil {
		return nil, eris.Wrap(err, "store: version outcomes")
	}
	defer rows.Close()

	var out []model.VersionOutcome
	for rows.Next() {
		var vo model.VersionOutcome
		if err := rows.Scan(&vo.ID, &vo.VersionID, &vo.OutcomeID, &vo.Meta, &vo.SortOrder, &vo.IsActive); err != nil {
			return nil, eris.Wrap(err, "store: scan version outcome")
		}
		out = append(out, vo)
	}
	return out, eris.Wrap(rows.Err(), "store: version outcomes iterate")
}

// LoadSnapshot reads the three snapshot tables of a version.
func LoadSnapshot(ctx context.Context, q db.Querier, versionID int64) (*model.Snapshot, error) {
	var s model.Snapshot
	var err error
	if s.Questions, err = VersionQuestions(ctx, q, versionID); err != nil {
		return nil, err
	}
	if s.Options, err = VersionOptions(ctx, q, versionID); err != nil {
		return nil, err
	}
	if s.Outcomes, err = VersionOutcomes(ctx, q, versionID); err != nil {
		return nil, err
	}
	return &s, nil
}

// SnapshotCounts is the row count per snapshot table.
type SnapshotCounts struct {
	Questions int `json:"questions" yaml:"questions"`
	Options   int `json:"options" yaml:"options"`
	Outcomes  int `json:"outcomes" yaml:"outcomes"`
}

// CountSnapshot counts the snapshot rows of a version. The three counts run
// concurrently on the pool.
func CountSnapshot(ctx context.Context, q db.Querier, versionID int64) (SnapshotCounts, error) {
	var c SnapshotCounts
	g, gctx := errgroup.WithContext(ctx)
	count := func(table string, dst *int) {
		g.Go(func() error {
			err := q.QueryRow(gctx, `SELECT count(*) FROM `+table+` WHERE version_id = $1`, versionID).Scan(dst)
			return eris.Wrapf(err, "store: count %s", table)
		})
	}
	count("version_questions", &c.Questions)
	count("version_options", &c.Options)
	count("version_outcomes", &c.Outcomes)
	if err := g.Wait(); err != nil {
		return SnapshotCounts{}, err
	}
	return c, nil
}
