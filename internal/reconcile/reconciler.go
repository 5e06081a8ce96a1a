// Package reconcile applies a parsed structure workbook to a draft version:
// it upserts the master catalog and replaces the version snapshot in one
// audited transaction.
package reconcile

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/sells-group/diagnostic-versions/internal/apperr"
	"github.com/sells-group/diagnostic-versions/internal/audit"
	"github.com/sells-group/diagnostic-versions/internal/db"
	"github.com/sells-group/diagnostic-versions/internal/model"
	"github.com/sells-group/diagnostic-versions/internal/monitoring"
	"github.com/sells-group/diagnostic-versions/internal/outcome"
	"github.com/sells-group/diagnostic-versions/internal/sheet"
	"github.com/sells-group/diagnostic-versions/internal/store"
)

// Reconciler imports structure workbooks into draft versions.
type Reconciler struct {
	pool   db.Pool
	ledger *audit.Ledger
}

// NewReconciler creates a Reconciler.
func NewReconciler(pool db.Pool, ledger *audit.Ledger) *Reconciler {
	return &Reconciler{pool: pool, ledger: ledger}
}

// ImportContent parses an uploaded workbook and imports it. The version is
// checked before parsing so a frozen version fails fast.
func (r *Reconciler) ImportContent(ctx context.Context, versionID, actorID int64, content []byte) (*model.ImportSummary, error) {
	v, err := store.GetVersion(ctx, r.pool, versionID)
	if err != nil {
		return nil, err
	}
	if !v.IsDraft() {
		return nil, frozen(versionID)
	}

	batch, err := sheet.Parse(content)
	if err != nil {
		monitoring.Observe("import", err)
		return nil, err
	}
	return r.Import(ctx, versionID, actorID, batch)
}

// Import applies batch to a draft version. Any failure rolls back every
// catalog and snapshot write.
func (r *Reconciler) Import(ctx context.Context, versionID, actorID int64, batch *model.ImportBatch) (*model.ImportSummary, error) {
	var summary *model.ImportSummary
	err := r.ledger.Mutate(ctx, func(ctx context.Context, tx pgx.Tx) (*model.AuditEntry, error) {
		var err error
		summary, err = r.apply(ctx, tx, versionID, actorID, batch)
		if err != nil {
			return nil, err
		}
		return &model.AuditEntry{
			VersionID: versionID,
			ActorID:   actorID,
			Action:    model.AuditImport,
			NewValue: map[string]any{
				"questions": summary.QuestionsImported,
				"options":   summary.OptionsImported,
				"outcomes":  summary.OutcomesImported,
				"warnings":  summary.Warnings,
			},
		}, nil
	})
	if store.UniqueViolation(err, "uq_options_") {
		err = apperr.Wrap(err, apperr.KindImportValidation,
			"options collide with existing options of the same question on opt_code or sort_order")
	}
	monitoring.Observe("import", err)
	if err != nil {
		if _, ok := apperr.As(err); !ok {
			zap.L().Error("reconcile: import failed", zap.Int64("version_id", versionID), zap.Error(err))
		}
		return nil, err
	}

	monitoring.ImportRows.WithLabelValues(sheet.Questions).Observe(float64(summary.QuestionsImported))
	monitoring.ImportRows.WithLabelValues(sheet.Options).Observe(float64(summary.OptionsImported))
	monitoring.ImportRows.WithLabelValues(sheet.Outcomes).Observe(float64(summary.OutcomesImported))
	zap.L().Info("structure imported",
		zap.Int64("version_id", versionID),
		zap.Int64("actor_id", actorID),
		zap.Int("questions", summary.QuestionsImported),
		zap.Int("options", summary.OptionsImported),
		zap.Int("outcomes", summary.OutcomesImported),
		zap.Int("warnings", len(summary.Warnings)),
	)
	return summary, nil
}

func (r *Reconciler) apply(ctx context.Context, tx pgx.Tx, versionID, actorID int64, batch *model.ImportBatch) (*model.ImportSummary, error) {
	v, err := store.LockVersion(ctx, tx, versionID)
	if err != nil {
		return nil, err
	}
	if !v.IsDraft() {
		return nil, frozen(versionID)
	}
	d, err := store.GetDiagnostic(ctx, tx, v.DiagnosticID)
	if err != nil {
		return nil, err
	}
	h, err := outcome.Lookup(d.OutcomeTableName)
	if err != nil {
		return nil, err
	}

	// Everything that can be checked without writing is checked first.
	if err := outcome.ValidateHeaders(h, batch.OutcomeHeaders); err != nil {
		return nil, err
	}
	if err := outcome.MissingKeys(h, batch.OutcomeHeaders, batch.Outcomes); err != nil {
		return nil, err
	}
	if err := duplicateOutcomeKeys(h, batch.OutcomeHeaders, batch.Outcomes); err != nil {
		return nil, err
	}
	if err := unknownOwners(batch); err != nil {
		return nil, err
	}

	now := r.ledger.Now()

	questionIDs, err := upsertQuestions(ctx, tx, d.ID, batch.Questions)
	if err != nil {
		return nil, err
	}
	optionIDs, err := reconcileOptions(ctx, tx, questionIDs, batch.Options, now)
	if err != nil {
		return nil, err
	}

	warnings := append([]string{}, batch.Warnings...)
	outcomes := make([]model.VersionOutcome, 0, len(batch.Outcomes))
	for _, row := range batch.Outcomes {
		res, err := h.Upsert(ctx, tx, row.Values)
		if err != nil {
			return nil, err
		}
		if res.Inserted {
			label := res.Label
			if label == "" {
				label = row.Values[h.DefaultLabelField()]
			}
			warnings = append(warnings, fmt.Sprintf("outcome '%s' was newly registered", label))
		}
		outcomes = append(outcomes, model.VersionOutcome{
			VersionID: versionID,
			OutcomeID: res.ID,
			Meta:      res.Meta,
			SortOrder: res.SortOrder,
			IsActive:  res.IsActive,
		})
	}

	if err := store.DeleteSnapshot(ctx, tx, versionID); err != nil {
		return nil, err
	}
	versionQuestionIDs := make(map[string]int64, len(batch.Questions))
	for _, row := range batch.Questions {
		id, err := store.InsertVersionQuestion(ctx, tx, model.VersionQuestion{
			VersionID:    versionID,
			DiagnosticID: d.ID,
			QuestionID:   questionIDs[row.QCode],
			QCode:        row.QCode,
			DisplayText:  row.DisplayText,
			Multi:        row.Multi,
			SortOrder:    row.SortOrder,
			IsActive:     row.IsActive,
		}, actorID)
		if err != nil {
			return nil, err
		}
		versionQuestionIDs[row.QCode] = id
	}

	options := make([]model.VersionOption, len(batch.Options))
	for i, row := range batch.Options {
		options[i] = model.VersionOption{
			VersionID:         versionID,
			VersionQuestionID: versionQuestionIDs[row.QCode],
			OptionID:          optionIDs[i],
			QCode:             row.QCode,
			OptCode:           row.OptCode,
			DisplayLabel:      row.DisplayLabel,
			LLMOp:             row.LLMOp,
			SortOrder:         row.SortOrder,
			IsActive:          row.IsActive,
		}
	}
	if _, err := store.CopyVersionOptions(ctx, tx, options, actorID); err != nil {
		return nil, err
	}
	if _, err := store.CopyVersionOutcomes(ctx, tx, outcomes, actorID); err != nil {
		return nil, err
	}
	if err := store.TouchVersion(ctx, tx, versionID, actorID, now); err != nil {
		return nil, err
	}

	return &model.ImportSummary{
		VersionID:         versionID,
		QuestionsImported: len(batch.Questions),
		OptionsImported:   len(batch.Options),
		OutcomesImported:  len(outcomes),
		Warnings:          warnings,
	}, nil
}

func upsertQuestions(ctx context.Context, q db.Querier, diagnosticID int64, rows []model.QuestionRow) (map[string]int64, error) {
	ids := make(map[string]int64, len(rows))
	for _, row := range rows {
		id, _, err := store.UpsertQuestion(ctx, q, diagnosticID, row)
		if err != nil {
			return nil, err
		}
		ids[row.QCode] = id
	}
	return ids, nil
}

// reconcileOptions writes every option row and returns the resulting
// master option id per row.
func reconcileOptions(ctx context.Context, q db.Querier, questionIDs map[string]int64, rows []model.OptionRow, now time.Time) ([]int64, error) {
	ids := make([]int64, 0, len(questionIDs))
	for _, id := range questionIDs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	existing, err := store.ListOptions(ctx, q, ids)
	if err != nil {
		return nil, err
	}

	ix := NewOptionIndex(existing)

	out := make([]int64, len(rows))
	for i, row := range rows {
		o := model.Option{
			QuestionID:   questionIDs[row.QCode],
			OptCode:      row.OptCode,
			DisplayLabel: row.DisplayLabel,
			LLMOp:        row.LLMOp,
			SortOrder:    row.SortOrder,
			IsActive:     row.IsActive,
		}
		d := ix.Resolve(o.QuestionID, o.OptCode, o.SortOrder)
		switch d.Resolution {
		case Matched, Renamed:
			o.ID = d.OptionID
			if err := store.UpdateOption(ctx, q, o, now); err != nil {
				return nil, err
			}
			if d.Resolution == Renamed {
				zap.L().Debug("option renamed",
					zap.Int64("option_id", o.ID),
					zap.String("from", d.PreviousCode),
					zap.String("to", o.OptCode),
				)
			}
		default:
			id, err := store.InsertOption(ctx, q, o)
			if err != nil {
				return nil, err
			}
			o.ID = id
		}
		ix.Apply(o)
		out[i] = o.ID
	}
	return out, nil
}

// unknownOwners rejects options whose q_code is not a question of the batch.
func unknownOwners(batch *model.ImportBatch) error {
	known := make(map[string]bool, len(batch.Questions))
	for _, q := range batch.Questions {
		known[q.QCode] = true
	}
	var cells []string
	for _, o := range batch.Options {
		if !known[o.QCode] {
			cells = append(cells, fmt.Sprintf("%s!A%d", sheet.Options, o.Row))
		}
	}
	if len(cells) == 0 {
		return nil
	}
	return apperr.New(apperr.KindImportValidation, "options sheet refers to unknown question codes", cells...)
}

// duplicateOutcomeKeys rejects two outcome rows with the same key values;
// both would bind the same master row into the snapshot.
func duplicateOutcomeKeys(h outcome.Handler, headers []string, rows []model.OutcomeRow) error {
	positions := make(map[string]int, len(headers))
	for i, name := range headers {
		positions[name] = i
	}
	keys := h.KeyFields()

	seen := make(map[string]bool, len(rows))
	var cells []string
	for _, row := range rows {
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = strings.TrimSpace(row.Values[k])
		}
		key := strings.Join(parts, "\x00")
		if seen[key] {
			cells = append(cells, outcome.CellRef(sheet.Outcomes, positions[keys[0]], row.Row))
			continue
		}
		seen[key] = true
	}
	if len(cells) == 0 {
		return nil
	}
	return apperr.New(apperr.KindImportValidation,
		fmt.Sprintf("outcomes sheet contains duplicate key values (%s)", strings.Join(keys, ", ")), cells...)
}

func frozen(versionID int64) error {
	return apperr.New(apperr.KindVersionFrozen, fmt.Sprintf("version %d is finalized", versionID))
}
