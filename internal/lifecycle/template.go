package lifecycle

import (
	"context"
	"fmt"

	"github.com/sells-group/diagnostic-versions/internal/apperr"
	"github.com/sells-group/diagnostic-versions/internal/model"
	"github.com/sells-group/diagnostic-versions/internal/outcome"
	"github.com/sells-group/diagnostic-versions/internal/sheet"
	"github.com/sells-group/diagnostic-versions/internal/store"
)

// TemplateFile is an exported structure workbook.
type TemplateFile struct {
	Filename string
	Content  []byte
}

// Template exports a structure workbook. With a version id the version's
// snapshot is written; with version id 0 the diagnostic's newest draft is
// used, or its active master catalog when it has no draft.
func (s *Service) Template(ctx context.Context, versionID, diagnosticID int64) (*TemplateFile, error) {
	if versionID > 0 {
		v, err := store.GetVersion(ctx, s.pool, versionID)
		if err != nil {
			return nil, err
		}
		if diagnosticID > 0 && diagnosticID != v.DiagnosticID {
			return nil, apperr.New(apperr.KindFilterMismatch,
				fmt.Sprintf("version %d belongs to diagnostic %d, not %d", versionID, v.DiagnosticID, diagnosticID))
		}
		d, h, err := s.diagnosticHandler(ctx, v.DiagnosticID)
		if err != nil {
			return nil, err
		}
		snap, err := store.LoadSnapshot(ctx, s.pool, versionID)
		if err != nil {
			return nil, err
		}
		return render(fmt.Sprintf("%s_v%d.xlsx", d.Code, versionID), snapshotTemplate(h, snap))
	}

	if diagnosticID <= 0 {
		return nil, apperr.New(apperr.KindImportValidation, "diagnostic_id is required when version_id is 0")
	}
	d, h, err := s.diagnosticHandler(ctx, diagnosticID)
	if err != nil {
		return nil, err
	}
	filename := fmt.Sprintf("%s_vdraft.xlsx", d.Code)

	draftID, err := store.LatestDraftID(ctx, s.pool, diagnosticID)
	if err != nil {
		return nil, err
	}
	if draftID > 0 {
		snap, err := store.LoadSnapshot(ctx, s.pool, draftID)
		if err != nil {
			return nil, err
		}
		return render(filename, snapshotTemplate(h, snap))
	}

	t := sheet.Template{OutcomeHeaders: h.Columns()}
	if t.Questions, err = store.MasterQuestions(ctx, s.pool, diagnosticID); err != nil {
		return nil, err
	}
	if t.Options, err = store.MasterOptions(ctx, s.pool, diagnosticID); err != nil {
		return nil, err
	}
	records, err := h.ListActive(ctx, s.pool)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		t.Outcomes = append(t.Outcomes, sheet.OutcomeCells(t.OutcomeHeaders, rec))
	}
	return render(filename, t)
}

func (s *Service) diagnosticHandler(ctx context.Context, diagnosticID int64) (*model.Diagnostic, outcome.Handler, error) {
	d, err := store.GetDiagnostic(ctx, s.pool, diagnosticID)
	if err != nil {
		return nil, nil, err
	}
	h, err := outcome.Lookup(d.OutcomeTableName)
	if err != nil {
		return nil, nil, err
	}
	return d, h, nil
}

// snapshotTemplate lays a snapshot out as workbook rows. Outcome rows come
// from the stored meta with the snapshot's own sort_order and is_active.
func snapshotTemplate(h outcome.Handler, snap *model.Snapshot) sheet.Template {
	t := sheet.Template{
		Questions:      snap.Questions,
		Options:        snap.Options,
		OutcomeHeaders: h.Columns(),
	}
	for _, o := range snap.Outcomes {
		rec := make(map[string]any, len(o.Meta)+2)
		for k, v := range o.Meta {
			rec[k] = v
		}
		rec["sort_order"] = o.SortOrder
		rec["is_active"] = o.IsActive
		t.Outcomes = append(t.Outcomes, sheet.OutcomeCells(t.OutcomeHeaders, rec))
	}
	return t
}

func render(filename string, t sheet.Template) (*TemplateFile, error) {
	content, err := sheet.Export(t)
	if err != nil {
		return nil, err
	}
	return &TemplateFile{Filename: filename, Content: content}, nil
}
