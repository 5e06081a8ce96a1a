package lifecycle

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sells-group/diagnostic-versions/internal/apperr"
	"github.com/sells-group/diagnostic-versions/internal/store"
)

// FormQuestion is a question of the public form.
type FormQuestion struct {
	ID          int64  `json:"id"`
	QCode       string `json:"q_code"`
	DisplayText string `json:"display_text"`
	Multi       bool   `json:"multi"`
	SortOrder   int    `json:"sort_order"`
	IsActive    bool   `json:"is_active"`
}

// FormOption is an option of the public form.
type FormOption struct {
	VersionOptionID int64          `json:"version_option_id"`
	OptCode         string         `json:"opt_code"`
	DisplayLabel    string         `json:"display_label"`
	SortOrder       int            `json:"sort_order"`
	IsActive        bool           `json:"is_active"`
	LLMOp           map[string]any `json:"llm_op"`
}

// FormOutcome is an outcome of the public form.
type FormOutcome struct {
	OutcomeID int64          `json:"outcome_id"`
	SortOrder int            `json:"sort_order"`
	Meta      map[string]any `json:"meta"`
}

// OptionRef names an option by its codes.
type OptionRef struct {
	QCode   string `json:"q_code"`
	OptCode string `json:"opt_code"`
}

// Form is the public view of a finalized version. Options are bucketed by
// version question id; every question has a bucket, possibly empty.
type Form struct {
	VersionID    int64                   `json:"version_id"`
	SrcHash      string                  `json:"-"`
	Questions    []FormQuestion          `json:"questions"`
	Options      map[string][]FormOption `json:"options"`
	OptionLookup map[string]OptionRef    `json:"option_lookup"`
	Outcomes     []FormOutcome           `json:"outcomes"`
}

// FormHash returns the src_hash of a finalized version without loading its
// snapshot, so conditional requests can be answered cheaply.
func (s *Service) FormHash(ctx context.Context, versionID int64) (string, error) {
	v, err := store.GetVersion(ctx, s.pool, versionID)
	if err != nil {
		return "", err
	}
	if v.IsDraft() {
		return "", notPublished(versionID)
	}
	return *v.SrcHash, nil
}

// Form loads the public form of a finalized version. Drafts are reported
// as not found.
func (s *Service) Form(ctx context.Context, versionID int64) (*Form, error) {
	v, err := store.GetVersion(ctx, s.pool, versionID)
	if err != nil {
		return nil, err
	}
	if v.IsDraft() {
		return nil, notPublished(versionID)
	}
	snap, err := store.LoadSnapshot(ctx, s.pool, versionID)
	if err != nil {
		return nil, err
	}

	f := &Form{
		VersionID:    v.ID,
		SrcHash:      *v.SrcHash,
		Questions:    make([]FormQuestion, 0, len(snap.Questions)),
		Options:      make(map[string][]FormOption, len(snap.Questions)),
		OptionLookup: make(map[string]OptionRef, len(snap.Options)),
		Outcomes:     make([]FormOutcome, 0, len(snap.Outcomes)),
	}
	for _, q := range snap.Questions {
		f.Questions = append(f.Questions, FormQuestion{
			ID:          q.ID,
			QCode:       q.QCode,
			DisplayText: q.DisplayText,
			Multi:       q.Multi,
			SortOrder:   q.SortOrder,
			IsActive:    q.IsActive,
		})
		f.Options[strconv.FormatInt(q.ID, 10)] = []FormOption{}
	}
	for _, o := range snap.Options {
		key := strconv.FormatInt(o.VersionQuestionID, 10)
		f.Options[key] = append(f.Options[key], FormOption{
			VersionOptionID: o.ID,
			OptCode:         o.OptCode,
			DisplayLabel:    o.DisplayLabel,
			SortOrder:       o.SortOrder,
			IsActive:        o.IsActive,
			LLMOp:           o.LLMOp,
		})
		f.OptionLookup[strconv.FormatInt(o.ID, 10)] = OptionRef{QCode: o.QCode, OptCode: o.OptCode}
	}
	for _, o := range snap.Outcomes {
		meta := o.Meta
		if meta == nil {
			meta = map[string]any{}
		}
		f.Outcomes = append(f.Outcomes, FormOutcome{OutcomeID: o.OutcomeID, SortOrder: o.SortOrder, Meta: meta})
	}
	return f, nil
}

func notPublished(versionID int64) error {
	return apperr.New(apperr.KindVersionNotFound, fmt.Sprintf("version %d is not finalized", versionID))
}
