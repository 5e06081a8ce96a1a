package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/sells-group/diagnostic-versions/internal/apperr"
	"github.com/sells-group/diagnostic-versions/internal/model"
	"github.com/sells-group/diagnostic-versions/internal/monitoring"
	"github.com/sells-group/diagnostic-versions/internal/store"
)

const (
	maxNameLen   = 128
	maxPromptLen = 100000
)

// CreateInput is the payload of a new draft.
type CreateInput struct {
	DiagnosticID int64   `json:"diagnostic_id" validate:"required,gt=0"`
	Name         string  `json:"name" validate:"required"`
	Description  *string `json:"description"`
	SystemPrompt *string `json:"system_prompt"`
	Note         *string `json:"note"`
}

// Create registers an empty draft for a diagnostic.
func (s *Service) Create(ctx context.Context, in CreateInput, actorID int64) (*model.Version, error) {
	name := strings.TrimSpace(in.Name)
	if n := utf8.RuneCountInString(name); n == 0 || n > maxNameLen {
		return nil, apperr.New(apperr.KindImportValidation,
			fmt.Sprintf("name must be between 1 and %d characters", maxNameLen))
	}
	description := optional(in.Description)
	prompt := optional(in.SystemPrompt)
	note := optional(in.Note)

	var v *model.Version
	err := s.ledger.Mutate(ctx, func(ctx context.Context, tx pgx.Tx) (*model.AuditEntry, error) {
		if _, err := store.GetDiagnostic(ctx, tx, in.DiagnosticID); err != nil {
			return nil, err
		}
		now := s.ledger.Now()
		var err error
		v, err = store.InsertVersion(ctx, tx, store.NewVersion{
			DiagnosticID: in.DiagnosticID,
			Name:         name,
			Description:  description,
			SystemPrompt: prompt,
			Note:         note,
			ActorID:      actorID,
			At:           now,
		})
		if err != nil {
			return nil, err
		}
		return &model.AuditEntry{
			VersionID: v.ID,
			ActorID:   actorID,
			Action:    model.AuditCreate,
			NewValue: map[string]any{
				"name":          name,
				"description":   strOrNil(description),
				"system_prompt": strOrNil(prompt),
				"note":          strOrNil(note),
			},
			CreatedAt: now,
		}, nil
	})
	monitoring.Observe("create", err)
	if err != nil {
		logUnexpected("create", 0, err)
		return nil, err
	}

	zap.L().Info("version created",
		zap.Int64("version_id", v.ID),
		zap.Int64("diagnostic_id", v.DiagnosticID),
		zap.Int64("actor_id", actorID),
	)
	return v, nil
}

// PromptView is the system prompt of one version.
type PromptView struct {
	ID           int64     `json:"id" yaml:"id"`
	SystemPrompt *string   `json:"system_prompt" yaml:"system_prompt"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
	UpdatedBy    int64     `json:"updated_by_admin_id" yaml:"updated_by_admin_id"`
}

func promptView(v *model.Version) *PromptView {
	return &PromptView{ID: v.ID, SystemPrompt: v.SystemPrompt, UpdatedAt: utc(v.UpdatedAt), UpdatedBy: v.UpdatedBy}
}

// Prompt returns a version's system prompt.
func (s *Service) Prompt(ctx context.Context, versionID int64) (*PromptView, error) {
	v, err := store.GetVersion(ctx, s.pool, versionID)
	if err != nil {
		return nil, err
	}
	return promptView(v), nil
}

// UpdatePrompt replaces a draft's system prompt. An empty prompt clears it;
// a non-nil note replaces the version note.
func (s *Service) UpdatePrompt(ctx context.Context, versionID, actorID int64, prompt *string, note *string) (*PromptView, error) {
	if prompt != nil && utf8.RuneCountInString(*prompt) > maxPromptLen {
		return nil, apperr.New(apperr.KindImportValidation,
			fmt.Sprintf("system_prompt must be at most %d characters", maxPromptLen))
	}
	if prompt != nil && *prompt == "" {
		prompt = nil
	}
	note = optional(note)

	var v *model.Version
	err := s.ledger.Mutate(ctx, func(ctx context.Context, tx pgx.Tx) (*model.AuditEntry, error) {
		current, err := store.LockVersion(ctx, tx, versionID)
		if err != nil {
			return nil, err
		}
		if !current.IsDraft() {
			return nil, frozen(versionID)
		}
		now := s.ledger.Now()
		v, err = store.UpdatePrompt(ctx, tx, versionID, prompt, note, actorID, now)
		if err != nil {
			return nil, err
		}
		field := "system_prompt"
		return &model.AuditEntry{
			VersionID: versionID,
			ActorID:   actorID,
			Action:    model.AuditPromptUpdate,
			FieldName: &field,
			NewValue:  map[string]any{"system_prompt_sha256": PromptDigest(prompt)},
			Note:      note,
			CreatedAt: now,
		}, nil
	})
	monitoring.Observe("prompt_update", err)
	if err != nil {
		logUnexpected("prompt update", versionID, err)
		return nil, err
	}

	zap.L().Info("system prompt updated",
		zap.Int64("version_id", versionID),
		zap.Int64("actor_id", actorID),
		zap.Bool("cleared", prompt == nil),
	)
	return promptView(v), nil
}
