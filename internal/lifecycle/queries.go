package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/diagnostic-versions/internal/apperr"
	"github.com/sells-group/diagnostic-versions/internal/model"
	"github.com/sells-group/diagnostic-versions/internal/store"
)

const (
	// DefaultVersionLimit applies when a version listing names no limit.
	DefaultVersionLimit = 100
	maxVersionLimit     = 1000
	previewLen          = 200
)

// ParseIncludeInactive accepts "true" or "false" in any case; blank is false.
func ParseIncludeInactive(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "false":
		return false, nil
	case "true":
		return true, nil
	}
	return false, apperr.New(apperr.KindInvalidStatus, fmt.Sprintf("include_inactive must be true or false, got %q", raw))
}

// DiagnosticItem is one row of the diagnostics listing.
type DiagnosticItem struct {
	ID               int64   `json:"id" yaml:"id"`
	Code             string  `json:"code" yaml:"code"`
	DisplayName      string  `json:"display_name" yaml:"display_name"`
	Description      *string `json:"description" yaml:"description"`
	OutcomeTableName string  `json:"outcome_table_name" yaml:"outcome_table_name"`
	IsActive         bool    `json:"is_active" yaml:"is_active"`
}

// ListDiagnostics lists diagnostics ordered by code.
func (s *Service) ListDiagnostics(ctx context.Context, includeInactive bool) ([]DiagnosticItem, error) {
	list, err := store.ListDiagnostics(ctx, s.pool, includeInactive)
	if err != nil {
		return nil, err
	}
	out := make([]DiagnosticItem, len(list))
	for i, d := range list {
		out[i] = DiagnosticItem{
			ID:               d.ID,
			Code:             d.Code,
			DisplayName:      d.Code,
			Description:      d.Description,
			OutcomeTableName: d.OutcomeTableName,
			IsActive:         d.IsActive,
		}
	}
	return out, nil
}

// ActiveVersion is the version a diagnostic currently serves.
type ActiveVersion struct {
	VersionID   int64      `json:"version_id" yaml:"version_id"`
	Name        string     `json:"name" yaml:"name"`
	SrcHash     *string    `json:"src_hash" yaml:"src_hash"`
	ActivatedAt *time.Time `json:"activated_at" yaml:"activated_at"`
	ActivatedBy *int64     `json:"activated_by_admin_id" yaml:"activated_by_admin_id"`
}

// ActiveVersionItem is one diagnostic with its active version, if any.
type ActiveVersionItem struct {
	DiagnosticID   int64          `json:"diagnostic_id" yaml:"diagnostic_id"`
	DiagnosticCode string         `json:"diagnostic_code" yaml:"diagnostic_code"`
	DisplayName    string         `json:"display_name" yaml:"display_name"`
	ActiveVersion  *ActiveVersion `json:"active_version" yaml:"active_version"`
}

// ActiveVersions lists active pointers, optionally narrowed to one
// diagnostic by id or by code (not both).
func (s *Service) ActiveVersions(ctx context.Context, diagnosticID int64, code string) ([]ActiveVersionItem, error) {
	code = strings.TrimSpace(code)
	if diagnosticID > 0 && code != "" {
		return nil, apperr.New(apperr.KindInvalidFilter, "specify either diagnostic_id or diagnostic_code, not both")
	}
	slots, err := store.ListActiveSlots(ctx, s.pool, store.ActiveSlotFilter{DiagnosticID: diagnosticID, Code: code})
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 && (diagnosticID > 0 || code != "") {
		filter := code
		if diagnosticID > 0 {
			filter = fmt.Sprint(diagnosticID)
		}
		return nil, apperr.New(apperr.KindDiagnosticNotFound, fmt.Sprintf("diagnostic %s not found", filter))
	}

	out := make([]ActiveVersionItem, len(slots))
	for i, sl := range slots {
		item := ActiveVersionItem{
			DiagnosticID:   sl.DiagnosticID,
			DiagnosticCode: sl.DiagnosticCode,
			DisplayName:    sl.DiagnosticCode,
		}
		if sl.Description != nil && *sl.Description != "" {
			item.DisplayName = *sl.Description
		}
		if sl.VersionID != nil {
			av := &ActiveVersion{VersionID: *sl.VersionID, SrcHash: sl.SrcHash, ActivatedBy: sl.ActivatedBy}
			if sl.VersionName != nil {
				av.Name = *sl.VersionName
			}
			if sl.ActivatedAt != nil {
				at := utc(*sl.ActivatedAt)
				av.ActivatedAt = &at
			}
			item.ActiveVersion = av
		}
		out[i] = item
	}
	return out, nil
}

// VersionItem is one row of a diagnostic's version listing.
type VersionItem struct {
	ID                int64               `json:"id" yaml:"id"`
	Name              string              `json:"name" yaml:"name"`
	Status            model.VersionStatus `json:"status" yaml:"status"`
	Description       *string             `json:"description" yaml:"description"`
	Note              *string             `json:"note" yaml:"note"`
	CreatedBy         int64               `json:"created_by_admin_id" yaml:"created_by_admin_id"`
	UpdatedBy         int64               `json:"updated_by_admin_id" yaml:"updated_by_admin_id"`
	CreatedAt         time.Time           `json:"created_at" yaml:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at" yaml:"updated_at"`
	SystemPromptState string              `json:"system_prompt_state" yaml:"system_prompt_state"`
	IsActive          bool                `json:"is_active" yaml:"is_active"`
}

// VersionList is a diagnostic's versions.
type VersionList struct {
	DiagnosticID int64         `json:"diagnostic_id" yaml:"diagnostic_id"`
	Items        []VersionItem `json:"items" yaml:"items"`
}

// ListVersions lists a diagnostic's versions, finalized first. status is
// "draft", "finalized" or blank; limit must be within 1..1000.
func (s *Service) ListVersions(ctx context.Context, diagnosticID int64, status string, limit int) (*VersionList, error) {
	var st model.VersionStatus
	if raw := strings.ToLower(strings.TrimSpace(status)); raw != "" {
		var ok bool
		if st, ok = model.ParseVersionStatus(raw); !ok {
			return nil, apperr.New(apperr.KindInvalidStatus, fmt.Sprintf("status must be draft or finalized, got %q", status))
		}
	}
	if limit < 1 || limit > maxVersionLimit {
		return nil, apperr.New(apperr.KindInvalidLimit, fmt.Sprintf("limit must be between 1 and %d", maxVersionLimit))
	}
	if _, err := store.GetDiagnostic(ctx, s.pool, diagnosticID); err != nil {
		return nil, err
	}

	rows, err := store.ListVersions(ctx, s.pool, store.VersionFilter{DiagnosticID: diagnosticID, Status: st, Limit: limit})
	if err != nil {
		return nil, err
	}
	items := make([]VersionItem, len(rows))
	for i, r := range rows {
		state := "empty"
		if r.SystemPrompt != nil && strings.TrimSpace(*r.SystemPrompt) != "" {
			state = "present"
		}
		items[i] = VersionItem{
			ID:                r.ID,
			Name:              r.Name,
			Status:            r.Status(),
			Description:       r.Description,
			Note:              r.Note,
			CreatedBy:         r.CreatedBy,
			UpdatedBy:         r.UpdatedBy,
			CreatedAt:         utc(r.CreatedAt),
			UpdatedAt:         utc(r.UpdatedAt),
			SystemPromptState: state,
			IsActive:          r.IsActive,
		}
	}
	return &VersionList{DiagnosticID: diagnosticID, Items: items}, nil
}

// VersionAudit holds the latest import and finalize ledger entries.
type VersionAudit struct {
	LastImportedAt *time.Time `json:"last_imported_at" yaml:"last_imported_at"`
	LastImportedBy *int64     `json:"last_imported_by_admin_id" yaml:"last_imported_by_admin_id"`
	FinalizedAt    *time.Time `json:"finalized_at" yaml:"finalized_at"`
	FinalizedBy    *int64     `json:"finalized_by_admin_id" yaml:"finalized_by_admin_id"`
}

// VersionDetail is the admin view of one version.
type VersionDetail struct {
	ID                  int64               `json:"id" yaml:"id"`
	DiagnosticID        int64               `json:"diagnostic_id" yaml:"diagnostic_id"`
	Name                string              `json:"name" yaml:"name"`
	Description         *string             `json:"description" yaml:"description"`
	Note                *string             `json:"note" yaml:"note"`
	Status              model.VersionStatus `json:"status" yaml:"status"`
	SystemPromptPreview *string             `json:"system_prompt_preview" yaml:"system_prompt_preview"`
	SrcHash             *string             `json:"src_hash" yaml:"src_hash"`
	CreatedBy           int64               `json:"created_by_admin_id" yaml:"created_by_admin_id"`
	UpdatedBy           int64               `json:"updated_by_admin_id" yaml:"updated_by_admin_id"`
	CreatedAt           time.Time           `json:"created_at" yaml:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at" yaml:"updated_at"`
	Summary             Summary             `json:"summary" yaml:"summary"`
	Audit               *VersionAudit       `json:"audit" yaml:"audit"`
}

// Detail loads a version with its snapshot counts and ledger highlights.
func (s *Service) Detail(ctx context.Context, versionID int64) (*VersionDetail, error) {
	v, err := store.GetVersion(ctx, s.pool, versionID)
	if err != nil {
		return nil, err
	}
	counts, err := store.CountSnapshot(ctx, s.pool, versionID)
	if err != nil {
		return nil, err
	}
	imported, err := store.LatestAction(ctx, s.pool, versionID, model.AuditImport)
	if err != nil {
		return nil, err
	}
	finalized, err := store.LatestAction(ctx, s.pool, versionID, model.AuditFinalize)
	if err != nil {
		return nil, err
	}

	d := &VersionDetail{
		ID:                  v.ID,
		DiagnosticID:        v.DiagnosticID,
		Name:                v.Name,
		Description:         v.Description,
		Note:                v.Note,
		Status:              v.Status(),
		SystemPromptPreview: preview(v.SystemPrompt),
		SrcHash:             v.SrcHash,
		CreatedBy:           v.CreatedBy,
		UpdatedBy:           v.UpdatedBy,
		CreatedAt:           utc(v.CreatedAt),
		UpdatedAt:           utc(v.UpdatedAt),
		Summary:             Summary(counts),
	}
	if imported != nil || finalized != nil {
		a := &VersionAudit{}
		if imported != nil {
			at := utc(imported.At)
			a.LastImportedAt, a.LastImportedBy = &at, &imported.ActorID
		}
		if finalized != nil {
			at := utc(finalized.At)
			a.FinalizedAt, a.FinalizedBy = &at, &finalized.ActorID
		}
		d.Audit = a
	}
	return d, nil
}

// AuditTrail lists a version's ledger entries oldest first.
func (s *Service) AuditTrail(ctx context.Context, versionID int64) ([]model.AuditEntry, error) {
	if _, err := store.GetVersion(ctx, s.pool, versionID); err != nil {
		return nil, err
	}
	return store.AuditEntries(ctx, s.pool, versionID)
}

func preview(prompt *string) *string {
	if prompt == nil {
		return nil
	}
	r := []rune(*prompt)
	if len(r) <= previewLen {
		return prompt
	}
	p := string(r[:previewLen]) + "..."
	return &p
}
