// Package model holds the diagnostic, version, catalog and snapshot types
// shared by the store, the lifecycle services and the HTTP layer.
package model

import "time"

// VersionStatus is derived from the presence of a source hash; it is never
// stored.
type VersionStatus string

const (
	VersionStatusDraft     VersionStatus = "draft"
	VersionStatusFinalized VersionStatus = "finalized"
)

// ParseVersionStatus accepts "draft" or "finalized".
func ParseVersionStatus(s string) (VersionStatus, bool) {
	switch VersionStatus(s) {
	case VersionStatusDraft, VersionStatusFinalized:
		return VersionStatus(s), true
	}
	return "", false
}

// Diagnostic is a survey whose answers map to an outcome master.
type Diagnostic struct {
	ID               int64     `json:"id" yaml:"id"`
	Code             string    `json:"code" yaml:"code"`
	Description      *string   `json:"description" yaml:"description"`
	OutcomeTableName string    `json:"outcome_table_name" yaml:"outcome_table_name"`
	IsActive         bool      `json:"is_active" yaml:"is_active"`
	CreatedAt        time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" yaml:"updated_at"`
}

// Version is a draft or finalized diagnostic version. A nil SrcHash means
// draft.
type Version struct {
	ID           int64      `json:"id" yaml:"id"`
	DiagnosticID int64      `json:"diagnostic_id" yaml:"diagnostic_id"`
	Name         string     `json:"name" yaml:"name"`
	Description  *string    `json:"description" yaml:"description"`
	SystemPrompt *string    `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	Note         *string    `json:"note" yaml:"note"`
	SrcHash      *string    `json:"src_hash" yaml:"src_hash"`
	CreatedBy    int64      `json:"created_by_admin_id" yaml:"created_by_admin_id"`
	UpdatedBy    int64      `json:"updated_by_admin_id" yaml:"updated_by_admin_id"`
	FinalizedBy  *int64     `json:"finalized_by_admin_id" yaml:"finalized_by_admin_id"`
	FinalizedAt  *time.Time `json:"finalized_at" yaml:"finalized_at"`
	CreatedAt    time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" yaml:"updated_at"`
}

// IsDraft reports whether the version can still be structurally edited.
func (v *Version) IsDraft() bool {
	return v.SrcHash == nil
}

// Status returns the derived lifecycle status.
func (v *Version) Status() VersionStatus {
	if v.IsDraft() {
		return VersionStatusDraft
	}
	return VersionStatusFinalized
}

// ActivePointer is the single live-version slot of a diagnostic.
type ActivePointer struct {
	ID           int64     `json:"id" yaml:"id"`
	DiagnosticID int64     `json:"diagnostic_id" yaml:"diagnostic_id"`
	VersionID    int64     `json:"version_id" yaml:"version_id"`
	CreatedBy    int64     `json:"created_by_admin_id" yaml:"created_by_admin_id"`
	UpdatedBy    int64     `json:"updated_by_admin_id" yaml:"updated_by_admin_id"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
}
