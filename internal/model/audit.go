package model

import "time"

// AuditAction names a recorded mutation.
type AuditAction string

const (
	AuditCreate       AuditAction = "CREATE"
	AuditImport       AuditAction = "IMPORT"
	AuditPromptUpdate AuditAction = "PROMPT_UPDATE"
	AuditFinalize     AuditAction = "FINALIZE"
	AuditActivate     AuditAction = "ACTIVATE"
)

// AuditEntry is one append-only ledger row. OldValue and NewValue are
// serialized as sorted-key JSON when non-nil.
type AuditEntry struct {
	ID        int64
	VersionID int64
	ActorID   int64
	Action    AuditAction
	FieldName *string
	OldValue  any
	NewValue  any
	Note      *string
	CreatedAt time.Time
}
