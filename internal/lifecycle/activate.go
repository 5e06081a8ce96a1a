package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/sells-group/diagnostic-versions/internal/apperr"
	"github.com/sells-group/diagnostic-versions/internal/model"
	"github.com/sells-group/diagnostic-versions/internal/monitoring"
	"github.com/sells-group/diagnostic-versions/internal/store"
)

// ActivateResult is returned by Activate.
type ActivateResult struct {
	DiagnosticID int64     `json:"diagnostic_id" yaml:"diagnostic_id"`
	VersionID    int64     `json:"version_id" yaml:"version_id"`
	ActivatedAt  time.Time `json:"activated_at" yaml:"activated_at"`
	ActivatedBy  int64     `json:"activated_by_admin_id" yaml:"activated_by_admin_id"`
}

// Activate points the version's diagnostic at it. expectedDiagnosticID is
// optional (0 skips the check). Any finalized version may be activated,
// including one that was active before.
func (s *Service) Activate(ctx context.Context, versionID, actorID, expectedDiagnosticID int64) (*ActivateResult, error) {
	var res *ActivateResult
	err := s.ledger.Mutate(ctx, func(ctx context.Context, tx pgx.Tx) (*model.AuditEntry, error) {
		v, err := store.LockVersion(ctx, tx, versionID)
		if err != nil {
			return nil, err
		}
		if v.IsDraft() {
			return nil, apperr.New(apperr.KindDependencyMissing, "versions must be finalized before activation")
		}
		if expectedDiagnosticID > 0 && expectedDiagnosticID != v.DiagnosticID {
			return nil, apperr.New(apperr.KindFilterMismatch,
				fmt.Sprintf("version %d belongs to diagnostic %d, not %d", versionID, v.DiagnosticID, expectedDiagnosticID))
		}

		if _, err := store.LockDiagnostic(ctx, tx, v.DiagnosticID); err != nil {
			return nil, err
		}
		prev, err := store.LockActivePointer(ctx, tx, v.DiagnosticID)
		if err != nil {
			return nil, err
		}

		now := s.ledger.Now()
		p, err := store.SetActivePointer(ctx, tx, v.DiagnosticID, versionID, actorID, now)
		if err != nil {
			return nil, err
		}
		if err := store.TouchVersion(ctx, tx, versionID, actorID, now); err != nil {
			return nil, err
		}

		var previous any
		note := "previous_version_id=NULL"
		if prev != nil {
			previous = prev.VersionID
			note = fmt.Sprintf("previous_version_id=%d", prev.VersionID)
		}
		res = &ActivateResult{
			DiagnosticID: v.DiagnosticID,
			VersionID:    versionID,
			ActivatedAt:  utc(p.UpdatedAt),
			ActivatedBy:  actorID,
		}
		return &model.AuditEntry{
			VersionID: versionID,
			ActorID:   actorID,
			Action:    model.AuditActivate,
			NewValue: map[string]any{
				"diagnostic_id":        v.DiagnosticID,
				"previous_version_id":  previous,
				"activated_version_id": versionID,
			},
			Note:      &note,
			CreatedAt: now,
		}, nil
	})
	monitoring.Observe("activate", err)
	if err != nil {
		logUnexpected("activate", versionID, err)
		return nil, err
	}

	zap.L().Info("version activated",
		zap.Int64("version_id", versionID),
		zap.Int64("diagnostic_id", res.DiagnosticID),
		zap.Int64("actor_id", actorID),
	)
	return res, nil
}
