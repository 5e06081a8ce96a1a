package lifecycle

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/sells-group/diagnostic-versions/internal/apperr"
	"github.com/sells-group/diagnostic-versions/internal/model"
	"github.com/sells-group/diagnostic-versions/internal/monitoring"
	"github.com/sells-group/diagnostic-versions/internal/store"
)

// FinalizeResult is returned by Finalize.
type FinalizeResult struct {
	VersionID   int64     `json:"version_id" yaml:"version_id"`
	SrcHash     string    `json:"src_hash" yaml:"src_hash"`
	Summary     Summary   `json:"summary" yaml:"summary"`
	FinalizedAt time.Time `json:"finalized_at" yaml:"finalized_at"`
	FinalizedBy int64     `json:"finalized_by_admin_id" yaml:"finalized_by_admin_id"`
}

// Finalize validates a draft's snapshot, computes its source hash and
// freezes it.
func (s *Service) Finalize(ctx context.Context, versionID, actorID int64) (*FinalizeResult, error) {
	var res *FinalizeResult
	err := s.ledger.Mutate(ctx, func(ctx context.Context, tx pgx.Tx) (*model.AuditEntry, error) {
		v, err := store.LockVersion(ctx, tx, versionID)
		if err != nil {
			return nil, err
		}
		if !v.IsDraft() {
			return nil, frozen(versionID)
		}

		snap, err := store.LoadSnapshot(ctx, tx, versionID)
		if err != nil {
			return nil, err
		}
		if err := checkComplete(snap); err != nil {
			return nil, err
		}

		hash, err := SourceHash(v.SystemPrompt, snap)
		if err != nil {
			return nil, err
		}
		now := s.ledger.Now()
		if err := store.MarkFinalized(ctx, tx, versionID, hash, actorID, now); err != nil {
			return nil, err
		}

		res = &FinalizeResult{
			VersionID: versionID,
			SrcHash:   hash,
			Summary: Summary{
				Questions: len(snap.Questions),
				Options:   snap.ActiveOptionCount(),
				Outcomes:  len(snap.Outcomes),
			},
			FinalizedAt: utc(now),
			FinalizedBy: actorID,
		}
		return &model.AuditEntry{
			VersionID: versionID,
			ActorID:   actorID,
			Action:    model.AuditFinalize,
			NewValue: map[string]any{
				"src_hash":  hash,
				"questions": res.Summary.Questions,
				"options":   res.Summary.Options,
				"outcomes":  res.Summary.Outcomes,
			},
			CreatedAt: now,
		}, nil
	})
	monitoring.Observe("finalize", err)
	if err != nil {
		logUnexpected("finalize", versionID, err)
		return nil, err
	}

	zap.L().Info("version finalized",
		zap.Int64("version_id", versionID),
		zap.Int64("actor_id", actorID),
		zap.String("src_hash", res.SrcHash),
		zap.Int("questions", res.Summary.Questions),
		zap.Int("options", res.Summary.Options),
		zap.Int("outcomes", res.Summary.Outcomes),
	)
	return res, nil
}

// checkComplete runs the finalize preconditions in order.
func checkComplete(snap *model.Snapshot) error {
	if len(snap.Questions) == 0 {
		return apperr.New(apperr.KindDependencyMissing, "finalize requires at least one question")
	}
	active := make(map[int64]int, len(snap.Questions))
	for _, o := range snap.Options {
		if o.IsActive {
			active[o.VersionQuestionID]++
		}
	}
	for _, q := range snap.Questions {
		if active[q.ID] == 0 {
			return apperr.New(apperr.KindDependencyMissing, "every question needs at least one active option")
		}
	}
	if snap.ActiveOptionCount() == 0 {
		return apperr.New(apperr.KindDependencyMissing, "finalize requires at least one active option")
	}
	if len(snap.Outcomes) == 0 {
		return apperr.New(apperr.KindDependencyMissing, "finalize requires at least one outcome")
	}
	return nil
}

func logUnexpected(op string, versionID int64, err error) {
	if _, ok := apperr.As(err); ok {
		return
	}
	zap.L().Error("lifecycle: "+op+" failed", zap.Int64("version_id", versionID), zap.Error(err))
}
