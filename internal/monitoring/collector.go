package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/diagnostic-versions/internal/db"
)

// Snapshot holds a point-in-time view of the version catalog.
type Snapshot struct {
	Diagnostics       int       `json:"diagnostics" yaml:"diagnostics"`
	DraftVersions     int       `json:"draft_versions" yaml:"draft_versions"`
	FinalizedVersions int       `json:"finalized_versions" yaml:"finalized_versions"`
	ActiveDiagnostics int       `json:"active_diagnostics" yaml:"active_diagnostics"`
	CollectedAt       time.Time `json:"collected_at" yaml:"collected_at"`
}

// Collector gathers catalog counts from the store.
type Collector struct {
	q   db.Querier
	now func() time.Time
}

// NewCollector creates a new catalog collector.
func NewCollector(q db.Querier) *Collector {
	return &Collector{q: q, now: func() time.Time { return time.Now().UTC() }}
}

const snapshotQuery = `SELECT
	(SELECT count(*) FROM diagnostics),
	(SELECT count(*) FROM diagnostic_versions WHERE src_hash IS NULL),
	(SELECT count(*) FROM diagnostic_versions WHERE src_hash IS NOT NULL),
	(SELECT count(*) FROM cfg_active_versions)`

// Collect reads the current counts.
func (c *Collector) Collect(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{CollectedAt: c.now()}
	err := c.q.QueryRow(ctx, snapshotQuery).Scan(
		&snap.Diagnostics, &snap.DraftVersions, &snap.FinalizedVersions, &snap.ActiveDiagnostics)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: collect catalog counts")
	}
	return snap, nil
}

// Publish copies a snapshot into the gauges.
func Publish(snap *Snapshot) {
	VersionsByStatus.WithLabelValues("draft").Set(float64(snap.DraftVersions))
	VersionsByStatus.WithLabelValues("finalized").Set(float64(snap.FinalizedVersions))
	ActiveDiagnostics.Set(float64(snap.ActiveDiagnostics))
}
