package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/diagnostic-versions/internal/config"
)

// Checker refreshes the catalog gauges in the background.
type Checker struct {
	collector *Collector
	cfg       config.MonitoringConfig
}

// NewChecker creates a background gauge refresher.
func NewChecker(collector *Collector, cfg config.MonitoringConfig) *Checker {
	return &Checker{collector: collector, cfg: cfg}
}

// Run refreshes once, then on every tick. It blocks until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting catalog checker", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.check(ctx, log)
	for {
		select {
		case <-ctx.Done():
			log.Info("catalog checker stopped")
			return
		case <-ticker.C:
			c.check(ctx, log)
		}
	}
}

func (c *Checker) check(ctx context.Context, log *zap.Logger) {
	snap, err := c.collector.Collect(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Error("monitoring: failed to collect catalog counts", zap.Error(err))
		}
		return
	}
	Publish(snap)
	log.Debug("monitoring: catalog gauges refreshed",
		zap.Int("draft_versions", snap.DraftVersions),
		zap.Int("finalized_versions", snap.FinalizedVersions),
		zap.Int("active_diagnostics", snap.ActiveDiagnostics),
	)
}
