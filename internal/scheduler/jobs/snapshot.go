package jobs

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/wonny/aegis-edge/internal/brain"
	"github.com/wonny/aegis-edge/internal/contracts"
	"github.com/wonny/aegis-edge/internal/s0_data/collector"
	"github.com/wonny/aegis-edge/internal/s0_data/snapshot"
	"github.com/wonny/aegis-edge/internal/strategyconfig"
	"github.com/wonny/aegis-edge/pkg/logger"
)

// SnapshotJob freezes the watchlist's inputs after the close into <root>/<date>
// so the day's evaluations can be replayed later.
// ⭐ SSOT: 데이터 수집 스케줄은 이 Job에서만
type SnapshotJob struct {
	gatherer *brain.Gatherer
	config   *strategyconfig.Config
	root     string
	source   string
	logger   *logger.Logger
	now      func() time.Time
}

// NewSnapshotJob creates a new snapshot job
func NewSnapshotJob(gatherer *brain.Gatherer, cfg *strategyconfig.Config, root, source string, log *logger.Logger) *SnapshotJob {
	return &SnapshotJob{
		gatherer: gatherer,
		config:   cfg,
		root:     root,
		source:   source,
		logger:   log,
		now:      time.Now,
	}
}

// Name returns the job name
func (j *SnapshotJob) Name() string {
	return "daily_snapshot"
}

// Schedule returns the cron schedule (16:30 ET on weekdays)
func (j *SnapshotJob) Schedule() string {
	return "0 30 16 * * MON-FRI"
}

// Timeout bounds one collection attempt
func (j *SnapshotJob) Timeout() time.Duration {
	return 2 * j.config.Batch.Timeout
}

// Run collects every watchlist symbol and writes the manifest
func (j *SnapshotJob) Run(ctx context.Context) error {
	asOf := j.now()
	dir := filepath.Join(j.root, contracts.SessionDate(asOf).Format("2006-01-02"))

	store, err := snapshot.Open(dir)
	if err != nil {
		return err
	}

	col := collector.NewCollector(j.gatherer, store, j.logger)
	results := col.Collect(ctx, j.config.Universe.Watchlist, asOf, collector.Config{Workers: j.config.Batch.Workers})

	var collected []string
	for _, r := range results {
		if r.Error == nil {
			collected = append(collected, r.Symbol)
		}
	}
	if len(collected) == 0 && len(results) > 0 {
		return fmt.Errorf("snapshot collected no symbols")
	}

	if err := store.WriteManifest(&snapshot.Manifest{
		AsOf:      asOf,
		Symbols:   collected,
		Source:    j.source,
		CreatedAt: time.Now(),
	}); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"dir":       dir,
		"collected": len(collected),
		"total":     len(results),
	}).Info("Daily snapshot written")
	return nil
}
