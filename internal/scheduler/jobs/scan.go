package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/aegis-edge/internal/brain"
	"github.com/wonny/aegis-edge/internal/strategyconfig"
	"github.com/wonny/aegis-edge/pkg/logger"
)

// ScanJob evaluates the watchlist on a schedule and logs ready setups
// ⭐ SSOT: 정기 스캔 스케줄은 이 Job에서만
type ScanJob struct {
	scanner *brain.Scanner
	config  *strategyconfig.Config
	logger  *logger.Logger
	now     func() time.Time

	// OnComplete, if set, receives every finished batch (api status, tests)
	OnComplete func(*brain.BatchResult)
}

// NewScanJob creates a new scan job
func NewScanJob(scanner *brain.Scanner, cfg *strategyconfig.Config, log *logger.Logger) *ScanJob {
	return &ScanJob{
		scanner: scanner,
		config:  cfg,
		logger:  log.WithField("job", "watchlist_scan"),
		now:     time.Now,
	}
}

// Name returns the job name
func (j *ScanJob) Name() string {
	return "watchlist_scan"
}

// Schedule returns the cron schedule from the strategy config
func (j *ScanJob) Schedule() string {
	return j.config.Schedule.ScanCron
}

// Timeout bounds one scan attempt
func (j *ScanJob) Timeout() time.Duration {
	return j.config.Batch.Timeout
}

// Run executes one scan. It fails only when nothing could be evaluated,
// so the scheduler retries outages but not single bad symbols.
func (j *ScanJob) Run(ctx context.Context) error {
	watchlist := j.config.Universe.Watchlist
	if len(watchlist) == 0 {
		j.logger.Warn("Watchlist is empty, nothing to scan")
		return nil
	}

	snap, err := strategyconfig.NewDecisionSnapshot(j.config, "")
	if err != nil {
		return fmt.Errorf("config snapshot: %w", err)
	}

	asOf := j.now()
	result := j.scanner.Scan(ctx, watchlist, asOf, brain.BatchOptions{Workers: j.config.Batch.Workers})

	log := j.logger.WithFields(map[string]interface{}{
		"run_id":      result.RunID,
		"config_hash": snap.ConfigHash[:12],
		"strategy":    snap.StrategyID,
	})

	for _, sym := range result.Ready() {
		rec := result.Recommendations[sym]
		log.WithFields(map[string]interface{}{
			"symbol":    sym,
			"direction": rec.Direction,
			"confirmed": fmt.Sprintf("%d/%d", rec.ConfirmedCount, rec.TotalCount),
			"entry":     rec.EntryPrice,
		}).Info("Setup ready to trade")
	}

	log.WithFields(map[string]interface{}{
		"evaluated": len(result.Recommendations),
		"ready":     len(result.Ready()),
		"failed":    len(result.Failures),
		"duration":  result.Duration.Seconds(),
	}).Info("Watchlist scan finished")

	if j.OnComplete != nil {
		j.OnComplete(result)
	}

	if len(result.Recommendations) == 0 && len(result.Failures) > 0 {
		return fmt.Errorf("scan evaluated no symbols: %d failures", len(result.Failures))
	}
	return nil
}
