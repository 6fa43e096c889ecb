package commands

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-edge/internal/brain"
	"github.com/wonny/aegis-edge/internal/scheduler"
	"github.com/wonny/aegis-edge/internal/scheduler/jobs"
	"github.com/wonny/aegis-edge/pkg/config"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업과 다음 실행 시각
  run     - 특정 작업 즉시 실행 (완료까지 대기)

Example:
  go run ./cmd/edge scheduler start
  go run ./cmd/edge scheduler list
  go run ./cmd/edge scheduler run watchlist_scan`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- watchlist_scan: 장중 15분마다 (strategy schedule.scan_cron)
- daily_snapshot: 평일 16:30 ET (장 마감 후 입력 고정, DATA_SOURCE가 file이 아닐 때만)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJobNow,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Aegis Edge Scheduler ===")

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	// Start scheduler
	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	printJobs(sched)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	// next-run times are only known once cron is running
	sched.Start()
	defer sched.Stop()

	printJobs(sched)
	return nil
}

func runJobNow(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Printf("Running job: %s\n", jobName)
	result, err := sched.RunNow(jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	if !result.Success {
		PrintError(fmt.Sprintf("%s failed after %s: %s", jobName, result.Duration.Round(time.Millisecond), result.Error))
		return fmt.Errorf("job %s failed", jobName)
	}
	PrintSuccess(fmt.Sprintf("%s completed in %s", jobName, result.Duration.Round(time.Millisecond)))
	return nil
}

func printJobs(sched *scheduler.Scheduler) {
	fmt.Println("\nRegistered jobs:")
	for _, name := range sched.GetAllJobs() {
		if next, ok := sched.NextRun(name); ok && !next.IsZero() {
			fmt.Printf("  - %-16s next %s\n", name, next.Format("2006-01-02 15:04:05 MST"))
		} else {
			fmt.Printf("  - %s\n", name)
		}
	}
}

func initScheduler(a *app) (*scheduler.Scheduler, error) {
	gatherer := a.gatherer()
	scanner := brain.NewScanner(gatherer, brain.NewDefaultOrchestrator(a.log), a.log)

	sched := scheduler.New(a.log)

	// Register jobs
	if err := sched.AddJob(jobs.NewScanJob(scanner, a.strategy, a.log)); err != nil {
		return nil, err
	}
	// a file source is already frozen; freezing it again would copy it onto itself
	if a.cfg.DataSource != config.DataSourceFile {
		root := filepath.Clean(a.cfg.DataDir)
		if err := sched.AddJob(jobs.NewSnapshotJob(gatherer, a.strategy, root, a.cfg.DataSource, a.log)); err != nil {
			return nil, err
		}
	}

	return sched, nil
}
