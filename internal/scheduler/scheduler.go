// Package scheduler runs the periodic ledger reports on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"agrotrack/internal/core"
)

// Reporter generates the scheduled reports. services.ReportService implements it.
type Reporter interface {
	Weekly(ctx context.Context) (core.LedgerReport, error)
	Monthly(ctx context.Context) (core.LedgerReport, error)
}

// Config holds standard five-field cron expressions. An empty expression
// disables that report.
type Config struct {
	WeeklySchedule  string
	MonthlySchedule string
	Location        *time.Location
	JobTimeout      time.Duration
}

const (
	DefaultWeeklySchedule  = "0 6 * * 1" // Mondays 06:00
	DefaultMonthlySchedule = "0 6 1 * *" // first of the month 06:00
	defaultJobTimeout      = 2 * time.Minute
)

// Scheduler manages scheduled report jobs.
type Scheduler struct {
	cron     *cron.Cron
	reporter Reporter
	cfg      Config
}

func NewScheduler(cfg Config, reporter Reporter) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = defaultJobTimeout
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(cfg.Location)),
		reporter: reporter,
		cfg:      cfg,
	}
}

// Register adds the configured jobs. An invalid expression is an error.
func (s *Scheduler) Register() error {
	jobs := []struct {
		name, spec string
		run        func(context.Context) (core.LedgerReport, error)
	}{
		{"weekly", s.cfg.WeeklySchedule, s.reporter.Weekly},
		{"monthly", s.cfg.MonthlySchedule, s.reporter.Monthly},
	}
	for _, j := range jobs {
		if j.spec == "" {
			slog.Info("Report job disabled", "report", j.name)
			continue
		}
		j := j
		if _, err := s.cron.AddFunc(j.spec, func() { s.runJob(j.name, j.run) }); err != nil {
			return fmt.Errorf("schedule %s report %q: %w", j.name, j.spec, err)
		}
		slog.Info("Scheduled report job", "report", j.name, "schedule", j.spec, "location", s.cfg.Location.String())
	}
	return nil
}

// Run registers the jobs and blocks until ctx ends, then waits for running jobs.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Register(); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Starting scheduler", "jobs", len(s.cron.Entries()))
	s.cron.Start()
	<-ctx.Done()
	slog.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
	return nil
}

// Entries exposes the registered jobs.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Scheduler) runJob(name string, run func(context.Context) (core.LedgerReport, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()

	start := time.Now()
	r, err := run(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Scheduled report failed", "report", name, "error", err)
		return
	}
	slog.InfoContext(ctx, "Scheduled report completed",
		"report", name,
		"transactions", r.TransactionCount,
		"duration", time.Since(start))
}
