package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"agrotrack/internal/core"
)

type countingReporter struct {
	mu      sync.Mutex
	weekly  int
	monthly int
	err     error
}

func (r *countingReporter) Weekly(context.Context) (core.LedgerReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.weekly++
	return core.LedgerReport{Name: "weekly"}, r.err
}

func (r *countingReporter) Monthly(context.Context) (core.LedgerReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.monthly++
	return core.LedgerReport{Name: "monthly"}, r.err
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		entries int
		wantErr bool
	}{
		{"defaults", Config{WeeklySchedule: DefaultWeeklySchedule, MonthlySchedule: DefaultMonthlySchedule}, 2, false},
		{"monthly disabled", Config{WeeklySchedule: DefaultWeeklySchedule}, 1, false},
		{"all disabled", Config{}, 0, false},
		{"invalid", Config{WeeklySchedule: "every tuesday"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScheduler(tt.cfg, &countingReporter{})
			err := s.Register()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Register() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := len(s.Entries()); got != tt.entries {
				t.Fatalf("entries = %d, want %d", got, tt.entries)
			}
		})
	}
}

func TestNextRunHonoursLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	s := NewScheduler(Config{WeeklySchedule: DefaultWeeklySchedule, Location: loc}, &countingReporter{})
	if err := s.Register(); err != nil {
		t.Fatalf("register: %v", err)
	}
	// Tuesday 2025-09-16 10:00 local.
	next := s.Entries()[0].Schedule.Next(time.Date(2025, 9, 16, 10, 0, 0, 0, loc))
	want := time.Date(2025, 9, 22, 6, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Fatalf("next = %v, want %v", next, want)
	}
}

func TestRunJobSwallowsErrors(t *testing.T) {
	r := &countingReporter{err: errors.New("store down")}
	s := NewScheduler(Config{}, r)
	s.runJob("weekly", r.Weekly)
	s.runJob("monthly", r.Monthly)
	if r.weekly != 1 || r.monthly != 1 {
		t.Fatalf("jobs not invoked: weekly=%d monthly=%d", r.weekly, r.monthly)
	}
}

func TestRunStopsWithContext(t *testing.T) {
	s := NewScheduler(Config{WeeklySchedule: DefaultWeeklySchedule}, &countingReporter{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestRunRejectsInvalidSchedule(t *testing.T) {
	s := NewScheduler(Config{MonthlySchedule: "61 * * * *"}, &countingReporter{})
	if err := s.Run(context.Background()); err == nil {
		t.Fatal("expected invalid schedule error")
	}
}
