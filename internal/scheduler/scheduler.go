// Package scheduler runs the integrity scanner on a fixed interval inside the
// API server.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hiroakis/host-management-app/internal/integrity"
	"github.com/hiroakis/host-management-app/internal/inventory"
)

// EventScanned is published on the change feed after every scheduled scan.
const EventScanned inventory.EventType = "integrity_scanned"

// Scanner is the part of integrity.Service the scheduler drives.
type Scanner interface {
	Scan(ctx context.Context) (*integrity.ScanReport, error)
	Repair(ctx context.Context, report *integrity.ScanReport, dryRun bool) (*integrity.RepairResult, error)
}

// Options configures a Scheduler.
type Options struct {
	// Interval between scans. Must be positive.
	Interval time.Duration

	// AutoRepair applies low-risk fixes after each scan that finds issues
	AutoRepair bool

	Publisher inventory.Publisher
	Logger    *slog.Logger
}

// ScanSummary is the payload of an EventScanned event.
type ScanSummary struct {
	ScanID      string `json:"scan_id"`
	TotalIssues int    `json:"total_issues"`
	HealthScore int    `json:"health_score"`
	Repaired    int    `json:"repaired"`
}

// Scheduler periodically scans the inventory.
type Scheduler struct {
	scanner Scanner
	opts    Options
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	last    *integrity.ScanReport
}

// New creates a new scheduler instance
func New(scanner Scanner, opts Options) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scanner: scanner,
		opts:    opts,
		logger:  logger.With(slog.String("component", "scheduler")),
	}
}

// Start begins the scheduler loop. It scans once immediately and then on
// every tick until Stop is called or ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Warn("scheduler already running")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})

	s.logger.Info("scheduler started", slog.Duration("interval", s.opts.Interval))

	go s.loop(ctx, s.done)
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	_, _ = s.RunOnce(ctx)
	for {
		select {
		case <-ticker.C:
			_, _ = s.RunOnce(ctx)
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		}
	}
}

// Stop halts the scheduler and waits for an in-flight scan to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
}

// Last returns the most recent successful scan, or nil.
func (s *Scheduler) Last() *integrity.ScanReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// RunOnce performs a single scan, optionally repairs, and publishes a summary.
func (s *Scheduler) RunOnce(ctx context.Context) (*integrity.ScanReport, error) {
	report, err := s.scanner.Scan(ctx)
	if err != nil {
		s.logger.Error("scheduled scan failed", slog.String("error", err.Error()))
		return nil, err
	}

	summary := ScanSummary{
		ScanID:      report.ID,
		TotalIssues: report.Summary.TotalIssues,
		HealthScore: report.Summary.HealthScore,
	}

	if s.opts.AutoRepair && report.Summary.TotalIssues > 0 {
		result, err := s.scanner.Repair(ctx, report, false)
		if err != nil {
			s.logger.Error("scheduled repair failed",
				slog.String("scan_id", report.ID),
				slog.String("error", err.Error()),
			)
		} else {
			summary.Repaired = result.SuccessCount
		}
	}

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	level := slog.LevelInfo
	if report.Summary.TotalIssues > 0 {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "scheduled scan complete",
		slog.String("scan_id", report.ID),
		slog.Int("issues", summary.TotalIssues),
		slog.Int("health_score", summary.HealthScore),
		slog.Int("repaired", summary.Repaired),
	)

	if s.opts.Publisher != nil {
		s.opts.Publisher.Publish(inventory.Event{Type: EventScanned, Data: summary})
	}
	return report, nil
}
