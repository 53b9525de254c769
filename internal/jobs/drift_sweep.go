// Package jobs hosts background work scheduled alongside the guardrail servers.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/paulthebutcher/strat-os-phere-sub000/internal/engine"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/metrics"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/models"
)

// RunLister lists runs created after a point in time.
type RunLister interface {
	RunsSince(ctx context.Context, since time.Time) ([]models.RunRef, error)
}

// RunDriftDetector compares a run against its baseline. A nil result means no baseline.
type RunDriftDetector interface {
	DetectRunDrift(ctx context.Context, projectID, runID string) (*models.DriftDetectionResult, error)
}

// SweepSummary counts the outcomes of one sweep.
type SweepSummary struct {
	Runs       int
	Drifted    int
	NoBaseline int
	Errors     int
}

// DriftSweep periodically checks recently created runs for drift. It only logs and counts;
// nothing is persisted.
type DriftSweep struct {
	logger   *slog.Logger
	runs     RunLister
	detector RunDriftDetector
	schedule string
	lookback time.Duration
	cron     *cron.Cron
	now      func() time.Time

	mu        sync.Mutex
	lastSweep time.Time
}

// NewDriftSweep validates schedule (standard cron syntax or an @every descriptor) and
// prepares the sweep. The first sweep looks back over lookback.
func NewDriftSweep(logger *slog.Logger, runs RunLister, detector RunDriftDetector, schedule string, lookback time.Duration) (*DriftSweep, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if runs == nil || detector == nil {
		return nil, fmt.Errorf("drift sweep needs a run lister and a detector")
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	return &DriftSweep{
		logger:   logger,
		runs:     runs,
		detector: detector,
		schedule: schedule,
		lookback: lookback,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		now:      time.Now,
	}, nil
}

// Start schedules the sweep. Sweeps run with ctx until Stop is called.
func (s *DriftSweep) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule drift sweep: %w", err)
	}
	s.cron.Start()
	s.logger.Info("drift sweep scheduled", slog.String("schedule", s.schedule))
	return nil
}

// Stop halts scheduling and waits for a running sweep, bounded by ctx.
func (s *DriftSweep) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("drift sweep did not finish before shutdown")
	}
}

// RunOnce sweeps every run created since the previous successful sweep.
func (s *DriftSweep) RunOnce(ctx context.Context) SweepSummary {
	started := s.now()

	s.mu.Lock()
	since := s.lastSweep
	s.mu.Unlock()
	if since.IsZero() {
		since = started.Add(-s.lookback)
	}

	refs, err := s.runs.RunsSince(ctx, since)
	if err != nil {
		s.logger.Error("drift sweep could not list runs", slog.Time("since", since), slog.Any("error", err))
		return SweepSummary{Errors: 1}
	}

	summary := SweepSummary{Runs: len(refs)}
	for _, ref := range refs {
		if ctx.Err() != nil {
			break
		}
		result, err := s.detector.DetectRunDrift(ctx, ref.ProjectID, ref.RunID)
		switch {
		case errors.Is(err, engine.ErrRunNotFound):
			summary.NoBaseline++
			metrics.ObserveDrift(metrics.OutcomeNoBaseline)
			s.logger.Debug("drift sweep skipped run without populated artifacts",
				slog.String("project_id", ref.ProjectID), slog.String("run_id", ref.RunID))
		case err != nil:
			summary.Errors++
			metrics.ObserveDrift(metrics.OutcomeError)
			s.logger.Warn("drift sweep check failed",
				slog.String("project_id", ref.ProjectID), slog.String("run_id", ref.RunID), slog.Any("error", err))
		case result == nil:
			summary.NoBaseline++
			metrics.ObserveDrift(metrics.OutcomeNoBaseline)
		case result.HasSignificantDrift:
			summary.Drifted++
			metrics.ObserveDrift(metrics.OutcomeDrift)
			s.logger.Warn("significant run drift",
				slog.String("project_id", ref.ProjectID),
				slog.String("run_id", ref.RunID),
				slog.String("previous_run_id", result.PreviousRunID),
				slog.Any("flags", result.Flags),
			)
		default:
			metrics.ObserveDrift(metrics.OutcomeStable)
		}
	}

	if ctx.Err() == nil {
		s.mu.Lock()
		s.lastSweep = started
		s.mu.Unlock()
	}
	s.logger.Info("drift sweep finished",
		slog.Int("runs", summary.Runs),
		slog.Int("drifted", summary.Drifted),
		slog.Int("no_baseline", summary.NoBaseline),
		slog.Int("errors", summary.Errors),
	)
	return summary
}
