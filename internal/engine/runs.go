package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/paulthebutcher/strat-os-phere-sub000/internal/extractors"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/invariants"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/models"
)

// ErrRunNotFound reports that the requested run has no populated drift artifacts.
var ErrRunNotFound = errors.New("run not found")

// ArtifactSource lists stored artifacts of a project. Implementations may return artifacts
// in any order.
type ArtifactSource interface {
	ListArtifacts(ctx context.Context, projectID string, types []models.ArtifactType) ([]models.Artifact, error)
}

// DriftDetector compares a run against the most recent earlier run of the same project.
type DriftDetector struct {
	logger     *slog.Logger
	source     ArtifactSource
	extractor  *extractors.SnapshotExtractor
	thresholds Thresholds
	invariants *invariants.Checker
}

// NewDriftDetector constructs a DriftDetector.
func NewDriftDetector(logger *slog.Logger, source ArtifactSource, thresholds Thresholds, checker *invariants.Checker) *DriftDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &DriftDetector{
		logger:     logger,
		source:     source,
		extractor:  extractors.NewSnapshotExtractor(),
		thresholds: thresholds,
		invariants: checker,
	}
}

// DetectRunDrift compares runID with the newest populated run created before it. It returns
// nil without an error when no such baseline exists, and ErrRunNotFound when runID itself has
// nothing to compare.
func (d *DriftDetector) DetectRunDrift(ctx context.Context, projectID, runID string) (*models.DriftDetectionResult, error) {
	if d.source == nil {
		return nil, errors.New("artifact source not configured")
	}
	artifacts, err := d.source.ListArtifacts(ctx, projectID, models.DriftArtifactTypes)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	runs := d.groupRuns(artifacts)
	var current *runGroup
	for i := range runs {
		if runs[i].runID == runID {
			current = &runs[i]
			break
		}
	}
	if current == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	currentSnapshot := d.snapshot(runID, current.artifacts)
	if currentSnapshot.Empty() {
		return nil, fmt.Errorf("%w: %s has no populated artifacts", ErrRunNotFound, runID)
	}

	previous, found := d.previousRun(runs, *current)
	if !found {
		d.logger.Debug("no baseline run for drift", slog.String("project_id", projectID), slog.String("run_id", runID))
		return nil, nil
	}

	result := d.thresholds.DetectDrift(currentSnapshot, previous)
	return &result, nil
}

type runGroup struct {
	runID     string
	latest    time.Time
	artifacts []models.Artifact
}

// groupRuns buckets artifacts by run, newest run first. A run's recency is that of its newest
// artifact.
func (d *DriftDetector) groupRuns(artifacts []models.Artifact) []runGroup {
	index := make(map[string]int)
	var runs []runGroup
	for _, artifact := range artifacts {
		if !d.invariants.Invariant(artifact.RunID != "", invariants.Context{
			ID:      invariants.ArtifactHasRunID,
			Message: "artifact without run id skipped for drift",
			Details: map[string]any{"artifact_id": artifact.ID, "type": string(artifact.Type)},
		}) {
			continue
		}
		i, ok := index[artifact.RunID]
		if !ok {
			i = len(runs)
			index[artifact.RunID] = i
			runs = append(runs, runGroup{runID: artifact.RunID})
		}
		runs[i].artifacts = append(runs[i].artifacts, artifact)
		if artifact.CreatedAt.After(runs[i].latest) {
			runs[i].latest = artifact.CreatedAt
		}
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].latest.After(runs[j].latest)
	})
	return runs
}

// previousRun returns the newest run older than current that has at least one populated
// artifact type. The scan stops at the first hit.
func (d *DriftDetector) previousRun(runs []runGroup, current runGroup) (models.RunSnapshot, bool) {
	for _, run := range runs {
		if run.runID == current.runID || !run.latest.Before(current.latest) {
			continue
		}
		snapshot := d.snapshot(run.runID, run.artifacts)
		if !snapshot.Empty() {
			return snapshot, true
		}
	}
	return models.RunSnapshot{}, false
}

// snapshot builds the run view, taking per type the most preferred artifact that decodes.
func (d *DriftDetector) snapshot(runID string, artifacts []models.Artifact) models.RunSnapshot {
	snapshot := models.RunSnapshot{RunID: runID}
	for _, typ := range models.DriftArtifactTypes {
		for _, artifact := range RankArtifacts(artifacts, typ) {
			err := d.extractor.Apply(&snapshot, artifact)
			if err == nil {
				break
			}
			if !errors.Is(err, extractors.ErrNotPopulated) {
				d.logger.Debug("skipping undecodable artifact",
					slog.String("artifact_id", artifact.ID),
					slog.String("type", string(typ)),
					slog.Any("error", err),
				)
			}
		}
	}
	return snapshot
}

// RankArtifacts filters artifacts of typ and orders them by precedence: schema version 2
// first, then newest created first. Ties keep their input order.
func RankArtifacts(artifacts []models.Artifact, typ models.ArtifactType) []models.Artifact {
	ranked := make([]models.Artifact, 0, len(artifacts))
	for _, artifact := range artifacts {
		if artifact.Type == typ {
			ranked = append(ranked, artifact)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return preferArtifact(ranked[i], ranked[j])
	})
	return ranked
}

func preferArtifact(a, b models.Artifact) bool {
	aV2, bV2 := a.SchemaVersion == 2, b.SchemaVersion == 2
	if aV2 != bV2 {
		return aV2
	}
	return a.CreatedAt.After(b.CreatedAt)
}
