package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/paulthebutcher/strat-os-phere-sub000/internal/invariants"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/models"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/patterns"
)

// ErrInvalidRequest marks evaluation input that cannot be judged.
var ErrInvalidRequest = errors.New("invalid evaluation request")

// CompetitorSource lists the competitors tracked for a project.
type CompetitorSource interface {
	ListCompetitors(ctx context.Context, projectID string) ([]models.Competitor, error)
}

// EvaluationObserver is told about every completed evaluation.
type EvaluationObserver func(verdict models.ArtifactVerdict, elapsed time.Duration)

// Evaluator runs the full guardrail chain for one generated artifact: evidence quality,
// banned patterns, confidence band and score ceiling.
type Evaluator struct {
	logger      *slog.Logger
	competitors CompetitorSource
	evidence    *EvidenceChecker
	validator   *patterns.Validator
	thresholds  Thresholds
	invariants  *invariants.Checker
	observe     EvaluationObserver
	now         func() time.Time
}

// NewEvaluator wires an Evaluator. observe may be nil.
func NewEvaluator(
	logger *slog.Logger,
	competitors CompetitorSource,
	evidence *EvidenceChecker,
	validator *patterns.Validator,
	thresholds Thresholds,
	checker *invariants.Checker,
	observe EvaluationObserver,
) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	if validator == nil {
		validator = patterns.NewValidator(patterns.DefaultLexicon())
	}
	if evidence == nil {
		evidence = NewEvidenceChecker(logger, nil, thresholds)
	}
	return &Evaluator{
		logger:      logger,
		competitors: competitors,
		evidence:    evidence,
		validator:   validator,
		thresholds:  thresholds,
		invariants:  checker,
		observe:     observe,
		now:         time.Now,
	}
}

// EvaluateArtifact judges one artifact and returns its verdict. Evidence lookup failures
// degrade the verdict; a failing competitor store fails the evaluation.
func (e *Evaluator) EvaluateArtifact(ctx context.Context, req models.EvaluationRequest) (models.ArtifactVerdict, error) {
	start := e.now()
	if req.ProjectID == "" {
		return models.ArtifactVerdict{}, fmt.Errorf("%w: projectId is required", ErrInvalidRequest)
	}
	if req.RepairCount < 0 {
		return models.ArtifactVerdict{}, fmt.Errorf("%w: repairCount must not be negative", ErrInvalidRequest)
	}

	e.invariants.Invariant(req.RawScore >= 0 && req.RawScore <= 100, invariants.Context{
		ID:      invariants.ScoreInRange,
		Message: "raw score outside [0,100]",
		Details: map[string]any{"raw_score": req.RawScore, "project_id": req.ProjectID},
	})

	var competitors []models.Competitor
	if e.competitors != nil {
		var err error
		competitors, err = e.competitors.ListCompetitors(ctx, req.ProjectID)
		if err != nil {
			return models.ArtifactVerdict{}, fmt.Errorf("list competitors: %w", err)
		}
	}

	evidence, err := e.evidence.Check(ctx, competitors)
	if err != nil {
		return models.ArtifactVerdict{}, err
	}
	report := e.validator.Detect(req.Text)

	signals := models.ConfidenceSignals{
		EvidenceQuality:      evidence.Confidence,
		DecayFactor:          evidence.DecayFactor,
		RepairCount:          req.RepairCount,
		BannedPatternPenalty: report.Penalty,
	}
	ceiling := e.thresholds.ScoreCeiling(signals)
	adjusted := e.thresholds.ApplyScoreCeiling(req.RawScore, signals)
	band := e.thresholds.ConfidenceBand(signals, adjusted)

	e.invariants.Invariant(adjusted <= req.RawScore, invariants.Context{
		ID:      invariants.CeilingNeverRaises,
		Message: "ceiling raised the score",
		Details: map[string]any{"raw_score": req.RawScore, "adjusted_score": adjusted, "ceiling": ceiling},
	})
	e.invariants.Invariant(evidence.DecayFactor >= 0 && evidence.DecayFactor <= 1, invariants.Context{
		ID:      invariants.DecayInRange,
		Message: "decay factor outside [0,1]",
		Details: map[string]any{"decay_factor": evidence.DecayFactor},
	})
	e.invariants.Invariant(band != models.ConfidenceHigh || evidence.Confidence == models.ConfidenceHigh, invariants.Context{
		ID:      invariants.HighBandNeedsHighEvidence,
		Message: "high band without high evidence quality",
		Details: map[string]any{"evidence_quality": string(evidence.Confidence)},
	})

	verdict := models.ArtifactVerdict{
		VerdictID:     uuid.NewString(),
		ProjectID:     req.ProjectID,
		ArtifactType:  req.ArtifactType,
		Evidence:      evidence,
		Patterns:      report,
		Signals:       signals,
		Band:          band,
		RawScore:      req.RawScore,
		Ceiling:       ceiling,
		AdjustedScore: adjusted,
		EvaluatedAt:   e.now().UTC(),
	}

	elapsed := e.now().Sub(start)
	e.logger.Info("artifact evaluated",
		slog.String("verdict_id", verdict.VerdictID),
		slog.String("project_id", req.ProjectID),
		slog.String("artifact_type", string(req.ArtifactType)),
		slog.String("band", string(band)),
		slog.Float64("raw_score", req.RawScore),
		slog.Float64("adjusted_score", adjusted),
		slog.Duration("elapsed", elapsed),
	)
	if e.observe != nil {
		e.observe(verdict, elapsed)
	}
	return verdict, nil
}
