package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/paulthebutcher/strat-os-phere-sub000/internal/api"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/engine"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/extractors"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/metrics"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/models"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/patterns"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/utils"
)

// ProjectStore is the read side of the store used by the service.
type ProjectStore interface {
	engine.CompetitorSource
	engine.ArtifactSource
}

// Dependencies groups the collaborators of GuardrailService. Nil members disable the
// operations that need them.
type Dependencies struct {
	Evaluator  *engine.Evaluator
	Evidence   *engine.EvidenceChecker
	Validator  *patterns.Validator
	Drift      *engine.DriftDetector
	Store      ProjectStore
	Thresholds engine.Thresholds
}

// GuardrailService implements the Guardrail gRPC service and the REST backend.
type GuardrailService struct {
	logger     *slog.Logger
	evaluator  *engine.Evaluator
	evidence   *engine.EvidenceChecker
	validator  *patterns.Validator
	drift      *engine.DriftDetector
	store      ProjectStore
	thresholds engine.Thresholds
	extractor  *extractors.SnapshotExtractor
	latencies  *utils.LatencyTracker
}

var (
	_ api.GuardrailServer = (*GuardrailService)(nil)
	_ api.Backend         = (*GuardrailService)(nil)
)

// NewGuardrailService constructs the guardrail service facade.
func NewGuardrailService(logger *slog.Logger, deps Dependencies) *GuardrailService {
	if logger == nil {
		logger = slog.Default()
	}
	validator := deps.Validator
	if validator == nil {
		validator = patterns.NewValidator(patterns.DefaultLexicon())
	}
	return &GuardrailService{
		logger:     logger,
		evaluator:  deps.Evaluator,
		evidence:   deps.Evidence,
		validator:  validator,
		drift:      deps.Drift,
		store:      deps.Store,
		thresholds: deps.Thresholds,
		extractor:  extractors.NewSnapshotExtractor(),
		latencies:  utils.NewLatencyTracker(1024),
	}
}

// Evaluate runs the full guardrail evaluation for one generated artifact.
func (s *GuardrailService) Evaluate(ctx context.Context, req models.EvaluationRequest) (models.ArtifactVerdict, error) {
	if s.evaluator == nil {
		return models.ArtifactVerdict{}, status.Error(codes.FailedPrecondition, "evaluator not configured")
	}

	start := time.Now()
	verdict, err := s.evaluator.EvaluateArtifact(ctx, req)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidRequest) {
			return models.ArtifactVerdict{}, status.Error(codes.InvalidArgument, err.Error())
		}
		s.logger.Error("artifact evaluation failed",
			slog.String("project_id", req.ProjectID), slog.String("op", utils.ErrorOp(err)), slog.Any("error", err))
		return models.ArtifactVerdict{}, status.Error(codes.Internal, "evaluation failed")
	}

	s.latencies.Observe(time.Since(start))
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		summary := s.latencies.Summary()
		s.logger.Info("evaluation latency",
			slog.Duration("p50", summary.P50),
			slog.Duration("p95", summary.P95),
			slog.Duration("p99", summary.P99),
			slog.Int("samples", summary.Count),
		)
	}
	return verdict, nil
}

// EvidenceQuality checks stored competitors' evidence for a project.
func (s *GuardrailService) EvidenceQuality(ctx context.Context, projectID string) (models.EvidenceQualityCheck, error) {
	if projectID == "" {
		return models.EvidenceQualityCheck{}, status.Error(codes.InvalidArgument, "projectId is required")
	}
	if s.evidence == nil || s.store == nil {
		return models.EvidenceQualityCheck{}, status.Error(codes.FailedPrecondition, "evidence checker not configured")
	}

	competitors, err := s.store.ListCompetitors(ctx, projectID)
	if err != nil {
		s.logger.Error("list competitors failed",
			slog.String("project_id", projectID), slog.String("op", utils.ErrorOp(err)), slog.Any("error", err))
		return models.EvidenceQualityCheck{}, status.Error(codes.Internal, "failed to list competitors")
	}
	check, err := s.evidence.Check(ctx, competitors)
	if err != nil {
		return models.EvidenceQualityCheck{}, status.FromContextError(err).Err()
	}
	return check, nil
}

// BannedPatterns lints generated text.
func (s *GuardrailService) BannedPatterns(text string) models.BannedPatternReport {
	return s.validator.Detect(text)
}

// ScoreDistribution audits a batch of scores.
func (s *GuardrailService) ScoreDistribution(scores []float64) models.ScoreDistributionCheck {
	return s.thresholds.CheckScoreDistribution(scores)
}

// RunAudit audits the opportunity scores of one stored run.
func (s *GuardrailService) RunAudit(ctx context.Context, projectID, runID string) (models.ScoreDistributionCheck, error) {
	if projectID == "" || runID == "" {
		return models.ScoreDistributionCheck{}, status.Error(codes.InvalidArgument, "projectId and runId are required")
	}
	if s.store == nil {
		return models.ScoreDistributionCheck{}, status.Error(codes.FailedPrecondition, "artifact store not configured")
	}

	artifacts, err := s.store.ListArtifacts(ctx, projectID, []models.ArtifactType{models.ArtifactOpportunities})
	if err != nil {
		s.logger.Error("list artifacts failed",
			slog.String("project_id", projectID), slog.String("op", utils.ErrorOp(err)), slog.Any("error", err))
		return models.ScoreDistributionCheck{}, status.Error(codes.Internal, "failed to list artifacts")
	}

	var inRun []models.Artifact
	for _, a := range artifacts {
		if a.RunID == runID {
			inRun = append(inRun, a)
		}
	}
	for _, artifact := range engine.RankArtifacts(inRun, models.ArtifactOpportunities) {
		scores, err := s.extractor.OpportunityScores(artifact.Content)
		if err != nil {
			s.logger.Warn("skipping undecodable opportunities artifact",
				slog.String("artifact_id", artifact.ID), slog.Any("error", err))
			continue
		}
		return s.thresholds.CheckScoreDistribution(scores), nil
	}
	return models.ScoreDistributionCheck{}, status.Errorf(codes.NotFound, "run %s has no opportunities artifact", runID)
}

// RunDrift compares a run against the most recent earlier run of its project.
func (s *GuardrailService) RunDrift(ctx context.Context, projectID, runID string) (api.DriftResponse, error) {
	if projectID == "" || runID == "" {
		return api.DriftResponse{}, status.Error(codes.InvalidArgument, "projectId and runId are required")
	}
	if s.drift == nil {
		return api.DriftResponse{}, status.Error(codes.FailedPrecondition, "drift detector not configured")
	}

	result, err := s.drift.DetectRunDrift(ctx, projectID, runID)
	if errors.Is(err, engine.ErrRunNotFound) {
		return api.DriftResponse{}, status.Error(codes.NotFound, err.Error())
	}
	if err != nil {
		metrics.ObserveDrift(metrics.OutcomeError)
		s.logger.Error("drift detection failed", slog.String("project_id", projectID), slog.String("run_id", runID), slog.Any("error", err))
		return api.DriftResponse{}, status.Error(codes.Internal, "drift detection failed")
	}
	if result == nil {
		metrics.ObserveDrift(metrics.OutcomeNoBaseline)
		return api.DriftResponse{Baseline: false}, nil
	}
	if result.HasSignificantDrift {
		metrics.ObserveDrift(metrics.OutcomeDrift)
	} else {
		metrics.ObserveDrift(metrics.OutcomeStable)
	}
	return api.DriftResponse{Baseline: true, Drift: result}, nil
}

// EvaluateArtifact implements the gRPC method.
func (s *GuardrailService) EvaluateArtifact(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := api.FromProtoEvaluationRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	verdict, err := s.Evaluate(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.respond(verdict)
}

// CheckEvidence implements the gRPC method.
func (s *GuardrailService) CheckEvidence(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := api.FromProtoProjectRequest(in, false)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	check, err := s.EvidenceQuality(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	return s.respond(check)
}

// DetectBannedPatterns implements the gRPC method.
func (s *GuardrailService) DetectBannedPatterns(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req api.TextRequest
	if err := api.FromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return s.respond(s.BannedPatterns(req.Text))
}

// AuditScores implements the gRPC method.
func (s *GuardrailService) AuditScores(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req api.ScoresRequest
	if err := api.FromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return s.respond(s.ScoreDistribution(req.Scores))
}

// AuditRun implements the gRPC method.
func (s *GuardrailService) AuditRun(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := api.FromProtoProjectRequest(in, true)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	check, err := s.RunAudit(ctx, req.ProjectID, req.RunID)
	if err != nil {
		return nil, err
	}
	return s.respond(check)
}

// DetectRunDrift implements the gRPC method.
func (s *GuardrailService) DetectRunDrift(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := api.FromProtoProjectRequest(in, true)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := s.RunDrift(ctx, req.ProjectID, req.RunID)
	if err != nil {
		return nil, err
	}
	return s.respond(resp)
}

// HealthCheck returns the current health state.
func (s *GuardrailService) HealthCheck(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.respond(api.HealthResponse{Status: "SERVING"})
}

// LatencyP95 returns the current p95 evaluation latency.
func (s *GuardrailService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}

func (s *GuardrailService) respond(v any) (*structpb.Struct, error) {
	out, err := api.ToStruct(v)
	if err != nil {
		s.logger.Error("encode response failed", slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return out, nil
}
