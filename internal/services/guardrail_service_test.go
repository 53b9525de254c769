package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/paulthebutcher/strat-os-phere-sub000/internal/engine"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/models"
)

type storeStub struct {
	competitors []models.Competitor
	artifacts   []models.Artifact
	err         error
}

func (s *storeStub) ListCompetitors(ctx context.Context, projectID string) ([]models.Competitor, error) {
	return s.competitors, s.err
}

func (s *storeStub) ListArtifacts(ctx context.Context, projectID string, types []models.ArtifactType) ([]models.Artifact, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Artifact
	for _, a := range s.artifacts {
		for _, typ := range types {
			if a.Type == typ {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

type lookupStub struct {
	sources []models.EvidenceSource
}

func (l *lookupStub) SourcesByCompetitor(ctx context.Context, competitorID string) ([]models.EvidenceSource, error) {
	return l.sources, nil
}

func (l *lookupStub) SourcesByDomain(ctx context.Context, domain string) ([]models.EvidenceSource, error) {
	return nil, errors.New("not used")
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func opportunities(runID string, at time.Duration, content string) models.Artifact {
	return models.Artifact{
		ID:            runID + "-opps",
		ProjectID:     "proj-1",
		RunID:         runID,
		Type:          models.ArtifactOpportunities,
		SchemaVersion: 2,
		Content:       json.RawMessage(content),
		CreatedAt:     base.Add(at),
	}
}

func newTestService(store *storeStub) *GuardrailService {
	th := engine.DefaultThresholds()
	lookup := &lookupStub{sources: []models.EvidenceSource{
		{SourceType: models.SourceTypePricing, ExtractedAt: time.Now().Add(-time.Hour)},
		{SourceType: models.SourceTypeDocs, ExtractedAt: time.Now().Add(-time.Hour)},
		{SourceType: models.SourceTypeReviews, ExtractedAt: time.Now().Add(-time.Hour)},
	}}
	evidence := engine.NewEvidenceChecker(nil, lookup, th)
	return NewGuardrailService(nil, Dependencies{
		Evaluator:  engine.NewEvaluator(nil, store, evidence, nil, th, nil, nil),
		Evidence:   evidence,
		Drift:      engine.NewDriftDetector(nil, store, th, nil),
		Store:      store,
		Thresholds: th,
	})
}

func mustStruct(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatalf("build struct: %v", err)
	}
	return s
}

func TestEvaluateArtifact(t *testing.T) {
	service := newTestService(&storeStub{competitors: []models.Competitor{{ID: "c1"}}})

	out, err := service.EvaluateArtifact(context.Background(), mustStruct(t, map[string]any{
		"projectId": "proj-1",
		"text":      "Launch a self-serve tier for agencies.",
		"rawScore":  88,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fields := out.GetFields()
	if fields["band"].GetStringValue() != string(models.ConfidenceHigh) {
		t.Fatalf("expected high band, got %v", fields["band"])
	}
	if fields["adjustedScore"].GetNumberValue() != 88 || fields["verdictId"].GetStringValue() == "" {
		t.Fatalf("unexpected verdict: %v", fields)
	}
}

func TestEvaluateArtifactErrors(t *testing.T) {
	service := newTestService(&storeStub{err: errors.New("db down")})

	_, err := service.EvaluateArtifact(context.Background(), mustStruct(t, map[string]any{"rawScore": 50}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}

	_, err = service.EvaluateArtifact(context.Background(), mustStruct(t, map[string]any{"projectId": "p", "rawScore": 50}))
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected internal, got %v", err)
	}

	unconfigured := NewGuardrailService(nil, Dependencies{})
	_, err = unconfigured.EvaluateArtifact(context.Background(), mustStruct(t, map[string]any{"projectId": "p"}))
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected failed precondition, got %v", err)
	}
}

func TestCheckEvidence(t *testing.T) {
	service := newTestService(&storeStub{competitors: []models.Competitor{{ID: "c1"}, {ID: "c2"}}})

	out, err := service.CheckEvidence(context.Background(), mustStruct(t, map[string]any{"projectId": "proj-1"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.GetFields()["passes"].GetBoolValue() || out.GetFields()["confidence"].GetStringValue() != "high" {
		t.Fatalf("unexpected check: %v", out.GetFields())
	}

	if _, err := service.CheckEvidence(context.Background(), mustStruct(t, map[string]any{})); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestDetectBannedPatternsAndAuditScores(t *testing.T) {
	service := NewGuardrailService(nil, Dependencies{Thresholds: engine.DefaultThresholds()})

	out, err := service.DetectBannedPatterns(context.Background(), mustStruct(t, map[string]any{
		"text": "We will always leverage AI.",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.GetFields()["hasViolations"].GetBoolValue() {
		t.Fatalf("expected violations: %v", out.GetFields())
	}

	out, err = service.AuditScores(context.Background(), mustStruct(t, map[string]any{
		"scores": []any{70, 70, 70, 70},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.GetFields()["isFlat"].GetBoolValue() {
		t.Fatalf("expected flat distribution: %v", out.GetFields())
	}
}

func TestAuditRun(t *testing.T) {
	store := &storeStub{artifacts: []models.Artifact{
		opportunities("run-1", 0, `{"opportunities":[{"score":60},{"score":60}]}`),
		opportunities("run-2", time.Hour, `{"opportunities":[{"score":20},{"score":50},{"score":80}]}`),
	}}
	service := newTestService(store)

	check, err := service.RunAudit(context.Background(), "proj-1", "run-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if check.Mean != 50 || check.Min != 20 || check.Max != 80 || check.IsFlat {
		t.Fatalf("unexpected check: %+v", check)
	}

	if _, err := service.RunAudit(context.Background(), "proj-1", "run-9"); status.Code(err) != codes.NotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := service.AuditRun(context.Background(), mustStruct(t, map[string]any{"projectId": "proj-1"})); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestDetectRunDrift(t *testing.T) {
	store := &storeStub{artifacts: []models.Artifact{
		opportunities("run-1", 0, `{"opportunities":[{"score":40},{"score":40}]}`),
		opportunities("run-2", time.Hour, `{"opportunities":[{"score":80},{"score":80}]}`),
	}}
	service := newTestService(store)

	out, err := service.DetectRunDrift(context.Background(), mustStruct(t, map[string]any{"projectId": "proj-1", "runId": "run-2"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.GetFields()["baseline"].GetBoolValue() {
		t.Fatalf("expected a baseline: %v", out.GetFields())
	}
	drift := out.GetFields()["drift"].GetStructValue().GetFields()
	if !drift["hasSignificantDrift"].GetBoolValue() {
		t.Fatalf("expected significant drift: %v", drift)
	}

	single := newTestService(&storeStub{artifacts: store.artifacts[:1]})
	out, err = single.DetectRunDrift(context.Background(), mustStruct(t, map[string]any{"projectId": "proj-1", "runId": "run-1"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.GetFields()) != 1 || out.GetFields()["baseline"].GetBoolValue() {
		t.Fatalf("expected {baseline:false}, got %v", out.GetFields())
	}

	_, err = service.DetectRunDrift(context.Background(), mustStruct(t, map[string]any{"projectId": "proj-1", "runId": "run-9"}))
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected not found for unknown run, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	out, err := NewGuardrailService(nil, Dependencies{}).HealthCheck(context.Background(), nil)
	if err != nil || out.GetFields()["status"].GetStringValue() != "SERVING" {
		t.Fatalf("unexpected health: %v %v", out, err)
	}
}
