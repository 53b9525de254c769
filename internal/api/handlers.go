package api

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/paulthebutcher/strat-os-phere-sub000/internal/models"
)

// ProjectRequest addresses a project, and optionally one of its runs.
type ProjectRequest struct {
	ProjectID string `json:"projectId"`
	RunID     string `json:"runId,omitempty"`
}

// TextRequest carries generated text to lint.
type TextRequest struct {
	Text string `json:"text"`
}

// ScoresRequest carries a batch of scores to audit.
type ScoresRequest struct {
	Scores []float64 `json:"scores"`
}

// DriftResponse wraps a drift result. Baseline is false when the project has no earlier run
// to compare against, in which case Drift is omitted.
type DriftResponse struct {
	Baseline bool                         `json:"baseline"`
	Drift    *models.DriftDetectionResult `json:"drift,omitempty"`
}

// HealthResponse reports serving status.
type HealthResponse struct {
	Status string `json:"status"`
}

// FromStruct decodes a gRPC struct payload into out using the JSON field names of out.
func FromStruct(in *structpb.Struct, out any) error {
	if in == nil {
		return errors.New("request is nil")
	}
	data, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode struct: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

// ToStruct encodes v as a gRPC struct payload.
func ToStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("response is not an object: %w", err)
	}
	return structpb.NewStruct(fields)
}

// FromProtoEvaluationRequest maps a struct payload into an EvaluationRequest.
func FromProtoEvaluationRequest(in *structpb.Struct) (models.EvaluationRequest, error) {
	var req models.EvaluationRequest
	if err := FromStruct(in, &req); err != nil {
		return models.EvaluationRequest{}, err
	}
	if req.ProjectID == "" {
		return models.EvaluationRequest{}, errors.New("projectId is required")
	}
	if req.RepairCount < 0 {
		return models.EvaluationRequest{}, errors.New("repairCount must be non-negative")
	}
	return req, nil
}

// FromProtoProjectRequest maps a struct payload into a ProjectRequest. When needRun is set
// the runId field is required as well.
func FromProtoProjectRequest(in *structpb.Struct, needRun bool) (ProjectRequest, error) {
	var req ProjectRequest
	if err := FromStruct(in, &req); err != nil {
		return ProjectRequest{}, err
	}
	if req.ProjectID == "" {
		return ProjectRequest{}, errors.New("projectId is required")
	}
	if needRun && req.RunID == "" {
		return ProjectRequest{}, errors.New("runId is required")
	}
	return req, nil
}
