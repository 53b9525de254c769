package extractors

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulthebutcher/strat-os-phere-sub000/internal/models"
)

// ErrNotPopulated signals stored content that carries no score-bearing list.
var ErrNotPopulated = errors.New("artifact content not populated")

// SnapshotExtractor decodes stored artifact content into score-bearing snapshots.
type SnapshotExtractor struct{}

// NewSnapshotExtractor creates a snapshot extractor.
func NewSnapshotExtractor() *SnapshotExtractor {
	return &SnapshotExtractor{}
}

// JTBD decodes a jtbd artifact; content must carry a "jobs" list.
func (e *SnapshotExtractor) JTBD(content json.RawMessage) (*models.JTBDSnapshot, error) {
	var snapshot models.JTBDSnapshot
	if err := decode(content, &snapshot); err != nil {
		return nil, err
	}
	if snapshot.Jobs == nil {
		return nil, ErrNotPopulated
	}
	return &snapshot, nil
}

// Opportunities decodes an opportunities_v2 artifact; content must carry an "opportunities" list.
func (e *SnapshotExtractor) Opportunities(content json.RawMessage) (*models.OpportunitiesSnapshot, error) {
	var snapshot models.OpportunitiesSnapshot
	if err := decode(content, &snapshot); err != nil {
		return nil, err
	}
	if snapshot.Opportunities == nil {
		return nil, ErrNotPopulated
	}
	return &snapshot, nil
}

// ScoringMatrix decodes a scoring_matrix artifact; content must carry a "summary" list.
func (e *SnapshotExtractor) ScoringMatrix(content json.RawMessage) (*models.ScoringMatrixSnapshot, error) {
	var snapshot models.ScoringMatrixSnapshot
	if err := decode(content, &snapshot); err != nil {
		return nil, err
	}
	if snapshot.Summary == nil {
		return nil, ErrNotPopulated
	}
	return &snapshot, nil
}

// Apply decodes artifact into the matching field of snapshot.
func (e *SnapshotExtractor) Apply(snapshot *models.RunSnapshot, artifact models.Artifact) error {
	switch artifact.Type {
	case models.ArtifactJTBD:
		s, err := e.JTBD(artifact.Content)
		if err != nil {
			return err
		}
		snapshot.JTBD = s
	case models.ArtifactOpportunities:
		s, err := e.Opportunities(artifact.Content)
		if err != nil {
			return err
		}
		snapshot.Opportunities = s
	case models.ArtifactScoringMatrix:
		s, err := e.ScoringMatrix(artifact.Content)
		if err != nil {
			return err
		}
		snapshot.ScoringMatrix = s
	default:
		return fmt.Errorf("unsupported artifact type %q", artifact.Type)
	}
	return nil
}

// OpportunityScores lists the scores of an opportunities artifact, in stored order.
func (e *SnapshotExtractor) OpportunityScores(content json.RawMessage) ([]float64, error) {
	snapshot, err := e.Opportunities(content)
	if err != nil {
		return nil, err
	}
	scores := make([]float64, 0, len(snapshot.Opportunities))
	for _, o := range snapshot.Opportunities {
		scores = append(scores, o.Score)
	}
	return scores, nil
}

func decode(content json.RawMessage, out any) error {
	if len(content) == 0 || string(content) == "null" {
		return ErrNotPopulated
	}
	if err := json.Unmarshal(content, out); err != nil {
		return fmt.Errorf("decode artifact content: %w", err)
	}
	return nil
}
