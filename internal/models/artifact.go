package models

import (
	"encoding/json"
	"time"
)

// ArtifactType names a stored generation output.
type ArtifactType string

const (
	ArtifactJTBD          ArtifactType = "jtbd"
	ArtifactOpportunities ArtifactType = "opportunities_v2"
	ArtifactScoringMatrix ArtifactType = "scoring_matrix"
)

// DriftArtifactTypes lists the artifact types compared across runs.
var DriftArtifactTypes = []ArtifactType{ArtifactJTBD, ArtifactOpportunities, ArtifactScoringMatrix}

// Artifact is a stored generation output tagged with the run that produced it.
type Artifact struct {
	ID            string          `json:"id"`
	ProjectID     string          `json:"projectId"`
	RunID         string          `json:"runId"`
	Type          ArtifactType    `json:"type"`
	SchemaVersion int             `json:"schemaVersion,omitempty"`
	Content       json.RawMessage `json:"content"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// RunRef identifies one analysis run of a project.
type RunRef struct {
	ProjectID string    `json:"projectId"`
	RunID     string    `json:"runId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Job is a single Jobs-to-be-Done entry.
type Job struct {
	Statement        string  `json:"job_statement,omitempty"`
	OpportunityScore float64 `json:"opportunity_score"`
}

// JTBDSnapshot is the score-bearing view of a JTBD artifact.
type JTBDSnapshot struct {
	Jobs []Job `json:"jobs"`
}

// Opportunity is a single ranked opportunity.
type Opportunity struct {
	Title string  `json:"title,omitempty"`
	Score float64 `json:"score"`
}

// OpportunitiesSnapshot is the score-bearing view of an opportunities artifact.
type OpportunitiesSnapshot struct {
	Opportunities []Opportunity `json:"opportunities"`
}

// CompetitorSummary is one competitor row in a scoring matrix.
type CompetitorSummary struct {
	CompetitorName     string  `json:"competitor_name,omitempty"`
	TotalWeightedScore float64 `json:"total_weighted_score"`
}

// ScoringMatrixSnapshot is the score-bearing view of a scoring matrix artifact.
type ScoringMatrixSnapshot struct {
	Summary []CompetitorSummary `json:"summary"`
}

// RunSnapshot carries the optional artifact snapshots of one run.
type RunSnapshot struct {
	RunID         string                 `json:"runId,omitempty"`
	JTBD          *JTBDSnapshot          `json:"jtbd,omitempty"`
	Opportunities *OpportunitiesSnapshot `json:"opportunities,omitempty"`
	ScoringMatrix *ScoringMatrixSnapshot `json:"scoringMatrix,omitempty"`
}

// Empty reports whether no artifact type is populated.
func (s RunSnapshot) Empty() bool {
	return s.JTBD == nil && s.Opportunities == nil && s.ScoringMatrix == nil
}

// JTBDDrift holds JTBD deltas between two runs.
type JTBDDrift struct {
	ScoreChange    float64 `json:"scoreChange"`
	JobCountChange int     `json:"jobCountChange"`
}

// OpportunitiesDrift holds opportunity deltas between two runs.
type OpportunitiesDrift struct {
	ScoreChange            float64 `json:"scoreChange"`
	OpportunityCountChange int     `json:"opportunityCountChange"`
}

// ScoringDrift holds scoring matrix deltas between two runs.
type ScoringDrift struct {
	MeanScoreChange       float64 `json:"meanScoreChange"`
	CompetitorCountChange int     `json:"competitorCountChange"`
}

// DriftDetectionResult reports deviation of the current run from the previous one.
type DriftDetectionResult struct {
	HasSignificantDrift bool                `json:"hasSignificantDrift"`
	JTBD                *JTBDDrift          `json:"jtbd,omitempty"`
	Opportunities       *OpportunitiesDrift `json:"opportunities,omitempty"`
	ScoringMatrix       *ScoringDrift       `json:"scoringMatrix,omitempty"`
	Flags               []string            `json:"flags"`
	CurrentRunID        string              `json:"currentRunId,omitempty"`
	PreviousRunID       string              `json:"previousRunId,omitempty"`
}
