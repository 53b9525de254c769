package models

import "time"

// BannedPatternReport lists lexical markers of low-quality generated text.
type BannedPatternReport struct {
	HasViolations        bool     `json:"hasViolations"`
	VagueVerbs           []string `json:"vagueVerbs"`
	UnsupportedAbsolutes []string `json:"unsupportedAbsolutes"`
	Penalty              float64  `json:"penalty"`
}

// EvaluationRequest describes one generated artifact to be judged.
type EvaluationRequest struct {
	ProjectID    string       `json:"projectId"`
	ArtifactType ArtifactType `json:"artifactType"`
	Text         string       `json:"text"`
	RawScore     float64      `json:"rawScore"`
	RepairCount  int          `json:"repairCount"`
}

// ArtifactVerdict is the combined guardrail outcome for one generated artifact.
type ArtifactVerdict struct {
	VerdictID     string               `json:"verdictId"`
	ProjectID     string               `json:"projectId"`
	ArtifactType  ArtifactType         `json:"artifactType,omitempty"`
	Evidence      EvidenceQualityCheck `json:"evidence"`
	Patterns      BannedPatternReport  `json:"patterns"`
	Signals       ConfidenceSignals    `json:"signals"`
	Band          ConfidenceBand       `json:"band"`
	RawScore      float64              `json:"rawScore"`
	Ceiling       float64              `json:"ceiling"`
	AdjustedScore float64              `json:"adjustedScore"`
	EvaluatedAt   time.Time            `json:"evaluatedAt"`
}
