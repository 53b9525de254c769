package models

import "time"

// SourceType enumerates the kinds of public signal collected about a competitor.
type SourceType string

const (
	SourceTypePricing   SourceType = "pricing"
	SourceTypeDocs      SourceType = "docs"
	SourceTypeReviews   SourceType = "reviews"
	SourceTypeChangelog SourceType = "changelog"
	SourceTypeMarketing SourceType = "marketing"
	SourceTypeJobs      SourceType = "jobs"
	SourceTypeStatus    SourceType = "status"
)

// Competitor is a tracked competitor of a project.
type Competitor struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId,omitempty"`
	Name      string `json:"name,omitempty"`
	URL       string `json:"url"`
}

// EvidenceSource is one observed signal about a competitor. A zero ExtractedAt means the
// collector did not record when it was extracted.
type EvidenceSource struct {
	SourceType   SourceType `json:"sourceType"`
	ExtractedAt  time.Time  `json:"extractedAt"`
	CompetitorID string     `json:"competitorId,omitempty"`
	Domain       string     `json:"domain,omitempty"`
	URL          string     `json:"url,omitempty"`
}

// ConfidenceBand is a discrete trust classification.
type ConfidenceBand string

const (
	ConfidenceLow    ConfidenceBand = "low"
	ConfidenceMedium ConfidenceBand = "medium"
	ConfidenceHigh   ConfidenceBand = "high"
)

// Valid reports whether the band is one of the known values.
func (b ConfidenceBand) Valid() bool {
	switch b {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		return true
	default:
		return false
	}
}

// EvidenceQualityCheck summarises evidence sufficiency and freshness for a project.
type EvidenceQualityCheck struct {
	Passes               bool           `json:"passes"`
	Confidence           ConfidenceBand `json:"confidence"`
	DistinctSourceTypes  float64        `json:"distinctSourceTypes"`
	TotalEvidenceSources float64        `json:"totalEvidenceSources"`
	DecayFactor          float64        `json:"decayFactor"`
	Reason               string         `json:"reason,omitempty"`
}

// ConfidenceSignals are the inputs to band and ceiling computation.
type ConfidenceSignals struct {
	EvidenceQuality      ConfidenceBand `json:"evidenceQuality"`
	DecayFactor          float64        `json:"decayFactor"`
	RepairCount          int            `json:"repairCount"`
	BannedPatternPenalty float64        `json:"bannedPatternPenalty"`
}

// ScoreDistributionCheck describes how well a batch of scores is differentiated.
type ScoreDistributionCheck struct {
	Mean               float64  `json:"mean"`
	StdDev             float64  `json:"stdDev"`
	Min                float64  `json:"min"`
	Max                float64  `json:"max"`
	IsFlat             bool     `json:"isFlat"`
	HasExtremeOutliers bool     `json:"hasExtremeOutliers"`
	Flags              []string `json:"flags"`
}
