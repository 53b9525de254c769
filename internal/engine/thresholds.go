package engine

import "time"

// Thresholds carries every fixed constant the guardrails evaluate against. Band and ceiling
// rules are tuned independently even where they look alike.
type Thresholds struct {
	// Evidence gate.
	MinDistinctSourceTypes float64 `yaml:"minDistinctSourceTypes"`
	MinEvidenceSources     float64 `yaml:"minEvidenceSources"`

	// Evidence freshness.
	FreshWindow      time.Duration `yaml:"freshWindow"`
	EvidenceTTL      time.Duration `yaml:"evidenceTTL"`
	MissingTimestamp float64       `yaml:"missingTimestampDecay"`

	// Confidence band.
	HighDecayFactor   float64 `yaml:"highDecayFactor"`
	MaxRepairsForHigh int     `yaml:"maxRepairsForHigh"`
	MaxPenaltyForHigh float64 `yaml:"maxPenaltyForHigh"`
	HighScoreFloor    float64 `yaml:"highScoreFloor"`
	MediumScoreFloor  float64 `yaml:"mediumScoreFloor"`

	// Score ceiling.
	CeilingDecayFactor float64 `yaml:"ceilingDecayFactor"`
	CeilingMaxRepairs  int     `yaml:"ceilingMaxRepairs"`
	CeilingMaxPenalty  float64 `yaml:"ceilingMaxPenalty"`
	HighCeiling        float64 `yaml:"highCeiling"`
	MediumCeiling      float64 `yaml:"mediumCeiling"`
	LowCeiling         float64 `yaml:"lowCeiling"`

	// Score distribution.
	FlatStdDevRatio float64 `yaml:"flatStdDevRatio"`
	OutlierSigmas   float64 `yaml:"outlierSigmas"`

	// Drift.
	JTBDScoreDrift        float64 `yaml:"jtbdScoreDrift"`
	JTBDCountDrift        int     `yaml:"jtbdCountDrift"`
	OpportunityScoreDrift float64 `yaml:"opportunityScoreDrift"`
	OpportunityCountDrift int     `yaml:"opportunityCountDrift"`
	ScoringMeanDrift      float64 `yaml:"scoringMeanDrift"`
}

// DefaultEvidenceTTL mirrors EVIDENCE_CACHE_TTL_HOURS when it is not configured.
const DefaultEvidenceTTL = 168 * time.Hour

// DefaultThresholds returns the production guardrail constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinDistinctSourceTypes: 2,
		MinEvidenceSources:     3,

		FreshWindow:      24 * time.Hour,
		EvidenceTTL:      DefaultEvidenceTTL,
		MissingTimestamp: 0.5,

		HighDecayFactor:   0.8,
		MaxRepairsForHigh: 1,
		MaxPenaltyForHigh: 0.2,
		HighScoreFloor:    70,
		MediumScoreFloor:  50,

		CeilingDecayFactor: 0.8,
		CeilingMaxRepairs:  1,
		CeilingMaxPenalty:  0.2,
		HighCeiling:        100,
		MediumCeiling:      90,
		LowCeiling:         85,

		FlatStdDevRatio: 0.1,
		OutlierSigmas:   3,

		JTBDScoreDrift:        10,
		JTBDCountDrift:        2,
		OpportunityScoreDrift: 15,
		OpportunityCountDrift: 2,
		ScoringMeanDrift:      10,
	}
}

// WithEvidenceTTL returns a copy using the supplied TTL; non-positive values are ignored.
func (t Thresholds) WithEvidenceTTL(ttl time.Duration) Thresholds {
	if ttl > 0 {
		t.EvidenceTTL = ttl
	}
	return t
}
