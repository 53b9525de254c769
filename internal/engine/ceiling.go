package engine

import (
	"math"

	"github.com/paulthebutcher/strat-os-phere-sub000/internal/models"
)

// ScoreCeiling returns the highest score the signals can support.
func (t Thresholds) ScoreCeiling(signals models.ConfidenceSignals) float64 {
	fresh := signals.DecayFactor >= t.CeilingDecayFactor
	fewRepairs := signals.RepairCount <= t.CeilingMaxRepairs

	switch {
	case signals.EvidenceQuality == models.ConfidenceHigh &&
		(fresh || fewRepairs) &&
		signals.BannedPatternPenalty <= t.CeilingMaxPenalty:
		return t.HighCeiling
	case atLeastMedium(signals.EvidenceQuality):
		return t.MediumCeiling
	default:
		return t.LowCeiling
	}
}

// ApplyScoreCeiling clamps score to the ceiling for signals. It never raises a score.
func (t Thresholds) ApplyScoreCeiling(score float64, signals models.ConfidenceSignals) float64 {
	return math.Min(score, t.ScoreCeiling(signals))
}
