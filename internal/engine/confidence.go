package engine

import "github.com/paulthebutcher/strat-os-phere-sub000/internal/models"

// ConfidenceBand classifies how far a scored output can be trusted. The rules cascade: one
// disqualifying signal keeps a high score out of the high band.
func (t Thresholds) ConfidenceBand(signals models.ConfidenceSignals, score float64) models.ConfidenceBand {
	fresh := signals.DecayFactor >= t.HighDecayFactor
	fewRepairs := signals.RepairCount <= t.MaxRepairsForHigh

	if signals.EvidenceQuality == models.ConfidenceHigh &&
		fresh &&
		fewRepairs &&
		signals.BannedPatternPenalty <= t.MaxPenaltyForHigh &&
		score >= t.HighScoreFloor {
		return models.ConfidenceHigh
	}

	if atLeastMedium(signals.EvidenceQuality) &&
		(fresh || fewRepairs) &&
		score >= t.MediumScoreFloor {
		return models.ConfidenceMedium
	}

	return models.ConfidenceLow
}

func atLeastMedium(band models.ConfidenceBand) bool {
	return band == models.ConfidenceMedium || band == models.ConfidenceHigh
}
