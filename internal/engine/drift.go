package engine

import (
	"math"

	"github.com/paulthebutcher/strat-os-phere-sub000/internal/models"
)

// Drift flags, one per artifact type.
const (
	FlagJTBDDrift          = "jtbd_drift"
	FlagOpportunitiesDrift = "opportunities_drift"
	FlagScoringDrift       = "scoring_drift"
)

// DetectDrift compares two run snapshots. Each artifact type is only evaluated when both runs
// carry it; deltas are current minus previous.
func (t Thresholds) DetectDrift(current, previous models.RunSnapshot) models.DriftDetectionResult {
	result := models.DriftDetectionResult{
		Flags:         []string{},
		CurrentRunID:  current.RunID,
		PreviousRunID: previous.RunID,
	}

	if current.JTBD != nil && previous.JTBD != nil {
		cur, prev := jobScores(current.JTBD), jobScores(previous.JTBD)
		drift := &models.JTBDDrift{
			ScoreChange:    round2(mean(cur) - mean(prev)),
			JobCountChange: len(cur) - len(prev),
		}
		result.JTBD = drift
		if math.Abs(drift.ScoreChange) > t.JTBDScoreDrift || absInt(drift.JobCountChange) > t.JTBDCountDrift {
			result.HasSignificantDrift = true
			result.Flags = append(result.Flags, FlagJTBDDrift)
		}
	}

	if current.Opportunities != nil && previous.Opportunities != nil {
		cur, prev := opportunityScores(current.Opportunities), opportunityScores(previous.Opportunities)
		drift := &models.OpportunitiesDrift{
			ScoreChange:            round2(mean(cur) - mean(prev)),
			OpportunityCountChange: len(cur) - len(prev),
		}
		result.Opportunities = drift
		if math.Abs(drift.ScoreChange) > t.OpportunityScoreDrift || absInt(drift.OpportunityCountChange) > t.OpportunityCountDrift {
			result.HasSignificantDrift = true
			result.Flags = append(result.Flags, FlagOpportunitiesDrift)
		}
	}

	if current.ScoringMatrix != nil && previous.ScoringMatrix != nil {
		cur, prev := competitorScores(current.ScoringMatrix), competitorScores(previous.ScoringMatrix)
		drift := &models.ScoringDrift{
			MeanScoreChange:       round2(mean(cur) - mean(prev)),
			CompetitorCountChange: len(cur) - len(prev),
		}
		result.ScoringMatrix = drift
		// any change in the competitor set counts, not just large ones
		if math.Abs(drift.MeanScoreChange) > t.ScoringMeanDrift || drift.CompetitorCountChange != 0 {
			result.HasSignificantDrift = true
			result.Flags = append(result.Flags, FlagScoringDrift)
		}
	}

	return result
}

func jobScores(s *models.JTBDSnapshot) []float64 {
	out := make([]float64, 0, len(s.Jobs))
	for _, j := range s.Jobs {
		out = append(out, j.OpportunityScore)
	}
	return out
}

func opportunityScores(s *models.OpportunitiesSnapshot) []float64 {
	out := make([]float64, 0, len(s.Opportunities))
	for _, o := range s.Opportunities {
		out = append(out, o.Score)
	}
	return out
}

func competitorScores(s *models.ScoringMatrixSnapshot) []float64 {
	out := make([]float64, 0, len(s.Summary))
	for _, c := range s.Summary {
		out = append(out, c.TotalWeightedScore)
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
