package engine

import (
	"math"

	"github.com/paulthebutcher/strat-os-phere-sub000/internal/models"
)

// Distribution flags.
const (
	FlagEmptyScores      = "empty_scores"
	FlagFlatDistribution = "flat_distribution"
	FlagExtremeOutliers  = "extreme_outliers"
)

// CheckScoreDistribution audits a batch of scores for weak differentiation and outliers.
func (t Thresholds) CheckScoreDistribution(scores []float64) models.ScoreDistributionCheck {
	if len(scores) == 0 {
		return models.ScoreDistributionCheck{IsFlat: true, Flags: []string{FlagEmptyScores}}
	}

	min, max := scores[0], scores[0]
	sum := 0.0
	for _, s := range scores {
		sum += s
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	mean := sum / float64(len(scores))

	variance := 0.0
	for _, s := range scores {
		variance += math.Pow(s-mean, 2)
	}
	variance /= float64(len(scores))
	stdDev := math.Sqrt(variance)

	check := models.ScoreDistributionCheck{
		Mean:   mean,
		StdDev: stdDev,
		Min:    min,
		Max:    max,
		Flags:  []string{},
	}

	// identical scores carry no differentiation at all
	spread := max - min
	check.IsFlat = spread == 0 || stdDev < t.FlatStdDevRatio*spread

	if stdDev > 0 {
		for _, s := range scores {
			if math.Abs(s-mean) > t.OutlierSigmas*stdDev {
				check.HasExtremeOutliers = true
				break
			}
		}
	}

	if check.IsFlat {
		check.Flags = append(check.Flags, FlagFlatDistribution)
	}
	if check.HasExtremeOutliers {
		check.Flags = append(check.Flags, FlagExtremeOutliers)
	}
	return check
}
