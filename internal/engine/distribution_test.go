package engine

import (
	"math"
	"testing"
)

func TestScoreDistributionEmpty(t *testing.T) {
	check := DefaultThresholds().CheckScoreDistribution(nil)
	if !check.IsFlat || len(check.Flags) != 1 || check.Flags[0] != FlagEmptyScores {
		t.Fatalf("unexpected check for empty batch: %+v", check)
	}
}

func TestScoreDistributionIdentical(t *testing.T) {
	check := DefaultThresholds().CheckScoreDistribution([]float64{50, 50, 50, 50})
	if !check.IsFlat || check.HasExtremeOutliers {
		t.Fatalf("identical scores should be flat without outliers: %+v", check)
	}
	if check.StdDev != 0 || check.Mean != 50 {
		t.Fatalf("unexpected stats: %+v", check)
	}
	if len(check.Flags) != 1 || check.Flags[0] != FlagFlatDistribution {
		t.Fatalf("unexpected flags: %v", check.Flags)
	}
}

func TestScoreDistributionHealthySpread(t *testing.T) {
	check := DefaultThresholds().CheckScoreDistribution([]float64{35, 48, 62, 71, 88})
	if check.IsFlat || check.HasExtremeOutliers {
		t.Fatalf("expected healthy spread, got %+v", check)
	}
	if len(check.Flags) != 0 {
		t.Fatalf("expected no flags, got %v", check.Flags)
	}
	if check.Min != 35 || check.Max != 88 {
		t.Fatalf("unexpected min/max: %+v", check)
	}
}

func TestScoreDistributionOutlier(t *testing.T) {
	scores := make([]float64, 0, 20)
	for i := 0; i < 19; i++ {
		scores = append(scores, 50)
	}
	scores = append(scores, 100)

	check := DefaultThresholds().CheckScoreDistribution(scores)
	if !check.HasExtremeOutliers {
		t.Fatalf("expected outlier, got %+v", check)
	}
	if check.IsFlat {
		t.Fatalf("a single large outlier is not a flat batch: %+v", check)
	}
	if math.Abs(check.Mean-52.5) > 1e-9 {
		t.Fatalf("unexpected mean %f", check.Mean)
	}
}

func TestScoreDistributionSmallBatchCannotExceedThreeSigma(t *testing.T) {
	// with four points the largest possible z-score is sqrt(3)
	check := DefaultThresholds().CheckScoreDistribution([]float64{10, 20, 30, 95})
	if check.HasExtremeOutliers {
		t.Fatalf("unexpected outlier in four-point batch: %+v", check)
	}
}

func TestScoreDistributionNarrowBand(t *testing.T) {
	// stddev stays under a tenth of the range when one point sits apart from a tight cluster
	scores := make([]float64, 0, 100)
	for i := 0; i < 99; i++ {
		scores = append(scores, 70)
	}
	scores = append(scores, 71)

	check := DefaultThresholds().CheckScoreDistribution(scores)
	if !check.IsFlat {
		t.Fatalf("expected flat batch, got %+v", check)
	}
}
