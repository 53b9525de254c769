package engine

import (
	"testing"

	"github.com/paulthebutcher/strat-os-phere-sub000/internal/models"
)

func strongSignals() models.ConfidenceSignals {
	return models.ConfidenceSignals{
		EvidenceQuality:      models.ConfidenceHigh,
		DecayFactor:          0.95,
		RepairCount:          0,
		BannedPatternPenalty: 0,
	}
}

func TestConfidenceBand(t *testing.T) {
	th := DefaultThresholds()

	cases := []struct {
		name   string
		mutate func(*models.ConfidenceSignals)
		score  float64
		want   models.ConfidenceBand
	}{
		{"all strong", func(*models.ConfidenceSignals) {}, 85, models.ConfidenceHigh},
		{"score below high floor", func(*models.ConfidenceSignals) {}, 69, models.ConfidenceMedium},
		{"score below medium floor", func(*models.ConfidenceSignals) {}, 49, models.ConfidenceLow},
		{"stale evidence", func(s *models.ConfidenceSignals) { s.DecayFactor = 0.6 }, 90, models.ConfidenceMedium},
		{"too many repairs", func(s *models.ConfidenceSignals) { s.RepairCount = 2 }, 90, models.ConfidenceMedium},
		{"stale and repaired", func(s *models.ConfidenceSignals) { s.DecayFactor = 0.6; s.RepairCount = 3 }, 90, models.ConfidenceLow},
		{"banned pattern penalty", func(s *models.ConfidenceSignals) { s.BannedPatternPenalty = 0.25 }, 90, models.ConfidenceMedium},
		{"medium evidence", func(s *models.ConfidenceSignals) { s.EvidenceQuality = models.ConfidenceMedium }, 95, models.ConfidenceMedium},
		{"low evidence", func(s *models.ConfidenceSignals) { s.EvidenceQuality = models.ConfidenceLow }, 95, models.ConfidenceLow},
		{"boundary values", func(s *models.ConfidenceSignals) { s.DecayFactor = 0.8; s.RepairCount = 1; s.BannedPatternPenalty = 0.2 }, 70, models.ConfidenceHigh},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			signals := strongSignals()
			tc.mutate(&signals)
			if got := th.ConfidenceBand(signals, tc.score); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestScoreCeiling(t *testing.T) {
	th := DefaultThresholds()

	cases := []struct {
		name   string
		mutate func(*models.ConfidenceSignals)
		want   float64
	}{
		{"high evidence", func(*models.ConfidenceSignals) {}, 100},
		{"high evidence stale but unrepaired", func(s *models.ConfidenceSignals) { s.DecayFactor = 0.3 }, 100},
		{"high evidence stale and repaired", func(s *models.ConfidenceSignals) { s.DecayFactor = 0.3; s.RepairCount = 2 }, 90},
		{"high evidence with banned patterns", func(s *models.ConfidenceSignals) { s.BannedPatternPenalty = 0.5 }, 90},
		{"medium evidence", func(s *models.ConfidenceSignals) { s.EvidenceQuality = models.ConfidenceMedium }, 90},
		{"low evidence", func(s *models.ConfidenceSignals) { s.EvidenceQuality = models.ConfidenceLow }, 85},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			signals := strongSignals()
			tc.mutate(&signals)
			if got := th.ScoreCeiling(signals); got != tc.want {
				t.Fatalf("expected ceiling %v, got %v", tc.want, got)
			}
		})
	}
}

func TestApplyScoreCeilingNeverRaises(t *testing.T) {
	th := DefaultThresholds()
	low := models.ConfidenceSignals{EvidenceQuality: models.ConfidenceLow}

	if got := th.ApplyScoreCeiling(92, low); got != 85 {
		t.Fatalf("expected 92 clamped to 85, got %v", got)
	}
	for _, score := range []float64{0, 10, 50, 84.9, 85, 100} {
		for _, signals := range []models.ConfidenceSignals{low, strongSignals()} {
			if got := th.ApplyScoreCeiling(score, signals); got > score {
				t.Fatalf("ceiling raised %v to %v", score, got)
			}
		}
	}
}
