package anomaly_test

import (
	"testing"

	"github.com/bakkenops/tank-pull-worker/internal/anomaly"
)

func newFilter() *anomaly.Filter {
	return anomaly.NewFilter(1.5, 2.0, 3)
}

func TestClassify_TooFewKnownGood(t *testing.T) {
	// With fewer than three accepted rates everything passes, no matter
	// how wild it looks.
	levels, knownGood := newFilter().Classify([]float64{10, 1, 100})

	for i, level := range levels {
		if level != anomaly.LevelNormal {
			t.Errorf("Rate %d: expected normal, got %s", i, level)
		}
	}
	if len(knownGood) != 3 {
		t.Errorf("Expected all 3 rates kept, got %d", len(knownGood))
	}
}

func TestClassify_RatioTiers(t *testing.T) {
	cases := []struct {
		name     string
		last     float64
		expected anomaly.Level
	}{
		{"below flag threshold", 2.9, anomaly.LevelNormal},
		{"at flag threshold", 3, anomaly.LevelFlagged},
		{"at anomaly threshold", 4, anomaly.LevelAnomaly},
		{"inverse ratio anomaly", 1, anomaly.LevelAnomaly},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rates := []float64{2, 2, 2, tc.last}
			levels, _ := newFilter().Classify(rates)
			if got := levels[len(levels)-1]; got != tc.expected {
				t.Errorf("Rate %.1f against median 2: expected %s, got %s", tc.last, tc.expected, got)
			}
		})
	}
}

func TestClassify_AnomalyExcludedFromKnownGood(t *testing.T) {
	levels, knownGood := newFilter().Classify([]float64{2, 2.1, 1.9, 2, 2.2, 9})

	if got := levels[5]; got != anomaly.LevelAnomaly {
		t.Errorf("Expected 9 to be anomalous, got %s", got)
	}
	if len(knownGood) != 5 {
		t.Fatalf("Expected 5 known-good rates, got %d", len(knownGood))
	}
	for _, r := range knownGood {
		if r == 9 {
			t.Error("Anomalous rate leaked into the known-good list")
		}
	}
}

func TestClassify_FlaggedStaysKnownGood(t *testing.T) {
	// A flagged rate widens the basis for later classification instead of
	// being thrown away.
	_, knownGood := newFilter().Classify([]float64{2, 2, 2, 3})

	if len(knownGood) != 4 {
		t.Errorf("Expected flagged rate retained, got %d known-good rates", len(knownGood))
	}
}

func TestClassify_Empty(t *testing.T) {
	levels, knownGood := newFilter().Classify(nil)
	if len(levels) != 0 || len(knownGood) != 0 {
		t.Errorf("Expected empty results, got %d levels and %d known-good", len(levels), len(knownGood))
	}
}
