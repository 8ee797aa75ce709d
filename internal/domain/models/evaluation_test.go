package models

import (
	"math"
	"testing"
)

func TestPositionROI(t *testing.T) {
	long := PositionState{Direction: DirectionLong, EntryPrice: 100, MarkPrice: 106, Leverage: 20}
	if roi := long.ROI(); math.Abs(roi-120) > 0.001 {
		t.Fatalf("long ROI %v, want 120", roi)
	}

	short := PositionState{Direction: DirectionShort, EntryPrice: 100, MarkPrice: 106, Leverage: 20}
	if roi := short.ROI(); math.Abs(roi+120) > 0.001 {
		t.Fatalf("short ROI %v, want -120", roi)
	}

	// Unset leverage falls back to 1x, a zero entry to zero ROI.
	unlevered := PositionState{Direction: DirectionLong, EntryPrice: 100, MarkPrice: 103}
	if roi := unlevered.ROI(); math.Abs(roi-3) > 0.001 {
		t.Fatalf("unlevered ROI %v, want 3", roi)
	}
	if roi := (PositionState{MarkPrice: 100}).ROI(); roi != 0 {
		t.Fatalf("zero-entry ROI %v, want 0", roi)
	}
}

func TestTrendCodeFavors(t *testing.T) {
	if !TrendBull.Favors(DirectionLong) || TrendBull.Favors(DirectionShort) {
		t.Fatalf("bull must favor long only")
	}
	if !TrendStrongBear.Favors(DirectionShort) || TrendStrongBear.Favors(DirectionLong) {
		t.Fatalf("strong bear must favor short only")
	}
	if TrendSideways.Favors(DirectionLong) || TrendSideways.Favors(DirectionShort) {
		t.Fatalf("sideways favors neither direction")
	}
}

func TestDirectionOpposite(t *testing.T) {
	if DirectionLong.Opposite() != DirectionShort || DirectionShort.Opposite() != DirectionLong {
		t.Fatalf("opposite direction mapping broken")
	}
}

func TestGradeBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  Grade
	}{
		{75, GradeA},
		{74.99, GradeB},
		{60, GradeB},
		{59.99, GradeC},
		{45, GradeC},
		{44.99, GradeD},
		{0, GradeD},
	}
	for _, c := range cases {
		if got := GradeOf(c.score); got != c.want {
			t.Fatalf("GradeOf(%v) = %s, want %s", c.score, got, c.want)
		}
	}
}

func TestBiasIsReversal(t *testing.T) {
	if !BiasBullishReversal.IsReversal() || !BiasBearishReversal.IsReversal() {
		t.Fatalf("reversal biases must report reversal")
	}
	if BiasNeutral.IsReversal() || BiasContinuation.IsReversal() {
		t.Fatalf("non-reversal biases must not report reversal")
	}
}

func TestTimeframeMinutes(t *testing.T) {
	cases := map[Timeframe]int{
		TF1m: 1, TF5m: 5, TF15m: 15, TF30m: 30, TF1h: 60, TF4h: 240,
	}
	for tf, want := range cases {
		if got := tf.Minutes(); got != want {
			t.Fatalf("%s minutes %d, want %d", tf, got, want)
		}
	}
}
