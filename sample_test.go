package lapdelta

import (
	"errors"
	"math"
	"testing"
)

func fp(v float64) *float64 { return &v }

func TestReconstructDistanceStraightLine(t *testing.T) {
	samples := []Sample{
		{T: 100, X: fp(0), Y: fp(0), SpeedKph: fp(180)},
		{T: 110, X: fp(1000), Y: fp(0), SpeedKph: fp(180)},
	}
	series, err := ReconstructDistance(samples)
	if err != nil {
		t.Fatalf("ReconstructDistance() error: %v", err)
	}
	if series.Len() != 2 {
		t.Fatalf("expected 2 points, got %d", series.Len())
	}
	if series.Dist[0] != 0 {
		t.Fatalf("distance must start at 0, got %v", series.Dist[0])
	}
	if series.LapLength() != 1000 {
		t.Fatalf("expected lap length 1000, got %v", series.LapLength())
	}
	if series.Time[0] != 0 || series.Time[1] != 10 {
		t.Fatalf("expected elapsed times [0 10], got %v", series.Time)
	}
}

func TestReconstructDistanceNonDecreasing(t *testing.T) {
	samples := []Sample{
		{T: 0, X: fp(0), Y: fp(0)},
		{T: 1, X: fp(30), Y: fp(40)},
		{T: 2, X: fp(30), Y: fp(40)}, // stationary sample
		{T: 3, X: fp(0), Y: fp(0)},   // doubling back still adds distance
	}
	series, err := ReconstructDistance(samples)
	if err != nil {
		t.Fatalf("ReconstructDistance() error: %v", err)
	}
	for i := 1; i < series.Len(); i++ {
		if series.Dist[i] < series.Dist[i-1] {
			t.Fatalf("distance decreased at %d: %v -> %v", i, series.Dist[i-1], series.Dist[i])
		}
	}
	if got := series.LapLength(); math.Abs(got-100) > 1e-9 {
		t.Fatalf("expected total distance 100, got %v", got)
	}
}

func TestReconstructDistanceSkipsMissingPosition(t *testing.T) {
	samples := []Sample{
		{T: 0, X: fp(0), Y: fp(0)},
		{T: 1, X: nil, Y: fp(5)},
		{T: 2, X: fp(5), Y: nil},
		{T: 3, X: fp(100), Y: fp(0)},
	}
	series, err := ReconstructDistance(samples)
	if err != nil {
		t.Fatalf("ReconstructDistance() error: %v", err)
	}
	if series.Len() != 2 {
		t.Fatalf("expected position-less samples skipped, got %d points", series.Len())
	}
	if series.LapLength() != 100 {
		t.Fatalf("expected lap length 100, got %v", series.LapLength())
	}
}

func TestReconstructDistanceCarriesChannelsForward(t *testing.T) {
	samples := []Sample{
		{T: 0, X: fp(0), Y: fp(0)},
		{T: 1, X: fp(10), Y: fp(0), SpeedKph: fp(120), Brake: fp(40)},
		{T: 2, X: fp(20), Y: fp(0)},
		{T: 3, X: fp(30), Y: fp(0), SpeedKph: fp(110), Brake: fp(0)},
	}
	series, err := ReconstructDistance(samples)
	if err != nil {
		t.Fatalf("ReconstructDistance() error: %v", err)
	}
	// Unknown at the start defaults to zero, then holds the last reading.
	wantSpeed := []float64{0, 120, 120, 110}
	wantBrake := []float64{0, 40, 40, 0}
	for i := range wantSpeed {
		if series.Speed[i] != wantSpeed[i] {
			t.Fatalf("speed[%d] = %v, want %v", i, series.Speed[i], wantSpeed[i])
		}
		if series.Brake[i] != wantBrake[i] {
			t.Fatalf("brake[%d] = %v, want %v", i, series.Brake[i], wantBrake[i])
		}
	}
}

func TestReconstructDistanceInsufficient(t *testing.T) {
	cases := [][]Sample{
		nil,
		{{T: 0, X: fp(0), Y: fp(0)}},
		{{T: 0}, {T: 1}, {T: 2}},
	}
	for i, samples := range cases {
		if _, err := ReconstructDistance(samples); !errors.Is(err, ErrInsufficientData) {
			t.Fatalf("case %d: expected ErrInsufficientData, got %v", i, err)
		}
	}
}
