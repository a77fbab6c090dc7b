package lapdelta

import (
	"math"
	"testing"
)

func TestResampleTwoSampleLap(t *testing.T) {
	samples := []Sample{
		{T: 0, X: fp(0), Y: fp(0)},
		{T: 10, X: fp(1000), Y: fp(0)},
	}
	series, err := ReconstructDistance(samples)
	if err != nil {
		t.Fatalf("ReconstructDistance() error: %v", err)
	}
	rs := Resample(series, 5)
	if rs.Len() != 201 {
		t.Fatalf("expected 201 grid points for 1000m at 5m, got %d", rs.Len())
	}
	if rs.Dist[0] != 0 || rs.LapLength() != 1000 {
		t.Fatalf("grid endpoints [%v %v], want [0 1000]", rs.Dist[0], rs.LapLength())
	}
	// Halfway in distance is halfway in time on a constant-pace segment.
	if got := rs.Time[100]; math.Abs(got-5) > 1e-9 {
		t.Fatalf("time at 500m = %v, want 5", got)
	}
}

func TestResampleGridMonotonicAndPinned(t *testing.T) {
	samples := []Sample{
		{T: 0, X: fp(0), Y: fp(0)},
		{T: 4, X: fp(499), Y: fp(0)},
		{T: 8, X: fp(998), Y: fp(0)},
	}
	series, err := ReconstructDistance(samples)
	if err != nil {
		t.Fatalf("ReconstructDistance() error: %v", err)
	}
	rs := Resample(series, 5)
	for i := 1; i < rs.Len(); i++ {
		if rs.Dist[i] <= rs.Dist[i-1] {
			t.Fatalf("grid not strictly increasing at %d: %v -> %v", i, rs.Dist[i-1], rs.Dist[i])
		}
	}
	// 998 is not a multiple of 5; the endpoint is still pinned exactly.
	if rs.LapLength() != 998 {
		t.Fatalf("endpoint = %v, want exactly 998", rs.LapLength())
	}
}

func TestResampleNormalizesBadStep(t *testing.T) {
	samples := []Sample{
		{T: 0, X: fp(0), Y: fp(0)},
		{T: 10, X: fp(1000), Y: fp(0)},
	}
	series, err := ReconstructDistance(samples)
	if err != nil {
		t.Fatalf("ReconstructDistance() error: %v", err)
	}
	want := Resample(series, DefaultStep).Len()
	for _, step := range []float64{0, -3, math.NaN(), math.Inf(1)} {
		if got := Resample(series, step).Len(); got != want {
			t.Fatalf("step %v: got %d points, want %d", step, got, want)
		}
	}
}

func TestResampleInterpolatesChannels(t *testing.T) {
	samples := []Sample{
		{T: 0, X: fp(0), Y: fp(0), SpeedKph: fp(100), Throttle: fp(0)},
		{T: 2, X: fp(100), Y: fp(0), SpeedKph: fp(200), Throttle: fp(100)},
	}
	series, err := ReconstructDistance(samples)
	if err != nil {
		t.Fatalf("ReconstructDistance() error: %v", err)
	}
	rs := Resample(series, 25)
	if rs.Len() != 5 {
		t.Fatalf("expected 5 grid points, got %d", rs.Len())
	}
	if got := rs.Speed[2]; math.Abs(got-150) > 1e-9 {
		t.Fatalf("speed at midpoint = %v, want 150", got)
	}
	if got := rs.Throttle[1]; math.Abs(got-25) > 1e-9 {
		t.Fatalf("throttle at 25m = %v, want 25", got)
	}
}
