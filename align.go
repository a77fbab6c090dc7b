package lapdelta

import "errors"

// ErrInsufficientOverlap is returned when either lap resamples to fewer than
// two grid points, leaving nothing to compare.
var ErrInsufficientOverlap = errors.New("insufficient overlap between laps")

// SpeedPoint pairs both laps' speeds at one distance on track.
type SpeedPoint struct {
	Distance       float64 `json:"distance"`
	ReferenceSpeed float64 `json:"reference_speed"`
	CompareSpeed   float64 `json:"compare_speed"`
}

// DeltaPoint is the cumulative time difference between the laps at one
// distance. Negative means the compare lap is ahead.
type DeltaPoint struct {
	Distance float64 `json:"distance"`
	Delta    float64 `json:"delta_s"`
}

// ComparisonSummary aggregates a delta curve's extrema. TotalDelta is the
// delta at the last shared grid point, not a sum of per-step deltas.
type ComparisonSummary struct {
	TotalDelta float64    `json:"total_delta_s"`
	BestGain   DeltaPoint `json:"best_gain"`
	WorstLoss  DeltaPoint `json:"worst_loss"`
	LapLength  float64    `json:"lap_length"`
}

// Comparison is the distance-aligned view of two laps.
type Comparison struct {
	SpeedSeries []SpeedPoint      `json:"speed_series"`
	DeltaSeries []DeltaPoint      `json:"delta_series"`
	Summary     ComparisonSummary `json:"summary"`
}

// Align walks two series resampled at the same step and builds the paired
// speed trace and delta-time curve over their shared index prefix. The grids
// are not reconciled by value; same-step resampling makes index i the same
// distance on both laps, and a shorter lap just truncates the comparison.
func Align(ref, cmp *ResampledSeries) (*Comparison, error) {
	n := ref.Len()
	if cmp.Len() < n {
		n = cmp.Len()
	}
	if n < 2 {
		return nil, ErrInsufficientOverlap
	}

	out := &Comparison{
		SpeedSeries: make([]SpeedPoint, 0, n),
		DeltaSeries: make([]DeltaPoint, 0, n),
	}
	best := DeltaPoint{Distance: ref.Dist[0], Delta: cmp.Time[0] - ref.Time[0]}
	worst := best

	for i := 0; i < n; i++ {
		d := ref.Dist[i]
		delta := cmp.Time[i] - ref.Time[i]
		out.SpeedSeries = append(out.SpeedSeries, SpeedPoint{
			Distance:       d,
			ReferenceSpeed: ref.Speed[i],
			CompareSpeed:   cmp.Speed[i],
		})
		out.DeltaSeries = append(out.DeltaSeries, DeltaPoint{Distance: d, Delta: delta})
		if delta < best.Delta {
			best = DeltaPoint{Distance: d, Delta: delta}
		}
		if delta > worst.Delta {
			worst = DeltaPoint{Distance: d, Delta: delta}
		}
	}

	out.Summary = ComparisonSummary{
		TotalDelta: out.DeltaSeries[n-1].Delta,
		BestGain:   best,
		WorstLoss:  worst,
		LapLength:  ref.Dist[n-1],
	}
	return out, nil
}
