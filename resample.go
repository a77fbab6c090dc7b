package lapdelta

import "math"

// DefaultStep is the distance-grid spacing used when no step is supplied.
const DefaultStep = 5.0

// ResampledSeries is a DistanceSeries interpolated onto a uniform distance
// grid. The final grid point is always pinned to exactly the lap length, so
// two resamplings of the same lap share an identical endpoint.
type ResampledSeries struct {
	Dist     []float64
	Time     []float64
	Speed    []float64
	Throttle []float64
	Brake    []float64
	X        []float64
	Y        []float64
}

// LapLength returns the distance of the last grid point.
func (s *ResampledSeries) LapLength() float64 {
	if len(s.Dist) == 0 {
		return 0
	}
	return s.Dist[len(s.Dist)-1]
}

// Len returns the number of grid points.
func (s *ResampledSeries) Len() int { return len(s.Dist) }

// Resample interpolates a distance series onto a uniform grid of spacing
// step. A non-positive step is normalized to DefaultStep rather than
// producing a degenerate grid.
func Resample(series *DistanceSeries, step float64) *ResampledSeries {
	if step <= 0 || !isFinite(step) {
		step = DefaultStep
	}
	total := series.LapLength()

	steps := int(total / step)
	if steps < 1 {
		steps = 1
	}
	grid := make([]float64, 0, steps+2)
	for i := 0; i <= steps; i++ {
		grid = append(grid, math.Min(total, float64(i)*step))
	}
	if grid[len(grid)-1] != total {
		grid = append(grid, total)
	}

	out := &ResampledSeries{
		Dist:     grid,
		Time:     make([]float64, 0, len(grid)),
		Speed:    make([]float64, 0, len(grid)),
		Throttle: make([]float64, 0, len(grid)),
		Brake:    make([]float64, 0, len(grid)),
		X:        make([]float64, 0, len(grid)),
		Y:        make([]float64, 0, len(grid)),
	}

	dist := series.Dist
	idx := 1
	for _, target := range grid {
		for idx < len(dist) && dist[idx] < target {
			idx++
		}
		if idx >= len(dist) {
			// Trailing noise pushed the cursor past the series; hold the
			// last known values.
			last := series.Len() - 1
			out.appendPoint(series, last, last, 0)
			continue
		}
		d0, d1 := dist[idx-1], dist[idx]
		ratio := 0.0
		if d1 != d0 {
			ratio = (target - d0) / (d1 - d0)
		}
		out.appendPoint(series, idx-1, idx, ratio)
	}
	return out
}

func (s *ResampledSeries) appendPoint(src *DistanceSeries, k0, k1 int, ratio float64) {
	lerp := func(vals []float64) float64 {
		v0, v1 := vals[k0], vals[k1]
		return v0 + ratio*(v1-v0)
	}
	s.Time = append(s.Time, lerp(src.Time))
	s.Speed = append(s.Speed, lerp(src.Speed))
	s.Throttle = append(s.Throttle, lerp(src.Throttle))
	s.Brake = append(s.Brake, lerp(src.Brake))
	s.X = append(s.X, lerp(src.X))
	s.Y = append(s.Y, lerp(src.Y))
}
