package lapdelta

import (
	"errors"
	"math"
)

// ErrInsufficientData is returned when a lap has fewer than two samples with
// usable position data. Callers should render an empty result, not fail.
var ErrInsufficientData = errors.New("insufficient telemetry data")

// Sample is one raw telemetry row for a lap, ordered by T. Channels can be
// missing for a subset of the lap; nil means the sensor gave no reading.
type Sample struct {
	T        float64  `json:"ts"`
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	SpeedKph *float64 `json:"speed,omitempty"`
	Throttle *float64 `json:"throttle,omitempty"`
	Brake    *float64 `json:"brake,omitempty"`
}

// DistanceSeries is a lap re-indexed by cumulative arc length. Dist is
// non-decreasing and starts at 0; Time is elapsed seconds from the first
// usable sample. All slices share one length.
type DistanceSeries struct {
	Dist     []float64
	Time     []float64
	Speed    []float64
	Throttle []float64
	Brake    []float64
	X        []float64
	Y        []float64
}

// LapLength returns total reconstructed lap distance.
func (s *DistanceSeries) LapLength() float64 {
	if len(s.Dist) == 0 {
		return 0
	}
	return s.Dist[len(s.Dist)-1]
}

// Len returns the number of points in the series.
func (s *DistanceSeries) Len() int { return len(s.Dist) }

// channelCache carries each pedal/speed channel's last known value across
// sensor gaps. The first sample defaults to zero when unknown.
type channelCache struct {
	value float64
}

func (c *channelCache) next(v *float64) float64 {
	if v != nil && isFinite(*v) {
		c.value = *v
	}
	return c.value
}

// ReconstructDistance converts ordered raw samples into a cumulative-distance
// series. Samples without both X and Y are skipped entirely; the remaining
// ones accumulate straight-line segment lengths.
func ReconstructDistance(samples []Sample) (*DistanceSeries, error) {
	usable := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if s.X == nil || s.Y == nil {
			continue
		}
		usable = append(usable, s)
	}
	if len(usable) < 2 {
		return nil, ErrInsufficientData
	}

	n := len(usable)
	out := &DistanceSeries{
		Dist:     make([]float64, 0, n),
		Time:     make([]float64, 0, n),
		Speed:    make([]float64, 0, n),
		Throttle: make([]float64, 0, n),
		Brake:    make([]float64, 0, n),
		X:        make([]float64, 0, n),
		Y:        make([]float64, 0, n),
	}

	var speed, throttle, brake channelCache
	first := usable[0]
	prevX, prevY := *first.X, *first.Y
	startT := first.T

	out.Dist = append(out.Dist, 0)
	out.Time = append(out.Time, 0)
	out.Speed = append(out.Speed, speed.next(first.SpeedKph))
	out.Throttle = append(out.Throttle, throttle.next(first.Throttle))
	out.Brake = append(out.Brake, brake.next(first.Brake))
	out.X = append(out.X, prevX)
	out.Y = append(out.Y, prevY)

	for _, s := range usable[1:] {
		x, y := *s.X, *s.Y
		segment := math.Hypot(x-prevX, y-prevY)
		out.Dist = append(out.Dist, out.Dist[len(out.Dist)-1]+segment)
		out.Time = append(out.Time, s.T-startT)
		out.Speed = append(out.Speed, speed.next(s.SpeedKph))
		out.Throttle = append(out.Throttle, throttle.next(s.Throttle))
		out.Brake = append(out.Brake, brake.next(s.Brake))
		out.X = append(out.X, x)
		out.Y = append(out.Y, y)
		prevX, prevY = x, y
	}

	return out, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
