package lapdelta

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// SegmentParams tunes corner detection. Thresholds are percentages unless
// Scale01 is set, in which case pedal inputs are on [0,1] and thresholds are
// rescaled to match before use.
type SegmentParams struct {
	Step         float64 `json:"step"`
	OnThreshold  float64 `json:"on"`
	OffThreshold float64 `json:"off"`
	ExitThrottle float64 `json:"exit_thr"`
	MinLength    float64 `json:"min_len"`
	MinDropKph   float64 `json:"min_drop_kph"`
	MinTime      float64 `json:"min_time"`
	MinPeakBrake float64 `json:"min_peak_brake"`
	Scale01      bool    `json:"scale01"`
}

// DefaultSegmentParams returns the tuning that works for typical race
// telemetry with percent pedal channels.
func DefaultSegmentParams() SegmentParams {
	return SegmentParams{
		Step:         DefaultStep,
		OnThreshold:  3.0,
		OffThreshold: 1.5,
		ExitThrottle: 40.0,
		MinLength:    14.0,
		MinDropKph:   9.0,
		MinTime:      0.15,
		MinPeakBrake: 0.5,
	}
}

// CornerInterval is a maximal distance range classified as in-corner.
type CornerInterval struct {
	Corner        int     `json:"corner"`
	DistanceStart float64 `json:"distance_start"`
	DistanceEnd   float64 `json:"distance_end"`

	startIdx int
	endIdx   int
}

// segState is the hysteresis state of the corner scanner.
type segState int

const (
	outsideCorner segState = iota
	insideCorner
)

const (
	smoothWindow = 9
	minPoints    = 3
	// Braking zones closer than this merge into one corner; kerbs and
	// brake modulation otherwise split a physical corner in two.
	mergeGapDist = 60.0
	// Throttle must hold above the exit floor this many consecutive grid
	// points before a corner closes.
	exitSustain = 3
)

type segment struct{ start, end int }

// SegmentCorners scans a resampled lap for corner intervals using brake
// hysteresis: enter when smoothed brake crosses OnThreshold, leave when it
// falls to OffThreshold while throttle has recovered. Intervals failing the
// length/time/speed-drop/peak-brake filters are discarded. A lap with no
// qualifying braking events yields an empty, non-error result.
func SegmentCorners(series *ResampledSeries, params SegmentParams) []CornerInterval {
	if series == nil || series.Len() < 2 {
		return nil
	}
	on, off, exitThr, minPeak := params.OnThreshold, params.OffThreshold, params.ExitThrottle, params.MinPeakBrake
	if params.Scale01 {
		on /= 100.0
		off /= 100.0
		exitThr /= 100.0
		minPeak /= 100.0
	}

	dist := series.Dist
	brake := movingAverage(series.Brake, smoothWindow)
	throttle := movingAverage(series.Throttle, smoothWindow)

	var segments []segment
	state := outsideCorner
	startIdx := 0
	sustain := 0

	for i, b := range brake {
		switch state {
		case outsideCorner:
			if b >= on {
				startIdx = i
				state = insideCorner
				sustain = 0
			}
		case insideCorner:
			if throttle[i] >= exitThr {
				sustain++
			} else {
				sustain = 0
			}
			if b <= off && sustain >= exitSustain {
				segments = append(segments, segment{start: startIdx, end: i})
				state = outsideCorner
				sustain = 0
			}
		}
	}
	// Lap ended mid-corner: close at lap end.
	if state == insideCorner {
		segments = append(segments, segment{start: startIdx, end: len(brake) - 1})
	}

	if len(segments) == 0 {
		segments = curvatureSegments(series)
	}

	sort.Slice(segments, func(i, j int) bool { return dist[segments[i].start] < dist[segments[j].start] })
	merged := make([]segment, 0, len(segments))
	for _, seg := range segments {
		if len(merged) > 0 {
			prev := &merged[len(merged)-1]
			if dist[seg.start]-dist[prev.end] <= mergeGapDist {
				if seg.end > prev.end {
					prev.end = seg.end
				}
				continue
			}
		}
		merged = append(merged, seg)
	}

	out := make([]CornerInterval, 0, len(merged))
	for _, seg := range merged {
		if !keepSegment(series, seg, params, minPeak) {
			continue
		}
		out = append(out, CornerInterval{
			Corner:        len(out) + 1,
			DistanceStart: dist[seg.start],
			DistanceEnd:   dist[seg.end],
			startIdx:      seg.start,
			endIdx:        seg.end,
		})
	}
	return out
}

func keepSegment(series *ResampledSeries, seg segment, params SegmentParams, minPeak float64) bool {
	if seg.end-seg.start < minPoints {
		return false
	}
	if series.Dist[seg.end]-series.Dist[seg.start] < params.MinLength {
		return false
	}
	if series.Time[seg.end]-series.Time[seg.start] < params.MinTime {
		return false
	}
	speeds := series.Speed[seg.start : seg.end+1]
	drop := speeds[0] - floats.Min(speeds)
	if drop < params.MinDropKph {
		return false
	}
	if floats.Max(series.Brake[seg.start:seg.end+1]) < minPeak {
		return false
	}
	return true
}

// curvatureSegments is the fallback for laps with a dead brake channel:
// corners are where planar path curvature sits above its 80th percentile.
func curvatureSegments(series *ResampledSeries) []segment {
	n := series.Len()
	if n <= 2 {
		return nil
	}
	xs, ys := series.X, series.Y

	dx := make([]float64, n)
	dy := make([]float64, n)
	for i := 1; i < n-1; i++ {
		dx[i] = (xs[i+1] - xs[i-1]) / 2.0
		dy[i] = (ys[i+1] - ys[i-1]) / 2.0
	}
	dx[0], dy[0] = dx[1], dy[1]
	dx[n-1], dy[n-1] = dx[n-2], dy[n-2]

	ddx := make([]float64, n)
	ddy := make([]float64, n)
	for i := 1; i < n-1; i++ {
		ddx[i] = (dx[i+1] - dx[i-1]) / 2.0
		ddy[i] = (dy[i+1] - dy[i-1]) / 2.0
	}

	curvature := make([]float64, n)
	any := false
	for i := 0; i < n; i++ {
		num := math.Abs(dx[i]*ddy[i] - dy[i]*ddx[i])
		denom := math.Pow(dx[i]*dx[i]+dy[i]*dy[i], 1.5)
		if denom != 0 {
			curvature[i] = num / denom
		}
		if curvature[i] != 0 {
			any = true
		}
	}
	if !any {
		return nil
	}

	ranked := append([]float64(nil), curvature...)
	sort.Float64s(ranked)
	threshold := ranked[int(float64(n)*0.8)]

	var segments []segment
	i := 1
	for i < n {
		for i < n && curvature[i] <= threshold {
			i++
		}
		if i >= n {
			break
		}
		start := i
		for i < n && curvature[i] > threshold {
			i++
		}
		end := i
		if end > n-1 {
			end = n - 1
		}
		segments = append(segments, segment{start: start, end: end})
		i = end + 1
	}
	return segments
}

// movingAverage smooths values with a centered window, extending edges so
// the output keeps the input's length.
func movingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) <= 2 {
		return append([]float64(nil), values...)
	}
	half := window / 2
	extended := make([]float64, 0, len(values)+2*half)
	for i := 0; i < half; i++ {
		extended = append(extended, values[0])
	}
	extended = append(extended, values...)
	for i := 0; i < half; i++ {
		extended = append(extended, values[len(values)-1])
	}

	out := make([]float64, len(values))
	for i := range values {
		win := extended[i : i+window]
		out[i] = floats.Sum(win) / float64(len(win))
	}
	return out
}
