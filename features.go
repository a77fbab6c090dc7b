package lapdelta

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// CornerSummary carries the per-corner kinematics and, when a comparison is
// available, the time gained or lost strictly within the corner's span.
type CornerSummary struct {
	Corner        int      `json:"corner"`
	DistanceStart float64  `json:"distance_start"`
	DistanceEnd   float64  `json:"distance_end"`
	EntrySpeed    float64  `json:"entry_speed"`
	ApexSpeed     float64  `json:"apex_speed"`
	ExitSpeed     float64  `json:"exit_speed"`
	BrakePeak     float64  `json:"brake_peak"`
	ThrottleExit  float64  `json:"throttle_exit"`
	DeltaS        *float64 `json:"delta_s,omitempty"`
}

// TopLoss is the compact "where did the time go" view of one corner.
type TopLoss struct {
	Corner int     `json:"corner"`
	DeltaS float64 `json:"delta_s"`
}

// ExtractCornerFeatures computes entry/apex/exit speed, peak brake and exit
// throttle for each interval from the raw (unsmoothed) resampled channels.
// When comparison is non-nil, DeltaS is the delta at the grid point nearest
// the interval end minus the delta nearest its start, isolating the corner's
// local contribution from the cumulative total.
func ExtractCornerFeatures(intervals []CornerInterval, series *ResampledSeries, comparison *Comparison) []CornerSummary {
	if series == nil || series.Len() == 0 {
		return nil
	}
	out := make([]CornerSummary, 0, len(intervals))
	for _, iv := range intervals {
		start, end := iv.startIdx, iv.endIdx
		if start < 0 || end >= series.Len() || end < start {
			start = nearestGridIndex(series.Dist, iv.DistanceStart)
			end = nearestGridIndex(series.Dist, iv.DistanceEnd)
		}
		speeds := series.Speed[start : end+1]

		summary := CornerSummary{
			Corner:        iv.Corner,
			DistanceStart: iv.DistanceStart,
			DistanceEnd:   iv.DistanceEnd,
			EntrySpeed:    series.Speed[start],
			ApexSpeed:     floats.Min(speeds),
			ExitSpeed:     series.Speed[end],
			BrakePeak:     floats.Max(series.Brake[start : end+1]),
			ThrottleExit:  series.Throttle[end],
		}
		if comparison != nil && len(comparison.DeltaSeries) > 0 {
			summary.DeltaS = intervalDelta(comparison.DeltaSeries, iv.DistanceStart, iv.DistanceEnd)
		}
		out = append(out, summary)
	}
	return out
}

// RankCorners orders summaries by |DeltaS| descending, ties broken by corner
// index ascending. Corners without a delta rank last in index order.
func RankCorners(summaries []CornerSummary) []CornerSummary {
	ranked := append([]CornerSummary(nil), summaries...)
	sort.SliceStable(ranked, func(i, j int) bool {
		di, dj := absDelta(ranked[i]), absDelta(ranked[j])
		if di != dj {
			return di > dj
		}
		return ranked[i].Corner < ranked[j].Corner
	})
	return ranked
}

// TopLosses lists the corners with the largest positive delta (time lost),
// capped at limit.
func TopLosses(summaries []CornerSummary, limit int) []TopLoss {
	losses := make([]CornerSummary, 0, len(summaries))
	for _, s := range summaries {
		if s.DeltaS != nil && *s.DeltaS > 0 {
			losses = append(losses, s)
		}
	}
	sort.SliceStable(losses, func(i, j int) bool {
		if *losses[i].DeltaS != *losses[j].DeltaS {
			return *losses[i].DeltaS > *losses[j].DeltaS
		}
		return losses[i].Corner < losses[j].Corner
	})
	if limit > 0 && len(losses) > limit {
		losses = losses[:limit]
	}
	out := make([]TopLoss, 0, len(losses))
	for _, s := range losses {
		out = append(out, TopLoss{Corner: s.Corner, DeltaS: *s.DeltaS})
	}
	return out
}

func intervalDelta(deltas []DeltaPoint, start, end float64) *float64 {
	dists := make([]float64, len(deltas))
	for i, d := range deltas {
		dists[i] = d.Distance
	}
	i0 := nearestGridIndex(dists, start)
	i1 := nearestGridIndex(dists, end)
	v := deltas[i1].Delta - deltas[i0].Delta
	return &v
}

func absDelta(s CornerSummary) float64 {
	if s.DeltaS == nil {
		return 0
	}
	return math.Abs(*s.DeltaS)
}

// nearestGridIndex finds the index of the grid distance closest to target.
func nearestGridIndex(dist []float64, target float64) int {
	i := sort.SearchFloat64s(dist, target)
	if i <= 0 {
		return 0
	}
	if i >= len(dist) {
		return len(dist) - 1
	}
	if target-dist[i-1] <= dist[i]-target {
		return i - 1
	}
	return i
}
