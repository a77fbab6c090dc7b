package lapdelta

import (
	"fmt"
	"math"
	"strings"
)

// BuildComparisonNotes turns a comparison and its corner report into a short
// human-readable summary.
func BuildComparisonNotes(c *Comparison, corners []CornerSummary) string {
	if c == nil {
		return ""
	}

	var b strings.Builder

	fmt.Fprintf(
		&b,
		"Lap comparison over %.0f distance units (%d aligned points)\n",
		c.Summary.LapLength,
		len(c.DeltaSeries),
	)
	fmt.Fprintf(
		&b,
		"Total delta %+.3f s at lap end | best gain %+.3f s @ %.0f | worst loss %+.3f s @ %.0f\n",
		c.Summary.TotalDelta,
		c.Summary.BestGain.Delta,
		c.Summary.BestGain.Distance,
		c.Summary.WorstLoss.Delta,
		c.Summary.WorstLoss.Distance,
	)
	if c.Summary.TotalDelta < 0 {
		fmt.Fprintf(&b, "Compare lap finishes %.3f s ahead of the reference.\n", -c.Summary.TotalDelta)
	} else if c.Summary.TotalDelta > 0 {
		fmt.Fprintf(&b, "Compare lap finishes %.3f s behind the reference.\n", c.Summary.TotalDelta)
	} else {
		b.WriteString("The laps are dead even at the line.\n")
	}

	if len(corners) == 0 {
		b.WriteString("No qualifying corners were detected on this lap.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "\n%d corners detected:\n", len(corners))
	for _, corner := range corners {
		fmt.Fprintf(
			&b,
			"  T%d %.0f-%.0f: entry %.0f / apex %.0f / exit %.0f kph, peak brake %.0f%%, exit throttle %.0f%%",
			corner.Corner,
			corner.DistanceStart,
			corner.DistanceEnd,
			corner.EntrySpeed,
			corner.ApexSpeed,
			corner.ExitSpeed,
			corner.BrakePeak,
			corner.ThrottleExit,
		)
		if corner.DeltaS != nil {
			fmt.Fprintf(&b, ", %+.3f s", *corner.DeltaS)
		}
		b.WriteString("\n")
	}

	ranked := RankCorners(corners)
	if top := ranked[0]; top.DeltaS != nil && *top.DeltaS != 0 {
		verb := "lost"
		if *top.DeltaS < 0 {
			verb = "gained"
		}
		fmt.Fprintf(
			&b,
			"\nBiggest swing: T%d, %.3f s %s between %.0f and %.0f.\n",
			top.Corner,
			math.Abs(*top.DeltaS),
			verb,
			top.DistanceStart,
			top.DistanceEnd,
		)
	}
	return b.String()
}
