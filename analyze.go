package lapdelta

import "fmt"

// CornerReport is the full corner-analysis output for one lap pairing.
type CornerReport struct {
	Corners   []CornerSummary `json:"corners"`
	TopLosses []TopLoss       `json:"top_losses"`
}

// topLossLimit caps the "where did the time go" list.
const topLossLimit = 3

// CompareLaps runs the full alignment path for two laps of raw samples:
// distance reconstruction, same-step resampling and delta computation.
func CompareLaps(reference, compare []Sample, step float64) (*Comparison, error) {
	ref, err := ReconstructDistance(reference)
	if err != nil {
		return nil, fmt.Errorf("reference lap: %w", err)
	}
	cmp, err := ReconstructDistance(compare)
	if err != nil {
		return nil, fmt.Errorf("compare lap: %w", err)
	}
	return Align(Resample(ref, step), Resample(cmp, step))
}

// AnalyzeCorners segments the reference lap into corners and extracts their
// features. When compare is non-empty the corners carry per-corner time
// deltas against it; otherwise DeltaS stays unset.
func AnalyzeCorners(reference, compare []Sample, params SegmentParams) (*CornerReport, error) {
	refSeries, err := ReconstructDistance(reference)
	if err != nil {
		return nil, fmt.Errorf("reference lap: %w", err)
	}
	refResampled := Resample(refSeries, params.Step)

	var comparison *Comparison
	if len(compare) > 0 {
		cmpSeries, err := ReconstructDistance(compare)
		if err != nil {
			return nil, fmt.Errorf("compare lap: %w", err)
		}
		comparison, err = Align(refResampled, Resample(cmpSeries, params.Step))
		if err != nil {
			return nil, err
		}
	}

	intervals := SegmentCorners(refResampled, params)
	corners := ExtractCornerFeatures(intervals, refResampled, comparison)
	return &CornerReport{
		Corners:   corners,
		TopLosses: TopLosses(corners, topLossLimit),
	}, nil
}
