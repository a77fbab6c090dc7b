package store

// LapBoardRow is one row of the lap board: stored lap data plus derived
// in/out-lap flags and deltas to the session bests.
type LapBoardRow struct {
	Lap
	IsOut    bool     `json:"is_out"`
	IsIn     bool     `json:"is_in"`
	DeltaMs  *float64 `json:"delta_ms"`
	DeltaS1  *float64 `json:"delta_s1"`
	DeltaS2  *float64 `json:"delta_s2"`
	DeltaS3  *float64 `json:"delta_s3"`
	HasValid bool     `json:"has_valid"`
}

// BuildLapBoard derives the lap board from stored laps: pit laps are in-laps,
// the lap after a pit is an out-lap, and deltas are measured against the best
// lap and sector times over clean laps only.
func BuildLapBoard(laps []Lap) []LapBoardRow {
	if len(laps) == 0 {
		return nil
	}

	rows := make([]LapBoardRow, len(laps))
	for i, lap := range laps {
		rows[i] = LapBoardRow{Lap: lap}
	}
	for i := range rows {
		if rows[i].IsPit {
			rows[i].IsIn = true
			if i+1 < len(rows) {
				rows[i+1].IsOut = true
			}
		}
	}

	bestLap := bestOf(rows, func(r LapBoardRow) *int64 { return r.LapTimeMs })
	bestS1 := bestOf(rows, func(r LapBoardRow) *int64 { return r.Sector1Ms })
	bestS2 := bestOf(rows, func(r LapBoardRow) *int64 { return r.Sector2Ms })
	bestS3 := bestOf(rows, func(r LapBoardRow) *int64 { return r.Sector3Ms })

	for i := range rows {
		r := &rows[i]
		r.DeltaMs = deltaMs(r.LapTimeMs, bestLap)
		r.DeltaS1 = deltaMs(r.Sector1Ms, bestS1)
		r.DeltaS2 = deltaMs(r.Sector2Ms, bestS2)
		r.DeltaS3 = deltaMs(r.Sector3Ms, bestS3)
		r.HasValid = r.LapTimeMs != nil && *r.LapTimeMs > 0 && !r.IsPit
	}
	return rows
}

// bestOf finds the minimum of one time field over clean (non-pit, non-in/out)
// laps, or nil when no clean lap has the field set.
func bestOf(rows []LapBoardRow, field func(LapBoardRow) *int64) *int64 {
	var best *int64
	for _, r := range rows {
		if r.IsPit || r.IsIn || r.IsOut {
			continue
		}
		v := field(r)
		if v == nil || *v <= 0 {
			continue
		}
		if best == nil || *v < *best {
			best = v
		}
	}
	return best
}

func deltaMs(value, base *int64) *float64 {
	if value == nil || base == nil {
		return nil
	}
	d := float64(*value - *base)
	return &d
}
