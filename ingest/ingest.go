// Package ingest loads recorded track sessions into the store, either from
// FIT activity files or from raw telemetry CSV exports.
package ingest

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/tormoder/fit"

	"github.com/pitwall/lapdelta/store"
)

// Options identifies the session a file's telemetry belongs to.
type Options struct {
	Season      int
	Round       int
	SessionType string
	Circuit     string
	DriverCode  string
	DriverName  string
}

// Result summarises one ingestion run.
type Result struct {
	SessionID         int64
	DriverID          int64
	LapsInserted      int
	TelemetryInserted int
}

const earthRadiusM = 6371000.0

// planarProjector flattens lat/lon fixes onto a local XY plane anchored at
// the first fix. Downstream distance reconstruction is planar only, so the
// projection happens once here and coordinates are stored as meters.
type planarProjector struct {
	originLat float64
	originLon float64
	cosLat    float64
	anchored  bool
}

func (p *planarProjector) project(latDeg, lonDeg float64) (x, y float64) {
	if !p.anchored {
		p.originLat = latDeg * math.Pi / 180.0
		p.originLon = lonDeg * math.Pi / 180.0
		p.cosLat = math.Cos(p.originLat)
		p.anchored = true
	}
	lat := latDeg * math.Pi / 180.0
	lon := lonDeg * math.Pi / 180.0
	return earthRadiusM * (lon - p.originLon) * p.cosLat, earthRadiusM * (lat - p.originLat)
}

// FITFile decodes a FIT activity file and loads its laps and per-record
// telemetry into the store. FIT records carry no pedal channels; such laps
// rely on the engine's curvature fallback for corner detection.
func FITFile(st *store.Store, path string, opts Options) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fit file: %w", err)
	}
	defer f.Close()

	decoded, err := fit.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode fit file: %w", err)
	}
	activity, err := decoded.Activity()
	if err != nil {
		return nil, fmt.Errorf("activity fit expected: %w", err)
	}

	sessionID, driverID, err := resolveSession(st, opts)
	if err != nil {
		return nil, err
	}

	result := &Result{SessionID: sessionID, DriverID: driverID}

	type lapWindow struct {
		number int
		start  time.Time
		end    time.Time
	}
	windows := make([]lapWindow, 0, len(activity.Laps))
	for i, lap := range activity.Laps {
		if lap == nil {
			continue
		}
		elapsed := lap.GetTotalTimerTimeScaled()
		if elapsed <= 0 || math.IsNaN(elapsed) {
			elapsed = lap.GetTotalElapsedTimeScaled()
		}
		number := i + 1
		windows = append(windows, lapWindow{number: number, start: lap.StartTime, end: lap.Timestamp})

		row := store.Lap{LapNumber: number}
		if elapsed > 0 && !math.IsNaN(elapsed) {
			ms := int64(math.Round(elapsed * 1000))
			row.LapTimeMs = &ms
		}
		if err := st.InsertLap(sessionID, driverID, row); err != nil {
			return result, fmt.Errorf("insert lap %d: %w", number, err)
		}
		result.LapsInserted++
	}

	lapFor := func(ts time.Time) *int {
		for _, w := range windows {
			if !ts.Before(w.start) && !ts.After(w.end) {
				n := w.number
				return &n
			}
		}
		return nil
	}

	var proj planarProjector
	rows := make([]store.TelemetryRow, 0, len(activity.Records))
	for _, rec := range activity.Records {
		if rec == nil || rec.Timestamp.IsZero() {
			continue
		}
		row := store.TelemetryRow{
			TS:        float64(rec.Timestamp.UnixNano()) / 1e9,
			LapNumber: lapFor(rec.Timestamp),
		}
		if kph, ok := recordSpeedKph(rec); ok {
			row.SpeedKph = &kph
		}
		lat := rec.PositionLat.Degrees()
		lon := rec.PositionLong.Degrees()
		if !math.IsNaN(lat) && !math.IsNaN(lon) {
			x, y := proj.project(lat, lon)
			row.X = &x
			row.Y = &y
		}
		rows = append(rows, row)
	}

	inserted, err := st.InsertTelemetry(sessionID, driverID, rows)
	result.TelemetryInserted = inserted
	if err != nil {
		return result, fmt.Errorf("insert telemetry: %w", err)
	}
	return result, nil
}

func resolveSession(st *store.Store, opts Options) (sessionID, driverID int64, err error) {
	if opts.DriverCode == "" {
		return 0, 0, fmt.Errorf("driver code is required")
	}
	sessionID, err = st.UpsertSession(opts.Season, opts.Round, opts.SessionType, opts.Circuit)
	if err != nil {
		return 0, 0, fmt.Errorf("upsert session: %w", err)
	}
	driverID, err = st.UpsertDriver(opts.DriverCode, opts.DriverName)
	if err != nil {
		return 0, 0, fmt.Errorf("upsert driver: %w", err)
	}
	return sessionID, driverID, nil
}

func recordSpeedKph(rec *fit.RecordMsg) (float64, bool) {
	speed := rec.GetEnhancedSpeedScaled()
	if math.IsNaN(speed) || math.IsInf(speed, 0) || speed < 0 {
		speed = rec.GetSpeedScaled()
	}
	if math.IsNaN(speed) || math.IsInf(speed, 0) || speed < 0 {
		return 0, false
	}
	return speed * 3.6, true
}
