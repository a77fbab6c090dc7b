package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func i64(v int64) *int64     { return &v }
func f64(v float64) *float64 { return &v }
func iptr(v int) *int        { return &v }

func TestUpsertSessionIdempotent(t *testing.T) {
	st := newTestStore(t)

	id, err := st.UpsertSession(2026, 4, "R", "Suzuka")
	require.NoError(t, err)
	again, err := st.UpsertSession(2026, 4, "R", "Suzuka")
	require.NoError(t, err)
	require.Equal(t, id, again)

	other, err := st.UpsertSession(2026, 4, "Q", "Suzuka")
	require.NoError(t, err)
	require.NotEqual(t, id, other)

	sessions, err := st.Sessions()
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, "Suzuka", sessions[0].Circuit)
}

func TestUpsertDriverAndLookup(t *testing.T) {
	st := newTestStore(t)

	id, err := st.UpsertDriver("VER", "Max Verstappen")
	require.NoError(t, err)
	again, err := st.UpsertDriver("VER", "Max Verstappen")
	require.NoError(t, err)
	require.Equal(t, id, again)

	got, err := st.DriverID("VER")
	require.NoError(t, err)
	require.Equal(t, id, got)

	_, err = st.DriverID("ZZZ")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLapsMarkBest(t *testing.T) {
	st := newTestStore(t)
	sessionID, err := st.UpsertSession(2026, 1, "R", "Sakhir")
	require.NoError(t, err)
	driverID, err := st.UpsertDriver("LEC", "Charles Leclerc")
	require.NoError(t, err)

	laps := []Lap{
		{LapNumber: 1, LapTimeMs: i64(95000)},
		{LapNumber: 2, LapTimeMs: i64(93500)},
		{LapNumber: 3, LapTimeMs: i64(92000), IsPit: true}, // fastest but a pit lap
		{LapNumber: 4},                                     // no time recorded
	}
	for _, lap := range laps {
		require.NoError(t, st.InsertLap(sessionID, driverID, lap))
	}
	// Re-inserting is a no-op.
	require.NoError(t, st.InsertLap(sessionID, driverID, Lap{LapNumber: 2, LapTimeMs: i64(1)}))

	got, err := st.Laps(sessionID, driverID)
	require.NoError(t, err)
	require.Len(t, got, 4)
	require.False(t, got[0].IsBest)
	require.True(t, got[1].IsBest)
	require.EqualValues(t, 93500, *got[1].LapTimeMs)
	require.False(t, got[2].IsBest, "pit laps never count as best")
	require.False(t, got[3].IsBest)

	drivers, err := st.Drivers(sessionID)
	require.NoError(t, err)
	require.Len(t, drivers, 1)
	require.Equal(t, "LEC", drivers[0].Code)
}

func TestTelemetryRoundTrip(t *testing.T) {
	st := newTestStore(t)
	sessionID, err := st.UpsertSession(2026, 2, "Q", "Jeddah")
	require.NoError(t, err)
	driverID, err := st.UpsertDriver("HAM", "Lewis Hamilton")
	require.NoError(t, err)

	rows := []TelemetryRow{
		{TS: 10.0, LapNumber: iptr(1), SpeedKph: f64(250), Throttle: f64(100), X: f64(0), Y: f64(0)},
		{TS: 10.5, LapNumber: iptr(1), SpeedKph: f64(245), Brake: f64(20), X: f64(30), Y: f64(0)},
		{TS: 11.0, LapNumber: iptr(2), SpeedKph: f64(240), X: f64(60), Y: f64(5)},
	}
	n, err := st.InsertTelemetry(sessionID, driverID, rows)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	// Duplicate keys are skipped.
	n, err = st.InsertTelemetry(sessionID, driverID, rows)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	samples, err := st.LapSamples(sessionID, driverID, 1)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	require.Equal(t, 10.0, samples[0].T)
	require.Equal(t, 250.0, *samples[0].SpeedKph)
	require.Nil(t, samples[0].Brake)

	lap := 2
	got, err := st.Telemetry(sessionID, driverID, &lap, 100)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, 11.0, got[0].TS)

	got, err = st.Telemetry(sessionID, driverID, nil, 2)
	require.NoError(t, err)
	require.Len(t, got, 2, "limit applies without a lap filter")
	require.Equal(t, 10.0, got[0].TS)
}

func TestLapAggregates(t *testing.T) {
	st := newTestStore(t)
	sessionID, err := st.UpsertSession(2026, 3, "FP1", "Melbourne")
	require.NoError(t, err)
	driverID, err := st.UpsertDriver("NOR", "Lando Norris")
	require.NoError(t, err)

	rows := []TelemetryRow{
		{TS: 1, LapNumber: iptr(1), SpeedKph: f64(200), Throttle: f64(100), Brake: f64(0)},
		{TS: 2, LapNumber: iptr(1), SpeedKph: f64(100), Throttle: f64(0), Brake: f64(80)},
		{TS: 3, LapNumber: iptr(2), SpeedKph: f64(300), Throttle: f64(50), Brake: f64(10)},
		{TS: 4, LapNumber: nil, SpeedKph: f64(999)}, // unassigned rows are excluded
	}
	_, err = st.InsertTelemetry(sessionID, driverID, rows)
	require.NoError(t, err)

	aggs, err := st.LapAggregates(sessionID, driverID)
	require.NoError(t, err)
	require.Len(t, aggs, 2)

	require.Equal(t, 1, aggs[0].LapNumber)
	require.Equal(t, 2, aggs[0].Samples)
	require.InDelta(t, 150, aggs[0].AvgSpeed, 1e-9)
	require.InDelta(t, 200, aggs[0].MaxSpeed, 1e-9)
	require.InDelta(t, 50, aggs[0].AvgThrottle, 1e-9)
	require.InDelta(t, 40, aggs[0].AvgBrake, 1e-9)

	require.Equal(t, 2, aggs[1].LapNumber)
	require.Equal(t, 1, aggs[1].Samples)
}
