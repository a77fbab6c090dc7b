package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildLapBoard(t *testing.T) {
	laps := []Lap{
		{LapNumber: 1, LapTimeMs: i64(96000), Sector1Ms: i64(30000)},
		{LapNumber: 2, LapTimeMs: i64(94000), Sector1Ms: i64(29000)},
		{LapNumber: 3, LapTimeMs: i64(98000), IsPit: true},
		{LapNumber: 4, LapTimeMs: i64(93000), Sector1Ms: i64(28000)}, // out-lap, fast but excluded from bests
		{LapNumber: 5, LapTimeMs: i64(95000), Sector1Ms: i64(29500)},
	}

	rows := BuildLapBoard(laps)
	require.Len(t, rows, 5)

	require.True(t, rows[2].IsIn)
	require.True(t, rows[3].IsOut)
	require.False(t, rows[0].IsOut)

	// Best lap over clean laps is lap 2; the out-lap's 93000 does not count.
	require.NotNil(t, rows[0].DeltaMs)
	require.InDelta(t, 2000, *rows[0].DeltaMs, 1e-9)
	require.InDelta(t, 0, *rows[1].DeltaMs, 1e-9)
	require.InDelta(t, -1000, *rows[3].DeltaMs, 1e-9)

	require.InDelta(t, 1000, *rows[0].DeltaS1, 1e-9)
	require.Nil(t, rows[2].DeltaS1, "pit lap has no sector time stored")

	require.True(t, rows[1].HasValid)
	require.False(t, rows[2].HasValid, "pit laps are not valid reference laps")
	require.True(t, rows[3].HasValid)
}

func TestBuildLapBoardEmpty(t *testing.T) {
	require.Nil(t, BuildLapBoard(nil))
}

func TestBuildLapBoardNoCleanLaps(t *testing.T) {
	rows := BuildLapBoard([]Lap{
		{LapNumber: 1, IsPit: true, LapTimeMs: i64(99000)},
		{LapNumber: 2, LapTimeMs: nil},
	})
	require.Len(t, rows, 2)
	require.Nil(t, rows[0].DeltaMs)
	require.Nil(t, rows[1].DeltaMs)
	require.True(t, rows[1].IsOut)
}
