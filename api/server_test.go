package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	lapdelta "github.com/pitwall/lapdelta"
	"github.com/pitwall/lapdelta/store"
)

func newTestServer(t *testing.T) (*httptest.Server, int64) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	sessionID, err := st.UpsertSession(2026, 9, "R", "Zandvoort")
	require.NoError(t, err)
	driverID, err := st.UpsertDriver("RUS", "George Russell")
	require.NoError(t, err)

	f := func(v float64) *float64 { return &v }
	for lap := 1; lap <= 2; lap++ {
		pace := 0.20
		if lap == 2 {
			pace = 0.22
		}
		lapNum := lap
		var rows []store.TelemetryRow
		for i := 0; i < 100; i++ {
			speed, throttle, brake := 210.0, 100.0, 0.0
			if i >= 40 && i <= 55 {
				throttle, brake = 0.0, 75.0
			}
			if i >= 44 && i <= 52 {
				speed = 110.0
			}
			rows = append(rows, store.TelemetryRow{
				TS:        1000.0*float64(lap) + float64(i)*pace,
				LapNumber: &lapNum,
				SpeedKph:  f(speed),
				Throttle:  f(throttle),
				Brake:     f(brake),
				X:         f(float64(i) * 10),
				Y:         f(0),
			})
		}
		_, err := st.InsertTelemetry(sessionID, driverID, rows)
		require.NoError(t, err)
		ms := int64(20000 + lap*500)
		require.NoError(t, st.InsertLap(sessionID, driverID, store.Lap{LapNumber: lap, LapTimeMs: &ms}))
	}

	srv := httptest.NewServer(NewServer(st).Handler())
	t.Cleanup(srv.Close)
	return srv, sessionID
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	var body map[string]bool
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/health", &body))
	require.True(t, body["ok"])
}

func TestSessionsAndDrivers(t *testing.T) {
	srv, sessionID := newTestServer(t)

	var sessions []store.Session
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/sessions", &sessions))
	require.Len(t, sessions, 1)
	require.Equal(t, "Zandvoort", sessions[0].Circuit)

	var drivers []store.Driver
	url := fmt.Sprintf("%s/drivers?session_id=%d", srv.URL, sessionID)
	require.Equal(t, http.StatusOK, getJSON(t, url, &drivers))
	require.Len(t, drivers, 1)
	require.Equal(t, "RUS", drivers[0].Code)

	require.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/drivers", nil))
}

func TestLapsEndpoints(t *testing.T) {
	srv, sessionID := newTestServer(t)

	var laps []store.Lap
	url := fmt.Sprintf("%s/laps?session_id=%d&driver_code=RUS", srv.URL, sessionID)
	require.Equal(t, http.StatusOK, getJSON(t, url, &laps))
	require.Len(t, laps, 2)
	require.True(t, laps[0].IsBest)

	// Unknown driver is an empty list, not an error.
	url = fmt.Sprintf("%s/laps?session_id=%d&driver_code=ZZZ", srv.URL, sessionID)
	require.Equal(t, http.StatusOK, getJSON(t, url, &laps))
	require.Empty(t, laps)

	var board []store.LapBoardRow
	url = fmt.Sprintf("%s/laps/summary?session_id=%d&driver_code=RUS", srv.URL, sessionID)
	require.Equal(t, http.StatusOK, getJSON(t, url, &board))
	require.Len(t, board, 2)
	require.NotNil(t, board[1].DeltaMs)
	require.InDelta(t, 500, *board[1].DeltaMs, 1e-9)

	var aggs []store.LapAggregate
	url = fmt.Sprintf("%s/lap_summaries?session_id=%d&driver_code=RUS", srv.URL, sessionID)
	require.Equal(t, http.StatusOK, getJSON(t, url, &aggs))
	require.Len(t, aggs, 2)
	require.Equal(t, 100, aggs[0].Samples)
}

func TestTelemetryEndpoint(t *testing.T) {
	srv, sessionID := newTestServer(t)

	var rows []store.TelemetryRow
	url := fmt.Sprintf("%s/telemetry?session_id=%d&driver_code=RUS&lap_number=1", srv.URL, sessionID)
	require.Equal(t, http.StatusOK, getJSON(t, url, &rows))
	require.Len(t, rows, 100)

	url = fmt.Sprintf("%s/telemetry?session_id=%d&driver_code=RUS&limit=10", srv.URL, sessionID)
	require.Equal(t, http.StatusOK, getJSON(t, url, &rows))
	require.Len(t, rows, 10)
}

func TestCompareLapsEndpoint(t *testing.T) {
	srv, sessionID := newTestServer(t)

	var c lapdelta.Comparison
	url := fmt.Sprintf("%s/laps/compare?session_id=%d&driver_code=RUS&reference_lap=1&compare_lap=2", srv.URL, sessionID)
	require.Equal(t, http.StatusOK, getJSON(t, url, &c))
	require.NotEmpty(t, c.DeltaSeries)
	require.Greater(t, c.Summary.TotalDelta, 0.0, "slower compare lap loses time")

	// A lap with no stored telemetry degrades to an empty comparison.
	url = fmt.Sprintf("%s/laps/compare?session_id=%d&driver_code=RUS&reference_lap=1&compare_lap=99", srv.URL, sessionID)
	require.Equal(t, http.StatusOK, getJSON(t, url, &c))
	require.Empty(t, c.DeltaSeries)
	require.Empty(t, c.SpeedSeries)
}

func TestLapCornersEndpoint(t *testing.T) {
	srv, sessionID := newTestServer(t)

	var report lapdelta.CornerReport
	url := fmt.Sprintf("%s/laps/corners?session_id=%d&driver_code=RUS&reference_lap=1&compare_lap=2", srv.URL, sessionID)
	require.Equal(t, http.StatusOK, getJSON(t, url, &report))
	require.NotEmpty(t, report.Corners)
	require.NotNil(t, report.Corners[0].DeltaS)

	// Raising the entry threshold past the brake trace finds nothing on a
	// straight-line lap, and the response is still a valid empty report.
	url = fmt.Sprintf("%s/laps/corners?session_id=%d&driver_code=RUS&reference_lap=1&on=99&min_peak_brake=1000", srv.URL, sessionID)
	require.Equal(t, http.StatusOK, getJSON(t, url, &report))
	require.Empty(t, report.Corners)
	require.Empty(t, report.TopLosses)
}

func TestCompareChartEndpoint(t *testing.T) {
	srv, sessionID := newTestServer(t)

	url := fmt.Sprintf("%s/laps/compare/chart?session_id=%d&driver_code=RUS&reference_lap=1&compare_lap=2", srv.URL, sessionID)
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html"))
}
