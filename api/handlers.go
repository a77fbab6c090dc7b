package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/pitwall/lapdelta"
	"github.com/pitwall/lapdelta/chart"
	"github.com/pitwall/lapdelta/log"
	"github.com/pitwall/lapdelta/store"
)

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]bool{"ok": true})
}

func (s *Server) listSessions(w http.ResponseWriter, _ *http.Request) {
	sessions, err := s.st.Sessions()
	if err != nil {
		log.Logger.Error("list sessions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if sessions == nil {
		sessions = []store.Session{}
	}
	writeJSON(w, sessions)
}

func (s *Server) listDrivers(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := queryInt64(r, "session_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "session_id required")
		return
	}
	drivers, err := s.st.Drivers(sessionID)
	if err != nil {
		log.Logger.Error("list drivers", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if drivers == nil {
		drivers = []store.Driver{}
	}
	writeJSON(w, drivers)
}

// driverLaps resolves the driver code and loads the lap list. An unknown
// driver yields an empty list, not an error.
func (s *Server) driverLaps(w http.ResponseWriter, r *http.Request) ([]store.Lap, bool) {
	sessionID, ok := queryInt64(r, "session_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "session_id required")
		return nil, false
	}
	code := r.URL.Query().Get("driver_code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "driver_code required")
		return nil, false
	}
	driverID, err := s.st.DriverID(code)
	if errors.Is(err, store.ErrNotFound) {
		return []store.Lap{}, true
	}
	if err != nil {
		log.Logger.Error("resolve driver", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return nil, false
	}
	laps, err := s.st.Laps(sessionID, driverID)
	if err != nil {
		log.Logger.Error("list laps", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return nil, false
	}
	if laps == nil {
		laps = []store.Lap{}
	}
	return laps, true
}

func (s *Server) listLaps(w http.ResponseWriter, r *http.Request) {
	laps, ok := s.driverLaps(w, r)
	if !ok {
		return
	}
	writeJSON(w, laps)
}

func (s *Server) lapBoard(w http.ResponseWriter, r *http.Request) {
	laps, ok := s.driverLaps(w, r)
	if !ok {
		return
	}
	writeJSON(w, store.BuildLapBoard(laps))
}

func (s *Server) lapAggregates(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := queryInt64(r, "session_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "session_id required")
		return
	}
	code := r.URL.Query().Get("driver_code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "driver_code required")
		return
	}
	driverID, err := s.st.DriverID(code)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, []store.LapAggregate{})
		return
	}
	if err != nil {
		log.Logger.Error("resolve driver", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	aggs, err := s.st.LapAggregates(sessionID, driverID)
	if err != nil {
		log.Logger.Error("lap aggregates", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if aggs == nil {
		aggs = []store.LapAggregate{}
	}
	writeJSON(w, aggs)
}

const (
	defaultTelemetryLimit = 5000
	maxTelemetryLimit     = 50000
)

func (s *Server) telemetry(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := queryInt64(r, "session_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "session_id required")
		return
	}
	code := r.URL.Query().Get("driver_code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "driver_code required")
		return
	}
	driverID, err := s.st.DriverID(code)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, []store.TelemetryRow{})
		return
	}
	if err != nil {
		log.Logger.Error("resolve driver", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	var lap *int
	if v, ok := queryInt(r, "lap_number"); ok {
		lap = &v
	}
	limit := defaultTelemetryLimit
	if v, ok := queryInt(r, "limit"); ok && v > 0 {
		limit = v
	}
	if limit > maxTelemetryLimit {
		limit = maxTelemetryLimit
	}

	rows, err := s.st.Telemetry(sessionID, driverID, lap, limit)
	if err != nil {
		log.Logger.Error("telemetry", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if rows == nil {
		rows = []store.TelemetryRow{}
	}
	writeJSON(w, rows)
}

// lapPair loads the raw samples for the reference and compare laps named in
// the query. compare_lap is optional when optionalCompare is set.
func (s *Server) lapPair(w http.ResponseWriter, r *http.Request, optionalCompare bool) (ref, cmp []lapdelta.Sample, ok bool) {
	sessionID, idOK := queryInt64(r, "session_id")
	if !idOK {
		writeError(w, http.StatusBadRequest, "session_id required")
		return nil, nil, false
	}
	code := r.URL.Query().Get("driver_code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "driver_code required")
		return nil, nil, false
	}
	refLap, refOK := queryInt(r, "reference_lap")
	if !refOK {
		writeError(w, http.StatusBadRequest, "reference_lap required")
		return nil, nil, false
	}
	cmpLap, cmpOK := queryInt(r, "compare_lap")
	if !cmpOK && !optionalCompare {
		writeError(w, http.StatusBadRequest, "compare_lap required")
		return nil, nil, false
	}

	driverID, err := s.st.DriverID(code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, true
	}
	if err != nil {
		log.Logger.Error("resolve driver", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return nil, nil, false
	}

	ref, err = s.st.LapSamples(sessionID, driverID, refLap)
	if err != nil {
		log.Logger.Error("load reference lap", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return nil, nil, false
	}
	if cmpOK {
		cmp, err = s.st.LapSamples(sessionID, driverID, cmpLap)
		if err != nil {
			log.Logger.Error("load compare lap", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "query failed")
			return nil, nil, false
		}
	}
	return ref, cmp, true
}

// emptyComparison is what callers get when a lap pairing has too little
// usable data. The shape matches a real comparison so clients can render an
// explanatory empty state.
func emptyComparison() *lapdelta.Comparison {
	return &lapdelta.Comparison{
		SpeedSeries: []lapdelta.SpeedPoint{},
		DeltaSeries: []lapdelta.DeltaPoint{},
	}
}

func isDataError(err error) bool {
	return errors.Is(err, lapdelta.ErrInsufficientData) ||
		errors.Is(err, lapdelta.ErrInsufficientOverlap)
}

func (s *Server) compareLaps(w http.ResponseWriter, r *http.Request) {
	ref, cmp, ok := s.lapPair(w, r, false)
	if !ok {
		return
	}
	step := queryFloat(r, "step", lapdelta.DefaultStep)
	comparison, err := lapdelta.CompareLaps(ref, cmp, step)
	if err != nil {
		if isDataError(err) {
			writeJSON(w, emptyComparison())
			return
		}
		log.Logger.Error("compare laps", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "comparison failed")
		return
	}
	writeJSON(w, comparison)
}

func (s *Server) compareChart(w http.ResponseWriter, r *http.Request) {
	ref, cmp, ok := s.lapPair(w, r, false)
	if !ok {
		return
	}
	step := queryFloat(r, "step", lapdelta.DefaultStep)
	comparison, err := lapdelta.CompareLaps(ref, cmp, step)
	if err != nil {
		if isDataError(err) {
			comparison = emptyComparison()
		} else {
			log.Logger.Error("compare laps", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "comparison failed")
			return
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	refLabel := "lap " + r.URL.Query().Get("reference_lap")
	cmpLabel := "lap " + r.URL.Query().Get("compare_lap")
	if err := chart.RenderComparison(w, comparison, refLabel, cmpLabel); err != nil {
		log.Logger.Error("render chart", zap.Error(err))
	}
}

// segmentParams builds corner-detection settings from query overrides on top
// of the defaults.
func segmentParams(r *http.Request) lapdelta.SegmentParams {
	p := lapdelta.DefaultSegmentParams()
	p.Step = queryFloat(r, "step", p.Step)
	p.OnThreshold = queryFloat(r, "on", p.OnThreshold)
	p.OffThreshold = queryFloat(r, "off", p.OffThreshold)
	p.ExitThrottle = queryFloat(r, "exit_thr", p.ExitThrottle)
	p.MinLength = queryFloat(r, "min_len", p.MinLength)
	p.MinDropKph = queryFloat(r, "min_drop_kph", p.MinDropKph)
	p.MinTime = queryFloat(r, "min_time", p.MinTime)
	p.MinPeakBrake = queryFloat(r, "min_peak_brake", p.MinPeakBrake)
	p.Scale01 = queryBool(r, "scale01")
	return p
}

func (s *Server) lapCorners(w http.ResponseWriter, r *http.Request) {
	ref, cmp, ok := s.lapPair(w, r, true)
	if !ok {
		return
	}
	report, err := lapdelta.AnalyzeCorners(ref, cmp, segmentParams(r))
	if err != nil {
		if isDataError(err) {
			writeJSON(w, &lapdelta.CornerReport{
				Corners:   []lapdelta.CornerSummary{},
				TopLosses: []lapdelta.TopLoss{},
			})
			return
		}
		log.Logger.Error("analyze corners", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}
	if report.Corners == nil {
		report.Corners = []lapdelta.CornerSummary{}
	}
	if report.TopLosses == nil {
		report.TopLosses = []lapdelta.TopLoss{}
	}
	writeJSON(w, report)
}
