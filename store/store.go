// Package store persists sessions, laps and raw telemetry in SQLite and
// hands ordered lap samples to the analysis engine.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	lapdelta "github.com/pitwall/lapdelta"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

type Store struct {
	*sql.DB
}

// Open opens (creating if needed) the SQLite database at path and ensures
// the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS session (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			season        INTEGER NOT NULL,
			round         INTEGER NOT NULL,
			session_type  TEXT NOT NULL,
			circuit       TEXT,
			UNIQUE(season, round, session_type)
		);
		CREATE TABLE IF NOT EXISTS driver (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			code          TEXT NOT NULL UNIQUE,
			name          TEXT
		);
		CREATE TABLE IF NOT EXISTS lap (
			session_id    INTEGER NOT NULL REFERENCES session(id),
			driver_id     INTEGER NOT NULL REFERENCES driver(id),
			lap_number    INTEGER NOT NULL,
			lap_time_ms   INTEGER,
			sector_1_ms   INTEGER,
			sector_2_ms   INTEGER,
			sector_3_ms   INTEGER,
			compound      TEXT,
			is_pit        INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY(session_id, driver_id, lap_number)
		);
		CREATE TABLE IF NOT EXISTS telemetry (
			ts            DOUBLE NOT NULL,
			session_id    INTEGER NOT NULL REFERENCES session(id),
			driver_id     INTEGER NOT NULL REFERENCES driver(id),
			lap_number    INTEGER,
			speed_kph     DOUBLE,
			throttle_pct  DOUBLE,
			brake_pct     DOUBLE,
			gear          INTEGER,
			rpm           INTEGER,
			x             DOUBLE,
			y             DOUBLE,
			PRIMARY KEY(session_id, driver_id, ts)
		);
		CREATE INDEX IF NOT EXISTS idx_telemetry_lap
			ON telemetry(session_id, driver_id, lap_number, ts);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db}, nil
}

// Session identifies one recorded track session.
type Session struct {
	ID          int64  `json:"id"`
	Season      int    `json:"season"`
	Round       int    `json:"round"`
	SessionType string `json:"session_type"`
	Circuit     string `json:"circuit"`
}

// Driver is a participant identified by a short code.
type Driver struct {
	ID   int64  `json:"-"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Lap is one stored lap row for a session/driver.
type Lap struct {
	LapNumber int     `json:"lap"`
	LapTimeMs *int64  `json:"lap_ms"`
	Sector1Ms *int64  `json:"s1"`
	Sector2Ms *int64  `json:"s2"`
	Sector3Ms *int64  `json:"s3"`
	Compound  *string `json:"compound"`
	IsPit     bool    `json:"is_pit"`
	IsBest    bool    `json:"is_best"`
}

// TelemetryRow is one raw telemetry sample as stored.
type TelemetryRow struct {
	TS        float64  `json:"ts"`
	LapNumber *int     `json:"lap"`
	SpeedKph  *float64 `json:"speed"`
	Throttle  *float64 `json:"throttle"`
	Brake     *float64 `json:"brake"`
	Gear      *int     `json:"gear"`
	RPM       *int     `json:"rpm"`
	X         *float64 `json:"x"`
	Y         *float64 `json:"y"`
}

// LapAggregate summarises a lap's telemetry channel averages.
type LapAggregate struct {
	LapNumber   int     `json:"lap"`
	Samples     int     `json:"n"`
	AvgSpeed    float64 `json:"avg_speed"`
	MaxSpeed    float64 `json:"max_speed"`
	AvgThrottle float64 `json:"avg_throttle"`
	AvgBrake    float64 `json:"avg_brake"`
}

// UpsertSession inserts the session once and returns its id on re-runs.
func (s *Store) UpsertSession(season, round int, sessionType, circuit string) (int64, error) {
	var id int64
	err := s.QueryRow(
		`SELECT id FROM session WHERE season=? AND round=? AND session_type=?`,
		season, round, sessionType,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	err = s.QueryRow(
		`INSERT INTO session(season, round, session_type, circuit) VALUES (?, ?, ?, ?) RETURNING id`,
		season, round, sessionType, circuit,
	).Scan(&id)
	return id, err
}

// UpsertDriver ensures a driver row exists for code and returns its id.
func (s *Store) UpsertDriver(code, name string) (int64, error) {
	var id int64
	err := s.QueryRow(
		`INSERT INTO driver(code, name) VALUES (?, ?)
		 ON CONFLICT(code) DO UPDATE SET name=excluded.name
		 RETURNING id`,
		code, name,
	).Scan(&id)
	return id, err
}

// DriverID resolves a driver code. Returns ErrNotFound for unknown codes.
func (s *Store) DriverID(code string) (int64, error) {
	var id int64
	err := s.QueryRow(`SELECT id FROM driver WHERE code=?`, code).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return id, err
}

// InsertLap records one lap, ignoring duplicates so ingestion is idempotent.
func (s *Store) InsertLap(sessionID, driverID int64, lap Lap) error {
	_, err := s.Exec(
		`INSERT OR IGNORE INTO lap (
			session_id, driver_id, lap_number, lap_time_ms,
			sector_1_ms, sector_2_ms, sector_3_ms, compound, is_pit
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, driverID, lap.LapNumber, lap.LapTimeMs,
		lap.Sector1Ms, lap.Sector2Ms, lap.Sector3Ms, lap.Compound, lap.IsPit,
	)
	return err
}

// InsertTelemetry stores sample rows in one transaction, skipping rows whose
// (session, driver, ts) key already exists. Returns the inserted count.
func (s *Store) InsertTelemetry(sessionID, driverID int64, rows []TelemetryRow) (int, error) {
	tx, err := s.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT OR IGNORE INTO telemetry (
			ts, session_id, driver_id, lap_number,
			speed_kph, throttle_pct, brake_pct, gear, rpm, x, y
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range rows {
		res, err := stmt.Exec(
			r.TS, sessionID, driverID, r.LapNumber,
			r.SpeedKph, r.Throttle, r.Brake, r.Gear, r.RPM, r.X, r.Y,
		)
		if err != nil {
			return inserted, err
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	return inserted, tx.Commit()
}

// Sessions lists all sessions in season/round order.
func (s *Store) Sessions() ([]Session, error) {
	rows, err := s.Query(
		`SELECT id, season, round, session_type, COALESCE(circuit, '')
		 FROM session ORDER BY season, round, session_type`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Season, &sess.Round, &sess.SessionType, &sess.Circuit); err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Drivers lists the drivers with laps in a session.
func (s *Store) Drivers(sessionID int64) ([]Driver, error) {
	rows, err := s.Query(
		`SELECT DISTINCT d.id, d.code, COALESCE(d.name, '')
		 FROM lap l JOIN driver d ON d.id = l.driver_id
		 WHERE l.session_id=? ORDER BY d.code`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Driver
	for rows.Next() {
		var d Driver
		if err := rows.Scan(&d.ID, &d.Code, &d.Name); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Laps lists a driver's laps in a session, flagging the best non-pit lap.
func (s *Store) Laps(sessionID, driverID int64) ([]Lap, error) {
	rows, err := s.Query(
		`SELECT lap_number, lap_time_ms, sector_1_ms, sector_2_ms, sector_3_ms, compound, is_pit
		 FROM lap WHERE session_id=? AND driver_id=? ORDER BY lap_number`,
		sessionID, driverID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Lap
	for rows.Next() {
		var lap Lap
		if err := rows.Scan(
			&lap.LapNumber, &lap.LapTimeMs,
			&lap.Sector1Ms, &lap.Sector2Ms, &lap.Sector3Ms,
			&lap.Compound, &lap.IsPit,
		); err != nil {
			return nil, err
		}
		out = append(out, lap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	markBestLap(out)
	return out, nil
}

// markBestLap flags the fastest lap with a valid time, excluding pit laps.
func markBestLap(laps []Lap) {
	var best *int64
	for _, lap := range laps {
		if lap.IsPit || lap.LapTimeMs == nil || *lap.LapTimeMs <= 0 {
			continue
		}
		if best == nil || *lap.LapTimeMs < *best {
			best = lap.LapTimeMs
		}
	}
	if best == nil {
		return
	}
	for i := range laps {
		lap := &laps[i]
		lap.IsBest = !lap.IsPit && lap.LapTimeMs != nil && *lap.LapTimeMs == *best
	}
}

// LapSamples fetches one lap's telemetry as ordered engine samples.
func (s *Store) LapSamples(sessionID, driverID int64, lapNumber int) ([]lapdelta.Sample, error) {
	rows, err := s.Query(
		`SELECT ts, speed_kph, throttle_pct, brake_pct, x, y
		 FROM telemetry
		 WHERE session_id=? AND driver_id=? AND lap_number=?
		 ORDER BY ts`,
		sessionID, driverID, lapNumber,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []lapdelta.Sample
	for rows.Next() {
		var sample lapdelta.Sample
		if err := rows.Scan(&sample.T, &sample.SpeedKph, &sample.Throttle, &sample.Brake, &sample.X, &sample.Y); err != nil {
			return nil, err
		}
		out = append(out, sample)
	}
	return out, rows.Err()
}

// Telemetry fetches raw rows for a driver, optionally restricted to one lap.
// When no lap is given, limit caps the row count.
func (s *Store) Telemetry(sessionID, driverID int64, lapNumber *int, limit int) ([]TelemetryRow, error) {
	query := `SELECT ts, lap_number, speed_kph, throttle_pct, brake_pct, gear, rpm, x, y
		 FROM telemetry WHERE session_id=? AND driver_id=?`
	args := []any{sessionID, driverID}
	if lapNumber != nil {
		query += ` AND lap_number=?`
		args = append(args, *lapNumber)
	}
	query += ` ORDER BY ts`
	if lapNumber == nil {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TelemetryRow
	for rows.Next() {
		var r TelemetryRow
		if err := rows.Scan(&r.TS, &r.LapNumber, &r.SpeedKph, &r.Throttle, &r.Brake, &r.Gear, &r.RPM, &r.X, &r.Y); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LapAggregates computes per-lap telemetry channel averages.
func (s *Store) LapAggregates(sessionID, driverID int64) ([]LapAggregate, error) {
	rows, err := s.Query(
		`SELECT lap_number,
				COUNT(*),
				COALESCE(AVG(speed_kph), 0),
				COALESCE(MAX(speed_kph), 0),
				COALESCE(AVG(throttle_pct), 0),
				COALESCE(AVG(brake_pct), 0)
		 FROM telemetry
		 WHERE session_id=? AND driver_id=? AND lap_number IS NOT NULL
		 GROUP BY lap_number ORDER BY lap_number`,
		sessionID, driverID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LapAggregate
	for rows.Next() {
		var agg LapAggregate
		if err := rows.Scan(&agg.LapNumber, &agg.Samples, &agg.AvgSpeed, &agg.MaxSpeed, &agg.AvgThrottle, &agg.AvgBrake); err != nil {
			return nil, err
		}
		out = append(out, agg)
	}
	return out, rows.Err()
}
