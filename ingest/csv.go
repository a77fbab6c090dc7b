package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pitwall/lapdelta/store"
)

// csvColumns is the expected header of a telemetry CSV export. Empty cells
// mean the channel had no reading for that row.
var csvColumns = []string{"ts", "lap", "speed_kph", "throttle_pct", "brake_pct", "gear", "rpm", "x", "y"}

// CSVFile loads a telemetry CSV export into the store. Lap rows are derived
// from the distinct lap numbers seen in the data; lap times come from the
// first/last sample timestamps per lap.
func CSVFile(st *store.Store, path string, opts Options) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}
	defer f.Close()
	return CSV(st, f, opts)
}

// CSV reads telemetry rows from r and loads them into the store.
func CSV(st *store.Store, r io.Reader, opts Options) (*Result, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	sessionID, driverID, err := resolveSession(st, opts)
	if err != nil {
		return nil, err
	}
	result := &Result{SessionID: sessionID, DriverID: driverID}

	type lapSpan struct{ first, last float64 }
	spans := make(map[int]*lapSpan)

	var rows []store.TelemetryRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return result, fmt.Errorf("read csv line %d: %w", line, err)
		}
		row, err := parseRow(rec)
		if err != nil {
			return result, fmt.Errorf("csv line %d: %w", line, err)
		}
		rows = append(rows, row)

		if row.LapNumber != nil {
			span, ok := spans[*row.LapNumber]
			if !ok {
				spans[*row.LapNumber] = &lapSpan{first: row.TS, last: row.TS}
				continue
			}
			if row.TS < span.first {
				span.first = row.TS
			}
			if row.TS > span.last {
				span.last = row.TS
			}
		}
	}

	for number, span := range spans {
		row := store.Lap{LapNumber: number}
		if span.last > span.first {
			ms := int64((span.last - span.first) * 1000)
			row.LapTimeMs = &ms
		}
		if err := st.InsertLap(sessionID, driverID, row); err != nil {
			return result, fmt.Errorf("insert lap %d: %w", number, err)
		}
		result.LapsInserted++
	}

	inserted, err := st.InsertTelemetry(sessionID, driverID, rows)
	result.TelemetryInserted = inserted
	if err != nil {
		return result, fmt.Errorf("insert telemetry: %w", err)
	}
	return result, nil
}

func checkHeader(header []string) error {
	if len(header) < len(csvColumns) {
		return fmt.Errorf("csv header has %d columns, want %d", len(header), len(csvColumns))
	}
	for i, want := range csvColumns {
		if strings.TrimSpace(header[i]) != want {
			return fmt.Errorf("unexpected csv column %d: got %q want %q", i, header[i], want)
		}
	}
	return nil
}

func parseRow(rec []string) (store.TelemetryRow, error) {
	ts, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
	if err != nil {
		return store.TelemetryRow{}, fmt.Errorf("parse ts: %w", err)
	}
	row := store.TelemetryRow{TS: ts}
	row.LapNumber = optInt(rec[1])
	row.SpeedKph = optFloat(rec[2])
	row.Throttle = optFloat(rec[3])
	row.Brake = optFloat(rec[4])
	row.Gear = optInt(rec[5])
	row.RPM = optInt(rec[6])
	row.X = optFloat(rec[7])
	row.Y = optFloat(rec[8])
	return row, nil
}

func optFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func optInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}
