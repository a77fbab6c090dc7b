// Package pipeline runs one lap comparison end to end and writes its
// artifact bundle: comparison, corner report, aligned samples, chart and
// notes.
package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	lapdelta "github.com/pitwall/lapdelta"
	"github.com/pitwall/lapdelta/chart"
	"github.com/pitwall/lapdelta/log"
	"github.com/pitwall/lapdelta/store"
	"go.uber.org/zap"
)

// Run fetches the laps named by opts from the store, runs the alignment and
// corner engines, and writes all artifacts to opts.OutDir.
func Run(st *store.Store, opts Options) (*Result, error) {
	if strings.TrimSpace(opts.DriverCode) == "" {
		return nil, fmt.Errorf("driver code is required")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "parquet"
	}
	if format != "parquet" && format != "csv" {
		return nil, fmt.Errorf("unsupported format %q (expected parquet|csv)", format)
	}

	driverID, err := st.DriverID(opts.DriverCode)
	if err != nil {
		return nil, fmt.Errorf("resolve driver %q: %w", opts.DriverCode, err)
	}
	refSamples, err := st.LapSamples(opts.SessionID, driverID, opts.ReferenceLap)
	if err != nil {
		return nil, fmt.Errorf("fetch reference lap %d: %w", opts.ReferenceLap, err)
	}
	var cmpSamples []lapdelta.Sample
	if opts.CompareLap > 0 {
		cmpSamples, err = st.LapSamples(opts.SessionID, driverID, opts.CompareLap)
		if err != nil {
			return nil, fmt.Errorf("fetch compare lap %d: %w", opts.CompareLap, err)
		}
	}

	var comparison *lapdelta.Comparison
	if opts.CompareLap > 0 {
		comparison, err = lapdelta.CompareLaps(refSamples, cmpSamples, opts.Params.Step)
		if err != nil && !isDataError(err) {
			return nil, err
		}
	}
	report, err := lapdelta.AnalyzeCorners(refSamples, cmpSamples, opts.Params)
	if err != nil {
		if !isDataError(err) {
			return nil, err
		}
		log.Logger.Warn("lap has insufficient telemetry, writing empty report",
			zap.Int("reference_lap", opts.ReferenceLap), zap.Error(err))
		report = &lapdelta.CornerReport{}
	}

	if err := ensureOutputDir(opts.OutDir, opts.Overwrite); err != nil {
		return nil, err
	}
	result := &Result{OutputDir: opts.OutDir}

	result.CornersPath = filepath.Join(opts.OutDir, "corners.json")
	if err := writeJSON(result.CornersPath, report); err != nil {
		return nil, fmt.Errorf("write corners.json: %w", err)
	}

	if comparison != nil {
		result.ComparisonPath = filepath.Join(opts.OutDir, "comparison.json")
		if err := writeJSON(result.ComparisonPath, comparison); err != nil {
			return nil, fmt.Errorf("write comparison.json: %w", err)
		}

		aligned := flattenComparison(comparison)
		result.AlignedSamplesPath = filepath.Join(opts.OutDir, "aligned_samples."+format)
		switch format {
		case "csv":
			err = writeAlignedCSV(result.AlignedSamplesPath, aligned)
		case "parquet":
			err = writeAlignedParquet(result.AlignedSamplesPath, aligned)
		}
		if err != nil {
			return nil, fmt.Errorf("write aligned samples: %w", err)
		}

		result.ChartPath = filepath.Join(opts.OutDir, "delta_chart.html")
		if err := writeChart(result.ChartPath, comparison, opts); err != nil {
			return nil, fmt.Errorf("write delta chart: %w", err)
		}
	}

	result.NotesPath = filepath.Join(opts.OutDir, "comparison_notes.md")
	notes := lapdelta.BuildComparisonNotes(comparison, report.Corners)
	if notes == "" {
		notes = "No comparison available for this lap pairing.\n"
	}
	if err := os.WriteFile(result.NotesPath, []byte(notes), 0o644); err != nil {
		return nil, fmt.Errorf("write comparison notes: %w", err)
	}

	log.Logger.Info("pipeline run complete",
		zap.Int64("session_id", opts.SessionID),
		zap.String("driver", opts.DriverCode),
		zap.Int("reference_lap", opts.ReferenceLap),
		zap.Int("compare_lap", opts.CompareLap),
		zap.Int("corners", len(report.Corners)))
	return result, nil
}

// isDataError reports whether err is an expected data-sparsity condition
// rather than a defect.
func isDataError(err error) bool {
	return errors.Is(err, lapdelta.ErrInsufficientData) ||
		errors.Is(err, lapdelta.ErrInsufficientOverlap)
}

func flattenComparison(c *lapdelta.Comparison) []AlignedSample {
	out := make([]AlignedSample, 0, len(c.DeltaSeries))
	for i, dp := range c.DeltaSeries {
		out = append(out, AlignedSample{
			Distance:     dp.Distance,
			ReferenceKph: c.SpeedSeries[i].ReferenceSpeed,
			CompareKph:   c.SpeedSeries[i].CompareSpeed,
			DeltaS:       dp.Delta,
		})
	}
	return out
}

func ensureOutputDir(dir string, overwrite bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return os.MkdirAll(dir, 0o755)
		}
		return err
	}
	if len(entries) > 0 && !overwrite {
		return fmt.Errorf("output directory %s is not empty", dir)
	}
	return nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeChart(path string, comparison *lapdelta.Comparison, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	refLabel := fmt.Sprintf("lap %d", opts.ReferenceLap)
	cmpLabel := fmt.Sprintf("lap %d", opts.CompareLap)
	return chart.RenderComparison(f, comparison, refLabel, cmpLabel)
}

func writeAlignedCSV(path string, samples []AlignedSample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"distance", "reference_speed_kph", "compare_speed_kph", "delta_s"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, s := range samples {
		row := []string{
			formatFloat(s.Distance),
			formatFloat(s.ReferenceKph),
			formatFloat(s.CompareKph),
			formatFloat(s.DeltaS),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
