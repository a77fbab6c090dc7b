package pipeline

import lapdelta "github.com/pitwall/lapdelta"

// Options configures one lap-comparison pipeline run.
type Options struct {
	SessionID    int64
	DriverCode   string
	ReferenceLap int
	CompareLap   int // 0 means corner analysis without a comparison lap
	Params       lapdelta.SegmentParams
	OutDir       string
	Format       string // parquet|csv
	Overwrite    bool
}

// Result returns generated output paths.
type Result struct {
	OutputDir          string `json:"output_dir"`
	ComparisonPath     string `json:"comparison_path,omitempty"`
	CornersPath        string `json:"corners_path"`
	AlignedSamplesPath string `json:"aligned_samples_path,omitempty"`
	ChartPath          string `json:"chart_path,omitempty"`
	NotesPath          string `json:"notes_path"`
}

// AlignedSample is one grid point of the comparison, flattened for columnar
// export.
type AlignedSample struct {
	Distance     float64 `json:"distance"`
	ReferenceKph float64 `json:"reference_speed_kph"`
	CompareKph   float64 `json:"compare_speed_kph"`
	DeltaS       float64 `json:"delta_s"`
}
