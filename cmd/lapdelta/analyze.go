package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pitwall/lapdelta"
	"github.com/pitwall/lapdelta/log"
	"github.com/pitwall/lapdelta/pipeline"
	"github.com/pitwall/lapdelta/store"
)

func newAnalyzeCmd() *cobra.Command {
	opts := pipeline.Options{Params: lapdelta.DefaultSegmentParams()}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compare two laps and write the analysis artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			res, err := pipeline.Run(st, opts)
			if err != nil {
				return err
			}
			log.Logger.Info("analysis written", zap.String("dir", res.OutputDir))
			return nil
		},
	}

	cmd.Flags().Int64Var(&opts.SessionID, "session", 0, "session id")
	cmd.Flags().StringVar(&opts.DriverCode, "driver", "", "driver code")
	cmd.Flags().IntVar(&opts.ReferenceLap, "reference-lap", 0, "reference lap number")
	cmd.Flags().IntVar(&opts.CompareLap, "compare-lap", 0, "compare lap number (0 skips the comparison)")
	cmd.Flags().StringVar(&opts.OutDir, "out", "out", "output directory")
	cmd.Flags().StringVar(&opts.Format, "format", "parquet", "aligned-sample format (parquet or csv)")
	cmd.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "overwrite an existing output directory")

	cmd.Flags().Float64Var(&opts.Params.Step, "step", opts.Params.Step, "distance grid step in meters")
	cmd.Flags().Float64Var(&opts.Params.OnThreshold, "on", opts.Params.OnThreshold, "brake level that opens a corner")
	cmd.Flags().Float64Var(&opts.Params.OffThreshold, "off", opts.Params.OffThreshold, "brake level that allows a corner to close")
	cmd.Flags().Float64Var(&opts.Params.ExitThrottle, "exit-thr", opts.Params.ExitThrottle, "throttle level required to close a corner")
	cmd.Flags().Float64Var(&opts.Params.MinLength, "min-len", opts.Params.MinLength, "minimum corner length in meters")
	cmd.Flags().Float64Var(&opts.Params.MinDropKph, "min-drop-kph", opts.Params.MinDropKph, "minimum entry-to-apex speed drop")
	cmd.Flags().Float64Var(&opts.Params.MinTime, "min-time", opts.Params.MinTime, "minimum corner duration in seconds")
	cmd.Flags().Float64Var(&opts.Params.MinPeakBrake, "min-peak-brake", opts.Params.MinPeakBrake, "minimum peak brake inside a corner")
	cmd.Flags().BoolVar(&opts.Params.Scale01, "scale01", opts.Params.Scale01, "treat pedal channels as 0..1 instead of 0..100")

	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("driver")
	_ = cmd.MarkFlagRequired("reference-lap")
	return cmd
}
