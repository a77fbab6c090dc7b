package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pitwall/lapdelta/ingest"
	"github.com/pitwall/lapdelta/log"
	"github.com/pitwall/lapdelta/store"
)

func newIngestCmd() *cobra.Command {
	var opts ingest.Options
	var format string

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Load a FIT or CSV telemetry file into the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			path := args[0]
			f := format
			if f == "" {
				f = strings.TrimPrefix(filepath.Ext(path), ".")
			}

			var res *ingest.Result
			switch strings.ToLower(f) {
			case "fit":
				res, err = ingest.FITFile(st, path, opts)
			case "csv":
				res, err = ingest.CSVFile(st, path, opts)
			default:
				return fmt.Errorf("unsupported format %q (want fit or csv)", f)
			}
			if err != nil {
				return err
			}
			log.Logger.Info("ingested",
				zap.String("file", path),
				zap.Int64("session_id", res.SessionID),
				zap.Int("laps", res.LapsInserted),
				zap.Int("telemetry_rows", res.TelemetryInserted))
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Season, "season", 0, "season year")
	cmd.Flags().IntVar(&opts.Round, "round", 0, "round within the season")
	cmd.Flags().StringVar(&opts.SessionType, "session-type", "R", "session type (FP1, Q, R, ...)")
	cmd.Flags().StringVar(&opts.Circuit, "circuit", "", "circuit name")
	cmd.Flags().StringVar(&opts.DriverCode, "driver", "", "driver code")
	cmd.Flags().StringVar(&opts.DriverName, "driver-name", "", "driver full name")
	cmd.Flags().StringVar(&format, "format", "", "input format, inferred from extension when empty")
	_ = cmd.MarkFlagRequired("driver")
	return cmd
}
