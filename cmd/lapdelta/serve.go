package main

import (
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pitwall/lapdelta/api"
	"github.com/pitwall/lapdelta/log"
	"github.com/pitwall/lapdelta/store"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the telemetry and lap-comparison HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			srv := api.NewServer(st)
			log.Logger.Info("serving", zap.String("addr", addr), zap.String("db", dbPath))
			return http.ListenAndServe(addr, srv.Handler())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8000", "listen address")
	return cmd
}
