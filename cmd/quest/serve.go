package main

import (
	"fmt"
	"net/http"

	"github.com/metalagman/quest/internal/runlog"
	"github.com/metalagman/quest/internal/web"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			storeDB, workDir, closeFn, err := openRunLog()
			if err != nil {
				return err
			}
			defer closeFn()

			cfg, err := loadConfig(workDir)
			if err != nil {
				return err
			}

			factory, cleanup, err := buildFactory(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			if addr == "" {
				addr = cfg.Server.Addr
			}
			server := web.NewServer(factory, runlog.NewStore(storeDB), policyFromConfig(cfg))
			fmt.Printf("Listening on %s\n", addr)
			return http.ListenAndServe(addr, server.Routes())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to server.addr from config)")
	return cmd
}
