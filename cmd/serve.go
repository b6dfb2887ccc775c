package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/zonemap/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the map API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		catalog, err := openCatalog(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = catalog.Close() }()

		renderer, err := newRenderer()
		if err != nil {
			return err
		}

		srvCfg := cfg.Server
		if servePort != 0 {
			srvCfg.Port = servePort
		}

		return server.New(catalog, renderer, srvCfg, zoneOptions()).ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
