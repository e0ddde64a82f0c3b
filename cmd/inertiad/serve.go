package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/nordbeam/nb-inertia-sub000/bootstrap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the page server",
	Long: `Start the Inertia page server.

The server will:
  - Load configuration from inertiad.yaml (or --config)
  - Or load configuration from INERTIA_* environment variables
  - Register all page contracts and shared providers
  - Validate every contract against its scope's providers
  - Serve pages over the Inertia protocol

Environment variables (for container deployments):
  INERTIA_SERVER_PORT    - Server port (default: 8080)
  INERTIA_ASSET_VERSION  - Asset version string
  INERTIA_CACHE_MODE     - Once-cache backend: memory or sqlite
  INERTIA_CACHE_DSN      - SQLite path for the once cache
  INERTIA_LOG_LEVEL      - Log level: debug, info, warn, error

Examples:
  inertiad serve
  inertiad serve --config /etc/inertiad/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := bootstrap.Build(cfgFile, registerSite, siteRoutes)
	if err != nil {
		return err
	}
	return app.Run(context.Background())
}
