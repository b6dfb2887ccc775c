package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/zonemap/internal/config"
	"github.com/sells-group/zonemap/internal/render"
	"github.com/sells-group/zonemap/internal/store"
	"github.com/sells-group/zonemap/internal/style"
	"github.com/sells-group/zonemap/internal/zones"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "zonemap",
	Short: "Travel time choropleths over transport zones",
	Long:  "Joins travel costs from an origin zone onto transport zones, classifies the travel times and styles each zone for web map rendering.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newRenderer builds a renderer from the render config section.
func newRenderer() (*render.Renderer, error) {
	reg, err := style.NewRegistry(style.DefaultFuncs())
	if err != nil {
		return nil, err
	}
	return render.NewRenderer(reg, cfg.Render)
}

func zoneOptions() zones.Options {
	return zones.Options{Charset: cfg.Zones.Charset}
}

// openCatalog opens and migrates the project catalog.
func openCatalog(ctx context.Context) (*store.Catalog, error) {
	catalog, err := store.OpenCatalog(cfg.Catalog.Path())
	if err != nil {
		return nil, err
	}
	if err := catalog.Migrate(ctx); err != nil {
		_ = catalog.Close()
		return nil, err
	}
	return catalog, nil
}

// openPostgres connects to the configured PostGIS database.
func openPostgres(ctx context.Context) (*store.PostgresStore, error) {
	if cfg.Store.DatabaseURL == "" {
		return nil, eris.New("store.database_url is required")
	}
	return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
}
