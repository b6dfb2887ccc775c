package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/zonemap/internal/config"
	"github.com/sells-group/zonemap/internal/render"
)

// useTestConfig points the package config at a temp project directory.
func useTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	opts := render.DefaultOptions()
	opts.Concurrency = 2
	prev := cfg
	cfg = &config.Config{
		Catalog: config.CatalogConfig{ProjectDir: dir, File: "ui.sqlite"},
		Zones:   config.ZonesConfig{Charset: "utf-8"},
		Render:  opts,
	}
	t.Cleanup(func() { cfg = prev })
	return dir
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"style", "origins", "catalog", "costs", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "zonemap", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestStyleCommand_Flags(t *testing.T) {
	for _, name := range []string{"zones", "zones-version", "costs", "mode", "origin", "out", "legend", "legend-format"} {
		assert.NotNil(t, styleCmd.Flags().Lookup(name), "style should have --%s flag", name)
	}
	assert.Equal(t, "-", styleCmd.Flags().Lookup("out").DefValue)
}

func TestCatalogCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range catalogCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["register"])
}

func TestCostsImportCommand_Flags(t *testing.T) {
	assert.NotNil(t, costsImportCmd.Flags().Lookup("mode"))
}

func TestOpenPostgres_RequiresURL(t *testing.T) {
	useTestConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	_, err := openPostgres(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
}
