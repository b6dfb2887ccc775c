package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/zonemap/internal/classes"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// No config.yaml in a fresh temp dir
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ".", cfg.Catalog.ProjectDir)
	assert.Equal(t, "ui.sqlite", cfg.Catalog.File)
	assert.Equal(t, "", cfg.Store.DatabaseURL)
	assert.Equal(t, "utf-8", cfg.Zones.Charset)
	assert.Equal(t, 8050, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.Server.TrustProxy)
	assert.InDelta(t, 10.0, cfg.Server.RateLimit, 0.001)
	assert.Equal(t, 20, cfg.Server.RateBurst)
	assert.Equal(t, 64, cfg.Server.CacheSize)
	assert.Equal(t, 15*time.Minute, cfg.Server.CacheTTL)

	assert.Equal(t, "time", cfg.Render.ColorProp)
	assert.Equal(t, "transport_zone_id", cfg.Render.IDProp)
	assert.Equal(t, classes.SchemeQuantiles, cfg.Render.Scheme)
	assert.Equal(t, 8, cfg.Render.K)
	assert.InDelta(t, 0.0, cfg.Render.Lower, 0.001)
	assert.InDelta(t, 1000.0, cfg.Render.Upper, 0.001)
	assert.Equal(t, "magma", cfg.Render.Palette)
	assert.True(t, cfg.Render.Reverse)
	assert.Equal(t, "choropleth", cfg.Render.Func)
	assert.Positive(t, cfg.Render.Concurrency)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
catalog:
  project_dir: /data/project
log:
  level: debug
  format: console
server:
  port: 9090
  cache_ttl: 2m
render:
  scheme: equal_interval
  k: 5
  palette: viridis
  reverse: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/project", cfg.Catalog.ProjectDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2*time.Minute, cfg.Server.CacheTTL)
	assert.Equal(t, classes.SchemeEqualInterval, cfg.Render.Scheme)
	assert.Equal(t, 5, cfg.Render.K)
	assert.Equal(t, "viridis", cfg.Render.Palette)
	assert.False(t, cfg.Render.Reverse)
	// Defaults still apply for unset values
	assert.Equal(t, "ui.sqlite", cfg.Catalog.File)
	assert.Equal(t, "time", cfg.Render.ColorProp)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
render:
  palette: viridis
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("ZONEMAP_LOG_LEVEL", "warn")
	t.Setenv("ZONEMAP_RENDER_PALETTE", "blues")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "blues", cfg.Render.Palette)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("ZONEMAP_SERVER_PORT", "3000")
	t.Setenv("ZONEMAP_SERVER_TRUST_PROXY", "true")
	t.Setenv("ZONEMAP_STORE_DATABASE_URL", "postgres://localhost/zonemap")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.True(t, cfg.Server.TrustProxy)
	assert.Equal(t, "postgres://localhost/zonemap", cfg.Store.DatabaseURL)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestCatalogConfigPath(t *testing.T) {
	tests := []struct {
		name string
		cfg  CatalogConfig
		want string
	}{
		{"project dir", CatalogConfig{ProjectDir: "/data/project", File: "ui.sqlite"}, "/data/project/ui.sqlite"},
		{"trailing slash", CatalogConfig{ProjectDir: "/data/project/", File: "ui.sqlite"}, "/data/project/ui.sqlite"},
		{"empty dir", CatalogConfig{File: "ui.sqlite"}, "ui.sqlite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.Path())
		})
	}
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
