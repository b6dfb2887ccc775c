package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/zonemap/internal/render"
)

// Config holds the full application configuration.
type Config struct {
	Catalog CatalogConfig  `yaml:"catalog" mapstructure:"catalog"`
	Store   StoreConfig    `yaml:"store" mapstructure:"store"`
	Zones   ZonesConfig    `yaml:"zones" mapstructure:"zones"`
	Render  render.Options `yaml:"render" mapstructure:"render"`
	Server  ServerConfig   `yaml:"server" mapstructure:"server"`
	Log     LogConfig      `yaml:"log" mapstructure:"log"`
}

// CatalogConfig locates the project's artifact catalog.
type CatalogConfig struct {
	ProjectDir string `yaml:"project_dir" mapstructure:"project_dir"`
	File       string `yaml:"file" mapstructure:"file"`
}

// Path returns the catalog database path.
func (c CatalogConfig) Path() string {
	return filepath.Join(c.ProjectDir, c.File)
}

// StoreConfig configures the optional PostGIS backend.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ZonesConfig configures zone file reading.
type ZonesConfig struct {
	Charset string `yaml:"charset" mapstructure:"charset"`
}

// ServerConfig configures the HTTP map server.
type ServerConfig struct {
	Port           int           `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	TrustProxy     bool          `yaml:"trust_proxy" mapstructure:"trust_proxy"`
	RateLimit      float64       `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst      int           `yaml:"rate_burst" mapstructure:"rate_burst"`
	CacheSize      int           `yaml:"cache_size" mapstructure:"cache_size"`
	CacheTTL       time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ZONEMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := render.DefaultOptions()
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("catalog.project_dir", ".")
	v.SetDefault("catalog.file", "ui.sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("zones.charset", "utf-8")
	v.SetDefault("render.color_prop", defaults.ColorProp)
	v.SetDefault("render.id_prop", defaults.IDProp)
	v.SetDefault("render.scheme", string(defaults.Scheme))
	v.SetDefault("render.k", defaults.K)
	v.SetDefault("render.lower", defaults.Lower)
	v.SetDefault("render.upper", defaults.Upper)
	v.SetDefault("render.palette", defaults.Palette)
	v.SetDefault("render.reverse", defaults.Reverse)
	v.SetDefault("render.func", defaults.Func)
	v.SetDefault("render.concurrency", defaults.Concurrency)
	v.SetDefault("server.port", 8050)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.trust_proxy", false)
	v.SetDefault("server.rate_limit", 10.0)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("server.cache_size", 64)
	v.SetDefault("server.cache_ttl", 15*time.Minute)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
