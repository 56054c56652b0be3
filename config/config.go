// Package config resolves runtime settings from flags, ISOTACTICS_*
// environment variables and an optional YAML file, in that order of
// precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix is prepended to every environment variable.
const EnvPrefix = "ISOTACTICS"

// Log configures the structured logger.
type Log struct {
	Level  string // debug, info, warn, error
	Format string // console or json
	File   string // empty writes to stderr
}

// Config is the resolved runtime configuration.
type Config struct {
	Content  string // Lua content directory; empty uses built-in content
	Scenario string // scenario YAML file
	Seed     string // overrides the scenario seed
	SaveDir  string
	DB       string // match archive; empty disables archiving
	Timeline int
	Trace    bool
	Plain    bool
	Listen   string
	Log      Log
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	home, _ := os.UserHomeDir()
	v.SetDefault("content", "")
	v.SetDefault("scenario", "")
	v.SetDefault("seed", "")
	v.SetDefault("save-dir", filepath.Join(home, ".isotactics", "saves"))
	v.SetDefault("db", "")
	v.SetDefault("timeline", 8)
	v.SetDefault("trace", false)
	v.SetDefault("plain", false)
	v.SetDefault("listen", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	return v
}

// Load reads the optional config file named by the "config" key and
// returns the resolved settings.
func Load(v *viper.Viper) (Config, error) {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	c := Config{
		Content:  v.GetString("content"),
		Scenario: v.GetString("scenario"),
		Seed:     v.GetString("seed"),
		SaveDir:  v.GetString("save-dir"),
		DB:       v.GetString("db"),
		Timeline: v.GetInt("timeline"),
		Trace:    v.GetBool("trace"),
		Plain:    v.GetBool("plain"),
		Listen:   v.GetString("listen"),
		Log: Log{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			File:   v.GetString("log.file"),
		},
	}
	if c.Timeline < 1 {
		return c, fmt.Errorf("timeline must be at least 1, got %d", c.Timeline)
	}
	return c, nil
}

// NewLogger builds a zap logger from l.
func NewLogger(l Log) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	var zc zap.Config
	switch l.Format {
	case "json":
		zc = zap.NewProductionConfig()
	case "console", "":
		zc = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("log format %q: want console or json", l.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	if l.File != "" {
		if err := os.MkdirAll(filepath.Dir(l.File), 0o755); err != nil {
			return nil, fmt.Errorf("log directory: %w", err)
		}
		zc.OutputPaths = []string{l.File}
		zc.ErrorOutputPaths = []string{l.File}
	}
	return zc.Build()
}
