// Isotactics is a deterministic isometric tactics battle engine.
// Usage: isotactics <command> [flags]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/nathoo/isotactics/config"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	v := config.New()
	root := rootCmd(v)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd(v *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:           "isotactics",
		Short:         "Deterministic isometric tactics battles",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "YAML config file")
	pf.String("content", "", "Lua content directory (default: built-in content)")
	pf.String("seed", "", "override the scenario seed")
	pf.String("save-dir", "", "directory for /save and /load (default ~/.isotactics/saves)")
	pf.String("db", "", "SQLite match archive (empty disables archiving)")
	pf.Int("timeline", 8, "number of upcoming turns to preview")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "console", "log format: console or json")
	pf.String("log-file", "", "write logs to a file instead of stderr")
	for key, flag := range map[string]string{
		"config":     "config",
		"content":    "content",
		"seed":       "seed",
		"save-dir":   "save-dir",
		"db":         "db",
		"timeline":   "timeline",
		"log.level":  "log-level",
		"log.format": "log-format",
		"log.file":   "log-file",
	} {
		_ = v.BindPFlag(key, pf.Lookup(flag))
	}
	root.AddCommand(
		playCmd(v),
		replayCmd(v),
		schemaCmd(),
		serveCmd(v),
		validateCmd(v),
		matchesCmd(v),
	)
	return root
}

// setup resolves the configuration and logger for a command.
func setup(v *viper.Viper) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return cfg, nil, err
	}
	log, err := config.NewLogger(cfg.Log)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
