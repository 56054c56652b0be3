package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/nathoo/isotactics/config"
	"github.com/nathoo/isotactics/engine"
	"github.com/nathoo/isotactics/engine/catalog"
	"github.com/nathoo/isotactics/loader"
	"github.com/nathoo/isotactics/store"
	"github.com/nathoo/isotactics/types"
)

// battle is a resolved scenario ready to start.
type battle struct {
	title   string
	setup   types.Setup
	catalog *catalog.Catalog
}

// loadCatalog loads Lua content from dir, or the built-in content when dir
// is empty. Validation warnings are logged.
func loadCatalog(dir string, log *zap.Logger) (*catalog.Catalog, error) {
	if dir == "" {
		return catalog.Default(), nil
	}
	res, err := loader.Load(dir)
	if err != nil {
		return nil, err
	}
	for _, w := range res.Warnings {
		log.Warn("content warning", zap.String("dir", dir), zap.String("warning", w))
	}
	log.Debug("content loaded",
		zap.String("dir", dir),
		zap.Int("characters", len(res.Content.Blueprints)),
		zap.Int("skills", len(res.Content.Skills)),
		zap.Int("modifiers", len(res.Content.Modifiers)))
	return res.Catalog, nil
}

// loadBattle reads a scenario and the content it needs. The --content
// setting wins over the directory the scenario names.
func loadBattle(cfg config.Config, path string, log *zap.Logger) (*battle, error) {
	if path == "" {
		return nil, errors.New("a scenario file is required (argument or --scenario)")
	}
	sc, err := loader.LoadScenario(path)
	if err != nil {
		return nil, err
	}
	dir := cfg.Content
	if dir == "" {
		dir = sc.ContentDir
	}
	cat, err := loadCatalog(dir, log)
	if err != nil {
		return nil, err
	}
	if cfg.Seed != "" {
		sc.Setup.Seed = cfg.Seed
	}
	title := sc.Title
	if title == "" {
		title = sc.Setup.ID
	}
	return &battle{title: title, setup: sc.Setup, catalog: cat}, nil
}

// options are the session options shared by every command.
func (b *battle) options(cfg config.Config, log *zap.Logger) []engine.Option {
	return []engine.Option{
		engine.WithLogger(log),
		engine.WithCatalog(b.catalog),
		engine.WithTimelineLength(cfg.Timeline),
	}
}

// openStore opens the match archive when one is configured.
func openStore(cfg config.Config, log *zap.Logger) (*store.Store, error) {
	if cfg.DB == "" {
		return nil, nil
	}
	st, err := store.Open(cfg.DB, log)
	if err != nil {
		return nil, fmt.Errorf("opening match archive: %w", err)
	}
	return st, nil
}

// readInput reads a file argument, where "-" is stdin.
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
