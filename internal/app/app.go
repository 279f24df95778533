package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/anvil-build/anvil/internal/artifactcache"
	"github.com/anvil-build/anvil/internal/component"
	"github.com/anvil-build/anvil/internal/ctxlog"
	"github.com/anvil-build/anvil/internal/hashcache"
	"github.com/anvil-build/anvil/internal/job"
	"github.com/anvil-build/anvil/internal/manager"
	"github.com/anvil-build/anvil/internal/remote"
	"github.com/anvil-build/anvil/internal/scheduler"
	"github.com/anvil-build/anvil/internal/workspace"
)

// defaultWorkers is used when neither flags nor settings pick a pool size.
const defaultWorkers = 8

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config

	blueprints *component.Registry
	jobs       *job.Registry
	model      *workspace.Model
	cache      *artifactcache.Cache
	hashes     *hashcache.Store
	manager    *manager.Manager
}

// NewApp constructs a fully initialized App: settings merged under flags,
// declarations loaded and finalized, caches loaded, and the artifact
// manager wired. modules defaults to the built-in blueprint set when
// empty.
func NewApp(outW io.Writer, appConfig *Config, modules ...component.Module) (*App, error) {
	settings, err := workspace.LoadSettings(appConfig.WorkspacePath)
	if err != nil {
		return nil, err
	}
	mergeSettings(appConfig, settings)

	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	decls, err := workspace.Load(ctx, appConfig.WorkspacePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace declarations: %w", err)
	}

	blueprints := component.NewRegistry()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(blueprints)
	}
	logger.Debug("All blueprint modules registered.", "count", len(modules))

	jobs := job.NewRegistry()
	model, err := workspace.Finalize(ctx, decls, blueprints, jobs)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize workspace: %w", err)
	}

	cacheDir := appConfig.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(model.Root, ".anvil-cache")
	}
	cache := artifactcache.New(filepath.Join(cacheDir, "index.cbor"))
	cache.LoadCache(ctx)
	hashes := hashcache.New(model.Root, filepath.Join(cacheDir, "filehashes.cbor"))
	hashes.Load(ctx)

	workers := appConfig.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	sched := scheduler.New(jobs, workers)

	var pusher *remote.Pusher
	if appConfig.RemoteURL != "" {
		pusher = remote.New(appConfig.RemoteURL, appConfig.RemoteToken)
		logger.Debug("Remote cache push enabled.", "url", appConfig.RemoteURL)
	}

	mgr := manager.New(jobs, sched, cache, hashes, model, pusher, cacheDir)

	return &App{
		outW:       outW,
		logger:     logger,
		config:     appConfig,
		blueprints: blueprints,
		jobs:       jobs,
		model:      model,
		cache:      cache,
		hashes:     hashes,
		manager:    mgr,
	}, nil
}

// mergeSettings fills config fields the CLI left unset from anvil.yaml.
func mergeSettings(cfg *Config, s *workspace.Settings) {
	if cfg.CacheDir == "" {
		cfg.CacheDir = s.CacheDir
	}
	if cfg.Workers == 0 {
		cfg.Workers = s.Workers
	}
	if cfg.LogLevel == "" && s.LogLevel != "" {
		cfg.LogLevel = s.LogLevel
	}
	if cfg.LogFormat == "" && s.LogFormat != "" {
		cfg.LogFormat = s.LogFormat
	}
	if cfg.RemoteURL == "" {
		cfg.RemoteURL = s.Remote.URL
	}
	if cfg.RemoteToken == "" {
		cfg.RemoteToken = s.Remote.Token
	}
}

// Jobs returns the application's job registry. This is primarily for
// testing.
func (a *App) Jobs() *job.Registry {
	return a.jobs
}

// Manager returns the artifact manager. This is primarily for testing.
func (a *App) Manager() *manager.Manager {
	return a.manager
}
