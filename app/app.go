package app

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/searchktools/fast-static/config"
	"github.com/searchktools/fast-static/core"
	"github.com/searchktools/fast-static/core/cache"
	"github.com/searchktools/fast-static/core/files"
)

// App wires configuration, cache, file access and the engine together.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	cache  *cache.FileCache
	engine *core.Engine
}

// New creates an application instance from a validated configuration.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	cacheBytes, err := cfg.CacheBytes()
	if err != nil {
		return nil, err
	}
	maxRequest, err := cfg.MaxRequestBytes()
	if err != nil {
		return nil, err
	}

	var fc *cache.FileCache
	if cacheBytes > 0 {
		fc = cache.New(cacheBytes, logger.With("component", "cache"))
	}

	dispatcher := core.NewDispatcher(cfg.Root, cfg.Index, fc, files.OS{}, logger.With("component", "dispatch"))
	engine := core.NewEngine(core.Options{
		StageBufferSize: cfg.StageBufferSize,
		MaxRequestSize:  maxRequest,
		Sender: core.SenderOptions{
			FrameBudget:  cfg.FrameBudget,
			MaxRetries:   cfg.MaxRetries,
			WriteTimeout: cfg.WriteTimeout,
		},
	}, dispatcher, logger)

	return &App{
		cfg:    cfg,
		logger: logger,
		cache:  fc,
		engine: engine,
	}, nil
}

// Engine returns the underlying engine
func (a *App) Engine() *core.Engine {
	return a.engine
}

// Run serves until SIGINT or SIGTERM and logs the final statistics.
func (a *App) Run() error {
	root, err := os.Stat(a.cfg.Root)
	if err != nil {
		return fmt.Errorf("document root: %w", err)
	}
	if !root.IsDir() {
		return fmt.Errorf("document root %s is not a directory", a.cfg.Root)
	}

	tuneRuntime(a.cfg, a.logger)

	done := make(chan struct{})
	defer close(done)
	go a.awaitSignal(done)

	cacheSize := "disabled"
	if a.cache != nil {
		cacheSize = humanize.IBytes(uint64(a.cache.Capacity()))
	}
	a.logger.Info("server starting",
		"port", a.cfg.Port,
		"env", a.cfg.Env,
		"root", a.cfg.Root,
		"cache", cacheSize,
	)

	if err := a.engine.Run(a.cfg.Addr()); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	a.logger.Info("server stopped")
	a.logger.Debug("final statistics\n" + a.engine.StatsText())
	st := a.engine.Stats()
	a.logger.Info("statistics",
		"connections", st.Connections.Accepted,
		"requests", st.Requests.Total,
		"sent", humanize.IBytes(st.Send.BytesSent),
	)
	logGCStats(a.logger)
	return nil
}

func (a *App) awaitSignal(done <-chan struct{}) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		a.logger.Info("signal received, shutting down", "signal", sig.String())
		a.engine.Shutdown()
	case <-done:
	}
}
