// Package bootstrap wires all dependencies and starts the application:
// config holder, logger, registry population, start-up validation, the
// once cache backend, metrics, and the HTTP server.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/nordbeam/nb-inertia-sub000/adapters/clock"
	"github.com/nordbeam/nb-inertia-sub000/adapters/idgen"
	"github.com/nordbeam/nb-inertia-sub000/adapters/memory"
	"github.com/nordbeam/nb-inertia-sub000/adapters/metrics"
	"github.com/nordbeam/nb-inertia-sub000/adapters/sqlite"
	"github.com/nordbeam/nb-inertia-sub000/config"
	"github.com/nordbeam/nb-inertia-sub000/core/registry"
	"github.com/nordbeam/nb-inertia-sub000/core/resolve"
	"github.com/nordbeam/nb-inertia-sub000/core/validation"
	"github.com/nordbeam/nb-inertia-sub000/ports"
	"github.com/nordbeam/nb-inertia-sub000/web"
)

// RegisterFunc populates the registry with the application's pages and
// providers during start-up. The registry is frozen afterward.
type RegisterFunc func(reg *registry.Registry) error

// RoutesFunc attaches the application's page routes to the router.
type RoutesFunc func(r chi.Router, h *web.Handler)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Holder     *config.Holder
	Registry   *registry.Registry
	Resolver   *resolve.Resolver
	Handler    *web.Handler
	Router     chi.Router
	HTTPServer *http.Server
	Metrics    *metrics.Collector
	DB         *sqlite.DB
	Cache      ports.OnceCache
}

// SetupLogger builds the root logger from the logging config.
func SetupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// Build constructs the application without starting it. register runs
// once, the registry is frozen, and every scope is validated; any
// collision aborts start-up with the full failure list logged.
func Build(cfgPath string, register RegisterFunc, routes RoutesFunc) (*App, error) {
	bootLogger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	holder, err := config.NewHolder(cfgPath, bootLogger)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg := holder.Get()

	logger := SetupLogger(cfg.Logging)

	app := &App{
		Logger:   logger,
		Holder:   holder,
		Registry: registry.New(),
		Metrics:  metrics.New(),
	}

	// Hot reload: apply a changed log level and count reload outcomes.
	holder.OnChange(func(c *config.Config) {
		if level, err := zerolog.ParseLevel(c.Logging.Level); err == nil {
			zerolog.SetGlobalLevel(level)
		}
	})
	holder.OnReload(func(err error) {
		if err != nil {
			app.Metrics.ConfigReloadErrors.Inc()
			return
		}
		app.Metrics.ConfigReloads.Inc()
	})

	// Registry population and build-time validation.
	if err := register(app.Registry); err != nil {
		return nil, fmt.Errorf("register pages: %w", err)
	}
	app.Registry.Freeze()

	if errs := validation.ValidateRegistry(app.Registry); len(errs) > 0 {
		for _, e := range errs {
			logger.Error().Err(e).Msg("contract validation failed")
		}
		return nil, fmt.Errorf("contract validation: %d failure(s)", len(errs))
	}

	// Once-cache backend.
	switch cfg.Cache.Mode {
	case "sqlite":
		db, err := sqlite.Open(cfg.Cache.DSN)
		if err != nil {
			return nil, fmt.Errorf("open cache db: %w", err)
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate cache db: %w", err)
		}
		app.DB = db
		app.Cache = sqlite.NewOnceCache(db)
	default:
		app.Cache = memory.NewOnceCache()
	}

	clk := clock.Real{}
	app.Resolver = resolve.New(app.Registry, clk)
	app.Resolver.SetObserver(func(provider string, d time.Duration, err error) {
		app.Metrics.ProviderDuration.WithLabelValues(provider).Observe(d.Seconds())
		if err != nil {
			app.Metrics.ProviderErrors.WithLabelValues(provider).Inc()
		}
	})

	handler, err := web.New(web.Options{
		Registry:            app.Registry,
		Resolver:            app.Resolver,
		Clock:               clk,
		IDGen:               idgen.UUID{},
		OnceCache:           app.Cache,
		Metrics:             app.Metrics,
		Logger:              logger,
		Version:             holder.Version,
		RootTemplatePath:    cfg.Render.RootTemplate,
		CamelCaseProps:      cfg.CamelCaseProps(),
		StrictRuntimeChecks: cfg.Render.StrictRuntimeChecks,
	})
	if err != nil {
		return nil, fmt.Errorf("web handler: %w", err)
	}
	app.Handler = handler

	router := chi.NewRouter()
	router.Use(handler.Middleware)
	if cfg.Metrics.Enabled {
		handler.Mount(router, cfg.Metrics.Path)
	} else {
		handler.Mount(router, "")
	}
	if routes != nil {
		routes(router, handler)
	}
	app.Router = router

	app.HTTPServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return app, nil
}

// Run starts the HTTP server and config watchers, blocking until the
// context is cancelled or a termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	if err := a.Holder.WatchFiles(); err != nil {
		a.Logger.Warn().Err(err).Msg("config watch unavailable")
	}
	a.Holder.WatchSignals()
	defer a.Holder.Stop()

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("addr", a.HTTPServer.Addr).Msg("server listening")
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	case sig := <-sigCh:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HTTPServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("close cache db")
		}
	}

	return nil
}
