// Configuration hot reload: file watch plus SIGHUP.
package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Holder provides thread-safe access to configuration with hot reload
// support. Reloadable at runtime: logging level/format and the asset
// version (a changed manifest rolls clients forward on their next GET).
// Server address and cache backend require a restart.
type Holder struct {
	mu       sync.RWMutex
	config   *Config
	version  string
	path     string
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
	onChange []func(*Config)
	onReload []func(error)
	stopCh   chan struct{}
}

// NewHolder creates a new config holder and loads the initial
// configuration and asset version.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	cfg, err := LoadWithFallback(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	version, err := cfg.AssetVersion()
	if err != nil {
		return nil, fmt.Errorf("asset version: %w", err)
	}

	absPath := path
	if path != "" {
		absPath, err = filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("absolute path: %w", err)
		}
	}

	return &Holder{
		config:  cfg,
		version: version,
		path:    absPath,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}, nil
}

// Get returns the current configuration (thread-safe).
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.config
}

// Version returns the current asset version (thread-safe).
func (h *Holder) Version() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.version
}

// Reload reloads the configuration and asset version from disk.
// Returns an error and keeps the old config if loading fails. Reload
// hooks run after every attempt with its result.
func (h *Holder) Reload() error {
	err := h.reload()

	h.mu.RLock()
	hooks := append(([]func(error))(nil), h.onReload...)
	h.mu.RUnlock()
	for _, fn := range hooks {
		fn(err)
	}
	return err
}

func (h *Holder) reload() error {
	h.logger.Info().Str("path", h.path).Msg("reloading configuration")

	newCfg, err := LoadWithFallback(h.path)
	if err != nil {
		h.logger.Error().Err(err).Msg("config reload failed, keeping old config")
		return fmt.Errorf("reload config: %w", err)
	}

	newVersion, err := newCfg.AssetVersion()
	if err != nil {
		h.logger.Error().Err(err).Msg("asset version failed, keeping old config")
		return fmt.Errorf("asset version: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.config
	oldVersion := h.version
	h.config = newCfg
	h.version = newVersion
	callbacks := append(([]func(*Config))(nil), h.onChange...)
	h.mu.Unlock()

	if oldCfg.Logging.Level != newCfg.Logging.Level {
		h.logger.Info().
			Str("old", oldCfg.Logging.Level).
			Str("new", newCfg.Logging.Level).
			Msg("log level changed")
	}
	if oldVersion != newVersion {
		h.logger.Info().
			Str("old", oldVersion).
			Str("new", newVersion).
			Msg("asset version changed, clients will refresh")
	}

	for _, fn := range callbacks {
		fn(newCfg)
	}

	h.logger.Info().Msg("configuration reloaded successfully")
	return nil
}

// OnChange registers a callback invoked with the new config after each
// successful reload.
func (h *Holder) OnChange(fn func(*Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// OnReload registers a callback invoked after every reload attempt with
// its result, failed attempts included. Used for reload metrics.
func (h *Holder) OnReload(fn func(error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onReload = append(h.onReload, fn)
}

// WatchFiles starts watching the config file and asset manifest for
// changes. Changes trigger automatic reload.
func (h *Holder) WatchFiles() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	h.watcher = watcher

	// Watch directories (more reliable for editors that do atomic saves)
	dirs := map[string]bool{}
	if h.path != "" {
		dirs[filepath.Dir(h.path)] = true
	}
	if manifest := h.Get().Assets.ManifestPath; manifest != "" {
		dirs[filepath.Dir(manifest)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return fmt.Errorf("watch directory %s: %w", dir, err)
		}
	}

	go h.watchLoop()

	h.logger.Info().Str("path", h.path).Msg("watching config for changes")
	return nil
}

// WatchSignals starts listening for SIGHUP to trigger reload.
func (h *Holder) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-sigCh:
				h.logger.Info().Msg("received SIGHUP, reloading config")
				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("SIGHUP reload failed")
				}
			case <-h.stopCh:
				signal.Stop(sigCh)
				return
			}
		}
	}()
}

// Stop stops watching for file changes and signals.
func (h *Holder) Stop() {
	close(h.stopCh)
	if h.watcher != nil {
		h.watcher.Close()
	}
}

func (h *Holder) watchLoop() {
	watched := map[string]bool{}
	if h.path != "" {
		watched[filepath.Base(h.path)] = true
	}
	if manifest := h.Get().Assets.ManifestPath; manifest != "" {
		watched[filepath.Base(manifest)] = true
	}

	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}

			// Only react to the files we care about
			if !watched[filepath.Base(event.Name)] {
				continue
			}

			// React to write or create (atomic save = create)
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				h.logger.Debug().
					Str("event", event.Op.String()).
					Str("file", event.Name).
					Msg("watched file changed")

				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("file watch reload failed")
				}
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("file watcher error")

		case <-h.stopCh:
			return
		}
	}
}
