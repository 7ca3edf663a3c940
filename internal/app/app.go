package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/woow-admin/woow/internal/config"
	"github.com/woow-admin/woow/internal/prefs"
	"github.com/woow-admin/woow/internal/presets"
	"github.com/woow-admin/woow/internal/state"
	"github.com/woow-admin/woow/internal/toast"
	"github.com/woow-admin/woow/internal/ui"
	"github.com/woow-admin/woow/internal/wpajax"
)

// Options configure the woow application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/woow/prefs.toml
	ProbeEvery int    // seconds; zero uses the config value
}

// Run boots the woow TUI until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.ProbeEvery > 0 {
		cfg.ProbeInterval = time.Duration(opts.ProbeEvery) * time.Second
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer closeLog()

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	token := cfg.Token()
	dispatcher, err := wpajax.NewDispatcher(wpajax.Options{
		Endpoint:       cfg.AjaxURL,
		Token:          token,
		TokenField:     cfg.NonceField,
		Timeout:        cfg.RequestTimeout,
		MaxRetries:     cfg.MaxRetries,
		RetryBaseDelay: cfg.RetryBaseDelay,
		ReportErrors:   true,
		Logger:         logger.With("component", "wpajax"),
	})
	if err != nil {
		return fmt.Errorf("init ajax dispatcher: %w", err)
	}

	presetClient, err := presets.NewClient(cfg.RestURL, token)
	if err != nil {
		return fmt.Errorf("init preset client: %w", err)
	}

	toasts := toast.New(toast.Options{
		MaxVisible: cfg.MaxVisibleToasts,
		Logger:     logger.With("component", "toast"),
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		dispatcher.Wait()
	}()

	store := &state.Store{}
	poller := NewPoller(dispatcher, dispatcher, store, cfg.ProbeInterval, logger.With("component", "poller"))
	poller.Start(runCtx)

	logger.Info("woow starting",
		"ajax_url", cfg.AjaxURL,
		"rest_url", cfg.RestURL,
		"config", cfg.Path,
	)

	return ui.Run(ui.Options{
		Context:    runCtx,
		Settings:   dispatcher,
		Presets:    presetClient,
		Toasts:     toasts,
		Store:      store,
		Reconnect:  poller.Trigger,
		Config:     &cfg,
		ThemeName:  userPrefs.Theme,
		LastPreset: userPrefs.LastPreset,
		LastTab:    userPrefs.LastTab,
		PrefsPath:  opts.PrefsPath,
		Logger:     logger.With("component", "ui"),
	})
}

// newLogger opens cfg.LogFile for appending and returns a text logger on it.
// The terminal belongs to the UI, so nothing is written to stderr.
func newLogger(cfg config.Config) (*slog.Logger, func(), error) {
	if cfg.LogFile == "" {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return slog.New(newHandler(file, cfg.SlogLevel())), func() { _ = file.Close() }, nil
}

func newHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
}
