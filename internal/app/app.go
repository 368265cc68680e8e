package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"sitewatch/internal/config"
	"sitewatch/internal/infrastructure/fetcher"
	"sitewatch/internal/infrastructure/mail"
	"sitewatch/internal/infrastructure/state"
	"sitewatch/internal/infrastructure/subs"
	"sitewatch/internal/logging"
	"sitewatch/internal/ports"
	"sitewatch/internal/sources"
	"sitewatch/internal/usecase"
)

// Application wires configs to the run use case and its adapters.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
	runner *usecase.Runner
	closer func() error
}

// New builds a runnable application instance for one batch run.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, closer, err := newStore(cfg.State)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.Fetch.Timeout()}
	fetch := fetcher.New(httpClient, cfg.Fetch.Concurrency, baseLogger.With("component", "fetcher"))

	var subscriptions ports.SubscriptionSource
	switch cfg.Mail.Mode {
	case config.ModeBroadcast, "":
	case config.ModeSubscribers:
		subscriptions = subs.NewResolver(cfg.Subscriptions.Path)
	default:
		return nil, fmt.Errorf("unknown mail mode %q", cfg.Mail.Mode)
	}

	runner := usecase.NewRunner(usecase.RunnerDeps{
		Fetcher: fetch,
		Store:   store,
		Subs:    subscriptions,
		Mailer:  mail.NewSender(cfg.Mail),
		Mail:    cfg.Mail,
		Logger:  baseLogger.With("component", "runner"),
	})

	return &Application{cfg: cfg, logger: baseLogger, runner: runner, closer: closer}, nil
}

// Run executes exactly one detection run. External cron handles timing;
// the process exits when the run is done.
func (a *Application) Run(ctx context.Context) error {
	srcs, err := sources.Load(a.cfg.Sources.Path, a.logger.With("component", "sources"))
	if err != nil {
		return err
	}

	_, err = a.runner.Run(ctx, srcs)
	return err
}

// Close releases backend resources (the SQLite handle, when in use).
func (a *Application) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer()
}

func newStore(cfg config.StateConfig) (ports.StateStore, func() error, error) {
	switch cfg.Backend {
	case "", "json":
		return state.NewFileStore(cfg.Path), nil, nil
	case "sqlite":
		store, err := state.OpenSQLiteStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
}
