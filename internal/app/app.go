package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"mandiwatch/internal/alerting"
	"mandiwatch/internal/alerts"
	"mandiwatch/internal/cache"
	"mandiwatch/internal/config"
	"mandiwatch/internal/feed"
	"mandiwatch/internal/history"
	"mandiwatch/internal/scheduler"
	"mandiwatch/internal/server"
	"mandiwatch/internal/service"
	"mandiwatch/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetcher() feed.Fetcher {
	live := feed.NewNCDEX(feed.NCDEXOptions{
		URL:       a.Config.Feed.URL,
		Timeout:   a.Config.Feed.RequestTimeout,
		UserAgent: a.Config.Feed.UserAgent,
	}, a.Logger)
	return feed.WithFallback(live, a.Logger)
}

func (a *App) newCache(store *storage.Store) *cache.HistoryCache {
	var reader cache.Reader
	if store != nil {
		reader = store
	}
	return cache.New(reader, cache.Options{
		Freshness:  a.Config.Cache.Freshness,
		FetchLimit: a.Config.Cache.FetchLimit,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return alerting.NewLogNotifier(a.Logger)
}

func (a *App) newChecker(store *storage.Store) *alerts.Checker {
	if !a.Config.Alerting.Enabled || store == nil {
		return nil
	}
	fileStore := alerts.NewFileStore(a.Config.Alerting.FilePath)
	return alerts.NewChecker(fileStore, store, a.newNotifier(), a.Config.Alerting.SnapshotLimit, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) requireStore(ctx context.Context) (*storage.Store, func(), error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, errors.New("database.dsn not configured")
	}
	return store, closeStore, nil
}

// Run executes the long-running refresh service and the HTTP API.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToInterval,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	fetcher := a.newFetcher()
	historyCache := a.newCache(store)
	engine := history.NewEngine(historyCache)
	checker := a.newChecker(store)

	svc := service.New(sched, fetcher, historyCache, checker, a.Logger)

	var observationStore storage.ObservationStore
	if store != nil {
		observationStore = store
	}
	var alertStore *alerts.FileStore
	if a.Config.Alerting.Enabled {
		alertStore = alerts.NewFileStore(a.Config.Alerting.FilePath)
	}

	api := server.New(a.Config.Server, server.Options{
		Fetcher:    fetcher,
		Cache:      historyCache,
		Engine:     engine,
		Store:      observationStore,
		AlertStore: alertStore,
		Checker:    checker,
	}, a.Logger)

	a.Logger.Info().Msg("starting refresh service and HTTP API")

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return svc.Run(ctx)
	})
	group.Go(func() error {
		return api.Run(ctx)
	})

	err = group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("service stopped")
	return nil
}

// ExportOptions hold parameters for exporting commodity history.
type ExportOptions struct {
	Commodity string
	Location  string
	Range     history.Range
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// AlertOptions parameterise alert creation from the CLI.
type AlertOptions struct {
	Commodity   string
	TargetPrice string
	Condition   string
}
