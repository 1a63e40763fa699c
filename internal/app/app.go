package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/clustering"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/config"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/importance"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/infrastructure/cache"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/infrastructure/feed"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/infrastructure/httpapi"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/infrastructure/llm"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/infrastructure/ml"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/infrastructure/parser"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/infrastructure/scheduler"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/infrastructure/storage"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/infrastructure/telegram"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/logging"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/metrics"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/ports"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/scanner"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/tagging"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	store       ports.Store
	postgres    *storage.PostgresRepository
	closers     []func()
	metrics     *metrics.Recorder
	coordinator *usecase.Coordinator
	stories     *usecase.Stories
	digest      *usecase.Digest
	scheduler   *usecase.Scheduler
}

// New builds every adapter from configuration. Postgres is used when a DSN is
// configured, the in-memory store otherwise. Redis and AI are optional.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, nil)
	}
	a := &Application{cfg: cfg, logger: baseLogger, metrics: metrics.NewRecorder()}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	tagger := tagging.New(a.classifier(),
		tagging.WithCache(a.tagCache(ctx)),
		tagging.WithObserver(a.metrics),
		tagging.WithLogger(baseLogger.With("component", "tagger")),
	)

	limiter := feed.NewHostLimiter(cfg.Ingest.HostInterval)
	registry := scanner.NewRegistry(
		feed.NewFetcher(feed.Options{
			Timeout:   cfg.Ingest.FetchTimeout,
			UserAgent: cfg.Ingest.UserAgent,
			Limiter:   limiter,
			Logger:    baseLogger.With("component", "fetcher.rss"),
		}),
		parser.NewArxivScanner(&http.Client{Timeout: cfg.Ingest.FetchTimeout}, limiter, baseLogger.With("component", "fetcher.arxiv")),
	)

	a.coordinator = usecase.NewCoordinator(usecase.CoordinatorDeps{
		Fetcher:           registry,
		Sources:           a.store,
		Items:             a.store,
		Logs:              a.store,
		Tagger:            tagger,
		Observer:          a.metrics,
		Logger:            baseLogger.With("component", "ingest"),
		SourceConcurrency: cfg.Ingest.Concurrency,
		TagConcurrency:    cfg.Ingest.TagConcurrency,
	})

	engine := clustering.New(clustering.Config{
		Threshold: cfg.Clustering.Threshold,
		Window:    cfg.Clustering.Window,
		MaxSize:   cfg.Clustering.MaxSize,
	})
	a.stories = usecase.NewStories(a.store, engine, nil)

	tg := cfg.Notifications.Telegram
	var notifier ports.Notifier
	if tg.Enabled() {
		notifier = telegram.NewNotifier(tg.APIURL, tg.BotToken, tg.ChatID)
	}
	a.digest = usecase.NewDigest(a.stories, notifier, importance.ParseTier(tg.MinTier), tg.Limit)

	a.scheduler = usecase.NewScheduler(
		scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location()),
		a.coordinator,
		baseLogger.With("component", "scheduler"),
	)

	return a, nil
}

func (a *Application) openStore(ctx context.Context) error {
	if a.cfg.Database.DSN == "" {
		a.logger.Warn("no database configured, using in-memory store")
		a.store = storage.NewMemoryRepository(a.cfg.SeedSources()...)
		return nil
	}

	pool, err := storage.Connect(ctx, a.cfg.Database.DSN)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, pool.Close)
	a.postgres = storage.NewPostgresRepository(pool)
	a.store = a.postgres
	return nil
}

func (a *Application) classifier() ports.Classifier {
	ai := a.cfg.AI
	provider := ai.ResolvedProvider()
	a.logger.Info("ai tagging", "provider", provider)

	switch provider {
	case config.ProviderAnthropic:
		return llm.NewAnthropicClassifier(ai.Anthropic, ai.Timeout)
	case config.ProviderOpenAI:
		return llm.NewChatGPTClassifier(ai.OpenAI, ai.Timeout)
	case config.ProviderHTTP:
		return ml.NewClient(ai.HTTP.Endpoint, ai.HTTP.APIKey, ai.Timeout)
	case config.ProviderNone:
		return nil
	default:
		a.logger.Warn("unknown ai provider, tagging with rules only", "provider", provider)
		return nil
	}
}

func (a *Application) tagCache(ctx context.Context) ports.TagCache {
	rc := a.cfg.Redis
	if rc.Addr == "" {
		return nil
	}

	client, err := cache.Dial(ctx, rc.Addr, rc.Password, rc.DB)
	if err != nil {
		a.logger.Warn("tag cache unavailable", "addr", rc.Addr, "error", err)
		return nil
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	return cache.NewRedisTagCache(client, rc.TTL)
}

// Close releases pools and clients.
func (a *Application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Coordinator exposes the ingestion use case.
func (a *Application) Coordinator() *usecase.Coordinator {
	return a.coordinator
}

// Stories exposes the ranking read path.
func (a *Application) Stories() *usecase.Stories {
	return a.stories
}

// Digest exposes the digest use case.
func (a *Application) Digest() *usecase.Digest {
	return a.digest
}

// Migrate applies the schema when Postgres is configured.
func (a *Application) Migrate(ctx context.Context) error {
	if a.postgres == nil {
		a.logger.Info("in-memory store, nothing to migrate")
		return nil
	}
	return a.postgres.Migrate(ctx)
}

// SyncSources upserts the configured sources into the store.
func (a *Application) SyncSources(ctx context.Context) (int, error) {
	sources := a.cfg.SeedSources()
	for _, source := range sources {
		if err := a.store.UpsertSource(ctx, source); err != nil {
			return 0, eris.Wrapf(err, "sync source %s", source.ID)
		}
	}
	return len(sources), nil
}

// Handler builds the HTTP API.
func (a *Application) Handler() http.Handler {
	return httpapi.NewRouter(httpapi.Deps{
		Ingester: a.coordinator,
		Ranker:   a.stories,
		Metrics:  a.metrics.Handler(),
		Logger:   a.logger.With("component", "http"),
	})
}

// Serve runs the HTTP API and the ingestion schedule until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown", "error", err)
	}
	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler stop", "error", err)
	}

	if serveErr != nil {
		return eris.Wrap(serveErr, "http server")
	}
	return nil
}
