package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	handler "moviefilter-bot/api"
	"moviefilter-bot/internal/bot"
	"moviefilter-bot/internal/catalog"
	"moviefilter-bot/internal/config"
	"moviefilter-bot/internal/logger"
	"moviefilter-bot/internal/ratelimit"
	"moviefilter-bot/internal/storage"
	"moviefilter-bot/internal/tg"
	"moviefilter-bot/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	store       *storage.Mongo
	redisClient *goredis.Client
	client      *tg.Client
	dispatcher  *bot.Dispatcher
	server      *http.Server
}

// New connects every collaborator. Any failure here is fatal to startup.
func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(cfg.LogLevel, cfg.PrettyLog)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	log.Info("connecting to MongoDB", logger.String("database", cfg.MongoDatabase))
	store, err := storage.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, logger: log, store: store}

	limiter, err := a.newLimiter(ctx)
	if err != nil {
		a.closeStores()
		return nil, err
	}

	client, err := tg.NewClient(cfg.BotToken)
	if err != nil {
		a.closeStores()
		return nil, err
	}
	a.client = client
	log.Info("authorized on telegram", logger.String("bot", client.Username()))

	a.dispatcher = bot.NewDispatcher(client, catalog.NewService(store, cfg.StoreTimeout), bot.Options{
		Admins:          cfg.Admins,
		SearchLimit:     cfg.SearchLimit,
		InlineCacheTime: cfg.InlineCacheTime,
		Limiter:         limiter,
		Users:           store,
		Logger:          log,
	})
	if len(cfg.Admins) == 0 {
		log.Warn("ADMINS is empty, /addmovie is disabled")
	}

	var secret string
	if cfg.Mode == config.ModeWebhook {
		secret = cfg.WebhookSecret
	}
	a.server = &http.Server{
		Addr: cfg.ListenAddr(),
		Handler: handler.NewRouter(handler.Deps{
			Updates:       a.dispatcher,
			Store:         store,
			Logger:        log,
			WebhookPath:   cfg.WebhookPath,
			WebhookSecret: secret,
			UpdateTimeout: cfg.UpdateTimeout,
			StartTime:     time.Now(),
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return a, nil
}

func (a *App) newLimiter(ctx context.Context) (ratelimit.Limiter, error) {
	if a.cfg.RedisAddr == "" {
		a.logger.Info("using in-memory rate limiter")
		return ratelimit.NewMemory(ratelimit.Config{
			Burst:        a.cfg.RateLimitBurst,
			RefillPerMin: a.cfg.RateLimitPerMin,
		}), nil
	}

	a.logger.Info("connecting to Redis", logger.String("addr", a.cfg.RedisAddr))
	client, err := ratelimit.NewRedisClient(ctx, ratelimit.RedisOptions{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	})
	if err != nil {
		return nil, err
	}
	a.redisClient = client
	return ratelimit.NewRedis(client, a.cfg.RateLimitPerMin, time.Minute), nil
}

// Run serves until SIGINT or SIGTERM, then drains in-flight updates.
func (a *App) Run() error {
	a.logger.Infof("starting moviefilter-bot %s (commit=%s, built=%s, go=%s) in %s mode",
		version.Version, version.Commit, version.BuildDate, version.GoVersion, a.cfg.Mode)
	a.logger.Debug("configuration", logger.String("config", fmt.Sprintf("%+v", a.cfg.Redacted())))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server listening on %s", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var wg sync.WaitGroup
	switch a.cfg.Mode {
	case config.ModePolling:
		if err := a.client.DeleteWebhook(); err != nil {
			a.logger.Warn("delete webhook", logger.Error(err))
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.poll(ctx)
		}()
	default:
		if a.cfg.WebhookURL != "" {
			if err := a.client.SetWebhook(a.cfg.WebhookURL, a.cfg.WebhookSecret); err != nil {
				a.shutdown()
				return fmt.Errorf("set webhook: %w", err)
			}
			a.logger.Info("webhook registered", logger.String("url", a.cfg.WebhookURL))
		}
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutting down gracefully")
	case runErr = <-errCh:
		stop()
	}

	if a.cfg.Mode == config.ModePolling {
		a.client.StopUpdates()
	}
	wg.Wait()
	a.shutdown()
	return runErr
}

// poll hands each update to its own goroutine, at most MaxConcurrent at once.
func (a *App) poll(ctx context.Context) {
	updates := a.client.Updates(a.cfg.PollTimeout)
	sem := make(chan struct{}, a.cfg.MaxConcurrent)
	var inflight sync.WaitGroup
	defer inflight.Wait()

	a.logger.Info("polling started", logger.Int("max_concurrent", a.cfg.MaxConcurrent))
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			inflight.Add(1)
			go func() {
				defer inflight.Done()
				defer func() { <-sem }()
				// In-flight updates finish even after shutdown starts.
				uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.UpdateTimeout)
				defer cancel()
				a.dispatcher.HandleUpdate(uctx, upd)
			}()
		}
	}
}

func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Warn("http server shutdown", logger.Error(err))
	}
	a.closeStoresCtx(ctx)
	a.logger.Info("moviefilter-bot stopped cleanly")
	_ = a.logger.Sync()
}

func (a *App) closeStores() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.closeStoresCtx(ctx)
}

func (a *App) closeStoresCtx(ctx context.Context) {
	if a.store != nil {
		if err := a.store.Close(ctx); err != nil {
			a.logger.Warn("close mongo", logger.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("close redis", logger.Error(err))
		}
	}
}
