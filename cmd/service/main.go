package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mosaek2/lepisong/internal/collection"
	"github.com/mosaek2/lepisong/internal/config"
	"github.com/mosaek2/lepisong/internal/memstore"
	"github.com/mosaek2/lepisong/internal/notify"
	"github.com/mosaek2/lepisong/internal/pgstore"
	"github.com/mosaek2/lepisong/internal/playlist"
	"github.com/mosaek2/lepisong/internal/realtime"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("queue-service stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	hub := realtime.NewHub()
	go hub.Run(ctx)

	// Without Redis the hub is fed directly; with it, every instance's hub
	// follows the shared channel.
	var notifier collection.Notifier = hub
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		rdb := redis.NewClient(opt)
		defer rdb.Close()
		notifier = notify.NewRedisNotifier(rdb, cfg.EventsChannel)
		go realtime.Subscribe(ctx, rdb, cfg.EventsChannel, hub, logger)
	} else {
		logger.Warn("REDIS_URL not set, events stay on this instance")
	}

	store := collection.NewStore(backend, notifier, logger, cfg.LockWait)
	queue := playlist.NewQueue(store)
	if err := queue.Ensure(ctx); err != nil {
		return err
	}
	srv := playlist.NewServer(queue, playlist.NewPlaylists(store, notifier, logger), logger)

	handler := srv.Router(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)
	handler.Get("/ws", realtime.NewServer(hub, cfg.WSAllowedOrigins, logger).HandleWS)

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("queue-service listening", "port", cfg.Port, "backend", cfg.StoreBackend)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func openBackend(ctx context.Context, cfg config.Config) (collection.Backend, func(), error) {
	if cfg.StoreBackend != config.BackendPostgres {
		return memstore.New(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := pgstore.AutoMigrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pgstore.New(pool), pool.Close, nil
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(cfg.LogFormat, "text") {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(h).With("service", "queue-service")
}
