package main

import (
	"context"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tazhibayda/edu-auth/internal/config"
	api "github.com/tazhibayda/edu-auth/internal/http"
	"github.com/tazhibayda/edu-auth/internal/log"
	"github.com/tazhibayda/edu-auth/internal/metrics"
	"github.com/tazhibayda/edu-auth/internal/oauth"
	"github.com/tazhibayda/edu-auth/internal/queue"
	"github.com/tazhibayda/edu-auth/internal/repo"
)

func main() {
	cfg := config.Load()

	logger, err := log.Init(!cfg.Dev)
	if err != nil {
		stdlog.Fatalf("log init: %v", err)
	}
	defer log.Sync()

	metrics.MustRegister()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := repo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Fatal("mongo connect", zap.Error(err))
	}
	defer store.Close(context.Background())

	if err := store.EnsureUserIndexes(ctx); err != nil {
		logger.Fatal("user indexes", zap.Error(err))
	}

	cache := repo.NewRedis(cfg.RedisAddr)
	defer cache.Close()
	if err := cache.Ping(ctx); err != nil {
		// cache is best-effort, the service runs without it
		logger.Warn("redis unavailable", zap.Error(err))
	}

	var pub queue.Publisher = queue.NewNoop()
	if cfg.RabbitURL != "" {
		pub, err = queue.NewRabbit(cfg.RabbitURL, queue.Exchange)
		if err != nil {
			logger.Fatal("rabbit connect", zap.Error(err))
		}
	}
	defer pub.Close()

	google := oauth.NewGoogle(cfg.GoogleClientID, cfg.GoogleSecret, cfg.GoogleRedirect, cfg.OAuthStateSecret)

	h := api.NewHandler(store, cache, google, pub, cfg)
	r := api.NewRouter(h)

	srvErr := make(chan error, 1)
	go func() { srvErr <- r.Run(":" + cfg.Port) }()

	logger.Info("edu-auth listening", zap.String("port", cfg.Port))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		logger.Info("shutting down", zap.String("signal", s.String()))
	case err := <-srvErr:
		logger.Error("server error", zap.Error(err))
	}
}
