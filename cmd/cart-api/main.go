package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sasusavage/perfumeshop/internal/config"
	"github.com/sasusavage/perfumeshop/internal/sessioncart"
	"github.com/sasusavage/perfumeshop/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()
	zap.ReplaceGlobals(zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("failed to open cart store", zap.Error(err))
	}
	defer closeStore()

	service := sessioncart.NewService(store, zl)
	handler := sessioncart.NewCartHandler(service, cfg.RequestTimeout, zl)

	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: sessioncart.NewRouter(handler, sessioncart.RouterConfig{
			CookieName:     cfg.Session.CookieName,
			SessionTTL:     cfg.Session.TTL,
			RequestTimeout: cfg.RequestTimeout,
		}, zl),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zl.Info("cart API starting", zap.String("port", cfg.HTTPPort), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if len(cfg.Kafka.Brokers) > 0 {
		poller := sessioncart.NewPoller(service, zl, cfg.Kafka.CheckoutTopic, cfg.Kafka.GroupID, cfg.Kafka.Brokers...)
		g.Go(func() error {
			defer poller.Close()
			zl.Info("checkout consumer started", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.CheckoutTopic))
			poller.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		zl.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zl.Error("server exited with error", zap.Error(err))
		return
	}
	zl.Info("server exited")
}

func openStore(ctx context.Context, cfg *config.Config, zl *zap.Logger) (sessioncart.Store, func(), error) {
	if cfg.Store.Driver != "redis" {
		store := sessioncart.NewMemoryStore(cfg.Session.TTL)
		return store, func() { store.Close() }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, err
	}
	zl.Info("redis ping succeeded", zap.String("addr", cfg.Redis.Addr))

	return sessioncart.NewRedisStore(client, cfg.Session.TTL), func() { client.Close() }, nil
}
