package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"authgate/internal/audit"
	"authgate/internal/config"
	"authgate/internal/discovery"
	"authgate/internal/gateway"
	"authgate/internal/identity"
	"authgate/internal/logger"
	"authgate/internal/session"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	log := logger.New()
	logger.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err.Error())
		os.Exit(1)
	}

	slog.Info("starting auth gateway",
		"port", cfg.Port,
		"session_store", cfg.SessionStore,
		"protected_prefixes", cfg.ProtectedPrefixes,
	)

	// Session store and manager.
	var store session.Store
	var storeCloser func() error
	switch cfg.SessionStore {
	case "redis":
		redisStore := session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.InactivityWindow)
		store = redisStore
		storeCloser = redisStore.Close
		slog.Info("using redis session store", "addr", cfg.RedisAddr)
	default:
		store = session.NewMemoryStore(cfg.InactivityWindow)
	}
	sessions := session.NewManager(store, log)

	// Identity provider.
	provider := identity.NewHTTPProvider(cfg.IdentityProviderURL, cfg.IdentityProviderKey)

	// Audit trail: Kafka when brokers are configured, structured log otherwise.
	var publisher audit.Publisher
	if cfg.KafkaBrokers != "" {
		publisher, err = audit.NewKafkaPublisher(cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			slog.Error("failed to initialize audit publisher", "error", err.Error())
			os.Exit(1)
		}
	} else {
		publisher = audit.NewLogPublisher(log)
	}

	// Downstream resolution.
	var resolver discovery.Resolver
	if cfg.DownstreamService != "" {
		resolver, err = discovery.NewConsulResolver(cfg.ConsulAddr, cfg.ConsulToken, cfg.DownstreamService)
		if err == nil {
			slog.Info("resolving downstream via consul", "service", cfg.DownstreamService)
		}
	} else {
		resolver, err = discovery.NewStaticResolver(cfg.DownstreamURL)
	}
	if err != nil {
		slog.Error("failed to configure downstream target", "error", err.Error())
		os.Exit(1)
	}

	forwarder := gateway.NewForwarder(resolver, cfg.ProxyTimeout, log)
	router := gateway.SetupRouter(cfg, sessions, provider, publisher, forwarder)

	// Expired-session sweeper runs until shutdown.
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	go sessions.RunSweeper(sweepCtx, cfg.SweepInterval)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("auth gateway listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down auth gateway")
	stopSweeper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "error", err.Error())
	}

	publisher.Close()
	if storeCloser != nil {
		if err := storeCloser(); err != nil {
			slog.Error("session store close failed", "error", err.Error())
		}
	}

	slog.Info("auth gateway stopped")
}
