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

	"golang.org/x/sync/errgroup"

	"akelarre/internal/admission"
	"akelarre/internal/app"
	"akelarre/internal/config"
	"akelarre/internal/cooldown"
	"akelarre/internal/quota"
	"akelarre/internal/server"
	"akelarre/internal/util"
	"akelarre/pkg/ai"
	"akelarre/pkg/events"
	"akelarre/pkg/storage"
	"akelarre/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := util.InitLogger(cfg.LogLevel)

	ledger, err := quota.NewRedisLedger(cfg.RedisAddr, cfg.RedisPassword, "", cfg.DailyQuotaCeiling)
	if err != nil {
		util.Fatal("failed to init quota ledger", "err", err)
	}
	guard := cooldown.NewGuard(time.Duration(cfg.CooldownSeconds) * time.Second)

	gemini, err := ai.NewGeminiClient(cfg.GeminiAPIKey)
	if err != nil {
		util.Fatal("failed to init gemini client", "err", err)
	}

	dataStore, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		util.Fatal("failed to init postgres store", "err", err)
	}

	var objects storage.ObjectStore
	if cfg.MinioEndpoint != "" {
		objects, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			util.Fatal("failed to init minio store", "err", err)
		}
	} else {
		localDir := cfg.StorageLocalDir
		if localDir == "" {
			localDir = "data/images"
		}
		objects, err = storage.NewFileStore(localDir)
		if err != nil {
			util.Fatal("failed to init file store", "err", err)
		}
	}

	sessionTTL := time.Duration(cfg.SessionTTLHours) * time.Hour
	var sessions store.SessionStore
	switch cfg.SessionBackend {
	case "jwt":
		sessions, err = store.NewJWTSessionStore(cfg.JWTSecret, sessionTTL)
		if err != nil {
			util.Fatal("failed to init jwt session store", "err", err)
		}
	default:
		sessions = store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, "", sessionTTL)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		rabbit, err := events.NewRabbitPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			util.Fatal("failed to init event publisher", "err", err)
		}
		defer rabbit.Close()
		publisher = rabbit
	}

	trustedProxies, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		util.Fatal("failed to parse trusted proxies", "err", err)
	}

	appCore, err := app.New(app.Config{
		Store:      dataStore,
		Objects:    objects,
		Images:     ai.NewGeminiImageGenerator(gemini, cfg.ImageModel),
		Chat:       ai.NewGeminiGenerator(gemini, cfg.ChatModel),
		Admission:  admission.NewController(guard, ledger),
		Ledger:     ledger,
		Publisher:  publisher,
		RootFolder: cfg.StorageRootFolder,
		Timeout:    time.Duration(cfg.GenerationTimeoutSeconds) * time.Second,
	})
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	httpServer, err := server.New(server.Config{
		App:                     appCore,
		Sessions:                sessions,
		AdminKeyHash:            cfg.AdminKeyHash,
		RedisAddr:               cfg.RedisAddr,
		RedisPassword:           cfg.RedisPassword,
		LoginRateLimitPerMinute: cfg.LoginRateLimitPerMinute,
		TrustedProxies:          trustedProxies,
	})
	if err != nil {
		util.Fatal("failed to init server", "err", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: time.Duration(cfg.GenerationTimeoutSeconds+30) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}
