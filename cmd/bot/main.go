package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"purchasebot/internal/bot"
	"purchasebot/internal/cache"
	"purchasebot/internal/config"
	"purchasebot/internal/handler"
	"purchasebot/internal/metrics"
	"purchasebot/internal/middleware"
	"purchasebot/internal/queue"
	"purchasebot/internal/repository"
	"purchasebot/internal/router"
	"purchasebot/internal/service"
	"purchasebot/internal/telegram"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting purchase bot...")

	cfg := config.MustLoad()
	log.Printf("Environment: %s, store: %s, cache: %s", cfg.App.Environment, cfg.Store.Type, cfg.Cache.Type)

	// Row store
	store, err := openStore(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize %s store: %v", cfg.Store.Type, err)
	}
	defer store.Close()

	// Handle cache and update dedup
	kv, cacheType := openCache(cfg)
	defer kv.Close()

	inventory := service.NewInventoryService(store, cache.NewTableCache(kv))

	q := queue.New(cfg.Queue.Limit)
	m := metrics.New(q.Depth)

	messenger, err := telegram.NewMessenger(cfg.Telegram.Token, telegram.Options{
		APIServer:     cfg.Telegram.APIServer,
		SendInterval:  cfg.Telegram.SendInterval,
		WebhookSecret: cfg.Telegram.WebhookSecret,
	})
	if err != nil {
		log.Fatalf("Failed to initialize Telegram client: %v", err)
	}

	botID, _ := cfg.Telegram.BotID()
	webhookURL, _ := cfg.Telegram.WebhookURL()

	processor := bot.NewProcessor(
		bot.ProcessorConfig{
			WebhookURL:     webhookURL,
			PollInterval:   cfg.Queue.PollInterval,
			HandlerTimeout: cfg.Queue.HandlerTimeout,
			DedupTTL:       cfg.Cache.DedupTTL,
		},
		q,
		bot.NewCommands(inventory, messenger, m),
		messenger,
		kv,
		m,
	)

	// The listener is bound only after the webhook is registered
	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := processor.Start(startCtx); err != nil {
		cancel()
		log.Fatalf("Failed to start processor: %v", err)
	}
	cancel()
	<-processor.Ready()

	go processor.Run(context.Background())

	webhook := handler.NewWebhookHandler(botID, q, m)
	webhook.SetSecret(cfg.Telegram.WebhookSecret)

	var adminHandler *handler.AdminHandler
	if len(cfg.App.APIKeys) > 0 {
		adminHandler = handler.NewAdminHandler(kv, cfg.Store.Type, cacheType)
	}

	var quiet []string
	if cfg.App.IsProduction() {
		quiet = router.ProbePaths
	}

	r := router.New(router.Config{
		Handler:        handler.New(q, processor),
		WebhookHandler: webhook,
		AdminHandler:   adminHandler,
		Metrics:        m.Handler(),
		AuthMiddleware: middleware.NewAuthMiddleware(middleware.AuthConfig{APIKeys: cfg.App.APIKeys}),
		QuietPaths:     quiet,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	processor.Stop()
	select {
	case <-processor.Done():
	case <-ctx.Done():
		log.Println("Processor did not stop in time")
	}
	q.Close()

	if depth := q.Depth(); depth > 0 {
		log.Printf("Dropping %d unprocessed updates", depth)
	}

	log.Println("Server stopped")
	fmt.Println("Goodbye!")
}

// openStore connects the configured row store.
func openStore(ctx context.Context, cfg *config.Config) (repository.RowStore, error) {
	switch cfg.Store.Type {
	case config.StoreSQLite:
		return repository.NewSQLiteRowStore(cfg.Store.SQLitePath)
	case config.StorePostgres:
		return repository.NewPostgresRowStore(cfg.Store.PostgresDSN())
	case config.StoreMySQL:
		return repository.NewMySQLRowStore(cfg.Store.MySQLDSN())
	case config.StoreMongoDB:
		return repository.NewMongoDBRowStore(cfg.Store.MongoURI, cfg.Store.MongoDatabase, cfg.Store.MongoPrefix)
	case config.StoreMemory:
		log.Println("Warning: memory store selected, lists are lost on restart")
		return repository.NewMemoryRowStore(), nil
	default:
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		return repository.NewSheetsRowStore(ctx, cfg.Sheets.SpreadsheetID, []byte(cfg.Sheets.CredentialsJSON))
	}
}

// openCache connects Redis when configured and falls back to memory when it is unreachable.
func openCache(cfg *config.Config) (cache.Cache, string) {
	if cfg.Cache.Type == config.CacheRedis {
		rc, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:      cfg.Cache.RedisAddress(),
			Password:  cfg.Cache.RedisPassword,
			DB:        cfg.Cache.RedisDB,
			KeyPrefix: cfg.Cache.RedisPrefix,
		})
		if err == nil {
			return rc, config.CacheRedis
		}
		log.Printf("Warning: Redis connection failed, using memory cache: %v", err)
	}
	return cache.NewMemoryCache(), config.CacheMemory
}
