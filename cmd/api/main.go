package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"opsboard/api/internal/app"
	"opsboard/api/internal/audit"
	"opsboard/api/internal/config"
	"opsboard/api/internal/export"
	"opsboard/api/internal/match"
	"opsboard/api/internal/notify"
	"opsboard/api/internal/projectlink"
	"opsboard/api/internal/reconcile"
	"opsboard/api/internal/registry"
	"opsboard/api/internal/sched"
	"opsboard/api/internal/search"
	"opsboard/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	if err := os.MkdirAll(cfg.AuditDir, 0o755); err != nil {
		log.Fatalf("failed to create audit dir: %v", err)
	}

	dataStore := store.NewPostgresStore(db)

	synonyms, err := match.LoadSynonymGroups(cfg.SynonymsPath)
	if err != nil {
		log.Fatalf("synonym table failed to load: %v", err)
	}
	matcher := match.New(synonyms)

	var linkStore projectlink.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for project link storage")
		redisStore, err := projectlink.NewRedisStore(cfg.RedisURL, cfg.LinkTTL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
		linkStore = redisStore
	} else {
		log.Printf("Using in-process project link storage")
		linkStore = projectlink.NewMemoryStore()
	}

	dbSearch := search.NewDBSearch(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, dbSearch)

	loader, err := registry.NewLoader(registry.ObjectConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		UseSSL:    cfg.MinioUseSSL,
		Bucket:    cfg.RegistryBucket,
		Object:    cfg.RegistryObject,
	}, cfg.RegistryFile)
	if err != nil {
		log.Fatalf("registry loader failed: %v", err)
	}

	service := app.New(cfg, app.Deps{
		Store:    dataStore,
		Matcher:  matcher,
		Linker:   projectlink.NewLinker(linkStore),
		Engine:   reconcile.NewEngine(nil),
		Registry: loader,
		Search:   searchService,
		Notifier: notify.New(cfg.SlackBotToken, cfg.SlackChannelID),
		Exporter: export.NewService(),
		Audit:    audit.New(cfg.AuditDir),
	})
	if err := service.Bootstrap(ctx); err != nil {
		log.Printf("WARNING: bootstrap error (will retry on next restart): %v", err)
	}

	schedCtx, stopSched := context.WithCancel(ctx)
	defer stopSched()
	sched.Start(schedCtx, cfg.SyncSchedule, service)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, cfg.SyncToken)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Opsboard API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	stopSched()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
