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

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"poojaconstructions/api/internal/admins"
	"poojaconstructions/api/internal/app"
	"poojaconstructions/api/internal/config"
	"poojaconstructions/api/internal/docstore"
	"poojaconstructions/api/internal/email"
	"poojaconstructions/api/internal/search"
	"poojaconstructions/api/internal/session"
	"poojaconstructions/api/internal/upload"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// Object storage serves uploads regardless of where the collection
	// documents live, so the client is built before the backend switch.
	var minioClient *minio.Client
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
			Secure: cfg.MinioUseSSL,
		})
		if err != nil {
			log.Fatalf("object storage connection failed: %v", err)
		}
		minioClient = client
	}

	var backend docstore.Backend
	switch cfg.DocstoreBackend {
	case "postgres":
		db, err := docstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer db.Close()
		pg := docstore.NewPostgresBackend(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatalf("schema setup failed: %v", err)
		}
		backend = pg
	default:
		if minioClient == nil {
			log.Fatalf("MINIO_ENDPOINT is required for the minio document backend")
		}
		mb := docstore.NewMinioBackend(minioClient, cfg.DataBucket)
		if err := mb.EnsureBucket(ctx); err != nil {
			log.Fatalf("data bucket setup failed: %v", err)
		}
		backend = mb
	}

	var uploads app.Uploader
	if minioClient != nil {
		scheme := "http"
		if cfg.MinioUseSSL {
			scheme = "https"
		}
		uploadService := upload.NewService(minioClient, cfg.UploadsBucket, scheme+"://"+cfg.MinioEndpoint)
		if err := uploadService.EnsureBucket(ctx); err != nil {
			log.Fatalf("uploads bucket setup failed: %v", err)
		}
		uploads = uploadService
	}

	cache := docstore.NewCache(cfg.CacheTTL)
	cols := app.NewCollections(backend, cache, cfg.DocumentIDs)
	adminCol := docstore.NewCollection[admins.Admin](backend, cache, cfg.DocumentIDs.Admins, "admins")
	adminService := admins.NewService(adminCol)

	var sessions session.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for sessions and cache invalidation")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
		sessions = redisStore

		invalidator, err := docstore.NewInvalidator(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis invalidator failed: %v", err)
		}
		defer invalidator.Close()
		cache.SetInvalidator(ctx, invalidator)
	} else {
		log.Printf("Using in-memory session store")
		sessions = session.NewMemoryStore()
	}

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, search.NewScanner(cols))

	var mailer app.Mailer
	if cfg.SMTPHost != "" {
		mailer = email.NewService(email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
			Inbox:    cfg.ContactInbox,
		})
	}

	service := app.New(cfg, backend, cols, adminService, sessions, searchService, uploads, mailer)
	if err := service.Bootstrap(ctx); err != nil {
		log.Printf("WARNING: bootstrap error (will retry on next restart): %v", err)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Pooja Constructions API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
