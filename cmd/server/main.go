package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/sizemo/ocreceipt/api"
	"github.com/sizemo/ocreceipt/internal/auth"
	"github.com/sizemo/ocreceipt/internal/db"
	"github.com/sizemo/ocreceipt/internal/extract"
	"github.com/sizemo/ocreceipt/internal/models"
	"github.com/sizemo/ocreceipt/internal/ocr"
	"github.com/sizemo/ocreceipt/internal/queue"
	"github.com/sizemo/ocreceipt/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	config, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, config.Database)
	if err != nil {
		return fmt.Errorf("database unavailable: %w", err)
	}
	defer pool.Close()

	store := db.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	logger.Info("database ready")

	if err := bootstrapAdmin(ctx, store); err != nil {
		return err
	}

	blobs, err := storage.New(ctx, config.Storage)
	if err != nil {
		return fmt.Errorf("blob storage unavailable: %w", err)
	}
	logger.Info("blob storage ready", "bucket", config.Storage.Bucket)

	engine := ocr.NewTesseractEngine(config.OCR.Language, config.OCR.EngineTimeout, logger)
	normalizer := ocr.NewNormalizer(config.OCR, config.Heuristics, engine, logger)
	orchestrator := ocr.NewOrchestrator(config.OCR, config.Heuristics, engine, normalizer, logger)

	pipeline := func(ctx context.Context, data []byte, contentType string) (extract.Fields, error) {
		result, err := orchestrator.Run(ctx, data, contentType)
		if err != nil {
			return extract.Fields{}, err
		}
		return extract.Extract(result, config.Heuristics), nil
	}

	worker := queue.NewWorker(store, blobs, pipeline, logger)
	jobQueue := queue.New(worker, config.Queue, logger)
	if err := jobQueue.Start(ctx); err != nil {
		return fmt.Errorf("failed to start job queue: %w", err)
	}
	defer jobQueue.Shutdown()

	loginService := auth.NewService(store, config.Auth)
	handler := api.NewHandler(config, store, blobs, jobQueue, loginService)

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.SetupRoutes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "fast_mode", config.OCR.FastMode)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// bootstrapAdmin creates the initial admin account when none exists.
// Refuses weak passwords so a forgotten env var cannot ship a default
// credential.
func bootstrapAdmin(ctx context.Context, store *db.Store) error {
	hasAdmin, err := store.HasAdmin(ctx)
	if err != nil {
		return fmt.Errorf("failed to check for admin account: %w", err)
	}
	if hasAdmin {
		return nil
	}

	username := os.Getenv("DEFAULT_ADMIN_USERNAME")
	password := os.Getenv("DEFAULT_ADMIN_PASSWORD")
	if username == "" {
		username = "admin"
	}

	weak := map[string]bool{"change-me-now": true, "password": true, "admin": true, "admin123": true}
	if weak[password] || len(password) < 12 {
		return errors.New("refusing to bootstrap admin with a weak DEFAULT_ADMIN_PASSWORD (12+ chars required)")
	}

	salt, digest, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return store.CreateUser(ctx, &models.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordSalt: salt,
		PasswordHash: digest,
		Role:         "admin",
		IsActive:     true,
	})
}

func loadConfig(path string) (*models.Config, error) {
	config := models.DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables if present
	if port := os.Getenv("PORT"); port != "" {
		fmt.Sscanf(port, "%d", &config.Port)
	}
	if host := os.Getenv("HOST"); host != "" {
		config.Host = host
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		config.Database.URL = url
	}
	if endpoint := os.Getenv("MINIO_ENDPOINT"); endpoint != "" {
		config.Storage.Endpoint = endpoint
	}
	if accessKey := os.Getenv("MINIO_ACCESS_KEY"); accessKey != "" {
		config.Storage.AccessKey = accessKey
	}
	if secretKey := os.Getenv("MINIO_SECRET_KEY"); secretKey != "" {
		config.Storage.SecretKey = secretKey
	}
	if bucket := os.Getenv("MINIO_BUCKET"); bucket != "" {
		config.Storage.Bucket = bucket
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if lang := os.Getenv("OCR_LANGUAGE"); lang != "" {
		config.OCR.Language = lang
	}
	if fast := os.Getenv("OCR_FAST_MODE"); fast != "" {
		config.OCR.FastMode = fast == "true"
	}

	if config.Auth.JWTSecret == "" {
		return nil, errors.New("jwt secret is not configured")
	}

	return &config, nil
}
