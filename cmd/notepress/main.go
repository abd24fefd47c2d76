// Package main is the entry point for the notepress API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"notepress/internal/config"
	"notepress/internal/database"
	"notepress/internal/handlers"
	"notepress/internal/kv"
	"notepress/internal/mail"
	"notepress/internal/router"
	"notepress/internal/session"
	"notepress/internal/storage"
	"notepress/internal/store"
	"notepress/internal/verify"
)

func main() {
	// A missing .env is fine; real deployments set environment variables.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	redisClient, err := kv.Connect(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	sessionStore := session.NewStore(redisClient)
	codeStore := verify.NewStore(redisClient)

	userStore := store.NewUserStore(db)
	noteStore := store.NewNoteStore(db)
	commentStore := store.NewCommentStore(db)

	// S3-compatible object storage is optional; uploads 503 without it.
	storageClient, err := storage.New(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket)
	if err != nil {
		slog.Error("failed to initialize object storage", "error", err)
		os.Exit(1)
	}
	if storageClient == nil {
		slog.Warn("object storage not configured, image uploads disabled")
	}

	// Without a mail provider, verification codes go to the log instead.
	var mailer mail.Sender
	if cfg.ResendAPIKey != "" {
		mailer = mail.NewResend(cfg.ResendAPIKey, cfg.ResendFrom, "")
	} else {
		slog.Warn("mail not configured, verification codes will be logged")
	}

	authHandlers := handlers.NewAuth(userStore, sessionStore, codeStore, mailer)
	userHandlers := handlers.NewUsers(userStore)
	postHandlers := handlers.NewPosts(noteStore, commentStore)
	uploadHandlers := handlers.NewUpload(storageClient)

	r := router.New(router.Deps{
		Sessions: sessionStore,
		Auth:     authHandlers,
		Users:    userHandlers,
		Posts:    postHandlers,
		Upload:   uploadHandlers,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
