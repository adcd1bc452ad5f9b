/*
Package main is the entry point for the RelayChat application.

It is responsible for loading configuration, initializing the global logging system,
connecting to PostgreSQL, seeding the presence registry from the durable room set,
setting up the HTTP server, and gracefully handling operating system interrupt
signals (SIGINT, SIGTERM) to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"relaychat/internal/app/chat"
	"relaychat/internal/app/storage"
	"relaychat/internal/app/store"
	"relaychat/internal/configs"
	"relaychat/internal/handler"
	"relaychat/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL and run migrations
	pool, err := store.NewPool(cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to connect to database")
	}
	defer pool.Close()

	st := store.NewPostgres(pool)

	// Initialize the avatar file store
	storageService, err := storage.NewStorageService(storage.ServiceConfig{
		S3BucketName:      cfg.S3BucketName,
		S3Endpoint:        cfg.S3Endpoint,
		S3AccessKeyID:     cfg.S3AccessKeyID,
		S3SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		logx.Fatal(err, "Failed to initialize storage service")
	}

	// Seed the presence registry with every durable room before accepting
	// connections, so sends into idle rooms relay immediately.
	registry := chat.NewRegistry()
	rooms := chat.NewManager(registry, st)
	if err := rooms.Bootstrap(ctx); err != nil {
		logx.Fatal(err, "Failed to bootstrap room registry")
	}

	// Setup HTTP server and routes
	deps := &handler.AppDeps{
		Config:   cfg,
		Store:    st,
		Registry: registry,
		Rooms:    rooms,
		Storage:  storageService,
	}
	router := handler.Router(deps)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("RelayChat Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	logx.Info("Server gracefully stopped.")
}
