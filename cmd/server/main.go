package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia/walletd/internal/api"
	"github.com/custodia/walletd/internal/api/handlers"
	"github.com/custodia/walletd/internal/chain"
	"github.com/custodia/walletd/internal/cipher"
	"github.com/custodia/walletd/internal/config"
	"github.com/custodia/walletd/internal/db"
	"github.com/custodia/walletd/internal/logging"
	"github.com/custodia/walletd/internal/queue"
	"github.com/custodia/walletd/internal/signing"
	"github.com/custodia/walletd/internal/wallet"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("walletd %s\n", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: walletd <command>

Commands:
  serve     Start the HTTP server and generation workers
  version   Print version information
`)
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logCloser, err := logging.Setup(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logCloser.Close()

	slog.Info("starting walletd",
		"version", version,
		"port", cfg.Port,
		"dbPath", cfg.DBPath,
		"basePath", cfg.BasePath,
		"workers", cfg.WorkerCount,
		"logLevel", cfg.LogLevel,
	)

	database, err := db.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if err := database.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("database ready", "path", cfg.DBPath)

	c, err := cipher.New(cfg.EncryptionKey())
	if err != nil {
		return fmt.Errorf("failed to create cipher: %w", err)
	}

	generation, err := wallet.NewService(database, c, cfg.BasePath)
	if err != nil {
		return fmt.Errorf("failed to create generation service: %w", err)
	}

	chainClient, err := chain.Dial(cfg.ChainRPCURL, cfg.ChainID)
	if err != nil {
		return fmt.Errorf("failed to connect chain client: %w", err)
	}
	defer chainClient.Close()

	facade := signing.NewFacade(database, c, chainClient)

	// Worker context outlives individual HTTP requests: a dropped request
	// must not abort an already-enqueued job.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	q := queue.New(database, cfg.WorkerCount)
	wallet.RegisterJobHandlers(q, generation)
	q.Start(workerCtx)
	defer q.Close()

	slog.Info("generation workers started", "workers", cfg.WorkerCount)

	api.Version = version
	router := api.NewRouter(&handlers.Deps{
		Queue:      q,
		Generation: generation,
		Signing:    facade,
		Users:      database,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("initiating graceful shutdown", "timeout", config.ShutdownTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	// Workers drain after the HTTP surface is closed so no new jobs arrive
	// mid-shutdown; durable queued jobs survive for the next start.
	q.Close()
	workerCancel()

	slog.Info("server stopped gracefully")
	return nil
}
