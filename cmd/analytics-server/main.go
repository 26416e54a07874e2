package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hashicorp/go-hclog"

	"github.com/casperlundberg/task-offloading-orchestrator/internal/api"
	"github.com/casperlundberg/task-offloading-orchestrator/internal/database"
)

func main() {
	var (
		dbPath   = flag.String("db", "analytics.db", "Path to SQLite database file")
		port     = flag.String("port", "8080", "Port to run API server on")
		logLevel = flag.String("log-level", "INFO", "Log level")
	)
	flag.Parse()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "analytics-server",
		Level: hclog.LevelFromString(*logLevel),
	})

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		logger.Error("failed to create database directory", "error", err)
		os.Exit(1)
	}

	logger.Info("connecting to database", "path", *dbPath)
	db, err := database.NewDatabase(*dbPath)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(database.NewRepository(db), ":"+*port, logger.Named("api"))
	if err := server.Start(ctx); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
