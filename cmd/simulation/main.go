package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/casperlundberg/task-offloading-orchestrator/internal/config"
	"github.com/casperlundberg/task-offloading-orchestrator/internal/database"
	"github.com/casperlundberg/task-offloading-orchestrator/internal/simulation"
	"github.com/casperlundberg/task-offloading-orchestrator/pkg/orchestrator"
)

func main() {
	var (
		configPath = flag.String("config", "configs/simulation.yaml", "Path to scenario config")
		algorithm  = flag.String("algorithm", "", "Override the configured algorithm")
		dbPath     = flag.String("db", "", "Override the configured database path")
		noDB       = flag.Bool("no-db", false, "Do not record the run")
		resume     = flag.Bool("resume", false, "Start learned policies from the latest stored checkpoint")
	)
	flag.Parse()

	if err := run(*configPath, *algorithm, *dbPath, *noDB, *resume); err != nil {
		fmt.Fprintf(os.Stderr, "simulation failed: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, algorithm, dbPath string, noDB, resume bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if algorithm != "" {
		cfg.Algorithm = algorithm
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if noDB {
		cfg.Database.Enabled = false
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "simulation",
		Level: hclog.LevelFromString(cfg.LogLevel),
	})

	opts := simulation.RunnerOptions{Logger: logger}
	if cfg.Database.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
		logger.Info("connecting to database", "path", cfg.Database.Path)
		db, err := database.NewDatabase(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()
		repo := database.NewRepository(db)

		if resume {
			if err := loadCheckpoint(repo, cfg.Algorithm, &opts, logger); err != nil {
				return err
			}
		}

		recorder, err := simulation.NewDBRecorder(repo, cfg)
		if err != nil {
			return err
		}
		opts.Recorder = recorder
		logger.Info("recording run", "id", recorder.RunID())
	}

	runner, err := simulation.NewRunner(cfg, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	summary, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("simulation completed", "elapsed", time.Since(start))

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func loadCheckpoint(repo *database.Repository, name string, opts *simulation.RunnerOptions, logger hclog.Logger) error {
	alg, err := orchestrator.ParseAlgorithm(name)
	if err != nil {
		return err
	}
	if !alg.IsLearned() {
		logger.Warn("resume ignored for non-learned algorithm", "algorithm", alg)
		return nil
	}
	online, target, err := simulation.LoadCheckpoint(repo, string(alg))
	if errors.Is(err, database.ErrNotFound) {
		logger.Warn("no checkpoint stored, starting from scratch", "algorithm", alg)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}
	opts.Online, opts.Target = online, target
	logger.Info("resuming from checkpoint", "algorithm", alg)
	return nil
}
