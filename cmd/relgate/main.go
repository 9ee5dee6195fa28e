package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/relgate/relgate/internal/config"
	"github.com/relgate/relgate/internal/event"
	"github.com/relgate/relgate/internal/executors"
	"github.com/relgate/relgate/internal/githost"
	"github.com/relgate/relgate/internal/notify"
	"github.com/relgate/relgate/internal/pipeline"
	"github.com/relgate/relgate/internal/server"
	"github.com/relgate/relgate/internal/sfcli"
	"github.com/relgate/relgate/internal/storage"
	"github.com/relgate/relgate/internal/storage/memory"
	"github.com/relgate/relgate/internal/storage/sqlite"
	"github.com/relgate/relgate/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Initialize OpenTelemetry
	shutdownTracer, err := telemetry.InitTracer("relgate", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	store, err := newStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open run store: %v", err)
	}
	defer store.Close()

	notifier, err := notify.FromConfig(cfg.Notify, logger)
	if err != nil {
		log.Fatalf("Failed to configure notifier: %v", err)
	}

	runner := newRunner(cfg, store, notifier, logger)

	srv := server.New(server.Config{
		Port:          cfg.Server.Port,
		WebhookSecret: cfg.GitHub.WebhookSecret,
		RunTimeout:    cfg.Server.RunTimeout,
		Defaults: event.Defaults{
			TestLevel:    cfg.DefaultTestLevel(),
			TargetOrg:    cfg.Defaults.TargetOrg,
			TargetBranch: cfg.Defaults.TargetBranch,
		},
	}, runner, store, logger)

	httpServer := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Server.Port),
		Handler: srv.Router,
	}

	go func() {
		logger.Info("starting server", slog.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, stopping server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

// newStore opens the configured run store.
func newStore(cfg *config.Config) (storage.RunStore, error) {
	switch cfg.Storage.Type {
	case "memory":
		return memory.New(), nil
	default:
		if dir := filepath.Dir(cfg.Storage.SQLite.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		return sqlite.New(cfg.Storage.SQLite.Path)
	}
}

// newRunner wires the per-stage executors to their collaborators.
func newRunner(cfg *config.Config, store storage.RunStore, notifier pipeline.Notifier, logger *slog.Logger) *pipeline.Runner {
	cli := sfcli.New(cfg.CLI.Bin, cfg.CLI.ProjectDir, logger)

	var hostOpts []githost.ClientOption
	if cfg.GitHub.BaseURL != "" {
		hostOpts = append(hostOpts, githost.WithBaseURL(cfg.GitHub.BaseURL))
	}
	host := githost.New(cfg.GitHub.Repo, cfg.GitHub.Token, hostOpts...)

	execs := map[pipeline.Stage]pipeline.Executor{
		pipeline.StageCheckConflicts:    &executors.ConflictChecker{RepoDir: cfg.CLI.ProjectDir},
		pipeline.StageValidateMetadata:  &executors.MetadataValidator{CLI: cli},
		pipeline.StageRunTests:          &executors.TestRunner{CLI: cli},
		pipeline.StageCreatePullRequest: &executors.PRCreator{Host: host},
		pipeline.StageDeploy:            &executors.Deployer{CLI: cli},
	}

	opts := []pipeline.Option{
		pipeline.WithStore(store),
		pipeline.WithLogger(logger),
	}
	if notifier != nil {
		opts = append(opts, pipeline.WithNotifier(notifier))
	}
	return pipeline.NewRunner(cfg.Stages, execs, opts...)
}
