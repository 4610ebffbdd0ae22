package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/unitms/army-ums/internal/application/service"
	"github.com/unitms/army-ums/internal/config"
	httpserver "github.com/unitms/army-ums/internal/interfaces/http"
	"github.com/unitms/army-ums/internal/repository"
	"github.com/unitms/army-ums/internal/worker"
	"github.com/unitms/army-ums/pkg/database"
	"github.com/unitms/army-ums/pkg/utils"
)

func main() {
	configPath := "configs/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Army UMS server",
		zap.Int("port", cfg.Server.Port),
		zap.String("database", cfg.Database.Path))

	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Fatal("Failed to create data directory", zap.Error(err))
		}
	}

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Repositories
	userRepo := repository.NewUserRepository(db, logger)
	profileRepo := repository.NewProfileRepository(db, logger)
	requestRepo := repository.NewRequestRepository(db, logger)

	// Services
	authService := service.NewAuthService(userRepo, logger)
	profileService := service.NewProfileService(profileRepo, logger)
	mergeService := service.NewMergeService(profileRepo, requestRepo, cfg.Merge.MaxAttempts, logger)
	requestService := service.NewRequestService(requestRepo, userRepo, mergeService, logger)
	reportService := service.NewReportService(requestRepo, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background workers
	workerManager := worker.NewManager(logger)
	workerManager.Register(worker.NewMergeWorker(requestRepo, mergeService, worker.MergeWorkerConfig{
		PollInterval: cfg.Merge.PollInterval,
		BatchSize:    cfg.Merge.BatchSize,
		BaseBackoff:  cfg.Merge.BaseBackoff,
		MaxBackoff:   cfg.Merge.MaxBackoff,
	}, logger))

	if err := workerManager.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}
	defer workerManager.StopAll()

	server := httpserver.NewServer(
		cfg.Server,
		cfg.Auth,
		db,
		authService,
		profileService,
		requestService,
		reportService,
		logger,
	)

	// Shut down on SIGINT/SIGTERM
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Server exited")
}
