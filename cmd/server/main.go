package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"dockmatch/internal/claim"
	"dockmatch/internal/config"
	"dockmatch/internal/email/noop"
	"dockmatch/internal/email/ses"
	"dockmatch/internal/handler"
	"dockmatch/internal/ingest"
	"dockmatch/internal/matching"
	"dockmatch/internal/port"
	"dockmatch/internal/repository/postgres"
	"dockmatch/internal/router"
	"dockmatch/internal/service"
	s3storage "dockmatch/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		logrus.Fatal(err)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg.Log)

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	invoiceRepo := postgres.NewInvoiceRepo(db)
	noteRepo := postgres.NewDeliveryNoteRepo(db)
	pairRepo := postgres.NewMatchingPairRepo(db)
	profileRepo := postgres.NewToleranceProfileRepo(db)

	// Claim store: Redis when configured, in-memory otherwise
	var claims port.ClaimStore
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		claims = claim.NewRedisStore(rdb)
		logger.WithField("addr", cfg.Redis.Addr).Info("using redis claim store")
	} else {
		claims = claim.NewMemoryStore()
		logger.Info("using in-memory claim store")
	}

	// Initialize storage
	s3Client, err := s3storage.NewS3Client(&cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	// Notifier
	var notifier port.Notifier
	if cfg.Email.Provider == "ses" {
		notifier, err = ses.NewSESNotifier(cfg.Email.Region, cfg.Email.FromAddress, cfg.Email.FromName, cfg.Email.OpsAddress)
		if err != nil {
			return fmt.Errorf("failed to initialize SES notifier: %w", err)
		}
	} else {
		notifier = noop.NewNoopNotifier(logger)
	}

	// Initialize services
	reconSvc, err := service.NewReconService(
		invoiceRepo, noteRepo, pairRepo, profileRepo, claims, notifier,
		tolerancesFromConfig(cfg.Matching), thresholdsFromConfig(cfg.Matching),
		cfg.Recon.Concurrency, logger,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize recon service: %w", err)
	}
	ingestSvc := service.NewIngestService(invoiceRepo, noteRepo, reconSvc, logger)
	exportSvc := service.NewExportService(reconSvc, invoiceRepo, s3Client, service.ExportStorageConfig{
		Bucket:        cfg.S3.Bucket,
		ReportPrefix:  cfg.S3.ReportPrefix,
		PresignExpiry: cfg.S3.PresignExpiry,
		SheetName:     cfg.Export.SheetName,
	}, logger)

	// Initialize handlers
	recordH := handler.NewRecordHandler(ingestSvc)
	matchingH := handler.NewMatchingHandler(reconSvc, exportSvc, profileRepo)
	healthH := handler.NewHealthHandler(db)

	// Setup router
	r := router.Setup(recordH, matchingH, healthH, cfg.CORS.AllowedOrigins, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Drop-folder poll worker
	if cfg.Ingest.Enabled {
		source := ingest.NewDropFolder(s3Client, cfg.S3.Bucket,
			cfg.S3.IncomingPrefix, cfg.S3.ProcessedPrefix, cfg.S3.FailedPrefix)
		worker := service.NewIngestWorker(source, ingestSvc, service.IngestWorkerConfig{
			PollInterval: time.Duration(cfg.Ingest.PollIntervalSecs) * time.Second,
			BatchSize:    cfg.Ingest.BatchSize,
		}, logger)
		go worker.Start(ctx)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.Server.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func newLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

func tolerancesFromConfig(cfg config.MatchingConfig) matching.Tolerances {
	return matching.Tolerances{
		DateWindowDays:     cfg.DateWindowDays,
		AmountProximityPct: cfg.AmountProximityPct,
		QtyTolRel:          cfg.QtyTolRel,
		QtyTolAbs:          cfg.QtyTolAbs,
		PriceTolRel:        cfg.PriceTolRel,
		FuzzyDescThreshold: cfg.FuzzyDescThreshold,
	}
}

func thresholdsFromConfig(cfg config.MatchingConfig) matching.Thresholds {
	return matching.Thresholds{
		Confirm:        cfg.ConfirmThreshold,
		ConflictBand:   cfg.ConflictBand,
		CandidateFloor: cfg.CandidateFloor,
	}
}
