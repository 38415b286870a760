package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"physioreport/internal/config"
	"physioreport/internal/logging"
	"physioreport/internal/metrics"
	"physioreport/internal/remote"
	"physioreport/internal/report"
	"physioreport/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.Must(cfg.LogLevel, cfg.Environment)
	defer logger.Sync()

	if err := os.MkdirAll(cfg.ScratchDir, 0o755); err != nil {
		logger.Fatal("Failed to create scratch dir", zap.String("dir", cfg.ScratchDir), zap.Error(err))
	}

	var analyzer web.Analyzer
	if cfg.IsRemote() {
		client, err := remote.New(cfg.AnalysisURL, cfg.AnalysisTimeout, cfg.MaxReportBytes(), logger.Named("remote"))
		if err != nil {
			logger.Fatal("Failed to create analysis client", zap.Error(err))
		}
		analyzer = client
	} else {
		analyzer = report.NewGenerator(cfg.ScratchDir, nil, logger.Named("report"))
	}

	var collector *metrics.Collector
	if cfg.EnableMetrics {
		collector = metrics.NewCollector("physioreport")
	}

	server := web.NewServer(analyzer, web.Options{
		Mode:           cfg.AnalysisMode,
		ScratchDir:     cfg.ScratchDir,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		EnableCORS:     cfg.EnableCORS,
		CORSOrigins:    cfg.CORSOrigins,
		Debug:          cfg.IsDevelopment(),
	}, logger, collector)

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
			zap.String("mode", cfg.AnalysisMode),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
}
