package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scholarworks/submission-pipeline/internal/bootstrap"
	"github.com/scholarworks/submission-pipeline/internal/config"
	"github.com/scholarworks/submission-pipeline/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	if cfg.DriveParentFolderID == "" {
		log.Fatalf("DRIVE_PARENT_FOLDER_ID is required")
	}

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: app.PipelineMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()

	// Submissions a crashed run left in flight must become retryable
	// before this batch starts.
	recovered, err := app.ProcessUC.RecoverInterrupted(ctx)
	if err != nil {
		log.Fatalf("recover interrupted submissions: %v", err)
	}
	if recovered > 0 {
		logger.Warn("reset interrupted submissions", "count", recovered)
	}

	ids, err := app.ProcessUC.ProcessSubmissions(ctx, cfg.DriveParentFolderID)
	if err != nil {
		logger.Error("batch ended early", "error", err, "processed", len(ids))
	} else {
		logger.Info("batch complete", "processed", len(ids))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics shutdown error: %v", err)
	}
}
