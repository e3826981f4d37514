package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/scholarworks/submission-pipeline/internal/adapters/http"
	"github.com/scholarworks/submission-pipeline/internal/bootstrap"
	"github.com/scholarworks/submission-pipeline/internal/config"
	"github.com/scholarworks/submission-pipeline/internal/core/domain"
	"github.com/scholarworks/submission-pipeline/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	classify := func(r *http.Request, fileName, content string) domain.Classification {
		return app.Advisory.ClassifyWithConfidence(r.Context(), fileName, content)
	}

	router := httpadapter.NewRouter(
		app.ProcessUC,
		app.ReportUC,
		app.ReportUC,
		classify,
		app.HTTPMetrics,
		cfg.DriveParentFolderID,
	).Handler()

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("api listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("api shutdown error: %v", err)
	}
}
