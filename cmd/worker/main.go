package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/worker"

	"github.com/Apurer/opinions-api/internal/app/api"
	platformobservability "github.com/Apurer/opinions-api/internal/platform/observability"
	opinionactivities "github.com/Apurer/opinions-api/internal/platform/temporal/activities/opinions"
	opinionworkflows "github.com/Apurer/opinions-api/internal/platform/temporal/workflows/opinions"
)

func main() {
	ctx := context.Background()
	const serviceName = "opinions-worker"
	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	backend, err := api.BuildBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to wire opinions backend", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer backend.Close()
	if !backend.SharesState() {
		logger.Error("worker needs POSTGRES_DSN: an in-memory store is not shared with the API")
		os.Exit(1)
	}

	temporalClient, err := api.ConnectTemporal(cfg, instruments, "temporal-worker")
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, opinionworkflows.FinalizationTaskQueue, worker.Options{})
	opinionworkflows.Register(w, opinionactivities.NewActivities(backend.Service))

	logger.Info("worker listening", slog.String("taskQueue", opinionworkflows.FinalizationTaskQueue), slog.String("namespace", cfg.TemporalNamespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}
