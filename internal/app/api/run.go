package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	opinionsserver "github.com/Apurer/opinions-api/go"
	opinionsobs "github.com/Apurer/opinions-api/internal/domains/opinions/adapters/observability"
	opinionsworkflows "github.com/Apurer/opinions-api/internal/domains/opinions/adapters/workflows"
	opinionsports "github.com/Apurer/opinions-api/internal/domains/opinions/ports"
	platformobservability "github.com/Apurer/opinions-api/internal/platform/observability"
)

const serviceName = "opinions-api"

// Run boots the opinions HTTP API with observability, persistence and workflows wired, and
// serves until ctx is cancelled.
func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	backend, err := BuildBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()
	opinionService := opinionsobs.New(
		backend.Service,
		opinionsobs.WithLogger(logger),
		opinionsobs.WithTracer(instruments.Tracer("internal.opinions.application")),
		opinionsobs.WithMeter(instruments.Meter("internal.opinions.application")),
	)

	var workflows opinionsports.WorkflowOrchestrator = opinionsworkflows.NewInlineOpinionWorkflows(opinionService)
	if reason := inlineOnlyReason(backend); reason != "" {
		logger.Warn("running finalize inline", slog.String("reason", reason))
	} else if temporalClient, err := ConnectTemporal(cfg, instruments, "temporal-client"); err != nil {
		logger.Warn("Temporal workflows unavailable, running finalize inline", slog.String("error", err.Error()))
	} else {
		defer temporalClient.Close()
		workflows = opinionsworkflows.NewTemporalOpinionWorkflows(temporalClient)
		logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
	}

	router := opinionsserver.NewRouter(
		opinionsserver.NewOpinionAPI(opinionService, workflows, logger),
		opinionsserver.RouterOptions{Metrics: cfg.MetricsEnabled},
		otelgin.Middleware(serviceName),
	)
	return serve(ctx, &http.Server{Addr: cfg.Addr(), Handler: router, ReadHeaderTimeout: 10 * time.Second}, logger)
}

// inlineOnlyReason explains why finalization cannot be handed to a Temporal worker, or
// returns "" when it can.
func inlineOnlyReason(backend *Backend) string {
	if !backend.SharesState() {
		return "opinion store is in memory and not shared with the worker"
	}
	return ""
}

func serve(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("opinions API listening", slog.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("opinions API server exited", slog.String("addr", srv.Addr), slog.String("error", err.Error()))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down opinions API")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
