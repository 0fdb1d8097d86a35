package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	optypes "github.com/Apurer/opinions-api/internal/domains/opinions/application/types"
	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
	"github.com/Apurer/opinions-api/internal/domains/opinions/ports"
)

const tracerName = "github.com/Apurer/opinions-api/internal/domains/opinions/adapters/observability/service"

// Service decorates the opinions application port with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

// WithLogger injects a slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTracer injects a tracer implementation.
func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

// WithMeter injects the meter used to create service metrics instruments.
func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wires a decorator around the core service.
func New(inner ports.Service, opts ...Option) *Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  defaultLogger(),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if s.logger == nil {
		s.logger = defaultLogger()
	}
	return s
}

func (s *Service) RequestOpinions(ctx context.Context, input optypes.RequestOpinionsInput) (int64, error) {
	ctx, span := s.startSpan(ctx, "Service.RequestOpinions",
		attribute.String("opinion.folio", input.Folio),
		attribute.Int("opinion.receptors", len(input.Receptors)),
	)
	defer span.End()

	s.logInfo(ctx, "requesting opinions", slog.String("folio", input.Folio), slog.Int("receptors", len(input.Receptors)))
	id, err := s.inner.RequestOpinions(ctx, input)
	if err != nil {
		return 0, s.handleError(ctx, span, err, "failed to request opinions", slog.String("folio", input.Folio))
	}
	span.SetAttributes(attribute.Int64("opinion.id", id))
	s.metrics.recordRequested(ctx, len(input.Receptors))
	s.logInfo(ctx, "opinions requested", slog.String("folio", input.Folio), slog.Int64("opinion.id", id))
	return id, nil
}

func (s *Service) ListByFolio(ctx context.Context, folio string) ([]optypes.OpinionSummary, error) {
	ctx, span := s.startSpan(ctx, "Service.ListByFolio", attribute.String("opinion.folio", folio))
	defer span.End()

	result, err := s.inner.ListByFolio(ctx, folio)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list opinions", slog.String("folio", folio))
	}
	span.SetAttributes(attribute.Int("opinion.result.count", len(result)))
	return result, nil
}

func (s *Service) GetReceptorDetail(ctx context.Context, receptorID int64) (*optypes.OpinionDetail, error) {
	ctx, span := s.startSpan(ctx, "Service.GetReceptorDetail", attribute.Int64("receptor.id", receptorID))
	defer span.End()

	result, err := s.inner.GetReceptorDetail(ctx, receptorID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load receptor detail", slog.Int64("receptor.id", receptorID))
	}
	return result, nil
}

func (s *Service) GetExternalOpinion(ctx context.Context, envioID string) (*optypes.ExternalOpinion, error) {
	ctx, span := s.startSpan(ctx, "Service.GetExternalOpinion", attribute.String("receptor.envio_id", envioID))
	defer span.End()

	result, err := s.inner.GetExternalOpinion(ctx, envioID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load external opinion", slog.String("envio_id", envioID))
	}
	return result, nil
}

func (s *Service) AddAttachments(ctx context.Context, input optypes.AddAttachmentsInput) error {
	ctx, span := s.startSpan(ctx, "Service.AddAttachments",
		attribute.Int64("opinion.id", input.OpinionID),
		attribute.Int("attachment.count", len(input.Attachments)),
	)
	defer span.End()

	if err := s.inner.AddAttachments(ctx, input); err != nil {
		return s.handleError(ctx, span, err, "failed to add attachments", slog.Int64("opinion.id", input.OpinionID))
	}
	s.metrics.recordAttachments(ctx, len(input.Attachments))
	s.logInfo(ctx, "attachments added", slog.Int64("opinion.id", input.OpinionID), slog.Int("count", len(input.Attachments)))
	return nil
}

// FinalizeInternal counts a failure of kind RemoteService as a compensation, since that is
// the only way a finalize fails after commit.
func (s *Service) FinalizeInternal(ctx context.Context, input optypes.FinalizeInternalInput) error {
	ctx, span := s.startSpan(ctx, "Service.FinalizeInternal", attribute.Int64("receptor.id", input.ReceptorID))
	defer span.End()

	s.logInfo(ctx, "finalizing internal opinion", slog.Int64("receptor.id", input.ReceptorID))
	if err := s.inner.FinalizeInternal(ctx, input); err != nil {
		s.recordCompensation(ctx, err, "internal")
		return s.handleError(ctx, span, err, "failed to finalize internal opinion", slog.Int64("receptor.id", input.ReceptorID))
	}
	s.metrics.recordFinalized(ctx, "internal")
	s.logInfo(ctx, "internal opinion finalized", slog.Int64("receptor.id", input.ReceptorID))
	return nil
}

func (s *Service) FinalizeExternal(ctx context.Context, input optypes.FinalizeExternalInput) error {
	ctx, span := s.startSpan(ctx, "Service.FinalizeExternal", attribute.String("receptor.envio_id", input.EnvioID))
	defer span.End()

	s.logInfo(ctx, "finalizing external opinion", slog.String("envio_id", input.EnvioID))
	if err := s.inner.FinalizeExternal(ctx, input); err != nil {
		s.recordCompensation(ctx, err, "external")
		return s.handleError(ctx, span, err, "failed to finalize external opinion", slog.String("envio_id", input.EnvioID))
	}
	s.metrics.recordFinalized(ctx, "external")
	s.logInfo(ctx, "external opinion finalized", slog.String("envio_id", input.EnvioID))
	return nil
}

func (s *Service) UpdateOpinion(ctx context.Context, input optypes.UpdateOpinionInput) (optypes.UpdateResult, error) {
	ctx, span := s.startSpan(ctx, "Service.UpdateOpinion", attribute.Int64("opinion.id", input.OpinionID))
	defer span.End()

	result, err := s.inner.UpdateOpinion(ctx, input)
	if err != nil {
		return result, s.handleError(ctx, span, err, "failed to update opinion", slog.Int64("opinion.id", input.OpinionID))
	}
	span.SetAttributes(attribute.Bool("opinion.found", result.Found))
	s.logInfo(ctx, "opinion update processed", slog.Int64("opinion.id", input.OpinionID), slog.String("message", result.Message))
	return result, nil
}

func (s *Service) PendingSignatureFolios(ctx context.Context) ([]string, error) {
	ctx, span := s.startSpan(ctx, "Service.PendingSignatureFolios")
	defer span.End()

	result, err := s.inner.PendingSignatureFolios(ctx)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list pending signature folios")
	}
	span.SetAttributes(attribute.Int("opinion.result.count", len(result)))
	return result, nil
}

func (s *Service) recordCompensation(ctx context.Context, err error, path string) {
	if domain.KindOf(err) == domain.KindRemoteService {
		s.metrics.recordCompensated(ctx, path)
	}
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	attrs = append(attrs, slog.String("error", err.Error()), slog.String("kind", domain.KindOf(err).String()))
	level := slog.LevelError
	switch domain.KindOf(err) {
	case domain.KindNotFound, domain.KindConflict, domain.KindInvalidOperation:
		level = slog.LevelWarn
	}
	s.logger.LogAttrs(ctx, level, msg, attrs...)
	return err
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type serviceMetrics struct {
	requested        metric.Int64Counter
	finalized        metric.Int64Counter
	compensated      metric.Int64Counter
	attachmentsAdded metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	requested, _ := m.Int64Counter("opinions.service.requested", metric.WithDescription("Number of opinion requests created"))
	finalized, _ := m.Int64Counter("opinions.service.finalized", metric.WithDescription("Number of receptor responses recorded"))
	compensated, _ := m.Int64Counter("opinions.service.compensated", metric.WithDescription("Number of finalizes reverted after a case status failure"))
	attachmentsAdded, _ := m.Int64Counter("opinions.service.attachments_added", metric.WithDescription("Number of files attached to opinions"))
	return serviceMetrics{
		requested:        requested,
		finalized:        finalized,
		compensated:      compensated,
		attachmentsAdded: attachmentsAdded,
	}
}

func (m serviceMetrics) recordRequested(ctx context.Context, receptors int) {
	addCounter(ctx, m.requested, 1, attribute.Int("opinion.receptors", receptors))
}

func (m serviceMetrics) recordFinalized(ctx context.Context, path string) {
	addCounter(ctx, m.finalized, 1, attribute.String("receptor.path", path))
}

func (m serviceMetrics) recordCompensated(ctx context.Context, path string) {
	addCounter(ctx, m.compensated, 1, attribute.String("receptor.path", path))
}

func (m serviceMetrics) recordAttachments(ctx context.Context, count int) {
	addCounter(ctx, m.attachmentsAdded, int64(count))
}

func addCounter(ctx context.Context, counter metric.Int64Counter, value int64, attrs ...attribute.KeyValue) {
	if counter == nil || value == 0 {
		return
	}
	counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

var _ ports.Service = (*Service)(nil)
