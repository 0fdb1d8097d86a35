package application

import (
	"log/slog"
	"time"

	"github.com/Apurer/opinions-api/internal/domains/opinions/ports"
)

// Remotes groups the collaborator services the orchestrator calls.
type Remotes struct {
	Design       ports.SendDesign
	Registration ports.SendRegistration
	CaseStatus   ports.CaseStatus
}

// Service orchestrates the opinion lifecycle: creation, finalization and compensation.
type Service struct {
	store       ports.Store
	lookups     ports.LookupResolver
	remotes     Remotes
	idempotency ports.IdempotencyStore
	logger      *slog.Logger
	now         func() time.Time
}

// Option customises the service.
type Option func(*Service)

// WithClock overrides the time source for deterministic testing.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIdempotencyStore enables Idempotency-Key replay on request creation.
func WithIdempotencyStore(store ports.IdempotencyStore) Option {
	return func(s *Service) {
		s.idempotency = store
	}
}

// WithLogger sets the logger for failures that do not change the outcome of a call.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService wires the opinions service with its dependencies.
func NewService(store ports.Store, lookups ports.LookupResolver, remotes Remotes, opts ...Option) *Service {
	s := &Service{
		store:   store,
		lookups: lookups,
		remotes: remotes,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

var (
	_ ports.Service          = (*Service)(nil)
	_ ports.FinalizationSaga = (*Service)(nil)
)
