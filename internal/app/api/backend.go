package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apimclient "github.com/Apurer/opinions-api/internal/clients/http/apim"
	"github.com/Apurer/opinions-api/internal/clients/http/casestatus"
	lookupcache "github.com/Apurer/opinions-api/internal/domains/opinions/adapters/cache/redis"
	"github.com/Apurer/opinions-api/internal/domains/opinions/adapters/external/apim"
	"github.com/Apurer/opinions-api/internal/domains/opinions/adapters/memory"
	opinionspostgres "github.com/Apurer/opinions-api/internal/domains/opinions/adapters/persistence/postgres"
	"github.com/Apurer/opinions-api/internal/domains/opinions/application"
	"github.com/Apurer/opinions-api/internal/domains/opinions/ports"
	"github.com/Apurer/opinions-api/internal/platform/migrations"
	platformpostgres "github.com/Apurer/opinions-api/internal/platform/postgres"
	platformredis "github.com/Apurer/opinions-api/internal/platform/redis"
)

// Backend is the opinions application service wired to the adapters selected by Config.
type Backend struct {
	Service *application.Service
	closers []func()
	shared  bool
}

// SharesState reports whether the opinion store is visible to other processes. The
// in-memory fallback is private to one process, so an API and a worker cannot split
// a saga over it.
func (b *Backend) SharesState() bool {
	return b != nil && b.shared
}

// Close releases database and cache connections in reverse order of acquisition.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// BuildBackend selects postgres or in-memory persistence, the lookup resolver (optionally behind
// redis), and the remote collaborators. Missing endpoints fall back to in-memory stubs.
func BuildBackend(ctx context.Context, cfg Config, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Backend{}

	var (
		store       ports.Store
		idempotency ports.IdempotencyStore
		lookups     ports.LookupResolver
	)
	db, closeDB := platformpostgres.OpenOrFallback(ctx, cfg.PostgresDSN, logger)
	b.closers = append(b.closers, closeDB)
	if db != nil {
		b.shared = true
		store = opinionspostgres.NewStore(db)
		idempotency = opinionspostgres.NewIdempotencyStore(db)
		lookups = opinionspostgres.NewLookupResolver(db)
	} else {
		catalog, err := memoryCatalog(cfg.LookupSeedFile, logger)
		if err != nil {
			b.Close()
			return nil, err
		}
		store = memory.NewStore()
		idempotency = memory.NewIdempotencyStore()
		lookups = catalog
	}

	if cfg.RedisAddr != "" {
		client, err := platformredis.Connect(ctx, platformredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			logger.Warn("redis unavailable, lookups are not cached", slog.String("addr", cfg.RedisAddr), slog.String("error", err.Error()))
		} else {
			b.closers = append(b.closers, func() { _ = client.Close() })
			lookups = lookupcache.NewLookupCache(lookups, client,
				lookupcache.WithTTL(cfg.LookupCacheTTL),
				lookupcache.WithLogger(logger),
			)
			logger.Info("lookup cache configured with redis", slog.String("addr", cfg.RedisAddr))
		}
	}

	remotes, err := buildRemotes(cfg, logger)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.Service = application.NewService(store, lookups, remotes,
		application.WithIdempotencyStore(idempotency),
		application.WithLogger(logger),
	)
	return b, nil
}

func memoryCatalog(seedFile string, logger *slog.Logger) (*memory.LookupCatalog, error) {
	if seedFile == "" {
		logger.Warn("LOOKUP_SEED_FILE not set, attachment catalogues are empty")
		return memory.NewLookupCatalog(nil), nil
	}
	seed, err := migrations.LoadLookupSeed(seedFile)
	if err != nil {
		return nil, err
	}
	return memory.NewLookupCatalog(seed.Entries()), nil
}

func buildRemotes(cfg Config, logger *slog.Logger) (application.Remotes, error) {
	httpClient := &http.Client{
		Timeout:   cfg.RemoteTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	var remotes application.Remotes

	if cfg.APIMBaseURL == "" {
		logger.Warn("APIM_BASE_URL not set, external deliveries use an in-memory stub")
		delivery := memory.NewDeliveryService(nil)
		remotes.Design, remotes.Registration = delivery, delivery
	} else {
		client, err := apimclient.NewClient(cfg.APIMBaseURL, cfg.APIMSubscriptionKey, httpClient, apimclient.WithDesignID(cfg.SendDesignID))
		if err != nil {
			return application.Remotes{}, fmt.Errorf("configure delivery client: %w", err)
		}
		gateway := apim.NewDeliveryGateway(client)
		remotes.Design, remotes.Registration = gateway, gateway
	}

	if cfg.CaseStatusBaseURL == "" {
		logger.Warn("CASE_STATUS_BASE_URL not set, case status notifications use an in-memory stub")
		remotes.CaseStatus = memory.NewCaseStatusService()
	} else {
		client, err := casestatus.NewClient(cfg.CaseStatusBaseURL, httpClient)
		if err != nil {
			return application.Remotes{}, fmt.Errorf("configure case status client: %w", err)
		}
		remotes.CaseStatus = apim.NewCaseStatusNotifier(client)
	}
	return remotes, nil
}
