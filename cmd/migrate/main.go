package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/Apurer/opinions-api/internal/app/api"
	"github.com/Apurer/opinions-api/internal/platform/migrations"
	platformpostgres "github.com/Apurer/opinions-api/internal/platform/postgres"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	db, err := platformpostgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("POSTGRES_DSN not set or connection failed; cannot migrate: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	if err := migrations.Run(db); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}
	logger.Info("schema applied")

	if cfg.LookupSeedFile == "" {
		logger.Warn("LOOKUP_SEED_FILE not set, catalogues left untouched")
		return
	}
	seed, err := migrations.LoadLookupSeed(cfg.LookupSeedFile)
	if err != nil {
		log.Fatalf("failed to load lookup seed: %v", err)
	}
	if err := migrations.Seed(db, seed); err != nil {
		log.Fatalf("failed to seed catalogues: %v", err)
	}
	logger.Info("lookup catalogues seeded",
		slog.String("file", cfg.LookupSeedFile),
		slog.Int("elementTypes", len(seed.ElementTypes)),
		slog.Int("documentTypes", len(seed.DocumentTypes)))
}
