package main

import (
	"context"
	"database/sql"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"reviewhub/internal/adapters/observability"
	"reviewhub/internal/adapters/platform"
	redisad "reviewhub/internal/adapters/redis"
	"reviewhub/internal/app"
	"reviewhub/internal/domain"
	"reviewhub/internal/shared"
	mysqlstore "reviewhub/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Str("base", cfg.PlatformBase).
		Int("workers", cfg.Workers).
		Int("reviews", cfg.ReviewCount).
		Msg("ingestor starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	store := mysqlstore.New(db)

	client, err := platform.New(cfg.PlatformBase, cfg.PlatformKey, 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize platform client")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	ing := app.NewIngestService(client, store, cache)

	businesses, err := store.ConnectedBusinesses(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("listing connected businesses failed")
	}
	log.Info().Int("businesses", len(businesses)).Msg("connected businesses loaded")

	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup

	for _, b := range businesses {
		b := b

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, int64(1)); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(b domain.Business) {
			defer wg.Done()
			defer sem.Release(int64(1))

			if err := ing.IngestBusiness(ctx, b, cfg.ReviewCount); err != nil {
				log.Warn().Str("business", b.ID.String()).Err(err).Msg("ingest failed")
				return
			}
			log.Info().Str("business", b.ID.String()).Msg("ingest ok")
		}(b)
	}

	wg.Wait()
	log.Info().Msg("ingestion completed")
}
