package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"reviewhub/internal/adapters/auth"
	server "reviewhub/internal/adapters/http_server"
	"reviewhub/internal/adapters/observability"
	redisad "reviewhub/internal/adapters/redis"
	"reviewhub/internal/app"
	"reviewhub/internal/shared"
	mysqlstore "reviewhub/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	store := mysqlstore.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	sessions := auth.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	matches := app.NewMatchService(store, cache, cfg.CacheTTL)
	links := app.NewLinkService(store, cache)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Matches: matches, Links: links, Sessions: sessions})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
