package main

import (
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"github.com/samecityapp/hotelfinder/internal/adapters/browser"
	server "github.com/samecityapp/hotelfinder/internal/adapters/http_server"
	"github.com/samecityapp/hotelfinder/internal/adapters/observability"
	redisad "github.com/samecityapp/hotelfinder/internal/adapters/redis"
	"github.com/samecityapp/hotelfinder/internal/adapters/scraper"
	"github.com/samecityapp/hotelfinder/internal/app"
	"github.com/samecityapp/hotelfinder/internal/shared"
	mysqlrepo "github.com/samecityapp/hotelfinder/internal/storage/mysql"
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
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	session := browser.NewSession(cfg.Headless, cfg.MaxPages, cfg.NavTimeout)
	defer session.Shutdown()

	disc := scraper.NewMapsDiscoverer(session, cfg.ScrollPass, cfg.SettleDelay)
	google := scraper.NewGoogleResolver(session, cfg.SearchRPS)
	verifier := scraper.NewInstagramVerifier(session)

	pipeline := app.NewPipelineService(repo, disc, google, google, verifier, cache)
	runs := app.NewRunRegistry(pipeline)
	q := app.NewQueryService(repo, cache, cfg.CacheTTL)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, Runs: runs})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down")
	_ = httpSrv.Close()
}
