package main

import (
	"context"
	"database/sql"
	"os"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/samecityapp/hotelfinder/internal/adapters/browser"
	"github.com/samecityapp/hotelfinder/internal/adapters/observability"
	redisad "github.com/samecityapp/hotelfinder/internal/adapters/redis"
	"github.com/samecityapp/hotelfinder/internal/adapters/scraper"
	"github.com/samecityapp/hotelfinder/internal/app"
	"github.com/samecityapp/hotelfinder/internal/shared"
	mysqlrepo "github.com/samecityapp/hotelfinder/internal/storage/mysql"
)

// One-shot runner: executes the pipeline for each location passed as an
// argument. Locations run in parallel up to the page cap; candidates
// within a location stay sequential.
func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)

	locations := os.Args[1:]
	if len(locations) == 0 {
		log.Fatal().Msg("usage: scout <location> [location...]")
	}

	log.Info().
		Int("locations", len(locations)).
		Int64("pages", cfg.MaxPages).
		Msg("scout starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	session := browser.NewSession(cfg.Headless, cfg.MaxPages, cfg.NavTimeout)
	defer session.Shutdown()

	disc := scraper.NewMapsDiscoverer(session, cfg.ScrollPass, cfg.SettleDelay)
	google := scraper.NewGoogleResolver(session, cfg.SearchRPS)
	verifier := scraper.NewInstagramVerifier(session)
	pipeline := app.NewPipelineService(repo, disc, google, google, verifier, cache)

	sem := semaphore.NewWeighted(cfg.MaxPages)
	var wg sync.WaitGroup

	for _, loc := range locations {
		loc := loc

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(location string) {
			defer wg.Done()
			defer sem.Release(1)

			sum, err := pipeline.Run(ctx, location)
			if err != nil {
				log.Warn().Str("location", location).Err(err).Msg("run failed")
				return
			}
			log.Info().
				Str("location", location).
				Int("discovered", sum.Discovered).
				Int("processed", sum.Processed).
				Int("skipped", sum.Skipped).
				Int("failed", sum.Failed).
				Msg("run ok")
		}(loc)
	}

	wg.Wait()
	log.Info().Msg("scout completed")
}
