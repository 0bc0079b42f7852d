//go:build integration || !unit

package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/alicebob/miniredis/v2"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	httpserver "github.com/samecityapp/hotelfinder/internal/adapters/http_server"
	redisad "github.com/samecityapp/hotelfinder/internal/adapters/redis"
	"github.com/samecityapp/hotelfinder/internal/app"
	"github.com/samecityapp/hotelfinder/internal/domain"
	mysqlrepo "github.com/samecityapp/hotelfinder/internal/storage/mysql"
)

// ---------- helpers ----------

func pstr(s string) *string     { return &s }
func pfloat(f float64) *float64 { return &f }

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := os.Getenv("MIGRATIONS_DIR")
	if dir == "" {
		dir = filepath.Join("..", "..", "migrations")
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

// Canned scraping surfaces so the e2e path exercises everything except a
// real browser.
type cannedDiscoverer struct{ candidates []domain.Candidate }

func (c cannedDiscoverer) Discover(ctx context.Context, location string) ([]domain.Candidate, error) {
	return c.candidates, nil
}

type cannedSites struct{ byName map[string]string }

func (c cannedSites) ResolveWebsite(ctx context.Context, name, location string) (string, error) {
	return c.byName[name], nil
}

type cannedSocials struct{ byName map[string]string }

func (c cannedSocials) ResolveSocial(ctx context.Context, name string) (string, error) {
	return c.byName[name], nil
}

type cannedVerifier struct{ bio string }

func (c cannedVerifier) VerifyProfile(ctx context.Context, url string) (*domain.SocialProfile, error) {
	return &domain.SocialProfile{Username: "hotelaurora", Bio: c.bio}, nil
}

// ---------- the test ----------

func TestHTTP_EndToEnd_TriggerThenPoll(t *testing.T) {
	// Isolated MySQL container
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=hotelfinder",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "hotelfinder")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)

	mr := miniredis.RunT(t)
	cache := redisad.New(mr.Addr(), "", 0)
	repo := mysqlrepo.New(db)

	pipeline := app.NewPipelineService(
		repo,
		cannedDiscoverer{candidates: []domain.Candidate{
			{Name: "Hotel Aurora", Rating: pfloat(4.6), Address: pstr("Harbor Rd 1")},
			{Name: "Hotel Breeze"},
		}},
		cannedSites{byName: map[string]string{"Hotel Aurora": "https://hotelaurora.example"}},
		cannedSocials{byName: map[string]string{
			"Hotel Aurora": "https://instagram.com/hotelaurora",
			"Hotel Breeze": "https://instagram.com/hotelbreeze",
		}},
		cannedVerifier{bio: "Boutique stay on the bay"},
		cache,
	)
	runs := app.NewRunRegistry(pipeline)
	q := app.NewQueryService(repo, cache, 30*time.Second)

	srv := httpserver.New()
	srv.MountHandlers(&httpserver.Handlers{Q: q, Runs: runs})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	// Trigger returns immediately.
	res, err := http.Post(ts.URL+"/v1/searches", "application/json", strings.NewReader(`{"location":"Kaş, Bodrum"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusAccepted {
		t.Fatalf("trigger status %d", res.StatusCode)
	}

	// Poll until both records land.
	var list []domain.VenueRecord
	deadline := time.Now().Add(10 * time.Second)
	for {
		res, err := http.Get(ts.URL + "/v1/venues?location=" + strings.ReplaceAll("Kaş, Bodrum", " ", "%20"))
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		list = nil
		if err := json.NewDecoder(res.Body).Decode(&list); err != nil {
			t.Fatalf("decode: %v", err)
		}
		res.Body.Close()
		if len(list) == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("records never appeared, last: %+v", list)
		}
		time.Sleep(50 * time.Millisecond)
	}

	// Confirmed record first: social link + rating.
	first := list[0]
	if first.Name != "Hotel Aurora" || first.Status != domain.StatusConfirmed {
		t.Fatalf("unexpected first record: %+v", first)
	}
	if first.Website == nil || *first.Website != "https://hotelaurora.example" {
		t.Fatalf("website: %+v", first.Website)
	}
	if first.Instagram == nil || *first.Instagram != "https://instagram.com/hotelaurora" {
		t.Fatalf("instagram: %+v", first.Instagram)
	}

	// Social link but no website and no rating stays uncertain.
	second := list[1]
	if second.Name != "Hotel Breeze" || second.Status != domain.StatusUncertain {
		t.Fatalf("unexpected second record: %+v", second)
	}
}
