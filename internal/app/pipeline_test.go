package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samecityapp/hotelfinder/internal/app"
	"github.com/samecityapp/hotelfinder/internal/domain"
)

// ---- fakes ----

type fakeRepo struct {
	records     map[string]domain.VenueRecord
	upserts     int
	misses      []string
	failUpserts bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: map[string]domain.VenueRecord{}}
}

func key(name, location string) string { return name + "|" + location }

func (f *fakeRepo) Upsert(ctx context.Context, v domain.VenueRecord) error {
	if f.failUpserts {
		return errors.New("db down")
	}
	f.upserts++
	f.records[key(v.Name, v.LocationQuery)] = v
	return nil
}

func (f *fakeRepo) LogMiss(ctx context.Context, name, location, stage, reason string) error {
	f.misses = append(f.misses, stage)
	return nil
}

func (f *fakeRepo) FindByKey(ctx context.Context, name, location string) (domain.VenueRecord, error) {
	v, ok := f.records[key(name, location)]
	if !ok {
		return domain.VenueRecord{}, domain.ErrNotFound
	}
	return v, nil
}

func (f *fakeRepo) ListByLocation(ctx context.Context, location string) ([]domain.VenueRecord, error) {
	var out []domain.VenueRecord
	for _, v := range f.records {
		if v.LocationQuery == location {
			out = append(out, v)
		}
	}
	return out, nil
}

type fakeDiscoverer struct {
	candidates []domain.Candidate
	err        error
}

func (f *fakeDiscoverer) Discover(ctx context.Context, location string) ([]domain.Candidate, error) {
	return f.candidates, f.err
}

type fakeSites struct{ url string }

func (f *fakeSites) ResolveWebsite(ctx context.Context, name, location string) (string, error) {
	return f.url, nil
}

type fakeSocials struct {
	url   string
	calls int
}

func (f *fakeSocials) ResolveSocial(ctx context.Context, name string) (string, error) {
	f.calls++
	return f.url, nil
}

type fakeVerifier struct {
	profile *domain.SocialProfile
	calls   int
}

func (f *fakeVerifier) VerifyProfile(ctx context.Context, url string) (*domain.SocialProfile, error) {
	f.calls++
	return f.profile, nil
}

type panickyVerifier struct{}

func (panickyVerifier) VerifyProfile(ctx context.Context, url string) (*domain.SocialProfile, error) {
	panic("selector drift")
}

type fakeCache struct {
	store map[string][]domain.VenueRecord
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	if d, ok := dst.(*[]domain.VenueRecord); ok {
		*d = v
	}
	return true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]domain.VenueRecord{}
	}
	if recs, ok := v.([]domain.VenueRecord); ok {
		c.store[key] = recs
	}
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.dels = append(c.dels, key)
	delete(c.store, key)
	return nil
}

func ptr[T any](v T) *T { return &v }

func newPipeline(repo *fakeRepo, disc *fakeDiscoverer, site, social string, profile *domain.SocialProfile) *app.PipelineService {
	return app.NewPipelineService(
		repo,
		disc,
		&fakeSites{url: site},
		&fakeSocials{url: social},
		&fakeVerifier{profile: profile},
		&fakeCache{},
	)
}

// ---- classification properties ----

func TestClassify(t *testing.T) {
	cases := []struct {
		name      string
		instagram string
		website   string
		rating    *float64
		want      string
	}{
		{"no social, website and rating", "", "https://x.example", ptr(4.9), domain.StatusUncertain},
		{"social and website", "https://instagram.com/x", "https://x.example", nil, domain.StatusConfirmed},
		{"social and rating only", "https://instagram.com/x", "", ptr(4.1), domain.StatusConfirmed},
		{"social alone", "https://instagram.com/x", "", nil, domain.StatusUncertain},
		{"nothing", "", "", nil, domain.StatusUncertain},
	}
	for _, c := range cases {
		if got := domain.Classify(c.instagram, c.website, c.rating); got != c.want {
			t.Fatalf("%s: got %s want %s", c.name, got, c.want)
		}
	}
}

// ---- pipeline behavior ----

func TestRun_EnrichesAndPersistsConfirmed(t *testing.T) {
	repo := newFakeRepo()
	disc := &fakeDiscoverer{candidates: []domain.Candidate{
		{Name: "Hotel Aurora", Rating: ptr(4.6), Reviews: ptr(120)},
	}}
	p := newPipeline(repo, disc,
		"https://hotelaurora.example",
		"https://instagram.com/hotelaurora",
		&domain.SocialProfile{Username: "hotelaurora", Bio: "Boutique stay on the bay"},
	)

	sum, err := p.Run(context.Background(), "Kaş, Bodrum")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Discovered != 1 || sum.Processed != 1 || sum.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	rec, err := repo.FindByKey(context.Background(), "Hotel Aurora", "Kaş, Bodrum")
	if err != nil {
		t.Fatalf("FindByKey: %v", err)
	}
	if rec.Status != domain.StatusConfirmed {
		t.Fatalf("status: %s", rec.Status)
	}
	if rec.Website == nil || *rec.Website != "https://hotelaurora.example" {
		t.Fatalf("website: %+v", rec.Website)
	}
	if rec.Instagram == nil || *rec.Instagram != "https://instagram.com/hotelaurora" {
		t.Fatalf("instagram: %+v", rec.Instagram)
	}
	if len(rec.StepLog) == 0 || rec.StepLog[0] != "maps found: Hotel Aurora" {
		t.Fatalf("step log: %+v", rec.StepLog)
	}
}

func TestRun_NoSocialIsUncertain(t *testing.T) {
	repo := newFakeRepo()
	disc := &fakeDiscoverer{candidates: []domain.Candidate{
		{Name: "Hotel Aurora", Rating: ptr(4.6)},
	}}
	p := newPipeline(repo, disc, "https://hotelaurora.example", "", nil)

	if _, err := p.Run(context.Background(), "Kaş, Bodrum"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	rec, _ := repo.FindByKey(context.Background(), "Hotel Aurora", "Kaş, Bodrum")
	if rec.Status != domain.StatusUncertain {
		t.Fatalf("status: %s", rec.Status)
	}
	if rec.Instagram != nil {
		t.Fatalf("instagram should be absent: %v", *rec.Instagram)
	}
	if rec.Website == nil {
		t.Fatal("website should still be persisted")
	}
}

func TestRun_KeepsWebsiteFromDiscovery(t *testing.T) {
	repo := newFakeRepo()
	disc := &fakeDiscoverer{candidates: []domain.Candidate{
		{Name: "Hotel Aurora", Website: ptr("https://from-maps.example")},
	}}
	// Resolver would return a different site; discovery's value must win.
	p := newPipeline(repo, disc, "https://wrong.example", "https://instagram.com/hotelaurora", nil)

	if _, err := p.Run(context.Background(), "Kaş"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	rec, _ := repo.FindByKey(context.Background(), "Hotel Aurora", "Kaş")
	if rec.Website == nil || *rec.Website != "https://from-maps.example" {
		t.Fatalf("website: %+v", rec.Website)
	}
}

func TestRun_SocialLookupRunsEvenWithKnownWebsite(t *testing.T) {
	repo := newFakeRepo()
	disc := &fakeDiscoverer{candidates: []domain.Candidate{
		{Name: "Hotel Aurora", Website: ptr("https://from-maps.example")},
	}}
	socials := &fakeSocials{url: "https://instagram.com/hotelaurora"}
	p := app.NewPipelineService(repo, disc, &fakeSites{}, socials, &fakeVerifier{}, &fakeCache{})

	if _, err := p.Run(context.Background(), "Kaş"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if socials.calls != 1 {
		t.Fatalf("social resolver calls: %d", socials.calls)
	}
}

func TestRun_VerifierOnlyCalledWithSocialLink(t *testing.T) {
	repo := newFakeRepo()
	disc := &fakeDiscoverer{candidates: []domain.Candidate{{Name: "Hotel Aurora"}}}
	verifier := &fakeVerifier{}
	p := app.NewPipelineService(repo, disc, &fakeSites{}, &fakeSocials{url: ""}, verifier, &fakeCache{})

	if _, err := p.Run(context.Background(), "Kaş"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if verifier.calls != 0 {
		t.Fatalf("verifier must not run without a social link, calls=%d", verifier.calls)
	}
}

func TestRun_UpsertIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	disc := &fakeDiscoverer{candidates: []domain.Candidate{
		{Name: "Hotel Aurora", Rating: ptr(4.6)},
	}}
	// Uncertain outcome so the second run is not short-circuited by the
	// confirmed skip.
	p := newPipeline(repo, disc, "", "", nil)

	for i := 0; i < 2; i++ {
		if _, err := p.Run(context.Background(), "Kaş"); err != nil {
			t.Fatalf("Run %d: %v", i, err)
		}
	}
	if len(repo.records) != 1 {
		t.Fatalf("expected one record, got %d", len(repo.records))
	}
	if repo.upserts != 2 {
		t.Fatalf("expected both passes to upsert, got %d", repo.upserts)
	}
}

func TestRun_ConfirmedIsNeverReprocessed(t *testing.T) {
	repo := newFakeRepo()
	repo.records[key("Hotel Aurora", "Kaş")] = domain.VenueRecord{
		Name: "Hotel Aurora", LocationQuery: "Kaş", Status: domain.StatusConfirmed,
		Website: ptr("https://hotelaurora.example"),
	}
	disc := &fakeDiscoverer{candidates: []domain.Candidate{{Name: "Hotel Aurora"}}}
	socials := &fakeSocials{url: "https://instagram.com/other"}
	p := app.NewPipelineService(repo, disc, &fakeSites{}, socials, &fakeVerifier{}, &fakeCache{})

	sum, err := p.Run(context.Background(), "Kaş")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Skipped != 1 || sum.Processed != 0 {
		t.Fatalf("summary: %+v", sum)
	}
	if socials.calls != 0 || repo.upserts != 0 {
		t.Fatalf("confirmed venue was touched: socials=%d upserts=%d", socials.calls, repo.upserts)
	}
}

func TestRun_EmptyDiscoveryCompletesCleanly(t *testing.T) {
	repo := newFakeRepo()
	p := newPipeline(repo, &fakeDiscoverer{}, "", "", nil)

	sum, err := p.Run(context.Background(), "Nowhere")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Discovered != 0 || len(repo.records) != 0 {
		t.Fatalf("expected no writes: %+v, records=%d", sum, len(repo.records))
	}
}

func TestRun_CandidateFailureDoesNotStopBatch(t *testing.T) {
	repo := newFakeRepo()
	disc := &fakeDiscoverer{candidates: []domain.Candidate{
		{Name: "Hotel Panic"},
		{Name: "Hotel Calm", Rating: ptr(4.0)},
	}}
	p := app.NewPipelineService(repo, disc, &fakeSites{}, &fakeSocials{url: "https://instagram.com/x"}, panickyVerifier{}, &fakeCache{})

	sum, err := p.Run(context.Background(), "Kaş")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Failed != 2 {
		// both candidates hit the panicking verifier
		t.Fatalf("summary: %+v", sum)
	}
	if len(repo.misses) != 2 {
		t.Fatalf("expected miss log entries, got %v", repo.misses)
	}
}

func TestRun_PersistFailureAbandonsCandidateOnly(t *testing.T) {
	repo := newFakeRepo()
	repo.failUpserts = true
	disc := &fakeDiscoverer{candidates: []domain.Candidate{
		{Name: "Hotel A"}, {Name: "Hotel B"},
	}}
	p := newPipeline(repo, disc, "", "", nil)

	sum, err := p.Run(context.Background(), "Kaş")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Failed != 2 || sum.Processed != 0 {
		t.Fatalf("summary: %+v", sum)
	}
}

func TestRun_InvalidatesQueryCacheAfterUpsert(t *testing.T) {
	repo := newFakeRepo()
	cache := &fakeCache{store: map[string][]domain.VenueRecord{
		"venues:kaş": {{Name: "stale"}},
	}}
	disc := &fakeDiscoverer{candidates: []domain.Candidate{{Name: "Hotel Aurora"}}}
	p := app.NewPipelineService(repo, disc, &fakeSites{}, &fakeSocials{}, &fakeVerifier{}, cache)

	if _, err := p.Run(context.Background(), "Kaş"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(cache.dels) != 1 || cache.dels[0] != "venues:kaş" {
		t.Fatalf("cache dels: %v", cache.dels)
	}
}
