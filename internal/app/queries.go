package app

import (
	"context"
	"time"

	"github.com/samecityapp/hotelfinder/internal/domain"
)

// QueryService serves the polling reader. Ordering (confirmed first, then
// rating descending with missing rating as zero) comes from the store; the
// cache only shortens the poll interval's load.
type QueryService struct {
	repo     domain.VenueRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.VenueRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

func (s *QueryService) ListVenues(ctx context.Context, location string) ([]domain.VenueRecord, error) {
	key := venuesCacheKey(location)
	var cached []domain.VenueRecord
	if ok, _ := s.cache.Get(ctx, key, &cached); ok {
		return cached, nil
	}

	out, err := s.repo.ListByLocation(ctx, location)
	if err != nil {
		return nil, err
	}

	// copy before caching so callers can't mutate the cached slice
	cp := make([]domain.VenueRecord, len(out))
	copy(cp, out)
	_ = s.cache.Set(ctx, key, cp, int(s.cacheTTL.Seconds()))
	return out, nil
}
