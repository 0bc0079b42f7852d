package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/samecityapp/hotelfinder/internal/adapters/observability"
	"github.com/samecityapp/hotelfinder/internal/domain"
)

// Candidate terminal states, used for counters and the run summary.
const (
	candidateProcessed = "processed"
	candidateSkipped   = "skipped"
	candidateFailed    = "failed"
)

type RunSummary struct {
	Discovered int
	Processed  int
	Skipped    int
	Failed     int
}

// PipelineService drives discovery, enrichment, classification and
// persistence for one location. Candidates are processed strictly
// sequentially; one bad candidate never stops the batch.
type PipelineService struct {
	repo     domain.VenueRepository
	disc     domain.Discoverer
	sites    domain.WebsiteResolver
	socials  domain.SocialResolver
	verifier domain.ProfileVerifier
	cache    domain.Cache
}

func NewPipelineService(
	repo domain.VenueRepository,
	disc domain.Discoverer,
	sites domain.WebsiteResolver,
	socials domain.SocialResolver,
	verifier domain.ProfileVerifier,
	cache domain.Cache,
) *PipelineService {
	return &PipelineService{repo: repo, disc: disc, sites: sites, socials: socials, verifier: verifier, cache: cache}
}

func (s *PipelineService) Run(ctx context.Context, location string) (RunSummary, error) {
	log.Info().Str("location", location).Msg("pipeline run starting")

	candidates, err := s.disc.Discover(ctx, location)
	if err != nil {
		return RunSummary{}, fmt.Errorf("discovery for %q: %w", location, err)
	}

	sum := RunSummary{Discovered: len(candidates)}
	for _, c := range candidates {
		switch s.processCandidate(ctx, location, c) {
		case candidateSkipped:
			sum.Skipped++
		case candidateFailed:
			sum.Failed++
		default:
			sum.Processed++
		}
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
	}

	log.Info().
		Str("location", location).
		Int("discovered", sum.Discovered).
		Int("processed", sum.Processed).
		Int("skipped", sum.Skipped).
		Int("failed", sum.Failed).
		Msg("pipeline run complete")
	return sum, nil
}

// processCandidate walks one candidate through the enrichment states and
// persists the outcome. Any failure, including a panic from a scraper, is
// contained here.
func (s *PipelineService) processCandidate(ctx context.Context, location string, c domain.Candidate) (state string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("name", c.Name).Interface("panic", r).Msg("candidate pipeline panicked")
			_ = s.repo.LogMiss(ctx, c.Name, location, "pipeline", fmt.Sprintf("panic: %v", r))
			observability.ObserveCandidate(candidateFailed)
			state = candidateFailed
		}
	}()

	existing, err := s.repo.FindByKey(ctx, c.Name, location)
	switch {
	case err == nil && existing.Status == domain.StatusConfirmed:
		// Terminal classification: never re-processed, never overwritten.
		log.Debug().Str("name", c.Name).Msg("skipping already-confirmed venue")
		observability.ObserveCandidate(candidateSkipped)
		return candidateSkipped
	case err != nil && err != domain.ErrNotFound:
		log.Warn().Err(err).Str("name", c.Name).Msg("existing-record lookup failed, continuing")
	}

	steps := []string{"maps found: " + c.Name}

	website := ""
	if c.Website != nil && *c.Website != "" {
		website = *c.Website
		steps = append(steps, "maps provided website: "+website)
	} else if found, _ := s.sites.ResolveWebsite(ctx, c.Name, location); found != "" {
		website = found
		steps = append(steps, "found website via google: "+website)
	} else {
		steps = append(steps, "no website found")
	}

	// Social lookup runs even when a website is already known; it is the
	// primary confidence signal, not a fallback.
	instagram, _ := s.socials.ResolveSocial(ctx, c.Name)
	if instagram != "" {
		steps = append(steps, "found instagram via google: "+instagram)
		if profile, _ := s.verifier.VerifyProfile(ctx, instagram); profile != nil {
			steps = append(steps, "instagram profile validated: "+truncate(profile.Bio, 50))
		} else {
			steps = append(steps, "instagram profile access failed or invalid")
		}
	} else {
		steps = append(steps, "no instagram profile found")
	}

	status := domain.Classify(instagram, website, c.Rating)
	rec := domain.VenueRecord{
		Name:          c.Name,
		LocationQuery: location,
		Address:       c.Address,
		Rating:        c.Rating,
		Reviews:       c.Reviews,
		Website:       optStr(website),
		Instagram:     optStr(instagram),
		Status:        status,
		StepLog:       steps,
	}

	if err := s.repo.Upsert(ctx, rec); err != nil {
		log.Error().Err(err).Str("name", c.Name).Msg("venue upsert failed")
		_ = s.repo.LogMiss(ctx, c.Name, location, "persist", err.Error())
		observability.ObserveCandidate(candidateFailed)
		return candidateFailed
	}

	// New record is visible to pollers on their next query.
	if s.cache != nil {
		_ = s.cache.Del(ctx, venuesCacheKey(location))
	}

	observability.ObserveCandidate(status)
	log.Info().Str("name", c.Name).Str("status", status).Msg("candidate persisted")
	return candidateProcessed
}

func venuesCacheKey(location string) string {
	return "venues:" + strings.ToLower(strings.TrimSpace(location))
}

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
