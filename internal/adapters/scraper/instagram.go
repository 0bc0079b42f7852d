package scraper

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/samecityapp/hotelfinder/internal/adapters/observability"
	"github.com/samecityapp/hotelfinder/internal/domain"
)

// InstagramVerifier loads a resolved profile URL and pulls a minimal
// content signal. It confirms the link resolves to some live profile, not
// that the profile belongs to the venue.
type InstagramVerifier struct {
	broker domain.PageBroker
}

func NewInstagramVerifier(b domain.PageBroker) *InstagramVerifier {
	return &InstagramVerifier{broker: b}
}

func (v *InstagramVerifier) VerifyProfile(ctx context.Context, profileURL string) (*domain.SocialProfile, error) {
	start := time.Now()

	page, err := v.broker.AcquirePage(ctx)
	if err != nil {
		observability.ObserveScrape("instagram", "error", time.Since(start))
		return nil, nil
	}
	defer page.Close()

	// DOM content only: profile pages hold long-lived connections that keep
	// a full-load wait hanging.
	if err := page.NavigateDOMReady(ctx, profileURL); err != nil {
		log.Warn().Err(err).Str("url", profileURL).Msg("profile page unreachable")
		observability.ObserveScrape("instagram", "error", time.Since(start))
		return nil, nil
	}

	title, err := page.Title(ctx)
	if err == nil && isNotFoundTitle(title) {
		observability.ObserveScrape("instagram", "empty", time.Since(start))
		return nil, nil
	}

	var bio string
	if err := page.Evaluate(ctx, ogDescriptionScript, &bio); err != nil {
		log.Warn().Err(err).Str("url", profileURL).Msg("profile meta read failed")
		observability.ObserveScrape("instagram", "error", time.Since(start))
		return nil, nil
	}

	observability.ObserveScrape("instagram", "found", time.Since(start))
	return &domain.SocialProfile{
		Username: UsernameFromProfileURL(profileURL),
		Bio:      bio,
		// Verified badge and follower counts need an authenticated session.
		Verified:  false,
		Followers: 0,
	}, nil
}

func isNotFoundTitle(title string) bool {
	t := strings.ToLower(title)
	return strings.Contains(t, "page not found") || strings.Contains(t, "page isn't available")
}

// UsernameFromProfileURL takes the last non-empty path segment.
func UsernameFromProfileURL(profileURL string) string {
	trimmed := strings.TrimRight(profileURL, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

const ogDescriptionScript = `(function () {
  const meta = document.querySelector('meta[property="og:description"]');
  return meta ? (meta.getAttribute('content') || '') : '';
})();`
