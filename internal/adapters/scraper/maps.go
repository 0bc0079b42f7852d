package scraper

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/samecityapp/hotelfinder/internal/adapters/observability"
	"github.com/samecityapp/hotelfinder/internal/domain"
)

const (
	mapsSearchBase = "https://www.google.com/maps/search/"
	feedSelector   = `div[role="feed"]`
	feedTimeout    = 10 * time.Second
)

var (
	ratingRe  = regexp.MustCompile(`([0-9.]+) stars`)
	reviewsRe = regexp.MustCompile(`([0-9,]+) reviews`)
)

// MapsDiscoverer walks a maps search results feed and extracts named
// candidates. Absence of a feed is a valid empty outcome, not an error.
type MapsDiscoverer struct {
	broker      domain.PageBroker
	scrollPass  int
	settleDelay time.Duration
}

func NewMapsDiscoverer(b domain.PageBroker, scrollPasses int, settleDelay time.Duration) *MapsDiscoverer {
	if scrollPasses <= 0 {
		scrollPasses = 5
	}
	if settleDelay <= 0 {
		settleDelay = 2 * time.Second
	}
	return &MapsDiscoverer{broker: b, scrollPass: scrollPasses, settleDelay: settleDelay}
}

func (d *MapsDiscoverer) Discover(ctx context.Context, location string) ([]domain.Candidate, error) {
	start := time.Now()
	query := "hotels in " + location
	log.Info().Str("query", query).Msg("maps discovery starting")

	page, err := d.broker.AcquirePage(ctx)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	if err := page.Navigate(ctx, mapsSearchBase+url.QueryEscape(query)); err != nil {
		observability.ObserveScrape("maps", "error", time.Since(start))
		return nil, err
	}

	if err := page.WaitVisible(ctx, feedSelector, feedTimeout); err != nil {
		// No feed: maybe a single-result page or nothing at all.
		log.Warn().Str("location", location).Msg("maps results feed never appeared")
		observability.ObserveScrape("maps", "empty", time.Since(start))
		return nil, nil
	}

	// Scroll until the feed height stops growing or the pass cap is hit.
	prevHeight := -1.0
	for i := 0; i < d.scrollPass; i++ {
		if err := page.Evaluate(ctx, feedScrollScript, nil); err != nil {
			break
		}
		if !sleepCtx(ctx, d.settleDelay) {
			return nil, ctx.Err()
		}
		var h float64
		if err := page.Evaluate(ctx, feedHeightScript, &h); err != nil {
			break
		}
		if h == prevHeight {
			break
		}
		prevHeight = h
	}

	var raw []rawCandidate
	if err := page.Evaluate(ctx, extractCandidatesScript, &raw); err != nil {
		observability.ObserveScrape("maps", "error", time.Since(start))
		return nil, err
	}

	out := normalizeCandidates(raw)
	outcome := "found"
	if len(out) == 0 {
		outcome = "empty"
	}
	observability.ObserveScrape("maps", outcome, time.Since(start))
	log.Info().Str("location", location).Int("candidates", len(out)).Msg("maps discovery complete")
	return out, nil
}

// rawCandidate is what the in-page script hands back: strings only, parsed
// on the Go side so a markup drift degrades to "unknown" instead of failing
// the extraction.
type rawCandidate struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	RatingLabel string `json:"ratingLabel"`
	Website     string `json:"website"`
}

func normalizeCandidates(raw []rawCandidate) []domain.Candidate {
	index := make(map[string]int, len(raw))
	var out []domain.Candidate

	for _, item := range raw {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			continue // aria-label is the only reliable identity signal
		}
		c := domain.Candidate{
			Name:    name,
			Address: optStr(item.Address),
			Rating:  parseRatingLabel(item.RatingLabel),
			Reviews: parseReviewsLabel(item.RatingLabel),
			Website: optStr(item.Website),
		}
		if i, dup := index[name]; dup {
			out[i] = c // last occurrence wins
			continue
		}
		index[name] = len(out)
		out = append(out, c)
	}
	return out
}

// parseRatingLabel pulls the float out of a "4.6 stars 120 reviews" style
// accessible label. Returns nil when the pattern does not match.
func parseRatingLabel(label string) *float64 {
	m := ratingRe.FindStringSubmatch(label)
	if m == nil {
		return nil
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil || f < 0 || f > 5 {
		return nil
	}
	return &f
}

func parseReviewsLabel(label string) *int {
	m := reviewsRe.FindStringSubmatch(label)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return nil
	}
	return &n
}

func optStr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// sleepCtx waits for d or returns false if ctx is done first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

const feedScrollScript = `(function () {
  const feed = document.querySelector('div[role="feed"]');
  if (feed) {
    feed.scrollTo(0, feed.scrollHeight);
  }
})();`

const feedHeightScript = `(function () {
  const feed = document.querySelector('div[role="feed"]');
  return feed ? feed.scrollHeight : 0;
})();`

// Cards are found by their place-detail anchor; class names on the feed are
// obfuscated and unstable, the anchor href pattern is not.
const extractCandidatesScript = `(function () {
  const items = [];
  const links = Array.from(document.querySelectorAll('a[href*="/maps/place/"]'));
  for (const link of links) {
    const card = link.closest('div[role="article"]') || (link.parentElement && link.parentElement.parentElement);
    if (!card) continue;

    const name = link.getAttribute('aria-label') || '';
    const ratingEl = card.querySelector('span[role="img"]');
    const ratingLabel = ratingEl ? (ratingEl.getAttribute('aria-label') || '') : '';
    const siteEl = card.querySelector('a[data-value="Website"]');
    const website = siteEl ? (siteEl.getAttribute('href') || '') : '';

    items.push({ name: name, address: '', ratingLabel: ratingLabel, website: website });
  }
  return items;
})();`
