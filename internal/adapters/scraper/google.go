package scraper

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/samecityapp/hotelfinder/internal/adapters/observability"
	"github.com/samecityapp/hotelfinder/internal/domain"
)

const (
	googleSearchBase = "https://www.google.com/search?q="
	resultsSelector  = "#search"
	resultsTimeout   = 10 * time.Second
)

// otaDomains are booking/listing/metasearch hosts that outrank most hotels'
// own sites; a result whose hostname contains any of these is never the
// official website.
var otaDomains = []string{
	"booking.com", "hotels.com", "tripadvisor", "expedia", "trivago", "agoda",
	"kayak", "skyscanner", "etstur", "jollytur", "tatilbudur", "odamax", "otelz",
}

// GoogleResolver answers both website and social lookups against a general
// search surface. One shared limiter paces all queries; any fetch failure
// folds into "not found".
type GoogleResolver struct {
	broker domain.PageBroker
	rl     *rate.Limiter
}

func NewGoogleResolver(b domain.PageBroker, rps int) *GoogleResolver {
	if rps <= 0 {
		rps = 1
	}
	return &GoogleResolver{broker: b, rl: rate.NewLimiter(rate.Limit(rps), rps)}
}

func (g *GoogleResolver) ResolveWebsite(ctx context.Context, name, location string) (string, error) {
	start := time.Now()
	query := name + " " + location + " official website"
	html, err := g.fetchResults(ctx, query)
	if err != nil {
		log.Warn().Err(err).Str("name", name).Msg("website lookup failed")
		observability.ObserveScrape("google_web", "error", time.Since(start))
		return "", nil
	}
	link := FirstOfficialSite(html)
	observability.ObserveScrape("google_web", outcomeOf(link), time.Since(start))
	return link, nil
}

func (g *GoogleResolver) ResolveSocial(ctx context.Context, name string) (string, error) {
	start := time.Now()
	query := name + " site:instagram.com"
	html, err := g.fetchResults(ctx, query)
	if err != nil {
		log.Warn().Err(err).Str("name", name).Msg("instagram lookup failed")
		observability.ObserveScrape("google_social", "error", time.Since(start))
		return "", nil
	}
	link := FirstInstagramProfile(html)
	observability.ObserveScrape("google_social", outcomeOf(link), time.Since(start))
	return link, nil
}

func outcomeOf(link string) string {
	if link == "" {
		return "empty"
	}
	return "found"
}

// fetchResults navigates a search query and returns the results container's
// HTML for static extraction.
func (g *GoogleResolver) fetchResults(ctx context.Context, query string) (string, error) {
	if err := g.rl.Wait(ctx); err != nil {
		return "", err
	}

	page, err := g.broker.AcquirePage(ctx)
	if err != nil {
		return "", err
	}
	defer page.Close()

	if err := page.Navigate(ctx, googleSearchBase+url.QueryEscape(query)); err != nil {
		return "", err
	}
	if err := page.WaitVisible(ctx, resultsSelector, resultsTimeout); err != nil {
		return "", err
	}

	var html string
	if err := page.Evaluate(ctx, resultsHTMLScript, &html); err != nil {
		return "", err
	}
	return html, nil
}

const resultsHTMLScript = `(function () {
  const el = document.querySelector('#search');
  return el ? el.outerHTML : '';
})();`

// FirstOfficialSite returns the first result anchor that is an absolute URL
// whose hostname matches no OTA domain, or "".
func FirstOfficialSite(resultsHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resultsHTML))
	if err != nil {
		return ""
	}

	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if href == "" || strings.HasPrefix(href, "/search") {
			return true
		}
		u, err := url.Parse(href)
		if err != nil || !u.IsAbs() || u.Hostname() == "" {
			return true
		}
		host := strings.ToLower(u.Hostname())
		for _, ota := range otaDomains {
			if strings.Contains(host, ota) {
				return true
			}
		}
		found = href
		return false
	})
	return found
}

// FirstInstagramProfile returns the first result anchor pointing into
// instagram.com, or "".
func FirstInstagramProfile(resultsHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resultsHTML))
	if err != nil {
		return ""
	}

	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if strings.Contains(href, "instagram.com/") {
			found = href
			return false
		}
		return true
	})
	return found
}
