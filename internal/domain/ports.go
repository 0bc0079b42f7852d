package domain

import (
	"context"
	"time"
)

type VenueRepository interface {
	// Write paths
	Upsert(ctx context.Context, v VenueRecord) error
	LogMiss(ctx context.Context, name, location, stage, reason string) error

	// Read paths
	FindByKey(ctx context.Context, name, location string) (VenueRecord, error)
	ListByLocation(ctx context.Context, location string) ([]VenueRecord, error)
}

// Page is one isolated browser tab. Callers own the page and must Close it.
type Page interface {
	Navigate(ctx context.Context, url string) error
	// NavigateDOMReady returns once the DOM is parsed without waiting for
	// network idle; profile pages hold long-lived connections.
	NavigateDOMReady(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// Evaluate runs a JS expression in the page and decodes the
	// serializable result into out. Pass nil to discard the result.
	Evaluate(ctx context.Context, expr string, out any) error
	Title(ctx context.Context) (string, error)
	Close() error
}

// PageBroker hands out fresh pages from a shared browser session.
type PageBroker interface {
	AcquirePage(ctx context.Context) (Page, error)
}

type Discoverer interface {
	Discover(ctx context.Context, location string) ([]Candidate, error)
}

// WebsiteResolver maps a venue name + location to its official website, or
// "" when no non-OTA result exists. Fetch failures fold into "".
type WebsiteResolver interface {
	ResolveWebsite(ctx context.Context, name, location string) (string, error)
}

// SocialResolver maps a venue name to an Instagram profile URL, or "".
type SocialResolver interface {
	ResolveSocial(ctx context.Context, name string) (string, error)
}

// ProfileVerifier confirms a resolved link points at live profile content.
// A nil profile with nil error means the page is gone or unreadable.
type ProfileVerifier interface {
	VerifyProfile(ctx context.Context, url string) (*SocialProfile, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// RunState is the registry's view of one pipeline run.
type RunState struct {
	Location   string
	State      string // running|completed|failed
	Discovered int
	Processed  int
	Skipped    int
	Failed     int
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}
