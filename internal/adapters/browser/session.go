package browser

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/samecityapp/hotelfinder/internal/adapters/observability"
	"github.com/samecityapp/hotelfinder/internal/domain"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Session owns one Chrome process and one browsing context shared by every
// page it hands out. Start is idempotent; Shutdown resets the session so a
// later Start relaunches cleanly. Concurrent pages are capped by a
// semaphore so unbounded callers cannot pile tabs onto the one process.
type Session struct {
	headless   bool
	navTimeout time.Duration
	gate       *semaphore.Weighted

	mu          sync.Mutex
	started     bool
	allocStop   context.CancelFunc
	browserCtx  context.Context
	browserStop context.CancelFunc
}

func NewSession(headless bool, maxPages int64, navTimeout time.Duration) *Session {
	if maxPages <= 0 {
		maxPages = 4
	}
	if navTimeout <= 0 {
		navTimeout = 30 * time.Second
	}
	return &Session{
		headless:   headless,
		navTimeout: navTimeout,
		gate:       semaphore.NewWeighted(maxPages),
	}
}

// Start launches the browser if it is not already running.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked()
}

func (s *Session) startLocked() error {
	if s.started {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1366, 768),
		chromedp.UserAgent(userAgent),
	)

	allocCtx, allocStop := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserStop := chromedp.NewContext(allocCtx)

	// Run with no actions forces the process to launch now, so a broken
	// Chrome install fails Start instead of the first page.
	if err := chromedp.Run(browserCtx); err != nil {
		browserStop()
		allocStop()
		return err
	}

	s.allocStop = allocStop
	s.browserCtx = browserCtx
	s.browserStop = browserStop
	s.started = true
	log.Info().Bool("headless", s.headless).Msg("browser session started")
	return nil
}

// AcquirePage opens a fresh tab in the shared context, starting the session
// first if needed. Blocks while the page gate is full. The caller must
// Close the returned page.
func (s *Session) AcquirePage(ctx context.Context) (domain.Page, error) {
	s.mu.Lock()
	if err := s.startLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	browserCtx := s.browserCtx
	s.mu.Unlock()

	if err := s.gate.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	tabCtx, tabStop := chromedp.NewContext(browserCtx)
	observability.BrowserPages.Inc()
	return &page{
		tab:        tabCtx,
		stop:       tabStop,
		navTimeout: s.navTimeout,
		release: func() {
			s.gate.Release(1)
			observability.BrowserPages.Dec()
		},
	}, nil
}

// Shutdown closes the browser and returns the session to its uninitialized
// state. Pages still open keep their contexts until closed, but the process
// behind them is gone.
func (s *Session) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.browserStop()
	s.allocStop()
	s.browserCtx = nil
	s.browserStop = nil
	s.allocStop = nil
	s.started = false
	log.Info().Msg("browser session shut down")
}
