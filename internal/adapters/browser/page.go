package browser

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

type page struct {
	tab        context.Context
	stop       context.CancelFunc
	navTimeout time.Duration

	closeOnce sync.Once
	release   func()
}

// run executes actions against the tab with a deadline, propagating caller
// cancellation into the chromedp context.
func (p *page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	cctx, cancel := context.WithTimeout(p.tab, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(cctx, actions...)
}

func (p *page) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, p.navTimeout, chromedp.Navigate(url))
}

func (p *page) NavigateDOMReady(ctx context.Context, url string) error {
	err := p.run(ctx, p.navTimeout, chromedp.Navigate(url))
	if err == nil {
		return nil
	}
	// Pages holding long-lived connections can keep the load event from
	// firing; the navigation still counts once the DOM is parsed.
	var state string
	if evalErr := p.run(ctx, 2*time.Second, chromedp.Evaluate(`document.readyState`, &state)); evalErr == nil {
		if state == "interactive" || state == "complete" {
			return nil
		}
	}
	return err
}

func (p *page) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return p.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (p *page) Evaluate(ctx context.Context, expr string, out any) error {
	return p.run(ctx, p.navTimeout, chromedp.Evaluate(expr, out))
}

func (p *page) Title(ctx context.Context) (string, error) {
	var t string
	err := p.run(ctx, 5*time.Second, chromedp.Title(&t))
	return t, err
}

func (p *page) Close() error {
	p.closeOnce.Do(func() {
		p.stop()
		p.release()
	})
	return nil
}
