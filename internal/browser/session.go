package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/FranksOps/finch/internal/metrics"
	"github.com/FranksOps/finch/internal/scrape"
	"github.com/chromedp/chromedp"
)

// Session is one exclusive browser process plus its DevTools channel. It is
// owned by a single scrape call and never reused.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

var _ scrape.Driver = (*Session)(nil)

// NewSession launches a browser process from the launch config. The session
// inherits cancellation from the parent context.
func NewSession(parent context.Context, lc *LaunchConfig, headless bool) (*Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, lc.AllocatorOptions(headless)...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	// Start the process now so launch failures surface here rather than on
	// the first navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &Session{
		ctx:         browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
	}, nil
}

// Navigate loads the given URL.
func (s *Session) Navigate(url string) error {
	return chromedp.Run(s.ctx, chromedp.Navigate(url))
}

// WaitVisible blocks until an element matching the selector is visible, or
// the timeout elapses.
func (s *Session) WaitVisible(selector string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// Clear empties the matched input element.
func (s *Session) Clear(selector string) error {
	return chromedp.Run(s.ctx, chromedp.Clear(selector, chromedp.ByQuery))
}

// SendKeys types the given text into the matched element, verbatim.
func (s *Session) SendKeys(selector, keys string) error {
	return chromedp.Run(s.ctx, chromedp.SendKeys(selector, keys, chromedp.ByQuery))
}

// HTML returns a snapshot of the full rendered document.
func (s *Session) HTML() (string, error) {
	var html string
	if err := chromedp.Run(s.ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// Close terminates the browser process. Idempotent; later calls return the
// first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = chromedp.Cancel(s.ctx)
		s.cancel()
		s.allocCancel()
	})
	return s.closeErr
}

// Factory adapts a Provisioner into the scraper's driver factory: each call
// resolves a launch config and starts a fresh session. Proxy health is fed
// back into the pool based on whether the launch succeeded.
func Factory(p *Provisioner, logger *slog.Logger) scrape.DriverFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, headless bool) (scrape.Driver, error) {
		lc, err := p.Resolve(ctx)
		if err != nil {
			metrics.ProvisionFailures.Inc()
			return nil, err
		}

		session, err := NewSession(ctx, lc, headless)
		if err != nil {
			if lc.ProxyURL != nil {
				_ = p.cfg.Proxies.MarkFailure(lc.ProxyURL)
			}
			return nil, err
		}

		if lc.ProxyURL != nil {
			_ = p.cfg.Proxies.MarkSuccess(lc.ProxyURL)
			logger.Debug("session launched via proxy", "proxy", lc.ProxyURL.String())
		}
		return session, nil
	}
}
