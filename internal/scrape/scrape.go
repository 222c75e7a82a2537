// Package scrape drives a browser session against the Grokipedia search
// page and extracts autocomplete suggestions from the rendered DOM.
package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/FranksOps/finch/internal/probe"
	"github.com/FranksOps/finch/internal/suggest"
	"github.com/PuerkitoBio/goquery"
)

// inputSelector matches the search box: either a plain text input or the
// site's marker class.
const inputSelector = `input[type='text'], input.w-full`

// Phase identifies where in the scrape sequence a failure occurred.
type Phase string

const (
	PhaseLaunch  Phase = "launch"
	PhaseInput   Phase = "input-not-found"
	PhaseExtract Phase = "extraction"
)

// Error wraps a scrape failure with its phase.
type Error struct {
	Phase Phase
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("scrape failed during %s: %v", e.Phase, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Driver is the browser session surface the scraper needs. Production
// sessions are chromedp-backed; tests substitute fakes.
type Driver interface {
	Navigate(url string) error
	WaitVisible(selector string, timeout time.Duration) error
	Clear(selector string) error
	SendKeys(selector, keys string) error
	HTML() (string, error)
	Close() error
}

// DriverFactory launches a fresh, exclusively-owned session per call.
type DriverFactory func(ctx context.Context, headless bool) (Driver, error)

// Config holds the scraping parameters. Zero values get defaults.
type Config struct {
	TargetURL string
	// SettleDelay is the blind wait after navigation and again after
	// typing, standing in for an explicit readiness check. Known fragility:
	// slow rendering simply yields fewer suggestions.
	SettleDelay time.Duration // default 2s
	// InputTimeout bounds the wait for the search input to appear.
	InputTimeout time.Duration // default 10s
	// FallbackLimit caps the generic text scan.
	FallbackLimit int // default 10
	// RespectRobots enables an advisory robots.txt check before navigating.
	RespectRobots bool
	// UserAgent is the product token used for the robots.txt group lookup.
	UserAgent string
}

func (c *Config) settleDelay() time.Duration {
	if c.SettleDelay <= 0 {
		return 2 * time.Second
	}
	return c.SettleDelay
}

func (c *Config) inputTimeout() time.Duration {
	if c.InputTimeout <= 0 {
		return 10 * time.Second
	}
	return c.InputTimeout
}

func (c *Config) fallbackLimit() int {
	if c.FallbackLimit <= 0 {
		return 10
	}
	return c.FallbackLimit
}

// Scraper performs one suggestion search per call, each on its own browser
// session. There is deliberately no overall deadline: a hung page load
// blocks only the request that owns it, and the inbound request context
// remains the sole cancellation path.
type Scraper struct {
	cfg    Config
	launch DriverFactory
	robots *probe.Robots
	logger *slog.Logger
}

var _ suggest.Provider = (*Scraper)(nil)

// NewScraper creates a Scraper. robots may be nil to skip the advisory
// robots.txt check even when the config enables it.
func NewScraper(cfg Config, launch DriverFactory, robots *probe.Robots, logger *slog.Logger) *Scraper {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "*"
	}
	return &Scraper{
		cfg:    cfg,
		launch: launch,
		robots: robots,
		logger: logger,
	}
}

// Search launches a session, types the query into the search box, waits for
// suggestions to render, and extracts them. The session is torn down exactly
// once on every exit path; teardown failures are logged, never returned.
func (s *Scraper) Search(ctx context.Context, query string, headless bool) (*suggest.Outcome, error) {
	drv, err := s.launch(ctx, headless)
	if err != nil {
		return nil, &Error{Phase: PhaseLaunch, Err: err}
	}
	defer func() {
		if cerr := drv.Close(); cerr != nil {
			s.logger.Warn("failed to close browser session", "query", query, "err", cerr)
		}
	}()

	if s.cfg.RespectRobots && s.robots != nil {
		allowed, rerr := s.robots.Allowed(ctx, s.cfg.TargetURL, s.cfg.UserAgent)
		if rerr == nil && !allowed {
			s.logger.Warn("target disallows this path in robots.txt", "url", s.cfg.TargetURL)
		}
	}

	s.logger.Debug("navigating to target", "url", s.cfg.TargetURL, "query", query)
	if err := drv.Navigate(s.cfg.TargetURL); err != nil {
		return nil, &Error{Phase: PhaseExtract, Err: err}
	}
	if err := sleep(ctx, s.cfg.settleDelay()); err != nil {
		return nil, &Error{Phase: PhaseExtract, Err: err}
	}

	if err := drv.WaitVisible(inputSelector, s.cfg.inputTimeout()); err != nil {
		return nil, &Error{Phase: PhaseInput, Err: err}
	}

	if err := drv.Clear(inputSelector); err != nil {
		return nil, &Error{Phase: PhaseExtract, Err: err}
	}
	if err := drv.SendKeys(inputSelector, query); err != nil {
		return nil, &Error{Phase: PhaseExtract, Err: err}
	}

	// Give the autocomplete dropdown time to render.
	if err := sleep(ctx, s.cfg.settleDelay()); err != nil {
		return nil, &Error{Phase: PhaseExtract, Err: err}
	}

	html, err := drv.HTML()
	if err != nil {
		return nil, &Error{Phase: PhaseExtract, Err: err}
	}

	outcome := &suggest.Outcome{}
	if source, challenged := probe.SniffHTML(html); challenged {
		outcome.Challenged = true
		outcome.ChallengeSrc = source
		s.logger.Warn("page looks like a bot challenge", "source", source, "query", query)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &Error{Phase: PhaseExtract, Err: err}
	}

	outcome.Suggestions, outcome.Strategy = Extract(doc, query, s.cfg.fallbackLimit())

	s.logger.Info("extraction complete",
		"query", query,
		"count", len(outcome.Suggestions),
		"strategy", outcome.Strategy,
	)
	return outcome, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
