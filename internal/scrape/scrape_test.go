package scrape

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeDriver scripts the browser session for a single search.
type fakeDriver struct {
	html       string
	navErr     error
	waitErr    error
	keysErr    error
	htmlErr    error
	closeErr   error
	closeCount int

	navigatedTo string
	cleared     bool
	typed       string
}

func (d *fakeDriver) Navigate(url string) error {
	d.navigatedTo = url
	return d.navErr
}

func (d *fakeDriver) WaitVisible(selector string, timeout time.Duration) error {
	return d.waitErr
}

func (d *fakeDriver) Clear(selector string) error {
	d.cleared = true
	return nil
}

func (d *fakeDriver) SendKeys(selector, keys string) error {
	d.typed = keys
	return d.keysErr
}

func (d *fakeDriver) HTML() (string, error) {
	return d.html, d.htmlErr
}

func (d *fakeDriver) Close() error {
	d.closeCount++
	return d.closeErr
}

func newTestScraper(drv *fakeDriver, launchErr error) (*Scraper, *int) {
	launches := 0
	factory := func(ctx context.Context, headless bool) (Driver, error) {
		launches++
		if launchErr != nil {
			return nil, launchErr
		}
		return drv, nil
	}
	cfg := Config{
		TargetURL:    "https://grokipedia.com/",
		SettleDelay:  time.Millisecond,
		InputTimeout: 10 * time.Millisecond,
	}
	return NewScraper(cfg, factory, nil, nil), &launches
}

func TestSearch_Success(t *testing.T) {
	drv := &fakeDriver{
		html: `<html><body>
			<div class="cursor-pointer"><span>Category</span><span>cats</span><span>cats</span></div>
		</body></html>`,
	}
	scraper, _ := newTestScraper(drv, nil)

	outcome, err := scraper.Search(context.Background(), "cat", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(outcome.Suggestions) != 2 || outcome.Suggestions[0] != "Category" || outcome.Suggestions[1] != "cats" {
		t.Errorf("unexpected suggestions: %v", outcome.Suggestions)
	}
	if outcome.Strategy != "cursor-pointer-wildcard" {
		t.Errorf("unexpected strategy: %q", outcome.Strategy)
	}
	if drv.navigatedTo != "https://grokipedia.com/" {
		t.Errorf("navigated to %q", drv.navigatedTo)
	}
	if !drv.cleared {
		t.Error("input was not cleared before typing")
	}
	if drv.typed != "cat" {
		t.Errorf("expected query typed verbatim, got %q", drv.typed)
	}
	if drv.closeCount != 1 {
		t.Errorf("expected exactly one teardown, got %d", drv.closeCount)
	}
}

func TestSearch_LaunchFailure(t *testing.T) {
	scraper, launches := newTestScraper(nil, errors.New("no browser"))

	_, err := scraper.Search(context.Background(), "cat", true)

	var serr *Error
	if !errors.As(err, &serr) || serr.Phase != PhaseLaunch {
		t.Fatalf("expected launch-phase error, got %v", err)
	}
	if *launches != 1 {
		t.Errorf("expected one launch attempt, got %d", *launches)
	}
}

func TestSearch_InputNotFound_TeardownStillRuns(t *testing.T) {
	drv := &fakeDriver{waitErr: context.DeadlineExceeded}
	scraper, _ := newTestScraper(drv, nil)

	_, err := scraper.Search(context.Background(), "cat", true)

	var serr *Error
	if !errors.As(err, &serr) || serr.Phase != PhaseInput {
		t.Fatalf("expected input-not-found error, got %v", err)
	}
	if drv.closeCount != 1 {
		t.Errorf("expected exactly one teardown after failure, got %d", drv.closeCount)
	}
}

func TestSearch_NavigationFailureIsExtractionPhase(t *testing.T) {
	drv := &fakeDriver{navErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}
	scraper, _ := newTestScraper(drv, nil)

	_, err := scraper.Search(context.Background(), "cat", true)

	var serr *Error
	if !errors.As(err, &serr) || serr.Phase != PhaseExtract {
		t.Fatalf("expected extraction-phase error, got %v", err)
	}
	if drv.closeCount != 1 {
		t.Errorf("expected exactly one teardown, got %d", drv.closeCount)
	}
}

func TestSearch_CloseErrorNeverSurfaces(t *testing.T) {
	drv := &fakeDriver{
		html:     `<html><body><div role="option">catalog</div></body></html>`,
		closeErr: errors.New("browser already gone"),
	}
	scraper, _ := newTestScraper(drv, nil)

	outcome, err := scraper.Search(context.Background(), "cat", true)
	if err != nil {
		t.Fatalf("close failure must not fail the search, got %v", err)
	}
	if len(outcome.Suggestions) != 1 || outcome.Suggestions[0] != "catalog" {
		t.Errorf("unexpected suggestions: %v", outcome.Suggestions)
	}
}

func TestSearch_ChallengeDetected(t *testing.T) {
	drv := &fakeDriver{
		html: `<html><body><div class="cf-turnstile"></div></body></html>`,
	}
	scraper, _ := newTestScraper(drv, nil)

	outcome, err := scraper.Search(context.Background(), "cat", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Challenged || outcome.ChallengeSrc != "Cloudflare" {
		t.Errorf("expected Cloudflare challenge flag, got %+v", outcome)
	}
	if len(outcome.Suggestions) != 0 {
		t.Errorf("challenge page should yield no suggestions, got %v", outcome.Suggestions)
	}
}

func TestSearch_CancelledContext(t *testing.T) {
	drv := &fakeDriver{}
	scraper, _ := newTestScraper(drv, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := scraper.Search(ctx, "cat", true)
	if err == nil {
		t.Fatal("expected an error from a cancelled context")
	}
	if drv.closeCount != 1 {
		t.Errorf("expected exactly one teardown, got %d", drv.closeCount)
	}
}
