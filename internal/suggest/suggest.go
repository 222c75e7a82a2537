package suggest

import (
	"context"
	"errors"
)

// StatusSuccess is the only status a completed result carries; failures are
// reported as errors, never as a partial result.
const StatusSuccess = "success"

// ErrEmptyQuery is returned when the query is blank after trimming. It is
// raised before any browser work starts.
var ErrEmptyQuery = errors.New("query field is required and cannot be empty")

// Query is a single inbound suggestion request. Headless defaults to true
// when omitted.
type Query struct {
	Query    string `json:"query"`
	Headless *bool  `json:"headless,omitempty"`
}

// WantHeadless resolves the optional headless flag.
func (q Query) WantHeadless() bool {
	if q.Headless == nil {
		return true
	}
	return *q.Headless
}

// Result is the response payload for a completed suggestion search.
// Count always equals len(Suggestions).
type Result struct {
	Query       string   `json:"query"`
	Suggestions []string `json:"suggestions"`
	Count       int      `json:"count"`
	Status      string   `json:"status"`
}

// Outcome is what a provider observed while scraping: the ordered,
// deduplicated suggestion list plus extraction metadata.
type Outcome struct {
	// Suggestions in insertion order, deduplicated, possibly empty.
	Suggestions []string
	// Strategy names the selector pattern that produced the list,
	// "fallback" for the generic scan, "" when nothing matched.
	Strategy string
	// Challenged reports whether the page looked like a bot-protection
	// interstitial rather than the real search UI.
	Challenged   bool
	ChallengeSrc string
}

// Provider performs the actual browser-driven search. Implementations own
// the full session lifecycle; the query arrives already trimmed and
// non-blank.
type Provider interface {
	Search(ctx context.Context, query string, headless bool) (*Outcome, error)
}
