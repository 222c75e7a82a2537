package storage

import (
	"context"
	"time"
)

// Record is the audit trail entry for one suggestion request. Records are
// write-only from the request path; nothing in the service ever reads them
// back to answer a request.
type Record struct {
	ID           string        `json:"id"`
	Query        string        `json:"query"`
	Headless     bool          `json:"headless"`
	Suggestions  []string      `json:"suggestions"`
	Count        int           `json:"count"`
	Strategy     string        `json:"strategy"`
	Challenged   bool          `json:"challenged"`
	ChallengeSrc string        `json:"challenge_src,omitempty"`
	Duration     time.Duration `json:"duration"`
	CreatedAt    time.Time     `json:"created_at"`
	Error        string        `json:"error,omitempty"`
}

// Failed reports whether the request ended in an error.
func (r *Record) Failed() bool {
	return r.Error != ""
}

// Filter narrows a Query call.
type Filter struct {
	Query  string
	Failed *bool
	Since  *time.Time
	Limit  int
	Offset int
}

// Backend persists and queries audit records.
type Backend interface {
	Save(ctx context.Context, rec *Record) error
	Query(ctx context.Context, filter Filter) ([]*Record, error)
	Close() error
}
