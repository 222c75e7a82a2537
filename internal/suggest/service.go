package suggest

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/FranksOps/finch/internal/metrics"
	"github.com/FranksOps/finch/internal/storage"
	"github.com/google/uuid"
)

// Service validates inbound queries, delegates to the provider, and records
// the outcome for observability. Validation failures short-circuit before
// any browser work; audit and metrics failures never affect the response.
type Service struct {
	provider Provider
	audit    storage.Backend // nil disables auditing
	logger   *slog.Logger
}

// NewService creates a Service. audit may be nil.
func NewService(provider Provider, audit storage.Backend, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		provider: provider,
		audit:    audit,
		logger:   logger,
	}
}

// Suggestions runs one suggestion search end to end.
func (s *Service) Suggestions(ctx context.Context, req Query) (*Result, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	headless := req.WantHeadless()

	s.logger.Info("received suggestion request", "query", query, "headless", headless)

	start := time.Now()
	outcome, err := s.provider.Search(ctx, query, headless)
	duration := time.Since(start)

	rec := &storage.Record{
		ID:        uuid.New().String(),
		Query:     query,
		Headless:  headless,
		Duration:  duration,
		CreatedAt: start.UTC(),
	}

	if err != nil {
		rec.Error = err.Error()
		s.record(ctx, rec)
		s.logger.Error("suggestion search failed", "query", query, "err", err)
		return nil, err
	}

	suggestions := outcome.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}

	rec.Suggestions = suggestions
	rec.Count = len(suggestions)
	rec.Strategy = outcome.Strategy
	rec.Challenged = outcome.Challenged
	rec.ChallengeSrc = outcome.ChallengeSrc
	s.record(ctx, rec)

	s.logger.Info("suggestion search complete", "query", query, "count", rec.Count)

	return &Result{
		Query:       query,
		Suggestions: suggestions,
		Count:       len(suggestions),
		Status:      StatusSuccess,
	}, nil
}

func (s *Service) record(ctx context.Context, rec *storage.Record) {
	metrics.RecordRequest(rec)
	if s.audit == nil {
		return
	}
	if err := s.audit.Save(ctx, rec); err != nil {
		s.logger.Error("failed to save audit record", "id", rec.ID, "err", err)
	}
}
