package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/FranksOps/finch/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SuggestRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finch_suggest_requests_total",
			Help: "Total number of suggestion requests processed",
		},
		[]string{"status", "strategy"},
	)

	ScrapeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "finch_scrape_duration_seconds",
			Help:    "End-to-end duration of a suggestion scrape in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 15, 30},
		},
	)

	SuggestionsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "finch_suggestions_returned",
			Help:    "Number of suggestions returned per successful request",
			Buckets: []float64{0, 1, 2, 5, 10, 20},
		},
	)

	ProvisionFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "finch_provision_failures_total",
			Help: "Total number of browser provisioning failures",
		},
	)

	ChallengeDetections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finch_challenge_detections_total",
			Help: "Bot-protection challenges observed on the target page",
		},
		[]string{"source"},
	)
)

// RecordRequest updates the collectors from a finished audit record.
func RecordRequest(rec *storage.Record) {
	if rec == nil {
		return
	}

	status := "success"
	if rec.Failed() {
		status = "error"
	}

	SuggestRequestsTotal.WithLabelValues(status, rec.Strategy).Inc()
	ScrapeDuration.Observe(rec.Duration.Seconds())
	if !rec.Failed() {
		SuggestionsReturned.Observe(float64(rec.Count))
	}
	if rec.Challenged {
		ChallengeDetections.WithLabelValues(rec.ChallengeSrc).Inc()
	}
}

// Server exposes /metrics on its own port.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server failed: %v\n", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
