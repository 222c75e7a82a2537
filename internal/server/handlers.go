package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/FranksOps/finch/internal/report"
	"github.com/FranksOps/finch/internal/storage"
	"github.com/FranksOps/finch/internal/suggest"
)

// statsWindow caps how many audit records feed a single /stats response.
const statsWindow = 500

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]any{
		"service": ServiceName,
		"version": ServiceVersion,
		"message": "Grokipedia search suggestion service",
		"endpoints": map[string]string{
			"POST /suggestions": "fetch autocomplete suggestions for a query",
			"GET /health":       "liveness check",
			"GET /ready":        "target reachability check",
			"GET /stats":        "audit summary",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": ServiceName,
		"version": ServiceVersion,
	})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	var req suggest.Query
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	res, err := s.svc.Suggestions(r.Context(), req)
	if err != nil {
		if errors.Is(err, suggest.ErrEmptyQuery) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondWithError(w, http.StatusInternalServerError, "failed to get suggestions: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, res)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.probe == nil {
		respondWithJSON(w, http.StatusOK, map[string]any{
			"status":  "ready",
			"checked": false,
		})
		return
	}

	status, err := s.probe.Check(r.Context(), s.targetURL)
	if err != nil {
		respondWithJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unreachable",
			"target": s.targetURL,
			"error":  err.Error(),
		})
		return
	}

	body := map[string]any{
		"status":        "ready",
		"target":        s.targetURL,
		"target_status": status.StatusCode,
		"duration_ms":   status.Duration.Milliseconds(),
	}
	if !status.Reachable() {
		body["status"] = "degraded"
		if status.Challenged {
			body["challenge"] = status.Source
		}
		respondWithJSON(w, http.StatusServiceUnavailable, body)
		return
	}

	respondWithJSON(w, http.StatusOK, body)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		respondWithError(w, http.StatusServiceUnavailable, "audit storage is disabled")
		return
	}

	records, err := s.audit.Query(r.Context(), storage.Filter{Limit: statsWindow})
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to query audit records: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, report.Generate(records))
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
