package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/harborline/dealdesk-cli/internal/profile"
	"github.com/harborline/dealdesk-cli/internal/report"
	"github.com/harborline/dealdesk-cli/internal/store"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

// respondError maps store sentinels onto HTTP statuses. Anything unexpected
// is logged and hidden behind a generic 500 body.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case eris.Is(err, store.ErrNotFound):
		respondJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case eris.Is(err, store.ErrExists):
		respondJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		zap.L().Error("server: request failed", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// decodeJSON reads the request body into v, answering a 400 on failure.
// Returns false when the handler should stop.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func listFilterFromQuery(r *http.Request) store.ListFilter {
	q := r.URL.Query()
	filter := store.ListFilter{Query: q.Get("q")}
	if v := q.Get("include_archived"); v == "true" || v == "1" {
		filter.IncludeArchived = true
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		filter.Limit = n
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n > 0 {
		filter.Offset = n
	}
	return filter
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	set, err := s.svc.Profiles(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, set)
}

func (s *Server) handleFilterProfiles(w http.ResponseWriter, r *http.Request) {
	var spec profile.FilterSpec
	if !decodeJSON(w, r, &spec) {
		return
	}
	set, err := s.svc.FilterProfiles(r.Context(), spec)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, set)
}

func (s *Server) handlePairings(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.Pairings(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if r.URL.Query().Get("sort") == "overlap" {
		result = report.SortByOverlap(result)
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	rates, err := s.svc.Rates(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rates)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = n
	}
	entries, err := s.svc.Audit(r.Context(), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}
