package server

import (
	"log/slog"
	"net/http"
)

// handleStats serves GET /admin/cache/stats.
func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Cache.Stats())
}

type invalidateRequest struct {
	Provider string `json:"provider"`
	Pattern  string `json:"pattern"`
}

type invalidateResponse struct {
	Invalidated int `json:"invalidated"`
}

// handleInvalidate serves POST /admin/cache/invalidate. At least one filter
// is required: leaving both empty would wipe the whole cache.
func (s *server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Provider == "" && req.Pattern == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse("provider or pattern required"))
		return
	}

	n := s.deps.Cache.Invalidate(req.Provider, req.Pattern)
	slog.LogAttrs(r.Context(), slog.LevelInfo, "cache invalidated",
		slog.String("provider", req.Provider),
		slog.String("pattern", req.Pattern),
		slog.Int("removed", n),
	)
	writeJSON(w, http.StatusOK, invalidateResponse{Invalidated: n})
}

type snapshotResponse struct {
	ID      string `json:"id"`
	Entries int    `json:"entries"`
}

// handleSnapshot serves POST /admin/cache/snapshot, forcing an immediate
// save outside the periodic schedule.
func (s *server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse("snapshot store not configured"))
		return
	}

	snap := s.deps.Cache.Export()
	if snap == nil {
		writeJSON(w, http.StatusConflict, errorResponse("cache destroyed"))
		return
	}

	id, err := s.deps.Store.SaveSnapshot(r.Context(), snap)
	if err != nil {
		slog.LogAttrs(r.Context(), slog.LevelError, "snapshot save failed",
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse{ID: id, Entries: len(snap.Entries)})
}
