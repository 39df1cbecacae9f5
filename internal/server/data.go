package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/VL13N/FullStackNexus-sub002/internal/cache"
	"github.com/VL13N/FullStackNexus-sub002/internal/fetch"
)

// maxAgeParam is reserved on the data API: it tightens freshness for one
// request instead of being forwarded upstream.
const maxAgeParam = "max_age_ms"

// handleData serves GET /api/{provider}/* through the cache. Query
// parameters are forwarded to the upstream provider verbatim, so the same
// parameter set always lands on the same cache entry.
func (s *server) handleData(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	endpoint := chi.URLParam(r, "*")

	q := cache.Query{Provider: provider, Endpoint: endpoint}
	for k, vals := range r.URL.Query() {
		if k == maxAgeParam {
			ms, err := strconv.ParseInt(vals[0], 10, 64)
			if err != nil || ms < 0 {
				writeJSON(w, http.StatusBadRequest, errorResponse("invalid "+maxAgeParam))
				return
			}
			q.MaxAge = time.Duration(ms) * time.Millisecond
			continue
		}
		if q.Params == nil {
			q.Params = make(map[string]string)
		}
		q.Params[k] = vals[0]
	}

	fn, err := s.deps.Providers.FetchFunc(provider, endpoint, q.Params)
	if err != nil {
		writeJSON(w, errorStatus(err), errorResponse(err.Error()))
		return
	}

	payload, err := s.deps.Fetcher.Fetch(r.Context(), q, fn)
	if err != nil {
		var se *fetch.StatusError
		if errors.As(err, &se) {
			writeJSON(w, http.StatusBadGateway, errorResponse(se.Error()))
			return
		}
		writeJSON(w, errorStatus(err), errorResponse(err.Error()))
		return
	}

	w.Header()["Content-Type"] = jsonCT
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}
