package admin

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/always-cache/webproxy/cache"
	"github.com/always-cache/webproxy/journal"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const (
	defaultLimit = 50
	maxLimit     = 1000
)

// CacheInspector is the read-only view of the cache the admin API needs.
type CacheInspector interface {
	Entries() []cache.Entry
	Stats() cache.Stats
}

type statsResponse struct {
	cache.Stats
	HitRatio float64 `json:"hitRatio"`
}

// NewRouter returns the admin API handler.
// The transaction routes are only mounted if j is not nil.
func NewRouter(c CacheInspector, j journal.Journal, logger zerolog.Logger) http.Handler {
	a := &api{cache: c, journal: j, log: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(a.logRequest)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/cache", a.listEntries)
	r.Get("/cache/stats", a.stats)
	if j != nil {
		r.Get("/transactions", a.recentTransactions)
		r.Get("/transactions/status", a.statusCounts)
	}
	return r
}

type api struct {
	cache   CacheInspector
	journal journal.Journal
	log     zerolog.Logger
}

func (a *api) listEntries(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, a.cache.Entries())
}

func (a *api) stats(w http.ResponseWriter, r *http.Request) {
	s := a.cache.Stats()
	a.writeJSON(w, statsResponse{Stats: s, HitRatio: s.HitRatio()})
}

func (a *api) recentTransactions(w http.ResponseWriter, r *http.Request) {
	limit := defaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	entries, err := a.journal.Recent(limit)
	if err != nil {
		a.log.Error().Err(err).Msg("Could not read journal")
		http.Error(w, "could not read journal", http.StatusInternalServerError)
		return
	}
	a.writeJSON(w, entries)
}

func (a *api) statusCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := a.journal.StatusCounts()
	if err != nil {
		a.log.Error().Err(err).Msg("Could not read journal")
		http.Error(w, "could not read journal", http.StatusInternalServerError)
		return
	}
	// JSON object keys must be strings
	out := make(map[string]int, len(counts))
	for status, n := range counts {
		out[strconv.Itoa(status)] = n
	}
	a.writeJSON(w, out)
}

func (a *api) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error().Err(err).Msg("Could not write response")
	}
}

func (a *api) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		a.log.Debug().
			Str("method", r.Method).
			Str("url", r.URL.String()).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Admin request")
	})
}
