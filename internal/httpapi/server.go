package httpapi

import (
	"encoding/json"
	"net/http"
	"net/netip"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/servicemonitor/internal/domain"
	apimw "github.com/hamed0406/servicemonitor/internal/httpapi/middleware"
	"github.com/hamed0406/servicemonitor/internal/repo"
)

const (
	defaultJournalLimit = 50
	maxJournalLimit     = 500
)

// StatusSource is what the daemon exposes to the API.
type StatusSource interface {
	Snapshot() []domain.ProbeStatus
	Cycles() uint64
}

type Server struct {
	Logger  *zap.Logger
	Status  StatusSource
	Journal repo.JournalStore
}

func NewServer(l *zap.Logger, st StatusSource, j repo.JournalStore) *Server {
	return &Server{Logger: l, Status: st, Journal: j}
}

// Options configures the router middleware.
type Options struct {
	APIKeys        []string
	AllowedOrigins []string
	RatePerMin     int
	Burst          int
	// TrustedProxies may set X-Forwarded-For for rate limiting.
	TrustedProxies []netip.Prefix
}

func (s *Server) Router(o Options) http.Handler {
	r := chi.NewRouter()

	origins := o.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "X-API-Key"},
		MaxAge:         300,
	}))
	r.Use(apimw.RateLimit(o.RatePerMin, o.Burst, o.TrustedProxies))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(apimw.RequireKey(o.APIKeys))
		r.Get("/probes", s.handleProbes)
		r.Get("/journal", s.handleJournal)
	})
	return r
}

type probesResponse struct {
	Cycles uint64               `json:"cycles"`
	Probes []domain.ProbeStatus `json:"probes"`
}

func (s *Server) handleProbes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, probesResponse{
		Cycles: s.Status.Cycles(),
		Probes: s.Status.Snapshot(),
	})
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	limit := defaultJournalLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxJournalLimit)
	}

	entries, err := s.Journal.Recent(r.Context(), limit)
	if err != nil {
		s.Logger.Error("journal_read_error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "journal unavailable"})
		return
	}
	if entries == nil {
		entries = []repo.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
