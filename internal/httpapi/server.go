// Package httpapi exposes the orchestrator's external HTTP surface
// (spec.md §6) as a thin chi adapter onto the dispatch loop's Request sum
// type: it marshals, rate-limits and authenticates, but never reimplements
// evaluator/task/storage logic itself.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/Eve-Ai-Labs/eve/internal/config"
	"github.com/Eve-Ai-Labs/eve/internal/identity"
	"github.com/Eve-Ai-Labs/eve/internal/logging"
	"github.com/Eve-Ai-Labs/eve/internal/metrics"
	"github.com/Eve-Ai-Labs/eve/internal/orchestrator"
	"github.com/Eve-Ai-Labs/eve/internal/storage"
	"github.com/Eve-Ai-Labs/eve/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server bundles everything the HTTP handlers need: a send-only handle
// onto the orchestrator's dispatch loop, read-only storage access, and the
// rate-limit/auth configuration.
type Server struct {
	sender  orchestrator.Sender
	storage *storage.EveStorage
	metrics *metrics.Metrics
	cfg     config.ApiConfig
	llm     config.LLMConfig
	log     logging.Logger

	askLimits     *limiter
	airdropLimits *limiter
}

// New builds a Server ready to Handler().
func New(sender orchestrator.Sender, store *storage.EveStorage, m *metrics.Metrics, cfg config.ApiConfig, llm config.LLMConfig, log logging.Logger) *Server {
	return &Server{
		sender:        sender,
		storage:       store,
		metrics:       m,
		cfg:           cfg,
		llm:           llm,
		log:           log,
		askLimits:     newLimiter(cfg.ReqPerHour),
		airdropLimits: newLimiter(cfg.AirdropPerHour),
	}
}

// Handler assembles the full chi route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	// A blanket per-IP ceiling ahead of the pubkey/IP-hourly quotas enforced
	// inside handleQuery and handleAirdrop: those model the original's
	// req_per_hour/airdrop_per_hour, this just stops a single IP from
	// hammering any route.
	r.Use(httprate.LimitByIP(600, time.Minute))

	r.Get("/", s.handleCost)
	r.Get("/ai", s.handleAiModel)
	r.Post("/query", s.handleQuery)
	r.Get("/answer/{query_id}", s.handleAnswer)
	r.Get("/history/{query_id}", s.handleHistory)
	r.Get("/account/{pubkey}", s.handleAccount)
	r.Post("/account/airdrop/{pubkey}", s.handleAirdrop)
	r.Get("/info", s.handleInfo)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/nodes", s.handleNodesList)
	r.Get("/nodes/{pubkey}", s.handleNodeGet)
	r.With(jwtAuth(s.cfg.JwtSecret)).Put("/nodes/action", s.handleNodeAdd)
	r.With(jwtAuth(s.cfg.JwtSecret)).Delete("/nodes/action", s.handleNodeRemove)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func retryAfter(w http.ResponseWriter, delay time.Duration) {
	secs := int(delay.Seconds())
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
}

func parsePubKey(w http.ResponseWriter, s string) (identity.PublicKey, bool) {
	pk, err := identity.PublicKeyFromHex(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid public key")
		return identity.PublicKey{}, false
	}
	return pk, true
}

func pubKeyParam(r *http.Request) string { return chi.URLParam(r, "pubkey") }

func queryIDParam(r *http.Request) (types.QueryId, error) {
	return types.QueryIdFromHex(chi.URLParam(r, "query_id"))
}
