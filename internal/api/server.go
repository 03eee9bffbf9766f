package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/cosanostra-game/server/internal/engine"
	"github.com/cosanostra-game/server/internal/infra/archive"
	"github.com/cosanostra-game/server/internal/infra/cache"
	"github.com/cosanostra-game/server/internal/infra/storage"
	"github.com/cosanostra-game/server/internal/platform/logger"
	"github.com/cosanostra-game/server/internal/platform/metrics"
	"github.com/cosanostra-game/server/internal/protocol"
)

const (
	maxActionBody = 64 << 10
	maxImportBody = 4 << 20
)

// Options configures the HTTP surface.
type Options struct {
	RequestsPerSecond float64
	Burst             int
	// EventRepo backs the history feed and recaps. May be nil.
	EventRepo storage.EventRepository
	// WebSocket is mounted at /ws when set.
	WebSocket http.Handler
}

// Server is the HTTP front of the engine.
type Server struct {
	engine     *engine.Engine
	dispatcher *Dispatcher
	cache      *cache.ProfileCache
	feed       *FeedHandler
	logger     *logger.Logger
	limiters   *expirable.LRU[string, *rate.Limiter]
	rps        rate.Limit
	burst      int
	mux        *http.ServeMux
}

// NewServer wires the routes.
func NewServer(eng *engine.Engine, d *Dispatcher, c *cache.ProfileCache, log *logger.Logger, opts Options) *Server {
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 20
	}
	if opts.Burst <= 0 {
		opts.Burst = 40
	}
	s := &Server{
		engine:     eng,
		dispatcher: d,
		cache:      c,
		feed:       NewFeedHandler(eng.GetEventLog(), opts.EventRepo, log),
		logger:     log,
		limiters:   expirable.NewLRU[string, *rate.Limiter](4096, nil, 10*time.Minute),
		rps:        rate.Limit(opts.RequestsPerSecond),
		burst:      opts.Burst,
		mux:        http.NewServeMux(),
	}
	s.routes(opts.WebSocket)
	return s
}

func (s *Server) routes(ws http.Handler) {
	s.mux.HandleFunc("POST /api/players", s.handleCreatePlayer)
	s.mux.HandleFunc("POST /api/players/import", s.handleImport)
	s.mux.HandleFunc("GET /api/players/{id}", s.handlePlayer)
	s.mux.HandleFunc("GET /api/players/{id}/profile", s.handleProfile)
	s.mux.HandleFunc("GET /api/players/{id}/export", s.handleExport)
	s.mux.HandleFunc("POST /api/players/{id}/actions/{action}", s.handleAction)
	s.mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)
	s.mux.HandleFunc("GET /api/families", s.handleFamilies)
	s.mux.HandleFunc("GET /api/families/{id}", s.handleFamily)
	s.mux.HandleFunc("GET /api/territories", s.handleTerritories)
	s.mux.HandleFunc("GET /api/markets/{city}", s.handleMarket)
	s.mux.HandleFunc("GET /api/catalog", s.handleCatalog)
	s.feed.RegisterRoutes(s.mux)

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", metrics.Handler())
	s.mux.Handle("GET /metrics/prometheus", metrics.PrometheusHandler())
	if ws != nil {
		s.mux.Handle("/ws", ws)
	}
}

// ServeHTTP applies per-IP rate limiting to the API routes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/ws" && r.URL.Path != "/healthz" && !s.allow(clientIP(r)) {
		metrics.Get().RecordRateLimited()
		w.Header().Set("Retry-After", "1")
		writeError(w, "", http.StatusTooManyRequests, protocol.ErrRateLimit, ErrRateLimited.Error())
		return
	}
	s.mux.ServeHTTP(w, r)
}

func (s *Server) allow(ip string) bool {
	lim, ok := s.limiters.Get(ip)
	if !ok {
		lim = rate.NewLimiter(s.rps, s.burst)
		s.limiters.Add(ip, lim)
	}
	return lim.Allow()
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) handleCreatePlayer(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxActionBody))
	if err != nil {
		writeError(w, protocol.ActionCreatePlayer, http.StatusBadRequest, protocol.ErrBadRequest, "unreadable body")
		return
	}
	msg, err := parseHTTPAction(protocol.ActionCreatePlayer, "", body)
	if err != nil {
		s.fail(w, protocol.ActionCreatePlayer, err)
		return
	}
	out, err := s.dispatcher.Dispatch(r.Context(), "", msg.Type, msg.Payload)
	if err != nil {
		s.fail(w, msg.Type, err)
		return
	}
	writeJSON(w, http.StatusCreated, protocol.NewResult("", msg.Type, out))
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	playerID := r.PathValue("id")
	action := r.PathValue("action")
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxActionBody))
	if err != nil {
		writeError(w, action, http.StatusBadRequest, protocol.ErrBadRequest, "unreadable body")
		return
	}
	msg, err := parseHTTPAction(action, playerID, body)
	if err != nil {
		s.fail(w, action, err)
		return
	}
	out, err := s.dispatcher.Dispatch(r.Context(), msg.PlayerID, msg.Type, msg.Payload)
	if err != nil {
		s.fail(w, action, err)
		return
	}
	writeJSON(w, http.StatusOK, protocol.NewResult(msg.RequestID, msg.Type, out))
}

// parseHTTPAction runs an HTTP body through the same schema as WebSocket messages.
func parseHTTPAction(action, playerID string, body []byte) (protocol.ActionMessage, error) {
	if len(body) == 0 {
		body = []byte("{}")
	}
	if !json.Valid(body) {
		return protocol.ActionMessage{}, fmt.Errorf("%w: body is not JSON", protocol.ErrInvalidMessage)
	}
	raw, err := json.Marshal(protocol.ActionMessage{
		Type:     action,
		PlayerID: playerID,
		Payload:  json.RawMessage(body),
	})
	if err != nil {
		return protocol.ActionMessage{}, err
	}
	return protocol.ParseAction(raw)
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.Player(r.PathValue("id"))
	if err != nil {
		s.fail(w, "", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.cache.Profile(r.PathValue("id"), s.engine.Profile)
	if err != nil {
		s.fail(w, "", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := s.engine.Player(id)
	if err != nil {
		s.fail(w, "", err)
		return
	}
	w.Header().Set("Content-Type", archive.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".career.zst"))
	if err := archive.Export(w, p, s.engine.Now()); err != nil {
		s.logger.Errorf("export of %s failed: %v", id, err)
		return
	}
	s.logger.Event("CAREER_EXPORTED", id, p.Name)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	p, _, err := archive.Import(http.MaxBytesReader(w, r.Body, maxImportBody))
	if err != nil {
		if !errors.Is(err, archive.ErrBadVersion) && !errors.Is(err, archive.ErrMismatch) && !errors.Is(err, archive.ErrTooLarge) {
			err = fmt.Errorf("%w: %v", protocol.ErrInvalidMessage, err)
		}
		s.fail(w, "import", err)
		return
	}
	imported, err := s.engine.ImportPlayer(p)
	if err != nil {
		s.fail(w, "import", err)
		return
	}
	s.cache.InvalidatePlayer(imported.ID)
	writeJSON(w, http.StatusCreated, imported)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	by := r.URL.Query().Get("by")
	if by == "" {
		by = engine.BoardXP
	}
	n := 10
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 || parsed > 100 {
			writeError(w, "", http.StatusBadRequest, protocol.ErrBadRequest, "n must be between 1 and 100")
			return
		}
		n = parsed
	}
	rows, err := s.cache.Leaderboard(by, n, s.engine.Leaderboard)
	if err != nil {
		s.fail(w, "", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"by": by, "entries": rows})
}

func (s *Server) handleFamilies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Families())
}

func (s *Server) handleFamily(w http.ResponseWriter, r *http.Request) {
	f, err := s.engine.Family(r.PathValue("id"))
	if err != nil {
		s.fail(w, "", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleTerritories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Territories())
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	quotes, err := s.engine.MarketPrices(r.PathValue("city"))
	if err != nil {
		s.fail(w, protocol.ActionMarket, err)
		return
	}
	writeJSON(w, http.StatusOK, quotes)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Catalog())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"version":  protocol.Version,
		"tick":     s.engine.TickNumber(),
		"last_seq": s.engine.GetEventLog().LastSeq(),
	})
}

func (s *Server) fail(w http.ResponseWriter, action string, err error) {
	c := classify(err)
	if c == classInternal {
		s.logger.Errorf("request failed: %v", err)
		writeError(w, action, c.status, c.code, "internal error")
		return
	}
	var cd *engine.CooldownError
	if errors.As(err, &cd) {
		w.Header().Set("Retry-After", strconv.Itoa(int(cd.Remaining.Seconds())+1))
	}
	writeError(w, action, c.status, c.code, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, action string, status int, code, msg string) {
	writeJSON(w, status, protocol.NewError("", action, code, msg))
}
