package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cosanostra-game/server/internal/events"
	"github.com/cosanostra-game/server/internal/infra/storage"
	"github.com/cosanostra-game/server/internal/platform/logger"
	"github.com/cosanostra-game/server/internal/protocol"
)

var errBadLimit = errors.New("limit must be a positive integer")

const (
	defaultFeedLimit = 100
	maxFeedLimit     = 1000
)

// FeedHandler serves the event history: the live log first, the ledger for
// anything older than what the log still retains.
type FeedHandler struct {
	eventLog *events.EventLog
	repo     storage.EventRepository
	recap    *storage.Reconstructor
	logger   *logger.Logger
}

// NewFeedHandler creates a feed handler. repo may be nil, in which case only
// retained events are served and recaps are unavailable.
func NewFeedHandler(el *events.EventLog, repo storage.EventRepository, log *logger.Logger) *FeedHandler {
	fh := &FeedHandler{eventLog: el, repo: repo, logger: log}
	if repo != nil {
		fh.recap = storage.NewReconstructor(repo)
	}
	return fh
}

// FeedResponse is the answer of the feed endpoint.
type FeedResponse struct {
	LastSeq     uint64             `json:"last_seq"`
	TotalEvents int                `json:"total_events"`
	Source      string             `json:"source"`
	GeneratedAt string             `json:"generated_at"`
	Events      []events.GameEvent `json:"events"`
}

// HandleFeed lists events.
// GET /api/events?since=SEQ&actor=ID&type=TYPE&limit=N
func (fh *FeedHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	since, err := parseUint(q.Get("since"))
	if err != nil {
		writeError(w, "", http.StatusBadRequest, protocol.ErrBadRequest, "since must be a sequence number")
		return
	}
	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		writeError(w, "", http.StatusBadRequest, protocol.ErrBadRequest, err.Error())
		return
	}
	actor := q.Get("actor")
	eventType := q.Get("type")

	list, source := fh.load(r, since, actor, limit)
	filtered := make([]events.GameEvent, 0, len(list))
	for _, e := range list {
		if eventType != "" && string(e.Type) != eventType {
			continue
		}
		if actor != "" && e.ActorID != actor && e.TargetID != actor {
			continue
		}
		filtered = append(filtered, e)
	}
	if len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}

	writeJSON(w, http.StatusOK, FeedResponse{
		LastSeq:     fh.eventLog.LastSeq(),
		TotalEvents: len(filtered),
		Source:      source,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Events:      filtered,
	})
}

// load picks the live log when it still covers since, the ledger otherwise.
func (fh *FeedHandler) load(r *http.Request, since uint64, actor string, limit int) ([]events.GameEvent, string) {
	live := fh.eventLog.Since(since)
	covered := fh.eventLog.Len() == 0 || (len(live) > 0 && live[0].Seq == since+1) || since >= fh.eventLog.LastSeq()
	if covered || fh.repo == nil {
		return live, "live"
	}

	var (
		stored []storage.StoredEvent
		err    error
	)
	if actor != "" && since == 0 {
		stored, err = fh.repo.EventsByActor(r.Context(), actor, limit)
	} else {
		stored, err = fh.repo.EventsSince(r.Context(), since, maxFeedLimit)
	}
	if err != nil {
		fh.logger.Errorf("ledger read failed, serving live events: %v", err)
		return live, "live"
	}
	out := make([]events.GameEvent, len(stored))
	for i, s := range stored {
		out[i] = fromStored(s)
	}
	return out, "ledger"
}

// HandleEventDetail returns one retained event by ID.
// GET /api/events/{id}
func (fh *FeedHandler) HandleEventDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	for _, e := range fh.eventLog.Recent(0) {
		if e.ID == id {
			writeJSON(w, http.StatusOK, e)
			return
		}
	}
	writeError(w, "", http.StatusNotFound, protocol.ErrNotFound, "event not found")
}

// HandleStats returns counts per event type over the retained log.
// GET /api/events/stats
func (fh *FeedHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	all := fh.eventLog.Recent(0)
	byType := make(map[string]int)
	for _, e := range all {
		byType[string(e.Type)]++
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"generated_at": time.Now().UTC().Format(time.RFC3339),
		"retained":     len(all),
		"last_seq":     fh.eventLog.LastSeq(),
		"by_type":      byType,
	})
}

// HandleRecap summarizes what happened to a player after a point in time.
// GET /api/players/{id}/recap?since=RFC3339&limit=N
func (fh *FeedHandler) HandleRecap(w http.ResponseWriter, r *http.Request) {
	if fh.recap == nil {
		writeError(w, "", http.StatusServiceUnavailable, protocol.ErrInternal, "no event ledger configured")
		return
	}
	playerID := r.PathValue("id")
	var since time.Time
	if s := r.URL.Query().Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, "", http.StatusBadRequest, protocol.ErrBadRequest, "since must be RFC3339")
			return
		}
		since = t
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, "", http.StatusBadRequest, protocol.ErrBadRequest, err.Error())
		return
	}
	recap, err := fh.recap.GenerateRecap(r.Context(), playerID, since, limit)
	if err != nil {
		fh.logger.Errorf("recap for %s failed: %v", playerID, err)
		writeError(w, "", http.StatusInternalServerError, protocol.ErrInternal, "recap unavailable")
		return
	}
	if recap == nil {
		recap = []storage.RecapEvent{}
	}
	fh.logger.Event("RECAP", playerID, "Lines:"+strconv.Itoa(len(recap)))
	writeJSON(w, http.StatusOK, map[string]interface{}{"player_id": playerID, "events": recap})
}

// RegisterRoutes sets up the feed routes.
func (fh *FeedHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/events", fh.HandleFeed)
	mux.HandleFunc("GET /api/events/stats", fh.HandleStats)
	mux.HandleFunc("GET /api/events/{id}", fh.HandleEventDetail)
	mux.HandleFunc("GET /api/players/{id}/recap", fh.HandleRecap)
}

func fromStored(s storage.StoredEvent) events.GameEvent {
	var payload interface{}
	if len(s.Payload) > 0 {
		payload = json.RawMessage(s.Payload)
	}
	return events.GameEvent{
		Seq:       s.Seq,
		ID:        s.ID,
		Timestamp: s.Timestamp,
		Type:      events.EventType(s.EventType),
		ActorID:   s.ActorID,
		TargetID:  s.TargetID,
		Payload:   payload,
	}
}

func parseUint(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

func parseLimit(s string) (int, error) {
	if s == "" {
		return defaultFeedLimit, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errBadLimit
	}
	if n > maxFeedLimit {
		n = maxFeedLimit
	}
	return n, nil
}
