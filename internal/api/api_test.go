package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cosanostra-game/server/internal/domain/catalog"
	"github.com/cosanostra-game/server/internal/domain/rules"
	"github.com/cosanostra-game/server/internal/engine"
	"github.com/cosanostra-game/server/internal/events"
	"github.com/cosanostra-game/server/internal/infra/cache"
	"github.com/cosanostra-game/server/internal/infra/storage"
	"github.com/cosanostra-game/server/internal/platform/logger"
	"github.com/cosanostra-game/server/internal/platform/metrics"
	"github.com/cosanostra-game/server/internal/protocol"
)

var t0 = time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)

type testServer struct {
	srv *Server
	eng *engine.Engine
	log *events.EventLog
	now *time.Time
}

func newTestServer(t *testing.T, el *events.EventLog, opts Options) *testServer {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if el == nil {
		el = events.NewEventLog(0)
	}
	now := new(time.Time)
	*now = t0
	eng := engine.NewEngine(cat, el, logger.NewNopLogger(), engine.Options{
		Roller: rules.NewFixedRoller(0),
		Clock:  func() time.Time { return *now },
	})
	eng.SeedWorld()
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = 1000
		opts.Burst = 1000
	}
	c := cache.NewProfileCache(cache.Options{Size: 16, Clock: eng.Now})
	d := NewDispatcher(eng, c, logger.NewNopLogger())
	return &testServer{srv: NewServer(eng, d, c, logger.NewNopLogger(), opts), eng: eng, log: el, now: now}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	ts.srv.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) createPlayer(t *testing.T, name string) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/players", fmt.Sprintf(`{"name":%q}`, name))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create player: %d %s", rec.Code, rec.Body.String())
	}
	var res struct {
		OK   bool `json:"ok"`
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.OK || res.Data.ID == "" {
		t.Fatalf("unexpected create result %s", rec.Body.String())
	}
	return res.Data.ID
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) protocol.ResultMessage {
	t.Helper()
	var res protocol.ResultMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode result: %v (%s)", err, rec.Body.String())
	}
	return res
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{engine.ErrPlayerNotFound, http.StatusNotFound, protocol.ErrNotFound},
		{engine.ErrUnknownTerritory, http.StatusNotFound, protocol.ErrNotFound},
		{engine.ErrInvalidAmount, http.StatusUnprocessableEntity, protocol.ErrBadRequest},
		{fmt.Errorf("%w: bad", protocol.ErrInvalidMessage), http.StatusUnprocessableEntity, protocol.ErrBadRequest},
		{engine.ErrJailed, http.StatusConflict, protocol.ErrBlocked},
		{engine.ErrNotEnoughCash, http.StatusConflict, protocol.ErrNoResource},
		{engine.ErrAlreadyInFamily, http.StatusConflict, protocol.ErrConflict},
		{&engine.CooldownError{Action: "crime", Remaining: time.Second}, http.StatusTooManyRequests, protocol.ErrCooldown},
		{ErrRateLimited, http.StatusTooManyRequests, protocol.ErrRateLimit},
		{errors.New("disk on fire"), http.StatusInternalServerError, protocol.ErrInternal},
	}
	for _, tc := range cases {
		if got := StatusFor(tc.err); got != tc.status {
			t.Errorf("StatusFor(%v) = %d, want %d", tc.err, got, tc.status)
		}
		if got := CodeFor(tc.err); got != tc.code {
			t.Errorf("CodeFor(%v) = %s, want %s", tc.err, got, tc.code)
		}
	}
	if IsRefusal(nil) || IsRefusal(errors.New("boom")) || !IsRefusal(engine.ErrJailed) {
		t.Error("IsRefusal misclassified")
	}
}

func TestCreatePlayerAndCommitCrime(t *testing.T) {
	ts := newTestServer(t, nil, Options{})
	id := ts.createPlayer(t, "Vito")
	before := metrics.Get().ActionCount(protocol.ActionCrime, metrics.OutcomeOK)

	rec := ts.do(t, http.MethodPost, "/api/players/"+id+"/actions/crime", `{"crime_id":"pickpocket"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("crime: %d %s", rec.Code, rec.Body.String())
	}
	var res struct {
		OK   bool `json:"ok"`
		Data struct {
			Result    engine.CrimeResult `json:"result"`
			Narrative string             `json:"narrative"`
		} `json:"data"`
	}
	json.Unmarshal(rec.Body.Bytes(), &res)
	if !res.OK || !res.Data.Result.Success {
		t.Fatalf("expected a successful crime, got %s", rec.Body.String())
	}
	if res.Data.Narrative == "" {
		t.Error("expected narrative text")
	}
	if got := metrics.Get().ActionCount(protocol.ActionCrime, metrics.OutcomeOK); got != before+1 {
		t.Errorf("ok crimes = %d, want %d", got, before+1)
	}

	rec = ts.do(t, http.MethodPost, "/api/players/"+id+"/actions/crime", `{"crime_id":"pickpocket"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected cooldown refusal, got %d", rec.Code)
	}
	if r := decodeResult(t, rec); r.OK || r.Code != protocol.ErrCooldown {
		t.Errorf("unexpected refusal %+v", r)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After on a cooldown")
	}
}

func TestActionRefusals(t *testing.T) {
	ts := newTestServer(t, nil, Options{})
	id := ts.createPlayer(t, "Sonny")

	cases := []struct {
		name, path, body string
		status           int
		code             string
	}{
		{"unknown action", "/api/players/" + id + "/actions/fly", `{}`, http.StatusUnprocessableEntity, protocol.ErrBadRequest},
		{"schema violation", "/api/players/" + id + "/actions/deposit", `{"amount":"lots"}`, http.StatusUnprocessableEntity, protocol.ErrBadRequest},
		{"not json", "/api/players/" + id + "/actions/deposit", `{amount`, http.StatusUnprocessableEntity, protocol.ErrBadRequest},
		{"unknown player", "/api/players/ghost/actions/status", ``, http.StatusNotFound, protocol.ErrNotFound},
		{"unknown crime", "/api/players/" + id + "/actions/crime", `{"crime_id":"arson"}`, http.StatusNotFound, protocol.ErrNotFound},
		{"broke", "/api/players/" + id + "/actions/deposit", `{"amount":100000}`, http.StatusConflict, protocol.ErrNoResource},
		{"not jailed", "/api/players/" + id + "/actions/bail", ``, http.StatusConflict, protocol.ErrBlocked},
	}
	for _, tc := range cases {
		rec := ts.do(t, http.MethodPost, tc.path, tc.body)
		if rec.Code != tc.status {
			t.Errorf("%s: status %d, want %d (%s)", tc.name, rec.Code, tc.status, rec.Body.String())
			continue
		}
		if r := decodeResult(t, rec); r.OK || r.Code != tc.code {
			t.Errorf("%s: code %q, want %q", tc.name, r.Code, tc.code)
		}
	}

	p, _ := ts.eng.Player(id)
	if p.Cash != 500 || p.Bank != 0 {
		t.Errorf("refusals changed the player: cash %d bank %d", p.Cash, p.Bank)
	}
}

func TestStatusAndBank(t *testing.T) {
	ts := newTestServer(t, nil, Options{})
	id := ts.createPlayer(t, "Fredo")

	rec := ts.do(t, http.MethodPost, "/api/players/"+id+"/actions/deposit", `{"amount":200}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("deposit: %d %s", rec.Code, rec.Body.String())
	}
	rec = ts.do(t, http.MethodPost, "/api/players/"+id+"/actions/status", ``)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d %s", rec.Code, rec.Body.String())
	}
	var res struct {
		Data struct {
			Player struct {
				Cash int `json:"cash"`
				Bank int `json:"bank"`
			} `json:"player"`
		} `json:"data"`
	}
	json.Unmarshal(rec.Body.Bytes(), &res)
	// 2% bank fee.
	if res.Data.Player.Cash != 300 || res.Data.Player.Bank != 196 {
		t.Errorf("unexpected status %s", rec.Body.String())
	}
}

func TestProfileCacheInvalidatedByActions(t *testing.T) {
	ts := newTestServer(t, nil, Options{})
	id := ts.createPlayer(t, "Tom")

	netWorth := func() int64 {
		rec := ts.do(t, http.MethodGet, "/api/players/"+id+"/profile", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("profile: %d", rec.Code)
		}
		var p engine.Profile
		json.Unmarshal(rec.Body.Bytes(), &p)
		return p.NetWorth
	}
	if got := netWorth(); got != 500 {
		t.Fatalf("net worth %d, want 500", got)
	}
	ts.do(t, http.MethodPost, "/api/players/"+id+"/actions/crime", `{"crime_id":"pickpocket"}`)
	if got := netWorth(); got <= 500 {
		t.Errorf("profile served stale after a crime: %d", got)
	}
}

func TestProfileFollowsTheClock(t *testing.T) {
	ts := newTestServer(t, nil, Options{})
	id := ts.createPlayer(t, "Fredo")
	p, err := ts.eng.Player(id)
	if err != nil {
		t.Fatalf("player: %v", err)
	}
	p.JailedUntil = t0.Add(2 * time.Minute)
	ts.eng.RegisterPlayer(&p)

	jailed := func() bool {
		rec := ts.do(t, http.MethodGet, "/api/players/"+id+"/profile", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("profile: %d", rec.Code)
		}
		var pr engine.Profile
		json.Unmarshal(rec.Body.Bytes(), &pr)
		return pr.Jailed
	}
	if !jailed() {
		t.Fatal("expected the profile to show the player in jail")
	}
	*ts.now = t0.Add(24 * time.Hour)
	if jailed() {
		t.Error("profile still shows the player jailed after release")
	}
}

func TestWorldQueries(t *testing.T) {
	ts := newTestServer(t, nil, Options{})
	ts.createPlayer(t, "Luca")

	for _, path := range []string{
		"/api/leaderboard?by=networth&n=5",
		"/api/families",
		"/api/territories",
		"/api/markets/new_york",
		"/api/catalog",
		"/healthz",
		"/metrics",
		"/metrics/prometheus",
	} {
		if rec := ts.do(t, http.MethodGet, path, ""); rec.Code != http.StatusOK {
			t.Errorf("GET %s: %d %s", path, rec.Code, rec.Body.String())
		}
	}

	notFound := []string{"/api/markets/atlantis", "/api/families/nope", "/api/players/nope", "/api/leaderboard?by=charm"}
	for _, path := range notFound {
		if rec := ts.do(t, http.MethodGet, path, ""); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s: %d, want 404", path, rec.Code)
		}
	}
	if rec := ts.do(t, http.MethodGet, "/api/leaderboard?n=0", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("n=0: %d, want 400", rec.Code)
	}
}

func TestExportImport(t *testing.T) {
	src := newTestServer(t, nil, Options{})
	id := src.createPlayer(t, "Clemenza")

	rec := src.do(t, http.MethodGet, "/api/players/"+id+"/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export: %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/zstd" {
		t.Errorf("content type %q", ct)
	}
	archiveBytes := rec.Body.Bytes()

	// Same server already has the player.
	rec = src.do(t, http.MethodPost, "/api/players/import", string(archiveBytes))
	if rec.Code != http.StatusConflict {
		t.Errorf("re-import: %d, want 409", rec.Code)
	}

	dst := newTestServer(t, nil, Options{})
	req := httptest.NewRequest(http.MethodPost, "/api/players/import", bytes.NewReader(archiveBytes))
	out := httptest.NewRecorder()
	dst.srv.ServeHTTP(out, req)
	if out.Code != http.StatusCreated {
		t.Fatalf("import: %d %s", out.Code, out.Body.String())
	}
	p, err := dst.eng.Player(id)
	if err != nil || p.Name != "Clemenza" {
		t.Errorf("imported player = %+v, %v", p, err)
	}

	if rec := dst.do(t, http.MethodPost, "/api/players/import", "not an archive"); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("garbage import: %d, want 422", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, nil, Options{RequestsPerSecond: 0.001, Burst: 2})
	before := metrics.Get().RateLimited

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, ts.do(t, http.MethodGet, "/api/territories", "").Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
	if metrics.Get().RateLimited <= before {
		t.Error("rate limited requests not counted")
	}
	if rec := ts.do(t, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz should bypass the limiter, got %d", rec.Code)
	}
}

func TestEventFeed(t *testing.T) {
	ts := newTestServer(t, nil, Options{})
	vito := ts.createPlayer(t, "Vito")
	ts.createPlayer(t, "Sonny")

	rec := ts.do(t, http.MethodGet, "/api/events?actor="+vito, "")
	var feed FeedResponse
	json.Unmarshal(rec.Body.Bytes(), &feed)
	if rec.Code != http.StatusOK || feed.TotalEvents != 1 || feed.Events[0].Type != events.EventTypePlayerCreated {
		t.Fatalf("actor feed = %d %+v", rec.Code, feed)
	}
	if feed.Source != "live" {
		t.Errorf("source %q, want live", feed.Source)
	}

	rec = ts.do(t, http.MethodGet, "/api/events/"+feed.Events[0].ID, "")
	if rec.Code != http.StatusOK {
		t.Errorf("detail: %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/api/events/missing", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing detail: %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/events/stats", "")
	var stats struct {
		ByType map[string]int `json:"by_type"`
	}
	json.Unmarshal(rec.Body.Bytes(), &stats)
	if stats.ByType[string(events.EventTypePlayerCreated)] != 2 {
		t.Errorf("stats = %s", rec.Body.String())
	}

	for _, q := range []string{"since=abc", "limit=-1"} {
		if rec := ts.do(t, http.MethodGet, "/api/events?"+q, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: %d, want 400", q, rec.Code)
		}
	}
	if rec := ts.do(t, http.MethodGet, "/api/players/"+vito+"/recap", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("recap without ledger: %d, want 503", rec.Code)
	}
}

func TestEventFeedFallsBackToLedger(t *testing.T) {
	repo, err := storage.Open(context.Background(), storage.Options{
		Dialect:    storage.DialectSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "mafia.db"),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer repo.Close()

	el := events.NewEventLog(2)
	el.AttachPersister(storage.NewEventPersister(repo), 16, nil)
	ts := newTestServer(t, el, Options{EventRepo: repo})
	vito := ts.createPlayer(t, "Vito")
	ts.createPlayer(t, "Sonny")
	ts.createPlayer(t, "Michael")
	el.Close()

	rec := ts.do(t, http.MethodGet, "/api/events", "")
	var feed FeedResponse
	json.Unmarshal(rec.Body.Bytes(), &feed)
	if feed.Source != "ledger" || feed.TotalEvents != 3 {
		t.Fatalf("feed = %s", rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, "/api/events?since=2", "")
	json.Unmarshal(rec.Body.Bytes(), &feed)
	if feed.Source != "live" || feed.TotalEvents != 1 {
		t.Errorf("tail feed = %s", rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, "/api/players/"+vito+"/recap", "")
	if rec.Code != http.StatusOK {
		t.Errorf("recap: %d %s", rec.Code, rec.Body.String())
	}
}
