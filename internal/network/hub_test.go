package network

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cosanostra-game/server/internal/api"
	"github.com/cosanostra-game/server/internal/domain/catalog"
	"github.com/cosanostra-game/server/internal/domain/rules"
	"github.com/cosanostra-game/server/internal/engine"
	"github.com/cosanostra-game/server/internal/events"
	"github.com/cosanostra-game/server/internal/platform/logger"
	"github.com/cosanostra-game/server/internal/protocol"
)

func startHub(t *testing.T, opts Options) (*Hub, *events.EventLog) {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	el := events.NewEventLog(0)
	eng := engine.NewEngine(cat, el, logger.NewNopLogger(), engine.Options{Roller: rules.NewFixedRoller(0)})
	eng.SeedWorld()

	h := NewHub(api.NewDispatcher(eng, nil, logger.NewNopLogger()), logger.NewNopLogger(), opts)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	h.StartEventPoller(ctx, el)
	return h, el
}

func dial(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	t.Cleanup(srv.Close)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type frame struct {
	Type      string           `json:"type"`
	RequestID string           `json:"request_id"`
	OK        bool             `json:"ok"`
	Code      string           `json:"code"`
	Data      json.RawMessage  `json:"data"`
	Event     events.GameEvent `json:"event"`
}

func send(t *testing.T, conn *websocket.Conn, msg string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// next reads frames until match accepts one.
func next(t *testing.T, conn *websocket.Conn, match func(frame) bool) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
		if match(f) {
			return f
		}
	}
}

func result(id string) func(frame) bool {
	return func(f frame) bool { return f.Type == protocol.TypeResult && f.RequestID == id }
}

func TestActionsOverWebSocket(t *testing.T) {
	h, _ := startHub(t, Options{})
	conn := dial(t, h)

	send(t, conn, `{"type":"create_player","request_id":"c1","payload":{"name":"Vito"}}`)
	created := next(t, conn, result("c1"))
	if !created.OK {
		t.Fatalf("create failed: %+v", created)
	}
	var p struct {
		ID string `json:"id"`
	}
	json.Unmarshal(created.Data, &p)

	send(t, conn, `{"type":"deposit","request_id":"d1","player_id":"`+p.ID+`","payload":{"amount":100}}`)
	if f := next(t, conn, result("d1")); !f.OK {
		t.Fatalf("deposit failed: %+v", f)
	}
	ev := next(t, conn, func(f frame) bool {
		return f.Type == protocol.TypeEvent && f.Event.Type == events.EventTypeBankDeposit
	})
	if ev.Event.ActorID != p.ID {
		t.Errorf("event for %q, want %q", ev.Event.ActorID, p.ID)
	}
	if h.PlayerConnections(p.ID) != 1 {
		t.Errorf("expected the connection to be bound to %s", p.ID)
	}

	send(t, conn, `{"type":"status","request_id":"s1","player_id":"someone-else"}`)
	if f := next(t, conn, result("s1")); f.OK || f.Code != protocol.ErrConflict {
		t.Errorf("acting for another player: %+v", f)
	}
	send(t, conn, `{"type":"crime","request_id":"x1","player_id":"`+p.ID+`","payload":{"crime_id":"arson"}}`)
	if f := next(t, conn, result("x1")); f.OK || f.Code != protocol.ErrNotFound {
		t.Errorf("unknown crime: %+v", f)
	}
}

func TestInvalidAndRateLimitedMessages(t *testing.T) {
	h, _ := startHub(t, Options{ActionRate: 0.001, ActionBurst: 2})
	conn := dial(t, h)

	isResult := func(f frame) bool { return f.Type == protocol.TypeResult }

	send(t, conn, `{"type":"fly"}`)
	if f := next(t, conn, isResult); f.OK || f.Code != protocol.ErrBadRequest {
		t.Errorf("invalid message: %+v", f)
	}
	send(t, conn, `{"type":"status","player_id":"ghost"}`)
	if f := next(t, conn, isResult); f.OK || f.Code != protocol.ErrNotFound {
		t.Errorf("ghost status: %+v", f)
	}
	send(t, conn, `{"type":"status","player_id":"ghost"}`)
	if f := next(t, conn, isResult); f.OK || f.Code != protocol.ErrRateLimit {
		t.Errorf("expected a rate limit, got %+v", f)
	}
}

func newTestClient(h *Hub) *Client {
	return NewClient(h, nil)
}

func receive(t *testing.T, c *Client) *protocol.EventMessage {
	t.Helper()
	select {
	case raw := <-c.send:
		var m protocol.EventMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return &m
	case <-time.After(200 * time.Millisecond):
		return nil
	}
}

func TestEventRouting(t *testing.T) {
	h, _ := startHub(t, Options{})
	alice, bob, anon := newTestClient(h), newTestClient(h), newTestClient(h)
	for _, c := range []*Client{alice, bob, anon} {
		if !c.Register() {
			t.Fatal("register failed")
		}
	}
	offer(h.done, h.bind, binding{client: alice, playerID: "alice"})
	offer(h.done, h.bind, binding{client: bob, playerID: "bob"})

	h.BroadcastEvent(events.GameEvent{Seq: 1, Type: events.EventTypeCrimeCommitted, ActorID: "alice"})
	if m := receive(t, alice); m == nil || m.Event.Seq != 1 {
		t.Errorf("alice should see her own crime, got %+v", m)
	}
	if m := receive(t, bob); m != nil {
		t.Errorf("bob should not see alice's crime, got %+v", m)
	}

	h.BroadcastEvent(events.GameEvent{Seq: 2, Type: events.EventTypeTurfConquered, ActorID: "alice", TargetID: "harlem"})
	for name, c := range map[string]*Client{"alice": alice, "bob": bob, "anon": anon} {
		if m := receive(t, c); m == nil || m.Event.Seq != 2 {
			t.Errorf("%s should see the conquest, got %+v", name, m)
		}
	}

	h.BroadcastEvent(events.GameEvent{Seq: 3, Type: events.EventTypeBankDeposit, ActorID: "bob", TargetID: "alice"})
	if m := receive(t, alice); m == nil || m.Event.Seq != 3 {
		t.Errorf("alice is the target and should see event 3, got %+v", m)
	}
	if m := receive(t, bob); m == nil || m.Event.Seq != 3 {
		t.Errorf("bob is the actor and should see event 3, got %+v", m)
	}
	if m := receive(t, anon); m != nil {
		t.Errorf("unbound client should not see player events, got %+v", m)
	}

	offer(h.done, h.unregister, alice)
	if _, ok := <-alice.send; ok {
		t.Error("send channel should be closed after unregister")
	}
	if h.ClientCount() != 2 || h.PlayerConnections("alice") != 0 {
		t.Errorf("clients %d, alice connections %d", h.ClientCount(), h.PlayerConnections("alice"))
	}
}
