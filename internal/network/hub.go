// Package network carries the live game over WebSocket: actions in, results and
// events out.
package network

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cosanostra-game/server/internal/events"
	"github.com/cosanostra-game/server/internal/platform/logger"
	"github.com/cosanostra-game/server/internal/platform/metrics"
	"github.com/cosanostra-game/server/internal/protocol"
)

// Dispatcher runs one action for a player.
type Dispatcher interface {
	Dispatch(ctx context.Context, playerID, action string, payload json.RawMessage) (interface{}, error)
}

// Options sizes the hub. Zero values fall back to defaults.
type Options struct {
	ActionRate      float64 // actions per second per connection
	ActionBurst     int
	SendBuffer      int
	BroadcastBuffer int
	MaxClients      int
}

func (o *Options) defaults() {
	if o.ActionRate <= 0 {
		o.ActionRate = 5
	}
	if o.ActionBurst <= 0 {
		o.ActionBurst = 10
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.BroadcastBuffer <= 0 {
		o.BroadcastBuffer = 256
	}
}

// outbound is a message for a set of players, or for everyone when players is nil.
type outbound struct {
	players []string
	data    []byte
}

type direct struct {
	client *Client
	data   []byte
}

type binding struct {
	client   *Client
	playerID string
}

// Hub maintains the set of active clients and routes messages to them.
type Hub struct {
	clients    map[*Client]bool
	byPlayer   map[string]map[*Client]bool
	broadcast  chan outbound
	direct     chan direct
	register   chan *Client
	unregister chan *Client
	bind       chan binding
	done       chan struct{}
	mu         sync.Mutex

	dispatcher Dispatcher
	opts       Options
	logger     *logger.Logger
	upgrader   websocket.Upgrader
}

// NewHub initializes a new WebSocket Hub.
func NewHub(d Dispatcher, log *logger.Logger, opts Options) *Hub {
	opts.defaults()
	return &Hub{
		clients:    make(map[*Client]bool),
		byPlayer:   make(map[string]map[*Client]bool),
		broadcast:  make(chan outbound, opts.BroadcastBuffer),
		direct:     make(chan direct, opts.BroadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		bind:       make(chan binding),
		done:       make(chan struct{}),
		dispatcher: d,
		opts:       opts,
		logger:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Clients are served from other origins.
			},
		},
	}
}

// offer sends v on ch unless the hub has stopped.
func offer[T any](done <-chan struct{}, ch chan<- T, v T) bool {
	select {
	case ch <- v:
		return true
	case <-done:
		return false
	}
}

// Run starts the Hub's main loop. It owns every client's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.drop(client)
			}
			h.mu.Unlock()
			h.logger.Info("WebSocket Hub shutting down.")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			metrics.Get().RecordWSConnection(1)
			h.logger.Info("New WebSocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.logger.Info("WebSocket client disconnected")
			}
			h.mu.Unlock()
		case b := <-h.bind:
			h.mu.Lock()
			if _, ok := h.clients[b.client]; ok {
				b.client.playerID = b.playerID
				set := h.byPlayer[b.playerID]
				if set == nil {
					set = make(map[*Client]bool)
					h.byPlayer[b.playerID] = set
				}
				set[b.client] = true
			}
			h.mu.Unlock()
		case d := <-h.direct:
			h.mu.Lock()
			if _, ok := h.clients[d.client]; ok {
				h.send(d.client, d.data)
			}
			h.mu.Unlock()
		case out := <-h.broadcast:
			h.mu.Lock()
			if out.players == nil {
				for client := range h.clients {
					h.send(client, out.data)
				}
			} else {
				for _, id := range out.players {
					for client := range h.byPlayer[id] {
						h.send(client, out.data)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// send queues data for a client, dropping clients that cannot keep up.
// Callers hold h.mu.
func (h *Hub) send(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		h.logger.Warn("Dropping slow WebSocket client " + client.playerID)
		metrics.Get().RecordWSError()
		h.drop(client)
	}
}

// drop forgets a client and closes its send channel. Callers hold h.mu.
func (h *Hub) drop(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	if set := h.byPlayer[client.playerID]; set != nil {
		delete(set, client)
		if len(set) == 0 {
			delete(h.byPlayer, client.playerID)
		}
	}
	close(client.send)
	metrics.Get().RecordWSConnection(-1)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// PlayerConnections returns how many clients are bound to a player.
func (h *Hub) PlayerConnections(playerID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.byPlayer[playerID])
}

// BroadcastEvent routes a GameEvent: world events to everyone, the rest to the
// connections of its actor and target.
func (h *Hub) BroadcastEvent(event events.GameEvent) {
	payload, err := json.Marshal(protocol.NewEvent(event))
	if err != nil {
		h.logger.Errorf("Failed to serialize GameEvent for WebSocket broadcast: %v", err)
		return
	}
	out := outbound{data: payload}
	if !events.IsWorldEvent(event.Type) {
		out.players = []string{event.ActorID}
		if event.TargetID != "" && event.TargetID != event.ActorID {
			out.players = append(out.players, event.TargetID)
		}
	}
	offer(h.done, h.broadcast, out)
}

// StartEventPoller spawns a goroutine that pushes every event appended to the
// log after this call to the Hub.
func (h *Hub) StartEventPoller(ctx context.Context, eventLog *events.EventLog) {
	lastSeq := eventLog.LastSeq()
	go func() {
		pollInterval := time.NewTicker(200 * time.Millisecond)
		defer pollInterval.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-pollInterval.C:
				for _, event := range eventLog.Since(lastSeq) {
					h.BroadcastEvent(event)
					lastSeq = event.Seq
				}
			}
		}
	}()
}

// ServeWS upgrades the request and starts the client's pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	if h.opts.MaxClients > 0 && h.ClientCount() >= h.opts.MaxClients {
		http.Error(w, "server full", http.StatusServiceUnavailable)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket: " + err.Error())
		metrics.Get().RecordWSError()
		return
	}
	client := NewClient(h, conn)
	if !client.Register() {
		conn.Close()
		return
	}
	go client.WritePump()
	go client.ReadPump()
}
