package network

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/cosanostra-game/server/internal/api"
	"github.com/cosanostra-game/server/internal/domain/player"
	"github.com/cosanostra-game/server/internal/platform/metrics"
	"github.com/cosanostra-game/server/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 4096
	// Upper bound on one dispatched action.
	actionTimeout = 5 * time.Second
)

var errOtherPlayer = errors.New("connection is bound to another player")

// Client is one WebSocket connection. It acts for a single player once bound.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	limiter  *rate.Limiter
	playerID string // written by the hub loop
	boundID  string // read pump's own view of the binding
}

// NewClient creates a new WebSocket client and returns it.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, hub.opts.SendBuffer),
		limiter: rate.NewLimiter(rate.Limit(hub.opts.ActionRate), hub.opts.ActionBurst),
	}
}

// Register adds the client to the hub. It fails once the hub has stopped.
func (c *Client) Register() bool {
	return offer(c.hub.done, c.hub.register, c)
}

// ReadPump pumps messages from the websocket connection to the dispatcher.
func (c *Client) ReadPump() {
	defer func() {
		offer(c.hub.done, c.hub.unregister, c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("WebSocket read error: " + err.Error())
				metrics.Get().RecordWSError()
			}
			return
		}
		metrics.Get().RecordWSMessage(true)
		c.reply(c.handle(message))
	}
}

// handle validates, rate limits and dispatches one inbound message.
func (c *Client) handle(raw []byte) protocol.ResultMessage {
	if !c.limiter.Allow() {
		metrics.Get().RecordRateLimited()
		return protocol.NewError("", "", protocol.ErrRateLimit, api.ErrRateLimited.Error())
	}
	msg, err := protocol.ParseAction(raw)
	if err != nil {
		base, _ := protocol.DecodeBase(raw)
		return protocol.NewError("", base.Type, protocol.ErrBadRequest, err.Error())
	}
	if c.boundID != "" && (msg.Type == protocol.ActionCreatePlayer || msg.PlayerID != c.boundID) {
		return protocol.NewError(msg.RequestID, msg.Type, protocol.ErrConflict, errOtherPlayer.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	out, err := c.hub.dispatcher.Dispatch(ctx, msg.PlayerID, msg.Type, msg.Payload)
	if err != nil {
		text := err.Error()
		if !api.IsRefusal(err) {
			c.hub.logger.Errorf("WebSocket action %s failed: %v", msg.Type, err)
			text = "internal error"
		}
		return protocol.NewError(msg.RequestID, msg.Type, api.CodeFor(err), text)
	}

	if c.boundID == "" {
		id := msg.PlayerID
		if p, ok := out.(player.Player); ok {
			id = p.ID
		}
		if id != "" && offer(c.hub.done, c.hub.bind, binding{client: c, playerID: id}) {
			c.boundID = id
		}
	}
	return protocol.NewResult(msg.RequestID, msg.Type, out)
}

func (c *Client) reply(res protocol.ResultMessage) {
	data, err := json.Marshal(res)
	if err != nil {
		c.hub.logger.Errorf("Failed to serialize result: %v", err)
		return
	}
	offer(c.hub.done, c.hub.direct, direct{client: c, data: data})
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				metrics.Get().RecordWSError()
				return
			}
			metrics.Get().RecordWSMessage(false)
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
