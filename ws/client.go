package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/assocworks/member-chat/chat"
	"github.com/assocworks/member-chat/types"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
)

const (
	maxMessageSize  = 4096
	pongWait        = 2 * time.Minute
	pingPeriod      = time.Minute
	writeWait       = 10 * time.Second
	sendChannelSize = 256
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendBufferFull   = errors.New("send buffer full")
)

// Client is the middleman between one websocket connection and the event
// router. It implements chat.Session.
type Client struct {
	id     uuid.UUID
	user   *types.User
	conn   *websocket.Conn
	router *chat.Router
	log    hclog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(router *chat.Router, conn *websocket.Conn, user *types.User, log hclog.Logger) *Client {
	return &Client{
		id:     uuid.New(),
		user:   user,
		conn:   conn,
		router: router,
		log:    log,
		send:   make(chan []byte, sendChannelSize),
		done:   make(chan struct{}),
	}
}

func (c *Client) ID() uuid.UUID     { return c.id }
func (c *Client) User() *types.User { return c.user }

// Send queues one outbound event. Delivery is best-effort: a closed
// connection or a full send buffer drops the event for this connection
// only.
func (c *Client) Send(event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(types.WebsocketMessage{Event: event, Data: payload})
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}
	select {
	case c.send <- raw:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		c.log.Warn("send buffer full, dropping event", "connection", c.id, "event", event)
		return ErrSendBufferFull
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// ReadLoop pumps messages from the websocket connection to the router. The
// application runs ReadLoop in a per-connection goroutine, ensuring at most
// one reader per connection; this is also what serializes the connection's
// events. Disconnect cleanup happens here, whatever ended the loop.
func (c *Client) ReadLoop() {
	defer func() {
		c.close()
		c.router.Disconnect(c)
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("websocket closed unexpectedly", "connection", c.id, "error", err)
			}
			return
		}
		msg := types.WebsocketMessage{}
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Debug("could not unmarshal ws message", "connection", c.id, "error", err)
			continue
		}
		c.router.Dispatch(c, msg)
	}
}

// WriteLoop pumps messages from the send channel to the websocket
// connection. A goroutine running WriteLoop is started for each connection,
// ensuring at most one writer per connection.
func (c *Client) WriteLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case raw := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
