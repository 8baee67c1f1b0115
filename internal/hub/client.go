package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/weiawesome/crowd-playback/pkg/log"
)

const sendBuffer = 256

// ErrSendBufferFull is returned when a slow client cannot keep up.
var ErrSendBufferFull = errors.New("client send buffer full")

// Client is one websocket connection. Outgoing messages are queued and
// written by a single writer goroutine.
type Client struct {
	ID       string
	ViewerID string

	hub          *Hub
	conn         *websocket.Conn
	send         chan []byte
	onDisconnect func(*Client)

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient wraps an upgraded connection.
func NewClient(id string, h *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:   id,
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// OnDisconnect sets a callback run once the connection has ended, before the
// client leaves the hub.
func (c *Client) OnDisconnect(fn func(*Client)) {
	c.onDisconnect = fn
}

// Serve runs the connection until the peer goes away or the hub closes it.
// handle is called for each incoming message on the calling goroutine.
func (c *Client) Serve(handle func(*Client, []byte)) {
	go c.writeLoop()
	c.readLoop(handle)
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) readLoop(handle func(*Client, []byte)) {
	defer func() {
		if c.onDisconnect != nil {
			c.onDisconnect(c)
		}
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	cfg := c.hub.cfg
	c.conn.SetReadLimit(cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				l := log.L()
				l.Warn().Err(err).Str("client_id", c.ID).Str(log.FieldViewerID, c.ViewerID).Msg("websocket read failed")
			}
			return
		}
		handle(c, msg)
	}
}

func (c *Client) writeLoop() {
	cfg := c.hub.cfg
	ping := time.NewTicker(cfg.PingInterval)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	write := func(kind int, data []byte) error {
		c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case <-c.done:
			c.drain(write)
			write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-c.send:
			if err := write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// drain writes what was queued before the client closed.
func (c *Client) drain(write func(int, []byte) error) {
	for {
		select {
		case msg := <-c.send:
			if err := write(websocket.TextMessage, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

// SendMessage queues message as JSON. Messages to a closed client are
// discarded.
func (c *Client) SendMessage(message any) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return nil
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}
