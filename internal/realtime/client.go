package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrClosed is returned by operations on a closed client.
var ErrClosed = errors.New("realtime client closed")

const defaultWriteTimeout = 5 * time.Second

// Handler receives server events. Handlers run on the read goroutine in
// registration order and must not block for long.
type Handler func(Event)

// Subscription removes a handler registered with On.
type Subscription struct {
	client *Client
	kind   Kind
	id     uint64
	once   sync.Once
}

// Off unsubscribes the handler. Safe to call more than once.
func (s *Subscription) Off() {
	if s == nil {
		return
	}
	s.once.Do(func() { s.client.off(s.kind, s.id) })
}

type handlerEntry struct {
	id uint64
	fn Handler
}

// Client is a websocket event client. It connects lazily on the first
// JoinChannel or Emit and fans each incoming event out to the local handlers
// registered for its kind.
type Client struct {
	url    string
	dialer *websocket.Dialer
	log    *zap.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	closed   bool
	gameID   string
	playerID string

	writeMu sync.Mutex

	handlersMu sync.RWMutex
	handlers   map[Kind][]handlerEntry
	nextID     uint64
}

type Option func(*Client)

func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

func New(url string, opts ...Option) *Client {
	c := &Client{
		url:      url,
		dialer:   websocket.DefaultDialer,
		log:      zap.NewNop(),
		handlers: make(map[Kind][]handlerEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ensureConnected(ctx context.Context) (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if c.conn != nil {
		return c.conn, nil
	}
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.log.Info("realtime connected", zap.String("url", c.url))
	go c.readLoop(conn)
	return conn, nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.dropConn(conn)
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !c.isClosed() {
				c.log.Warn("realtime read failed", zap.Error(err))
			}
			return
		}
		ev, err := DecodeEvent(msg)
		if err != nil {
			c.log.Debug("skipping realtime message", zap.String("type", msg.Type), zap.Error(err))
			continue
		}
		c.dispatch(ev)
	}
}

func (c *Client) dropConn(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		c.log.Info("realtime disconnected")
	}
	c.mu.Unlock()
	_ = conn.Close()
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) dispatch(ev Event) {
	c.handlersMu.RLock()
	entries := append([]handlerEntry(nil), c.handlers[ev.Kind()]...)
	c.handlersMu.RUnlock()
	for _, e := range entries {
		e.fn(ev)
	}
}

// Simulate delivers ev to local handlers as if it came from the server.
func (c *Client) Simulate(ev Event) {
	c.dispatch(ev)
}

// On registers h for events of the given kind.
func (c *Client) On(kind Kind, h Handler) *Subscription {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.nextID++
	c.handlers[kind] = append(c.handlers[kind], handlerEntry{id: c.nextID, fn: h})
	return &Subscription{client: c, kind: kind, id: c.nextID}
}

func (c *Client) off(kind Kind, id uint64) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	entries := c.handlers[kind]
	for i, e := range entries {
		if e.id == id {
			c.handlers[kind] = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	if len(c.handlers[kind]) == 0 {
		delete(c.handlers, kind)
	}
}

// HandlerCount reports how many handlers are registered for kind.
func (c *Client) HandlerCount(kind Kind) int {
	c.handlersMu.RLock()
	defer c.handlersMu.RUnlock()
	return len(c.handlers[kind])
}

// JoinChannel joins the room of a game and remembers the ids for LeaveChannel.
func (c *Client) JoinChannel(ctx context.Context, gameID, participantID string) error {
	c.mu.Lock()
	c.gameID, c.playerID = gameID, participantID
	c.mu.Unlock()
	c.log.Debug("join channel", zap.String("game", gameID), zap.String("participant", participantID))
	return c.Emit(ctx, JoinGame{GameID: gameID, PlayerID: participantID})
}

// LeaveChannel leaves a game room. Empty ids fall back to the ones remembered
// by JoinChannel; nothing is sent when neither is known.
func (c *Client) LeaveChannel(ctx context.Context, gameID, participantID string) error {
	c.mu.Lock()
	if gameID == "" {
		gameID = c.gameID
	}
	if participantID == "" {
		participantID = c.playerID
	}
	c.gameID, c.playerID = "", ""
	c.mu.Unlock()

	if gameID == "" || participantID == "" {
		return nil
	}
	c.log.Debug("leave channel", zap.String("game", gameID), zap.String("participant", participantID))
	return c.Emit(ctx, LeaveGame{GameID: gameID, PlayerID: participantID})
}

// Emit sends a notification, connecting first if needed.
func (c *Client) Emit(ctx context.Context, n Notification) error {
	msg, err := EncodeNotification(n)
	if err != nil {
		return err
	}
	conn, err := c.ensureConnected(ctx)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultWriteTimeout)
	}
	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteJSON(msg); err != nil {
		return err
	}
	c.log.Debug("emit", zap.String("type", msg.Type))
	return nil
}

// Close disconnects and drops every handler.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.gameID, c.playerID = "", ""
	c.mu.Unlock()

	c.handlersMu.Lock()
	clear(c.handlers)
	c.handlersMu.Unlock()

	if conn == nil {
		return nil
	}
	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return conn.Close()
}
