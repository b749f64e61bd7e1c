package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrClosed reports an operation on a connection that has shut down.
var ErrClosed = errors.New("rpc connection closed")

// Config collects the connection knobs. Dial fills zero fields with
// the defaults documented per field.
type Config struct {
	// HandshakeTimeout caps the websocket upgrade. Default 10s.
	HandshakeTimeout time.Duration

	// PingInterval spaces keepalive pings. Default 30s; a negative
	// value disables them.
	PingInterval time.Duration

	// NotificationBuffer is each subscription's channel depth.
	// Default 64.
	NotificationBuffer int

	// Logger receives connection diagnostics. Default no-op.
	Logger *zap.Logger
}

// Option tweaks one Config field.
type Option func(*Config)

// WithHandshakeTimeout caps how long the websocket upgrade may take.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Config) { c.HandshakeTimeout = d }
}

// WithPingInterval spaces keepalive pings; a negative interval
// disables them.
func WithPingInterval(d time.Duration) Option {
	return func(c *Config) { c.PingInterval = d }
}

// WithNotificationBuffer sets each subscription's channel depth.
func WithNotificationBuffer(n int) Option {
	return func(c *Config) { c.NotificationBuffer = n }
}

// WithLogger routes connection diagnostics to l.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

func (c *Config) withDefaults() {
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.PingInterval == 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.NotificationBuffer == 0 {
		c.NotificationBuffer = 64
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Conn is a JSON-RPC 2.0 connection to a node. All methods are safe
// for concurrent use.
type Conn struct {
	ws  *websocket.Conn
	log *zap.Logger

	notifyBuffer int

	writeMu sync.Mutex // one websocket frame writer at a time

	mu          sync.Mutex
	nextID      uint64
	pending     map[uint64]chan *message
	subs        map[string]*Subscription
	subscribing int
	orphans     map[string][]json.RawMessage
	closed      bool
	err         error

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to a node's websocket endpoint.
func Dial(ctx context.Context, url string, opts ...Option) (*Conn, error) {
	var cfg Config
	for _, o := range opts {
		o(&cfg)
	}
	cfg.withDefaults()

	d := websocket.Dialer{
		HandshakeTimeout:  cfg.HandshakeTimeout,
		EnableCompression: true,
	}
	ws, _, err := d.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	c := &Conn{
		ws:           ws,
		log:          cfg.Logger,
		notifyBuffer: cfg.NotificationBuffer,
		pending:      make(map[uint64]chan *message),
		subs:         make(map[string]*Subscription),
		done:         make(chan struct{}),
	}
	go c.readLoop()
	if cfg.PingInterval > 0 {
		go c.pingLoop(cfg.PingInterval)
	}
	c.log.Debug("node connected", zap.String("url", url))
	return c, nil
}

// Call performs one request and decodes the node's result into
// result, which may be nil to discard it.
func (c *Conn) Call(ctx context.Context, method string, params any, result any) error {
	id, sink, err := c.register()
	if err != nil {
		return err
	}
	defer c.unregister(id)

	if err := c.write(request{JSONRPC: "2.0", ID: id, Method: method, Params: params}); err != nil {
		return fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return c.closeErr()
	case msg := <-sink:
		if msg.Error != nil {
			return fmt.Errorf("%s: %w", method, msg.Error)
		}
		if result == nil || len(msg.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(msg.Result, result); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
		return nil
	}
}

// Done closes when the connection shuts down for any reason.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Err reports what tore the connection down. It is nil before Done
// closes and after a clean Close.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close tears the connection down, ending every pending call and
// closing every subscription channel.
func (c *Conn) Close() error {
	c.shutdown(nil)
	return nil
}

func (c *Conn) register() (uint64, chan *message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, nil, ErrClosed
	}
	c.nextID++
	sink := make(chan *message, 1)
	c.pending[c.nextID] = sink
	return c.nextID, sink, nil
}

func (c *Conn) unregister(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Conn) write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *Conn) readLoop() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.shutdown(fmt.Errorf("read: %w", err))
			return
		}
		c.dispatch(data)
	}
}

// dispatch routes one incoming frame. It never blocks: call sinks are
// buffered and subscription delivery drops rather than stalls.
func (c *Conn) dispatch(data []byte) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.log.Warn("malformed node message", zap.Error(err))
		return
	}
	switch {
	case msg.ID != nil:
		c.mu.Lock()
		sink, ok := c.pending[*msg.ID]
		delete(c.pending, *msg.ID)
		c.mu.Unlock()
		if !ok {
			c.log.Warn("response for unknown request", zap.Uint64("id", *msg.ID))
			return
		}
		sink <- &msg
	case msg.Method != "":
		c.routeNotification(msg.Params)
	default:
		c.log.Warn("node message with neither id nor method")
	}
}

func (c *Conn) pingLoop(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-t.C:
			deadline := time.Now().Add(interval)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.shutdown(fmt.Errorf("keepalive ping: %w", err))
				return
			}
		}
	}
}

// shutdown runs at most once. A nil cause is a caller-requested close.
func (c *Conn) shutdown(cause error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.err = cause
		c.pending = make(map[uint64]chan *message)
		for _, s := range c.subs {
			close(s.ch)
		}
		c.subs = make(map[string]*Subscription)
		c.orphans = nil
		c.mu.Unlock()

		close(c.done)
		c.ws.Close()
		if cause != nil {
			c.log.Warn("connection lost", zap.Error(cause))
		}
	})
}

func (c *Conn) closeErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return fmt.Errorf("%w: %w", ErrClosed, c.err)
	}
	return ErrClosed
}
