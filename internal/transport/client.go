// Package transport maintains the authenticated push channel that delivers
// live messages without polling. The connection is owned explicitly: it is
// created at chat-session start, torn down at session end, and injected
// into whatever needs it — never a package-level singleton.
package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/classchat/classchat/internal/api"
	"github.com/classchat/classchat/internal/bus"
	"github.com/classchat/classchat/internal/status"
)

// Options control the supervised-retry policy.
type Options struct {
	// MaxAttempts caps consecutive failed dials before giving up.
	MaxAttempts int
	// BaseDelay is the first backoff delay; it doubles per failed attempt.
	BaseDelay time.Duration
	// MaxDelay caps the backoff growth.
	MaxDelay time.Duration
}

// DefaultOptions returns the retry policy used in production.
func DefaultOptions() Options {
	return Options{
		MaxAttempts: 8,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
	}
}

// envelope is the single-event wire frame the server pushes.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client dials the push channel and republishes inbound messages on the
// bus. A dropped connection is retried with exponential backoff until the
// attempt cap is reached, surfacing every state change through the status
// machine.
type Client struct {
	url     string
	token   string
	bus     *bus.Bus
	machine *status.Machine
	logger  *zap.Logger
	opts    Options
	dialer  *websocket.Dialer

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a push-channel client. It does not connect; call Start.
func New(pushURL, token string, b *bus.Bus, machine *status.Machine, logger *zap.Logger, opts Options) *Client {
	if opts.MaxAttempts <= 0 {
		opts = DefaultOptions()
	}
	return &Client{
		url:     pushURL,
		token:   token,
		bus:     b,
		machine: machine,
		logger:  logger,
		opts:    opts,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// Start opens the connection supervisor. It returns immediately; delivery
// happens on the bus.
func (c *Client) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	_ = c.machine.Transition(status.Connecting)
	go c.run(ctx)
}

// Stop tears the connection down and waits for the supervisor to exit.
func (c *Client) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	conn := c.conn
	done := c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	if done != nil {
		<-done
	}
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)

	attempt := 0
	for {
		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			attempt++
			c.logger.Warn("push channel dial failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			c.bus.Publish(bus.Event{Kind: bus.KindPushDisconnected, Timestamp: time.Now(), Payload: err.Error()})
			if attempt >= c.opts.MaxAttempts {
				c.logger.Error("push channel gave up", zap.Int("attempts", attempt))
				_ = c.machine.Transition(status.Offline)
				return
			}
			_ = c.machine.Transition(status.Reconnecting)
			if !c.sleep(ctx, c.backoff(attempt)) {
				return
			}
			_ = c.machine.Transition(status.Connecting)
			continue
		}

		attempt = 0
		c.setConn(conn)
		_ = c.machine.Transition(status.Online)
		c.bus.Publish(bus.Event{Kind: bus.KindPushConnected, Timestamp: time.Now()})
		c.logger.Info("push channel connected")

		err = c.readLoop(ctx, conn)
		c.setConn(nil)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}

		c.logger.Warn("push channel dropped", zap.Error(err))
		c.bus.Publish(bus.Event{Kind: bus.KindPushDisconnected, Timestamp: time.Now(), Payload: err.Error()})
		attempt++
		if attempt >= c.opts.MaxAttempts {
			_ = c.machine.Transition(status.Offline)
			return
		}
		_ = c.machine.Transition(status.Reconnecting)
		if !c.sleep(ctx, c.backoff(attempt)) {
			return
		}
		_ = c.machine.Transition(status.Connecting)
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)
	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Warn("malformed push frame", zap.Error(err))
			continue
		}
		if env.Event != "message" {
			continue
		}
		msg, err := api.DecodeMessage(env.Data)
		if err != nil {
			c.logger.Warn("malformed push message payload", zap.Error(err))
			continue
		}
		c.bus.Publish(bus.Event{
			Kind:      bus.KindPushMessage,
			Timestamp: time.Now(),
			Payload:   msg,
		})
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.opts.BaseDelay << (attempt - 1)
	if d > c.opts.MaxDelay || d <= 0 {
		d = c.opts.MaxDelay
	}
	return d
}

func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}
