package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dicetrain/server/internal/protocol"
)

const (
	dialTimeout  = 5 * time.Second
	writeTimeout = 3 * time.Second
)

var (
	// ErrConnectTimeout reports that the host did not answer in time.
	ErrConnectTimeout = errors.New("transport: connect timed out")
	// ErrConnectRefused reports that the host rejected the connection,
	// usually because the session code is unknown.
	ErrConnectRefused = errors.New("transport: connection refused")
)

// Client is one peer's connection to a remote host. Inbound messages
// are dispatched on a single read goroutine, in arrival order.
type Client struct {
	id   string
	conn *websocket.Conn
	log  *zap.Logger

	mu       sync.Mutex
	handlers map[protocol.Type]Handler
	onClose  func(error)

	ctx    context.Context
	cancel context.CancelFunc
}

// Dial connects to the host session behind baseURL with the given
// session code. The client picks its own peer id; the host adopts it as
// the player's identity for the whole session.
func Dial(ctx context.Context, baseURL, code string, log *zap.Logger) (*Client, error) {
	id := uuid.NewString()

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("transport: bad host url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"
	q := u.Query()
	q.Set("code", code)
	q.Set("peer", id)
	u.RawQuery = q.Encode()

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, resp, err := websocket.Dial(dialCtx, u.String(), nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrConnectTimeout
		}
		if resp != nil && resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("%w: %s", ErrConnectRefused, resp.Status)
		}
		return nil, fmt.Errorf("transport: dial: %w", err)
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	c := &Client{
		id:       id,
		conn:     conn,
		log:      log.With(zap.String("peer", id)),
		handlers: make(map[protocol.Type]Handler),
		ctx:      runCtx,
		cancel:   runCancel,
	}
	go c.readLoop()
	return c, nil
}

// LocalID is the peer id this client dialed with.
func (c *Client) LocalID() string { return c.id }

// Handle registers the handler for a message type. It runs on the read
// goroutine.
func (c *Client) Handle(t protocol.Type, fn Handler) {
	c.mu.Lock()
	c.handlers[t] = fn
	c.mu.Unlock()
}

// OnClose registers a callback for when the connection drops. A nil
// error means the close was local.
func (c *Client) OnClose(fn func(error)) {
	c.mu.Lock()
	c.onClose = fn
	c.mu.Unlock()
}

// SendHost delivers one message to the host. It reports false when the
// write fails; a failed write means the connection is gone.
func (c *Client) SendHost(msg protocol.Message) bool {
	frame, err := protocol.Encode(msg)
	if err != nil {
		c.log.Error("encode failed", zap.String("type", string(msg.Type())), zap.Error(err))
		return false
	}
	ctx, cancel := context.WithTimeout(c.ctx, writeTimeout)
	defer cancel()
	if err := c.conn.Write(ctx, websocket.MessageText, frame); err != nil {
		c.log.Warn("write to host failed", zap.Error(err))
		return false
	}
	return true
}

// Close tears the connection down.
func (c *Client) Close() {
	c.cancel()
	c.conn.Close(websocket.StatusNormalClosure, "leaving")
}

func (c *Client) readLoop() {
	var readErr error
	for {
		_, frame, err := c.conn.Read(c.ctx)
		if err != nil {
			if c.ctx.Err() == nil {
				readErr = err
			}
			break
		}
		msg, err := protocol.Decode(frame)
		if err != nil {
			c.log.Debug("dropping undecodable frame", zap.Error(err))
			continue
		}
		c.mu.Lock()
		fn := c.handlers[msg.Type()]
		c.mu.Unlock()
		if fn != nil {
			fn("host", msg)
		}
	}

	c.cancel()
	c.mu.Lock()
	fn := c.onClose
	c.mu.Unlock()
	if fn != nil {
		fn(readErr)
	}
}
