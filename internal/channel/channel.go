package channel

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/adamavenir/socialdash/internal/types"
	"github.com/gorilla/websocket"
)

// ErrUnauthorized is reported when the server rejects the session token.
var ErrUnauthorized = errors.New("live channel rejected the session token")

// ReasonClientDisconnect is the disconnect reason for an explicit Disconnect.
const ReasonClientDisconnect = "client disconnect"

// ReasonUnauthorized is the disconnect reason for a rejected token.
const ReasonUnauthorized = "unauthorized"

// Credentials authenticate the live connection.
type Credentials struct {
	Token string
}

// Options configure a Channel.
type Options struct {
	URL    string
	Dialer *websocket.Dialer
	Logger *log.Logger

	// MinBackoff and MaxBackoff bound the reconnect delay.
	MinBackoff time.Duration
	MaxBackoff time.Duration
	// MaxAttempts is the number of consecutive failed connection attempts
	// after which the channel gives up and reports a persistent disconnect.
	// Negative means retry forever.
	MaxAttempts int
	// PingInterval enables keepalive pings; reads time out after two
	// missed intervals. Zero disables keepalive.
	PingInterval time.Duration
	// Buffer is the capacity of the event stream.
	Buffer int
}

// DefaultOptions returns the default reconnect policy.
func DefaultOptions() Options {
	return Options{
		MinBackoff:   500 * time.Millisecond,
		MaxBackoff:   30 * time.Second,
		MaxAttempts:  10,
		PingInterval: 25 * time.Second,
		Buffer:       64,
	}
}

type run struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Channel maintains one live connection per session and exposes inbound
// messages as a typed event stream.
type Channel struct {
	opts Options

	mu     sync.Mutex
	state  types.ConnState
	events chan types.Event
	closed bool // events has been closed by a finished lifecycle
	conn   *websocket.Conn
	run    *run
}

// New creates an idle channel.
func New(opts Options) *Channel {
	defaults := DefaultOptions()
	if opts.MinBackoff <= 0 {
		opts.MinBackoff = defaults.MinBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaults.MaxBackoff
	}
	if opts.MaxBackoff < opts.MinBackoff {
		opts.MaxBackoff = opts.MinBackoff
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = defaults.MaxAttempts
	}
	if opts.Buffer <= 0 {
		opts.Buffer = defaults.Buffer
	}
	if opts.Dialer == nil {
		opts.Dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		}
	}
	return &Channel{
		opts:   opts,
		events: make(chan types.Event, opts.Buffer),
	}
}

// Events returns the event stream of the current connection lifecycle. The
// stream is closed when the lifecycle ends (Disconnect, context
// cancellation, rejected token, or persistent failure); a later Connect
// starts a new stream.
func (c *Channel) Events() <-chan types.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events
}

// State returns the current connection state.
func (c *Channel) State() types.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether the channel is live.
func (c *Channel) Connected() bool {
	return c.State() == types.StateConnected
}

// Connect starts the connection lifecycle. It never fails: errors surface
// as disconnected events. Calling Connect while a lifecycle is running is
// a no-op. The lifecycle ends when ctx is canceled.
func (c *Channel) Connect(ctx context.Context, creds Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &run{cancel: cancel, done: make(chan struct{})}
	c.run = r
	c.state = types.StateConnecting
	if c.closed {
		c.events = make(chan types.Event, c.opts.Buffer)
		c.closed = false
	}
	go c.loop(runCtx, r, creds, c.events)
}

// Disconnect tears down the connection and waits for the lifecycle to end.
// It is safe to call at any time and more than once.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	r := c.run
	conn := c.conn
	c.mu.Unlock()
	if r == nil {
		return
	}
	r.cancel()
	if conn != nil {
		_ = conn.Close()
	}
	<-r.done
}

func (c *Channel) loop(ctx context.Context, r *run, creds Credentials, events chan types.Event) {
	final := types.Event{Kind: types.EventDisconnected, Reason: ReasonClientDisconnect}
	defer func() {
		c.mu.Lock()
		if c.run == r {
			c.run = nil
		}
		c.state = types.StateIdle
		c.conn = nil
		// The stream may be full if nobody is reading; the final event is best effort.
		select {
		case events <- final:
		default:
		}
		close(events)
		c.closed = true
		c.mu.Unlock()
		close(r.done)
	}()

	failures := 0
	for {
		c.setState(types.StateConnecting)
		conn, resp, err := c.dial(ctx, creds)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
				c.logf("live channel handshake rejected (%d)", resp.StatusCode)
				final = types.Event{Kind: types.EventDisconnected, Reason: ReasonUnauthorized, Err: ErrUnauthorized}
				return
			}
			failures++
			persistent := c.opts.MaxAttempts > 0 && failures >= c.opts.MaxAttempts
			c.logf("live channel connect failed (attempt %d): %v", failures, err)
			c.setState(types.StateDisconnected)
			if persistent {
				final = types.Event{Kind: types.EventDisconnected, Reason: err.Error(), Err: err, Persistent: true}
				return
			}
			if !c.emit(ctx, events, types.Event{Kind: types.EventDisconnected, Reason: err.Error(), Err: err}) {
				return
			}
			if !sleep(ctx, c.backoff(failures)) {
				return
			}
			continue
		}

		failures = 0
		c.mu.Lock()
		c.conn = conn
		c.state = types.StateConnected
		c.mu.Unlock()
		c.logf("live channel connected")

		readErr := func() error {
			stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
			defer stop()
			if !c.emit(ctx, events, types.Event{Kind: types.EventConnected}) {
				return ctx.Err()
			}
			return c.read(ctx, conn, events)
		}()
		_ = conn.Close()
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		if errors.Is(readErr, ErrUnauthorized) {
			final = types.Event{Kind: types.EventDisconnected, Reason: ReasonUnauthorized, Err: ErrUnauthorized}
			return
		}
		c.logf("live channel dropped: %v", readErr)
		c.setState(types.StateDisconnected)
		if !c.emit(ctx, events, types.Event{Kind: types.EventDisconnected, Reason: readErr.Error(), Err: readErr}) {
			return
		}
		if !sleep(ctx, c.backoff(1)) {
			return
		}
	}
}

func (c *Channel) dial(ctx context.Context, creds Credentials) (*websocket.Conn, *http.Response, error) {
	if c.opts.URL == "" {
		return nil, nil, fmt.Errorf("live channel url not configured")
	}
	endpoint, err := url.Parse(c.opts.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid live channel url: %w", err)
	}
	header := http.Header{}
	if creds.Token != "" {
		q := endpoint.Query()
		q.Set("token", creds.Token)
		endpoint.RawQuery = q.Encode()
		header.Set("Authorization", "Bearer "+creds.Token)
	}
	conn, resp, err := c.opts.Dialer.DialContext(ctx, endpoint.String(), header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, resp, err
}

// emit delivers ev unless ctx ends first.
func (c *Channel) emit(ctx context.Context, events chan<- types.Event, ev types.Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Channel) setState(state types.ConnState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// backoff returns the delay before reconnect attempt n (1-based), with jitter.
func (c *Channel) backoff(n int) time.Duration {
	d := c.opts.MinBackoff
	for i := 1; i < n && d < c.opts.MaxBackoff; i++ {
		d *= 2
	}
	if d > c.opts.MaxBackoff {
		d = c.opts.MaxBackoff
	}
	half := d / 2
	return half + rand.N(half+1)
}

func (c *Channel) logf(format string, args ...any) {
	if c.opts.Logger == nil {
		return
	}
	c.opts.Logger.Printf(format, args...)
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
