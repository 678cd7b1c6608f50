package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"sync"
	"time"

	"missionboard/internal/observability"
	"missionboard/internal/protocol"
)

// State is the connection lifecycle phase.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

// ErrNotConnected is returned by Send while no transport is open. Callers
// decide whether to retry later; nothing is queued.
var ErrNotConnected = errors.New("sync client is not connected")

const inboundQueueSize = 256

// Config carries the connection knobs for a Client.
type Config struct {
	URL                  string
	ReconnectInterval    time.Duration
	MaxReconnectAttempts int
	HeartbeatInterval    time.Duration
}

// Status is a point-in-time snapshot of the connection for health surfaces.
type Status struct {
	State             State     `json:"state"`
	ReconnectAttempts int       `json:"reconnectAttempts"`
	LastError         string    `json:"lastError,omitempty"`
	ReplayCursor      time.Time `json:"replayCursor"`
}

// Client owns the websocket connection to the sync server: it dials,
// watches for loss, retries with a bounded budget, and requests a replay of
// missed events after every reconnect. Frames are handed to a single
// dispatch loop so replay batches always drain before live traffic resumes.
type Client struct {
	cfg        Config
	dialer     Dialer
	dispatcher *Dispatcher
	cursor     *Cursor
	metrics    *observability.Metrics

	frames chan []byte
	done   chan struct{}

	mu         sync.Mutex
	state      State
	attempts   int
	lastErr    error
	conn       Conn
	connGen    int
	closed     bool
	retryTimer *time.Timer
}

func NewClient(cfg Config, dialer Dialer, dispatcher *Dispatcher, cursor *Cursor, metrics *observability.Metrics) *Client {
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = 3 * time.Second
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = 10
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		dialer:     dialer,
		dispatcher: dispatcher,
		cursor:     cursor,
		metrics:    metrics,
		frames:     make(chan []byte, inboundQueueSize),
		done:       make(chan struct{}),
		state:      StateDisconnected,
	}
}

// Run connects and then dispatches inbound frames until ctx is cancelled.
// The dispatch loop is the only consumer of the frame queue, which keeps
// event application strictly ordered.
func (c *Client) Run(ctx context.Context) {
	go c.heartbeatLoop(ctx)
	c.Connect()
	for {
		select {
		case <-ctx.Done():
			c.Close()
			return
		case raw := <-c.frames:
			c.dispatcher.Dispatch(raw)
		}
	}
}

// Connect starts a dial unless one is already connected or in flight.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.closed || c.state == StateConnecting || c.state == StateConnected {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	c.mu.Unlock()
	go c.dial()
}

func (c *Client) dial() {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	conn, err := c.dialer.Dial(ctx, c.cfg.URL)
	cancel()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		if err == nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		c.lastErr = err
		c.mu.Unlock()
		log.Printf("sync: connect to %s failed: %v", c.cfg.URL, err)
		c.scheduleRetry()
		return
	}
	c.conn = conn
	c.connGen++
	gen := c.connGen
	c.state = StateConnected
	wasRetry := c.attempts > 0
	c.attempts = 0
	c.lastErr = nil
	since := c.cursor.Value()
	c.mu.Unlock()

	c.metrics.SetConnected(true)
	if wasRetry {
		c.metrics.ObserveReconnectLatency(time.Since(start))
	}
	log.Printf("sync: connected to %s", c.cfg.URL)

	if !since.IsZero() {
		c.requestReplay(since)
	}

	go c.readLoop(conn, gen)
}

// requestReplay asks for everything newer than the cursor. Sent at most once
// per established connection, and never on a cold start.
func (c *Client) requestReplay(since time.Time) {
	env, err := protocol.NewReplayRequest(since)
	if err != nil {
		log.Printf("sync: building replay request: %v", err)
		return
	}
	if err := c.Send(env); err != nil {
		log.Printf("sync: replay request failed: %v", err)
		return
	}
	log.Printf("sync: requested replay of events since %s", since.Format(time.RFC3339Nano))
}

func (c *Client) readLoop(conn Conn, gen int) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			c.handleDisconnect(gen, err)
			return
		}
		select {
		case c.frames <- data:
		case <-c.done:
			return
		}
	}
}

func (c *Client) handleDisconnect(gen int, err error) {
	c.mu.Lock()
	if c.closed || c.connGen != gen {
		// Deliberate shutdown, or a reader for a connection already replaced.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.lastErr = err
	c.mu.Unlock()

	c.metrics.SetConnected(false)
	log.Printf("sync: connection lost: %v", err)
	c.scheduleRetry()
}

// scheduleRetry consumes one attempt from the budget and arms the retry
// timer. Once the budget is spent the client parks in the disconnected
// state until RequestReconnect fires.
func (c *Client) scheduleRetry() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.attempts >= c.cfg.MaxReconnectAttempts {
		c.state = StateDisconnected
		c.mu.Unlock()
		log.Printf("sync: giving up after %d reconnect attempts, waiting for an external trigger", c.cfg.MaxReconnectAttempts)
		return
	}
	c.attempts++
	attempt := c.attempts
	c.state = StateReconnecting
	if c.retryTimer != nil {
		c.retryTimer.Stop()
	}
	c.retryTimer = time.AfterFunc(c.cfg.ReconnectInterval, c.Connect)
	c.mu.Unlock()

	c.metrics.ObserveReconnectAttempt()
	log.Printf("sync: reconnecting in %s (attempt %d/%d)", c.cfg.ReconnectInterval, attempt, c.cfg.MaxReconnectAttempts)
}

// RequestReconnect is the consolidated external trigger: network change,
// dashboard becoming visible again, a failed liveness probe recovering. It
// resets the attempt budget and is a no-op while already connected.
func (c *Client) RequestReconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.attempts = 0
	if c.state == StateConnected || c.state == StateConnecting {
		c.mu.Unlock()
		return
	}
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	c.state = StateDisconnected
	c.mu.Unlock()
	c.Connect()
}

// Send marshals and writes one outbound envelope. It fails fast while
// disconnected rather than queueing.
func (c *Client) Send(env protocol.Envelope) error {
	c.mu.Lock()
	conn := c.conn
	st := c.state
	c.mu.Unlock()
	if st != StateConnected || conn == nil {
		return ErrNotConnected
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", env.Type, err)
	}
	if err := conn.WriteMessage(data); err != nil {
		return fmt.Errorf("write %s envelope: %w", env.Type, err)
	}
	return nil
}

// Close shuts the connection down for good. The reader observing the closed
// transport will not schedule a retry.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.state = StateDisconnected
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	close(c.done)
	c.metrics.SetConnected(false)
	if conn != nil {
		_ = conn.Close()
	}
}

// Status reports the current connection state for the HTTP surface.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Status{
		State:             c.state,
		ReconnectAttempts: c.attempts,
		ReplayCursor:      c.cursor.Value(),
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}

func (c *Client) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkLiveness()
		}
	}
}

// checkLiveness pings an open connection so half-dead transports are found
// before the next write, and probes reachability while parked so a server
// coming back online restarts the reconnect cycle.
func (c *Client) checkLiveness() {
	c.mu.Lock()
	st := c.state
	conn := c.conn
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	switch st {
	case StateConnected:
		if conn == nil {
			c.RequestReconnect()
			return
		}
		if err := conn.Ping(); err != nil {
			log.Printf("sync: liveness ping failed: %v", err)
			// Closing wakes the reader, which takes the reconnect path.
			_ = conn.Close()
		}
	case StateDisconnected:
		if c.serverReachable() {
			c.RequestReconnect()
		}
	}
}

// serverReachable does a cheap TCP touch on the sync server address.
func (c *Client) serverReachable() bool {
	u, err := url.Parse(c.cfg.URL)
	if err != nil || u.Host == "" {
		return true
	}
	host := u.Host
	if u.Port() == "" {
		switch u.Scheme {
		case "wss", "https":
			host = net.JoinHostPort(u.Hostname(), "443")
		default:
			host = net.JoinHostPort(u.Hostname(), "80")
		}
	}
	conn, err := net.DialTimeout("tcp", host, 2*time.Second)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
