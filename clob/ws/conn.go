package ws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/coder/websocket"
	json "github.com/goccy/go-json"

	"github.com/soleret/polyclob/config"
	"github.com/soleret/polyclob/errs"
	"github.com/soleret/polyclob/observability"
)

// State reports where a channel connection is in its lifecycle.
type State int32

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "closed"
	}
}

const (
	readLimit    = 2 * 1024 * 1024
	writeTimeout = 5 * time.Second

	pingFrame = "PING"
	pongFrame = "PONG"
)

// conn owns one websocket endpoint: it dials, reconnects with exponential
// backoff, runs the read and keepalive loops, and serializes outbound writes.
// Subscription state lives in the registry; after every successful dial the
// registry replays it before the connection reports open.
type conn struct {
	endpoint string
	cfg      config.WSSettings

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// mu guards ws and serializes writes to it.
	mu sync.Mutex
	ws *websocket.Conn

	state    atomic.Int32
	lastPong atomic.Int64

	ready     chan struct{}
	readyOnce sync.Once
	startOnce sync.Once

	reg     *registry
	metrics *streamMetrics
}

func newConn(endpoint string, cfg config.WSSettings, reg *registry, metrics *streamMetrics) *conn {
	ctx, cancel := context.WithCancel(context.Background())
	c := &conn{
		endpoint: endpoint,
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		ready:    make(chan struct{}),
		reg:      reg,
		metrics:  metrics,
	}
	c.state.Store(int32(StateClosed))
	return c
}

// start launches the connection loop on first use and waits for the first
// successful handshake. Later calls return as soon as a session is live.
func (c *conn) start(ctx context.Context) error {
	c.startOnce.Do(func() {
		go c.run()
	})

	const op = "ws.connect"
	timeout := c.cfg.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return errs.New(op, errs.CodeWebSocket,
			errs.WithMessage("connect canceled"), errs.WithCause(ctx.Err()))
	case <-c.ctx.Done():
		return errs.New(op, errs.CodeWebSocket, errs.WithMessage("connection closed"))
	case <-time.After(timeout):
		return errs.New(op, errs.CodeWebSocket,
			errs.WithMessage(fmt.Sprintf("no connection within %s", timeout)))
	}
}

func (c *conn) currentState() State {
	return State(c.state.Load())
}

func (c *conn) run() {
	defer close(c.done)

	bo := backoff.NewExponentialBackOff()
	if c.cfg.InitialBackoff > 0 {
		bo.InitialInterval = c.cfg.InitialBackoff
	}
	if c.cfg.MaxBackoff > 0 {
		bo.MaxInterval = c.cfg.MaxBackoff
	}
	if c.cfg.BackoffMultiplier > 0 {
		bo.Multiplier = c.cfg.BackoffMultiplier
	}

	attempts := 0
	connected := false
	for {
		if c.ctx.Err() != nil {
			c.state.Store(int32(StateClosed))
			return
		}
		if connected {
			c.state.Store(int32(StateReconnecting))
		} else {
			c.state.Store(int32(StateConnecting))
		}

		wsc, err := c.dial()
		if err != nil {
			c.metrics.recordReconnect(c.ctx, "error")
			attempts++
			if c.cfg.MaxReconnectAttempts > 0 && attempts >= c.cfg.MaxReconnectAttempts {
				c.state.Store(int32(StateClosed))
				c.reg.shutdown(errs.New("ws.connect", errs.CodeWebSocket,
					errs.WithMessage("reconnect attempts exhausted"), errs.WithCause(err)))
				c.cancel()
				return
			}
			observability.Log().Warn("websocket dial failed",
				observability.F("endpoint", c.endpoint),
				observability.F("attempt", attempts),
				observability.F("error", err.Error()))
			if !c.sleep(bo) {
				c.state.Store(int32(StateClosed))
				return
			}
			continue
		}

		attempts = 0
		bo.Reset()
		connected = true
		c.metrics.recordReconnect(c.ctx, "success")

		wsc.SetReadLimit(readLimit)
		c.mu.Lock()
		c.ws = wsc
		c.mu.Unlock()
		c.lastPong.Store(time.Now().UnixNano())

		// Replay live subscriptions before reporting open so a reconnect is
		// invisible to subscribers.
		c.reg.replayAll(c.ctx)
		c.state.Store(int32(StateOpen))
		c.readyOnce.Do(func() { close(c.ready) })

		err = c.session(wsc)

		c.mu.Lock()
		if c.ws == wsc {
			c.ws = nil
		}
		c.mu.Unlock()
		_ = wsc.Close(websocket.StatusNormalClosure, "reconnecting")

		if c.ctx.Err() != nil {
			c.state.Store(int32(StateClosed))
			return
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			observability.Log().Warn("websocket session ended",
				observability.F("endpoint", c.endpoint),
				observability.F("error", err.Error()))
		}
		c.state.Store(int32(StateReconnecting))
		if !c.sleep(bo) {
			c.state.Store(int32(StateClosed))
			return
		}
	}
}

func (c *conn) dial() (*websocket.Conn, error) {
	timeout := c.cfg.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(c.ctx, timeout)
	defer cancel()
	wsc, _, err := websocket.Dial(ctx, c.endpoint, nil)
	return wsc, err
}

// session runs the read and keepalive loops until either fails, then tears
// both down and reports the first error.
func (c *conn) session(wsc *websocket.Conn) error {
	sessCtx, sessCancel := context.WithCancel(c.ctx)
	defer sessCancel()

	errc := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		errc <- c.readLoop(sessCtx, wsc)
	}()
	go func() {
		defer wg.Done()
		errc <- c.pingLoop(sessCtx)
	}()

	err := <-errc
	sessCancel()
	wg.Wait()
	return err
}

func (c *conn) readLoop(ctx context.Context, wsc *websocket.Conn) error {
	for {
		msgType, data, err := wsc.Read(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return context.Canceled
			}
			if errors.Is(err, net.ErrClosed) {
				return context.Canceled
			}
			if status := websocket.CloseStatus(err); status != -1 {
				if status == websocket.StatusNormalClosure {
					return context.Canceled
				}
				return fmt.Errorf("read: remote closed with status %d", status)
			}
			return fmt.Errorf("read: %w", err)
		}
		if msgType != websocket.MessageText {
			continue
		}
		if bytes.Equal(bytes.TrimSpace(data), []byte(pongFrame)) {
			c.lastPong.Store(time.Now().UnixNano())
			continue
		}
		c.metrics.recordMessage(ctx, len(data))
		c.reg.dispatchFrame(ctx, data)
	}
}

// pingLoop sends the venue's application-level "PING" text frame and fails
// the session when no "PONG" arrives within the pong timeout.
func (c *conn) pingLoop(ctx context.Context) error {
	interval := c.cfg.PingInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return context.Canceled
		case <-ticker.C:
			if c.cfg.PongTimeout > 0 {
				last := time.Unix(0, c.lastPong.Load())
				if time.Since(last) > c.cfg.PongTimeout {
					return fmt.Errorf("ping: no pong within %s", c.cfg.PongTimeout)
				}
			}
			if err := c.writeText(ctx, []byte(pingFrame)); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		}
	}
}

// send marshals and writes one control frame. A nil return with no live
// connection is deliberate: the registry replays its state on reconnect.
func (c *conn) send(ctx context.Context, frame any) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return errs.New("ws.send", errs.CodeWebSocket,
			errs.WithMessage("encode frame"), errs.WithCause(err))
	}
	return c.writeText(ctx, data)
}

func (c *conn) writeText(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws == nil {
		return nil
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.ws.Write(wctx, websocket.MessageText, data)
}

func (c *conn) sleep(bo *backoff.ExponentialBackOff) bool {
	next := bo.NextBackOff()
	if next == backoff.Stop {
		next = c.cfg.MaxBackoff
	}
	select {
	case <-time.After(next):
		return true
	case <-c.ctx.Done():
		return false
	}
}

// close tears the connection down and waits for the loop goroutine to exit.
func (c *conn) close() {
	c.cancel()
	c.startOnce.Do(func() { close(c.done) })
	c.mu.Lock()
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()
	if ws != nil {
		_ = ws.Close(websocket.StatusNormalClosure, "client closed")
	}
	<-c.done
	c.state.Store(int32(StateClosed))
}
