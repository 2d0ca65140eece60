// Package ws streams market and user events over the venue's websocket
// endpoints. Any number of consumers share at most one connection per
// channel; live subscriptions are replayed after every reconnect so a
// dropped connection is invisible to consumers.
package ws

import (
	"context"
	"strings"
	"sync"

	"github.com/soleret/polyclob/auth"
	"github.com/soleret/polyclob/config"
	"github.com/soleret/polyclob/errs"
)

// Channel selects a websocket endpoint.
type Channel string

const (
	// ChannelMarket carries public order book and market lifecycle events.
	ChannelMarket Channel = "market"
	// ChannelUser carries the authenticated account's trades and orders.
	ChannelUser Channel = "user"
)

// Client opens websocket channels on demand and hands out subscriptions.
// The zero value is not usable; construct with New.
type Client struct {
	host  string
	cfg   config.Settings
	creds *auth.Credentials

	mu       sync.Mutex
	channels map[Channel]*channelHandle
	closed   bool
}

// channelHandle pairs one channel's connection with its subscription state.
type channelHandle struct {
	conn *conn
	reg  *registry
}

// New returns a client for the public market channel. An empty host falls
// back to the configured websocket host.
func New(host string, cfg config.Settings) *Client {
	if host == "" {
		host = cfg.WSHost
	}
	return &Client{
		host:     normalizeHost(host),
		cfg:      cfg,
		channels: make(map[Channel]*channelHandle),
	}
}

// Authenticated returns a copy of the client that can open the user channel.
// The copy manages its own connections; the receiver stays market-only.
func (c *Client) Authenticated(creds auth.Credentials) *Client {
	return &Client{
		host:     c.host,
		cfg:      c.cfg,
		creds:    &creds,
		channels: make(map[Channel]*channelHandle),
	}
}

// normalizeHost accepts base hosts with or without a channel path already
// attached and reduces them to the bare base.
func normalizeHost(host string) string {
	host = strings.TrimRight(host, "/")
	for _, suffix := range []string{"/ws/market", "/ws/user", "/ws"} {
		if strings.HasSuffix(host, suffix) {
			return strings.TrimSuffix(host, suffix)
		}
	}
	return host
}

// SubscribeMarket streams order book events for the given asset ids. Equal
// filters share one upstream subscription; the venue answers each new filter
// with a full book snapshot before incremental updates.
func (c *Client) SubscribeMarket(ctx context.Context, assetIDs ...string) (*Subscription, error) {
	const op = "ws.subscribe_market"
	ids := canonicalIDs(assetIDs)
	if len(ids) == 0 {
		return nil, errs.Validation(op, "at least one asset id is required")
	}
	h, err := c.handle(ctx, ChannelMarket)
	if err != nil {
		return nil, err
	}
	return h.reg.subscribe(ctx, ids)
}

// SubscribeUser streams the account's trade and order events, optionally
// narrowed to the given market (condition) ids. With no ids the venue sends
// activity across all markets.
func (c *Client) SubscribeUser(ctx context.Context, marketIDs ...string) (*Subscription, error) {
	const op = "ws.subscribe_user"
	if c.creds == nil || !c.creds.Valid() {
		return nil, errs.New(op, errs.CodeAuth, errs.WithMessage("user channel requires credentials"))
	}
	h, err := c.handle(ctx, ChannelUser)
	if err != nil {
		return nil, err
	}
	return h.reg.subscribe(ctx, canonicalIDs(marketIDs))
}

// handle returns the channel's handle, building connection and registry on
// first use, and waits for the connection to come up.
func (c *Client) handle(ctx context.Context, ch Channel) (*channelHandle, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errs.New("ws.connect", errs.CodeWebSocket, errs.WithMessage("client is closed"))
	}
	h, ok := c.channels[ch]
	if !ok {
		var authFn func() *authPayload
		if ch == ChannelUser && c.creds != nil {
			creds := *c.creds
			authFn = func() *authPayload {
				return &authPayload{
					APIKey:     creds.APIKey.String(),
					Secret:     creds.Secret.Reveal(),
					Passphrase: creds.Passphrase.Reveal(),
				}
			}
		}
		metrics := newStreamMetrics(string(ch))
		reg := newRegistry(ch, c.cfg.WS, authFn, metrics)
		cn := newConn(c.host+"/ws/"+string(ch), c.cfg.WS, reg, metrics)
		reg.conn = cn
		h = &channelHandle{conn: cn, reg: reg}
		c.channels[ch] = h
	}
	c.mu.Unlock()

	if err := h.conn.start(ctx); err != nil {
		return nil, err
	}
	return h, nil
}

// State reports a channel's connection state. Channels never opened report
// StateClosed.
func (c *Client) State(ch Channel) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.channels[ch]; ok {
		return h.conn.currentState()
	}
	return StateClosed
}

// Close unsubscribes every live feed, tears down the connections and ends
// all subscriptions. The client cannot be reused afterwards.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	handles := make([]*channelHandle, 0, len(c.channels))
	for _, h := range c.channels {
		handles = append(handles, h)
	}
	c.channels = make(map[Channel]*channelHandle)
	c.mu.Unlock()

	for _, h := range handles {
		h.reg.close(context.Background())
		h.conn.close()
	}
}
