package ws

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/soleret/polyclob/config"
)

const (
	asset1 = "71321045679252212594626385532706912750332728571942532289631379312455583992563"
	asset2 = "52114319501245915516055106046884209969926127482827954674443846427813813222426"

	wsSecret     = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="
	wsPassphrase = "super-secret-passphrase"
)

var testMarketHex = "0x" + strings.Repeat("ab", 32)

// wsVenue is a scripted websocket endpoint. Accepted connections are
// announced on conns; inbound text frames land on frames, except pings,
// which are counted and answered unless autoPong is switched off before the
// client dials.
type wsVenue struct {
	t      *testing.T
	srv    *httptest.Server
	conns  chan *venueConn
	frames chan string

	pings    atomic.Int64
	autoPong atomic.Bool
}

type venueConn struct {
	ws *websocket.Conn
}

func newWSVenue(t *testing.T) *wsVenue {
	t.Helper()
	v := &wsVenue{
		t:      t,
		conns:  make(chan *venueConn, 16),
		frames: make(chan string, 256),
	}
	v.autoPong.Store(true)
	v.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		vc := &venueConn{ws: ws}
		select {
		case v.conns <- vc:
		default:
		}
		v.serve(vc)
	}))
	t.Cleanup(v.srv.Close)
	return v
}

func (v *wsVenue) serve(vc *venueConn) {
	for {
		typ, data, err := vc.ws.Read(context.Background())
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		if string(data) == "PING" {
			v.pings.Add(1)
			if v.autoPong.Load() {
				_ = vc.ws.Write(context.Background(), websocket.MessageText, []byte("PONG"))
			}
			continue
		}
		v.frames <- string(data)
	}
}

// url returns the endpoint with the websocket scheme the client is dialed
// with in production.
func (v *wsVenue) url() string {
	u, err := url.Parse(v.srv.URL)
	require.NoError(v.t, err)
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	return u.String()
}

func (v *wsVenue) accept() *venueConn {
	v.t.Helper()
	select {
	case vc := <-v.conns:
		return vc
	case <-time.After(5 * time.Second):
		v.t.Fatal("no websocket connection accepted")
		return nil
	}
}

func (v *wsVenue) nextFrame() string {
	v.t.Helper()
	select {
	case f := <-v.frames:
		return f
	case <-time.After(5 * time.Second):
		v.t.Fatal("no frame received")
		return ""
	}
}

func (v *wsVenue) noFrame(d time.Duration) {
	v.t.Helper()
	select {
	case f := <-v.frames:
		v.t.Fatalf("unexpected frame: %s", f)
	case <-time.After(d):
	}
}

func (vc *venueConn) push(t *testing.T, payload string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, vc.ws.Write(ctx, websocket.MessageText, []byte(payload)))
}

func (vc *venueConn) kill() {
	_ = vc.ws.Close(websocket.StatusGoingAway, "restart")
}

func testWSConfig() config.Settings {
	cfg := config.Default()
	cfg.WS.HandshakeTimeout = 2 * time.Second
	cfg.WS.PingInterval = time.Second
	cfg.WS.PongTimeout = 30 * time.Second
	cfg.WS.InitialBackoff = 20 * time.Millisecond
	cfg.WS.MaxBackoff = 100 * time.Millisecond
	return cfg
}

func nextMessage(t *testing.T, sub *Subscription) Message {
	t.Helper()
	select {
	case msg, ok := <-sub.C():
		require.True(t, ok, "subscription closed early")
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func noMessage(t *testing.T, sub *Subscription, d time.Duration) {
	t.Helper()
	select {
	case msg, ok := <-sub.C():
		if ok {
			t.Fatalf("unexpected message: %#v", msg)
		}
	case <-time.After(d):
	}
}

func bookFrame(assetID string) string {
	return fmt.Sprintf(`{
		"event_type": "book",
		"asset_id": %q,
		"market": %q,
		"timestamp": "1693687362000",
		"hash": "5b3f4c0e",
		"bids": [{"price": "0.54", "size": "100"}, {"price": "0.53", "size": "250"}],
		"asks": [{"price": "0.56", "size": "60"}]
	}`, assetID, testMarketHex)
}

func priceChangeFrame(assetIDs ...string) string {
	changes := make([]string, 0, len(assetIDs))
	for _, id := range assetIDs {
		changes = append(changes, fmt.Sprintf(
			`{"asset_id": %q, "price": "0.54", "size": "120", "side": "BUY", "hash": "9d1a", "best_bid": "0.54", "best_ask": "0.56"}`, id))
	}
	return fmt.Sprintf(`{"event_type": "price_change", "market": %q, "timestamp": "1693687362000", "price_changes": [%s]}`,
		testMarketHex, strings.Join(changes, ","))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
