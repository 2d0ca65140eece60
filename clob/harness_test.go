package clob

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/soleret/polyclob/auth"
	"github.com/soleret/polyclob/chain"
	"github.com/soleret/polyclob/clob/types"
	"github.com/soleret/polyclob/config"
)

// Hardhat account #0. Published everywhere, never funded on a real network.
const (
	testPrivateKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress    = "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"

	testSecret = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="

	// Served by the /time mock. The attestation signature over it is a
	// fixed vector because secp256k1 signing uses RFC 6979 nonces.
	testTimestamp      = "100000"
	testAttestationSig = "0xfdfb5abf512e439ea61c8595c18e527e718bf16010acf57cef51d09e15893098275d3c6f73038f36ec0cd0ce55436fca14dc64b11611f4dce896e354207508cc1b"

	token1 = "15871154585880608648532107628464183779895785213830018178010423617714102767076"
	token2 = "99920934651435586775038877380223724073374199451810545861447160390199026872860"
)

var (
	testAPIKey     = uuid.Nil
	testPassphrase = strings.Repeat("a", 64)
)

// venue is a scripted stand-in for the exchange. Handlers are registered
// per test; anything unregistered answers 404, which doubles as the
// "endpoint rejected us" path.
type venue struct {
	t   *testing.T
	mux *http.ServeMux
	srv *httptest.Server

	mu   sync.Mutex
	hits map[string]int
}

func newVenue(t *testing.T) *venue {
	t.Helper()
	v := &venue{t: t, mux: http.NewServeMux(), hits: make(map[string]int)}
	v.srv = httptest.NewServer(v.mux)
	t.Cleanup(v.srv.Close)
	return v
}

func (v *venue) url() string { return v.srv.URL }

func (v *venue) handle(pattern string, h http.HandlerFunc) {
	v.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		v.mu.Lock()
		v.hits[pattern]++
		v.mu.Unlock()
		h(w, r)
	})
}

func (v *venue) calls(pattern string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hits[pattern]
}

func writeJSON(t *testing.T, w http.ResponseWriter, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func testSigner(t *testing.T) *auth.LocalSigner {
	t.Helper()
	signer, err := auth.NewLocalSigner(testPrivateKey, chain.Polygon)
	require.NoError(t, err)
	return signer
}

func testSettings() config.Settings {
	cfg := config.Default()
	cfg.UseServerTime = true
	return cfg
}

// mockAuthFlow registers the venue clock and the credential derivation
// endpoint. Key creation stays unregistered on purpose: its 404 pushes the
// client down the derive fallback, same as a key that already exists.
func mockAuthFlow(v *venue) {
	t := v.t
	v.handle("GET /time", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(testTimestamp))
	})
	v.handle("GET /auth/derive-api-key", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, testAddress, r.Header.Get(auth.HeaderAddress))
		require.Equal(t, "0", r.Header.Get(auth.HeaderNonce))
		require.Equal(t, testAttestationSig, r.Header.Get(auth.HeaderSignature))
		require.Equal(t, testTimestamp, r.Header.Get(auth.HeaderTimestamp))
		writeJSON(t, w, map[string]string{
			"apiKey":     testAPIKey.String(),
			"passphrase": testPassphrase,
			"secret":     testSecret,
		})
	})
}

// authenticate runs the full derive flow against the venue and returns the
// authenticated client.
func authenticate(t *testing.T, v *venue, mods ...func(*AuthBuilder) *AuthBuilder) *AuthenticatedClient {
	t.Helper()
	mockAuthFlow(v)

	client, err := New(v.url(), testSettings())
	require.NoError(t, err)

	b := client.Auth(testSigner(t))
	for _, mod := range mods {
		b = mod(b)
	}
	ac, err := b.Authenticate(context.Background())
	require.NoError(t, err)

	// One clock read per credential attempt: create, then the derive
	// fallback.
	require.Equal(t, 2, v.calls("GET /time"))
	require.Equal(t, 1, v.calls("GET /auth/derive-api-key"))
	return ac
}

// requireL2Headers asserts the private-request header set issued for the
// derived test credentials.
func requireL2Headers(t *testing.T, r *http.Request) {
	t.Helper()
	require.Equal(t, testAddress, r.Header.Get(auth.HeaderAddress))
	require.Equal(t, testAPIKey.String(), r.Header.Get(auth.HeaderAPIKey))
	require.Equal(t, testPassphrase, r.Header.Get(auth.HeaderPassphrase))
	require.NotEmpty(t, r.Header.Get(auth.HeaderSignature))
	require.Equal(t, testTimestamp, r.Header.Get(auth.HeaderTimestamp))
}

// ensureRequirements scripts the per-token metadata the order builders
// fetch: tick size, neg risk and fee rate.
func ensureRequirements(v *venue, tick string) {
	t := v.t
	v.handle("GET /tick-size", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"minimum_tick_size": tick})
	})
	v.handle("GET /neg-risk", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"neg_risk": false})
	})
	v.handle("GET /fee-rate", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"base_fee": 0})
	})
}

// ensureBook scripts an order book for token1 at the given tick, on top of
// the usual requirement endpoints.
func ensureBook(v *venue, tick string, bids, asks []types.OrderSummary) {
	ensureRequirements(v, tick)
	t := v.t
	v.handle("GET /book", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, token1, r.URL.Query().Get("token_id"))
		writeJSON(t, w, map[string]any{
			"market":         "0x00000000000000000000000000000000000000000000000000000000aabbcc00",
			"asset_id":       token1,
			"timestamp":      "1000",
			"bids":           bids,
			"asks":           asks,
			"min_order_size": "5",
			"neg_risk":       false,
			"tick_size":      tick,
		})
	})
}

func lvl(price, size string) types.OrderSummary {
	return types.OrderSummary{Price: dec(price), Size: dec(size)}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
