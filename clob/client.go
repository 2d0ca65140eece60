// Package clob implements the trading client for the venue's central limit
// order book: public market data, credential issuance, order construction,
// typed-data signing and submission, and builder program access. A Client
// starts unauthenticated and only exposes public endpoints; Authenticate
// returns an AuthenticatedClient whose type carries the private surface, so
// privileged calls cannot be expressed against an unauthenticated value.
package clob

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/soleret/polyclob/clob/types"
	"github.com/soleret/polyclob/config"
	"github.com/soleret/polyclob/errs"
)

const userAgent = "go_clob_client"

// terminalCursor marks the final page of a cursor-paginated endpoint.
const terminalCursor = "LTE="

// Client talks to the venue's public REST surface. It is safe for
// concurrent use. Construct with New, then call Authenticate to reach the
// private endpoints.
type Client struct {
	host          string
	geoblockHost  string
	useServerTime bool
	heartbeat     time.Duration

	http    *http.Client
	limiter *rate.Limiter

	tickSizes *tokenCache[types.TickSize]
	negRisk   *tokenCache[bool]
	feeRates  *tokenCache[uint32]

	metrics *clientMetrics
}

// New returns a client for host, falling back to the configured REST host
// when host is empty.
func New(host string, settings config.Settings) (*Client, error) {
	const op = "clob.new"

	if host == "" {
		host = settings.RESTHost
	}
	host, err := normalizeHost(op, host)
	if err != nil {
		return nil, err
	}

	geoblockHost := settings.GeoblockHost
	if geoblockHost == "" {
		geoblockHost = config.DefaultGeoblockHost
	}
	geoblockHost, err = normalizeHost(op, geoblockHost)
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if settings.RateLimit.RequestsPerSecond > 0 {
		burst := settings.RateLimit.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(settings.RateLimit.RequestsPerSecond), burst)
	}

	return &Client{
		host:          host,
		geoblockHost:  geoblockHost,
		useServerTime: settings.UseServerTime,
		heartbeat:     settings.Heartbeat.Interval,
		http:          &http.Client{Timeout: settings.HTTPTimeout},
		limiter:       limiter,
		tickSizes:     newTokenCache[types.TickSize](),
		negRisk:       newTokenCache[bool](),
		feeRates:      newTokenCache[uint32](),
		metrics:       newClientMetrics(),
	}, nil
}

func normalizeHost(op, host string) (string, error) {
	u, err := url.Parse(host)
	if err != nil {
		return "", errs.New(op, errs.CodeValidation,
			errs.WithMessage("invalid host "+host), errs.WithCause(err))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errs.Validation(op, "host "+host+" must use http or https")
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// Host returns the REST host requests are sent to.
func (c *Client) Host() string { return c.host }

// InvalidateCaches drops the per-token tick size, neg-risk and fee rate
// caches so the next lookup hits the venue again.
func (c *Client) InvalidateCaches() {
	c.tickSizes.clear()
	c.negRisk.clear()
	c.feeRates.clear()
}

// Ok performs a reachability probe against the REST host root.
func (c *Client) Ok(ctx context.Context) (string, error) {
	var out string
	err := c.do(ctx, "clob.ok", request{method: http.MethodGet, path: "/", out: &out})
	return out, err
}

// ServerTime returns the venue clock as a Unix timestamp in seconds.
func (c *Client) ServerTime(ctx context.Context) (int64, error) {
	var out int64
	err := c.do(ctx, "clob.server_time", request{method: http.MethodGet, path: "/time", out: &out})
	return out, err
}

// timestamp picks the clock used for authentication headers. Server time
// costs an extra round trip but tolerates local clock drift.
func (c *Client) timestamp(ctx context.Context) (int64, error) {
	if c.useServerTime {
		return c.ServerTime(ctx)
	}
	return time.Now().Unix(), nil
}

// request describes one REST call. The body is pre-marshaled so the HMAC
// layer signs the exact bytes that go on the wire.
type request struct {
	method  string
	path    string
	host    string
	query   url.Values
	body    []byte
	headers map[string]string
	out     any
}

// do sends a request and decodes the response into r.out when it is
// non-nil. Venue errors come back as typed errors carrying the HTTP status
// and the trimmed response body.
func (c *Client) do(ctx context.Context, op string, r request) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return errs.New(op, errs.CodeRateLimited,
				errs.WithMessage("request budget exhausted"), errs.WithCause(err))
		}
	}

	host := r.host
	if host == "" {
		host = c.host
	}
	endpoint := host + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, body)
	if err != nil {
		return errs.New(op, errs.CodeInternal,
			errs.WithMessage("build request"), errs.WithCause(err))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Content-Type", "application/json")
	for k, v := range r.headers {
		req.Header[k] = []string{v}
	}

	c.metrics.request(ctx, op)

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.failure(ctx, op, errs.CodeNetwork)
		return errs.New(op, errs.CodeNetwork,
			errs.WithMethodPath(r.method, r.path), errs.WithCause(err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		err := errs.Status(op, r.method, r.path, resp.StatusCode, strings.TrimSpace(string(raw)))
		c.metrics.failure(ctx, op, err.Code)
		return err
	}

	if r.out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(r.out); err != nil {
		c.metrics.failure(ctx, op, errs.CodeDecode)
		return errs.New(op, errs.CodeDecode,
			errs.WithMethodPath(r.method, r.path), errs.WithCause(err))
	}
	return nil
}
