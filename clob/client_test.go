package clob

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soleret/polyclob/clob/types"
	"github.com/soleret/polyclob/errs"
)

func TestNewRejectsNonHTTPHost(t *testing.T) {
	_, err := New("ftp://clob.example.com", testSettings())
	require.Error(t, err)
	assert.Equal(t, errs.CodeValidation, errs.CodeOf(err))
}

func TestNewFallsBackToConfiguredHost(t *testing.T) {
	cfg := testSettings()
	cfg.RESTHost = "https://clob.example.com/"
	c, err := New("", cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://clob.example.com", c.Host())
}

func TestNewTrimsTrailingSlash(t *testing.T) {
	v := newVenue(t)
	c, err := New(v.url()+"/", testSettings())
	require.NoError(t, err)
	assert.Equal(t, v.url(), c.Host())
}

func TestOk(t *testing.T) {
	v := newVenue(t)
	v.handle("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`"OK"`))
	})

	c, err := New(v.url(), testSettings())
	require.NoError(t, err)

	out, err := c.Ok(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "OK", out)
	assert.Equal(t, 1, v.calls("GET /{$}"))
}

func TestServerTime(t *testing.T) {
	v := newVenue(t)
	v.handle("GET /time", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("1764612536"))
	})

	c, err := New(v.url(), testSettings())
	require.NoError(t, err)

	ts, err := c.ServerTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1764612536), ts)
}

func TestStatusErrorCarriesCallDetails(t *testing.T) {
	// Nothing registered: every path answers 404.
	v := newVenue(t)

	c, err := New(v.url(), testSettings())
	require.NoError(t, err)

	_, err = c.Price(context.Background(), token1, types.Buy)
	require.Error(t, err)

	var e *errs.E
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errs.CodeExchange, e.Code)
	assert.Equal(t, http.StatusNotFound, e.HTTP)
	assert.Equal(t, http.MethodGet, e.Method)
	assert.Equal(t, "/price", e.Path)
	assert.Contains(t, e.VenueMsg, "404")
}

func TestStatusErrorMapsAuthAndRateLimit(t *testing.T) {
	v := newVenue(t)
	v.handle("GET /price", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	v.handle("GET /midpoint", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	c, err := New(v.url(), testSettings())
	require.NoError(t, err)

	_, err = c.Price(context.Background(), token1, types.Buy)
	assert.Equal(t, errs.CodeAuth, errs.CodeOf(err))

	_, err = c.Midpoint(context.Background(), token1)
	assert.Equal(t, errs.CodeRateLimited, errs.CodeOf(err))
}

func TestRequestBudget(t *testing.T) {
	v := newVenue(t)
	v.handle("GET /time", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("1"))
	})

	cfg := testSettings()
	cfg.RateLimit.RequestsPerSecond = 1
	cfg.RateLimit.Burst = 1
	c, err := New(v.url(), cfg)
	require.NoError(t, err)

	_, err = c.ServerTime(context.Background())
	require.NoError(t, err)

	// The burst token is spent; the next call cannot be admitted within
	// the deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = c.ServerTime(ctx)
	require.Error(t, err)
	assert.Equal(t, errs.CodeRateLimited, errs.CodeOf(err))
}

func TestDecodeFailureSurfaces(t *testing.T) {
	v := newVenue(t)
	v.handle("GET /time", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not a timestamp"))
	})

	c, err := New(v.url(), testSettings())
	require.NoError(t, err)

	_, err = c.ServerTime(context.Background())
	require.Error(t, err)
	assert.Equal(t, errs.CodeDecode, errs.CodeOf(err))
}
