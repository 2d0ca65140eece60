package clob

import (
	"context"
	"net/http"
	"net/url"

	json "github.com/goccy/go-json"

	"github.com/soleret/polyclob/clob/types"
	"github.com/soleret/polyclob/errs"
	"github.com/soleret/polyclob/observability"
)

func marshalBody(op string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, errs.New(op, errs.CodeInternal,
			errs.WithMessage("encode request body"), errs.WithCause(err))
	}
	return body, nil
}

func tokenQuery(tokenID string) url.Values {
	q := url.Values{}
	q.Set("token_id", tokenID)
	return q
}

// Midpoint returns the midpoint price for a single token.
func (c *Client) Midpoint(ctx context.Context, tokenID string) (types.MidpointResponse, error) {
	var out types.MidpointResponse
	err := c.do(ctx, "clob.midpoint", request{
		method: http.MethodGet, path: "/midpoint", query: tokenQuery(tokenID), out: &out,
	})
	return out, err
}

// Midpoints returns midpoint prices for several tokens in one call.
func (c *Client) Midpoints(ctx context.Context, tokenIDs ...string) (types.MidpointsResponse, error) {
	const op = "clob.midpoints"
	body, err := marshalBody(op, types.TokenIDs(tokenIDs...))
	if err != nil {
		return nil, err
	}
	var out types.MidpointsResponse
	err = c.do(ctx, op, request{method: http.MethodPost, path: "/midpoints", body: body, out: &out})
	return out, err
}

// Price returns the best price for a token on the given side of the book.
func (c *Client) Price(ctx context.Context, tokenID string, side types.Side) (types.PriceResponse, error) {
	q := tokenQuery(tokenID)
	q.Set("side", side.String())
	var out types.PriceResponse
	err := c.do(ctx, "clob.price", request{method: http.MethodGet, path: "/price", query: q, out: &out})
	return out, err
}

// Prices returns best prices for several (token, side) pairs in one call.
func (c *Client) Prices(ctx context.Context, reqs []types.PriceRequest) (types.PricesResponse, error) {
	const op = "clob.prices"
	body, err := marshalBody(op, reqs)
	if err != nil {
		return nil, err
	}
	var out types.PricesResponse
	err = c.do(ctx, op, request{method: http.MethodPost, path: "/prices", body: body, out: &out})
	return out, err
}

// AllPrices returns the best bid and ask for every token on the venue.
func (c *Client) AllPrices(ctx context.Context) (types.PricesResponse, error) {
	var out types.PricesResponse
	err := c.do(ctx, "clob.all_prices", request{method: http.MethodGet, path: "/prices", out: &out})
	return out, err
}

// Spread returns the bid-ask spread for a single token.
func (c *Client) Spread(ctx context.Context, tokenID string) (types.SpreadResponse, error) {
	var out types.SpreadResponse
	err := c.do(ctx, "clob.spread", request{
		method: http.MethodGet, path: "/spread", query: tokenQuery(tokenID), out: &out,
	})
	return out, err
}

// Spreads returns bid-ask spreads for several tokens in one call.
func (c *Client) Spreads(ctx context.Context, tokenIDs ...string) (types.SpreadsResponse, error) {
	const op = "clob.spreads"
	body, err := marshalBody(op, types.TokenIDs(tokenIDs...))
	if err != nil {
		return types.SpreadsResponse{}, err
	}
	var out types.SpreadsResponse
	err = c.do(ctx, op, request{method: http.MethodPost, path: "/spreads", body: body, out: &out})
	return out, err
}

// PriceHistory returns sampled price points for a market over the requested
// window.
func (c *Client) PriceHistory(ctx context.Context, req types.PriceHistoryRequest) (types.PriceHistoryResponse, error) {
	var out types.PriceHistoryResponse
	err := c.do(ctx, "clob.price_history", request{
		method: http.MethodGet, path: "/prices-history", query: req.Query(), out: &out,
	})
	return out, err
}

// TickSize returns the minimum price increment for a token. Results are
// cached for the life of the client; see InvalidateCaches.
func (c *Client) TickSize(ctx context.Context, tokenID string) (types.TickSizeResponse, error) {
	if tick, ok := c.tickSizes.get(tokenID); ok {
		c.metrics.cacheHit(ctx, "tick_size")
		observability.Log().Debug("tick size cache hit", observability.F("token_id", tokenID))
		return types.TickSizeResponse{MinimumTickSize: tick}, nil
	}
	var out types.TickSizeResponse
	err := c.do(ctx, "clob.tick_size", request{
		method: http.MethodGet, path: "/tick-size", query: tokenQuery(tokenID), out: &out,
	})
	if err != nil {
		return types.TickSizeResponse{}, err
	}
	c.tickSizes.put(tokenID, out.MinimumTickSize)
	return out, nil
}

// NegRisk reports whether a token belongs to a negative-risk market, which
// settles through a different exchange contract. Results are cached.
func (c *Client) NegRisk(ctx context.Context, tokenID string) (types.NegRiskResponse, error) {
	if negRisk, ok := c.negRisk.get(tokenID); ok {
		c.metrics.cacheHit(ctx, "neg_risk")
		observability.Log().Debug("neg risk cache hit", observability.F("token_id", tokenID))
		return types.NegRiskResponse{NegRisk: negRisk}, nil
	}
	var out types.NegRiskResponse
	err := c.do(ctx, "clob.neg_risk", request{
		method: http.MethodGet, path: "/neg-risk", query: tokenQuery(tokenID), out: &out,
	})
	if err != nil {
		return types.NegRiskResponse{}, err
	}
	c.negRisk.put(tokenID, out.NegRisk)
	return out, nil
}

// FeeRateBps returns the maker/taker fee rate for a token in basis points.
// Results are cached.
func (c *Client) FeeRateBps(ctx context.Context, tokenID string) (types.FeeRateResponse, error) {
	if baseFee, ok := c.feeRates.get(tokenID); ok {
		c.metrics.cacheHit(ctx, "fee_rate_bps")
		observability.Log().Debug("fee rate cache hit", observability.F("token_id", tokenID))
		return types.FeeRateResponse{BaseFee: baseFee}, nil
	}
	var out types.FeeRateResponse
	err := c.do(ctx, "clob.fee_rate_bps", request{
		method: http.MethodGet, path: "/fee-rate", query: tokenQuery(tokenID), out: &out,
	})
	if err != nil {
		return types.FeeRateResponse{}, err
	}
	c.feeRates.put(tokenID, out.BaseFee)
	return out, nil
}

// SetTickSize seeds the tick size cache, skipping the first venue fetch for
// callers that already know the market's tick.
func (c *Client) SetTickSize(tokenID string, tick types.TickSize) error {
	if !tick.Valid() {
		return errs.Validation("clob.set_tick_size", "tick size out of range")
	}
	c.tickSizes.put(tokenID, tick)
	return nil
}

// SetNegRisk seeds the neg-risk cache.
func (c *Client) SetNegRisk(tokenID string, negRisk bool) {
	c.negRisk.put(tokenID, negRisk)
}

// SetFeeRateBps seeds the fee rate cache.
func (c *Client) SetFeeRateBps(tokenID string, baseFee uint32) {
	c.feeRates.put(tokenID, baseFee)
}

// Book returns the order book summary for a single token.
func (c *Client) Book(ctx context.Context, tokenID string) (types.OrderBookSummaryResponse, error) {
	var out types.OrderBookSummaryResponse
	err := c.do(ctx, "clob.book", request{
		method: http.MethodGet, path: "/book", query: tokenQuery(tokenID), out: &out,
	})
	return out, err
}

// Books returns order book summaries for several tokens in one call.
func (c *Client) Books(ctx context.Context, tokenIDs ...string) ([]types.OrderBookSummaryResponse, error) {
	const op = "clob.books"
	body, err := marshalBody(op, types.TokenIDs(tokenIDs...))
	if err != nil {
		return nil, err
	}
	var out []types.OrderBookSummaryResponse
	err = c.do(ctx, op, request{method: http.MethodPost, path: "/books", body: body, out: &out})
	return out, err
}

// LastTradePrice returns the most recent trade price for a token.
func (c *Client) LastTradePrice(ctx context.Context, tokenID string) (types.LastTradePriceResponse, error) {
	var out types.LastTradePriceResponse
	err := c.do(ctx, "clob.last_trade_price", request{
		method: http.MethodGet, path: "/last-trade-price", query: tokenQuery(tokenID), out: &out,
	})
	return out, err
}

// LastTradesPrices returns the most recent trade price for several tokens
// in one call. The venue expects a GET with a JSON body here.
func (c *Client) LastTradesPrices(ctx context.Context, tokenIDs ...string) ([]types.LastTradesPricesResponse, error) {
	const op = "clob.last_trades_prices"
	body, err := marshalBody(op, types.TokenIDs(tokenIDs...))
	if err != nil {
		return nil, err
	}
	var out []types.LastTradesPricesResponse
	err = c.do(ctx, op, request{method: http.MethodGet, path: "/last-trades-prices", body: body, out: &out})
	return out, err
}

// CheckGeoblock reports whether the caller's IP is blocked from trading.
// The lookup goes to the geoblock host, not the CLOB host.
func (c *Client) CheckGeoblock(ctx context.Context) (types.GeoblockResponse, error) {
	var out types.GeoblockResponse
	err := c.do(ctx, "clob.check_geoblock", request{
		method: http.MethodGet, path: "/api/geoblock", host: c.geoblockHost, out: &out,
	})
	return out, err
}
