package clob

import (
	"context"
	"net/http"
	"net/url"

	json "github.com/goccy/go-json"

	"github.com/soleret/polyclob/auth"
	"github.com/soleret/polyclob/clob/types"
)

// APIKeys lists the API keys issued to the authenticated address.
func (ac *AuthenticatedClient) APIKeys(ctx context.Context) (types.APIKeysResponse, error) {
	var out types.APIKeysResponse
	err := ac.doAuth(ctx, "clob.api_keys", request{
		method: http.MethodGet, path: "/auth/api-keys", out: &out,
	})
	return out, err
}

// DeleteAPIKey revokes the credentials this client authenticated with. The
// venue's acknowledgement payload is returned as-is.
func (ac *AuthenticatedClient) DeleteAPIKey(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	err := ac.doAuth(ctx, "clob.delete_api_key", request{
		method: http.MethodDelete, path: "/auth/api-key", out: &out,
	})
	return out, err
}

// ClosedOnlyMode reports whether the account is restricted to closing
// existing positions.
func (ac *AuthenticatedClient) ClosedOnlyMode(ctx context.Context) (types.BanStatusResponse, error) {
	var out types.BanStatusResponse
	err := ac.doAuth(ctx, "clob.closed_only_mode", request{
		method: http.MethodGet, path: "/auth/ban-status/closed-only", out: &out,
	})
	return out, err
}

// PostOrder submits a signed order for matching.
func (ac *AuthenticatedClient) PostOrder(ctx context.Context, order types.SignedOrder) (types.PostOrderResponse, error) {
	const op = "clob.post_order"
	body, err := marshalBody(op, order)
	if err != nil {
		return types.PostOrderResponse{}, err
	}
	var out types.PostOrderResponse
	err = ac.doAuth(ctx, op, request{
		method: http.MethodPost, path: "/order", body: body, out: &out,
	})
	return out, err
}

// PostOrders submits a batch of signed orders in one call.
func (ac *AuthenticatedClient) PostOrders(ctx context.Context, orders []types.SignedOrder) ([]types.PostOrderResponse, error) {
	const op = "clob.post_orders"
	body, err := marshalBody(op, orders)
	if err != nil {
		return nil, err
	}
	var out []types.PostOrderResponse
	err = ac.doAuth(ctx, op, request{
		method: http.MethodPost, path: "/orders", body: body, out: &out,
	})
	return out, err
}

// OpenOrder returns one of the caller's open orders by id.
func (ac *AuthenticatedClient) OpenOrder(ctx context.Context, orderID string) (types.OpenOrderResponse, error) {
	var out types.OpenOrderResponse
	err := ac.doAuth(ctx, "clob.open_order", request{
		method: http.MethodGet, path: "/data/order/" + orderID, out: &out,
	})
	return out, err
}

// OpenOrders returns one page of the caller's open orders. Pass the cursor
// from the previous page, or an empty string for the first.
func (ac *AuthenticatedClient) OpenOrders(ctx context.Context, req types.OrdersRequest, cursor string) (types.Page[types.OpenOrderResponse], error) {
	var out types.Page[types.OpenOrderResponse]
	err := ac.doAuth(ctx, "clob.open_orders", request{
		method: http.MethodGet, path: "/data/orders", query: withCursor(req.Query(), cursor), out: &out,
	})
	return out, err
}

// CancelOrder cancels a single open order by id.
func (ac *AuthenticatedClient) CancelOrder(ctx context.Context, orderID string) (types.CancelOrdersResponse, error) {
	const op = "clob.cancel_order"
	body, err := marshalBody(op, map[string]string{"orderId": orderID})
	if err != nil {
		return types.CancelOrdersResponse{}, err
	}
	var out types.CancelOrdersResponse
	err = ac.doAuth(ctx, op, request{
		method: http.MethodDelete, path: "/order", body: body, out: &out,
	})
	return out, err
}

// CancelOrders cancels a batch of open orders by id.
func (ac *AuthenticatedClient) CancelOrders(ctx context.Context, orderIDs ...string) (types.CancelOrdersResponse, error) {
	const op = "clob.cancel_orders"
	body, err := marshalBody(op, orderIDs)
	if err != nil {
		return types.CancelOrdersResponse{}, err
	}
	var out types.CancelOrdersResponse
	err = ac.doAuth(ctx, op, request{
		method: http.MethodDelete, path: "/orders", body: body, out: &out,
	})
	return out, err
}

// CancelAll cancels every open order belonging to the caller.
func (ac *AuthenticatedClient) CancelAll(ctx context.Context) (types.CancelOrdersResponse, error) {
	var out types.CancelOrdersResponse
	err := ac.doAuth(ctx, "clob.cancel_all", request{
		method: http.MethodDelete, path: "/cancel-all", out: &out,
	})
	return out, err
}

// CancelMarketOrders cancels the caller's open orders in one market or for
// one asset.
func (ac *AuthenticatedClient) CancelMarketOrders(ctx context.Context, req types.CancelMarketOrdersRequest) (types.CancelOrdersResponse, error) {
	const op = "clob.cancel_market_orders"
	body, err := marshalBody(op, req)
	if err != nil {
		return types.CancelOrdersResponse{}, err
	}
	var out types.CancelOrdersResponse
	err = ac.doAuth(ctx, op, request{
		method: http.MethodDelete, path: "/cancel-market-orders", body: body, out: &out,
	})
	return out, err
}

// Trades returns one page of the caller's trade history.
func (ac *AuthenticatedClient) Trades(ctx context.Context, req types.TradesRequest, cursor string) (types.Page[types.TradeResponse], error) {
	var out types.Page[types.TradeResponse]
	err := ac.doAuth(ctx, "clob.trades", request{
		method: http.MethodGet, path: "/data/trades", query: withCursor(req.Query(), cursor), out: &out,
	})
	return out, err
}

// BalanceAllowance returns collateral or conditional token balance and the
// allowances granted to the venue contracts. The signature type defaults to
// the one this client authenticated with.
func (ac *AuthenticatedClient) BalanceAllowance(ctx context.Context, req types.BalanceAllowanceRequest) (types.BalanceAllowanceResponse, error) {
	if req.SignatureType == nil {
		req.SignatureType = &ac.sigType
	}
	var out types.BalanceAllowanceResponse
	err := ac.doAuth(ctx, "clob.balance_allowance", request{
		method: http.MethodGet, path: "/balance-allowance", query: req.Query(), out: &out,
	})
	return out, err
}

// UpdateBalanceAllowance asks the venue to refresh its cached view of the
// caller's balance and allowances. The endpoint returns no body.
func (ac *AuthenticatedClient) UpdateBalanceAllowance(ctx context.Context, req types.BalanceAllowanceRequest) error {
	if req.SignatureType == nil {
		req.SignatureType = &ac.sigType
	}
	return ac.doAuth(ctx, "clob.update_balance_allowance", request{
		method: http.MethodGet, path: "/balance-allowance/update", query: req.Query(),
	})
}

// IsOrderScoring reports whether an order currently counts toward reward
// scoring.
func (ac *AuthenticatedClient) IsOrderScoring(ctx context.Context, orderID string) (types.OrderScoringResponse, error) {
	q := url.Values{}
	q.Set("order_id", orderID)
	var out types.OrderScoringResponse
	err := ac.doAuth(ctx, "clob.is_order_scoring", request{
		method: http.MethodGet, path: "/order-scoring", query: q, out: &out,
	})
	return out, err
}

// AreOrdersScoring reports scoring status for a batch of orders.
func (ac *AuthenticatedClient) AreOrdersScoring(ctx context.Context, orderIDs ...string) (types.OrdersScoringResponse, error) {
	const op = "clob.are_orders_scoring"
	body, err := marshalBody(op, orderIDs)
	if err != nil {
		return nil, err
	}
	var out types.OrdersScoringResponse
	err = ac.doAuth(ctx, op, request{
		method: http.MethodPost, path: "/orders-scoring", body: body, out: &out,
	})
	return out, err
}

// CreateBuilderAPIKey mints credentials for the builder program. The result
// feeds auth.NewLocalBuilder and PromoteToBuilder.
func (ac *AuthenticatedClient) CreateBuilderAPIKey(ctx context.Context) (auth.Credentials, error) {
	var out auth.Credentials
	err := ac.doAuth(ctx, "clob.create_builder_api_key", request{
		method: http.MethodPost, path: "/auth/builder-api-key", out: &out,
	})
	return out, err
}

func withCursor(q url.Values, cursor string) url.Values {
	if cursor != "" {
		q.Set("next_cursor", cursor)
	}
	return q
}
