package types

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// TimeRange selects the window of a price history query: either a predefined
// interval or an explicit start/end pair in unix seconds. The venue rejects
// queries that mix the two.
type TimeRange struct {
	Interval Interval
	StartTs  int64
	EndTs    int64
}

// RangeFromInterval builds a window covering the given trailing interval.
func RangeFromInterval(i Interval) TimeRange {
	return TimeRange{Interval: i}
}

// RangeBetween builds an explicit window in unix seconds.
func RangeBetween(startTs, endTs int64) TimeRange {
	return TimeRange{StartTs: startTs, EndTs: endTs}
}

func (t TimeRange) apply(q url.Values) {
	if t.Interval != "" {
		q.Set("interval", string(t.Interval))
		return
	}
	q.Set("startTs", strconv.FormatInt(t.StartTs, 10))
	q.Set("endTs", strconv.FormatInt(t.EndTs, 10))
}

// PriceRequest names one side of one book, for the single and batched price
// queries.
type PriceRequest struct {
	TokenID string `json:"token_id"`
	Side    Side   `json:"side"`
}

// TokenID wraps a token ID for batched book and midpoint queries.
type TokenID struct {
	TokenID string `json:"token_id"`
}

// TokenIDs adapts a list of raw token IDs to the batched query body shape.
func TokenIDs(ids ...string) []TokenID {
	out := make([]TokenID, len(ids))
	for i, id := range ids {
		out[i] = TokenID{TokenID: id}
	}
	return out
}

// PriceHistoryRequest selects the series returned by the price history
// endpoint.
type PriceHistoryRequest struct {
	// Market is the condition ID.
	Market string
	Range  TimeRange
	// Fidelity is the requested number of data points; zero defers to the
	// venue default.
	Fidelity uint32
}

// Query renders the request as URL query parameters.
func (r PriceHistoryRequest) Query() url.Values {
	q := url.Values{}
	setNonEmpty(q, "market", r.Market)
	r.Range.apply(q)
	if r.Fidelity != 0 {
		q.Set("fidelity", strconv.FormatUint(uint64(r.Fidelity), 10))
	}
	return q
}

// TradesRequest filters the authenticated trade listing. Zero fields are
// omitted from the query.
type TradesRequest struct {
	ID           string
	TakerAddress *common.Address
	MakerAddress *common.Address
	// Market is the condition ID.
	Market  string
	AssetID string
	// Before and After bound the match time in unix seconds.
	Before int64
	After  int64
}

// Query renders the request as URL query parameters.
func (r TradesRequest) Query() url.Values {
	q := url.Values{}
	setNonEmpty(q, "id", r.ID)
	if r.TakerAddress != nil {
		q.Set("taker", lowerHex(*r.TakerAddress))
	}
	if r.MakerAddress != nil {
		q.Set("maker", lowerHex(*r.MakerAddress))
	}
	setNonEmpty(q, "market", r.Market)
	setNonEmpty(q, "asset_id", r.AssetID)
	if r.Before != 0 {
		q.Set("before", strconv.FormatInt(r.Before, 10))
	}
	if r.After != 0 {
		q.Set("after", strconv.FormatInt(r.After, 10))
	}
	return q
}

// OrdersRequest filters the open-order listing. Zero fields are omitted from
// the query.
type OrdersRequest struct {
	OrderID string
	// Market is the condition ID.
	Market  string
	AssetID string
}

// Query renders the request as URL query parameters.
func (r OrdersRequest) Query() url.Values {
	q := url.Values{}
	setNonEmpty(q, "id", r.OrderID)
	setNonEmpty(q, "market", r.Market)
	setNonEmpty(q, "asset_id", r.AssetID)
	return q
}

// BalanceAllowanceRequest selects which balance the balance-allowance
// endpoints report on.
type BalanceAllowanceRequest struct {
	AssetType AssetType
	// TokenID is required when AssetType is Conditional.
	TokenID string
	// SignatureType selects the wallet the balance belongs to. Nil defers to
	// the venue default.
	SignatureType *SignatureType
}

// Query renders the request as URL query parameters.
func (r BalanceAllowanceRequest) Query() url.Values {
	q := url.Values{}
	q.Set("asset_type", string(r.AssetType))
	setNonEmpty(q, "token_id", r.TokenID)
	if r.SignatureType != nil {
		q.Set("signature_type", strconv.Itoa(int(*r.SignatureType)))
	}
	return q
}

// CancelMarketOrdersRequest names the market or asset whose resting orders
// should be canceled.
type CancelMarketOrdersRequest struct {
	// Market is the condition ID.
	Market  string `json:"market,omitempty"`
	AssetID string `json:"asset_id,omitempty"`
}

func setNonEmpty(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func lowerHex(a common.Address) string {
	return strings.ToLower(a.Hex())
}
