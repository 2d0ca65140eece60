package types

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ethereum/go-ethereum/common"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/soleret/polyclob/errs"
)

// MidpointResponse carries the midpoint of a single book.
type MidpointResponse struct {
	Mid decimal.Decimal `json:"mid"`
}

// MidpointsResponse maps token IDs to their midpoints.
type MidpointsResponse map[string]decimal.Decimal

// PriceResponse carries the best price of one side of a book.
type PriceResponse struct {
	Price decimal.Decimal `json:"price"`
}

// PricesResponse maps token IDs to their best price per side.
type PricesResponse map[string]map[Side]decimal.Decimal

// SpreadResponse carries the bid-ask spread of a single book.
type SpreadResponse struct {
	Spread decimal.Decimal `json:"spread"`
}

// SpreadsResponse maps token IDs to their bid-ask spreads.
type SpreadsResponse struct {
	Spreads map[string]decimal.Decimal `json:"spreads"`
}

// PriceHistoryResponse is a time series of traded prices.
type PriceHistoryResponse struct {
	History []PricePoint `json:"history"`
}

// PricePoint is one sample of a price history series.
type PricePoint struct {
	T int64           `json:"t"`
	P decimal.Decimal `json:"p"`
}

// TickSizeResponse carries the price resolution of a market.
type TickSizeResponse struct {
	MinimumTickSize TickSize `json:"minimum_tick_size"`
}

// NegRiskResponse reports whether a market settles through the neg-risk
// adapter.
type NegRiskResponse struct {
	NegRisk bool `json:"neg_risk"`
}

// FeeRateResponse carries the maker/taker base fee of a market in basis
// points.
type FeeRateResponse struct {
	BaseFee uint32 `json:"base_fee"`
}

// GeoblockResponse reports whether the requesting IP is barred from trading
// by geographic restrictions.
type GeoblockResponse struct {
	Blocked bool   `json:"blocked"`
	IP      string `json:"ip"`
	// Country is the ISO 3166-1 alpha-2 country code.
	Country string `json:"country"`
	Region  string `json:"region"`
}

// OrderSummary is one aggregated price level of a book.
type OrderSummary struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// OrderBookSummaryResponse is a snapshot of one market's aggregated book.
type OrderBookSummaryResponse struct {
	// Market is the condition ID.
	Market         common.Hash     `json:"market"`
	AssetID        string          `json:"asset_id"`
	Timestamp      UnixMilli       `json:"timestamp"`
	Hash           string          `json:"hash,omitempty"`
	Bids           []OrderSummary  `json:"bids"`
	Asks           []OrderSummary  `json:"asks"`
	MinOrderSize   decimal.Decimal `json:"min_order_size"`
	NegRisk        bool            `json:"neg_risk"`
	TickSize       TickSize        `json:"tick_size"`
	LastTradePrice LenientDecimal  `json:"last_trade_price"`
}

// Checksum is the hex SHA-256 of the snapshot's JSON form, usable to detect
// whether two snapshots describe the same book state.
func (r *OrderBookSummaryResponse) Checksum() (string, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return "", errs.New("types.book", errs.CodeInternal, errs.WithMessage("book snapshot is not serializable"), errs.WithCause(err))
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// LastTradePriceResponse is the most recent trade of a single book.
type LastTradePriceResponse struct {
	Price decimal.Decimal `json:"price"`
	Side  Side            `json:"side"`
}

// LastTradesPricesResponse is one entry of a batched last-trade query.
type LastTradesPricesResponse struct {
	TokenID string          `json:"token_id"`
	Price   decimal.Decimal `json:"price"`
	Side    Side            `json:"side"`
}

// APIKeysResponse lists the API keys registered for an address.
type APIKeysResponse struct {
	Keys []uuid.UUID `json:"apiKeys"`
}

// BanStatusResponse reports whether the account is restricted to closing
// positions.
type BanStatusResponse struct {
	ClosedOnly bool `json:"closed_only"`
}

// PostOrderResponse is the venue's verdict on a submitted order.
type PostOrderResponse struct {
	ErrorMsg     string
	MakingAmount decimal.Decimal
	TakingAmount decimal.Decimal
	OrderID      string
	Status       OrderStatus
	Success      bool
	// TransactionHashes are set when the order matched and settled on chain.
	TransactionHashes []common.Hash
	TradeIDs          []string
}

func (r *PostOrderResponse) UnmarshalJSON(b []byte) error {
	// The venue has spelled the hashes field both ways.
	var raw struct {
		ErrorMsg           string         `json:"errorMsg"`
		MakingAmount       LenientDecimal `json:"makingAmount"`
		TakingAmount       LenientDecimal `json:"takingAmount"`
		OrderID            string         `json:"orderID"`
		Status             OrderStatus    `json:"status"`
		Success            bool           `json:"success"`
		TransactionHashes  []common.Hash  `json:"transactionHashes"`
		TransactionsHashes []common.Hash  `json:"transactionsHashes"`
		TradeIDs           []string       `json:"tradeIds"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	hashes := raw.TransactionHashes
	if hashes == nil {
		hashes = raw.TransactionsHashes
	}
	*r = PostOrderResponse{
		ErrorMsg:          raw.ErrorMsg,
		MakingAmount:      raw.MakingAmount.Decimal,
		TakingAmount:      raw.TakingAmount.Decimal,
		OrderID:           raw.OrderID,
		Status:            raw.Status,
		Success:           raw.Success,
		TransactionHashes: hashes,
		TradeIDs:          raw.TradeIDs,
	}
	return nil
}

// OpenOrderResponse is one resting order of the authenticated account.
type OpenOrderResponse struct {
	ID           string      `json:"id"`
	Status       OrderStatus `json:"status"`
	Owner        uuid.UUID   `json:"owner"`
	MakerAddress common.Address `json:"maker_address"`
	// Market is the condition ID.
	Market          common.Hash     `json:"market"`
	AssetID         string          `json:"asset_id"`
	Side            Side            `json:"side"`
	OriginalSize    decimal.Decimal `json:"original_size"`
	SizeMatched     decimal.Decimal `json:"size_matched"`
	Price           decimal.Decimal `json:"price"`
	AssociateTrades []string        `json:"associate_trades"`
	Outcome         string          `json:"outcome"`
	CreatedAt       UnixSeconds     `json:"created_at"`
	Expiration      UnixSeconds     `json:"expiration"`
	OrderType       OrderType       `json:"order_type"`
}

// CancelOrdersResponse partitions a cancel request into the order IDs that
// were canceled and those that were not, with the venue's reason.
type CancelOrdersResponse struct {
	Canceled    []string
	NotCanceled map[string]string
}

func (r *CancelOrdersResponse) UnmarshalJSON(b []byte) error {
	// The venue has used both camelCase and snake_case for the reject map.
	var raw struct {
		Canceled       []string          `json:"canceled"`
		NotCanceled    map[string]string `json:"notCanceled"`
		NotCanceledAlt map[string]string `json:"not_canceled"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	notCanceled := raw.NotCanceled
	if notCanceled == nil {
		notCanceled = raw.NotCanceledAlt
	}
	*r = CancelOrdersResponse{Canceled: raw.Canceled, NotCanceled: notCanceled}
	return nil
}

// MakerOrder is a resting order a trade executed against.
type MakerOrder struct {
	OrderID       string          `json:"order_id"`
	Owner         uuid.UUID       `json:"owner"`
	MakerAddress  common.Address  `json:"maker_address"`
	MatchedAmount decimal.Decimal `json:"matched_amount"`
	Price         decimal.Decimal `json:"price"`
	FeeRateBps    decimal.Decimal `json:"fee_rate_bps"`
	AssetID       string          `json:"asset_id"`
	Outcome       string          `json:"outcome"`
	Side          Side            `json:"side"`
}

// TradeResponse is one execution involving the authenticated account.
type TradeResponse struct {
	ID           string `json:"id"`
	TakerOrderID string `json:"taker_order_id"`
	// Market is the condition ID.
	Market          common.Hash     `json:"market"`
	AssetID         string          `json:"asset_id"`
	Side            Side            `json:"side"`
	Size            decimal.Decimal `json:"size"`
	FeeRateBps      decimal.Decimal `json:"fee_rate_bps"`
	Price           decimal.Decimal `json:"price"`
	Status          OrderStatus     `json:"status"`
	MatchTime       UnixSeconds     `json:"match_time"`
	LastUpdate      UnixSeconds     `json:"last_update"`
	Outcome         string          `json:"outcome"`
	BucketIndex     uint32          `json:"bucket_index"`
	Owner           uuid.UUID       `json:"owner"`
	MakerAddress    common.Address  `json:"maker_address"`
	MakerOrders     []MakerOrder    `json:"maker_orders"`
	TransactionHash common.Hash     `json:"transaction_hash"`
	TraderSide      TraderSide      `json:"trader_side"`
	ErrorMsg        string          `json:"error_msg"`
}

// BalanceAllowanceResponse reports a balance and the spend allowances granted
// to the exchange contracts.
type BalanceAllowanceResponse struct {
	Balance    decimal.Decimal           `json:"balance"`
	Allowances map[common.Address]string `json:"allowances"`
}

// OrderScoringResponse reports whether an order currently earns rewards.
type OrderScoringResponse struct {
	Scoring bool `json:"scoring"`
}

// OrdersScoringResponse maps order IDs to their scoring state.
type OrdersScoringResponse map[string]bool

// HeartbeatResponse acknowledges one heartbeat ping.
type HeartbeatResponse struct {
	HeartbeatID uuid.UUID `json:"heartbeat_id"`
	Error       string    `json:"error"`
}

// BuilderAPIKeyResponse describes one builder API key and its lifecycle.
type BuilderAPIKeyResponse struct {
	Key       uuid.UUID  `json:"key"`
	CreatedAt *time.Time `json:"createdAt"`
	RevokedAt *time.Time `json:"revokedAt"`
}

// BuilderTradeResponse is one execution attributed to a builder.
type BuilderTradeResponse struct {
	ID             string
	TradeType      string
	TakerOrderHash common.Hash
	Builder        common.Address
	// Market is the condition ID.
	Market          common.Hash
	AssetID         string
	Side            Side
	Size            decimal.Decimal
	SizeUSDC        decimal.Decimal
	Price           decimal.Decimal
	Status          OrderStatus
	Outcome         string
	OutcomeIndex    uint32
	Owner           uuid.UUID
	Maker           common.Address
	TransactionHash common.Hash
	MatchTime       UnixSeconds
	BucketIndex     uint32
	Fee             decimal.Decimal
	FeeUSDC         decimal.Decimal
	ErrMsg          string
	CreatedAt       *time.Time
	UpdatedAt       *time.Time
}

func (r *BuilderTradeResponse) UnmarshalJSON(b []byte) error {
	// The venue has spelled the error field both ways.
	var raw struct {
		ID              string          `json:"id"`
		TradeType       string          `json:"tradeType"`
		TakerOrderHash  common.Hash     `json:"takerOrderHash"`
		Builder         common.Address  `json:"builder"`
		Market          common.Hash     `json:"market"`
		AssetID         string          `json:"assetId"`
		Side            Side            `json:"side"`
		Size            decimal.Decimal `json:"size"`
		SizeUSDC        decimal.Decimal `json:"sizeUsdc"`
		Price           decimal.Decimal `json:"price"`
		Status          OrderStatus     `json:"status"`
		Outcome         string          `json:"outcome"`
		OutcomeIndex    uint32          `json:"outcomeIndex"`
		Owner           uuid.UUID       `json:"owner"`
		Maker           common.Address  `json:"maker"`
		TransactionHash common.Hash     `json:"transactionHash"`
		MatchTime       UnixSeconds     `json:"matchTime"`
		BucketIndex     uint32          `json:"bucketIndex"`
		Fee             decimal.Decimal `json:"fee"`
		FeeUSDC         decimal.Decimal `json:"feeUsdc"`
		ErrMsg          string          `json:"errMsg"`
		ErrMsgAlt       string          `json:"err_msg"`
		CreatedAt       *time.Time      `json:"createdAt"`
		UpdatedAt       *time.Time      `json:"updatedAt"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	errMsg := raw.ErrMsg
	if errMsg == "" {
		errMsg = raw.ErrMsgAlt
	}
	*r = BuilderTradeResponse{
		ID:              raw.ID,
		TradeType:       raw.TradeType,
		TakerOrderHash:  raw.TakerOrderHash,
		Builder:         raw.Builder,
		Market:          raw.Market,
		AssetID:         raw.AssetID,
		Side:            raw.Side,
		Size:            raw.Size,
		SizeUSDC:        raw.SizeUSDC,
		Price:           raw.Price,
		Status:          raw.Status,
		Outcome:         raw.Outcome,
		OutcomeIndex:    raw.OutcomeIndex,
		Owner:           raw.Owner,
		Maker:           raw.Maker,
		TransactionHash: raw.TransactionHash,
		MatchTime:       raw.MatchTime,
		BucketIndex:     raw.BucketIndex,
		Fee:             raw.Fee,
		FeeUSDC:         raw.FeeUSDC,
		ErrMsg:          errMsg,
		CreatedAt:       raw.CreatedAt,
		UpdatedAt:       raw.UpdatedAt,
	}
	return nil
}

// Page is one slice of a cursor-paginated listing.
type Page[T any] struct {
	Data []T `json:"data"`
	// NextCursor is the continuation token for the following page.
	NextCursor string `json:"next_cursor"`
	Limit      uint64 `json:"limit"`
	Count      uint64 `json:"count"`
}
