package ws

import (
	"bytes"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/soleret/polyclob/clob/types"
	"github.com/soleret/polyclob/errs"
)

// Event type tags carried on inbound frames.
const (
	EventBook           = "book"
	EventPriceChange    = "price_change"
	EventTickSizeChange = "tick_size_change"
	EventLastTradePrice = "last_trade_price"
	EventBestBidAsk     = "best_bid_ask"
	EventNewMarket      = "new_market"
	EventMarketResolved = "market_resolved"
	EventTrade          = "trade"
	EventOrder          = "order"
)

const (
	opSubscribe   = "subscribe"
	opUnsubscribe = "unsubscribe"
)

// Message is one streamed venue event. The concrete types are *BookUpdate,
// *PriceChange, *TickSizeChange, *LastTradePrice, *BestBidAsk, *NewMarket,
// *MarketResolved, *TradeMessage and *OrderMessage; switch on the concrete
// type to consume.
type Message interface {
	// EventType returns the wire tag identifying the event kind.
	EventType() string
}

// subscribeFrame is the control message both channel endpoints accept. Both
// id lists ride on every frame; the channel type decides which one the venue
// reads.
type subscribeFrame struct {
	Type        string       `json:"type"`
	Operation   string       `json:"operation"`
	Markets     []string     `json:"markets"`
	AssetIDs    []string     `json:"assets_ids"`
	InitialDump *bool        `json:"initial_dump,omitempty"`
	Auth        *authPayload `json:"auth,omitempty"`
}

// authPayload carries API credentials inside user-channel subscribe frames.
// It is assembled immediately before marshalling and never retained.
type authPayload struct {
	APIKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

func newSubscribeFrame(ch Channel, op string, ids []string) subscribeFrame {
	frame := subscribeFrame{
		Type:      string(ch),
		Operation: op,
		Markets:   []string{},
		AssetIDs:  []string{},
	}
	ids = append([]string{}, ids...)
	if ch == ChannelUser {
		frame.Markets = ids
	} else {
		frame.AssetIDs = ids
	}
	if op == opSubscribe {
		dump := true
		frame.InitialDump = &dump
	}
	return frame
}

// BookUpdate is a full book snapshot for one asset, sent on subscription and
// after every trade that moves the book.
type BookUpdate struct {
	AssetID string `json:"asset_id"`
	// Market is the condition ID.
	Market    common.Hash          `json:"market"`
	Timestamp types.UnixMilli      `json:"timestamp"`
	Bids      []types.OrderSummary `json:"bids"`
	Asks      []types.OrderSummary `json:"asks"`
	Hash      string               `json:"hash"`
}

func (*BookUpdate) EventType() string { return EventBook }

// PriceChange batches level updates for one market.
type PriceChange struct {
	Market    common.Hash     `json:"market"`
	Timestamp types.UnixMilli `json:"timestamp"`
	Changes   []LevelChange   `json:"price_changes"`
}

func (*PriceChange) EventType() string { return EventPriceChange }

// LevelChange is one updated price level inside a PriceChange batch.
type LevelChange struct {
	AssetID string          `json:"asset_id"`
	Price   decimal.Decimal `json:"price"`
	Size    decimal.Decimal `json:"size"`
	Side    types.Side      `json:"side"`
	Hash    string          `json:"hash"`
	BestBid decimal.Decimal `json:"best_bid"`
	BestAsk decimal.Decimal `json:"best_ask"`
}

// TickSizeChange notifies that an asset's price crossed a tick threshold.
type TickSizeChange struct {
	AssetID     string          `json:"asset_id"`
	Market      common.Hash     `json:"market"`
	OldTickSize decimal.Decimal `json:"old_tick_size"`
	NewTickSize decimal.Decimal `json:"new_tick_size"`
	Timestamp   types.UnixMilli `json:"timestamp"`
}

func (*TickSizeChange) EventType() string { return EventTickSizeChange }

// LastTradePrice reports the latest execution on an asset.
type LastTradePrice struct {
	AssetID    string          `json:"asset_id"`
	Market     common.Hash     `json:"market"`
	Price      decimal.Decimal `json:"price"`
	Side       types.Side      `json:"side"`
	Size       decimal.Decimal `json:"size"`
	FeeRateBps decimal.Decimal `json:"fee_rate_bps"`
	Timestamp  types.UnixMilli `json:"timestamp"`
}

func (*LastTradePrice) EventType() string { return EventLastTradePrice }

// BestBidAsk reports top-of-book movement.
type BestBidAsk struct {
	Market    common.Hash     `json:"market"`
	AssetID   string          `json:"asset_id"`
	BestBid   decimal.Decimal `json:"best_bid"`
	BestAsk   decimal.Decimal `json:"best_ask"`
	Spread    decimal.Decimal `json:"spread"`
	Timestamp types.UnixMilli `json:"timestamp"`
}

func (*BestBidAsk) EventType() string { return EventBestBidAsk }

// EventInfo describes the event a market belongs to.
type EventInfo struct {
	ID          string `json:"id"`
	Ticker      string `json:"ticker"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// NewMarket announces a freshly created market.
type NewMarket struct {
	ID          string          `json:"id"`
	Question    string          `json:"question"`
	Market      common.Hash     `json:"market"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	AssetIDs    []string        `json:"assets_ids"`
	Outcomes    []string        `json:"outcomes"`
	Event       *EventInfo      `json:"event_message"`
	Timestamp   types.UnixMilli `json:"timestamp"`
}

func (*NewMarket) EventType() string { return EventNewMarket }

// MarketResolved announces a market resolution and its winning outcome.
type MarketResolved struct {
	ID             string          `json:"id"`
	Question       string          `json:"question"`
	Market         common.Hash     `json:"market"`
	Slug           string          `json:"slug"`
	Description    string          `json:"description"`
	AssetIDs       []string        `json:"assets_ids"`
	Outcomes       []string        `json:"outcomes"`
	WinningAssetID string          `json:"winning_asset_id"`
	WinningOutcome string          `json:"winning_outcome"`
	Event          *EventInfo      `json:"event_message"`
	Timestamp      types.UnixMilli `json:"timestamp"`
}

func (*MarketResolved) EventType() string { return EventMarketResolved }

// MakerOrder is one resting order consumed by a streamed trade.
type MakerOrder struct {
	AssetID       string          `json:"asset_id"`
	MatchedAmount decimal.Decimal `json:"matched_amount"`
	OrderID       string          `json:"order_id"`
	Outcome       string          `json:"outcome"`
	Owner         uuid.UUID       `json:"owner"`
	Price         decimal.Decimal `json:"price"`
}

// TradeMessage is an execution on the authenticated user channel. The same
// trade is re-sent as its status advances through settlement.
type TradeMessage struct {
	ID              string            `json:"id"`
	Market          common.Hash       `json:"market"`
	AssetID         string            `json:"asset_id"`
	Side            types.Side        `json:"side"`
	Size            decimal.Decimal   `json:"size"`
	Price           decimal.Decimal   `json:"price"`
	Status          types.TradeStatus `json:"status"`
	Outcome         string            `json:"outcome"`
	Owner           uuid.UUID         `json:"owner"`
	TradeOwner      uuid.UUID         `json:"trade_owner"`
	TraderSide      types.TraderSide  `json:"trader_side"`
	TakerOrderID    string            `json:"taker_order_id"`
	MakerOrders     []MakerOrder      `json:"maker_orders"`
	FeeRateBps      decimal.Decimal   `json:"fee_rate_bps"`
	TransactionHash types.LenientHash `json:"transaction_hash"`
	MatchTime       types.UnixSeconds `json:"matchtime"`
	LastUpdate      types.UnixSeconds `json:"last_update"`
	Timestamp       types.UnixMilli   `json:"timestamp"`
}

func (*TradeMessage) EventType() string { return EventTrade }

// OrderEvent distinguishes why an order update was emitted.
type OrderEvent string

const (
	OrderPlacement    OrderEvent = "PLACEMENT"
	OrderUpdate       OrderEvent = "UPDATE"
	OrderCancellation OrderEvent = "CANCELLATION"
)

func (e *OrderEvent) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	// The venue has emitted both spellings.
	switch upper := strings.ToUpper(raw); upper {
	case string(OrderPlacement), string(OrderUpdate), string(OrderCancellation):
		*e = OrderEvent(upper)
	default:
		*e = OrderEvent(raw)
	}
	return nil
}

// OrderMessage is a lifecycle update for one of the user's orders.
type OrderMessage struct {
	ID              string          `json:"id"`
	Market          common.Hash     `json:"market"`
	AssetID         string          `json:"asset_id"`
	Side            types.Side      `json:"side"`
	Price           decimal.Decimal `json:"price"`
	Kind            OrderEvent      `json:"type"`
	Outcome         string          `json:"outcome"`
	Owner           uuid.UUID       `json:"owner"`
	OrderOwner      uuid.UUID       `json:"order_owner"`
	OriginalSize    decimal.Decimal `json:"original_size"`
	SizeMatched     decimal.Decimal `json:"size_matched"`
	AssociateTrades []string        `json:"associate_trades"`
	Timestamp       types.UnixMilli `json:"timestamp"`
}

func (*OrderMessage) EventType() string { return EventOrder }

// decodeFrame parses one inbound text frame, which carries either a single
// event object or an array of them. Events failing the want gate are skipped
// before the full decode; unknown event types are dropped so new venue
// message kinds never break the stream.
func decodeFrame(data []byte, want func(string) bool) ([]Message, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] != '[' {
		msg, err := decodeEvent(trimmed, want)
		if err != nil || msg == nil {
			return nil, err
		}
		return []Message{msg}, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		return nil, errs.New("ws.decode", errs.CodeDecode,
			errs.WithMessage("malformed event batch"), errs.WithCause(err))
	}
	msgs := make([]Message, 0, len(raws))
	for _, raw := range raws {
		msg, err := decodeEvent(raw, want)
		if err != nil {
			return nil, err
		}
		if msg != nil {
			msgs = append(msgs, msg)
		}
	}
	return msgs, nil
}

func decodeEvent(raw []byte, want func(string) bool) (Message, error) {
	var peek struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(raw, &peek); err != nil {
		return nil, errs.New("ws.decode", errs.CodeDecode,
			errs.WithMessage("malformed event"), errs.WithCause(err))
	}
	if peek.EventType == "" || (want != nil && !want(peek.EventType)) {
		return nil, nil
	}

	var msg Message
	switch peek.EventType {
	case EventBook:
		msg = new(BookUpdate)
	case EventPriceChange:
		msg = new(PriceChange)
	case EventTickSizeChange:
		msg = new(TickSizeChange)
	case EventLastTradePrice:
		msg = new(LastTradePrice)
	case EventBestBidAsk:
		msg = new(BestBidAsk)
	case EventNewMarket:
		msg = new(NewMarket)
	case EventMarketResolved:
		msg = new(MarketResolved)
	case EventTrade:
		msg = new(TradeMessage)
	case EventOrder:
		msg = new(OrderMessage)
	default:
		return nil, nil
	}
	if err := json.Unmarshal(raw, msg); err != nil {
		return nil, errs.New("ws.decode", errs.CodeDecode,
			errs.WithMessage("decode "+peek.EventType+" event"), errs.WithCause(err))
	}
	return msg, nil
}
