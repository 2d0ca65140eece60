// Package types defines the order, request and response types spoken by the
// venue's REST and streaming interfaces.
package types

import (
	"strings"

	json "github.com/goccy/go-json"

	"github.com/soleret/polyclob/errs"
)

// Side of an order. The wire form is "BUY"/"SELL"; the numeric value is what
// gets signed.
type Side uint8

const (
	Buy  Side = 0
	Sell Side = 1
	// SideUnknown captures side values this library does not recognize.
	SideUnknown Side = 255
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// SideFromUint8 converts a signed order's numeric side back to a Side.
func SideFromUint8(v uint8) (Side, error) {
	switch v {
	case 0:
		return Buy, nil
	case 1:
		return Sell, nil
	default:
		return SideUnknown, errs.Validation("types.side", "side must be 0 or 1")
	}
}

func parseSide(raw string) Side {
	switch strings.ToUpper(raw) {
	case "BUY":
		return Buy
	case "SELL":
		return Sell
	default:
		return SideUnknown
	}
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(b []byte) error {
	*s = parseSide(string(b))
	return nil
}

func (s Side) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Side) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = parseSide(raw)
	return nil
}

// OrderType is the venue's time-in-force. Unrecognized values survive decoding
// as themselves so new venue types do not break callers.
type OrderType string

const (
	// GTC rests on the book until explicitly canceled.
	GTC OrderType = "GTC"
	// FOK fills in full immediately or cancels entirely.
	FOK OrderType = "FOK"
	// GTD rests on the book until the order's expiration.
	GTD OrderType = "GTD"
	// FAK fills as much as possible immediately and cancels the rest.
	FAK OrderType = "FAK"
)

func (o *OrderType) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch upper := OrderType(strings.ToUpper(raw)); upper {
	case GTC, FOK, GTD, FAK:
		*o = upper
	default:
		*o = OrderType(raw)
	}
	return nil
}

// SignatureType tells the exchange how to validate the order signature:
// directly against the maker, or against a proxy or safe wallet the signer
// controls.
type SignatureType uint8

const (
	EOA        SignatureType = 0
	Proxy      SignatureType = 1
	GnosisSafe SignatureType = 2
)

func (s SignatureType) String() string {
	switch s {
	case EOA:
		return "EOA"
	case Proxy:
		return "PROXY"
	case GnosisSafe:
		return "GNOSIS_SAFE"
	default:
		return "UNKNOWN"
	}
}

// OrderStatus as reported on order submission, open orders and trades.
type OrderStatus string

const (
	StatusLive      OrderStatus = "LIVE"
	StatusMatched   OrderStatus = "MATCHED"
	StatusCanceled  OrderStatus = "CANCELED"
	StatusDelayed   OrderStatus = "DELAYED"
	StatusUnmatched OrderStatus = "UNMATCHED"
)

func (s *OrderStatus) UnmarshalJSON(b []byte) error {
	raw, err := upperKnown(b, string(StatusLive), string(StatusMatched),
		string(StatusCanceled), string(StatusDelayed), string(StatusUnmatched))
	if err != nil {
		return err
	}
	*s = OrderStatus(raw)
	return nil
}

// TradeStatus tracks a trade through settlement.
type TradeStatus string

const (
	TradeMatched   TradeStatus = "MATCHED"
	TradeMined     TradeStatus = "MINED"
	TradeConfirmed TradeStatus = "CONFIRMED"
	TradeRetrying  TradeStatus = "RETRYING"
	TradeFailed    TradeStatus = "FAILED"
)

func (s *TradeStatus) UnmarshalJSON(b []byte) error {
	raw, err := upperKnown(b, string(TradeMatched), string(TradeMined),
		string(TradeConfirmed), string(TradeRetrying), string(TradeFailed))
	if err != nil {
		return err
	}
	*s = TradeStatus(raw)
	return nil
}

// AssetType selects which balance the balance-allowance endpoints report.
type AssetType string

const (
	Collateral  AssetType = "COLLATERAL"
	Conditional AssetType = "CONDITIONAL"
)

// TraderSide distinguishes the aggressing and resting parties of a trade.
type TraderSide string

const (
	Taker TraderSide = "TAKER"
	Maker TraderSide = "MAKER"
)

// Interval is a predefined window for price history queries.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval1h  Interval = "1h"
	Interval6h  Interval = "6h"
	Interval1d  Interval = "1d"
	Interval1w  Interval = "1w"
	IntervalMax Interval = "max"
)

// upperKnown uppercases raw when it matches a known value, otherwise passes
// it through untouched.
func upperKnown(b []byte, known ...string) (string, error) {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return "", err
	}
	upper := strings.ToUpper(raw)
	for _, k := range known {
		if upper == k {
			return upper, nil
		}
	}
	return raw, nil
}
