package types

import (
	"github.com/shopspring/decimal"

	"github.com/soleret/polyclob/errs"
)

// TickSize is the price resolution of a market, stored as the number of
// decimal places a price may carry. Valid prices lie in [tick, 1-tick].
type TickSize int32

const (
	TickTenth         TickSize = 1
	TickHundredth     TickSize = 2
	TickThousandth    TickSize = 3
	TickTenThousandth TickSize = 4
)

// Valid reports whether t is one of the resolutions the venue supports. The
// zero value is invalid, which lets caches use it as "not fetched yet".
func (t TickSize) Valid() bool {
	return t >= TickTenth && t <= TickTenThousandth
}

// Places is the number of decimal places a price at this tick may carry.
func (t TickSize) Places() int32 {
	return int32(t)
}

// Decimal is the tick as a decimal fraction, e.g. 0.01 for TickHundredth.
func (t TickSize) Decimal() decimal.Decimal {
	return decimal.New(1, -int32(t))
}

func (t TickSize) String() string {
	return t.Decimal().String()
}

// ParseTickSize maps a decimal tick (0.1, 0.01, 0.001 or 0.0001) to its
// TickSize.
func ParseTickSize(d decimal.Decimal) (TickSize, error) {
	for t := TickTenth; t <= TickTenThousandth; t++ {
		if d.Equal(t.Decimal()) {
			return t, nil
		}
	}
	return 0, errs.Validation("types.tick_size", "tick size must be one of 0.1, 0.01, 0.001, 0.0001")
}

func (t TickSize) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return nil, errs.Validation("types.tick_size", "tick size is not set")
	}
	return []byte(t.Decimal().String()), nil
}

// UnmarshalJSON accepts the tick as either a JSON number or a quoted decimal
// string, both of which appear across venue endpoints.
func (t *TickSize) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return errs.New("types.tick_size", errs.CodeDecode, errs.WithMessage("tick size is not a decimal"), errs.WithCause(err))
	}
	parsed, err := ParseTickSize(d)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
