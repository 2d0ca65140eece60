package types

import (
	"bytes"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/soleret/polyclob/errs"
)

// UnixSeconds is a second-precision timestamp that the venue encodes as a
// JSON number on some fields and a quoted string on others.
type UnixSeconds int64

// Time converts the timestamp to a time.Time in UTC.
func (u UnixSeconds) Time() time.Time {
	return time.Unix(int64(u), 0).UTC()
}

func (u UnixSeconds) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, int64(u), 10), nil
}

func (u *UnixSeconds) UnmarshalJSON(b []byte) error {
	v, err := flexInt64(b)
	if err != nil {
		return errs.New("types.timestamp", errs.CodeDecode, errs.WithMessage("timestamp is not an integer"), errs.WithCause(err))
	}
	*u = UnixSeconds(v)
	return nil
}

// UnixMilli is a millisecond-precision timestamp, encoded as a quoted string
// the way the order book endpoint reports it.
type UnixMilli int64

// Time converts the timestamp to a time.Time in UTC.
func (u UnixMilli) Time() time.Time {
	return time.UnixMilli(int64(u)).UTC()
}

func (u UnixMilli) MarshalJSON() ([]byte, error) {
	return strconv.AppendQuote(nil, strconv.FormatInt(int64(u), 10)), nil
}

func (u *UnixMilli) UnmarshalJSON(b []byte) error {
	v, err := flexInt64(b)
	if err != nil {
		return errs.New("types.timestamp", errs.CodeDecode, errs.WithMessage("timestamp is not an integer"), errs.WithCause(err))
	}
	*u = UnixMilli(v)
	return nil
}

// flexInt64 parses an integer that may arrive quoted, bare, empty or null.
func flexInt64(b []byte) (int64, error) {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return 0, nil
	}
	return strconv.ParseInt(string(b), 10, 64)
}

// LenientDecimal is a decimal that tolerates the empty string the venue
// substitutes for zero on some fields.
type LenientDecimal struct {
	decimal.Decimal
}

func (l *LenientDecimal) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte(`""`)) || bytes.Equal(b, []byte("null")) {
		l.Decimal = decimal.Zero
		return nil
	}
	return l.Decimal.UnmarshalJSON(b)
}

// LenientHash is a 32-byte hash that tolerates the empty string the venue
// sends while a trade is still off chain.
type LenientHash struct {
	common.Hash
}

func (h *LenientHash) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte(`""`)) || bytes.Equal(b, []byte("null")) {
		h.Hash = common.Hash{}
		return nil
	}
	return h.Hash.UnmarshalJSON(b)
}
