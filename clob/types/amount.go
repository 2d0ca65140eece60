package types

import (
	"github.com/shopspring/decimal"

	"github.com/soleret/polyclob/errs"
)

const (
	// USDCDecimals is the on-chain precision of the collateral token.
	USDCDecimals int32 = 6
	// LotSizeScale is the maximum number of decimal places a share quantity
	// may carry.
	LotSizeScale int32 = 2
)

// Amount is a market order quantity, denominated either in collateral (USDC)
// or in shares of the outcome token.
type Amount struct {
	value  decimal.Decimal
	shares bool
}

// USDC builds a collateral-denominated amount. The value may carry at most
// six decimal places; trailing zeros beyond that are accepted.
func USDC(value decimal.Decimal) (Amount, error) {
	if !value.Equal(value.Truncate(USDCDecimals)) {
		return Amount{}, errs.Validation("types.amount", "USDC amounts carry at most 6 decimal places")
	}
	return Amount{value: value}, nil
}

// Shares builds a share-denominated amount. The value may carry at most two
// decimal places.
func Shares(value decimal.Decimal) (Amount, error) {
	if !value.Equal(value.Truncate(LotSizeScale)) {
		return Amount{}, errs.Validation("types.amount", "share amounts carry at most 2 decimal places")
	}
	return Amount{value: value, shares: true}, nil
}

// Value is the numeric quantity without its denomination.
func (a Amount) Value() decimal.Decimal {
	return a.value
}

// IsShares reports whether the amount is denominated in outcome shares.
func (a Amount) IsShares() bool {
	return a.shares
}

// IsUSDC reports whether the amount is denominated in collateral.
func (a Amount) IsUSDC() bool {
	return !a.shares
}
