package clob

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc"

	"github.com/soleret/polyclob/clob/types"
	"github.com/soleret/polyclob/errs"
)

// generateSeed draws the default order salt. Build masks it to 53 bits.
func generateSeed() uint64 {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return binary.BigEndian.Uint64(b[:])
}

// nextSalt mints a fresh masked salt. The venue round-trips the salt
// through an IEEE 754 double, so it must stay below 2^53.
func (ac *AuthenticatedClient) nextSalt() uint64 {
	return ac.saltGen() & types.MaxSalt
}

// makerAddress picks the order maker: the funder wallet when one is set,
// otherwise the signing address itself.
func (ac *AuthenticatedClient) makerAddress() common.Address {
	if ac.funder != (common.Address{}) {
		return ac.funder
	}
	return ac.signer.Address()
}

// requirements are the per-token venue facts an order must respect.
type requirements struct {
	tick    types.TickSize
	baseFee uint32
}

// orderRequirements fetches tick size and fee rate, concurrently on a cache
// miss.
func (ac *AuthenticatedClient) orderRequirements(ctx context.Context, tokenID string) (requirements, error) {
	var (
		out     requirements
		tickErr error
		feeErr  error
	)
	var wg conc.WaitGroup
	wg.Go(func() {
		resp, err := ac.TickSize(ctx, tokenID)
		out.tick, tickErr = resp.MinimumTickSize, err
	})
	wg.Go(func() {
		resp, err := ac.FeeRateBps(ctx, tokenID)
		out.baseFee, feeErr = resp.BaseFee, err
	})
	wg.Wait()
	if tickErr != nil {
		return requirements{}, tickErr
	}
	if feeErr != nil {
		return requirements{}, feeErr
	}
	return out, nil
}

// toFixed converts a decimal amount to the venue's 6-decimal fixed-point
// integer representation.
func toFixed(d decimal.Decimal) *big.Int {
	return d.Truncate(types.USDCDecimals).Shift(types.USDCDecimals).BigInt()
}

// scaleOf returns the number of decimal places d carries, counting
// trailing zeros the way it was written.
func scaleOf(d decimal.Decimal) int32 {
	if d.Exponent() < 0 {
		return -d.Exponent()
	}
	return 0
}

func parseTokenID(op, tokenID string) (*big.Int, error) {
	if tokenID == "" {
		return nil, errs.Validation(op, "order is missing its token id")
	}
	token, ok := new(big.Int).SetString(tokenID, 10)
	if !ok || token.Sign() < 0 {
		return nil, errs.Validation(op, "token id "+tokenID+" is not an unsigned decimal integer")
	}
	return token, nil
}

// LimitOrderBuilder assembles a limit order resting at a caller-chosen
// price. Obtain one with AuthenticatedClient.LimitOrder.
type LimitOrderBuilder struct {
	client     *AuthenticatedClient
	tokenID    string
	side       types.Side
	price      *decimal.Decimal
	size       *decimal.Decimal
	nonce      uint64
	expiration *time.Time
	taker      *common.Address
	orderType  *types.OrderType
	postOnly   *bool
}

// LimitOrder starts building a limit order.
func (ac *AuthenticatedClient) LimitOrder() *LimitOrderBuilder {
	return &LimitOrderBuilder{client: ac, side: types.SideUnknown}
}

// TokenID sets the outcome token to trade. Required.
func (b *LimitOrderBuilder) TokenID(tokenID string) *LimitOrderBuilder {
	b.tokenID = tokenID
	return b
}

// Side sets the order side. Required.
func (b *LimitOrderBuilder) Side(side types.Side) *LimitOrderBuilder {
	b.side = side
	return b
}

// Price sets the limit price. Required.
func (b *LimitOrderBuilder) Price(price decimal.Decimal) *LimitOrderBuilder {
	b.price = &price
	return b
}

// Size sets the share count. Required; at most two decimal places.
func (b *LimitOrderBuilder) Size(size decimal.Decimal) *LimitOrderBuilder {
	b.size = &size
	return b
}

// Nonce sets the on-chain cancel nonce. Defaults to zero.
func (b *LimitOrderBuilder) Nonce(nonce uint64) *LimitOrderBuilder {
	b.nonce = nonce
	return b
}

// Expiration sets when the order lapses. Only valid for GTD orders.
func (b *LimitOrderBuilder) Expiration(expiration time.Time) *LimitOrderBuilder {
	b.expiration = &expiration
	return b
}

// Taker restricts the order to a single counterparty. Defaults to open.
func (b *LimitOrderBuilder) Taker(taker common.Address) *LimitOrderBuilder {
	b.taker = &taker
	return b
}

// OrderType sets the time-in-force. Defaults to GTC.
func (b *LimitOrderBuilder) OrderType(orderType types.OrderType) *LimitOrderBuilder {
	b.orderType = &orderType
	return b
}

// PostOnly rejects the order instead of crossing the book. GTC and GTD
// only.
func (b *LimitOrderBuilder) PostOnly(postOnly bool) *LimitOrderBuilder {
	b.postOnly = &postOnly
	return b
}

// Build validates the builder against the venue's per-token requirements
// and produces a signable order with a fresh salt.
func (b *LimitOrderBuilder) Build(ctx context.Context) (types.SignableOrder, error) {
	const op = "clob.limit_order"

	token, err := parseTokenID(op, b.tokenID)
	if err != nil {
		return types.SignableOrder{}, err
	}
	if b.side != types.Buy && b.side != types.Sell {
		return types.SignableOrder{}, errs.Validation(op, "order side must be BUY or SELL")
	}
	if b.price == nil {
		return types.SignableOrder{}, errs.Validation(op, "order is missing its price")
	}
	if b.price.IsNegative() {
		return types.SignableOrder{}, errs.Validation(op, "price "+b.price.String()+" must not be negative")
	}

	reqs, err := b.client.orderRequirements(ctx, b.tokenID)
	if err != nil {
		return types.SignableOrder{}, err
	}
	tick := reqs.tick.Decimal()
	places := reqs.tick.Places()

	if scaleOf(*b.price) > places {
		return types.SignableOrder{}, errs.Validation(op, fmt.Sprintf(
			"price %s has more decimal places than tick size %s allows", b.price, tick))
	}
	if b.price.LessThan(tick) || b.price.GreaterThan(decimal.New(1, 0).Sub(tick)) {
		return types.SignableOrder{}, errs.Validation(op, fmt.Sprintf(
			"price %s is outside [%s, %s]", b.price, tick, decimal.New(1, 0).Sub(tick)))
	}

	if b.size == nil {
		return types.SignableOrder{}, errs.Validation(op, "order is missing its size")
	}
	if scaleOf(*b.size) > types.LotSizeScale {
		return types.SignableOrder{}, errs.Validation(op, fmt.Sprintf(
			"size %s has more than %d decimal places", b.size, types.LotSizeScale))
	}
	if !b.size.IsPositive() {
		return types.SignableOrder{}, errs.Validation(op, "size "+b.size.String()+" must be positive")
	}

	orderType := types.GTC
	if b.orderType != nil {
		orderType = *b.orderType
	}
	postOnly := false
	if b.postOnly != nil {
		postOnly = *b.postOnly
	}
	taker := common.Address{}
	if b.taker != nil {
		taker = *b.taker
	}

	var expiration int64
	if b.expiration != nil {
		expiration = b.expiration.Unix()
		if orderType != types.GTD && expiration > 0 {
			return types.SignableOrder{}, errs.Validation(op, "only GTD orders may carry an expiration")
		}
		if expiration < 0 {
			return types.SignableOrder{}, errs.Validation(op, "expiration predates the epoch")
		}
	}
	if postOnly && orderType != types.GTC && orderType != types.GTD {
		return types.SignableOrder{}, errs.Validation(op, "postOnly applies to GTC and GTD orders only")
	}

	// A buy makes size*price collateral and takes size shares; a sell is
	// the mirror image. The notional is truncated to tick plus lot
	// precision so the order snaps to the book's resting precision.
	notional := b.size.Mul(*b.price).Truncate(places + types.LotSizeScale)
	var makerAmt, takerAmt decimal.Decimal
	if b.side == types.Buy {
		takerAmt, makerAmt = *b.size, notional
	} else {
		takerAmt, makerAmt = notional, *b.size
	}

	order := types.Order{
		Salt:          b.client.nextSalt(),
		Maker:         b.client.makerAddress(),
		Signer:        b.client.signer.Address(),
		Taker:         taker,
		TokenID:       token,
		MakerAmount:   toFixed(makerAmt),
		TakerAmount:   toFixed(takerAmt),
		Expiration:    big.NewInt(expiration),
		Nonce:         new(big.Int).SetUint64(b.nonce),
		FeeRateBps:    big.NewInt(int64(reqs.baseFee)),
		Side:          b.side,
		SignatureType: b.client.sigType,
	}
	return types.SignableOrder{Order: order, OrderType: orderType, PostOnly: &postOnly}, nil
}

// MarketOrderBuilder assembles an immediate-execution order sized either in
// collateral to spend or shares to move. Obtain one with
// AuthenticatedClient.MarketOrder. Market orders cannot rest, so there is
// no expiration or post-only knob.
type MarketOrderBuilder struct {
	client    *AuthenticatedClient
	tokenID   string
	side      types.Side
	amount    *types.Amount
	price     *decimal.Decimal
	nonce     uint64
	taker     *common.Address
	orderType *types.OrderType
}

// MarketOrder starts building a market order.
func (ac *AuthenticatedClient) MarketOrder() *MarketOrderBuilder {
	return &MarketOrderBuilder{client: ac, side: types.SideUnknown}
}

// TokenID sets the outcome token to trade. Required.
func (b *MarketOrderBuilder) TokenID(tokenID string) *MarketOrderBuilder {
	b.tokenID = tokenID
	return b
}

// Side sets the order side. Required.
func (b *MarketOrderBuilder) Side(side types.Side) *MarketOrderBuilder {
	b.side = side
	return b
}

// Amount sets how much to trade: collateral to spend for buys, shares to
// move for sells. Required.
func (b *MarketOrderBuilder) Amount(amount types.Amount) *MarketOrderBuilder {
	b.amount = &amount
	return b
}

// Price caps the execution price instead of deriving it from book depth.
func (b *MarketOrderBuilder) Price(price decimal.Decimal) *MarketOrderBuilder {
	b.price = &price
	return b
}

// Nonce sets the on-chain cancel nonce. Defaults to zero.
func (b *MarketOrderBuilder) Nonce(nonce uint64) *MarketOrderBuilder {
	b.nonce = nonce
	return b
}

// Taker restricts the order to a single counterparty. Defaults to open.
func (b *MarketOrderBuilder) Taker(taker common.Address) *MarketOrderBuilder {
	b.taker = &taker
	return b
}

// OrderType sets the time-in-force, FAK (default) or FOK.
func (b *MarketOrderBuilder) OrderType(orderType types.OrderType) *MarketOrderBuilder {
	b.orderType = &orderType
	return b
}

// marketPrice derives the execution price from book depth: walk the
// opposing side from the best quote, accumulating shares (or notional for
// collateral-sized buys) until the order amount is covered.
func (b *MarketOrderBuilder) marketPrice(ctx context.Context, orderType types.OrderType) (decimal.Decimal, error) {
	const op = "clob.market_price"

	book, err := b.client.Book(ctx, b.tokenID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	levels := book.Asks
	if b.side == types.Sell {
		levels = book.Bids
	}
	if len(levels) == 0 {
		return decimal.Decimal{}, errs.Validation(op,
			"no opposing orders for "+b.tokenID+", so there is no market price")
	}

	target := b.amount.Value()
	sum := decimal.Zero
	// Levels arrive worst-to-best, so the walk runs from the back.
	for i := len(levels) - 1; i >= 0; i-- {
		level := levels[i]
		if b.amount.IsUSDC() {
			sum = sum.Add(level.Size.Mul(level.Price))
		} else {
			sum = sum.Add(level.Size)
		}
		if sum.GreaterThanOrEqual(target) {
			return level.Price, nil
		}
	}
	if orderType == types.FOK {
		return decimal.Decimal{}, errs.Validation(op, fmt.Sprintf(
			"insufficient liquidity to fill %s of %s", target, b.tokenID))
	}
	// A fill-and-kill order takes what the book has, priced at its
	// deepest level.
	return levels[0].Price, nil
}

// Build validates the builder, derives the execution price when none was
// given, and produces a signable order with a fresh salt.
func (b *MarketOrderBuilder) Build(ctx context.Context) (types.SignableOrder, error) {
	const op = "clob.market_order"

	token, err := parseTokenID(op, b.tokenID)
	if err != nil {
		return types.SignableOrder{}, err
	}
	if b.side != types.Buy && b.side != types.Sell {
		return types.SignableOrder{}, errs.Validation(op, "order side must be BUY or SELL")
	}
	if b.amount == nil {
		return types.SignableOrder{}, errs.Validation(op, "order is missing its amount")
	}
	if b.side == types.Sell && b.amount.IsUSDC() {
		return types.SignableOrder{}, errs.Validation(op, "sell orders take their amount in shares")
	}

	orderType := types.FAK
	if b.orderType != nil {
		orderType = *b.orderType
	}
	if orderType != types.FAK && orderType != types.FOK {
		return types.SignableOrder{}, errs.Validation(op, "market orders are FAK or FOK")
	}

	var price decimal.Decimal
	if b.price != nil {
		price = *b.price
	} else {
		price, err = b.marketPrice(ctx, orderType)
		if err != nil {
			return types.SignableOrder{}, err
		}
	}

	reqs, err := b.client.orderRequirements(ctx, b.tokenID)
	if err != nil {
		return types.SignableOrder{}, err
	}
	tick := reqs.tick.Decimal()
	places := reqs.tick.Places()

	price = price.Truncate(places)
	if price.LessThan(tick) || price.GreaterThan(decimal.New(1, 0).Sub(tick)) {
		return types.SignableOrder{}, errs.Validation(op, fmt.Sprintf(
			"price %s is outside [%s, %s]", price, tick, decimal.New(1, 0).Sub(tick)))
	}

	taker := common.Address{}
	if b.taker != nil {
		taker = *b.taker
	}

	// A collateral-sized buy spends the amount and receives amount/price
	// shares; a share-sized order exchanges amount shares against
	// amount*price collateral.
	raw := b.amount.Value()
	var makerAmt, takerAmt decimal.Decimal
	switch {
	case b.side == types.Buy && b.amount.IsUSDC():
		shares := raw.Div(price).Truncate(places + types.LotSizeScale)
		takerAmt, makerAmt = shares, raw
	case b.side == types.Buy:
		notional := raw.Mul(price).Truncate(places + types.LotSizeScale)
		takerAmt, makerAmt = raw, notional
	default:
		notional := raw.Mul(price).Truncate(places + types.LotSizeScale)
		takerAmt, makerAmt = notional, raw
	}

	order := types.Order{
		Salt:          b.client.nextSalt(),
		Maker:         b.client.makerAddress(),
		Signer:        b.client.signer.Address(),
		Taker:         taker,
		TokenID:       token,
		MakerAmount:   toFixed(makerAmt),
		TakerAmount:   toFixed(takerAmt),
		Expiration:    big.NewInt(0),
		Nonce:         new(big.Int).SetUint64(b.nonce),
		FeeRateBps:    big.NewInt(int64(reqs.baseFee)),
		Side:          b.side,
		SignatureType: b.client.sigType,
	}
	return types.SignableOrder{Order: order, OrderType: orderType}, nil
}
