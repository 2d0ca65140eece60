package types

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

const (
	exchangeDomainName    = "Polymarket CTF Exchange"
	exchangeDomainVersion = "1"
)

// MaxSalt bounds order salts to integers a JSON reader can represent exactly
// as a float64.
const MaxSalt = uint64(1)<<53 - 1

var orderTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"Order": {
		{Name: "salt", Type: "uint256"},
		{Name: "maker", Type: "address"},
		{Name: "signer", Type: "address"},
		{Name: "taker", Type: "address"},
		{Name: "tokenId", Type: "uint256"},
		{Name: "makerAmount", Type: "uint256"},
		{Name: "takerAmount", Type: "uint256"},
		{Name: "expiration", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "feeRateBps", Type: "uint256"},
		{Name: "side", Type: "uint8"},
		{Name: "signatureType", Type: "uint8"},
	},
}

// Order is the struct the exchange contract hashes and verifies. Maker is the
// funding wallet, Signer the key that produces the signature; they differ when
// trading through a proxy or safe wallet.
type Order struct {
	Salt          uint64
	Maker         common.Address
	Signer        common.Address
	Taker         common.Address
	TokenID       *big.Int
	MakerAmount   *big.Int
	TakerAmount   *big.Int
	Expiration    *big.Int
	Nonce         *big.Int
	FeeRateBps    *big.Int
	Side          Side
	SignatureType SignatureType
}

// TypedData is the EIP-712 payload whose digest the order signature covers.
// The verifying contract is the regular or neg-risk exchange, depending on
// the market.
func (o *Order) TypedData(chainID int64, verifyingContract common.Address) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       orderTypes,
		PrimaryType: "Order",
		Domain: apitypes.TypedDataDomain{
			Name:              exchangeDomainName,
			Version:           exchangeDomainVersion,
			ChainId:           math.NewHexOrDecimal256(chainID),
			VerifyingContract: verifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"salt":          strconv.FormatUint(o.Salt, 10),
			"maker":         o.Maker.Hex(),
			"signer":        o.Signer.Hex(),
			"taker":         o.Taker.Hex(),
			"tokenId":       bigString(o.TokenID),
			"makerAmount":   bigString(o.MakerAmount),
			"takerAmount":   bigString(o.TakerAmount),
			"expiration":    bigString(o.Expiration),
			"nonce":         bigString(o.Nonce),
			"feeRateBps":    bigString(o.FeeRateBps),
			"side":          strconv.Itoa(int(o.Side)),
			"signatureType": strconv.Itoa(int(o.SignatureType)),
		},
	}
}

// SignableOrder pairs an order with the submission parameters that are not
// part of the signed struct.
type SignableOrder struct {
	Order     Order
	OrderType OrderType
	// PostOnly rejects the order instead of matching it on entry. Nil means
	// the flag is not sent at all.
	PostOnly *bool
}

// SignedOrder is a signable order plus its signature and the API key that
// owns it, ready for submission.
type SignedOrder struct {
	Order     Order
	Signature hexutil.Bytes
	OrderType OrderType
	Owner     uuid.UUID
	PostOnly  *bool
}

type wireOrder struct {
	Salt          uint64         `json:"salt"`
	Maker         common.Address `json:"maker"`
	Signer        common.Address `json:"signer"`
	Taker         common.Address `json:"taker"`
	TokenID       string         `json:"tokenId"`
	MakerAmount   string         `json:"makerAmount"`
	TakerAmount   string         `json:"takerAmount"`
	Expiration    string         `json:"expiration"`
	Nonce         string         `json:"nonce"`
	FeeRateBps    string         `json:"feeRateBps"`
	Side          Side           `json:"side"`
	SignatureType SignatureType  `json:"signatureType"`
	Signature     hexutil.Bytes  `json:"signature"`
}

type wireSignedOrder struct {
	Order     wireOrder `json:"order"`
	Owner     uuid.UUID `json:"owner"`
	OrderType OrderType `json:"orderType"`
	PostOnly  *bool     `json:"postOnly,omitempty"`
}

// MarshalJSON renders the submission shape the venue expects: the signature
// folded into the order object, uint256 fields as decimal strings and the
// salt as a bare number.
func (so SignedOrder) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireSignedOrder{
		Order: wireOrder{
			Salt:          so.Order.Salt,
			Maker:         so.Order.Maker,
			Signer:        so.Order.Signer,
			Taker:         so.Order.Taker,
			TokenID:       bigString(so.Order.TokenID),
			MakerAmount:   bigString(so.Order.MakerAmount),
			TakerAmount:   bigString(so.Order.TakerAmount),
			Expiration:    bigString(so.Order.Expiration),
			Nonce:         bigString(so.Order.Nonce),
			FeeRateBps:    bigString(so.Order.FeeRateBps),
			Side:          so.Order.Side,
			SignatureType: so.Order.SignatureType,
			Signature:     so.Signature,
		},
		Owner:     so.Owner,
		OrderType: so.OrderType,
		PostOnly:  so.PostOnly,
	})
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
