package auth

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/soleret/polyclob/chain"
	"github.com/soleret/polyclob/errs"
)

// AttestationMessage is the fixed human-readable statement signed when
// deriving or creating API credentials.
const AttestationMessage = "This message attests that I control the given wallet"

// TypedDataDigest computes the EIP-712 signing hash for td:
// keccak256(0x1901 || domainSeparator || hashStruct(message)).
func TypedDataDigest(td apitypes.TypedData) (common.Hash, error) {
	domainSep, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return common.Hash{}, errs.New("auth.eip712", errs.CodeSigning,
			errs.WithMessage("hash domain"), errs.WithCause(err))
	}
	structHash, err := td.HashStruct(td.PrimaryType, td.Message)
	if err != nil {
		return common.Hash{}, errs.New("auth.eip712", errs.CodeSigning,
			errs.WithMessage("hash "+td.PrimaryType), errs.WithCause(err))
	}
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, domainSep, structHash), nil
}

// ClobAuthDigest is the signing hash of the wallet-control attestation bound
// to address, timestamp and nonce. The domain carries no verifying contract;
// the attestation never touches the chain.
func ClobAuthDigest(id chain.ID, address common.Address, timestamp int64, nonce uint64) (common.Hash, error) {
	td := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
			},
			"ClobAuth": {
				{Name: "address", Type: "address"},
				{Name: "timestamp", Type: "string"},
				{Name: "nonce", Type: "uint256"},
				{Name: "message", Type: "string"},
			},
		},
		PrimaryType: "ClobAuth",
		Domain: apitypes.TypedDataDomain{
			Name:    "ClobAuthDomain",
			Version: "1",
			ChainId: math.NewHexOrDecimal256(int64(id)),
		},
		Message: apitypes.TypedDataMessage{
			"address":   address.Hex(),
			"timestamp": strconv.FormatInt(timestamp, 10),
			"nonce":     strconv.FormatUint(nonce, 10),
			"message":   AttestationMessage,
		},
	}
	return TypedDataDigest(td)
}
