package clob

import (
	"context"

	"github.com/soleret/polyclob/auth"
	"github.com/soleret/polyclob/chain"
	"github.com/soleret/polyclob/clob/types"
	"github.com/soleret/polyclob/errs"
)

// Sign produces the EIP-712 signature over a built order. The verifying
// contract depends on whether the order's market is negative-risk, so that
// flag is fetched (and cached) before hashing.
func (ac *AuthenticatedClient) Sign(ctx context.Context, so types.SignableOrder) (types.SignedOrder, error) {
	const op = "clob.sign"

	if got := ac.signer.Address(); got != so.Order.Signer {
		return types.SignedOrder{}, errs.New(op, errs.CodeSigning, errs.WithMessage(
			"order signer "+so.Order.Signer.Hex()+" does not match the authenticated signer "+got.Hex()))
	}

	negRisk, err := ac.NegRisk(ctx, so.Order.TokenID.String())
	if err != nil {
		return types.SignedOrder{}, err
	}
	contracts, err := chain.Contracts(ac.signer.ChainID(), negRisk.NegRisk)
	if err != nil {
		return types.SignedOrder{}, errs.New(op, errs.CodeChain, errs.WithCause(err))
	}

	digest, err := auth.TypedDataDigest(so.Order.TypedData(int64(ac.signer.ChainID()), contracts.Exchange))
	if err != nil {
		return types.SignedOrder{}, errs.New(op, errs.CodeSigning,
			errs.WithMessage("hash order"), errs.WithCause(err))
	}
	sig, err := ac.signer.SignDigest(ctx, digest)
	if err != nil {
		return types.SignedOrder{}, errs.New(op, errs.CodeSigning,
			errs.WithMessage("sign order"), errs.WithCause(err))
	}

	return types.SignedOrder{
		Order:     so.Order,
		Signature: sig,
		OrderType: so.OrderType,
		Owner:     ac.creds.APIKey,
		PostOnly:  so.PostOnly,
	}, nil
}
