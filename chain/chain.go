// Package chain holds the supported chain registry: exchange contract
// deployments per chain and the factory parameters for deterministic
// smart-wallet derivation.
package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/soleret/polyclob/errs"
)

// ID identifies a supported chain.
type ID int64

const (
	// Polygon is the production chain.
	Polygon ID = 137
	// Amoy is the Polygon test chain.
	Amoy ID = 80002
)

// ErrUnsupportedChain reports a chain without a known deployment.
var ErrUnsupportedChain = errs.New("chain", errs.CodeChain, errs.WithMessage("unsupported chain"))

// ContractConfig names the venue contract deployment used for signing and
// settlement on a given chain.
type ContractConfig struct {
	Exchange          common.Address
	Collateral        common.Address
	ConditionalTokens common.Address
}

var contractConfigs = map[ID]map[bool]ContractConfig{
	Polygon: {
		false: {
			Exchange:          common.HexToAddress("0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"),
			Collateral:        common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"),
			ConditionalTokens: common.HexToAddress("0x4D97DCd97eC945f40cF65F87097ACe5EA0476045"),
		},
		true: {
			Exchange:          common.HexToAddress("0xC5d563A36AE78145C45a50134d48A1215220f80a"),
			Collateral:        common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"),
			ConditionalTokens: common.HexToAddress("0x4D97DCd97eC945f40cF65F87097ACe5EA0476045"),
		},
	},
	Amoy: {
		false: {
			Exchange:          common.HexToAddress("0xdFE02Eb6733538f8Ea35D585af8DE5958AD99E40"),
			Collateral:        common.HexToAddress("0x9c4e1703476e875070ee25b56a58b008cfb8fa78"),
			ConditionalTokens: common.HexToAddress("0x69308FB512518e39F9b16112fA8d994F4e2Bf8bB"),
		},
		true: {
			Exchange:          common.HexToAddress("0xd91E80cF2E7be2e162c6513ceD06f1dD0dA35296"),
			Collateral:        common.HexToAddress("0x9c4e1703476e875070ee25b56a58b008cfb8fa78"),
			ConditionalTokens: common.HexToAddress("0x69308FB512518e39F9b16112fA8d994F4e2Bf8bB"),
		},
	},
}

// Contracts returns the contract deployment for the chain. The neg-risk flag
// selects the neg-risk exchange used by multi-outcome markets.
func Contracts(id ID, negRisk bool) (ContractConfig, error) {
	byRisk, ok := contractConfigs[id]
	if !ok {
		return ContractConfig{}, errs.New("chain.Contracts", errs.CodeChain,
			errs.WithMessage(fmt.Sprintf("no contract config for chain %d (neg_risk=%t)", id, negRisk)),
			errs.WithCause(ErrUnsupportedChain),
		)
	}
	cfg, ok := byRisk[negRisk]
	if !ok {
		return ContractConfig{}, errs.New("chain.Contracts", errs.CodeChain,
			errs.WithMessage(fmt.Sprintf("no contract config for chain %d (neg_risk=%t)", id, negRisk)),
			errs.WithCause(ErrUnsupportedChain),
		)
	}
	return cfg, nil
}

// Supported reports whether the chain has a known deployment.
func Supported(id ID) bool {
	_, ok := contractConfigs[id]
	return ok
}
