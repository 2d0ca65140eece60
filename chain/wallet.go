package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/soleret/polyclob/errs"
)

// WalletConfig holds the factory addresses used to derive deterministic
// smart-wallet addresses for an EOA. The proxy factory is not deployed on
// every chain.
type WalletConfig struct {
	ProxyFactory *common.Address
	SafeFactory  common.Address
}

var (
	proxyInitCodeHash = common.HexToHash("0xd21df8dc65880a8606f09fe0ce3df9b8869287ab0b058be05aa9e8af6330a00b")
	safeInitCodeHash  = common.HexToHash("0x2bce2127ff07fb632d16c8347c4ebf501f4841168bed00d9e6ef715ddb6fcecf")

	polygonProxyFactory = common.HexToAddress("0xaB45c5A4B0c941a2F231C04C3f49182e1A254052")
	safeFactory         = common.HexToAddress("0xaacFeEa03eb1561C4e67d661e40682Bd20E3541b")
)

var walletConfigs = map[ID]WalletConfig{
	Polygon: {ProxyFactory: &polygonProxyFactory, SafeFactory: safeFactory},
	Amoy:    {ProxyFactory: nil, SafeFactory: safeFactory},
}

// Wallets returns the wallet factory configuration for the chain.
func Wallets(id ID) (WalletConfig, error) {
	cfg, ok := walletConfigs[id]
	if !ok {
		return WalletConfig{}, errs.New("chain.Wallets", errs.CodeChain,
			errs.WithMessage(fmt.Sprintf("no wallet config for chain %d", id)),
			errs.WithCause(ErrUnsupportedChain),
		)
	}
	return cfg, nil
}

// DeriveProxyWallet computes the deterministic 1271 proxy wallet address
// deployed for the EOA. Pure: the same inputs always yield the same address.
func DeriveProxyWallet(eoa common.Address, id ID) (common.Address, error) {
	cfg, err := Wallets(id)
	if err != nil {
		return common.Address{}, err
	}
	if cfg.ProxyFactory == nil {
		return common.Address{}, errs.New("chain.DeriveProxyWallet", errs.CodeChain,
			errs.WithMessage(fmt.Sprintf("chain %d has no proxy wallet factory", id)),
			errs.WithCause(ErrUnsupportedChain),
		)
	}
	salt := crypto.Keccak256Hash(eoa.Bytes())
	return crypto.CreateAddress2(*cfg.ProxyFactory, salt, proxyInitCodeHash.Bytes()), nil
}

// DeriveSafeWallet computes the deterministic Gnosis Safe address deployed
// for the EOA. The factory salts with the 32-byte left-padded EOA.
func DeriveSafeWallet(eoa common.Address, id ID) (common.Address, error) {
	cfg, err := Wallets(id)
	if err != nil {
		return common.Address{}, err
	}
	salt := crypto.Keccak256Hash(common.LeftPadBytes(eoa.Bytes(), 32))
	return crypto.CreateAddress2(cfg.SafeFactory, salt, safeInitCodeHash.Bytes()), nil
}
