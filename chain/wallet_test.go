package chain

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

// Address of the first well-known anvil development key.
var testEOA = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

func TestDeriveSafeWalletMatchesDeployedAddress(t *testing.T) {
	want := common.HexToAddress("0xd93b25Cb943D14d0d34FBAf01fc93a0F8b5f6e47")
	for _, id := range []ID{Polygon, Amoy} {
		got, err := DeriveSafeWallet(testEOA, id)
		if err != nil {
			t.Fatalf("derive safe wallet on chain %d: %v", id, err)
		}
		if got != want {
			t.Fatalf("chain %d: expected safe wallet %s, got %s", id, want, got)
		}
	}
}

func TestDeriveProxyWalletMatchesDeployedAddress(t *testing.T) {
	want := common.HexToAddress("0x365f0cA36ae1F641E02Fe3b7743673DA42A13a70")
	got, err := DeriveProxyWallet(testEOA, Polygon)
	if err != nil {
		t.Fatalf("derive proxy wallet: %v", err)
	}
	if got != want {
		t.Fatalf("expected proxy wallet %s, got %s", want, got)
	}
}

func TestDeriveProxyWalletUnavailableOnAmoy(t *testing.T) {
	if _, err := DeriveProxyWallet(testEOA, Amoy); !errors.Is(err, ErrUnsupportedChain) {
		t.Fatalf("expected unsupported chain error, got %v", err)
	}
}

func TestDerivationIsPureAndCollisionFree(t *testing.T) {
	first, err := DeriveSafeWallet(testEOA, Polygon)
	if err != nil {
		t.Fatalf("derive safe wallet: %v", err)
	}
	second, err := DeriveSafeWallet(testEOA, Polygon)
	if err != nil {
		t.Fatalf("derive safe wallet again: %v", err)
	}
	if first != second {
		t.Fatalf("derivation must be deterministic: %s vs %s", first, second)
	}

	other := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	otherWallet, err := DeriveSafeWallet(other, Polygon)
	if err != nil {
		t.Fatalf("derive safe wallet for second eoa: %v", err)
	}
	if otherWallet == first {
		t.Fatalf("distinct EOAs must derive distinct wallets, both got %s", first)
	}

	proxy, err := DeriveProxyWallet(testEOA, Polygon)
	if err != nil {
		t.Fatalf("derive proxy wallet: %v", err)
	}
	if proxy == first {
		t.Fatalf("proxy and safe schemes must not collide, both got %s", proxy)
	}
}

func TestUnsupportedChainEverywhere(t *testing.T) {
	const mainnet ID = 1
	if Supported(mainnet) {
		t.Fatal("mainnet must not be supported")
	}
	if _, err := Contracts(mainnet, false); !errors.Is(err, ErrUnsupportedChain) {
		t.Fatalf("expected unsupported chain from Contracts, got %v", err)
	}
	if _, err := DeriveSafeWallet(testEOA, mainnet); !errors.Is(err, ErrUnsupportedChain) {
		t.Fatalf("expected unsupported chain from DeriveSafeWallet, got %v", err)
	}
}

func TestContractsSelectsNegRiskExchange(t *testing.T) {
	std, err := Contracts(Polygon, false)
	if err != nil {
		t.Fatalf("contracts: %v", err)
	}
	neg, err := Contracts(Polygon, true)
	if err != nil {
		t.Fatalf("neg-risk contracts: %v", err)
	}
	if std.Exchange != common.HexToAddress("0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E") {
		t.Fatalf("unexpected exchange %s", std.Exchange)
	}
	if neg.Exchange != common.HexToAddress("0xC5d563A36AE78145C45a50134d48A1215220f80a") {
		t.Fatalf("unexpected neg-risk exchange %s", neg.Exchange)
	}
	if std.Collateral != neg.Collateral {
		t.Fatal("collateral should not vary with neg-risk")
	}
}
