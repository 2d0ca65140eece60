package auth

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	json "github.com/goccy/go-json"

	"github.com/soleret/polyclob/chain"
	"github.com/soleret/polyclob/config"
	"github.com/soleret/polyclob/errs"
)

// Signer produces Ethereum signatures over 32-byte digests. Implementations
// must return the 65-byte r||s||v form with v in {27, 28}.
type Signer interface {
	Address() common.Address
	ChainID() chain.ID
	SignDigest(ctx context.Context, digest common.Hash) ([]byte, error)
}

// LocalSigner signs with an in-process secp256k1 key.
type LocalSigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID chain.ID
}

// NewLocalSigner parses a hex private key, with or without the 0x prefix.
func NewLocalSigner(hexKey string, id chain.ID) (*LocalSigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, errs.New("auth.signer", errs.CodeSigning,
			errs.WithMessage("parse private key"), errs.WithCause(err))
	}
	return &LocalSigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: id,
	}, nil
}

// NewLocalSignerFromEnv builds a signer from the key in the environment,
// typically loaded beforehand via config.LoadDotEnv.
func NewLocalSignerFromEnv(id chain.ID) (*LocalSigner, error) {
	raw := os.Getenv(config.PrivateKeyVar)
	if raw == "" {
		return nil, errs.Validation("auth.signer", config.PrivateKeyVar+" is not set")
	}
	return NewLocalSigner(raw, id)
}

func (s *LocalSigner) Address() common.Address {
	return s.address
}

func (s *LocalSigner) ChainID() chain.ID {
	return s.chainID
}

func (s *LocalSigner) SignDigest(_ context.Context, digest common.Hash) ([]byte, error) {
	sig, err := crypto.Sign(digest[:], s.key)
	if err != nil {
		return nil, errs.New("auth.signer", errs.CodeSigning,
			errs.WithMessage("sign digest"), errs.WithCause(err))
	}
	sig[64] += 27
	return sig, nil
}

const defaultSignTimeout = 10 * time.Second

// RemoteSigner delegates digest signing to an HTTP service holding the key,
// for setups where private keys never enter this process.
type RemoteSigner struct {
	host    string
	token   string
	address common.Address
	chainID chain.ID
	client  *http.Client
}

// RemoteSignerOption adjusts a RemoteSigner.
type RemoteSignerOption func(*RemoteSigner)

// WithSignerToken sends token as a bearer credential on every signing call.
func WithSignerToken(token string) RemoteSignerOption {
	return func(s *RemoteSigner) { s.token = token }
}

// WithSignerHTTPClient overrides the HTTP client used for signing calls.
func WithSignerHTTPClient(c *http.Client) RemoteSignerOption {
	return func(s *RemoteSigner) { s.client = c }
}

// NewRemoteSigner targets a signing service at host. The address must be the
// one whose key the service holds; signatures are verified against it before
// use.
func NewRemoteSigner(host string, address common.Address, id chain.ID, opts ...RemoteSignerOption) *RemoteSigner {
	s := &RemoteSigner{
		host:    strings.TrimRight(host, "/"),
		address: address,
		chainID: id,
		client:  &http.Client{Timeout: defaultSignTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RemoteSigner) Address() common.Address {
	return s.address
}

func (s *RemoteSigner) ChainID() chain.ID {
	return s.chainID
}

func (s *RemoteSigner) SignDigest(ctx context.Context, digest common.Hash) ([]byte, error) {
	const op = "auth.remote_signer"

	payload, err := json.Marshal(map[string]string{
		"address": strings.ToLower(s.address.Hex()),
		"digest":  digest.Hex(),
	})
	if err != nil {
		return nil, errs.New(op, errs.CodeInternal, errs.WithCause(err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.host, bytes.NewReader(payload))
	if err != nil {
		return nil, errs.New(op, errs.CodeInternal, errs.WithCause(err))
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errs.New(op, errs.CodeNetwork,
			errs.WithMessage("signing service unreachable"), errs.WithCause(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, errs.New(op, errs.CodeSigning,
			errs.WithMessage("signing service rejected request"),
			errs.WithHTTP(resp.StatusCode),
			errs.WithVenueMessage(strings.TrimSpace(string(body))))
	}

	var out struct {
		Signature string `json:"signature"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errs.New(op, errs.CodeSigning,
			errs.WithMessage("decode signing response"), errs.WithCause(err))
	}

	sig, err := hexutil.Decode(out.Signature)
	if err != nil {
		return nil, errs.New(op, errs.CodeSigning,
			errs.WithMessage("signature is not valid hex"), errs.WithCause(err))
	}
	if len(sig) != 65 {
		return nil, errs.New(op, errs.CodeSigning,
			errs.WithMessage("signature must be 65 bytes"))
	}
	if sig[64] < 27 {
		sig[64] += 27
	}
	return sig, nil
}
