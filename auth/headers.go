package auth

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Venue authentication header names. The venue matches them byte for byte,
// so they bypass Go's MIME canonicalization when applied.
const (
	HeaderAddress    = "POLY_ADDRESS"
	HeaderAPIKey     = "POLY_API_KEY"
	HeaderNonce      = "POLY_NONCE"
	HeaderPassphrase = "POLY_PASSPHRASE"
	HeaderSignature  = "POLY_SIGNATURE"
	HeaderTimestamp  = "POLY_TIMESTAMP"
)

// Headers is a set of authentication headers keyed by exact wire name.
type Headers map[string]string

// Apply writes h onto the request without canonicalizing the key casing.
func (h Headers) Apply(r *http.Request) {
	if r.Header == nil {
		r.Header = make(http.Header, len(h))
	}
	for k, v := range h {
		r.Header[k] = []string{v}
	}
}

// Merge folds other into h, overwriting on collision.
func (h Headers) Merge(other Headers) {
	for k, v := range other {
		h[k] = v
	}
}

// L1Headers signs the wallet-control attestation and returns the headers
// that authorize credential creation and derivation.
func L1Headers(ctx context.Context, signer Signer, timestamp int64, nonce uint64) (Headers, error) {
	digest, err := ClobAuthDigest(signer.ChainID(), signer.Address(), timestamp, nonce)
	if err != nil {
		return nil, err
	}
	sig, err := signer.SignDigest(ctx, digest)
	if err != nil {
		return nil, err
	}
	return Headers{
		HeaderAddress:   strings.ToLower(signer.Address().Hex()),
		HeaderNonce:     strconv.FormatUint(nonce, 10),
		HeaderSignature: hexutil.Encode(sig),
		HeaderTimestamp: strconv.FormatInt(timestamp, 10),
	}, nil
}

// L2Headers signs method, path and body with the API secret and returns the
// headers that authorize private endpoints.
func L2Headers(address common.Address, creds Credentials, timestamp int64, method, path string, body []byte) (Headers, error) {
	sig, err := HMACSignature(creds.Secret, timestamp, method, path, body)
	if err != nil {
		return nil, err
	}
	return Headers{
		HeaderAddress:    strings.ToLower(address.Hex()),
		HeaderAPIKey:     creds.APIKey.String(),
		HeaderPassphrase: creds.Passphrase.Reveal(),
		HeaderSignature:  sig,
		HeaderTimestamp:  strconv.FormatInt(timestamp, 10),
	}, nil
}
