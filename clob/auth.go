package clob

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/soleret/polyclob/auth"
	"github.com/soleret/polyclob/chain"
	"github.com/soleret/polyclob/clob/types"
	"github.com/soleret/polyclob/errs"
	"github.com/soleret/polyclob/observability"
)

// AuthBuilder configures the credential exchange that elevates a Client
// into an AuthenticatedClient. Obtain one with Client.Auth, chain the
// optional setters, then call Authenticate.
type AuthBuilder struct {
	client  *Client
	signer  auth.Signer
	creds   *auth.Credentials
	nonce   *uint64
	funder  *common.Address
	sigType types.SignatureType
	saltGen func() uint64
}

// Auth starts the authentication flow with the given signing capability.
func (c *Client) Auth(signer auth.Signer) *AuthBuilder {
	return &AuthBuilder{client: c, signer: signer, sigType: types.EOA}
}

// Nonce sets the key nonce used when creating or deriving credentials.
// Mutually exclusive with Credentials.
func (b *AuthBuilder) Nonce(nonce uint64) *AuthBuilder {
	b.nonce = &nonce
	return b
}

// Credentials supplies previously issued credentials, skipping the
// create-or-derive round trip. Mutually exclusive with Nonce.
func (b *AuthBuilder) Credentials(creds auth.Credentials) *AuthBuilder {
	b.creds = &creds
	return b
}

// Funder sets the address that holds collateral for orders. Required only
// when it differs from the derived smart wallet.
func (b *AuthBuilder) Funder(funder common.Address) *AuthBuilder {
	b.funder = &funder
	return b
}

// SignatureType declares how the venue should verify order signatures.
// Defaults to EOA.
func (b *AuthBuilder) SignatureType(sigType types.SignatureType) *AuthBuilder {
	b.sigType = sigType
	return b
}

// SaltGenerator overrides the order salt source. Intended for deterministic
// tests; the default draws a masked random salt per build.
func (b *AuthBuilder) SaltGenerator(gen func() uint64) *AuthBuilder {
	b.saltGen = gen
	return b
}

// Authenticate validates the builder, obtains credentials when none were
// supplied, and returns the authenticated client. On failure the underlying
// Client is untouched and remains usable.
func (b *AuthBuilder) Authenticate(ctx context.Context) (*AuthenticatedClient, error) {
	const op = "clob.authenticate"

	if b.signer == nil {
		return nil, errs.Validation(op, "signer is required")
	}

	id := b.signer.ChainID()
	if id != chain.Polygon && id != chain.Amoy {
		return nil, errs.New(op, errs.CodeChain,
			errs.WithMessage(fmt.Sprintf("only Polygon and Amoy are supported, got %d", id)),
			errs.WithCause(chain.ErrUnsupportedChain))
	}

	funder, err := b.resolveFunder(op, id)
	if err != nil {
		return nil, err
	}

	creds, err := b.resolveCredentials(ctx, op)
	if err != nil {
		return nil, err
	}

	saltGen := b.saltGen
	if saltGen == nil {
		saltGen = generateSeed
	}

	ac := &AuthenticatedClient{
		Client:  b.client,
		signer:  b.signer,
		creds:   creds,
		funder:  funder,
		sigType: b.sigType,
		saltGen: saltGen,
	}
	if b.client.heartbeat > 0 {
		ac.startHeartbeat()
	}
	return ac, nil
}

func (b *AuthBuilder) resolveFunder(op string, id chain.ID) (common.Address, error) {
	if b.funder == nil {
		switch b.sigType {
		case types.Proxy:
			derived, err := chain.DeriveProxyWallet(b.signer.Address(), id)
			if err != nil {
				return common.Address{}, errs.New(op, errs.CodeValidation,
					errs.WithMessage("proxy wallet derivation unavailable; set an explicit funder"),
					errs.WithCause(err))
			}
			return derived, nil
		case types.GnosisSafe:
			derived, err := chain.DeriveSafeWallet(b.signer.Address(), id)
			if err != nil {
				return common.Address{}, errs.New(op, errs.CodeValidation,
					errs.WithMessage("safe wallet derivation unavailable; set an explicit funder"),
					errs.WithCause(err))
			}
			return derived, nil
		default:
			return common.Address{}, nil
		}
	}

	if b.sigType == types.EOA {
		return common.Address{}, errs.Validation(op,
			"cannot set a funder address with an EOA signature type")
	}
	if *b.funder == (common.Address{}) {
		return common.Address{}, errs.Validation(op,
			"cannot set a zero funder address with a "+b.sigType.String()+" signature type")
	}
	return *b.funder, nil
}

func (b *AuthBuilder) resolveCredentials(ctx context.Context, op string) (auth.Credentials, error) {
	if b.creds != nil {
		if b.nonce != nil {
			return auth.Credentials{}, errs.Validation(op,
				"credentials and nonce are both set; drop one of them")
		}
		return *b.creds, nil
	}
	var nonce uint64
	if b.nonce != nil {
		nonce = *b.nonce
	}
	return b.client.createOrDeriveAPIKey(ctx, b.signer, nonce)
}

// createOrDeriveAPIKey tries to mint fresh credentials and falls back to
// deriving the existing set when the venue rejects the create.
func (c *Client) createOrDeriveAPIKey(ctx context.Context, signer auth.Signer, nonce uint64) (auth.Credentials, error) {
	creds, err := c.createAPIKey(ctx, signer, nonce)
	if err == nil {
		return creds, nil
	}
	observability.Log().Debug("api key create failed, deriving instead",
		observability.F("error", err.Error()))
	return c.deriveAPIKey(ctx, signer, nonce)
}

func (c *Client) createAPIKey(ctx context.Context, signer auth.Signer, nonce uint64) (auth.Credentials, error) {
	const op = "clob.create_api_key"
	headers, err := c.l1Headers(ctx, op, signer, nonce)
	if err != nil {
		return auth.Credentials{}, err
	}
	var creds auth.Credentials
	err = c.do(ctx, op, request{
		method: http.MethodPost, path: "/auth/api-key", headers: headers, out: &creds,
	})
	return creds, err
}

func (c *Client) deriveAPIKey(ctx context.Context, signer auth.Signer, nonce uint64) (auth.Credentials, error) {
	const op = "clob.derive_api_key"
	headers, err := c.l1Headers(ctx, op, signer, nonce)
	if err != nil {
		return auth.Credentials{}, err
	}
	var creds auth.Credentials
	err = c.do(ctx, op, request{
		method: http.MethodGet, path: "/auth/derive-api-key", headers: headers, out: &creds,
	})
	return creds, err
}

func (c *Client) l1Headers(ctx context.Context, op string, signer auth.Signer, nonce uint64) (auth.Headers, error) {
	ts, err := c.timestamp(ctx)
	if err != nil {
		return nil, err
	}
	headers, err := auth.L1Headers(ctx, signer, ts, nonce)
	if err != nil {
		return nil, errs.New(op, errs.CodeAuth,
			errs.WithMessage("sign attestation"), errs.WithCause(err))
	}
	return headers, nil
}

// AuthenticatedClient extends Client with the venue's private surface. It
// owns the credentials issued during Authenticate; Deauthenticate destroys
// them along with the client.
type AuthenticatedClient struct {
	*Client

	signer  auth.Signer
	creds   auth.Credentials
	funder  common.Address
	sigType types.SignatureType
	saltGen func() uint64

	// builderSrc is set on promoted clients and folds builder headers into
	// every private request.
	builderSrc auth.BuilderSource

	hb *heartbeatMonitor
}

// Address returns the signing address this client authenticated with.
func (ac *AuthenticatedClient) Address() common.Address {
	return ac.signer.Address()
}

// Deauthenticate stops the heartbeat loop, zeroes the held credentials and
// hands back the public client. The receiver must not be used afterwards.
func (ac *AuthenticatedClient) Deauthenticate() *Client {
	if ac.hb != nil {
		ac.hb.stop()
		ac.hb = nil
	}
	ac.creds.Secret.Zero()
	ac.creds.Passphrase.Zero()
	ac.creds = auth.Credentials{}
	ac.signer = nil
	ac.saltGen = nil
	ac.builderSrc = nil
	c := ac.Client
	ac.Client = nil
	return c
}

// authHeaders assembles the L2 header set for a private request, merging
// builder headers when this client was promoted. The same timestamp covers
// both signatures.
func (ac *AuthenticatedClient) authHeaders(ctx context.Context, method, path string, body []byte) (auth.Headers, error) {
	const op = "clob.auth_headers"

	ts, err := ac.timestamp(ctx)
	if err != nil {
		return nil, err
	}
	headers, err := auth.L2Headers(ac.signer.Address(), ac.creds, ts, method, path, body)
	if err != nil {
		return nil, errs.New(op, errs.CodeAuth,
			errs.WithMessage("sign request"), errs.WithCause(err))
	}
	if ac.builderSrc != nil {
		extra, err := ac.builderSrc.Headers(ctx, ts, method, path, body)
		if err != nil {
			return nil, err
		}
		headers.Merge(extra)
	}
	return headers, nil
}

// doAuth sends a private request with freshly signed headers.
func (ac *AuthenticatedClient) doAuth(ctx context.Context, op string, r request) error {
	headers, err := ac.authHeaders(ctx, r.method, r.path, r.body)
	if err != nil {
		return err
	}
	r.headers = headers
	return ac.do(ctx, op, r)
}
