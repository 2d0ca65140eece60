package auth

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/soleret/polyclob/errs"
)

// Builder header names, attached alongside the L2 set when submitting orders
// on behalf of a builder program.
const (
	HeaderBuilderAPIKey     = "POLY_BUILDER_API_KEY"
	HeaderBuilderPassphrase = "POLY_BUILDER_PASSPHRASE"
	HeaderBuilderSignature  = "POLY_BUILDER_SIGNATURE"
	HeaderBuilderTimestamp  = "POLY_BUILDER_TIMESTAMP"
)

// BuilderSource produces builder headers for a request about to be sent.
type BuilderSource interface {
	Headers(ctx context.Context, timestamp int64, method, path string, body []byte) (Headers, error)
}

// LocalBuilder signs builder headers with locally held builder credentials.
type LocalBuilder struct {
	creds Credentials
}

func NewLocalBuilder(creds Credentials) *LocalBuilder {
	return &LocalBuilder{creds: creds}
}

func (b *LocalBuilder) Headers(_ context.Context, timestamp int64, method, path string, body []byte) (Headers, error) {
	sig, err := HMACSignature(b.creds.Secret, timestamp, method, path, body)
	if err != nil {
		return nil, err
	}
	return Headers{
		HeaderBuilderAPIKey:     b.creds.APIKey.String(),
		HeaderBuilderPassphrase: b.creds.Passphrase.Reveal(),
		HeaderBuilderSignature:  sig,
		HeaderBuilderTimestamp:  strconv.FormatInt(timestamp, 10),
	}, nil
}

const defaultBuilderTimeout = 10 * time.Second

// RemoteBuilder fetches builder headers from a signing service, so builder
// credentials never reach this process.
type RemoteBuilder struct {
	host   string
	token  string
	client *http.Client
}

// RemoteBuilderOption adjusts a RemoteBuilder.
type RemoteBuilderOption func(*RemoteBuilder)

// WithBuilderToken sends token as a bearer credential on every call.
func WithBuilderToken(token string) RemoteBuilderOption {
	return func(b *RemoteBuilder) { b.token = token }
}

// WithBuilderHTTPClient overrides the HTTP client used for header calls.
func WithBuilderHTTPClient(c *http.Client) RemoteBuilderOption {
	return func(b *RemoteBuilder) { b.client = c }
}

func NewRemoteBuilder(host string, opts ...RemoteBuilderOption) *RemoteBuilder {
	b := &RemoteBuilder{
		host:   host,
		client: &http.Client{Timeout: defaultBuilderTimeout},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *RemoteBuilder) Headers(ctx context.Context, timestamp int64, method, path string, body []byte) (Headers, error) {
	const op = "auth.remote_builder"

	payload, err := json.Marshal(map[string]any{
		"method":    method,
		"path":      path,
		"body":      normalizeBody(body),
		"timestamp": timestamp,
	})
	if err != nil {
		return nil, errs.New(op, errs.CodeInternal, errs.WithCause(err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.host, bytes.NewReader(payload))
	if err != nil {
		return nil, errs.New(op, errs.CodeInternal, errs.WithCause(err))
	}
	req.Header.Set("Content-Type", "application/json")
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, errs.New(op, errs.CodeNetwork,
			errs.WithMessage("builder signing service unreachable"), errs.WithCause(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, errs.New(op, errs.CodeAuth,
			errs.WithMessage("builder signing service rejected request"),
			errs.WithHTTP(resp.StatusCode),
			errs.WithVenueMessage(strings.TrimSpace(string(raw))))
	}

	var out struct {
		APIKey     string `json:"POLY_BUILDER_API_KEY"`
		Passphrase string `json:"POLY_BUILDER_PASSPHRASE"`
		Signature  string `json:"POLY_BUILDER_SIGNATURE"`
		Timestamp  string `json:"POLY_BUILDER_TIMESTAMP"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errs.New(op, errs.CodeAuth,
			errs.WithMessage("decode builder headers"), errs.WithCause(err))
	}

	return Headers{
		HeaderBuilderAPIKey:     out.APIKey,
		HeaderBuilderPassphrase: out.Passphrase,
		HeaderBuilderSignature:  out.Signature,
		HeaderBuilderTimestamp:  out.Timestamp,
	}, nil
}
