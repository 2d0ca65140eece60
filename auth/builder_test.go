package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/soleret/polyclob/chain"
	"github.com/soleret/polyclob/errs"
)

func testBuilderCredentials() Credentials {
	return Credentials{
		APIKey:     uuid.Nil,
		Secret:     NewSecret(testSecret),
		Passphrase: NewSecret(testPassphrase),
	}
}

func TestLocalBuilderHeaders(t *testing.T) {
	b := NewLocalBuilder(testBuilderCredentials())

	headers, err := b.Headers(context.Background(), 1, "GET", "/", nil)
	if err != nil {
		t.Fatalf("Headers: %v", err)
	}

	want := Headers{
		HeaderBuilderAPIKey:     "00000000-0000-0000-0000-000000000000",
		HeaderBuilderPassphrase: testPassphrase,
		HeaderBuilderSignature:  "eHaylCwqRSOa2LFD77Nt_SaTpbsxzN8eTEI3LryhEj4=",
		HeaderBuilderTimestamp:  "1",
	}
	for k, v := range want {
		if headers[k] != v {
			t.Errorf("%s = %q, want %q", k, headers[k], v)
		}
	}
	if len(headers) != len(want) {
		t.Errorf("header count = %d, want %d", len(headers), len(want))
	}
}

func TestRemoteBuilderHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tkn" {
			t.Errorf("Authorization = %q", got)
		}
		raw, _ := io.ReadAll(r.Body)
		var payload struct {
			Method    string `json:"method"`
			Path      string `json:"path"`
			Body      string `json:"body"`
			Timestamp int64  `json:"timestamp"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload.Method != "POST" || payload.Path != "/order" || payload.Timestamp != 42 {
			t.Errorf("payload = %+v", payload)
		}
		if payload.Body != `{"k":"v"}` {
			t.Errorf("body = %q", payload.Body)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"POLY_BUILDER_API_KEY": "00000000-0000-0000-0000-000000000000",
			"POLY_BUILDER_PASSPHRASE": "remote-pass",
			"POLY_BUILDER_SIGNATURE": "remote-sig",
			"POLY_BUILDER_TIMESTAMP": "42"
		}`))
	}))
	defer srv.Close()

	b := NewRemoteBuilder(srv.URL, WithBuilderToken("tkn"))
	headers, err := b.Headers(context.Background(), 42, "POST", "/order", []byte(`{'k':'v'}`))
	if err != nil {
		t.Fatalf("Headers: %v", err)
	}

	if headers[HeaderBuilderSignature] != "remote-sig" {
		t.Errorf("signature = %q", headers[HeaderBuilderSignature])
	}
	if headers[HeaderBuilderPassphrase] != "remote-pass" {
		t.Errorf("passphrase = %q", headers[HeaderBuilderPassphrase])
	}
	if headers[HeaderBuilderTimestamp] != "42" {
		t.Errorf("timestamp = %q", headers[HeaderBuilderTimestamp])
	}
}

func TestRemoteBuilderRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such builder", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewRemoteBuilder(srv.URL).Headers(context.Background(), 1, "GET", "/", nil)
	if !errs.IsCode(err, errs.CodeAuth) {
		t.Fatalf("error code = %v, want %v", errs.CodeOf(err), errs.CodeAuth)
	}
}

func TestRemoteSigner(t *testing.T) {
	local := testSigner(t, chain.Polygon)
	digest, err := ClobAuthDigest(chain.Polygon, local.Address(), 100_000, 0)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	want, err := local.SignDigest(context.Background(), digest)
	if err != nil {
		t.Fatalf("local sign: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Address string `json:"address"`
			Digest  string `json:"digest"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload.Address != testAddress {
			t.Errorf("address = %q", payload.Address)
		}
		if payload.Digest != digest.Hex() {
			t.Errorf("digest = %q", payload.Digest)
		}
		// Answer with the signature the local key would produce.
		sig, err := local.SignDigest(r.Context(), digest)
		if err != nil {
			t.Errorf("server sign: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"signature": hexutil.Encode(sig)})
	}))
	defer srv.Close()

	remote := NewRemoteSigner(srv.URL, local.Address(), chain.Polygon)
	got, err := remote.SignDigest(context.Background(), digest)
	if err != nil {
		t.Fatalf("remote sign: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("remote signature diverges from local")
	}
}

func TestRemoteSignerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "key not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	remote := NewRemoteSigner(srv.URL, common.Address{}, chain.Polygon)
	_, err := remote.SignDigest(context.Background(), common.Hash{})
	if !errs.IsCode(err, errs.CodeSigning) {
		t.Fatalf("error code = %v, want %v", errs.CodeOf(err), errs.CodeSigning)
	}

	srv.Close()
	_, err = remote.SignDigest(context.Background(), common.Hash{})
	if !errs.IsCode(err, errs.CodeNetwork) {
		t.Fatalf("error code after close = %v, want %v", errs.CodeOf(err), errs.CodeNetwork)
	}
}
