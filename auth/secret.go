// Package auth implements the credential types and request signing used by
// the venue: EIP-712 wallet attestations (L1), HMAC API-key signatures (L2),
// and the builder header flow.
package auth

import (
	"fmt"
	"io"

	json "github.com/goccy/go-json"

	"github.com/soleret/polyclob/errs"
)

const redacted = "[redacted]"

// Secret wraps sensitive credential material. Every display path renders
// "[redacted]"; callers that genuinely need the cleartext must go through
// Reveal.
type Secret struct {
	v string
}

// NewSecret wraps v.
func NewSecret(v string) Secret {
	return Secret{v: v}
}

// Reveal returns the wrapped cleartext.
func (s Secret) Reveal() string {
	return s.v
}

// Zero discards the wrapped value.
func (s *Secret) Zero() {
	s.v = ""
}

// IsZero reports whether no value is held.
func (s Secret) IsZero() bool {
	return s.v == ""
}

// Format renders the redaction marker for every fmt verb, including %#v.
func (s Secret) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, redacted)
}

func (s Secret) String() string {
	return redacted
}

func (s Secret) GoString() string {
	return redacted
}

// MarshalJSON always fails: secrets never travel through generic
// serialization. Wire payloads that require the cleartext build their own
// structs from Reveal.
func (Secret) MarshalJSON() ([]byte, error) {
	return nil, errs.New("auth.secret", errs.CodeValidation,
		errs.WithMessage("secret values cannot be serialized"))
}

func (s *Secret) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return errs.New("auth.secret", errs.CodeValidation,
			errs.WithMessage("secret must be a JSON string"), errs.WithCause(err))
	}
	s.v = v
	return nil
}
