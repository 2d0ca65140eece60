package auth

import (
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Credentials are the API-key triple issued by the venue. The key doubles as
// the order owner id on submission; secret and passphrase stay wrapped until
// a signing or header path reveals them.
type Credentials struct {
	APIKey     uuid.UUID `json:"apiKey"`
	Secret     Secret    `json:"secret"`
	Passphrase Secret    `json:"passphrase"`
}

// Valid reports whether all three parts are present.
func (c Credentials) Valid() bool {
	return c.APIKey != uuid.Nil && !c.Secret.IsZero() && !c.Passphrase.IsZero()
}

// UnmarshalJSON accepts both the "apiKey" and the older "key" spelling the
// venue uses across credential endpoints.
func (c *Credentials) UnmarshalJSON(b []byte) error {
	var raw struct {
		APIKey     *uuid.UUID `json:"apiKey"`
		Key        *uuid.UUID `json:"key"`
		Secret     Secret     `json:"secret"`
		Passphrase Secret     `json:"passphrase"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch {
	case raw.APIKey != nil:
		c.APIKey = *raw.APIKey
	case raw.Key != nil:
		c.APIKey = *raw.Key
	default:
		c.APIKey = uuid.Nil
	}
	c.Secret = raw.Secret
	c.Passphrase = raw.Passphrase
	return nil
}
