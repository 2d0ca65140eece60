package auth

import (
	"fmt"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

func TestSecretNeverRendersCleartext(t *testing.T) {
	s := NewSecret("my_super_secret_value_12345")

	for _, verb := range []string{"%v", "%+v", "%#v", "%s", "%q", "%d"} {
		if got := fmt.Sprintf(verb, s); got != "[redacted]" {
			t.Fatalf("verb %s rendered %q", verb, got)
		}
	}
	if got := s.String(); got != "[redacted]" {
		t.Fatalf("String() = %q", got)
	}
	if got := fmt.Sprintf("%v", struct{ S Secret }{s}); strings.Contains(got, "12345") {
		t.Fatalf("nested formatting leaked the value: %q", got)
	}
	if got := s.Reveal(); got != "my_super_secret_value_12345" {
		t.Fatalf("Reveal() = %q", got)
	}
}

func TestSecretRefusesMarshal(t *testing.T) {
	creds := Credentials{
		APIKey:     uuid.Nil,
		Secret:     NewSecret("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="),
		Passphrase: NewSecret("passphrase"),
	}
	if _, err := json.Marshal(creds); err == nil {
		t.Fatal("marshaling credentials should fail")
	}
}

func TestSecretZero(t *testing.T) {
	s := NewSecret("value")
	if s.IsZero() {
		t.Fatal("fresh secret reported zero")
	}
	s.Zero()
	if !s.IsZero() || s.Reveal() != "" {
		t.Fatal("Zero did not clear the value")
	}
}

func TestCredentialsDecode(t *testing.T) {
	payload := `{
		"apiKey": "b335e416-b4f1-7c74-b61f-7d6965f9b218",
		"secret": "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=",
		"passphrase": "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	}`

	var creds Credentials
	if err := json.Unmarshal([]byte(payload), &creds); err != nil {
		t.Fatalf("unmarshal credentials: %v", err)
	}
	if got := creds.APIKey.String(); got != "b335e416-b4f1-7c74-b61f-7d6965f9b218" {
		t.Fatalf("api key = %s", got)
	}
	if got := creds.Secret.Reveal(); got != "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=" {
		t.Fatalf("secret = %q", got)
	}
	if !creds.Valid() {
		t.Fatal("decoded credentials should be valid")
	}
	if (Credentials{}).Valid() {
		t.Fatal("zero credentials should be invalid")
	}
}
