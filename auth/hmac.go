package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/soleret/polyclob/errs"
)

// HMACSignature signs an API request with the shared secret. The message is
// the timestamp, method, request path (query excluded) and body concatenated
// in that order; the result is URL-safe base64.
func HMACSignature(secret Secret, timestamp int64, method, path string, body []byte) (string, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte(method))
	mac.Write([]byte(path))
	mac.Write([]byte(normalizeBody(body)))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil)), nil
}

// decodeSecret accepts secrets minted under either base64 alphabet.
func decodeSecret(secret Secret) ([]byte, error) {
	raw := secret.Reveal()
	if key, err := base64.URLEncoding.DecodeString(raw); err == nil {
		return key, nil
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, errs.New("auth.hmac", errs.CodeAuth,
			errs.WithMessage("api secret is not valid base64"), errs.WithCause(err))
	}
	return key, nil
}

// normalizeBody rewrites single quotes to double quotes so signatures agree
// with servers that canonicalize bodies that way.
func normalizeBody(body []byte) string {
	return strings.ReplaceAll(string(body), "'", `"`)
}
