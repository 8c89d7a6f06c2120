package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
)

const (
	HeaderHubSignature = "X-Hub-Signature-256"
	HeaderSignature    = "X-Webhook-Signature"
	HeaderSecret       = "X-Webhook-Secret"

	prefixEnv    = "env://"
	prefixSHA256 = "sha256="
)

// Verify authenticates r against the trigger secret. An empty secret accepts
// any caller. A sha256 signature header wins over the plain secret header.
func Verify(r *http.Request, body []byte, secret string) error {
	if secret == "" {
		return nil
	}
	key, err := resolveSecret(secret)
	if err != nil {
		return err
	}
	if sig := signatureHeader(r.Header); sig != "" {
		return verifySignature(sig, body, key)
	}
	given := r.Header.Get(HeaderSecret)
	if given == "" {
		return fmt.Errorf("%w: missing credentials", ErrUnauthorized)
	}
	if subtle.ConstantTimeCompare([]byte(given), key) != 1 {
		return fmt.Errorf("%w: secret mismatch", ErrUnauthorized)
	}
	return nil
}

// Sign returns the signature header value for body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return prefixSHA256 + hex.EncodeToString(mac.Sum(nil))
}

func signatureHeader(h http.Header) string {
	if v := strings.TrimSpace(h.Get(HeaderHubSignature)); v != "" {
		return v
	}
	return strings.TrimSpace(h.Get(HeaderSignature))
}

func verifySignature(sig string, body, key []byte) error {
	hexsig, ok := strings.CutPrefix(sig, prefixSHA256)
	if !ok || hexsig == "" {
		return fmt.Errorf("%w: invalid signature header", ErrUnauthorized)
	}
	got, err := hex.DecodeString(hexsig)
	if err != nil {
		return fmt.Errorf("%w: invalid signature encoding", ErrUnauthorized)
	}
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), got) {
		return fmt.Errorf("%w: signature mismatch", ErrUnauthorized)
	}
	return nil
}

func resolveSecret(s string) ([]byte, error) {
	if after, ok := strings.CutPrefix(s, prefixEnv); ok {
		val := os.Getenv(after)
		if val == "" {
			return nil, fmt.Errorf("secret env %q not set", after)
		}
		return []byte(val), nil
	}
	if s == "" {
		return nil, errors.New("empty secret")
	}
	return []byte(s), nil
}
