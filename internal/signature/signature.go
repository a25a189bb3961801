// Package signature verifies HMAC-SHA256 webhook signatures.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Sign returns the lowercase hex HMAC-SHA256 digest of message keyed with secret.
func Sign(secret, message []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether providedHex is the HMAC-SHA256 of message under secret.
// An empty secret or signature never verifies.
func Verify(secret, message []byte, providedHex string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	if len(secret) == 0 || providedHex == "" {
		return false
	}

	expected := Sign(secret, message)
	provided := strings.ToLower(strings.TrimSpace(providedHex))
	if len(provided) != len(expected) {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}

// VerifyPrefixed verifies signatures of the form "<prefix><hex>", e.g. "sha256=ab12...".
// A missing prefix fails verification.
func VerifyPrefixed(secret, message []byte, prefix, provided string) bool {
	if !strings.HasPrefix(provided, prefix) {
		return false
	}
	return Verify(secret, message, strings.TrimPrefix(provided, prefix))
}
