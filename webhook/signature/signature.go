package signature

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

/* Payloads are signed with a per-endpoint shared secret so receivers can
 * authenticate deliveries. The scheme is the one existing consumers already
 * implement: header X-Signature = hex(HMAC-SHA256(secret, raw body)).
 */

// Header is the HTTP header carrying the payload signature.
const Header = "X-Signature"

// secretBytes is the size of generated secrets (hex-encoded on the wire).
const secretBytes = 32

// Sign computes the hex HMAC-SHA256 digest of payload using secret.
// Returns the empty string when no secret is configured: unsigned endpoints
// get no X-Signature header at all.
func Sign(secret string, payload []byte) string {
	if secret == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature and compares it in constant time to avoid
// timing side-channels. Returns false when no secret is configured: an
// unsigned scheme cannot be verified.
func Verify(secret string, payload []byte, sig string) bool {
	if secret == "" {
		return false
	}
	expected := Sign(secret, payload)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(sig)) == 1
}

// GenerateSecret creates a new cryptographically secure signing secret,
// hex-encoded. Used when registering or rotating an endpoint secret.
func GenerateSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
