package signature_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/Juzanki/smartbiz-hub/webhook/signature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign(t *testing.T) {
	payload := []byte(`{"type":"gift.sent","data":{"gift_id":7}}`)

	t.Run("success - matches reference HMAC", func(t *testing.T) {
		mac := hmac.New(sha256.New, []byte("topsecret"))
		mac.Write(payload)
		want := hex.EncodeToString(mac.Sum(nil))

		assert.Equal(t, want, signature.Sign("topsecret", payload))
	})

	t.Run("same inputs produce same signature", func(t *testing.T) {
		assert.Equal(t, signature.Sign("s", payload), signature.Sign("s", payload))
	})

	t.Run("different payloads produce different signatures", func(t *testing.T) {
		assert.NotEqual(t, signature.Sign("s", payload), signature.Sign("s", []byte("other")))
	})

	t.Run("no secret yields empty signature", func(t *testing.T) {
		assert.Equal(t, "", signature.Sign("", payload))
	})
}

func TestVerify(t *testing.T) {
	payload := []byte(`{"type":"gift.sent","data":{"gift_id":7}}`)

	t.Run("success - valid signature", func(t *testing.T) {
		sig := signature.Sign("topsecret", payload)
		assert.True(t, signature.Verify("topsecret", payload, sig))
	})

	t.Run("failure - wrong secret", func(t *testing.T) {
		sig := signature.Sign("topsecret", payload)
		assert.False(t, signature.Verify("other", payload, sig))
	})

	t.Run("failure - tampered payload", func(t *testing.T) {
		sig := signature.Sign("topsecret", payload)
		assert.False(t, signature.Verify("topsecret", []byte(`{"tampered":true}`), sig))
	})

	t.Run("failure - no secret configured", func(t *testing.T) {
		sig := signature.Sign("topsecret", payload)
		assert.False(t, signature.Verify("", payload, sig))
	})

	t.Run("failure - empty signature against unsigned endpoint", func(t *testing.T) {
		// Even the "matching" empty digest must not verify without a secret.
		assert.False(t, signature.Verify("", payload, ""))
	})
}

func TestGenerateSecret(t *testing.T) {
	t.Run("success - hex encoded", func(t *testing.T) {
		s, err := signature.GenerateSecret()
		require.NoError(t, err)
		_, err = hex.DecodeString(s)
		require.NoError(t, err)
		assert.Len(t, s, 64)
	})

	t.Run("randomness - generates different secrets", func(t *testing.T) {
		a, err := signature.GenerateSecret()
		require.NoError(t, err)
		b, err := signature.GenerateSecret()
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})
}
