package timelock

import (
	"crypto/rand"
	"errors"
	"testing"

	"github.com/eecp-project/eecp/crypto/temporal"
	"github.com/eecp-project/eecp/eecperr"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T, id string) temporal.Key {
	t.Helper()
	buf := make([]byte, temporal.KeyLength)
	_, err := rand.Read(buf)
	require.NoError(t, err)
	return temporal.Key{ID: id, Key: buf, ValidFromMS: 0, ValidUntilMS: 300_000, GracePeriodEnd: 360_000}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := testKey(t, "key-0")
	plaintext := []byte("hello workspace")
	aad := []byte("caller-aad")

	payload, err := Encrypt(plaintext, key, aad)
	require.NoError(t, err)

	got, err := Decrypt(payload, key, aad)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestDecryptKeyIDMismatch(t *testing.T) {
	key := testKey(t, "key-0")
	wrongIDKey := key
	wrongIDKey.ID = "key-1"

	payload, err := Encrypt([]byte("m"), key, nil)
	require.NoError(t, err)

	_, err = Decrypt(payload, wrongIDKey, nil)
	require.True(t, errors.Is(err, eecperr.ErrKeyIDMismatch))
}

func TestDecryptTamperDetection(t *testing.T) {
	key := testKey(t, "key-0")
	aad := []byte("aad")
	payload, err := Encrypt([]byte("m"), key, aad)
	require.NoError(t, err)

	t.Run("tampered ciphertext", func(t *testing.T) {
		p := payload
		p.Ciphertext = append([]byte(nil), payload.Ciphertext...)
		p.Ciphertext[0] ^= 0xFF
		_, err := Decrypt(p, key, aad)
		require.True(t, errors.Is(err, eecperr.ErrAuthFailure))
	})

	t.Run("tampered nonce", func(t *testing.T) {
		p := payload
		p.Nonce = append([]byte(nil), payload.Nonce...)
		p.Nonce[0] ^= 0xFF
		_, err := Decrypt(p, key, aad)
		require.True(t, errors.Is(err, eecperr.ErrAuthFailure))
	})

	t.Run("tampered aad", func(t *testing.T) {
		_, err := Decrypt(payload, key, []byte("different-aad"))
		require.True(t, errors.Is(err, eecperr.ErrAuthFailure))
	})
}

func TestDestroyKeyIsIdempotent(t *testing.T) {
	key := testKey(t, "key-0")
	DestroyKey(&key)
	for _, b := range key.Key {
		require.Zero(t, b)
	}
	// second call on an already-zeroed buffer must not panic.
	DestroyKey(&key)
}
