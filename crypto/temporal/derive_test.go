package temporal

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func randSecret(t *testing.T) []byte {
	t.Helper()
	s := make([]byte, SecretLength)
	_, err := rand.Read(s)
	require.NoError(t, err)
	return s
}

func TestDeriveKeyDeterministic(t *testing.T) {
	secret := randSecret(t)
	w := TimeWindow{StartTimeMS: 1_000_000_000_000, EndTimeMS: 1_000_600_000_000, RotationInterval: 5, GracePeriodMS: 60_000}

	k1, err := DeriveKey(secret, w, "key-0")
	require.NoError(t, err)
	k2, err := DeriveKey(secret, w, "key-0")
	require.NoError(t, err)

	require.Equal(t, k1.Key, k2.Key)
	require.Len(t, k1.Key, KeyLength)
}

func TestDeriveKeyDistinctPerID(t *testing.T) {
	secret := randSecret(t)
	w := TimeWindow{StartTimeMS: 0, EndTimeMS: 600_000, RotationInterval: 5, GracePeriodMS: 60_000}

	k0, err := DeriveKey(secret, w, "key-0")
	require.NoError(t, err)
	k1, err := DeriveKey(secret, w, "key-1")
	require.NoError(t, err)

	require.NotEqual(t, k0.Key, k1.Key)
}

func TestDeriveKeyDistinctPerSecret(t *testing.T) {
	w := TimeWindow{StartTimeMS: 0, EndTimeMS: 600_000, RotationInterval: 5, GracePeriodMS: 60_000}
	k0, err := DeriveKey(randSecret(t), w, "key-0")
	require.NoError(t, err)
	k1, err := DeriveKey(randSecret(t), w, "key-0")
	require.NoError(t, err)
	require.NotEqual(t, k0.Key, k1.Key)
}

func TestDeriveKeyRejectsMalformedID(t *testing.T) {
	secret := randSecret(t)
	w := TimeWindow{StartTimeMS: 0, EndTimeMS: 600_000, RotationInterval: 5, GracePeriodMS: 60_000}

	_, err := DeriveKey(secret, w, "not-a-key")
	require.Error(t, err)
}

func TestGetCurrentKeyID(t *testing.T) {
	createdAt := int64(1_000_000_000_000)

	tests := []struct {
		name string
		now  int64
		want string
	}{
		{"before creation", createdAt - 1, "key-0"},
		{"at creation", createdAt, "key-0"},
		{"just before rotation boundary", createdAt + 300_000 - 1, "key-0"},
		{"exactly at rotation boundary", createdAt + 300_000, "key-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, GetCurrentKeyID(createdAt, tt.now, 5))
		})
	}
}

func TestIsKeyValid(t *testing.T) {
	// key-0 spans [0, 300_000); grace ends at 360_000.
	require.True(t, IsKeyValid("key-0", 0, 5, 60_000))
	require.True(t, IsKeyValid("key-0", 299_999, 5, 60_000))
	require.True(t, IsKeyValid("key-0", 300_000, 5, 60_000)) // within grace
	require.True(t, IsKeyValid("key-0", 359_999, 5, 60_000))
	require.False(t, IsKeyValid("key-0", 360_000, 5, 60_000)) // grace elapsed
	require.False(t, IsKeyValid("garbage", 0, 5, 60_000))
	require.False(t, IsKeyValid("key--1", 0, 5, 60_000))
}
