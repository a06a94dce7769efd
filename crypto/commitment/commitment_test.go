package commitment

import (
	"testing"

	"github.com/eecp-project/eecp/crypto/temporal"
	"github.com/stretchr/testify/require"
)

func sampleKey() temporal.Key {
	return temporal.Key{
		ID:             "key-0",
		Key:            []byte("0123456789abcdef0123456789abcdef"),
		ValidFromMS:    0,
		ValidUntilMS:   300_000,
		GracePeriodEnd: 360_000,
	}
}

func TestCreateIsDeterministic(t *testing.T) {
	key := sampleKey()
	c1 := Create(key, 1_000)
	c2 := Create(key, 2_000)

	require.Equal(t, c1.Hash, c2.Hash)
	require.Equal(t, c1.KeyID, c2.KeyID)
}

func TestVerifyMatchesAllFields(t *testing.T) {
	key := sampleKey()
	c := Create(key, 1_000)

	require.True(t, Verify(c, "key-0", 0, 300_000))
	require.False(t, Verify(c, "key-1", 0, 300_000))
	require.False(t, Verify(c, "key-0", 1, 300_000))
	require.False(t, Verify(c, "key-0", 0, 300_001))
}

func TestLogPublishFindAll(t *testing.T) {
	log := NewLog()
	key0 := sampleKey()
	key1 := sampleKey()
	key1.ID = "key-1"

	c0 := Create(key0, 1_000)
	c1 := Create(key1, 2_000)

	log.Publish(c0)
	log.Publish(c1)

	found, ok := log.Find("key-0")
	require.True(t, ok)
	require.Equal(t, c0, found)

	_, ok = log.Find("key-missing")
	require.False(t, ok)

	require.Equal(t, []Commitment{c0, c1}, log.All())
	require.Equal(t, []string{"key-0", "key-1"}, log.KeyIDs())
}

func TestLogNeverDeletes(t *testing.T) {
	log := NewLog()
	key := sampleKey()
	log.Publish(Create(key, 1_000))

	// There is intentionally no Delete/Remove method: commitments outlive
	// the destroyed key by design.
	require.Equal(t, 1, len(log.All()))
}
