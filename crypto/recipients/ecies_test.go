package recipients

import (
	"crypto/rand"
	"testing"

	"github.com/eecp-project/eecp/crypto/keys"
	"github.com/stretchr/testify/require"
)

func TestEncryptForRecipientsRoundTrip(t *testing.T) {
	secret := make([]byte, 32)
	_, err := rand.Read(secret)
	require.NoError(t, err)

	alice, err := keys.Generate()
	require.NoError(t, err)
	bob, err := keys.Generate()
	require.NoError(t, err)
	carol, err := keys.Generate()
	require.NoError(t, err)

	recipientPubKeys := map[string][]byte{
		"alice": alice.PublicKeyBytes(),
		"bob":   bob.PublicKeyBytes(),
		"carol": carol.PublicKeyBytes(),
	}

	msg, err := EncryptForRecipients(secret, recipientPubKeys)
	require.NoError(t, err)
	require.Equal(t, 3, msg.RecipientCount)

	for id, priv := range map[string]*keys.KeyPair{"alice": alice, "bob": bob, "carol": carol} {
		got, err := DecryptForRecipient(msg, id, priv)
		require.NoError(t, err, "recipient %s", id)
		require.Equal(t, secret, got)
	}
}

func TestDecryptForRecipientCrossRecipientFails(t *testing.T) {
	secret := make([]byte, 32)
	_, err := rand.Read(secret)
	require.NoError(t, err)

	alice, err := keys.Generate()
	require.NoError(t, err)
	bob, err := keys.Generate()
	require.NoError(t, err)

	msg, err := EncryptForRecipients(secret, map[string][]byte{
		"alice": alice.PublicKeyBytes(),
		"bob":   bob.PublicKeyBytes(),
	})
	require.NoError(t, err)

	// Bob's private key cannot open Alice's entry even though both are
	// valid recipients of this message.
	_, err = DecryptForRecipient(msg, "alice", bob)
	require.Error(t, err)
}

func TestDecryptForRecipientNotFound(t *testing.T) {
	secret := make([]byte, 32)
	alice, err := keys.Generate()
	require.NoError(t, err)

	msg, err := EncryptForRecipients(secret, map[string][]byte{"alice": alice.PublicKeyBytes()})
	require.NoError(t, err)

	_, err = DecryptForRecipient(msg, "nonexistent", alice)
	require.ErrorIs(t, err, ErrRecipientNotFound)
}
