package benchmark

import (
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/eecp-project/eecp/crypto/keys"
	"github.com/eecp-project/eecp/crypto/recipients"
	"github.com/eecp-project/eecp/crypto/temporal"
	"github.com/eecp-project/eecp/crypto/timelock"
)

// BenchmarkKeyGeneration benchmarks ephemeral identity key generation.
func BenchmarkKeyGeneration(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := keys.Generate(); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkSigning benchmarks operation signing over a 1KB payload.
func BenchmarkSigning(b *testing.B) {
	kp, err := keys.Generate()
	if err != nil {
		b.Fatal(err)
	}
	message := make([]byte, 1024)
	rand.Read(message)
	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := kp.Sign(message); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkVerification benchmarks operation signature verification.
func BenchmarkVerification(b *testing.B) {
	kp, err := keys.Generate()
	if err != nil {
		b.Fatal(err)
	}
	message := make([]byte, 1024)
	rand.Read(message)
	sig, err := kp.Sign(message)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if err := kp.Verify(message, sig); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkTemporalKeyDerivation benchmarks deriving a rotation-window key
// from a workspace secret.
func BenchmarkTemporalKeyDerivation(b *testing.B) {
	secret := make([]byte, temporal.SecretLength)
	rand.Read(secret)
	window := temporal.TimeWindow{StartTimeMS: 0, EndTimeMS: 3_600_000, RotationInterval: 15, GracePeriodMS: 60_000}
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := temporal.DeriveKey(secret, window, "key-0"); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkOperationSeal benchmarks sealing an operation payload under a
// derived temporal key, at a range of realistic CRDT op sizes.
func BenchmarkOperationSeal(b *testing.B) {
	secret := make([]byte, temporal.SecretLength)
	rand.Read(secret)
	window := temporal.TimeWindow{StartTimeMS: 0, EndTimeMS: 3_600_000, RotationInterval: 15, GracePeriodMS: 60_000}
	key, err := temporal.DeriveKey(secret, window, "key-0")
	if err != nil {
		b.Fatal(err)
	}

	for _, size := range []int{64, 256, 1024, 4096} {
		plaintext := make([]byte, size)
		rand.Read(plaintext)

		b.Run(fmt.Sprintf("%dB", size), func(b *testing.B) {
			b.SetBytes(int64(size))
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := timelock.Encrypt(plaintext, key, nil); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkRecipientWrap benchmarks ECIES-wrapping a workspace secret for a
// growing participant roster.
func BenchmarkRecipientWrap(b *testing.B) {
	secret := make([]byte, temporal.SecretLength)
	rand.Read(secret)

	for _, n := range []int{1, 4, 16} {
		recipientKeys := make(map[string][]byte, n)
		for i := 0; i < n; i++ {
			kp, err := keys.Generate()
			if err != nil {
				b.Fatal(err)
			}
			recipientKeys[fmt.Sprintf("participant-%d", i)] = kp.PublicKeyBytes()
		}

		b.Run(fmt.Sprintf("%dRecipients", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := recipients.EncryptForRecipients(secret, recipientKeys); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
