// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package recipients wraps a workspace secret to every joining
// participant's long-term secp256k1 public key using ephemeral-ECDH,
// HKDF and AES-GCM (ECIES). Each entry is addressed by participant id so
// recipient i can never decrypt recipient j's entry with its own key.
package recipients

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/eecp-project/eecp/crypto/keys"
	"golang.org/x/crypto/hkdf"
)

const (
	aesKeyLength = 32
	nonceLength  = 12
	hkdfInfo     = "eecp/ecies-secp256k1 v1"
)

// ErrRecipientNotFound is returned when decrypting for a participant id
// that has no wrapped entry in the message.
var ErrRecipientNotFound = errors.New("recipients: no wrapped entry for participant")

// WrappedEntry is one recipient's ECIES ciphertext of the workspace secret.
type WrappedEntry struct {
	EphemeralPublicKey []byte // compressed SEC1 ephemeral public key
	Nonce              []byte
	Ciphertext         []byte // includes GCM tag
}

// EncryptedMessage is the workspace secret wrapped to every recipient,
// keyed by participant id for O(1) lookup (see design note on restructuring
// the positional-array contract into a map).
type EncryptedMessage struct {
	RecipientCount int
	Entries        map[string]WrappedEntry // participantID -> wrapped secret
}

// EncryptForRecipients wraps secret to every recipient's public key.
// recipientPubKeys maps participant id -> compressed secp256k1 public key bytes.
func EncryptForRecipients(secret []byte, recipientPubKeys map[string][]byte) (EncryptedMessage, error) {
	out := EncryptedMessage{
		RecipientCount: len(recipientPubKeys),
		Entries:        make(map[string]WrappedEntry, len(recipientPubKeys)),
	}
	for participantID, pubBytes := range recipientPubKeys {
		entry, err := wrapOne(secret, pubBytes)
		if err != nil {
			return EncryptedMessage{}, fmt.Errorf("recipients: wrap for %s: %w", participantID, err)
		}
		out.Entries[participantID] = entry
	}
	return out, nil
}

// DecryptForRecipient recovers secret from msg using recipientID's private
// key. Returns ErrRecipientNotFound if recipientID has no entry; GCM
// verification failure surfaces as a plain error (never a partial
// plaintext), and another recipient's private key can never open this
// entry since each is sealed under a fresh ephemeral ECDH shared secret.
func DecryptForRecipient(msg EncryptedMessage, recipientID string, priv *keys.KeyPair) ([]byte, error) {
	entry, ok := msg.Entries[recipientID]
	if !ok {
		return nil, ErrRecipientNotFound
	}
	return unwrapOne(entry, priv)
}

func wrapOne(secret, recipientPubBytes []byte) (WrappedEntry, error) {
	recipientPub, err := secp256k1.ParsePubKey(recipientPubBytes)
	if err != nil {
		return WrappedEntry{}, fmt.Errorf("parse recipient public key: %w", err)
	}

	ephemeral, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return WrappedEntry{}, err
	}

	sharedKey, err := deriveSharedKey(ephemeral.ToECDSA(), recipientPub.ToECDSA())
	if err != nil {
		return WrappedEntry{}, err
	}

	gcm, err := newGCM(sharedKey)
	if err != nil {
		return WrappedEntry{}, err
	}

	nonce := make([]byte, nonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return WrappedEntry{}, err
	}

	ct := gcm.Seal(nil, nonce, secret, nil)

	return WrappedEntry{
		EphemeralPublicKey: ephemeral.PubKey().SerializeCompressed(),
		Nonce:              nonce,
		Ciphertext:         ct,
	}, nil
}

func unwrapOne(entry WrappedEntry, priv *keys.KeyPair) ([]byte, error) {
	ephemeralPub, err := secp256k1.ParsePubKey(entry.EphemeralPublicKey)
	if err != nil {
		return nil, fmt.Errorf("parse ephemeral public key: %w", err)
	}

	sharedKey, err := deriveSharedKey(priv.ECDSA(), ephemeralPub.ToECDSA())
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(sharedKey)
	if err != nil {
		return nil, err
	}

	return gcm.Open(nil, entry.Nonce, entry.Ciphertext, nil)
}

// deriveSharedKey computes ECDH(ourPriv, theirPub) on the secp256k1 curve
// and derives a 32-byte AES key from the shared x-coordinate via HKDF-SHA256.
func deriveSharedKey(ourPriv *ecdsa.PrivateKey, theirPub *ecdsa.PublicKey) ([]byte, error) {
	if ourPriv.Curve != theirPub.Curve {
		return nil, errors.New("recipients: curve mismatch")
	}
	x, _ := ourPriv.Curve.ScalarMult(theirPub.X, theirPub.Y, ourPriv.D.Bytes())
	if x == nil || x.Sign() == 0 {
		return nil, errors.New("recipients: ecdh produced point at infinity")
	}

	byteLen := (ourPriv.Curve.Params().BitSize + 7) / 8
	secretBytes := x.FillBytes(make([]byte, byteLen))

	r := hkdf.New(sha256.New, secretBytes, nil, []byte(hkdfInfo))
	out := make([]byte, aesKeyLength)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("recipients: hkdf expand: %w", err)
	}
	return out, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
