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

// Package timelock implements AEAD encryption bound to a temporal key id.
package timelock

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/eecp-project/eecp/crypto/temporal"
	"github.com/eecp-project/eecp/eecperr"
)

// NonceSize is the GCM nonce size in bytes.
const NonceSize = 12

// Payload is the wire-level output of Encrypt: everything a receiver needs
// to call Decrypt, sans the key itself.
type Payload struct {
	KeyID      string
	Nonce      []byte
	Ciphertext []byte // includes the 16-byte GCM tag
}

// Encrypt seals plaintext under key.Key, bound to key.ID and optional
// caller-supplied additional data via AAD = keyID || aad.
func Encrypt(plaintext []byte, key temporal.Key, aad []byte) (Payload, error) {
	block, err := aes.NewCipher(key.Key)
	if err != nil {
		return Payload{}, fmt.Errorf("timelock: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return Payload{}, fmt.Errorf("timelock: new gcm: %w", err)
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return Payload{}, fmt.Errorf("timelock: nonce: %w", err)
	}

	ct := gcm.Seal(nil, nonce, plaintext, buildAAD(key.ID, aad))

	return Payload{KeyID: key.ID, Nonce: nonce, Ciphertext: ct}, nil
}

// Decrypt opens payload under key.Key. Returns eecperr.ErrKeyIDMismatch if
// payload.KeyID != key.ID, and eecperr.ErrAuthFailure if GCM verification
// fails for any other reason (tampered nonce, ciphertext, tag, or AAD).
func Decrypt(payload Payload, key temporal.Key, aad []byte) ([]byte, error) {
	if payload.KeyID != key.ID {
		return nil, fmt.Errorf("timelock: payload key %q != %q: %w", payload.KeyID, key.ID, eecperr.ErrKeyIDMismatch)
	}

	block, err := aes.NewCipher(key.Key)
	if err != nil {
		return nil, fmt.Errorf("timelock: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("timelock: new gcm: %w", err)
	}
	if len(payload.Nonce) != NonceSize {
		return nil, fmt.Errorf("timelock: bad nonce length: %w", eecperr.ErrAuthFailure)
	}

	pt, err := gcm.Open(nil, payload.Nonce, payload.Ciphertext, buildAAD(key.ID, aad))
	if err != nil {
		return nil, fmt.Errorf("timelock: gcm open: %w", eecperr.ErrAuthFailure)
	}
	return pt, nil
}

func buildAAD(keyID string, callerAAD []byte) []byte {
	out := make([]byte, 0, len(keyID)+len(callerAAD))
	out = append(out, keyID...)
	out = append(out, callerAAD...)
	return out
}

// DestroyKey overwrites k's key buffer with random bytes then zeros, making
// it unrecoverable from process memory. Idempotent on an already-zeroed or
// empty buffer. The workspace calls it whenever it destroys a temporal key:
// once a rotated-out key's grace period ends, and at finalization.
func DestroyKey(k *temporal.Key) {
	if len(k.Key) == 0 {
		return
	}
	_, _ = rand.Read(k.Key)
	for i := range k.Key {
		k.Key[i] = 0
	}
}
