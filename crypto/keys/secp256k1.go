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

// Package keys provides the secp256k1 key pairs used for participant
// long-term identity: signing (C5 challenge/response) and ECDH (C3
// multi-recipient wrapping of the workspace secret).
package keys

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// ErrInvalidSignature is returned when a signature fails verification or is
// malformed.
var ErrInvalidSignature = errors.New("keys: invalid signature")

// KeyPair is a participant's long-term secp256k1 identity key.
type KeyPair struct {
	private *secp256k1.PrivateKey
	public  *secp256k1.PublicKey
	id      string
}

// Generate creates a new random secp256k1 key pair.
func Generate() (*KeyPair, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	return fromPrivate(priv), nil
}

// FromPrivateKeyBytes reconstructs a key pair from a 32-byte scalar, as
// produced by ExportPrivate.
func FromPrivateKeyBytes(b []byte) (*KeyPair, error) {
	if len(b) != 32 {
		return nil, errors.New("keys: private key must be 32 bytes")
	}
	priv := secp256k1.PrivKeyFromBytes(b)
	return fromPrivate(priv), nil
}

func fromPrivate(priv *secp256k1.PrivateKey) *KeyPair {
	pub := priv.PubKey()
	hash := sha256.Sum256(pub.SerializeCompressed())
	return &KeyPair{private: priv, public: pub, id: hex.EncodeToString(hash[:8])}
}

// ParsePublicKey parses a compressed or uncompressed secp256k1 public key.
func ParsePublicKey(b []byte) (*secp256k1.PublicKey, error) {
	return secp256k1.ParsePubKey(b)
}

// ID returns the key pair's fingerprint, derived from the SHA-256 hash of
// its compressed public key.
func (kp *KeyPair) ID() string { return kp.id }

// PublicKeyBytes returns the compressed SEC1 encoding of the public key.
func (kp *KeyPair) PublicKeyBytes() []byte { return kp.public.SerializeCompressed() }

// ExportPrivate returns the raw 32-byte private scalar. Callers are
// responsible for zeroing it once no longer needed.
func (kp *KeyPair) ExportPrivate() []byte { return kp.private.Serialize() }

// ECDSA returns the stdlib representation, used for ECDH point math via
// crypto/elliptic and for interop with crypto/ecdsa.
func (kp *KeyPair) ECDSA() *ecdsa.PrivateKey { return kp.private.ToECDSA() }

// PublicECDSA returns the public half in stdlib form.
func (kp *KeyPair) PublicECDSA() *ecdsa.PublicKey { return kp.public.ToECDSA() }

// Sign signs message with ECDSA over SHA-256(message).
func (kp *KeyPair) Sign(message []byte) ([]byte, error) {
	hash := sha256.Sum256(message)
	r, s, err := ecdsa.Sign(rand.Reader, kp.private.ToECDSA(), hash[:])
	if err != nil {
		return nil, err
	}
	return serializeSignature(r, s), nil
}

// Verify checks a signature produced by Sign against this key pair's public
// key.
func (kp *KeyPair) Verify(message, signature []byte) error {
	return VerifyWithPublicKey(kp.public.ToECDSA(), message, signature)
}

// VerifyWithPublicKey checks a signature against an arbitrary secp256k1
// public key (stdlib form), used on the server side to verify a claimed
// participant's registered key without holding their KeyPair.
func VerifyWithPublicKey(pub *ecdsa.PublicKey, message, signature []byte) error {
	r, s, err := deserializeSignature(signature)
	if err != nil {
		return ErrInvalidSignature
	}
	hash := sha256.Sum256(message)
	if !ecdsa.Verify(pub, hash[:], r, s) {
		return ErrInvalidSignature
	}
	return nil
}

func serializeSignature(r, s *big.Int) []byte {
	rBytes := r.Bytes()
	sBytes := s.Bytes()

	signature := make([]byte, 64)
	copy(signature[32-len(rBytes):32], rBytes)
	copy(signature[64-len(sBytes):64], sBytes)
	return signature
}

func deserializeSignature(data []byte) (*big.Int, *big.Int, error) {
	if len(data) != 64 {
		return nil, nil, ErrInvalidSignature
	}
	r := new(big.Int).SetBytes(data[:32])
	s := new(big.Int).SetBytes(data[32:])
	return r, s, nil
}
