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

// Package temporal derives rotating symmetric keys from a workspace secret
// and a time window, per the HKDF-based scheme in the protocol design.
package temporal

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// KeyLength is the size in bytes of a derived temporal key (AES-256).
const KeyLength = 32

// SecretLength is the required size of the workspace secret.
const SecretLength = 32

// TimeWindow describes the workspace's rotation policy in absolute time.
type TimeWindow struct {
	StartTimeMS       int64 // workspace createdAt, epoch milliseconds
	EndTimeMS         int64 // workspace expiresAt, epoch milliseconds
	RotationInterval  int64 // minutes; one of 5, 15, 30, 60
	GracePeriodMS     int64 // milliseconds; in [30_000, 120_000]
}

// Key is a single rotation window's derived symmetric key.
type Key struct {
	ID             string
	Key            []byte
	ValidFromMS    int64
	ValidUntilMS   int64
	GracePeriodEnd int64
}

func rotationMS(w TimeWindow) int64 {
	return w.RotationInterval * 60_000
}

// GetCurrentKeyID returns "key-N" for the rotation window containing now,
// counted from createdAt. now <= createdAt always yields "key-0".
func GetCurrentKeyID(createdAtMS, nowMS, rotationIntervalMinutes int64) string {
	if nowMS <= createdAtMS {
		return "key-0"
	}
	interval := rotationIntervalMinutes * 60_000
	n := (nowMS - createdAtMS) / interval
	return fmt.Sprintf("key-%d", n)
}

// IsKeyValid reports whether keyID is decrypt-valid at now: its window has
// started and its grace period has not yet elapsed. A malformed keyID is
// never valid.
func IsKeyValid(keyID string, nowMS, rotationIntervalMinutes, gracePeriodMS int64) bool {
	n, ok := parseIndex(keyID)
	if !ok {
		return false
	}
	interval := rotationIntervalMinutes * 60_000
	keyStart := n * interval
	return nowMS >= keyStart && nowMS < keyStart+interval+gracePeriodMS
}

func parseIndex(keyID string) (int64, bool) {
	var n int64
	if _, err := fmt.Sscanf(keyID, "key-%d", &n); err != nil || n < 0 {
		return 0, false
	}
	// Reject trailing garbage like "key-1x" that Sscanf would silently accept
	// as prefix-matched.
	if fmt.Sprintf("key-%d", n) != keyID {
		return 0, false
	}
	return n, true
}

// DeriveKey derives the temporal key for keyID deterministically from
// secret and the workspace's time window. IKM = secret, salt = keyID bytes,
// info = 8-byte big-endian startTime || 8-byte big-endian endTime.
func DeriveKey(secret []byte, w TimeWindow, keyID string) (Key, error) {
	if len(secret) != SecretLength {
		return Key{}, fmt.Errorf("temporal: workspace secret must be %d bytes", SecretLength)
	}
	n, ok := parseIndex(keyID)
	if !ok {
		return Key{}, fmt.Errorf("temporal: malformed key id %q", keyID)
	}

	info := make([]byte, 16)
	binary.BigEndian.PutUint64(info[0:8], uint64(w.StartTimeMS))
	binary.BigEndian.PutUint64(info[8:16], uint64(w.EndTimeMS))

	r := hkdf.New(sha256.New, secret, []byte(keyID), info)
	out := make([]byte, KeyLength)
	if _, err := io.ReadFull(r, out); err != nil {
		return Key{}, fmt.Errorf("temporal: hkdf expand: %w", err)
	}

	interval := rotationMS(w)
	validFrom := w.StartTimeMS + n*interval
	validUntil := validFrom + interval

	return Key{
		ID:             keyID,
		Key:            out,
		ValidFromMS:    validFrom,
		ValidUntilMS:   validUntil,
		GracePeriodEnd: validUntil + w.GracePeriodMS,
	}, nil
}
