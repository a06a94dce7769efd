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

// Package commitment publishes hash commitments proving a temporal key
// existed with given metadata and was subsequently destroyed.
package commitment

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"
	"sync"

	"github.com/eecp-project/eecp/crypto/temporal"
)

// Commitment binds a destroyed key's id and validity window to a hash of
// the key material, so its destruction can be publicly proven without
// revealing the key.
type Commitment struct {
	KeyID        string
	Hash         [32]byte
	ValidFromMS  int64
	ValidUntilMS int64
	TimestampMS  int64
}

// Create computes the deterministic commitment for a key. It is a pure
// function of key's fields; calling it twice for the same key yields a
// byte-identical hash.
func Create(key temporal.Key, nowMS int64) Commitment {
	h := sha256.New()
	h.Write(key.Key)
	h.Write([]byte(key.ID))
	h.Write(encodeInt64(key.ValidFromMS))
	h.Write(encodeInt64(key.ValidUntilMS))

	var sum [32]byte
	copy(sum[:], h.Sum(nil))

	return Commitment{
		KeyID:        key.ID,
		Hash:         sum,
		ValidFromMS:  key.ValidFromMS,
		ValidUntilMS: key.ValidUntilMS,
		TimestampMS:  nowMS,
	}
}

// Verify reports whether c's four binding fields match the claimed keyID
// and validity window. It does not and cannot validate the hash itself
// without the (destroyed) key material — that is the point.
func Verify(c Commitment, keyID string, validFromMS, validUntilMS int64) bool {
	return c.KeyID == keyID && c.ValidFromMS == validFromMS && c.ValidUntilMS == validUntilMS
}

func encodeInt64(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

// Log is an append-only, single-writer-per-workspace commitment ledger.
// Entries are never removed, even after the referenced key is destroyed.
type Log struct {
	mu      sync.RWMutex
	entries map[string]Commitment // keyID -> commitment
	order   []string              // insertion order, for deterministic listing
}

// NewLog creates an empty commitment log.
func NewLog() *Log {
	return &Log{entries: make(map[string]Commitment)}
}

// Publish appends c to the log, keyed by its KeyID. Publishing the same
// KeyID twice overwrites the entry's position in lookups but both calls are
// expected to produce identical commitments since Create is deterministic.
func (l *Log) Publish(c Commitment) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.entries[c.KeyID]; !exists {
		l.order = append(l.order, c.KeyID)
	}
	l.entries[c.KeyID] = c
}

// Find returns the commitment for keyID, if any.
func (l *Log) Find(keyID string) (Commitment, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.entries[keyID]
	return c, ok
}

// All returns every published commitment in publish order.
func (l *Log) All() []Commitment {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Commitment, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.entries[id])
	}
	return out
}

// KeyIDs returns the sorted set of keys with published commitments.
func (l *Log) KeyIDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.entries))
	for id := range l.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
