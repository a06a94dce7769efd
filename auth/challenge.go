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

// Package auth implements the join-time challenge/response proof of
// possession over a participant's long-term secp256k1 key.
package auth

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/eecp-project/eecp/crypto/keys"
	"github.com/eecp-project/eecp/eecperr"
	"github.com/eecp-project/eecp/internal/metrics"
	"github.com/google/uuid"
)

// ChallengeSize is the length in bytes of a server-issued challenge.
const ChallengeSize = 32

// DefaultChallengeTTL bounds how long a challenge remains redeemable,
// matching the 10s join-handshake timeout.
const DefaultChallengeTTL = 10 * time.Second

// Challenge is a single-use, time-bounded proof-of-possession request.
type Challenge struct {
	Value    [ChallengeSize]byte
	IssuedAt time.Time
	Expires  time.Time
}

// Manager issues and verifies join-time challenges. It holds no private
// key material; it only verifies signatures against public keys supplied
// by the caller (typically resolved from a workspace's participant list).
type Manager struct {
	mu         sync.Mutex
	challenges map[string]Challenge // opaque challenge id -> challenge
	ttl        time.Duration
}

// NewManager creates a challenge manager with the given redemption TTL.
// A zero ttl defaults to DefaultChallengeTTL.
func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &Manager{challenges: make(map[string]Challenge), ttl: ttl}
}

// Issue generates a new random challenge and returns its id and value. The
// id is what the client echoes back alongside its signature.
func (m *Manager) Issue(now time.Time) (id string, value [ChallengeSize]byte, err error) {
	if _, err = rand.Read(value[:]); err != nil {
		return "", value, fmt.Errorf("auth: generate challenge: %w", err)
	}
	id = uuid.NewString()

	m.mu.Lock()
	m.challenges[id] = Challenge{Value: value, IssuedAt: now, Expires: now.Add(m.ttl)}
	m.mu.Unlock()

	metrics.ChallengesIssued.Inc()
	return id, value, nil
}

// Verify redeems challengeID exactly once: it checks the challenge has not
// expired or already been consumed, then verifies sig over the challenge
// value using pub. On success it returns a fresh session-bound
// ParticipantID. The challenge is consumed whether or not verification
// succeeds, so a failed attempt cannot be retried against the same
// challenge.
func (m *Manager) Verify(challengeID string, now time.Time, pub *ecdsa.PublicKey, sig []byte) (participantID string, err error) {
	m.mu.Lock()
	ch, ok := m.challenges[challengeID]
	delete(m.challenges, challengeID)
	m.mu.Unlock()

	if !ok {
		metrics.ChallengesVerified.WithLabelValues("unknown_challenge").Inc()
		return "", fmt.Errorf("auth: unknown or already-redeemed challenge: %w", eecperr.ErrUnauthorized)
	}
	metrics.ChallengeDuration.Observe(now.Sub(ch.IssuedAt).Seconds())
	if now.After(ch.Expires) {
		metrics.ChallengesVerified.WithLabelValues("expired").Inc()
		return "", fmt.Errorf("auth: challenge expired: %w", eecperr.ErrUnauthorized)
	}

	if err := keys.VerifyWithPublicKey(pub, ch.Value[:], sig); err != nil {
		metrics.ChallengesVerified.WithLabelValues("bad_signature").Inc()
		return "", fmt.Errorf("auth: signature verification failed: %w", eecperr.ErrUnauthorized)
	}

	metrics.ChallengesVerified.WithLabelValues("success").Inc()
	return uuid.NewString(), nil
}

// SignChallenge is a client-side helper: it signs the raw challenge bytes
// with the participant's long-term key pair.
func SignChallenge(kp *keys.KeyPair, challenge [ChallengeSize]byte) ([]byte, error) {
	return kp.Sign(challenge[:])
}
