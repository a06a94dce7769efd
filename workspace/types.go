// Package workspace implements the collaboration session state machine:
// workspace lifecycle, participant admission, key rotation scheduling,
// operation routing and rate limiting, and scheduled destruction of expired
// key material. It owns the only mutable shared session state in the
// system; everything else (temporal keys, AEAD, ECIES, commitments, CRDT
// replicas) is a pure function or participant-local state.
package workspace

import (
	"github.com/eecp-project/eecp/crypto/temporal"
)

// State is a workspace's position in the Created -> Active -> Expiring ->
// Expired lifecycle.
type State string

const (
	StateCreated  State = "created"
	StateActive   State = "active"
	StateExpiring State = "expiring"
	StateExpired  State = "expired"
)

// Role describes a participant's standing within a workspace.
type Role string

const (
	RoleCreator Role = "creator"
	RoleEditor  Role = "editor"
	RoleViewer  Role = "viewer"
)

// DepartureTimeout is how long a quiet socket is considered departed. The
// participant's record is kept regardless, since commitments bind to
// historical membership.
const DepartureTimeout = 60_000 // milliseconds

// RateLimitConfig configures the per-participant token bucket applied to
// inbound operations.
type RateLimitConfig struct {
	RatePerSecond float64
	Burst         int
}

// DefaultRateLimitConfig returns the 50 ops/s, burst 100 default.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{RatePerSecond: 50, Burst: 100}
}

// WorkspaceConfig is the immutable configuration a workspace is created
// with.
type WorkspaceConfig struct {
	ID              string
	CreatedAtMS     int64
	ExpiresAtMS     int64
	TimeWindow      temporal.TimeWindow
	MaxParticipants int
	AllowExtension  bool
	HardCapMinutes  int64 // ceiling on CreatedAt + extensions; 0 disables extension regardless of AllowExtension
}

// ParticipantInfo describes an admitted participant. Unique by ID within a
// workspace.
type ParticipantInfo struct {
	ID           string
	PublicKey    []byte
	JoinedAtMS   int64
	Role         Role
	LastSeenAtMS int64
}

// WorkspaceMetadata is a read-only snapshot of a workspace's mutable state,
// safe to hand to callers outside the workspace lock.
type WorkspaceMetadata struct {
	Config                 WorkspaceConfig
	State                  State
	Participants           map[string]ParticipantInfo
	CurrentTemporalKeyID   string
	PreviousTemporalKeyID  string
	PreviousKeyExpiresAtMS int64
	NextRotationAtMS       int64
}
