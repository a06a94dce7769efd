// Package ws implements the full-duplex wire protocol over WebSocket: a
// JSON MessageEnvelope carrying one of a fixed set of message types, plus
// the server and client bindings that speak it.
package ws

import (
	"encoding/json"

	"github.com/eecp-project/eecp/crypto/commitment"
	"github.com/eecp-project/eecp/crypto/recipients"
	"github.com/eecp-project/eecp/eecperr"
	"github.com/eecp-project/eecp/workspace"
)

// MessageType identifies an envelope's payload shape.
type MessageType string

const (
	TypeCreateWorkspace   MessageType = "create_workspace"
	TypeWorkspaceCreated  MessageType = "workspace_created"
	TypeAuthChallenge     MessageType = "auth_challenge"
	TypeAuthResponse      MessageType = "auth_response"
	TypeJoinAccepted      MessageType = "join_accepted"
	TypeOperation         MessageType = "operation"
	TypeKeyRotated        MessageType = "key_rotated"
	TypeParticipantJoined MessageType = "participant_joined"
	TypeParticipantLeft   MessageType = "participant_left"
	TypeWorkspaceExpired  MessageType = "workspace_expired"
	TypeError             MessageType = "error"
)

// MessageEnvelope is the wire format every message is carried in.
// ParticipantID is empty until a connection has completed the join
// handshake.
type MessageEnvelope struct {
	Type          MessageType     `json:"type"`
	WorkspaceID   string          `json:"workspaceId"`
	ParticipantID string          `json:"participantId,omitempty"`
	Payload       json.RawMessage `json:"payload"`
	TimestampMS   int64           `json:"timestamp"`
}

// CreateWorkspacePayload is the create_workspace payload (C->S). The server
// fills in ID and CreatedAtMS; the client supplies everything the deployer
// can configure via the CLI's create flags.
type CreateWorkspacePayload struct {
	DurationMinutes  int64  `json:"durationMinutes"`
	MaxParticipants  int    `json:"maxParticipants"`
	AllowExtension   bool   `json:"allowExtension"`
	HardCapMinutes   int64  `json:"hardCapMinutes"`
	CreatorPublicKey []byte `json:"creatorPublicKey"`
}

// WorkspaceCreatedPayload is the workspace_created payload (S->C).
type WorkspaceCreatedPayload struct {
	Config        workspace.WorkspaceConfig `json:"config"`
	ParticipantID string                    `json:"participantId"`
	WrappedSecret recipients.WrappedEntry   `json:"wrappedSecret"`
}

// JoinAcceptedPayload is the join_accepted payload (S->C).
type JoinAcceptedPayload struct {
	Metadata      workspace.WorkspaceMetadata `json:"metadata"`
	WrappedSecret recipients.WrappedEntry     `json:"wrappedSecret"`
}

// AuthChallengePayload is the auth_challenge payload (S->C).
type AuthChallengePayload struct {
	Challenge [32]byte `json:"challenge"`
}

// AuthResponsePayload is the auth_response payload (C->S).
type AuthResponsePayload struct {
	Signature []byte `json:"signature"`
	PublicKey []byte `json:"publicKey"`
}

// OperationPayload carries an EncryptedOperation in either direction.
type OperationPayload struct {
	Operation workspace.EncryptedOperation `json:"operation"`
}

// KeyRotatedPayload is the key_rotated payload (S->C).
type KeyRotatedPayload struct {
	NewKeyID               string `json:"newKeyId"`
	RotatedAtMS            int64  `json:"rotatedAt"`
	PreviousKeyExpiresAtMS int64  `json:"previousKeyExpiresAt"`
}

// ParticipantEventPayload is the participant_joined/_left payload (S->C).
// Joined events carry the full ParticipantInfo; left events carry only ID.
type ParticipantEventPayload struct {
	Participant *workspace.ParticipantInfo `json:"participant,omitempty"`
	ID          string                     `json:"id,omitempty"`
}

// WorkspaceExpiredPayload is the workspace_expired payload (S->C).
type WorkspaceExpiredPayload struct {
	Commitments []commitment.Commitment `json:"commitments"`
}

// ErrorPayload is the error payload (S->C): a short code and message, never
// key material or plaintext. It is eecperr.Wire under a wire-local name so
// this package's payload types are self-describing at a glance.
type ErrorPayload = eecperr.Wire
