package main

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eecp-project/eecp/crdt"
	"github.com/eecp-project/eecp/crypto/keys"
	"github.com/eecp-project/eecp/crypto/temporal"
	"github.com/eecp-project/eecp/crypto/timelock"
	"github.com/eecp-project/eecp/transport/ws"
	"github.com/eecp-project/eecp/workspace"
)

// liveSession binds a ws.Client to the local cryptographic and CRDT state
// a participant needs to actually edit a document: the workspace secret
// (for deriving temporal keys), the workspace's rotation schedule (for
// picking the current key id), and a Document that converges from both
// locally submitted and server-relayed operations.
type liveSession struct {
	client        *ws.Client
	identity      *keys.KeyPair
	secret        []byte
	timeWindow    temporal.TimeWindow
	createdAtMS   int64
	workspaceID   string
	participantID string
	doc           *crdt.Document
}

// Insert builds, encrypts, signs and submits an insert operation, then
// applies it to the local document immediately (the server never echoes
// a sender's own operation back to them).
func (s *liveSession) Insert(position int, content string) error {
	op, err := s.buildOperation(crdt.OpInsert, position, 0, []byte(content))
	if err != nil {
		return err
	}
	return s.submit(op, crdt.Operation{
		ID: op.ID, ParticipantID: op.ParticipantID, TimestampMS: op.TimestampMS,
		Type: crdt.OpInsert, Position: position, Content: content,
	})
}

// Delete builds, encrypts, signs and submits a delete operation.
func (s *liveSession) Delete(position, length int) error {
	var lenBytes [8]byte
	binary.BigEndian.PutUint64(lenBytes[:], uint64(length))
	op, err := s.buildOperation(crdt.OpDelete, position, length, lenBytes[:])
	if err != nil {
		return err
	}
	return s.submit(op, crdt.Operation{
		ID: op.ID, ParticipantID: op.ParticipantID, TimestampMS: op.TimestampMS,
		Type: crdt.OpDelete, Position: position, Length: length,
	})
}

func (s *liveSession) buildOperation(opType crdt.OpType, position, length int, plaintext []byte) (workspace.EncryptedOperation, error) {
	nowMS := time.Now().UnixMilli()
	keyID := temporal.GetCurrentKeyID(s.createdAtMS, nowMS, s.timeWindow.RotationInterval)
	key, err := temporal.DeriveKey(s.secret, s.timeWindow, keyID)
	if err != nil {
		return workspace.EncryptedOperation{}, fmt.Errorf("derive temporal key: %w", err)
	}

	payload, err := timelock.Encrypt(plaintext, key, nil)
	if err != nil {
		return workspace.EncryptedOperation{}, fmt.Errorf("encrypt operation: %w", err)
	}

	op := workspace.EncryptedOperation{
		ID:               uuid.NewString(),
		WorkspaceID:      s.workspaceID,
		ParticipantID:    s.participantID,
		TimestampMS:      nowMS,
		Position:         position,
		OperationType:    opType,
		EncryptedContent: payload,
	}
	sig, err := op.Sign(s.identity)
	if err != nil {
		return workspace.EncryptedOperation{}, fmt.Errorf("sign operation: %w", err)
	}
	op.Signature = sig
	return op, nil
}

func (s *liveSession) submit(op workspace.EncryptedOperation, local crdt.Operation) error {
	if err := s.client.SubmitOperation(ws.OperationPayload{Operation: op}); err != nil {
		return err
	}
	return s.doc.Apply(local)
}

// decryptAndApply turns a server-relayed operation envelope back into a
// crdt.Operation and merges it into the local document.
func (s *liveSession) decryptAndApply(env ws.MessageEnvelope) error {
	var payload ws.OperationPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return fmt.Errorf("decode operation envelope: %w", err)
	}
	op := payload.Operation

	key, err := temporal.DeriveKey(s.secret, s.timeWindow, op.EncryptedContent.KeyID)
	if err != nil {
		return fmt.Errorf("derive temporal key for %s: %w", op.EncryptedContent.KeyID, err)
	}
	plaintext, err := timelock.Decrypt(op.EncryptedContent, key, nil)
	if err != nil {
		return fmt.Errorf("decrypt operation: %w", err)
	}

	local := crdt.Operation{
		ID:            op.ID,
		ParticipantID: op.ParticipantID,
		TimestampMS:   op.TimestampMS,
		Type:          op.OperationType,
		Position:      op.Position,
	}
	switch op.OperationType {
	case crdt.OpInsert:
		local.Content = string(plaintext)
	case crdt.OpDelete:
		if len(plaintext) != 8 {
			return fmt.Errorf("malformed delete payload")
		}
		local.Length = int(binary.BigEndian.Uint64(plaintext))
	}
	return s.doc.Apply(local)
}
