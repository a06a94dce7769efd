package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eecp-project/eecp/crdt"
	"github.com/eecp-project/eecp/crypto/keys"
	"github.com/eecp-project/eecp/crypto/temporal"
	"github.com/eecp-project/eecp/transport/ws"
)

func newTestSession(t *testing.T) *liveSession {
	t.Helper()
	kp, err := keys.Generate()
	require.NoError(t, err)

	return &liveSession{
		identity:      kp,
		secret:        make([]byte, temporal.SecretLength),
		timeWindow:    temporal.TimeWindow{StartTimeMS: 0, EndTimeMS: 1_000_000_000, RotationInterval: 5, GracePeriodMS: 60_000},
		createdAtMS:   0,
		workspaceID:   "workspace-1",
		participantID: "participant-1",
		doc:           crdt.NewDocument(),
	}
}

func TestBuildOperationInsertRoundTrips(t *testing.T) {
	s := newTestSession(t)

	op, err := s.buildOperation(crdt.OpInsert, 0, 0, []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, s.workspaceID, op.WorkspaceID)
	require.Equal(t, s.participantID, op.ParticipantID)
	require.NotEmpty(t, op.Signature)

	raw, err := json.Marshal(ws.OperationPayload{Operation: op})
	require.NoError(t, err)
	env := ws.MessageEnvelope{Type: ws.TypeOperation, Payload: raw}

	require.NoError(t, s.decryptAndApply(env))
	require.Equal(t, "hello", s.doc.GetText())
}

func TestBuildOperationDeleteRoundTrips(t *testing.T) {
	s := newTestSession(t)

	insertOp, err := s.buildOperation(crdt.OpInsert, 0, 0, []byte("hello world"))
	require.NoError(t, err)
	// Both operations are built within the same millisecond; back-date the
	// insert so the canonical (timestamp, id) replay order puts it first.
	require.NoError(t, s.doc.Apply(crdt.Operation{
		ID: insertOp.ID, ParticipantID: insertOp.ParticipantID, TimestampMS: insertOp.TimestampMS - 1,
		Type: crdt.OpInsert, Position: 0, Content: "hello world",
	}))

	deleteOp, err := s.buildOperation(crdt.OpDelete, 5, 6, []byte{0, 0, 0, 0, 0, 0, 0, 6})
	require.NoError(t, err)

	raw, err := json.Marshal(ws.OperationPayload{Operation: deleteOp})
	require.NoError(t, err)
	env := ws.MessageEnvelope{Type: ws.TypeOperation, Payload: raw}

	require.NoError(t, s.decryptAndApply(env))
	require.Equal(t, "hello", s.doc.GetText())
}

func TestBuildOperationInsertAppliesLocally(t *testing.T) {
	s := newTestSession(t)
	op, err := s.buildOperation(crdt.OpInsert, 0, 0, []byte("x"))
	require.NoError(t, err)
	require.NoError(t, s.doc.Apply(crdt.Operation{
		ID: op.ID, ParticipantID: op.ParticipantID, TimestampMS: op.TimestampMS,
		Type: crdt.OpInsert, Position: 0, Content: "x",
	}))
	require.Equal(t, "x", s.doc.GetText())
}
