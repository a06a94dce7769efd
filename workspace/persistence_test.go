package workspace

import (
	"context"
	"testing"

	"github.com/eecp-project/eecp/crypto/commitment"
	"github.com/eecp-project/eecp/crypto/keys"
	"github.com/stretchr/testify/require"
)

// recordingPersister captures every hook invocation for assertion.
type recordingPersister struct {
	commitments []commitment.Commitment
	operations  []EncryptedOperation
}

func (r *recordingPersister) commitPersist(ctx context.Context, workspaceID string, c commitment.Commitment) error {
	r.commitments = append(r.commitments, c)
	return nil
}

func (r *recordingPersister) opPersist(ctx context.Context, workspaceID string, op EncryptedOperation) error {
	r.operations = append(r.operations, op)
	return nil
}

func TestSubmitOperationPersistsThroughHook(t *testing.T) {
	ws, err := New(testConfig(2), newSecret(t), DefaultRateLimitConfig())
	require.NoError(t, err)
	rec := &recordingPersister{}
	ws.SetPersistence(rec.commitPersist, rec.opPersist)

	kp, err := keys.Generate()
	require.NoError(t, err)
	_, _, err = ws.Admit("creator", kp.PublicKeyBytes(), createdAtMS)
	require.NoError(t, err)

	op := EncryptedOperation{ID: "op-1", ParticipantID: "creator", TimestampMS: createdAtMS}
	sig, err := op.Sign(kp)
	require.NoError(t, err)
	op.Signature = sig

	require.NoError(t, ws.SubmitOperation(op, createdAtMS))
	require.Len(t, rec.operations, 1)
	require.Equal(t, "op-1", rec.operations[0].ID)
}

func TestRotationPersistsCommitmentThroughHook(t *testing.T) {
	ws, err := New(testConfig(2), newSecret(t), DefaultRateLimitConfig())
	require.NoError(t, err)
	rec := &recordingPersister{}
	ws.SetPersistence(rec.commitPersist, rec.opPersist)

	kp, err := keys.Generate()
	require.NoError(t, err)
	_, _, err = ws.Admit("creator", kp.PublicKeyBytes(), createdAtMS)
	require.NoError(t, err)

	ws.MaybeRotate(createdAtMS + 300_000)
	graceEnd := ws.Snapshot().PreviousKeyExpiresAtMS
	ws.MaybeRotate(graceEnd)

	require.Len(t, rec.commitments, 1)
	require.Equal(t, "key-0", rec.commitments[0].KeyID)
}

func TestNilPersistenceHooksAreNoOp(t *testing.T) {
	ws, err := New(testConfig(2), newSecret(t), DefaultRateLimitConfig())
	require.NoError(t, err)

	kp, err := keys.Generate()
	require.NoError(t, err)
	_, _, err = ws.Admit("creator", kp.PublicKeyBytes(), createdAtMS)
	require.NoError(t, err)

	op := EncryptedOperation{ID: "op-1", ParticipantID: "creator", TimestampMS: createdAtMS}
	sig, err := op.Sign(kp)
	require.NoError(t, err)
	op.Signature = sig

	require.NoError(t, ws.SubmitOperation(op, createdAtMS))
	ws.MaybeRotate(createdAtMS + 300_000)
}
