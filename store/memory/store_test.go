package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eecp-project/eecp/crypto/commitment"
	"github.com/eecp-project/eecp/store"
	"github.com/eecp-project/eecp/workspace"
)

func TestCommitmentStoreAppendAndList(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	c1 := commitment.Commitment{KeyID: "key-0", ValidFromMS: 0, ValidUntilMS: 300_000, TimestampMS: 300_500}
	c2 := commitment.Commitment{KeyID: "key-1", ValidFromMS: 300_000, ValidUntilMS: 600_000, TimestampMS: 600_500}

	require.NoError(t, s.Commitments().Append(ctx, store.CommitmentRecord{WorkspaceID: "ws-1", Commitment: c1}))
	require.NoError(t, s.Commitments().Append(ctx, store.CommitmentRecord{WorkspaceID: "ws-1", Commitment: c2}))

	list, err := s.Commitments().ListByWorkspace(ctx, "ws-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "key-0", list[0].Commitment.KeyID)
	require.Equal(t, "key-1", list[1].Commitment.KeyID)

	found, ok, err := s.Commitments().Find(ctx, "ws-1", "key-0")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, c1, found.Commitment)

	_, ok, err = s.Commitments().Find(ctx, "ws-1", "key-missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCommitmentStoreAppendIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	c := commitment.Commitment{KeyID: "key-0", ValidFromMS: 0, ValidUntilMS: 300_000, TimestampMS: 300_500}
	require.NoError(t, s.Commitments().Append(ctx, store.CommitmentRecord{WorkspaceID: "ws-1", Commitment: c}))
	require.NoError(t, s.Commitments().Append(ctx, store.CommitmentRecord{WorkspaceID: "ws-1", Commitment: c}))

	list, err := s.Commitments().ListByWorkspace(ctx, "ws-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestOperationStoreAppendAndSince(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	op1 := workspace.EncryptedOperation{ID: "op-1", WorkspaceID: "ws-1", TimestampMS: 1_000}
	op2 := workspace.EncryptedOperation{ID: "op-2", WorkspaceID: "ws-1", TimestampMS: 2_000}

	require.NoError(t, s.Operations().Append(ctx, "ws-1", op1))
	require.NoError(t, s.Operations().Append(ctx, "ws-1", op2))

	all, err := s.Operations().Since(ctx, "ws-1", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "op-1", all[0].ID)
	require.Equal(t, "op-2", all[1].ID)

	recent, err := s.Operations().Since(ctx, "ws-1", 1_500)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, "op-2", recent[0].ID)
}

func TestOperationStoreAppendIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	op := workspace.EncryptedOperation{ID: "op-1", WorkspaceID: "ws-1", TimestampMS: 1_000}
	require.NoError(t, s.Operations().Append(ctx, "ws-1", op))
	require.NoError(t, s.Operations().Append(ctx, "ws-1", op))

	all, err := s.Operations().Since(ctx, "ws-1", 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestStorePingAndClose(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())
}
