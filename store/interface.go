// Package store defines durable, append-only persistence for commitments
// and encrypted operations, independent of a workspace's in-memory
// lifecycle. Every write here is optional by construction: a deployment
// running the in-memory implementation behaves exactly as spec.md's
// "persisted state: none by design" describes, while a deployment that
// wants commitments and operation history to survive a process restart
// can swap in the Postgres implementation without the workspace package
// knowing the difference.
//
// Neither store ever sees plaintext or key material: a CommitmentRecord
// carries only what commitment.Commitment already exposes (a hash, not a
// key), and an OperationRecord carries only the already-AEAD-sealed
// EncryptedOperation.
package store

import (
	"context"

	"github.com/eecp-project/eecp/crypto/commitment"
	"github.com/eecp-project/eecp/workspace"
)

// CommitmentRecord is a durable commitment entry scoped to a workspace.
type CommitmentRecord struct {
	WorkspaceID string
	Commitment  commitment.Commitment
}

// CommitmentStore persists published commitments. Writes are append-only:
// there is deliberately no Update or Delete, matching commitment.Log's own
// append-only contract.
type CommitmentStore interface {
	// Append records a commitment for a workspace. Appending the same
	// (workspaceID, KeyID) pair twice is a no-op on the second call,
	// matching commitment.Log.Publish's idempotence.
	Append(ctx context.Context, record CommitmentRecord) error

	// ListByWorkspace returns every commitment published for a workspace,
	// in publish order.
	ListByWorkspace(ctx context.Context, workspaceID string) ([]CommitmentRecord, error)

	// Find returns the commitment for a given workspace and key id, if any.
	Find(ctx context.Context, workspaceID, keyID string) (CommitmentRecord, bool, error)
}

// OperationStore persists encrypted CRDT operations for a workspace. The
// server only writes to it: Workspace.OperationsSince serves from the
// in-memory log and does not read this store, so it does not survive a
// server restart. It never stores plaintext: EncryptedOperation carries
// only AEAD ciphertext and a signature.
type OperationStore interface {
	// Append records an operation. Appending an operation with an ID
	// already present for the workspace is a no-op, matching
	// Workspace.SubmitOperation's own idempotence.
	Append(ctx context.Context, workspaceID string, op workspace.EncryptedOperation) error

	// Since returns every operation recorded for a workspace with
	// TimestampMS >= tsMS, ordered by (TimestampMS, ID).
	Since(ctx context.Context, workspaceID string, tsMS int64) ([]workspace.EncryptedOperation, error)
}

// Store bundles both stores behind a single connection/lifecycle.
type Store interface {
	Commitments() CommitmentStore
	Operations() OperationStore

	// Close releases any underlying connection. A no-op for the
	// in-memory implementation.
	Close() error

	// Ping checks connectivity. Always succeeds for the in-memory
	// implementation.
	Ping(ctx context.Context) error
}
