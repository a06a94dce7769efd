package workspace

import (
	"context"

	"github.com/eecp-project/eecp/crypto/commitment"
)

// CommitmentPersister durably records a published deletion commitment.
// Implementations must tolerate being called again for a commitment
// already recorded (matching commitment.Log.Publish's own idempotence).
// A non-nil error is logged and otherwise ignored: the durable store is a
// supplement to commitment.Log, the in-memory log that already governs
// ExportWorkspaceHandler, never its replacement.
type CommitmentPersister func(ctx context.Context, workspaceID string, c commitment.Commitment) error

// OperationPersister durably records a routed encrypted operation.
// Implementations must tolerate being called again for an operation id
// already recorded. A non-nil error is logged and otherwise ignored: the
// in-memory opLog remains authoritative for OperationsSince while the
// workspace is live.
type OperationPersister func(ctx context.Context, workspaceID string, op EncryptedOperation) error

// SetPersistence wires durable persistence hooks into the workspace. Call
// before serving traffic; it is not safe for concurrent use with
// SubmitOperation or MaybeRotate. Passing nil for either hook disables
// that half of persistence, matching spec.md's "persisted state: none by
// design" default.
func (w *Workspace) SetPersistence(commitPersist CommitmentPersister, opPersist OperationPersister) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.commitPersist = commitPersist
	w.opPersist = opPersist
}
