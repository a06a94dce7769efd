// Package memory implements store.Store with in-memory maps. This is the
// default store: it matches spec.md's "persisted state: none by design"
// exactly, since nothing here outlives the process.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/eecp-project/eecp/store"
	"github.com/eecp-project/eecp/workspace"
)

// Store implements store.Store in memory.
type Store struct {
	commitments *CommitmentStore
	operations  *OperationStore
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		commitments: &CommitmentStore{byWorkspace: make(map[string]map[string]store.CommitmentRecord)},
		operations:  &OperationStore{byWorkspace: make(map[string]map[string]workspace.EncryptedOperation)},
	}
}

func (s *Store) Commitments() store.CommitmentStore { return s.commitments }
func (s *Store) Operations() store.OperationStore   { return s.operations }
func (s *Store) Close() error                       { return nil }
func (s *Store) Ping(ctx context.Context) error     { return nil }

// CommitmentStore implements store.CommitmentStore.
type CommitmentStore struct {
	mu          sync.RWMutex
	byWorkspace map[string]map[string]store.CommitmentRecord // workspaceID -> keyID -> record
	order       map[string][]string                          // workspaceID -> keyIDs in publish order
}

func (c *CommitmentStore) Append(ctx context.Context, record store.CommitmentRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	keyID := record.Commitment.KeyID
	entries, ok := c.byWorkspace[record.WorkspaceID]
	if !ok {
		entries = make(map[string]store.CommitmentRecord)
		c.byWorkspace[record.WorkspaceID] = entries
	}
	if _, exists := entries[keyID]; exists {
		return nil
	}
	entries[keyID] = record
	if c.order == nil {
		c.order = make(map[string][]string)
	}
	c.order[record.WorkspaceID] = append(c.order[record.WorkspaceID], keyID)
	return nil
}

func (c *CommitmentStore) ListByWorkspace(ctx context.Context, workspaceID string) ([]store.CommitmentRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := c.byWorkspace[workspaceID]
	order := c.order[workspaceID]
	out := make([]store.CommitmentRecord, 0, len(order))
	for _, keyID := range order {
		out = append(out, entries[keyID])
	}
	return out, nil
}

func (c *CommitmentStore) Find(ctx context.Context, workspaceID, keyID string) (store.CommitmentRecord, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries, ok := c.byWorkspace[workspaceID]
	if !ok {
		return store.CommitmentRecord{}, false, nil
	}
	record, ok := entries[keyID]
	return record, ok, nil
}

// OperationStore implements store.OperationStore.
type OperationStore struct {
	mu          sync.RWMutex
	byWorkspace map[string]map[string]workspace.EncryptedOperation // workspaceID -> opID -> op
}

func (o *OperationStore) Append(ctx context.Context, workspaceID string, op workspace.EncryptedOperation) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	ops, ok := o.byWorkspace[workspaceID]
	if !ok {
		ops = make(map[string]workspace.EncryptedOperation)
		o.byWorkspace[workspaceID] = ops
	}
	if _, exists := ops[op.ID]; exists {
		return nil
	}
	ops[op.ID] = op
	return nil
}

func (o *OperationStore) Since(ctx context.Context, workspaceID string, tsMS int64) ([]workspace.EncryptedOperation, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	ops := o.byWorkspace[workspaceID]
	out := make([]workspace.EncryptedOperation, 0, len(ops))
	for _, op := range ops {
		if op.TimestampMS >= tsMS {
			out = append(out, op)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TimestampMS != out[j].TimestampMS {
			return out[i].TimestampMS < out[j].TimestampMS
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
