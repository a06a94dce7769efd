package main

import (
	"context"
	"fmt"

	"github.com/eecp-project/eecp/config"
	"github.com/eecp-project/eecp/crypto/commitment"
	"github.com/eecp-project/eecp/store"
	"github.com/eecp-project/eecp/store/memory"
	"github.com/eecp-project/eecp/store/postgres"
	"github.com/eecp-project/eecp/workspace"
)

// newStore builds the durable commitment/operation store selected by
// cfg.Driver. "memory" (the default) matches spec.md's "persisted state:
// none by design"; "postgres" persists both across a process restart.
func newStore(ctx context.Context, cfg *config.StoreConfig) (store.Store, error) {
	if cfg == nil || cfg.Driver == "" || cfg.Driver == "memory" {
		return memory.NewStore(), nil
	}
	if cfg.Driver != "postgres" {
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	return postgres.NewStore(ctx, &postgres.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		Database: cfg.Database,
		SSLMode:  cfg.SSLMode,
	})
}

// storePersistence adapts a store.Store to the function-typed hooks
// workspace.Manager.SetPersistence expects, keeping the workspace package
// free of any import on the store package.
func storePersistence(st store.Store) (workspace.CommitmentPersister, workspace.OperationPersister) {
	commitPersist := func(ctx context.Context, workspaceID string, c commitment.Commitment) error {
		return st.Commitments().Append(ctx, store.CommitmentRecord{WorkspaceID: workspaceID, Commitment: c})
	}
	opPersist := func(ctx context.Context, workspaceID string, op workspace.EncryptedOperation) error {
		return st.Operations().Append(ctx, workspaceID, op)
	}
	return commitPersist, opPersist
}
