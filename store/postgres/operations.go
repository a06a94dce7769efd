// SAGE - Secure Agent Guarantee Engine
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of SAGE.
//
// SAGE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SAGE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with SAGE. If not, see <https://www.gnu.org/licenses/>.

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eecp-project/eecp/crdt"
	"github.com/eecp-project/eecp/workspace"
)

// OperationStore implements store.OperationStore for PostgreSQL.
type OperationStore struct {
	db *pgxpool.Pool
}

func (o *OperationStore) Append(ctx context.Context, workspaceID string, op workspace.EncryptedOperation) error {
	query := `
		INSERT INTO operations (
			id, workspace_id, participant_id, timestamp_ms, pos,
			operation_type, key_id, nonce, ciphertext, signature
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := o.db.Exec(ctx, query,
		op.ID,
		workspaceID,
		op.ParticipantID,
		op.TimestampMS,
		op.Position,
		string(op.OperationType),
		op.EncryptedContent.KeyID,
		op.EncryptedContent.Nonce,
		op.EncryptedContent.Ciphertext,
		op.Signature,
	)
	if err != nil {
		return fmt.Errorf("failed to append operation: %w", err)
	}
	return nil
}

func (o *OperationStore) Since(ctx context.Context, workspaceID string, tsMS int64) ([]workspace.EncryptedOperation, error) {
	query := `
		SELECT id, participant_id, timestamp_ms, pos, operation_type, key_id, nonce, ciphertext, signature
		FROM operations
		WHERE workspace_id = $1 AND timestamp_ms >= $2
		ORDER BY timestamp_ms ASC, id ASC
	`

	rows, err := o.db.Query(ctx, query, workspaceID, tsMS)
	if err != nil {
		return nil, fmt.Errorf("failed to query operations: %w", err)
	}
	defer rows.Close()

	var out []workspace.EncryptedOperation
	for rows.Next() {
		var op workspace.EncryptedOperation
		var opType string

		err := rows.Scan(
			&op.ID,
			&op.ParticipantID,
			&op.TimestampMS,
			&op.Position,
			&opType,
			&op.EncryptedContent.KeyID,
			&op.EncryptedContent.Nonce,
			&op.EncryptedContent.Ciphertext,
			&op.Signature,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		op.WorkspaceID = workspaceID
		op.OperationType = crdt.OpType(opType)
		out = append(out, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating operations: %w", err)
	}
	return out, nil
}
