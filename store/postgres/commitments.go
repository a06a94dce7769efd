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

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eecp-project/eecp/store"
)

// CommitmentStore implements store.CommitmentStore for PostgreSQL.
type CommitmentStore struct {
	db *pgxpool.Pool
}

func (c *CommitmentStore) Append(ctx context.Context, record store.CommitmentRecord) error {
	query := `
		INSERT INTO commitments (workspace_id, key_id, hash, valid_from_ms, valid_until_ms, timestamp_ms)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (workspace_id, key_id) DO NOTHING
	`

	cm := record.Commitment
	_, err := c.db.Exec(ctx, query,
		record.WorkspaceID,
		cm.KeyID,
		cm.Hash[:],
		cm.ValidFromMS,
		cm.ValidUntilMS,
		cm.TimestampMS,
	)
	if err != nil {
		return fmt.Errorf("failed to append commitment: %w", err)
	}
	return nil
}

func (c *CommitmentStore) ListByWorkspace(ctx context.Context, workspaceID string) ([]store.CommitmentRecord, error) {
	query := `
		SELECT workspace_id, key_id, hash, valid_from_ms, valid_until_ms, timestamp_ms
		FROM commitments
		WHERE workspace_id = $1
		ORDER BY timestamp_ms ASC, key_id ASC
	`

	rows, err := c.db.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list commitments: %w", err)
	}
	defer rows.Close()

	var out []store.CommitmentRecord
	for rows.Next() {
		rec, err := scanCommitmentRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating commitments: %w", err)
	}
	return out, nil
}

func (c *CommitmentStore) Find(ctx context.Context, workspaceID, keyID string) (store.CommitmentRecord, bool, error) {
	query := `
		SELECT workspace_id, key_id, hash, valid_from_ms, valid_until_ms, timestamp_ms
		FROM commitments
		WHERE workspace_id = $1 AND key_id = $2
	`

	row := c.db.QueryRow(ctx, query, workspaceID, keyID)
	rec, err := scanCommitmentRow(row)
	if err == pgx.ErrNoRows {
		return store.CommitmentRecord{}, false, nil
	}
	if err != nil {
		return store.CommitmentRecord{}, false, fmt.Errorf("failed to find commitment: %w", err)
	}
	return rec, true, nil
}

type commitmentScanner interface {
	Scan(dest ...any) error
}

func scanCommitmentRow(row commitmentScanner) (store.CommitmentRecord, error) {
	var rec store.CommitmentRecord
	var hash []byte

	err := row.Scan(
		&rec.WorkspaceID,
		&rec.Commitment.KeyID,
		&hash,
		&rec.Commitment.ValidFromMS,
		&rec.Commitment.ValidUntilMS,
		&rec.Commitment.TimestampMS,
	)
	if err != nil {
		return store.CommitmentRecord{}, err
	}
	copy(rec.Commitment.Hash[:], hash)
	return rec, nil
}
