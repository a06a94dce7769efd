// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package crdt

import (
	"strings"
	"sync"
)

// Document is a sequence CRDT over insert/delete operations. Convergence is
// achieved by recomputing the text from the full set of merged operations
// in canonical order (timestamp asc, id asc) rather than applying each
// operation incrementally against a replica-local cursor: since every
// replica eventually holds the same operation set and replays it in the
// same order, getText() is byte-identical across replicas regardless of
// arrival order or permutation (invariant 6).
type Document struct {
	history *History

	mu       sync.Mutex
	dirty    bool
	cached   string
	appliedN int
}

// NewDocument creates an empty document backed by a fresh History.
func NewDocument() *Document {
	return &Document{history: NewHistory(), dirty: true}
}

// History returns the underlying operation history, e.g. for broadcasting
// GetOperationsSince to peers.
func (d *Document) History() *History { return d.history }

// Apply validates and merges a single operation, then marks the cached
// text stale. Applying the same operation id twice is a no-op (idempotent).
func (d *Document) Apply(op Operation) error {
	if err := op.Validate(); err != nil {
		return err
	}
	d.history.MergeOperations([]Operation{op})
	d.mu.Lock()
	d.dirty = true
	d.mu.Unlock()
	return nil
}

// Merge folds a batch of remote operations into the document, e.g. the
// result of a peer's GetOperationsSince.
func (d *Document) Merge(ops []Operation) []error {
	errs := d.history.MergeOperations(ops)
	d.mu.Lock()
	d.dirty = true
	d.mu.Unlock()
	return errs
}

// GetText returns the current converged text, recomputing it from the
// operation history if new operations were applied since the last call.
func (d *Document) GetText() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	ops := d.history.All()
	if !d.dirty && d.appliedN == len(ops) {
		return d.cached
	}

	d.cached = replay(ops)
	d.appliedN = len(ops)
	d.dirty = false
	return d.cached
}

// replay rebuilds text from scratch by applying ops, already in canonical
// order, to an initially empty buffer. Positions are clamped to the
// current buffer length so concurrent operations from a partial view never
// panic or silently diverge: inserts past the end append, and deletes
// shrink to whatever remains (delete-from-empty is a no-op).
func replay(ops []Operation) string {
	var b strings.Builder
	buf := []rune{}

	for _, op := range ops {
		switch op.Type {
		case OpInsert:
			pos := clamp(op.Position, 0, len(buf))
			content := []rune(op.Content)
			out := make([]rune, 0, len(buf)+len(content))
			out = append(out, buf[:pos]...)
			out = append(out, content...)
			out = append(out, buf[pos:]...)
			buf = out
		case OpDelete:
			pos := clamp(op.Position, 0, len(buf))
			end := clamp(pos+op.Length, pos, len(buf))
			buf = append(buf[:pos], buf[end:]...)
		}
	}

	b.Grow(len(buf))
	for _, r := range buf {
		b.WriteRune(r)
	}
	return b.String()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
