// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package graph

import (
	"context"

	"github.com/kraklabs/codegraph/pkg/schema"
)

// FileLoad is the unit batch for one source file, written atomically: all
// units plus their CONTAINS and IMPORTS edges commit in one transaction or
// not at all.
type FileLoad struct {
	FilePath  string
	Namespace string
	Units     []schema.CodeUnit
	Imports   []schema.ImportRef
}

// CallEdge is a resolved CALLS relationship between two stored units.
type CallEdge struct {
	CallerID string `json:"caller_id"`
	CalleeID string `json:"callee_id"`
}

// Neighbor is one unit reached by traversal, with the distance from the
// origin (1..depth).
type Neighbor struct {
	Unit  schema.CodeUnit `json:"unit"`
	Depth int             `json:"depth"`
}

// Store is the graph backend contract. Implementations must be safe for
// concurrent use.
type Store interface {
	// EnsureSchema creates constraints and indexes; idempotent.
	EnsureSchema(ctx context.Context) error

	// UpsertFile writes one file's units and structural edges in a single
	// transaction. Re-upserting the same file is idempotent: unit IDs are
	// content-addressed, so unchanged units overwrite themselves.
	UpsertFile(ctx context.Context, load FileLoad) error

	// UpsertCalls writes resolved CALLS edges. Both endpoints must already
	// exist; edges whose endpoints are missing are skipped, not errors.
	UpsertCalls(ctx context.Context, edges []CallEdge) error

	// RecomputeEntryPoints derives is_entry_point for every unit in the
	// namespace: entry hint AND no incoming CALLS edge.
	RecomputeEntryPoints(ctx context.Context, namespace string) error

	// Unit fetches one unit by ID.
	Unit(ctx context.Context, id string) (*schema.CodeUnit, error)

	// Outgoing returns units reachable over CALLS from id within depth
	// hops (1 <= depth <= 3), deduplicated by terminal unit at minimum
	// depth. The origin itself is excluded.
	Outgoing(ctx context.Context, id string, depth int) ([]Neighbor, error)

	// Incoming returns the direct callers of id.
	Incoming(ctx context.Context, id string) ([]schema.CodeUnit, error)

	// UnitsInNamespace returns all units whose namespace matches the
	// filter (exact for qualified, prefix for unqualified).
	UnitsInNamespace(ctx context.Context, namespace string) ([]schema.CodeUnit, error)

	// CountByNamespace returns unit counts keyed by namespace.
	CountByNamespace(ctx context.Context) (map[string]int, error)

	// Purge deletes every unit and edge in the namespace (exact match for
	// qualified names, prefix for unqualified). Returns the number of
	// units removed.
	Purge(ctx context.Context, namespace string) (int, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}
