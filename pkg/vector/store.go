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

package vector

import (
	"context"
)

// Payload travels with every indexed point. OriginalID is the
// content-addressed unit ID and is the canonical join key back to the
// graph; the point's UUID is only a storage-level derivation of it.
type Payload struct {
	OriginalID  string `json:"original_id"`
	Namespace   string `json:"namespace"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Language    string `json:"language"`
	FilePath    string `json:"file_path"`
	LineStart   int    `json:"line_start"`
	LineEnd     int    `json:"line_end"`
	Signature   string `json:"signature"`
	CodeExcerpt string `json:"code_excerpt"`
}

// Point is one indexed unit: UUID-formatted ID, unit-normalized vector,
// and payload.
type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// Hit is one search result with its cosine similarity score.
type Hit struct {
	Payload Payload `json:"payload"`
	Score   float32 `json:"score"`
}

// Store is the vector backend contract.
type Store interface {
	// EnsureCollection creates the collection if absent; idempotent.
	EnsureCollection(ctx context.Context) error

	// Upsert writes points; an existing point ID is overwritten.
	Upsert(ctx context.Context, points []Point) error

	// Search returns the top-limit hits for a query vector, restricted by
	// namespace (exact for qualified names, prefix for unqualified, all
	// for empty), ordered by descending score.
	Search(ctx context.Context, vec []float32, namespace string, limit int) ([]Hit, error)

	// Count returns the number of points whose namespace matches.
	Count(ctx context.Context, namespace string) (int, error)

	// DeleteByNamespace removes all points whose namespace matches.
	DeleteByNamespace(ctx context.Context, namespace string) error

	// Close releases backend resources.
	Close(ctx context.Context) error
}
