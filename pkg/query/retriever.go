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

package query

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kraklabs/codegraph/pkg/embed"
	"github.com/kraklabs/codegraph/pkg/graph"
	"github.com/kraklabs/codegraph/pkg/vector"
)

// Retriever fuses vector search with graph traversal.
type Retriever struct {
	vectors  vector.Store
	graph    graph.Store
	provider embed.Provider
	logger   *slog.Logger

	// Docs is the documentation collection. Nil disables documentation
	// retrieval.
	Docs vector.Store
}

// NewRetriever creates a retriever.
func NewRetriever(vectors vector.Store, graphStore graph.Store, provider embed.Provider, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{vectors: vectors, graph: graphStore, provider: provider, logger: logger}
}

// SearchCode embeds the question and returns the top-k vector hits in the
// namespace.
func (r *Retriever) SearchCode(ctx context.Context, question, namespace string, k int) ([]vector.Hit, error) {
	vecs, err := r.provider.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embed question: empty result")
	}
	hits, err := r.vectors.Search(ctx, vecs[0], namespace, k)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("query.retrieve.vector", "namespace", namespace, "k", k, "hits", len(hits))
	return hits, nil
}

// SearchDocs embeds the question and returns the top-k hits from the
// documentation collection. Returns nil hits when no collection is
// configured.
func (r *Retriever) SearchDocs(ctx context.Context, question string, k int) ([]vector.Hit, error) {
	if r.Docs == nil {
		return nil, nil
	}
	vecs, err := r.provider.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embed question: empty result")
	}
	hits, err := r.Docs.Search(ctx, vecs[0], "", k)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("query.retrieve.docs", "k", k, "hits", len(hits))
	return hits, nil
}

// CallContext is the graph neighborhood of one unit.
type CallContext struct {
	UnitID   string           `json:"unit_id"`
	Callees  []graph.Neighbor `json:"callees,omitempty"`
	Callers  []string         `json:"callers,omitempty"` // caller names
}

// Expand returns the CALLS neighborhood of a unit: outgoing within depth
// hops and direct callers. Unknown IDs yield an empty context, not an
// error; vector hits can outlive graph purges.
func (r *Retriever) Expand(ctx context.Context, unitID string, depth int) (*CallContext, error) {
	cc := &CallContext{UnitID: unitID}

	u, err := r.graph.Unit(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return cc, nil
	}

	cc.Callees, err = r.graph.Outgoing(ctx, unitID, depth)
	if err != nil {
		return nil, err
	}
	callers, err := r.graph.Incoming(ctx, unitID)
	if err != nil {
		return nil, err
	}
	for _, c := range callers {
		cc.Callers = append(cc.Callers, c.Name)
	}
	return cc, nil
}
