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
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/kraklabs/codegraph/pkg/schema"
)

// Loader writes parse results to a Store in two phases: nodes first (one
// transaction per file), then CALLS edges once every unit in the run is
// known, then entry-point recomputation per namespace. The ordering
// guarantees CALLS endpoints always exist when edges are written.
type Loader struct {
	store  Store
	logger *slog.Logger
}

// NewLoader creates a loader.
func NewLoader(store Store, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{store: store, logger: logger}
}

// LoadResult summarizes one load run.
type LoadResult struct {
	Files          int `json:"files"`
	Units          int `json:"units"`
	CallEdges      int `json:"call_edges"`
	DroppedCallees int `json:"dropped_callees"`
}

// Load writes all parse results and resolves calls.
func (l *Loader) Load(ctx context.Context, results []*schema.ParseResult) (*LoadResult, error) {
	if err := l.store.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	out := &LoadResult{}
	namespaces := make(map[string]bool)

	// Phase 1: nodes and structural edges, one transaction per file.
	for _, res := range results {
		if res == nil || len(res.Units) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		load := FileLoad{
			FilePath:  res.FilePath,
			Namespace: res.Namespace,
			Units:     res.Units,
			Imports:   res.Imports,
		}
		if err := l.store.UpsertFile(ctx, load); err != nil {
			return nil, fmt.Errorf("load file %s: %w", res.FilePath, err)
		}
		out.Files++
		out.Units += len(res.Units)
		namespaces[res.Namespace] = true
	}

	// Phase 2: resolve and write CALLS edges.
	edges, dropped := ResolveCalls(results, l.logger)
	out.CallEdges = len(edges)
	out.DroppedCallees = dropped
	if err := l.store.UpsertCalls(ctx, edges); err != nil {
		return nil, err
	}

	// Phase 3: entry points depend on incoming CALLS, so they come last.
	for ns := range namespaces {
		if err := l.store.RecomputeEntryPoints(ctx, ns); err != nil {
			return nil, err
		}
	}

	l.logger.Info("graph.load.done",
		"files", out.Files,
		"units", out.Units,
		"call_edges", out.CallEdges,
		"dropped_callees", out.DroppedCallees,
	)
	return out, nil
}

// ResolveCalls turns textual callee paths into CALLS edges by name.
// Resolution never crosses a namespace. Within a namespace, a callee
// resolves to a unit in the caller's file first; otherwise candidates are
// matched namespace-wide by final path segment with deterministic
// tie-breaks: same kind as the caller first, then callable kinds over
// types, then the candidate whose file path is closest to the caller's,
// then the lexicographically smallest ID. Unresolvable callees are
// dropped silently and counted.
func ResolveCalls(results []*schema.ParseResult, logger *slog.Logger) ([]CallEdge, int) {
	if logger == nil {
		logger = slog.Default()
	}

	// name index per namespace, keyed by unit name.
	byNamespace := make(map[string]map[string][]schema.CodeUnit)
	for _, res := range results {
		if res == nil {
			continue
		}
		idx := byNamespace[res.Namespace]
		if idx == nil {
			idx = make(map[string][]schema.CodeUnit)
			byNamespace[res.Namespace] = idx
		}
		for _, u := range res.Units {
			idx[u.Name] = append(idx[u.Name], u)
		}
	}
	var edges []CallEdge
	seen := make(map[CallEdge]bool)
	dropped := 0

	for _, res := range results {
		if res == nil {
			continue
		}
		idx := byNamespace[res.Namespace]
		for _, caller := range res.Units {
			for _, callee := range caller.Callees {
				target := resolveOne(callee, caller, idx)
				if target == "" {
					dropped++
					continue
				}
				// Recursion produces a self-edge; kept deliberately.
				e := CallEdge{CallerID: caller.ID, CalleeID: target}
				if !seen[e] {
					seen[e] = true
					edges = append(edges, e)
				}
			}
		}
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].CallerID != edges[j].CallerID {
			return edges[i].CallerID < edges[j].CallerID
		}
		return edges[i].CalleeID < edges[j].CalleeID
	})
	return edges, dropped
}

// resolveOne resolves a single callee path for one caller. Returns the
// target unit ID or "".
func resolveOne(callee string, caller schema.CodeUnit, idx map[string][]schema.CodeUnit) string {
	name := callee
	if i := strings.LastIndexByte(callee, '.'); i >= 0 {
		name = callee[i+1:]
	}
	candidates := idx[name]
	if len(candidates) == 0 {
		return ""
	}

	// Same file wins outright.
	var inFile []schema.CodeUnit
	for _, c := range candidates {
		if c.FilePath == caller.FilePath {
			inFile = append(inFile, c)
		}
	}
	pool := candidates
	if len(inFile) > 0 {
		pool = inFile
	}
	if len(pool) == 1 {
		return pool[0].ID
	}

	// Same kind as the caller wins: method callers prefer methods,
	// function callers prefer functions.
	var sameKind []schema.CodeUnit
	for _, c := range pool {
		if c.Kind == caller.Kind {
			sameKind = append(sameKind, c)
		}
	}
	if len(sameKind) > 0 {
		pool = sameKind
	}
	if len(pool) == 1 {
		return pool[0].ID
	}

	// Callable kinds beat types and modules.
	var callable []schema.CodeUnit
	for _, c := range pool {
		if c.Kind == schema.KindFunction || c.Kind == schema.KindMethod {
			callable = append(callable, c)
		}
	}
	if len(callable) > 0 {
		pool = callable
	}
	if len(pool) == 1 {
		return pool[0].ID
	}

	// Closest file path, then smallest ID.
	best := pool[0]
	bestDist := editDistance(caller.FilePath, best.FilePath)
	for _, c := range pool[1:] {
		d := editDistance(caller.FilePath, c.FilePath)
		if d < bestDist || (d == bestDist && c.ID < best.ID) {
			best = c
			bestDist = d
		}
	}
	return best.ID
}

// editDistance is Levenshtein over bytes, used only as a proximity
// tie-break between file paths.
func editDistance(a, b string) int {
	if a == b {
		return 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min3(cur[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
