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
	"sort"
	"sync"

	"github.com/kraklabs/codegraph/pkg/schema"
)

// MemoryStore is an in-process Store for tests and dry runs. It mirrors
// the Neo4j implementation's semantics, including entry-point derivation
// and traversal dedup.
type MemoryStore struct {
	mu       sync.RWMutex
	units    map[string]schema.CodeUnit
	outgoing map[string]map[string]bool // caller -> callees
	incoming map[string]map[string]bool // callee -> callers
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		units:    make(map[string]schema.CodeUnit),
		outgoing: make(map[string]map[string]bool),
		incoming: make(map[string]map[string]bool),
	}
}

func (s *MemoryStore) EnsureSchema(ctx context.Context) error { return nil }

func (s *MemoryStore) UpsertFile(ctx context.Context, load FileLoad) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range load.Units {
		if u.ID == "" {
			return fmt.Errorf("unit %q has empty ID", u.Name)
		}
		s.units[u.ID] = u
	}
	return nil
}

func (s *MemoryStore) UpsertCalls(ctx context.Context, edges []CallEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range edges {
		if _, ok := s.units[e.CallerID]; !ok {
			continue
		}
		if _, ok := s.units[e.CalleeID]; !ok {
			continue
		}
		if s.outgoing[e.CallerID] == nil {
			s.outgoing[e.CallerID] = make(map[string]bool)
		}
		s.outgoing[e.CallerID][e.CalleeID] = true
		if s.incoming[e.CalleeID] == nil {
			s.incoming[e.CalleeID] = make(map[string]bool)
		}
		s.incoming[e.CalleeID][e.CallerID] = true
	}
	return nil
}

func (s *MemoryStore) RecomputeEntryPoints(ctx context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.units {
		if !schema.NamespaceMatches(u.Namespace, namespace) {
			continue
		}
		u.IsEntryPoint = u.EntryHint && len(s.incoming[id]) == 0
		s.units[id] = u
	}
	return nil
}

func (s *MemoryStore) Unit(ctx context.Context, id string) (*schema.CodeUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.units[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *MemoryStore) Outgoing(ctx context.Context, id string, depth int) ([]Neighbor, error) {
	depth = clampDepth(depth)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.units[id]; !ok {
		return nil, nil
	}

	// BFS records each terminal at its minimum depth.
	seen := map[string]int{id: 0}
	frontier := []string{id}
	for d := 1; d <= depth; d++ {
		var next []string
		for _, cur := range frontier {
			for callee := range s.outgoing[cur] {
				if _, ok := seen[callee]; ok {
					continue
				}
				seen[callee] = d
				next = append(next, callee)
			}
		}
		frontier = next
	}

	var out []Neighbor
	for uid, d := range seen {
		if uid == id {
			continue
		}
		out = append(out, Neighbor{Unit: s.units[uid], Depth: d})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Depth != out[j].Depth {
			return out[i].Depth < out[j].Depth
		}
		return out[i].Unit.ID < out[j].Unit.ID
	})
	return out, nil
}

func (s *MemoryStore) Incoming(ctx context.Context, id string) ([]schema.CodeUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var callers []schema.CodeUnit
	for callerID := range s.incoming[id] {
		callers = append(callers, s.units[callerID])
	}
	sort.Slice(callers, func(i, j int) bool { return callers[i].ID < callers[j].ID })
	return callers, nil
}

func (s *MemoryStore) UnitsInNamespace(ctx context.Context, namespace string) ([]schema.CodeUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []schema.CodeUnit
	for _, u := range s.units {
		if schema.NamespaceMatches(u.Namespace, namespace) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CountByNamespace(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for _, u := range s.units {
		counts[u.Namespace]++
	}
	return counts, nil
}

func (s *MemoryStore) Purge(ctx context.Context, namespace string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, u := range s.units {
		if !schema.NamespaceMatches(u.Namespace, namespace) {
			continue
		}
		delete(s.units, id)
		removed++
		for callee := range s.outgoing[id] {
			delete(s.incoming[callee], id)
		}
		delete(s.outgoing, id)
		for caller := range s.incoming[id] {
			delete(s.outgoing[caller], id)
		}
		delete(s.incoming, id)
	}
	return removed, nil
}

func (s *MemoryStore) Close(ctx context.Context) error { return nil }

// clampDepth bounds traversal depth to [1, 3].
func clampDepth(depth int) int {
	if depth < 1 {
		return 1
	}
	if depth > 3 {
		return 3
	}
	return depth
}
