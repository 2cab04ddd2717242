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
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kraklabs/codegraph/pkg/schema"
)

// Neo4jStore implements Store on a Neo4j server. Units are :Unit nodes
// keyed by content-addressed id; structure uses :CONTAINS, imports use
// :IMPORTS to :Import nodes, and resolved calls use :CALLS. All statements
// are parameterized.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

// Neo4jConfig connects a Neo4jStore.
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string // empty means the server default
}

// NewNeo4jStore connects to Neo4j and verifies connectivity.
func NewNeo4jStore(ctx context.Context, cfg Neo4jConfig, logger *slog.Logger) (*Neo4jStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("connect to neo4j at %s: %w", cfg.URI, err)
	}
	return &Neo4jStore{driver: driver, database: cfg.Database, logger: logger}, nil
}

func (s *Neo4jStore) session(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
}

func (s *Neo4jStore) EnsureSchema(ctx context.Context) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	statements := []string{
		`CREATE CONSTRAINT unit_id IF NOT EXISTS FOR (u:Unit) REQUIRE u.id IS UNIQUE`,
		`CREATE INDEX unit_namespace IF NOT EXISTS FOR (u:Unit) ON (u.namespace)`,
		`CREATE INDEX unit_name IF NOT EXISTS FOR (u:Unit) ON (u.name)`,
	}
	for _, stmt := range statements {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *Neo4jStore) UpsertFile(ctx context.Context, load FileLoad) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	unitMaps := make([]map[string]any, 0, len(load.Units))
	containEdges := make([]map[string]any, 0, len(load.Units))
	moduleID := ""
	for _, u := range load.Units {
		unitMaps = append(unitMaps, unitToMap(u))
		if u.ParentID != "" {
			containEdges = append(containEdges, map[string]any{"parent": u.ParentID, "child": u.ID})
		}
		if u.Kind == schema.KindModule {
			moduleID = u.ID
		}
	}
	importMaps := make([]map[string]any, 0, len(load.Imports))
	for _, imp := range load.Imports {
		importMaps = append(importMaps, map[string]any{"path": imp.Path, "alias": imp.Alias})
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx,
			`UNWIND $units AS u
			 MERGE (n:Unit {id: u.id})
			 SET n = u`,
			map[string]any{"units": unitMaps}); err != nil {
			return nil, err
		}
		if len(containEdges) > 0 {
			if _, err := tx.Run(ctx,
				`UNWIND $edges AS e
				 MATCH (p:Unit {id: e.parent})
				 MATCH (c:Unit {id: e.child})
				 MERGE (p)-[:CONTAINS]->(c)`,
				map[string]any{"edges": containEdges}); err != nil {
				return nil, err
			}
		}
		if len(importMaps) > 0 && moduleID != "" {
			if _, err := tx.Run(ctx,
				`UNWIND $imports AS imp
				 MATCH (m:Unit {id: $module_id})
				 MERGE (i:Import {namespace: $namespace, path: imp.path})
				 MERGE (m)-[:IMPORTS]->(i)`,
				map[string]any{
					"imports":   importMaps,
					"module_id": moduleID,
					"namespace": load.Namespace,
				}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("upsert file %s: %w", load.FilePath, err)
	}
	return nil
}

func (s *Neo4jStore) UpsertCalls(ctx context.Context, edges []CallEdge) error {
	if len(edges) == 0 {
		return nil
	}
	session := s.session(ctx)
	defer session.Close(ctx)

	edgeMaps := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		edgeMaps = append(edgeMaps, map[string]any{"caller": e.CallerID, "callee": e.CalleeID})
	}

	// MATCH on both endpoints skips edges whose units are missing.
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx,
			`UNWIND $edges AS e
			 MATCH (a:Unit {id: e.caller})
			 MATCH (b:Unit {id: e.callee})
			 MERGE (a)-[:CALLS]->(b)`,
			map[string]any{"edges": edgeMaps})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("upsert calls: %w", err)
	}
	return nil
}

func (s *Neo4jStore) RecomputeEntryPoints(ctx context.Context, namespace string) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	where, params := namespaceWhere("u", namespace)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx,
			`MATCH (u:Unit) `+where+`
			 SET u.is_entry_point = coalesce(u.entry_hint, false) AND COUNT { (u)<-[:CALLS]-() } = 0`,
			params)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("recompute entry points: %w", err)
	}
	return nil
}

func (s *Neo4jStore) Unit(ctx context.Context, id string) (*schema.CodeUnit, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH (u:Unit {id: $id}) RETURN u`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("fetch unit: %w", err)
	}
	record, err := result.Single(ctx)
	if err != nil {
		return nil, nil // not found
	}
	u := unitFromRecord(record, "u")
	return &u, nil
}

func (s *Neo4jStore) Outgoing(ctx context.Context, id string, depth int) ([]Neighbor, error) {
	depth = clampDepth(depth)
	session := s.session(ctx)
	defer session.Close(ctx)

	// Depth bounds cannot be parameterized; depth is clamped to [1,3]
	// above so the interpolation is safe.
	query := fmt.Sprintf(
		`MATCH p = (a:Unit {id: $id})-[:CALLS*1..%d]->(b:Unit)
		 WHERE b.id <> $id
		 WITH b, min(length(p)) AS depth
		 RETURN b, depth
		 ORDER BY depth, b.id`, depth)
	result, err := session.Run(ctx, query, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("outgoing traversal: %w", err)
	}

	var out []Neighbor
	for result.Next(ctx) {
		record := result.Record()
		d, _ := record.Get("depth")
		depthVal, _ := d.(int64)
		out = append(out, Neighbor{Unit: unitFromRecord(record, "b"), Depth: int(depthVal)})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("outgoing traversal: %w", err)
	}
	return out, nil
}

func (s *Neo4jStore) Incoming(ctx context.Context, id string) ([]schema.CodeUnit, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH (c:Unit)-[:CALLS]->(u:Unit {id: $id})
		 RETURN c ORDER BY c.id`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("incoming callers: %w", err)
	}
	var callers []schema.CodeUnit
	for result.Next(ctx) {
		callers = append(callers, unitFromRecord(result.Record(), "c"))
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("incoming callers: %w", err)
	}
	return callers, nil
}

func (s *Neo4jStore) UnitsInNamespace(ctx context.Context, namespace string) ([]schema.CodeUnit, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	where, params := namespaceWhere("u", namespace)
	result, err := session.Run(ctx,
		`MATCH (u:Unit) `+where+` RETURN u ORDER BY u.id`, params)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	var units []schema.CodeUnit
	for result.Next(ctx) {
		units = append(units, unitFromRecord(result.Record(), "u"))
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	return units, nil
}

func (s *Neo4jStore) CountByNamespace(ctx context.Context) (map[string]int, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH (u:Unit) RETURN u.namespace AS ns, count(*) AS n`, nil)
	if err != nil {
		return nil, fmt.Errorf("count by namespace: %w", err)
	}
	counts := make(map[string]int)
	for result.Next(ctx) {
		record := result.Record()
		ns, _ := record.Get("ns")
		n, _ := record.Get("n")
		if nsStr, ok := ns.(string); ok {
			if count, ok := n.(int64); ok {
				counts[nsStr] = int(count)
			}
		}
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("count by namespace: %w", err)
	}
	return counts, nil
}

func (s *Neo4jStore) Purge(ctx context.Context, namespace string) (int, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	where, params := namespaceWhere("u", namespace)
	removed := 0
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx,
			`MATCH (u:Unit) `+where+`
			 DETACH DELETE u
			 RETURN count(u) AS removed`, params)
		if err != nil {
			return nil, err
		}
		record, err := result.Single(ctx)
		if err != nil {
			return nil, err
		}
		if n, ok := record.Values[0].(int64); ok {
			removed = int(n)
		}

		// Import nodes are namespaced too.
		iwhere, iparams := namespaceWhere("i", namespace)
		_, err = tx.Run(ctx, `MATCH (i:Import) `+iwhere+` DETACH DELETE i`, iparams)
		return nil, err
	})
	if err != nil {
		return 0, fmt.Errorf("purge namespace %s: %w", namespace, err)
	}
	return removed, nil
}

func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// namespaceWhere builds the WHERE clause for a namespace filter: exact
// match for qualified names, prefix match for unqualified, everything for
// empty.
func namespaceWhere(alias, namespace string) (string, map[string]any) {
	if namespace == "" {
		return "", map[string]any{}
	}
	if strings.Contains(namespace, ":") {
		return fmt.Sprintf("WHERE %s.namespace = $ns", alias), map[string]any{"ns": namespace}
	}
	return fmt.Sprintf("WHERE (%s.namespace = $ns OR %s.namespace STARTS WITH $ns_prefix)", alias, alias),
		map[string]any{"ns": namespace, "ns_prefix": namespace + ":"}
}

// unitToMap flattens a unit to Neo4j node properties.
func unitToMap(u schema.CodeUnit) map[string]any {
	params := make([]any, len(u.Parameters))
	for i, p := range u.Parameters {
		params[i] = p
	}
	return map[string]any{
		"id":             u.ID,
		"name":           u.Name,
		"kind":           string(u.Kind),
		"language":       string(u.Language),
		"namespace":      u.Namespace,
		"file_path":      u.FilePath,
		"line_start":     u.LineStart,
		"line_end":       u.LineEnd,
		"signature":      u.Signature,
		"parameters":     params,
		"docstring":      u.Docstring,
		"code":           u.Code,
		"parent_id":      u.ParentID,
		"entry_hint":     u.EntryHint,
		"is_entry_point": u.IsEntryPoint,
	}
}

// unitFromRecord reads a :Unit node out of a result record.
func unitFromRecord(record *neo4j.Record, key string) schema.CodeUnit {
	val, _ := record.Get(key)
	node, ok := val.(neo4j.Node)
	if !ok {
		return schema.CodeUnit{}
	}
	props := node.Props

	var params []string
	if raw, ok := props["parameters"].([]any); ok {
		for _, p := range raw {
			if s, ok := p.(string); ok {
				params = append(params, s)
			}
		}
	}
	return schema.CodeUnit{
		ID:           stringProp(props, "id"),
		Name:         stringProp(props, "name"),
		Kind:         schema.Kind(stringProp(props, "kind")),
		Language:     schema.Language(stringProp(props, "language")),
		Namespace:    stringProp(props, "namespace"),
		FilePath:     stringProp(props, "file_path"),
		LineStart:    intProp(props, "line_start"),
		LineEnd:      intProp(props, "line_end"),
		Signature:    stringProp(props, "signature"),
		Parameters:   params,
		Docstring:    stringProp(props, "docstring"),
		Code:         stringProp(props, "code"),
		ParentID:     stringProp(props, "parent_id"),
		EntryHint:    boolProp(props, "entry_hint"),
		IsEntryPoint: boolProp(props, "is_entry_point"),
	}
}

func stringProp(props map[string]any, key string) string {
	s, _ := props[key].(string)
	return s
}

func intProp(props map[string]any, key string) int {
	n, _ := props[key].(int64)
	return int(n)
}

func boolProp(props map[string]any, key string) bool {
	b, _ := props[key].(bool)
	return b
}
