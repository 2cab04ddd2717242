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
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// DefaultClass is the Weaviate class for indexed code units.
const DefaultClass = "CodeUnit"

// upsertBatchSize is the number of objects per batch import.
const upsertBatchSize = 100

// WeaviateConfig connects a WeaviateStore.
type WeaviateConfig struct {
	Host   string // host:port
	Scheme string // http or https
	Class  string // empty means DefaultClass
}

// WeaviateStore implements Store on Weaviate. Vectors are supplied
// externally (vectorizer "none"); points carry deterministic UUIDs so
// re-upserts overwrite in place.
type WeaviateStore struct {
	client *weaviate.Client
	class  string
	logger *slog.Logger
}

// NewWeaviateStore creates a Weaviate-backed store.
func NewWeaviateStore(cfg WeaviateConfig, logger *slog.Logger) (*WeaviateStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Host == "" {
		cfg.Host = "localhost:8080"
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}
	if cfg.Class == "" {
		cfg.Class = DefaultClass
	}
	client, err := weaviate.NewClient(weaviate.Config{Host: cfg.Host, Scheme: cfg.Scheme})
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}
	return &WeaviateStore{client: client, class: cfg.Class, logger: logger}, nil
}

// classSchema is the collection definition: filterable identity fields,
// word-tokenized text fields, vectors supplied by the caller.
func (s *WeaviateStore) classSchema() *models.Class {
	filterable := true
	return &models.Class{
		Class:      s.class,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "originalId", DataType: []string{"text"}, IndexFilterable: &filterable, Tokenization: "field"},
			{Name: "namespace", DataType: []string{"text"}, IndexFilterable: &filterable, Tokenization: "field"},
			{Name: "name", DataType: []string{"text"}, Tokenization: "word"},
			{Name: "kind", DataType: []string{"text"}, IndexFilterable: &filterable, Tokenization: "field"},
			{Name: "language", DataType: []string{"text"}, IndexFilterable: &filterable, Tokenization: "field"},
			{Name: "filePath", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "lineStart", DataType: []string{"int"}},
			{Name: "lineEnd", DataType: []string{"int"}},
			{Name: "signature", DataType: []string{"text"}, Tokenization: "word"},
			{Name: "codeExcerpt", DataType: []string{"text"}, Tokenization: "word"},
		},
	}
}

func (s *WeaviateStore) EnsureCollection(ctx context.Context) error {
	_, err := s.client.Schema().ClassGetter().WithClassName(s.class).Do(ctx)
	if err == nil {
		return nil
	}
	if err := s.client.Schema().ClassCreator().WithClass(s.classSchema()).Do(ctx); err != nil {
		return fmt.Errorf("create class %s: %w", s.class, err)
	}
	s.logger.Info("vector.collection.created", "class", s.class)
	return nil
}

func (s *WeaviateStore) Upsert(ctx context.Context, points []Point) error {
	for start := 0; start < len(points); start += upsertBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + upsertBatchSize
		if end > len(points) {
			end = len(points)
		}
		batch := points[start:end]

		objects := make([]*models.Object, len(batch))
		for i, p := range batch {
			objects[i] = &models.Object{
				ID:     strfmt.UUID(p.ID),
				Class:  s.class,
				Vector: models.C11yVector(p.Vector),
				Properties: map[string]any{
					"originalId":  p.Payload.OriginalID,
					"namespace":   p.Payload.Namespace,
					"name":        p.Payload.Name,
					"kind":        p.Payload.Kind,
					"language":    p.Payload.Language,
					"filePath":    p.Payload.FilePath,
					"lineStart":   p.Payload.LineStart,
					"lineEnd":     p.Payload.LineEnd,
					"signature":   p.Payload.Signature,
					"codeExcerpt": p.Payload.CodeExcerpt,
				},
			}
		}

		result, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
		if err != nil {
			return fmt.Errorf("batch upsert: %w", err)
		}
		for _, obj := range result {
			if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
				return fmt.Errorf("batch upsert object %s: %s", obj.ID, obj.Result.Errors.Error[0].Message)
			}
		}
	}
	return nil
}

func (s *WeaviateStore) Search(ctx context.Context, vec []float32, namespace string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}

	fields := []graphql.Field{
		{Name: "originalId"},
		{Name: "namespace"},
		{Name: "name"},
		{Name: "kind"},
		{Name: "language"},
		{Name: "filePath"},
		{Name: "lineStart"},
		{Name: "lineEnd"},
		{Name: "signature"},
		{Name: "codeExcerpt"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
	}

	builder := s.client.GraphQL().Get().
		WithClassName(s.class).
		WithFields(fields...).
		WithNearVector(s.client.GraphQL().NearVectorArgBuilder().WithVector(vec)).
		WithLimit(limit)
	if where := namespaceFilter(namespace); where != nil {
		builder = builder.WithWhere(where)
	}

	result, err := builder.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("vector search: %s", result.Errors[0].Message)
	}

	data, ok := result.Data["Get"].(map[string]any)
	if !ok {
		return nil, nil
	}
	objects, ok := data[s.class].([]any)
	if !ok {
		return nil, nil
	}

	hits := make([]Hit, 0, len(objects))
	for _, obj := range objects {
		m, ok := obj.(map[string]any)
		if !ok {
			continue
		}
		hit := Hit{Payload: payloadFromProps(m)}
		if add, ok := m["_additional"].(map[string]any); ok {
			if c, ok := add["certainty"].(float64); ok {
				// certainty = (1 + cosine) / 2; report raw cosine.
				hit.Score = float32(c*2 - 1)
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (s *WeaviateStore) Count(ctx context.Context, namespace string) (int, error) {
	builder := s.client.GraphQL().Aggregate().
		WithClassName(s.class).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}})
	if where := namespaceFilter(namespace); where != nil {
		builder = builder.WithWhere(where)
	}

	result, err := builder.Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("count points: %w", err)
	}
	if len(result.Errors) > 0 {
		return 0, fmt.Errorf("count points: %s", result.Errors[0].Message)
	}

	agg, ok := result.Data["Aggregate"].(map[string]any)
	if !ok {
		return 0, nil
	}
	rows, ok := agg[s.class].([]any)
	if !ok || len(rows) == 0 {
		return 0, nil
	}
	row, ok := rows[0].(map[string]any)
	if !ok {
		return 0, nil
	}
	meta, ok := row["meta"].(map[string]any)
	if !ok {
		return 0, nil
	}
	count, _ := meta["count"].(float64)
	return int(count), nil
}

func (s *WeaviateStore) DeleteByNamespace(ctx context.Context, namespace string) error {
	where := namespaceFilter(namespace)
	if where == nil {
		// Empty filter would wipe the class; require an explicit namespace.
		return fmt.Errorf("delete requires a namespace")
	}
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(s.class).
		WithWhere(where).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("delete namespace %s: %w", namespace, err)
	}
	return nil
}

func (s *WeaviateStore) Close(ctx context.Context) error { return nil }

// namespaceFilter builds the where filter for a namespace: exact match for
// qualified names, prefix for unqualified, nil for empty.
func namespaceFilter(namespace string) *filters.WhereBuilder {
	if namespace == "" {
		return nil
	}
	if strings.Contains(namespace, ":") {
		return filters.Where().
			WithPath([]string{"namespace"}).
			WithOperator(filters.Equal).
			WithValueString(namespace)
	}
	return filters.Where().
		WithOperator(filters.Or).
		WithOperands([]*filters.WhereBuilder{
			filters.Where().
				WithPath([]string{"namespace"}).
				WithOperator(filters.Equal).
				WithValueString(namespace),
			filters.Where().
				WithPath([]string{"namespace"}).
				WithOperator(filters.Like).
				WithValueText(namespace + ":*"),
		})
}

// payloadFromProps reads a payload out of GraphQL result properties.
func payloadFromProps(m map[string]any) Payload {
	return Payload{
		OriginalID:  propString(m, "originalId"),
		Namespace:   propString(m, "namespace"),
		Name:        propString(m, "name"),
		Kind:        propString(m, "kind"),
		Language:    propString(m, "language"),
		FilePath:    propString(m, "filePath"),
		LineStart:   propInt(m, "lineStart"),
		LineEnd:     propInt(m, "lineEnd"),
		Signature:   propString(m, "signature"),
		CodeExcerpt: propString(m, "codeExcerpt"),
	}
}

func propString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func propInt(m map[string]any, key string) int {
	f, _ := m[key].(float64)
	return int(f)
}
