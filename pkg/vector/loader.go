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
	"log/slog"
	"strings"

	"github.com/kraklabs/codegraph/pkg/embed"
	"github.com/kraklabs/codegraph/pkg/schema"
)

// DefaultExcerptChars bounds the code excerpt carried in payloads and fed
// to the embedder.
const DefaultExcerptChars = 2000

// LoaderConfig tunes the vector loader.
type LoaderConfig struct {
	ExcerptChars int // default DefaultExcerptChars
}

// LoadResult summarizes one indexing run.
type LoadResult struct {
	Indexed   int `json:"indexed"`
	Skipped   int `json:"skipped"` // units whose embedding failed
	Truncated int `json:"truncated"`
	CacheHits int `json:"cache_hits"`
}

// Loader embeds units and writes them to a vector Store.
type Loader struct {
	store  Store
	gen    *embed.Generator
	cfg    LoaderConfig
	logger *slog.Logger
}

// NewLoader creates a vector loader.
func NewLoader(store Store, gen *embed.Generator, cfg LoaderConfig, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ExcerptChars <= 0 {
		cfg.ExcerptChars = DefaultExcerptChars
	}
	return &Loader{store: store, gen: gen, cfg: cfg, logger: logger}
}

// Load embeds and indexes every unit. Units whose embedding failed after
// retries are skipped and counted; the run itself only fails on store
// errors or cancellation.
func (l *Loader) Load(ctx context.Context, units []schema.CodeUnit) (*LoadResult, error) {
	out := &LoadResult{}
	if len(units) == 0 {
		return out, nil
	}

	if err := l.store.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	texts := make([]string, len(units))
	for i, u := range units {
		texts[i] = EmbeddingText(u, l.cfg.ExcerptChars)
	}

	embedded, err := l.gen.EmbedAll(ctx, texts)
	if err != nil {
		return nil, err
	}
	out.Truncated = embedded.TruncatedCount
	out.CacheHits = embedded.CacheHits

	points := make([]Point, 0, len(units))
	for i, u := range units {
		vec := embedded.Vectors[i]
		if vec == nil {
			out.Skipped++
			continue
		}
		points = append(points, PointFrom(u, vec, l.cfg.ExcerptChars))
	}

	if err := l.store.Upsert(ctx, points); err != nil {
		return nil, err
	}
	out.Indexed = len(points)

	if out.Skipped > 0 {
		l.logger.Warn("vector.load.skipped_units", "skipped", out.Skipped, "indexed", out.Indexed)
	}
	return out, nil
}

// PointFrom builds the indexed point for one unit and its vector.
func PointFrom(u schema.CodeUnit, vec []float32, excerptChars int) Point {
	if excerptChars <= 0 {
		excerptChars = DefaultExcerptChars
	}
	return Point{
		ID:     schema.PointID(u.ID),
		Vector: vec,
		Payload: Payload{
			OriginalID:  u.ID,
			Namespace:   u.Namespace,
			Name:        u.Name,
			Kind:        string(u.Kind),
			Language:    string(u.Language),
			FilePath:    u.FilePath,
			LineStart:   u.LineStart,
			LineEnd:     u.LineEnd,
			Signature:   u.Signature,
			CodeExcerpt: excerpt(u.Code, excerptChars),
		},
	}
}

// EmbeddingText builds the text embedded for one unit: name, signature,
// docstring, then a bounded code excerpt. Identity fields lead so short
// queries land on names and signatures before bodies.
func EmbeddingText(u schema.CodeUnit, excerptChars int) string {
	var b strings.Builder
	b.WriteString(u.Name)
	b.WriteByte('\n')
	b.WriteString(u.Signature)
	if u.Docstring != "" {
		b.WriteByte('\n')
		b.WriteString(u.Docstring)
	}
	if u.Code != "" {
		b.WriteByte('\n')
		b.WriteString(excerpt(u.Code, excerptChars))
	}
	return b.String()
}

func excerpt(code string, max int) string {
	if len(code) <= max {
		return code
	}
	return code[:max]
}
