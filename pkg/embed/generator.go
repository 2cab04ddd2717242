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

package embed

import (
	"context"
	"log/slog"
	"time"
)

// GeneratorConfig tunes the batch generator.
type GeneratorConfig struct {
	// BatchSize is the number of texts per provider call. Default 64.
	BatchSize int
	// MaxChars truncates each text before embedding; embedding models have
	// token limits and code tokenizes poorly. Default 2000.
	MaxChars int
	// Retry controls per-batch retries.
	Retry RetryConfig
}

// Normalize fills in defaults.
func (c GeneratorConfig) Normalize() GeneratorConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 64
	}
	if c.MaxChars <= 0 {
		c.MaxChars = 2000
	}
	c.Retry = c.Retry.Normalize()
	return c
}

// Result reports one EmbedAll run. Vectors is parallel to the input; a nil
// entry means that text could not be embedded after retries.
type Result struct {
	Vectors        [][]float32
	ErrorCount     int
	TruncatedCount int
	CacheHits      int
}

// Generator batches texts through a Provider with caching and retries.
// A batch that exhausts its retries leaves nil vectors and the run
// continues; embedding failures are never fatal to ingestion.
type Generator struct {
	provider Provider
	cache    *Cache
	cfg      GeneratorConfig
	logger   *slog.Logger
}

// NewGenerator creates a generator. cache may be nil to disable caching.
func NewGenerator(provider Provider, cache *Cache, cfg GeneratorConfig, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		provider: provider,
		cache:    cache,
		cfg:      cfg.Normalize(),
		logger:   logger,
	}
}

// Provider returns the wrapped provider.
func (g *Generator) Provider() Provider { return g.provider }

// EmbedAll embeds every text, preserving input order.
func (g *Generator) EmbedAll(ctx context.Context, texts []string) (*Result, error) {
	res := &Result{Vectors: make([][]float32, len(texts))}
	if len(texts) == 0 {
		return res, nil
	}

	// Truncate and resolve cache hits first.
	prepared := make([]string, len(texts))
	var missIdx []int
	for i, text := range texts {
		if len(text) > g.cfg.MaxChars {
			text = text[:g.cfg.MaxChars]
			res.TruncatedCount++
		}
		prepared[i] = text
		if g.cache != nil {
			if vec, ok := g.cache.Get(CacheKey(g.provider.Model(), text)); ok {
				res.Vectors[i] = vec
				res.CacheHits++
				continue
			}
		}
		missIdx = append(missIdx, i)
	}

	for start := 0; start < len(missIdx); start += g.cfg.BatchSize {
		end := start + g.cfg.BatchSize
		if end > len(missIdx) {
			end = len(missIdx)
		}
		batch := missIdx[start:end]

		batchTexts := make([]string, len(batch))
		for j, idx := range batch {
			batchTexts[j] = prepared[idx]
		}

		vectors, err := g.embedBatch(ctx, batchTexts)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			res.ErrorCount += len(batch)
			g.logger.Error("embed.batch.failed", "batch_size", len(batch), "error", err)
			continue
		}
		for j, idx := range batch {
			res.Vectors[idx] = vectors[j]
			if g.cache != nil {
				g.cache.Put(CacheKey(g.provider.Model(), prepared[idx]), vectors[j])
			}
		}
	}

	if res.ErrorCount > 0 || res.TruncatedCount > 0 {
		g.logger.Info("embed.summary",
			"total_texts", len(texts),
			"errors", res.ErrorCount,
			"truncated", res.TruncatedCount,
			"cache_hits", res.CacheHits,
		)
	}
	return res, nil
}

// embedBatch calls the provider with classified retry and jittered
// exponential backoff.
func (g *Generator) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	var err error
	r := g.cfg.Retry
	for attempt := 0; attempt < r.MaxRetries; attempt++ {
		vectors, err = g.provider.Embed(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		if !isRetryable(err) || attempt == r.MaxRetries-1 {
			break
		}
		sleep := backoffWithJitter(r.InitialBackoff, attempt, r.Multiplier, r.MaxBackoff)
		g.logger.Warn("embed.retry",
			"attempt", attempt+1, "sleep_ms", sleep.Milliseconds(), "err", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
	}
	return nil, err
}
