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
)

// MockProvider generates deterministic embeddings from a text hash. Not
// semantically meaningful; identical text always yields the identical
// vector, which is what the tests and offline ingestion need.
type MockProvider struct {
	dimension int
	logger    *slog.Logger
}

// NewMockProvider creates a mock embedding provider.
func NewMockProvider(dimension int, logger *slog.Logger) *MockProvider {
	if logger == nil {
		logger = slog.Default()
	}
	if dimension <= 0 {
		dimension = 384
	}
	return &MockProvider{dimension: dimension, logger: logger}
}

func (m *MockProvider) Model() string { return "mock" }

func (m *MockProvider) Dimension() int { return m.dimension }

// Embed derives one pseudo-random unit vector per text.
func (m *MockProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		hash := hashString(text)
		vec := make([]float32, m.dimension)
		for j := 0; j < m.dimension; j++ {
			val := float32((hash+uint64(j)*7919)%10000) / 10000.0
			vec[j] = val*2.0 - 1.0
		}
		vectors[i] = normalize(vec)
	}
	return vectors, nil
}

// hashString is djb2.
func hashString(s string) uint64 {
	var hash uint64 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint64(c)
	}
	return hash
}
