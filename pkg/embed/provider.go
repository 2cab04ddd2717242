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
	"fmt"
	"log/slog"
	"math"
	"os"
)

// Provider generates embeddings for batches of text.
type Provider interface {
	// Embed returns one unit-normalized vector per input text, in input
	// order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Model identifies the embedding model, used for cache keying.
	Model() string

	// Dimension is the vector width this provider produces.
	Dimension() int
}

// NewProvider creates a provider by name.
// Supported: "mock" (deterministic, offline) and "openai" (requires
// OPENAI_API_KEY).
func NewProvider(name, model string, dimension int, logger *slog.Logger) (Provider, error) {
	switch name {
	case "mock":
		return NewMockProvider(dimension, logger), nil
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for openai provider")
		}
		return NewOpenAIProvider(apiKey, os.Getenv("OPENAI_API_BASE"), model, dimension, logger), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: mock, openai)", name)
	}
}

// normalize scales a vector to unit length in place.
func normalize(vec []float32) []float32 {
	if len(vec) == 0 {
		return vec
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec
	}
	normf := float32(norm)
	for i := range vec {
		vec[i] /= normf
	}
	return vec
}
