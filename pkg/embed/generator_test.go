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
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProviderDeterministic(t *testing.T) {
	p := NewMockProvider(64, nil)

	a, err := p.Embed(context.Background(), []string{"hello", "world"})
	require.NoError(t, err)
	b, err := p.Embed(context.Background(), []string{"hello", "world"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a[0], a[1], "different texts yield different vectors")

	// Unit norm.
	var norm float64
	for _, v := range a[0] {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestGeneratorPreservesOrder(t *testing.T) {
	g := NewGenerator(NewMockProvider(16, nil), nil, GeneratorConfig{BatchSize: 2}, nil)

	texts := []string{"a", "b", "c", "d", "e"}
	res, err := g.EmbedAll(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, res.Vectors, 5)

	direct, err := g.Provider().Embed(context.Background(), texts)
	require.NoError(t, err)
	for i := range texts {
		assert.Equal(t, direct[i], res.Vectors[i], "index %d", i)
	}
}

func TestGeneratorTruncation(t *testing.T) {
	g := NewGenerator(NewMockProvider(16, nil), nil, GeneratorConfig{MaxChars: 10}, nil)

	res, err := g.EmbedAll(context.Background(), []string{strings.Repeat("x", 100), "short"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TruncatedCount)
	assert.NotNil(t, res.Vectors[0])
}

func TestGeneratorCache(t *testing.T) {
	cache := NewCache(100)
	counting := &countingProvider{inner: NewMockProvider(16, nil)}
	g := NewGenerator(counting, cache, GeneratorConfig{}, nil)

	_, err := g.EmbedAll(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	first := counting.calls

	res, err := g.EmbedAll(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, first, counting.calls, "second run is fully cached")
	assert.Equal(t, 2, res.CacheHits)
}

func TestGeneratorRetriesThenSkips(t *testing.T) {
	flaky := &flakyProvider{failures: 1, inner: NewMockProvider(16, nil)}
	g := NewGenerator(flaky, nil, GeneratorConfig{
		Retry: RetryConfig{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond, Multiplier: 2},
	}, nil)

	res, err := g.EmbedAll(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Zero(t, res.ErrorCount, "retryable failure recovers")
	assert.NotNil(t, res.Vectors[0])

	fatal := &flakyProvider{failures: 100, inner: NewMockProvider(16, nil), permanent: true}
	g = NewGenerator(fatal, nil, GeneratorConfig{
		Retry: RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond, Multiplier: 2},
	}, nil)

	res, err = g.EmbedAll(context.Background(), []string{"a", "b"})
	require.NoError(t, err, "embedding failure is not fatal")
	assert.Equal(t, 2, res.ErrorCount)
	assert.Nil(t, res.Vectors[0])
}

func TestRetryClassification(t *testing.T) {
	assert.True(t, isRetryable(errors.New("request timeout")))
	assert.True(t, isRetryable(errors.New("status code: 429")))
	assert.True(t, isRetryable(errors.New("connection refused")))
	assert.False(t, isRetryable(errors.New("status code: 401 invalid api key")))
	assert.False(t, isRetryable(nil))
}

func TestCacheEviction(t *testing.T) {
	c := NewCache(2)
	c.Put("a", []float32{1})
	c.Put("b", []float32{2})
	c.Put("c", []float32{3})
	assert.Equal(t, 2, c.Len())
}

// countingProvider counts provider calls.
type countingProvider struct {
	inner Provider
	calls int
}

func (c *countingProvider) Model() string  { return c.inner.Model() }
func (c *countingProvider) Dimension() int { return c.inner.Dimension() }
func (c *countingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls++
	return c.inner.Embed(ctx, texts)
}

// flakyProvider fails the first N calls.
type flakyProvider struct {
	inner     Provider
	failures  int
	permanent bool
	calls     int
}

func (f *flakyProvider) Model() string  { return f.inner.Model() }
func (f *flakyProvider) Dimension() int { return f.inner.Dimension() }
func (f *flakyProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		if f.permanent {
			return nil, errors.New("status code: 400 bad request")
		}
		return nil, errors.New("connection reset by peer")
	}
	return f.inner.Embed(ctx, texts)
}
