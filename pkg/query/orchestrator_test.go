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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/pkg/embed"
	"github.com/kraklabs/codegraph/pkg/graph"
	"github.com/kraklabs/codegraph/pkg/schema"
	"github.com/kraklabs/codegraph/pkg/vector"
)

// seedCorpus loads two connected functions into both stores.
func seedCorpus(t *testing.T) (*vector.MemoryStore, *graph.MemoryStore, embed.Provider) {
	t.Helper()
	ctx := context.Background()
	provider := embed.NewMockProvider(32, nil)

	gs := graph.NewMemoryStore()
	vs := vector.NewMemoryStore()

	units := []schema.CodeUnit{
		{
			Name: "checkout", Kind: schema.KindFunction, Language: schema.LangGo,
			Namespace: "demo:shop", FilePath: "cart.go", LineStart: 10, LineEnd: 20,
			Signature: "checkout(w, r)", Code: "func checkout() { addToCart() }",
			Callees: []string{"addToCart"}, EntryHint: true,
		},
		{
			Name: "addToCart", Kind: schema.KindFunction, Language: schema.LangGo,
			Namespace: "demo:shop", FilePath: "cart.go", LineStart: 30, LineEnd: 40,
			Signature: "addToCart(item)", Code: "func addToCart(item) {}",
		},
	}
	for i := range units {
		units[i].ID = schema.UnitID(units[i].Namespace, units[i].Language, units[i].FilePath, units[i].Kind, units[i].Name, units[i].LineStart)
	}

	loader := graph.NewLoader(gs, nil)
	_, err := loader.Load(ctx, []*schema.ParseResult{{
		FilePath: "cart.go", Language: schema.LangGo, Namespace: "demo:shop", Units: units,
	}})
	require.NoError(t, err)

	gen := embed.NewGenerator(provider, nil, embed.GeneratorConfig{}, nil)
	vloader := vector.NewLoader(vs, gen, vector.LoaderConfig{}, nil)
	_, err = vloader.Load(ctx, units)
	require.NoError(t, err)

	return vs, gs, provider
}

func TestOrchestratorRetrievalOnly(t *testing.T) {
	vs, gs, provider := seedCorpus(t)
	o := NewOrchestrator(NewRetriever(vs, gs, provider, nil), nil, nil)

	res, err := o.Answer(context.Background(), Question{Text: "how does checkout work", Namespace: "demo:shop"})
	require.NoError(t, err)

	assert.False(t, res.LLMUsed)
	assert.Empty(t, res.Answer)
	require.NotEmpty(t, res.Context)
	assert.Equal(t, 1, res.Context[0].Index, "snippets are numbered from 1")

	// checkout -> addToCart should surface in the graph context.
	foundEdge := false
	for _, cc := range res.Graph {
		if len(cc.Callees) > 0 || len(cc.Callers) > 0 {
			foundEdge = true
		}
	}
	assert.True(t, foundEdge)
}

func TestOrchestratorWithLLM(t *testing.T) {
	vs, gs, provider := seedCorpus(t)
	llm := &MockLLM{Answer: "checkout calls addToCart [1]"}
	o := NewOrchestrator(NewRetriever(vs, gs, provider, nil), llm, nil)

	res, err := o.Answer(context.Background(), Question{Text: "what calls addToCart", Namespace: "demo:shop"})
	require.NoError(t, err)

	assert.True(t, res.LLMUsed)
	assert.Equal(t, "checkout calls addToCart [1]", res.Answer)

	require.Len(t, llm.Prompts, 1)
	prompt := llm.Prompts[0]
	assert.Contains(t, prompt, "## Code snippets")
	assert.Contains(t, prompt, "[1]")
	assert.Contains(t, prompt, "## Question")
	assert.Contains(t, prompt, "what calls addToCart")
}

func TestOrchestratorNoLLMFlag(t *testing.T) {
	vs, gs, provider := seedCorpus(t)
	llm := &MockLLM{}
	o := NewOrchestrator(NewRetriever(vs, gs, provider, nil), llm, nil)

	res, err := o.Answer(context.Background(), Question{Text: "q", Namespace: "demo:shop", NoLLM: true})
	require.NoError(t, err)
	assert.False(t, res.LLMUsed)
	assert.Empty(t, llm.Prompts, "LLM is never called with NoLLM")
}

func TestOrchestratorNamespaceIsolation(t *testing.T) {
	vs, gs, provider := seedCorpus(t)
	o := NewOrchestrator(NewRetriever(vs, gs, provider, nil), nil, nil)

	res, err := o.Answer(context.Background(), Question{Text: "checkout", Namespace: "other:corpus"})
	require.NoError(t, err)
	assert.Empty(t, res.Context, "queries never leak across namespaces")
}

func TestOrchestratorDocumentationContext(t *testing.T) {
	ctx := context.Background()
	vs, gs, provider := seedCorpus(t)

	docs := vector.NewMemoryStore()
	vecs, err := provider.Embed(ctx, []string{"Checkout guide"})
	require.NoError(t, err)
	require.NoError(t, docs.Upsert(ctx, []vector.Point{{
		ID:     schema.PointID("doc-1"),
		Vector: vecs[0],
		Payload: vector.Payload{
			OriginalID:  "doc-1",
			Namespace:   "demo:docs",
			Name:        "Checkout guide",
			CodeExcerpt: "Checkout flows through addToCart before payment.",
		},
	}}))

	llm := &MockLLM{Answer: "see the guide [D1]"}
	r := NewRetriever(vs, gs, provider, nil)
	r.Docs = docs
	o := NewOrchestrator(r, llm, nil)

	res, err := o.Answer(ctx, Question{Text: "how does checkout work", Namespace: "demo:shop"})
	require.NoError(t, err)

	require.Len(t, res.Docs, 1)
	assert.Equal(t, 1, res.Docs[0].Index)
	assert.Equal(t, "Checkout guide", res.Docs[0].Title)
	assert.NotEmpty(t, res.Docs[0].Excerpt)

	require.Len(t, llm.Prompts, 1)
	assert.Contains(t, llm.Prompts[0], "## Documentation")
	assert.Contains(t, llm.Prompts[0], "[D1] Checkout guide")
}

func TestOrchestratorNoDocsStore(t *testing.T) {
	vs, gs, provider := seedCorpus(t)
	o := NewOrchestrator(NewRetriever(vs, gs, provider, nil), nil, nil)

	res, err := o.Answer(context.Background(), Question{Text: "checkout", Namespace: "demo:shop"})
	require.NoError(t, err)
	assert.Empty(t, res.Docs)
}

// cancellingGraph cancels the query context on the first unit lookup,
// simulating a caller deadline firing mid-expansion.
type cancellingGraph struct {
	*graph.MemoryStore
	cancel context.CancelFunc
}

func (c *cancellingGraph) Unit(ctx context.Context, id string) (*schema.CodeUnit, error) {
	c.cancel()
	return c.MemoryStore.Unit(ctx, id)
}

func TestOrchestratorCancelledReturnsPartialContext(t *testing.T) {
	vs, gs, provider := seedCorpus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o := NewOrchestrator(NewRetriever(vs, &cancellingGraph{MemoryStore: gs, cancel: cancel}, provider, nil), nil, nil)

	res, err := o.Answer(ctx, Question{Text: "how does checkout work", Namespace: "demo:shop"})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res, "cancellation returns the partial context, not nil")
	assert.NotEmpty(t, res.Context)
}

func TestAssembleContextBudget(t *testing.T) {
	mk := func(id string, score float32, excerpt int) vector.Hit {
		return vector.Hit{
			Payload: vector.Payload{OriginalID: id, CodeExcerpt: strings.Repeat("x", excerpt)},
			Score:   score,
		}
	}
	hits := []vector.Hit{
		mk("low", 0.1, 400),
		mk("high", 0.9, 400),
		mk("mid", 0.5, 400),
	}

	// Budget fits roughly two snippets; the lowest score is dropped.
	items := assembleContext(hits, 1000)
	require.Len(t, items, 2)
	assert.Equal(t, "high", items[0].Payload.OriginalID)
	assert.Equal(t, "mid", items[1].Payload.OriginalID)

	// Indexes are consecutive regardless of drops.
	assert.Equal(t, 1, items[0].Index)
	assert.Equal(t, 2, items[1].Index)
}

func TestAssembleContextDropsLowestScoredSuffix(t *testing.T) {
	mk := func(id string, score float32, excerpt int) vector.Hit {
		return vector.Hit{
			Payload: vector.Payload{OriginalID: id, CodeExcerpt: strings.Repeat("x", excerpt)},
			Score:   score,
		}
	}
	hits := []vector.Hit{
		mk("high", 0.9, 400),
		mk("mid", 0.5, 800),
		mk("low", 0.1, 100),
	}

	// "mid" overflows the budget; "low" would fit but is dropped too,
	// so the drops are always the lowest-scored suffix.
	items := assembleContext(hits, 1000)
	require.Len(t, items, 1)
	assert.Equal(t, "high", items[0].Payload.OriginalID)
}

func TestExpandUnknownUnit(t *testing.T) {
	vs, gs, provider := seedCorpus(t)
	r := NewRetriever(vs, gs, provider, nil)

	cc, err := r.Expand(context.Background(), "does-not-exist", 2)
	require.NoError(t, err)
	assert.Empty(t, cc.Callees)
	assert.Empty(t, cc.Callers)
}
