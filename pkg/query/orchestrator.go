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
	"log/slog"
	"sort"

	"github.com/kraklabs/codegraph/pkg/vector"
)

// Defaults for question handling.
const (
	DefaultKCode       = 10
	DefaultKDoc        = 3
	DefaultGraphExpand = 3
	DefaultDepth       = 2
	DefaultBudgetChars = 12000
)

// Question is one query against the corpus.
type Question struct {
	Text      string
	Namespace string // exact, prefix, or empty
	KCode     int    // code vector hits to retrieve
	KDoc      int    // documentation hits to retrieve
	Expand    int    // top hits to expand through the graph
	Depth     int    // traversal depth, clamped to [1,3]
	Budget    int    // context budget in characters
	NoLLM     bool   // retrieval only
}

func (q Question) withDefaults() Question {
	if q.KCode <= 0 {
		q.KCode = DefaultKCode
	}
	if q.KDoc <= 0 {
		q.KDoc = DefaultKDoc
	}
	if q.Expand <= 0 {
		q.Expand = DefaultGraphExpand
	}
	if q.Depth <= 0 {
		q.Depth = DefaultDepth
	}
	if q.Budget <= 0 {
		q.Budget = DefaultBudgetChars
	}
	return q
}

// ContextItem is one snippet included in the assembled context.
type ContextItem struct {
	Index   int            `json:"index"`
	Payload vector.Payload `json:"payload"`
	Score   float32        `json:"score"`
}

// DocItem is one documentation snippet included in the context.
type DocItem struct {
	Index   int     `json:"index"`
	Title   string  `json:"title"`
	Excerpt string  `json:"excerpt"`
	Score   float32 `json:"score"`
}

// Result is the orchestrator's answer.
type Result struct {
	Answer  string        `json:"answer,omitempty"`
	LLMUsed bool          `json:"llm_used"`
	Docs    []DocItem     `json:"docs,omitempty"`
	Context []ContextItem `json:"context"`
	Graph   []CallContext `json:"graph,omitempty"`
}

// Orchestrator runs the full question pipeline. llm may be nil; the
// pipeline then stops after retrieval.
type Orchestrator struct {
	retriever *Retriever
	llm       LLM
	logger    *slog.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(retriever *Retriever, llm LLM, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{retriever: retriever, llm: llm, logger: logger}
}

// Answer runs retrieval, graph expansion, context assembly, and synthesis.
// Cancellation mid-pipeline returns the partial context assembled so far
// alongside the context error.
func (o *Orchestrator) Answer(ctx context.Context, q Question) (*Result, error) {
	q = q.withDefaults()

	hits, err := o.retriever.SearchCode(ctx, q.Text, q.Namespace, q.KCode)
	if err != nil {
		return nil, err
	}

	res := &Result{}

	docHits, err := o.retriever.SearchDocs(ctx, q.Text, q.KDoc)
	if err != nil {
		// Documentation is supplementary; a failed doc search never
		// blocks code retrieval.
		o.logger.Warn("query.retrieve.docs_failed", "error", err)
	}
	for _, h := range docHits {
		res.Docs = append(res.Docs, DocItem{
			Index:   len(res.Docs) + 1,
			Title:   h.Payload.Name,
			Excerpt: h.Payload.CodeExcerpt,
			Score:   h.Score,
		})
	}

	// Graph expansion for the strongest hits.
	var cancelled error
	expand := q.Expand
	if expand > len(hits) {
		expand = len(hits)
	}
	for i := 0; i < expand; i++ {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		cc, err := o.retriever.Expand(ctx, hits[i].Payload.OriginalID, q.Depth)
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				cancelled = cerr
				break
			}
			return nil, err
		}
		if len(cc.Callees) > 0 || len(cc.Callers) > 0 {
			res.Graph = append(res.Graph, *cc)
		}
	}

	res.Context = assembleContext(hits, q.Budget)
	o.logger.Debug("query.context.assembled",
		"hits", len(hits), "docs", len(res.Docs), "kept", len(res.Context), "budget_chars", q.Budget)

	if cancelled != nil {
		// Partial context from the steps that completed.
		return res, cancelled
	}

	if o.llm == nil || q.NoLLM {
		return res, nil
	}

	prompt := buildPrompt(q.Text, res.Docs, res.Context, res.Graph)
	answer, err := o.llm.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return res, cerr
		}
		// Retrieval already succeeded; degrade to context-only output.
		o.logger.Warn("query.llm.failed", "error", err)
		return res, nil
	}
	res.Answer = answer
	res.LLMUsed = true
	return res, nil
}

// assembleContext keeps hits within the character budget, dropping the
// lowest-scored snippets first.
func assembleContext(hits []vector.Hit, budget int) []ContextItem {
	ordered := make([]vector.Hit, len(hits))
	copy(ordered, hits)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Score > ordered[j].Score })

	var items []ContextItem
	used := 0
	for _, h := range ordered {
		cost := snippetChars(h.Payload)
		if used+cost > budget {
			// The dropped set is always the lowest-scored suffix.
			break
		}
		used += cost
		items = append(items, ContextItem{Index: len(items) + 1, Payload: h.Payload, Score: h.Score})
	}
	return items
}

// snippetChars is the budget cost of one payload as rendered in the
// prompt.
func snippetChars(p vector.Payload) int {
	return len(p.Signature) + len(p.CodeExcerpt) + len(p.FilePath) + 64
}
