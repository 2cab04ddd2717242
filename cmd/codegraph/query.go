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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kraklabs/codegraph/internal/errors"
	"github.com/kraklabs/codegraph/internal/output"
	"github.com/kraklabs/codegraph/internal/ui"
	"github.com/kraklabs/codegraph/pkg/query"
)

// runQuery executes the 'query' CLI command: embed the question, search
// the vector store, expand top hits through the call graph, and
// optionally synthesize an answer with the configured LLM.
//
// Flags:
//   - --namespace: Namespace scope; a bare corpus name matches all its services
//   - --k: Vector hits to retrieve
//   - --k-doc: Documentation hits to retrieve
//   - --depth: Graph traversal depth (1-3)
//   - --expand: Top hits to expand through the graph
//   - --budget: Context budget in characters
//   - --no-llm: Skip synthesis, print retrieval context only
//   - --timeout: Overall query timeout
//
// Examples:
//
//	codegraph query "where is the checkout total computed?"
//	codegraph query --namespace shop:cart --k 5 "who calls addToCart?"
//	codegraph query --no-llm --json "list payment handlers"
func runQuery(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	namespace := fs.String("namespace", "", "Namespace scope (default: configured corpus)")
	k := fs.Int("k", 0, "Vector hits to retrieve (0 = default)")
	kDoc := fs.Int("k-doc", 0, "Documentation hits to retrieve (0 = default)")
	depth := fs.Int("depth", 0, "Graph traversal depth, 1-3 (0 = default)")
	expand := fs.Int("expand", 0, "Top hits to expand through the graph (0 = default)")
	budget := fs.Int("budget", 0, "Context budget in characters (0 = default)")
	noLLM := fs.Bool("no-llm", false, "Skip synthesis, print retrieval context only")
	timeout := fs.Duration("timeout", 60*time.Second, "Query timeout")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codegraph query [options] <question>

Answers a natural-language question about the ingested corpus. The
question is embedded, matched against indexed code units, and the top
hits are expanded through the call graph before synthesis.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() == 0 {
		errors.FatalError(errors.NewInputError(
			"Missing question",
			"The query command requires a question argument",
			`Run: codegraph query "where is the checkout total computed?"`,
		), globals.JSON)
	}
	question := strings.Join(fs.Args(), " ")

	cfg, err := LoadConfig(configPath)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"Cannot load configuration", err.Error(),
			"Run 'codegraph init' in the repository root", err), globals.JSON)
	}

	ns := *namespace
	if ns == "" {
		ns = cfg.Corpus
	}

	logger := newLogger(globals)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	graphStore, err := openGraphStore(ctx, cfg, logger)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}
	defer func() { _ = graphStore.Close(ctx) }()

	vectorStore, err := openVectorStore(cfg, logger)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}
	defer func() { _ = vectorStore.Close(ctx) }()

	provider, err := newEmbedProvider(cfg, logger)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}

	retriever := query.NewRetriever(vectorStore, graphStore, provider, logger)
	docsStore, err := openDocsStore(cfg, logger)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}
	if docsStore != nil {
		defer func() { _ = docsStore.Close(ctx) }()
		retriever.Docs = docsStore
	}

	orchestrator := query.NewOrchestrator(retriever, newLLM(cfg, logger), logger)

	result, err := orchestrator.Answer(ctx, query.Question{
		Text:      question,
		Namespace: ns,
		KCode:     pickInt(*k, cfg.Query.KCode),
		KDoc:      pickInt(*kDoc, cfg.Query.KDoc),
		Expand:    pickInt(*expand, cfg.Query.Expand),
		Depth:     pickInt(*depth, cfg.Query.Depth),
		Budget:    pickInt(*budget, cfg.Query.BudgetChars),
		NoLLM:     *noLLM,
	})
	if err != nil {
		errors.FatalError(errors.NewInternalError(
			"Query failed", err.Error(),
			"Re-run with -v for debug logs", err), globals.JSON)
	}

	if globals.JSON {
		if err := output.JSON(result); err != nil {
			errors.FatalError(err, true)
		}
		return
	}
	printQueryResult(result)
}

// printQueryResult prints the answer, the snippets behind it, and the
// call relationships that were surfaced.
func printQueryResult(res *query.Result) {
	if res.LLMUsed {
		fmt.Println(res.Answer)
		fmt.Println()
	}

	if len(res.Docs) > 0 {
		ui.SubHeader("Documentation:")
		for _, d := range res.Docs {
			fmt.Printf("  [D%d] %s (%.2f)\n", d.Index, d.Title, d.Score)
		}
		fmt.Println()
	}

	if len(res.Context) == 0 {
		fmt.Println("No matching code found.")
		return
	}

	ui.SubHeader("Context:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, item := range res.Context {
		p := item.Payload
		fmt.Fprintf(w, "  [%d]\t%s\t%s\t%s:%d-%d\t%.2f\n",
			item.Index, p.Name, p.Kind, p.FilePath, p.LineStart, p.LineEnd, item.Score)
	}
	_ = w.Flush()

	if len(res.Graph) == 0 {
		return
	}
	fmt.Println()
	ui.SubHeader("Call graph:")
	nameByID := make(map[string]string)
	for _, item := range res.Context {
		nameByID[item.Payload.OriginalID] = item.Payload.Name
	}
	for _, cc := range res.Graph {
		origin := nameByID[cc.UnitID]
		if origin == "" {
			origin = cc.UnitID
		}
		for _, n := range cc.Callees {
			fmt.Printf("  %s -> %s (depth %d)\n", origin, n.Unit.Name, n.Depth)
		}
		for _, caller := range cc.Callers {
			fmt.Printf("  %s <- %s\n", origin, caller)
		}
	}
}
