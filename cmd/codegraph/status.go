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
	"sort"
	"time"

	"github.com/kraklabs/codegraph/internal/errors"
	"github.com/kraklabs/codegraph/internal/output"
	"github.com/kraklabs/codegraph/internal/ui"
)

// NamespaceStatus is the per-namespace slice of a status report.
type NamespaceStatus struct {
	Namespace string `json:"namespace"`
	Units     int    `json:"units"`
	Vectors   int    `json:"vectors"`
}

// StatusResult is the status report for JSON output.
type StatusResult struct {
	Corpus        string            `json:"corpus"`
	GraphBackend  string            `json:"graph_backend"`
	VectorBackend string            `json:"vector_backend"`
	Namespaces    []NamespaceStatus `json:"namespaces"`
	TotalUnits    int               `json:"total_units"`
	TotalVectors  int               `json:"total_vectors"`
	Timestamp     time.Time         `json:"timestamp"`
}

// runStatus executes the 'status' CLI command, reporting unit and vector
// counts per namespace.
//
// Examples:
//
//	codegraph status
//	codegraph status --json
func runStatus(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	timeout := fs.Duration("timeout", 30*time.Second, "Status timeout")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codegraph status [options]

Shows per-namespace unit and vector counts for the configured backends.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"Cannot load configuration", err.Error(),
			"Run 'codegraph init' in the repository root", err), globals.JSON)
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

	counts, err := graphStore.CountByNamespace(ctx)
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot count graph units", err.Error(),
			"Check the graph backend connection", err), globals.JSON)
	}

	result := &StatusResult{
		Corpus:        cfg.Corpus,
		GraphBackend:  cfg.Graph.Backend,
		VectorBackend: cfg.Vector.Backend,
		Timestamp:     time.Now(),
	}

	namespaces := make([]string, 0, len(counts))
	for ns := range counts {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	for _, ns := range namespaces {
		vectors, err := vectorStore.Count(ctx, ns)
		if err != nil {
			logger.Warn("status.vector.count.error", "namespace", ns, "error", err)
		}
		result.Namespaces = append(result.Namespaces, NamespaceStatus{
			Namespace: ns,
			Units:     counts[ns],
			Vectors:   vectors,
		})
		result.TotalUnits += counts[ns]
		result.TotalVectors += vectors
	}

	if globals.JSON {
		if err := output.JSON(result); err != nil {
			errors.FatalError(err, true)
		}
		return
	}
	printStatus(result)
}

// printStatus prints the status report in human-readable form.
func printStatus(result *StatusResult) {
	ui.Header("Codegraph Status")
	fmt.Printf("%s %s\n", ui.Label("Corpus:"), result.Corpus)
	fmt.Printf("%s %s graph, %s vectors\n", ui.Label("Backends:"), result.GraphBackend, result.VectorBackend)
	fmt.Println()

	if len(result.Namespaces) == 0 {
		fmt.Println("No namespaces ingested yet. Run 'codegraph ingest' first.")
		return
	}

	ui.SubHeader("Namespaces:")
	for _, ns := range result.Namespaces {
		fmt.Printf("  %-30s units: %-6s vectors: %s\n",
			ns.Namespace, ui.CountText(ns.Units), ui.CountText(ns.Vectors))
	}
	fmt.Println()
	fmt.Printf("%s %s units, %s vectors\n",
		ui.Label("Total:"), ui.CountText(result.TotalUnits), ui.CountText(result.TotalVectors))
}
