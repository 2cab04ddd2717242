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
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kraklabs/codegraph/internal/errors"
	"github.com/kraklabs/codegraph/internal/output"
	"github.com/kraklabs/codegraph/internal/ui"
	"github.com/kraklabs/codegraph/pkg/embed"
	"github.com/kraklabs/codegraph/pkg/graph"
	"github.com/kraklabs/codegraph/pkg/ingest"
	"github.com/kraklabs/codegraph/pkg/parser"
	"github.com/kraklabs/codegraph/pkg/vector"
)

// runIngest executes the 'ingest' CLI command: walk a repository, parse
// it, and load the graph and vector stores.
//
// Flags:
//   - --service: Service name; the namespace becomes <corpus>:<service>
//   - --namespace: Full namespace, overriding --service
//   - --include/--exclude: Comma-separated doublestar globs
//   - --workers: Parse worker count
//   - --skip-vectors: Load the graph only (no embeddings)
//   - --max-file-size: Skip files larger than this many bytes
//   - --metrics-addr: HTTP address for Prometheus metrics (default: disabled)
//
// Examples:
//
//	codegraph ingest --service cart ./services/cart
//	codegraph ingest --service cart --exclude "gen/**,**/*.min.js" .
//	codegraph ingest --namespace shop:cart --skip-vectors .
func runIngest(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	service := fs.String("service", "", "Service name (namespace becomes <corpus>:<service>)")
	namespace := fs.String("namespace", "", "Full namespace (overrides --service)")
	include := fs.String("include", "", "Comma-separated include globs")
	exclude := fs.String("exclude", "", "Comma-separated exclude globs (added to config)")
	workers := fs.Int("workers", 0, "Parse workers (0 = default)")
	skipVectors := fs.Bool("skip-vectors", false, "Load the graph only, skip embeddings")
	maxFileSize := fs.Int64("max-file-size", 0, "Skip files larger than this many bytes (0 = default)")
	metricsAddr := fs.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codegraph ingest [options] [path]

Parses the repository at path (default: current directory) and loads the
graph and vector stores. Re-running with the same namespace is
idempotent: units are upserted in place.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	root := "."
	if fs.NArg() > 0 {
		root = fs.Arg(0)
	}
	root, err := filepath.Abs(root)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"Cannot load configuration", err.Error(),
			"Run 'codegraph init' in the repository root", err), globals.JSON)
	}

	ns := *namespace
	if ns == "" {
		if *service == "" {
			errors.FatalError(errors.NewInputError(
				"Missing namespace",
				"Ingestion writes require a fully qualified namespace",
				"Pass --service <name> or --namespace <corpus>:<service>",
			), globals.JSON)
		}
		ns = cfg.Namespace(*service)
	}

	logger := newLogger(globals)

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			logger.Info("metrics.http.start", "addr", *metricsAddr, "path", "/metrics")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics.http.error", "err", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("shutdown.signal", "signal", sig.String())
		cancel()
	}()

	graphStore, err := openGraphStore(ctx, cfg, logger)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}
	defer func() { _ = graphStore.Close(ctx) }()

	var vectorLoader *vector.Loader
	var vectorStore vector.Store
	if !*skipVectors {
		vectorStore, err = openVectorStore(cfg, logger)
		if err != nil {
			errors.FatalError(err, globals.JSON)
		}
		defer func() { _ = vectorStore.Close(ctx) }()

		provider, err := newEmbedProvider(cfg, logger)
		if err != nil {
			errors.FatalError(err, globals.JSON)
		}
		gen := embed.NewGenerator(provider, embed.NewCache(0), embed.GeneratorConfig{}, logger)
		vectorLoader = vector.NewLoader(vectorStore, gen, vector.LoaderConfig{}, logger)
	}

	driver := ingest.NewDriver(parser.DefaultRegistry(logger), graph.NewLoader(graphStore, logger), vectorLoader, logger)

	progress := NewProgressConfig(globals)
	bar := NewSpinner(progress, "parsing")
	if bar != nil {
		driver.Progress = func(out ingest.FileOutcome) {
			_ = bar.Add(1)
		}
	}

	summary, err := driver.Run(ctx, ingest.Request{
		Root:         root,
		Namespace:    ns,
		Include:      append(splitGlobs(*include), cfg.Ingest.Include...),
		Exclude:      append(splitGlobs(*exclude), cfg.Ingest.Exclude...),
		Workers:      pickInt(*workers, cfg.Ingest.Workers),
		MaxFileBytes: pickInt64(*maxFileSize, cfg.Ingest.MaxFileSize),
		SkipVectors:  *skipVectors,
	})
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		errors.FatalError(errors.NewInternalError(
			"Ingestion failed", err.Error(),
			"Re-run with -v for debug logs", err), globals.JSON)
	}

	if globals.JSON {
		if err := output.JSON(summary); err != nil {
			errors.FatalError(err, true)
		}
		return
	}
	printIngestSummary(summary)
}

// splitGlobs parses a comma-separated glob list; empty input yields nil.
func splitGlobs(s string) []string {
	if s == "" {
		return nil
	}
	var globs []string
	for _, g := range strings.Split(s, ",") {
		if g = strings.TrimSpace(g); g != "" {
			globs = append(globs, g)
		}
	}
	return globs
}

func pickInt(flagVal, cfgVal int) int {
	if flagVal > 0 {
		return flagVal
	}
	return cfgVal
}

func pickInt64(flagVal, cfgVal int64) int64 {
	if flagVal > 0 {
		return flagVal
	}
	return cfgVal
}

// printIngestSummary prints the run summary in human-readable form.
func printIngestSummary(s *ingest.Summary) {
	fmt.Println()
	ui.Header("Ingestion Complete")
	fmt.Printf("%s %s\n", ui.Label("Namespace:"), s.Namespace)
	fmt.Printf("%s %s\n", ui.Label("Run ID:"), ui.DimText(s.RunID))
	fmt.Println()

	ui.SubHeader("Files:")
	fmt.Printf("  Scanned:   %s\n", ui.CountText(s.FilesScanned))
	fmt.Printf("  Parsed:    %s\n", ui.CountText(s.FilesParsed))
	fmt.Printf("  Skipped:   %s\n", ui.CountText(s.FilesSkipped))
	if len(s.SkipReasons) > 0 {
		reasons := make([]string, 0, len(s.SkipReasons))
		for r := range s.SkipReasons {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			fmt.Printf("    %s: %d\n", r, s.SkipReasons[r])
		}
	}

	fmt.Println()
	ui.SubHeader("Loaded:")
	fmt.Printf("  Units:       %s\n", ui.CountText(s.Units))
	fmt.Printf("  Call edges:  %s\n", ui.CountText(s.CallEdges))
	fmt.Printf("  Indexed:     %s\n", ui.CountText(s.Indexed))
	fmt.Println()

	if s.ParseErrors > 0 {
		ui.Warningf("%d parse errors (files still loaded where possible)", s.ParseErrors)
	}
	if s.DroppedCallees > 0 {
		ui.Warningf("%d call sites did not resolve to a known unit", s.DroppedCallees)
	}
	if s.EmbedSkipped > 0 {
		ui.Warningf("%d units indexed without vectors (embedding failed)", s.EmbedSkipped)
	}
	ui.Successf("done in %dms", s.DurationMS)
}
