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

package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kraklabs/codegraph/pkg/graph"
	"github.com/kraklabs/codegraph/pkg/parser"
	"github.com/kraklabs/codegraph/pkg/schema"
	"github.com/kraklabs/codegraph/pkg/vector"
)

const (
	defaultWorkers = 4
	maxWorkers     = 16
)

// Request describes one ingestion run.
type Request struct {
	// Root is the directory to ingest.
	Root string
	// Namespace must be fully qualified (corpus:service); writes never go
	// to a bare prefix.
	Namespace string
	// Include/Exclude are doublestar globs relative to Root.
	Include []string
	Exclude []string
	// Workers bounds the parse pool; 0 means defaultWorkers, capped at
	// maxWorkers.
	Workers int
	// MaxFileBytes skips larger files; 0 means the walker default.
	MaxFileBytes int64
	// SkipVectors loads the graph only (offline runs without an embedder).
	SkipVectors bool
}

// FileOutcome is the per-file progress report.
type FileOutcome struct {
	Path        string
	Language    schema.Language
	Units       int
	ParseErrors int
	Failed      bool
}

// Summary reports one completed run.
type Summary struct {
	RunID          string         `json:"run_id"`
	Namespace      string         `json:"namespace"`
	FilesScanned   int            `json:"files_scanned"`
	FilesParsed    int            `json:"files_parsed"`
	FilesSkipped   int            `json:"files_skipped"`
	SkipReasons    map[string]int `json:"skip_reasons,omitempty"`
	ParseErrors    int            `json:"parse_errors"`
	Units          int            `json:"units"`
	CallEdges      int            `json:"call_edges"`
	DroppedCallees int            `json:"dropped_callees"`
	Indexed        int            `json:"indexed"`
	EmbedSkipped   int            `json:"embed_skipped"`
	DurationMS     int64          `json:"duration_ms"`
}

// Driver runs the ingestion pipeline: walk, parse, graph load, vector
// load.
type Driver struct {
	registry *parser.Registry
	graph    *graph.Loader
	vectors  *vector.Loader
	logger   *slog.Logger

	// Progress, when set, receives one callback per parsed file, from the
	// goroutine that called Run.
	Progress func(FileOutcome)
}

// NewDriver creates a driver. vectors may be nil when runs always set
// SkipVectors.
func NewDriver(registry *parser.Registry, graphLoader *graph.Loader, vectorLoader *vector.Loader, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	initMetrics()
	return &Driver{
		registry: registry,
		graph:    graphLoader,
		vectors:  vectorLoader,
		logger:   logger,
	}
}

// Run executes one ingestion run.
func (d *Driver) Run(ctx context.Context, req Request) (*Summary, error) {
	if err := schema.ValidateNamespace(req.Namespace); err != nil {
		return nil, err
	}
	if !strings.Contains(req.Namespace, ":") {
		return nil, fmt.Errorf("ingestion requires a qualified namespace (corpus:service), got %q", req.Namespace)
	}

	start := time.Now()
	summary := &Summary{
		RunID:       uuid.NewString(),
		Namespace:   req.Namespace,
		SkipReasons: make(map[string]int),
	}
	logger := d.logger.With("run_id", summary.RunID, "namespace", req.Namespace)
	logger.Info("ingest.run.start", "root", req.Root)

	files, skips, err := Walk(req.Root, WalkOptions{
		Include:      req.Include,
		Exclude:      req.Exclude,
		MaxFileBytes: req.MaxFileBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", req.Root, err)
	}
	summary.FilesScanned = len(files) + len(skips)
	for _, s := range skips {
		summary.SkipReasons[s.Reason]++
	}
	logger.Info("ingest.step.walk", "candidates", len(files), "skipped", len(skips))

	results := d.parseFiles(ctx, req.Namespace, files, req.Workers, summary, logger)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	loadRes, err := d.graph.Load(ctx, results)
	if err != nil {
		return nil, fmt.Errorf("graph load: %w", err)
	}
	summary.Units = loadRes.Units
	summary.CallEdges = loadRes.CallEdges
	summary.DroppedCallees = loadRes.DroppedCallees
	logger.Info("ingest.step.graph_load",
		"units", loadRes.Units, "call_edges", loadRes.CallEdges, "dropped_callees", loadRes.DroppedCallees)

	if !req.SkipVectors {
		if d.vectors == nil {
			return nil, fmt.Errorf("vector loader not configured")
		}
		var units []schema.CodeUnit
		for _, res := range results {
			units = append(units, res.Units...)
		}
		vecRes, err := d.vectors.Load(ctx, units)
		if err != nil {
			return nil, fmt.Errorf("vector load: %w", err)
		}
		summary.Indexed = vecRes.Indexed
		summary.EmbedSkipped = vecRes.Skipped
		logger.Info("ingest.step.vector_load",
			"indexed", vecRes.Indexed, "skipped", vecRes.Skipped, "cache_hits", vecRes.CacheHits)
	}

	summary.FilesSkipped = sumValues(summary.SkipReasons)
	elapsed := time.Since(start)
	summary.DurationMS = elapsed.Milliseconds()
	recordRun(summary, elapsed)
	logger.Info("ingest.run.done",
		"files_parsed", summary.FilesParsed,
		"units", summary.Units,
		"call_edges", summary.CallEdges,
		"indexed", summary.Indexed,
		"duration_ms", summary.DurationMS,
	)
	return summary, nil
}

// parseFiles runs the bounded parse pool and collects results in a
// deterministic order (input order, not completion order).
func (d *Driver) parseFiles(ctx context.Context, namespace string, files []WalkedFile, workers int, summary *Summary, logger *slog.Logger) []*schema.ParseResult {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if workers > maxWorkers {
		workers = maxWorkers
	}

	type parsed struct {
		index   int
		result  *schema.ParseResult
		outcome FileOutcome
		skip    string
	}

	jobs := make(chan int, len(files))
	out := make(chan parsed, len(files))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				f := files[i]
				p := d.registry.ForFile(f.RelPath, "")
				if p == nil {
					out <- parsed{index: i, skip: SkipUnknownExtension}
					continue
				}
				src, err := readFile(f)
				if err != nil {
					logger.Warn("ingest.file.unreadable", "path", f.RelPath, "error", err)
					out <- parsed{index: i, skip: SkipUnreadable}
					continue
				}
				res := p.Parse(src, namespace, f.RelPath)
				out <- parsed{
					index:  i,
					result: res,
					outcome: FileOutcome{
						Path:        f.RelPath,
						Language:    res.Language,
						Units:       len(res.Units),
						ParseErrors: len(res.Errors),
						Failed:      len(res.Units) == 0 && len(res.Errors) > 0,
					},
				}
			}
		}()
	}
	for i := range files {
		jobs <- i
	}
	close(jobs)
	go func() {
		wg.Wait()
		close(out)
	}()

	ordered := make([]*schema.ParseResult, len(files))
	for p := range out {
		if p.skip != "" {
			summary.SkipReasons[p.skip]++
			continue
		}
		ordered[p.index] = p.result
		summary.FilesParsed++
		summary.ParseErrors += p.outcome.ParseErrors
		if d.Progress != nil {
			d.Progress(p.outcome)
		}
	}

	results := make([]*schema.ParseResult, 0, len(files))
	for _, res := range ordered {
		if res != nil {
			results = append(results, res)
		}
	}
	return results
}

func sumValues(m map[string]int) int {
	total := 0
	for _, n := range m {
		total += n
	}
	return total
}
