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
	"time"

	"github.com/kraklabs/codegraph/internal/errors"
	"github.com/kraklabs/codegraph/internal/output"
	"github.com/kraklabs/codegraph/internal/ui"
)

// PurgeResult reports what a purge removed, for JSON output.
type PurgeResult struct {
	Namespace     string `json:"namespace"`
	UnitsRemoved  int    `json:"units_removed"`
	VectorsPurged bool   `json:"vectors_purged"`
}

// runPurge executes the 'purge' CLI command, deleting every unit and
// vector in a namespace. A bare corpus name purges all its services.
//
// Flags:
//   - --namespace: Namespace to purge (required)
//   - --yes: Confirm the purge (required)
//
// Examples:
//
//	codegraph purge --namespace shop:cart --yes
//	codegraph purge --namespace shop --yes     Purge the whole corpus
func runPurge(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("purge", flag.ExitOnError)
	namespace := fs.String("namespace", "", "Namespace to purge (required)")
	confirm := fs.Bool("yes", false, "Confirm the purge (required)")
	timeout := fs.Duration("timeout", 2*time.Minute, "Purge timeout")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codegraph purge --namespace <ns> --yes

Deletes all units, call edges, and vectors in the namespace. A bare
corpus name (no ':') purges every service under it.

WARNING: This operation is destructive and cannot be undone!

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *namespace == "" {
		errors.FatalError(errors.NewInputError(
			"Missing namespace",
			"The purge command requires an explicit namespace",
			"Pass --namespace <corpus>:<service> (or a bare corpus to purge all services)",
		), globals.JSON)
	}
	if !*confirm {
		errors.FatalError(errors.NewInputError(
			"Confirmation required",
			fmt.Sprintf("Purging %q deletes all its indexed data", *namespace),
			"Re-run with --yes to confirm",
		), globals.JSON)
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

	removed, err := graphStore.Purge(ctx, *namespace)
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Graph purge failed", err.Error(),
			"Check the graph backend connection", err), globals.JSON)
	}
	if err := vectorStore.DeleteByNamespace(ctx, *namespace); err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Vector purge failed",
			fmt.Sprintf("the graph was already purged (%d units); the vector store was not: %v", removed, err),
			"Re-run the purge once the vector backend is reachable", err), globals.JSON)
	}

	result := &PurgeResult{Namespace: *namespace, UnitsRemoved: removed, VectorsPurged: true}
	if globals.JSON {
		if err := output.JSON(result); err != nil {
			errors.FatalError(err, true)
		}
		return
	}
	ui.Successf("purged %s: %d units removed", result.Namespace, result.UnitsRemoved)
}
