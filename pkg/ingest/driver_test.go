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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/pkg/embed"
	"github.com/kraklabs/codegraph/pkg/graph"
	"github.com/kraklabs/codegraph/pkg/parser"
	"github.com/kraklabs/codegraph/pkg/vector"
)

const goSrc = `package shop

func helper() {}

func main() {
	helper()
}
`

const jsSrc = `function addToCart(item) {
  return save(item);
}

function save(item) {
  return item;
}
`

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

type fixture struct {
	driver *Driver
	graph  *graph.MemoryStore
	vector *vector.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gs := graph.NewMemoryStore()
	vs := vector.NewMemoryStore()
	gen := embed.NewGenerator(embed.NewMockProvider(32, nil), nil, embed.GeneratorConfig{}, nil)
	driver := NewDriver(
		parser.DefaultRegistry(nil),
		graph.NewLoader(gs, nil),
		vector.NewLoader(vs, gen, vector.LoaderConfig{}, nil),
		nil,
	)
	return &fixture{driver: driver, graph: gs, vector: vs}
}

func TestDriverEndToEnd(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.go":     goSrc,
		"web/cart.js": jsSrc,
		"README.md":   "# docs\n",
	})
	fx := newFixture(t)

	summary, err := fx.driver.Run(context.Background(), Request{Root: root, Namespace: "demo:shop"})
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 2, summary.FilesParsed)
	assert.Equal(t, 1, summary.SkipReasons[SkipUnknownExtension])
	// main.go: module + 2 functions; cart.js: module + 2 functions.
	assert.Equal(t, 6, summary.Units)
	assert.Equal(t, 2, summary.CallEdges, "helper and save are resolved")
	assert.Equal(t, summary.Units, summary.Indexed)
	assert.Zero(t, summary.EmbedSkipped)

	counts, err := fx.graph.CountByNamespace(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, counts["demo:shop"])

	n, err := fx.vector.Count(context.Background(), "demo:shop")
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestDriverIdempotentReingest(t *testing.T) {
	root := writeTree(t, map[string]string{"main.go": goSrc})
	fx := newFixture(t)
	ctx := context.Background()

	first, err := fx.driver.Run(ctx, Request{Root: root, Namespace: "demo:shop"})
	require.NoError(t, err)
	second, err := fx.driver.Run(ctx, Request{Root: root, Namespace: "demo:shop"})
	require.NoError(t, err)

	assert.Equal(t, first.Units, second.Units)

	counts, err := fx.graph.CountByNamespace(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Units, counts["demo:shop"], "re-ingest does not duplicate")

	n, err := fx.vector.Count(ctx, "demo:shop")
	require.NoError(t, err)
	assert.Equal(t, first.Indexed, n)
}

func TestDriverNamespaceValidation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.driver.Run(ctx, Request{Root: t.TempDir(), Namespace: "demo"})
	require.Error(t, err, "unqualified namespaces cannot be written")

	_, err = fx.driver.Run(ctx, Request{Root: t.TempDir(), Namespace: "Demo:Shop"})
	require.Error(t, err, "uppercase is rejected")
}

func TestDriverExcludeGlobs(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.go":              goSrc,
		"gen/schema.go":        goSrc,
		"node_modules/x/y.js":  jsSrc,
	})
	fx := newFixture(t)

	summary, err := fx.driver.Run(context.Background(), Request{
		Root:      root,
		Namespace: "demo:shop",
		Exclude:   []string{"gen/**"},
	})
	require.NoError(t, err)

	// Excluded directories are pruned during the walk, so neither gen nor
	// node_modules contributes files.
	assert.Equal(t, 1, summary.FilesParsed)
}

func TestDriverMalformedFileDoesNotAbort(t *testing.T) {
	root := writeTree(t, map[string]string{
		"ok.go":     goSrc,
		"broken.go": "package broken\nfunc ((((",
	})
	fx := newFixture(t)

	summary, err := fx.driver.Run(context.Background(), Request{Root: root, Namespace: "demo:shop"})
	require.NoError(t, err, "a malformed file never fails the run")
	assert.Equal(t, 2, summary.FilesParsed)
	assert.GreaterOrEqual(t, summary.ParseErrors, 1)
	assert.GreaterOrEqual(t, summary.Units, 3, "the healthy file is fully loaded")
}

func TestDriverSkipVectors(t *testing.T) {
	root := writeTree(t, map[string]string{"main.go": goSrc})
	fx := newFixture(t)

	summary, err := fx.driver.Run(context.Background(), Request{
		Root: root, Namespace: "demo:shop", SkipVectors: true,
	})
	require.NoError(t, err)
	assert.Zero(t, summary.Indexed)

	n, err := fx.vector.Count(context.Background(), "")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWalkSizeLimit(t *testing.T) {
	root := writeTree(t, map[string]string{
		"small.go": goSrc,
		"big.go":   string(make([]byte, 2048)),
	})

	files, skips, err := Walk(root, WalkOptions{MaxFileBytes: 1024})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "small.go", files[0].RelPath)
	require.Len(t, skips, 1)
	assert.Equal(t, SkipTooLarge, skips[0].Reason)
}
