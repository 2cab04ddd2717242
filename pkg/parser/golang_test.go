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

package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/pkg/schema"
)

// findUnit returns the first unit with the given name and kind.
func findUnit(t *testing.T, units []schema.CodeUnit, name string, kind schema.Kind) schema.CodeUnit {
	t.Helper()
	for _, u := range units {
		if u.Name == name && u.Kind == kind {
			return u
		}
	}
	require.Failf(t, "unit not found", "name=%s kind=%s", name, kind)
	return schema.CodeUnit{}
}

const goFixture = `package shop

import (
	"fmt"
	h "net/http"
)

// Cart holds pending items.
type Cart struct {
	items []string
}

// Add appends an item.
func (c *Cart) Add(item string) {
	c.items = append(c.items, item)
	fmt.Println(item)
}

// Pricer computes totals.
type Pricer interface {
	Total() int
}

func checkout(w h.ResponseWriter, r *h.Request) {
	c := &Cart{}
	c.Add("x")
}

func main() {
	mux := h.NewServeMux()
	mux.HandleFunc("/checkout", checkout)
	h.ListenAndServe(":8080", mux)
}
`

func TestGoParserUnits(t *testing.T) {
	p := NewGoParser(nil)
	res := p.Parse([]byte(goFixture), "demo:shop", "internal/shop/cart.go")

	require.NotNil(t, res)
	assert.Empty(t, res.Errors)
	assert.Equal(t, schema.LangGo, res.Language)

	module := findUnit(t, res.Units, "shop", schema.KindModule)
	assert.Equal(t, 1, module.LineStart)
	assert.Empty(t, module.ParentID)

	cart := findUnit(t, res.Units, "Cart", schema.KindClass)
	assert.Equal(t, module.ID, cart.ParentID)
	assert.Equal(t, "Cart holds pending items.", cart.Docstring)

	add := findUnit(t, res.Units, "Add", schema.KindMethod)
	assert.Equal(t, cart.ID, add.ParentID, "method parent is receiver type")
	assert.Equal(t, "Add(item)", add.Signature)
	assert.Equal(t, []string{"item"}, add.Parameters)

	pricer := findUnit(t, res.Units, "Pricer", schema.KindInterface)
	assert.Equal(t, module.ID, pricer.ParentID)

	checkout := findUnit(t, res.Units, "checkout", schema.KindFunction)
	assert.Contains(t, checkout.Callees, "c.Add")
}

func TestGoParserImports(t *testing.T) {
	p := NewGoParser(nil)
	res := p.Parse([]byte(goFixture), "demo:shop", "cart.go")

	require.Len(t, res.Imports, 2)
	assert.Equal(t, "fmt", res.Imports[0].Path)
	assert.Equal(t, "net/http", res.Imports[1].Path)
	assert.Equal(t, "h", res.Imports[1].Alias)
}

func TestGoParserEntryHints(t *testing.T) {
	p := NewGoParser(nil)
	res := p.Parse([]byte(goFixture), "demo:shop", "cart.go")

	mainFn := findUnit(t, res.Units, "main", schema.KindFunction)
	assert.True(t, mainFn.EntryHint, "main is always hinted")

	checkout := findUnit(t, res.Units, "checkout", schema.KindFunction)
	assert.True(t, checkout.EntryHint, "registered with mux.HandleFunc")

	add := findUnit(t, res.Units, "Add", schema.KindMethod)
	assert.False(t, add.EntryHint)
}

func TestGoParserDeterministicIDs(t *testing.T) {
	p := NewGoParser(nil)
	a := p.Parse([]byte(goFixture), "demo:shop", "cart.go")
	b := p.Parse([]byte(goFixture), "demo:shop", "cart.go")

	require.Equal(t, len(a.Units), len(b.Units))
	for i := range a.Units {
		assert.Equal(t, a.Units[i].ID, b.Units[i].ID)
		assert.Len(t, a.Units[i].ID, schema.UnitIDLen)
	}
}

func TestGoParserEmptyFile(t *testing.T) {
	p := NewGoParser(nil)
	res := p.Parse([]byte("  \n\t\n"), "demo:shop", "empty.go")

	assert.Empty(t, res.Units)
	assert.Empty(t, res.Errors)
}

func TestGoParserMalformedFile(t *testing.T) {
	p := NewGoParser(nil)
	res := p.Parse([]byte("package broken\nfunc (((("), "demo:shop", "broken.go")

	require.NotEmpty(t, res.Errors, "syntax errors are reported")
	module := findUnit(t, res.Units, "broken", schema.KindModule)
	assert.NotEmpty(t, module.ID, "module unit survives malformed bodies")
}
