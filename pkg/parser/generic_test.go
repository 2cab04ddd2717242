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

const pyFixture = `import json
from shop import db

@app.route("/cart")
def list_cart(user_id):
    """Return the items in a user's cart."""
    return db.query(user_id)

class CartService:
    """Cart operations."""

    def __init__(self, store):
        self.store = store

    def total(self, user_id, rate=1):
        return self.store.sum(user_id) * rate

def main():
    svc = CartService(db)
    print(json.dumps(svc.total("u1")))
`

func TestPythonParserUnits(t *testing.T) {
	p := NewGenericParser(PythonSpec(), nil)
	res := p.Parse([]byte(pyFixture), "demo:py", "shop/cart.py")

	require.NotNil(t, res)
	assert.Equal(t, schema.LangPython, res.Language)

	module := findUnit(t, res.Units, "cart", schema.KindModule)

	listCart := findUnit(t, res.Units, "list_cart", schema.KindFunction)
	assert.Equal(t, module.ID, listCart.ParentID)
	assert.Equal(t, "Return the items in a user's cart.", listCart.Docstring)
	assert.Contains(t, listCart.Callees, "db.query")

	svc := findUnit(t, res.Units, "CartService", schema.KindClass)
	assert.Equal(t, "Cart operations.", svc.Docstring)

	init := findUnit(t, res.Units, "__init__", schema.KindMethod)
	assert.Equal(t, svc.ID, init.ParentID)

	total := findUnit(t, res.Units, "total", schema.KindMethod)
	assert.Equal(t, []string{"self", "user_id", "rate"}, total.Parameters)
	assert.Contains(t, total.Callees, "self.store.sum")

	mainFn := findUnit(t, res.Units, "main", schema.KindFunction)
	assert.Contains(t, mainFn.Callees, "CartService")
	assert.Contains(t, mainFn.Callees, "print")
}

func TestPythonParserImports(t *testing.T) {
	p := NewGenericParser(PythonSpec(), nil)
	res := p.Parse([]byte(pyFixture), "demo:py", "shop/cart.py")

	require.Len(t, res.Imports, 2)
	assert.Equal(t, "json", res.Imports[0].Path)
	assert.Equal(t, "shop", res.Imports[1].Path)
}

func TestPythonParserDecoratorHints(t *testing.T) {
	p := NewGenericParser(PythonSpec(), nil)
	res := p.Parse([]byte(pyFixture), "demo:py", "shop/cart.py")

	listCart := findUnit(t, res.Units, "list_cart", schema.KindFunction)
	assert.True(t, listCart.EntryHint, "@app.route marks a handler")

	mainFn := findUnit(t, res.Units, "main", schema.KindFunction)
	assert.True(t, mainFn.EntryHint)

	total := findUnit(t, res.Units, "total", schema.KindMethod)
	assert.False(t, total.EntryHint)
}

func TestPythonParserEmptyFile(t *testing.T) {
	p := NewGenericParser(PythonSpec(), nil)
	res := p.Parse([]byte(""), "demo:py", "shop/empty.py")
	assert.Empty(t, res.Units)
	assert.Empty(t, res.Errors)
}
