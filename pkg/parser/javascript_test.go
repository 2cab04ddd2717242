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

const jsFixture = `import express from 'express';
const db = require('./db');

// addToCart persists one item.
function addToCart(userId, item) {
  return db.insert(userId, item);
}

const listCart = async (userId) => {
  return db.query(userId);
};

class CartService {
  constructor(store) {
    this.store = store;
  }
  total(userId) {
    return this.store.sum(userId);
  }
}

(function () {
  function seedCart() {
    db.insert('seed', 'item');
  }
  seedCart();
})();

const app = express();
app.get('/cart', listCart);
app.post('/cart', addToCart);
`

func TestJSParserUnits(t *testing.T) {
	p := NewJSParser(nil)
	res := p.Parse([]byte(jsFixture), "demo:web", "src/cart.js")

	require.NotNil(t, res)
	assert.Equal(t, schema.LangJavaScript, res.Language)

	module := findUnit(t, res.Units, "cart", schema.KindModule)

	add := findUnit(t, res.Units, "addToCart", schema.KindFunction)
	assert.Equal(t, module.ID, add.ParentID)
	assert.Equal(t, []string{"userId", "item"}, add.Parameters)
	assert.Equal(t, "addToCart persists one item.", add.Docstring)
	assert.Contains(t, add.Callees, "db.insert")

	list := findUnit(t, res.Units, "listCart", schema.KindFunction)
	assert.Contains(t, list.Callees, "db.query")

	svc := findUnit(t, res.Units, "CartService", schema.KindClass)
	ctor := findUnit(t, res.Units, "constructor", schema.KindMethod)
	assert.Equal(t, svc.ID, ctor.ParentID)
	total := findUnit(t, res.Units, "total", schema.KindMethod)
	assert.Equal(t, svc.ID, total.ParentID)
	assert.Contains(t, total.Callees, "this.store.sum")
}

func TestJSParserIIFE(t *testing.T) {
	p := NewJSParser(nil)
	res := p.Parse([]byte(jsFixture), "demo:web", "src/cart.js")

	// The IIFE gets a synthetic name; the declaration inside it is still a
	// regular named unit.
	iife := findUnit(t, res.Units, "cart.anon@L22", schema.KindFunction)
	assert.Contains(t, iife.Callees, "seedCart")

	seed := findUnit(t, res.Units, "seedCart", schema.KindFunction)
	assert.Contains(t, seed.Callees, "db.insert")
}

func TestJSParserImports(t *testing.T) {
	p := NewJSParser(nil)
	res := p.Parse([]byte(jsFixture), "demo:web", "src/cart.js")

	require.Len(t, res.Imports, 2)
	assert.Equal(t, "express", res.Imports[0].Path)
	assert.Equal(t, "./db", res.Imports[1].Path)
	assert.Equal(t, "db", res.Imports[1].Alias)
}

func TestJSParserEntryHints(t *testing.T) {
	p := NewJSParser(nil)
	res := p.Parse([]byte(jsFixture), "demo:web", "src/cart.js")

	add := findUnit(t, res.Units, "addToCart", schema.KindFunction)
	assert.True(t, add.EntryHint, "registered with app.post")
	list := findUnit(t, res.Units, "listCart", schema.KindFunction)
	assert.True(t, list.EntryHint, "registered with app.get")

	total := findUnit(t, res.Units, "total", schema.KindMethod)
	assert.False(t, total.EntryHint)
}

func TestJSParserTypeScript(t *testing.T) {
	src := `interface Pricer {
  total(userId: string): number;
}

export function price(userId: string, rate: number = 1): number {
  return compute(userId) * rate;
}
`
	p := NewJSParser(nil)
	res := p.Parse([]byte(src), "demo:web", "src/price.ts")

	assert.Equal(t, schema.LangTypeScript, res.Language)
	findUnit(t, res.Units, "Pricer", schema.KindInterface)

	price := findUnit(t, res.Units, "price", schema.KindFunction)
	assert.Equal(t, []string{"userId", "rate"}, price.Parameters)
	assert.Contains(t, price.Callees, "compute")
}

func TestJSParserEmptyFile(t *testing.T) {
	p := NewJSParser(nil)
	res := p.Parse([]byte(""), "demo:web", "src/empty.js")
	assert.Empty(t, res.Units)
	assert.Empty(t, res.Errors)
}
