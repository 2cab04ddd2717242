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

const javaFixture = `package com.shop.cart;

import java.util.List;
import static java.util.Collections.emptyList;

@RestController
public class CartController {

    private final CartService service;

    public CartController(CartService service) {
        this.service = service;
    }

    @GetMapping("/cart")
    public List<String> list(String userId) {
        return service.items(userId);
    }

    public int total(String userId) {
        return new Totaler().sum(service.items(userId));
    }
}

interface CartService {
    List<String> items(String userId);
}
`

func TestJavaParserUnits(t *testing.T) {
	p := NewJavaParser(nil)
	res := p.Parse([]byte(javaFixture), "demo:shop", "src/CartController.java")

	require.NotNil(t, res)
	assert.Equal(t, schema.LangJava, res.Language)

	module := findUnit(t, res.Units, "com.shop.cart", schema.KindModule)

	controller := findUnit(t, res.Units, "CartController", schema.KindClass)
	assert.Equal(t, module.ID, controller.ParentID)

	ctor := findUnit(t, res.Units, "CartController", schema.KindMethod)
	assert.Equal(t, controller.ID, ctor.ParentID)
	assert.Equal(t, []string{"service"}, ctor.Parameters)

	list := findUnit(t, res.Units, "list", schema.KindMethod)
	assert.Equal(t, controller.ID, list.ParentID)
	assert.Contains(t, list.Callees, "service.items")

	total := findUnit(t, res.Units, "total", schema.KindMethod)
	assert.Contains(t, total.Callees, "Totaler", "object creation is a call")

	iface := findUnit(t, res.Units, "CartService", schema.KindInterface)
	assert.Equal(t, module.ID, iface.ParentID)
}

func TestJavaParserImports(t *testing.T) {
	p := NewJavaParser(nil)
	res := p.Parse([]byte(javaFixture), "demo:shop", "src/CartController.java")

	require.Len(t, res.Imports, 2)
	assert.Equal(t, "java.util.List", res.Imports[0].Path)
	assert.Equal(t, "java.util.Collections.emptyList", res.Imports[1].Path)
}

func TestJavaParserAnnotationHints(t *testing.T) {
	p := NewJavaParser(nil)
	res := p.Parse([]byte(javaFixture), "demo:shop", "src/CartController.java")

	list := findUnit(t, res.Units, "list", schema.KindMethod)
	assert.True(t, list.EntryHint, "@GetMapping marks a handler")

	// Class-level @RestController propagates to all methods.
	total := findUnit(t, res.Units, "total", schema.KindMethod)
	assert.True(t, total.EntryHint)
}

func TestJavaParserEmptyFile(t *testing.T) {
	p := NewJavaParser(nil)
	res := p.Parse([]byte("\n"), "demo:shop", "src/Empty.java")
	assert.Empty(t, res.Units)
	assert.Empty(t, res.Errors)
}
