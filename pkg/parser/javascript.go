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
	"context"
	"log/slog"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/kraklabs/codegraph/pkg/schema"
)

// JSParser extracts units from JavaScript and TypeScript source: function
// declarations, arrow and function expressions assigned to identifiers,
// classes with their methods, TypeScript interfaces, IIFEs (with synthetic
// names), ES6 imports, and CommonJS require() calls.
type JSParser struct {
	logger *slog.Logger
}

// NewJSParser creates a JavaScript/TypeScript parser.
func NewJSParser(logger *slog.Logger) *JSParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSParser{logger: logger}
}

func (p *JSParser) Language() schema.Language { return schema.LangJavaScript }

func (p *JSParser) Extensions() []string {
	return []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx"}
}

// jsWalkState carries the walk context for one file.
type jsWalkState struct {
	src        []byte
	f          *fileUnits
	moduleID   string
	moduleName string
}

// Parse extracts units from JS/TS source. TypeScript files are parsed with
// the TypeScript grammar; the walker is shared.
func (p *JSParser) Parse(src []byte, namespace, filePath string) *schema.ParseResult {
	lang := schema.LangJavaScript
	grammar := javascript.GetLanguage()
	if ext := strings.ToLower(filePath); strings.HasSuffix(ext, ".ts") || strings.HasSuffix(ext, ".tsx") {
		lang = schema.LangTypeScript
		grammar = typescript.GetLanguage()
	}

	f := newFileUnits(namespace, lang, filePath)
	if len(strings.TrimSpace(string(src))) == 0 {
		return f.result()
	}

	ts := sitter.NewParser()
	ts.SetLanguage(grammar)
	tree, err := ts.ParseCtx(context.Background(), nil, src)
	if err != nil {
		f.addError(0, "tree-sitter parse: "+err.Error())
		return f.result()
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		if n := countSyntaxErrors(root); n > 0 {
			p.logger.Debug("parser.js.syntax_errors", "path", filePath, "error_count", n)
			f.addError(0, "syntax errors in file; extraction is best-effort")
		}
	}

	moduleName := moduleNameFromPath(filePath)
	moduleID := f.add(schema.CodeUnit{
		Name:      moduleName,
		Kind:      schema.KindModule,
		LineStart: 1,
		LineEnd:   int(root.EndPoint().Row) + 1,
		Signature: moduleName,
		Code:      string(src),
	})

	st := &jsWalkState{src: src, f: f, moduleID: moduleID, moduleName: moduleName}
	p.walk(root, st, moduleID, moduleID)

	return f.result()
}

// walk visits the AST, tracking the unit that owns each call site.
// currentID is the unit calls are attributed to; parentID is the CONTAINS
// parent for new units (module, or class inside a class body).
func (p *JSParser) walk(n *sitter.Node, st *jsWalkState, currentID, parentID string) {
	if n == nil {
		return
	}

	switch n.Type() {
	case "import_statement":
		if src := n.ChildByFieldName("source"); src != nil {
			st.f.imports = append(st.f.imports, schema.ImportRef{
				Path: strings.Trim(nodeText(src, st.src), "\"'`"),
				Line: startLine(n),
			})
		}
		return

	case "function_declaration", "generator_function_declaration":
		id := p.addFunction(n, st, parentID, schema.KindFunction)
		p.walkBody(n.ChildByFieldName("body"), st, id, parentID)
		return

	case "variable_declarator":
		if id, handled := p.handleDeclarator(n, st, parentID); handled {
			if value := n.ChildByFieldName("value"); value != nil {
				p.walkBody(value.ChildByFieldName("body"), st, id, parentID)
			}
			return
		}

	case "class_declaration":
		classID := p.addClass(n, st, parentID, schema.KindClass)
		if body := n.ChildByFieldName("body"); body != nil && classID != "" {
			for i := 0; i < int(body.NamedChildCount()); i++ {
				member := body.NamedChild(i)
				if member.Type() == "method_definition" {
					id := p.addFunction(member, st, classID, schema.KindMethod)
					p.walkBody(member.ChildByFieldName("body"), st, id, classID)
				}
			}
		}
		return

	case "interface_declaration":
		// TypeScript only. Method signatures have no bodies; just the type.
		p.addClass(n, st, parentID, schema.KindInterface)
		return

	case "call_expression":
		p.handleCall(n, st, currentID, parentID)
		return
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		p.walk(n.NamedChild(i), st, currentID, parentID)
	}
}

// walkBody descends into a unit body with call attribution switched to the
// new unit.
func (p *JSParser) walkBody(body *sitter.Node, st *jsWalkState, unitID, parentID string) {
	if body == nil || unitID == "" {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		p.walk(body.NamedChild(i), st, unitID, parentID)
	}
}

// handleDeclarator emits a function unit for "const f = () => {}" and
// "const f = function() {}", and records require() imports. Returns the new
// unit ID and whether the declarator was consumed.
func (p *JSParser) handleDeclarator(n *sitter.Node, st *jsWalkState, parentID string) (string, bool) {
	nameNode := n.ChildByFieldName("name")
	value := n.ChildByFieldName("value")
	if nameNode == nil || value == nil {
		return "", false
	}

	switch value.Type() {
	case "arrow_function", "function_expression", "function", "generator_function":
		name := nodeText(nameNode, st.src)
		params := jsParamNames(value.ChildByFieldName("parameters"), st.src)
		if params == nil {
			// Single-parameter arrow without parens: x => x + 1
			if pn := value.ChildByFieldName("parameter"); pn != nil {
				params = []string{nodeText(pn, st.src)}
			}
		}
		id := st.f.add(schema.CodeUnit{
			Name:       name,
			Kind:       schema.KindFunction,
			LineStart:  startLine(n),
			LineEnd:    endLine(n),
			Signature:  renderSignature(name, params),
			Parameters: params,
			Docstring:  jsDeclaratorDoc(n, st.src),
			Code:       nodeText(n, st.src),
			ParentID:   parentID,
		})
		return id, true

	case "call_expression":
		// CommonJS: const x = require('mod')
		fn := value.ChildByFieldName("function")
		if fn != nil && nodeText(fn, st.src) == "require" {
			if args := value.ChildByFieldName("arguments"); args != nil && args.NamedChildCount() > 0 {
				st.f.imports = append(st.f.imports, schema.ImportRef{
					Path:  strings.Trim(nodeText(args.NamedChild(0), st.src), "\"'`"),
					Alias: nodeText(nameNode, st.src),
					Line:  startLine(n),
				})
			}
			return "", true
		}
	}
	return "", false
}

// addFunction emits a function or method unit from a declaration node with
// name/parameters fields.
func (p *JSParser) addFunction(n *sitter.Node, st *jsWalkState, parentID string, kind schema.Kind) string {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return ""
	}
	name := nodeText(nameNode, st.src)
	if name == "" {
		return ""
	}
	params := jsParamNames(n.ChildByFieldName("parameters"), st.src)
	return st.f.add(schema.CodeUnit{
		Name:       name,
		Kind:       kind,
		LineStart:  startLine(n),
		LineEnd:    endLine(n),
		Signature:  renderSignature(name, params),
		Parameters: params,
		Docstring:  leadingComment(n, st.src),
		Code:       nodeText(n, st.src),
		ParentID:   parentID,
	})
}

// addClass emits a class or interface unit.
func (p *JSParser) addClass(n *sitter.Node, st *jsWalkState, parentID string, kind schema.Kind) string {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return ""
	}
	name := nodeText(nameNode, st.src)
	return st.f.add(schema.CodeUnit{
		Name:      name,
		Kind:      kind,
		LineStart: startLine(n),
		LineEnd:   endLine(n),
		Signature: renderSignature(name, nil),
		Docstring: leadingComment(n, st.src),
		Code:      nodeText(n, st.src),
		ParentID:  parentID,
	})
}

// handleCall records a call site. IIFEs additionally produce a unit with a
// synthetic name derived from the module and start line.
func (p *JSParser) handleCall(n *sitter.Node, st *jsWalkState, currentID, parentID string) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}

	// IIFE: (function() { ... })() or (() => { ... })()
	if fn.Type() == "parenthesized_expression" && fn.NamedChildCount() > 0 {
		inner := fn.NamedChild(0)
		t := inner.Type()
		if t == "function_expression" || t == "function" || t == "arrow_function" {
			name := syntheticName(st.moduleName, startLine(n))
			params := jsParamNames(inner.ChildByFieldName("parameters"), st.src)
			id := st.f.add(schema.CodeUnit{
				Name:       name,
				Kind:       schema.KindFunction,
				LineStart:  startLine(n),
				LineEnd:    endLine(n),
				Signature:  renderSignature(name, params),
				Parameters: params,
				Code:       nodeText(n, st.src),
				ParentID:   st.moduleID,
			})
			p.walkBody(inner.ChildByFieldName("body"), st, id, parentID)
			return
		}
	}

	callee := flattenCallee(nodeText(fn, st.src))
	if callee != "" && callee != "require" {
		st.f.appendCallee(currentID, callee)
		st.f.registrations = append(st.f.registrations, registration{
			calleePath: callee,
			args:       callArgIdents(n.ChildByFieldName("arguments"), st.src),
		})
	}

	// Arguments may contain inline callbacks whose calls attribute to the
	// enclosing unit.
	if args := n.ChildByFieldName("arguments"); args != nil {
		for i := 0; i < int(args.NamedChildCount()); i++ {
			p.walk(args.NamedChild(i), st, currentID, parentID)
		}
	}
}

// jsParamNames extracts parameter identifiers from formal_parameters.
func jsParamNames(params *sitter.Node, src []byte) []string {
	if params == nil {
		return nil
	}
	var names []string
	for i := 0; i < int(params.NamedChildCount()); i++ {
		param := params.NamedChild(i)
		switch param.Type() {
		case "identifier":
			names = append(names, nodeText(param, src))
		case "required_parameter", "optional_parameter":
			// TypeScript grammar wraps the pattern.
			if pat := param.ChildByFieldName("pattern"); pat != nil {
				names = append(names, nodeText(pat, src))
			}
		case "assignment_pattern":
			if left := param.ChildByFieldName("left"); left != nil {
				names = append(names, nodeText(left, src))
			}
		case "rest_pattern":
			names = append(names, strings.TrimPrefix(nodeText(param, src), "..."))
		default:
			// Destructuring patterns keep positional identity.
			names = append(names, "_")
		}
	}
	return names
}

// jsDeclaratorDoc finds the doc comment for a variable declarator, looking
// at the enclosing declaration statement.
func jsDeclaratorDoc(n *sitter.Node, src []byte) string {
	for p := n.Parent(); p != nil; p = p.Parent() {
		t := p.Type()
		if t == "lexical_declaration" || t == "variable_declaration" {
			return leadingComment(p, src)
		}
		if t == "program" || t == "statement_block" {
			break
		}
	}
	return leadingComment(n, src)
}
