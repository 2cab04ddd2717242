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
	"github.com/smacker/go-tree-sitter/python"

	"github.com/kraklabs/codegraph/pkg/schema"
)

// GrammarSpec describes a Tree-sitter grammar well enough for the generic
// walker to extract units from it. Languages with regular def/class shapes
// need only a table entry here, not a dedicated parser.
type GrammarSpec struct {
	Language   schema.Language
	Extensions []string
	Grammar    func() *sitter.Language

	// Node types.
	FunctionNodes map[string]bool
	ClassNodes    map[string]bool
	CallNode      string
	ImportNodes   map[string]bool
	DecoratedNode string // wrapper like Python's decorated_definition, or ""
	DecoratorNode string

	// Field names on declaration nodes.
	NameField   string
	ParamsField string
	BodyField   string

	// ImportPath extracts the imported path from an import node.
	ImportPath func(n *sitter.Node, src []byte) string

	// Docstring extracts an in-body docstring (Python style); the leading
	// comment block is used as fallback. Nil means leading comments only.
	Docstring func(body *sitter.Node, src []byte) string
}

// PythonSpec is the grammar table for Python.
func PythonSpec() GrammarSpec {
	return GrammarSpec{
		Language:      schema.LangPython,
		Extensions:    []string{".py"},
		Grammar:       python.GetLanguage,
		FunctionNodes: map[string]bool{"function_definition": true},
		ClassNodes:    map[string]bool{"class_definition": true},
		CallNode:      "call",
		ImportNodes:   map[string]bool{"import_statement": true, "import_from_statement": true},
		DecoratedNode: "decorated_definition",
		DecoratorNode: "decorator",
		NameField:     "name",
		ParamsField:   "parameters",
		BodyField:     "body",
		ImportPath:    pythonImportPath,
		Docstring:     pythonDocstring,
	}
}

// GenericParser drives extraction from a GrammarSpec.
type GenericParser struct {
	spec   GrammarSpec
	logger *slog.Logger
}

// NewGenericParser creates a table-driven parser for the given grammar.
func NewGenericParser(spec GrammarSpec, logger *slog.Logger) *GenericParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenericParser{spec: spec, logger: logger}
}

func (p *GenericParser) Language() schema.Language { return p.spec.Language }

func (p *GenericParser) Extensions() []string { return p.spec.Extensions }

// Parse extracts units using the grammar table.
func (p *GenericParser) Parse(src []byte, namespace, filePath string) *schema.ParseResult {
	f := newFileUnits(namespace, p.spec.Language, filePath)
	if len(strings.TrimSpace(string(src))) == 0 {
		return f.result()
	}

	ts := sitter.NewParser()
	ts.SetLanguage(p.spec.Grammar())
	tree, err := ts.ParseCtx(context.Background(), nil, src)
	if err != nil {
		f.addError(0, "tree-sitter parse: "+err.Error())
		return f.result()
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		if n := countSyntaxErrors(root); n > 0 {
			p.logger.Debug("parser.generic.syntax_errors",
				"language", string(p.spec.Language), "path", filePath, "error_count", n)
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

	p.walk(root, src, f, moduleID, moduleID, nil)
	return f.result()
}

// walk visits the tree. currentID receives call attributions; parentID is
// the CONTAINS parent for new units; decorators carry annotations from an
// enclosing decorated-definition wrapper.
func (p *GenericParser) walk(n *sitter.Node, src []byte, f *fileUnits, currentID, parentID string, decorators []string) {
	if n == nil {
		return
	}

	t := n.Type()
	switch {
	case t == p.spec.DecoratedNode && p.spec.DecoratedNode != "":
		var annos []string
		var def *sitter.Node
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child.Type() == p.spec.DecoratorNode {
				annos = append(annos, strings.TrimPrefix(nodeText(child, src), "@"))
				continue
			}
			def = child
		}
		p.walk(def, src, f, currentID, parentID, annos)
		return

	case p.spec.ImportNodes[t]:
		if path := p.spec.ImportPath(n, src); path != "" {
			f.imports = append(f.imports, schema.ImportRef{Path: path, Line: startLine(n)})
		}
		return

	case p.spec.FunctionNodes[t]:
		kind := schema.KindFunction
		if f.unitKind(parentID) == schema.KindClass {
			kind = schema.KindMethod
		}
		id := p.addUnit(n, src, f, parentID, kind)
		if id != "" {
			f.annotations[id] = decorators
			for _, anno := range decorators {
				// Router decorators register the function they wrap.
				f.registrations = append(f.registrations, registration{
					calleePath: decoratorPath(anno),
					args:       []string{f.unitName(id)},
				})
			}
			p.walkBody(n.ChildByFieldName(p.spec.BodyField), src, f, id, parentID)
		}
		return

	case p.spec.ClassNodes[t]:
		id := p.addUnit(n, src, f, parentID, schema.KindClass)
		if id != "" {
			f.annotations[id] = decorators
			p.walkBody(n.ChildByFieldName(p.spec.BodyField), src, f, currentID, id)
		}
		return

	case t == p.spec.CallNode:
		fn := n.ChildByFieldName("function")
		if callee := flattenCallee(nodeText(fn, src)); callee != "" {
			f.appendCallee(currentID, callee)
			f.registrations = append(f.registrations, registration{
				calleePath: callee,
				args:       callArgIdents(n.ChildByFieldName("arguments"), src),
			})
		}
		// Inline lambdas in arguments attribute to the enclosing unit.
		if args := n.ChildByFieldName("arguments"); args != nil {
			for i := 0; i < int(args.NamedChildCount()); i++ {
				p.walk(args.NamedChild(i), src, f, currentID, parentID, nil)
			}
		}
		return
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		p.walk(n.NamedChild(i), src, f, currentID, parentID, nil)
	}
}

// walkBody descends into a unit body with call attribution switched to it.
func (p *GenericParser) walkBody(body *sitter.Node, src []byte, f *fileUnits, currentID, parentID string) {
	if body == nil {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		p.walk(body.NamedChild(i), src, f, currentID, parentID, nil)
	}
}

// addUnit emits one unit from a declaration node per the grammar table.
func (p *GenericParser) addUnit(n *sitter.Node, src []byte, f *fileUnits, parentID string, kind schema.Kind) string {
	nameNode := n.ChildByFieldName(p.spec.NameField)
	if nameNode == nil {
		return ""
	}
	name := nodeText(nameNode, src)
	if name == "" {
		return ""
	}
	params := genericParamNames(n.ChildByFieldName(p.spec.ParamsField), src)

	doc := ""
	if p.spec.Docstring != nil {
		doc = p.spec.Docstring(n.ChildByFieldName(p.spec.BodyField), src)
	}
	if doc == "" {
		doc = leadingComment(n, src)
	}

	return f.add(schema.CodeUnit{
		Name:       name,
		Kind:       kind,
		LineStart:  startLine(n),
		LineEnd:    endLine(n),
		Signature:  renderSignature(name, params),
		Parameters: params,
		Docstring:  doc,
		Code:       nodeText(n, src),
		ParentID:   parentID,
	})
}

// genericParamNames extracts parameter identifiers, taking the leading
// identifier of typed and defaulted forms.
func genericParamNames(params *sitter.Node, src []byte) []string {
	if params == nil {
		return nil
	}
	var names []string
	for i := 0; i < int(params.NamedChildCount()); i++ {
		param := params.NamedChild(i)
		switch param.Type() {
		case "identifier":
			names = append(names, nodeText(param, src))
		case "typed_parameter", "default_parameter", "typed_default_parameter":
			if nameNode := param.ChildByFieldName("name"); nameNode != nil {
				names = append(names, nodeText(nameNode, src))
			} else if param.NamedChildCount() > 0 {
				names = append(names, nodeText(param.NamedChild(0), src))
			}
		case "list_splat_pattern", "dictionary_splat_pattern":
			names = append(names, strings.TrimLeft(nodeText(param, src), "*"))
		}
	}
	return names
}

// decoratorPath strips a decorator's argument list: app.route("/x") ->
// app.route.
func decoratorPath(anno string) string {
	if i := strings.IndexByte(anno, '('); i >= 0 {
		anno = anno[:i]
	}
	return strings.TrimSpace(anno)
}

// pythonImportPath extracts the module path from import forms.
func pythonImportPath(n *sitter.Node, src []byte) string {
	if mod := n.ChildByFieldName("module_name"); mod != nil {
		return nodeText(mod, src)
	}
	if n.NamedChildCount() > 0 {
		first := n.NamedChild(0)
		if first.Type() == "dotted_name" || first.Type() == "aliased_import" || first.Type() == "relative_import" {
			text := nodeText(first, src)
			if i := strings.Index(text, " as "); i >= 0 {
				text = text[:i]
			}
			return strings.TrimSpace(text)
		}
	}
	return ""
}

// pythonDocstring returns the leading string literal of a block body.
func pythonDocstring(body *sitter.Node, src []byte) string {
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	lit := first.NamedChild(0)
	if lit.Type() != "string" {
		return ""
	}
	text := nodeText(lit, src)
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(text, q) && strings.HasSuffix(text, q) && len(text) >= 2*len(q) {
			return strings.TrimSpace(text[len(q) : len(text)-len(q)])
		}
	}
	return strings.TrimSpace(text)
}
