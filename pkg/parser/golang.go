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
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/kraklabs/codegraph/pkg/schema"
)

// GoParser extracts units from Go source: package module, structs and
// interfaces as classes, top-level functions, and receiver methods.
type GoParser struct {
	logger *slog.Logger
}

// NewGoParser creates a Go parser.
func NewGoParser(logger *slog.Logger) *GoParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &GoParser{logger: logger}
}

func (p *GoParser) Language() schema.Language { return schema.LangGo }

func (p *GoParser) Extensions() []string { return []string{".go"} }

// Parse extracts the module, type, function, and method units from Go
// source together with imports and textual call sites.
//
// A fresh Tree-sitter parser is created per call: sitter.Parser carries
// mutable state and Parse runs concurrently from the ingestion pool.
func (p *GoParser) Parse(src []byte, namespace, filePath string) *schema.ParseResult {
	f := newFileUnits(namespace, schema.LangGo, filePath)
	if len(strings.TrimSpace(string(src))) == 0 {
		return f.result()
	}

	ts := sitter.NewParser()
	ts.SetLanguage(golang.GetLanguage())
	tree, err := ts.ParseCtx(context.Background(), nil, src)
	if err != nil {
		f.addError(0, "tree-sitter parse: "+err.Error())
		return f.result()
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		if n := countSyntaxErrors(root); n > 0 {
			p.logger.Debug("parser.go.syntax_errors", "path", filePath, "error_count", n)
			f.addError(0, "syntax errors in file; extraction is best-effort")
		}
	}

	moduleName := p.packageName(root, src)
	if moduleName == "" {
		moduleName = moduleNameFromPath(filePath)
	}
	moduleID := f.add(schema.CodeUnit{
		Name:      moduleName,
		Kind:      schema.KindModule,
		LineStart: 1,
		LineEnd:   int(root.EndPoint().Row) + 1,
		Signature: moduleName,
		Code:      string(src),
	})

	p.extractImports(root, src, f)
	classIDs := p.extractTypes(root, src, f, moduleID)
	p.extractFunctions(root, src, f, moduleID, classIDs)

	return f.result()
}

// packageName returns the declared package identifier, or "".
func (p *GoParser) packageName(root *sitter.Node, src []byte) string {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() == "package_clause" {
			for j := 0; j < int(child.NamedChildCount()); j++ {
				if child.NamedChild(j).Type() == "package_identifier" {
					return nodeText(child.NamedChild(j), src)
				}
			}
		}
	}
	return ""
}

// extractImports records import specs, including aliased forms.
func (p *GoParser) extractImports(root *sitter.Node, src []byte, f *fileUnits) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "import_spec" {
			pathNode := n.ChildByFieldName("path")
			if pathNode == nil {
				return
			}
			path := strings.Trim(nodeText(pathNode, src), `"`)
			alias := ""
			if nameNode := n.ChildByFieldName("name"); nameNode != nil {
				alias = nodeText(nameNode, src)
			}
			f.imports = append(f.imports, schema.ImportRef{
				Path:  path,
				Alias: alias,
				Line:  startLine(n),
			})
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(root)
}

// extractTypes emits struct and interface declarations as class/interface
// units. Returns type name -> unit ID for method parent resolution.
func (p *GoParser) extractTypes(root *sitter.Node, src []byte, f *fileUnits, moduleID string) map[string]string {
	classIDs := make(map[string]string)

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "type_spec" {
			nameNode := n.ChildByFieldName("name")
			typeNode := n.ChildByFieldName("type")
			if nameNode != nil && typeNode != nil {
				var kind schema.Kind
				switch typeNode.Type() {
				case "struct_type":
					kind = schema.KindClass
				case "interface_type":
					kind = schema.KindInterface
				}
				if kind != "" {
					name := nodeText(nameNode, src)
					doc := goTypeDoc(n, src)
					id := f.add(schema.CodeUnit{
						Name:      name,
						Kind:      kind,
						LineStart: startLine(n),
						LineEnd:   endLine(n),
						Signature: renderSignature(name, nil),
						Docstring: doc,
						Code:      nodeText(n, src),
						ParentID:  moduleID,
					})
					classIDs[name] = id
				}
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(root)
	return classIDs
}

// goTypeDoc finds the doc comment for a type_spec, checking the enclosing
// type_declaration for single-type declarations.
func goTypeDoc(spec *sitter.Node, src []byte) string {
	if doc := leadingComment(spec, src); doc != "" {
		return doc
	}
	if parent := spec.Parent(); parent != nil && parent.Type() == "type_declaration" {
		return leadingComment(parent, src)
	}
	return ""
}

// extractFunctions emits function and method declarations and captures
// their call sites. Func literals are not emitted as units; calls inside
// them are attributed to the enclosing declaration.
func (p *GoParser) extractFunctions(root *sitter.Node, src []byte, f *fileUnits, moduleID string, classIDs map[string]string) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		switch n.Type() {
		case "function_declaration":
			nameNode := n.ChildByFieldName("name")
			if nameNode == nil {
				break
			}
			name := nodeText(nameNode, src)
			params := goParamNames(n.ChildByFieldName("parameters"), src)
			id := f.add(schema.CodeUnit{
				Name:       name,
				Kind:       schema.KindFunction,
				LineStart:  startLine(n),
				LineEnd:    endLine(n),
				Signature:  renderSignature(name, params),
				Parameters: params,
				Docstring:  leadingComment(n, src),
				Code:       nodeText(n, src),
				ParentID:   moduleID,
			})
			p.extractCalls(n.ChildByFieldName("body"), src, f, id)

		case "method_declaration":
			nameNode := n.ChildByFieldName("name")
			if nameNode == nil {
				break
			}
			name := nodeText(nameNode, src)
			params := goParamNames(n.ChildByFieldName("parameters"), src)
			parentID := moduleID
			if recvType := goReceiverType(n.ChildByFieldName("receiver"), src); recvType != "" {
				if classID, ok := classIDs[recvType]; ok {
					parentID = classID
				}
			}
			id := f.add(schema.CodeUnit{
				Name:       name,
				Kind:       schema.KindMethod,
				LineStart:  startLine(n),
				LineEnd:    endLine(n),
				Signature:  renderSignature(name, params),
				Parameters: params,
				Docstring:  leadingComment(n, src),
				Code:       nodeText(n, src),
				ParentID:   parentID,
			})
			p.extractCalls(n.ChildByFieldName("body"), src, f, id)
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(root)
}

// extractCalls walks a function body for call expressions, recording
// flattened callee paths and handler registration arguments.
func (p *GoParser) extractCalls(body *sitter.Node, src []byte, f *fileUnits, unitID string) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "call_expression" {
			fn := n.ChildByFieldName("function")
			callee := flattenCallee(nodeText(fn, src))
			if callee != "" {
				f.appendCallee(unitID, callee)
				f.registrations = append(f.registrations, registration{
					calleePath: callee,
					args:       callArgIdents(n.ChildByFieldName("arguments"), src),
				})
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(body)
}

// callArgIdents collects identifier-shaped argument texts from an argument
// list, for entry-point hint matching.
func callArgIdents(args *sitter.Node, src []byte) []string {
	if args == nil {
		return nil
	}
	var idents []string
	for i := 0; i < int(args.NamedChildCount()); i++ {
		if ident := flattenCallee(nodeText(args.NamedChild(i), src)); ident != "" {
			idents = append(idents, ident)
		}
	}
	return idents
}

// goParamNames extracts declared parameter identifiers in order.
func goParamNames(params *sitter.Node, src []byte) []string {
	if params == nil {
		return nil
	}
	var names []string
	for i := 0; i < int(params.NamedChildCount()); i++ {
		decl := params.NamedChild(i)
		t := decl.Type()
		if t != "parameter_declaration" && t != "variadic_parameter_declaration" {
			continue
		}
		found := false
		for j := 0; j < int(decl.NamedChildCount()); j++ {
			child := decl.NamedChild(j)
			if child.Type() == "identifier" {
				names = append(names, nodeText(child, src))
				found = true
			}
		}
		// Unnamed parameter (type only): keep ordering with a placeholder.
		if !found {
			names = append(names, "_")
		}
	}
	return names
}

// goReceiverType extracts the bare receiver type name from "(s *Server)".
func goReceiverType(receiver *sitter.Node, src []byte) string {
	if receiver == nil {
		return ""
	}
	text := nodeText(receiver, src)
	text = strings.Trim(text, "()")
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	typeName := fields[len(fields)-1]
	typeName = strings.TrimPrefix(typeName, "*")
	// Drop generic type arguments: Server[T] -> Server
	if i := strings.IndexByte(typeName, '['); i >= 0 {
		typeName = typeName[:i]
	}
	return typeName
}

// moduleNameFromPath derives a module name from the file base name.
func moduleNameFromPath(filePath string) string {
	base := filePath
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	if base == "" {
		base = "module"
	}
	return base
}
