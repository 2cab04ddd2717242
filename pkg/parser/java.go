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
	"github.com/smacker/go-tree-sitter/java"

	"github.com/kraklabs/codegraph/pkg/schema"
)

// JavaParser extracts units from Java source: classes, interfaces, and
// enums with their methods and constructors, imports, and method
// invocations. Annotations feed the entry-point heuristics; class-level
// web annotations propagate to the class's methods.
type JavaParser struct {
	logger *slog.Logger
}

// NewJavaParser creates a Java parser.
func NewJavaParser(logger *slog.Logger) *JavaParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &JavaParser{logger: logger}
}

func (p *JavaParser) Language() schema.Language { return schema.LangJava }

func (p *JavaParser) Extensions() []string { return []string{".java"} }

// Parse extracts the module, type, and method units from Java source.
func (p *JavaParser) Parse(src []byte, namespace, filePath string) *schema.ParseResult {
	f := newFileUnits(namespace, schema.LangJava, filePath)
	if len(strings.TrimSpace(string(src))) == 0 {
		return f.result()
	}

	ts := sitter.NewParser()
	ts.SetLanguage(java.GetLanguage())
	tree, err := ts.ParseCtx(context.Background(), nil, src)
	if err != nil {
		f.addError(0, "tree-sitter parse: "+err.Error())
		return f.result()
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		if n := countSyntaxErrors(root); n > 0 {
			p.logger.Debug("parser.java.syntax_errors", "path", filePath, "error_count", n)
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

	for i := 0; i < int(root.NamedChildCount()); i++ {
		p.walkTop(root.NamedChild(i), src, f, moduleID)
	}

	return f.result()
}

// packageName returns the declared package, or "".
func (p *JavaParser) packageName(root *sitter.Node, src []byte) string {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() == "package_declaration" {
			for j := 0; j < int(child.NamedChildCount()); j++ {
				t := child.NamedChild(j).Type()
				if t == "scoped_identifier" || t == "identifier" {
					return nodeText(child.NamedChild(j), src)
				}
			}
		}
	}
	return ""
}

// walkTop handles compilation-unit level declarations.
func (p *JavaParser) walkTop(n *sitter.Node, src []byte, f *fileUnits, moduleID string) {
	switch n.Type() {
	case "import_declaration":
		p.addImport(n, src, f)
	case "class_declaration", "enum_declaration", "record_declaration":
		p.addType(n, src, f, moduleID, schema.KindClass)
	case "interface_declaration", "annotation_type_declaration":
		p.addType(n, src, f, moduleID, schema.KindInterface)
	}
}

// addImport records an import declaration, including static and wildcard
// forms.
func (p *JavaParser) addImport(n *sitter.Node, src []byte, f *fileUnits) {
	text := nodeText(n, src)
	text = strings.TrimPrefix(text, "import")
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), ";"))
	text = strings.TrimSpace(strings.TrimPrefix(text, "static"))
	if text == "" {
		return
	}
	f.imports = append(f.imports, schema.ImportRef{Path: text, Line: startLine(n)})
}

// addType emits a class/interface/enum unit and its members. Nested types
// become classes parented on the enclosing type.
func (p *JavaParser) addType(n *sitter.Node, src []byte, f *fileUnits, parentID string, kind schema.Kind) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, src)
	typeAnnotations := javaAnnotations(n, src)
	typeID := f.add(schema.CodeUnit{
		Name:      name,
		Kind:      kind,
		LineStart: startLine(n),
		LineEnd:   endLine(n),
		Signature: renderSignature(name, nil),
		Docstring: leadingComment(n, src),
		Code:      nodeText(n, src),
		ParentID:  parentID,
	})
	f.annotations[typeID] = typeAnnotations

	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		switch member.Type() {
		case "method_declaration", "constructor_declaration":
			p.addMethod(member, src, f, typeID, typeAnnotations)
		case "class_declaration", "enum_declaration", "record_declaration":
			p.addType(member, src, f, typeID, schema.KindClass)
		case "interface_declaration":
			p.addType(member, src, f, typeID, schema.KindInterface)
		}
	}
}

// addMethod emits a method unit and captures its call sites. The enclosing
// type's annotations are propagated so @RestController marks handler
// methods too.
func (p *JavaParser) addMethod(n *sitter.Node, src []byte, f *fileUnits, classID string, classAnnotations []string) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, src)
	params := javaParamNames(n.ChildByFieldName("parameters"), src)
	id := f.add(schema.CodeUnit{
		Name:       name,
		Kind:       schema.KindMethod,
		LineStart:  startLine(n),
		LineEnd:    endLine(n),
		Signature:  renderSignature(name, params),
		Parameters: params,
		Docstring:  leadingComment(n, src),
		Code:       nodeText(n, src),
		ParentID:   classID,
	})
	f.annotations[id] = append(javaAnnotations(n, src), classAnnotations...)

	p.extractCalls(n.ChildByFieldName("body"), src, f, id)
}

// extractCalls walks a method body for method invocations and object
// creations, recording flattened callee paths.
func (p *JavaParser) extractCalls(body *sitter.Node, src []byte, f *fileUnits, unitID string) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		switch n.Type() {
		case "method_invocation":
			callee := javaInvocationPath(n, src)
			if callee != "" {
				f.appendCallee(unitID, callee)
				f.registrations = append(f.registrations, registration{
					calleePath: callee,
					args:       callArgIdents(n.ChildByFieldName("arguments"), src),
				})
			}
		case "object_creation_expression":
			if typeNode := n.ChildByFieldName("type"); typeNode != nil {
				if callee := flattenCallee(nodeText(typeNode, src)); callee != "" {
					f.appendCallee(unitID, callee)
				}
			}
		case "class_declaration", "method_declaration":
			// Local and anonymous class members own their own call sites.
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(body)
}

// javaInvocationPath flattens "obj.method(...)" to "obj.method". Chained
// receivers that are themselves calls yield just the method name.
func javaInvocationPath(n *sitter.Node, src []byte) string {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return ""
	}
	name := nodeText(nameNode, src)
	if obj := n.ChildByFieldName("object"); obj != nil {
		if objPath := flattenCallee(nodeText(obj, src)); objPath != "" {
			return objPath + "." + name
		}
	}
	return name
}

// javaAnnotations returns the annotation names on a declaration's
// modifiers.
func javaAnnotations(n *sitter.Node, src []byte) []string {
	var annos []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() != "modifiers" {
			continue
		}
		for j := 0; j < int(child.NamedChildCount()); j++ {
			mod := child.NamedChild(j)
			if mod.Type() == "marker_annotation" || mod.Type() == "annotation" {
				annos = append(annos, nodeText(mod, src))
			}
		}
	}
	return annos
}

// javaParamNames extracts parameter identifiers from formal_parameters.
func javaParamNames(params *sitter.Node, src []byte) []string {
	if params == nil {
		return nil
	}
	var names []string
	for i := 0; i < int(params.NamedChildCount()); i++ {
		param := params.NamedChild(i)
		t := param.Type()
		if t != "formal_parameter" && t != "spread_parameter" {
			continue
		}
		if nameNode := param.ChildByFieldName("name"); nameNode != nil {
			names = append(names, nodeText(nameNode, src))
			continue
		}
		// spread_parameter has no name field; take the trailing identifier.
		found := false
		for j := int(param.NamedChildCount()) - 1; j >= 0; j-- {
			if param.NamedChild(j).Type() == "identifier" || param.NamedChild(j).Type() == "variable_declarator" {
				names = append(names, lastSegment(nodeText(param.NamedChild(j), src)))
				found = true
				break
			}
		}
		if !found {
			names = append(names, "_")
		}
	}
	return names
}
