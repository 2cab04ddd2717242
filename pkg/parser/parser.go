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
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/codegraph/pkg/schema"
)

// Parser is the capability set every language implementation provides.
type Parser interface {
	// Language returns the language tag this parser handles.
	Language() schema.Language

	// Extensions returns the file extensions (with leading dot) this
	// parser claims.
	Extensions() []string

	// Parse extracts units, imports, and call sites from source. It never
	// panics on malformed input: failures are reported in the result's
	// Errors list and ingestion continues.
	Parse(src []byte, namespace, filePath string) *schema.ParseResult
}

// dottedPathPattern validates a flattened callee path like "a.b.c".
var dottedPathPattern = regexp.MustCompile(`^[A-Za-z_$][\w$]*(\.[A-Za-z_$][\w$]*)*$`)

// nodeText returns the source text of a node.
func nodeText(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return string(src[n.StartByte():n.EndByte()])
}

// flattenCallee normalizes an invoked expression to a dotted path.
// "a.b.c" stays as-is; anything that is not a plain identifier chain
// (index expressions, calls, literals) yields "".
func flattenCallee(expr string) string {
	expr = strings.TrimSpace(expr)
	// Strip pointer/paren noise the grammars sometimes leave in.
	expr = strings.TrimPrefix(expr, "(")
	expr = strings.TrimSuffix(expr, ")")
	// Optional chaining in JS: a?.b → a.b
	expr = strings.ReplaceAll(expr, "?.", ".")
	if !dottedPathPattern.MatchString(expr) {
		return ""
	}
	return expr
}

// lastSegment returns the final component of a dotted path.
func lastSegment(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// renderSignature builds the language-neutral signature: the unit name plus
// parenthesized parameter names, no types.
func renderSignature(name string, params []string) string {
	return name + "(" + strings.Join(params, ", ") + ")"
}

// syntheticName derives a name for an anonymous unit from its enclosing
// scope and start line. Parsers must never emit a unit with an empty name.
func syntheticName(scope string, line int) string {
	if scope == "" {
		scope = "anon"
		return fmt.Sprintf("%s@L%d", scope, line)
	}
	return fmt.Sprintf("%s.anon@L%d", scope, line)
}

// startLine and endLine convert Tree-sitter's 0-based rows to 1-based lines.
func startLine(n *sitter.Node) int { return int(n.StartPoint().Row) + 1 }
func endLine(n *sitter.Node) int   { return int(n.EndPoint().Row) + 1 }

// countSyntaxErrors counts ERROR nodes in a parse tree. Tree-sitter is
// error-tolerant, so a non-zero count still leaves usable structure.
func countSyntaxErrors(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	count := 0
	if node.Type() == "ERROR" || node.IsMissing() {
		count++
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		count += countSyntaxErrors(node.Child(i))
	}
	return count
}

// leadingComment collects the comment block immediately above a node:
// consecutive comment siblings whose last line touches the node. Used for
// docstring capture in every language walker.
func leadingComment(node *sitter.Node, src []byte) string {
	if node == nil || node.Parent() == nil {
		return ""
	}
	var lines []string
	expect := int(node.StartPoint().Row)
	for prev := node.PrevNamedSibling(); prev != nil; prev = prev.PrevNamedSibling() {
		t := prev.Type()
		if t != "comment" && t != "line_comment" && t != "block_comment" {
			break
		}
		if int(prev.EndPoint().Row) < expect-1 {
			break
		}
		lines = append([]string{cleanComment(nodeText(prev, src))}, lines...)
		expect = int(prev.StartPoint().Row)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// cleanComment strips comment markers while keeping the text.
func cleanComment(c string) string {
	c = strings.TrimSpace(c)
	if strings.HasPrefix(c, "/*") {
		c = strings.TrimPrefix(c, "/**")
		c = strings.TrimPrefix(c, "/*")
		c = strings.TrimSuffix(c, "*/")
		var out []string
		for _, line := range strings.Split(c, "\n") {
			line = strings.TrimSpace(line)
			line = strings.TrimPrefix(line, "*")
			out = append(out, strings.TrimSpace(line))
		}
		return strings.TrimSpace(strings.Join(out, "\n"))
	}
	var out []string
	for _, line := range strings.Split(c, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "//")
		line = strings.TrimPrefix(line, "#")
		out = append(out, strings.TrimSpace(line))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// fileUnits tracks units being collected for one file plus the call sites
// and handler registrations needed for entry-point hints.
type fileUnits struct {
	namespace string
	language  schema.Language
	filePath  string

	units         []schema.CodeUnit
	imports       []schema.ImportRef
	errors        []schema.ParseError
	registrations []registration
	annotations   map[string][]string // unit ID -> annotations
}

// registration records a call that passes function references to a
// framework registration symbol, e.g. mux.Handle("/x", decorate(handler)).
type registration struct {
	calleePath string
	args       []string // identifier-ish argument texts, flattened
}

func newFileUnits(namespace string, lang schema.Language, filePath string) *fileUnits {
	return &fileUnits{
		namespace:   namespace,
		language:    lang,
		filePath:    filePath,
		annotations: make(map[string][]string),
	}
}

// add appends a unit, assigning its content-addressed ID.
func (f *fileUnits) add(u schema.CodeUnit) string {
	u.Namespace = f.namespace
	u.Language = f.language
	u.FilePath = f.filePath
	u.ID = schema.UnitID(f.namespace, f.language, f.filePath, u.Kind, u.Name, u.LineStart)
	f.units = append(f.units, u)
	return u.ID
}

// unitKind returns the kind of a collected unit, or "".
func (f *fileUnits) unitKind(unitID string) schema.Kind {
	for i := range f.units {
		if f.units[i].ID == unitID {
			return f.units[i].Kind
		}
	}
	return ""
}

// unitName returns the name of a collected unit, or "".
func (f *fileUnits) unitName(unitID string) string {
	for i := range f.units {
		if f.units[i].ID == unitID {
			return f.units[i].Name
		}
	}
	return ""
}

// addError records a recoverable parse failure.
func (f *fileUnits) addError(line int, msg string) {
	f.errors = append(f.errors, schema.ParseError{FilePath: f.filePath, Line: line, Message: msg})
}

// appendCallee records an unresolved callee on the unit with the given ID.
func (f *fileUnits) appendCallee(unitID, callee string) {
	if callee == "" {
		return
	}
	for i := range f.units {
		if f.units[i].ID == unitID {
			for _, existing := range f.units[i].Callees {
				if existing == callee {
					return
				}
			}
			f.units[i].Callees = append(f.units[i].Callees, callee)
			return
		}
	}
}

// result finalizes the ParseResult, applying entry-point hints.
func (f *fileUnits) result() *schema.ParseResult {
	applyEntryHints(f.units, f.registrations, f.annotations)
	return &schema.ParseResult{
		FilePath:  f.filePath,
		Language:  f.language,
		Namespace: f.namespace,
		Units:     f.units,
		Imports:   f.imports,
		Errors:    f.errors,
	}
}
