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

package schema

// Kind classifies a code unit.
type Kind string

const (
	KindModule    Kind = "module"
	KindClass     Kind = "class"
	KindFunction  Kind = "function"
	KindMethod    Kind = "method"
	KindInterface Kind = "interface"
)

// Language identifies the source language of a unit.
type Language string

const (
	LangGo         Language = "go"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangJava       Language = "java"
	LangPython     Language = "python"
)

// EdgeKind is the relationship type between two code units.
type EdgeKind string

const (
	EdgeContains EdgeKind = "CONTAINS"
	EdgeCalls    EdgeKind = "CALLS"
	EdgeImports  EdgeKind = "IMPORTS"
)

// CodeUnit is a parsed source element with stable identity.
// ID is content-addressed (see UnitID) and identical across runs for
// identical inputs.
type CodeUnit struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Kind      Kind     `json:"kind"`
	Language  Language `json:"language"`
	Namespace string   `json:"namespace"`
	FilePath  string   `json:"file_path"`
	LineStart int      `json:"line_start"`
	LineEnd   int      `json:"line_end"`

	// Signature is the language-neutral rendered signature:
	// name plus parenthesized parameter names, no types.
	Signature  string   `json:"signature"`
	Parameters []string `json:"parameters,omitempty"`
	Docstring  string   `json:"docstring,omitempty"`

	// Code is the source substring of the unit (embedding input).
	Code string `json:"code,omitempty"`

	// ParentID is the ID of the enclosing module or class within the same
	// file. Empty only for module units.
	ParentID string `json:"parent_id,omitempty"`

	// Callees are unresolved callee names captured at parse time, with
	// method chains flattened to dotted paths ("a.b.c").
	Callees []string `json:"callees,omitempty"`

	// EntryHint is the parser-side entry point heuristic match. The
	// authoritative is_entry_point flag is derived after loading, once
	// incoming CALLS edges are known.
	EntryHint    bool `json:"entry_hint,omitempty"`
	IsEntryPoint bool `json:"is_entry_point,omitempty"`
}

// Edge is a directed relationship between two units in one namespace.
type Edge struct {
	Kind      EdgeKind `json:"kind"`
	FromID    string   `json:"from_id"`
	ToID      string   `json:"to_id"`
	Namespace string   `json:"namespace"`
}

// ImportRef is a module-level import recorded at parse time. Path may or
// may not resolve to an ingested unit.
type ImportRef struct {
	Path  string `json:"path"`
	Alias string `json:"alias,omitempty"`
	Line  int    `json:"line"`
}

// ParseError is a recoverable per-file parse failure. It never halts
// ingestion.
type ParseError struct {
	FilePath string `json:"file_path"`
	Line     int    `json:"line,omitempty"`
	Message  string `json:"message"`
}

// ParseResult is the uniform output of every language parser.
// Malformed input yields empty Units plus populated Errors, never a panic.
type ParseResult struct {
	FilePath  string       `json:"file_path"`
	Language  Language     `json:"language"`
	Namespace string       `json:"namespace"`
	Units     []CodeUnit   `json:"units"`
	Imports   []ImportRef  `json:"imports,omitempty"`
	Errors    []ParseError `json:"errors,omitempty"`
}

// ModuleUnit returns the module unit of the result, or nil if parsing
// produced none.
func (r *ParseResult) ModuleUnit() *CodeUnit {
	for i := range r.Units {
		if r.Units[i].Kind == KindModule {
			return &r.Units[i]
		}
	}
	return nil
}
