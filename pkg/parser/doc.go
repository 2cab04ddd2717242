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

// Package parser turns source files into uniform schema.ParseResult values.
//
// Each language is handled by a Tree-sitter based Parser: Go, JavaScript/
// TypeScript, and Java have dedicated walkers, and a table-driven generic
// driver covers further grammars (Python ships as its first instance). The
// Registry selects a parser by explicit language tag first, then by file
// extension; unknown extensions are skipped with a debug log.
//
// Parsers are error-tolerant: malformed input produces an empty unit list
// plus ParseError entries, never a panic, and a file with syntax errors
// still yields whatever units Tree-sitter could recover. Call sites are
// captured textually as dotted paths ("a.b.c") with no type resolution;
// name resolution happens later in the graph loader.
package parser
