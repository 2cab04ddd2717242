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
	"regexp"
	"strings"

	"github.com/kraklabs/codegraph/pkg/schema"
)

// Entry-point heuristics. Parsers set EntryHint as a best-effort signal;
// the graph loader derives the authoritative is_entry_point flag once
// incoming CALLS edges are known (hint ∧ no incoming calls).

// handlerVerbPattern matches router verb registration like "router.get" or
// "app.Router.post".
var handlerVerbPattern = regexp.MustCompile(`(?i)(^|\.)(router|app|mux|r)\.(get|post|put|delete|patch)$`)

// handlerRegistrationSubstrings are dotted-path fragments that identify HTTP
// handler registration calls.
var handlerRegistrationSubstrings = []string{
	".Handle",
	".HandleFunc",
	"Route",
	"Router",
}

// webAnnotations are framework annotations that mark a method as an HTTP
// entry point.
var webAnnotations = []string{
	"RestController",
	"RequestMapping",
	"GetMapping",
	"PostMapping",
	"PutMapping",
	"DeleteMapping",
	"PatchMapping",
	"Controller",
}

// isHandlerRegistration reports whether a callee path looks like a handler
// registration symbol.
func isHandlerRegistration(calleePath string) bool {
	if handlerVerbPattern.MatchString(calleePath) {
		return true
	}
	for _, s := range handlerRegistrationSubstrings {
		if strings.Contains(calleePath, s) {
			return true
		}
	}
	return false
}

// isWebAnnotation reports whether an annotation name marks an entry point.
func isWebAnnotation(anno string) bool {
	anno = strings.TrimPrefix(anno, "@")
	// Drop any argument list: @GetMapping("/foo") -> GetMapping
	if i := strings.IndexByte(anno, '('); i >= 0 {
		anno = anno[:i]
	}
	for _, w := range webAnnotations {
		if anno == w {
			return true
		}
	}
	// Router decorators: @app.route("/x"), @router.get("/x").
	if strings.HasSuffix(anno, ".route") || handlerVerbPattern.MatchString(anno) {
		return true
	}
	return false
}

// applyEntryHints marks units matching the entry-point heuristics:
//   - top-level main-equivalents,
//   - units referenced as arguments to handler registration calls,
//   - units carrying a recognized web annotation.
//
// init functions and module bodies are never hinted.
func applyEntryHints(units []schema.CodeUnit, regs []registration, annotations map[string][]string) {
	referenced := make(map[string]bool)
	for _, reg := range regs {
		if !isHandlerRegistration(reg.calleePath) {
			continue
		}
		for _, arg := range reg.args {
			referenced[lastSegment(arg)] = true
		}
	}

	for i := range units {
		u := &units[i]
		switch u.Kind {
		case schema.KindModule, schema.KindClass, schema.KindInterface:
			continue
		}
		if u.Name == "init" {
			continue
		}
		if u.Name == "main" && u.Kind == schema.KindFunction {
			u.EntryHint = true
			continue
		}
		if referenced[u.Name] {
			u.EntryHint = true
			continue
		}
		for _, anno := range annotations[u.ID] {
			if isWebAnnotation(anno) {
				u.EntryHint = true
				break
			}
		}
	}
}
