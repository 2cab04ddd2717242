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
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/kraklabs/codegraph/pkg/schema"
)

// Registry maps language tags and file extensions to parsers. Selection
// order: explicit language tag first, then extension; files matching
// neither are skipped.
type Registry struct {
	logger      *slog.Logger
	byLanguage  map[schema.Language]Parser
	byExtension map[string]Parser
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:      logger,
		byLanguage:  make(map[schema.Language]Parser),
		byExtension: make(map[string]Parser),
	}
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry(logger *slog.Logger) *Registry {
	r := NewRegistry(logger)
	for _, p := range []Parser{
		NewGoParser(logger),
		NewJSParser(logger),
		NewJavaParser(logger),
		NewGenericParser(PythonSpec(), logger),
	} {
		if err := r.Register(p); err != nil {
			// Built-in parsers have disjoint languages and extensions.
			panic(err)
		}
	}
	// The JS parser handles TypeScript too; an explicit "typescript" tag
	// must resolve to it.
	r.byLanguage[schema.LangTypeScript] = r.byLanguage[schema.LangJavaScript]
	return r
}

// Register adds a parser. A language or extension may be claimed by at
// most one parser; conflicts are an error so misconfiguration surfaces at
// startup rather than as silent shadowing.
func (r *Registry) Register(p Parser) error {
	lang := p.Language()
	if _, exists := r.byLanguage[lang]; exists {
		return fmt.Errorf("parser for language %q already registered", lang)
	}
	for _, ext := range p.Extensions() {
		ext = normalizeExt(ext)
		if prev, exists := r.byExtension[ext]; exists {
			return fmt.Errorf("extension %q already registered to language %q", ext, prev.Language())
		}
	}
	r.byLanguage[lang] = p
	for _, ext := range p.Extensions() {
		r.byExtension[normalizeExt(ext)] = p
	}
	return nil
}

// ByLanguage returns the parser for a language tag, or nil.
func (r *Registry) ByLanguage(lang schema.Language) Parser {
	return r.byLanguage[lang]
}

// ForFile selects the parser for a file. An explicit language tag wins
// over the extension; an unknown tag or extension yields nil and the file
// is skipped by the caller.
func (r *Registry) ForFile(path string, lang schema.Language) Parser {
	if lang != "" {
		if p, ok := r.byLanguage[lang]; ok {
			return p
		}
		r.logger.Debug("parser.registry.unknown_language", "language", string(lang), "path", path)
		return nil
	}
	ext := normalizeExt(filepath.Ext(path))
	if p, ok := r.byExtension[ext]; ok {
		return p
	}
	r.logger.Debug("parser.registry.unknown_extension", "extension", ext, "path", path)
	return nil
}

// Languages returns the registered language tags.
func (r *Registry) Languages() []schema.Language {
	langs := make([]schema.Language, 0, len(r.byLanguage))
	for lang := range r.byLanguage {
		langs = append(langs, lang)
	}
	return langs
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
