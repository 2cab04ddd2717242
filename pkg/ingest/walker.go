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

package ingest

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Skip reasons reported in the run summary.
const (
	SkipUnknownExtension = "unknown_extension"
	SkipExcluded         = "excluded"
	SkipNotIncluded      = "not_included"
	SkipTooLarge         = "too_large"
	SkipUnreadable       = "unreadable"
)

// DefaultMaxFileBytes is the per-file size cutoff; generated bundles and
// vendored blobs above it are skipped, not parsed.
const DefaultMaxFileBytes = 1 << 20

// defaultExcludes are directories nobody wants indexed.
var defaultExcludes = []string{
	"**/node_modules/**",
	"**/vendor/**",
	"**/.git/**",
	"**/dist/**",
	"**/build/**",
	"**/target/**",
	"**/__pycache__/**",
	"**/.venv/**",
}

// WalkOptions filters the source tree.
type WalkOptions struct {
	// Include globs (doublestar syntax, relative to root). Empty means
	// everything.
	Include []string
	// Exclude globs, applied after Include on top of the built-in
	// excludes.
	Exclude []string
	// MaxFileBytes skips larger files. <= 0 means DefaultMaxFileBytes.
	MaxFileBytes int64
}

// WalkedFile is one candidate source file, path relative to the root.
type WalkedFile struct {
	RelPath string
	AbsPath string
	Size    int64
}

// Skip records one skipped file and why.
type Skip struct {
	RelPath string `json:"path"`
	Reason  string `json:"reason"`
}

// Walk collects candidate files under root. Extension filtering happens
// later against the parser registry; the walker only applies globs and
// size limits.
func Walk(root string, opts WalkOptions) ([]WalkedFile, []Skip, error) {
	maxBytes := opts.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	excludes := append(append([]string{}, defaultExcludes...), opts.Exclude...)

	var files []WalkedFile
	var skips []Skip

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			// Prune excluded directories early.
			for _, pattern := range excludes {
				if ok, _ := doublestar.Match(pattern, rel+"/"); ok {
					return fs.SkipDir
				}
				if ok, _ := doublestar.Match(strings.TrimSuffix(pattern, "/**"), rel); ok {
					return fs.SkipDir
				}
			}
			return nil
		}

		for _, pattern := range excludes {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				skips = append(skips, Skip{RelPath: rel, Reason: SkipExcluded})
				return nil
			}
		}
		if len(opts.Include) > 0 {
			included := false
			for _, pattern := range opts.Include {
				if ok, _ := doublestar.Match(pattern, rel); ok {
					included = true
					break
				}
			}
			if !included {
				skips = append(skips, Skip{RelPath: rel, Reason: SkipNotIncluded})
				return nil
			}
		}

		info, err := d.Info()
		if err != nil {
			skips = append(skips, Skip{RelPath: rel, Reason: SkipUnreadable})
			return nil
		}
		if info.Size() > maxBytes {
			skips = append(skips, Skip{RelPath: rel, Reason: SkipTooLarge})
			return nil
		}

		files = append(files, WalkedFile{RelPath: rel, AbsPath: path, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return files, skips, nil
}

// readFile reads one walked file.
func readFile(f WalkedFile) ([]byte, error) {
	return os.ReadFile(f.AbsPath)
}
