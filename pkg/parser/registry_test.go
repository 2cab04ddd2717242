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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/pkg/schema"
)

func TestRegistrySelection(t *testing.T) {
	r := DefaultRegistry(nil)

	tests := []struct {
		name string
		path string
		lang schema.Language
		want schema.Language // "" means skip
	}{
		{"go by extension", "a/b/main.go", "", schema.LangGo},
		{"js by extension", "src/app.js", "", schema.LangJavaScript},
		{"ts shares js parser", "src/app.ts", "", schema.LangJavaScript},
		{"java by extension", "src/App.java", "", schema.LangJava},
		{"python by extension", "tools/run.py", "", schema.LangPython},
		{"explicit tag beats extension", "weird.txt", schema.LangGo, schema.LangGo},
		{"explicit typescript tag", "handler", schema.LangTypeScript, schema.LangJavaScript},
		{"unknown extension skipped", "README.md", "", ""},
		{"unknown tag skipped", "main.go", schema.Language("cobol"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := r.ForFile(tt.path, tt.lang)
			if tt.want == "" {
				assert.Nil(t, p)
				return
			}
			require.NotNil(t, p)
			assert.Equal(t, tt.want, p.Language())
		})
	}
}

func TestRegistryConflicts(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(NewGoParser(nil)))

	err := r.Register(NewGoParser(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistryLanguages(t *testing.T) {
	r := DefaultRegistry(nil)
	langs := r.Languages()
	assert.Contains(t, langs, schema.LangGo)
	assert.Contains(t, langs, schema.LangJavaScript)
	assert.Contains(t, langs, schema.LangJava)
	assert.Contains(t, langs, schema.LangPython)
}
