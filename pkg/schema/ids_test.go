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

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitIDDeterministic(t *testing.T) {
	a := UnitID("sock_shop:payment", LangGo, "service.go", KindMethod, "Authorise", 42)
	b := UnitID("sock_shop:payment", LangGo, "service.go", KindMethod, "Authorise", 42)
	assert.Equal(t, a, b, "identical inputs must yield identical IDs")
	assert.Len(t, a, UnitIDLen)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]+$`), a)
}

func TestUnitIDSensitivity(t *testing.T) {
	base := UnitID("ns:a", LangGo, "service.go", KindFunction, "Authorise", 10)

	tests := []struct {
		name string
		id   string
	}{
		{"namespace", UnitID("ns:b", LangGo, "service.go", KindFunction, "Authorise", 10)},
		{"language", UnitID("ns:a", LangJava, "service.go", KindFunction, "Authorise", 10)},
		{"file_path", UnitID("ns:a", LangGo, "other.go", KindFunction, "Authorise", 10)},
		{"kind", UnitID("ns:a", LangGo, "service.go", KindMethod, "Authorise", 10)},
		{"name", UnitID("ns:a", LangGo, "service.go", KindFunction, "Decline", 10)},
		{"line_start", UnitID("ns:a", LangGo, "service.go", KindFunction, "Authorise", 11)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, base, tt.id)
		})
	}
}

func TestUnitIDPathNormalization(t *testing.T) {
	a := UnitID("ns:a", LangGo, "./pkg/service.go", KindFunction, "F", 1)
	b := UnitID("ns:a", LangGo, "pkg/service.go", KindFunction, "F", 1)
	c := UnitID("ns:a", LangGo, "pkg//service.go", KindFunction, "F", 1)
	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
}

func TestPointIDFormat(t *testing.T) {
	id := UnitID("ns:a", LangGo, "service.go", KindFunction, "F", 1)
	pid := PointID(id)
	require.Regexp(t,
		regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`),
		pid)

	// Deterministic and hex-preserving: the dashes removed must equal the
	// first 32 hex chars of the unit ID.
	assert.Equal(t, pid, PointID(id))
	stripped := ""
	for _, c := range pid {
		if c != '-' {
			stripped += string(c)
		}
	}
	assert.Equal(t, id[:32], stripped)
}

func TestPointIDShortInput(t *testing.T) {
	// Shorter-than-32 IDs are zero-padded, not rejected.
	pid := PointID("abcd1234")
	assert.Regexp(t,
		regexp.MustCompile(`^abcd1234-0000-0000-0000-000000000000$`),
		pid)
}

func TestNamespaceValidation(t *testing.T) {
	assert.NoError(t, ValidateNamespace("sock_shop:payment"))
	assert.NoError(t, ValidateNamespace("sock_shop"))
	assert.NoError(t, ValidateNamespace("demo-corpus:front-end"))
	assert.Error(t, ValidateNamespace(""))
	assert.Error(t, ValidateNamespace("Has:Upper"))
	assert.Error(t, ValidateNamespace("a:b:c"))
	assert.Error(t, ValidateNamespace("spaces here"))
}

func TestNamespaceMatches(t *testing.T) {
	assert.True(t, NamespaceMatches("sock_shop:payment", ""))
	assert.True(t, NamespaceMatches("sock_shop:payment", "sock_shop"))
	assert.True(t, NamespaceMatches("sock_shop:payment", "sock_shop:payment"))
	assert.False(t, NamespaceMatches("sock_shop:payment", "sock_shop:user"))
	assert.False(t, NamespaceMatches("sock_shop:payment", "other"))
}
