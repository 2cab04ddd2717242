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

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.yaml")

	cfg := DefaultConfig("shop")
	cfg.Graph.Password = "secret"
	cfg.Ingest.Exclude = []string{"gen/**"}
	require.NoError(t, SaveConfig(cfg, path))

	// Config files may carry credentials.
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "shop", loaded.Corpus)
	assert.Equal(t, "neo4j", loaded.Graph.Backend)
	assert.Equal(t, "secret", loaded.Graph.Password)
	assert.Equal(t, []string{"gen/**"}, loaded.Ingest.Exclude)
}

func TestLoadConfigMissing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "project.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "codegraph init")
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.yaml")
	require.NoError(t, SaveConfig(DefaultConfig("shop"), path))

	t.Setenv("NEO4J_URI", "bolt://graph.internal:7687")
	t.Setenv("NEO4J_PASSWORD", "from-env")
	t.Setenv("WEAVIATE_HOST", "vectors.internal:8080")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "bolt://graph.internal:7687", cfg.Graph.URI)
	assert.Equal(t, "from-env", cfg.Graph.Password)
	assert.Equal(t, "vectors.internal:8080", cfg.Vector.Host)
}

func TestConfigValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.yaml")

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty corpus", func(c *Config) { c.Corpus = "" }, "corpus is required"},
		{"corpus with colon", func(c *Config) { c.Corpus = "a:b" }, "must not contain"},
		{"bad graph backend", func(c *Config) { c.Graph.Backend = "dgraph" }, "unknown graph backend"},
		{"bad vector backend", func(c *Config) { c.Vector.Backend = "qdrant" }, "unknown vector backend"},
		{"bad provider", func(c *Config) { c.Embedding.Provider = "cohere" }, "unknown embedding provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("shop")
			tt.mutate(cfg)
			require.NoError(t, SaveConfig(cfg, path))
			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigNamespace(t *testing.T) {
	cfg := DefaultConfig("shop")
	assert.Equal(t, "shop:cart", cfg.Namespace("cart"))
	assert.Equal(t, "shop", cfg.Namespace(""), "empty service means the whole corpus")
	assert.Equal(t, "other:svc", cfg.Namespace("other:svc"), "qualified names pass through")
}
