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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the project configuration loaded from .codegraph/project.yaml.
type Config struct {
	// Corpus is the default corpus name; namespaces are <corpus>:<service>.
	Corpus string `yaml:"corpus"`

	Graph     GraphConfig     `yaml:"graph"`
	Vector    VectorConfig    `yaml:"vector"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Query     QueryConfig     `yaml:"query"`
}

// GraphConfig selects and connects the graph backend.
type GraphConfig struct {
	// Backend is "neo4j" or "memory".
	Backend  string `yaml:"backend"`
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// VectorConfig selects and connects the vector backend.
type VectorConfig struct {
	// Backend is "weaviate" or "memory".
	Backend string `yaml:"backend"`
	Host    string `yaml:"host"`
	Scheme  string `yaml:"scheme"`
	Class   string `yaml:"class"`

	// DocClass names the documentation collection. Empty disables
	// documentation retrieval during queries.
	DocClass string `yaml:"doc_class,omitempty"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	// Provider is "mock" or "openai".
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
}

// LLMConfig configures answer synthesis. Disabled by default; queries
// then return retrieval context only.
type LLMConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
}

// IngestConfig holds per-project ingestion defaults; command-line flags
// override them per run.
type IngestConfig struct {
	Include     []string `yaml:"include,omitempty"`
	Exclude     []string `yaml:"exclude,omitempty"`
	Workers     int      `yaml:"workers"`
	MaxFileSize int64    `yaml:"max_file_size"`
}

// QueryConfig holds query pipeline defaults.
type QueryConfig struct {
	KCode       int `yaml:"k_code"`
	KDoc        int `yaml:"k_doc"`
	Expand      int `yaml:"expand"`
	Depth       int `yaml:"depth"`
	BudgetChars int `yaml:"budget_chars"`
}

// ConfigDir returns the .codegraph directory under the repository root.
func ConfigDir(root string) string {
	return filepath.Join(root, ".codegraph")
}

// ConfigPath returns the project configuration path under the repository root.
func ConfigPath(root string) string {
	return filepath.Join(ConfigDir(root), "project.yaml")
}

// DefaultConfig returns a configuration with working local defaults:
// Neo4j and Weaviate on localhost, mock embeddings, LLM disabled.
func DefaultConfig(corpus string) *Config {
	return &Config{
		Corpus: corpus,
		Graph: GraphConfig{
			Backend:  "neo4j",
			URI:      "bolt://localhost:7687",
			Username: "neo4j",
		},
		Vector: VectorConfig{
			Backend: "weaviate",
			Host:    "localhost:8080",
			Scheme:  "http",
		},
		Embedding: EmbeddingConfig{
			Provider: "mock",
		},
		LLM: LLMConfig{
			Model: "gpt-4o-mini",
		},
	}
}

// LoadConfig reads, overrides, and validates the project configuration.
// An empty path resolves to ./.codegraph/project.yaml.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get current directory: %w", err)
		}
		path = ConfigPath(cwd)
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the --config flag
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no configuration at %s (run 'codegraph init' first)", path)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveConfig writes the configuration as YAML.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	// 0600: the file may carry API keys.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// applyEnvOverrides lets environment variables override the file, so
// credentials can stay out of checked-in configuration.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("NEO4J_URI"); v != "" {
		c.Graph.URI = v
	}
	if v := os.Getenv("NEO4J_USERNAME"); v != "" {
		c.Graph.Username = v
	}
	if v := os.Getenv("NEO4J_PASSWORD"); v != "" {
		c.Graph.Password = v
	}
	if v := os.Getenv("WEAVIATE_HOST"); v != "" {
		c.Vector.Host = v
	}
	if v := os.Getenv("WEAVIATE_SCHEME"); v != "" {
		c.Vector.Scheme = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		if c.Embedding.APIKey == "" {
			c.Embedding.APIKey = v
		}
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = v
		}
	}
}

func (c *Config) normalize() {
	if c.Graph.Backend == "" {
		c.Graph.Backend = "neo4j"
	}
	if c.Vector.Backend == "" {
		c.Vector.Backend = "weaviate"
	}
	if c.Vector.Scheme == "" {
		c.Vector.Scheme = "http"
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "mock"
	}
}

func (c *Config) validate() error {
	if c.Corpus == "" {
		return fmt.Errorf("config: corpus is required")
	}
	if strings.Contains(c.Corpus, ":") {
		return fmt.Errorf("config: corpus %q must not contain ':' (namespaces are <corpus>:<service>)", c.Corpus)
	}
	switch c.Graph.Backend {
	case "neo4j", "memory":
	default:
		return fmt.Errorf("config: unknown graph backend %q (supported: neo4j, memory)", c.Graph.Backend)
	}
	switch c.Vector.Backend {
	case "weaviate", "memory":
	default:
		return fmt.Errorf("config: unknown vector backend %q (supported: weaviate, memory)", c.Vector.Backend)
	}
	switch c.Embedding.Provider {
	case "mock", "openai":
	default:
		return fmt.Errorf("config: unknown embedding provider %q (supported: mock, openai)", c.Embedding.Provider)
	}
	return nil
}

// Namespace resolves a service name against the configured corpus.
// A name that already contains ':' is taken as a full namespace.
func (c *Config) Namespace(service string) string {
	if service == "" {
		return c.Corpus
	}
	if strings.Contains(service, ":") {
		return service
	}
	return c.Corpus + ":" + service
}
