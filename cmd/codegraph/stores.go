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
	"context"
	"log/slog"
	"os"

	"github.com/kraklabs/codegraph/internal/errors"
	"github.com/kraklabs/codegraph/pkg/embed"
	"github.com/kraklabs/codegraph/pkg/graph"
	"github.com/kraklabs/codegraph/pkg/query"
	"github.com/kraklabs/codegraph/pkg/vector"
)

// newLogger builds the command logger. Logs go to stderr so JSON output
// on stdout stays parseable.
func newLogger(globals GlobalFlags) *slog.Logger {
	level := slog.LevelInfo
	if globals.Verbose > 0 {
		level = slog.LevelDebug
	}
	if globals.Quiet && globals.Verbose == 0 {
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// openGraphStore connects the configured graph backend.
func openGraphStore(ctx context.Context, cfg *Config, logger *slog.Logger) (graph.Store, error) {
	switch cfg.Graph.Backend {
	case "memory":
		return graph.NewMemoryStore(), nil
	default:
		store, err := graph.NewNeo4jStore(ctx, graph.Neo4jConfig{
			URI:      cfg.Graph.URI,
			Username: cfg.Graph.Username,
			Password: cfg.Graph.Password,
			Database: cfg.Graph.Database,
		}, logger)
		if err != nil {
			return nil, errors.NewNetworkError(
				"Cannot connect to the graph backend",
				err.Error(),
				"Check that Neo4j is running at "+cfg.Graph.URI+" (or set NEO4J_URI)",
				err,
			)
		}
		return store, nil
	}
}

// openVectorStore connects the configured vector backend.
func openVectorStore(cfg *Config, logger *slog.Logger) (vector.Store, error) {
	switch cfg.Vector.Backend {
	case "memory":
		return vector.NewMemoryStore(), nil
	default:
		store, err := vector.NewWeaviateStore(vector.WeaviateConfig{
			Host:   cfg.Vector.Host,
			Scheme: cfg.Vector.Scheme,
			Class:  cfg.Vector.Class,
		}, logger)
		if err != nil {
			return nil, errors.NewNetworkError(
				"Cannot connect to the vector backend",
				err.Error(),
				"Check that Weaviate is running at "+cfg.Vector.Scheme+"://"+cfg.Vector.Host+" (or set WEAVIATE_HOST)",
				err,
			)
		}
		return store, nil
	}
}

// openDocsStore connects the documentation collection, or returns nil
// when none is configured. The memory backend keeps no documentation
// collection.
func openDocsStore(cfg *Config, logger *slog.Logger) (vector.Store, error) {
	if cfg.Vector.DocClass == "" || cfg.Vector.Backend == "memory" {
		return nil, nil
	}
	store, err := vector.NewWeaviateStore(vector.WeaviateConfig{
		Host:   cfg.Vector.Host,
		Scheme: cfg.Vector.Scheme,
		Class:  cfg.Vector.DocClass,
	}, logger)
	if err != nil {
		return nil, errors.NewNetworkError(
			"Cannot connect to the documentation collection",
			err.Error(),
			"Check that Weaviate is running at "+cfg.Vector.Scheme+"://"+cfg.Vector.Host+" (or unset vector.doc_class)",
			err,
		)
	}
	return store, nil
}

// newEmbedProvider builds the configured embedding provider. Credentials
// from the config file are exported so the provider picks them up.
func newEmbedProvider(cfg *Config, logger *slog.Logger) (embed.Provider, error) {
	if cfg.Embedding.Provider == "openai" {
		if cfg.Embedding.APIKey != "" {
			os.Setenv("OPENAI_API_KEY", cfg.Embedding.APIKey)
		}
		if cfg.Embedding.BaseURL != "" {
			os.Setenv("OPENAI_API_BASE", cfg.Embedding.BaseURL)
		}
	}
	provider, err := embed.NewProvider(cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.Dimensions, logger)
	if err != nil {
		return nil, errors.NewConfigError(
			"Cannot create the embedding provider",
			err.Error(),
			"Set embedding.provider to mock or openai, and OPENAI_API_KEY for openai",
			err,
		)
	}
	return provider, nil
}

// newLLM builds the synthesis client, or nil when disabled.
func newLLM(cfg *Config, logger *slog.Logger) query.LLM {
	if !cfg.LLM.Enabled {
		return nil
	}
	return query.NewOpenAILLM(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, logger)
}
