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
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// initFlags holds parsed flags for the init command.
type initFlags struct {
	force, nonInteractive bool
	corpus                string
	graphBackend          string
	vectorBackend         string
	embeddingProvider     string
	llmURL, llmModel      string
}

// runInit executes the 'init' CLI command, creating .codegraph/project.yaml.
//
// Flags:
//   - --force: Overwrite existing configuration
//   - -y: Non-interactive mode, use all defaults
//   - --corpus: Corpus name (default: directory name)
//   - --graph-backend: neo4j or memory
//   - --vector-backend: weaviate or memory
//   - --embedding-provider: mock or openai
//   - --llm-url: OpenAI-compatible API URL for answer synthesis
//   - --llm-model: LLM model name
//
// Examples:
//
//	codegraph init                      Interactive setup
//	codegraph init -y --corpus shop     Use defaults
//	codegraph init --llm-url http://localhost:8001/v1 --llm-model qwen3-coder
func runInit(args []string) {
	flags := parseInitFlags(args)

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot get current directory: %v\n", err)
		os.Exit(1)
	}

	configPath := ConfigPath(cwd)
	if _, err := os.Stat(configPath); err == nil && !flags.force {
		fmt.Fprintf(os.Stderr, "Error: %s already exists. Use --force to overwrite.\n", configPath)
		os.Exit(1)
	}

	cfg := createInitConfig(cwd, flags)
	if !flags.nonInteractive {
		runInteractiveConfig(bufio.NewReader(os.Stdin), cfg)
	}

	if err := os.MkdirAll(ConfigDir(cwd), 0750); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot create .codegraph directory: %v\n", err)
		os.Exit(1)
	}
	if err := SaveConfig(cfg, configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot save configuration: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created %s\n", configPath)
	addToGitignore(cwd)
	printNextSteps()
}

func parseInitFlags(args []string) initFlags {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	var f initFlags
	fs.BoolVar(&f.force, "force", false, "Overwrite existing configuration")
	fs.BoolVar(&f.nonInteractive, "y", false, "Non-interactive mode (use defaults)")
	fs.StringVar(&f.corpus, "corpus", "", "Corpus name (default: directory name)")
	fs.StringVar(&f.graphBackend, "graph-backend", "", "Graph backend (neo4j, memory)")
	fs.StringVar(&f.vectorBackend, "vector-backend", "", "Vector backend (weaviate, memory)")
	fs.StringVar(&f.embeddingProvider, "embedding-provider", "", "Embedding provider (mock, openai)")
	fs.StringVar(&f.llmURL, "llm-url", "", "LLM API URL (OpenAI-compatible, e.g., http://localhost:8001/v1)")
	fs.StringVar(&f.llmModel, "llm-model", "", "LLM model name")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codegraph init [options]

Creates .codegraph/project.yaml configuration.

Examples:
  codegraph init -y --corpus shop
  codegraph init --embedding-provider openai
  codegraph init --llm-url http://localhost:8001/v1 --llm-model qwen3-coder

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	return f
}

func createInitConfig(cwd string, f initFlags) *Config {
	corpus := f.corpus
	if corpus == "" {
		corpus = filepath.Base(cwd)
	}
	cfg := DefaultConfig(corpus)
	if f.graphBackend != "" {
		cfg.Graph.Backend = f.graphBackend
	}
	if f.vectorBackend != "" {
		cfg.Vector.Backend = f.vectorBackend
	}
	if f.embeddingProvider != "" {
		cfg.Embedding.Provider = f.embeddingProvider
	}
	if f.llmURL != "" {
		cfg.LLM.Enabled = true
		cfg.LLM.BaseURL = f.llmURL
	}
	if f.llmModel != "" {
		cfg.LLM.Model = f.llmModel
	}
	return cfg
}

func runInteractiveConfig(reader *bufio.Reader, cfg *Config) {
	fmt.Println("Codegraph Project Configuration")
	fmt.Println("===============================")
	fmt.Println()

	cfg.Corpus = prompt(reader, "Corpus name", cfg.Corpus)

	fmt.Println()
	cfg.Graph.Backend = prompt(reader, "Graph backend (neo4j, memory)", cfg.Graph.Backend)
	if cfg.Graph.Backend == "neo4j" {
		cfg.Graph.URI = prompt(reader, "Neo4j URI", cfg.Graph.URI)
		cfg.Graph.Username = prompt(reader, "Neo4j username", cfg.Graph.Username)
	}

	fmt.Println()
	cfg.Vector.Backend = prompt(reader, "Vector backend (weaviate, memory)", cfg.Vector.Backend)
	if cfg.Vector.Backend == "weaviate" {
		cfg.Vector.Host = prompt(reader, "Weaviate host", cfg.Vector.Host)
	}

	fmt.Println()
	fmt.Println("Embedding Providers: mock (offline), openai")
	cfg.Embedding.Provider = prompt(reader, "Embedding provider", cfg.Embedding.Provider)
	if cfg.Embedding.Provider == "openai" {
		cfg.Embedding.Model = prompt(reader, "Embedding model", "text-embedding-3-small")
	}

	promptLLMConfig(reader, cfg)
	fmt.Println()
}

func promptLLMConfig(reader *bufio.Reader, cfg *Config) {
	fmt.Println()
	fmt.Println("LLM Configuration (for answer synthesis)")
	fmt.Println("Configure an OpenAI-compatible LLM to synthesize answers from")
	fmt.Println("retrieval context. Leave empty for retrieval-only queries.")
	fmt.Println()

	llmURL := prompt(reader, "LLM API URL (e.g., http://localhost:8001/v1)", cfg.LLM.BaseURL)
	if llmURL != "" {
		cfg.LLM.Enabled = true
		cfg.LLM.BaseURL = llmURL
		cfg.LLM.Model = prompt(reader, "LLM model name", cfg.LLM.Model)
	}
}

func printNextSteps() {
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Review and edit .codegraph/project.yaml if needed")
	fmt.Println("  2. Run 'codegraph ingest --service <name> <path>' to ingest a repository")
	fmt.Println("  3. Run 'codegraph status' to verify the load")
	fmt.Println("  4. Run 'codegraph query \"<question>\"' to ask about the code")
}

// prompt displays an interactive prompt and reads user input from stdin.
// Enter on an empty line keeps the default.
func prompt(reader *bufio.Reader, label, defaultValue string) string {
	if defaultValue != "" {
		fmt.Printf("%s [%s]: ", label, defaultValue)
	} else {
		fmt.Printf("%s: ", label)
	}

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultValue
	}
	return input
}

// addToGitignore adds .codegraph/ to the project's .gitignore if one
// exists and the entry is missing. The config may hold API keys.
func addToGitignore(dir string) {
	gitignorePath := filepath.Join(dir, ".gitignore")

	content, err := os.ReadFile(gitignorePath) //nolint:gosec // G304: gitignorePath built from repo dir
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == ".codegraph/" || line == ".codegraph" || line == "/.codegraph/" || line == "/.codegraph" {
			return
		}
	}

	f, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_WRONLY, 0600) //nolint:gosec // G304: gitignorePath built from repo dir
	if err != nil {
		return
	}
	defer func() { _ = f.Close() }()

	if len(content) > 0 && content[len(content)-1] != '\n' {
		_, _ = f.WriteString("\n")
	}
	_, _ = f.WriteString("\n# codegraph configuration\n.codegraph/\n")
	fmt.Println("Added .codegraph/ to .gitignore")
}
