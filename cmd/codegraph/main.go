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

// Package main implements the codegraph CLI for ingesting polyglot
// repositories into a code graph and querying it.
//
// Usage:
//
//	codegraph init                      Create .codegraph/project.yaml
//	codegraph ingest --service <name>   Parse and load a repository
//	codegraph query "<question>"        Ask a question about the corpus
//	codegraph status [--json]           Show per-namespace counts
//	codegraph purge --namespace <ns>    Delete a namespace (destructive!)
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/codegraph/internal/ui"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags are options shared by every command.
type GlobalFlags struct {
	// JSON switches output to machine-readable JSON. Implies Quiet.
	JSON bool
	// Quiet suppresses progress output.
	Quiet bool
	// NoColor disables colored terminal output.
	NoColor bool
	// Verbose raises log verbosity; each -v adds a level.
	Verbose int
}

func main() {
	var (
		showVersion bool
		configPath  string
		globals     GlobalFlags
	)

	fs := flag.NewFlagSet("codegraph", flag.ContinueOnError)
	fs.SetInterspersed(false) // leave command flags to the command
	fs.BoolVar(&showVersion, "version", false, "Show version and exit")
	fs.StringVar(&configPath, "config", "", "Path to .codegraph/project.yaml (default: ./.codegraph/project.yaml)")
	fs.BoolVar(&globals.JSON, "json", false, "Output as JSON")
	fs.BoolVarP(&globals.Quiet, "quiet", "q", false, "Suppress progress output")
	fs.BoolVar(&globals.NoColor, "no-color", false, "Disable colored output")
	fs.CountVarP(&globals.Verbose, "verbose", "v", "Increase log verbosity (repeatable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `codegraph - polyglot code intelligence

codegraph parses Go, JavaScript/TypeScript, Java, and Python sources
into a call graph (Neo4j) and a semantic index (Weaviate), then answers
questions by fusing vector search with graph traversal.

Usage:
  codegraph [global options] <command> [options]

Commands:
  init        Create .codegraph/project.yaml configuration
  ingest      Parse a repository and load graph + vector stores
  query       Ask a natural-language question about the corpus
  status      Show per-namespace unit and vector counts
  purge       Delete all data in a namespace (destructive!)
  completion  Generate shell completion script (bash|zsh|fish)

Global Options:
  --config       Path to .codegraph/project.yaml
  --json         Output as JSON
  -q, --quiet    Suppress progress output
  --no-color     Disable colored output
  -v, --verbose  Increase log verbosity (repeatable)
  --version      Show version and exit

Examples:
  codegraph init --corpus shop
  codegraph ingest --service cart ./services/cart
  codegraph query "where is the checkout total computed?"
  codegraph query --namespace shop:cart --no-llm "list entry points"
  codegraph status --json
  codegraph purge --namespace shop:cart --yes

Environment Variables:
  NEO4J_URI, NEO4J_USERNAME, NEO4J_PASSWORD   Graph backend overrides
  WEAVIATE_HOST, WEAVIATE_SCHEME              Vector backend overrides
  OPENAI_API_KEY                              Embeddings and LLM synthesis

For detailed command help: codegraph <command> --help

`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	if showVersion {
		fmt.Printf("codegraph version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	if globals.JSON {
		globals.Quiet = true
	}
	ui.InitColors(globals.NoColor)

	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "init":
		runInit(cmdArgs)
	case "ingest":
		runIngest(cmdArgs, configPath, globals)
	case "query":
		runQuery(cmdArgs, configPath, globals)
	case "status":
		runStatus(cmdArgs, configPath, globals)
	case "purge":
		runPurge(cmdArgs, configPath, globals)
	case "completion":
		runCompletion(cmdArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		fs.Usage()
		os.Exit(1)
	}
}
