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
	"flag"
	"fmt"
	"os"

	"github.com/kraklabs/codegraph/internal/errors"
)

// bashCompletionTemplate provides command and flag completion for bash.
const bashCompletionTemplate = `#!/bin/bash

# Bash completion script for codegraph
# Installation:
#   source <(codegraph completion bash)
#   Or add to ~/.bashrc:
#   echo 'source <(codegraph completion bash)' >> ~/.bashrc

_codegraph_completion() {
    local cur prev commands
    commands="init ingest query status purge completion"

    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    # Global flags
    if [[ ${cur} == -* && $COMP_CWORD -eq 1 ]] ; then
        COMPREPLY=( $(compgen -W "--version --config --json --quiet --no-color --verbose" -- ${cur}) )
        return 0
    fi

    # First argument: complete commands
    if [ $COMP_CWORD -eq 1 ]; then
        COMPREPLY=( $(compgen -W "${commands}" -- ${cur}) )
        return 0
    fi

    # Command-specific flag completion
    local cmd="${COMP_WORDS[1]}"
    case "${cmd}" in
        init)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--force -y --corpus --graph-backend --vector-backend --embedding-provider --llm-url --llm-model" -- ${cur}) )
            fi
            ;;
        ingest)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--service --namespace --include --exclude --workers --skip-vectors --max-file-size --metrics-addr" -- ${cur}) )
            fi
            ;;
        query)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--namespace --k --k-doc --depth --expand --budget --no-llm --timeout" -- ${cur}) )
            fi
            ;;
        status)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--timeout" -- ${cur}) )
            fi
            ;;
        purge)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--namespace --yes --timeout" -- ${cur}) )
            fi
            ;;
        completion)
            if [ $COMP_CWORD -eq 2 ]; then
                COMPREPLY=( $(compgen -W "bash zsh fish" -- ${cur}) )
            fi
            ;;
    esac
}

complete -F _codegraph_completion codegraph
`

// zshCompletionTemplate provides command and flag completion for zsh.
const zshCompletionTemplate = `#compdef codegraph

# Zsh completion script for codegraph
# Installation:
#   1. Ensure compinit is loaded (add to ~/.zshrc if not present):
#      autoload -U compinit; compinit
#   2. Save this script to a directory in your fpath:
#      codegraph completion zsh > "${fpath[1]}/_codegraph"
#   3. Reload completions:
#      rm -f ~/.zcompdump; compinit

_codegraph() {
    local -a commands
    commands=(
        'init:Create .codegraph/project.yaml configuration'
        'ingest:Parse a repository and load graph + vector stores'
        'query:Ask a natural-language question about the corpus'
        'status:Show per-namespace unit and vector counts'
        'purge:Delete all data in a namespace'
        'completion:Generate shell completion script'
    )

    _arguments -C \
        '(- *)--version[Show version and exit]' \
        '--config[Path to .codegraph/project.yaml]:config file:_files -g "*.yaml"' \
        '--json[Output as JSON]' \
        '(-q --quiet)'{-q,--quiet}'[Suppress progress output]' \
        '--no-color[Disable colored output]' \
        '(-v --verbose)'{-v,--verbose}'[Increase log verbosity]' \
        '1: :->command' \
        '*:: :->args'

    case $state in
        command)
            _describe 'command' commands
            ;;
        args)
            case $words[1] in
                init)
                    _arguments \
                        '--force[Overwrite existing configuration]' \
                        '-y[Non-interactive mode]' \
                        '--corpus[Corpus name]:corpus:' \
                        '--graph-backend[Graph backend]:backend:(neo4j memory)' \
                        '--vector-backend[Vector backend]:backend:(weaviate memory)' \
                        '--embedding-provider[Embedding provider]:provider:(mock openai)'
                    ;;
                ingest)
                    _arguments \
                        '--service[Service name]:service:' \
                        '--namespace[Full namespace]:namespace:' \
                        '--include[Include globs]:globs:' \
                        '--exclude[Exclude globs]:globs:' \
                        '--workers[Parse workers]:workers:' \
                        '--skip-vectors[Load the graph only]' \
                        '--metrics-addr[Prometheus metrics address]:address:' \
                        '1:path:_files -/'
                    ;;
                query)
                    _arguments \
                        '--namespace[Namespace scope]:namespace:' \
                        '--k[Vector hits to retrieve]:k:' \
                    '--k-doc[Documentation hits to retrieve]:k:' \
                        '--depth[Graph traversal depth]:depth:(1 2 3)' \
                        '--no-llm[Skip synthesis]' \
                        '1:question:'
                    ;;
                purge)
                    _arguments \
                        '--namespace[Namespace to purge]:namespace:' \
                        '--yes[Confirm the purge]'
                    ;;
                completion)
                    _arguments \
                        '1:shell:(bash zsh fish)'
                    ;;
            esac
            ;;
    esac
}

_codegraph
`

// fishCompletionTemplate provides command and flag completion for fish.
const fishCompletionTemplate = `# Fish completion script for codegraph
# Installation:
#   1. Load completions for current session:
#      codegraph completion fish | source
#   2. Install permanently:
#      codegraph completion fish > ~/.config/fish/completions/codegraph.fish

# Commands
complete -c codegraph -f -n "__fish_use_subcommand" -a "init" -d "Create .codegraph/project.yaml configuration"
complete -c codegraph -f -n "__fish_use_subcommand" -a "ingest" -d "Parse a repository and load graph + vector stores"
complete -c codegraph -f -n "__fish_use_subcommand" -a "query" -d "Ask a natural-language question about the corpus"
complete -c codegraph -f -n "__fish_use_subcommand" -a "status" -d "Show per-namespace unit and vector counts"
complete -c codegraph -f -n "__fish_use_subcommand" -a "purge" -d "Delete all data in a namespace (destructive!)"
complete -c codegraph -f -n "__fish_use_subcommand" -a "completion" -d "Generate shell completion script"

# Global flags
complete -c codegraph -l version -d "Show version and exit"
complete -c codegraph -l config -d "Path to .codegraph/project.yaml" -r
complete -c codegraph -l json -d "Output as JSON"
complete -c codegraph -s q -l quiet -d "Suppress progress output"
complete -c codegraph -l no-color -d "Disable colored output"
complete -c codegraph -s v -l verbose -d "Increase log verbosity"

# ingest command flags
complete -c codegraph -n "__fish_seen_subcommand_from ingest" -l service -d "Service name" -r
complete -c codegraph -n "__fish_seen_subcommand_from ingest" -l namespace -d "Full namespace" -r
complete -c codegraph -n "__fish_seen_subcommand_from ingest" -l include -d "Include globs" -r
complete -c codegraph -n "__fish_seen_subcommand_from ingest" -l exclude -d "Exclude globs" -r
complete -c codegraph -n "__fish_seen_subcommand_from ingest" -l workers -d "Parse workers" -r
complete -c codegraph -n "__fish_seen_subcommand_from ingest" -l skip-vectors -d "Load the graph only"
complete -c codegraph -n "__fish_seen_subcommand_from ingest" -l metrics-addr -d "Prometheus metrics address" -r

# query command flags
complete -c codegraph -n "__fish_seen_subcommand_from query" -l namespace -d "Namespace scope" -r
complete -c codegraph -n "__fish_seen_subcommand_from query" -l k -d "Vector hits to retrieve" -r
complete -c codegraph -n "__fish_seen_subcommand_from query" -l k-doc -d "Documentation hits to retrieve" -r
complete -c codegraph -n "__fish_seen_subcommand_from query" -l depth -d "Graph traversal depth" -r
complete -c codegraph -n "__fish_seen_subcommand_from query" -l no-llm -d "Skip synthesis"

# purge command flags
complete -c codegraph -n "__fish_seen_subcommand_from purge" -l namespace -d "Namespace to purge" -r
complete -c codegraph -n "__fish_seen_subcommand_from purge" -l yes -d "Confirm the purge"

# completion command arguments
complete -c codegraph -n "__fish_seen_subcommand_from completion" -f -a "bash" -d "Generate bash completion script"
complete -c codegraph -n "__fish_seen_subcommand_from completion" -f -a "zsh" -d "Generate zsh completion script"
complete -c codegraph -n "__fish_seen_subcommand_from completion" -f -a "fish" -d "Generate fish completion script"
`

// runCompletion executes the 'completion' CLI command, generating
// shell-specific completion scripts for bash, zsh, or fish.
//
// Usage:
//
//	codegraph completion [bash|zsh|fish]
//
// Examples:
//
//	source <(codegraph completion bash)
//	codegraph completion zsh > "${fpath[1]}/_codegraph"
//	codegraph completion fish | source
func runCompletion(args []string) {
	fs := flag.NewFlagSet("completion", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codegraph completion <shell>

Generates shell completion scripts for bash, zsh, or fish.

Arguments:
  shell    Shell type: bash, zsh, or fish (required)

Examples:
  # Load bash completions in current shell
  source <(codegraph completion bash)

  # Install bash completions permanently (Linux)
  codegraph completion bash > /etc/bash_completion.d/codegraph

  # Install zsh completions
  codegraph completion zsh > "${fpath[1]}/_codegraph"

  # Install fish completions
  codegraph completion fish > ~/.config/fish/completions/codegraph.fish

After installing completions, restart your shell or source your rc file.

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		errors.FatalError(errors.NewInputError(
			"Invalid arguments",
			"The completion command requires exactly one argument: the shell name",
			"Run 'codegraph completion bash', 'codegraph completion zsh', or 'codegraph completion fish'",
		), false)
	}

	switch shell := fs.Arg(0); shell {
	case "bash":
		fmt.Print(bashCompletionTemplate)
	case "zsh":
		fmt.Print(zshCompletionTemplate)
	case "fish":
		fmt.Print(fishCompletionTemplate)
	default:
		errors.FatalError(errors.NewInputError(
			"Unsupported shell",
			fmt.Sprintf("Shell '%s' is not supported. Valid options: bash, zsh, fish", shell),
			"Run 'codegraph completion bash', 'codegraph completion zsh', or 'codegraph completion fish'",
		), false)
	}
}
