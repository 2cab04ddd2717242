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

// Package query answers questions about an ingested corpus.
//
// The Orchestrator embeds the question, pulls the top vector hits (plus
// documentation hits when a documentation collection is configured),
// expands the best code hits through the call graph, assembles a
// character-budgeted context (lowest scores dropped first), and
// optionally asks an LLM to synthesize an answer citing snippets by
// index. Without an LLM the same pipeline returns the raw retrieval
// context, so the command line works offline.
package query
