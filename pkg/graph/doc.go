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

// Package graph persists code units and their relationships.
//
// Store is the backend contract; the Neo4j implementation is the
// production path and MemoryStore backs tests and dry runs. The Loader
// drives two-phase loading: per-file node transactions first, then CALLS
// edges once every unit in the namespace is known, then entry-point
// recomputation. Call resolution is name-based (no type analysis): an
// unresolved callee path resolves within its file first, then within its
// namespace, and is silently dropped if no candidate matches. CALLS edges
// never cross namespaces.
package graph
