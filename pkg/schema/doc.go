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

// Package schema defines the shared data model for the codegraph pipeline:
// code units, edges, parse results, namespaces, and the deterministic ID
// functions that tie the graph store and the vector store together.
//
// Identity is content-addressed. A CodeUnit ID is a stable function of
// (namespace, language, file_path, kind, name, line_start), so re-ingesting
// identical sources produces identical IDs and idempotent writes. The vector
// store requires UUID-shaped point IDs; PointID derives one deterministically
// from the unit ID while the unit ID itself travels in the vector payload as
// original_id, the canonical join key back to the graph.
package schema
