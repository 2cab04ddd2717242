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

// Package vector indexes code units for semantic search.
//
// Points carry a UUID-formatted ID derived from the unit's
// content-addressed ID plus a payload whose original_id field is the
// canonical join key back to the graph. The Weaviate store is the
// production backend (class per collection, external vectors, cosine
// distance); MemoryStore backs tests. The Loader builds embedding text
// from each unit, embeds through an embed.Generator, and batch-upserts;
// units whose embedding failed are skipped, never fatal.
package vector
