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

// Package embed generates embedding vectors for code units and questions.
//
// A Provider turns batches of text into unit-normalized vectors. The
// OpenAI provider speaks the OpenAI embeddings API; the mock provider
// derives deterministic vectors from a text hash for tests and offline
// runs. The Generator wraps a provider with order-preserving batching,
// a content-addressed cache, classified retries with jittered backoff,
// and truncation accounting.
package embed
