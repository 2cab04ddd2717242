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

package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// UnitIDLen is the hex length of a content-addressed unit ID.
const UnitIDLen = 32

// UnitID generates the deterministic, content-addressed ID for a code unit.
// Identical inputs yield identical IDs across runs and across machines: the
// file path is normalized to forward slashes before hashing so Windows and
// Unix agree.
//
// Signature and code text are deliberately excluded so IDs stay stable when
// parser extraction improves.
func UnitID(namespace string, lang Language, filePath string, kind Kind, name string, lineStart int) string {
	idStr := fmt.Sprintf("%s|%s|%s|%s|%s|%d",
		namespace, lang, NormalizePath(filePath), kind, name, lineStart)
	hash := sha256.Sum256([]byte(idStr))
	return hex.EncodeToString(hash[:UnitIDLen/2])
}

// PointID converts a unit ID to the canonical UUID shape the vector store
// requires. The hex digits are padded or truncated to 32 characters and
// formatted 8-4-4-4-12. The conversion is deterministic; the original unit
// ID stays in the point payload as original_id.
func PointID(unitID string) string {
	h := make([]byte, 0, UnitIDLen)
	for _, c := range unitID {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') {
			h = append(h, byte(c))
		}
		if len(h) == UnitIDLen {
			break
		}
	}
	for len(h) < UnitIDLen {
		h = append(h, '0')
	}

	raw, err := hex.DecodeString(string(h))
	if err != nil {
		// Unreachable: h is filtered to hex digits above.
		raw = make([]byte, 16)
	}
	u, err := uuid.FromBytes(raw)
	if err != nil {
		return uuid.Nil.String()
	}
	return u.String()
}

// NormalizePath normalizes a file path for consistent ID generation:
// cleaned, forward slashes, no leading "./" or "/".
func NormalizePath(path string) string {
	if len(path) >= 2 && path[0:2] == "./" {
		path = path[2:]
	}
	path = filepath.Clean(path)
	path = filepath.ToSlash(path)
	if len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	return path
}
