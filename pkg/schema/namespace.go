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
	"fmt"
	"regexp"
	"strings"
)

// Namespaces partition the corpus for multi-tenant isolation. The qualified
// form is "<corpus>:<service>" (e.g. "sock_shop:payment"); an unqualified
// corpus name is legal only as a prefix filter on reads.

var namespacePattern = regexp.MustCompile(`^[a-z0-9_\-]+(:[a-z0-9_\-]+)?$`)

// ValidateNamespace checks the namespace key format.
func ValidateNamespace(ns string) error {
	if ns == "" {
		return fmt.Errorf("namespace is empty")
	}
	if !namespacePattern.MatchString(ns) {
		return fmt.Errorf("invalid namespace %q: want <corpus> or <corpus>:<service> with lowercase letters, digits, '_' or '-'", ns)
	}
	return nil
}

// SplitNamespace returns the corpus and service parts. Service is empty for
// unqualified namespaces.
func SplitNamespace(ns string) (corpus, service string) {
	if i := strings.IndexByte(ns, ':'); i >= 0 {
		return ns[:i], ns[i+1:]
	}
	return ns, ""
}

// NamespaceMatches reports whether a stored namespace matches a filter.
// A qualified filter must match exactly; an unqualified filter matches any
// namespace sharing its corpus prefix. An empty filter matches everything.
func NamespaceMatches(stored, filter string) bool {
	if filter == "" {
		return true
	}
	if strings.ContainsRune(filter, ':') {
		return stored == filter
	}
	corpus, _ := SplitNamespace(stored)
	return corpus == filter
}
