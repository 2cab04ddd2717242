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

package query

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a code intelligence assistant. Answer questions about a codebase using only the numbered snippets and call relationships provided. Cite snippets by their index like [1]. If the context does not contain the answer, say so; never invent code that is not in the snippets.`

// buildPrompt renders the retrieval context for the LLM: documentation
// snippets, then numbered code snippets, then call relationships, then
// the question.
func buildPrompt(question string, docs []DocItem, items []ContextItem, graphCtx []CallContext) string {
	var b strings.Builder

	if len(docs) > 0 {
		b.WriteString("## Documentation\n\n")
		for _, d := range docs {
			fmt.Fprintf(&b, "[D%d] %s (score %.2f)\n", d.Index, d.Title, d.Score)
			if d.Excerpt != "" {
				b.WriteString(d.Excerpt)
				if !strings.HasSuffix(d.Excerpt, "\n") {
					b.WriteByte('\n')
				}
			}
			b.WriteByte('\n')
		}
	}

	b.WriteString("## Code snippets\n\n")
	for _, item := range items {
		p := item.Payload
		fmt.Fprintf(&b, "[%d] %s (%s, %s:%d-%d)\n", item.Index, p.Signature, p.Kind, p.FilePath, p.LineStart, p.LineEnd)
		if p.CodeExcerpt != "" {
			b.WriteString("```")
			b.WriteString(p.Language)
			b.WriteByte('\n')
			b.WriteString(p.CodeExcerpt)
			if !strings.HasSuffix(p.CodeExcerpt, "\n") {
				b.WriteByte('\n')
			}
			b.WriteString("```\n")
		}
		b.WriteByte('\n')
	}

	if len(graphCtx) > 0 {
		b.WriteString("## Call relationships\n\n")
		nameByID := make(map[string]string)
		for _, item := range items {
			nameByID[item.Payload.OriginalID] = item.Payload.Name
		}
		for _, cc := range graphCtx {
			origin := nameByID[cc.UnitID]
			if origin == "" {
				origin = cc.UnitID
			}
			for _, n := range cc.Callees {
				fmt.Fprintf(&b, "- %s calls %s (depth %d)\n", origin, n.Unit.Name, n.Depth)
			}
			for _, caller := range cc.Callers {
				fmt.Fprintf(&b, "- %s is called by %s\n", origin, caller)
			}
		}
		b.WriteByte('\n')
	}

	b.WriteString("## Question\n\n")
	b.WriteString(question)
	b.WriteByte('\n')
	return b.String()
}
