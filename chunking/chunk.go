// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package chunking

import (
	"strings"
	"time"

	"github.com/poiesic/docpipe/core"
)

// ChunkDocument splits the document's extracted text into core.Chunk rows
// with contiguous indices starting at 0. Section titles are carried from
// the most recent markdown heading preceding each chunk.
func (s *Splitter) ChunkDocument(doc *core.Document, maxTokens int) ([]*core.Chunk, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return nil, ErrEmptyDocument
	}

	units, counts, err := s.Split(doc.Content, maxTokens)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	section := ""

	chunks := make([]*core.Chunk, len(units))
	for i, unit := range units {
		chunks[i] = &core.Chunk{
			Id:           core.ChunkID(doc.Id, i),
			DocumentId:   doc.Id,
			Index:        i,
			Text:         unit,
			SectionTitle: section,
			TokenCount:   counts[i],
			CreatedAt:    now,
		}

		// Headings inside this unit scope the chunks that follow it
		if title := lastHeading(unit); title != "" {
			section = title
		}
	}

	s.logger.Debug("chunked document", "document", doc.Id, "chunks", len(chunks))
	return chunks, nil
}

// lastHeading returns the text of the last markdown heading in unit,
// or "" when the unit contains none.
func lastHeading(unit string) string {
	title := ""
	for _, line := range strings.Split(unit, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			continue
		}
		text := strings.TrimLeft(trimmed, "#")
		if text == "" || !strings.HasPrefix(text, " ") {
			continue
		}
		title = strings.TrimSpace(text)
	}
	return title
}
