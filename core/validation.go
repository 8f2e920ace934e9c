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


package core

import "fmt"

// statusRank orders the pipeline states. failed is reachable from any
// non-terminal state, so it has no rank of its own.
var statusRank = map[Status]int{
	StatusQueued:     0,
	StatusProcessing: 1,
	StatusExtracting: 2,
	StatusChunking:   3,
	StatusEmbedding:  4,
	StatusCompleted:  5,
}

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Filename must not be empty
//   - Status must be a known state
//
// NOT validated (populated by the pipeline):
//   - Content (empty until the extraction stage runs)
//   - ProcessedAt (zero until the pipeline completes)
//   - ID (0 is valid from database sequences)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Filename == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyFilename)
	}

	if err := ValidateStatus(doc.Status); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Text must not be empty
//   - Index must not be negative
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyChunkText)
	}

	if chunk.Index < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrNegativeChunkIndex)
	}

	return nil
}

// ValidateStatus validates that a Status has a known value.
func ValidateStatus(status Status) error {
	if status == StatusFailed {
		return nil
	}
	if _, ok := statusRank[status]; !ok {
		return fmt.Errorf("%w: value %q", ErrInvalidStatus, status)
	}
	return nil
}

// ValidateTransition checks that moving from one status to the next follows
// the single-direction state machine. Transitions to failed are allowed from
// any non-terminal state; terminal states allow no further transitions.
func ValidateTransition(from, to Status) error {
	if from.Terminal() {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, from)
	}
	if to == StatusFailed {
		return nil
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return fmt.Errorf("%w: value %q", ErrInvalidStatus, from)
	}
	toRank, ok := statusRank[to]
	if !ok {
		return fmt.Errorf("%w: value %q", ErrInvalidStatus, to)
	}
	if toRank <= fromRank {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
