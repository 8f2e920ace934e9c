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
	"log/slog"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the tokenizer encoding used when none is specified.
// cl100k_base matches the tokenization of most current embedding models.
const DefaultEncoding = "cl100k_base"

// split granularity, coarse to fine
const (
	levelParagraph = iota
	levelSentence
	levelWord
)

// Splitter divides text into token-bounded units without losing bytes.
// Concatenating the returned units in order reproduces the input exactly.
type Splitter struct {
	encoder *tiktoken.Tiktoken
	logger  *slog.Logger
}

// Option configures a Splitter.
type Option func(*Splitter) error

// WithEncoding selects the tiktoken encoding used for measuring text.
// Default is DefaultEncoding.
func WithEncoding(name string) Option {
	return func(s *Splitter) error {
		encoder, err := tiktoken.GetEncoding(name)
		if err != nil {
			return err
		}
		s.encoder = encoder
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Splitter) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSplitter creates a splitter with the default encoding.
func NewSplitter(opts ...Option) (*Splitter, error) {
	encoder, err := tiktoken.GetEncoding(DefaultEncoding)
	if err != nil {
		return nil, err
	}

	s := &Splitter{
		encoder: encoder,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(s); optErr != nil {
			return nil, optErr
		}
	}

	s.logger = s.logger.With("component", "splitter")
	return s, nil
}

// Measure returns the token count of text under the splitter's encoding.
func (s *Splitter) Measure(text string) int {
	return len(s.encoder.Encode(text, nil, nil))
}

// Split divides text into units of at most maxTokens tokens each,
// returning the units and their measured token counts.
//
// Splitting prefers paragraph boundaries, then sentence boundaries, then
// whitespace-delimited words. Adjacent pieces are greedily packed into a
// unit until the next piece would push it over budget. A single word that
// alone exceeds maxTokens is returned as its own unit, unsplit.
func (s *Splitter) Split(text string, maxTokens int) ([]string, []int, error) {
	if maxTokens < 1 {
		return nil, nil, ErrInvalidTokenBudget
	}

	if count := s.Measure(text); count <= maxTokens {
		return []string{text}, []int{count}, nil
	}

	pieces := s.fragments(text, levelParagraph, maxTokens)
	units, counts := s.pack(pieces, maxTokens)

	s.logger.Debug("split text", "chars", len(text), "units", len(units), "maxTokens", maxTokens)
	return units, counts, nil
}

// fragments breaks text at the given granularity, recursing to finer
// granularity for any piece still over budget. Every returned piece fits
// within maxTokens except indivisible words, which are returned whole.
func (s *Splitter) fragments(text string, level int, maxTokens int) []string {
	var parts []string
	switch level {
	case levelParagraph:
		parts = splitAfterParagraphs(text)
	case levelSentence:
		parts = splitAfterSentences(text)
	default:
		parts = splitAfterWords(text)
	}

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if level >= levelWord || s.Measure(part) <= maxTokens {
			out = append(out, part)
			continue
		}
		out = append(out, s.fragments(part, level+1, maxTokens)...)
	}
	return out
}

// pack greedily accumulates pieces into units. Each candidate unit is
// re-measured as a whole, since token boundaries can shift when pieces
// are joined.
func (s *Splitter) pack(pieces []string, maxTokens int) ([]string, []int) {
	var units []string
	var counts []int

	var current strings.Builder
	currentCount := 0

	flush := func() {
		if current.Len() == 0 {
			return
		}
		units = append(units, current.String())
		counts = append(counts, currentCount)
		current.Reset()
		currentCount = 0
	}

	for _, piece := range pieces {
		candidate := current.String() + piece
		candidateCount := s.Measure(candidate)
		if candidateCount > maxTokens && current.Len() > 0 {
			flush()
			candidateCount = s.Measure(piece)
		}
		current.WriteString(piece)
		currentCount = candidateCount
	}
	flush()

	return units, counts
}

// splitAfterParagraphs cuts after each blank-line separator, keeping the
// separator (and any extra blank lines) with the preceding piece.
func splitAfterParagraphs(text string) []string {
	var parts []string
	rest := text
	for {
		idx := strings.Index(rest, "\n\n")
		if idx < 0 {
			break
		}
		end := idx + 2
		for end < len(rest) && rest[end] == '\n' {
			end++
		}
		parts = append(parts, rest[:end])
		rest = rest[end:]
	}
	if rest != "" {
		parts = append(parts, rest)
	}
	return parts
}

// splitAfterSentences cuts after sentence-ending punctuation followed by
// whitespace, or after a newline. The trailing whitespace stays with the
// preceding sentence.
func splitAfterSentences(text string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' && c != '\n' {
			continue
		}
		j := i + 1
		for j < len(text) && isSpaceByte(text[j]) {
			j++
		}
		// "3.14" is not a sentence boundary
		if j == i+1 && c != '\n' {
			continue
		}
		parts = append(parts, text[start:j])
		start = j
		i = j - 1
	}
	if start < len(text) {
		parts = append(parts, text[start:])
	}
	return parts
}

// splitAfterWords cuts at each whitespace-to-word transition, keeping
// trailing whitespace with the preceding word.
func splitAfterWords(text string) []string {
	var parts []string
	start := 0
	inSpace := false
	for i := 0; i < len(text); i++ {
		sp := isSpaceByte(text[i])
		if inSpace && !sp {
			parts = append(parts, text[start:i])
			start = i
		}
		inSpace = sp
	}
	if start < len(text) {
		parts = append(parts, text[start:])
	}
	return parts
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
