package mock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/poiesic/docpipe/ai"
)

// MockExtractor is a test double for ai.Extractor.
// It allows custom behavior injection via function fields.
type MockExtractor struct {
	// ExtractFunc is called by Extract if set.
	// If nil, uses default behavior.
	ExtractFunc func(ctx context.Context, path string) (*ai.ExtractionResult, error)

	callCount int
}

// NewMockExtractor creates a mock extractor with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockExtractor().
func NewMockExtractor() *MockExtractor {
	return &MockExtractor{}
}

// Extract returns the file contents if path names a readable file,
// otherwise a deterministic placeholder text derived from the path.
func (m *MockExtractor) Extract(ctx context.Context, path string) (*ai.ExtractionResult, error) {
	m.callCount++

	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, path)
	}

	// Default: read the file when it exists so tests can stage real content
	if content, err := os.ReadFile(path); err == nil {
		return &ai.ExtractionResult{
			Text:     string(content),
			Method:   "mock",
			Duration: time.Millisecond,
		}, nil
	}

	// Fall back to synthetic text so tests don't need fixture files
	name := filepath.Base(path)
	return &ai.ExtractionResult{
		Text:     fmt.Sprintf("Extracted text for %s.\n\nThis is mock content used in tests.", name),
		Method:   "mock",
		Duration: time.Millisecond,
	}, nil
}

// CallCount returns the number of times Extract was called.
func (m *MockExtractor) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockExtractor) Reset() {
	m.callCount = 0
	m.ExtractFunc = nil
}
