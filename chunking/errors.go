package chunking

import "errors"

var (
	// ErrInvalidTokenBudget is returned when maxTokens is less than 1.
	ErrInvalidTokenBudget = errors.New("token budget must be at least 1")

	// ErrEmptyDocument is returned when chunking a document with no text.
	ErrEmptyDocument = errors.New("document has no text to chunk")
)
