package core

import (
	"errors"
	"testing"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name: "valid document",
			doc: &Document{
				Id:       1,
				Filename: "report.pdf",
				Status:   StatusQueued,
			},
			wantErr: nil,
		},
		{
			name: "valid document with empty content",
			doc: &Document{
				Id:       1,
				Filename: "notes.md",
				Status:   StatusExtracting,
				Content:  "",
			},
			wantErr: nil,
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrInvalidDocument,
		},
		{
			name: "empty filename",
			doc: &Document{
				Id:     1,
				Status: StatusQueued,
			},
			wantErr: ErrEmptyFilename,
		},
		{
			name: "unknown status",
			doc: &Document{
				Id:       1,
				Filename: "report.pdf",
				Status:   Status("bogus"),
			},
			wantErr: ErrInvalidStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateChunk(t *testing.T) {
	tests := []struct {
		name    string
		chunk   *Chunk
		wantErr error
	}{
		{
			name:    "valid chunk",
			chunk:   &Chunk{DocumentId: 1, Index: 0, Text: "some text", TokenCount: 2},
			wantErr: nil,
		},
		{
			name:    "nil chunk",
			chunk:   nil,
			wantErr: ErrInvalidChunk,
		},
		{
			name:    "empty text",
			chunk:   &Chunk{DocumentId: 1, Index: 0},
			wantErr: ErrEmptyChunkText,
		},
		{
			name:    "negative index",
			chunk:   &Chunk{DocumentId: 1, Index: -1, Text: "some text"},
			wantErr: ErrNegativeChunkIndex,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunk(tt.chunk)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateChunk() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateChunk() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		{name: "queued to processing", from: StatusQueued, to: StatusProcessing},
		{name: "processing to extracting", from: StatusProcessing, to: StatusExtracting},
		{name: "extracting to chunking", from: StatusExtracting, to: StatusChunking},
		{name: "chunking to embedding", from: StatusChunking, to: StatusEmbedding},
		{name: "embedding to completed", from: StatusEmbedding, to: StatusCompleted},
		{name: "failed from any active state", from: StatusChunking, to: StatusFailed},
		{name: "skip ahead is allowed", from: StatusQueued, to: StatusChunking},
		{name: "backwards is rejected", from: StatusEmbedding, to: StatusExtracting, wantErr: true},
		{name: "same state is rejected", from: StatusChunking, to: StatusChunking, wantErr: true},
		{name: "completed is terminal", from: StatusCompleted, to: StatusFailed, wantErr: true},
		{name: "failed is terminal", from: StatusFailed, to: StatusQueued, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransition(tt.from, tt.to)
			if tt.wantErr && err == nil {
				t.Errorf("ValidateTransition(%s, %s) = nil, want error", tt.from, tt.to)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateTransition(%s, %s) = %v, want nil", tt.from, tt.to, err)
			}
		})
	}
}
