package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "same content produces same ID", content: "test content"},
		{name: "empty string", content: ""},
		{name: "long content", content: "This is a much longer piece of content that should still hash consistently"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestChunkID(t *testing.T) {
	docID := ID(42)

	if ChunkID(docID, 0) != ChunkID(docID, 0) {
		t.Errorf("ChunkID() is not deterministic")
	}
	if ChunkID(docID, 0) == ChunkID(docID, 1) {
		t.Errorf("ChunkID() produced same ID for different indices")
	}
	if ChunkID(docID, 0) == ChunkID(ID(43), 0) {
		t.Errorf("ChunkID() produced same ID for different documents")
	}
}

func TestStatusTerminal(t *testing.T) {
	terminal := []Status{StatusCompleted, StatusFailed}
	active := []Status{StatusQueued, StatusProcessing, StatusExtracting, StatusChunking, StatusEmbedding}

	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("Terminal() = false for %s", s)
		}
	}
	for _, s := range active {
		if s.Terminal() {
			t.Errorf("Terminal() = true for %s", s)
		}
	}
}

func TestCheckpointContains(t *testing.T) {
	cp := &Checkpoint{ProcessedIds: []ID{1, 5, 9}}

	if !cp.Contains(5) {
		t.Errorf("Contains(5) = false, want true")
	}
	if cp.Contains(2) {
		t.Errorf("Contains(2) = true, want false")
	}
}
