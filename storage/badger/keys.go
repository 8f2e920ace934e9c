package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/docpipe/core"
)

// Key prefixes for different data types
const (
	documentPrefix  = "docrec"
	documentIDSeq   = "docrecseq"
	chunkPrefix     = "chkrec"
	chunkIDPrefix   = "chkid"
	embeddingPrefix = "embrec"
	checkpointKey   = "chkpt"
)

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", documentPrefix, id))
}

// makeChunkKey generates a composite key for a chunk row.
// Format: prefix:documentID:index
// BigEndian encoding makes lexicographic iteration yield index order.
func makeChunkKey(documentID core.ID, index int) []byte {
	prefix := chunkPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for documentID + 8 bytes for index
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(index))
	return buf
}

// makePartialChunkKey generates the prefix covering all of a document's chunks.
func makePartialChunkKey(documentID core.ID) []byte {
	prefix := chunkPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	return buf
}

// makeChunkIDKey generates the secondary index key resolving a chunk ID to
// its primary chunk key.
func makeChunkIDKey(id core.ID) []byte {
	prefix := chunkIDPrefix + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeEmbeddingKey generates a key for an embedding row.
// Format: prefix:chunkID:provider
func makeEmbeddingKey(chunkID core.ID, provider string) []byte {
	prefix := embeddingPrefix + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+9+len(provider))
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkID))
	offset += 8
	buf[offset] = ':'
	offset++
	copy(buf[offset:], provider)
	return buf
}

// makePartialEmbeddingKey generates the prefix covering all providers'
// embeddings for a chunk.
func makePartialEmbeddingKey(chunkID core.ID) []byte {
	prefix := embeddingPrefix + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+9)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkID))
	buf[offset+8] = ':'
	return buf
}

// parseEmbeddingKey extracts the chunk ID and provider from an embedding key.
func parseEmbeddingKey(key []byte) (core.ID, string, bool) {
	prefixLen := len(embeddingPrefix) + 1
	if len(key) < prefixLen+9 {
		return 0, "", false
	}
	chunkID := core.ID(binary.BigEndian.Uint64(key[prefixLen:]))
	provider := string(key[prefixLen+9:])
	return chunkID, provider, true
}

// makeCheckpointKey generates the key for a resumable run's checkpoint.
func makeCheckpointKey(runIdentity string) []byte {
	return []byte(fmt.Sprintf("%s:%s", checkpointKey, runIdentity))
}
