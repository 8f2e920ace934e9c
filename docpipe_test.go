package docpipe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/docpipe/ai/mock"
	"github.com/poiesic/docpipe/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "docpipe_db"),
		WithAIProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDatabase(t *testing.T) {
	t.Run("create new database", func(t *testing.T) {
		db := newTestDatabase(t)

		// Verify components are initialized
		assert.NotNil(t, db.DocumentRepository())
		assert.NotNil(t, db.ChunkRepository())
		assert.NotNil(t, db.EmbeddingRepository())
		assert.NotNil(t, db.CheckpointRepository())
		assert.NotNil(t, db.backend)
		assert.NotNil(t, db.logger)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// Try to create a database at a file path instead of directory
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		db, err := NewDatabase(tmpFile, WithAIProvider(mock.NewMockProvider()))
		assert.Error(t, err)
		assert.Nil(t, db)
	})
}

func TestDatabase_Close(t *testing.T) {
	db, err := NewDatabase(filepath.Join(t.TempDir(), "docpipe_db"),
		WithAIProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	require.NotNil(t, db)

	err = db.Close()
	assert.NoError(t, err)
}

func TestDatabase_FactoryMethods(t *testing.T) {
	db := newTestDatabase(t)

	t.Run("can create supervisor", func(t *testing.T) {
		supervisor, err := db.NewSupervisor(pipeline.DefaultRunnerConfig())
		require.NoError(t, err)
		require.NotNil(t, supervisor)
		supervisor.Shutdown(0)
	})

	t.Run("can create batch embed runner", func(t *testing.T) {
		runner := db.NewBatchEmbedRunner(nil, os.Stderr)
		require.NotNil(t, runner)
	})

	t.Run("can create searcher", func(t *testing.T) {
		searcher, err := db.NewSearcher()
		require.NoError(t, err)
		require.NotNil(t, searcher)
	})
}
