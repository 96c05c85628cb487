package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

func TestIndexCmd_Flags(t *testing.T) {
	force := indexCmd.Flags().Lookup("force")
	require.NotNil(t, force)
	assert.Equal(t, "f", force.Shorthand)

	watch := indexCmd.Flags().Lookup("watch")
	require.NotNil(t, watch)
	assert.Equal(t, "w", watch.Shorthand)
}

func TestIndexCmd_Builds(t *testing.T) {
	env, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "index", "notes", "minutes.md")

	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 2 documents into 5 chunks at /tmp/index")
	assert.Equal(t, []string{"notes", "minutes.md"}, env.runtime.paths)
	assert.False(t, env.runtime.indexer.rebuilt)
}

func TestIndexCmd_UsesConfiguredPathsWithoutArgs(t *testing.T) {
	env, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "index")

	require.NoError(t, err)
	assert.Empty(t, env.runtime.paths)
}

func TestIndexCmd_SkipsExisting(t *testing.T) {
	env, cleanup := setupTestServices()
	defer cleanup()
	env.runtime.indexer.report = &domain.BuildReport{Location: "/tmp/index", Skipped: true}

	out, err := execute(t, "index")

	require.NoError(t, err)
	assert.Contains(t, out, "Index already exists at /tmp/index (0 entries)")
	assert.Contains(t, out, "--force")
}

func TestIndexCmd_ForceRebuilds(t *testing.T) {
	env, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "index", "--force")

	require.NoError(t, err)
	assert.True(t, env.runtime.indexer.rebuilt)
}

func TestIndexCmd_BuildError(t *testing.T) {
	env, cleanup := setupTestServices()
	defer cleanup()
	env.runtime.indexer.err = domain.ErrEmbeddingUnavailable

	_, err := execute(t, "index")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "index build failed")
}

func TestIndexCmd_ReportsFailures(t *testing.T) {
	env, cleanup := setupTestServices()
	defer cleanup()
	env.runtime.indexer.report = &domain.BuildReport{
		Location:  "/tmp/index",
		Documents: 2,
		Inserted:  3,
		Failures: []domain.ChunkFailure{
			{DocumentID: "gamma", Position: -1, Stage: domain.StageLoad, Err: domain.ErrInvalidInput, Source: "/notes/gamma.docx"},
			{DocumentID: "beta", Position: 1, Stage: domain.StageEmbed, Err: errors.New("timeout")},
		},
	}

	out, err := execute(t, "index")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 documents or chunks failed to index")
	assert.Contains(t, out, "failed document /notes/gamma.docx: load: invalid input")
	assert.Contains(t, out, "failed document beta chunk 1: embed: timeout")
}

func TestIndexCmd_Watch(t *testing.T) {
	env, cleanup := setupTestServices()
	defer cleanup()
	env.runtime.source.changes = []domain.DocumentChange{
		{Type: domain.ChangeCreated, Document: domain.Document{ID: "a", Metadata: domain.Metadata{Source: "a.md"}}},
		{Type: domain.ChangeDeleted, Document: domain.Document{ID: "b", Metadata: domain.Metadata{Source: "b.md"}}},
	}

	out, err := execute(t, "index", "--watch")

	require.NoError(t, err)
	assert.True(t, env.runtime.indexer.watched)
	assert.Contains(t, out, "Watching for changes")
	assert.Contains(t, out, "a.md (2 chunks)")
	assert.Contains(t, out, "b.md")
}

func TestIndexCmd_WatchReportsChangeErrors(t *testing.T) {
	env, cleanup := setupTestServices()
	defer cleanup()
	env.runtime.indexer.applyErr = errors.New("disk full")
	env.runtime.source.changes = []domain.DocumentChange{
		{Type: domain.ChangeUpdated, Document: domain.Document{ID: "a", Metadata: domain.Metadata{Source: "a.md"}}},
	}

	out, err := execute(t, "index", "--watch")

	require.NoError(t, err)
	assert.Contains(t, out, "a.md: disk full")
}

func TestIndexCmd_WatchReportsUnreadableFiles(t *testing.T) {
	env, cleanup := setupTestServices()
	defer cleanup()
	env.runtime.source.changes = []domain.DocumentChange{{
		Type:     domain.ChangeUpdated,
		Document: domain.Document{ID: "a", Metadata: domain.Metadata{Source: "a.docx"}},
		Err:      domain.ErrInvalidInput,
	}}

	out, err := execute(t, "index", "--watch")

	require.NoError(t, err)
	assert.Contains(t, out, "updated failed document a.docx: load: invalid input")
}

func TestIndexCmd_NotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	SetServices(nil, nil)

	_, err := execute(t, "index")

	assert.ErrorIs(t, err, errNotConfigured)
}
