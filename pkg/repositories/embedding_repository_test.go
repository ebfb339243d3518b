package repositories

import (
	"math"
	"testing"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/converso-ai/converso-engine/pkg/models"
)

// basisVector returns a unit vector along one axis. Orthogonal basis vectors
// have cosine distance 1, identical ones 0, which gives the search tests
// exactly known distances.
func basisVector(axis int) []float32 {
	v := make([]float32, models.EmbeddingDimensions)
	v[axis] = 1
	return v
}

// blendVector returns the normalized sum of two basis axes. Its cosine
// distance to either axis is 1 - 1/sqrt(2) ~= 0.293.
func blendVector(axisA, axisB int) []float32 {
	v := make([]float32, models.EmbeddingDimensions)
	c := float32(1 / math.Sqrt2)
	v[axisA] = c
	v[axisB] = c
	return v
}

func TestEmbeddingRepositoryUpsertIsIdempotent(t *testing.T) {
	ctx, workspaceID, agentID := scopedWorkspace(t)
	entries := NewTrainingEntryRepository()
	repo := NewEmbeddingRepository()

	entry := newEntry(workspaceID, agentID, "horarios", "Atendemos de 8h às 18h.")
	require.NoError(t, entries.Create(ctx, entry))

	first := &models.TrainingEmbedding{
		TrainingEntryID: entry.ID,
		Embedding:       pgvector.NewVector(basisVector(0)),
		WorkspaceID:     workspaceID,
		TotalTokens:     12,
	}
	require.NoError(t, repo.Upsert(ctx, first))

	second := &models.TrainingEmbedding{
		TrainingEntryID: entry.ID,
		Embedding:       pgvector.NewVector(basisVector(1)),
		WorkspaceID:     workspaceID,
		TotalTokens:     15,
	}
	require.NoError(t, repo.Upsert(ctx, second))

	// Same row, new vector: re-training never produces a second row.
	assert.Equal(t, first.ID, second.ID)

	got, err := repo.GetByEntry(ctx, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, 15, got.TotalTokens)
}

func TestEmbeddingRepositorySearchNearest(t *testing.T) {
	ctx, workspaceID, agentID := scopedWorkspace(t)
	entries := NewTrainingEntryRepository()
	repo := NewEmbeddingRepository()

	seed := func(identifier, content string, vector []float32) *models.TrainingEntry {
		entry := newEntry(workspaceID, agentID, identifier, content)
		require.NoError(t, entries.Create(ctx, entry))
		require.NoError(t, repo.Upsert(ctx, &models.TrainingEmbedding{
			TrainingEntryID: entry.ID,
			Embedding:       pgvector.NewVector(vector),
			WorkspaceID:     workspaceID,
		}))
		return entry
	}

	exact := seed("exact", "Atendemos de 8h às 18h.", basisVector(0))
	near := seed("near", "Sábados até meio-dia.", blendVector(0, 1))
	seed("far", "Rua das Flores, 123.", basisVector(1))

	t.Run("orders closest first within cutoff", func(t *testing.T) {
		results, err := repo.SearchNearest(ctx, NearestParams{
			QueryVector: basisVector(0),
			WorkspaceID: workspaceID,
			AgentID:     agentID,
			MaxDistance: 0.5,
			Limit:       5,
		})
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.Equal(t, exact.ID, results[0].TrainingEntryID)
		assert.InDelta(t, 0.0, results[0].Distance, 0.001)
		assert.Equal(t, near.ID, results[1].TrainingEntryID)
		assert.InDelta(t, 1-1/math.Sqrt2, results[1].Distance, 0.001)
	})

	t.Run("strict cutoff drops the near match", func(t *testing.T) {
		results, err := repo.SearchNearest(ctx, NearestParams{
			QueryVector: basisVector(0),
			WorkspaceID: workspaceID,
			AgentID:     agentID,
			MaxDistance: 0.25,
			Limit:       5,
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, exact.ID, results[0].TrainingEntryID)
	})

	t.Run("limit caps results", func(t *testing.T) {
		results, err := repo.SearchNearest(ctx, NearestParams{
			QueryVector: basisVector(0),
			WorkspaceID: workspaceID,
			AgentID:     agentID,
			MaxDistance: 0.5,
			Limit:       1,
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, exact.ID, results[0].TrainingEntryID)
	})

	t.Run("other agents are invisible", func(t *testing.T) {
		results, err := repo.SearchNearest(ctx, NearestParams{
			QueryVector: basisVector(0),
			WorkspaceID: workspaceID,
			AgentID:     uuid.New(),
			MaxDistance: 0.5,
			Limit:       5,
		})
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestEmbeddingRepositorySoftDelete(t *testing.T) {
	ctx, workspaceID, agentID := scopedWorkspace(t)
	entries := NewTrainingEntryRepository()
	repo := NewEmbeddingRepository()

	entry := newEntry(workspaceID, agentID, "convenios", "Aceitamos Unimed.")
	require.NoError(t, entries.Create(ctx, entry))
	require.NoError(t, repo.Upsert(ctx, &models.TrainingEmbedding{
		TrainingEntryID: entry.ID,
		Embedding:       pgvector.NewVector(basisVector(0)),
		WorkspaceID:     workspaceID,
	}))

	require.NoError(t, repo.SoftDeleteByEntry(ctx, entry.ID))

	got, err := repo.GetByEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	results, err := repo.SearchNearest(ctx, NearestParams{
		QueryVector: basisVector(0),
		WorkspaceID: workspaceID,
		AgentID:     agentID,
		MaxDistance: 0.5,
		Limit:       5,
	})
	require.NoError(t, err)
	assert.Empty(t, results)

	// Re-training after a delete resurrects the row in place.
	require.NoError(t, repo.Upsert(ctx, &models.TrainingEmbedding{
		TrainingEntryID: entry.ID,
		Embedding:       pgvector.NewVector(basisVector(0)),
		WorkspaceID:     workspaceID,
	}))
	got, err = repo.GetByEntry(ctx, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
}
