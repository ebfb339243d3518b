package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/converso-ai/converso-engine/pkg/llm"
	"github.com/converso-ai/converso-engine/pkg/logging"
	"github.com/converso-ai/converso-engine/pkg/models"
	"github.com/converso-ai/converso-engine/pkg/repositories"
	"github.com/converso-ai/converso-engine/pkg/retry"
)

// TrainingReport summarizes one batch embedding run. Per-entry failures are
// collected, never aborting the batch.
type TrainingReport struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// TrainingService owns the knowledge-base entry lifecycle: authoring,
// batch embedding and soft deletion. It is the single writer of the
// embedding rows the search path reads.
type TrainingService interface {
	CreateEntry(ctx context.Context, entry *models.TrainingEntry) error
	UpdateEntry(ctx context.Context, entry *models.TrainingEntry) error
	ListEntries(ctx context.Context, agentID uuid.UUID) ([]*models.TrainingEntry, error)

	// DeleteEntry soft-deletes the entry and marks its embedding row
	// deleted. Neither row is ever re-used.
	DeleteEntry(ctx context.Context, id uuid.UUID) error

	// ProcessPending embeds all entries marked pending_training for the
	// workspace, in batches with bounded concurrency. One entry's failure
	// never aborts the run; the report carries success/total counts.
	ProcessPending(ctx context.Context, workspaceID uuid.UUID) (*TrainingReport, error)
}

// TrainingServiceConfig tunes the batch embedding job.
type TrainingServiceConfig struct {
	BatchSize     int // Entries fetched and processed per batch
	MaxConcurrent int // In-flight embedding calls within a batch
}

type trainingService struct {
	entries    repositories.TrainingEntryRepository
	embeddings repositories.EmbeddingRepository
	llmClient  llm.LLMClient
	pool       *llm.WorkerPool
	cfg        TrainingServiceConfig
	logger     *zap.Logger
}

// NewTrainingService creates the training service.
func NewTrainingService(
	entries repositories.TrainingEntryRepository,
	embeddings repositories.EmbeddingRepository,
	llmClient llm.LLMClient,
	cfg TrainingServiceConfig,
	logger *zap.Logger,
) TrainingService {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 20
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 8
	}
	return &trainingService{
		entries:    entries,
		embeddings: embeddings,
		llmClient:  llmClient,
		pool:       llm.NewWorkerPool(llm.WorkerPoolConfig{MaxConcurrent: cfg.MaxConcurrent}, logger),
		cfg:        cfg,
		logger:     logger.Named("training"),
	}
}

var _ TrainingService = (*trainingService)(nil)

func (s *trainingService) CreateEntry(ctx context.Context, entry *models.TrainingEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid training entry: %w", err)
	}
	return s.entries.Create(ctx, entry)
}

func (s *trainingService) UpdateEntry(ctx context.Context, entry *models.TrainingEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid training entry: %w", err)
	}
	return s.entries.Update(ctx, entry)
}

func (s *trainingService) ListEntries(ctx context.Context, agentID uuid.UUID) ([]*models.TrainingEntry, error) {
	return s.entries.ListByAgent(ctx, agentID)
}

func (s *trainingService) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	if err := s.entries.SoftDelete(ctx, id); err != nil {
		return err
	}
	if err := s.embeddings.SoftDeleteByEntry(ctx, id); err != nil {
		return fmt.Errorf("entry deleted but embedding cleanup failed: %w", err)
	}
	return nil
}

func (s *trainingService) ProcessPending(ctx context.Context, workspaceID uuid.UUID) (*TrainingReport, error) {
	if workspaceID == uuid.Nil {
		return nil, fmt.Errorf("workspace_id is required")
	}

	report := &TrainingReport{}
	failed := make(map[uuid.UUID]bool)

	for {
		// Failed entries stay pending in storage for the next run; within
		// this run they are skipped, so the fetch window grows by the
		// failure count or fresh entries queued behind them would never be
		// reached.
		fetched, err := s.entries.ListPending(ctx, workspaceID, s.cfg.BatchSize+len(failed))
		if err != nil {
			return report, fmt.Errorf("list pending entries: %w", err)
		}

		batch := fetched[:0:0]
		for _, entry := range fetched {
			if !failed[entry.ID] {
				batch = append(batch, entry)
			}
		}
		if len(batch) == 0 {
			break
		}
		if len(batch) > s.cfg.BatchSize {
			batch = batch[:s.cfg.BatchSize]
		}

		report.Total += len(batch)
		processed, batchFailed := s.processBatch(ctx, batch)
		report.Processed += processed
		report.Failed += len(batch) - processed
		for _, id := range batchFailed {
			failed[id] = true
		}
	}

	s.logger.Info("Training run completed",
		zap.String("workspace_id", workspaceID.String()),
		zap.Int("total", report.Total),
		zap.Int("processed", report.Processed),
		zap.Int("failed", report.Failed))

	return report, nil
}

// processBatch embeds and stores one batch with bounded concurrency,
// returning the number of entries that completed and the IDs that failed.
func (s *trainingService) processBatch(ctx context.Context, batch []*models.TrainingEntry) (int, []uuid.UUID) {
	items := make([]llm.WorkItem[*models.TrainingEntry], 0, len(batch))
	for _, entry := range batch {
		entry := entry
		items = append(items, llm.WorkItem[*models.TrainingEntry]{
			ID: entry.ID.String(),
			Execute: func(ctx context.Context) (*models.TrainingEntry, error) {
				return entry, s.embedAndStore(ctx, entry)
			},
		})
	}

	processed := 0
	var failed []uuid.UUID
	for _, result := range llm.Process(ctx, s.pool, items) {
		if result.Err != nil {
			s.logger.Error("Failed to embed training entry",
				zap.String("entry_id", result.ID),
				zap.String("error", logging.SanitizeError(result.Err)))
			if id, err := uuid.Parse(result.ID); err == nil {
				failed = append(failed, id)
			}
			continue
		}
		processed++
	}

	return processed, failed
}

// embedAndStore embeds one entry's content and upserts its vector row.
// Transient provider failures are retried with backoff; permanent ones
// surface immediately.
func (s *trainingService) embedAndStore(ctx context.Context, entry *models.TrainingEntry) error {
	result, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*llm.EmbeddingResult, error) {
		return s.llmClient.CreateEmbedding(ctx, entry.Content)
	})
	if err != nil {
		return fmt.Errorf("embed entry content: %w", err)
	}

	embedding := &models.TrainingEmbedding{
		TrainingEntryID: entry.ID,
		Embedding:       pgvector.NewVector(result.Vector),
		WorkspaceID:     entry.WorkspaceID,
		TotalTokens:     result.TotalTokens,
	}
	if err := s.embeddings.Upsert(ctx, embedding); err != nil {
		return fmt.Errorf("store embedding: %w", err)
	}

	if err := s.entries.MarkExecuted(ctx, entry.ID, time.Now()); err != nil {
		return fmt.Errorf("mark entry executed: %w", err)
	}

	return nil
}
