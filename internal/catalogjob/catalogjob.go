// Package catalogjob drives the batch-embedding state machine:
// pending -> processing -> embedding -> {completed, failed}. Per-product
// upserts within a batch are independently retried and bounded by a worker
// pool built on errgroup.
package catalogjob

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kestrel-retail/discovery-engine/internal/apperr"
	"github.com/kestrel-retail/discovery-engine/internal/embedding"
	"github.com/kestrel-retail/discovery-engine/internal/logger"
	"github.com/kestrel-retail/discovery-engine/internal/repos"
	"github.com/kestrel-retail/discovery-engine/internal/types"
	"github.com/kestrel-retail/discovery-engine/internal/vectorindex"
)

const (
	maxConcurrentEmbeds = 8
	maxEmbedAttempts    = 3
)

type Service struct {
	log        *logger.Logger
	jobs       repos.CatalogUploadJobRepo
	products   repos.ProductRepo
	embeddings repos.EmbeddingRepo
	index      vectorindex.Index
	embedder   embedding.Provider
}

func NewService(log *logger.Logger, jobs repos.CatalogUploadJobRepo, products repos.ProductRepo, embeddings repos.EmbeddingRepo, index vectorindex.Index, embedder embedding.Provider) *Service {
	return &Service{
		log:        log.With("component", "CatalogEmbeddingJob"),
		jobs:       jobs,
		products:   products,
		embeddings: embeddings,
		index:      index,
		embedder:   embedder,
	}
}

// StartJob records a new job in `pending`, for an external loader that has
// already (or will shortly) insert the product rows later passed to Run.
func (s *Service) StartJob(ctx context.Context, filename string, total int) (*types.CatalogUploadJob, error) {
	job := &types.CatalogUploadJob{ID: uuid.New(), Filename: filename, Total: total}
	if err := s.jobs.Create(ctx, nil, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Run executes pending -> processing -> embedding -> completed|failed for
// the given job over productIDs, which must already be persisted by the
// external loader.
func (s *Service) Run(ctx context.Context, jobID uuid.UUID, productIDs []int64) error {
	now := time.Now().UTC()
	if err := s.jobs.Transition(ctx, nil, jobID, types.CatalogUploadProcessing, func(j *types.CatalogUploadJob) {
		j.StartedAt = &now
	}); err != nil {
		return err
	}

	products, err := s.products.GetByIDs(ctx, nil, productIDs)
	if err != nil {
		s.fail(ctx, jobID, err)
		return err
	}
	if err := s.jobs.IncrementCounters(ctx, nil, jobID, len(products), 0); err != nil {
		s.fail(ctx, jobID, err)
		return err
	}

	if err := s.jobs.Transition(ctx, nil, jobID, types.CatalogUploadEmbedding, nil); err != nil {
		s.fail(ctx, jobID, err)
		return err
	}

	var embedded atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentEmbeds)

	for _, p := range products {
		p := p
		g.Go(func() error {
			var err error
			for attempt := 0; attempt < maxEmbedAttempts; attempt++ {
				if err = s.embedOne(gctx, p); err == nil || gctx.Err() != nil {
					break
				}
			}
			if err != nil {
				s.log.Warn("product embedding failed, skipping", "product_id", p.ID, "error", err)
				return nil
			}
			embedded.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.fail(ctx, jobID, err)
		return err
	}

	if err := s.jobs.IncrementCounters(ctx, nil, jobID, 0, int(embedded.Load())); err != nil {
		s.fail(ctx, jobID, err)
		return err
	}

	completedAt := time.Now().UTC()
	return s.jobs.Transition(ctx, nil, jobID, types.CatalogUploadCompleted, func(j *types.CatalogUploadJob) {
		j.CompletedAt = &completedAt
	})
}

func (s *Service) embedOne(ctx context.Context, p *types.Product) error {
	text := p.DescriptiveText()
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return err
	}
	if err := s.embeddings.Upsert(ctx, nil, &types.Embedding{
		ProductID:  p.ID,
		Vector:     vec,
		SourceText: text,
	}); err != nil {
		return err
	}
	return s.index.Upsert(ctx, strconv.FormatInt(p.ID, 10), vec, vectorindex.Metadata{
		Category:     p.Category,
		Price:        p.Price,
		Availability: string(p.Availability),
	})
}

func (s *Service) fail(ctx context.Context, jobID uuid.UUID, cause error) {
	msg := cause.Error()
	if err := s.jobs.Transition(ctx, nil, jobID, types.CatalogUploadFailed, func(j *types.CatalogUploadJob) {
		j.ErrorMessage = msg
	}); err != nil {
		s.log.Error("failed to mark catalog upload job failed", "job_id", jobID, "error", err)
	}
}

// Retry re-enters a failed job at processing, the only recoverable
// transition.
func (s *Service) Retry(ctx context.Context, jobID uuid.UUID, productIDs []int64) error {
	job, err := s.jobs.GetByID(ctx, nil, jobID)
	if err != nil {
		return err
	}
	if job.Status != types.CatalogUploadFailed {
		return apperr.Conflict("job is not in a failed state", nil)
	}
	return s.Run(ctx, jobID, productIDs)
}
