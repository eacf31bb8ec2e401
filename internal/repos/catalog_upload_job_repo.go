package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kestrel-retail/discovery-engine/internal/apperr"
	"github.com/kestrel-retail/discovery-engine/internal/logger"
	"github.com/kestrel-retail/discovery-engine/internal/types"
)

type CatalogUploadJobRepo interface {
	Create(ctx context.Context, tx *gorm.DB, job *types.CatalogUploadJob) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.CatalogUploadJob, error)
	// Transition applies the upload job's state machine, rejecting moves not
	// in the monotonic transition table.
	Transition(ctx context.Context, tx *gorm.DB, id uuid.UUID, to types.CatalogUploadStatus, mutate func(*types.CatalogUploadJob)) error
	IncrementCounters(ctx context.Context, tx *gorm.DB, id uuid.UUID, processedDelta, embeddedDelta int) error
}

type catalogUploadJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCatalogUploadJobRepo(db *gorm.DB, baseLog *logger.Logger) CatalogUploadJobRepo {
	return &catalogUploadJobRepo{db: db, log: baseLog.With("repo", "CatalogUploadJobRepo")}
}

func (r *catalogUploadJobRepo) Create(ctx context.Context, tx *gorm.DB, job *types.CatalogUploadJob) error {
	t := tx
	if t == nil {
		t = r.db
	}
	job.Status = types.CatalogUploadPending
	if err := t.WithContext(ctx).Create(job).Error; err != nil {
		return wrapUnavailable(r.log, "create catalog upload job", err)
	}
	return nil
}

func (r *catalogUploadJobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.CatalogUploadJob, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var job types.CatalogUploadJob
	if err := t.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&job).Error; err != nil {
		return nil, wrapUnavailable(r.log, "get catalog upload job", err)
	}
	if job.ID == uuid.Nil {
		return nil, apperr.NotFound("catalog upload job not found", nil)
	}
	return &job, nil
}

func (r *catalogUploadJobRepo) Transition(ctx context.Context, tx *gorm.DB, id uuid.UUID, to types.CatalogUploadStatus, mutate func(*types.CatalogUploadJob)) error {
	t := tx
	if t == nil {
		t = r.db
	}
	return wrapUnavailable(r.log, "transition catalog upload job", t.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		var job types.CatalogUploadJob
		if err := txn.Where("id = ?", id).Limit(1).Find(&job).Error; err != nil {
			return err
		}
		if job.ID == uuid.Nil {
			return apperr.NotFound("catalog upload job not found", nil)
		}
		if !job.CanTransition(to) {
			return apperr.Conflict("invalid catalog upload job transition", nil)
		}
		job.Status = to
		if mutate != nil {
			mutate(&job)
		}
		return txn.Save(&job).Error
	}))
}

func (r *catalogUploadJobRepo) IncrementCounters(ctx context.Context, tx *gorm.DB, id uuid.UUID, processedDelta, embeddedDelta int) error {
	t := tx
	if t == nil {
		t = r.db
	}
	err := t.WithContext(ctx).Model(&types.CatalogUploadJob{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"processed": gorm.Expr("processed + ?", processedDelta),
			"embedded":  gorm.Expr("embedded + ?", embeddedDelta),
		}).Error
	if err != nil {
		return wrapUnavailable(r.log, "increment catalog upload job counters", err)
	}
	return nil
}
