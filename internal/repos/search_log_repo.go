package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kestrel-retail/discovery-engine/internal/apperr"
	"github.com/kestrel-retail/discovery-engine/internal/logger"
	"github.com/kestrel-retail/discovery-engine/internal/types"
)

type SearchLogRepo interface {
	// CreateWithExplanations persists the search log and its per-result
	// explanations in a single transaction.
	CreateWithExplanations(ctx context.Context, tx *gorm.DB, log *types.SearchLog, explanations []*types.SearchResultExplanation) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.SearchLog, error)
	List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.SearchLog, error)
	ExplanationsByLogID(ctx context.Context, tx *gorm.DB, logID uuid.UUID) ([]*types.SearchResultExplanation, error)
	MarkClicked(ctx context.Context, tx *gorm.DB, logID uuid.UUID, productID int64) error
}

type searchLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSearchLogRepo(db *gorm.DB, baseLog *logger.Logger) SearchLogRepo {
	return &searchLogRepo{db: db, log: baseLog.With("repo", "SearchLogRepo")}
}

func (r *searchLogRepo) CreateWithExplanations(ctx context.Context, tx *gorm.DB, sl *types.SearchLog, explanations []*types.SearchResultExplanation) error {
	t := tx
	if t == nil {
		t = r.db
	}
	err := t.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		if err := txn.Create(sl).Error; err != nil {
			return err
		}
		for _, e := range explanations {
			e.SearchLogID = sl.ID
		}
		if len(explanations) > 0 {
			const batchSize = 100
			if err := txn.CreateInBatches(explanations, batchSize).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrapUnavailable(r.log, "create search log", err)
	}
	return nil
}

func (r *searchLogRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.SearchLog, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var sl types.SearchLog
	if err := t.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&sl).Error; err != nil {
		return nil, wrapUnavailable(r.log, "get search log", err)
	}
	if sl.ID == uuid.Nil {
		return nil, apperr.NotFound("search log not found", nil)
	}
	return &sl, nil
}

func (r *searchLogRepo) List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.SearchLog, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.SearchLog
	err := t.WithContext(ctx).Order("created_at DESC").Limit(limit).Offset(offset).Find(&out).Error
	if err != nil {
		return nil, wrapUnavailable(r.log, "list search logs", err)
	}
	return out, nil
}

func (r *searchLogRepo) ExplanationsByLogID(ctx context.Context, tx *gorm.DB, logID uuid.UUID) ([]*types.SearchResultExplanation, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.SearchResultExplanation
	err := t.WithContext(ctx).Where("search_log_id = ?", logID).Order("rank ASC").Find(&out).Error
	if err != nil {
		return nil, wrapUnavailable(r.log, "get explanations", err)
	}
	return out, nil
}

func (r *searchLogRepo) MarkClicked(ctx context.Context, tx *gorm.DB, logID uuid.UUID, productID int64) error {
	t := tx
	if t == nil {
		t = r.db
	}
	err := t.WithContext(ctx).Model(&types.SearchResultExplanation{}).
		Where("search_log_id = ? AND product_id = ?", logID, productID).
		Update("was_clicked", true).Error
	if err != nil {
		return wrapUnavailable(r.log, "mark clicked", err)
	}
	return nil
}
