package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kestrel-retail/discovery-engine/internal/logger"
	"github.com/kestrel-retail/discovery-engine/internal/types"
)

type EmbeddingRepo interface {
	// Upsert is idempotent, keyed by product id.
	Upsert(ctx context.Context, tx *gorm.DB, e *types.Embedding) error
	GetByProductID(ctx context.Context, tx *gorm.DB, productID int64) (*types.Embedding, error)
	GetByProductIDs(ctx context.Context, tx *gorm.DB, productIDs []int64) (map[int64]*types.Embedding, error)
	Delete(ctx context.Context, tx *gorm.DB, productID int64) error
}

type embeddingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEmbeddingRepo(db *gorm.DB, baseLog *logger.Logger) EmbeddingRepo {
	return &embeddingRepo{db: db, log: baseLog.With("repo", "EmbeddingRepo")}
}

func (r *embeddingRepo) Upsert(ctx context.Context, tx *gorm.DB, e *types.Embedding) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if runes := []rune(e.SourceText); len(runes) > 1000 {
		e.SourceText = string(runes[:1000])
	}
	err := t.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		UpdateAll: true,
	}).Create(e).Error
	if err != nil {
		return wrapUnavailable(r.log, "upsert embedding", err)
	}
	return nil
}

func (r *embeddingRepo) GetByProductID(ctx context.Context, tx *gorm.DB, productID int64) (*types.Embedding, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var e types.Embedding
	err := t.WithContext(ctx).Where("product_id = ?", productID).Limit(1).Find(&e).Error
	if err != nil {
		return nil, wrapUnavailable(r.log, "get embedding", err)
	}
	if e.ProductID == 0 {
		return nil, nil // weak reference; absent is not an error
	}
	return &e, nil
}

func (r *embeddingRepo) GetByProductIDs(ctx context.Context, tx *gorm.DB, productIDs []int64) (map[int64]*types.Embedding, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	out := make(map[int64]*types.Embedding, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	var rows []*types.Embedding
	if err := t.WithContext(ctx).Where("product_id IN ?", productIDs).Find(&rows).Error; err != nil {
		return nil, wrapUnavailable(r.log, "get embeddings by ids", err)
	}
	for _, row := range rows {
		out[row.ProductID] = row
	}
	return out, nil
}

func (r *embeddingRepo) Delete(ctx context.Context, tx *gorm.DB, productID int64) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if err := t.WithContext(ctx).Where("product_id = ?", productID).Delete(&types.Embedding{}).Error; err != nil {
		return wrapUnavailable(r.log, "delete embedding", err)
	}
	return nil
}
