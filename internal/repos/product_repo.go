package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kestrel-retail/discovery-engine/internal/apperr"
	"github.com/kestrel-retail/discovery-engine/internal/logger"
	"github.com/kestrel-retail/discovery-engine/internal/types"
)

type ProductRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, p *types.Product) error
	GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.Product, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []int64) ([]*types.Product, error)
	// RecentCandidates returns up to limit most-recently-updated products,
	// the bounded candidate set considered for a single search.
	RecentCandidates(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Product, error)
	Featured(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Product, error)
	SameCategory(ctx context.Context, tx *gorm.DB, category string, excludeID int64, limit int) ([]*types.Product, error)
	Delete(ctx context.Context, tx *gorm.DB, id int64) error
}

type productRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProductRepo(db *gorm.DB, baseLog *logger.Logger) ProductRepo {
	return &productRepo{db: db, log: baseLog.With("repo", "ProductRepo")}
}

func (r *productRepo) Upsert(ctx context.Context, tx *gorm.DB, p *types.Product) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if p.Title == "" {
		return apperr.InvalidInput("product title is required", nil)
	}
	if p.OriginalPrice != nil && *p.OriginalPrice < p.Price {
		return apperr.InvalidInput("original price must be >= price", nil)
	}
	err := t.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(p).Error
	if err != nil {
		return wrapUnavailable(r.log, "upsert product", err)
	}
	return nil
}

func (r *productRepo) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.Product, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var p types.Product
	err := t.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&p).Error
	if err != nil {
		return nil, wrapUnavailable(r.log, "get product", err)
	}
	if p.ID == 0 {
		return nil, apperr.NotFound("product not found", nil)
	}
	return &p, nil
}

func (r *productRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []int64) ([]*types.Product, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.Product
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, wrapUnavailable(r.log, "get products by ids", err)
	}
	return out, nil
}

func (r *productRepo) RecentCandidates(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Product, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.Product
	if err := t.WithContext(ctx).Order("updated_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, wrapUnavailable(r.log, "recent candidates", err)
	}
	return out, nil
}

func (r *productRepo) Featured(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Product, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.Product
	q := t.WithContext(ctx).Where("featured = ?", true).Order("rating DESC NULLS LAST").Limit(limit)
	if err := q.Find(&out).Error; err != nil {
		return nil, wrapUnavailable(r.log, "featured products", err)
	}
	return out, nil
}

func (r *productRepo) SameCategory(ctx context.Context, tx *gorm.DB, category string, excludeID int64, limit int) ([]*types.Product, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.Product
	err := t.WithContext(ctx).
		Where("category = ? AND id <> ?", category, excludeID).
		Order("id ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, wrapUnavailable(r.log, "same category products", err)
	}
	return out, nil
}

func (r *productRepo) Delete(ctx context.Context, tx *gorm.DB, id int64) error {
	t := tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(ctx).Where("id = ?", id).Delete(&types.Product{})
	if res.Error != nil {
		return wrapUnavailable(r.log, "delete product", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("product not found", nil)
	}
	return nil
}

// wrapUnavailable classifies a repository error as Unavailable's
// failure model: loss of DB connectivity must not crash the process. Errors
// already carrying a Kind (e.g. a NotFound/Conflict raised inside a
// transaction) pass through unchanged.
func wrapUnavailable(log *logger.Logger, op string, err error) error {
	if err == nil {
		return nil
	}
	if isAppErr(err) {
		return err
	}
	log.Warn("repository operation failed", "op", op, "error", err)
	return apperr.Unavailable(op, err)
}

func isAppErr(err error) bool {
	_, ok := err.(*apperr.Error)
	return ok
}
