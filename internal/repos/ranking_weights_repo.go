package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kestrel-retail/discovery-engine/internal/logger"
	"github.com/kestrel-retail/discovery-engine/internal/types"
)

type RankingWeightsRepo interface {
	// ActiveOrDefault returns the single active row, materializing and
	// activating the default in one write if none exists. Coded as an
	// upsert-and-return, not a recursive read-then-insert-then-reread.
	ActiveOrDefault(ctx context.Context, tx *gorm.DB, defaults types.RankingWeights) (*types.RankingWeights, error)
	// Update deactivates the current active row and inserts the new one
	// atomically, preserving the "exactly one active row" invariant.
	Update(ctx context.Context, tx *gorm.DB, w *types.RankingWeights) (*types.RankingWeights, error)
}

type rankingWeightsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRankingWeightsRepo(db *gorm.DB, baseLog *logger.Logger) RankingWeightsRepo {
	return &rankingWeightsRepo{db: db, log: baseLog.With("repo", "RankingWeightsRepo")}
}

func (r *rankingWeightsRepo) ActiveOrDefault(ctx context.Context, tx *gorm.DB, defaults types.RankingWeights) (*types.RankingWeights, error) {
	t := tx
	if t == nil {
		t = r.db
	}

	var existing types.RankingWeights
	err := t.WithContext(ctx).Where("active = ?", true).Order("updated_at DESC").Limit(1).Find(&existing).Error
	if err != nil {
		return nil, wrapUnavailable(r.log, "read active weights", err)
	}
	if existing.ID != uuid.Nil {
		return &existing, nil
	}

	now := time.Now().UTC()
	row := defaults
	row.ID = uuid.New()
	row.Active = true
	row.CreatedAt = now
	row.UpdatedAt = now
	if err := t.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, wrapUnavailable(r.log, "materialize default weights", err)
	}
	return &row, nil
}

func (r *rankingWeightsRepo) Update(ctx context.Context, tx *gorm.DB, w *types.RankingWeights) (*types.RankingWeights, error) {
	t := tx
	if t == nil {
		t = r.db
	}

	now := time.Now().UTC()
	err := t.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		if err := txn.Model(&types.RankingWeights{}).Where("active = ?", true).Update("active", false).Error; err != nil {
			return err
		}
		w.ID = uuid.New()
		w.Active = true
		w.CreatedAt = now
		w.UpdatedAt = now
		return txn.Create(w).Error
	})
	if err != nil {
		return nil, wrapUnavailable(r.log, "update weights", err)
	}
	return w, nil
}
