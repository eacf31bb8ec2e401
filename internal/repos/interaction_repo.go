package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/kestrel-retail/discovery-engine/internal/apperr"
	"github.com/kestrel-retail/discovery-engine/internal/logger"
	"github.com/kestrel-retail/discovery-engine/internal/types"
)

type InteractionRepo interface {
	Append(ctx context.Context, tx *gorm.DB, in *types.Interaction) error
	// RecentBySession returns the most recent `limit` interactions for a
	// session, most-recent-first.
	RecentBySession(ctx context.Context, tx *gorm.DB, sessionID string, limit int) ([]*types.Interaction, error)
	// RecentlyViewedProductIDs returns distinct product ids from `view`
	// events, most-recent-first.
	RecentlyViewedProductIDs(ctx context.Context, tx *gorm.DB, sessionID string, limit int) ([]int64, error)
}

type interactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInteractionRepo(db *gorm.DB, baseLog *logger.Logger) InteractionRepo {
	return &interactionRepo{db: db, log: baseLog.With("repo", "InteractionRepo")}
}

func (r *interactionRepo) Append(ctx context.Context, tx *gorm.DB, in *types.Interaction) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if !in.Kind.Valid() {
		return apperr.InvalidInput("unknown interaction kind", nil)
	}
	if err := t.WithContext(ctx).Create(in).Error; err != nil {
		return wrapUnavailable(r.log, "append interaction", err)
	}
	return nil
}

func (r *interactionRepo) RecentBySession(ctx context.Context, tx *gorm.DB, sessionID string, limit int) ([]*types.Interaction, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.Interaction
	err := t.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, wrapUnavailable(r.log, "recent interactions", err)
	}
	return out, nil
}

func (r *interactionRepo) RecentlyViewedProductIDs(ctx context.Context, tx *gorm.DB, sessionID string, limit int) ([]int64, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var rows []*types.Interaction
	err := t.WithContext(ctx).
		Where("session_id = ? AND kind = ?", sessionID, types.InteractionView).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapUnavailable(r.log, "recently viewed", err)
	}
	seen := make(map[int64]bool, len(rows))
	out := make([]int64, 0, limit)
	for _, row := range rows {
		if seen[row.ProductID] {
			continue
		}
		seen[row.ProductID] = true
		out = append(out, row.ProductID)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}
