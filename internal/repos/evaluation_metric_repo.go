package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/kestrel-retail/discovery-engine/internal/logger"
	"github.com/kestrel-retail/discovery-engine/internal/types"
)

type EvaluationMetricRepo interface {
	Create(ctx context.Context, tx *gorm.DB, m *types.EvaluationMetric) error
	CreateBatch(ctx context.Context, tx *gorm.DB, ms []*types.EvaluationMetric) error
	List(ctx context.Context, tx *gorm.DB, kind types.MetricKind, limit int) ([]*types.EvaluationMetric, error)
}

type evaluationMetricRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEvaluationMetricRepo(db *gorm.DB, baseLog *logger.Logger) EvaluationMetricRepo {
	return &evaluationMetricRepo{db: db, log: baseLog.With("repo", "EvaluationMetricRepo")}
}

func (r *evaluationMetricRepo) Create(ctx context.Context, tx *gorm.DB, m *types.EvaluationMetric) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if err := t.WithContext(ctx).Create(m).Error; err != nil {
		return wrapUnavailable(r.log, "create evaluation metric", err)
	}
	return nil
}

func (r *evaluationMetricRepo) CreateBatch(ctx context.Context, tx *gorm.DB, ms []*types.EvaluationMetric) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if len(ms) == 0 {
		return nil
	}
	if err := t.WithContext(ctx).CreateInBatches(ms, 100).Error; err != nil {
		return wrapUnavailable(r.log, "create evaluation metrics", err)
	}
	return nil
}

func (r *evaluationMetricRepo) List(ctx context.Context, tx *gorm.DB, kind types.MetricKind, limit int) ([]*types.EvaluationMetric, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.EvaluationMetric
	q := t.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, wrapUnavailable(r.log, "list evaluation metrics", err)
	}
	return out, nil
}
