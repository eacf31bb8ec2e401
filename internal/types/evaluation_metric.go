package types

import (
	"time"

	"github.com/google/uuid"
)

type MetricKind string

const (
	MetricNDCG10      MetricKind = "ndcg@10"
	MetricRecall10    MetricKind = "recall@10"
	MetricPrecision10 MetricKind = "precision@10"
	MetricMRR         MetricKind = "mrr"
	MetricCustom      MetricKind = "custom"
)

// EvaluationMetric is per (search log or aggregate, metric kind). Aggregate
// rows have a nil SearchLogID, a QueryCount and Note "aggregate"; per-query
// rows carry SearchLogID only when the caller supplied a valid log id.
type EvaluationMetric struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SearchLogID *uuid.UUID `gorm:"type:uuid;column:search_log_id;index" json:"search_log_id,omitempty"`
	Kind        MetricKind `gorm:"column:kind;not null" json:"kind"`
	Value       float64    `gorm:"column:value;not null" json:"value"`
	QueryCount  *int       `gorm:"column:query_count" json:"query_count,omitempty"`
	Note        string     `gorm:"column:note" json:"note,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at;not null;default:now()" json:"created_at"`
}

func (EvaluationMetric) TableName() string { return "evaluation_metric" }
