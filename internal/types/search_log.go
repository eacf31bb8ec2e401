package types

import (
	"time"

	"github.com/google/uuid"
)

type SearchLog struct {
	ID              uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID       string    `gorm:"column:session_id;index" json:"session_id"`
	Query           string    `gorm:"column:query;not null" json:"query"`
	QueryEmbedding  []float64 `gorm:"column:query_embedding;serializer:json" json:"query_embedding"`
	ResultCount     int       `gorm:"column:result_count" json:"result_count"`
	ResponseTimeMs  int64     `gorm:"column:response_time_ms" json:"response_time_ms"`
	Filters         string    `gorm:"column:filters" json:"filters"` // serialized filter bag (JSON text)
	Fallback        string    `gorm:"column:fallback" json:"fallback,omitempty"`
	Degraded        bool      `gorm:"column:degraded;default:false" json:"degraded"`
	CreatedAt       time.Time `gorm:"column:created_at;not null;default:now();index" json:"created_at"`
}

func (SearchLog) TableName() string { return "search_log" }

// SearchResultExplanation is a per-(search log, product) row at a result
// position; sub-scores are persisted at six decimal places for replay.
type SearchResultExplanation struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SearchLogID   uuid.UUID `gorm:"type:uuid;column:search_log_id;not null;index" json:"search_log_id"`
	ProductID     int64     `gorm:"column:product_id;not null;index" json:"product_id"`
	Rank          int       `gorm:"column:rank;not null" json:"rank"`
	FinalScore    float64   `gorm:"column:final_score;not null" json:"final_score"`
	SemanticScore float64   `gorm:"column:semantic_score;not null" json:"semantic_score"`
	RatingScore   float64   `gorm:"column:rating_score;not null" json:"rating_score"`
	PriceScore    float64   `gorm:"column:price_score;not null" json:"price_score"`
	StockScore    float64   `gorm:"column:stock_score;not null" json:"stock_score"`
	RecencyScore  float64   `gorm:"column:recency_score;not null" json:"recency_score"`
	MatchedTerms  []string  `gorm:"column:matched_terms;serializer:json" json:"matched_terms"`
	Explanation   string    `gorm:"column:explanation" json:"explanation"`
	WasClicked    bool      `gorm:"column:was_clicked;default:false" json:"was_clicked"`
	CreatedAt     time.Time `gorm:"column:created_at;not null;default:now()" json:"created_at"`
}

func (SearchResultExplanation) TableName() string { return "search_result_explanation" }

// Round6 rounds a sub-score to six decimal places's explanation contract.
func Round6(v float64) float64 {
	const scale = 1e6
	return float64(int64(v*scale+sign(v)*0.5)) / scale
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
