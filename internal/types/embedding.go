package types

import (
	"time"
)

// Embedding is the L2-normalized vector stored for one product. Vector is
// persisted as a JSON array of floats, not pgvector, using gorm's JSON
// serializer for a plain "typed JSON column" shape.
type Embedding struct {
	ProductID  int64     `gorm:"column:product_id;primaryKey" json:"product_id"`
	Vector     []float64 `gorm:"column:vector;serializer:json" json:"vector"`
	SourceText string    `gorm:"column:source_text" json:"source_text"` // truncated to 1000 chars, audit only
	ModelTag   string    `gorm:"column:model_tag" json:"model_tag"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null;default:now()" json:"updated_at"`
}

func (Embedding) TableName() string { return "embedding" }
