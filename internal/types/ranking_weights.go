package types

import (
	"time"

	"github.com/google/uuid"
)

// RankingWeights holds the five coefficients of the linear re-ranker.
// Exactly one row has Active=true at any time.
type RankingWeights struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	Alpha float64 `gorm:"column:alpha;not null" json:"alpha"` // semantic
	Beta  float64 `gorm:"column:beta;not null" json:"beta"`   // rating
	Gamma float64 `gorm:"column:gamma;not null" json:"gamma"` // price
	Delta float64 `gorm:"column:delta;not null" json:"delta"` // stock
	Eps   float64 `gorm:"column:epsilon;not null" json:"epsilon"`

	Active bool `gorm:"column:active;not null;default:false;index" json:"active"`

	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now()" json:"updated_at"`
}

func (RankingWeights) TableName() string { return "ranking_weights" }

// DefaultWeights is the materialized default when no active row exists.
func DefaultWeights() RankingWeights {
	return RankingWeights{Alpha: 0.50, Beta: 0.20, Gamma: 0.15, Delta: 0.10, Eps: 0.05, Active: true}
}

func (w RankingWeights) AsArray() [5]float64 {
	return [5]float64{w.Alpha, w.Beta, w.Gamma, w.Delta, w.Eps}
}
