package types

import (
	"time"

	"github.com/google/uuid"
)

type InteractionKind string

const (
	InteractionView        InteractionKind = "view"
	InteractionClick       InteractionKind = "click"
	InteractionSearchClick InteractionKind = "search_click"
	InteractionAddToCart   InteractionKind = "add_to_cart"
	InteractionPurchase    InteractionKind = "purchase"
)

func (k InteractionKind) Valid() bool {
	switch k {
	case InteractionView, InteractionClick, InteractionSearchClick, InteractionAddToCart, InteractionPurchase:
		return true
	default:
		return false
	}
}

// Interaction is an append-only event; no updates, no deletes.
type Interaction struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID  string          `gorm:"column:session_id;not null;index" json:"session_id"`
	ProductID  int64           `gorm:"column:product_id;not null;index" json:"product_id"`
	Kind       InteractionKind `gorm:"column:kind;not null" json:"kind"`
	Query      *string         `gorm:"column:query" json:"query,omitempty"`
	Position   *int            `gorm:"column:position" json:"position,omitempty"`
	CreatedAt  time.Time       `gorm:"column:created_at;not null;default:now();index" json:"created_at"`
}

func (Interaction) TableName() string { return "interaction" }

// BaseWeight is the hard-coded starting weight per interaction kind.
func (k InteractionKind) BaseWeight() float64 {
	switch k {
	case InteractionPurchase:
		return 5
	case InteractionAddToCart:
		return 4
	case InteractionSearchClick:
		return 3
	case InteractionClick:
		return 2
	case InteractionView:
		return 1
	default:
		return 0
	}
}
