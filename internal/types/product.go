package types

import (
	"time"
)

type Availability string

const (
	AvailabilityInStock    Availability = "in_stock"
	AvailabilityLowStock   Availability = "low_stock"
	AvailabilityOutOfStock Availability = "out_of_stock"
)

// Product identity is a stable integer id (catalog primary key), not an
// engine-generated UUID: ranker and recommender tie-breaks sort on it
// directly, so it must reflect catalog/insertion order.
type Product struct {
	ID          int64   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SKU         *string `gorm:"column:sku;uniqueIndex" json:"sku,omitempty"`

	Title       string   `gorm:"column:title;not null" json:"title"`
	Description string   `gorm:"column:description" json:"description"`
	Category    string   `gorm:"column:category;index" json:"category"`
	Subcategory string   `gorm:"column:subcategory" json:"subcategory"`
	Brand       string   `gorm:"column:brand" json:"brand"`
	Features    []string `gorm:"column:features;serializer:json" json:"features"`

	Price         float64 `gorm:"column:price;not null" json:"price"`
	OriginalPrice *float64 `gorm:"column:original_price" json:"original_price,omitempty"`
	Currency      string  `gorm:"column:currency;default:USD" json:"currency"`

	Rating      *float64 `gorm:"column:rating" json:"rating,omitempty"`
	ReviewCount int      `gorm:"column:review_count;default:0" json:"review_count"`

	Availability Availability `gorm:"column:availability;not null;default:in_stock" json:"availability"`
	StockQty     int          `gorm:"column:stock_qty;default:0" json:"stock_qty"`

	ImageURL string `gorm:"column:image_url" json:"image_url"`
	Featured bool   `gorm:"column:featured;default:false;index" json:"featured"`

	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now()" json:"updated_at"`
}

func (Product) TableName() string { return "product" }

// DescriptiveText is the text blob fed to the embedding provider and scanned
// for matched terms: title + description + category.
func (p *Product) DescriptiveText() string {
	return p.Title + " " + p.Description + " " + p.Category
}
