// Package normalize implements the Feature Normalizers: deterministic,
// pure functions mapping a product's raw attributes to a [0,1] sub-score so
// that any logged query's score breakdown can be replayed from the product
// row alone.
package normalize

import (
	"time"

	"github.com/kestrel-retail/discovery-engine/internal/types"
)

// Rating maps a 0-5 rating to [0,1]; an unrated product is treated as
// average.
func Rating(rating *float64) float64 {
	if rating == nil {
		return 0.5
	}
	v := *rating / 5
	return clamp01(v)
}

// Price min-max inverts price over the candidate set of the current query,
// so "cheap" is relative to the shortlist, not the whole catalog. A single
// candidate maps to 0.5.
func Price(price, minPrice, maxPrice float64) float64 {
	if minPrice == maxPrice {
		return 0.5
	}
	return clamp01(1 - (price-minPrice)/(maxPrice-minPrice))
}

// CandidatePriceRange computes the min/max price across a candidate set for
// use with Price.
func CandidatePriceRange(products []*types.Product) (min, max float64) {
	if len(products) == 0 {
		return 0, 0
	}
	min, max = products[0].Price, products[0].Price
	for _, p := range products[1:] {
		if p.Price < min {
			min = p.Price
		}
		if p.Price > max {
			max = p.Price
		}
	}
	return min, max
}

// Stock maps availability and quantity to [0,1].
func Stock(availability types.Availability, stockQty int) float64 {
	switch availability {
	case types.AvailabilityOutOfStock:
		return 0
	case types.AvailabilityLowStock:
		return 0.5
	case types.AvailabilityInStock:
		return clamp01(min1(1, 0.7+0.3*float64(stockQty)/500))
	default:
		return 0.5
	}
}

// Recency is piecewise linear in days since creation: fresh listings score
// 1, listings a year or older score the floor of 0.1.
func Recency(createdAt time.Time, now time.Time) float64 {
	days := now.Sub(createdAt).Hours() / 24
	switch {
	case days <= 30:
		return 1
	case days >= 365:
		return 0.1
	default:
		return clamp01(1 - 0.9*(days-30)/335)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func min1(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
