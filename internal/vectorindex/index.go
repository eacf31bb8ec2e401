// Package vectorindex implements the Vector Index: store and query
// product embeddings. Two backends satisfy the same interface — a linear
// cosine scan (default, sufficient at 10^3-10^5 scale) and an ANN-capable
// HTTP backend built on Qdrant — so an operator can swap in an ANN index
// without touching any caller.
package vectorindex

import (
	"context"
	"strconv"
)

type Match struct {
	ProductID string
	Cosine    float64
}

// Filter narrows a scan to a subset of the catalog.
type Filter struct {
	Category    string
	MinPrice    *float64
	MaxPrice    *float64
	InStockOnly bool
}

// Metadata is the payload stored alongside a vector so Scan can apply Filter
// without a round trip back to the repository.
type Metadata struct {
	Category     string
	Price        float64
	Availability string
}

func (m Metadata) matches(f Filter) bool {
	if f.Category != "" && m.Category != f.Category {
		return false
	}
	if f.MinPrice != nil && m.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && m.Price > *f.MaxPrice {
		return false
	}
	if f.InStockOnly && m.Availability != "in_stock" {
		return false
	}
	return true
}

// lessProductID orders two product ids for the Scan tie-break. Product ids
// are decimal integers, so this compares numerically rather than
// lexicographically ("10" must sort after "9"); a ParseInt failure on
// either side falls back to a plain string compare rather than panicking.
func lessProductID(a, b string) bool {
	ai, aErr := strconv.ParseInt(a, 10, 64)
	bi, bErr := strconv.ParseInt(b, 10, 64)
	if aErr != nil || bErr != nil {
		return a < b
	}
	return ai < bi
}

type Index interface {
	// Upsert is an idempotent replace, unique per product id.
	Upsert(ctx context.Context, productID string, vector []float64, meta Metadata) error
	Lookup(ctx context.Context, productID string) ([]float64, bool, error)
	// Scan returns up to k products with the highest cosine similarity to
	// queryVector among those satisfying filter. Ties broken by product id
	// ascending for determinism.
	Scan(ctx context.Context, queryVector []float64, filter Filter, k int) ([]Match, error)
	Delete(ctx context.Context, productID string) error
}
