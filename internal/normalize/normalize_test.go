package normalize

import (
	"testing"
	"time"

	"github.com/kestrel-retail/discovery-engine/internal/types"
)

func TestRating(t *testing.T) {
	r := 4.8
	if got := Rating(&r); got != 0.96 {
		t.Fatalf("expected 0.96, got %v", got)
	}
	if got := Rating(nil); got != 0.5 {
		t.Fatalf("expected 0.5 for nil rating, got %v", got)
	}
}

func TestPriceSingleCandidate(t *testing.T) {
	if got := Price(329.99, 329.99, 329.99); got != 0.5 {
		t.Fatalf("expected 0.5 for single-candidate price range, got %v", got)
	}
}

func TestPriceMinMax(t *testing.T) {
	if got := Price(0, 0, 100); got != 1 {
		t.Fatalf("expected 1 for cheapest, got %v", got)
	}
	if got := Price(100, 0, 100); got != 0 {
		t.Fatalf("expected 0 for most expensive, got %v", got)
	}
}

func TestStock(t *testing.T) {
	if got := Stock(types.AvailabilityOutOfStock, 0); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
	if got := Stock(types.AvailabilityLowStock, 5); got != 0.5 {
		t.Fatalf("expected 0.5, got %v", got)
	}
	if got := Stock(types.AvailabilityInStock, 500); got != 1 {
		t.Fatalf("expected 1 at qty 500, got %v", got)
	}
	if got := Stock(types.AvailabilityInStock, 1000); got != 1 {
		t.Fatalf("expected clamp at 1 for qty over 500, got %v", got)
	}
	if got := Stock(types.AvailabilityInStock, 0); got != 0.7 {
		t.Fatalf("expected 0.7 at qty 0, got %v", got)
	}
}

func TestRecencyBounds(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if got := Recency(now.AddDate(0, 0, -10), now); got != 1 {
		t.Fatalf("expected 1 for 10-day-old product, got %v", got)
	}
	if got := Recency(now.AddDate(0, 0, -400), now); got != 0.1 {
		t.Fatalf("expected 0.1 for 400-day-old product, got %v", got)
	}
	mid := Recency(now.AddDate(0, 0, -197), now) // ~30 + 335/2
	if mid <= 0.1 || mid >= 1 {
		t.Fatalf("expected mid-range recency in (0.1,1), got %v", mid)
	}
}

func TestCandidatePriceRangeEmpty(t *testing.T) {
	min, max := CandidatePriceRange(nil)
	if min != 0 || max != 0 {
		t.Fatalf("expected zero range for empty candidate set, got %v/%v", min, max)
	}
}
