package vectorindex

import (
	"context"
	"testing"
)

func TestScanTieBreaksByProductIDNumerically(t *testing.T) {
	idx := NewMemoryIndex().(*memoryIndex)
	ctx := context.Background()

	// Three candidates with identical cosine to the query vector (1, 0):
	// ids "9", "10", "2" sort "10" < "2" < "9" lexicographically but must
	// come out 2, 9, 10 once compared numerically.
	for _, id := range []string{"9", "10", "2"} {
		if err := idx.Upsert(ctx, id, []float64{1, 0}, Metadata{}); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}

	matches, err := idx.Scan(ctx, []float64{1, 0}, Filter{}, 10)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matches))
	}
	want := []string{"2", "9", "10"}
	for i, id := range want {
		if matches[i].ProductID != id {
			t.Fatalf("expected tie-break order %v, got %v", want, matchIDs(matches))
		}
	}
}

func matchIDs(matches []Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.ProductID
	}
	return out
}

func TestLessProductIDNumericComparison(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"2", "10", true},
		{"10", "2", false},
		{"9", "10", true},
		{"abc", "10", false}, // non-numeric falls back to string compare
	}
	for _, c := range cases {
		if got := lessProductID(c.a, c.b); got != c.want {
			t.Fatalf("lessProductID(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}
