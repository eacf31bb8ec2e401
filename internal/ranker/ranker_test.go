package ranker

import (
	"testing"
	"time"

	"github.com/kestrel-retail/discovery-engine/internal/types"
)

var nextProductID int64

func product(title string, rating, price float64, createdDaysAgo int) *types.Product {
	nextProductID++
	return &types.Product{
		ID:           nextProductID,
		Title:        title,
		Description:  "",
		Category:     "electronics",
		Rating:       &rating,
		Price:        price,
		Availability: types.AvailabilityInStock,
		StockQty:     500,
		CreatedAt:    time.Now().AddDate(0, 0, -createdDaysAgo),
	}
}

func TestRankSemanticWinOverRating(t *testing.T) {
	now := time.Now()
	a := product("Sony WH-1000XM5 Wireless Bluetooth Headphones", 4.8, 329.99, 30)
	b := product("Luxury Leather Office Chair", 5.0, 329.99, 30)
	a.CreatedAt, b.CreatedAt = now.AddDate(0, 0, -30), now.AddDate(0, 0, -30)

	weights := types.RankingWeights{Alpha: 0.5, Beta: 0.2, Gamma: 0.15, Delta: 0.1, Eps: 0.05}

	queryEmbedding := []float64{1, 0}
	candidates := []Candidate{
		{Product: a, Embedding: cosineVector(0.88)},
		{Product: b, Embedding: cosineVector(0.05)},
	}

	results := Rank("wireless bluetooth headphones", queryEmbedding, candidates, weights, 0, 10, now)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Product.ID != a.ID {
		t.Fatalf("expected A to outrank B")
	}
	if got := results[0].FinalScore; absDiff(got, 0.917) > 1e-6 {
		t.Fatalf("expected A score 0.917, got %v", got)
	}
	if got := results[1].FinalScore; absDiff(got, 0.450) > 1e-6 {
		t.Fatalf("expected B score 0.450, got %v", got)
	}
	want := []string{"wireless", "bluetooth", "headphones"}
	if len(results[0].MatchedTerms) != len(want) {
		t.Fatalf("expected matched terms %v, got %v", want, results[0].MatchedTerms)
	}
	for i, term := range want {
		if results[0].MatchedTerms[i] != term {
			t.Fatalf("expected matched terms %v, got %v", want, results[0].MatchedTerms)
		}
	}
}

func TestRankEmptyCandidateSetIsNotError(t *testing.T) {
	results := Rank("anything", []float64{1, 0}, nil, types.DefaultWeights(), 0, 10, time.Now())
	if results != nil {
		t.Fatalf("expected nil results for empty candidate set, got %v", results)
	}
}

func TestRankTieBreaksByProductID(t *testing.T) {
	now := time.Now()
	a := product("Widget", 4, 10, 10)
	b := product("Widget", 4, 10, 10)
	if a.ID > b.ID {
		a, b = b, a
	}
	weights := types.RankingWeights{Alpha: 0, Beta: 1, Gamma: 0, Delta: 0, Eps: 0}
	candidates := []Candidate{{Product: b, Embedding: nil}, {Product: a, Embedding: nil}}

	results := Rank("widget", nil, candidates, weights, 0, 10, now)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Product.ID != a.ID {
		t.Fatalf("expected tie to break by product id ascending")
	}
	if results[0].Rank != 1 || results[1].Rank != 2 {
		t.Fatalf("expected 1-based ranks, got %d/%d", results[0].Rank, results[1].Rank)
	}
}

func TestTokenizeDropsShortTokensAndLowercases(t *testing.T) {
	tokens := Tokenize("A Red-Hot USB-C Hub, 10ft")
	for _, tok := range tokens {
		if len(tok) <= 2 {
			t.Fatalf("expected tokens of length > 2 only, got %q", tok)
		}
		if tok != stringsToLower(tok) {
			t.Fatalf("expected lowercased token, got %q", tok)
		}
	}
}

func stringsToLower(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r >= 'A' && r <= 'Z' {
			out[i] = r + ('a' - 'A')
		}
	}
	return string(out)
}

// cosineVector builds a 2-D unit vector whose dot product with (1,0) is cos.
func cosineVector(cos float64) []float64 {
	sin := 1 - cos*cos
	if sin < 0 {
		sin = 0
	}
	return []float64{cos, sqrt(sin)}
}

func sqrt(v float64) float64 {
	if v == 0 {
		return 0
	}
	x := v
	for i := 0; i < 50; i++ {
		x = 0.5 * (x + v/x)
	}
	return x
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
