// Package ranker implements the Ranker: combine semantic similarity
// and feature sub-scores into a single, explainable score per candidate.
package ranker

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/kestrel-retail/discovery-engine/internal/normalize"
	"github.com/kestrel-retail/discovery-engine/internal/types"
	"github.com/kestrel-retail/discovery-engine/internal/vectorindex"
)

// Formula is the versioned public ranking formula. It MUST match the
// arithmetic below. No HTTP handler in this repository returns it.
const Formula = "score = α·min(1, max(0, cos(vq,vp) + 0.5·|matched|/|queryTerms|)) + β·rating/5 + γ·priceNorm + δ·stockNorm + ε·recencyNorm"

// Candidate is one product eligible for ranking, paired with its embedding.
type Candidate struct {
	Product   *types.Product
	Embedding []float64
}

// Result is one ranked output, carrying the full score breakdown for
// persistence as a SearchResultExplanation.
type Result struct {
	Product       *types.Product
	Rank          int
	FinalScore    float64
	SemanticScore float64
	RatingScore   float64
	PriceScore    float64
	StockScore    float64
	RecencyScore  float64
	MatchedTerms  []string
	Explanation   string
}

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Tokenize lowercases and splits on non-alphanumeric runs,
// dropping tokens of length ≤ 2.
func Tokenize(s string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(s), -1)
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		if len(t) <= 2 || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// MatchedTerms returns the query terms that occur as substrings of the
// product's descriptive text, preserving query order. This is a substring
// test, not a token-set lookup, so a short query term like "cam" still
// matches a longer product word like "camera".
func MatchedTerms(queryTerms []string, productText string) []string {
	lower := strings.ToLower(productText)
	out := make([]string, 0, len(queryTerms))
	for _, t := range queryTerms {
		if strings.Contains(lower, t) {
			out = append(out, t)
		}
	}
	return out
}

// Rank scores and orders candidates against a query embedding, using
// query-local min/max for price normalization. now is the reference
// time for recency scoring, passed in so results are reproducible in tests.
func Rank(queryText string, queryEmbedding []float64, candidates []Candidate, weights types.RankingWeights, threshold float64, limit int, now time.Time) []Result {
	if len(candidates) == 0 {
		return nil
	}
	queryTerms := Tokenize(queryText)

	products := make([]*types.Product, len(candidates))
	for i, c := range candidates {
		products[i] = c.Product
	}
	minPrice, maxPrice := normalize.CandidatePriceRange(products)

	w := weights.AsArray()
	alpha, beta, gamma, delta, eps := w[0], w[1], w[2], w[3], w[4]

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		p := c.Product
		cos := vectorindex.Cosine(queryEmbedding, c.Embedding)
		matched := MatchedTerms(queryTerms, p.DescriptiveText())
		boost := 0.0
		if len(queryTerms) > 0 {
			boost = 0.5 * float64(len(matched)) / float64(len(queryTerms))
		}
		semantic := maxFloat(0, cos+boost)
		if semantic > 1 {
			semantic = 1
		}

		rating := normalize.Rating(p.Rating)
		price := normalize.Price(p.Price, minPrice, maxPrice)
		stock := normalize.Stock(p.Availability, p.StockQty)
		recency := normalize.Recency(p.CreatedAt, now)

		final := alpha*semantic + beta*rating + gamma*price + delta*stock + eps*recency
		if final < threshold {
			continue
		}

		results = append(results, Result{
			Product:       p,
			FinalScore:    types.Round6(final),
			SemanticScore: types.Round6(semantic),
			RatingScore:   types.Round6(rating),
			PriceScore:    types.Round6(price),
			StockScore:    types.Round6(stock),
			RecencyScore:  types.Round6(recency),
			MatchedTerms:  matched,
			Explanation:   explain(semantic, matched, p, price),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].FinalScore != results[j].FinalScore {
			return results[i].FinalScore > results[j].FinalScore
		}
		return results[i].Product.ID < results[j].Product.ID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}

func explain(semantic float64, matched []string, p *types.Product, priceScore float64) string {
	var fragments []string

	pct := int(semantic*100 + 0.5)
	switch {
	case semantic > 0.5:
		fragments = append(fragments, fmt.Sprintf("High semantic match (%d%%)", pct))
	case semantic > 0.3:
		fragments = append(fragments, fmt.Sprintf("Moderate semantic match (%d%%)", pct))
	}

	if len(matched) > 0 {
		n := len(matched)
		if n > 3 {
			n = 3
		}
		fragments = append(fragments, "Matches: "+strings.Join(matched[:n], ", "))
	}

	if p.Rating != nil && *p.Rating >= 4 {
		fragments = append(fragments, fmt.Sprintf("Highly rated (%g★)", *p.Rating))
	}

	if priceScore > 0.7 {
		fragments = append(fragments, "Great value")
	}

	if p.Availability == types.AvailabilityInStock {
		fragments = append(fragments, "In stock")
	}

	if len(fragments) == 0 {
		return "Relevant to your search"
	}
	return strings.Join(fragments, " • ")
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
