// Package evaluator implements the IR Evaluator: standard ranking
// metrics over a result list and a set of relevance judgments, plus an
// automatic judgment synthesizer for when no human labels exist.
package evaluator

import (
	"math"
	"sort"
	"strings"
)

type ResultRow struct {
	ProductID  int64
	Position   int // 0-indexed
	FinalScore float64
}

// RelevanceThreshold is τ, the minimum judgment value counted as "relevant"
// for Recall/Precision/MRR/AP (default τ=1).
const RelevanceThreshold = 1

func DCG(results []ResultRow, judgments map[int64]int, k int) float64 {
	n := len(results)
	if k < n {
		n = k
	}
	var dcg float64
	for i := 0; i < n; i++ {
		rel := judgments[results[i].ProductID]
		dcg += (math.Pow(2, float64(rel)) - 1) / math.Log2(float64(i)+2)
	}
	return dcg
}

// IDCG is DCG@k over all judgments sorted by relevance descending, treating
// each judged product as occupying one position.
func IDCG(judgments map[int64]int, k int) float64 {
	rels := make([]int, 0, len(judgments))
	for _, rel := range judgments {
		rels = append(rels, rel)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(rels)))
	n := len(rels)
	if k < n {
		n = k
	}
	var idcg float64
	for i := 0; i < n; i++ {
		idcg += (math.Pow(2, float64(rels[i])) - 1) / math.Log2(float64(i)+2)
	}
	return idcg
}

func NDCG(results []ResultRow, judgments map[int64]int, k int) float64 {
	idcg := IDCG(judgments, k)
	if idcg == 0 {
		return 0
	}
	return DCG(results, judgments, k) / idcg
}

func relevantSet(judgments map[int64]int) map[int64]bool {
	out := make(map[int64]bool)
	for id, rel := range judgments {
		if rel >= RelevanceThreshold {
			out[id] = true
		}
	}
	return out
}

func Recall(results []ResultRow, judgments map[int64]int, k int) float64 {
	relevant := relevantSet(judgments)
	if len(relevant) == 0 {
		return 0
	}
	n := len(results)
	if k < n {
		n = k
	}
	var hits int
	for i := 0; i < n; i++ {
		if relevant[results[i].ProductID] {
			hits++
		}
	}
	return float64(hits) / float64(len(relevant))
}

func Precision(results []ResultRow, judgments map[int64]int, k int) float64 {
	relevant := relevantSet(judgments)
	denom := k
	if len(results) < denom {
		denom = len(results)
	}
	if denom == 0 {
		return 0
	}
	n := len(results)
	if k < n {
		n = k
	}
	var hits int
	for i := 0; i < n; i++ {
		if relevant[results[i].ProductID] {
			hits++
		}
	}
	return float64(hits) / float64(denom)
}

func MRR(results []ResultRow, judgments map[int64]int) float64 {
	relevant := relevantSet(judgments)
	for i, r := range results {
		if relevant[r.ProductID] {
			return 1 / float64(i+1)
		}
	}
	return 0
}

// AP is average precision over the full result list.
func AP(results []ResultRow, judgments map[int64]int) float64 {
	relevant := relevantSet(judgments)
	if len(relevant) == 0 {
		return 0
	}
	var hits int
	var sumPrecision float64
	for i, r := range results {
		if relevant[r.ProductID] {
			hits++
			sumPrecision += float64(hits) / float64(i+1)
		}
	}
	return sumPrecision / float64(len(relevant))
}

// Product is the minimal shape the judgment synthesizer needs: a title plus
// the text it scans for term matches.
type Product struct {
	ID   int64
	Title string
	Text  string
}

// AutoJudge synthesizes relevance judgments when no human labels
// exist: a 3-tier classification driven by query-term match ratio and an
// exact-title-substring check. This is an acknowledged weak signal.
func AutoJudge(query string, products []Product) map[int64]int {
	queryTerms := queryTokens(query)
	out := make(map[int64]int, len(products))
	if len(queryTerms) == 0 {
		for _, p := range products {
			out[p.ID] = 0
		}
		return out
	}

	for _, p := range products {
		textTokens := tokenSet(p.Text)
		lowerTitle := strings.ToLower(p.Title)
		var matched int
		var exactTitle bool
		for _, t := range queryTerms {
			if textTokens[t] {
				matched++
			}
			if strings.Contains(lowerTitle, t) {
				exactTitle = true
			}
		}
		ratio := float64(matched) / float64(len(queryTerms))

		switch {
		case ratio >= 0.8 && exactTitle:
			out[p.ID] = 3
		case ratio >= 0.5 || exactTitle:
			out[p.ID] = 2
		case matched > 0:
			out[p.ID] = 1
		default:
			out[p.ID] = 0
		}
	}
	return out
}

func queryTokens(q string) []string {
	raw := strings.Fields(strings.ToLower(q))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.Trim(t, ".,!?;:\"'()")
		if len(t) > 2 {
			out = append(out, t)
		}
	}
	return out
}

func tokenSet(s string) map[string]bool {
	out := make(map[string]bool)
	for _, t := range strings.Fields(strings.ToLower(s)) {
		t = strings.Trim(t, ".,!?;:\"'()")
		if t != "" {
			out[t] = true
		}
	}
	return out
}
