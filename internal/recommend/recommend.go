// Package recommend implements the Recommender: session-based,
// item-based, and trending recommendations, all explainable by a short
// reason string.
package recommend

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/kestrel-retail/discovery-engine/internal/apperr"
	"github.com/kestrel-retail/discovery-engine/internal/repos"
	"github.com/kestrel-retail/discovery-engine/internal/types"
	"github.com/kestrel-retail/discovery-engine/internal/vectorindex"
)

type Recommendation struct {
	Product *types.Product
	Score   float64
	Reason  string
}

type Service struct {
	products     repos.ProductRepo
	embeddings   repos.EmbeddingRepo
	interactions repos.InteractionRepo
	sessions     repos.SessionRepo
	index        vectorindex.Index
}

func NewService(products repos.ProductRepo, embeddings repos.EmbeddingRepo, interactions repos.InteractionRepo, sessions repos.SessionRepo, index vectorindex.Index) *Service {
	return &Service{products: products, embeddings: embeddings, interactions: interactions, sessions: sessions, index: index}
}

const (
	maxHistory        = 20
	affinityThreshold = 0.1
	similarThreshold  = 0.3
)

// ForSession implements the session recommendation algorithm: weight
// recent interactions by kind and recency, score unvisited candidates by
// affinity-weighted cosine to the interaction history, and fall back to
// cold start ("Popular product") when there is no usable signal. An expired
// session's history is treated as absent: its interactions are retained for
// analytics, but they no longer drive recommendations.
func (s *Service) ForSession(ctx context.Context, sessionID string, limit int, exclude []int64) ([]Recommendation, error) {
	if limit <= 0 {
		limit = 10
	}
	sess, err := s.sessions.GetByID(ctx, nil, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.Expired(time.Now()) {
		return s.coldStart(ctx, limit, exclude)
	}
	history, err := s.interactions.RecentBySession(ctx, nil, sessionID, maxHistory)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return s.coldStart(ctx, limit, exclude)
	}

	excludeSet := toSet(exclude)
	interactedIDs := make([]int64, 0, len(history))
	weightByProduct := make(map[int64]float64)
	bestKindByProduct := make(map[int64]types.InteractionKind)
	n := len(history)
	for i, in := range history {
		w := in.Kind.BaseWeight() * (1 + float64(n-i)/float64(n))
		if w > weightByProduct[in.ProductID] {
			weightByProduct[in.ProductID] = w
			bestKindByProduct[in.ProductID] = in.Kind
		}
		if !containsID(interactedIDs, in.ProductID) {
			interactedIDs = append(interactedIDs, in.ProductID)
			excludeSet[in.ProductID] = true
		}
	}

	embeddingsByID, err := s.embeddings.GetByProductIDs(ctx, nil, interactedIDs)
	if err != nil {
		return nil, err
	}
	if len(embeddingsByID) == 0 {
		return s.coldStart(ctx, limit, exclude)
	}

	candidates, err := s.products.RecentCandidates(ctx, nil, 5000)
	if err != nil {
		return nil, err
	}

	type scored struct {
		product     *types.Product
		affinity    float64
		bestCosine  float64
		bestKind    types.InteractionKind
	}
	var out []scored

	for _, c := range candidates {
		if excludeSet[c.ID] {
			continue
		}
		vc, ok, err := s.index.Lookup(ctx, strconv.FormatInt(c.ID, 10))
		if err != nil {
			return nil, apperr.Unavailable("lookup candidate embedding", err)
		}
		if !ok {
			continue
		}

		var weightedSum, bestCos, bestWeighted float64
		var interactedWithEmbedding int
		var bestKind types.InteractionKind
		for pid, emb := range embeddingsByID {
			w := weightByProduct[pid]
			cos := vectorindex.Cosine(vc, emb.Vector)
			weighted := w * cos
			weightedSum += weighted
			interactedWithEmbedding++
			if weighted > bestWeighted {
				bestWeighted = weighted
				bestCos = cos
				bestKind = bestKindByProduct[pid]
			}
		}
		if interactedWithEmbedding == 0 {
			continue
		}
		affinity := weightedSum / float64(interactedWithEmbedding)
		if affinity <= affinityThreshold {
			continue
		}
		out = append(out, scored{product: c, affinity: affinity, bestCosine: bestCos, bestKind: bestKind})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].affinity != out[j].affinity {
			return out[i].affinity > out[j].affinity
		}
		return out[i].product.ID < out[j].product.ID
	})
	if len(out) > limit {
		out = out[:limit]
	}

	recs := make([]Recommendation, 0, len(out))
	for _, o := range out {
		recs = append(recs, Recommendation{
			Product: o.product,
			Score:   types.Round6(o.affinity),
			Reason:  sessionReason(o.bestKind, o.bestCosine),
		})
	}
	return recs, nil
}

func sessionReason(kind types.InteractionKind, cos float64) string {
	switch kind {
	case types.InteractionPurchase:
		return "Based on your purchase"
	case types.InteractionAddToCart:
		return "Similar to items in your cart"
	}
	switch {
	case cos > 0.8:
		return "Very similar to items you viewed"
	case cos > 0.6:
		return "Similar to your interests"
	case cos > 0.4:
		return "Related to your browsing"
	default:
		return "You might like this"
	}
}

func (s *Service) coldStart(ctx context.Context, limit int, exclude []int64) ([]Recommendation, error) {
	excludeSet := toSet(exclude)
	featured, err := s.products.Featured(ctx, nil, limit+len(exclude))
	if err != nil {
		return nil, err
	}
	recs := make([]Recommendation, 0, limit)
	for _, p := range featured {
		if excludeSet[p.ID] {
			continue
		}
		recs = append(recs, Recommendation{Product: p, Score: 1, Reason: "Popular product"})
		if len(recs) >= limit {
			break
		}
	}
	return recs, nil
}

// Similar implements the similar-products contract: cosine scan when the
// target has an embedding, same-category fallback otherwise.
func (s *Service) Similar(ctx context.Context, productID int64, limit int) ([]Recommendation, error) {
	if limit <= 0 {
		limit = 10
	}
	target, err := s.products.GetByID(ctx, nil, productID)
	if err != nil {
		return nil, err
	}

	vt, ok, err := s.index.Lookup(ctx, strconv.FormatInt(productID, 10))
	if err != nil {
		return nil, apperr.Unavailable("lookup target embedding", err)
	}
	if !ok {
		same, err := s.products.SameCategory(ctx, nil, target.Category, productID, limit)
		if err != nil {
			return nil, err
		}
		recs := make([]Recommendation, 0, len(same))
		for _, p := range same {
			recs = append(recs, Recommendation{Product: p, Score: 0, Reason: "Same category"})
		}
		return recs, nil
	}

	matches, err := s.index.Scan(ctx, vt, vectorindex.Filter{}, limit+1)
	if err != nil {
		return nil, apperr.Unavailable("scan for similar products", err)
	}
	var candidateIDs []int64
	cosineByID := make(map[int64]float64)
	for _, m := range matches {
		if m.Cosine <= similarThreshold {
			continue
		}
		id, err := strconv.ParseInt(m.ProductID, 10, 64)
		if err != nil || id == productID {
			continue
		}
		candidateIDs = append(candidateIDs, id)
		cosineByID[id] = m.Cosine
	}
	if len(candidateIDs) > limit {
		candidateIDs = candidateIDs[:limit]
	}
	products, err := s.products.GetByIDs(ctx, nil, candidateIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*types.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	recs := make([]Recommendation, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		p, ok := byID[id]
		if !ok {
			continue
		}
		cos := cosineByID[id]
		recs = append(recs, Recommendation{
			Product: p,
			Score:   types.Round6(cos),
			Reason:  fmt.Sprintf("%d%% similar", int(cos*100+0.5)),
		})
	}
	return recs, nil
}

// Trending implements a session-independent, cacheable trending list.
func (s *Service) Trending(ctx context.Context, limit int) ([]Recommendation, error) {
	if limit <= 0 {
		limit = 10
	}
	featured, err := s.products.Featured(ctx, nil, limit)
	if err != nil {
		return nil, err
	}
	recs := make([]Recommendation, 0, len(featured))
	for i, p := range featured {
		recs = append(recs, Recommendation{
			Product: p,
			Score:   types.Round6(1 - 0.05*float64(i)),
			Reason:  "Trending now",
		})
	}
	return recs, nil
}

func toSet(ids []int64) map[int64]bool {
	out := make(map[int64]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func containsID(ids []int64, id int64) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
