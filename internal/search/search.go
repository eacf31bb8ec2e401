// Package search implements the Search Orchestrator: the only
// component that sequences calls across the Embedding Provider, Vector
// Index, Repository, and Ranker for one query.
package search

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/kestrel-retail/discovery-engine/internal/apperr"
	"github.com/kestrel-retail/discovery-engine/internal/embedding"
	"github.com/kestrel-retail/discovery-engine/internal/logger"
	"github.com/kestrel-retail/discovery-engine/internal/ranker"
	"github.com/kestrel-retail/discovery-engine/internal/repos"
	"github.com/kestrel-retail/discovery-engine/internal/session"
	"github.com/kestrel-retail/discovery-engine/internal/types"
	"github.com/kestrel-retail/discovery-engine/internal/vectorindex"
	"github.com/kestrel-retail/discovery-engine/internal/weights"
)

var tracer = otel.Tracer("github.com/kestrel-retail/discovery-engine/internal/search")

type Filters struct {
	Category    string
	MinPrice    *float64
	MaxPrice    *float64
	InStockOnly bool
	MinScore    *float64
}

type Request struct {
	SessionID string
	Query     string
	Filters   Filters
	Limit     int
}

type ResultItem struct {
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

type Response struct {
	Results        []ResultItem
	SessionID      string
	SearchLogID    uuid.UUID
	ResponseTimeMs int64
	Degraded       bool
	Fallback       string
}

const (
	defaultCandidateLimit = 5000
	keywordFallbackScore  = 0.5
	defaultScoreThreshold = 0.1
)

type Service struct {
	log          *logger.Logger
	sessions     *session.Service
	products     repos.ProductRepo
	embeddings   repos.EmbeddingRepo
	searchLogs   repos.SearchLogRepo
	weights      *weights.Service
	embedder     embedding.Provider
	index        vectorindex.Index
	candidateCap int
	softDeadline time.Duration
	hardDeadline time.Duration
}

type Config struct {
	CandidateLimit int
	SoftDeadline   time.Duration
	HardDeadline   time.Duration
}

func NewService(log *logger.Logger, sessions *session.Service, products repos.ProductRepo, embeddings repos.EmbeddingRepo, searchLogs repos.SearchLogRepo, w *weights.Service, embedder embedding.Provider, index vectorindex.Index, cfg Config) *Service {
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = defaultCandidateLimit
	}
	if cfg.SoftDeadline <= 0 {
		cfg.SoftDeadline = 500 * time.Millisecond
	}
	if cfg.HardDeadline <= 0 {
		cfg.HardDeadline = 1500 * time.Millisecond
	}
	return &Service{
		log:          log.With("component", "SearchOrchestrator"),
		sessions:     sessions,
		products:     products,
		embeddings:   embeddings,
		searchLogs:   searchLogs,
		weights:      w,
		embedder:     embedder,
		index:        index,
		candidateCap: cfg.CandidateLimit,
		softDeadline: cfg.SoftDeadline,
		hardDeadline: cfg.HardDeadline,
	}
}

// Search runs the full query -> embed -> score -> filter -> log -> explain sequence.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, apperr.InvalidInput("query must not be empty", nil)
	}
	limit := req.Limit
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	ctx, cancel := context.WithTimeout(ctx, s.hardDeadline)
	defer cancel()

	sessionID, err := s.sessions.Resolve(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	vq, degraded, err := s.embed(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperr.Cancelled("search cancelled", err)
		}
		return nil, err
	}

	candidates, err := s.fetchCandidates(ctx)
	if err != nil {
		return nil, err
	}

	activeWeights, err := s.weights.Active(ctx)
	if err != nil {
		return nil, err
	}

	filtered := applyFilters(candidates, req.Filters)
	threshold := defaultScoreThreshold
	if req.Filters.MinScore != nil {
		threshold = *req.Filters.MinScore
	}
	ranked := ranker.Rank(query, vq, filtered, *activeWeights, threshold, limit, time.Now())

	resp := &Response{SessionID: sessionID, Degraded: degraded}

	if len(ranked) == 0 {
		if hasNonTrivialToken(query) {
			return s.keywordFallback(ctx, query, req.Filters, limit, sessionID, start, degraded)
		}
		resp.ResponseTimeMs = time.Since(start).Milliseconds()
		return resp, nil
	}

	resp.Results = toResultItems(ranked)
	duration := time.Since(start)
	resp.ResponseTimeMs = duration.Milliseconds()

	logID, err := s.persist(ctx, sessionID, query, vq, ranked, duration, degraded, "")
	if err != nil {
		return nil, err
	}
	resp.SearchLogID = logID
	return resp, nil
}

func (s *Service) embed(ctx context.Context, query string) ([]float64, bool, error) {
	_, span := tracer.Start(ctx, "embed_query", trace.WithAttributes())
	defer span.End()

	softCtx, cancel := context.WithTimeout(ctx, s.softDeadline)
	defer cancel()

	vq, err := s.embedder.Embed(softCtx, query)
	if err != nil || softCtx.Err() != nil {
		if ctx.Err() != nil {
			return nil, false, apperr.Cancelled("search cancelled", ctx.Err())
		}
		vq, fbErr := embedding.NewDeterministicProvider(embedding.Dimensions).Embed(ctx, query)
		if fbErr != nil {
			return nil, false, apperr.Internal("deterministic fallback failed", fbErr)
		}
		return vq, true, nil
	}
	return vq, false, nil
}

func (s *Service) fetchCandidates(ctx context.Context) ([]ranker.Candidate, error) {
	_, span := tracer.Start(ctx, "fetch_candidates")
	defer span.End()

	products, err := s.products.RecentCandidates(ctx, nil, s.candidateCap)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	embeds, err := s.embeddings.GetByProductIDs(ctx, nil, ids)
	if err != nil {
		return nil, err
	}
	deterministic := embedding.NewDeterministicProvider(embedding.Dimensions)
	out := make([]ranker.Candidate, 0, len(products))
	for _, p := range products {
		vec := embeds[p.ID]
		if vec == nil {
			// No stored embedding yet (e.g. upload job still running): fall
			// back to the deterministic vector so the product stays searchable.
			fv, fbErr := deterministic.Embed(ctx, p.DescriptiveText())
			if fbErr != nil {
				return nil, apperr.Internal("deterministic candidate fallback failed", fbErr)
			}
			out = append(out, ranker.Candidate{Product: p, Embedding: fv})
			continue
		}
		out = append(out, ranker.Candidate{Product: p, Embedding: vec.Vector})
	}
	return out, nil
}

func applyFilters(candidates []ranker.Candidate, f Filters) []ranker.Candidate {
	out := make([]ranker.Candidate, 0, len(candidates))
	for _, c := range candidates {
		p := c.Product
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.MinPrice != nil && p.Price < *f.MinPrice {
			continue
		}
		if f.MaxPrice != nil && p.Price > *f.MaxPrice {
			continue
		}
		if f.InStockOnly && p.Availability != types.AvailabilityInStock {
			continue
		}
		out = append(out, c)
	}
	return out
}

func hasNonTrivialToken(query string) bool {
	for _, t := range ranker.Tokenize(query) {
		if len(t) > 2 {
			return true
		}
	}
	return false
}

func (s *Service) keywordFallback(ctx context.Context, query string, f Filters, limit int, sessionID string, start time.Time, degraded bool) (*Response, error) {
	candidates, err := s.products.RecentCandidates(ctx, nil, s.candidateCap)
	if err != nil {
		return nil, err
	}
	lowerQuery := strings.ToLower(query)

	var results []ranker.Result
	for _, p := range candidates {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.InStockOnly && p.Availability != types.AvailabilityInStock {
			continue
		}
		if f.MinPrice != nil && p.Price < *f.MinPrice {
			continue
		}
		if f.MaxPrice != nil && p.Price > *f.MaxPrice {
			continue
		}
		haystack := strings.ToLower(p.Title + " " + p.Description + " " + p.Category)
		if !strings.Contains(haystack, lowerQuery) {
			continue
		}
		results = append(results, ranker.Result{
			Product:       p,
			FinalScore:    keywordFallbackScore,
			SemanticScore: keywordFallbackScore,
			RatingScore:   normalizeRating(p.Rating),
			PriceScore:    0.5,
			StockScore:    stockFallback(p.Availability),
			RecencyScore:  0.5,
			Explanation:   "Matched by keyword",
		})
		if len(results) >= limit {
			break
		}
	}
	for i := range results {
		results[i].Rank = i + 1
	}

	duration := time.Since(start)
	resp := &Response{
		SessionID:      sessionID,
		Results:        toResultItems(results),
		ResponseTimeMs: duration.Milliseconds(),
		Degraded:       degraded,
		Fallback:       "keyword",
	}
	logID, err := s.persist(ctx, sessionID, query, nil, results, duration, degraded, "keyword")
	if err != nil {
		return nil, err
	}
	resp.SearchLogID = logID
	return resp, nil
}

func normalizeRating(rating *float64) float64 {
	if rating == nil {
		return 0.5
	}
	return *rating / 5
}

func stockFallback(availability types.Availability) float64 {
	switch availability {
	case types.AvailabilityInStock:
		return 1
	case types.AvailabilityLowStock:
		return 0.5
	default:
		return 0
	}
}

func (s *Service) persist(ctx context.Context, sessionID, query string, vq []float64, ranked []ranker.Result, duration time.Duration, degraded bool, fallback string) (uuid.UUID, error) {
	_, span := tracer.Start(ctx, "persist_search_log")
	defer span.End()

	sl := &types.SearchLog{
		ID:             uuid.New(),
		SessionID:      sessionID,
		Query:          query,
		QueryEmbedding: vq,
		ResultCount:    len(ranked),
		ResponseTimeMs: duration.Milliseconds(),
		Fallback:       fallback,
		Degraded:       degraded,
	}
	explanations := make([]*types.SearchResultExplanation, 0, len(ranked))
	for _, r := range ranked {
		explanations = append(explanations, &types.SearchResultExplanation{
			ID:            uuid.New(),
			ProductID:     r.Product.ID,
			Rank:          r.Rank,
			FinalScore:    r.FinalScore,
			SemanticScore: r.SemanticScore,
			RatingScore:   r.RatingScore,
			PriceScore:    r.PriceScore,
			StockScore:    r.StockScore,
			RecencyScore:  r.RecencyScore,
			MatchedTerms:  r.MatchedTerms,
			Explanation:   r.Explanation,
		})
	}
	if err := s.searchLogs.CreateWithExplanations(ctx, nil, sl, explanations); err != nil {
		return uuid.Nil, err
	}
	return sl.ID, nil
}

func toResultItems(ranked []ranker.Result) []ResultItem {
	out := make([]ResultItem, len(ranked))
	for i, r := range ranked {
		out[i] = ResultItem{
			Product:       r.Product,
			Rank:          r.Rank,
			FinalScore:    r.FinalScore,
			SemanticScore: r.SemanticScore,
			RatingScore:   r.RatingScore,
			PriceScore:    r.PriceScore,
			StockScore:    r.StockScore,
			RecencyScore:  r.RecencyScore,
			MatchedTerms:  r.MatchedTerms,
			Explanation:   r.Explanation,
		}
	}
	return out
}
