package search

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kestrel-retail/discovery-engine/internal/embedding"
	"github.com/kestrel-retail/discovery-engine/internal/logger"
	"github.com/kestrel-retail/discovery-engine/internal/repos"
	"github.com/kestrel-retail/discovery-engine/internal/session"
	"github.com/kestrel-retail/discovery-engine/internal/types"
	"github.com/kestrel-retail/discovery-engine/internal/vectorindex"
	"github.com/kestrel-retail/discovery-engine/internal/weights"
)

type fakeProductRepo struct {
	products []*types.Product
}

func (f *fakeProductRepo) Upsert(ctx context.Context, tx *gorm.DB, p *types.Product) error { return nil }
func (f *fakeProductRepo) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.Product, error) {
	return nil, nil
}
func (f *fakeProductRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []int64) ([]*types.Product, error) {
	return nil, nil
}
func (f *fakeProductRepo) RecentCandidates(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Product, error) {
	return f.products, nil
}
func (f *fakeProductRepo) Featured(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Product, error) {
	return nil, nil
}
func (f *fakeProductRepo) SameCategory(ctx context.Context, tx *gorm.DB, category string, excludeID int64, limit int) ([]*types.Product, error) {
	return nil, nil
}
func (f *fakeProductRepo) Delete(ctx context.Context, tx *gorm.DB, id int64) error { return nil }

type fakeEmbeddingRepo struct {
	byProduct map[int64]*types.Embedding
}

func (f *fakeEmbeddingRepo) Upsert(ctx context.Context, tx *gorm.DB, e *types.Embedding) error { return nil }
func (f *fakeEmbeddingRepo) GetByProductID(ctx context.Context, tx *gorm.DB, productID int64) (*types.Embedding, error) {
	return f.byProduct[productID], nil
}
func (f *fakeEmbeddingRepo) GetByProductIDs(ctx context.Context, tx *gorm.DB, productIDs []int64) (map[int64]*types.Embedding, error) {
	out := make(map[int64]*types.Embedding)
	for _, id := range productIDs {
		if e, ok := f.byProduct[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}
func (f *fakeEmbeddingRepo) Delete(ctx context.Context, tx *gorm.DB, productID int64) error { return nil }

type fakeSessionRepo struct{}

func (f *fakeSessionRepo) Ensure(ctx context.Context, tx *gorm.DB, sessionID string, now time.Time) error {
	return nil
}
func (f *fakeSessionRepo) Touch(ctx context.Context, tx *gorm.DB, sessionID string, now time.Time) error {
	return nil
}
func (f *fakeSessionRepo) GetByID(ctx context.Context, tx *gorm.DB, sessionID string) (*types.Session, error) {
	return nil, nil
}

type fakeInteractionRepo struct{}

func (f *fakeInteractionRepo) Append(ctx context.Context, tx *gorm.DB, in *types.Interaction) error {
	return nil
}
func (f *fakeInteractionRepo) RecentBySession(ctx context.Context, tx *gorm.DB, sessionID string, limit int) ([]*types.Interaction, error) {
	return nil, nil
}
func (f *fakeInteractionRepo) RecentlyViewedProductIDs(ctx context.Context, tx *gorm.DB, sessionID string, limit int) ([]int64, error) {
	return nil, nil
}

type fakeSearchLogRepo struct {
	created []*types.SearchLog
}

func (f *fakeSearchLogRepo) CreateWithExplanations(ctx context.Context, tx *gorm.DB, sl *types.SearchLog, explanations []*types.SearchResultExplanation) error {
	f.created = append(f.created, sl)
	return nil
}
func (f *fakeSearchLogRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.SearchLog, error) {
	return nil, nil
}
func (f *fakeSearchLogRepo) List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.SearchLog, error) {
	return nil, nil
}
func (f *fakeSearchLogRepo) ExplanationsByLogID(ctx context.Context, tx *gorm.DB, logID uuid.UUID) ([]*types.SearchResultExplanation, error) {
	return nil, nil
}
func (f *fakeSearchLogRepo) MarkClicked(ctx context.Context, tx *gorm.DB, logID uuid.UUID, productID int64) error {
	return nil
}

type fakeWeightsRepo struct{}

func (f *fakeWeightsRepo) ActiveOrDefault(ctx context.Context, tx *gorm.DB, defaults types.RankingWeights) (*types.RankingWeights, error) {
	return &defaults, nil
}
func (f *fakeWeightsRepo) Update(ctx context.Context, tx *gorm.DB, w *types.RankingWeights) (*types.RankingWeights, error) {
	return w, nil
}

func newTestService(products []*types.Product, embeds map[int64]*types.Embedding) *Service {
	log, err := logger.New("test")
	if err != nil {
		panic(err)
	}
	sessions := session.NewService(&fakeSessionRepo{}, &fakeInteractionRepo{}, &fakeProductRepo{products: products})
	w := weights.NewService(&fakeWeightsRepo{}, nil)
	index := vectorindex.NewMemoryIndex()
	embedder := embedding.NewDeterministicProvider(embedding.Dimensions)
	return NewService(log, sessions, &fakeProductRepo{products: products}, &fakeEmbeddingRepo{byProduct: embeds}, &fakeSearchLogRepo{}, w, embedder, index, Config{})
}

func TestSearchKeywordFallbackWhenNoSemanticResults(t *testing.T) {
	p := &types.Product{ID: 1, Title: "Completely Unrelated Gadget", Description: "", Category: "misc", Availability: types.AvailabilityInStock}
	svc := newTestService([]*types.Product{p}, map[int64]*types.Embedding{})

	// An unreachable MinScore forces the ranker to drop every candidate
	// (the product has no stored embedding, so it's scored via the
	// deterministic fallback vector rather than being skipped, but a
	// final score this high is unattainable either way).
	minScore := 2.0
	resp, err := svc.Search(context.Background(), Request{Query: "unrelated gadget", Limit: 10, Filters: Filters{MinScore: &minScore}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if resp.Fallback != "keyword" {
		t.Fatalf("expected keyword fallback, got %q", resp.Fallback)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 keyword match, got %d", len(resp.Results))
	}
}

func TestSearchCandidateMissingEmbeddingUsesDeterministicFallback(t *testing.T) {
	p := &types.Product{ID: 1, Title: "Canon Camera Kit", Description: "DSLR bundle", Category: "electronics", Availability: types.AvailabilityInStock}
	svc := newTestService([]*types.Product{p}, map[int64]*types.Embedding{})

	resp, err := svc.Search(context.Background(), Request{Query: "canon camera kit", Limit: 10})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if resp.Fallback != "" {
		t.Fatalf("expected a product with no stored embedding to still be scored via the deterministic fallback, got fallback %q", resp.Fallback)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
}

func TestSearchEmptyQueryIsInvalidInput(t *testing.T) {
	svc := newTestService(nil, nil)
	_, err := svc.Search(context.Background(), Request{Query: "   "})
	if err == nil {
		t.Fatalf("expected error for empty query")
	}
}

var _ repos.ProductRepo = &fakeProductRepo{}
var _ repos.EmbeddingRepo = &fakeEmbeddingRepo{}
var _ repos.SessionRepo = &fakeSessionRepo{}
var _ repos.InteractionRepo = &fakeInteractionRepo{}
var _ repos.SearchLogRepo = &fakeSearchLogRepo{}
var _ repos.RankingWeightsRepo = &fakeWeightsRepo{}
