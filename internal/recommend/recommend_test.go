package recommend

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kestrel-retail/discovery-engine/internal/types"
	"github.com/kestrel-retail/discovery-engine/internal/vectorindex"
)

type fakeProductRepo struct {
	featured []*types.Product
	byID     map[int64]*types.Product
	recent   []*types.Product
}

func (f *fakeProductRepo) Upsert(ctx context.Context, tx *gorm.DB, p *types.Product) error { return nil }
func (f *fakeProductRepo) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.Product, error) {
	return f.byID[id], nil
}
func (f *fakeProductRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []int64) ([]*types.Product, error) {
	var out []*types.Product
	for _, id := range ids {
		if p, ok := f.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}
func (f *fakeProductRepo) RecentCandidates(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Product, error) {
	return f.recent, nil
}
func (f *fakeProductRepo) Featured(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Product, error) {
	if len(f.featured) > limit {
		return f.featured[:limit], nil
	}
	return f.featured, nil
}
func (f *fakeProductRepo) SameCategory(ctx context.Context, tx *gorm.DB, category string, excludeID int64, limit int) ([]*types.Product, error) {
	return nil, nil
}
func (f *fakeProductRepo) Delete(ctx context.Context, tx *gorm.DB, id int64) error { return nil }

type fakeEmbeddingRepo struct {
	byProductID map[int64]*types.Embedding
}

func (f *fakeEmbeddingRepo) Upsert(ctx context.Context, tx *gorm.DB, e *types.Embedding) error { return nil }
func (f *fakeEmbeddingRepo) GetByProductID(ctx context.Context, tx *gorm.DB, productID int64) (*types.Embedding, error) {
	return nil, nil
}
func (f *fakeEmbeddingRepo) GetByProductIDs(ctx context.Context, tx *gorm.DB, productIDs []int64) (map[int64]*types.Embedding, error) {
	out := make(map[int64]*types.Embedding)
	for _, id := range productIDs {
		if e, ok := f.byProductID[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}
func (f *fakeEmbeddingRepo) Delete(ctx context.Context, tx *gorm.DB, productID int64) error { return nil }

type fakeInteractionRepo struct {
	history []*types.Interaction
}

func (f *fakeInteractionRepo) Append(ctx context.Context, tx *gorm.DB, in *types.Interaction) error { return nil }
func (f *fakeInteractionRepo) RecentBySession(ctx context.Context, tx *gorm.DB, sessionID string, limit int) ([]*types.Interaction, error) {
	return f.history, nil
}
func (f *fakeInteractionRepo) RecentlyViewedProductIDs(ctx context.Context, tx *gorm.DB, sessionID string, limit int) ([]int64, error) {
	return nil, nil
}

type fakeSessionRepo struct {
	session *types.Session
}

func (f *fakeSessionRepo) Ensure(ctx context.Context, tx *gorm.DB, sessionID string, now time.Time) error {
	return nil
}
func (f *fakeSessionRepo) Touch(ctx context.Context, tx *gorm.DB, sessionID string, now time.Time) error {
	return nil
}
func (f *fakeSessionRepo) GetByID(ctx context.Context, tx *gorm.DB, sessionID string) (*types.Session, error) {
	return f.session, nil
}

func activeSession() *fakeSessionRepo {
	now := time.Now()
	return &fakeSessionRepo{session: &types.Session{ID: "sess-1", CreatedAt: now, LastActiveAt: now, ExpiresAt: now.Add(types.DefaultSessionTTL)}}
}

func TestForSessionColdStart(t *testing.T) {
	p1 := &types.Product{ID: 1, Title: "A"}
	p2 := &types.Product{ID: 2, Title: "B"}
	products := &fakeProductRepo{featured: []*types.Product{p1, p2}}
	svc := NewService(products, &fakeEmbeddingRepo{}, &fakeInteractionRepo{}, activeSession(), vectorindex.NewMemoryIndex())

	recs, err := svc.ForSession(context.Background(), "sess-1", 4, nil)
	if err != nil {
		t.Fatalf("forSession: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 cold-start recs, got %d", len(recs))
	}
	for _, r := range recs {
		if r.Reason != "Popular product" {
			t.Fatalf("expected cold-start reason, got %q", r.Reason)
		}
		if r.Score != 1 {
			t.Fatalf("expected cold-start score 1, got %v", r.Score)
		}
	}
}

func TestForSessionExpiredSessionFallsBackToColdStart(t *testing.T) {
	p1 := &types.Product{ID: 1, Title: "A"}
	products := &fakeProductRepo{featured: []*types.Product{p1}}
	interactions := &fakeInteractionRepo{history: []*types.Interaction{
		{ID: uuid.New(), SessionID: "sess-1", ProductID: p1.ID, Kind: types.InteractionView},
	}}
	past := time.Now().Add(-time.Hour)
	expired := &fakeSessionRepo{session: &types.Session{ID: "sess-1", CreatedAt: past, LastActiveAt: past, ExpiresAt: past}}
	svc := NewService(products, &fakeEmbeddingRepo{}, interactions, expired, vectorindex.NewMemoryIndex())

	recs, err := svc.ForSession(context.Background(), "sess-1", 4, nil)
	if err != nil {
		t.Fatalf("forSession: %v", err)
	}
	if len(recs) != 1 || recs[0].Reason != "Popular product" {
		t.Fatalf("expected expired session to fall back to cold start, got %+v", recs)
	}
}

func TestTrendingPositionalDecay(t *testing.T) {
	p1 := &types.Product{ID: 1}
	p2 := &types.Product{ID: 2}
	products := &fakeProductRepo{featured: []*types.Product{p1, p2}}
	svc := NewService(products, &fakeEmbeddingRepo{}, &fakeInteractionRepo{}, activeSession(), vectorindex.NewMemoryIndex())

	recs, err := svc.Trending(context.Background(), 2)
	if err != nil {
		t.Fatalf("trending: %v", err)
	}
	if recs[0].Score != 1 || recs[1].Score != 0.95 {
		t.Fatalf("expected positional decay 1, 0.95; got %v, %v", recs[0].Score, recs[1].Score)
	}
}

// TestForSessionPicksReasonByWeightedAffinityNotRawCosine reproduces the
// worked cart-vs-view example: a view carries the higher raw cosine to the
// candidate (0.9 vs 0.6) but a lower weighted contribution once kind and
// recency are folded in (1.8 vs 3.6), so the reason must follow the cart
// interaction, not the view.
func TestForSessionPicksReasonByWeightedAffinityNotRawCosine(t *testing.T) {
	viewed := &types.Product{ID: 1, Title: "Viewed"}
	carted := &types.Product{ID: 2, Title: "Carted"}
	candidate := &types.Product{ID: 3, Title: "Candidate"}

	products := &fakeProductRepo{
		recent: []*types.Product{candidate},
		byID:   map[int64]*types.Product{1: viewed, 2: carted, 3: candidate},
	}
	interactions := &fakeInteractionRepo{history: []*types.Interaction{
		{ID: uuid.New(), SessionID: "sess-1", ProductID: viewed.ID, Kind: types.InteractionView},
		{ID: uuid.New(), SessionID: "sess-1", ProductID: carted.ID, Kind: types.InteractionAddToCart},
	}}
	embeddings := &fakeEmbeddingRepo{byProductID: map[int64]*types.Embedding{
		viewed.ID: {ProductID: viewed.ID, Vector: []float64{0.9, 0.43588989}},
		carted.ID: {ProductID: carted.ID, Vector: []float64{0.6, 0.8}},
	}}

	index := vectorindex.NewMemoryIndex()
	if err := index.Upsert(context.Background(), "3", []float64{1, 0}, vectorindex.Metadata{}); err != nil {
		t.Fatalf("upsert candidate embedding: %v", err)
	}

	svc := NewService(products, embeddings, interactions, activeSession(), index)

	recs, err := svc.ForSession(context.Background(), "sess-1", 4, nil)
	if err != nil {
		t.Fatalf("forSession: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d: %+v", len(recs), recs)
	}
	if recs[0].Product.ID != candidate.ID {
		t.Fatalf("expected candidate product, got %+v", recs[0].Product)
	}
	if recs[0].Reason != "Similar to items in your cart" {
		t.Fatalf("expected weighted cart interaction to win, got reason %q", recs[0].Reason)
	}
}
