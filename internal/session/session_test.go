package session

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/kestrel-retail/discovery-engine/internal/apperr"
	"github.com/kestrel-retail/discovery-engine/internal/types"
)

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

type fakeInteractionRepo struct {
	appended []*types.Interaction
}

func (f *fakeInteractionRepo) Append(ctx context.Context, tx *gorm.DB, in *types.Interaction) error {
	f.appended = append(f.appended, in)
	return nil
}
func (f *fakeInteractionRepo) RecentBySession(ctx context.Context, tx *gorm.DB, sessionID string, limit int) ([]*types.Interaction, error) {
	return nil, nil
}
func (f *fakeInteractionRepo) RecentlyViewedProductIDs(ctx context.Context, tx *gorm.DB, sessionID string, limit int) ([]int64, error) {
	return nil, nil
}

type fakeProductRepo struct {
	byID map[int64]*types.Product
}

func (f *fakeProductRepo) Upsert(ctx context.Context, tx *gorm.DB, p *types.Product) error { return nil }
func (f *fakeProductRepo) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.Product, error) {
	return f.byID[id], nil
}
func (f *fakeProductRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []int64) ([]*types.Product, error) {
	return nil, nil
}
func (f *fakeProductRepo) RecentCandidates(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Product, error) {
	return nil, nil
}
func (f *fakeProductRepo) Featured(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Product, error) {
	return nil, nil
}
func (f *fakeProductRepo) SameCategory(ctx context.Context, tx *gorm.DB, category string, excludeID int64, limit int) ([]*types.Product, error) {
	return nil, nil
}
func (f *fakeProductRepo) Delete(ctx context.Context, tx *gorm.DB, id int64) error { return nil }

func TestRecordRejectsUnknownProduct(t *testing.T) {
	interactions := &fakeInteractionRepo{}
	svc := NewService(&fakeSessionRepo{}, interactions, &fakeProductRepo{byID: map[int64]*types.Product{}})

	err := svc.Record(context.Background(), RecordInput{SessionID: "sess-1", ProductID: 99, Kind: types.InteractionView})
	if err == nil {
		t.Fatal("expected error for unknown product id")
	}
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if len(interactions.appended) != 0 {
		t.Fatal("expected no interaction to be appended for unknown product")
	}
}

func TestRecordAppendsInteractionForKnownProduct(t *testing.T) {
	interactions := &fakeInteractionRepo{}
	product := &types.Product{ID: 1, Title: "Widget"}
	svc := NewService(&fakeSessionRepo{}, interactions, &fakeProductRepo{byID: map[int64]*types.Product{1: product}})

	if err := svc.Record(context.Background(), RecordInput{SessionID: "sess-1", ProductID: 1, Kind: types.InteractionView}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(interactions.appended) != 1 || interactions.appended[0].ProductID != 1 {
		t.Fatalf("expected interaction appended for known product, got %+v", interactions.appended)
	}
}
