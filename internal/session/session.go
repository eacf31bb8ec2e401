// Package session implements the Session Tracker: append-only
// interaction ingest and recent-history queries over an opaque,
// externally-issued session identifier.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/kestrel-retail/discovery-engine/internal/apperr"
	"github.com/kestrel-retail/discovery-engine/internal/repos"
	"github.com/kestrel-retail/discovery-engine/internal/types"
)

type Service struct {
	sessions     repos.SessionRepo
	interactions repos.InteractionRepo
	products     repos.ProductRepo
	now          func() time.Time
}

func NewService(sessions repos.SessionRepo, interactions repos.InteractionRepo, products repos.ProductRepo) *Service {
	return &Service{sessions: sessions, interactions: interactions, products: products, now: time.Now}
}

// NewSessionID mints a 32-byte opaque token, hex-encoded. There is no
// authentication here by design; the token just scopes one
// browsing history.
func NewSessionID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", apperr.Internal("generate session id", err)
	}
	return hex.EncodeToString(buf), nil
}

// Resolve ensures a session row exists (creating it on first sight with the
// default expiry) and refreshes its last-active-at timestamp.
func (s *Service) Resolve(ctx context.Context, sessionID string) (string, error) {
	now := s.now()
	if sessionID == "" {
		id, err := NewSessionID()
		if err != nil {
			return "", err
		}
		sessionID = id
	}
	if err := s.sessions.Ensure(ctx, nil, sessionID, now); err != nil {
		return "", err
	}
	if err := s.sessions.Touch(ctx, nil, sessionID, now); err != nil {
		return "", err
	}
	return sessionID, nil
}

type RecordInput struct {
	SessionID string
	ProductID int64
	Kind      types.InteractionKind
	Query     *string
	Position  *int
}

// Record ingests one interaction, stamping creation time server-side. Every
// interaction must reference an existing product.
func (s *Service) Record(ctx context.Context, in RecordInput) error {
	if !in.Kind.Valid() {
		return apperr.InvalidInput("unknown interaction kind", nil)
	}
	product, err := s.products.GetByID(ctx, nil, in.ProductID)
	if err != nil {
		return err
	}
	if product == nil {
		return apperr.NotFound("product not found", nil)
	}
	now := s.now()
	if err := s.sessions.Ensure(ctx, nil, in.SessionID, now); err != nil {
		return err
	}
	if err := s.sessions.Touch(ctx, nil, in.SessionID, now); err != nil {
		return err
	}
	return s.interactions.Append(ctx, nil, &types.Interaction{
		SessionID: in.SessionID,
		ProductID: in.ProductID,
		Kind:      in.Kind,
		Query:     in.Query,
		Position:  in.Position,
		CreatedAt: now,
	})
}

func (s *Service) RecentInteractions(ctx context.Context, sessionID string, limit int) ([]*types.Interaction, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.interactions.RecentBySession(ctx, nil, sessionID, limit)
}

func (s *Service) RecentlyViewed(ctx context.Context, sessionID string, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.interactions.RecentlyViewedProductIDs(ctx, nil, sessionID, limit)
}
