// Package weights wraps the RankingWeightsRepo with a short-TTL cache, so
// the search orchestrator can read the active weights on every request
// without hitting the database each time.
package weights

import (
	"context"

	"github.com/kestrel-retail/discovery-engine/internal/cache"
	"github.com/kestrel-retail/discovery-engine/internal/repos"
	"github.com/kestrel-retail/discovery-engine/internal/types"
)

type Service struct {
	repo  repos.RankingWeightsRepo
	cache *cache.WeightsCache // optional; nil disables caching
}

func NewService(repo repos.RankingWeightsRepo, weightsCache *cache.WeightsCache) *Service {
	return &Service{repo: repo, cache: weightsCache}
}

func (s *Service) Active(ctx context.Context) (*types.RankingWeights, error) {
	if s.cache != nil {
		if w, ok := s.cache.Get(ctx); ok {
			return w, nil
		}
	}
	w, err := s.repo.ActiveOrDefault(ctx, nil, types.DefaultWeights())
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, w)
	}
	return w, nil
}

func (s *Service) Update(ctx context.Context, w *types.RankingWeights) (*types.RankingWeights, error) {
	updated, err := s.repo.Update(ctx, nil, w)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
	return updated, nil
}
