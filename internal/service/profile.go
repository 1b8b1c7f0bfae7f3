package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/selams/selams-web/internal/cache"
	"github.com/selams/selams-web/internal/models"
)

// ProfileFetcher is the part of the backend client profiles need.
type ProfileFetcher interface {
	GetProfile(ctx context.Context, accessToken, id string) (*models.Profile, error)
}

type ProfileService struct {
	backend ProfileFetcher
	cache   cache.Profiles
	log     *zap.Logger
}

func NewProfileService(b ProfileFetcher, c cache.Profiles, log *zap.Logger) *ProfileService {
	return &ProfileService{backend: b, cache: c, log: log}
}

// Get returns the profile of id, consulting the cache first. Cache failures
// are logged and otherwise ignored.
func (s *ProfileService) Get(ctx context.Context, accessToken, id string) (*models.Profile, error) {
	if s.cache != nil {
		p, ok, err := s.cache.Get(ctx, id)
		if err != nil {
			s.log.Warn("profile cache read failed", zap.String("user_id", id), zap.Error(err))
		}
		if ok {
			return p, nil
		}
	}
	p, err := s.backend.GetProfile(ctx, accessToken, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, p); err != nil {
			s.log.Warn("profile cache write failed", zap.String("user_id", id), zap.Error(err))
		}
	}
	return p, nil
}

// Forget drops id from the cache, e.g. on sign-out.
func (s *ProfileService) Forget(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, id); err != nil {
		s.log.Warn("profile cache delete failed", zap.String("user_id", id), zap.Error(err))
	}
}
