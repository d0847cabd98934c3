package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zatekoja/localeventfinder/internal/domain/entities"
	"github.com/zatekoja/localeventfinder/internal/domain/providers"
	"github.com/zatekoja/localeventfinder/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/localeventfinder/pkg/errors"
)

// DefaultCategoryTTL is how long provider taxonomies stay cached
const DefaultCategoryTTL = 24 * time.Hour

// CategoryService lists provider taxonomies through a cache
type CategoryService struct {
	registry *SourceRegistry
	cache    providers.CacheProvider
	ttl      time.Duration
}

// NewCategoryService creates a new category service. A nil cache disables caching.
func NewCategoryService(registry *SourceRegistry, cache providers.CacheProvider, ttl time.Duration) *CategoryService {
	if ttl <= 0 {
		ttl = DefaultCategoryTTL
	}
	return &CategoryService{
		registry: registry,
		cache:    cache,
		ttl:      ttl,
	}
}

// List returns the categories of every usable source, or of one source when
// sourceToken is set. In the all-sources case a failing source is skipped.
func (s *CategoryService) List(ctx context.Context, sourceToken string) ([]entities.Category, error) {
	logger := observability.LoggerFromContext(ctx)

	if sourceToken != "" {
		source, ok := entities.ParseSource(sourceToken)
		if !ok {
			return nil, apperrors.NewInvalidSourceError(sourceToken)
		}
		adapter, usable := s.registry.Lookup(source)
		if adapter == nil || !usable {
			return nil, apperrors.NewConfigurationError(fmt.Sprintf("event source %s is not configured", source))
		}
		lister, ok := adapter.(providers.CategoryLister)
		if !ok {
			return []entities.Category{}, nil
		}
		return s.sourceCategories(ctx, source, lister)
	}

	categories := []entities.Category{}
	for _, adapter := range s.registry.Usable() {
		lister, ok := adapter.(providers.CategoryLister)
		if !ok {
			continue
		}
		list, err := s.sourceCategories(ctx, adapter.Source(), lister)
		if err != nil {
			logger.Warn().Err(err).Str("source", string(adapter.Source())).Msg("failed to list categories")
			continue
		}
		categories = append(categories, list...)
	}
	return categories, nil
}

func (s *CategoryService) sourceCategories(ctx context.Context, source entities.Source, lister providers.CategoryLister) ([]entities.Category, error) {
	key := categoryCacheKey(source)

	if s.cache != nil {
		data, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			var cached []entities.Category
			if jsonErr := json.Unmarshal(data, &cached); jsonErr == nil {
				return cached, nil
			}
		case !errors.Is(err, providers.ErrCacheMiss):
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("category cache read failed")
		}
	}

	categories, err := lister.Categories(ctx)
	if err != nil {
		return nil, err
	}
	for i := range categories {
		categories[i].Source = source
	}

	if s.cache != nil {
		if data, err := json.Marshal(categories); err == nil {
			if err := s.cache.Set(ctx, key, data, int(s.ttl.Seconds())); err != nil {
				observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("category cache write failed")
			}
		}
	}
	return categories, nil
}

func categoryCacheKey(source entities.Source) string {
	return "categories:v1:" + string(source)
}
