package imagesearch

import (
	"context"
	"log/slog"

	"github.com/dakshin/partsquote/internal/core/domain"
	"github.com/dakshin/partsquote/internal/core/ports"
)

// CachedFinder answers from the image cache before searching. Cache failures never fail a lookup.
type CachedFinder struct {
	finder ports.ImageFinder
	cache  ports.ImageCache
}

func NewCachedFinder(finder ports.ImageFinder, cache ports.ImageCache) *CachedFinder {
	return &CachedFinder{finder: finder, cache: cache}
}

func (f *CachedFinder) FindImage(ctx context.Context, partNumber, description string) (domain.ImageLookupResult, error) {
	if f.cache != nil {
		cached, err := f.cache.Get(ctx, partNumber)
		if err != nil {
			slog.Warn("image_cache_get_failed", "part_number", partNumber, "error", err)
		} else if cached != nil {
			return *cached, nil
		}
	}

	result, err := f.finder.FindImage(ctx, partNumber, description)
	if err != nil {
		return domain.ImageLookupResult{}, err
	}
	if f.cache != nil && result.Found {
		if err := f.cache.Put(ctx, result); err != nil {
			slog.Warn("image_cache_put_failed", "part_number", partNumber, "error", err)
		}
	}
	return result, nil
}
