package imagesearch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dakshin/partsquote/internal/core/domain"
)

type finderStub struct {
	result domain.ImageLookupResult
	err    error
	calls  int
}

func (f *finderStub) FindImage(_ context.Context, _, _ string) (domain.ImageLookupResult, error) {
	f.calls++
	return f.result, f.err
}

type cacheStub struct {
	items  map[string]domain.ImageLookupResult
	getErr error
	puts   int
}

func (c *cacheStub) Get(_ context.Context, partNumber string) (*domain.ImageLookupResult, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	item, ok := c.items[partNumber]
	if !ok {
		return nil, nil
	}
	item.Cached = true
	return &item, nil
}

func (c *cacheStub) Put(_ context.Context, result domain.ImageLookupResult) error {
	c.puts++
	c.items[result.PartNumber] = result
	return nil
}

func (c *cacheStub) Prune(context.Context, time.Duration) (int64, error) { return 0, nil }

func TestCachedFinderServesHits(t *testing.T) {
	finder := &finderStub{}
	cache := &cacheStub{items: map[string]domain.ImageLookupResult{
		"P1": {PartNumber: "P1", Found: true, ImageURL: "https://img.example/p1.jpg", Quality: domain.ImageQualityHigh},
	}}

	got, err := NewCachedFinder(finder, cache).FindImage(context.Background(), "P1", "")
	if err != nil {
		t.Fatalf("FindImage() error = %v", err)
	}
	if !got.Cached || finder.calls != 0 {
		t.Fatalf("expected cache hit without search, got %+v calls=%d", got, finder.calls)
	}
}

func TestCachedFinderStoresOnlyFoundImages(t *testing.T) {
	cache := &cacheStub{items: map[string]domain.ImageLookupResult{}}

	found := &finderStub{result: domain.ImageLookupResult{PartNumber: "P1", Found: true, ImageURL: "https://img.example/p1.jpg"}}
	if _, err := NewCachedFinder(found, cache).FindImage(context.Background(), "P1", ""); err != nil {
		t.Fatalf("FindImage() error = %v", err)
	}
	missing := &finderStub{result: domain.NotFoundImage("P2", "google_images")}
	if _, err := NewCachedFinder(missing, cache).FindImage(context.Background(), "P2", ""); err != nil {
		t.Fatalf("FindImage() error = %v", err)
	}
	if cache.puts != 1 {
		t.Fatalf("expected one cache write, got %d", cache.puts)
	}
}

func TestCachedFinderIgnoresCacheErrors(t *testing.T) {
	finder := &finderStub{result: domain.ImageLookupResult{PartNumber: "P1", Found: true, ImageURL: "https://img.example/p1.jpg"}}
	cache := &cacheStub{items: map[string]domain.ImageLookupResult{}, getErr: errors.New("db down")}

	got, err := NewCachedFinder(finder, cache).FindImage(context.Background(), "P1", "")
	if err != nil || !got.Found {
		t.Fatalf("FindImage() = %+v, %v", got, err)
	}
}

func TestCachedFinderPropagatesSearchErrors(t *testing.T) {
	finder := &finderStub{err: errors.New("browser crashed")}
	if _, err := NewCachedFinder(finder, nil).FindImage(context.Background(), "P1", ""); err == nil {
		t.Fatalf("expected error")
	}
}
