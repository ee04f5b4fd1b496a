package googleimages

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/time/rate"

	"github.com/dakshin/partsquote/internal/core/domain"
	"github.com/dakshin/partsquote/internal/infrastructure/imagesearch"
	"github.com/dakshin/partsquote/internal/infrastructure/resilience"
)

const (
	Source         = "google_images"
	searchEndpoint = "https://www.google.com/search"
	maxCandidates  = 20
)

// collectScript returns visible result images with their hosting page.
const collectScript = `() => {
	const out = [];
	for (const img of document.querySelectorAll('img')) {
		const link = img.closest('a');
		out.push({
			image_url: img.currentSrc || img.src || '',
			page_url: link ? link.href : '',
			width: img.naturalWidth || img.width || 0,
			height: img.naturalHeight || img.height || 0,
		});
	}
	return JSON.stringify(out);
}`

type Options struct {
	Timeout     time.Duration
	RPS         float64
	Policy      imagesearch.RankingPolicy
	Resilience  *resilience.Executor
	SearchURL   string
	WaitForLoad time.Duration
}

type Finder struct {
	browser   *Browser
	limiter   *rate.Limiter
	timeout   time.Duration
	policy    imagesearch.RankingPolicy
	executor  *resilience.Executor
	searchURL string
	settle    time.Duration
}

func NewFinder(browser *Browser, options Options) *Finder {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rps := options.RPS
	if rps <= 0 {
		rps = 1
	}
	searchURL := options.SearchURL
	if searchURL == "" {
		searchURL = searchEndpoint
	}
	settle := options.WaitForLoad
	if settle <= 0 {
		settle = 5 * time.Second
	}
	policy := options.Policy
	if len(policy.Blacklist) == 0 && len(policy.PreferredDomains) == 0 {
		policy = imagesearch.DefaultRankingPolicy()
	}
	return &Finder{
		browser:   browser,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		timeout:   timeout,
		policy:    policy,
		executor:  options.Resilience,
		searchURL: searchURL,
		settle:    settle,
	}
}

// FindImage searches for "<part number> <description> auto part" and ranks the results.
// A page with no usable image is a miss, not an error.
func (f *Finder) FindImage(ctx context.Context, partNumber, description string) (domain.ImageLookupResult, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return domain.ImageLookupResult{}, fmt.Errorf("image search rate limit: %w", err)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	candidates, err := resilience.ExecuteValue(lookupCtx, f.executor, "googleimages.search", func(callCtx context.Context) ([]imagesearch.Candidate, error) {
		return f.search(callCtx, SearchURL(f.searchURL, partNumber, description))
	}, classifyBrowserError)
	if err != nil {
		return domain.ImageLookupResult{}, wrapTemporaryIfNeeded(err)
	}
	return f.policy.Pick(partNumber, Source, candidates), nil
}

func (f *Finder) search(ctx context.Context, target string) ([]imagesearch.Candidate, error) {
	page, err := f.browser.page(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = page.Close()
	}()

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{Width: 1280, Height: 800}); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	if err := page.Navigate(target); err != nil {
		return nil, fmt.Errorf("navigate search page: %w", err)
	}
	if err := page.WaitDOMStable(time.Second, 0.1); err != nil {
		return nil, fmt.Errorf("wait search page: %w", err)
	}
	if _, err := page.Timeout(f.settle).Element("img"); err != nil {
		return []imagesearch.Candidate{}, nil
	}

	res, err := page.Eval(collectScript)
	if err != nil {
		return nil, fmt.Errorf("collect image candidates: %w", err)
	}
	return DecodeCandidates(res.Value.Str())
}

// SearchURL builds the Google Images query for a part.
func SearchURL(base, partNumber, description string) string {
	query := strings.Join(strings.Fields(partNumber+" "+description+" auto part"), " ")
	values := url.Values{}
	values.Set("q", query)
	values.Set("tbm", "isch")
	return base + "?" + values.Encode()
}

// DecodeCandidates parses the collector output, keeping at most the first few entries.
func DecodeCandidates(raw string) ([]imagesearch.Candidate, error) {
	var candidates []imagesearch.Candidate
	if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
		return nil, fmt.Errorf("decode image candidates: %w", err)
	}
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	return candidates, nil
}
