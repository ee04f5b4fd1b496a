// Package imagesearch ranks scraped image candidates and caches lookups.
package imagesearch

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/dakshin/partsquote/internal/core/domain"
)

const minCandidateSide = 50

// DefaultBlacklist drops stock-photo and watermarked sources.
var DefaultBlacklist = []string{
	"shutterstock", "istockphoto", "gettyimages", "adobe", "dreamstime", "123rf", "alamy", "watermark", "preview",
}

var DefaultPreferredDomains = []string{
	"toyota.com", "partsouq.com", "amayama.com", "megazip.net", "rockauto.com", "autodoc.co.uk",
}

// Candidate is one image found on a results page.
type Candidate struct {
	ImageURL string `json:"image_url"`
	PageURL  string `json:"page_url"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type RankingPolicy struct {
	Blacklist        []string
	PreferredDomains []string
}

func DefaultRankingPolicy() RankingPolicy {
	return RankingPolicy{
		Blacklist:        append([]string(nil), DefaultBlacklist...),
		PreferredDomains: append([]string(nil), DefaultPreferredDomains...),
	}
}

// Pick returns the best usable candidate. A preferred-domain hit is high quality,
// any other usable hit is medium, and no hit is a low-quality miss.
func (p RankingPolicy) Pick(partNumber, source string, candidates []Candidate) domain.ImageLookupResult {
	var fallback *Candidate
	for i := range candidates {
		candidate := candidates[i]
		if !p.usable(candidate) {
			continue
		}
		if p.preferred(candidate) {
			return domain.ImageLookupResult{
				PartNumber: partNumber,
				Found:      true,
				ImageURL:   candidate.ImageURL,
				Quality:    domain.ImageQualityHigh,
				Source:     source,
			}
		}
		if fallback == nil {
			fallback = &candidates[i]
		}
	}
	if fallback == nil {
		return domain.NotFoundImage(partNumber, source)
	}
	return domain.ImageLookupResult{
		PartNumber: partNumber,
		Found:      true,
		ImageURL:   fallback.ImageURL,
		Quality:    domain.ImageQualityMedium,
		Source:     source,
	}
}

func (p RankingPolicy) usable(c Candidate) bool {
	if !strings.HasPrefix(c.ImageURL, "http://") && !strings.HasPrefix(c.ImageURL, "https://") {
		return false
	}
	if (c.Width > 0 && c.Width <= minCandidateSide) || (c.Height > 0 && c.Height <= minCandidateSide) {
		return false
	}
	lowerImage := strings.ToLower(c.ImageURL)
	lowerPage := strings.ToLower(c.PageURL)
	for _, blocked := range p.Blacklist {
		blocked = strings.ToLower(strings.TrimSpace(blocked))
		if blocked == "" {
			continue
		}
		if strings.Contains(lowerImage, blocked) || strings.Contains(lowerPage, blocked) {
			return false
		}
	}
	return true
}

func (p RankingPolicy) preferred(c Candidate) bool {
	for _, raw := range []string{c.PageURL, c.ImageURL} {
		site := registrableDomain(raw)
		if site == "" {
			continue
		}
		for _, want := range p.PreferredDomains {
			if strings.EqualFold(site, strings.TrimSpace(want)) {
				return true
			}
		}
	}
	return false
}

func registrableDomain(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Hostname() == "" {
		return ""
	}
	site, err := publicsuffix.EffectiveTLDPlusOne(strings.ToLower(parsed.Hostname()))
	if err != nil {
		return ""
	}
	return site
}
