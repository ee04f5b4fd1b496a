package googleimages

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/dakshin/partsquote/internal/core/domain"
)

func TestSearchURLBuildsImageQuery(t *testing.T) {
	raw := SearchURL(searchEndpoint, "04427-42180", "  BOOT KIT,  FR DRIVE ")
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse() error = %v", err)
	}
	if parsed.Query().Get("tbm") != "isch" {
		t.Fatalf("expected image search, got %s", raw)
	}
	if got := parsed.Query().Get("q"); got != "04427-42180 BOOT KIT, FR DRIVE auto part" {
		t.Fatalf("unexpected query %q", got)
	}
}

func TestDecodeCandidatesCapsResults(t *testing.T) {
	raw := `[`
	for i := 0; i < 25; i++ {
		if i > 0 {
			raw += ","
		}
		raw += `{"image_url":"https://img.example/a.jpg","page_url":"https://shop.example/p","width":200,"height":200}`
	}
	raw += `]`

	candidates, err := DecodeCandidates(raw)
	if err != nil {
		t.Fatalf("DecodeCandidates() error = %v", err)
	}
	if len(candidates) != maxCandidates {
		t.Fatalf("expected %d candidates, got %d", maxCandidates, len(candidates))
	}
	if candidates[0].Width != 200 || candidates[0].PageURL != "https://shop.example/p" {
		t.Fatalf("unexpected candidate: %+v", candidates[0])
	}
}

func TestDecodeCandidatesRejectsGarbage(t *testing.T) {
	if _, err := DecodeCandidates("not json"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	if err := wrapTemporaryIfNeeded(errors.New("navigation failed")); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if err := wrapTemporaryIfNeeded(context.Canceled); domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("cancellation must not be temporary")
	}
}
