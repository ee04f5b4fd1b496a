// Package googleimages looks part images up on Google Images through a headless Chrome.
package googleimages

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
)

// Browser owns one Chrome process shared by every lookup. It starts on first use.
type Browser struct {
	remoteURL string

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewBrowser connects to remoteURL when set, otherwise launches a local headless Chrome.
func NewBrowser(remoteURL string) *Browser {
	return &Browser{remoteURL: remoteURL}
}

func (b *Browser) page(ctx context.Context) (*rod.Page, error) {
	browser, err := b.ensure()
	if err != nil {
		return nil, err
	}
	page, err := stealth.Page(browser)
	if err != nil {
		// The process may have died between lookups; relaunch once.
		b.reset()
		if browser, err = b.ensure(); err != nil {
			return nil, err
		}
		if page, err = stealth.Page(browser); err != nil {
			return nil, fmt.Errorf("browser: create page: %w", err)
		}
	}
	return page.Context(ctx), nil
}

func (b *Browser) ensure() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("browser: closed")
	}
	if b.browser != nil {
		return b.browser, nil
	}

	wsURL := b.remoteURL
	if wsURL == "" {
		l := launcher.New().
			Headless(true).
			Set("disable-blink-features", "AutomationControlled").
			Set("disable-dev-shm-usage").
			Set("disable-gpu")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		b.lnch = l
		slog.Info("browser_launched", "url", wsURL)
	}

	browser := rod.New().ControlURL(wsURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	b.browser = browser
	return browser, nil
}

func (b *Browser) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cleanupLocked()
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return b.cleanupLocked()
}

func (b *Browser) cleanupLocked() error {
	var err error
	if b.browser != nil {
		err = b.browser.Close()
		b.browser = nil
	}
	if b.lnch != nil {
		b.lnch.Kill()
		b.lnch = nil
	}
	return err
}
