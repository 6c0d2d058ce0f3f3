package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/jobextract/internal/failure"
)

// BrowserFetcher renders a page in a freshly launched headless browser. Each
// call owns its browser process; nothing is pooled or reused across calls.
type BrowserFetcher struct {
	// Bin is an optional browser binary; empty lets rod locate or download one.
	Bin       string
	UserAgent string
	// WaitTimeout bounds navigation, network quiescence and the root element
	// wait together. Zero means 10s.
	WaitTimeout time.Duration
	// RootSelector must appear before the markup is read. Empty means "body".
	RootSelector    string
	MinContentChars int
	ViewportWidth   int
	ViewportHeight  int
}

// Fetch implements Fetcher. The launcher, browser and page are released on
// every exit path, including panics raised inside rod.
func (b *BrowserFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	if err := validateURL(rawURL); err != nil {
		return Page{}, err
	}
	start := time.Now()
	wait := b.WaitTimeout
	if wait <= 0 {
		wait = 10 * time.Second
	}

	var (
		html string
		err  error
	)
	tryErr := rod.Try(func() {
		html, err = b.render(ctx, rawURL, wait)
	})
	if tryErr != nil && err == nil {
		err = tryErr
	}
	if err != nil {
		log.Debug().Str("stage", "fetch").Str("url", rawURL).Str("strategy", StrategyBrowser).
			Bool("timeout", errors.Is(err, context.DeadlineExceeded)).Dur("elapsed", time.Since(start)).Err(err).Msg("render failed")
		return Page{}, failure.Fetch("render "+rawURL, err)
	}
	log.Debug().Str("stage", "fetch").Str("url", rawURL).Str("strategy", StrategyBrowser).Int("bytes", len(html)).Dur("elapsed", time.Since(start)).Msg("rendered")
	return checkContent(Page{
		URL:         rawURL,
		Content:     html,
		ContentType: "text/html; charset=utf-8",
		Status:      200,
		Strategy:    StrategyBrowser,
	}, b.MinContentChars)
}

func (b *BrowserFetcher) render(ctx context.Context, rawURL string, wait time.Duration) (string, error) {
	l := launcher.New().Context(ctx)
	if b.Bin != "" {
		l = l.Bin(b.Bin)
	}
	l = l.
		Headless(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-sandbox").
		Set("disable-extensions").
		Set("lang", "fr-FR,fr")
	defer l.Cleanup()
	defer l.Kill()

	u, err := l.Launch()
	if err != nil {
		return "", fmt.Errorf("launch browser: %w", err)
	}
	browser := rod.New().ControlURL(u).Context(ctx)
	if err := browser.Connect(); err != nil {
		return "", fmt.Errorf("connect browser: %w", err)
	}
	defer func() { _ = browser.Close() }()

	page, err := stealth.Page(browser)
	if err != nil {
		return "", fmt.Errorf("open page: %w", err)
	}
	defer func() { _ = page.Close() }()

	width, height := b.ViewportWidth, b.ViewportHeight
	if width <= 0 || height <= 0 {
		width, height = 1366, 768
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return "", fmt.Errorf("set viewport: %w", err)
	}
	ua := b.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      ua,
		AcceptLanguage: defaultAcceptLanguage,
	}); err != nil {
		return "", fmt.Errorf("set user agent: %w", err)
	}

	p := page.Timeout(wait)
	defer p.CancelTimeout()
	waitIdle := p.WaitRequestIdle(500*time.Millisecond, nil, nil, nil)
	if err := p.Navigate(rawURL); err != nil {
		return "", fmt.Errorf("navigate: %w", err)
	}
	waitIdle()

	root := b.RootSelector
	if root == "" {
		root = "body"
	}
	if _, err := p.Element(root); err != nil {
		return "", fmt.Errorf("wait for %q: %w", root, err)
	}
	return p.HTML()
}
