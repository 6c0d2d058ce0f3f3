package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"

	"github.com/hyperifyio/jobextract/internal/failure"
)

// HTTPFetcher issues a single GET per URL. Failures are not retried: the
// pipeline treats a failed fetch as terminal for the request.
type HTTPFetcher struct {
	HTTPClient *http.Client
	UserAgent  string
	// Timeout bounds the whole request including body read. Zero means 30s.
	Timeout time.Duration
	// MinContentChars is the INSUFFICIENT_CONTENT threshold. Zero means default.
	MinContentChars int
	// RedirectMaxHops caps redirect following to avoid loops. Zero means default (5).
	RedirectMaxHops int
	// MaxBodyBytes caps the body read. Zero means 8 MiB.
	MaxBodyBytes int64
	// MaxConcurrent limits in-flight requests across goroutines sharing this
	// fetcher. Zero means unlimited.
	MaxConcurrent int

	limiter     chan struct{}
	limiterOnce sync.Once
}

func (f *HTTPFetcher) getHTTPClient() *http.Client {
	if f.HTTPClient != nil {
		// Clone to attach our redirect policy without mutating caller's client
		base := *f.HTTPClient
		base.CheckRedirect = f.checkRedirectFunc()
		return &base
	}
	return &http.Client{CheckRedirect: f.checkRedirectFunc()}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	if err := validateURL(rawURL); err != nil {
		return Page{}, err
	}
	f.acquire()
	defer f.release()

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSpace(rawURL), nil)
	if err != nil {
		return Page{}, failure.Fetch("new request", err)
	}
	ua := f.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", defaultAccept)
	req.Header.Set("Accept-Language", defaultAcceptLanguage)

	start := time.Now()
	resp, err := f.getHTTPClient().Do(req)
	if err != nil {
		log.Debug().Str("stage", "fetch").Str("url", rawURL).Bool("timeout", errors.Is(err, context.DeadlineExceeded)).Err(err).Msg("request failed")
		return Page{}, failure.Fetch("GET "+rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Page{}, failure.Fetch(fmt.Sprintf("GET %s: unexpected status %d", rawURL, resp.StatusCode), nil)
	}
	contentType := resp.Header.Get("Content-Type")
	if !isAllowedContentType(contentType) {
		return Page{}, failure.Fetch("unsupported content type: "+contentType, nil)
	}
	limit := f.MaxBodyBytes
	if limit <= 0 {
		limit = 8 << 20
	}
	// Job boards still serve latin-1 and windows-1252; decode to UTF-8 first.
	r, err := charset.NewReader(io.LimitReader(resp.Body, limit), contentType)
	if err != nil {
		return Page{}, failure.Fetch("decode body", err)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return Page{}, failure.Fetch("read body", err)
	}
	page := Page{
		URL:         rawURL,
		Content:     string(b),
		ContentType: contentType,
		Status:      resp.StatusCode,
		Strategy:    StrategyHTTP,
	}
	log.Debug().Str("stage", "fetch").Str("url", rawURL).Int("status", resp.StatusCode).Int("bytes", len(b)).Dur("elapsed", time.Since(start)).Msg("fetched")
	return checkContent(page, f.MinContentChars)
}

func (f *HTTPFetcher) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := f.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if req.URL == nil || !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isAllowedContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	// Some boards omit the header entirely; accept and let the length check decide.
	return ct == "" || strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}

func (f *HTTPFetcher) acquire() {
	if f.MaxConcurrent <= 0 {
		return
	}
	f.limiterOnce.Do(func() {
		f.limiter = make(chan struct{}, f.MaxConcurrent)
	})
	f.limiter <- struct{}{}
}

func (f *HTTPFetcher) release() {
	if f.MaxConcurrent <= 0 || f.limiter == nil {
		return
	}
	select {
	case <-f.limiter:
	default:
	}
}
