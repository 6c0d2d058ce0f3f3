// Package fetch retrieves raw page markup for a job posting URL, either with a
// plain HTTP GET or by rendering the page in a headless browser.
package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/hyperifyio/jobextract/internal/failure"
)

const (
	StrategyHTTP    = "http"
	StrategyBrowser = "browser"
)

// DefaultMinContentChars is the body length under which a page is treated as
// a block page or redirect stub.
const DefaultMinContentChars = 1000

// DefaultUserAgent mimics a desktop browser; many job boards reject or vary
// content for bare scripted clients.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

const (
	defaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"
	defaultAcceptLanguage = "fr-FR,fr;q=0.9,en-US;q=0.8,en;q=0.7"
)

// Page is the result of a successful fetch.
type Page struct {
	URL         string
	Content     string
	ContentType string
	Status      int
	Strategy    string
}

// Fetcher retrieves a page. Implementations return *failure.Error values
// tagged FETCH_FAILED or INSUFFICIENT_CONTENT and never panic.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// checkContent applies the minimum body length rule shared by all strategies.
func checkContent(p Page, minChars int) (Page, error) {
	if minChars <= 0 {
		minChars = DefaultMinContentChars
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(p.Content)); n < minChars {
		return p, failure.Insufficient(fmt.Sprintf("%s returned %d characters via %s, need at least %d", p.URL, n, p.Strategy, minChars))
	}
	return p, nil
}

func validateURL(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return failure.Fetch("invalid url", err)
	}
	if !isHTTPScheme(u) || u.Host == "" {
		return failure.Fetch(fmt.Sprintf("unsupported URL %q", rawURL), nil)
	}
	return nil
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}
