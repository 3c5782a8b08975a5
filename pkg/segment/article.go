package segment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/go-shiori/go-readability"
)

// MaxArticleSize caps downloaded HTML so untrusted URLs can not exhaust memory.
const MaxArticleSize = 10 * 1024 * 1024

// ErrArticleTooLarge is returned when a page exceeds MaxArticleSize.
var ErrArticleTooLarge = errors.New("segment: article exceeds size limit")

var (
	// (?s) allows dot to match newlines
	// (?i) makes it case-insensitive
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// SanitizeRuby removes ruby text (<rt>...</rt>) and ruby parentheses (<rp>...</rp>)
// from HTML content. Readability extracts furigana along with the base text,
// which duplicates words (e.g. "漢字" becomes "漢字かんじ").
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, []byte{})
	cleaned = reRP.ReplaceAll(cleaned, []byte{})
	return cleaned
}

// Article is the readable content of a web page.
type Article struct {
	URL      string
	Title    string
	Byline   string
	SiteName string
	Text     string
}

// ExtractArticle runs readability over an HTML document.
func ExtractArticle(r io.Reader, pageURL string) (*Article, error) {
	raw, err := io.ReadAll(io.LimitReader(r, MaxArticleSize+1))
	if err != nil {
		return nil, fmt.Errorf("read html: %w", err)
	}
	if len(raw) > MaxArticleSize {
		return nil, ErrArticleTooLarge
	}
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", pageURL, err)
	}

	article, err := readability.FromReader(bytes.NewReader(SanitizeRuby(raw)), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("extract article: %w", err)
	}
	return &Article{
		URL:      pageURL,
		Title:    article.Title,
		Byline:   article.Byline,
		SiteName: article.SiteName,
		Text:     article.TextContent,
	}, nil
}

// FetchArticle downloads pageURL and extracts its readable text. A nil
// client uses a 30 second timeout.
func FetchArticle(ctx context.Context, client *http.Client, pageURL string) (*Article, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	// Some sites refuse requests that do not look like a browser.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,ja;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}
	if resp.ContentLength > MaxArticleSize {
		return nil, ErrArticleTooLarge
	}
	return ExtractArticle(resp.Body, pageURL)
}
