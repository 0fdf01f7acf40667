// Package pagemeta extracts a display title from a saved page. Pages are
// never fetched over the network.
package pagemeta

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-shiori/go-readability"
)

// MaxBodySize caps how much of a page is read.
const MaxBodySize = 10 * 1024 * 1024

// ErrTooLarge is returned for pages over MaxBodySize.
var ErrTooLarge = errors.New("page exceeds maximum size")

var (
	// (?s) allows dot to match newlines
	// (?i) makes it case-insensitive
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// SanitizeRuby removes ruby text (<rt>...</rt>) and ruby parentheses (<rp>...</rp>).
// Without this, readability keeps the furigana and a title such as "漢字"
// comes out as "漢字かんじ". Safe for Shift_JIS input because every byte the
// patterns match is ASCII and '<' is never a Shift_JIS trailing byte.
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, []byte{})
	cleaned = reRP.ReplaceAll(cleaned, []byte{})
	return cleaned
}

// Title returns the article title of the HTML in r, falling back to pageURL
// when none can be found.
func Title(r io.Reader, pageURL string) (string, error) {
	body, err := readLimited(r)
	if err != nil {
		return pageURL, err
	}
	return titleFromBytes(body, pageURL), nil
}

func titleFromBytes(body []byte, pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}
	article, err := readability.FromReader(bytes.NewReader(SanitizeRuby(body)), parsed)
	if err != nil {
		return pageURL
	}
	if title := strings.Join(strings.Fields(article.Title), " "); title != "" {
		return title
	}
	return pageURL
}

func readLimited(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	if len(body) > MaxBodySize {
		return nil, ErrTooLarge
	}
	return body, nil
}
