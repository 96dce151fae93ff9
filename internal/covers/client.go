// Package covers looks up book cover images through the Open Library
// search API. A missing cover is a normal outcome; only collaborator
// unavailability is an error.
package covers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"booklog/internal/cache"
	errs "booklog/internal/errors"
)

const coverCacheTTL = 24 * time.Hour

// Client queries the title-search endpoint and builds cover image URLs.
type Client struct {
	searchURL string
	http      *http.Client
	cache     *cache.Client
}

// NewClient builds a cover client. The timeout bounds the whole lookup
// so a slow third party cannot stall the add-book flow.
func NewClient(searchURL string, timeout time.Duration, cache *cache.Client) *Client {
	return &Client{
		searchURL: searchURL,
		http:      &http.Client{Timeout: timeout},
		cache:     cache,
	}
}

type searchResponse struct {
	Docs []struct {
		CoverI int64    `json:"cover_i"`
		ISBN   []string `json:"isbn"`
	} `json:"docs"`
}

// Lookup returns the cover image URL for the first search hit on the
// title, or "" when nothing matches. Errors mean the collaborator was
// unreachable, not that no cover exists.
func (c *Client) Lookup(ctx context.Context, title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", nil
	}

	cacheKey := "cover:" + strings.ToLower(title)
	if data, _ := c.cache.Get(ctx, cacheKey); data != nil {
		return string(data), nil
	}

	coverURL, err := c.search(ctx, title)
	if err != nil {
		return "", err
	}

	if coverURL != "" {
		_ = c.cache.Set(ctx, cacheKey, []byte(coverURL), coverCacheTTL)
	}
	return coverURL, nil
}

func (c *Client) search(ctx context.Context, title string) (string, error) {
	q := url.Values{}
	q.Set("title", title)
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrCoverLookup, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrCoverLookup, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: search returned status %d", errs.ErrCoverLookup, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrCoverLookup, err)
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrCoverLookup, err)
	}

	if len(result.Docs) == 0 {
		return "", nil
	}

	doc := result.Docs[0]
	if doc.CoverI != 0 {
		return fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-L.jpg", doc.CoverI), nil
	}
	if len(doc.ISBN) > 0 {
		return fmt.Sprintf("https://covers.openlibrary.org/b/isbn/%s-L.jpg", doc.ISBN[0]), nil
	}
	return "", nil
}
