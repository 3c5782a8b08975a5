package thesaurus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/japaniel/narrator/pkg/lexica"
	"github.com/japaniel/narrator/pkg/lexicon"
)

// ErrStatus is returned when a remote service answers with a non-2xx status.
var ErrStatus = errors.New("thesaurus: unexpected status")

// Client is an Oracle backed by a remote synset service:
//
//	GET {BaseURL}/synsets?word=cat&pos=n,v,a,r
//
// answering with a JSON array of SynSetRecord.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

var _ lexicon.Oracle = (*Client)(nil)

// NewClient creates a client with a bounded HTTP timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) SynSets(ctx context.Context, word string, categories []lexica.Type) ([]lexicon.SynSet, error) {
	var tags []string
	for _, t := range categories {
		if tag := posTag(t); tag != "" {
			tags = append(tags, tag)
		}
	}
	q := url.Values{}
	q.Set("word", word)
	if len(tags) > 0 {
		q.Set("pos", strings.Join(tags, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/synsets?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("query synsets for %q: %w", word, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s for %q", ErrStatus, resp.Status, word)
	}

	var records []SynSetRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode synsets for %q: %w", word, err)
	}
	out := make([]lexicon.SynSet, 0, len(records))
	for _, r := range records {
		out = append(out, lexicon.SynSet{Category: ParseCategory(r.POS), Words: r.Words, Gloss: r.Gloss})
	}
	return out, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}
