package search

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hyperifyio/gosummarize/internal/errs"
)

// DefaultBingEndpoint is the Bing Web Search v7 endpoint.
const DefaultBingEndpoint = "https://api.bing.microsoft.com/v7.0/search"

// Bing implements Provider against the Bing Web Search v7 API.
type Bing struct {
	APIKey     string
	Endpoint   string // defaults to DefaultBingEndpoint
	Market     string // optional, e.g. "en-US"
	HTTPClient *http.Client
}

func (b *Bing) Name() string { return "bing" }

func (b *Bing) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if strings.TrimSpace(b.APIKey) == "" {
		return nil, errs.New(errs.KindConfiguration, errs.StageSearch, "bing api key is not set (BING_API_KEY)")
	}
	endpoint := b.Endpoint
	if endpoint == "" {
		endpoint = DefaultBingEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfiguration, errs.StageSearch, err, "invalid bing endpoint")
	}
	q := u.Query()
	q.Set("q", query)
	if limit > 0 {
		q.Set("count", strconv.Itoa(limit))
	}
	if b.Market != "" {
		q.Set("mkt", b.Market)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidArgument, errs.StageSearch, err, "build request")
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", b.APIKey)

	var br bingResponse
	if err := doJSON(b.HTTPClient, req, &br); err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(br.WebPages.Value))
	for _, v := range br.WebPages.Value {
		if v.Name == "" || v.URL == "" {
			continue
		}
		out = append(out, Result{
			Title:   strings.TrimSpace(v.Name),
			URL:     strings.TrimSpace(v.URL),
			Snippet: strings.TrimSpace(v.Snippet),
			Source:  b.Name(),
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

type bingResponse struct {
	WebPages struct {
		Value []struct {
			Name    string `json:"name"`
			URL     string `json:"url"`
			Snippet string `json:"snippet"`
		} `json:"value"`
	} `json:"webPages"`
}
