package search

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	customsearch "google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/hyperifyio/gosummarize/internal/errs"
)

// googleMaxNum is the largest page size the Custom Search API accepts.
const googleMaxNum = 10

// Google implements Provider against the Programmable Search (Custom Search JSON) API.
type Google struct {
	APIKey string
	CX     string
	// Endpoint overrides the API base URL, e.g. for a local test server.
	Endpoint   string
	HTTPClient *http.Client

	once    sync.Once
	svc     *customsearch.Service
	initErr error
}

func (g *Google) Name() string { return "google" }

func (g *Google) service() (*customsearch.Service, error) {
	g.once.Do(func() {
		opts := []option.ClientOption{option.WithHTTPClient(httpClientOrDefault(g.HTTPClient))}
		if g.Endpoint != "" {
			opts = append(opts, option.WithEndpoint(g.Endpoint))
		}
		g.svc, g.initErr = customsearch.NewService(context.Background(), opts...)
	})
	return g.svc, g.initErr
}

func (g *Google) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if strings.TrimSpace(g.APIKey) == "" || strings.TrimSpace(g.CX) == "" {
		return nil, errs.New(errs.KindConfiguration, errs.StageSearch, "google search needs GOOGLE_API_KEY and GOOGLE_CX")
	}
	svc, err := g.service()
	if err != nil {
		return nil, errs.Wrap(errs.KindConfiguration, errs.StageSearch, err, "init custom search client")
	}
	call := svc.Cse.List().Q(query).Cx(g.CX).Context(ctx)
	if limit > 0 {
		call = call.Num(int64(min(limit, googleMaxNum)))
	}
	// The key travels as a query parameter because a custom HTTP client
	// disables the library's own credential handling.
	res, err := call.Do(googleapi.QueryParameter("key", g.APIKey))
	if err != nil {
		return nil, mapGoogleError(err)
	}
	out := make([]Result, 0, len(res.Items))
	for _, it := range res.Items {
		if it == nil || it.Title == "" || it.Link == "" {
			continue
		}
		out = append(out, Result{
			Title:   strings.TrimSpace(it.Title),
			URL:     strings.TrimSpace(it.Link),
			Snippet: strings.TrimSpace(it.Snippet),
			Source:  g.Name(),
		})
	}
	return out, nil
}

func mapGoogleError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		detail := gerr.Message
		if detail == "" {
			detail = gerr.Body
		}
		e := errs.Upstream(errs.StageSearch, gerr.Code, detail)
		e.Err = err
		return e
	}
	return errs.Wrap(errs.KindNetwork, errs.StageSearch, err, "custom search request")
}
