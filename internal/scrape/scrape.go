package scrape

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/gosummarize/internal/errs"
	"github.com/hyperifyio/gosummarize/internal/extract"
	"github.com/hyperifyio/gosummarize/internal/fetch"
)

// Page is the readable text extracted from one URL. Text is never empty.
type Page struct {
	URL   string
	Title string
	Text  string
}

// Fetcher is the slice of fetch.Client the scraper needs.
type Fetcher interface {
	Get(ctx context.Context, url string) (fetch.Response, error)
}

// Scraper turns URLs into readable text.
type Scraper struct {
	Fetcher   Fetcher
	Extractor extract.Extractor
	// Concurrency caps parallel fetches in FetchAll. Zero means one goroutine per URL.
	Concurrency int
}

// Extract fetches url and keeps its readable paragraphs. A page that yields no
// paragraph above the threshold fails with NoContentFound.
func (s *Scraper) Extract(ctx context.Context, url string) (Page, error) {
	if s.Fetcher == nil {
		return Page{}, errs.New(errs.KindConfiguration, errs.StageFetch, "scraper has no fetcher")
	}
	resp, err := s.Fetcher.Get(ctx, url)
	if err != nil {
		return Page{}, errs.WithStage(err, errs.StageFetch)
	}
	ex := s.Extractor
	if ex == nil {
		ex = extract.ParagraphExtractor{}
	}
	doc, err := ex.Extract(resp.Body)
	if err != nil {
		return Page{}, errs.Wrap(errs.KindBadUpstreamResponse, errs.StageFetch, err, url)
	}
	if doc.Text == "" {
		return Page{}, errs.New(errs.KindNoContentFound, errs.StageFetch, "no readable paragraphs at %s", url)
	}
	zerolog.Ctx(ctx).Debug().Str("url", url).Int("paragraphs", len(doc.Paragraphs)).Int("chars", len(doc.Text)).Msg("page extracted")
	return Page{URL: url, Title: doc.Title, Text: doc.Text}, nil
}

// FetchAll extracts every URL concurrently and returns pages aligned with urls.
// The first failure cancels the remaining fetches and is returned alone;
// partial results are discarded.
func (s *Scraper) FetchAll(ctx context.Context, urls []string) ([]Page, error) {
	pages := make([]Page, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	if s.Concurrency > 0 {
		g.SetLimit(s.Concurrency)
	}
	for i, u := range urls {
		g.Go(func() error {
			p, err := s.Extract(gctx, u)
			if err != nil {
				return fmt.Errorf("source %d: %w", i+1, err)
			}
			pages[i] = p
			return nil
		})
	}
	// Wait reports the first error; siblings cancelled after it are dropped.
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pages, nil
}
