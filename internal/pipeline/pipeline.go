package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/gosummarize/internal/chunk"
	"github.com/hyperifyio/gosummarize/internal/errs"
	"github.com/hyperifyio/gosummarize/internal/scrape"
	"github.com/hyperifyio/gosummarize/internal/search"
	"github.com/hyperifyio/gosummarize/internal/summarize"
)

const (
	DefaultTopN         = 3
	DefaultMaxChunkSize = 3000

	pageSeparator    = "\n"
	summarySeparator = " "
)

// Searcher finds candidate sources for a topic.
type Searcher interface {
	Search(ctx context.Context, query string, engine search.Engine, limit int) ([]search.Result, error)
}

// PageFetcher retrieves readable text for every URL, failing as a whole.
type PageFetcher interface {
	FetchAll(ctx context.Context, urls []string) ([]scrape.Page, error)
}

// TextSummarizer condenses one text blob.
type TextSummarizer interface {
	Summarize(ctx context.Context, text string) (summarize.Summary, error)
}

// Request is one pipeline invocation. Zero TopN and MaxChunkSize take the defaults.
type Request struct {
	Topic        string
	Engine       search.Engine
	TopN         int
	MaxChunkSize int
}

// Stats records how many calls each stage made.
type Stats struct {
	SearchResults  int
	Pages          int
	Chunks         int
	SummarizeCalls int
	Elapsed        time.Duration
}

// Result is the terminal artifact of a run.
type Result struct {
	Topic   string
	Engine  search.Engine
	Sources []string
	Titles  []string
	Summary summarize.Summary
	Stats   Stats
}

// Orchestrator composes search, scrape, chunk and map/reduce summarization.
type Orchestrator struct {
	Search     Searcher
	Pages      PageFetcher
	Summarizer TextSummarizer
	// MapConcurrency caps parallel chunk summaries. Zero means one goroutine per chunk.
	MapConcurrency int
	// Timeout bounds a whole run. Zero means no deadline beyond the leaf timeouts.
	Timeout time.Duration
}

// Run executes the pipeline. Every stage failure is terminal; nothing is retried.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	started := time.Now()
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return Result{}, errs.New(errs.KindInvalidArgument, errs.StagePipeline, "topic is required")
	}
	if req.TopN == 0 {
		req.TopN = DefaultTopN
	}
	if req.MaxChunkSize == 0 {
		req.MaxChunkSize = DefaultMaxChunkSize
	}
	if req.TopN < 0 || req.MaxChunkSize < 0 {
		return Result{}, errs.New(errs.KindInvalidArgument, errs.StagePipeline, "top_n and chunk size must be positive")
	}
	if req.Engine == "" {
		req.Engine = search.DefaultEngine
	}
	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}
	logger := zerolog.Ctx(ctx).With().Str("topic", topic).Str("engine", string(req.Engine)).Logger()
	ctx = logger.WithContext(ctx)

	// 1) Search
	results, err := o.Search.Search(ctx, topic, req.Engine, req.TopN)
	if err != nil {
		return Result{}, fmt.Errorf("search: %w", err)
	}
	if len(results) > req.TopN {
		results = results[:req.TopN]
	}
	if len(results) == 0 {
		return Result{}, errs.New(errs.KindNoResultsFound, errs.StagePipeline, "no search results for %q", topic)
	}
	out := Result{Topic: topic, Engine: req.Engine, Sources: make([]string, len(results)), Titles: make([]string, len(results))}
	for i, r := range results {
		out.Sources[i] = r.URL
		out.Titles[i] = r.Title
	}
	out.Stats.SearchResults = len(results)
	logger.Debug().Strs("sources", out.Sources).Msg("sources selected")

	// 2) Fetch
	pages, err := o.Pages.FetchAll(ctx, out.Sources)
	if err != nil {
		return Result{}, fmt.Errorf("fetch: %w", err)
	}
	out.Stats.Pages = len(pages)

	// 3) Concatenate and 4) chunk
	texts := make([]string, len(pages))
	for i, p := range pages {
		texts[i] = p.Text
	}
	chunks := chunk.Split(strings.Join(texts, pageSeparator), req.MaxChunkSize)
	out.Stats.Chunks = len(chunks)
	logger.Debug().Int("pages", len(pages)).Int("chunks", len(chunks)).Msg("content chunked")

	// 5) Map
	partials, err := o.mapSummaries(ctx, chunks)
	if err != nil {
		return Result{}, fmt.Errorf("map summaries: %w", err)
	}

	// 6) Reduce
	final, err := o.Summarizer.Summarize(ctx, strings.Join(partials, summarySeparator))
	if err != nil {
		return Result{}, fmt.Errorf("reduce summary: %w", err)
	}
	out.Summary = final
	out.Stats.SummarizeCalls = len(chunks) + 1
	out.Stats.Elapsed = time.Since(started)
	logger.Info().
		Int("sources", len(out.Sources)).
		Int("chunks", out.Stats.Chunks).
		Dur("elapsed", out.Stats.Elapsed).
		Msg("pipeline done")
	return out, nil
}

// mapSummaries summarizes every chunk concurrently. The first failure cancels
// the chunks still in flight and is returned alone.
func (o *Orchestrator) mapSummaries(ctx context.Context, chunks []chunk.Chunk) ([]string, error) {
	partials := make([]string, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	if o.MapConcurrency > 0 {
		g.SetLimit(o.MapConcurrency)
	}
	for _, c := range chunks {
		g.Go(func() error {
			s, err := o.Summarizer.Summarize(gctx, c.Text)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", c.Index, err)
			}
			partials[c.Index] = s.Text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return partials, nil
}
