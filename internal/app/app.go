package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/gosummarize/internal/budget"
	"github.com/hyperifyio/gosummarize/internal/extract"
	"github.com/hyperifyio/gosummarize/internal/fetch"
	"github.com/hyperifyio/gosummarize/internal/llm"
	"github.com/hyperifyio/gosummarize/internal/pipeline"
	"github.com/hyperifyio/gosummarize/internal/scrape"
	"github.com/hyperifyio/gosummarize/internal/search"
	"github.com/hyperifyio/gosummarize/internal/summarize"
)

// Searcher runs one search on a named engine.
type Searcher interface {
	Search(ctx context.Context, query string, engine search.Engine, limit int) ([]search.Result, error)
}

// PageScraper extracts readable text from a single URL.
type PageScraper interface {
	Extract(ctx context.Context, url string) (scrape.Page, error)
}

// TextSummarizer condenses one text blob.
type TextSummarizer interface {
	Summarize(ctx context.Context, text string) (summarize.Summary, error)
}

// Runner executes the full search, scrape and summarize pipeline.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// App is the composition root: it owns the shared HTTP client and wires every
// stage behind the HTTP handlers.
type App struct {
	cfg    Config
	hc     *http.Client
	logger zerolog.Logger

	search     Searcher
	scraper    PageScraper
	summarizer TextSummarizer
	pipeline   Runner
}

func New(ctx context.Context, cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	hc := newSharedHTTPClient(cfg.HTTPTimeout)

	registry := NewSearchRegistry(cfg, hc)

	fetcher := &fetch.Client{
		HTTPClient:        hc,
		UserAgent:         cfg.UserAgent,
		PerRequestTimeout: cfg.FetchTimeout,
		MaxBodyBytes:      cfg.FetchMaxBytes,
		MaxConcurrent:     cfg.FetchMaxConcurrent,
	}
	if cfg.RotateUserAgent && strings.TrimSpace(cfg.UserAgent) == "" {
		fetcher.UserAgents = fetch.NewUserAgentPool(nil)
	}
	scraper := &scrape.Scraper{
		Fetcher:     fetcher,
		Extractor:   extract.ParagraphExtractor{MinChars: cfg.MinParagraphChars},
		Concurrency: cfg.FetchMaxConcurrent,
	}

	provider := llm.NewOpenAIProvider(cfg.LLMAPIKey, cfg.LLMBaseURL, hc)
	summarizer := &summarize.Summarizer{
		Client:       provider,
		Model:        cfg.LLMModel,
		TargetWords:  cfg.SummaryWords,
		SystemPrompt: cfg.SummarySystemPrompt,
		Temperature:  cfg.LLMTemperature,
		MaxTokens:    cfg.LLMMaxTokens,
		// Only the public endpoint insists on a key; local servers accept none.
		RequireAPIKey: strings.TrimSpace(cfg.LLMBaseURL) == "",
		APIKey:        cfg.LLMAPIKey,
	}

	a := &App{
		cfg:        cfg,
		hc:         hc,
		logger:     log.Logger,
		search:     registry,
		scraper:    scraper,
		summarizer: summarizer,
		pipeline: &pipeline.Orchestrator{
			Search:         registry,
			Pages:          scraper,
			Summarizer:     summarizer,
			MapConcurrency: cfg.SummarizeMaxConcurrent,
			Timeout:        cfg.RequestTimeout,
		},
	}

	if limit := budget.MaxChunkChars(cfg.LLMModel, summarizer.SystemMessage(), summarizer.ReservedOutput()); cfg.MaxChunkSize > limit {
		log.Warn().
			Int("chunk_size", cfg.MaxChunkSize).
			Int("fits_chars", limit).
			Str("model", cfg.LLMModel).
			Msg("default chunk size may exceed the model context")
	}

	log.Info().
		Strs("engines", enginesToStrings(registry.Engines())).
		Str("default_engine", cfg.DefaultEngine).
		Str("model", cfg.LLMModel).
		Msg("service configured")

	// Quick connectivity check to the LLM by listing models. Best-effort:
	// an unreachable model server surfaces on the first summarize call.
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	models, err := provider.ListModels(pctx)
	if err != nil {
		log.Warn().Err(err).Msg("LLM model list failed; continuing")
	} else if len(models.Models) > 0 {
		log.Info().Int("count", len(models.Models)).Msg("LLM models available")
	} else {
		log.Warn().Msg("LLM returned zero models")
	}

	return a, nil
}

// Close releases the idle connections of the shared HTTP client.
func (a *App) Close() {
	if a.hc != nil {
		a.hc.CloseIdleConnections()
	}
}

// Serve listens on cfg.Addr until ctx is cancelled, then drains in-flight
// requests for up to ten seconds.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", a.cfg.Addr).Str("version", BuildVersion).Str("commit", BuildCommit).Str("built", BuildDate).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// NewSearchRegistry registers every engine with the credentials from cfg.
// Engines without credentials stay registered and fail on first use.
func NewSearchRegistry(cfg Config, hc *http.Client) *search.Registry {
	return search.NewRegistry(map[search.Engine]search.Provider{
		search.EngineGoogle: &search.Google{
			APIKey:     cfg.GoogleAPIKey,
			CX:         cfg.GoogleCX,
			Endpoint:   cfg.GoogleEndpoint,
			HTTPClient: hc,
		},
		search.EngineBing: &search.Bing{
			APIKey:     cfg.BingAPIKey,
			Endpoint:   cfg.BingEndpoint,
			Market:     cfg.BingMarket,
			HTTPClient: hc,
		},
		search.EngineSearxNG: &search.SearxNG{
			BaseURL:    cfg.SearxURL,
			APIKey:     cfg.SearxKey,
			HTTPClient: hc,
		},
	})
}

func enginesToStrings(engines []search.Engine) []string {
	out := make([]string, len(engines))
	for i, e := range engines {
		out[i] = string(e)
	}
	return out
}
