package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/gosummarize/internal/app"
)

func main() {
	cfg, err := loadConfig(os.Args[1:], os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	setupLogging(cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("server failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg app.Config) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()
	return a.Serve(ctx)
}

func setupLogging(cfg app.Config, out io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339
	if strings.EqualFold(cfg.LogFormat, "json") {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// loadConfig layers configuration: defaults, then the optional config file,
// then .env and the environment, then any flag given on the command line.
func loadConfig(args []string, stderr io.Writer) (app.Config, error) {
	fv := app.Defaults()
	var (
		configPath string
		envFile    string
	)
	fs := flag.NewFlagSet("gosummarize", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "Path to YAML or JSON config file")
	fs.StringVar(&envFile, "env-file", ".env", "Dotenv file loaded before reading the environment")
	fs.StringVar(&fv.Addr, "addr", fv.Addr, "HTTP listen address")
	fs.DurationVar(&fv.RequestTimeout, "request.timeout", fv.RequestTimeout, "Deadline for one search_scrape_summarize run (0 disables)")
	fs.DurationVar(&fv.HTTPTimeout, "http.timeout", fv.HTTPTimeout, "Timeout for each outbound search or LLM call (0 disables)")
	fs.StringVar(&fv.DefaultEngine, "search.engine", fv.DefaultEngine, "Default search engine: google, bing or searxng")
	fs.StringVar(&fv.GoogleAPIKey, "google.key", "", "Google Custom Search API key")
	fs.StringVar(&fv.GoogleCX, "google.cx", "", "Google Programmable Search engine ID")
	fs.StringVar(&fv.BingAPIKey, "bing.key", "", "Bing Web Search subscription key")
	fs.StringVar(&fv.SearxURL, "searx.url", "", "SearxNG base URL")
	fs.StringVar(&fv.SearxKey, "searx.key", "", "SearxNG API key (optional)")
	fs.DurationVar(&fv.FetchTimeout, "fetch.timeout", fv.FetchTimeout, "Timeout for each page fetch")
	fs.IntVar(&fv.FetchMaxConcurrent, "fetch.maxConcurrent", fv.FetchMaxConcurrent, "Maximum concurrent page fetches (0 = unlimited)")
	fs.BoolVar(&fv.RotateUserAgent, "fetch.rotateUA", fv.RotateUserAgent, "Send a random browser User-Agent per page fetch")
	fs.IntVar(&fv.MinParagraphChars, "min.paragraphChars", fv.MinParagraphChars, "Paragraphs must be longer than this to count as readable text")
	fs.IntVar(&fv.TopN, "top.n", fv.TopN, "Default number of search results to scrape")
	fs.IntVar(&fv.MaxChunkSize, "chunk.size", fv.MaxChunkSize, "Default chunk size in characters")
	fs.StringVar(&fv.LLMBaseURL, "llm.base", "", "OpenAI-compatible base URL")
	fs.StringVar(&fv.LLMModel, "llm.model", fv.LLMModel, "Model name")
	fs.StringVar(&fv.LLMAPIKey, "llm.key", "", "API key for the OpenAI-compatible server")
	fs.IntVar(&fv.SummaryWords, "summary.words", fv.SummaryWords, "Target summary length in words")
	fs.IntVar(&fv.SummarizeMaxConcurrent, "llm.maxConcurrent", fv.SummarizeMaxConcurrent, "Maximum concurrent chunk summaries (0 = unlimited)")
	fs.BoolVar(&fv.Verbose, "v", false, "Verbose logging")
	fs.StringVar(&fv.LogFormat, "log.format", fv.LogFormat, "Log format: console or json")
	if err := fs.Parse(args); err != nil {
		return app.Config{}, err
	}

	cfg := app.Defaults()
	if strings.TrimSpace(configPath) != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			return app.Config{}, fmt.Errorf("config file: %w", err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	if err := app.LoadEnvFiles(envFile); err != nil {
		return app.Config{}, err
	}
	if err := app.ApplyEnv(&cfg); err != nil {
		return app.Config{}, err
	}

	explicit := map[string]func(){
		"addr":                func() { cfg.Addr = fv.Addr },
		"request.timeout":     func() { cfg.RequestTimeout = fv.RequestTimeout },
		"http.timeout":        func() { cfg.HTTPTimeout = fv.HTTPTimeout },
		"search.engine":       func() { cfg.DefaultEngine = fv.DefaultEngine },
		"google.key":          func() { cfg.GoogleAPIKey = fv.GoogleAPIKey },
		"google.cx":           func() { cfg.GoogleCX = fv.GoogleCX },
		"bing.key":            func() { cfg.BingAPIKey = fv.BingAPIKey },
		"searx.url":           func() { cfg.SearxURL = fv.SearxURL },
		"searx.key":           func() { cfg.SearxKey = fv.SearxKey },
		"fetch.timeout":       func() { cfg.FetchTimeout = fv.FetchTimeout },
		"fetch.maxConcurrent": func() { cfg.FetchMaxConcurrent = fv.FetchMaxConcurrent },
		"fetch.rotateUA":      func() { cfg.RotateUserAgent = fv.RotateUserAgent },
		"min.paragraphChars":  func() { cfg.MinParagraphChars = fv.MinParagraphChars },
		"top.n":               func() { cfg.TopN = fv.TopN },
		"chunk.size":          func() { cfg.MaxChunkSize = fv.MaxChunkSize },
		"llm.base":            func() { cfg.LLMBaseURL = fv.LLMBaseURL },
		"llm.model":           func() { cfg.LLMModel = fv.LLMModel },
		"llm.key":             func() { cfg.LLMAPIKey = fv.LLMAPIKey },
		"summary.words":       func() { cfg.SummaryWords = fv.SummaryWords },
		"llm.maxConcurrent":   func() { cfg.SummarizeMaxConcurrent = fv.SummarizeMaxConcurrent },
		"v":                   func() { cfg.Verbose = fv.Verbose },
		"log.format":          func() { cfg.LogFormat = fv.LogFormat },
	}
	fs.Visit(func(f *flag.Flag) {
		if apply, ok := explicit[f.Name]; ok {
			apply()
		}
	})

	if err := app.ValidateConfig(cfg); err != nil {
		return app.Config{}, err
	}
	return cfg, nil
}
