package app

import (
	"time"

	"github.com/hyperifyio/gosummarize/internal/extract"
	"github.com/hyperifyio/gosummarize/internal/fetch"
	"github.com/hyperifyio/gosummarize/internal/pipeline"
	"github.com/hyperifyio/gosummarize/internal/search"
	"github.com/hyperifyio/gosummarize/internal/summarize"
)

// Config holds runtime configuration for the service.
type Config struct {
	// Server
	Addr           string        `env:"ADDR"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
	// HTTPTimeout caps each outbound search and LLM call. Zero means no cap.
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT"`

	// Search
	DefaultEngine  string `env:"SEARCH_ENGINE"`
	GoogleAPIKey   string `env:"GOOGLE_API_KEY"`
	GoogleCX       string `env:"GOOGLE_CX"`
	GoogleEndpoint string `env:"GOOGLE_ENDPOINT"`
	BingAPIKey     string `env:"BING_API_KEY"`
	BingEndpoint   string `env:"BING_ENDPOINT"`
	BingMarket     string `env:"BING_MARKET"`
	SearxURL       string `env:"SEARX_URL"`
	SearxKey       string `env:"SEARX_KEY"`

	// Fetch
	FetchTimeout       time.Duration `env:"FETCH_TIMEOUT"`
	FetchMaxBytes      int64         `env:"FETCH_MAX_BYTES"`
	FetchMaxConcurrent int           `env:"FETCH_MAX_CONCURRENT"`
	RotateUserAgent    bool          `env:"FETCH_ROTATE_UA"`
	UserAgent          string        `env:"FETCH_USER_AGENT"`
	MinParagraphChars  int           `env:"MIN_PARAGRAPH_CHARS"`

	// Pipeline
	TopN         int `env:"TOP_N"`
	MaxChunkSize int `env:"MAX_CHUNK_SIZE"`

	// LLM
	LLMBaseURL             string  `env:"LLM_BASE_URL"`
	LLMModel               string  `env:"LLM_MODEL"`
	LLMAPIKey              string  `env:"LLM_API_KEY"`
	LLMTemperature         float32 `env:"LLM_TEMPERATURE"`
	LLMMaxTokens           int     `env:"LLM_MAX_TOKENS"`
	SummaryWords           int     `env:"SUMMARY_WORDS"`
	SummarySystemPrompt    string  `env:"SUMMARY_SYSTEM_PROMPT"`
	SummarizeMaxConcurrent int     `env:"SUMMARIZE_MAX_CONCURRENT"`

	// Behavior
	Verbose   bool   `env:"VERBOSE"`
	LogFormat string `env:"LOG_FORMAT"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		Addr:              ":8000",
		RequestTimeout:    2 * time.Minute,
		HTTPTimeout:       DefaultHTTPTimeout,
		DefaultEngine:     string(search.DefaultEngine),
		BingEndpoint:      search.DefaultBingEndpoint,
		FetchTimeout:      fetch.DefaultTimeout,
		FetchMaxBytes:     fetch.DefaultMaxBodyBytes,
		RotateUserAgent:   true,
		MinParagraphChars: extract.DefaultMinParagraphChars,
		TopN:              pipeline.DefaultTopN,
		MaxChunkSize:      pipeline.DefaultMaxChunkSize,
		LLMModel:          summarize.DefaultModel,
		SummaryWords:      summarize.DefaultTargetWords,
		LogFormat:         "console",
	}
}
