package app

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    yaml "gopkg.in/yaml.v3"

    "github.com/hyperifyio/gosummarize/internal/search"
)

// FileConfig represents the single-file configuration schema.
// Nested sections map naturally to flags/env.
type FileConfig struct {
    Addr           string        `yaml:"addr" json:"addr"`
    // Pointers so an explicit 0 in the file disables the deadline.
    RequestTimeout *time.Duration `yaml:"requestTimeout" json:"requestTimeout"`
    HTTPTimeout    *time.Duration `yaml:"httpTimeout" json:"httpTimeout"`

    Search struct {
        Engine string `yaml:"engine" json:"engine"`
        TopN   int    `yaml:"topN" json:"topN"`
    } `yaml:"search" json:"search"`

    Google struct {
        Key      string `yaml:"key" json:"key"`
        CX       string `yaml:"cx" json:"cx"`
        Endpoint string `yaml:"endpoint" json:"endpoint"`
    } `yaml:"google" json:"google"`

    Bing struct {
        Key      string `yaml:"key" json:"key"`
        Endpoint string `yaml:"endpoint" json:"endpoint"`
        Market   string `yaml:"market" json:"market"`
    } `yaml:"bing" json:"bing"`

    Searx struct {
        URL string `yaml:"url" json:"url"`
        Key string `yaml:"key" json:"key"`
    } `yaml:"searx" json:"searx"`

    Fetch struct {
        Timeout           time.Duration `yaml:"timeout" json:"timeout"`
        MaxBytes          int64         `yaml:"maxBytes" json:"maxBytes"`
        MaxConcurrent     int           `yaml:"maxConcurrent" json:"maxConcurrent"`
        RotateUA          *bool         `yaml:"rotateUA" json:"rotateUA"`
        UserAgent         string        `yaml:"userAgent" json:"userAgent"`
        MinParagraphChars int           `yaml:"minParagraphChars" json:"minParagraphChars"`
    } `yaml:"fetch" json:"fetch"`

    Chunk struct {
        MaxSize int `yaml:"maxSize" json:"maxSize"`
    } `yaml:"chunk" json:"chunk"`

    LLM struct {
        BaseURL        string   `yaml:"base" json:"base"`
        Model          string   `yaml:"model" json:"model"`
        APIKey         string   `yaml:"key" json:"key"`
        Temperature    *float32 `yaml:"temperature" json:"temperature"`
        MaxTokens      int      `yaml:"maxTokens" json:"maxTokens"`
        SummaryWords   int      `yaml:"summaryWords" json:"summaryWords"`
        SystemPrompt   string   `yaml:"systemPrompt" json:"systemPrompt"`
        MaxConcurrent  int      `yaml:"maxConcurrent" json:"maxConcurrent"`
    } `yaml:"llm" json:"llm"`

    Verbose   bool   `yaml:"verbose" json:"verbose"`
    LogFormat string `yaml:"logFormat" json:"logFormat"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
    var fc FileConfig
    b, err := os.ReadFile(path)
    if err != nil {
        return fc, err
    }
    switch ext := filepath.Ext(path); ext {
    case ".yaml", ".yml":
        if err := yaml.Unmarshal(b, &fc); err != nil {
            return fc, fmt.Errorf("parse yaml: %w", err)
        }
    case ".json":
        if err := json.Unmarshal(b, &fc); err != nil {
            return fc, fmt.Errorf("parse json: %w", err)
        }
    default:
        // Try YAML then JSON
        if err := yaml.Unmarshal(b, &fc); err != nil {
            if jerr := json.Unmarshal(b, &fc); jerr != nil {
                return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
            }
        }
    }
    return fc, nil
}

// ApplyFileConfig overlays every value the file sets onto cfg. It runs after
// Defaults and before env and flags, which both take precedence over it.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
    if cfg == nil { return }
    setStr := func(dst *string, v string) {
        if strings.TrimSpace(v) != "" { *dst = v }
    }
    setInt := func(dst *int, v int) {
        if v != 0 { *dst = v }
    }
    setDur := func(dst *time.Duration, v time.Duration) {
        if v != 0 { *dst = v }
    }
    setDurPtr := func(dst *time.Duration, v *time.Duration) {
        if v != nil { *dst = *v }
    }

    setStr(&cfg.Addr, fc.Addr)
    setDurPtr(&cfg.RequestTimeout, fc.RequestTimeout)
    setDurPtr(&cfg.HTTPTimeout, fc.HTTPTimeout)

    setStr(&cfg.DefaultEngine, fc.Search.Engine)
    setInt(&cfg.TopN, fc.Search.TopN)
    setStr(&cfg.GoogleAPIKey, fc.Google.Key)
    setStr(&cfg.GoogleCX, fc.Google.CX)
    setStr(&cfg.GoogleEndpoint, fc.Google.Endpoint)
    setStr(&cfg.BingAPIKey, fc.Bing.Key)
    setStr(&cfg.BingEndpoint, fc.Bing.Endpoint)
    setStr(&cfg.BingMarket, fc.Bing.Market)
    setStr(&cfg.SearxURL, fc.Searx.URL)
    setStr(&cfg.SearxKey, fc.Searx.Key)

    setDur(&cfg.FetchTimeout, fc.Fetch.Timeout)
    if fc.Fetch.MaxBytes != 0 { cfg.FetchMaxBytes = fc.Fetch.MaxBytes }
    setInt(&cfg.FetchMaxConcurrent, fc.Fetch.MaxConcurrent)
    if fc.Fetch.RotateUA != nil { cfg.RotateUserAgent = *fc.Fetch.RotateUA }
    setStr(&cfg.UserAgent, fc.Fetch.UserAgent)
    setInt(&cfg.MinParagraphChars, fc.Fetch.MinParagraphChars)

    setInt(&cfg.MaxChunkSize, fc.Chunk.MaxSize)

    setStr(&cfg.LLMBaseURL, fc.LLM.BaseURL)
    setStr(&cfg.LLMModel, fc.LLM.Model)
    setStr(&cfg.LLMAPIKey, fc.LLM.APIKey)
    if fc.LLM.Temperature != nil { cfg.LLMTemperature = *fc.LLM.Temperature }
    setInt(&cfg.LLMMaxTokens, fc.LLM.MaxTokens)
    setInt(&cfg.SummaryWords, fc.LLM.SummaryWords)
    setStr(&cfg.SummarySystemPrompt, fc.LLM.SystemPrompt)
    setInt(&cfg.SummarizeMaxConcurrent, fc.LLM.MaxConcurrent)

    if fc.Verbose { cfg.Verbose = true }
    setStr(&cfg.LogFormat, fc.LogFormat)
}

// ValidateConfig performs minimal schema validation. Provider credentials are
// not checked here; a missing key surfaces when its engine is first used.
func ValidateConfig(cfg Config) error {
    if strings.TrimSpace(cfg.Addr) == "" {
        return errors.New("config: listen address is required")
    }
    if strings.TrimSpace(cfg.LLMModel) == "" {
        return errors.New("config: llm.model is required (or set LLM_MODEL)")
    }
    if _, err := search.ParseEngine(cfg.DefaultEngine); err != nil {
        return fmt.Errorf("config: %w", err)
    }
    if cfg.TopN < 0 || cfg.MaxChunkSize < 0 || cfg.MinParagraphChars < 0 || cfg.FetchMaxBytes < 0 {
        return errors.New("config: negative limits are not allowed")
    }
    if cfg.FetchMaxConcurrent < 0 || cfg.SummarizeMaxConcurrent < 0 || cfg.LLMMaxTokens < 0 {
        return errors.New("config: negative limits are not allowed")
    }
    if cfg.RequestTimeout < 0 || cfg.HTTPTimeout < 0 || cfg.FetchTimeout < 0 {
        return errors.New("config: negative timeouts are not allowed")
    }
    switch strings.ToLower(cfg.LogFormat) {
    case "", "console", "json":
    default:
        return fmt.Errorf("config: unknown log format %q (console or json)", cfg.LogFormat)
    }
    return nil
}
