package summarize

import (
    "context"
    "errors"
    "fmt"
    "math"
    "net"
    "strings"

    "github.com/rs/zerolog"
    openai "github.com/sashabaranov/go-openai"

    "github.com/hyperifyio/gosummarize/internal/budget"
    "github.com/hyperifyio/gosummarize/internal/errs"
    "github.com/hyperifyio/gosummarize/internal/llm"
)

const (
    DefaultTargetWords = 200
    DefaultModel       = "gpt-4o-mini"

    // DefaultReservedOutput is the completion room assumed when MaxTokens is unset.
    DefaultReservedOutput = 1024
)

// Summary is opaque generated text.
type Summary struct {
    Text string
}

// Summarizer condenses text with exactly one chat-completion call per Summarize.
type Summarizer struct {
    Client llm.Client
    Model  string
    // TargetWords sets the length asked for in the system prompt. Zero means 200.
    TargetWords int
    // SystemPrompt, when non-empty, overrides the default system message.
    SystemPrompt string
    Temperature  float32
    // MaxTokens caps the completion length. Zero leaves it to the server.
    MaxTokens int
    // RequireAPIKey makes a missing key a configuration error; set it when
    // talking to the public OpenAI endpoint.
    RequireAPIKey bool
    APIKey        string
}

// SystemMessage returns the instruction sent with every request.
func (s *Summarizer) SystemMessage() string {
    if strings.TrimSpace(s.SystemPrompt) != "" {
        return s.SystemPrompt
    }
    words := s.TargetWords
    if words <= 0 {
        words = DefaultTargetWords
    }
    return fmt.Sprintf("You are a precise assistant. Summarize the user's text in about %d words. Keep facts from the text only, and answer with the summary alone.", words)
}

// ReservedOutput is the completion budget used for context estimates.
func (s *Summarizer) ReservedOutput() int {
    if s.MaxTokens > 0 {
        return s.MaxTokens
    }
    return DefaultReservedOutput
}

// Summarize returns a condensed version of text. Empty input fails with
// InvalidArgument before any network call.
func (s *Summarizer) Summarize(ctx context.Context, text string) (Summary, error) {
    if strings.TrimSpace(text) == "" {
        return Summary{}, errs.New(errs.KindInvalidArgument, errs.StageSummarize, "nothing to summarize")
    }
    if s.Client == nil || strings.TrimSpace(s.Model) == "" {
        return Summary{}, errs.New(errs.KindConfiguration, errs.StageSummarize, "summarizer needs a model (LLM_MODEL)")
    }
    if s.RequireAPIKey && strings.TrimSpace(s.APIKey) == "" {
        return Summary{}, errs.New(errs.KindConfiguration, errs.StageSummarize, "LLM_API_KEY is not set")
    }

    sys := s.SystemMessage()
    if !budget.Fits(s.Model, sys, text, s.ReservedOutput()) {
        zerolog.Ctx(ctx).Warn().
            Str("model", s.Model).
            Int("estimated_tokens", budget.EstimatePromptTokens(sys, text)).
            Int("context_tokens", budget.ModelContextTokens(s.Model)).
            Msg("input may exceed the model context")
    }

    temp := s.Temperature
    if temp == 0 {
        // The client omits a zero temperature, which servers read as their default.
        temp = math.SmallestNonzeroFloat32
    }
    req := openai.ChatCompletionRequest{
        Model: s.Model,
        Messages: []openai.ChatCompletionMessage{
            {Role: openai.ChatMessageRoleSystem, Content: sys},
            {Role: openai.ChatMessageRoleUser, Content: text},
        },
        Temperature: temp,
        MaxTokens:   s.MaxTokens,
        N:           1,
    }
    resp, err := s.Client.CreateChatCompletion(ctx, req)
    if err != nil {
        return Summary{}, mapError(err)
    }
    if len(resp.Choices) == 0 {
        return Summary{}, errs.New(errs.KindBadUpstreamResponse, errs.StageSummarize, "model returned no choices")
    }
    out := strings.TrimSpace(resp.Choices[0].Message.Content)
    if out == "" {
        return Summary{}, errs.New(errs.KindBadUpstreamResponse, errs.StageSummarize, "model returned empty content (finish reason %q)", resp.Choices[0].FinishReason)
    }
    zerolog.Ctx(ctx).Debug().
        Int("input_chars", len(text)).
        Int("output_chars", len(out)).
        Int("prompt_tokens", resp.Usage.PromptTokens).
        Int("completion_tokens", resp.Usage.CompletionTokens).
        Msg("summarized")
    return Summary{Text: out}, nil
}

func mapError(err error) error {
    var apiErr *openai.APIError
    if errors.As(err, &apiErr) {
        e := errs.Upstream(errs.StageSummarize, apiErr.HTTPStatusCode, apiErr.Message)
        e.Err = err
        return e
    }
    var reqErr *openai.RequestError
    if errors.As(err, &reqErr) {
        e := errs.Upstream(errs.StageSummarize, reqErr.HTTPStatusCode, reqErr.Error())
        e.Err = err
        return e
    }
    var netErr net.Error
    if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
        return errs.Wrap(errs.KindNetwork, errs.StageSummarize, err, "chat completion")
    }
    return errs.Wrap(errs.KindBadUpstreamResponse, errs.StageSummarize, err, "chat completion")
}
