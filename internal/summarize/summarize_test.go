package summarize

import (
    "context"
    "errors"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    openai "github.com/sashabaranov/go-openai"

    "github.com/hyperifyio/gosummarize/internal/errs"
    "github.com/hyperifyio/gosummarize/internal/llm"
)

type capturingClient struct {
    calls   int
    lastReq openai.ChatCompletionRequest
    content string
    err     error
}

func (c *capturingClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
    c.calls++
    c.lastReq = req
    if c.err != nil {
        return openai.ChatCompletionResponse{}, c.err
    }
    return openai.ChatCompletionResponse{
        Choices: []openai.ChatCompletionChoice{{
            Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: c.content},
        }},
    }, nil
}

func TestSummarize_SendsOneRequestWithInstruction(t *testing.T) {
    cc := &capturingClient{content: "  short summary \n"}
    s := &Summarizer{Client: cc, Model: "test-model"}
    out, err := s.Summarize(context.Background(), "long text about ownership")
    if err != nil {
        t.Fatalf("summarize error: %v", err)
    }
    if out.Text != "short summary" {
        t.Fatalf("unexpected summary %q", out.Text)
    }
    if cc.calls != 1 {
        t.Fatalf("expected exactly one call, got %d", cc.calls)
    }
    if len(cc.lastReq.Messages) != 2 {
        t.Fatalf("expected system and user messages")
    }
    if sys := cc.lastReq.Messages[0]; sys.Role != openai.ChatMessageRoleSystem || !strings.Contains(sys.Content, "about 200 words") {
        t.Fatalf("unexpected system message: %+v", sys)
    }
    if user := cc.lastReq.Messages[1]; user.Role != openai.ChatMessageRoleUser || user.Content != "long text about ownership" {
        t.Fatalf("unexpected user message: %+v", user)
    }
    if cc.lastReq.Temperature <= 0 || cc.lastReq.Temperature > 0.001 {
        t.Fatalf("expected near-zero temperature, got %v", cc.lastReq.Temperature)
    }
}

func TestSummarize_CustomPromptAndWords(t *testing.T) {
    s := &Summarizer{TargetWords: 50}
    if !strings.Contains(s.SystemMessage(), "about 50 words") {
        t.Fatalf("expected target words in prompt: %q", s.SystemMessage())
    }
    s.SystemPrompt = "Be brief."
    if s.SystemMessage() != "Be brief." {
        t.Fatalf("expected override prompt")
    }
}

func TestSummarize_EmptyInputMakesNoCall(t *testing.T) {
    cc := &capturingClient{content: "x"}
    s := &Summarizer{Client: cc, Model: "m"}
    _, err := s.Summarize(context.Background(), " \n\t ")
    if !errors.Is(err, errs.ErrInvalidArgument) {
        t.Fatalf("expected invalid argument, got %v", err)
    }
    if cc.calls != 0 {
        t.Fatalf("expected no network call, got %d", cc.calls)
    }
}

func TestSummarize_MissingConfiguration(t *testing.T) {
    _, err := (&Summarizer{Client: &capturingClient{}}).Summarize(context.Background(), "text")
    if !errors.Is(err, errs.ErrConfiguration) {
        t.Fatalf("expected configuration error for missing model, got %v", err)
    }
    _, err = (&Summarizer{Client: &capturingClient{}, Model: "m", RequireAPIKey: true}).Summarize(context.Background(), "text")
    if !errors.Is(err, errs.ErrConfiguration) || !strings.Contains(err.Error(), "LLM_API_KEY") {
        t.Fatalf("expected configuration error for missing key, got %v", err)
    }
}

func TestSummarize_EmptyChoicesIsBadResponse(t *testing.T) {
    cc := &capturingClient{content: "   "}
    _, err := (&Summarizer{Client: cc, Model: "m"}).Summarize(context.Background(), "text")
    if !errors.Is(err, errs.ErrBadUpstreamResponse) {
        t.Fatalf("expected bad upstream response, got %v", err)
    }
}

func TestSummarize_APIErrorMapsToUpstream(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.Header().Set("Content-Type", "application/json")
        w.WriteHeader(http.StatusTooManyRequests)
        _, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"rate_limit","code":"rate_limit_exceeded"}}`))
    }))
    defer srv.Close()

    p := llm.NewOpenAIProvider("k", srv.URL+"/v1", srv.Client())
    _, err := (&Summarizer{Client: p, Model: "m"}).Summarize(context.Background(), "text")
    var e *errs.Error
    if !errors.As(err, &e) || e.Kind != errs.KindUpstreamHTTP || e.Status != http.StatusTooManyRequests || e.Stage != errs.StageSummarize {
        t.Fatalf("expected upstream 429 in summarize stage, got %v", err)
    }
    if !strings.Contains(e.Detail, "Rate limit reached") {
        t.Fatalf("expected upstream message, got %q", e.Detail)
    }
}

func TestSummarize_NetworkErrorMapsToNetwork(t *testing.T) {
    srv := httptest.NewServer(http.NotFoundHandler())
    base := srv.URL
    srv.Close()

    p := llm.NewOpenAIProvider("k", base+"/v1", nil)
    _, err := (&Summarizer{Client: p, Model: "m"}).Summarize(context.Background(), "text")
    if !errors.Is(err, errs.ErrNetwork) {
        t.Fatalf("expected network error for closed server, got %v", err)
    }
}

func TestSummarize_OversizedInputStillSent(t *testing.T) {
    cc := &capturingClient{content: "ok"}
    s := &Summarizer{Client: cc, Model: "gpt-oss-20b"}
    if _, err := s.Summarize(context.Background(), strings.Repeat("word ", 10000)); err != nil {
        t.Fatalf("oversized input must still be sent, got %v", err)
    }
    if cc.calls != 1 {
        t.Fatalf("expected one call, got %d", cc.calls)
    }
    if s.ReservedOutput() != DefaultReservedOutput {
        t.Fatalf("expected default output reservation")
    }
}
