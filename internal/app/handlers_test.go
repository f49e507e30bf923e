package app

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "io"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/rs/zerolog"

    "github.com/hyperifyio/gosummarize/internal/errs"
    "github.com/hyperifyio/gosummarize/internal/pipeline"
    "github.com/hyperifyio/gosummarize/internal/scrape"
    "github.com/hyperifyio/gosummarize/internal/search"
    "github.com/hyperifyio/gosummarize/internal/summarize"
)

type stubSearch struct {
    calls      int
    lastQuery  string
    lastEngine search.Engine
    results    []search.Result
    err        error
}

func (s *stubSearch) Search(_ context.Context, q string, e search.Engine, _ int) ([]search.Result, error) {
    s.calls++
    s.lastQuery, s.lastEngine = q, e
    return s.results, s.err
}

type stubScraper struct {
    page scrape.Page
    err  error
}

func (s *stubScraper) Extract(_ context.Context, url string) (scrape.Page, error) {
    if s.err != nil {
        return scrape.Page{}, s.err
    }
    p := s.page
    p.URL = url
    return p, nil
}

type stubSummarizer struct {
    lastText string
    out      string
    err      error
}

func (s *stubSummarizer) Summarize(_ context.Context, text string) (summarize.Summary, error) {
    s.lastText = text
    return summarize.Summary{Text: s.out}, s.err
}

type stubRunner struct {
    lastReq pipeline.Request
    res     pipeline.Result
    err     error
}

func (s *stubRunner) Run(_ context.Context, req pipeline.Request) (pipeline.Result, error) {
    s.lastReq = req
    return s.res, s.err
}

func newTestApp() (*App, *stubSearch, *stubScraper, *stubSummarizer, *stubRunner) {
    se, sc, su, ru := &stubSearch{}, &stubScraper{}, &stubSummarizer{}, &stubRunner{}
    return &App{
        cfg:        Defaults(),
        logger:     zerolog.Nop(),
        search:     se,
        scraper:    sc,
        summarizer: su,
        pipeline:   ru,
    }, se, sc, su, ru
}

func do(t *testing.T, h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
    t.Helper()
    req := httptest.NewRequest(method, target, bytes.NewReader(body))
    rec := httptest.NewRecorder()
    h.ServeHTTP(rec, req)
    return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
    t.Helper()
    var m map[string]any
    if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
        t.Fatalf("decode body %q: %v", rec.Body.String(), err)
    }
    return m
}

func TestSearchHandler_MapsArticles(t *testing.T) {
    a, se, _, _, _ := newTestApp()
    se.results = []search.Result{{Title: "Ownership", URL: "https://doc.rust-lang.org/book/ch04-01-what-is-ownership.html"}, {Title: "Borrowing", URL: "https://example.com/b"}}
    rec := do(t, a.Handler(), http.MethodGet, "/search?topic=rust+ownership&engine=Bing", nil)
    if rec.Code != http.StatusOK {
        t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
    }
    var resp searchResponse
    if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
        t.Fatalf("decode: %v", err)
    }
    if resp.Query != "rust ownership" || resp.Engine != "bing" || len(resp.Articles) != 2 || resp.Articles[0].Title != "Ownership" {
        t.Fatalf("unexpected response %+v", resp)
    }
    if se.lastEngine != search.EngineBing {
        t.Fatalf("expected bing engine, got %q", se.lastEngine)
    }
    if rec.Header().Get(requestIDHeader) == "" {
        t.Fatalf("expected a request id header")
    }
}

func TestSearchHandler_UnsupportedEngineMakesNoCall(t *testing.T) {
    a, se, _, _, _ := newTestApp()
    rec := do(t, a.Handler(), http.MethodGet, "/search?topic=x&engine=altavista", nil)
    if rec.Code != http.StatusBadRequest {
        t.Fatalf("expected 400, got %d", rec.Code)
    }
    m := decode(t, rec)
    if m["kind"] != string(errs.KindInvalidArgument) || !strings.Contains(m["error"].(string), "altavista") {
        t.Fatalf("unexpected error body %v", m)
    }
    if se.calls != 0 {
        t.Fatalf("search must not be called for unsupported engine")
    }
}

func TestSearchHandler_UpstreamError(t *testing.T) {
    a, se, _, _, _ := newTestApp()
    se.err = errs.Upstream(errs.StageSearch, http.StatusForbidden, "daily limit exceeded")
    rec := do(t, a.Handler(), http.MethodGet, "/search?topic=x", nil)
    if rec.Code != http.StatusBadGateway {
        t.Fatalf("expected 502, got %d", rec.Code)
    }
    m := decode(t, rec)
    if m["kind"] != string(errs.KindUpstreamHTTP) || !strings.Contains(m["error"].(string), "daily limit exceeded") {
        t.Fatalf("unexpected error body %v", m)
    }
    if se.lastEngine != search.EngineGoogle {
        t.Fatalf("expected default engine google, got %q", se.lastEngine)
    }
}

func TestScrapeHandler_PreviewAndFull(t *testing.T) {
    a, _, sc, _, _ := newTestApp()
    sc.page = scrape.Page{Title: "T", Text: strings.Repeat("é", 1500)}
    rec := do(t, a.Handler(), http.MethodGet, "/scrape?url=https://example.com/a", nil)
    if rec.Code != http.StatusOK {
        t.Fatalf("status=%d", rec.Code)
    }
    var resp scrapeResponse
    _ = json.Unmarshal(rec.Body.Bytes(), &resp)
    if resp.URL != "https://example.com/a" || resp.Title != "T" || len([]rune(resp.Content)) != 1000 {
        t.Fatalf("unexpected preview: url=%q title=%q runes=%d", resp.URL, resp.Title, len([]rune(resp.Content)))
    }
    rec = do(t, a.Handler(), http.MethodGet, "/scrape?url=https://example.com/a&max_chars=0", nil)
    _ = json.Unmarshal(rec.Body.Bytes(), &resp)
    if len([]rune(resp.Content)) != 1500 {
        t.Fatalf("expected full content, got %d runes", len([]rune(resp.Content)))
    }
}

func TestScrapeHandler_ErrorKinds(t *testing.T) {
    a, _, sc, _, _ := newTestApp()
    rec := do(t, a.Handler(), http.MethodGet, "/scrape", nil)
    if rec.Code != http.StatusBadRequest {
        t.Fatalf("missing url: expected 400, got %d", rec.Code)
    }
    sc.err = errs.New(errs.KindNoContentFound, errs.StageFetch, "no paragraph longer than 100 characters")
    rec = do(t, a.Handler(), http.MethodGet, "/scrape?url=https://example.com", nil)
    if rec.Code != http.StatusUnprocessableEntity {
        t.Fatalf("no content: expected 422, got %d", rec.Code)
    }
    if m := decode(t, rec); m["kind"] != string(errs.KindNoContentFound) || m["detail"] == nil {
        t.Fatalf("unexpected error body %v", m)
    }
    sc.err = errs.Wrap(errs.KindNetwork, errs.StageFetch, context.DeadlineExceeded, "get page")
    rec = do(t, a.Handler(), http.MethodGet, "/scrape?url=https://example.com", nil)
    if rec.Code != http.StatusGatewayTimeout {
        t.Fatalf("network: expected 504, got %d", rec.Code)
    }
}

func TestSummarizeHandler(t *testing.T) {
    a, _, _, su, _ := newTestApp()
    su.out = "tl;dr"
    rec := do(t, a.Handler(), http.MethodPost, "/summarize", []byte(`{"content":"a long article"}`))
    if rec.Code != http.StatusOK {
        t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
    }
    if m := decode(t, rec); m["summary"] != "tl;dr" {
        t.Fatalf("unexpected body %v", m)
    }
    if su.lastText != "a long article" {
        t.Fatalf("summarizer got %q", su.lastText)
    }

    rec = do(t, a.Handler(), http.MethodPost, "/summarize", []byte(`{not json`))
    if rec.Code != http.StatusBadRequest {
        t.Fatalf("bad json: expected 400, got %d", rec.Code)
    }

    su.err = errs.New(errs.KindConfiguration, errs.StageSummarize, "LLM_API_KEY is not set")
    rec = do(t, a.Handler(), http.MethodPost, "/summarize", []byte(`{"content":"x"}`))
    if rec.Code != http.StatusInternalServerError {
        t.Fatalf("config error: expected 500, got %d", rec.Code)
    }
    if m := decode(t, rec); m["kind"] != string(errs.KindConfiguration) || !strings.Contains(m["detail"].(string), "LLM_API_KEY") {
        t.Fatalf("unexpected error body %v", m)
    }

    rec = do(t, a.Handler(), http.MethodGet, "/summarize", nil)
    if rec.Code != http.StatusMethodNotAllowed {
        t.Fatalf("GET /summarize: expected 405, got %d", rec.Code)
    }
}

func TestPipelineHandler_PassesParameters(t *testing.T) {
    a, _, _, _, ru := newTestApp()
    ru.res = pipeline.Result{
        Topic:   "rust ownership",
        Engine:  search.EngineGoogle,
        Sources: []string{"https://a.example", "https://b.example"},
        Summary: summarize.Summary{Text: "Rust moves values."},
    }
    rec := do(t, a.Handler(), http.MethodGet, "/search_scrape_summarize?topic=rust+ownership&top_n=2&chunk_size=500", nil)
    if rec.Code != http.StatusOK {
        t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
    }
    var resp pipelineResponse
    _ = json.Unmarshal(rec.Body.Bytes(), &resp)
    if resp.Summary != "Rust moves values." || len(resp.Sources) != 2 || resp.Engine != "google" {
        t.Fatalf("unexpected response %+v", resp)
    }
    if ru.lastReq.Topic != "rust ownership" || ru.lastReq.TopN != 2 || ru.lastReq.MaxChunkSize != 500 || ru.lastReq.Engine != search.EngineGoogle {
        t.Fatalf("unexpected pipeline request %+v", ru.lastReq)
    }
}

func TestPipelineHandler_DefaultsAndErrors(t *testing.T) {
    a, _, _, _, ru := newTestApp()
    ru.err = errs.New(errs.KindNoResultsFound, errs.StagePipeline, "no search results")
    rec := do(t, a.Handler(), http.MethodGet, "/search_scrape_summarize?topic=zzz", nil)
    if rec.Code != http.StatusNotFound {
        t.Fatalf("expected 404, got %d", rec.Code)
    }
    if ru.lastReq.TopN != 3 || ru.lastReq.MaxChunkSize != 3000 {
        t.Fatalf("expected configured defaults, got %+v", ru.lastReq)
    }
    rec = do(t, a.Handler(), http.MethodGet, "/search_scrape_summarize?topic=zzz&top_n=-2", nil)
    if rec.Code != http.StatusBadRequest {
        t.Fatalf("negative top_n: expected 400, got %d", rec.Code)
    }
}

func TestPipelineHandler_PDF(t *testing.T) {
    a, _, _, _, ru := newTestApp()
    ru.res = pipeline.Result{Topic: "Go channels", Engine: search.EngineBing, Sources: []string{"https://go.dev"}, Titles: []string{"Go"}, Summary: summarize.Summary{Text: "Channels connect goroutines."}}
    rec := do(t, a.Handler(), http.MethodGet, "/search_scrape_summarize?topic=go+channels&format=pdf", nil)
    if rec.Code != http.StatusOK {
        t.Fatalf("status=%d", rec.Code)
    }
    if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
        t.Fatalf("content-type=%q", ct)
    }
    if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")) {
        t.Fatalf("expected a PDF body")
    }
    if !strings.Contains(rec.Header().Get("Content-Disposition"), "go-channels.pdf") {
        t.Fatalf("unexpected disposition %q", rec.Header().Get("Content-Disposition"))
    }
}

func TestPipelineHandler_PDFRenderFailure(t *testing.T) {
    orig := renderPDF
    renderPDF = func(w io.Writer, _ pipeline.Result) error {
        _, _ = w.Write([]byte("%PDF-1.3 partial"))
        return errors.New("render pdf: font missing")
    }
    defer func() { renderPDF = orig }()

    a, _, _, _, ru := newTestApp()
    ru.res = pipeline.Result{Topic: "Go channels", Engine: search.EngineBing, Summary: summarize.Summary{Text: "Channels."}}
    rec := do(t, a.Handler(), http.MethodGet, "/search_scrape_summarize?topic=go+channels&format=pdf", nil)
    if rec.Code != http.StatusInternalServerError {
        t.Fatalf("status=%d", rec.Code)
    }
    if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
        t.Fatalf("content-type=%q", ct)
    }
    if rec.Header().Get("Content-Disposition") != "" {
        t.Fatalf("failed render must not set a disposition")
    }
    if m := decode(t, rec); m["kind"] != "internal" || !strings.Contains(m["detail"].(string), "font missing") {
        t.Fatalf("unexpected body %v", m)
    }
}

func TestHealthAndRequestID(t *testing.T) {
    a, _, _, _, _ := newTestApp()
    req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
    req.Header.Set(requestIDHeader, "abc-123")
    rec := httptest.NewRecorder()
    a.Handler().ServeHTTP(rec, req)
    if rec.Code != http.StatusOK {
        t.Fatalf("status=%d", rec.Code)
    }
    if m := decode(t, rec); m["status"] != "ok" || m["version"] != BuildVersion {
        t.Fatalf("unexpected health body %v", m)
    }
    if rec.Header().Get(requestIDHeader) != "abc-123" {
        t.Fatalf("expected caller request id to be echoed")
    }
}

func TestStatusFor_UntypedErrorIs500(t *testing.T) {
    if got := statusFor(context.Canceled); got != http.StatusInternalServerError {
        t.Fatalf("expected 500, got %d", got)
    }
    if got := statusFor(errs.New(errs.KindBadUpstreamResponse, errs.StageSummarize, "x")); got != http.StatusBadGateway {
        t.Fatalf("expected 502, got %d", got)
    }
}
