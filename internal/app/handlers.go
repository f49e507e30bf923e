package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/hyperifyio/gosummarize/internal/errs"
	"github.com/hyperifyio/gosummarize/internal/pipeline"
	"github.com/hyperifyio/gosummarize/internal/search"
)

const (
	requestIDHeader = "X-Request-Id"

	// defaultSearchLimit matches one page of Google and Bing results.
	defaultSearchLimit = 10
	// defaultScrapePreviewChars keeps /scrape responses short unless asked otherwise.
	defaultScrapePreviewChars = 1000
	maxSummarizeBodyBytes     = 8 << 20
)

// renderPDF is swapped in tests to simulate a renderer failure.
var renderPDF = writeResultPDF

type article struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

type searchResponse struct {
	Query    string    `json:"query"`
	Engine   string    `json:"engine"`
	Articles []article `json:"articles"`
}

type scrapeResponse struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

type summarizeRequest struct {
	Content string `json:"content"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
}

type pipelineResponse struct {
	Summary string   `json:"summary"`
	Topic   string   `json:"topic"`
	Engine  string   `json:"engine"`
	Sources []string `json:"sources"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

// Handler returns the routed HTTP surface wrapped with request IDs and
// access logging.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /search", a.handleSearch)
	mux.HandleFunc("GET /scrape", a.handleScrape)
	mux.HandleFunc("POST /summarize", a.handleSummarize)
	mux.HandleFunc("GET /search_scrape_summarize", a.handleSearchScrapeSummarize)
	mux.HandleFunc("GET /healthz", a.handleHealth)

	var h http.Handler = mux
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})(h)
	h = requestID(h)
	h = hlog.RemoteAddrHandler("remote")(h)
	h = hlog.NewHandler(a.logger)(h)
	return h
}

// requestID tags the response and the request logger with an ID, keeping a
// caller-supplied one when present.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("req_id", id)
		})
		next.ServeHTTP(w, r)
	})
}

func (a *App) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	engine, err := a.engineParam(q.Get("engine"))
	if err != nil {
		a.writeError(w, r, "error", err)
		return
	}
	limit, err := intParam(q.Get("limit"), defaultSearchLimit, "limit")
	if err != nil {
		a.writeError(w, r, "error", err)
		return
	}
	topic := q.Get("topic")
	results, err := a.search.Search(r.Context(), topic, engine, limit)
	if err != nil {
		a.writeError(w, r, "error", err)
		return
	}
	resp := searchResponse{Query: topic, Engine: string(engine), Articles: make([]article, 0, len(results))}
	for _, res := range results {
		resp.Articles = append(resp.Articles, article{Title: res.Title, Link: res.URL})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) handleScrape(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target := strings.TrimSpace(q.Get("url"))
	if target == "" {
		a.writeError(w, r, "detail", errs.New(errs.KindInvalidArgument, errs.StageFetch, "url is required"))
		return
	}
	maxChars, err := intParam(q.Get("max_chars"), defaultScrapePreviewChars, "max_chars")
	if err != nil {
		a.writeError(w, r, "detail", err)
		return
	}
	page, err := a.scraper.Extract(r.Context(), target)
	if err != nil {
		a.writeError(w, r, "detail", err)
		return
	}
	writeJSON(w, http.StatusOK, scrapeResponse{URL: page.URL, Title: page.Title, Content: firstRunes(page.Text, maxChars)})
}

func (a *App) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var body summarizeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSummarizeBodyBytes))
	if err := dec.Decode(&body); err != nil {
		a.writeError(w, r, "detail", errs.Wrap(errs.KindInvalidArgument, errs.StageSummarize, err, "decode request body"))
		return
	}
	sum, err := a.summarizer.Summarize(r.Context(), body.Content)
	if err != nil {
		a.writeError(w, r, "detail", err)
		return
	}
	writeJSON(w, http.StatusOK, summarizeResponse{Summary: sum.Text})
}

func (a *App) handleSearchScrapeSummarize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	engine, err := a.engineParam(q.Get("engine"))
	if err != nil {
		a.writeError(w, r, "detail", err)
		return
	}
	topN, err := intParam(q.Get("top_n"), a.cfg.TopN, "top_n")
	if err != nil {
		a.writeError(w, r, "detail", err)
		return
	}
	chunkSize, err := intParam(q.Get("chunk_size"), a.cfg.MaxChunkSize, "chunk_size")
	if err != nil {
		a.writeError(w, r, "detail", err)
		return
	}
	res, err := a.pipeline.Run(r.Context(), pipeline.Request{
		Topic:        q.Get("topic"),
		Engine:       engine,
		TopN:         topN,
		MaxChunkSize: chunkSize,
	})
	if err != nil {
		a.writeError(w, r, "detail", err)
		return
	}
	if strings.EqualFold(q.Get("format"), "pdf") {
		var buf bytes.Buffer
		if err := renderPDF(&buf, res); err != nil {
			a.writeError(w, r, "detail", err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", pdfFilename(res.Topic)))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		_, _ = buf.WriteTo(w)
		return
	}
	writeJSON(w, http.StatusOK, pipelineResponse{
		Summary: res.Summary.Text,
		Topic:   res.Topic,
		Engine:  string(res.Engine),
		Sources: res.Sources,
	})
}

func (a *App) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: BuildVersion, Commit: BuildCommit})
}

// engineParam parses the engine query value, falling back to the configured default.
func (a *App) engineParam(v string) (search.Engine, error) {
	if strings.TrimSpace(v) == "" {
		v = a.cfg.DefaultEngine
	}
	return search.ParseEngine(v)
}

// writeError maps err to a status and writes {field: message, kind: kind}.
// The search endpoint names the message field "error"; the others use "detail".
func (a *App) writeError(w http.ResponseWriter, r *http.Request, field string, err error) {
	status := statusFor(err)
	kind := errs.KindOf(err)
	if kind == "" {
		kind = "internal"
	}
	ev := hlog.FromRequest(r).Warn()
	if status >= http.StatusInternalServerError {
		ev = hlog.FromRequest(r).Error()
	}
	ev.Err(err).Str("kind", string(kind)).Int("status", status).Msg("request failed")
	writeJSON(w, status, map[string]string{field: err.Error(), "kind": string(kind)})
}

// statusFor maps an error kind to the HTTP status returned to clients.
func statusFor(err error) int {
	var e *errs.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case errs.KindInvalidArgument:
		return http.StatusBadRequest
	case errs.KindNoResultsFound:
		return http.StatusNotFound
	case errs.KindNoContentFound:
		return http.StatusUnprocessableEntity
	case errs.KindUpstreamHTTP, errs.KindBadUpstreamResponse:
		return http.StatusBadGateway
	case errs.KindNetwork:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// intParam parses a non-negative integer query value; empty yields def.
func intParam(v string, def int, name string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errs.New(errs.KindInvalidArgument, errs.StagePipeline, "%s must be a non-negative integer, got %q", name, v)
	}
	return n, nil
}

// firstRunes returns at most n runes of s. Zero means no limit.
func firstRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
