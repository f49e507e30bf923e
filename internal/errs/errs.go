package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure so callers can tell "no search results" apart
// from "a page was unreachable" or "the model call failed".
type Kind string

const (
	KindInvalidArgument     Kind = "invalid_argument"
	KindUpstreamHTTP        Kind = "upstream_http"
	KindNetwork             Kind = "network"
	KindNoContentFound      Kind = "no_content_found"
	KindNoResultsFound      Kind = "no_results_found"
	KindConfiguration       Kind = "configuration"
	KindBadUpstreamResponse Kind = "bad_upstream_response"
)

// Stage names the pipeline step that produced an error.
type Stage string

const (
	StageSearch    Stage = "search"
	StageFetch     Stage = "fetch"
	StageSummarize Stage = "summarize"
	StagePipeline  Stage = "pipeline"
)

// Error is the single error type surfaced by the pipeline packages.
type Error struct {
	Kind  Kind
	Stage Stage
	// Status is the upstream HTTP status when one was received.
	Status int
	// Detail is a short human-readable message, usually upstream text.
	Detail string
	Err    error
}

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrInvalidArgument     = &Error{Kind: KindInvalidArgument}
	ErrUpstreamHTTP        = &Error{Kind: KindUpstreamHTTP}
	ErrNetwork             = &Error{Kind: KindNetwork}
	ErrNoContentFound      = &Error{Kind: KindNoContentFound}
	ErrNoResultsFound      = &Error{Kind: KindNoResultsFound}
	ErrConfiguration       = &Error{Kind: KindConfiguration}
	ErrBadUpstreamResponse = &Error{Kind: KindBadUpstreamResponse}
)

func (e *Error) Error() string {
	var b strings.Builder
	if e.Stage != "" {
		b.WriteString(string(e.Stage))
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil && (e.Detail == "" || !strings.Contains(e.Detail, e.Err.Error())) {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind, and on Stage when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Stage == "" || t.Stage == e.Stage
}

// New builds an *Error with a formatted detail.
func New(kind Kind, stage Stage, format string, args ...any) *Error {
	return &Error{Kind: kind, Stage: stage, Detail: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error around cause.
func Wrap(kind Kind, stage Stage, cause error, detail string) *Error {
	return &Error{Kind: kind, Stage: stage, Detail: detail, Err: cause}
}

// Upstream builds an UpstreamHTTP error carrying the status and a bounded
// excerpt of the response body.
func Upstream(stage Stage, status int, body string) *Error {
	return &Error{Kind: KindUpstreamHTTP, Stage: stage, Status: status, Detail: Truncate(strings.TrimSpace(body), 512)}
}

// WithStage returns err tagged with stage when it is an *Error without one.
// Other errors are returned unchanged.
func WithStage(err error, stage Stage) error {
	var e *Error
	if !errors.As(err, &e) || e.Stage != "" {
		return err
	}
	cp := *e
	cp.Stage = stage
	return &cp
}

// KindOf reports the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
