package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hyperifyio/gosummarize/internal/errs"
)

// Result represents a single search hit from any provider.
type Result struct {
	Title   string
	URL     string
	Snippet string
	Source  string // provider name for observability
}

// Provider is a minimal interface for search providers.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
	Name() string
}

// Engine selects a search backend.
type Engine string

const (
	EngineGoogle  Engine = "google"
	EngineBing    Engine = "bing"
	EngineSearxNG Engine = "searxng"

	DefaultEngine = EngineGoogle
)

// ParseEngine normalizes an engine name. Empty selects DefaultEngine.
func ParseEngine(s string) (Engine, error) {
	switch e := Engine(strings.ToLower(strings.TrimSpace(s))); e {
	case "":
		return DefaultEngine, nil
	case EngineGoogle, EngineBing, EngineSearxNG:
		return e, nil
	default:
		return "", errs.New(errs.KindInvalidArgument, errs.StageSearch, "unsupported search engine %q (use google, bing or searxng)", s)
	}
}

// Registry maps engines to providers. It is read-only after construction.
type Registry struct {
	providers map[Engine]Provider
}

// NewRegistry builds a registry from the given providers.
func NewRegistry(providers map[Engine]Provider) *Registry {
	r := &Registry{providers: make(map[Engine]Provider, len(providers))}
	for e, p := range providers {
		if p != nil {
			r.providers[e] = p
		}
	}
	return r
}

// Engines lists registered engines in name order.
func (r *Registry) Engines() []Engine {
	out := make([]Engine, 0, len(r.providers))
	for e := range r.providers {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Search runs query on engine. An engine with no provider fails with
// InvalidArgument before any network call.
func (r *Registry) Search(ctx context.Context, query string, engine Engine, limit int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errs.New(errs.KindInvalidArgument, errs.StageSearch, "empty query")
	}
	p, ok := r.providers[engine]
	if !ok {
		return nil, errs.New(errs.KindInvalidArgument, errs.StageSearch, "unsupported search engine %q", engine)
	}
	results, err := p.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%s search: %w", p.Name(), errs.WithStage(err, errs.StageSearch))
	}
	zerolog.Ctx(ctx).Debug().Str("engine", string(engine)).Str("query", query).Int("results", len(results)).Msg("search done")
	return results, nil
}
