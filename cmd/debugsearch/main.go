package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/gosummarize/internal/app"
	"github.com/hyperifyio/gosummarize/internal/search"
)

// debugsearch runs one query against a configured engine and prints the
// mapped results. Credentials come from .env and the environment.
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	engineName := flag.String("engine", "", "Search engine: google, bing or searxng (default from SEARCH_ENGINE)")
	limit := flag.Int("n", 5, "Number of results")
	flag.Parse()

	q := "What is love?"
	if flag.NArg() > 0 {
		q = strings.Join(flag.Args(), " ")
	}

	cfg := app.Defaults()
	if err := app.LoadEnvFiles(".env"); err != nil {
		log.Fatal().Err(err).Msg("load .env")
	}
	if err := app.ApplyEnv(&cfg); err != nil {
		log.Fatal().Err(err).Msg("read environment")
	}
	if *engineName == "" {
		*engineName = cfg.DefaultEngine
	}
	engine, err := search.ParseEngine(*engineName)
	if err != nil {
		log.Fatal().Err(err).Msg("engine")
	}

	registry := app.NewSearchRegistry(cfg, &http.Client{Timeout: 20 * time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()
	res, err := registry.Search(ctx, q, engine, *limit)
	if err != nil {
		log.Error().Err(err).Str("engine", string(engine)).Msg("search failed")
		os.Exit(1)
	}
	for i, r := range res {
		fmt.Printf("%d. %s - %s\n", i+1, r.Title, r.URL)
	}
}
