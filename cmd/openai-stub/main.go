package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// openai-stub is a deterministic OpenAI-compatible server for local runs of
// the summarizer without a real model. Every completion returns the first
// words of the user message.
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "test-model"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}

	log.Info().Str("addr", addr).Str("model", model).Msg("openai-stub listening")
	if err := http.ListenAndServe(addr, newMux(model)); err != nil {
		log.Fatal().Err(err).Msg("serve")
	}
}

func newMux(model string) *http.ServeMux {
	var seq atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, openai.ModelsList{Models: []openai.Model{{ID: model, Object: "model", OwnedBy: "stub"}}})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]string{"message": err.Error(), "type": "invalid_request_error"}})
			return
		}
		var user string
		for _, m := range req.Messages {
			if m.Role == openai.ChatMessageRoleUser {
				user = m.Content
			}
		}
		if strings.TrimSpace(user) == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]string{"message": "no user message", "type": "invalid_request_error"}})
			return
		}
		content := "Summary: " + firstWords(user, 24)
		writeJSON(w, http.StatusOK, openai.ChatCompletionResponse{
			ID:      fmt.Sprintf("chatcmpl-stub-%d", seq.Add(1)),
			Object:  "chat.completion",
			Created: time.Now().Unix(),
			Model:   model,
			Choices: []openai.ChatCompletionChoice{{
				Index:        0,
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
				FinishReason: openai.FinishReasonStop,
			}},
			Usage: openai.Usage{
				PromptTokens:     len(strings.Fields(user)),
				CompletionTokens: len(strings.Fields(content)),
				TotalTokens:      len(strings.Fields(user)) + len(strings.Fields(content)),
			},
		})
	})
	return mux
}

func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
