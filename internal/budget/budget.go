package budget

import (
    "math"
    "strings"
    "unicode/utf8"
)

// EstimateTokensFromChars converts a character count into an estimated token
// count using a conservative heuristic (~4 chars per token in English). The
// result is always at least 1 when chars > 0.
func EstimateTokensFromChars(charCount int) int {
    if charCount <= 0 {
        return 0
    }
    return int(math.Ceil(float64(charCount) / 4.0))
}

// EstimateTokens returns the estimated token count of a string, counted in runes.
func EstimateTokens(s string) int {
    return EstimateTokensFromChars(utf8.RuneCountInString(s))
}

// EstimatePromptTokens estimates the tokens of one system plus one user message.
func EstimatePromptTokens(system, user string) int {
    return EstimateTokens(system) + EstimateTokens(user)
}

// ModelContextTokens returns an estimated maximum context window for a given
// model name. Unknown models fall back to a conservative default.
func ModelContextTokens(modelName string) int {
    name := strings.ToLower(strings.TrimSpace(modelName))
    if name == "" {
        return defaultContext
    }
    if v, ok := knownModelMax[name]; ok {
        return v
    }
    for _, s := range sizeSuffixes {
        if strings.HasSuffix(name, s.suffix) {
            return s.tokens
        }
    }
    if strings.Contains(name, "-mini") {
        // Many "mini" models expose large contexts nowadays, assume 128k.
        return 128_000
    }
    return defaultContext
}

// HeadroomTokens is subtracted from the context to absorb tokenizer and
// message framing error: the larger of 5% of the window or 512 tokens.
func HeadroomTokens(modelName string) int {
    dyn := int(math.Ceil(float64(ModelContextTokens(modelName)) * 0.05))
    if dyn < 512 {
        return 512
    }
    return dyn
}

// Remaining returns the input tokens left after the prompt, the output
// reservation and headroom. It is never negative.
func Remaining(modelName string, reservedForOutput, promptTokens int) int {
    if reservedForOutput < 0 {
        reservedForOutput = 0
    }
    left := ModelContextTokens(modelName) - HeadroomTokens(modelName) - reservedForOutput - promptTokens
    if left < 0 {
        return 0
    }
    return left
}

// Fits reports whether a system+user prompt fits the model with room for
// reservedForOutput completion tokens.
func Fits(modelName, system, user string, reservedForOutput int) bool {
    return Remaining(modelName, reservedForOutput, EstimatePromptTokens(system, user)) > 0
}

// MaxChunkChars is the largest chunk size, in characters, whose estimated
// tokens still fit next to the system prompt and the output reservation.
func MaxChunkChars(modelName, system string, reservedForOutput int) int {
    return 4 * Remaining(modelName, reservedForOutput, EstimateTokens(system))
}

const defaultContext = 8192

// knownModelMax contains rough context sizes for common model identifiers.
var knownModelMax = map[string]int{
    "gpt-4o":             128_000,
    "gpt-4o-mini":        128_000,
    "gpt-4-turbo":        128_000,
    "gpt-4.1":            1_000_000,
    "gpt-4.1-mini":       1_000_000,
    "gpt-3.5-turbo":      16_384,
    "llama-3":            8_192,
    "llama-3.1":          128_000,
    "openai/gpt-oss-20b": 4_096,
    "gpt-oss-20b":        4_096,
}

var sizeSuffixes = []struct {
    suffix string
    tokens int
}{
    {"1m", 1_000_000},
    {"512k", 512_000},
    {"200k", 200_000},
    {"128k", 128_000},
    {"32k", 32_768},
    {"16k", 16_384},
}
