package chunk

import "unicode/utf8"

// Chunk is one contiguous piece of a larger text. Index gives reassembly order.
type Chunk struct {
	Index int
	Text  string
}

// Split partitions text into contiguous chunks of at most maxChunkSize runes.
// Concatenating the chunk texts in order yields text exactly. Empty input
// yields no chunks. A non-positive maxChunkSize yields a single chunk.
// Boundaries are not sentence-aware.
func Split(text string, maxChunkSize int) []Chunk {
	if text == "" {
		return nil
	}
	if maxChunkSize <= 0 {
		return []Chunk{{Index: 0, Text: text}}
	}
	n := utf8.RuneCountInString(text)
	out := make([]Chunk, 0, (n+maxChunkSize-1)/maxChunkSize)
	start, runes := 0, 0
	for i := range text {
		if runes == maxChunkSize {
			out = append(out, Chunk{Index: len(out), Text: text[start:i]})
			start, runes = i, 0
		}
		runes++
	}
	out = append(out, Chunk{Index: len(out), Text: text[start:]})
	return out
}

// Join concatenates chunk texts in slice order.
func Join(chunks []Chunk) string {
	size := 0
	for _, c := range chunks {
		size += len(c.Text)
	}
	b := make([]byte, 0, size)
	for _, c := range chunks {
		b = append(b, c.Text...)
	}
	return string(b)
}
