package extract

// Extractor defines a minimal interface for content extraction strategies.
// Implementations can swap readability tactics without changing callers.
type Extractor interface {
    Extract(input []byte) (Document, error)
}

// ParagraphExtractor keeps paragraphs longer than MinChars. Zero MinChars
// means DefaultMinParagraphChars.
type ParagraphExtractor struct {
    MinChars int
}

func (p ParagraphExtractor) Extract(input []byte) (Document, error) {
    minChars := p.MinChars
    if minChars <= 0 {
        minChars = DefaultMinParagraphChars
    }
    return Paragraphs(input, minChars)
}
