package extract

import (
    "bytes"
    "fmt"
    "strings"
    "unicode/utf8"

    "github.com/PuerkitoBio/goquery"
    "golang.org/x/net/html"
    "golang.org/x/text/unicode/norm"
)

// DefaultMinParagraphChars is the length a paragraph must exceed to count as
// readable content rather than navigation or boilerplate.
const DefaultMinParagraphChars = 100

// Document is the readable content of one HTML page.
type Document struct {
    Title      string
    Paragraphs []string
    // Text is Paragraphs joined in document order with "\n".
    Text string
}

// Paragraphs parses HTML and keeps the text of every <p> element whose
// normalized length in characters is strictly greater than minChars.
// Paragraphs inside nav, footer, aside and consent banners are skipped.
func Paragraphs(input []byte, minChars int) (Document, error) {
    root, err := html.Parse(bytes.NewReader(input))
    if err != nil {
        return Document{}, fmt.Errorf("parse html: %w", err)
    }
    doc := goquery.NewDocumentFromNode(root)

    out := Document{Title: collapseSpaces(strings.TrimSpace(doc.Find("head title").First().Text()))}
    doc.Find("p").Each(func(_ int, s *goquery.Selection) {
        if insideBoilerplate(s) {
            return
        }
        text := normalizeText(s.Text())
        if utf8.RuneCountInString(text) <= minChars {
            return
        }
        out.Paragraphs = append(out.Paragraphs, text)
    })
    out.Text = strings.Join(out.Paragraphs, "\n")
    return out, nil
}

func insideBoilerplate(s *goquery.Selection) bool {
    if s.Closest("nav, footer, aside, script, style, noscript").Length() > 0 {
        return true
    }
    // Page-level wrappers often carry consent state classes; only containers
    // below the main content roots count as banners.
    for _, n := range s.Parents().Nodes {
        if isContentRoot(n) {
            break
        }
        if isBoilerplateContainer(n) {
            return true
        }
    }
    return false
}

func isContentRoot(n *html.Node) bool {
    if n == nil || n.Type != html.ElementNode {
        return false
    }
    switch strings.ToLower(n.Data) {
    case "html", "body", "main", "article":
        return true
    }
    return false
}

// isBoilerplateContainer returns true if the element looks like a cookie/consent banner.
func isBoilerplateContainer(n *html.Node) bool {
    if n == nil || n.Type != html.ElementNode {
        return false
    }
    for _, attr := range n.Attr {
        key := strings.ToLower(attr.Key)
        if key != "id" && key != "class" && !strings.HasPrefix(key, "data-") && key != "aria-label" && key != "role" {
            continue
        }
        if containsAny(strings.ToLower(attr.Val), []string{"cookie", "consent", "gdpr"}) {
            return true
        }
    }
    return false
}

func containsAny(s string, needles []string) bool {
    for _, n := range needles {
        if strings.Contains(s, n) {
            return true
        }
    }
    return false
}

func normalizeText(s string) string {
    return collapseSpaces(strings.TrimSpace(norm.NFC.String(s)))
}

func collapseSpaces(s string) string {
    var b strings.Builder
    b.Grow(len(s))
    lastSpace := false
    for _, r := range s {
        if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\u00a0' {
            if !lastSpace {
                b.WriteByte(' ')
                lastSpace = true
            }
            continue
        }
        b.WriteRune(r)
        lastSpace = false
    }
    return b.String()
}
