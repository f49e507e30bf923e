package app

import (
    "fmt"
    "io"
    "strings"
    "unicode"

    "github.com/jung-kurt/gofpdf"

    "github.com/hyperifyio/gosummarize/internal/pipeline"
)

// writeResultPDF renders a one-page digest of a pipeline result: the topic as
// heading, the summary paragraphs, and the numbered sources as clickable links.
func writeResultPDF(w io.Writer, res pipeline.Result) error {
    pdf := gofpdf.New("P", "mm", "A4", "")
    // Core fonts are cp1252; translate so accented text survives.
    tr := pdf.UnicodeTranslatorFromDescriptor("")
    pdf.SetTitle(res.Topic, true)
    pdf.SetCreator("gosummarize "+BuildVersion, true)
    pdf.AddPage()

    pdf.SetFont("Helvetica", "B", 14)
    pdf.MultiCell(0, 8, tr(res.Topic), "", "L", false)
    pdf.SetFont("Helvetica", "", 9)
    pdf.CellFormat(0, 6, tr(fmt.Sprintf("Engine: %s", res.Engine)), "", 1, "L", false, 0, "")
    pdf.Ln(3)

    pdf.SetFont("Helvetica", "", 11)
    for _, para := range strings.Split(res.Summary.Text, "\n") {
        s := strings.TrimSpace(para)
        if s == "" {
            pdf.Ln(3)
            continue
        }
        pdf.MultiCell(0, 5, tr(s), "", "L", false)
    }

    if len(res.Sources) > 0 {
        pdf.Ln(5)
        pdf.SetFont("Helvetica", "B", 12)
        pdf.CellFormat(0, 8, "Sources", "", 1, "L", false, 0, "")
        pdf.SetFont("Helvetica", "", 10)
        for i, u := range res.Sources {
            label := u
            if i < len(res.Titles) && strings.TrimSpace(res.Titles[i]) != "" {
                label = res.Titles[i]
            }
            pdf.Write(5, fmt.Sprintf("%d. ", i+1))
            pdf.WriteLinkString(5, tr(label), u)
            pdf.Ln(6)
        }
    }

    if err := pdf.Error(); err != nil {
        return fmt.Errorf("render pdf: %w", err)
    }
    return pdf.Output(w)
}

// pdfFilename derives a safe attachment name from the topic.
func pdfFilename(topic string) string {
    var b strings.Builder
    dash := false
    for _, r := range strings.ToLower(topic) {
        if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
            b.WriteRune(r)
            dash = false
            continue
        }
        if !dash && b.Len() > 0 {
            b.WriteByte('-')
            dash = true
        }
    }
    name := strings.TrimSuffix(b.String(), "-")
    if name == "" {
        name = "summary"
    }
    if len(name) > 60 {
        name = strings.TrimSuffix(name[:60], "-")
    }
    return name + ".pdf"
}
