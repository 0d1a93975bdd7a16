package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/normabase/normabase/engine/legal"
)

const (
	extractorPDFPlaintext = "pdf_plaintext"
	extractorPDFRows      = "pdf_rows"
)

// extractPDF runs the plain-text extractor first and falls back to the
// row-based page walk when the primary errors out or yields an implausibly
// short result. Garbled PDFs are common enough in legislative archives that
// a short-but-nonempty fallback result is still returned for the caller to
// classify.
func extractPDF(data []byte) (legal.ExtractionResult, error) {
	text, err := pdfPlainText(data)
	if err == nil {
		text = normalizeText(text)
	}
	if err != nil || len(text) < minPlausibleChars {
		rowText, rowErr := pdfRowText(data)
		if rowErr != nil {
			if err != nil {
				return legal.ExtractionResult{}, fmt.Errorf("extract: pdf: %w (fallback: %v)", err, rowErr)
			}
			// Primary produced something, fallback could not improve on it.
			return buildResult(text, legal.FormatPDF, extractorPDFPlaintext), nil
		}
		return buildResult(normalizeText(rowText), legal.FormatPDF, extractorPDFRows), nil
	}
	return buildResult(text, legal.FormatPDF, extractorPDFPlaintext), nil
}

// pdfPlainText extracts the document's styled text stream in one pass. The
// underlying library panics on some malformed files; that is converted into
// an error so the fallback can run.
func pdfPlainText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract: pdf plaintext panicked: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("extract: open pdf: %w", err)
	}
	stream, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract: pdf plaintext: %w", err)
	}
	var sb strings.Builder
	if _, err := io.Copy(&sb, stream); err != nil {
		return "", fmt.Errorf("extract: read pdf stream: %w", err)
	}
	return sb.String(), nil
}

// pdfRowText walks pages row by row, skipping pages that fail individually.
// Slower, but tolerant of broken content streams.
func pdfRowText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract: pdf rows panicked: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("extract: open pdf: %w", err)
	}
	var parts []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, rowErr := page.GetTextByRow()
		if rowErr != nil {
			continue
		}
		var sb strings.Builder
		for _, row := range rows {
			for _, word := range row.Content {
				sb.WriteString(word.S)
				sb.WriteByte(' ')
			}
			sb.WriteByte('\n')
		}
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, "\n"), nil
}
