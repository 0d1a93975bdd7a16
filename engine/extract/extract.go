// Package extract normalizes heterogeneous raw document bytes (PDF, DOCX,
// HTML) into one plain-text stream plus extraction metadata. It performs no
// I/O; callers hand it bytes fetched elsewhere.
package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/normabase/normabase/engine/legal"
)

// ErrUnsupportedFormat is returned when neither the filename extension nor
// content sniffing yields a supported format. There is no fallback past it.
var ErrUnsupportedFormat = errors.New("extract: unsupported format")

// minPlausibleChars is the threshold below which a primary PDF extraction is
// considered failed and the resilient fallback runs.
const minPlausibleChars = 200

var (
	spaceRuns  = regexp.MustCompile(`[ \t]+`)
	crLineEnds = regexp.MustCompile(`\r\n|\r`)
	blankRuns  = regexp.MustCompile(`\n{3,}`)
)

// Extract dispatches on the filename extension, falling back to content
// sniffing when the extension is unrecognized. An implausibly short result
// is not an error; classification belongs to the caller.
func Extract(data []byte, filename string) (legal.ExtractionResult, error) {
	switch {
	case hasSuffix(filename, ".pdf"):
		return extractPDF(data)
	case hasSuffix(filename, ".docx"):
		return extractDOCX(data)
	case hasSuffix(filename, ".html"), hasSuffix(filename, ".htm"):
		return ExtractHTML(data, "")
	}
	switch mt := mimetype.Detect(data); {
	case mt.Is("application/pdf"):
		return extractPDF(data)
	case mt.Is("application/vnd.openxmlformats-officedocument.wordprocessingml.document"):
		return extractDOCX(data)
	case mt.Is("text/html"):
		return ExtractHTML(data, "")
	}
	return legal.ExtractionResult{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
}

func hasSuffix(name, suffix string) bool {
	return strings.HasSuffix(strings.ToLower(name), suffix)
}

// normalizeText applies the shared normalization used for every source
// format: NBSP to space, collapsed space runs, LF line endings, at most one
// blank line, trimmed ends.
func normalizeText(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, " ", " ")
	text = spaceRuns.ReplaceAllString(text, " ")
	text = crLineEnds.ReplaceAllString(text, "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func buildResult(text string, format legal.SourceFormat, extractor string) legal.ExtractionResult {
	res := legal.ExtractionResult{
		Text:         text,
		SourceFormat: format,
		Extractor:    extractor,
		CharCount:    len(text),
	}
	if text != "" {
		res.SHA256 = legal.HashText(text)
	}
	return res
}
