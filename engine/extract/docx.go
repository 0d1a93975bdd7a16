package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/normabase/normabase/engine/legal"
)

const extractorDOCX = "docx_xml"

// docx body markup, reduced to what text extraction needs: paragraphs,
// runs, and literal text.
type docxDocument struct {
	Body docxBody `xml:"body"`
}

type docxBody struct {
	Paragraphs []docxParagraph `xml:"p"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Texts []string `xml:"t"`
}

// extractDOCX pulls paragraph text out of word/document.xml. Tables and
// headers are skipped; legislative DOCX sources carry the dispositif in
// plain paragraphs.
func extractDOCX(data []byte) (legal.ExtractionResult, error) {
	if len(data) == 0 {
		return legal.ExtractionResult{}, errors.New("extract: empty docx input")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return legal.ExtractionResult{}, fmt.Errorf("extract: open docx archive: %w", err)
	}
	var docXML []byte
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return legal.ExtractionResult{}, fmt.Errorf("extract: open document.xml: %w", err)
		}
		docXML, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return legal.ExtractionResult{}, fmt.Errorf("extract: read document.xml: %w", err)
		}
		break
	}
	if docXML == nil {
		return legal.ExtractionResult{}, errors.New("extract: docx has no word/document.xml")
	}
	var doc docxDocument
	if err := xml.Unmarshal(docXML, &doc); err != nil {
		return legal.ExtractionResult{}, fmt.Errorf("extract: parse document.xml: %w", err)
	}
	paras := make([]string, 0, len(doc.Body.Paragraphs))
	for _, p := range doc.Body.Paragraphs {
		var sb strings.Builder
		for _, r := range p.Runs {
			for _, t := range r.Texts {
				sb.WriteString(t)
			}
		}
		if line := strings.TrimSpace(sb.String()); line != "" {
			paras = append(paras, strings.Join(strings.Fields(line), " "))
		}
	}
	text := normalizeText(strings.Join(paras, "\n"))
	return buildResult(text, legal.FormatDOCX, extractorDOCX), nil
}
