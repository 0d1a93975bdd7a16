package extract_test

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normabase/normabase/engine/extract"
	"github.com/normabase/normabase/engine/legal"
)

func docxBytes(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	sb.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		sb.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	sb.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entry, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = entry.Write([]byte(sb.String()))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtract(t *testing.T) {
	t.Run("Should extract DOCX paragraphs by extension", func(t *testing.T) {
		data := docxBytes(t, "Art. 1º Primeira regra.", "Art. 2º Segunda regra.")
		res, err := extract.Extract(data, "source.docx")
		require.NoError(t, err)
		assert.Equal(t, legal.FormatDOCX, res.SourceFormat)
		assert.Equal(t, "docx_xml", res.Extractor)
		assert.Contains(t, res.Text, "Art. 1º Primeira regra.")
		assert.Contains(t, res.Text, "Art. 2º Segunda regra.")
		assert.Equal(t, len(res.Text), res.CharCount)
		assert.Equal(t, legal.HashText(res.Text), res.SHA256)
	})
	t.Run("Should sniff content when the extension is unknown", func(t *testing.T) {
		htmlDoc := "<html><body><p>Art. 1º Conteúdo sniffado.</p></body></html>"
		res, err := extract.Extract([]byte(htmlDoc), "download")
		require.NoError(t, err)
		assert.Equal(t, legal.FormatHTML, res.SourceFormat)
		assert.Contains(t, res.Text, "Conteúdo sniffado")
	})
	t.Run("Should fail fast on unsupported formats", func(t *testing.T) {
		_, err := extract.Extract([]byte("plain text payload"), "notes.txt")
		assert.ErrorIs(t, err, extract.ErrUnsupportedFormat)
	})
	t.Run("Should report an error for unreadable PDF bytes", func(t *testing.T) {
		_, err := extract.Extract([]byte("not a pdf at all"), "broken.pdf")
		assert.Error(t, err)
	})
}

func TestExtractHTML(t *testing.T) {
	t.Run("Should prefer the content landmark and drop chrome", func(t *testing.T) {
		page := `<html><body>
			<nav>Menu de navegação</nav>
			<div class="breadcrumb">Você está aqui</div>
			<div id="content-core"><p>Art. 1º Regra principal.</p><p>Art. 2º Outra regra.</p></div>
			<div class="social">Compartilhar</div>
			<footer>Rodapé institucional</footer>
			<script>tracker()</script>
		</body></html>`
		res, err := extract.ExtractHTML([]byte(page), "")
		require.NoError(t, err)
		assert.Contains(t, res.Text, "Art. 1º Regra principal.")
		assert.NotContains(t, res.Text, "Menu de navegação")
		assert.NotContains(t, res.Text, "Você está aqui")
		assert.NotContains(t, res.Text, "Compartilhar")
		assert.NotContains(t, res.Text, "Rodapé")
		assert.NotContains(t, res.Text, "tracker")
	})
	t.Run("Should keep paragraph boundaries as line breaks", func(t *testing.T) {
		page := `<html><body><main><p>Art. 1º Primeira.</p><p>§ 1º Detalhe.</p></main></body></html>`
		res, err := extract.ExtractHTML([]byte(page), "")
		require.NoError(t, err)
		lines := strings.Split(res.Text, "\n")
		require.Len(t, lines, 2)
		assert.Equal(t, "Art. 1º Primeira.", lines[0])
		assert.Equal(t, "§ 1º Detalhe.", lines[1])
	})
	t.Run("Should decode declared legacy charsets", func(t *testing.T) {
		// "licitação" in ISO-8859-1.
		latin := []byte(`<html><head><meta charset="iso-8859-1"></head><body><p>licita\xe7\xe3o</p></body></html>`)
		latin = bytes.ReplaceAll(latin, []byte(`\xe7`), []byte{0xe7})
		latin = bytes.ReplaceAll(latin, []byte(`\xe3`), []byte{0xe3})
		res, err := extract.ExtractHTML(latin, "")
		require.NoError(t, err)
		assert.Contains(t, res.Text, "licitação")
	})
	t.Run("Should normalize whitespace across the document", func(t *testing.T) {
		page := "<html><body><div><p>Art.  1º   Espaços    colapsados.</p>" +
			"<p></p><p></p><p>Fim.</p></div></body></html>"
		res, err := extract.ExtractHTML([]byte(page), "")
		require.NoError(t, err)
		assert.Contains(t, res.Text, "Art. 1º Espaços colapsados.")
		assert.NotContains(t, res.Text, "\n\n\n")
	})
	t.Run("Should fall back to the body without landmarks", func(t *testing.T) {
		page := `<html><body><span>Texto direto no corpo.</span></body></html>`
		res, err := extract.ExtractHTML([]byte(page), "")
		require.NoError(t, err)
		assert.Equal(t, "Texto direto no corpo.", res.Text)
	})
}
