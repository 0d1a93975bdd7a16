package chunker

import (
	"strconv"
	"strings"

	"github.com/normabase/normabase/engine/legal"
)

// subChunkArticle splits an oversized article. With paragraph anchors the
// split is caput + one chunk per paragraph; without them the article body
// falls back to a running line budget.
func subChunkArticle(
	art rawArticle,
	artKey, docID, titleShort string,
	startOrder int,
	opts Options,
) []legal.LegalChunk {
	baseHierarchy := append(append([]string{}, art.hierarchy...), art.label)
	parMatches := reParagraph.FindAllStringSubmatchIndex(art.text, -1)
	if parMatches == nil {
		return sizeChunks(art.text, artKey, docID, titleShort, baseHierarchy, startOrder, opts.MaxChunkChars)
	}

	var chunks []legal.LegalChunk
	if caput := strings.TrimSpace(art.text[:parMatches[0][0]]); caput != "" {
		chunks = append(chunks, legal.LegalChunk{
			ChunkID:       legal.ChunkID(docID, artKey, "caput"),
			DocID:         docID,
			ProvisionKey:  artKey,
			OrderInDoc:    startOrder,
			Content:       caput,
			ContentHash:   legal.HashText(caput),
			CharCount:     len(caput),
			CitationShort: makeCitation(titleShort, baseHierarchy),
			HierarchyPath: baseHierarchy,
		})
	}
	for i, m := range parMatches {
		end := len(art.text)
		if i+1 < len(parMatches) {
			end = parMatches[i+1][0]
		}
		parText := strings.TrimSpace(art.text[m[0]:end])

		num := submatchText(art.text, m, 1)
		if num == "" {
			num = submatchText(art.text, m, 2)
		}
		parKey := artKey + "_par_unico"
		parLabel := "Paragrafo unico"
		if num != "" {
			parKey = artKey + "_par_" + num
			parLabel = "Par. " + num + "o"
		}
		parHierarchy := append(append([]string{}, baseHierarchy...), parLabel)

		chunks = append(chunks, legal.LegalChunk{
			ChunkID:       legal.ChunkID(docID, parKey, "0"),
			DocID:         docID,
			ProvisionKey:  parKey,
			OrderInDoc:    startOrder + len(chunks),
			Content:       parText,
			ContentHash:   legal.HashText(parText),
			CharCount:     len(parText),
			CitationShort: makeCitation(titleShort, parHierarchy),
			HierarchyPath: parHierarchy,
		})
	}
	return chunks
}

func submatchText(text string, m []int, group int) string {
	if m[2*group] < 0 {
		return ""
	}
	return text[m[2*group]:m[2*group+1]]
}

// sizeChunks splits text over whole lines against a running character
// budget. Lines are never split mid-way: a single line longer than the
// budget becomes its own oversized chunk.
func sizeChunks(
	text, provisionKey, docID, titleShort string,
	hierarchy []string,
	startOrder, maxChars int,
) []legal.LegalChunk {
	var chunks []legal.LegalChunk
	var buf []string
	bufLen := 0
	subIdx := 0

	flush := func() {
		if len(buf) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(buf, "\n"))
		buf, bufLen = nil, 0
		if content == "" {
			return
		}
		chunks = append(chunks, legal.LegalChunk{
			ChunkID:       legal.ChunkID(docID, provisionKey, strconv.Itoa(subIdx)),
			DocID:         docID,
			ProvisionKey:  provisionKey,
			OrderInDoc:    startOrder + len(chunks),
			Content:       content,
			ContentHash:   legal.HashText(content),
			CharCount:     len(content),
			CitationShort: makeCitation(titleShort, hierarchy),
			HierarchyPath: hierarchy,
		})
		subIdx++
	}

	for _, line := range strings.Split(text, "\n") {
		add := len(line) + 1
		if bufLen+add > maxChars && len(buf) > 0 {
			flush()
		}
		buf = append(buf, line)
		bufLen += add
	}
	flush()
	return chunks
}

// fallbackChunks handles documents without enough article anchors: one
// synthetic body provision, chunked by accumulating non-empty lines until
// the running budget overruns.
func fallbackChunks(text, docID, titleShort string, opts Options) ([]legal.LegalProvision, []legal.LegalChunk) {
	provisions := []legal.LegalProvision{{
		ProvisionKey:  "corpo",
		Label:         "Corpo do documento",
		ProvisionType: legal.ProvisionBody,
		HierarchyPath: []string{"Corpo"},
		OrderInDoc:    0,
		Content:       text,
	}}

	var chunks []legal.LegalChunk
	var buf []string
	bufLen := 0

	flush := func() {
		if len(buf) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(buf, "\n"))
		buf, bufLen = nil, 0
		if content == "" {
			return
		}
		chunks = append(chunks, legal.LegalChunk{
			ChunkID:       legal.ChunkID(docID, "corpo", strconv.Itoa(len(chunks))),
			DocID:         docID,
			ProvisionKey:  "corpo",
			OrderInDoc:    len(chunks),
			Content:       content,
			ContentHash:   legal.HashText(content),
			CharCount:     len(content),
			CitationShort: titleShort,
			HierarchyPath: []string{"Corpo"},
		})
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		add := len(line) + 1
		if bufLen+add > opts.FallbackMaxChars && bufLen >= opts.FallbackMinChars {
			flush()
		}
		buf = append(buf, line)
		bufLen += add
	}
	flush()
	return provisions, chunks
}
