// Package chunker segments normalized legislation text into a provision
// hierarchy and size-bounded citeable chunks. It works from layout-free
// line-start anchors (Art., §, incisos, alineas) rather than a grammar, and
// degrades to a plain size-based chunker when a document does not look
// article-structured.
package chunker

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/normabase/normabase/engine/legal"
)

const (
	// DefaultMaxChunkChars bounds a single chunk; articles above it are
	// split by paragraph or by a running line budget.
	DefaultMaxChunkChars = 5000
	// Fallback chunker accumulates lines into [FallbackMinChars,
	// FallbackMaxChars] sized chunks.
	DefaultFallbackMinChars = 900
	DefaultFallbackMaxChars = 5000
	// Below this many distinct article anchors the document is treated as
	// unstructured and chunked by size only.
	DefaultMinArticles = 3

	preambleMinChars = 50
)

var (
	reArticle   = regexp.MustCompile(`(?mi)^[ \t]*Art\.?\s*(\d+)[°ºo]?[\s.\-–—]`)
	reParagraph = regexp.MustCompile(`(?mi)^[ \t]*(?:§\s*(\d+)[°ºo]?|Par(?:ágrafo|agrafo)?\.?\s*(\d+)[°ºo]?|Par[aá]grafo\s+[uú]nico)`)
	reInciso    = regexp.MustCompile(`(?m)^[ \t]*(X{0,3}(?:IX|IV|V?I{0,3}))\s*[-–—]`)
	reAlinea    = regexp.MustCompile(`(?m)^[ \t]*([a-z])\)\s`)
	reTitulo    = regexp.MustCompile(`(?mi)^[ \t]*T[IÍ]TULO\s+(X{0,3}(?:IX|IV|V?I{0,3}|[0-9]+))\b`)
	reCapitulo  = regexp.MustCompile(`(?mi)^[ \t]*CAP[IÍ]TULO\s+(X{0,3}(?:IX|IV|V?I{0,3}|[0-9]+))\b`)
	reSecao     = regexp.MustCompile(`(?mi)^[ \t]*SE[CÇ][AÃ]O\s+(X{0,3}(?:IX|IV|V?I{0,3}|[0-9]+))\b`)
)

// Options configures chunk sizing. Zero values take the package defaults.
type Options struct {
	MaxChunkChars    int
	FallbackMinChars int
	FallbackMaxChars int
	MinArticles      int
}

func (o Options) withDefaults() (Options, error) {
	if o.MaxChunkChars == 0 {
		o.MaxChunkChars = DefaultMaxChunkChars
	}
	if o.FallbackMinChars == 0 {
		o.FallbackMinChars = DefaultFallbackMinChars
	}
	if o.FallbackMaxChars == 0 {
		o.FallbackMaxChars = DefaultFallbackMaxChars
	}
	if o.MinArticles == 0 {
		o.MinArticles = DefaultMinArticles
	}
	if o.MaxChunkChars < 0 || o.FallbackMinChars < 0 || o.FallbackMaxChars < 0 {
		return o, errors.New("chunker: sizes cannot be negative")
	}
	if o.FallbackMinChars > o.FallbackMaxChars {
		return o, fmt.Errorf("chunker: fallback min %d exceeds max %d", o.FallbackMinChars, o.FallbackMaxChars)
	}
	return o, nil
}

// ChunkLegalText segments text with default options.
func ChunkLegalText(text, docID, titleShort string) ([]legal.LegalProvision, []legal.LegalChunk, error) {
	opts, _ := Options{}.withDefaults()
	return chunkWithOptions(text, docID, titleShort, opts)
}

// ChunkLegalTextWithOptions segments text with explicit sizing.
func ChunkLegalTextWithOptions(
	text, docID, titleShort string,
	opts Options,
) ([]legal.LegalProvision, []legal.LegalChunk, error) {
	resolved, err := opts.withDefaults()
	if err != nil {
		return nil, nil, err
	}
	return chunkWithOptions(text, docID, titleShort, resolved)
}

func chunkWithOptions(
	text, docID, titleShort string,
	opts Options,
) ([]legal.LegalProvision, []legal.LegalChunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil, nil
	}
	if strings.TrimSpace(docID) == "" {
		return nil, nil, errors.New("chunker: document id is required")
	}
	preamble, articles := splitIntoArticles(text)
	if distinctArticles(articles) < opts.MinArticles {
		provisions, chunks := fallbackChunks(text, docID, titleShort, opts)
		return provisions, chunks, nil
	}

	headings := indexHeadings(text)
	var provisions []legal.LegalProvision
	var chunks []legal.LegalChunk
	order := 0

	if trimmed := strings.TrimSpace(preamble); len(trimmed) > preambleMinChars {
		provisions = append(provisions, legal.LegalProvision{
			ProvisionKey:  "preambulo",
			Label:         "Preambulo",
			ProvisionType: legal.ProvisionPreamble,
			HierarchyPath: []string{"Preambulo"},
			OrderInDoc:    0,
			Content:       trimmed,
		})
		chunks = append(chunks, legal.LegalChunk{
			ChunkID:       legal.ChunkID(docID, "preambulo", "0"),
			DocID:         docID,
			ProvisionKey:  "preambulo",
			OrderInDoc:    order,
			Content:       trimmed,
			ContentHash:   legal.HashText(trimmed),
			CharCount:     len(trimmed),
			CitationShort: titleShort + ", Preambulo",
			HierarchyPath: []string{"Preambulo"},
		})
		order++
	}

	keyUses := map[string]int{}
	lastArtOrder := 0
	for _, art := range articles {
		art.hierarchy = headings.contextBefore(art.start)
		artKey := fmt.Sprintf("art_%d", art.num)
		// Numbering can restart mid-document (an annex reopening at Art. 1)
		// or a page header can repeat an anchor. Later occurrences get an
		// occurrence suffix so provision keys stay unique per document.
		keyUses[artKey]++
		if n := keyUses[artKey]; n > 1 {
			artKey = fmt.Sprintf("%s_%d", artKey, n)
		}
		artOrder := art.num
		if artOrder <= lastArtOrder {
			artOrder = lastArtOrder + 1
		}
		lastArtOrder = artOrder
		hierarchy := append(append([]string{}, art.hierarchy...), art.label)

		provisions = append(provisions, legal.LegalProvision{
			ProvisionKey:  artKey,
			Label:         art.label,
			ProvisionType: legal.ProvisionArticle,
			HierarchyPath: hierarchy,
			OrderInDoc:    artOrder,
			Content:       art.text,
		})
		provisions = append(provisions, subProvisions(art, artKey, artOrder)...)

		if len(art.text) > opts.MaxChunkChars {
			sub := subChunkArticle(art, artKey, docID, titleShort, order, opts)
			chunks = append(chunks, sub...)
			order += len(sub)
		} else {
			chunks = append(chunks, legal.LegalChunk{
				ChunkID:       legal.ChunkID(docID, artKey, "0"),
				DocID:         docID,
				ProvisionKey:  artKey,
				OrderInDoc:    order,
				Content:       art.text,
				ContentHash:   legal.HashText(art.text),
				CharCount:     len(art.text),
				CitationShort: makeCitation(titleShort, hierarchy),
				HierarchyPath: hierarchy,
			})
			order++
		}
	}
	return provisions, chunks, nil
}

// rawArticle is an article span before provisions and chunks are derived.
type rawArticle struct {
	num       int
	label     string
	text      string
	start     int
	hierarchy []string
}

// splitIntoArticles cuts text at article anchors. Each article spans from
// its anchor to the next anchor or end of text.
func splitIntoArticles(text string) (string, []rawArticle) {
	matches := reArticle.FindAllStringSubmatchIndex(text, -1)
	if matches == nil {
		return text, nil
	}
	preamble := strings.TrimSpace(text[:matches[0][0]])
	articles := make([]rawArticle, 0, len(matches))
	for i, m := range matches {
		num, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil {
			continue
		}
		start := m[0]
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		articles = append(articles, rawArticle{
			num:   num,
			label: fmt.Sprintf("Art. %do", num),
			text:  strings.TrimSpace(text[start:end]),
			start: start,
		})
	}
	return preamble, articles
}

// distinctArticles counts unique anchor numbers. Repeated anchors alone do
// not make a document article-structured.
func distinctArticles(articles []rawArticle) int {
	nums := map[int]struct{}{}
	for _, a := range articles {
		nums[a.num] = struct{}{}
	}
	return len(nums)
}

// headingIndex holds the offsets of Title/Chapter/Section headings so the
// hierarchy context of each article is a backward nearest-match lookup, not
// a rescan of the whole document per article.
type headingIndex struct {
	kinds [3][]headingAt
}

type headingAt struct {
	pos   int
	label string
}

func indexHeadings(text string) *headingIndex {
	idx := &headingIndex{}
	for i, h := range []struct {
		re     *regexp.Regexp
		prefix string
	}{
		{reTitulo, "Titulo"},
		{reCapitulo, "Capitulo"},
		{reSecao, "Secao"},
	} {
		for _, m := range h.re.FindAllStringSubmatchIndex(text, -1) {
			num := ""
			if m[2] >= 0 {
				num = text[m[2]:m[3]]
			}
			label := strings.TrimSpace(h.prefix + " " + num)
			idx.kinds[i] = append(idx.kinds[i], headingAt{pos: m[0], label: label})
		}
	}
	return idx
}

// contextBefore returns the nearest preceding heading of each kind before
// pos, in Title, Chapter, Section order. A later heading always overrides an
// earlier one of the same kind.
func (h *headingIndex) contextBefore(pos int) []string {
	var context []string
	for _, headings := range h.kinds {
		i := sort.Search(len(headings), func(j int) bool { return headings[j].pos >= pos })
		if i > 0 {
			context = append(context, headings[i-1].label)
		}
	}
	return context
}

// subProvisions extracts the paragraph, inciso, and alinea units inside the
// article span. All of them hang directly off the article in the reference
// depth. Keys are deduplicated: a roman numeral repeated across paragraphs
// still names one provision in the document.
func subProvisions(art rawArticle, artKey string, artOrder int) []legal.LegalProvision {
	var provisions []legal.LegalProvision
	seen := map[string]struct{}{}
	orderBase := artOrder * 1000
	add := func(key, label string, typ legal.ProvisionType) {
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		provisions = append(provisions, legal.LegalProvision{
			ProvisionKey:  key,
			Label:         label,
			ProvisionType: typ,
			ParentKey:     artKey,
			HierarchyPath: append(append([]string{}, art.hierarchy...), art.label, label),
			OrderInDoc:    orderBase + len(provisions) + 1,
		})
	}

	for _, m := range reParagraph.FindAllStringSubmatch(art.text, -1) {
		key, label := paragraphKeyLabel(artKey, m)
		add(key, label, legal.ProvisionParagraph)
	}
	for _, m := range reInciso.FindAllStringSubmatch(art.text, -1) {
		roman := strings.ToUpper(m[1])
		if roman == "" {
			continue
		}
		add(artKey+"_inc_"+roman, "Inciso "+roman, legal.ProvisionInciso)
	}
	for _, m := range reAlinea.FindAllStringSubmatch(art.text, -1) {
		letter := strings.ToLower(m[1])
		add(artKey+"_ali_"+letter, "Alinea "+letter+")", legal.ProvisionAlinea)
	}
	return provisions
}

func paragraphKeyLabel(artKey string, m []string) (string, string) {
	num := m[1]
	if num == "" {
		num = m[2]
	}
	if num == "" {
		return artKey + "_par_unico", "Paragrafo unico"
	}
	return artKey + "_par_" + num, "Par. " + num + "o"
}

// makeCitation joins the short title with the article and paragraph segments
// of the hierarchy. Title/Chapter/Section segments are tracking-only and
// never cited.
func makeCitation(titleShort string, hierarchy []string) string {
	parts := []string{titleShort}
	for _, h := range hierarchy {
		if strings.HasPrefix(h, "Art.") || strings.HasPrefix(h, "Par.") || h == "Paragrafo unico" {
			parts = append(parts, h)
		}
	}
	return strings.Join(parts, ", ")
}
