// Package relation detects explicit cross-references between legal
// instruments (revocation, amendment, regulation, generic reference) in
// normalized body text. Detection is purely structural; confidence tiers
// flag what a reviewer still has to confirm.
package relation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/normabase/normabase/engine/legal"
)

// EvidenceMaxChars bounds the context window stored with each match.
const EvidenceMaxChars = 300

// Instrument reference building blocks shared by the rule patterns.
const (
	tipoPat = `(?:lei(?:\s+complementar)?|decreto(?:\s+legislativo)?|portaria|instru[çc][ãa]o\s+normativa|resolu[çc][ãa]o|medida\s+provis[óo]ria|emenda\s+constitucional)`
	numPat  = `n[ºo°\.\s]*\s*([\d\.]+)`
	anoPat  = `(?:(?:,?\s*de\s+(?:\d{1,2}[ºo°]?\s+de\s+\p{L}+\s+de\s+)?)?\s*(\d{4}))?`
)

// rule is one (pattern, handler) pair. Rules run in declaration order and
// precedence is the order itself: a (type, target_ref) pair claimed by an
// earlier rule is never re-reported by a later one.
type rule struct {
	name    string
	re      *regexp.Regexp
	relType legal.RelationType
	// blanket rules reference no specific instrument and are always low
	// confidence.
	blanket   bool
	targetRef string
}

var rules = []rule{
	{
		name:    "revoga_explicita",
		re:      regexp.MustCompile(`(?i)revoga(?:m|n?-se)?\s+(?:expressamente\s+)?(?:a|as|o|os)\s+(` + tipoPat + `)\s+` + numPat + `\s*` + anoPat),
		relType: legal.RelationRevokes,
	},
	{
		name:    "revoga_ficam",
		re:      regexp.MustCompile(`(?i)ficam?\s+revogad[oa]s?\s+(?:a|as|o|os)\s+(` + tipoPat + `)\s+` + numPat + `\s*` + anoPat),
		relType: legal.RelationRevokes,
	},
	{
		name:      "revogam_se_contrario",
		re:        regexp.MustCompile(`(?i)revogam-se\s+as\s+disposi[çc][õo]es\s+em\s+contr[aá]rio`),
		relType:   legal.RelationRevokes,
		blanket:   true,
		targetRef: "disposicoes em contrario (generico)",
	},
	{
		name:    "altera",
		re:      regexp.MustCompile(`(?i)altera(?:m)?\s+(?:a|as|o|os)\s+(` + tipoPat + `)\s+` + numPat + `\s*` + anoPat),
		relType: legal.RelationAmends,
	},
	{
		name:    "regulamenta",
		re:      regexp.MustCompile(`(?i)regulamenta\s+(?:a|o)\s+(` + tipoPat + `)\s+` + numPat + `\s*` + anoPat),
		relType: legal.RelationRegulates,
	},
	{
		name:    "ref_norma",
		re:      regexp.MustCompile(`(?i)(?:nos\s+termos\s+d[ao]|conforme|previsto\s+n[ao]|disposto\s+n[ao]|de\s+que\s+trata\s+[ao])\s+(` + tipoPat + `)\s+` + numPat + `\s*` + anoPat),
		relType: legal.RelationReferences,
		// generic cross-references never resolve on their own
	},
}

// Short doc-id prefixes used by the corpus for each instrument type.
var typeShort = map[string]string{
	"lei":                   "lei",
	"lei complementar":      "lc",
	"decreto":               "decreto",
	"decreto legislativo":   "decreto_legislativo",
	"portaria":              "portaria",
	"instrução normativa":   "in",
	"instrucao normativa":   "in",
	"resolução":             "resolucao",
	"resolucao":             "resolucao",
	"medida provisória":     "medida_provisoria",
	"medida provisoria":     "medida_provisoria",
	"emenda constitucional": "emenda_constitucional",
}

var wsRun = regexp.MustCompile(`\s+`)

// ExtractRelations runs every rule over the full text in order. Matches are
// deduplicated on (relation_type, target_ref); the first occurrence wins.
// High confidence requires both instrument number and year; blanket
// revocations and generic references are always low and flagged for review.
func ExtractRelations(text, docID string) []legal.RelationMatch {
	if text == "" {
		return nil
	}
	var matches []legal.RelationMatch
	seen := map[[2]string]struct{}{}
	for _, r := range rules {
		for _, m := range r.re.FindAllStringSubmatchIndex(text, -1) {
			match, ok := r.apply(text, m)
			if !ok {
				continue
			}
			key := [2]string{string(match.RelationType), match.TargetRef}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			matches = append(matches, match)
		}
	}
	return matches
}

func (r rule) apply(text string, m []int) (legal.RelationMatch, bool) {
	if r.blanket {
		return legal.RelationMatch{
			RelationType:     r.relType,
			TargetRef:        r.targetRef,
			Confidence:       legal.ConfidenceLow,
			NeedsReview:      true,
			EvidenceText:     evidenceWindow(text, m[0]),
			EvidencePattern:  r.name,
			EvidencePosition: m[0],
		}, true
	}
	tipo := group(text, m, 1)
	numero := group(text, m, 2)
	ano := group(text, m, 3)
	if tipo == "" || numero == "" {
		return legal.RelationMatch{}, false
	}
	targetID, refText := resolveCandidate(tipo, numero, ano)

	confidence := legal.ConfidenceLow
	needsReview := true
	if r.relType != legal.RelationReferences && numero != "" && ano != "" {
		confidence = legal.ConfidenceHigh
		needsReview = false
	}
	return legal.RelationMatch{
		RelationType:     r.relType,
		TargetRef:        refText,
		TargetDocID:      targetID,
		Confidence:       confidence,
		NeedsReview:      needsReview,
		EvidenceText:     evidenceWindow(text, m[0]),
		EvidencePattern:  r.name,
		EvidencePosition: m[0],
	}, true
}

func group(text string, m []int, i int) string {
	if 2*i+1 >= len(m) || m[2*i] < 0 {
		return ""
	}
	return text[m[2*i]:m[2*i+1]]
}

// resolveCandidate derives the deterministic doc id for a reference that
// carries type, number, and year. Without a year the reference text alone is
// preserved; resolution against the store happens in the relation repo.
func resolveCandidate(tipo, numero, ano string) (string, string) {
	tipoNorm := wsRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(tipo)), " ")
	short, ok := typeShort[tipoNorm]
	if !ok {
		short = strings.ReplaceAll(tipoNorm, " ", "_")
	}
	refText := strings.TrimSpace(tipo) + " " + strings.TrimSpace(numero)
	if ano == "" {
		return "", refText
	}
	refText += " /" + ano
	year := 0
	for _, c := range ano {
		year = year*10 + int(c-'0')
	}
	return legal.DocID(short, numero, year, "federal_br"), refText
}

// evidenceWindow captures up to EvidenceMaxChars around pos, biased toward
// the text that follows the trigger. Cut points snap to rune boundaries.
func evidenceWindow(text string, pos int) string {
	start := pos - 50
	if start < 0 {
		start = 0
	}
	end := pos + EvidenceMaxChars - 50
	if end > len(text) {
		end = len(text)
	}
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}
	return strings.TrimSpace(text[start:end])
}
