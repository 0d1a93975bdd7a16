package pipeline

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/normabase/normabase/engine/legal"
)

// Publication-list captions name the instrument in display form, e.g.
// "INSTRUÇÃO NORMATIVA SEGES/MGI Nº 512, DE 3 DE DEZEMBRO DE 2025".
// A trailing parenthetical may announce revocation:
// "(Revogada pela IN nº 90, de 2022)".

var captionTypes = []struct {
	name    string
	short   string
	docType string
}{
	{"portaria normativa", "portaria", "portaria"},
	{"portaria interministerial", "portaria", "portaria"},
	{"portaria conjunta", "portaria", "portaria"},
	{"portaria de pessoal", "portaria", "portaria"},
	{"instrucao normativa conjunta", "in", "instrucao_normativa"},
	{"instrucao normativa", "in", "instrucao_normativa"},
	{"resolucao conjunta", "resolucao", "resolucao"},
	{"resolucao", "resolucao", "resolucao"},
	{"lei complementar", "lc", "lei_complementar"},
	{"decreto lei", "decreto_lei", "decreto_lei"},
	{"portaria", "portaria", "portaria"},
	{"orientacao normativa", "on", "orientacao_normativa"},
	{"lei", "lei", "lei"},
	{"decreto", "decreto", "decreto"},
}

const captionTypeAlt = `INSTRU[ÇC][ÃA]O\s+NORMATIVA(?:\s+CONJUNTA)?` +
	`|PORTARIA(?:\s+(?:NORMATIVA|INTERMINISTERIAL|CONJUNTA|DE\s+PESSOAL))?` +
	`|RESOLU[ÇC][ÃA]O(?:\s+CONJUNTA)?` +
	`|ORIENTA[ÇC][ÃA]O\s+NORMATIVA` +
	`|LEI\s+COMPLEMENTAR` +
	`|DECRETO[\s\-]+LEI` +
	`|LEI` +
	`|DECRETO`

var (
	reCaption = regexp.MustCompile(`(?i)^(` + captionTypeAlt + `)` +
		`[\s/]+(?:[\w/\-\.]+\s+)*?N[ºo°\s\.]+\s*([\d\.]+)` +
		`(?:\s*,?\s*(?:DE\s+)?\d{1,2}[ºo°]?\s+(?:DE\s+)?\p{L}+\s+(?:DE\s+)?(\d{4}))?`)
	reTitleRevocation = regexp.MustCompile(`(?i)\(Revogad[ao]\s+pel[ao]\s+(.+?)\)`)
	accentReplacer    = strings.NewReplacer(
		"ç", "c", "ã", "a", "õ", "o", "é", "e", "á", "a",
		"í", "i", "ó", "o", "ú", "u", "ê", "e",
	)
)

// CaptionIdentity is a document identity parsed from a list caption.
type CaptionIdentity struct {
	DocID   string
	DocType string
	Number  string
	Year    int
}

// ParseCaption derives a deterministic identity from a caption, or false
// when the caption does not name a recognized instrument with a year.
func ParseCaption(caption string) (CaptionIdentity, bool) {
	clean := strings.TrimSpace(reTitleRevocation.ReplaceAllString(caption, ""))
	m := reCaption.FindStringSubmatch(clean)
	if m == nil {
		return CaptionIdentity{}, false
	}
	tipoNorm := accentReplacer.Replace(strings.ToLower(strings.TrimSpace(m[1])))
	tipoNorm = strings.Join(strings.Fields(strings.NewReplacer("-", " ", "–", " ").Replace(tipoNorm)), " ")
	var short, docType string
	for _, ct := range captionTypes {
		if ct.name == tipoNorm {
			short, docType = ct.short, ct.docType
			break
		}
	}
	if short == "" || m[3] == "" {
		return CaptionIdentity{}, false
	}
	number := strings.TrimLeft(strings.ReplaceAll(m[2], ".", ""), "0")
	if number == "" {
		number = "0"
	}
	year, _ := strconv.Atoi(m[3])
	return CaptionIdentity{
		DocID:   legal.DocID(short, number, year, "federal_br"),
		DocType: docType,
		Number:  number,
		Year:    year,
	}, true
}

// RevokedRefFromCaption returns the instrument named by a revocation
// parenthetical, or empty when none is present.
func RevokedRefFromCaption(caption string) string {
	m := reTitleRevocation.FindStringSubmatch(caption)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// TitleRevocationWriter records revocations announced by list captions.
type TitleRevocationWriter interface {
	InsertTitleRevocation(ctx context.Context, sourceDocID, targetDocID, targetRef, caption string) error
}

// RecordTitleRevocation handles a caption whose parenthetical announces
// that docID was revoked. The stored edge originates at the revoked
// document, since the revoking instrument may be absent from the corpus;
// its identity lands in target_doc_id when the reference parses, and in
// target_ref always. The document's vigency flips to revogada.
func (p *Pipeline) RecordTitleRevocation(ctx context.Context, docID, caption string, titles TitleRevocationWriter) error {
	ref := RevokedRefFromCaption(caption)
	if ref == "" {
		return nil
	}
	revoker := ""
	if id, ok := ParseCaption(ref); ok {
		revoker = id.DocID
	}
	if err := p.docs.MarkRevoked(ctx, docID); err != nil {
		return err
	}
	return titles.InsertTitleRevocation(ctx, docID, revoker, ref, caption)
}
