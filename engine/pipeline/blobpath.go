package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Store layout: {jurisdiction}/{country}/{type_plural}/{doc_id}/source.{ext}
// e.g. "federal/BR/instrucoes_normativas/in_62_2021_federal_br/source.pdf".

var folderToType = map[string]string{
	"instrucoes_normativas":   "instrucao_normativa",
	"portarias":               "portaria",
	"resolucoes":              "resolucao",
	"leis":                    "lei",
	"leis_complementares":     "lei_complementar",
	"decretos":                "decreto",
	"medidas_provisorias":     "medida_provisoria",
	"emendas_constitucionais": "emenda_constitucional",
}

var typeDisplay = map[string]string{
	"instrucao_normativa":   "IN",
	"portaria":              "Portaria",
	"resolucao":             "Resolucao",
	"lei":                   "Lei",
	"lei_complementar":      "LC",
	"decreto":               "Decreto",
	"medida_provisoria":     "MP",
	"emenda_constitucional": "EC",
	"outro":                 "Doc",
}

var (
	reDocIDFull   = regexp.MustCompile(`^[a-z_]+?_(\d+)_(\d{4})_`)
	reDocIDNoYear = regexp.MustCompile(`^[a-z_]+?_(\d+)_`)
)

// BlobMeta is document identity derived from a blob key alone.
type BlobMeta struct {
	DocID      string
	DocType    string
	Number     string
	Year       int
	TitleShort string
	Filename   string
}

// ParseBlobPath derives document metadata from a store key. Keys that do
// not follow the canonical layout degrade to doc_type "outro" and a
// filename-based identity instead of failing.
func ParseBlobPath(blobName string) BlobMeta {
	parts := strings.Split(strings.ReplaceAll(blobName, "\\", "/"), "/")
	meta := BlobMeta{
		DocType:  "outro",
		Filename: parts[len(parts)-1],
	}
	if len(parts) >= 4 {
		if t, ok := folderToType[parts[2]]; ok {
			meta.DocType = t
		}
		meta.DocID = parts[3]
		if m := reDocIDFull.FindStringSubmatch(meta.DocID); m != nil {
			meta.Number = m[1]
			meta.Year, _ = strconv.Atoi(m[2])
		} else if m := reDocIDNoYear.FindStringSubmatch(meta.DocID); m != nil {
			meta.Number = m[1]
		}
	}
	meta.TitleShort = titleShort(meta)
	return meta
}

// titleShort renders a citation-style display title, with thousands
// separators on long instrument numbers ("Lei 14.133/2021").
func titleShort(meta BlobMeta) string {
	if meta.DocType != "" && meta.Number != "" {
		prefix, ok := typeDisplay[meta.DocType]
		if !ok {
			prefix = "Doc"
		}
		num := meta.Number
		if len(num) > 3 {
			if n, err := strconv.Atoi(num); err == nil {
				num = groupThousands(n)
			}
		}
		if meta.Year != 0 {
			return fmt.Sprintf("%s %s/%d", prefix, num, meta.Year)
		}
		return fmt.Sprintf("%s %s", prefix, num)
	}
	return meta.DocID
}

func groupThousands(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FallbackDocID derives an identifier from a filename when the path
// carries no usable identity.
func FallbackDocID(filename string) string {
	stem := filename
	if idx := strings.LastIndex(stem, "."); idx > 0 {
		stem = stem[:idx]
	}
	return strings.ToLower(strings.ReplaceAll(stem, " ", "_"))
}
