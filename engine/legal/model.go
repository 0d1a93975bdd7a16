package legal

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// ProvisionType classifies a structural unit of a legal instrument.
type ProvisionType string

const (
	ProvisionPreamble  ProvisionType = "preambulo"
	ProvisionArticle   ProvisionType = "artigo"
	ProvisionParagraph ProvisionType = "paragrafo"
	ProvisionInciso    ProvisionType = "inciso"
	ProvisionAlinea    ProvisionType = "alinea"
	ProvisionAnnex     ProvisionType = "anexo"
	ProvisionBody      ProvisionType = "corpo"
)

// IsValid reports whether t is one of the closed provision types.
func (t ProvisionType) IsValid() bool {
	switch t {
	case ProvisionPreamble, ProvisionArticle, ProvisionParagraph,
		ProvisionInciso, ProvisionAlinea, ProvisionAnnex, ProvisionBody:
		return true
	}
	return false
}

// RelationType classifies a directed edge between two instruments.
type RelationType string

const (
	RelationRevokes    RelationType = "revoga"
	RelationAmends     RelationType = "altera"
	RelationRegulates  RelationType = "regulamenta"
	RelationReferences RelationType = "referencia"
)

func (t RelationType) IsValid() bool {
	switch t {
	case RelationRevokes, RelationAmends, RelationRegulates, RelationReferences:
		return true
	}
	return false
}

// Confidence is the structural confidence tier of an extracted relation.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// VigencyStatus is the legal in-force state of a document.
type VigencyStatus string

const (
	VigencyInForce VigencyStatus = "vigente"
	VigencyUnknown VigencyStatus = "desconhecido"
	VigencyVacatio VigencyStatus = "vacatio"
	VigencyRevoked VigencyStatus = "revogada"
)

// SourceFormat is the raw format a document arrived in.
type SourceFormat string

const (
	FormatPDF  SourceFormat = "pdf"
	FormatDOCX SourceFormat = "docx"
	FormatHTML SourceFormat = "html"
)

// ExtractionResult carries the normalized text produced by the extraction
// adapter. It is transient; only the hash and counts land on the document row.
type ExtractionResult struct {
	Text         string
	SourceFormat SourceFormat
	Extractor    string
	CharCount    int
	SHA256       string
}

// LegalProvision is one dispositif unit (preamble, article, paragraph,
// inciso, alinea, or body fallback). Sub-provisions carry no content of
// their own; their text lives in the owning article's chunks.
type LegalProvision struct {
	ProvisionKey  string        `db:"provision_key"`
	Label         string        `db:"label"`
	ProvisionType ProvisionType `db:"provision_type"`
	ParentKey     string        `db:"parent_key"`
	HierarchyPath []string      `db:"hierarchy_path"`
	OrderInDoc    int           `db:"order_in_doc"`
	Content       string        `db:"-"`
}

// LegalChunk is one size-bounded, independently citable span of text
// belonging to exactly one provision.
type LegalChunk struct {
	ChunkID       string   `db:"chunk_id"`
	DocID         string   `db:"doc_id"`
	ProvisionKey  string   `db:"provision_key"`
	OrderInDoc    int      `db:"order_in_doc"`
	Content       string   `db:"content"`
	ContentHash   string   `db:"content_hash"`
	CharCount     int      `db:"char_count"`
	CitationShort string   `db:"citation_short"`
	HierarchyPath []string `db:"hierarchy_path"`
}

// LegalDocumentRow is the aggregate root handed to the writer. It exclusively
// owns its provisions and chunks; each ingestion replaces both wholesale.
type LegalDocumentRow struct {
	DocID          string
	JurisdictionID string
	DocType        string
	Number         string
	Year           int
	Title          string
	SourceBlobPath string
	SourceFormat   SourceFormat
	TextSHA256     string
	CharCount      int
	Provisions     []LegalProvision
	Chunks         []LegalChunk
}

// RelationMatch is a directed edge detected in a document's body text.
type RelationMatch struct {
	RelationType     RelationType
	TargetRef        string
	TargetDocID      string
	Confidence       Confidence
	NeedsReview      bool
	EvidenceText     string
	EvidencePattern  string
	EvidencePosition int
}

// EffectiveDateResult holds publication and vigency signals for a document.
// It is not a standalone entity; persistence mutates four columns on the
// owning document row.
type EffectiveDateResult struct {
	PublishedAt    *time.Time
	EffectiveFrom  *time.Time
	EffectiveTo    *time.Time
	StatusVigencia VigencyStatus
	VigorPattern   string
	VigorEvidence  string
}

// WriteReport summarizes one document write.
type WriteReport struct {
	ProvisionsWritten int
	ChunksWritten     int
	OrphansRemoved    int
}

// HashText returns the hex sha256 of text, the corpus-wide content hash.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ChunkID builds the deterministic chunk identifier
// "{doc_id}__{provision_key}__{sub}".
func ChunkID(docID, provisionKey, sub string) string {
	return docID + "__" + provisionKey + "__" + sub
}

// DocID builds the deterministic document identifier
// "{type_short}_{number}_{year}_{jurisdiction}". Number is stored without
// thousands separators or leading zeros.
func DocID(typeShort, number string, year int, jurisdiction string) string {
	num := strings.TrimLeft(strings.ReplaceAll(number, ".", ""), "0")
	if num == "" {
		num = "0"
	}
	return fmt.Sprintf("%s_%s_%d_%s", typeShort, num, year, jurisdiction)
}

// Validate checks the structural invariants the writer relies on: unique
// provision keys and chunk ids, every chunk referencing an existing
// provision, and every parent_key pointing at another provision in the same
// document.
func (d *LegalDocumentRow) Validate() error {
	if strings.TrimSpace(d.DocID) == "" {
		return fmt.Errorf("legal: document id is required")
	}
	keys := make(map[string]struct{}, len(d.Provisions))
	for i := range d.Provisions {
		p := &d.Provisions[i]
		if !p.ProvisionType.IsValid() {
			return fmt.Errorf("legal: provision %q has invalid type %q", p.ProvisionKey, p.ProvisionType)
		}
		if _, dup := keys[p.ProvisionKey]; dup {
			return fmt.Errorf("legal: duplicate provision key %q", p.ProvisionKey)
		}
		keys[p.ProvisionKey] = struct{}{}
	}
	for i := range d.Provisions {
		p := &d.Provisions[i]
		if p.ParentKey == "" {
			continue
		}
		if _, ok := keys[p.ParentKey]; !ok {
			return fmt.Errorf("legal: provision %q references missing parent %q", p.ProvisionKey, p.ParentKey)
		}
	}
	ids := make(map[string]struct{}, len(d.Chunks))
	for i := range d.Chunks {
		c := &d.Chunks[i]
		if _, dup := ids[c.ChunkID]; dup {
			return fmt.Errorf("legal: duplicate chunk id %q", c.ChunkID)
		}
		ids[c.ChunkID] = struct{}{}
		if _, ok := keys[c.ProvisionKey]; !ok {
			return fmt.Errorf("legal: chunk %q references missing provision %q", c.ChunkID, c.ProvisionKey)
		}
	}
	return nil
}
