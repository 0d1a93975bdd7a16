package legal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/normabase/normabase/engine/legal"
)

func TestDocID(t *testing.T) {
	t.Run("Should strip thousands separators and leading zeros", func(t *testing.T) {
		assert.Equal(t, "lei_8666_1993_federal_br", legal.DocID("lei", "8.666", 1993, "federal_br"))
		assert.Equal(t, "in_62_2021_federal_br", legal.DocID("in", "062", 2021, "federal_br"))
		assert.Equal(t, "portaria_0_2020_federal_br", legal.DocID("portaria", "000", 2020, "federal_br"))
	})
}

func TestChunkID(t *testing.T) {
	t.Run("Should join segments with double underscores", func(t *testing.T) {
		assert.Equal(t, "in_62_2021_federal_br__art_5__0", legal.ChunkID("in_62_2021_federal_br", "art_5", "0"))
	})
}

func TestHashText(t *testing.T) {
	t.Run("Should be deterministic and content sensitive", func(t *testing.T) {
		assert.Equal(t, legal.HashText("abc"), legal.HashText("abc"))
		assert.NotEqual(t, legal.HashText("abc"), legal.HashText("abd"))
		assert.Len(t, legal.HashText("abc"), 64)
	})
}

func TestLegalDocumentRowValidate(t *testing.T) {
	valid := func() *legal.LegalDocumentRow {
		return &legal.LegalDocumentRow{
			DocID: "lei_1_2020_federal_br",
			Provisions: []legal.LegalProvision{
				{ProvisionKey: "art_1", ProvisionType: legal.ProvisionArticle},
				{ProvisionKey: "art_1_par_1", ProvisionType: legal.ProvisionParagraph, ParentKey: "art_1"},
			},
			Chunks: []legal.LegalChunk{
				{ChunkID: "lei_1_2020_federal_br__art_1__0", ProvisionKey: "art_1"},
			},
		}
	}
	t.Run("Should accept a consistent row", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})
	t.Run("Should require a document id", func(t *testing.T) {
		row := valid()
		row.DocID = "  "
		assert.Error(t, row.Validate())
	})
	t.Run("Should reject duplicate provision keys", func(t *testing.T) {
		row := valid()
		row.Provisions = append(row.Provisions, legal.LegalProvision{
			ProvisionKey: "art_1", ProvisionType: legal.ProvisionArticle,
		})
		assert.ErrorContains(t, row.Validate(), "duplicate provision key")
	})
	t.Run("Should reject invalid provision types", func(t *testing.T) {
		row := valid()
		row.Provisions[0].ProvisionType = "chapter"
		assert.ErrorContains(t, row.Validate(), "invalid type")
	})
	t.Run("Should reject dangling parent references", func(t *testing.T) {
		row := valid()
		row.Provisions[1].ParentKey = "art_99"
		assert.ErrorContains(t, row.Validate(), "missing parent")
	})
	t.Run("Should reject duplicate chunk ids", func(t *testing.T) {
		row := valid()
		row.Chunks = append(row.Chunks, row.Chunks[0])
		assert.ErrorContains(t, row.Validate(), "duplicate chunk id")
	})
	t.Run("Should reject chunks pointing at missing provisions", func(t *testing.T) {
		row := valid()
		row.Chunks[0].ProvisionKey = "art_2"
		assert.ErrorContains(t, row.Validate(), "missing provision")
	})
}

func TestEnums(t *testing.T) {
	t.Run("Should accept every closed provision type and nothing else", func(t *testing.T) {
		for _, v := range []legal.ProvisionType{
			legal.ProvisionPreamble, legal.ProvisionArticle, legal.ProvisionParagraph,
			legal.ProvisionInciso, legal.ProvisionAlinea, legal.ProvisionAnnex, legal.ProvisionBody,
		} {
			assert.True(t, v.IsValid(), string(v))
		}
		assert.False(t, legal.ProvisionType("artikel").IsValid())
	})
	t.Run("Should accept every closed relation type and nothing else", func(t *testing.T) {
		for _, v := range []legal.RelationType{
			legal.RelationRevokes, legal.RelationAmends, legal.RelationRegulates, legal.RelationReferences,
		} {
			assert.True(t, v.IsValid(), string(v))
		}
		assert.False(t, legal.RelationType("substitui").IsValid())
	})
}
