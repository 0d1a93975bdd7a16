package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normabase/normabase/engine/pipeline"
)

func TestParseCaption(t *testing.T) {
	t.Run("Should parse an instrucao normativa with issuing organ", func(t *testing.T) {
		id, ok := pipeline.ParseCaption("INSTRUÇÃO NORMATIVA SEGES/MGI Nº 512, DE 3 DE DEZEMBRO DE 2025")
		require.True(t, ok)
		assert.Equal(t, "in_512_2025_federal_br", id.DocID)
		assert.Equal(t, "instrucao_normativa", id.DocType)
		assert.Equal(t, "512", id.Number)
		assert.Equal(t, 2025, id.Year)
	})
	t.Run("Should parse a plain lei caption", func(t *testing.T) {
		id, ok := pipeline.ParseCaption("LEI Nº 14.133, DE 1º DE ABRIL DE 2021")
		require.True(t, ok)
		assert.Equal(t, "lei_14133_2021_federal_br", id.DocID)
		assert.Equal(t, "14133", id.Number)
	})
	t.Run("Should match compound types before their prefixes", func(t *testing.T) {
		id, ok := pipeline.ParseCaption("LEI COMPLEMENTAR Nº 123, DE 14 DE DEZEMBRO DE 2006")
		require.True(t, ok)
		assert.Equal(t, "lc_123_2006_federal_br", id.DocID)
		assert.Equal(t, "lei_complementar", id.DocType)
	})
	t.Run("Should strip leading zeros from the number", func(t *testing.T) {
		id, ok := pipeline.ParseCaption("PORTARIA Nº 089, DE 2 DE MAIO DE 2023")
		require.True(t, ok)
		assert.Equal(t, "portaria_89_2023_federal_br", id.DocID)
	})
	t.Run("Should ignore a revocation parenthetical while parsing", func(t *testing.T) {
		id, ok := pipeline.ParseCaption(
			"INSTRUÇÃO NORMATIVA Nº 5, DE 26 DE MAIO DE 2017 (Revogada pela IN nº 90, de 2022)")
		require.True(t, ok)
		assert.Equal(t, "in_5_2017_federal_br", id.DocID)
	})
	t.Run("Should reject captions without a year", func(t *testing.T) {
		_, ok := pipeline.ParseCaption("PORTARIA Nº 89")
		assert.False(t, ok)
	})
	t.Run("Should reject unrecognized instrument types", func(t *testing.T) {
		_, ok := pipeline.ParseCaption("DESPACHO Nº 12, DE 5 DE JANEIRO DE 2024")
		assert.False(t, ok)
	})
}

func TestRevokedRefFromCaption(t *testing.T) {
	t.Run("Should return the instrument named by the parenthetical", func(t *testing.T) {
		ref := pipeline.RevokedRefFromCaption(
			"INSTRUÇÃO NORMATIVA Nº 5, DE 26 DE MAIO DE 2017 (Revogada pela IN nº 90, de 2022)")
		assert.Equal(t, "IN nº 90, de 2022", ref)
	})
	t.Run("Should accept the masculine inflection", func(t *testing.T) {
		ref := pipeline.RevokedRefFromCaption(
			"DECRETO Nº 9.412, DE 18 DE JUNHO DE 2018 (Revogado pelo Decreto nº 11.317, de 2022)")
		assert.Equal(t, "Decreto nº 11.317, de 2022", ref)
	})
	t.Run("Should return empty without a parenthetical", func(t *testing.T) {
		assert.Empty(t, pipeline.RevokedRefFromCaption("LEI Nº 14.133, DE 1º DE ABRIL DE 2021"))
	})
}
