package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normabase/normabase/engine/infra/store"
	"github.com/normabase/normabase/engine/legal"
)

func revocationMatch() legal.RelationMatch {
	return legal.RelationMatch{
		RelationType:     legal.RelationRevokes,
		TargetRef:        "Lei 8.666 /1993",
		TargetDocID:      "lei_8666_1993_federal_br",
		Confidence:       legal.ConfidenceHigh,
		NeedsReview:      false,
		EvidenceText:     "ficam revogados a Lei nº 8.666, de 1993",
		EvidencePattern:  "revoga_ficam",
		EvidencePosition: 120,
	}
}

func TestRelationRepo_ReplaceTextScan(t *testing.T) {
	t.Run("Should replace only text-scan rows and resolve exact targets", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := store.NewRelationRepo(mock)
		m := revocationMatch()

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM legal_relation").
			WithArgs("lei_14133_2021_federal_br", "text_scan").
			WillReturnResult(pgxmock.NewResult("DELETE", 2))
		mock.ExpectQuery("SELECT doc_id FROM legal_document").
			WithArgs("lei_8666_1993_federal_br").
			WillReturnRows(mock.NewRows([]string{"doc_id"}).AddRow("lei_8666_1993_federal_br"))
		mock.ExpectExec("INSERT INTO legal_relation").
			WithArgs(
				"lei_14133_2021_federal_br", "lei_8666_1993_federal_br", m.TargetRef,
				"revoga", "high", false, "text_scan", nil,
				m.EvidenceText, m.EvidencePattern, m.EvidencePosition,
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		inserted, err := repo.ReplaceTextScan(context.Background(), "lei_14133_2021_federal_br", []legal.RelationMatch{m})
		require.NoError(t, err)
		assert.Equal(t, 1, inserted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("Should fall back to zero-stripped number variants", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := store.NewRelationRepo(mock)
		m := revocationMatch()
		m.TargetDocID = "in_02_2010_federal_br"

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM legal_relation").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectQuery("SELECT doc_id FROM legal_document").
			WithArgs("in_02_2010_federal_br").
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery("SELECT doc_id FROM legal_document").
			WithArgs("in_2_2010_federal_br").
			WillReturnRows(mock.NewRows([]string{"doc_id"}).AddRow("in_2_2010_federal_br"))
		mock.ExpectExec("INSERT INTO legal_relation").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		_, err = repo.ReplaceTextScan(context.Background(), "doc", []legal.RelationMatch{m})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("Should try the zero-padded variant for single-digit numbers", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := store.NewRelationRepo(mock)
		m := revocationMatch()
		m.TargetDocID = "in_5_2017_federal_br"

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM legal_relation").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectQuery("SELECT doc_id FROM legal_document").
			WithArgs("in_5_2017_federal_br").
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery("SELECT doc_id FROM legal_document").
			WithArgs("in_05_2017_federal_br").
			WillReturnRows(mock.NewRows([]string{"doc_id"}).AddRow("in_05_2017_federal_br"))
		mock.ExpectExec("INSERT INTO legal_relation").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		_, err = repo.ReplaceTextScan(context.Background(), "doc", []legal.RelationMatch{m})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("Should insert unresolved targets with the textual reference only", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := store.NewRelationRepo(mock)
		m := revocationMatch()
		m.TargetDocID = "lei_99999_1990_federal_br"

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM legal_relation").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectQuery("SELECT doc_id FROM legal_document").
			WithArgs("lei_99999_1990_federal_br").
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectExec("INSERT INTO legal_relation").
			WithArgs(
				"doc", nil, m.TargetRef,
				"revoga", "high", false, "text_scan", nil,
				m.EvidenceText, m.EvidencePattern, m.EvidencePosition,
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		_, err = repo.ReplaceTextScan(context.Background(), "doc", []legal.RelationMatch{m})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("Should skip resolution for blanket matches without a candidate", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := store.NewRelationRepo(mock)
		m := legal.RelationMatch{
			RelationType:    legal.RelationRevokes,
			TargetRef:       "disposicoes em contrario (generico)",
			Confidence:      legal.ConfidenceLow,
			NeedsReview:     true,
			EvidencePattern: "revogam_se_contrario",
		}

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM legal_relation").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectExec("INSERT INTO legal_relation").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		_, err = repo.ReplaceTextScan(context.Background(), "doc", []legal.RelationMatch{m})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("Should roll back when an insert fails", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := store.NewRelationRepo(mock)
		m := revocationMatch()

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM legal_relation").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectQuery("SELECT doc_id FROM legal_document").
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectExec("INSERT INTO legal_relation").
			WillReturnError(errors.New("deadlock detected"))
		mock.ExpectRollback()

		_, err = repo.ReplaceTextScan(context.Background(), "doc", []legal.RelationMatch{m})
		require.Error(t, err)
		var perr *store.PersistenceError
		assert.ErrorAs(t, err, &perr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRelationRepo_InsertTitleRevocation(t *testing.T) {
	t.Run("Should additively insert a high-confidence title-list row", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := store.NewRelationRepo(mock)

		mock.ExpectQuery("SELECT doc_id FROM legal_document").
			WithArgs("in_90_2022_federal_br").
			WillReturnRows(mock.NewRows([]string{"doc_id"}).AddRow("in_90_2022_federal_br"))
		mock.ExpectExec("INSERT INTO legal_relation").
			WithArgs(
				"in_5_2017_federal_br", "in_90_2022_federal_br", "IN nº 90, de 2022",
				"revoga", "high", false, "title_list",
				"Revogacao detectada no titulo da lista de publicacao",
				pgxmock.AnyArg(), "govbr_list_title", 0,
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err = repo.InsertTitleRevocation(context.Background(),
			"in_5_2017_federal_br", "in_90_2022_federal_br", "IN nº 90, de 2022",
			"INSTRUÇÃO NORMATIVA Nº 5, DE 2017 (Revogada pela IN nº 90, de 2022)")
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
