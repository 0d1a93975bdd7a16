package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"

	"github.com/normabase/normabase/engine/legal"
	"github.com/normabase/normabase/pkg/logger"
)

// Relation provenance. Replacing one source never touches rows written
// by the other.
const (
	SourceTextScan  = "text_scan"
	SourceTitleList = "title_list"
)

const (
	titleListPattern = "govbr_list_title"
	maxEvidenceChars = 300
)

const insertRelationSQL = `
INSERT INTO legal_relation (
    source_doc_id, target_doc_id, target_ref,
    relation_type, confidence, needs_review, source, notes,
    evidence_text, evidence_pattern, evidence_position
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// docIDParts splits "{type}_{number}_{year}_{jurisdiction}" for number
// variant probing.
var docIDParts = regexp.MustCompile(`^([a-z_]+)_(\d+)_(\d{4})_(.+)$`)

// RelationRepo persists directed relations between documents.
type RelationRepo struct {
	db DBInterface
}

func NewRelationRepo(db DBInterface) *RelationRepo {
	return &RelationRepo{db: db}
}

// ReplaceTextScan deletes every text-scan relation of the source document
// and inserts the freshly extracted set in one transaction. Title-list
// rows survive. Returns the number of relations inserted.
func (r *RelationRepo) ReplaceTextScan(ctx context.Context, sourceDocID string, matches []legal.RelationMatch) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, &PersistenceError{DocID: sourceDocID, Op: "begin", Err: err}
	}
	inserted, err := replaceTextScanTx(ctx, tx, sourceDocID, matches)
	if err != nil {
		rollback(ctx, tx, sourceDocID)
		return 0, &PersistenceError{DocID: sourceDocID, Op: "replace relations", Err: err}
	}
	if err := tx.Commit(ctx); err != nil {
		rollback(ctx, tx, sourceDocID)
		return 0, &PersistenceError{DocID: sourceDocID, Op: "commit", Err: err}
	}
	logger.FromContext(ctx).Info("relations written", "doc_id", sourceDocID, "count", inserted)
	return inserted, nil
}

func replaceTextScanTx(ctx context.Context, tx pgx.Tx, sourceDocID string, matches []legal.RelationMatch) (int, error) {
	if _, err := tx.Exec(ctx,
		"DELETE FROM legal_relation WHERE source_doc_id = $1 AND source = $2",
		sourceDocID, SourceTextScan,
	); err != nil {
		return 0, fmt.Errorf("delete stale relations: %w", err)
	}
	inserted := 0
	for i := range matches {
		m := &matches[i]
		target, err := resolveTarget(ctx, tx, m.TargetDocID)
		if err != nil {
			return inserted, fmt.Errorf("resolve target %q: %w", m.TargetDocID, err)
		}
		if _, err := tx.Exec(ctx, insertRelationSQL,
			sourceDocID, target, m.TargetRef,
			string(m.RelationType), string(m.Confidence), m.NeedsReview, SourceTextScan, nil,
			m.EvidenceText, m.EvidencePattern, m.EvidencePosition,
		); err != nil {
			return inserted, fmt.Errorf("insert relation to %q: %w", m.TargetRef, err)
		}
		inserted++
	}
	return inserted, nil
}

// InsertTitleRevocation additively records a revocation announced by the
// publication list caption rather than the document body. Unresolved
// targets keep a NULL target_doc_id alongside the textual reference.
func (r *RelationRepo) InsertTitleRevocation(ctx context.Context, sourceDocID, targetDocID, targetRef, caption string) error {
	target, err := resolveTarget(ctx, r.db, targetDocID)
	if err != nil {
		return &PersistenceError{DocID: sourceDocID, Op: "resolve revoked target", Err: err}
	}
	evidence := caption
	if len(evidence) > maxEvidenceChars {
		cut := maxEvidenceChars
		for cut > 0 && !utf8.RuneStart(evidence[cut]) {
			cut--
		}
		evidence = evidence[:cut]
	}
	if _, err := r.db.Exec(ctx, insertRelationSQL,
		sourceDocID, target, targetRef,
		string(legal.RelationRevokes), string(legal.ConfidenceHigh), false, SourceTitleList,
		"Revogacao detectada no titulo da lista de publicacao",
		evidence, titleListPattern, 0,
	); err != nil {
		return &PersistenceError{DocID: sourceDocID, Op: "insert title revocation", Err: err}
	}
	logger.FromContext(ctx).Info("title revocation recorded",
		"doc_id", sourceDocID, "target_ref", targetRef)
	return nil
}

// querier is the read surface shared by the pool and an open transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// resolveTarget probes the document table for a candidate id. Stored ids
// carry inconsistent leading zeros on the number segment, so after an
// exact miss it retries a zero-padded variant and a zero-stripped one.
// Returns nil when nothing matches so the textual reference still lands.
func resolveTarget(ctx context.Context, q querier, candidate string) (any, error) {
	if candidate == "" {
		return nil, nil
	}
	variants := []string{candidate}
	if m := docIDParts.FindStringSubmatch(candidate); m != nil {
		prefix, num, year, suffix := m[1], m[2], m[3], m[4]
		if len(num) == 1 {
			variants = append(variants, fmt.Sprintf("%s_0%s_%s_%s", prefix, num, year, suffix))
		}
		if stripped := strings.TrimLeft(num, "0"); stripped != num {
			if stripped == "" {
				stripped = "0"
			}
			variants = append(variants, fmt.Sprintf("%s_%s_%s_%s", prefix, stripped, year, suffix))
		}
	}
	for _, variant := range variants {
		var docID string
		err := q.QueryRow(ctx,
			"SELECT doc_id FROM legal_document WHERE doc_id = $1", variant,
		).Scan(&docID)
		switch {
		case err == nil:
			return docID, nil
		case errors.Is(err, pgx.ErrNoRows):
			continue
		default:
			return nil, err
		}
	}
	return nil, nil
}

// RelationRecord is the persisted shape of a relation row.
type RelationRecord struct {
	ID               int64   `db:"id"`
	SourceDocID      string  `db:"source_doc_id"`
	TargetDocID      *string `db:"target_doc_id"`
	TargetRef        string  `db:"target_ref"`
	RelationType     string  `db:"relation_type"`
	Confidence       string  `db:"confidence"`
	NeedsReview      bool    `db:"needs_review"`
	Source           string  `db:"source"`
	Notes            *string `db:"notes"`
	EvidenceText     string  `db:"evidence_text"`
	EvidencePattern  string  `db:"evidence_pattern"`
	EvidencePosition int     `db:"evidence_position"`
}

// ListBySource returns every relation originating from a document, both
// provenances, in insertion order.
func (r *RelationRepo) ListBySource(ctx context.Context, sourceDocID string) ([]RelationRecord, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, source_doc_id, target_doc_id, target_ref,
       relation_type, confidence, needs_review, source, notes,
       evidence_text, evidence_pattern, evidence_position
FROM legal_relation
WHERE source_doc_id = $1
ORDER BY id`, sourceDocID)
	if err != nil {
		return nil, fmt.Errorf("store: query relations: %w", err)
	}
	defer rows.Close()
	var records []RelationRecord
	for rows.Next() {
		var rec RelationRecord
		if err := rows.Scan(
			&rec.ID, &rec.SourceDocID, &rec.TargetDocID, &rec.TargetRef,
			&rec.RelationType, &rec.Confidence, &rec.NeedsReview, &rec.Source, &rec.Notes,
			&rec.EvidenceText, &rec.EvidencePattern, &rec.EvidencePosition,
		); err != nil {
			return nil, fmt.Errorf("store: scan relation: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate relations: %w", err)
	}
	return records, nil
}
