package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"github.com/normabase/normabase/engine/legal"
	"github.com/normabase/normabase/pkg/logger"
)

// statusChunked marks a document whose provisions and chunks are current.
const statusChunked = "chunked"

const upsertDocumentSQL = `
INSERT INTO legal_document (
    doc_id, jurisdiction_id, doc_type, number, year, title,
    source_blob_path, source_format, text_sha256, char_count,
    provision_count, chunk_count, status, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now())
ON CONFLICT (doc_id) DO UPDATE SET
    jurisdiction_id  = EXCLUDED.jurisdiction_id,
    doc_type         = EXCLUDED.doc_type,
    number           = EXCLUDED.number,
    year             = EXCLUDED.year,
    title            = EXCLUDED.title,
    source_blob_path = EXCLUDED.source_blob_path,
    source_format    = EXCLUDED.source_format,
    text_sha256      = EXCLUDED.text_sha256,
    char_count       = EXCLUDED.char_count,
    provision_count  = EXCLUDED.provision_count,
    chunk_count      = EXCLUDED.chunk_count,
    status           = EXCLUDED.status,
    updated_at       = now()`

const upsertProvisionSQL = `
INSERT INTO legal_provision (
    doc_id, provision_key, label, provision_type,
    parent_key, hierarchy_path, order_in_doc
) VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (doc_id, provision_key) DO UPDATE SET
    label          = EXCLUDED.label,
    provision_type = EXCLUDED.provision_type,
    parent_key     = EXCLUDED.parent_key,
    hierarchy_path = EXCLUDED.hierarchy_path,
    order_in_doc   = EXCLUDED.order_in_doc`

const upsertChunkSQL = `
INSERT INTO legal_chunk (
    chunk_id, doc_id, provision_key, order_in_doc,
    content, content_hash, char_count, citation_short, hierarchy_path
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (chunk_id) DO UPDATE SET
    doc_id         = EXCLUDED.doc_id,
    provision_key  = EXCLUDED.provision_key,
    order_in_doc   = EXCLUDED.order_in_doc,
    content        = EXCLUDED.content,
    content_hash   = EXCLUDED.content_hash,
    char_count     = EXCLUDED.char_count,
    citation_short = EXCLUDED.citation_short,
    hierarchy_path = EXCLUDED.hierarchy_path`

// DocumentRepo persists legal documents with their owned provision and
// chunk sets.
type DocumentRepo struct {
	db DBInterface
}

func NewDocumentRepo(db DBInterface) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// WriteDocument upserts the document row, its provisions, and its chunks,
// then deletes rows absent from the new set, all in one transaction.
// Calling it twice with identical input writes identical counts and removes
// zero orphans on the second call.
func (r *DocumentRepo) WriteDocument(ctx context.Context, doc *legal.LegalDocumentRow) (legal.WriteReport, error) {
	if err := doc.Validate(); err != nil {
		return legal.WriteReport{}, err
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return legal.WriteReport{}, &PersistenceError{DocID: doc.DocID, Op: "begin", Err: err}
	}
	report, err := writeDocumentTx(ctx, tx, doc)
	if err != nil {
		rollback(ctx, tx, doc.DocID)
		return legal.WriteReport{}, &PersistenceError{DocID: doc.DocID, Op: "write document", Err: err}
	}
	if err := tx.Commit(ctx); err != nil {
		rollback(ctx, tx, doc.DocID)
		return legal.WriteReport{}, &PersistenceError{DocID: doc.DocID, Op: "commit", Err: err}
	}
	logger.FromContext(ctx).Info("document written",
		"doc_id", doc.DocID,
		"provisions", report.ProvisionsWritten,
		"chunks", report.ChunksWritten,
		"orphans_removed", report.OrphansRemoved,
	)
	return report, nil
}

func writeDocumentTx(ctx context.Context, tx pgx.Tx, doc *legal.LegalDocumentRow) (legal.WriteReport, error) {
	var report legal.WriteReport
	if _, err := tx.Exec(ctx, upsertDocumentSQL,
		doc.DocID, doc.JurisdictionID, doc.DocType, nullableStr(doc.Number), nullableInt(doc.Year),
		doc.Title, doc.SourceBlobPath, string(doc.SourceFormat), doc.TextSHA256, doc.CharCount,
		len(doc.Provisions), len(doc.Chunks), statusChunked,
	); err != nil {
		return report, fmt.Errorf("upsert document: %w", err)
	}
	for i := range doc.Provisions {
		p := &doc.Provisions[i]
		if _, err := tx.Exec(ctx, upsertProvisionSQL,
			doc.DocID, p.ProvisionKey, p.Label, string(p.ProvisionType),
			nullableStr(p.ParentKey), p.HierarchyPath, p.OrderInDoc,
		); err != nil {
			return report, fmt.Errorf("upsert provision %s: %w", p.ProvisionKey, err)
		}
		report.ProvisionsWritten++
	}
	for i := range doc.Chunks {
		c := &doc.Chunks[i]
		if _, err := tx.Exec(ctx, upsertChunkSQL,
			c.ChunkID, c.DocID, c.ProvisionKey, c.OrderInDoc,
			c.Content, c.ContentHash, c.CharCount, c.CitationShort, c.HierarchyPath,
		); err != nil {
			return report, fmt.Errorf("upsert chunk %s: %w", c.ChunkID, err)
		}
		report.ChunksWritten++
	}
	removed, err := removeOrphans(ctx, tx, doc)
	if err != nil {
		return report, err
	}
	report.OrphansRemoved = removed
	return report, nil
}

// removeOrphans deletes previously stored provisions and chunks missing
// from the re-derived set. An empty new set means the document shrank to
// nothing and every stored row goes.
func removeOrphans(ctx context.Context, tx pgx.Tx, doc *legal.LegalDocumentRow) (int, error) {
	removed := 0
	provKeys := make([]string, 0, len(doc.Provisions))
	for i := range doc.Provisions {
		provKeys = append(provKeys, doc.Provisions[i].ProvisionKey)
	}
	chunkIDs := make([]string, 0, len(doc.Chunks))
	for i := range doc.Chunks {
		chunkIDs = append(chunkIDs, doc.Chunks[i].ChunkID)
	}
	// Chunks first so no chunk ever points at a deleted provision.
	tag, err := deleteAbsent(ctx, tx, "legal_chunk", "chunk_id", doc.DocID, chunkIDs)
	if err != nil {
		return removed, fmt.Errorf("delete orphan chunks: %w", err)
	}
	removed += int(tag)
	tag, err = deleteAbsent(ctx, tx, "legal_provision", "provision_key", doc.DocID, provKeys)
	if err != nil {
		return removed, fmt.Errorf("delete orphan provisions: %w", err)
	}
	removed += int(tag)
	return removed, nil
}

func deleteAbsent(ctx context.Context, tx pgx.Tx, table, keyCol, docID string, kept []string) (int64, error) {
	if len(kept) == 0 {
		tag, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE doc_id = $1", table), docID)
		if err != nil {
			return 0, err
		}
		return tag.RowsAffected(), nil
	}
	tag, err := tx.Exec(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE doc_id = $1 AND %s <> ALL($2)", table, keyCol),
		docID, kept,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func rollback(ctx context.Context, tx pgx.Tx, docID string) {
	if err := tx.Rollback(ctx); err != nil {
		logger.FromContext(ctx).Warn("rollback failed", "doc_id", docID, "error", err)
	}
}

// UpdateEffectiveDates mutates the four vigency columns on the document
// row. Provisions, chunks, and relations are untouched.
func (r *DocumentRepo) UpdateEffectiveDates(ctx context.Context, docID string, res legal.EffectiveDateResult) error {
	query, args, err := squirrel.Update("legal_document").
		Set("published_at", res.PublishedAt).
		Set("effective_from", res.EffectiveFrom).
		Set("effective_to", res.EffectiveTo).
		Set("status_vigencia", string(res.StatusVigencia)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"doc_id": docID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("store: build dates update: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return &PersistenceError{DocID: docID, Op: "update effective dates", Err: err}
	}
	return nil
}

// MarkRevoked flips a document's vigency status to revogada.
func (r *DocumentRepo) MarkRevoked(ctx context.Context, docID string) error {
	if _, err := r.db.Exec(ctx,
		"UPDATE legal_document SET status_vigencia = $1, updated_at = now() WHERE doc_id = $2",
		string(legal.VigencyRevoked), docID,
	); err != nil {
		return &PersistenceError{DocID: docID, Op: "mark revoked", Err: err}
	}
	return nil
}

// DocumentRecord is the persisted shape of a document row.
type DocumentRecord struct {
	DocID          string     `db:"doc_id"`
	JurisdictionID string     `db:"jurisdiction_id"`
	DocType        string     `db:"doc_type"`
	Number         *string    `db:"number"`
	Year           *int       `db:"year"`
	Title          string     `db:"title"`
	SourceBlobPath string     `db:"source_blob_path"`
	SourceFormat   string     `db:"source_format"`
	TextSHA256     string     `db:"text_sha256"`
	CharCount      int        `db:"char_count"`
	ProvisionCount int        `db:"provision_count"`
	ChunkCount     int        `db:"chunk_count"`
	Status         string     `db:"status"`
	PublishedAt    *time.Time `db:"published_at"`
	EffectiveFrom  *time.Time `db:"effective_from"`
	EffectiveTo    *time.Time `db:"effective_to"`
	StatusVigencia *string    `db:"status_vigencia"`
}

// GetDocument fetches one document row by id.
func (r *DocumentRepo) GetDocument(ctx context.Context, docID string) (*DocumentRecord, error) {
	query, args, err := squirrel.Select(
		"doc_id", "jurisdiction_id", "doc_type", "number", "year", "title",
		"source_blob_path", "source_format", "text_sha256", "char_count",
		"provision_count", "chunk_count", "status",
		"published_at", "effective_from", "effective_to", "status_vigencia",
	).
		From("legal_document").
		Where(squirrel.Eq{"doc_id": docID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: build document select: %w", err)
	}
	var rec DocumentRecord
	if err := pgxscan.Get(ctx, r.db, &rec, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, fmt.Errorf("store: document %s not found", docID)
		}
		return nil, fmt.Errorf("store: scan document: %w", err)
	}
	return &rec, nil
}

// ListProvisions returns the stored provisions of a document in document
// order.
func (r *DocumentRepo) ListProvisions(ctx context.Context, docID string) ([]legal.LegalProvision, error) {
	query, args, err := squirrel.Select(
		"provision_key", "label", "provision_type",
		"coalesce(parent_key, '') AS parent_key", "hierarchy_path", "order_in_doc",
	).
		From("legal_provision").
		Where(squirrel.Eq{"doc_id": docID}).
		OrderBy("order_in_doc").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: build provision select: %w", err)
	}
	var provisions []legal.LegalProvision
	if err := pgxscan.Select(ctx, r.db, &provisions, query, args...); err != nil {
		return nil, fmt.Errorf("store: scan provisions: %w", err)
	}
	return provisions, nil
}

// ListChunks returns the stored chunks of a document in document order.
func (r *DocumentRepo) ListChunks(ctx context.Context, docID string) ([]legal.LegalChunk, error) {
	query, args, err := squirrel.Select(
		"chunk_id", "doc_id", "provision_key", "order_in_doc",
		"content", "content_hash", "char_count", "citation_short", "hierarchy_path",
	).
		From("legal_chunk").
		Where(squirrel.Eq{"doc_id": docID}).
		OrderBy("order_in_doc").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: build chunk select: %w", err)
	}
	var chunks []legal.LegalChunk
	if err := pgxscan.Select(ctx, r.db, &chunks, query, args...); err != nil {
		return nil, fmt.Errorf("store: scan chunks: %w", err)
	}
	return chunks, nil
}

func nullableStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}
