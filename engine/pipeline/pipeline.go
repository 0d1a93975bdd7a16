// Package pipeline orchestrates document ingestion: fetch raw bytes,
// extract text, derive structure, persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/normabase/normabase/engine/chunker"
	"github.com/normabase/normabase/engine/extract"
	"github.com/normabase/normabase/engine/infra/blob"
	"github.com/normabase/normabase/engine/legal"
	"github.com/normabase/normabase/engine/relation"
	"github.com/normabase/normabase/engine/vigency"
	"github.com/normabase/normabase/pkg/logger"
)

// minTextChars is the threshold below which an extracted document is
// skipped rather than chunked.
const minTextChars = 100

// Outcome statuses. Skips are terminal classifications, not errors.
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
	StatusDryRun  = "dry_run"
	StatusError   = "error"
)

// DocumentWriter is the persistence surface the pipeline needs for
// documents.
type DocumentWriter interface {
	WriteDocument(ctx context.Context, doc *legal.LegalDocumentRow) (legal.WriteReport, error)
	UpdateEffectiveDates(ctx context.Context, docID string, res legal.EffectiveDateResult) error
	MarkRevoked(ctx context.Context, docID string) error
}

// RelationWriter persists the relations extracted from a document body.
type RelationWriter interface {
	ReplaceTextScan(ctx context.Context, sourceDocID string, matches []legal.RelationMatch) (int, error)
}

// Options tunes a pipeline run.
type Options struct {
	DryRun           bool
	Jurisdiction     string
	MaxChunkChars    int
	FallbackMinChars int
	Workers          int
}

func (o Options) withDefaults() Options {
	if o.Jurisdiction == "" {
		o.Jurisdiction = "federal_br"
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	return o
}

// Outcome reports what happened to one blob.
type Outcome struct {
	BlobName   string
	DocID      string
	Status     string
	Reason     string
	Extractor  string
	CharCount  int
	Provisions int
	Chunks     int
	Relations  int
}

// Pipeline runs the ingest stages against a blob store and a database.
type Pipeline struct {
	blobs     blob.Getter
	docs      DocumentWriter
	relations RelationWriter
	opts      Options
}

func New(blobs blob.Getter, docs DocumentWriter, relations RelationWriter, opts Options) *Pipeline {
	return &Pipeline{
		blobs:     blobs,
		docs:      docs,
		relations: relations,
		opts:      opts.withDefaults(),
	}
}

// ProcessOne ingests a single blob end to end. Insufficient text yields a
// skip; only persistence failures yield an error outcome.
func (p *Pipeline) ProcessOne(ctx context.Context, blobName string) Outcome {
	log := logger.FromContext(ctx)
	start := time.Now()
	outcome := Outcome{BlobName: blobName, Status: StatusError}
	meta := ParseBlobPath(blobName)
	defer func() {
		recordDocument(ctx, outcome.Status)
		recordIngestDuration(ctx, meta.DocType, time.Since(start))
	}()

	data, err := p.blobs.GetBytes(ctx, blobName)
	if err != nil {
		outcome.Reason = fmt.Sprintf("fetch failed: %v", err)
		log.Error("blob fetch failed", "blob", blobName, "error", err)
		return outcome
	}
	res, err := extract.Extract(data, meta.Filename)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupportedFormat) {
			outcome.Status = StatusSkipped
			outcome.Reason = "unsupported format"
			log.Warn("unsupported format", "blob", blobName)
			return outcome
		}
		outcome.Reason = fmt.Sprintf("extraction failed: %v", err)
		log.Error("extraction failed", "blob", blobName, "error", err)
		return outcome
	}
	outcome.Extractor = res.Extractor
	outcome.CharCount = res.CharCount
	if res.CharCount < minTextChars {
		outcome.Status = StatusSkipped
		outcome.Reason = fmt.Sprintf("text too short (%d chars)", res.CharCount)
		log.Warn("text too short", "blob", blobName, "chars", res.CharCount)
		return outcome
	}

	docID := meta.DocID
	if docID == "" {
		docID = FallbackDocID(meta.Filename)
		log.Warn("doc id derived from filename", "blob", blobName, "doc_id", docID)
	}
	outcome.DocID = docID

	provisions, chunks, err := chunker.ChunkLegalTextWithOptions(res.Text, docID, meta.TitleShort, chunker.Options{
		MaxChunkChars:    p.opts.MaxChunkChars,
		FallbackMinChars: p.opts.FallbackMinChars,
	})
	if err != nil {
		outcome.Reason = fmt.Sprintf("chunking failed: %v", err)
		log.Error("chunking failed", "blob", blobName, "error", err)
		return outcome
	}
	outcome.Provisions = len(provisions)
	outcome.Chunks = len(chunks)

	matches := relation.ExtractRelations(res.Text, docID)
	outcome.Relations = len(matches)
	dates := vigency.ExtractEffectiveDates(res.Text, docID)

	if p.opts.DryRun {
		outcome.Status = StatusDryRun
		log.Info("dry run", "doc_id", docID,
			"provisions", len(provisions), "chunks", len(chunks), "relations", len(matches))
		return outcome
	}

	doc := &legal.LegalDocumentRow{
		DocID:          docID,
		JurisdictionID: p.opts.Jurisdiction,
		DocType:        meta.DocType,
		Number:         meta.Number,
		Year:           meta.Year,
		Title:          meta.TitleShort,
		SourceBlobPath: blobName,
		SourceFormat:   res.SourceFormat,
		TextSHA256:     res.SHA256,
		CharCount:      res.CharCount,
		Provisions:     provisions,
		Chunks:         chunks,
	}
	if _, err := p.docs.WriteDocument(ctx, doc); err != nil {
		outcome.Reason = err.Error()
		log.Error("document write failed", "doc_id", docID, "error", err)
		return outcome
	}
	if _, err := p.relations.ReplaceTextScan(ctx, docID, matches); err != nil {
		outcome.Reason = err.Error()
		log.Error("relation write failed", "doc_id", docID, "error", err)
		return outcome
	}
	if err := p.docs.UpdateEffectiveDates(ctx, docID, dates); err != nil {
		outcome.Reason = err.Error()
		log.Error("effective date write failed", "doc_id", docID, "error", err)
		return outcome
	}

	recordChunks(ctx, meta.DocType, len(chunks))
	recordRelations(ctx, meta.DocType, len(matches))
	outcome.Status = StatusOK
	log.Info("document ingested", "doc_id", docID,
		"provisions", len(provisions), "chunks", len(chunks),
		"relations", len(matches), "vigor_pattern", dates.VigorPattern)
	return outcome
}

// BatchReport aggregates a batch run.
type BatchReport struct {
	Total    int
	OK       int
	Skipped  int
	DryRun   int
	Errors   int
	Outcomes []Outcome
}

// ProcessBatch ingests every ingestible blob under prefix with a bounded
// worker pool. filter, when non-empty, keeps only blob names containing
// it; limit > 0 caps the batch size. Individual document failures do not
// stop the batch.
func (p *Pipeline) ProcessBatch(ctx context.Context, prefix, filter string, limit int) (*BatchReport, error) {
	runID := uuid.New().String()
	log := logger.FromContext(ctx).With("run_id", runID)
	ctx = logger.ContextWith(ctx, log)

	names, err := p.blobs.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("pipeline: list blobs: %w", err)
	}
	selected := make([]string, 0, len(names))
	for _, name := range names {
		if !ingestible(name) {
			continue
		}
		if filter != "" && !strings.Contains(name, filter) {
			continue
		}
		selected = append(selected, name)
		if limit > 0 && len(selected) == limit {
			break
		}
	}
	log.Info("batch start", "total", len(selected), "dry_run", p.opts.DryRun)

	pool, err := ants.NewPool(p.opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("pipeline: create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		outcomes = make([]Outcome, 0, len(selected))
	)
	for _, name := range selected {
		if err := ctx.Err(); err != nil {
			break
		}
		blobName := name
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			outcome := p.ProcessOne(ctx, blobName)
			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			outcomes = append(outcomes, Outcome{
				BlobName: blobName,
				Status:   StatusError,
				Reason:   fmt.Sprintf("submit failed: %v", submitErr),
			})
			mu.Unlock()
		}
	}
	wg.Wait()

	report := &BatchReport{Total: len(selected), Outcomes: outcomes}
	for i := range outcomes {
		switch outcomes[i].Status {
		case StatusOK:
			report.OK++
		case StatusSkipped:
			report.Skipped++
		case StatusDryRun:
			report.DryRun++
		default:
			report.Errors++
		}
	}
	log.Info("batch complete",
		"total", report.Total, "ok", report.OK, "skipped", report.Skipped,
		"dry_run", report.DryRun, "errors", report.Errors)
	return report, nil
}

func ingestible(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".pdf") ||
		strings.HasSuffix(lower, ".docx") ||
		strings.HasSuffix(lower, ".html") ||
		strings.HasSuffix(lower, ".htm")
}
