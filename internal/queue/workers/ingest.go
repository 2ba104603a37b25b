package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/vkoval/docuchat/internal/document"
	"github.com/vkoval/docuchat/internal/models"
	"github.com/vkoval/docuchat/internal/queue"
)

// IngestWorker completes url documents: fetch the source, extract text,
// then run the standard chunk-and-embed ingestion.
type IngestWorker struct {
	docSvc  *document.Service
	fetcher *document.Fetcher
}

func NewIngestWorker(docSvc *document.Service, fetcher *document.Fetcher) *IngestWorker {
	return &IngestWorker{
		docSvc:  docSvc,
		fetcher: fetcher,
	}
}

func (w *IngestWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.DocumentIngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	docID, err := uuid.Parse(payload.DocumentID)
	if err != nil {
		return fmt.Errorf("parse document ID: %w", err)
	}
	projectID, err := uuid.Parse(payload.ProjectID)
	if err != nil {
		return fmt.Errorf("parse project ID: %w", err)
	}

	slog.Info("ingesting url document", "document_id", docID)

	doc, err := w.docSvc.Get(ctx, projectID, docID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if doc.Type != models.DocTypeURL {
		return fmt.Errorf("document %s is not a url document", docID)
	}

	content, err := w.fetcher.Fetch(ctx, doc.Metadata.SourceURL)
	if err != nil {
		// Fetch failures are retryable; the document stays pending until
		// asynq gives up.
		return fmt.Errorf("fetch %s: %w", doc.Metadata.SourceURL, err)
	}

	if err := w.docSvc.IngestFetched(ctx, projectID, docID, content); err != nil {
		return fmt.Errorf("ingest fetched content: %w", err)
	}

	slog.Info("url document ingested", "document_id", docID)
	return nil
}
