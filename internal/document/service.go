// Package document handles document ingestion: validation, chunking,
// embedding generation, and persistence.
package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/vkoval/docuchat/internal/embedding"
	"github.com/vkoval/docuchat/internal/models"
	"github.com/vkoval/docuchat/pkg/chunker"
)

const maxTitleLen = 200

var (
	ErrEmptyContent   = errors.New("document content is required")
	ErrInvalidTitle   = errors.New("document title is required and must be at most 200 characters")
	ErrInvalidURL     = errors.New("document source url is required")
	ErrUnreadableFile = errors.New("uploaded file is not a readable pdf")
)

// Store is the persistence surface the service needs. Implemented by
// docstore.Store.
type Store interface {
	Insert(ctx context.Context, doc *models.Document) error
	UpdateIngested(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, projectID, id uuid.UUID) (*models.Document, error)
	GetWithEmbeddings(ctx context.Context, projectID, id uuid.UUID) (*models.Document, error)
	List(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]models.Document, error)
	Delete(ctx context.Context, projectID, id uuid.UUID) error
	DeleteByProject(ctx context.Context, projectID uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

// IngestQueue enqueues background ingestion for documents whose content has
// to be fetched first (url type).
type IngestQueue interface {
	EnqueueDocumentIngest(docID, projectID uuid.UUID) error
}

type Service struct {
	store     Store
	embedSvc  *embedding.Service
	queue     IngestQueue
	chunkOpts chunker.Options
}

func NewService(store Store, embedSvc *embedding.Service, queue IngestQueue, chunkOpts chunker.Options) *Service {
	if chunkOpts.ChunkSize <= 0 {
		chunkOpts = chunker.DefaultOptions()
	}
	return &Service{
		store:     store,
		embedSvc:  embedSvc,
		queue:     queue,
		chunkOpts: chunkOpts,
	}
}

type CreateTextRequest struct {
	ProjectID uuid.UUID
	CreatedBy *uuid.UUID
	Title     string
	Content   string
}

// CreateText ingests a raw text document synchronously: chunk, embed,
// persist. Embedding failures degrade to absent vectors; once validation
// passes, creation itself cannot fail on the provider.
func (s *Service) CreateText(ctx context.Context, req CreateTextRequest) (*models.Document, error) {
	if err := validateTitle(req.Title); err != nil {
		return nil, err
	}
	if req.Content == "" {
		return nil, ErrEmptyContent
	}

	doc := &models.Document{
		ID:        uuid.New(),
		ProjectID: req.ProjectID,
		CreatedBy: req.CreatedBy,
		Title:     req.Title,
		Content:   req.Content,
		Type:      models.DocTypeText,
	}
	s.ingest(ctx, doc)

	if err := s.store.Insert(ctx, doc); err != nil {
		return nil, fmt.Errorf("persist document: %w", err)
	}
	return doc, nil
}

type CreateFileRequest struct {
	ProjectID uuid.UUID
	CreatedBy *uuid.UUID
	Title     string
	FileName  string
	MIMEType  string
	Data      []byte
}

// CreateFile ingests an uploaded PDF: text extraction happens in-request,
// then the document follows the same synchronous path as raw text.
func (s *Service) CreateFile(ctx context.Context, req CreateFileRequest) (*models.Document, error) {
	if err := validateTitle(req.Title); err != nil {
		return nil, err
	}

	content, err := ExtractPDF(req.Data)
	if err != nil {
		// Extraction failure means the client sent something that is not
		// a parseable PDF, not that the platform broke.
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	if content == "" {
		return nil, ErrEmptyContent
	}

	doc := &models.Document{
		ID:        uuid.New(),
		ProjectID: req.ProjectID,
		CreatedBy: req.CreatedBy,
		Title:     req.Title,
		Content:   content,
		Type:      models.DocTypePDF,
		Metadata: models.DocumentMeta{
			FileName: req.FileName,
			FileSize: int64(len(req.Data)),
			MIMEType: req.MIMEType,
		},
	}
	s.ingest(ctx, doc)

	if err := s.store.Insert(ctx, doc); err != nil {
		return nil, fmt.Errorf("persist document: %w", err)
	}
	return doc, nil
}

type CreateURLRequest struct {
	ProjectID uuid.UUID
	CreatedBy *uuid.UUID
	Title     string
	SourceURL string
}

// CreateURL records a url document in pending state and hands the fetch +
// ingestion to the background worker. The response returns before any
// content exists.
func (s *Service) CreateURL(ctx context.Context, req CreateURLRequest) (*models.Document, error) {
	if err := validateTitle(req.Title); err != nil {
		return nil, err
	}
	if req.SourceURL == "" {
		return nil, ErrInvalidURL
	}

	doc := &models.Document{
		ID:        uuid.New(),
		ProjectID: req.ProjectID,
		CreatedBy: req.CreatedBy,
		Title:     req.Title,
		Type:      models.DocTypeURL,
		Status:    models.DocStatusPending,
		Metadata:  models.DocumentMeta{SourceURL: req.SourceURL},
	}

	if err := s.store.Insert(ctx, doc); err != nil {
		return nil, fmt.Errorf("persist document: %w", err)
	}

	if err := s.queue.EnqueueDocumentIngest(doc.ID, doc.ProjectID); err != nil {
		// The document row exists; a failed enqueue leaves it pending for a
		// later retry rather than rolling the upload back.
		slog.Error("failed to enqueue url ingestion", "document_id", doc.ID, "error", err)
	}
	return doc, nil
}

// IngestFetched completes a pending url document once the worker has its
// content.
func (s *Service) IngestFetched(ctx context.Context, projectID, docID uuid.UUID, content string) error {
	if content == "" {
		if err := s.store.UpdateStatus(ctx, docID, models.DocStatusFailed); err != nil {
			return fmt.Errorf("mark failed: %w", err)
		}
		return ErrEmptyContent
	}

	doc, err := s.store.GetByID(ctx, projectID, docID)
	if err != nil {
		return fmt.Errorf("load pending document: %w", err)
	}

	doc.Content = content
	s.ingest(ctx, doc)

	if err := s.store.UpdateIngested(ctx, doc); err != nil {
		return fmt.Errorf("persist ingested document: %w", err)
	}
	return nil
}

// ingest populates chunks and embeddings in place and sets the document
// status. It never fails: provider errors leave absent vectors behind and
// the status records the degradation.
func (s *Service) ingest(ctx context.Context, doc *models.Document) {
	chunks := chunker.Split(doc.Content, s.chunkOpts)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, failed := s.embedSvc.EmbedEach(ctx, texts)

	doc.Chunks = make([]models.Chunk, len(chunks))
	for i, c := range chunks {
		doc.Chunks[i] = models.Chunk{
			Index:     c.Index,
			Text:      c.Text,
			Start:     c.Start,
			End:       c.End,
			Embedding: vectors[i],
		}
	}

	doc.Embedding = s.embedSvc.EmbedDocument(ctx, doc.Content)

	doc.Status = models.DocStatusReady
	if failed > 0 || doc.Embedding == nil {
		doc.Status = models.DocStatusDegraded
		slog.Warn("document stored with missing embeddings",
			"document_id", doc.ID, "chunks", len(chunks), "failed_chunks", failed,
			"document_embedding", doc.Embedding != nil)
	}
}

func (s *Service) Get(ctx context.Context, projectID, id uuid.UUID) (*models.Document, error) {
	return s.store.GetByID(ctx, projectID, id)
}

// GetWithEmbeddings is the explicit opt-in read including vector data.
func (s *Service) GetWithEmbeddings(ctx context.Context, projectID, id uuid.UUID) (*models.Document, error) {
	return s.store.GetWithEmbeddings(ctx, projectID, id)
}

func (s *Service) List(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]models.Document, error) {
	return s.store.List(ctx, projectID, limit, offset)
}

func (s *Service) Delete(ctx context.Context, projectID, id uuid.UUID) error {
	return s.store.Delete(ctx, projectID, id)
}

func (s *Service) DeleteByProject(ctx context.Context, projectID uuid.UUID) error {
	return s.store.DeleteByProject(ctx, projectID)
}

func validateTitle(title string) error {
	if title == "" || len(title) > maxTitleLen {
		return ErrInvalidTitle
	}
	return nil
}
