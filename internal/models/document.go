package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/vkoval/docuchat/internal/embedding"
)

const (
	DocTypeText = "text"
	DocTypePDF  = "pdf"
	DocTypeURL  = "url"
)

const (
	DocStatusPending    = "pending"    // created, extraction/ingestion queued
	DocStatusProcessing = "processing" // worker is extracting or embedding
	DocStatusReady      = "ready"      // all embeddings generated
	DocStatusDegraded   = "degraded"   // stored, but one or more embeddings missing
	DocStatusFailed     = "failed"     // extraction failed, no content stored
)

// DocumentMeta describes the source of a document. Which fields are set
// depends on the document type: file name/size/MIME for uploads, source URL
// for url documents.
type DocumentMeta struct {
	FileName  string `json:"file_name,omitempty"`
	FileSize  int64  `json:"file_size,omitempty"`
	MIMEType  string `json:"mime_type,omitempty"`
	SourceURL string `json:"source_url,omitempty"`
}

type Document struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	ProjectID uuid.UUID        `json:"project_id" db:"project_id"`
	CreatedBy *uuid.UUID       `json:"created_by,omitempty" db:"created_by"`
	Title     string           `json:"title" db:"title"`
	Content   string           `json:"content,omitempty" db:"content"`
	Type      string           `json:"type" db:"type"`
	Status    string           `json:"status" db:"status"`
	Metadata  DocumentMeta     `json:"metadata" db:"metadata"`
	Embedding embedding.Vector `json:"-" db:"embedding"`
	Chunks    []Chunk          `json:"chunks,omitempty" db:"-"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// Chunk is a contiguous slice of its document's content. Start/End are byte
// offsets into Content (end exclusive); chunks tile the content in order
// with no gaps or overlaps. A nil Embedding means generation failed for this
// chunk; the text and offsets are still valid.
type Chunk struct {
	Index     int              `json:"index" db:"chunk_index"`
	Text      string           `json:"text" db:"content"`
	Start     int              `json:"start_index" db:"start_index"`
	End       int              `json:"end_index" db:"end_index"`
	Embedding embedding.Vector `json:"-" db:"embedding"`
}
