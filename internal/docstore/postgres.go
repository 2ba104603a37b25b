// Package docstore persists documents and their chunks in postgres. It is
// the exclusive owner of embedding data: default reads leave the vector
// columns out, and callers that need them must ask explicitly.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/vkoval/docuchat/internal/embedding"
	"github.com/vkoval/docuchat/internal/models"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Insert writes a document and its chunks in one transaction. Absent
// embeddings are stored as NULL, never as empty vectors.
func (s *Store) Insert(ctx context.Context, doc *models.Document) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO documents (id, project_id, created_by, title, content, type, status, metadata, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		doc.ID, doc.ProjectID, doc.CreatedBy, doc.Title, doc.Content, doc.Type, doc.Status, metadata,
		vectorParam(doc.Embedding),
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	for _, c := range doc.Chunks {
		_, err := tx.Exec(ctx,
			`INSERT INTO document_chunks (id, document_id, project_id, chunk_index, content, start_index, end_index, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			uuid.New(), doc.ID, doc.ProjectID, c.Index, c.Text, c.Start, c.End, vectorParam(c.Embedding),
		)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.Index, err)
		}
	}

	return tx.Commit(ctx)
}

// UpdateIngested stores the extraction + embedding outcome for a document
// created in pending state. Existing chunks are replaced.
func (s *Store) UpdateIngested(ctx context.Context, doc *models.Document) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE documents SET content = $1, status = $2, embedding = $3 WHERE id = $4 AND project_id = $5`,
		doc.Content, doc.Status, vectorParam(doc.Embedding), doc.ID, doc.ProjectID,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, doc.ID); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}

	for _, c := range doc.Chunks {
		_, err := tx.Exec(ctx,
			`INSERT INTO document_chunks (id, document_id, project_id, chunk_index, content, start_index, end_index, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			uuid.New(), doc.ID, doc.ProjectID, c.Index, c.Text, c.Start, c.End, vectorParam(c.Embedding),
		)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.Index, err)
		}
	}

	return tx.Commit(ctx)
}

// GetByID returns one document without embedding data.
func (s *Store) GetByID(ctx context.Context, projectID, id uuid.UUID) (*models.Document, error) {
	var (
		doc      models.Document
		metadata []byte
	)
	err := s.db.QueryRow(ctx,
		`SELECT id, project_id, created_by, title, content, type, status, metadata, created_at
		 FROM documents WHERE id = $1 AND project_id = $2`,
		id, projectID,
	).Scan(&doc.ID, &doc.ProjectID, &doc.CreatedBy, &doc.Title, &doc.Content, &doc.Type, &doc.Status, &metadata, &doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	if err := json.Unmarshal(metadata, &doc.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &doc, nil
}

// List returns a page of documents without content or embedding data.
func (s *Store) List(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]models.Document, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, project_id, created_by, title, type, status, metadata, created_at
		 FROM documents WHERE project_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		projectID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var (
			d        models.Document
			metadata []byte
		)
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.CreatedBy, &d.Title, &d.Type, &d.Status, &metadata, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if err := json.Unmarshal(metadata, &d.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DocumentsWithEmbeddings loads every document in a project with its
// document vector and chunk vectors populated, for in-process ranking.
func (s *Store) DocumentsWithEmbeddings(ctx context.Context, projectID uuid.UUID) ([]models.Document, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, project_id, title, content, type, status, embedding, created_at
		 FROM documents WHERE project_id = $1 AND status IN ($2, $3) ORDER BY created_at`,
		projectID, models.DocStatusReady, models.DocStatusDegraded,
	)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]*models.Document)
	var order []uuid.UUID
	for rows.Next() {
		var (
			d   models.Document
			vec *pgvector.Vector
		)
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.Title, &d.Content, &d.Type, &d.Status, &vec, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.Embedding = fromVectorParam(vec)
		byID[d.ID] = &d
		order = append(order, d.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	chunkRows, err := s.db.Query(ctx,
		`SELECT document_id, chunk_index, content, start_index, end_index, embedding
		 FROM document_chunks WHERE project_id = $1 ORDER BY document_id, chunk_index`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	defer chunkRows.Close()

	for chunkRows.Next() {
		var (
			docID uuid.UUID
			c     models.Chunk
			vec   *pgvector.Vector
		)
		if err := chunkRows.Scan(&docID, &c.Index, &c.Text, &c.Start, &c.End, &vec); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		c.Embedding = fromVectorParam(vec)
		if d, ok := byID[docID]; ok {
			d.Chunks = append(d.Chunks, c)
		}
	}
	if err := chunkRows.Err(); err != nil {
		return nil, err
	}

	docs := make([]models.Document, 0, len(order))
	for _, id := range order {
		docs = append(docs, *byID[id])
	}
	return docs, nil
}

// GetWithEmbeddings returns one document with all vector data, for callers
// that explicitly request it.
func (s *Store) GetWithEmbeddings(ctx context.Context, projectID, id uuid.UUID) (*models.Document, error) {
	var (
		doc      models.Document
		metadata []byte
		vec      *pgvector.Vector
	)
	err := s.db.QueryRow(ctx,
		`SELECT id, project_id, created_by, title, content, type, status, metadata, embedding, created_at
		 FROM documents WHERE id = $1 AND project_id = $2`,
		id, projectID,
	).Scan(&doc.ID, &doc.ProjectID, &doc.CreatedBy, &doc.Title, &doc.Content, &doc.Type, &doc.Status, &metadata, &vec, &doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	doc.Embedding = fromVectorParam(vec)

	if err := json.Unmarshal(metadata, &doc.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT chunk_index, content, start_index, end_index, embedding
		 FROM document_chunks WHERE document_id = $1 ORDER BY chunk_index`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c  models.Chunk
			cv *pgvector.Vector
		)
		if err := rows.Scan(&c.Index, &c.Text, &c.Start, &c.End, &cv); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		c.Embedding = fromVectorParam(cv)
		doc.Chunks = append(doc.Chunks, c)
	}
	return &doc, rows.Err()
}

func (s *Store) Delete(ctx context.Context, projectID, id uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM documents WHERE id = $1 AND project_id = $2`, id, projectID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// DeleteByProject removes every document a project owns. Chunks go with
// them via ON DELETE CASCADE.
func (s *Store) DeleteByProject(ctx context.Context, projectID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM documents WHERE project_id = $1`, projectID)
	if err != nil {
		return fmt.Errorf("delete project documents: %w", err)
	}
	return nil
}

func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := s.db.Exec(ctx, `UPDATE documents SET status = $1 WHERE id = $2`, status, id)
	return err
}

func vectorParam(v embedding.Vector) any {
	if v == nil {
		return nil
	}
	return pgvector.NewVector([]float32(v))
}

func fromVectorParam(v *pgvector.Vector) embedding.Vector {
	if v == nil {
		return nil
	}
	return embedding.Vector(v.Slice())
}
