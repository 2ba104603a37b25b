package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vkoval/docuchat/internal/document"
	"github.com/vkoval/docuchat/internal/embedding"
	"github.com/vkoval/docuchat/internal/models"
	"github.com/vkoval/docuchat/internal/project"
)

const maxUploadBytes = 32 << 20

type DocumentHandler struct {
	svc *document.Service
}

func NewDocumentHandler(svc *document.Service) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type uploadTextRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (h *DocumentHandler) UploadText(w http.ResponseWriter, r *http.Request) {
	var req uploadTextRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.svc.CreateText(r.Context(), document.CreateTextRequest{
		ProjectID: project.IDFromContext(r.Context()),
		CreatedBy: currentUserID(r),
		Title:     req.Title,
		Content:   req.Content,
	})
	if err != nil {
		writeError(w, creationStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (h *DocumentHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	title := r.FormValue("title")
	if title == "" {
		title = header.Filename
	}

	doc, err := h.svc.CreateFile(r.Context(), document.CreateFileRequest{
		ProjectID: project.IDFromContext(r.Context()),
		CreatedBy: currentUserID(r),
		Title:     title,
		FileName:  header.Filename,
		MIMEType:  header.Header.Get("Content-Type"),
		Data:      data,
	})
	if err != nil {
		writeError(w, creationStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

type uploadURLRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

func (h *DocumentHandler) UploadURL(w http.ResponseWriter, r *http.Request) {
	var req uploadURLRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.svc.CreateURL(r.Context(), document.CreateURLRequest{
		ProjectID: project.IDFromContext(r.Context()),
		CreatedBy: currentUserID(r),
		Title:     req.Title,
		SourceURL: req.URL,
	})
	if err != nil {
		writeError(w, creationStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 20)
	docs, err := h.svc.List(r.Context(), project.IDFromContext(r.Context()), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs, "count": len(docs)})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document ID")
		return
	}

	projectID := project.IDFromContext(r.Context())
	if r.URL.Query().Get("include_embeddings") == "true" {
		doc, err := h.svc.GetWithEmbeddings(r.Context(), projectID, id)
		if err != nil {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		writeJSON(w, http.StatusOK, withEmbeddings(doc))
		return
	}

	doc, err := h.svc.Get(r.Context(), projectID, id)
	if err != nil {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// documentWithEmbeddings re-exposes the vectors that the models hide from
// default serialization. Only the explicit opt-in read returns them.
type documentWithEmbeddings struct {
	*models.Document
	Embedding embedding.Vector      `json:"embedding,omitempty"`
	Chunks    []chunkWithEmbeddings `json:"chunks,omitempty"`
}

type chunkWithEmbeddings struct {
	models.Chunk
	Embedding embedding.Vector `json:"embedding,omitempty"`
}

func withEmbeddings(doc *models.Document) documentWithEmbeddings {
	out := documentWithEmbeddings{Document: doc, Embedding: doc.Embedding}
	for _, c := range doc.Chunks {
		out.Chunks = append(out.Chunks, chunkWithEmbeddings{Chunk: c, Embedding: c.Embedding})
	}
	return out
}

func (h *DocumentHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document ID")
		return
	}

	doc, err := h.svc.Get(r.Context(), project.IDFromContext(r.Context()), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": doc.ID.String(), "status": doc.Status})
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document ID")
		return
	}

	if err := h.svc.Delete(r.Context(), project.IDFromContext(r.Context()), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// creationStatus maps ingestion validation errors to 400 and everything
// else to 500.
func creationStatus(err error) int {
	switch {
	case errors.Is(err, document.ErrEmptyContent),
		errors.Is(err, document.ErrInvalidTitle),
		errors.Is(err, document.ErrInvalidURL),
		errors.Is(err, document.ErrUnreadableFile):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
