package handlers

import (
	"errors"
	"net/http"

	"github.com/vkoval/docuchat/internal/admin"
	"github.com/vkoval/docuchat/internal/llm"
	"github.com/vkoval/docuchat/internal/project"
	"github.com/vkoval/docuchat/internal/retrieval"
)

type SearchHandler struct {
	retriever *retrieval.Retriever
	adminSvc  *admin.Service
}

func NewSearchHandler(r *retrieval.Retriever, adminSvc *admin.Service) *SearchHandler {
	return &SearchHandler{retriever: r, adminSvc: adminSvc}
}

type searchRequest struct {
	Query     string   `json:"query"`
	TopK      int      `json:"top_k,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// Search ranks the project's stored chunks against the query. Platform
// settings supply topK and threshold defaults; the request may override
// both.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	_, opts := h.adminSvc.RetrievalOptions(r.Context())
	if req.TopK > 0 {
		opts.TopK = req.TopK
	}
	if req.Threshold != nil {
		opts.Threshold = req.Threshold
	}

	results, err := h.retriever.Search(r.Context(), project.IDFromContext(r.Context()), req.Query, opts)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, llm.ErrProviderUnavailable) {
			status = http.StatusBadGateway
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results, "count": len(results)})
}
