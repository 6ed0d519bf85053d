package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ticket-storefront/internal/services"
)

// DocumentHandler serves ticket PDFs behind download tokens
type DocumentHandler struct {
	documents *services.DocumentService
	logger    *zap.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documents *services.DocumentService, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{documents: documents, logger: logger}
}

// Download renders the PDF of the order a token grants access to. Any
// failure is a 404.
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		writeError(w, http.StatusNotFound, "not_found", "Document not found or token invalid")
		return
	}

	document, err := h.documents.Download(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "Document not found or token invalid")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+document.Filename+"\"")
	w.Header().Set("Content-Length", strconv.Itoa(len(document.Content)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(document.Content)
}
