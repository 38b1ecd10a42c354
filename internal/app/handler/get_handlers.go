package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/kv-url-shortener/internal/app/service"
)

type GetHandler struct {
	service service.URLServiceIface
	logger  *zap.Logger
}

func NewGet(s service.URLServiceIface, l *zap.Logger) *GetHandler {
	return &GetHandler{
		service: s,
		logger:  l,
	}
}

// ByShort redirects GET /{shortID} to the stored URL with 302.
func (h *GetHandler) ByShort(res http.ResponseWriter, req *http.Request) {
	shortID := chi.URLParam(req, "shortID")

	long, err := h.service.Resolve(req.Context(), shortID)
	if err != nil {
		writeError(res, err, h.logger)
		return
	}

	// Location carries the stored URL byte for byte.
	res.Header().Set("Location", long)
	res.WriteHeader(http.StatusFound)
}

// All handles GET /getAll with a {shortID: longURL} object.
func (h *GetHandler) All(res http.ResponseWriter, req *http.Request) {
	all, err := h.service.ListAll(req.Context())
	if err != nil {
		writeError(res, err, h.logger)
		return
	}
	writeJSON(res, http.StatusOK, all, h.logger)
}
