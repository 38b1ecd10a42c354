package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/kv-url-shortener/internal/app/service"
	"github.com/atinyakov/kv-url-shortener/internal/models"
)

type PostHandler struct {
	urlService service.URLServiceIface
	logger     *zap.Logger
}

func NewPost(s service.URLServiceIface, l *zap.Logger) *PostHandler {
	return &PostHandler{
		urlService: s,
		logger:     l,
	}
}

// Shorten handles POST /shorten. It answers 201 for a new mapping and 200
// when the URL was already shortened.
func (h *PostHandler) Shorten(res http.ResponseWriter, req *http.Request) {
	var request models.Request

	if err := decodeJSONBody(res, req, &request); err != nil {
		h.logger.Info("malformed shorten request", zap.Error(err))
		writeError(res, err, h.logger)
		return
	}

	r, err := h.urlService.Shorten(req.Context(), request.URL)
	if err != nil {
		writeError(res, err, h.logger)
		return
	}

	status := http.StatusOK
	if r.Created {
		status = http.StatusCreated
	}
	writeJSON(res, status, models.Response{ShortenedURL: r.ShortenedURL}, h.logger)
}
