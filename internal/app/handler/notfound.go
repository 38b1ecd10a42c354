package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/kv-url-shortener/internal/models"
)

// NotFound answers unmatched requests with 404 and echoes the path and method.
func NotFound(logger *zap.Logger) http.HandlerFunc {
	return func(res http.ResponseWriter, req *http.Request) {
		logger.Info("404 - route not found",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
		)
		writeJSON(res, http.StatusNotFound, models.NotFoundResponse{
			Error:  "Not found",
			Path:   req.URL.Path,
			Method: req.Method,
		}, logger)
	}
}
