package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/kv-url-shortener/internal/lifecycle"
	"github.com/atinyakov/kv-url-shortener/internal/models"
)

// StateSource exposes the store connection state.
type StateSource interface {
	Connected() bool
	State() lifecycle.State
}

type HealthHandler struct {
	state   StateSource
	version string
	logger  *zap.Logger
	now     func() time.Time
}

func NewHealth(state StateSource, version string, l *zap.Logger) *HealthHandler {
	return &HealthHandler{
		state:   state,
		version: version,
		logger:  l,
		now:     time.Now,
	}
}

// Check always answers 200; storeConnected tells whether requests can be
// served.
func (h *HealthHandler) Check(res http.ResponseWriter, req *http.Request) {
	writeJSON(res, http.StatusOK, models.HealthResponse{
		Status:         "healthy",
		StoreConnected: h.state.Connected(),
		StoreState:     h.state.State().String(),
		AppVersion:     h.version,
		Timestamp:      h.now().UTC().Format(time.RFC3339Nano),
	}, h.logger)
}
