// Package handlers exposes the job API over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/voskhod/whisperd/internal/app"
	"github.com/voskhod/whisperd/internal/artifact"
	"github.com/voskhod/whisperd/internal/domain"
	"github.com/voskhod/whisperd/internal/engine"
	"github.com/voskhod/whisperd/internal/handlers/dto"
	"github.com/voskhod/whisperd/internal/logger"
)

// allowedExtensions lists the audio formats accepted for upload.
var allowedExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".aac":  true,
	".ogg":  true,
	".m4a":  true,
	".wma":  true,
}

type Handler struct {
	Jobs        *app.JobService
	Files       *artifact.Store
	Prober      *engine.FFProbe
	Logger      *logger.Logger
	MaxFileSize int64
}

func NewHandler(jobs *app.JobService, files *artifact.Store, prober *engine.FFProbe, log *logger.Logger, maxFileSize int64) *Handler {
	return &Handler{
		Jobs:        jobs,
		Files:       files,
		Prober:      prober,
		Logger:      log.WithComponent("http"),
		MaxFileSize: maxFileSize,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error("Failed to encode response", "error", err)
	}
}

// writeError maps lifecycle errors onto HTTP statuses. Execution failures
// never pass through here; they surface in the job's error summary.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidPrecondition), errors.Is(err, domain.ErrInvalidState):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.Logger.Error("Request failed", "error", err)
	}
	h.writeJSON(w, status, dto.ErrorResponse{Error: err.Error()})
}

func (h *Handler) badRequest(w http.ResponseWriter, err error) {
	h.writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.badRequest(w, errors.New("invalid JSON body"))
		return false
	}
	return true
}
