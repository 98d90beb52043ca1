package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/voskhod/whisperd/internal/domain"
	"github.com/voskhod/whisperd/internal/handlers/dto"
	"github.com/voskhod/whisperd/internal/store"
)

const apiVersion = "1.0.0"

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", h.Upload)
		r.Post("/transcribe", h.Transcribe)
		r.Post("/enhance", h.Enhance)

		r.Get("/jobs", h.ListJobs)
		r.Route("/jobs/{id}", func(r chi.Router) {
			r.Get("/", h.GetJob)
			r.Get("/result", h.GetResult)
			r.Get("/download", h.Download)
			r.Post("/archive", h.Archive)
			r.Post("/unarchive", h.Unarchive)
			r.Delete("/", h.DeleteJob)
		})

		// Serve uploaded audio for playback next to results.
		uploadsFS := http.StripPrefix("/api/uploads/", http.FileServer(http.Dir(h.Files.UploadsDir)))
		r.Get("/uploads/*", uploadsFS.ServeHTTP)
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	depth, err := h.Jobs.QueueDepth()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.HealthResponse{
		Status:     "ok",
		Version:    apiVersion,
		QueueDepth: depth,
	})
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxFileSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		h.badRequest(w, errors.New("missing file field"))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		h.badRequest(w, fmt.Errorf("unsupported file format %q", ext))
		return
	}

	path, size, err := h.Files.SaveUpload(header.Filename, file)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := dto.UploadResponse{Filename: filepath.Base(path), Size: size}
	if duration, err := h.Prober.Duration(r.Context(), path); err == nil {
		resp.Duration = &duration
	} else {
		h.Logger.Warn("Failed to probe duration", "file", path, "error", err)
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) {
	var req dto.TranscribeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.badRequest(w, err)
		return
	}

	job, err := h.Jobs.SubmitTranscribe(req.Filename, req.Params())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, job)
}

func (h *Handler) Enhance(w http.ResponseWriter, r *http.Request) {
	var req dto.EnhanceRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.badRequest(w, err)
		return
	}

	job, err := h.Jobs.SubmitEnhance(req.JobID, req.Params())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, job)
}

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter store.JobFilter
	if v := q.Get("job_type"); v != "" {
		t := domain.JobType(v)
		if t != domain.JobTypeTranscribe && t != domain.JobTypeEnhance {
			h.badRequest(w, fmt.Errorf("invalid job_type %q", v))
			return
		}
		filter.Type = &t
	}
	if v := q.Get("status"); v != "" {
		s := domain.JobStatus(v)
		switch s {
		case domain.JobStatusPending, domain.JobStatusProcessing, domain.JobStatusCompleted, domain.JobStatusFailed:
			filter.Status = &s
		default:
			h.badRequest(w, fmt.Errorf("invalid status %q", v))
			return
		}
	}
	// Archived jobs are hidden unless explicitly requested.
	switch q.Get("archived") {
	case "":
		archived := false
		filter.Archived = &archived
	case "all":
	case "true", "1":
		archived := true
		filter.Archived = &archived
	case "false", "0":
		archived := false
		filter.Archived = &archived
	default:
		h.badRequest(w, errors.New("archived must be true, false, or all"))
		return
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	jobs, total, err := h.Jobs.List(filter, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if jobs == nil {
		jobs = []*domain.Job{}
	}
	h.writeJSON(w, http.StatusOK, dto.JobListResponse{Jobs: jobs, Total: total})
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}
	job, err := h.Jobs.Get(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, job)
}

func (h *Handler) GetResult(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}
	result, err := h.Jobs.GetResult(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.ResultResponse{
		JobID:         result.JobID,
		Filename:      result.Filename,
		AudioURL:      "/api/uploads/" + result.Filename,
		Content:       result.Content,
		HasTimestamps: result.HasTimestamps,
	})
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}
	path, err := h.Jobs.ResultPath(id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/markdown")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}
	if err := h.Jobs.Archive(id); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "Job archived"})
}

func (h *Handler) Unarchive(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}
	if err := h.Jobs.Unarchive(id); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "Job unarchived"})
}

func (h *Handler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}
	if err := h.Jobs.Delete(id); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "Job deleted successfully"})
}

func (h *Handler) jobID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.badRequest(w, errors.New("invalid job id"))
		return 0, false
	}
	return id, true
}
