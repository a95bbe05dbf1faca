// Package handler provides HTTP handlers for the inbound Job API (§6.1).
package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sevigo/docwarden/internal/artifact"
	"github.com/sevigo/docwarden/internal/core"
	"github.com/sevigo/docwarden/internal/submit"
)

// JobsHandler serves the Job API: create/get/list/delete a Job, and stream
// its generated artifact once completed.
type JobsHandler struct {
	store     core.JobStore
	submitter *submit.Submitter
	log       *slog.Logger
}

// NewJobsHandler constructs a JobsHandler.
func NewJobsHandler(store core.JobStore, submitter *submit.Submitter, log *slog.Logger) *JobsHandler {
	return &JobsHandler{store: store, submitter: submitter, log: log}
}

type createJobRequest struct {
	Source     string `json:"source"`
	CallerID   string `json:"caller_id,omitempty"`
	Credential string `json:"credential,omitempty"`
	Variant    string `json:"variant,omitempty"`
}

// Create handles POST /v1/jobs.
func (h *JobsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Source == "" {
		writeError(w, http.StatusBadRequest, "source is required")
		return
	}

	variant := core.VariantDocs
	if req.Variant != "" {
		variant = core.Variant(req.Variant)
	}

	var callerID *string
	if req.CallerID != "" {
		callerID = &req.CallerID
	}

	result, err := h.submitter.Submit(r.Context(), req.Source, variant, req.Credential, callerID)
	if err != nil {
		var stageErr *core.StageError
		if errors.As(err, &stageErr) && stageErr.Kind == core.KindInvalidSource {
			writeError(w, http.StatusUnprocessableEntity, stageErr.Error())
			return
		}
		h.log.Error("submit failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to submit job")
		return
	}

	status := http.StatusCreated
	if result.Existed {
		status = http.StatusOK
	}
	writeJSON(w, status, result.Job)
}

// Get handles GET /v1/jobs/{id}.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseJobID(w, r)
	if !ok {
		return
	}

	job, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.respondStoreErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// listJobsResponse wraps a page of Jobs with the cursor to request the next
// one; NextCursor is empty once the listing is exhausted.
type listJobsResponse struct {
	Jobs       []*core.Job `json:"jobs"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// List handles GET /v1/jobs?cursor=&limit=. cursor is an opaque token
// returned as next_cursor on the previous page; omitting it requests the
// first page. limit is clamped to at most 100.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > core.MaxPageSize {
		limit = core.MaxPageSize
	}

	var cursor *core.PageCursor
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		cursor, err = decodeCursor(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid cursor")
			return
		}
	}

	jobs, err := h.store.List(r.Context(), cursor, limit)
	if err != nil {
		h.log.Error("list jobs failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	resp := listJobsResponse{Jobs: jobs}
	if len(jobs) == limit {
		last := jobs[len(jobs)-1]
		resp.NextCursor = encodeCursor(core.PageCursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	writeJSON(w, http.StatusOK, resp)
}

// encodeCursor and decodeCursor round-trip a PageCursor through an opaque
// string so callers never need to know it is (created_at, id) underneath.
func encodeCursor(c core.PageCursor) string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "," + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(s string) (*core.PageCursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(string(raw), ",", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed cursor")
	}
	createdAt, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return nil, err
	}
	return &core.PageCursor{CreatedAt: createdAt, ID: id}, nil
}

// Delete handles DELETE /v1/jobs/{id}. The artifact itself is retained; only
// the Job record is removed.
func (h *JobsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseJobID(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		h.respondStoreErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Artifact handles GET /v1/jobs/{id}/artifact.
func (h *JobsHandler) Artifact(w http.ResponseWriter, r *http.Request) {
	id, ok := parseJobID(w, r)
	if !ok {
		return
	}

	job, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.respondStoreErr(w, err)
		return
	}

	if job.Status != core.StatusCompleted || job.ArtifactURL == nil {
		writeError(w, http.StatusConflict, "job has no completed artifact yet")
		return
	}

	content, err := artifact.Fetch(r.Context(), *job.ArtifactURL)
	if err != nil {
		h.log.Error("fetch artifact failed", "job_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch artifact")
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

func (h *JobsHandler) respondStoreErr(w http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	h.log.Error("job store error", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func parseJobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return uuid.UUID{}, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
