package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/phrazzld/scribe-api/internal/api/shared"
	"github.com/phrazzld/scribe-api/internal/csvimport"
	"github.com/phrazzld/scribe-api/internal/domain"
	"github.com/phrazzld/scribe-api/internal/platform/logger"
	"github.com/phrazzld/scribe-api/internal/service"
	"github.com/phrazzld/scribe-api/internal/task"
)

// maxUploadBytes bounds CSV uploads.
const maxUploadBytes = 8 << 20

// BatchService is the part of service.BatchService the handlers use.
type BatchService interface {
	SubmitBatch(ctx context.Context, reqs []domain.BlogRequest, concurrency int) (*service.BatchReceipt, error)
	SubmitEditions(ctx context.Context, base domain.BlogRequest, n, concurrency int) (*service.BatchReceipt, error)
	Retry(ctx context.Context, taskID uuid.UUID) (*service.BatchReceipt, error)
	RemoveTask(ctx context.Context, taskID uuid.UUID) error
	ClearAll(ctx context.Context) (int, error)
	Snapshot() task.Snapshot
}

var _ BatchService = (*service.BatchService)(nil)

// BatchHandler serves batch submission and task tracking.
type BatchHandler struct {
	batches BatchService
	logger  *slog.Logger
}

// NewBatchHandler creates a BatchHandler.
func NewBatchHandler(batches BatchService, log *slog.Logger) *BatchHandler {
	if log == nil {
		log = slog.Default()
	}
	return &BatchHandler{
		batches: batches,
		logger:  log.With("component", "batch_handler"),
	}
}

// SubmitBatch handles POST /api/batches.
func (h *BatchHandler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req SubmitBatchRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	receipt, err := h.batches.SubmitBatch(r.Context(), req.Requests, req.Concurrency)
	h.respondReceipt(w, r, receipt, err)
}

// SubmitForm handles POST /api/batches/form.
func (h *BatchHandler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	var req SubmitFormRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if req.NumberOfBlogs == 0 {
		req.NumberOfBlogs = 1
	}

	receipt, err := h.batches.SubmitEditions(r.Context(), req.Request, req.NumberOfBlogs, req.Concurrency)
	h.respondReceipt(w, r, receipt, err)
}

// SubmitCSV handles POST /api/batches/csv with the rows in a multipart
// "file" field and an optional "concurrency" field.
func (h *BatchHandler) SubmitCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid multipart upload", err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "A CSV file is required in the 'file' field", err)
		return
	}
	defer func() { _ = file.Close() }()

	concurrency := 0
	if raw := r.FormValue("concurrency"); raw != "" {
		concurrency, err = strconv.Atoi(raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "concurrency must be an integer")
			return
		}
	}

	reqs, err := csvimport.Parse(file)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to read CSV")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("csv imported",
		slog.String("filename", header.Filename),
		slog.Int("rows", len(reqs)))

	receipt, err := h.batches.SubmitBatch(r.Context(), reqs, concurrency)
	h.respondReceipt(w, r, receipt, err)
}

// ListTasks handles GET /api/tasks.
func (h *BatchHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, tasksResponse(h.batches.Snapshot()))
}

// ClearTasks handles DELETE /api/tasks.
func (h *BatchHandler) ClearTasks(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.batches.ClearAll(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to clear tasks")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ClearResponse{DeletedBlogs: deleted})
}

// DeleteTask handles DELETE /api/tasks/{id}.
func (h *BatchHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := h.batches.RemoveTask(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "Failed to remove task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RetryTask handles POST /api/tasks/{id}/retry.
func (h *BatchHandler) RetryTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	receipt, err := h.batches.Retry(r.Context(), id)
	h.respondReceipt(w, r, receipt, err)
}

// Options handles GET /api/options.
func (h *BatchHandler) Options(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, OptionsResponse{
		Tones:       domain.ToneOptions,
		WordCounts:  domain.WordCountOptions,
		MaxEditions: domain.MaxEditions,
	})
}

// respondReceipt writes 202 with the receipt, or the error. A submission in
// which every request was invalid reports the per-request errors.
func (h *BatchHandler) respondReceipt(
	w http.ResponseWriter,
	r *http.Request,
	receipt *service.BatchReceipt,
	err error,
) {
	if errors.Is(err, service.ErrNoValidRequests) && receipt != nil {
		shared.RespondWithErrorDetails(w, r, http.StatusUnprocessableEntity,
			GetSafeErrorMessage(err), receipt.Rejected)
		return
	}
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit batch")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, receipt)
}
