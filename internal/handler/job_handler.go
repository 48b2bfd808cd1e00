package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"freightrates/internal/domain"
	"freightrates/internal/export"
	"freightrates/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// JobHandler handles parse job endpoints.
type JobHandler struct {
	jobs service.ParseJobService
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(jobs service.ParseJobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

func parseJobID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid job ID")
		return uuid.Nil, false
	}
	return id, true
}

// List handles GET /api/v1/jobs
// @Summary List parse jobs
// @Tags jobs
// @Produce json
// @Param status query string false "queued, processing, completed or failed"
// @Param offset query int false "Offset for pagination" default(0)
// @Param limit query int false "Limit for pagination (max 100)" default(20)
// @Success 200 {object} Response{data=[]domain.ParseJob,meta=PagMeta} "List of jobs"
// @Failure 400 {object} ErrorResponseBody "Invalid status"
// @Security BearerAuth
// @Router /jobs [get]
func (h *JobHandler) List(c *gin.Context) {
	status := domain.JobStatus(c.Query("status"))
	switch status {
	case "", domain.JobStatusQueued, domain.JobStatusProcessing, domain.JobStatusCompleted, domain.JobStatusFailed:
	default:
		RespondError(c, http.StatusBadRequest, "INVALID_STATUS", "invalid status filter")
		return
	}
	offset, limit := parsePagination(c)

	jobs, total, err := h.jobs.List(c.Request.Context(), status, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	if jobs == nil {
		jobs = []domain.ParseJob{}
	}
	RespondPaginated(c, jobs, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/jobs/:id
// @Summary Get a parse job
// @Tags jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} Response{data=domain.ParseJob} "Job with result once completed"
// @Failure 404 {object} ErrorResponseBody "Job not found"
// @Security BearerAuth
// @Router /jobs/{id} [get]
func (h *JobHandler) GetByID(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}
	job, err := h.jobs.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, job)
}

// Retry handles POST /api/v1/jobs/:id/retry
// @Summary Retry a failed parse job
// @Tags jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 202 {object} Response{data=domain.ParseJob} "Job requeued"
// @Failure 404 {object} ErrorResponseBody "Job not found"
// @Failure 409 {object} ErrorResponseBody "Job is not failed"
// @Security BearerAuth
// @Router /jobs/{id}/retry [post]
func (h *JobHandler) Retry(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}
	job, err := h.jobs.Retry(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondAccepted(c, job)
}

// Export handles GET /api/v1/jobs/:id/export
// @Summary Download a job result
// @Description XLSX holds one sheet per bucket; CSV holds the selected bucket
// @Tags jobs
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce text/csv
// @Param id path string true "Job ID"
// @Param format query string false "xlsx or csv" default(xlsx)
// @Param bucket query string false "prices, surcharges or remarks (csv only)" default(prices)
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponseBody "Invalid format or bucket"
// @Failure 409 {object} ErrorResponseBody "Job not completed"
// @Security BearerAuth
// @Router /jobs/{id}/export [get]
func (h *JobHandler) Export(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}
	format := domain.ExportFormat(c.DefaultQuery("format", string(domain.ExportXLSX)))
	if format != domain.ExportXLSX && format != domain.ExportCSV {
		HandleError(c, domain.ErrInvalidExportFormat)
		return
	}
	bucket := c.DefaultQuery("bucket", domain.BucketPrices)

	job, err := h.jobs.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	result, err := h.jobs.Result(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	name := job.SourceName
	if name == "" {
		name = "rates_" + job.ID.String()[:8]
	}

	var buf bytes.Buffer
	contentType := xlsxContentType
	if format == domain.ExportCSV {
		if _, ok := result.Bucket(bucket); !ok {
			RespondError(c, http.StatusBadRequest, "INVALID_BUCKET", "invalid bucket; allowed: prices, surcharges, remarks")
			return
		}
		contentType = "text/csv; charset=utf-8"
		name += "_" + bucket
		err = export.WriteCSV(&buf, result, bucket)
	} else {
		err = export.WriteXLSX(&buf, result)
	}
	if err != nil {
		HandleError(c, fmt.Errorf("exporting job %s: %w", id, err))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.BuildFilename(name, format)))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
