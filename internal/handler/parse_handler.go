package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"freightrates/internal/domain"
	"freightrates/internal/service"
)

// ParseHandler handles document submission endpoints.
type ParseHandler struct {
	pipeline service.PipelineService
	jobs     service.ParseJobService
}

// NewParseHandler creates a new ParseHandler.
func NewParseHandler(pipeline service.PipelineService, jobs service.ParseJobService) *ParseHandler {
	return &ParseHandler{pipeline: pipeline, jobs: jobs}
}

// ParseEmailRequest is the body for e-mail submissions.
type ParseEmailRequest struct {
	HTMLContent string `json:"html_content" binding:"required" example:"<table><tr><td>POL</td><td>POD</td></tr></table>"`
	Subject     string `json:"subject" example:"Rates valid 1-15 March"`
	Strategy    string `json:"strategy" example:"risk"`
	Cluster     bool   `json:"cluster" example:"false"`
	IncludeText bool   `json:"include_text" example:"false"`
	Async       bool   `json:"async" example:"true"`
}

func (r *ParseEmailRequest) options() domain.ParseOptions {
	return domain.ParseOptions{
		Strategy:    domain.BatchStrategy(r.Strategy),
		Cluster:     r.Cluster,
		IncludeText: r.IncludeText,
	}
}

// SectionsResponse is the classified section preview of a document.
type SectionsResponse struct {
	Sections []domain.Section  `json:"sections"`
	Stats    domain.ParseStats `json:"stats"`
}

// ParseEmail handles POST /api/v1/parse/email
// @Summary Extract rates from an e-mail body
// @Description Runs the pipeline inline and returns the result, or queues a job when async is set
// @Tags parse
// @Accept json
// @Produce json
// @Param body body ParseEmailRequest true "E-mail markup and options"
// @Success 200 {object} Response{data=domain.ParseOutcome} "Extraction result"
// @Success 202 {object} Response{data=domain.ParseJob} "Job queued"
// @Failure 400 {object} ErrorResponseBody "Invalid request"
// @Failure 429 {object} ErrorResponseBody "Providers rate limited"
// @Security BearerAuth
// @Router /parse/email [post]
func (h *ParseHandler) ParseEmail(c *gin.Context) {
	var req ParseEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	if req.Async {
		job, err := h.jobs.SubmitEmail(c.Request.Context(), service.SubmitEmailInput{
			HTML:    req.HTMLContent,
			Subject: req.Subject,
			Options: req.options(),
		})
		if err != nil {
			HandleError(c, err)
			return
		}
		RespondAccepted(c, job)
		return
	}

	outcome, err := h.pipeline.Run(c.Request.Context(), req.HTMLContent, req.options())
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, outcome)
}

// ParseFile handles POST /api/v1/parse/file
// @Summary Extract rates from an uploaded document
// @Description Uploads the file and queues a job; PDFs and images go through document recognition first
// @Tags parse
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Rate sheet (PDF, JPG, PNG or HTML)"
// @Param strategy formData string false "risk or fixed"
// @Param cluster formData bool false "Regroup tables before extraction"
// @Param include_text formData bool false "Send text outside tables as remarks"
// @Success 202 {object} Response{data=domain.ParseJob} "Job queued"
// @Failure 400 {object} ErrorResponseBody "Missing file or unsupported type"
// @Failure 413 {object} ErrorResponseBody "File too large"
// @Failure 500 {object} ErrorResponseBody "Upload failed"
// @Security BearerAuth
// @Router /parse/file [post]
func (h *ParseHandler) ParseFile(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	cluster, _ := strconv.ParseBool(c.DefaultPostForm("cluster", "false"))
	includeText, _ := strconv.ParseBool(c.DefaultPostForm("include_text", "false"))

	job, err := h.jobs.SubmitFile(c.Request.Context(), service.SubmitFileInput{
		File:   file,
		Header: header,
		Options: domain.ParseOptions{
			Strategy:    domain.BatchStrategy(c.PostForm("strategy")),
			Cluster:     cluster,
			IncludeText: includeText,
		},
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondAccepted(c, job)
}

// Sections handles POST /api/v1/parse/sections
// @Summary Preview classified sections
// @Description Splits and classifies the tables without calling the extraction service
// @Tags parse
// @Accept json
// @Produce json
// @Param body body ParseEmailRequest true "E-mail markup and options"
// @Success 200 {object} Response{data=SectionsResponse} "Sections and stats"
// @Failure 400 {object} ErrorResponseBody "Invalid request"
// @Security BearerAuth
// @Router /parse/sections [post]
func (h *ParseHandler) Sections(c *gin.Context) {
	var req ParseEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	opts := req.options()
	// Clustering calls the extraction service, which a preview must not do.
	opts.Cluster = false

	sections, stats, err := h.pipeline.Sections(c.Request.Context(), req.HTMLContent, opts)
	if err != nil {
		HandleError(c, err)
		return
	}
	if sections == nil {
		sections = []domain.Section{}
	}
	RespondOK(c, SectionsResponse{Sections: sections, Stats: *stats})
}
