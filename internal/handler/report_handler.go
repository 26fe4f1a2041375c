package handler

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/campushq/school-portal-api/internal/models"
	"github.com/campushq/school-portal-api/internal/service"
	appErrors "github.com/campushq/school-portal-api/pkg/errors"
	"github.com/campushq/school-portal-api/pkg/response"
)

// ReportHandler exposes asynchronous transcript generation.
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler creates a new handler.
func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

type reportPayload struct {
	Format models.ReportFormat `json:"format" binding:"required"`
}

// Request godoc
// @Summary Request a transcript
// @Description Queue transcript generation for the authenticated student
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body reportPayload true "Report payload"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /me/reports [post]
func (h *ReportHandler) Request(c *gin.Context) {
	var payload reportPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report payload"))
		return
	}

	student := studentFromContext(c)
	if student == nil {
		response.Error(c, appErrors.ErrProfileMissing)
		return
	}

	job, err := h.service.Request(c.Request.Context(), student.ID, payload.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// List godoc
// @Summary List own reports
// @Description List the authenticated student's report jobs
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /me/reports [get]
func (h *ReportHandler) List(c *gin.Context) {
	student := studentFromContext(c)
	if student == nil {
		response.Error(c, appErrors.ErrProfileMissing)
		return
	}

	reports, err := h.service.ListForStudent(c.Request.Context(), student.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, nil)
}

// Status godoc
// @Summary Get report status
// @Description Status of one of the authenticated student's report jobs
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /me/reports/{id} [get]
func (h *ReportHandler) Status(c *gin.Context) {
	student := studentFromContext(c)
	if student == nil {
		response.Error(c, appErrors.ErrProfileMissing)
		return
	}

	job, err := h.service.Status(c.Request.Context(), c.Param("id"), student.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// DownloadLink godoc
// @Summary Get a download link
// @Description Issue a signed, expiring download token for a completed report
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /me/reports/{id}/download-link [get]
func (h *ReportHandler) DownloadLink(c *gin.Context) {
	student := studentFromContext(c)
	if student == nil {
		response.Error(c, appErrors.ErrProfileMissing)
		return
	}

	link, err := h.service.DownloadLink(c.Request.Context(), c.Param("id"), student.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Download godoc
// @Summary Download a report
// @Description Stream a generated report file using a signed token
// @Tags Reports
// @Produce application/octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} byte
// @Failure 403 {object} response.Envelope
// @Router /reports/download [get]
func (h *ReportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	job, absPath, err := h.service.ResolveDownload(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("transcript-%s%s", job.ID, filepath.Ext(job.FilePath))
	c.FileAttachment(absPath, filename)
}
