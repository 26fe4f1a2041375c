package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushq/school-portal-api/internal/models"
	"github.com/campushq/school-portal-api/internal/service"
	appErrors "github.com/campushq/school-portal-api/pkg/errors"
	"github.com/campushq/school-portal-api/pkg/response"
)

// DocumentHandler exposes course document upload and download.
type DocumentHandler struct {
	service *service.DocumentService
}

// NewDocumentHandler creates a new handler.
func NewDocumentHandler(svc *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{service: svc}
}

// Upload godoc
// @Summary Upload a course document
// @Description Upload a file attached to a course
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Course ID"
// @Param file formData file true "Document file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/documents [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file field is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close() //nolint:errcheck

	doc, err := h.service.Upload(c.Request.Context(), c.Param("id"), service.DocumentUpload{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Reader:      file,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// errNoProfile guards student document routes that somehow ran without a
// resolved profile.
var errNoProfile = appErrors.Clone(appErrors.ErrProfileMissing, "")

// ListForCourse godoc
// @Summary List course documents
// @Description List documents of a course; students must be enrolled
// @Tags Documents
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/documents [get]
func (h *DocumentHandler) ListForCourse(c *gin.Context) {
	scope, err := h.studentScope(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	docs, err := h.service.ListForCourse(c.Request.Context(), c.Param("id"), scope)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs, nil)
}

// Download godoc
// @Summary Download a document
// @Description Stream a course document; students must be enrolled
// @Tags Documents
// @Produce octet-stream
// @Param id path string true "Document ID"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id}/download [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	scope, err := h.studentScope(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	doc, file, err := h.service.OpenForDownload(c.Request.Context(), c.Param("id"), scope)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	c.Header("Content-Disposition", `attachment; filename="`+doc.FileName+`"`)
	c.DataFromReader(http.StatusOK, doc.SizeBytes, doc.ContentType, file, nil)
}

// Delete godoc
// @Summary Delete a document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 204 "No Content"
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// studentScope returns the student ID to gate access on. Staff callers
// get the empty, unrestricted scope; a student caller without a resolved
// profile is an error, never unrestricted.
func (h *DocumentHandler) studentScope(c *gin.Context) (string, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return "", appErrors.ErrUnauthorized
	}
	if claims.Role != models.RoleStudent {
		return "", nil
	}
	if student := studentFromContext(c); student != nil {
		return student.ID, nil
	}
	return "", errNoProfile
}
