package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushq/school-portal-api/internal/models"
	"github.com/campushq/school-portal-api/internal/service"
	appErrors "github.com/campushq/school-portal-api/pkg/errors"
	"github.com/campushq/school-portal-api/pkg/response"
)

// RequestHandler exposes the student account application flow.
type RequestHandler struct {
	service *service.ProvisioningService
}

// NewRequestHandler creates a new handler.
func NewRequestHandler(svc *service.ProvisioningService) *RequestHandler {
	return &RequestHandler{service: svc}
}

// Create godoc
// @Summary Apply for a student account
// @Description Submit a public application for a student account
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body service.CreateStudentRequestInput true "Application payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	var input service.CreateStudentRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid application payload"))
		return
	}

	request, err := h.service.CreateRequest(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// List godoc
// @Summary List pending requests
// @Description List pending applications with previewed usernames
// @Tags Requests
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	previews, err := h.service.ListRequests(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, previews, nil)
}

type decisionPayload struct {
	Decision models.RequestDecision `json:"decision" binding:"required"`
}

// Decide godoc
// @Summary Decide on a pending request
// @Description Approve or reject a student account application
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body decisionPayload true "Decision payload"
// @Success 200 {object} response.Envelope
// @Success 204 "No Content"
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/{id}/decision [post]
func (h *RequestHandler) Decide(c *gin.Context) {
	var payload decisionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}

	claims := claimsFromContext(c)
	decidedBy := ""
	if claims != nil {
		decidedBy = claims.UserID
	}

	account, err := h.service.Decide(c.Request.Context(), c.Param("id"), payload.Decision, decidedBy)
	if err != nil {
		response.Error(c, err)
		return
	}
	if account == nil {
		response.NoContent(c)
		return
	}
	response.JSON(c, http.StatusOK, account, nil)
}
