package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushq/school-portal-api/internal/service"
	appErrors "github.com/campushq/school-portal-api/pkg/errors"
	"github.com/campushq/school-portal-api/pkg/response"
)

// ProgramHandler exposes program management and registration.
type ProgramHandler struct {
	service *service.ProgramService
}

// NewProgramHandler creates a new handler.
func NewProgramHandler(svc *service.ProgramService) *ProgramHandler {
	return &ProgramHandler{service: svc}
}

// Create godoc
// @Summary Create a program
// @Tags Programs
// @Accept json
// @Produce json
// @Param payload body service.CreateProgramInput true "Program payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /programs [post]
func (h *ProgramHandler) Create(c *gin.Context) {
	var input service.CreateProgramInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid program payload"))
		return
	}

	program, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, program)
}

// List godoc
// @Summary List programs
// @Description List programs with student and course counts
// @Tags Programs
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /programs [get]
func (h *ProgramHandler) List(c *gin.Context) {
	programs, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, programs, nil)
}

// Get godoc
// @Summary Get a program
// @Tags Programs
// @Produce json
// @Param id path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /programs/{id} [get]
func (h *ProgramHandler) Get(c *gin.Context) {
	program, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, program, nil)
}

// Register godoc
// @Summary Register for a program
// @Description Register the authenticated student and auto-enroll them into the program's courses
// @Tags Programs
// @Produce json
// @Param id path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /programs/{id}/register [post]
func (h *ProgramHandler) Register(c *gin.Context) {
	student := studentFromContext(c)
	if student == nil {
		response.Error(c, appErrors.ErrProfileMissing)
		return
	}

	result, err := h.service.Register(c.Request.Context(), student.ID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
