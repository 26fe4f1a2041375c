package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushq/school-portal-api/internal/service"
	appErrors "github.com/campushq/school-portal-api/pkg/errors"
	"github.com/campushq/school-portal-api/pkg/response"
)

// GradeHandler exposes grade recording and transcripts.
type GradeHandler struct {
	service *service.GradeService
}

// NewGradeHandler creates a new handler.
func NewGradeHandler(svc *service.GradeService) *GradeHandler {
	return &GradeHandler{service: svc}
}

// Record godoc
// @Summary Record a grade
// @Description Record one grade per student and course pair
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body service.GradeInput true "Grade payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /grades [post]
func (h *GradeHandler) Record(c *gin.Context) {
	var input service.GradeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grade payload"))
		return
	}

	grade, err := h.service.Record(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, grade)
}

type amendGradePayload struct {
	Grade string `json:"grade" binding:"required,max=5"`
}

// Amend godoc
// @Summary Amend a grade
// @Description Replace the value of a recorded grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Grade ID"
// @Param payload body amendGradePayload true "Amendment payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /grades/{id} [put]
func (h *GradeHandler) Amend(c *gin.Context) {
	var payload amendGradePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grade payload"))
		return
	}

	grade, err := h.service.Amend(c.Request.Context(), c.Param("id"), payload.Grade)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil)
}

// ListByStudent godoc
// @Summary List a student's grades
// @Tags Grades
// @Produce json
// @Param studentId query string true "Student ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /grades [get]
func (h *GradeHandler) ListByStudent(c *gin.Context) {
	studentID := c.Query("studentId")
	if studentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "studentId query parameter is required"))
		return
	}

	grades, err := h.service.ListForStudent(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}

// ListByCourse godoc
// @Summary List grades for a course
// @Description List every grade recorded for a course
// @Tags Grades
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/grades [get]
func (h *GradeHandler) ListByCourse(c *gin.Context) {
	grades, err := h.service.ListForCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}

// ListOwn godoc
// @Summary List own grades
// @Description List the authenticated student's grades
// @Tags Grades
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /me/grades [get]
func (h *GradeHandler) ListOwn(c *gin.Context) {
	student := studentFromContext(c)
	if student == nil {
		response.Error(c, appErrors.ErrProfileMissing)
		return
	}

	grades, err := h.service.ListForStudent(c.Request.Context(), student.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}
