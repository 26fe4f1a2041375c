package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushq/school-portal-api/internal/service"
	appErrors "github.com/campushq/school-portal-api/pkg/errors"
	"github.com/campushq/school-portal-api/pkg/response"
)

// EnrollmentHandler exposes course enrollment for students.
type EnrollmentHandler struct {
	service *service.EnrollmentService
}

// NewEnrollmentHandler creates a new handler.
func NewEnrollmentHandler(svc *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

type enrollPayload struct {
	CourseID string `json:"course_id" binding:"required"`
}

// Enroll godoc
// @Summary Enroll in a course
// @Description Enroll the authenticated student unless the course slot conflicts
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body enrollPayload true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var payload enrollPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid enrollment payload"))
		return
	}

	student := studentFromContext(c)
	if student == nil {
		response.Error(c, appErrors.ErrProfileMissing)
		return
	}

	enrollment, err := h.service.Admit(c.Request.Context(), student.ID, payload.CourseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Timetable godoc
// @Summary Get own timetable
// @Description List the authenticated student's enrollments
// @Tags Enrollments
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /me/timetable [get]
func (h *EnrollmentHandler) Timetable(c *gin.Context) {
	student := studentFromContext(c)
	if student == nil {
		response.Error(c, appErrors.ErrProfileMissing)
		return
	}

	enrollments, err := h.service.ListForStudent(c.Request.Context(), student.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}
