package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushq/school-portal-api/internal/service"
	appErrors "github.com/campushq/school-portal-api/pkg/errors"
	"github.com/campushq/school-portal-api/pkg/response"
)

// DashboardHandler serves the staff and student landing pages.
type DashboardHandler struct {
	service  *service.DashboardService
	students *service.StudentService
}

// NewDashboardHandler creates a new handler.
func NewDashboardHandler(svc *service.DashboardService, students *service.StudentService) *DashboardHandler {
	return &DashboardHandler{service: svc, students: students}
}

// AdminStats godoc
// @Summary Staff dashboard
// @Description Aggregate counts of students, courses, programs and pending requests
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboard [get]
func (h *DashboardHandler) AdminStats(c *gin.Context) {
	stats, err := h.service.AdminStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// StudentHome godoc
// @Summary Student dashboard
// @Description Profile, timetable and notifications for the authenticated student
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /me/dashboard [get]
func (h *DashboardHandler) StudentHome(c *gin.Context) {
	claims := claimsFromContext(c)
	student := studentFromContext(c)
	if claims == nil || student == nil {
		response.Error(c, appErrors.ErrProfileMissing)
		return
	}

	home, err := h.service.StudentHome(c.Request.Context(), student.ID, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, home, nil)
}

// Profile godoc
// @Summary Get own profile
// @Description Full profile of the authenticated student
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /me/profile [get]
func (h *DashboardHandler) Profile(c *gin.Context) {
	student := studentFromContext(c)
	if student == nil {
		response.Error(c, appErrors.ErrProfileMissing)
		return
	}

	detail, err := h.students.Get(c.Request.Context(), student.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}
