package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	internalmiddleware "github.com/campushq/school-portal-api/internal/middleware"
	"github.com/campushq/school-portal-api/internal/models"
	"github.com/campushq/school-portal-api/internal/service"
)

func TestEnrollmentRoutesIntegration(t *testing.T) {
	router := buildEnrollmentRouter()

	t.Run("enroll success", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/enrollments", bytes.NewBufferString(`{"course_id":"crs-3"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleStudent))
		resp := performEnrollmentRequest(router, req)
		require.Equal(t, http.StatusCreated, resp.Code)
		require.Contains(t, resp.Body.String(), `"course_id":"crs-3"`)
	})

	t.Run("enroll conflict", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/enrollments", bytes.NewBufferString(`{"course_id":"crs-2"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleStudent))
		resp := performEnrollmentRequest(router, req)
		require.Equal(t, http.StatusConflict, resp.Code)

		var envelope struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
			Meta map[string]json.RawMessage `json:"meta"`
		}
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
		require.Equal(t, "SCHEDULE_CONFLICT", envelope.Error.Code)
		require.Contains(t, string(envelope.Meta["conflict"]), "crs-1")
	})

	t.Run("enroll forbidden for staff", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/enrollments", bytes.NewBufferString(`{"course_id":"crs-1"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleStaff))
		resp := performEnrollmentRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("enroll unauthorized", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/enrollments", bytes.NewBufferString(`{"course_id":"crs-1"}`))
		req.Header.Set("Content-Type", "application/json")
		resp := performEnrollmentRequest(router, req)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("enroll unknown course", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/enrollments", bytes.NewBufferString(`{"course_id":"missing"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleStudent))
		resp := performEnrollmentRequest(router, req)
		require.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("timetable", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/me/timetable", nil)
		req.Header.Set("X-Test-Role", string(models.RoleStudent))
		resp := performEnrollmentRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"course_name":"Algebra"`)
	})
}

func buildEnrollmentRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if role := c.GetHeader("X-Test-Role"); role != "" {
			c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
				UserID: "usr-1",
				Role:   models.UserRole(role),
			})
			if models.UserRole(role) == models.RoleStudent {
				programID := "prg-1"
				c.Set(internalmiddleware.ContextStudentKey, &models.Student{
					ID:        "stu-1",
					UserID:    "usr-1",
					ProgramID: &programID,
				})
			}
		}
		c.Next()
	})

	nine, half, ten, eleven := "09:00", "09:30", "10:00", "11:00"
	repo := &enrollmentRepoIntegrationMock{
		enrolled: []models.Enrollment{
			{ID: "enr-1", StudentID: "stu-1", CourseID: "crs-1", DayOfWeek: "Monday", StartTime: &nine, EndTime: &ten},
		},
		names: map[string]string{"crs-1": "Algebra"},
	}
	students := &studentReaderIntegrationMock{}
	// crs-2 overlaps the pre-existing Monday enrollment by half an hour.
	courses := &courseReaderIntegrationMock{courses: map[string]*models.Course{
		"crs-1": {ID: "crs-1", Name: "Algebra", ProgramID: "prg-1", DayOfWeek: "Tuesday", StartTime: &nine, EndTime: &ten},
		"crs-2": {ID: "crs-2", Name: "Biology", ProgramID: "prg-1", DayOfWeek: "Monday", StartTime: &half, EndTime: &eleven},
		"crs-3": {ID: "crs-3", Name: "Chemistry", ProgramID: "prg-1", DayOfWeek: "Wednesday", StartTime: &ten, EndTime: &eleven},
	}}

	svc := service.NewEnrollmentService(repo, students, courses, nil, nil)
	enrollmentHandler := NewEnrollmentHandler(svc)

	studentOnly := router.Group("")
	studentOnly.Use(internalmiddleware.RequireRoles(models.RoleStudent))
	studentOnly.POST("/enrollments", enrollmentHandler.Enroll)
	studentOnly.GET("/me/timetable", enrollmentHandler.Timetable)

	return router
}

func performEnrollmentRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type enrollmentRepoIntegrationMock struct {
	enrolled []models.Enrollment
	names    map[string]string
}

func (m *enrollmentRepoIntegrationMock) CreateIfNoConflict(ctx context.Context, enrollment *models.Enrollment) (*models.ScheduleConflict, error) {
	slot := enrollment.Slot()
	for _, existing := range m.enrolled {
		if existing.StudentID != enrollment.StudentID {
			continue
		}
		if slot.Overlaps(existing.Slot()) {
			return &models.ScheduleConflict{
				CourseID:   existing.CourseID,
				CourseName: m.names[existing.CourseID],
				DayOfWeek:  existing.DayOfWeek,
				StartTime:  existing.StartTime,
				EndTime:    existing.EndTime,
			}, nil
		}
	}
	enrollment.ID = "enr-new"
	m.enrolled = append(m.enrolled, *enrollment)
	return nil, nil
}

func (m *enrollmentRepoIntegrationMock) ListDetailsByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	var details []models.EnrollmentDetail
	for _, e := range m.enrolled {
		if e.StudentID != studentID {
			continue
		}
		details = append(details, models.EnrollmentDetail{
			Enrollment: e,
			CourseName: m.names[e.CourseID],
		})
	}
	return details, nil
}

func (m *enrollmentRepoIntegrationMock) ExistsByStudentAndCourse(ctx context.Context, studentID, courseID string) (bool, error) {
	for _, e := range m.enrolled {
		if e.StudentID == studentID && e.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

type studentReaderIntegrationMock struct{}

func (studentReaderIntegrationMock) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if id != "stu-1" {
		return nil, sql.ErrNoRows
	}
	programID := "prg-1"
	return &models.Student{ID: "stu-1", UserID: "usr-1", ProgramID: &programID}, nil
}

type courseReaderIntegrationMock struct {
	courses map[string]*models.Course
}

func (m *courseReaderIntegrationMock) FindByID(ctx context.Context, id string) (*models.Course, error) {
	course, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return course, nil
}
