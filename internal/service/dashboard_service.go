package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/campushq/school-portal-api/internal/models"
	appErrors "github.com/campushq/school-portal-api/pkg/errors"
)

const adminDashboardCacheKey = "dashboard:admin"

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type dashboardStudentRepository interface {
	FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error)
	CountAll(ctx context.Context) (int, error)
	CountByProgram(ctx context.Context) ([]models.ProgramStudentCount, error)
}

type dashboardCountRepositories interface {
	CountAll(ctx context.Context) (int, error)
}

type dashboardRequestRepository interface {
	CountPending(ctx context.Context) (int, error)
}

// DashboardConfig controls caching of the admin dashboard payload.
type DashboardConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// DashboardService aggregates landing-page figures for staff and students.
type DashboardService struct {
	students         dashboardStudentRepository
	courses          dashboardCountRepositories
	programs         dashboardCountRepositories
	enrollmentCounts dashboardCountRepositories
	requests         dashboardRequestRepository
	enrollments      *EnrollmentService
	notifications    *NotificationService
	cache            dashboardCache
	metrics          *MetricsService
	logger           *zap.Logger
	config           DashboardConfig
}

// NewDashboardService constructs a DashboardService instance.
func NewDashboardService(students dashboardStudentRepository, courses, programs, enrollmentCounts dashboardCountRepositories, requests dashboardRequestRepository, enrollments *EnrollmentService, notifications *NotificationService, cache dashboardCache, metrics *MetricsService, logger *zap.Logger, config DashboardConfig) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		students:         students,
		courses:          courses,
		programs:         programs,
		enrollmentCounts: enrollmentCounts,
		requests:         requests,
		enrollments:      enrollments,
		notifications:    notifications,
		cache:            cache,
		metrics:          metrics,
		logger:           logger,
		config:           config,
	}
}

// AdminStats returns the staff dashboard aggregates, served from cache
// when fresh.
func (s *DashboardService) AdminStats(ctx context.Context) (*models.DashboardStats, error) {
	if s.config.CacheEnabled && s.cache != nil {
		var cached models.DashboardStats
		err := s.cache.Get(ctx, adminDashboardCacheKey, &cached)
		if err == nil {
			s.metrics.RecordCacheOperation(true)
			return &cached, nil
		}
		s.metrics.RecordCacheOperation(false)
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	stats := &models.DashboardStats{}
	var err error
	if stats.TotalStudents, err = s.students.CountAll(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	if stats.TotalCourses, err = s.courses.CountAll(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count courses")
	}
	if stats.TotalPrograms, err = s.programs.CountAll(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count programs")
	}
	if stats.TotalEnrollments, err = s.enrollmentCounts.CountAll(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	if stats.PendingRequests, err = s.requests.CountPending(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count requests")
	}
	if stats.Programs, err = s.students.CountByProgram(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate programs")
	}

	if s.config.CacheEnabled && s.cache != nil {
		if err := s.cache.Set(ctx, adminDashboardCacheKey, stats, s.config.CacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

// InvalidateAdminStats drops the cached staff dashboard. Called after
// writes that change the aggregates.
func (s *DashboardService) InvalidateAdminStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, adminDashboardCacheKey); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

// StudentHome returns the student landing payload.
func (s *DashboardService) StudentHome(ctx context.Context, studentID, userID string) (*models.StudentDashboard, error) {
	student, err := s.students.FindDetailByID(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	enrollments, err := s.enrollments.ListForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	notifications, err := s.notifications.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &models.StudentDashboard{
		Student:       *student,
		Enrollments:   enrollments,
		Notifications: notifications,
	}, nil
}
