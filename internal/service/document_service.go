package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campushq/school-portal-api/internal/models"
	appErrors "github.com/campushq/school-portal-api/pkg/errors"
)

type documentRepository interface {
	Create(ctx context.Context, doc *models.CourseDocument) error
	FindByID(ctx context.Context, id string) (*models.CourseDocument, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.CourseDocument, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type documentStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type documentEnrollmentRepository interface {
	ExistsByStudentAndCourse(ctx context.Context, studentID, courseID string) (bool, error)
}

type documentCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// DocumentConfig bounds uploads.
type DocumentConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// DocumentUpload carries one multipart file from the handler.
type DocumentUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// DocumentService stores course documents and gates student access on
// enrollment.
type DocumentService struct {
	documents   documentRepository
	courses     documentCourseRepository
	enrollments documentEnrollmentRepository
	storage     documentStorage
	logger      *zap.Logger
	config      DocumentConfig
}

// NewDocumentService constructs a DocumentService instance.
func NewDocumentService(documents documentRepository, courses documentCourseRepository, enrollments documentEnrollmentRepository, storage documentStorage, logger *zap.Logger, config DocumentConfig) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{documents: documents, courses: courses, enrollments: enrollments, storage: storage, logger: logger, config: config}
}

// Upload validates and stores a document for a course.
func (s *DocumentService) Upload(ctx context.Context, courseID string, upload DocumentUpload) (*models.CourseDocument, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if upload.FileName == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file name is required")
	}
	if s.config.MaxFileSizeBytes > 0 && upload.Size > s.config.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("file exceeds the %d byte limit", s.config.MaxFileSizeBytes))
	}
	if len(s.config.AllowedMIMEs) > 0 && !s.mimeAllowed(upload.ContentType) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("content type %s is not allowed", upload.ContentType))
	}

	storedPath := filepath.Join("courses", courseID, uuid.NewString()+filepath.Ext(upload.FileName))
	if _, err := s.storage.SaveStream(storedPath, upload.Reader); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	doc := &models.CourseDocument{
		CourseID:    courseID,
		FileName:    upload.FileName,
		StoredPath:  storedPath,
		ContentType: upload.ContentType,
		SizeBytes:   upload.Size,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		if cleanupErr := s.storage.Delete(storedPath); cleanupErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("path", storedPath), zap.Error(cleanupErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store document metadata")
	}
	return doc, nil
}

// ListForCourse returns a course's documents for an enrolled student. An
// empty studentID means a staff caller with unrestricted access.
func (s *DocumentService) ListForCourse(ctx context.Context, courseID, studentID string) ([]models.CourseDocument, error) {
	if studentID != "" {
		enrolled, err := s.enrollments.ExistsByStudentAndCourse(ctx, studentID, courseID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}
		if !enrolled {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "enroll in the course to access its documents")
		}
	}

	docs, err := s.documents.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	return docs, nil
}

// OpenForDownload returns the document metadata and a file handle,
// enforcing the same enrollment gate as listing. The caller closes the file.
func (s *DocumentService) OpenForDownload(ctx context.Context, documentID, studentID string) (*models.CourseDocument, *os.File, error) {
	doc, err := s.documents.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}

	if studentID != "" {
		enrolled, err := s.enrollments.ExistsByStudentAndCourse(ctx, studentID, doc.CourseID)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}
		if !enrolled {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "enroll in the course to access its documents")
		}
	}

	file, err := s.storage.Open(doc.StoredPath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open stored file")
	}
	return doc, file, nil
}

// Delete removes a document and its stored file.
func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	doc, err := s.documents.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}

	deleted, err := s.documents.Delete(ctx, documentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete document")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}

	if err := s.storage.Delete(doc.StoredPath); err != nil {
		s.logger.Warn("failed to remove stored file", zap.String("path", doc.StoredPath), zap.Error(err))
	}
	return nil
}

func (s *DocumentService) mimeAllowed(contentType string) bool {
	for _, allowed := range s.config.AllowedMIMEs {
		if contentType == allowed {
			return true
		}
	}
	return false
}
