package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushq/school-portal-api/internal/models"
)

// DocumentRepository handles persistence of course document metadata.
// File bytes live on disk; only paths are stored here.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts document metadata.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.CourseDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	doc.UploadedAt = time.Now().UTC()

	const query = `INSERT INTO course_documents (id, course_id, file_name, stored_path, content_type, size_bytes, uploaded_at)
        VALUES (:id, :course_id, :file_name, :stored_path, :content_type, :size_bytes, :uploaded_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create course document: %w", err)
	}
	return nil
}

// FindByID returns a single document.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*models.CourseDocument, error) {
	const query = `SELECT id, course_id, file_name, stored_path, content_type, size_bytes, uploaded_at
        FROM course_documents WHERE id = $1`
	var doc models.CourseDocument
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListByCourse returns a course's documents newest first.
func (r *DocumentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.CourseDocument, error) {
	const query = `SELECT id, course_id, file_name, stored_path, content_type, size_bytes, uploaded_at
        FROM course_documents WHERE course_id = $1 ORDER BY uploaded_at DESC`
	var docs []models.CourseDocument
	if err := r.db.SelectContext(ctx, &docs, query, courseID); err != nil {
		return nil, fmt.Errorf("list course documents: %w", err)
	}
	return docs, nil
}

// Delete removes document metadata. Returns false when no such row.
func (r *DocumentRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM course_documents WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete course document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete course document: %w", err)
	}
	return affected == 1, nil
}
