package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushq/school-portal-api/internal/models"
)

// ProgramRepository handles persistence of programs.
type ProgramRepository struct {
	db *sqlx.DB
}

// NewProgramRepository constructs the repository.
func NewProgramRepository(db *sqlx.DB) *ProgramRepository {
	return &ProgramRepository{db: db}
}

// Create persists a new program.
func (r *ProgramRepository) Create(ctx context.Context, program *models.Program) error {
	if program.ID == "" {
		program.ID = uuid.NewString()
	}
	if program.CreatedAt.IsZero() {
		program.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO programs (id, name, created_at) VALUES (:id, :name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, program); err != nil {
		return fmt.Errorf("create program: %w", err)
	}
	return nil
}

// FindByID returns a program by its ID.
func (r *ProgramRepository) FindByID(ctx context.Context, id string) (*models.Program, error) {
	const query = `SELECT id, name, created_at FROM programs WHERE id = $1`
	var program models.Program
	if err := r.db.GetContext(ctx, &program, query, id); err != nil {
		return nil, err
	}
	return &program, nil
}

// List returns every program with student and course counts.
func (r *ProgramRepository) List(ctx context.Context) ([]models.ProgramDetail, error) {
	const query = `SELECT p.id, p.name, p.created_at,
        (SELECT COUNT(*) FROM students s WHERE s.program_id = p.id) AS student_count,
        (SELECT COUNT(*) FROM courses c WHERE c.program_id = p.id) AS course_count
        FROM programs p ORDER BY p.name`
	var programs []models.ProgramDetail
	if err := r.db.SelectContext(ctx, &programs, query); err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	return programs, nil
}

// CountAll returns the total number of programs.
func (r *ProgramRepository) CountAll(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM programs`); err != nil {
		return 0, fmt.Errorf("count programs: %w", err)
	}
	return total, nil
}
