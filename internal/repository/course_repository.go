package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushq/school-portal-api/internal/models"
)

// CourseRepository handles persistence of courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `id, name, program_id, day_of_week, start_time, end_time, semester, created_at, updated_at`

// Create persists a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, name, program_id, day_of_week, start_time, end_time, semester, created_at, updated_at)
        VALUES (:id, :name, :program_id, :day_of_week, :start_time, :end_time, :semester, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of a course.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET name = :name, program_id = :program_id, day_of_week = :day_of_week,
        start_time = :start_time, end_time = :end_time, semester = :semester, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// Delete removes a course.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1`, courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// List returns course details filtered by the provided criteria.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	base := `FROM courses c JOIN programs p ON p.id = c.program_id`
	var conditions []string
	var args []interface{}

	if filter.ProgramID != "" {
		conditions = append(conditions, fmt.Sprintf("c.program_id = $%d", len(args)+1))
		args = append(args, filter.ProgramID)
	}
	if filter.DayOfWeek != "" {
		conditions = append(conditions, fmt.Sprintf("c.day_of_week = $%d", len(args)+1))
		args = append(args, filter.DayOfWeek)
	}
	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("c.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"name":        "c.name",
		"day_of_week": "c.day_of_week",
		"created_at":  "c.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "c.name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT c.id, c.name, c.program_id, c.day_of_week, c.start_time, c.end_time, c.semester, c.created_at, c.updated_at,
        p.name AS program_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// ListByProgram returns a program's courses ordered by id. The order is
// what makes bulk auto-enrollment deterministic: when two courses in the
// same program overlap, the lower course id wins.
func (r *CourseRepository) ListByProgram(ctx context.Context, programID string) ([]models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE program_id = $1 ORDER BY id`, courseColumns)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, programID); err != nil {
		return nil, fmt.Errorf("list program courses: %w", err)
	}
	return courses, nil
}

// ListAvailableForStudent returns courses the student is not yet enrolled in.
func (r *CourseRepository) ListAvailableForStudent(ctx context.Context, studentID string) ([]models.CourseDetail, error) {
	const query = `SELECT c.id, c.name, c.program_id, c.day_of_week, c.start_time, c.end_time, c.semester, c.created_at, c.updated_at,
        p.name AS program_name
        FROM courses c
        JOIN programs p ON p.id = c.program_id
        WHERE c.id NOT IN (SELECT course_id FROM enrollments WHERE student_id = $1)
        ORDER BY c.name`
	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, studentID); err != nil {
		return nil, fmt.Errorf("list available courses: %w", err)
	}
	return courses, nil
}

// CountAll returns the total number of courses.
func (r *CourseRepository) CountAll(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM courses`); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return total, nil
}
