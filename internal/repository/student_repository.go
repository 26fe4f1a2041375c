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

// StudentRepository handles persistence of student profiles.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentDetailQuery = `SELECT s.id, s.user_id, s.first_name, s.last_name, s.phone, s.birth_date, s.address, s.program_id, s.created_at, s.updated_at,
        u.username, u.email, p.name AS program_name
        FROM students s
        JOIN users u ON u.id = s.user_id
        LEFT JOIN programs p ON p.id = s.program_id`

// FindByID returns a student profile by its ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, user_id, first_name, last_name, phone, birth_date, address, program_id, created_at, updated_at
        FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByUserID returns the student profile linked to a user account.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	const query = `SELECT id, user_id, first_name, last_name, phone, birth_date, address, program_id, created_at, updated_at
        FROM students WHERE user_id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, userID); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindDetailByID returns a student with account and program context.
func (r *StudentRepository) FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := studentDetailQuery + ` WHERE s.id = $1`
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns student details filtered by the provided criteria.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := `FROM students s
        JOIN users u ON u.id = s.user_id
        LEFT JOIN programs p ON p.id = s.program_id`
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.first_name) LIKE $%d OR LOWER(s.last_name) LIKE $%d OR LOWER(u.username) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.ProgramID != "" {
		conditions = append(conditions, fmt.Sprintf("s.program_id = $%d", len(args)+1))
		args = append(args, filter.ProgramID)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at": "s.created_at",
		"last_name":  "s.last_name",
		"username":   "u.username",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "s.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf(`SELECT s.id, s.user_id, s.first_name, s.last_name, s.phone, s.birth_date, s.address, s.program_id, s.created_at, s.updated_at,
        u.username, u.email, p.name AS program_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// CreateTx persists a new student profile inside an existing transaction.
func (r *StudentRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, student *models.Student) error {
	prepareStudent(student)
	const query = `INSERT INTO students (id, user_id, first_name, last_name, phone, birth_date, address, program_id, created_at, updated_at)
        VALUES (:id, :user_id, :first_name, :last_name, :phone, :birth_date, :address, :program_id, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

func prepareStudent(student *models.Student) {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
}

// AssignProgram sets the student's program only when none is assigned yet.
// It reports whether the assignment happened; false means the student was
// already registered. The conditional update keeps concurrent registration
// attempts from overwriting each other.
func (r *StudentRepository) AssignProgram(ctx context.Context, studentID, programID string) (bool, error) {
	const query = `UPDATE students SET program_id = $2, updated_at = $3 WHERE id = $1 AND program_id IS NULL`
	res, err := r.db.ExecContext(ctx, query, studentID, programID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("assign program: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("assign program result: %w", err)
	}
	return affected == 1, nil
}

// CountAll returns the total number of student profiles.
func (r *StudentRepository) CountAll(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM students`); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return total, nil
}

// CountByProgram returns per-program student counts for the dashboard.
func (r *StudentRepository) CountByProgram(ctx context.Context) ([]models.ProgramStudentCount, error) {
	const query = `SELECT p.id AS program_id, p.name AS program_name, COUNT(s.id) AS student_count
        FROM programs p
        LEFT JOIN students s ON s.program_id = p.id
        GROUP BY p.id, p.name
        ORDER BY p.name`
	var counts []models.ProgramStudentCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count students by program: %w", err)
	}
	return counts, nil
}
