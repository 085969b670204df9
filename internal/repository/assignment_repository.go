package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-assignments-api/internal/models"
)

const assignmentColumns = `a.id, a.subject_name, a.class_name, a.teacher_name, a.due_date,
       COALESCE(a.document_path, '') AS document_path, a.created_at, a.updated_at`

const submissionColumns = `id, assignment_id, student_id, file_path, submitted_at, grade, feedback`

// AssignmentRepository persists assignments in PostgreSQL. Submissions live in their own table with a
// unique (assignment_id, student_id) index and are re-embedded on read.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Create inserts a new assignment row.
func (r *AssignmentRepository) Create(ctx context.Context, a *models.Assignment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}
	const query = `INSERT INTO assignments
	(id, subject_name, class_name, teacher_name, due_date, document_path, created_at, updated_at)
	VALUES (:id, :subject_name, :class_name, :teacher_name, :due_date, NULLIF(:document_path, ''), :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// GetByID loads one assignment with all of its submissions.
func (r *AssignmentRepository) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrInvalidID
	}
	query := `SELECT ` + assignmentColumns + `, 0 AS submission_count FROM assignments a WHERE a.id = $1`
	var a models.Assignment
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrRecordNotFound
		}
		return nil, fmt.Errorf("get assignment: %w", err)
	}

	subQuery := `SELECT ` + submissionColumns + ` FROM assignment_submissions WHERE assignment_id = $1 ORDER BY submitted_at, id`
	var subs []models.Submission
	if err := r.db.SelectContext(ctx, &subs, subQuery, id); err != nil {
		return nil, fmt.Errorf("list assignment submissions: %w", err)
	}
	a.Submissions = subs
	a.SubmissionCount = len(subs)
	return &a, nil
}

// List returns every assignment, newest first. Submissions are attached according to the filter.
func (r *AssignmentRepository) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + `,
       (SELECT COUNT(*) FROM assignment_submissions s WHERE s.assignment_id = a.id) AS submission_count
	FROM assignments a ORDER BY a.created_at DESC, a.id`
	var items []models.Assignment
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	if !filter.IncludeSubmissions || len(items) == 0 {
		return items, nil
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	args := []interface{}{pq.Array(ids)}
	subQuery := `SELECT ` + submissionColumns + ` FROM assignment_submissions WHERE assignment_id = ANY($1)`
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		subQuery += ` AND student_id = $2`
	}
	subQuery += ` ORDER BY submitted_at, id`

	var subs []models.Submission
	if err := r.db.SelectContext(ctx, &subs, subQuery, args...); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	byAssignment := make(map[string][]models.Submission, len(items))
	for _, sub := range subs {
		byAssignment[sub.AssignmentID] = append(byAssignment[sub.AssignmentID], sub)
	}
	for i := range items {
		items[i].Submissions = byAssignment[items[i].ID]
	}
	return items, nil
}

// Update applies the non-nil metadata changes.
func (r *AssignmentRepository) Update(ctx context.Context, id string, changes models.AssignmentChanges) error {
	if _, err := uuid.Parse(id); err != nil {
		return models.ErrInvalidID
	}
	sets := make([]string, 0, 6)
	args := []interface{}{id}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if changes.SubjectName != nil {
		add("subject_name", *changes.SubjectName)
	}
	if changes.ClassName != nil {
		add("class_name", *changes.ClassName)
	}
	if changes.TeacherName != nil {
		add("teacher_name", *changes.TeacherName)
	}
	if changes.DueDate != nil {
		add("due_date", *changes.DueDate)
	}
	if changes.Document != nil {
		add("document_path", nullableString(*changes.Document))
	}
	updatedAt := changes.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	add("updated_at", updatedAt)

	query := `UPDATE assignments SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return expectAffected(res, "update assignment")
}

// Delete removes the assignment; submissions go with it through the foreign key cascade.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return models.ErrInvalidID
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return expectAffected(res, "delete assignment")
}

// UpsertSubmission records the student's submission atomically. The assignment row is locked for the
// duration of the transaction, so concurrent submissions by the same student serialise. An existing
// submission keeps its id, grade and feedback; its previous file path is returned.
func (r *AssignmentRepository) UpsertSubmission(ctx context.Context, assignmentID string, sub *models.Submission) (string, error) {
	if _, err := uuid.Parse(assignmentID); err != nil {
		return "", models.ErrInvalidID
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin submission tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var locked string
	if err := tx.GetContext(ctx, &locked, `SELECT id FROM assignments WHERE id = $1 FOR UPDATE`, assignmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", models.ErrRecordNotFound
		}
		return "", fmt.Errorf("lock assignment: %w", err)
	}

	var previous string
	err = tx.GetContext(ctx, &previous,
		`SELECT file_path FROM assignment_submissions WHERE assignment_id = $1 AND student_id = $2`,
		assignmentID, sub.StudentID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("load previous submission: %w", err)
	}

	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	sub.AssignmentID = assignmentID
	const upsert = `INSERT INTO assignment_submissions (id, assignment_id, student_id, file_path, submitted_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (assignment_id, student_id)
	DO UPDATE SET file_path = EXCLUDED.file_path, submitted_at = EXCLUDED.submitted_at
	RETURNING id`
	var storedID string
	if err := tx.GetContext(ctx, &storedID, upsert, sub.ID, assignmentID, sub.StudentID, sub.FilePath, sub.SubmittedAt); err != nil {
		return "", fmt.Errorf("upsert submission: %w", err)
	}
	sub.ID = storedID

	if _, err := tx.ExecContext(ctx, `UPDATE assignments SET updated_at = $2 WHERE id = $1`, assignmentID, sub.SubmittedAt); err != nil {
		return "", fmt.Errorf("touch assignment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit submission: %w", err)
	}
	return previous, nil
}

// GradeSubmission sets grade and feedback of one submission in place.
func (r *AssignmentRepository) GradeSubmission(ctx context.Context, assignmentID, submissionID string, grade *float64, feedback *string) error {
	if _, err := uuid.Parse(assignmentID); err != nil {
		return models.ErrInvalidID
	}
	if _, err := uuid.Parse(submissionID); err != nil {
		return models.ErrInvalidID
	}
	const query = `UPDATE assignment_submissions SET grade = $3, feedback = $4 WHERE assignment_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, query, assignmentID, submissionID, grade, feedback)
	if err != nil {
		return fmt.Errorf("grade submission: %w", err)
	}
	return expectAffected(res, "grade submission")
}

func expectAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return models.ErrRecordNotFound
	}
	return nil
}

func nullableString(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
