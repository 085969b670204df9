package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-assignments-api/internal/models"
)

const (
	testAssignmentID = "5b7c3f0e-7a43-4c7e-9a57-2b2f4f0d9c11"
	testSubmissionID = "9d0e41a2-1f5c-4b83-8c3e-6f2b7b1f0a22"
)

var assignmentRowColumns = []string{"id", "subject_name", "class_name", "teacher_name", "due_date", "document_path", "created_at", "updated_at", "submission_count"}

var submissionRowColumns = []string{"id", "assignment_id", "student_id", "file_path", "submitted_at", "grade", "feedback"}

func newAssignmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAssignmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()

	repo := NewAssignmentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO assignments")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	item := &models.Assignment{
		SubjectName: "Math",
		ClassName:   "10A",
		TeacherName: "Ms. K",
		DueDate:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(context.Background(), item))
	require.NotEmpty(t, item.ID)
	require.False(t, item.CreatedAt.IsZero())
	require.Equal(t, item.CreatedAt, item.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()

	repo := NewAssignmentRepository(db)
	due := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM assignments a WHERE a.id = $1")).
		WithArgs(testAssignmentID).
		WillReturnRows(sqlmock.NewRows(assignmentRowColumns).
			AddRow(testAssignmentID, "Math", "10A", "Ms. K", due, "document_1_ab.pdf", due, due, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM assignment_submissions WHERE assignment_id = $1")).
		WithArgs(testAssignmentID).
		WillReturnRows(sqlmock.NewRows(submissionRowColumns).
			AddRow(testSubmissionID, testAssignmentID, "s1", "submission_1_cd.pdf", due.Add(-time.Hour), 88.5, "good"))

	found, err := repo.GetByID(context.Background(), testAssignmentID)
	require.NoError(t, err)
	require.Equal(t, "document_1_ab.pdf", found.Document)
	require.Len(t, found.Submissions, 1)
	require.Equal(t, 1, found.SubmissionCount)
	require.NotNil(t, found.Submissions[0].Grade)
	require.Equal(t, 88.5, *found.Submissions[0].Grade)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryGetByIDErrors(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()

	repo := NewAssignmentRepository(db)

	_, err := repo.GetByID(context.Background(), "not-a-uuid")
	require.ErrorIs(t, err, models.ErrInvalidID)

	mock.ExpectQuery(regexp.QuoteMeta("FROM assignments a WHERE a.id = $1")).
		WithArgs(testAssignmentID).
		WillReturnRows(sqlmock.NewRows(assignmentRowColumns))
	_, err = repo.GetByID(context.Background(), testAssignmentID)
	require.ErrorIs(t, err, models.ErrRecordNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryListForStudent(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()

	repo := NewAssignmentRepository(db)
	due := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM assignments a ORDER BY a.created_at DESC")).
		WillReturnRows(sqlmock.NewRows(assignmentRowColumns).
			AddRow(testAssignmentID, "Math", "10A", "Ms. K", due, "", due, due, 2))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE assignment_id = ANY($1) AND student_id = $2")).
		WithArgs(sqlmock.AnyArg(), "s1").
		WillReturnRows(sqlmock.NewRows(submissionRowColumns).
			AddRow(testSubmissionID, testAssignmentID, "s1", "submission_1_cd.pdf", due, nil, nil))

	items, err := repo.List(context.Background(), models.AssignmentFilter{StudentID: "s1", IncludeSubmissions: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 2, items[0].SubmissionCount)
	require.Len(t, items[0].Submissions, 1)
	require.Nil(t, items[0].Submissions[0].Grade)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryListCountsOnly(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()

	repo := NewAssignmentRepository(db)
	due := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM assignments a ORDER BY a.created_at DESC")).
		WillReturnRows(sqlmock.NewRows(assignmentRowColumns).
			AddRow(testAssignmentID, "Math", "10A", "Ms. K", due, "", due, due, 3))

	items, err := repo.List(context.Background(), models.AssignmentFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 3, items[0].SubmissionCount)
	require.Empty(t, items[0].Submissions)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryUpdateOnlyChangedFields(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()

	repo := NewAssignmentRepository(db)
	subject := "Physics"
	at := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE assignments SET subject_name = $2, updated_at = $3 WHERE id = $1")).
		WithArgs(testAssignmentID, subject, at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), testAssignmentID, models.AssignmentChanges{SubjectName: &subject, UpdatedAt: at})
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE assignments SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.Update(context.Background(), testAssignmentID, models.AssignmentChanges{SubjectName: &subject})
	require.ErrorIs(t, err, models.ErrRecordNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()

	repo := NewAssignmentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM assignments WHERE id = $1")).
		WithArgs(testAssignmentID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), testAssignmentID))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM assignments WHERE id = $1")).
		WithArgs(testAssignmentID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.Delete(context.Background(), testAssignmentID), models.ErrRecordNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryUpsertSubmissionFirstTime(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()

	repo := NewAssignmentRepository(db)
	at := time.Date(2024, 2, 28, 23, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM assignments WHERE id = $1 FOR UPDATE")).
		WithArgs(testAssignmentID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(testAssignmentID))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT file_path FROM assignment_submissions")).
		WithArgs(testAssignmentID, "s1").
		WillReturnRows(sqlmock.NewRows([]string{"file_path"}))
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (assignment_id, student_id)")).
		WithArgs(sqlmock.AnyArg(), testAssignmentID, "s1", "submission_1_ab.pdf", at).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(testSubmissionID))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE assignments SET updated_at = $2 WHERE id = $1")).
		WithArgs(testAssignmentID, at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sub := &models.Submission{StudentID: "s1", FilePath: "submission_1_ab.pdf", SubmittedAt: at}
	previous, err := repo.UpsertSubmission(context.Background(), testAssignmentID, sub)
	require.NoError(t, err)
	require.Empty(t, previous)
	require.Equal(t, testSubmissionID, sub.ID)
	require.Equal(t, testAssignmentID, sub.AssignmentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryUpsertSubmissionReplacesExisting(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()

	repo := NewAssignmentRepository(db)
	at := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(testAssignmentID))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT file_path FROM assignment_submissions")).
		WillReturnRows(sqlmock.NewRows([]string{"file_path"}).AddRow("submission_1_old.pdf"))
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (assignment_id, student_id)")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(testSubmissionID))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE assignments SET updated_at")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sub := &models.Submission{StudentID: "s1", FilePath: "submission_2_new.pdf", SubmittedAt: at}
	previous, err := repo.UpsertSubmission(context.Background(), testAssignmentID, sub)
	require.NoError(t, err)
	require.Equal(t, "submission_1_old.pdf", previous)
	require.Equal(t, testSubmissionID, sub.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryUpsertSubmissionMissingAssignment(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()

	repo := NewAssignmentRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(testAssignmentID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := repo.UpsertSubmission(context.Background(), testAssignmentID, &models.Submission{StudentID: "s1"})
	require.ErrorIs(t, err, models.ErrRecordNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryGradeSubmission(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()

	repo := NewAssignmentRepository(db)
	grade := 91.0
	feedback := "well argued"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE assignment_submissions SET grade = $3, feedback = $4")).
		WithArgs(testAssignmentID, testSubmissionID, 91.0, "well argued").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.GradeSubmission(context.Background(), testAssignmentID, testSubmissionID, &grade, &feedback))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE assignment_submissions SET grade")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.GradeSubmission(context.Background(), testAssignmentID, testSubmissionID, nil, nil)
	require.ErrorIs(t, err, models.ErrRecordNotFound)

	err = repo.GradeSubmission(context.Background(), testAssignmentID, "sub-1", nil, nil)
	require.ErrorIs(t, err, models.ErrInvalidID)
	require.NoError(t, mock.ExpectationsWereMet())
}
