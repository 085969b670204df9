package models

import "time"

// Assignment is a task issued to a class with a due date, an optional reference document
// and the embedded submissions of its students.
type Assignment struct {
	ID              string       `db:"id" json:"id"`
	SubjectName     string       `db:"subject_name" json:"subjectName"`
	ClassName       string       `db:"class_name" json:"className"`
	TeacherName     string       `db:"teacher_name" json:"teacherName"`
	DueDate         time.Time    `db:"due_date" json:"dueDate"`
	Document        string       `db:"document_path" json:"document"`
	Submissions     []Submission `db:"-" json:"submissions,omitempty"`
	SubmissionCount int          `db:"submission_count" json:"-"`
	CreatedAt       time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updatedAt"`
}

// Submission is one student's uploaded response. At most one exists per student and assignment.
type Submission struct {
	ID           string    `db:"id" json:"id"`
	AssignmentID string    `db:"assignment_id" json:"-"`
	StudentID    string    `db:"student_id" json:"studentId"`
	FilePath     string    `db:"file_path" json:"filePath"`
	SubmittedAt  time.Time `db:"submitted_at" json:"submittedAt"`
	Grade        *float64  `db:"grade" json:"grade,omitempty"`
	Feedback     *string   `db:"feedback" json:"feedback,omitempty"`
}

// AssignmentFilter narrows which embedded submissions a listing loads.
type AssignmentFilter struct {
	// StudentID restricts loaded submissions to one student.
	StudentID string
	// IncludeSubmissions loads submissions at all; otherwise only SubmissionCount is populated.
	IncludeSubmissions bool
}

// AssignmentChanges is a partial metadata update; nil fields are left untouched.
type AssignmentChanges struct {
	SubjectName *string
	ClassName   *string
	TeacherName *string
	DueDate     *time.Time
	Document    *string
	UpdatedAt   time.Time
}

// IsLate classifies a submission instant against the current due date. Equal instants are on time.
func (a *Assignment) IsLate(at time.Time) bool {
	return at.After(a.DueDate)
}

// SubmissionByStudent returns the student's submission, if any.
func (a *Assignment) SubmissionByStudent(studentID string) (*Submission, bool) {
	for i := range a.Submissions {
		if a.Submissions[i].StudentID == studentID {
			return &a.Submissions[i], true
		}
	}
	return nil, false
}

// SubmissionByID returns the submission with the given id, if any.
func (a *Assignment) SubmissionByID(id string) (*Submission, bool) {
	for i := range a.Submissions {
		if a.Submissions[i].ID == id {
			return &a.Submissions[i], true
		}
	}
	return nil, false
}

// StoredFiles lists every file the assignment references on storage.
func (a *Assignment) StoredFiles() []string {
	files := make([]string, 0, len(a.Submissions)+1)
	if a.Document != "" {
		files = append(files, a.Document)
	}
	for _, sub := range a.Submissions {
		if sub.FilePath != "" {
			files = append(files, sub.FilePath)
		}
	}
	return files
}
