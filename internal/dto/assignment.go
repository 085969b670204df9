package dto

import "github.com/noah-isme/sma-assignments-api/internal/models"

// CreateAssignmentRequest contains metadata submitted alongside an optional reference document.
type CreateAssignmentRequest struct {
	SubjectName string `form:"subjectName" json:"subjectName" validate:"required"`
	ClassName   string `form:"className" json:"className" validate:"required"`
	TeacherName string `form:"teacherName" json:"teacherName" validate:"required"`
	DueDate     string `form:"dueDate" json:"dueDate" validate:"required"`
}

// UpdateAssignmentRequest carries a partial metadata update; absent fields are left untouched.
type UpdateAssignmentRequest struct {
	SubjectName *string `form:"subjectName" json:"subjectName"`
	ClassName   *string `form:"className" json:"className"`
	TeacherName *string `form:"teacherName" json:"teacherName"`
	DueDate     *string `form:"dueDate" json:"dueDate"`
}

// GradeSubmissionRequest sets grade and feedback on one submission. Nil values clear the field.
type GradeSubmissionRequest struct {
	SubmissionID string   `json:"submissionId"`
	Grade        *float64 `json:"grade"`
	Feedback     *string  `json:"feedback"`
}

// SubmitResponse reports the timeliness of an accepted submission.
type SubmitResponse struct {
	Message      string `json:"message"`
	SubmissionID string `json:"submissionId"`
	IsLate       bool   `json:"isLate"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// CleanupReport accounts for best-effort file deletions. Orphaned files stay on storage.
type CleanupReport struct {
	Attempted int      `json:"attempted"`
	Removed   int      `json:"removed"`
	Orphaned  []string `json:"orphaned"`
}

// Clean reports whether every attempted deletion succeeded.
func (r CleanupReport) Clean() bool {
	return len(r.Orphaned) == 0
}

// DeleteAssignmentResponse is returned after an assignment has been removed.
type DeleteAssignmentResponse struct {
	Message string        `json:"message"`
	Cleanup CleanupReport `json:"cleanup"`
}

// SubmissionView decorates a submission with its lateness against the current due date.
type SubmissionView struct {
	models.Submission
	IsLate bool `json:"isLate"`
}

// AssignmentView is the caller-specific projection of an assignment. Students get MySubmission only,
// staff listings get SubmissionCount only, staff detail views get every submission.
type AssignmentView struct {
	models.Assignment
	Submissions     []SubmissionView `json:"submissions,omitempty"`
	MySubmission    *SubmissionView  `json:"mySubmission,omitempty"`
	SubmissionCount *int             `json:"submissionCount,omitempty"`
}
