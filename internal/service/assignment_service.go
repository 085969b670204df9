package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-assignments-api/internal/dto"
	"github.com/noah-isme/sma-assignments-api/internal/models"
	appErrors "github.com/noah-isme/sma-assignments-api/pkg/errors"
	"github.com/noah-isme/sma-assignments-api/pkg/export"
)

const dueDateLayout = "2006-01-02"

type assignmentStore interface {
	Create(ctx context.Context, a *models.Assignment) error
	GetByID(ctx context.Context, id string) (*models.Assignment, error)
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, error)
	Update(ctx context.Context, id string, changes models.AssignmentChanges) error
	Delete(ctx context.Context, id string) error
	UpsertSubmission(ctx context.Context, assignmentID string, sub *models.Submission) (string, error)
	GradeSubmission(ctx context.Context, assignmentID, submissionID string, grade *float64, feedback *string) error
}

type assignmentFileStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type assignmentCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// FileUpload carries an uploaded file stream and its client-side name.
type FileUpload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// FileDownload bundles an opened file for streaming. The caller closes File.
type FileDownload struct {
	File      *os.File
	Filename  string
	MimeType  string
	SizeBytes int64
}

// GradeSheet is a rendered grade export.
type GradeSheet struct {
	Filename    string
	ContentType string
	Content     []byte
}

// AssignmentServiceConfig holds validation and caching parameters.
type AssignmentServiceConfig struct {
	MaxFileSize int64
	CacheTTL    time.Duration
}

// AssignmentService owns the assignment lifecycle: metadata, documents, submissions and grading.
type AssignmentService struct {
	store     assignmentStore
	storage   assignmentFileStorage
	cache     assignmentCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       AssignmentServiceConfig
	now       func() time.Time

	// bumped on every invalidation; a cache fill that raced a write is dropped
	cacheGen atomic.Uint64
}

// NewAssignmentService constructs the service with defaults.
func NewAssignmentService(store assignmentStore, storage assignmentFileStorage, cache assignmentCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg AssignmentServiceConfig) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 20 * 1024 * 1024
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	return &AssignmentService{
		store:     store,
		storage:   storage,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Create stores a new assignment. A supplied document is written first and removed again if the
// record cannot be persisted.
func (s *AssignmentService) Create(ctx context.Context, req dto.CreateAssignmentRequest, document *FileUpload, actor *models.JWTClaims) (*dto.AssignmentView, error) {
	if err := authorize(actor, models.CapManageAssignments); err != nil {
		return nil, err
	}
	req.SubjectName = strings.TrimSpace(req.SubjectName)
	req.ClassName = strings.TrimSpace(req.ClassName)
	req.TeacherName = strings.TrimSpace(req.TeacherName)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		return nil, err
	}

	var staged string
	if document != nil {
		if staged, err = s.stage("document", document); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	assignment := &models.Assignment{
		SubjectName: req.SubjectName,
		ClassName:   req.ClassName,
		TeacherName: req.TeacherName,
		DueDate:     dueDate,
		Document:    staged,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, assignment); err != nil {
		s.compensate(staged)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}

	s.logger.Info("assignment created",
		zap.String("assignment_id", assignment.ID),
		zap.String("actor_id", actor.UserID),
		zap.Bool("has_document", staged != ""),
	)
	view := s.project(assignment, actor, true)
	return &view, nil
}

// List returns every assignment projected for the caller, newest first.
func (s *AssignmentService) List(ctx context.Context, actor *models.JWTClaims) ([]dto.AssignmentView, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.AssignmentFilter{}
	if !actor.Role.Can(models.CapViewAllSubmissions) {
		filter = models.AssignmentFilter{StudentID: actor.UserID, IncludeSubmissions: true}
	}
	items, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	views := make([]dto.AssignmentView, 0, len(items))
	for i := range items {
		views = append(views, s.project(&items[i], actor, false))
	}
	return views, nil
}

// Get returns one assignment projected for the caller.
func (s *AssignmentService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*dto.AssignmentView, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	assignment, err := s.loadCached(ctx, id)
	if err != nil {
		return nil, err
	}
	view := s.project(assignment, actor, true)
	return &view, nil
}

// Update applies a partial metadata update and optionally replaces the reference document. The old
// document is deleted only after the record points at the new one.
func (s *AssignmentService) Update(ctx context.Context, id string, req dto.UpdateAssignmentRequest, document *FileUpload, actor *models.JWTClaims) (*dto.AssignmentView, error) {
	if err := authorize(actor, models.CapManageAssignments); err != nil {
		return nil, err
	}
	changes, err := buildChanges(req)
	if err != nil {
		return nil, err
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	var staged string
	if document != nil {
		if staged, err = s.stage("document", document); err != nil {
			return nil, err
		}
		changes.Document = &staged
	}
	changes.UpdatedAt = s.now().UTC()

	if err := s.store.Update(ctx, id, changes); err != nil {
		s.compensate(staged)
		return nil, mapStoreError(err, "assignment not found", "failed to update assignment")
	}
	s.invalidate(ctx, id)

	if staged != "" && current.Document != "" && current.Document != staged {
		s.removeBestEffort(current.Document, id)
	}

	applyChanges(current, changes)
	s.logger.Info("assignment updated", zap.String("assignment_id", id), zap.String("actor_id", actor.UserID))
	view := s.project(current, actor, true)
	return &view, nil
}

// Delete removes every stored file of the assignment best-effort and then the record itself.
func (s *AssignmentService) Delete(ctx context.Context, id string, actor *models.JWTClaims) (dto.CleanupReport, error) {
	report := dto.CleanupReport{Orphaned: []string{}}
	if err := authorize(actor, models.CapManageAssignments); err != nil {
		return report, err
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return report, err
	}

	for _, file := range current.StoredFiles() {
		report.Attempted++
		if s.removeBestEffort(file, id) {
			report.Removed++
		} else {
			report.Orphaned = append(report.Orphaned, file)
		}
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return report, mapStoreError(err, "assignment not found", "failed to delete assignment")
	}
	s.invalidate(ctx, id)

	s.logger.Info("assignment deleted",
		zap.String("assignment_id", id),
		zap.String("actor_id", actor.UserID),
		zap.Int("files_removed", report.Removed),
		zap.Int("files_orphaned", len(report.Orphaned)),
	)
	return report, nil
}

// Submit records a student's submission. Re-submitting replaces the previous file while keeping the
// submission's id, grade and feedback.
func (s *AssignmentService) Submit(ctx context.Context, id, studentID string, file *FileUpload, actor *models.JWTClaims) (*dto.SubmitResponse, error) {
	if err := authorize(actor, models.CapSubmitWork); err != nil {
		return nil, err
	}
	studentID = strings.TrimSpace(studentID)
	if actor.Role.IsStudent() {
		if studentID == "" {
			studentID = actor.UserID
		} else if studentID != actor.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "students may only submit their own work")
		}
	}
	if file == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "submission file is required")
	}
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "studentId is required")
	}

	assignment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	stored, err := s.stage("submission", file)
	if err != nil {
		return nil, err
	}
	submittedAt := s.now().UTC()
	sub := &models.Submission{StudentID: studentID, FilePath: stored, SubmittedAt: submittedAt}
	previous, err := s.store.UpsertSubmission(ctx, id, sub)
	if err != nil {
		s.compensate(stored)
		return nil, mapStoreError(err, "assignment not found", "failed to record submission")
	}
	s.invalidate(ctx, id)

	if previous != "" && previous != stored {
		s.removeBestEffort(previous, id)
	}

	isLate := assignment.IsLate(submittedAt)
	s.metrics.RecordSubmission(isLate)
	s.logger.Info("submission recorded",
		zap.String("assignment_id", id),
		zap.String("student_id", studentID),
		zap.Bool("late", isLate),
		zap.Bool("resubmission", previous != ""),
	)

	message := "Submission received"
	if previous != "" {
		message = "Submission updated"
	}
	return &dto.SubmitResponse{Message: message, SubmissionID: sub.ID, IsLate: isLate}, nil
}

// DownloadDocument opens the assignment's reference document.
func (s *AssignmentService) DownloadDocument(ctx context.Context, id string, actor *models.JWTClaims) (*FileDownload, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	assignment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if assignment.Document == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment has no document")
	}
	return s.open(assignment.Document)
}

// DownloadSubmission opens a submission file. Students always get their own submission; staff name
// one by id, which may be omitted only when the assignment has exactly one submission.
func (s *AssignmentService) DownloadSubmission(ctx context.Context, id, submissionID string, actor *models.JWTClaims) (*FileDownload, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	assignment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	var sub *models.Submission
	var ok bool
	submissionID = strings.TrimSpace(submissionID)
	switch {
	case !actor.Role.Can(models.CapViewAllSubmissions):
		sub, ok = assignment.SubmissionByStudent(actor.UserID)
	case submissionID != "":
		sub, ok = assignment.SubmissionByID(submissionID)
	case len(assignment.Submissions) == 1:
		sub, ok = &assignment.Submissions[0], true
	case len(assignment.Submissions) > 1:
		return nil, appErrors.Clone(appErrors.ErrValidation, "submissionId is required")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
	}
	return s.open(sub.FilePath)
}

// Grade sets grade and feedback of one submission in place. No range check is applied.
func (s *AssignmentService) Grade(ctx context.Context, id string, req dto.GradeSubmissionRequest, actor *models.JWTClaims) error {
	if err := authorize(actor, models.CapGradeSubmissions); err != nil {
		return err
	}
	submissionID := strings.TrimSpace(req.SubmissionID)
	if submissionID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "submissionId is required")
	}
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.store.GradeSubmission(ctx, id, submissionID, req.Grade, req.Feedback); err != nil {
		if errors.Is(err, models.ErrInvalidID) {
			return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return mapStoreError(err, "submission not found", "failed to grade submission")
	}
	s.invalidate(ctx, id)
	s.logger.Info("submission graded",
		zap.String("assignment_id", id),
		zap.String("submission_id", submissionID),
		zap.String("actor_id", actor.UserID),
	)
	return nil
}

// ExportGradeSheet renders every submission of the assignment as CSV or PDF.
func (s *AssignmentService) ExportGradeSheet(ctx context.Context, id, format string, actor *models.JWTClaims) (*GradeSheet, error) {
	if err := authorize(actor, models.CapGradeSubmissions); err != nil {
		return nil, err
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	assignment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{
		Title: fmt.Sprintf("%s - %s", assignment.SubjectName, assignment.ClassName),
		Subtitle: []string{
			"Teacher: " + assignment.TeacherName,
			"Due: " + assignment.DueDate.Format(dueDateLayout),
			fmt.Sprintf("Submissions: %d", len(assignment.Submissions)),
		},
		Headers: []string{"Student", "Submission", "Submitted At", "Status", "Grade", "Feedback"},
		Rows:    make([][]string, 0, len(assignment.Submissions)),
	}
	for _, sub := range assignment.Submissions {
		status := "On time"
		if assignment.IsLate(sub.SubmittedAt) {
			status = "Late"
		}
		grade := ""
		if sub.Grade != nil {
			grade = fmt.Sprintf("%g", *sub.Grade)
		}
		feedback := ""
		if sub.Feedback != nil {
			feedback = *sub.Feedback
		}
		data.Rows = append(data.Rows, []string{
			sub.StudentID,
			sub.ID,
			sub.SubmittedAt.UTC().Format(time.RFC3339),
			status,
			grade,
			feedback,
		})
	}

	content, err := export.Render(f, data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render grade sheet")
	}
	return &GradeSheet{
		Filename:    fmt.Sprintf("grades_%s_%s%s", sanitize(assignment.SubjectName), sanitize(assignment.ClassName), f.Extension()),
		ContentType: f.ContentType(),
		Content:     content,
	}, nil
}

func (s *AssignmentService) project(a *models.Assignment, actor *models.JWTClaims, detail bool) dto.AssignmentView {
	view := dto.AssignmentView{Assignment: *a}
	view.Assignment.Submissions = nil

	if !actor.Role.Can(models.CapViewAllSubmissions) {
		if sub, ok := a.SubmissionByStudent(actor.UserID); ok {
			mine := dto.SubmissionView{Submission: *sub, IsLate: a.IsLate(sub.SubmittedAt)}
			view.MySubmission = &mine
		}
		return view
	}

	count := a.SubmissionCount
	if detail {
		count = len(a.Submissions)
		view.Submissions = make([]dto.SubmissionView, 0, len(a.Submissions))
		for _, sub := range a.Submissions {
			view.Submissions = append(view.Submissions, dto.SubmissionView{Submission: sub, IsLate: a.IsLate(sub.SubmittedAt)})
		}
	}
	view.SubmissionCount = &count
	return view
}

func (s *AssignmentService) load(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "assignment not found", "failed to load assignment")
	}
	return assignment, nil
}

func (s *AssignmentService) loadCached(ctx context.Context, id string) (*models.Assignment, error) {
	if s.cache == nil {
		return s.load(ctx, id)
	}
	gen := s.cacheGen.Load()
	var cached models.Assignment
	if hit, _ := s.cache.Get(ctx, assignmentCacheKey(id), &cached); hit {
		return &cached, nil
	}
	assignment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cacheGen.Load() == gen {
		_ = s.cache.Set(ctx, assignmentCacheKey(id), assignment, s.cfg.CacheTTL)
	}
	return assignment, nil
}

func (s *AssignmentService) invalidate(ctx context.Context, id string) {
	s.cacheGen.Add(1)
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, assignmentCacheKey(id))
}

func (s *AssignmentService) stage(kind string, upload *FileUpload) (string, error) {
	if upload.Content == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, kind+" file is required")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return "", appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	stored, err := s.storage.SaveStream(generateFilename(kind, upload.Filename, s.now()), upload.Content)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store "+kind+" file")
	}
	return stored, nil
}

// compensate removes a file written earlier in a request whose record write failed.
func (s *AssignmentService) compensate(stored string) {
	if stored == "" {
		return
	}
	if err := s.storage.Delete(stored); err != nil {
		s.logger.Warn("failed to remove staged file", zap.String("file", stored), zap.Error(err))
		s.metrics.RecordFileCleanup(false)
		return
	}
	s.metrics.RecordFileCleanup(true)
}

func (s *AssignmentService) removeBestEffort(file, assignmentID string) bool {
	if err := s.storage.Delete(file); err != nil {
		s.logger.Warn("failed to delete stored file",
			zap.String("assignment_id", assignmentID),
			zap.String("file", file),
			zap.Error(err),
		)
		s.metrics.RecordFileCleanup(false)
		return false
	}
	s.metrics.RecordFileCleanup(true)
	return true
}

func (s *AssignmentService) open(stored string) (*FileDownload, error) {
	file, err := s.storage.Open(stored)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrFileNotFound, "file not found on server")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read file metadata")
	}
	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect file")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close() //nolint:errcheck
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset file stream")
	}
	return &FileDownload{
		File:      file,
		Filename:  filepath.Base(stored),
		MimeType:  mtype.String(),
		SizeBytes: info.Size(),
	}, nil
}

func authorize(actor *models.JWTClaims, capability models.Capability) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !actor.Role.Can(capability) {
		return appErrors.ErrForbidden
	}
	return nil
}

func mapStoreError(err error, notFound, failure string) error {
	switch {
	case errors.Is(err, models.ErrRecordNotFound):
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	case errors.Is(err, models.ErrInvalidID):
		return appErrors.Clone(appErrors.ErrInvalidID, "invalid assignment id")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, failure)
	}
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		field := fieldErrs[0].Field()
		name := strings.ToLower(field[:1]) + field[1:]
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, name+" is required")
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
}

// parseDueDate accepts a calendar date (midnight UTC) or a full RFC3339 timestamp.
func parseDueDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(dueDateLayout, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "dueDate must be a valid date (YYYY-MM-DD)")
}

func buildChanges(req dto.UpdateAssignmentRequest) (models.AssignmentChanges, error) {
	var changes models.AssignmentChanges
	text := func(name string, value *string) (*string, error) {
		if value == nil {
			return nil, nil
		}
		trimmed := strings.TrimSpace(*value)
		if trimmed == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, name+" cannot be empty")
		}
		return &trimmed, nil
	}
	var err error
	if changes.SubjectName, err = text("subjectName", req.SubjectName); err != nil {
		return changes, err
	}
	if changes.ClassName, err = text("className", req.ClassName); err != nil {
		return changes, err
	}
	if changes.TeacherName, err = text("teacherName", req.TeacherName); err != nil {
		return changes, err
	}
	if req.DueDate != nil {
		due, err := parseDueDate(*req.DueDate)
		if err != nil {
			return changes, err
		}
		changes.DueDate = &due
	}
	return changes, nil
}

func applyChanges(a *models.Assignment, changes models.AssignmentChanges) {
	if changes.SubjectName != nil {
		a.SubjectName = *changes.SubjectName
	}
	if changes.ClassName != nil {
		a.ClassName = *changes.ClassName
	}
	if changes.TeacherName != nil {
		a.TeacherName = *changes.TeacherName
	}
	if changes.DueDate != nil {
		a.DueDate = *changes.DueDate
	}
	if changes.Document != nil {
		a.Document = *changes.Document
	}
	a.UpdatedAt = changes.UpdatedAt
}

func assignmentCacheKey(id string) string {
	return "assignments:id:" + id
}

func generateFilename(kind, original string, at time.Time) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(original)))
	if len(ext) > 10 || strings.TrimLeft(sanitize(ext), "_") == "" {
		ext = ""
	} else {
		ext = "." + sanitize(ext)
	}
	return fmt.Sprintf("%s_%d_%s%s", kind, at.Unix(), randomSuffix(), ext)
}

func sanitize(raw string) string {
	raw = strings.ToLower(raw)
	var b strings.Builder
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

func randomSuffix() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
