package handler

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-assignments-api/internal/dto"
	"github.com/noah-isme/sma-assignments-api/internal/models"
	"github.com/noah-isme/sma-assignments-api/internal/service"
	appErrors "github.com/noah-isme/sma-assignments-api/pkg/errors"
	"github.com/noah-isme/sma-assignments-api/pkg/response"
)

// multipart overhead allowed on top of the file size limit
const formOverhead = 1 << 20

type assignmentService interface {
	Create(ctx context.Context, req dto.CreateAssignmentRequest, document *service.FileUpload, actor *models.JWTClaims) (*dto.AssignmentView, error)
	List(ctx context.Context, actor *models.JWTClaims) ([]dto.AssignmentView, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*dto.AssignmentView, error)
	Update(ctx context.Context, id string, req dto.UpdateAssignmentRequest, document *service.FileUpload, actor *models.JWTClaims) (*dto.AssignmentView, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) (dto.CleanupReport, error)
	Submit(ctx context.Context, id, studentID string, file *service.FileUpload, actor *models.JWTClaims) (*dto.SubmitResponse, error)
	DownloadDocument(ctx context.Context, id string, actor *models.JWTClaims) (*service.FileDownload, error)
	DownloadSubmission(ctx context.Context, id, submissionID string, actor *models.JWTClaims) (*service.FileDownload, error)
	Grade(ctx context.Context, id string, req dto.GradeSubmissionRequest, actor *models.JWTClaims) error
	ExportGradeSheet(ctx context.Context, id, format string, actor *models.JWTClaims) (*service.GradeSheet, error)
}

// AssignmentHandler exposes assignment, submission and grading endpoints.
type AssignmentHandler struct {
	service     assignmentService
	maxFileSize int64
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(svc assignmentService, maxFileSize int64) *AssignmentHandler {
	return &AssignmentHandler{service: svc, maxFileSize: maxFileSize}
}

// List godoc
// @Summary List assignments
// @Description Staff receive submission counts, students receive their own submission only
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"total": len(items)})
}

// Get godoc
// @Summary Get assignment
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item)
}

// Create godoc
// @Summary Create assignment
// @Tags Assignments
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param subjectName formData string true "Subject"
// @Param className formData string true "Class"
// @Param teacherName formData string true "Teacher"
// @Param dueDate formData string true "Due date (YYYY-MM-DD)"
// @Param document formData file false "Reference document"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	h.limitBody(c)
	var req dto.CreateAssignmentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, bindError(err, "invalid assignment payload"))
		return
	}
	document, closeFn, err := h.optionalFile(c, "document")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFn()

	item, err := h.service.Create(c.Request.Context(), req, document, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update assignment
// @Description Partial update; a new document replaces the previous one
// @Tags Assignments
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assignment ID"
// @Param subjectName formData string false "Subject"
// @Param className formData string false "Class"
// @Param teacherName formData string false "Teacher"
// @Param dueDate formData string false "Due date (YYYY-MM-DD)"
// @Param document formData file false "Reference document"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assignments/{id} [put]
func (h *AssignmentHandler) Update(c *gin.Context) {
	h.limitBody(c)
	var req dto.UpdateAssignmentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, bindError(err, "invalid assignment payload"))
		return
	}
	document, closeFn, err := h.optionalFile(c, "document")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFn()

	item, err := h.service.Update(c.Request.Context(), c.Param("id"), req, document, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item)
}

// Delete godoc
// @Summary Delete assignment
// @Description Removes the assignment and, best effort, every stored file
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assignments/{id} [delete]
func (h *AssignmentHandler) Delete(c *gin.Context) {
	report, err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.DeleteAssignmentResponse{Message: "Assignment deleted", Cleanup: report})
}

// Submit godoc
// @Summary Submit work
// @Description Creates or replaces the student's submission
// @Tags Submissions
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assignment ID"
// @Param studentId formData string false "Student (required for staff)"
// @Param submission formData file true "Submission file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /assignments/{id}/submit [post]
func (h *AssignmentHandler) Submit(c *gin.Context) {
	h.limitBody(c)
	file, closeFn, err := h.optionalFile(c, "submission")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFn()

	result, err := h.service.Submit(c.Request.Context(), c.Param("id"), c.PostForm("studentId"), file, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// DownloadDocument godoc
// @Summary Download assignment document
// @Tags Assignments
// @Produce octet-stream
// @Security BearerAuth
// @Param id path string true "Assignment ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /assignments/{id}/download [get]
func (h *AssignmentHandler) DownloadDocument(c *gin.Context) {
	result, err := h.service.DownloadDocument(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveFile(c, result)
}

// DownloadSubmission godoc
// @Summary Download submission file
// @Description Students always receive their own submission
// @Tags Submissions
// @Produce octet-stream
// @Security BearerAuth
// @Param id path string true "Assignment ID"
// @Param submissionId query string false "Submission ID (staff)"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assignments/{id}/submission/download [get]
func (h *AssignmentHandler) DownloadSubmission(c *gin.Context) {
	result, err := h.service.DownloadSubmission(c.Request.Context(), c.Param("id"), c.Query("submissionId"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveFile(c, result)
}

// Grade godoc
// @Summary Grade submission
// @Tags Submissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assignment ID"
// @Param payload body dto.GradeSubmissionRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assignments/{id}/grade [post]
func (h *AssignmentHandler) Grade(c *gin.Context) {
	var req dto.GradeSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grade payload"))
		return
	}
	if err := h.service.Grade(c.Request.Context(), c.Param("id"), req, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.MessageResponse{Message: "Submission graded"})
}

// Report godoc
// @Summary Export grade sheet
// @Tags Submissions
// @Produce octet-stream
// @Security BearerAuth
// @Param id path string true "Assignment ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /assignments/{id}/report [get]
func (h *AssignmentHandler) Report(c *gin.Context) {
	sheet, err := h.service.ExportGradeSheet(c.Request.Context(), c.Param("id"), c.Query("format"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", sheet.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, sheet.ContentType, sheet.Content)
}

func (h *AssignmentHandler) limitBody(c *gin.Context) {
	if h.maxFileSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxFileSize+formOverhead)
	}
}

// optionalFile opens the named multipart file. A missing field yields a nil upload.
func (h *AssignmentHandler) optionalFile(c *gin.Context, field string) (*service.FileUpload, func(), error) {
	noop := func() {}
	fileHeader, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, noop, nil
		}
		return nil, noop, bindError(err, "invalid multipart payload")
	}
	return openUpload(fileHeader)
}

func openUpload(fileHeader *multipart.FileHeader) (*service.FileUpload, func(), error) {
	src, err := fileHeader.Open()
	if err != nil {
		return nil, func() {}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	upload := &service.FileUpload{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		Content:  src,
	}
	return upload, func() { src.Close() }, nil //nolint:errcheck
}

func bindError(err error, message string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
		return appErrors.Wrap(err, appErrors.ErrPayloadTooLarge.Code, appErrors.ErrPayloadTooLarge.Status, "file too large")
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message)
}

func serveFile(c *gin.Context, result *service.FileDownload) {
	defer result.File.Close() //nolint:errcheck
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, result.SizeBytes, result.MimeType, result.File, nil)
}
