package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gohanrohith/ed/internal/models"
	"github.com/gohanrohith/ed/internal/repositories"
	"github.com/gohanrohith/ed/internal/services"
	"github.com/gohanrohith/ed/internal/utils"
	"github.com/gohanrohith/ed/internal/validator"
)

type AssignmentHandler struct {
	BaseHandler
	assignmentService services.AssignmentService
	validator         *validator.Validator
}

func NewAssignmentHandler(
	assignmentService services.AssignmentService,
	validator *validator.Validator,
	logger utils.Logger,
) *AssignmentHandler {
	return &AssignmentHandler{
		BaseHandler:       NewBaseHandler(logger),
		assignmentService: assignmentService,
		validator:         validator,
	}
}

// StartSession assembles and starts a new assignment session, or resumes
// the student's active one for the chapter.
func (h *AssignmentHandler) StartSession(c *gin.Context) {
	h.LogRequest(c, "Starting assignment session")

	var req services.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	// Students start sessions for themselves only.
	req.StudentID = userID

	session, err := h.assignmentService.Start(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// RetakeSession abandons the student's active session for the chapter
// and starts a fresh one at the requested level.
func (h *AssignmentHandler) RetakeSession(c *gin.Context) {
	h.LogRequest(c, "Retaking assignment session")

	var req services.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	req.StudentID = userID

	session, err := h.assignmentService.Retake(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// GetSession returns the session's current page and countdown.
func (h *AssignmentHandler) GetSession(c *gin.Context) {
	sessionID := c.Param("id")
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	session, err := h.assignmentService.Get(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// SelectAnswer records the student's answer for one question.
func (h *AssignmentHandler) SelectAnswer(c *gin.Context) {
	sessionID := c.Param("id")

	var req services.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.assignmentService.SelectAnswer(c.Request.Context(), sessionID, &req, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

// Navigate moves the session one page forward or back.
func (h *AssignmentHandler) Navigate(c *gin.Context) {
	sessionID := c.Param("id")

	var req services.NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	session, err := h.assignmentService.Navigate(c.Request.Context(), sessionID, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// SubmitSession grades the session. Submitting an already-graded session
// returns the recorded result unchanged.
func (h *AssignmentHandler) SubmitSession(c *gin.Context) {
	sessionID := c.Param("id")
	h.LogRequest(c, "Submitting assignment session", "session_id", sessionID)

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	result, err := h.assignmentService.Submit(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetResult returns the graded breakdown of a submitted session.
func (h *AssignmentHandler) GetResult(c *gin.Context) {
	sessionID := c.Param("id")
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	result, err := h.assignmentService.GetResult(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ToggleSolutions flips review mode on a submitted session.
func (h *AssignmentHandler) ToggleSolutions(c *gin.Context) {
	sessionID := c.Param("id")
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	session, err := h.assignmentService.ToggleSolutions(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// SyncTime returns the authoritative countdown, auto-submitting expired
// sessions.
func (h *AssignmentHandler) SyncTime(c *gin.Context) {
	sessionID := c.Param("id")
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	sync, err := h.assignmentService.SyncTime(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, sync)
}

// ListSessions returns the student's session history.
func (h *AssignmentHandler) ListSessions(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	filters := h.parseSessionFilters(c)
	sessions, total, err := h.assignmentService.ListSessions(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Data: sessions,
		Meta: gin.H{"total": total},
	})
}

func (h *AssignmentHandler) parseSessionFilters(c *gin.Context) repositories.SessionFilters {
	limit, offset := h.parsePagination(c)
	filters := repositories.SessionFilters{
		Limit:  limit,
		Offset: offset,
	}

	if status := c.Query("status"); status != "" {
		sessionStatus := models.SessionStatus(status)
		filters.Status = &sessionStatus
	}
	if chapterID := c.Query("chapter_id"); chapterID != "" {
		filters.ChapterID = &chapterID
	}
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filters.DateFrom = &t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filters.DateTo = &t
		}
	}
	return filters
}
