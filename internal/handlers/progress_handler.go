package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gohanrohith/ed/internal/services"
	"github.com/gohanrohith/ed/internal/utils"
	"github.com/gohanrohith/ed/internal/validator"
)

type ProgressHandler struct {
	BaseHandler
	progressService services.ProgressService
	importExport    services.ImportExportService
	validator       *validator.Validator
}

func NewProgressHandler(
	progressService services.ProgressService,
	importExport services.ImportExportService,
	validator *validator.Validator,
	logger utils.Logger,
) *ProgressHandler {
	return &ProgressHandler{
		BaseHandler:     NewBaseHandler(logger),
		progressService: progressService,
		importExport:    importExport,
		validator:       validator,
	}
}

// AddProgress folds one submission into the student's rolling aggregate.
func (h *ProgressHandler) AddProgress(c *gin.Context) {
	h.LogRequest(c, "Adding progress")

	var req services.AddProgressRequest
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
	// Students record progress for themselves only.
	req.StudentID = userID

	progress, err := h.progressService.AddProgress(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// GetProgress returns the aggregate for one chapter, creating an empty
// one on first read.
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	chapterID := c.Param("chapterId")
	subjectID := c.Query("subject_id")

	progress, err := h.progressService.GetProgress(c.Request.Context(), userID, chapterID, subjectID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// GetAttempts returns how many times the student has attempted a chapter.
func (h *ProgressHandler) GetAttempts(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	chapterID := c.Param("chapterId")

	attempts, err := h.progressService.GetAttempts(c.Request.Context(), userID, chapterID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"attempts": attempts})
}

// ListBySubject returns the student's per-chapter aggregates for one
// subject.
func (h *ProgressHandler) ListBySubject(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	subjectID := c.Param("subjectId")

	progress, err := h.progressService.ListBySubject(c.Request.Context(), userID, subjectID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// ListDetails returns the attempt ledger for one chapter.
func (h *ProgressHandler) ListDetails(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	chapterID := c.Param("chapterId")
	limit, offset := h.parsePagination(c)

	details, err := h.progressService.ListDetails(c.Request.Context(), userID, chapterID, limit, offset)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, details)
}

// ListDetailsBySubject returns the attempt ledger across a subject.
func (h *ProgressHandler) ListDetailsBySubject(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	subjectID := c.Param("subjectId")

	details, err := h.progressService.ListDetailsBySubject(c.Request.Context(), userID, subjectID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, details)
}

// ListScores returns the student's score history.
func (h *ProgressHandler) ListScores(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	limit, offset := h.parsePagination(c)

	scores, err := h.progressService.ListScores(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, scores)
}

// GetStats returns the student's attempt/score rollup.
func (h *ProgressHandler) GetStats(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	stats, err := h.progressService.GetStats(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetScoreBySession returns the persisted score for one of the
// student's own sessions.
func (h *ProgressHandler) GetScoreBySession(c *gin.Context) {
	sessionID := c.Param("sessionId")
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	score, err := h.progressService.GetScoreBySession(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, score)
}

// ListScoresByChapter returns the student's score history for one
// chapter plus their best attempt.
func (h *ProgressHandler) ListScoresByChapter(c *gin.Context) {
	chapterID := c.Param("chapterId")
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	scores, err := h.progressService.ListScoresByChapter(c.Request.Context(), userID, chapterID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, scores)
}

// GetMonthlyTopMarks returns the class leaderboard for the current (or
// requested) month.
func (h *ProgressHandler) GetMonthlyTopMarks(c *gin.Context) {
	classID := c.Param("classId")

	month := time.Now()
	if m := c.Query("month"); m != "" {
		parsed, err := time.Parse("2006-01", m)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid month, expected YYYY-MM",
				Details: m,
			})
			return
		}
		month = parsed
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	marks, err := h.progressService.GetMonthlyTopMarks(c.Request.Context(), classID, month, limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, marks)
}

// ExportScores streams a class's score history since a date as a
// spreadsheet.
func (h *ProgressHandler) ExportScores(c *gin.Context) {
	classID := c.Param("classId")
	h.LogRequest(c, "Exporting scores", "class_id", classID)

	since := time.Now().AddDate(0, -1, 0)
	if s := c.Query("since"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid since date, expected YYYY-MM-DD",
				Details: s,
			})
			return
		}
		since = parsed
	}

	data, err := h.importExport.ExportScores(c.Request.Context(), classID, since)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="scores.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
