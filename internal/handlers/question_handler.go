package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gohanrohith/ed/internal/assignment"
	"github.com/gohanrohith/ed/internal/models"
	"github.com/gohanrohith/ed/internal/repositories"
	"github.com/gohanrohith/ed/internal/services"
	"github.com/gohanrohith/ed/internal/utils"
	"github.com/gohanrohith/ed/internal/validator"
)

// routeCategories maps URL segments onto cognitive categories. The
// "eval" segment is historical; clients depend on it.
var routeCategories = map[string]assignment.Category{
	"remember":   assignment.Remember,
	"understand": assignment.Understand,
	"apply":      assignment.Apply,
	"analyse":    assignment.Analyse,
	"eval":       assignment.Evaluate,
}

type QuestionHandler struct {
	BaseHandler
	questionService services.QuestionService
	importExport    services.ImportExportService
	validator       *validator.Validator
}

func NewQuestionHandler(
	questionService services.QuestionService,
	importExport services.ImportExportService,
	validator *validator.Validator,
	logger utils.Logger,
) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler:     NewBaseHandler(logger),
		questionService: questionService,
		importExport:    importExport,
		validator:       validator,
	}
}

// withCategory pins the route group's cognitive category into the
// request context; each bank segment gets its own group.
func withCategory(category assignment.Category) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("route_category", category)
		c.Next()
	}
}

func (h *QuestionHandler) categoryFromRoute(c *gin.Context) (assignment.Category, bool) {
	value, exists := c.Get("route_category")
	if !exists {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Unknown question category",
		})
		return "", false
	}
	return value.(assignment.Category), true
}

// CreateQuestion adds one question to a chapter's category bank.
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	category, ok := h.categoryFromRoute(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Creating question", "category", category)

	var req services.CreateQuestionRequest
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

	question, err := h.questionService.Create(c.Request.Context(), &req, category, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

// ListQuestions returns one chapter's bank for a category.
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	category, ok := h.categoryFromRoute(c)
	if !ok {
		return
	}
	chapterID := c.Param("chapterId")

	questions, err := h.questionService.ListByChapterCategory(c.Request.Context(), chapterID, category)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, questions)
}

// SearchQuestions lists bank entries across categories with optional
// chapter/category/kind/author filters.
func (h *QuestionHandler) SearchQuestions(c *gin.Context) {
	limit, offset := h.parsePagination(c)
	filters := repositories.QuestionFilters{
		Limit:     limit,
		Offset:    offset,
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
	if v := c.Query("chapterId"); v != "" {
		filters.ChapterID = &v
	}
	if v := c.Query("category"); v != "" {
		category := assignment.Category(v)
		filters.Category = &category
	}
	if v := c.Query("kind"); v != "" {
		kind := models.QuestionKind(v)
		filters.Kind = &kind
	}
	if v := c.Query("createdBy"); v != "" {
		filters.CreatedBy = &v
	}

	result, err := h.questionService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetQuestion returns one bank entry with edit permissions.
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id := c.Param("id")
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	question, err := h.questionService.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// UpdateQuestion patches a bank entry.
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id := c.Param("id")
	h.LogRequest(c, "Updating question", "question_id", id)

	var req services.UpdateQuestionRequest
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

	question, err := h.questionService.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// DeleteQuestion removes a bank entry.
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id := c.Param("id")
	h.LogRequest(c, "Deleting question", "question_id", id)

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.questionService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// GetBankStats reports per-category counts for one chapter's bank.
func (h *QuestionHandler) GetBankStats(c *gin.Context) {
	chapterID := c.Param("chapterId")

	stats, err := h.questionService.GetBankStats(c.Request.Context(), chapterID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ImportQuestions bulk-loads a category bank from an uploaded
// spreadsheet.
func (h *QuestionHandler) ImportQuestions(c *gin.Context) {
	category, ok := h.categoryFromRoute(c)
	if !ok {
		return
	}
	chapterID := c.Param("chapterId")
	h.LogRequest(c, "Importing questions", "chapter_id", chapterID, "category", category)

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing file upload",
			Details: err.Error(),
		})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Cannot read uploaded file",
			Details: err.Error(),
		})
		return
	}
	defer file.Close()

	result, err := h.importExport.ImportQuestions(c.Request.Context(), file, chapterID, category, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExportQuestions streams a chapter's full bank as a spreadsheet.
func (h *QuestionHandler) ExportQuestions(c *gin.Context) {
	chapterID := c.Param("chapterId")
	h.LogRequest(c, "Exporting questions", "chapter_id", chapterID)

	data, err := h.importExport.ExportQuestions(c.Request.Context(), chapterID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="questions.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
