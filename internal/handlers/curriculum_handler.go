package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gohanrohith/ed/internal/services"
	"github.com/gohanrohith/ed/internal/utils"
	"github.com/gohanrohith/ed/internal/validator"
)

type CurriculumHandler struct {
	BaseHandler
	curriculumService services.CurriculumService
	validator         *validator.Validator
}

func NewCurriculumHandler(
	curriculumService services.CurriculumService,
	validator *validator.Validator,
	logger utils.Logger,
) *CurriculumHandler {
	return &CurriculumHandler{
		BaseHandler:       NewBaseHandler(logger),
		curriculumService: curriculumService,
		validator:         validator,
	}
}

// ListClasses returns every class on the platform.
func (h *CurriculumHandler) ListClasses(c *gin.Context) {
	classes, err := h.curriculumService.ListClasses(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, classes)
}

// ListSubjectsByClass returns the subjects taught in one class.
func (h *CurriculumHandler) ListSubjectsByClass(c *gin.Context) {
	classID := c.Param("classId")

	subjects, err := h.curriculumService.ListSubjectsByClass(c.Request.Context(), classID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, subjects)
}

// ListChaptersBySubject returns a subject's chapters in order.
func (h *CurriculumHandler) ListChaptersBySubject(c *gin.Context) {
	subjectID := c.Param("subjectId")

	chapters, err := h.curriculumService.ListChaptersBySubject(c.Request.Context(), subjectID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, chapters)
}

// GetChapter returns one chapter.
func (h *CurriculumHandler) GetChapter(c *gin.Context) {
	id := c.Param("id")

	chapter, err := h.curriculumService.GetChapter(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, chapter)
}

// CreateChapter adds a chapter to a subject.
func (h *CurriculumHandler) CreateChapter(c *gin.Context) {
	h.LogRequest(c, "Creating chapter")

	var req services.CreateChapterRequest
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

	chapter, err := h.curriculumService.CreateChapter(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, chapter)
}

// UpdateChapter renames or renumbers a chapter.
func (h *CurriculumHandler) UpdateChapter(c *gin.Context) {
	id := c.Param("id")
	h.LogRequest(c, "Updating chapter", "chapter_id", id)

	var req services.UpdateChapterRequest
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

	chapter, err := h.curriculumService.UpdateChapter(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, chapter)
}

// DeleteChapter soft-deletes a chapter.
func (h *CurriculumHandler) DeleteChapter(c *gin.Context) {
	id := c.Param("id")
	h.LogRequest(c, "Deleting chapter", "chapter_id", id)

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.curriculumService.DeleteChapter(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
