package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gohanrohith/ed/internal/repositories"
	"github.com/gohanrohith/ed/internal/services"
	"github.com/gohanrohith/ed/internal/utils"
	"github.com/gohanrohith/ed/internal/validator"
)

type StudentHandler struct {
	BaseHandler
	studentService services.StudentService
	validator      *validator.Validator
}

func NewStudentHandler(
	studentService services.StudentService,
	validator *validator.Validator,
	logger utils.Logger,
) *StudentHandler {
	return &StudentHandler{
		BaseHandler:    NewBaseHandler(logger),
		studentService: studentService,
		validator:      validator,
	}
}

// CreateStudent registers a student under the requesting admin.
func (h *StudentHandler) CreateStudent(c *gin.Context) {
	h.LogRequest(c, "Creating student")

	var req services.CreateStudentRequest
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

	student, err := h.studentService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, student)
}

// CreateStudentBatch registers several students under the requesting
// admin in one call.
func (h *StudentHandler) CreateStudentBatch(c *gin.Context) {
	h.LogRequest(c, "Creating student batch")

	var req services.BatchCreateStudentRequest
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

	students, err := h.studentService.CreateBatch(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, students)
}

// UpdateStudent patches a student on the requesting admin's roster.
func (h *StudentHandler) UpdateStudent(c *gin.Context) {
	id := c.Param("id")
	h.LogRequest(c, "Updating student", "student_id", id)

	var req services.UpdateStudentRequest
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

	student, err := h.studentService.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, student)
}

// ListStudents searches the roster with optional query/role filters.
func (h *StudentHandler) ListStudents(c *gin.Context) {
	limit, offset := h.parsePagination(c)
	filters := repositories.UserFilters{
		Query:  c.Query("q"),
		Role:   c.Query("role"),
		Limit:  limit,
		Offset: offset,
	}

	students, err := h.studentService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, students)
}

// GetStudent returns one student.
func (h *StudentHandler) GetStudent(c *gin.Context) {
	id := c.Param("id")

	student, err := h.studentService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, student)
}

// ListByAdmin returns the roster registered under one admin.
func (h *StudentHandler) ListByAdmin(c *gin.Context) {
	adminID := c.Param("adminId")

	students, err := h.studentService.ListByAdmin(c.Request.Context(), adminID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, students)
}

// ListByClass returns the students currently assigned to one class.
func (h *StudentHandler) ListByClass(c *gin.Context) {
	classID := c.Param("classId")

	students, err := h.studentService.ListByClass(c.Request.Context(), classID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, students)
}

// BulkAssign moves a set of students into a class in one call.
func (h *StudentHandler) BulkAssign(c *gin.Context) {
	h.LogRequest(c, "Bulk assigning students")

	var req services.BulkAssignRequest
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

	result, err := h.studentService.BulkAssign(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
