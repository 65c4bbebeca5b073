package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gohanrohith/ed/internal/assignment"
	"github.com/gohanrohith/ed/internal/services"
	"github.com/gohanrohith/ed/internal/utils"
	"github.com/gohanrohith/ed/internal/validator"
)

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse wraps successful payloads that carry metadata.
type SuccessResponse struct {
	Data interface{} `json:"data"`
	Meta interface{} `json:"meta,omitempty"`
}

// BaseHandler carries the pieces every handler shares.
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs an incoming request with the request-scoped logger.
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	logger := utils.GetLoggerFromContext(c, h.logger)
	logger.Info(msg, args...)
}

// requireUserID pulls the authenticated user's ID out of the context and
// writes the 401 itself when it is missing.
func (h *BaseHandler) requireUserID(c *gin.Context) (string, bool) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return "", false
	}
	return userID, true
}

// parsePagination reads limit/offset query parameters with sane bounds.
func (h *BaseHandler) parsePagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// handleServiceError maps service-layer errors onto HTTP status codes.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	switch {
	// Session errors
	case errors.Is(err, services.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Session not found",
		})
	case errors.Is(err, services.ErrSessionNotActive):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Session is not active",
		})
	case errors.Is(err, services.ErrSessionAlreadySubmitted):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Session already submitted",
		})
	case errors.Is(err, services.ErrSessionNotSubmitted):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Session not yet submitted",
		})
	case errors.Is(err, services.ErrSessionCannotStart):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Cannot start session",
		})
	case errors.Is(err, services.ErrEmptyQuestionPool):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Chapter has no questions to assemble",
		})

	// Entity lookups
	case errors.Is(err, services.ErrQuestionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Question not found",
		})
	case errors.Is(err, services.ErrChapterNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Chapter not found",
		})
	case errors.Is(err, services.ErrSubjectNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Subject not found",
		})
	case errors.Is(err, services.ErrClassNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Class not found",
		})
	case errors.Is(err, services.ErrProgressNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Progress not found",
		})
	case errors.Is(err, services.ErrScoreNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Score not found",
		})
	case errors.Is(err, services.ErrStudentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Student not found",
		})

	// Engine errors surfacing through the service layer
	case errors.Is(err, assignment.ErrInvalidLevel):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid assignment level",
			Details: err.Error(),
		})
	case errors.Is(err, assignment.ErrInvalidQuestionIndex):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Question index out of range",
			Details: err.Error(),
		})
	case errors.Is(err, assignment.ErrSessionNotActive):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Session is not active",
		})
	case errors.Is(err, assignment.ErrSessionNotSubmitted):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Session not yet submitted",
		})

	default:
		h.logger.Error("Unhandled service error", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
