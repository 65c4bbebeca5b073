package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gohanrohith/ed/internal/config"
	"github.com/gohanrohith/ed/internal/models"
	"github.com/gohanrohith/ed/internal/repositories"
	"github.com/gohanrohith/ed/internal/services"
	"github.com/gohanrohith/ed/internal/utils"
	"github.com/gohanrohith/ed/internal/validator"
)

type HandlerManager struct {
	assignmentHandler *AssignmentHandler
	questionHandler   *QuestionHandler
	progressHandler   *ProgressHandler
	curriculumHandler *CurriculumHandler
	studentHandler    *StudentHandler
	authMiddleware    *CasdoorAuthMiddleware
	serviceManager    services.ServiceManager
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(casdoorConfig, userRepo)

	return &HandlerManager{
		assignmentHandler: NewAssignmentHandler(serviceManager.Assignment(), validator, logger),
		questionHandler:   NewQuestionHandler(serviceManager.Question(), serviceManager.ImportExport(), validator, logger),
		progressHandler:   NewProgressHandler(serviceManager.Progress(), serviceManager.ImportExport(), validator, logger),
		curriculumHandler: NewCurriculumHandler(serviceManager.Curriculum(), validator, logger),
		studentHandler:    NewStudentHandler(serviceManager.Student(), validator, logger),
		authMiddleware:    authMiddleware,
		serviceManager:    serviceManager,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.healthCheck)

	api := router.Group("/api")
	api.Use(hm.authMiddleware.AuthMiddleware())
	{
		teacherOrAdmin := hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin)
		adminOnly := hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin)

		// Per-category question banks: /api/remember, /api/understand,
		// /api/apply, /api/analyse, /api/eval
		for segment, category := range routeCategories {
			bank := api.Group("/" + segment)
			bank.Use(withCategory(category))
			{
				bank.GET("/questions/:chapterId", hm.questionHandler.ListQuestions)
				bank.POST("/questions", teacherOrAdmin, hm.questionHandler.CreateQuestion)
				bank.POST("/questions/:chapterId/import", teacherOrAdmin, hm.questionHandler.ImportQuestions)
			}
		}

		// Cross-category question operations
		questions := api.Group("/questions")
		{
			questions.GET("", teacherOrAdmin, hm.questionHandler.SearchQuestions)
			questions.GET("/:id", hm.questionHandler.GetQuestion)
			questions.PUT("/:id", teacherOrAdmin, hm.questionHandler.UpdateQuestion)
			questions.DELETE("/:id", teacherOrAdmin, hm.questionHandler.DeleteQuestion)
			questions.GET("/bank/:chapterId/stats", teacherOrAdmin, hm.questionHandler.GetBankStats)
			questions.GET("/bank/:chapterId/export", teacherOrAdmin, hm.questionHandler.ExportQuestions)
		}

		// Assignment sessions
		assignments := api.Group("/assignments")
		{
			assignments.POST("/start", hm.assignmentHandler.StartSession)
			assignments.POST("/retake", hm.assignmentHandler.RetakeSession)
			assignments.GET("", hm.assignmentHandler.ListSessions)
			assignments.GET("/:id", hm.assignmentHandler.GetSession)
			assignments.POST("/:id/answer", hm.assignmentHandler.SelectAnswer)
			assignments.POST("/:id/navigate", hm.assignmentHandler.Navigate)
			assignments.POST("/:id/submit", hm.assignmentHandler.SubmitSession)
			assignments.GET("/:id/result", hm.assignmentHandler.GetResult)
			assignments.POST("/:id/solutions", hm.assignmentHandler.ToggleSolutions)
			assignments.GET("/:id/time", hm.assignmentHandler.SyncTime)
		}

		// Rolling progress aggregates
		progress := api.Group("/student-progress")
		{
			progress.POST("/add-progress", hm.progressHandler.AddProgress)
			progress.GET("/get-progress/:chapterId", hm.progressHandler.GetProgress)
			progress.GET("/attempts/:chapterId", hm.progressHandler.GetAttempts)
			progress.GET("/subject/:subjectId", hm.progressHandler.ListBySubject)
			progress.GET("/get-monthly-top-marks/:classId", hm.progressHandler.GetMonthlyTopMarks)
			progress.GET("/stats", hm.progressHandler.GetStats)
		}

		// Attempt ledger
		progressDetails := api.Group("/student-progress-details")
		{
			progressDetails.GET("/progress/:chapterId", hm.progressHandler.ListDetails)
			progressDetails.GET("/progress/subject/:subjectId", hm.progressHandler.ListDetailsBySubject)
		}

		// Score history
		scores := api.Group("/scores")
		{
			scores.GET("", hm.progressHandler.ListScores)
			scores.GET("/session/:sessionId", hm.progressHandler.GetScoreBySession)
			scores.GET("/chapter/:chapterId", hm.progressHandler.ListScoresByChapter)
			scores.GET("/export/:classId", teacherOrAdmin, hm.progressHandler.ExportScores)
		}

		// Curriculum hierarchy
		chapters := api.Group("/chapters")
		{
			chapters.GET("/get/:subjectId", hm.curriculumHandler.ListChaptersBySubject)
			chapters.GET("/detail/:id", hm.curriculumHandler.GetChapter)
			chapters.POST("", teacherOrAdmin, hm.curriculumHandler.CreateChapter)
			chapters.PUT("/:id", teacherOrAdmin, hm.curriculumHandler.UpdateChapter)
			chapters.DELETE("/:id", teacherOrAdmin, hm.curriculumHandler.DeleteChapter)
		}
		api.GET("/classes", hm.curriculumHandler.ListClasses)
		api.GET("/classSubjects/subjects/:classId", hm.curriculumHandler.ListSubjectsByClass)

		// Roster
		students := api.Group("/students")
		{
			students.POST("", adminOnly, hm.studentHandler.CreateStudent)
			students.POST("/batch", adminOnly, hm.studentHandler.CreateStudentBatch)
			students.PUT("/:id", adminOnly, hm.studentHandler.UpdateStudent)
			students.GET("", adminOnly, hm.studentHandler.ListStudents)
			students.GET("/detail/:id", teacherOrAdmin, hm.studentHandler.GetStudent)
			students.GET("/admin/:adminId", adminOnly, hm.studentHandler.ListByAdmin)
			students.GET("/class/:classId", teacherOrAdmin, hm.studentHandler.ListByClass)
		}
		api.POST("/studentsassign/bulk", adminOnly, hm.studentHandler.BulkAssign)
	}
}

func (hm *HandlerManager) healthCheck(c *gin.Context) {
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"error":     err.Error(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
