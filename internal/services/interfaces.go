package services

import (
	"context"
	"io"
	"time"

	"github.com/gohanrohith/ed/internal/assignment"
	"github.com/gohanrohith/ed/internal/models"
	"github.com/gohanrohith/ed/internal/repositories"
	"github.com/gohanrohith/ed/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type StartSessionRequest = validator.StartSessionRequest
type AnswerRequest = validator.AnswerRequest
type NavigateRequest = validator.NavigateRequest
type CreateQuestionRequest = validator.QuestionCreateRequest
type UpdateQuestionRequest = validator.QuestionUpdateRequest
type AddProgressRequest = validator.ProgressAddRequest
type CreateStudentRequest = validator.StudentCreateRequest
type BatchCreateStudentRequest = validator.StudentBatchCreateRequest
type UpdateStudentRequest = validator.StudentUpdateRequest
type BulkAssignRequest = validator.BulkAssignRequest
type CreateChapterRequest = validator.ChapterCreateRequest
type UpdateChapterRequest = validator.ChapterUpdateRequest

// QuestionView is the wire shape of one assembled question. Correct
// answers and solutions are stripped until the session enters review.
type QuestionView struct {
	Index    int                                        `json:"index"`
	Text     string                                     `json:"question"`
	Options  map[assignment.OptionKey]assignment.Option `json:"options"`
	Mode     assignment.InteractionMode                 `json:"mode"`
	Category assignment.Category                        `json:"category"`
	Passage  string                                     `json:"paragraph,omitempty"`
	Answer   []assignment.OptionKey                     `json:"answer,omitempty"`

	// Review-only fields
	CorrectAnswers  []assignment.OptionKey `json:"correctAnswers,omitempty"`
	Solution        string                 `json:"solution,omitempty"`
	PassageSolution string                 `json:"passageSolution,omitempty"`
}

type SessionResponse struct {
	SessionID      string               `json:"sessionId"`
	StudentID      string               `json:"studentId"`
	ChapterID      string               `json:"chapterId"`
	Level          int                  `json:"level"`
	LevelName      string               `json:"levelName"`
	Status         models.SessionStatus `json:"status"`
	TotalQuestions int                  `json:"totalQuestions"`
	Page           int                  `json:"page"`
	PageCount      int                  `json:"pageCount"`
	PageSize       int                  `json:"pageSize"`
	Remaining      int                  `json:"remaining"`
	ShowSolutions  bool                 `json:"showSolutions"`
	Questions      []QuestionView       `json:"questions"`
	Shortfall      assignment.Shortfall `json:"shortfall,omitempty"`
}

type SubmitResponse struct {
	SessionID      string                                           `json:"sessionId"`
	Score          int                                              `json:"score"`
	TotalQuestions int                                              `json:"totalQuestions"`
	ByCategory     map[assignment.Category]assignment.CategoryScore `json:"byCategory"`
	TimeTaken      int                                              `json:"timeTaken"`
	EndReason      string                                           `json:"endReason,omitempty"`
}

// TimeSyncResponse reports the server-side countdown so clients cannot
// stretch the timer.
type TimeSyncResponse struct {
	SessionID string               `json:"sessionId"`
	Remaining int                  `json:"remaining"`
	Expired   bool                 `json:"expired"`
	Status    models.SessionStatus `json:"status"`
}

type QuestionResponse struct {
	*models.ChapterQuestion
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
}

type QuestionListResponse struct {
	Questions []assignment.RawQuestion `json:"questions"`
	Total     int64                    `json:"total"`
}

type ProgressResponse struct {
	*models.StudentProgress
	ProgressByCategory map[assignment.Category]assignment.CategoryScore `json:"progressByCategory"`
}

type ProgressDetailListResponse struct {
	Details []*models.StudentProgressDetail `json:"details"`
	Total   int64                           `json:"total"`
}

type ScoreListResponse struct {
	Scores []*models.ScoreRecord `json:"scores"`
	Total  int64                 `json:"total"`
}

// ChapterScoresResponse is one chapter's score history with the best
// submission pulled out. Best is nil when the student has no scores yet.
type ChapterScoresResponse struct {
	Scores []*models.ScoreRecord `json:"scores"`
	Best   *models.ScoreRecord   `json:"best"`
}

type TopMarksResponse struct {
	Month string                 `json:"month"`
	Marks []repositories.TopMark `json:"marks"`
}

type StudentListResponse struct {
	Students []*models.User `json:"students"`
	Total    int64          `json:"total"`
}

type BulkAssignResponse struct {
	Assigned int64 `json:"assigned"`
}

type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// ===== SERVICE INTERFACES =====

// AssignmentService drives assignment sessions: assembly, answering,
// pagination, the countdown and scoring.
type AssignmentService interface {
	// Lifecycle
	Start(ctx context.Context, req *StartSessionRequest) (*SessionResponse, error)
	Retake(ctx context.Context, req *StartSessionRequest) (*SessionResponse, error)
	Get(ctx context.Context, sessionID, studentID string) (*SessionResponse, error)
	Submit(ctx context.Context, sessionID, studentID string) (*SubmitResponse, error)
	GetResult(ctx context.Context, sessionID, studentID string) (*SubmitResponse, error)

	// In-session operations
	SelectAnswer(ctx context.Context, sessionID string, req *AnswerRequest, studentID string) error
	Navigate(ctx context.Context, sessionID string, req *NavigateRequest, studentID string) (*SessionResponse, error)
	ToggleSolutions(ctx context.Context, sessionID, studentID string) (*SessionResponse, error)

	// Time management; SyncTime auto-submits expired sessions
	SyncTime(ctx context.Context, sessionID, studentID string) (*TimeSyncResponse, error)

	// History
	ListSessions(ctx context.Context, studentID string, filters repositories.SessionFilters) ([]*models.AssignmentSessionRecord, int64, error)

	// Maintenance; called from the background janitor
	AbandonStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// QuestionService manages the per-chapter, per-category question banks.
type QuestionService interface {
	Create(ctx context.Context, req *CreateQuestionRequest, category assignment.Category, creatorID string) (*QuestionResponse, error)
	GetByID(ctx context.Context, id, userID string) (*QuestionResponse, error)
	Update(ctx context.Context, id string, req *UpdateQuestionRequest, userID string) (*QuestionResponse, error)
	Delete(ctx context.Context, id, userID string) error

	// Category bank reads backing the five per-category endpoints
	ListByChapterCategory(ctx context.Context, chapterID string, category assignment.Category) (*QuestionListResponse, error)
	// List is the filtered cross-category browse for the admin surface.
	List(ctx context.Context, filters repositories.QuestionFilters) (*QuestionListResponse, error)
	GetBankStats(ctx context.Context, chapterID string) (*repositories.BankStats, error)
}

// ProgressService maintains the rolling per-chapter aggregates and the
// append-only attempt ledger.
type ProgressService interface {
	AddProgress(ctx context.Context, req *AddProgressRequest) (*ProgressResponse, error)
	// GetProgress creates an empty aggregate on first read.
	GetProgress(ctx context.Context, studentID, chapterID, subjectID string) (*ProgressResponse, error)
	GetAttempts(ctx context.Context, studentID, chapterID string) (int, error)
	ListBySubject(ctx context.Context, studentID, subjectID string) ([]*ProgressResponse, error)
	ListDetails(ctx context.Context, studentID, chapterID string, limit, offset int) (*ProgressDetailListResponse, error)
	ListDetailsBySubject(ctx context.Context, studentID, subjectID string) ([]*models.StudentProgressDetail, error)
	GetStats(ctx context.Context, studentID string) (*repositories.StudentStats, error)

	// Scores
	ListScores(ctx context.Context, studentID string, limit, offset int) (*ScoreListResponse, error)
	ListScoresByChapter(ctx context.Context, studentID, chapterID string) (*ChapterScoresResponse, error)
	GetScoreBySession(ctx context.Context, sessionID, studentID string) (*models.ScoreRecord, error)
	GetMonthlyTopMarks(ctx context.Context, classID string, month time.Time, limit int) (*TopMarksResponse, error)
}

// CurriculumService exposes the class/subject/chapter hierarchy.
type CurriculumService interface {
	ListClasses(ctx context.Context) ([]*models.Class, error)
	ListSubjectsByClass(ctx context.Context, classID string) ([]*models.Subject, error)
	ListChaptersBySubject(ctx context.Context, subjectID string) ([]*models.Chapter, error)
	GetChapter(ctx context.Context, id string) (*models.Chapter, error)
	CreateChapter(ctx context.Context, req *CreateChapterRequest, creatorID string) (*models.Chapter, error)
	UpdateChapter(ctx context.Context, id string, req *UpdateChapterRequest, userID string) (*models.Chapter, error)
	DeleteChapter(ctx context.Context, id, userID string) error
}

// StudentService manages the roster.
type StudentService interface {
	Create(ctx context.Context, req *CreateStudentRequest, adminID string) (*models.User, error)
	CreateBatch(ctx context.Context, req *BatchCreateStudentRequest, adminID string) (*StudentListResponse, error)
	Update(ctx context.Context, id string, req *UpdateStudentRequest, adminID string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filters repositories.UserFilters) (*StudentListResponse, error)
	ListByAdmin(ctx context.Context, adminID string) (*StudentListResponse, error)
	ListByClass(ctx context.Context, classID string) (*StudentListResponse, error)
	BulkAssign(ctx context.Context, req *BulkAssignRequest, adminID string) (*BulkAssignResponse, error)
}

// ImportExportService moves question banks and score history through
// spreadsheet files.
type ImportExportService interface {
	ImportQuestions(ctx context.Context, reader io.Reader, chapterID string, category assignment.Category, creatorID string) (*ImportResult, error)
	ExportQuestions(ctx context.Context, chapterID string) ([]byte, error)
	ExportScores(ctx context.Context, classID string, since time.Time) ([]byte, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	// Core service getters
	Assignment() AssignmentService
	Question() QuestionService
	Progress() ProgressService
	Curriculum() CurriculumService
	Student() StudentService
	ImportExport() ImportExportService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
