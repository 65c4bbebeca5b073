package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gohanrohith/ed/internal/assignment"
	"github.com/gohanrohith/ed/internal/models"
	"github.com/gohanrohith/ed/internal/repositories"
	"github.com/gohanrohith/ed/internal/validator"
)

type assignmentService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	runner    *assignment.Runner
	clock     assignment.Clock
}

// NewAssignmentService wires the session engine to persistence. The
// runner carries the injected randomness, clock and results sink.
func NewAssignmentService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, runner *assignment.Runner, clock assignment.Clock) AssignmentService {
	if clock == nil {
		clock = time.Now
	}
	return &assignmentService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		runner:    runner,
		clock:     clock,
	}
}

// ===== LIFECYCLE =====

func (s *assignmentService) Start(ctx context.Context, req *StartSessionRequest) (*SessionResponse, error) {
	s.logger.Info("Starting assignment session",
		"student_id", req.StudentID,
		"chapter_id", req.ChapterID,
		"level", req.Level)

	// Validate request
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// Chapter must exist before assembling anything
	if _, err := s.repo.Curriculum().GetChapter(ctx, s.db, req.ChapterID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrChapterNotFound
		}
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}

	// Resume an active session instead of assembling a second one
	existing, err := s.repo.Session().GetActiveByStudent(ctx, s.db, req.StudentID, req.ChapterID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check active session: %w", err)
	}
	if existing != nil {
		s.logger.Info("Resuming existing session", "session_id", existing.ID)
		return s.buildSessionResponse(ctx, existing, false)
	}

	// Load the chapter's question pools
	pools, err := s.repo.Question().GetPool(ctx, req.ChapterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load question pool: %w", err)
	}
	if len(pools) == 0 {
		return nil, ErrEmptyQuestionPool
	}

	identity := assignment.Identity{
		StudentID: req.StudentID,
		SubjectID: req.SubjectID,
		ChapterID: req.ChapterID,
	}

	session, err := s.runner.Start(ctx, uuid.NewString(), identity, req.Level, pools)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	record, err := s.newSessionRecord(session, req)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Session().Create(ctx, nil, record); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	priorSessions, err := s.repo.Session().CountByStudentChapter(ctx, s.db, req.StudentID, req.ChapterID)
	if err != nil {
		priorSessions = 0
	}

	s.logger.Info("Assignment session started",
		"session_id", session.ID,
		"questions", len(session.Questions),
		"level", req.Level,
		"chapter_sessions", priorSessions)

	return s.buildSessionResponse(ctx, record, false)
}

// Retake discards the student's active session for the chapter, if any,
// and assembles a fresh one at the requested level. The abandoned
// session keeps its record for the history listing.
func (s *assignmentService) Retake(ctx context.Context, req *StartSessionRequest) (*SessionResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	existing, err := s.repo.Session().GetActiveByStudent(ctx, s.db, req.StudentID, req.ChapterID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check active session: %w", err)
	}
	if existing != nil {
		reason := models.SessionEndReasonRetake
		now := s.clock()
		existing.Status = models.SessionAbandoned
		existing.EndReason = &reason
		existing.EndedAt = &now
		if err := s.repo.Session().Update(ctx, nil, existing); err != nil {
			return nil, fmt.Errorf("failed to abandon session: %w", err)
		}
		s.logger.Info("Session abandoned for retake",
			"session_id", existing.ID,
			"student_id", req.StudentID)
	}

	return s.Start(ctx, req)
}

func (s *assignmentService) Get(ctx context.Context, sessionID, studentID string) (*SessionResponse, error) {
	record, err := s.getOwnedSession(ctx, sessionID, studentID, "read")
	if err != nil {
		return nil, err
	}

	// Late reads may discover an expired timer
	if record.Status == models.SessionInProgress {
		if record, err = s.syncCountdown(ctx, record); err != nil {
			return nil, err
		}
	}

	return s.buildSessionResponse(ctx, record, record.ShowSolutions)
}

func (s *assignmentService) Submit(ctx context.Context, sessionID, studentID string) (*SubmitResponse, error) {
	s.logger.Info("Submitting assignment session",
		"session_id", sessionID,
		"student_id", studentID)

	record, err := s.getOwnedSession(ctx, sessionID, studentID, "submit")
	if err != nil {
		return nil, err
	}

	// Submitting twice returns the recorded result unchanged
	if record.Status == models.SessionSubmitted {
		return s.buildSubmitResponse(record)
	}
	if record.Status != models.SessionInProgress {
		return nil, ErrSessionNotActive
	}

	return s.finalizeSession(ctx, record, "")
}

func (s *assignmentService) GetResult(ctx context.Context, sessionID, studentID string) (*SubmitResponse, error) {
	record, err := s.getOwnedSession(ctx, sessionID, studentID, "read_result")
	if err != nil {
		return nil, err
	}

	if record.Status != models.SessionSubmitted {
		return nil, ErrSessionNotSubmitted
	}

	return s.buildSubmitResponse(record)
}

// ===== IN-SESSION OPERATIONS =====

func (s *assignmentService) SelectAnswer(ctx context.Context, sessionID string, req *AnswerRequest, studentID string) error {
	// Validate request
	if err := s.validator.Validate(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	record, err := s.getOwnedSession(ctx, sessionID, studentID, "answer")
	if err != nil {
		return err
	}

	if record.Status != models.SessionInProgress {
		return ErrSessionNotActive
	}

	session, err := s.toEngineSession(record)
	if err != nil {
		return err
	}

	answer := make([]assignment.OptionKey, len(req.Answer))
	for i, key := range req.Answer {
		answer[i] = assignment.OptionKey(key)
	}

	if err := s.runner.SelectAnswer(session, req.QuestionIndex, answer); err != nil {
		return err
	}

	return s.saveEngineState(ctx, record, session)
}

func (s *assignmentService) Navigate(ctx context.Context, sessionID string, req *NavigateRequest, studentID string) (*SessionResponse, error) {
	// Validate request
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	record, err := s.getOwnedSession(ctx, sessionID, studentID, "navigate")
	if err != nil {
		return nil, err
	}

	if record.Status != models.SessionInProgress {
		return nil, ErrSessionNotActive
	}

	session, err := s.toEngineSession(record)
	if err != nil {
		return nil, err
	}

	s.runner.NavigatePage(session, req.Direction)

	if err := s.saveEngineState(ctx, record, session); err != nil {
		return nil, err
	}

	return s.buildSessionResponse(ctx, record, false)
}

func (s *assignmentService) ToggleSolutions(ctx context.Context, sessionID, studentID string) (*SessionResponse, error) {
	record, err := s.getOwnedSession(ctx, sessionID, studentID, "toggle_solutions")
	if err != nil {
		return nil, err
	}

	if record.Status != models.SessionSubmitted {
		return nil, ErrSessionNotSubmitted
	}

	record.ShowSolutions = !record.ShowSolutions
	if err := s.repo.Session().Update(ctx, nil, record); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	return s.buildSessionResponse(ctx, record, record.ShowSolutions)
}

// ===== TIME MANAGEMENT =====

// SyncTime recomputes the countdown from the wall clock. The server is
// authoritative: an expired session is submitted here, not by the client.
func (s *assignmentService) SyncTime(ctx context.Context, sessionID, studentID string) (*TimeSyncResponse, error) {
	record, err := s.getOwnedSession(ctx, sessionID, studentID, "sync_time")
	if err != nil {
		return nil, err
	}

	if record.Status != models.SessionInProgress {
		return &TimeSyncResponse{
			SessionID: record.ID,
			Remaining: 0,
			Expired:   record.EndReason != nil && *record.EndReason == models.SessionEndReasonTimeout,
			Status:    record.Status,
		}, nil
	}

	record, err = s.syncCountdown(ctx, record)
	if err != nil {
		return nil, err
	}

	return &TimeSyncResponse{
		SessionID: record.ID,
		Remaining: record.Remaining,
		Expired:   record.Status == models.SessionSubmitted,
		Status:    record.Status,
	}, nil
}

// ===== MAINTENANCE =====

// AbandonStale marks in-progress sessions older than the given age as
// abandoned. Runs periodically; a session whose student vanished mid-run
// would otherwise block retakes forever.
func (s *assignmentService) AbandonStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.clock().Add(-olderThan)
	count, err := s.repo.Session().MarkAbandonedBefore(ctx, s.db, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to abandon stale sessions: %w", err)
	}
	if count > 0 {
		s.logger.Info("Abandoned stale sessions", "count", count, "cutoff", cutoff)
	}
	return count, nil
}

// ===== HISTORY =====

func (s *assignmentService) ListSessions(ctx context.Context, studentID string, filters repositories.SessionFilters) ([]*models.AssignmentSessionRecord, int64, error) {
	sessions, total, err := s.repo.Session().List(ctx, s.db, studentID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, total, nil
}
