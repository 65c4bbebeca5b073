package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gohanrohith/ed/internal/assignment"
	"github.com/gohanrohith/ed/internal/models"
	"github.com/gohanrohith/ed/internal/repositories"
)

// ===== SNAPSHOT PERSISTENCE =====

// newSessionRecord snapshots a freshly started engine session into its
// database row.
func (s *assignmentService) newSessionRecord(session *assignment.Session, req *StartSessionRequest) (*models.AssignmentSessionRecord, error) {
	questions, err := json.Marshal(session.Questions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal questions: %w", err)
	}
	answers, err := json.Marshal(session.Answers)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal answers: %w", err)
	}
	shortfall, err := json.Marshal(session.Shortfall)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal shortfall: %w", err)
	}

	return &models.AssignmentSessionRecord{
		ID:        session.ID,
		StudentID: req.StudentID,
		SubjectID: req.SubjectID,
		ChapterID: req.ChapterID,
		Level:     session.Level.Number,
		Status:    models.SessionInProgress,
		Questions: questions,
		Answers:   answers,
		Shortfall: shortfall,
		Page:      session.Page,
		Remaining: session.Remaining,
		StartedAt: session.StartedAt,
	}, nil
}

// toEngineSession rebuilds the in-memory engine session from its row.
func (s *assignmentService) toEngineSession(record *models.AssignmentSessionRecord) (*assignment.Session, error) {
	level, err := assignment.LevelFor(record.Level)
	if err != nil {
		return nil, fmt.Errorf("session %s has invalid level: %w", record.ID, err)
	}

	var questions []assignment.PooledQuestion
	if err := json.Unmarshal(record.Questions, &questions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session questions: %w", err)
	}
	answers := make(map[int][]assignment.OptionKey)
	if len(record.Answers) > 0 {
		if err := json.Unmarshal(record.Answers, &answers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session answers: %w", err)
		}
	}
	var shortfall assignment.Shortfall
	if len(record.Shortfall) > 0 {
		if err := json.Unmarshal(record.Shortfall, &shortfall); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session shortfall: %w", err)
		}
	}

	session := &assignment.Session{
		ID: record.ID,
		Identity: assignment.Identity{
			StudentID: record.StudentID,
			SubjectID: record.SubjectID,
			ChapterID: record.ChapterID,
		},
		Level:         level,
		Questions:     questions,
		Answers:       answers,
		Page:          record.Page,
		Remaining:     record.Remaining,
		StartedAt:     record.StartedAt,
		Status:        assignment.StatusInProgress,
		ShowSolutions: record.ShowSolutions,
		Shortfall:     shortfall,
	}
	if record.Status == models.SessionSubmitted {
		session.Status = assignment.StatusSubmitted
	}
	if record.EndedAt != nil {
		session.EndedAt = *record.EndedAt
	}
	return session, nil
}

// saveEngineState writes the mutable engine state (answers, page) back to
// the row after an in-session operation.
func (s *assignmentService) saveEngineState(ctx context.Context, record *models.AssignmentSessionRecord, session *assignment.Session) error {
	answers, err := json.Marshal(session.Answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}
	record.Answers = answers
	record.Page = session.Page

	if err := s.repo.Session().Update(ctx, nil, record); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

// ===== OWNERSHIP AND TIME =====

func (s *assignmentService) getOwnedSession(ctx context.Context, sessionID, studentID, action string) (*models.AssignmentSessionRecord, error) {
	record, err := s.repo.Session().GetByID(ctx, s.db, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if record.StudentID != studentID {
		return nil, NewPermissionError(studentID, sessionID, "assignment_session", action, "session belongs to another student")
	}
	return record, nil
}

// currentRemaining derives the countdown from the wall clock rather than
// trusting whatever the row last saw.
func (s *assignmentService) currentRemaining(record *models.AssignmentSessionRecord) int {
	elapsed := int(s.clock().Sub(record.StartedAt) / time.Second)
	remaining := s.runner.Config().TimerSeconds - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// syncCountdown refreshes the stored countdown and force-submits the
// session once the timer has run out.
func (s *assignmentService) syncCountdown(ctx context.Context, record *models.AssignmentSessionRecord) (*models.AssignmentSessionRecord, error) {
	remaining := s.currentRemaining(record)
	if remaining <= 0 {
		s.logger.Info("Session timer expired, auto-submitting",
			"session_id", record.ID,
			"student_id", record.StudentID)
		if _, err := s.finalizeSession(ctx, record, models.SessionEndReasonTimeout); err != nil {
			return nil, err
		}
		return record, nil
	}

	record.Remaining = remaining
	if err := s.repo.Session().Update(ctx, nil, record); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	return record, nil
}

// ===== SUBMISSION =====

// finalizeSession grades the session and persists the result and score
// history row in one transaction. The runner's sink delivery happens
// outside the transaction and cannot roll the grade back.
func (s *assignmentService) finalizeSession(ctx context.Context, record *models.AssignmentSessionRecord, endReason string) (*SubmitResponse, error) {
	session, err := s.toEngineSession(record)
	if err != nil {
		return nil, err
	}

	if endReason == models.SessionEndReasonTimeout {
		session.Remaining = 0
	} else {
		session.Remaining = s.currentRemaining(record)
	}

	breakdown, err := s.runner.Submit(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to grade session: %w", err)
	}

	breakdownJSON, err := json.Marshal(breakdown)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal score breakdown: %w", err)
	}
	scoreByLevel := make(map[assignment.Category]int, len(breakdown.ByCategory))
	for category, cs := range breakdown.ByCategory {
		scoreByLevel[category] = cs.Correct
	}
	scoreByLevelJSON, err := json.Marshal(scoreByLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal category scores: %w", err)
	}

	timeTaken := s.runner.Config().TimerSeconds - session.Remaining
	score := breakdown.TotalCorrect
	endedAt := session.EndedAt

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		record.Status = models.SessionSubmitted
		record.Remaining = session.Remaining
		record.EndedAt = &endedAt
		record.Score = &score
		record.Breakdown = breakdownJSON
		record.TimeTaken = &timeTaken
		if endReason != "" {
			record.EndReason = &endReason
		}

		if err := txRepo.Session().Update(ctx, nil, record); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}

		scoreRecord := &models.ScoreRecord{
			ID:             uuid.NewString(),
			SessionID:      record.ID,
			StudentID:      record.StudentID,
			ChapterID:      record.ChapterID,
			Level:          record.Level,
			Score:          score,
			TotalQuestions: breakdown.TotalQuestions,
			ScoreByLevel:   scoreByLevelJSON,
			TimeTaken:      timeTaken,
		}
		if err := txRepo.Score().Create(ctx, nil, scoreRecord); err != nil {
			return fmt.Errorf("failed to create score record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Assignment session submitted",
		"session_id", record.ID,
		"score", score,
		"total", breakdown.TotalQuestions,
		"time_taken", timeTaken,
		"end_reason", endReason)

	return s.buildSubmitResponse(record)
}

// ===== RESPONSE BUILDERS =====

// buildSessionResponse renders the session's current page. Correct
// answers and solutions are included only in review mode.
func (s *assignmentService) buildSessionResponse(ctx context.Context, record *models.AssignmentSessionRecord, review bool) (*SessionResponse, error) {
	session, err := s.toEngineSession(record)
	if err != nil {
		return nil, err
	}

	pageQuestions, start := s.runner.PageQuestions(session)
	views := make([]QuestionView, 0, len(pageQuestions))
	for i, q := range pageQuestions {
		index := start + i
		view := QuestionView{
			Index:    index,
			Text:     q.Question.Text,
			Options:  q.Question.Options,
			Mode:     q.Mode,
			Category: q.Category,
			Passage:  q.Passage,
			Answer:   session.Answers[index],
		}
		if review {
			view.CorrectAnswers = q.Question.CorrectAnswers
			view.Solution = q.Question.Solution
			view.PassageSolution = q.PassageSolution
		}
		views = append(views, view)
	}

	return &SessionResponse{
		SessionID:      record.ID,
		StudentID:      record.StudentID,
		ChapterID:      record.ChapterID,
		Level:          session.Level.Number,
		LevelName:      session.Level.Name,
		Status:         record.Status,
		TotalQuestions: len(session.Questions),
		Page:           session.Page,
		PageCount:      session.PageCount(s.runner.Config().PageSize),
		PageSize:       s.runner.Config().PageSize,
		Remaining:      record.Remaining,
		ShowSolutions:  record.ShowSolutions,
		Questions:      views,
		Shortfall:      session.Shortfall,
	}, nil
}

func (s *assignmentService) buildSubmitResponse(record *models.AssignmentSessionRecord) (*SubmitResponse, error) {
	var breakdown assignment.ScoreBreakdown
	if len(record.Breakdown) > 0 {
		if err := json.Unmarshal(record.Breakdown, &breakdown); err != nil {
			return nil, fmt.Errorf("failed to unmarshal score breakdown: %w", err)
		}
	}

	resp := &SubmitResponse{
		SessionID:      record.ID,
		Score:          breakdown.TotalCorrect,
		TotalQuestions: breakdown.TotalQuestions,
		ByCategory:     breakdown.ByCategory,
	}
	if record.TimeTaken != nil {
		resp.TimeTaken = *record.TimeTaken
	}
	if record.EndReason != nil {
		resp.EndReason = *record.EndReason
	}
	return resp, nil
}
