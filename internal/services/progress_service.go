package services

import (
	"context"
	"encoding/json"
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

type progressService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewProgressService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator) ProgressService {
	return &progressService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: v,
	}
}

// AddProgress folds one submission into the student's rolling aggregate
// and appends the matching ledger row, atomically.
func (s *progressService) AddProgress(ctx context.Context, req *AddProgressRequest) (*ProgressResponse, error) {
	s.logger.Info("Adding progress",
		"student_id", req.StudentID,
		"chapter_id", req.ChapterID,
		"level", req.Level)

	// Validate request
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	for name := range req.Progress {
		if !assignment.Category(name).Valid() {
			return nil, fmt.Errorf("validation failed: unknown category %q", name)
		}
	}

	exists, err := s.repo.User().ExistsByID(ctx, req.StudentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check student: %w", err)
	}
	if !exists {
		return nil, ErrStudentNotFound
	}

	submissionScore := 0
	for _, tally := range req.Progress {
		submissionScore += tally.CorrectCount
	}

	var aggregate *models.StudentProgress
	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		existing, err := txRepo.Progress().GetByStudentChapter(ctx, nil, req.StudentID, req.ChapterID)
		if err != nil && !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to get progress: %w", err)
		}
		if existing == nil {
			existing = &models.StudentProgress{
				ID:        uuid.NewString(),
				StudentID: req.StudentID,
				SubjectID: req.SubjectID,
				ChapterID: req.ChapterID,
			}
		}

		merged, err := mergeProgress(existing.Progress, req.Progress)
		if err != nil {
			return err
		}
		existing.Progress = merged
		if req.Level > existing.HighestLevel {
			existing.HighestLevel = req.Level
		}
		if submissionScore > existing.BestScore {
			existing.BestScore = submissionScore
		}
		existing.TotalTimeInSeconds += req.TotalTimeInSeconds
		now := time.Now()
		existing.LastAttemptAt = &now

		if err := txRepo.Progress().Upsert(ctx, nil, existing); err != nil {
			return fmt.Errorf("failed to upsert progress: %w", err)
		}
		// Attempts bumps atomically in SQL so concurrent submissions
		// cannot lose a count.
		if err := txRepo.Progress().IncrementAttempts(ctx, nil, req.StudentID, req.ChapterID); err != nil {
			return fmt.Errorf("failed to increment attempts: %w", err)
		}
		existing.Attempts++

		detail := &models.StudentProgressDetail{
			ID:                 uuid.NewString(),
			StudentID:          req.StudentID,
			SubjectID:          req.SubjectID,
			ChapterID:          req.ChapterID,
			Level:              req.Level,
			TotalTimeInSeconds: req.TotalTimeInSeconds,
		}
		detailProgress, err := json.Marshal(tallyToScores(req.Progress))
		if err != nil {
			return fmt.Errorf("failed to marshal progress detail: %w", err)
		}
		detail.Progress = detailProgress
		if err := txRepo.Progress().CreateDetail(ctx, nil, detail); err != nil {
			return fmt.Errorf("failed to create progress detail: %w", err)
		}

		aggregate = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.buildProgressResponse(aggregate)
}

// GetProgress returns the student's aggregate for a chapter, creating an
// empty row on first read so clients always see a stable shape.
func (s *progressService) GetProgress(ctx context.Context, studentID, chapterID, subjectID string) (*ProgressResponse, error) {
	progress, err := s.repo.Progress().GetByStudentChapter(ctx, s.db, studentID, chapterID)
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("failed to get progress: %w", err)
		}
		progress = &models.StudentProgress{
			ID:        uuid.NewString(),
			StudentID: studentID,
			SubjectID: subjectID,
			ChapterID: chapterID,
		}
		if err := s.repo.Progress().Upsert(ctx, nil, progress); err != nil {
			return nil, fmt.Errorf("failed to create progress: %w", err)
		}
	}
	return s.buildProgressResponse(progress)
}

func (s *progressService) GetAttempts(ctx context.Context, studentID, chapterID string) (int, error) {
	progress, err := s.repo.Progress().GetByStudentChapter(ctx, s.db, studentID, chapterID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get progress: %w", err)
	}
	return progress.Attempts, nil
}

func (s *progressService) ListBySubject(ctx context.Context, studentID, subjectID string) ([]*ProgressResponse, error) {
	rows, err := s.repo.Progress().ListByStudentSubject(ctx, s.db, studentID, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}

	responses := make([]*ProgressResponse, 0, len(rows))
	for _, row := range rows {
		resp, err := s.buildProgressResponse(row)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

func (s *progressService) ListDetails(ctx context.Context, studentID, chapterID string, limit, offset int) (*ProgressDetailListResponse, error) {
	details, total, err := s.repo.Progress().ListDetails(ctx, s.db, studentID, chapterID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress details: %w", err)
	}
	return &ProgressDetailListResponse{Details: details, Total: total}, nil
}

func (s *progressService) ListDetailsBySubject(ctx context.Context, studentID, subjectID string) ([]*models.StudentProgressDetail, error) {
	details, err := s.repo.Progress().ListDetailsBySubject(ctx, s.db, studentID, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress details: %w", err)
	}
	return details, nil
}

// GetStats aggregates the student's whole attempt history.
func (s *progressService) GetStats(ctx context.Context, studentID string) (*repositories.StudentStats, error) {
	stats, err := s.repo.Progress().GetStudentStats(ctx, s.db, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return &repositories.StudentStats{}, nil
		}
		return nil, fmt.Errorf("failed to get student stats: %w", err)
	}
	return stats, nil
}

// ===== SCORES =====

func (s *progressService) GetScoreBySession(ctx context.Context, sessionID, studentID string) (*models.ScoreRecord, error) {
	score, err := s.repo.Score().GetBySession(ctx, s.db, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrScoreNotFound
		}
		return nil, fmt.Errorf("failed to get score: %w", err)
	}
	if score.StudentID != studentID {
		return nil, NewPermissionError(studentID, sessionID, "score", "read", "scores are visible to their student only")
	}
	return score, nil
}

// ListScoresByChapter returns the student's score history for one
// chapter together with their best submission.
func (s *progressService) ListScoresByChapter(ctx context.Context, studentID, chapterID string) (*ChapterScoresResponse, error) {
	scores, err := s.repo.Score().ListByStudentChapter(ctx, s.db, studentID, chapterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chapter scores: %w", err)
	}

	best, err := s.repo.Score().GetBestByStudentChapter(ctx, s.db, studentID, chapterID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to get best score: %w", err)
	}

	return &ChapterScoresResponse{Scores: scores, Best: best}, nil
}

func (s *progressService) ListScores(ctx context.Context, studentID string, limit, offset int) (*ScoreListResponse, error) {
	scores, total, err := s.repo.Score().ListByStudent(ctx, s.db, studentID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list scores: %w", err)
	}
	return &ScoreListResponse{Scores: scores, Total: total}, nil
}

// GetMonthlyTopMarks ranks a class by each student's best score since the
// start of the given month.
func (s *progressService) GetMonthlyTopMarks(ctx context.Context, classID string, month time.Time, limit int) (*TopMarksResponse, error) {
	since := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
	if limit <= 0 {
		limit = 10
	}

	marks, err := s.repo.Score().GetMonthlyTopMarks(ctx, classID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top marks: %w", err)
	}

	return &TopMarksResponse{
		Month: since.Format("2006-01"),
		Marks: marks,
	}, nil
}

// ===== HELPERS =====

func (s *progressService) buildProgressResponse(progress *models.StudentProgress) (*ProgressResponse, error) {
	byCategory := make(map[assignment.Category]assignment.CategoryScore)
	if len(progress.Progress) > 0 {
		if err := json.Unmarshal(progress.Progress, &byCategory); err != nil {
			return nil, fmt.Errorf("failed to unmarshal progress: %w", err)
		}
	}
	return &ProgressResponse{
		StudentProgress:    progress,
		ProgressByCategory: byCategory,
	}, nil
}

func tallyToScores(tallies map[string]validator.CategoryTally) map[assignment.Category]assignment.CategoryScore {
	scores := make(map[assignment.Category]assignment.CategoryScore, len(tallies))
	for name, tally := range tallies {
		scores[assignment.Category(name)] = assignment.CategoryScore{
			Correct: tally.CorrectCount,
			Total:   tally.QuestionCount,
		}
	}
	return scores
}

// mergeProgress adds a submission's tallies onto the stored cumulative
// map.
func mergeProgress(stored []byte, tallies map[string]validator.CategoryTally) ([]byte, error) {
	cumulative := make(map[assignment.Category]assignment.CategoryScore)
	if len(stored) > 0 {
		if err := json.Unmarshal(stored, &cumulative); err != nil {
			return nil, fmt.Errorf("failed to unmarshal progress: %w", err)
		}
	}
	for name, tally := range tallies {
		category := assignment.Category(name)
		score := cumulative[category]
		score.Correct += tally.CorrectCount
		score.Total += tally.QuestionCount
		cumulative[category] = score
	}
	return json.Marshal(cumulative)
}
