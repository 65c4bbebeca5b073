package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gohanrohith/ed/internal/models"
	"github.com/gohanrohith/ed/internal/repositories"
	"github.com/gohanrohith/ed/internal/validator"
)

type curriculumService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewCurriculumService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator) CurriculumService {
	return &curriculumService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: v,
	}
}

func (s *curriculumService) ListClasses(ctx context.Context) ([]*models.Class, error) {
	classes, err := s.repo.Curriculum().ListClasses(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}
	return classes, nil
}

func (s *curriculumService) ListSubjectsByClass(ctx context.Context, classID string) ([]*models.Subject, error) {
	if _, err := s.repo.Curriculum().GetClass(ctx, s.db, classID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrClassNotFound
		}
		return nil, fmt.Errorf("failed to get class: %w", err)
	}

	subjects, err := s.repo.Curriculum().ListSubjectsByClass(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	return subjects, nil
}

func (s *curriculumService) ListChaptersBySubject(ctx context.Context, subjectID string) ([]*models.Chapter, error) {
	if _, err := s.repo.Curriculum().GetSubject(ctx, s.db, subjectID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSubjectNotFound
		}
		return nil, fmt.Errorf("failed to get subject: %w", err)
	}

	chapters, err := s.repo.Curriculum().ListChaptersBySubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}
	return chapters, nil
}

func (s *curriculumService) GetChapter(ctx context.Context, id string) (*models.Chapter, error) {
	chapter, err := s.repo.Curriculum().GetChapter(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrChapterNotFound
		}
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}
	return chapter, nil
}

func (s *curriculumService) CreateChapter(ctx context.Context, req *CreateChapterRequest, creatorID string) (*models.Chapter, error) {
	s.logger.Info("Creating chapter",
		"subject_id", req.SubjectID,
		"name", req.Name,
		"creator_id", creatorID)

	// Validate request
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if _, err := s.repo.Curriculum().GetSubject(ctx, s.db, req.SubjectID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSubjectNotFound
		}
		return nil, fmt.Errorf("failed to get subject: %w", err)
	}

	chapter := &models.Chapter{
		ID:        uuid.NewString(),
		SubjectID: req.SubjectID,
		Name:      req.Name,
		Number:    req.Number,
		CreatedBy: creatorID,
	}
	if err := s.repo.Curriculum().CreateChapter(ctx, nil, chapter); err != nil {
		return nil, fmt.Errorf("failed to create chapter: %w", err)
	}

	s.logger.Info("Chapter created", "chapter_id", chapter.ID)
	return chapter, nil
}

func (s *curriculumService) UpdateChapter(ctx context.Context, id string, req *UpdateChapterRequest, userID string) (*models.Chapter, error) {
	s.logger.Info("Updating chapter", "chapter_id", id, "user_id", userID)

	// Validate request
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	chapter, err := s.repo.Curriculum().GetChapter(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrChapterNotFound
		}
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}

	if chapter.CreatedBy != userID {
		return nil, NewPermissionError(userID, id, "chapter", "update", "only the creator can update a chapter")
	}

	if req.Name != nil {
		chapter.Name = *req.Name
	}
	if req.Number != nil {
		chapter.Number = *req.Number
	}
	if err := s.repo.Curriculum().UpdateChapter(ctx, nil, chapter); err != nil {
		return nil, fmt.Errorf("failed to update chapter: %w", err)
	}
	return chapter, nil
}

func (s *curriculumService) DeleteChapter(ctx context.Context, id, userID string) error {
	s.logger.Info("Deleting chapter", "chapter_id", id, "user_id", userID)

	chapter, err := s.repo.Curriculum().GetChapter(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrChapterNotFound
		}
		return fmt.Errorf("failed to get chapter: %w", err)
	}

	if chapter.CreatedBy != userID {
		return NewPermissionError(userID, id, "chapter", "delete", "only the creator can delete a chapter")
	}

	if err := s.repo.Curriculum().DeleteChapter(ctx, nil, id); err != nil {
		return fmt.Errorf("failed to delete chapter: %w", err)
	}
	return nil
}
