package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gohanrohith/ed/internal/assignment"
	"github.com/gohanrohith/ed/internal/models"
	"github.com/gohanrohith/ed/internal/repositories"
	"github.com/gohanrohith/ed/internal/validator"
)

type questionService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	business  *validator.BusinessValidator
}

func NewQuestionService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator) QuestionService {
	return &questionService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: v,
		business:  validator.NewBusinessValidator(),
	}
}

func (s *questionService) Create(ctx context.Context, req *CreateQuestionRequest, category assignment.Category, creatorID string) (*QuestionResponse, error) {
	s.logger.Info("Creating question",
		"chapter_id", req.ChapterID,
		"category", category,
		"kind", req.Kind,
		"creator_id", creatorID)

	if !category.Valid() {
		return nil, fmt.Errorf("unknown category %q", category)
	}
	if errs := s.business.ValidateQuestionCreate(req); len(errs) > 0 {
		return nil, fmt.Errorf("validation failed: %w", errs)
	}

	// Chapter must exist
	if _, err := s.repo.Curriculum().GetChapter(ctx, s.db, req.ChapterID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrChapterNotFound
		}
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}

	question := &models.ChapterQuestion{
		ID:        uuid.NewString(),
		ChapterID: req.ChapterID,
		Category:  category,
		CreatedBy: creatorID,
	}
	if err := question.FromRaw(rawFromCreateRequest(req)); err != nil {
		return nil, fmt.Errorf("failed to encode question: %w", err)
	}

	if err := s.repo.Question().Create(ctx, nil, question); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	s.logger.Info("Question created", "question_id", question.ID, "category", category)
	return s.buildQuestionResponse(question, creatorID), nil
}

func (s *questionService) GetByID(ctx context.Context, id, userID string) (*QuestionResponse, error) {
	question, err := s.repo.Question().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return s.buildQuestionResponse(question, userID), nil
}

func (s *questionService) Update(ctx context.Context, id string, req *UpdateQuestionRequest, userID string) (*QuestionResponse, error) {
	s.logger.Info("Updating question", "question_id", id, "user_id", userID)

	// Validate request
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	question, err := s.repo.Question().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	if question.CreatedBy != userID {
		return nil, NewPermissionError(userID, id, "question", "update", "only the creator can modify a question")
	}

	raw, err := question.ToRaw()
	if err != nil {
		return nil, fmt.Errorf("failed to decode question: %w", err)
	}
	applyQuestionUpdate(&raw, req)

	if errs := validateRawAnswerKeys(raw); len(errs) > 0 {
		return nil, fmt.Errorf("validation failed: %w", errs)
	}

	if err := question.FromRaw(raw); err != nil {
		return nil, fmt.Errorf("failed to encode question: %w", err)
	}

	if err := s.repo.Question().Update(ctx, nil, question); err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}

	return s.buildQuestionResponse(question, userID), nil
}

func (s *questionService) Delete(ctx context.Context, id, userID string) error {
	s.logger.Info("Deleting question", "question_id", id, "user_id", userID)

	question, err := s.repo.Question().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to get question: %w", err)
	}

	if question.CreatedBy != userID {
		return NewPermissionError(userID, id, "question", "delete", "only the creator can delete a question")
	}

	if err := s.repo.Question().Delete(ctx, nil, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to delete question: %w", err)
	}
	return nil
}

// ListByChapterCategory returns one category bank in the engine's wire
// shape, correct answers included; the bank endpoints are authoring
// surfaces, not student surfaces.
func (s *questionService) ListByChapterCategory(ctx context.Context, chapterID string, category assignment.Category) (*QuestionListResponse, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("unknown category %q", category)
	}

	rows, err := s.repo.Question().ListByChapterCategory(ctx, nil, chapterID, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	questions := make([]assignment.RawQuestion, 0, len(rows))
	for _, row := range rows {
		raw, err := row.ToRaw()
		if err != nil {
			s.logger.Error("Skipping undecodable question", "question_id", row.ID, "error", err)
			continue
		}
		questions = append(questions, raw)
	}

	return &QuestionListResponse{
		Questions: questions,
		Total:     int64(len(questions)),
	}, nil
}

func (s *questionService) List(ctx context.Context, filters repositories.QuestionFilters) (*QuestionListResponse, error) {
	rows, total, err := s.repo.Question().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	questions := make([]assignment.RawQuestion, 0, len(rows))
	for _, row := range rows {
		raw, err := row.ToRaw()
		if err != nil {
			s.logger.Error("Skipping undecodable question", "question_id", row.ID, "error", err)
			continue
		}
		questions = append(questions, raw)
	}

	return &QuestionListResponse{
		Questions: questions,
		Total:     total,
	}, nil
}

func (s *questionService) GetBankStats(ctx context.Context, chapterID string) (*repositories.BankStats, error) {
	stats, err := s.repo.Question().GetBankStats(ctx, nil, chapterID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bank stats: %w", err)
	}
	return stats, nil
}

// ===== HELPERS =====

func (s *questionService) buildQuestionResponse(question *models.ChapterQuestion, userID string) *QuestionResponse {
	owner := question.CreatedBy == userID
	return &QuestionResponse{
		ChapterQuestion: question,
		CanEdit:         owner,
		CanDelete:       owner,
	}
}

func rawFromCreateRequest(req *CreateQuestionRequest) assignment.RawQuestion {
	raw := assignment.RawQuestion{
		Text:            req.Text,
		Options:         optionsFromPayload(req.Options),
		CorrectAnswers:  optionKeys(req.CorrectAnswers),
		Solution:        req.Solution,
		Passage:         req.Passage,
		PassageSolution: req.PassageSolution,
	}
	for _, sub := range req.SubQuestions {
		raw.SubQuestions = append(raw.SubQuestions, assignment.RawQuestion{
			Text:           sub.Text,
			Options:        optionsFromPayload(sub.Options),
			CorrectAnswers: optionKeys(sub.CorrectAnswers),
			Solution:       sub.Solution,
		})
	}
	return raw
}

func applyQuestionUpdate(raw *assignment.RawQuestion, req *UpdateQuestionRequest) {
	if req.Text != nil {
		raw.Text = *req.Text
	}
	if req.Options != nil {
		raw.Options = optionsFromPayload(req.Options)
	}
	if req.CorrectAnswers != nil {
		raw.CorrectAnswers = optionKeys(req.CorrectAnswers)
	}
	if req.Solution != nil {
		raw.Solution = *req.Solution
	}
	if req.Passage != nil {
		raw.Passage = *req.Passage
	}
	if req.SubQuestions != nil {
		raw.SubQuestions = nil
		for _, sub := range req.SubQuestions {
			raw.SubQuestions = append(raw.SubQuestions, assignment.RawQuestion{
				Text:           sub.Text,
				Options:        optionsFromPayload(sub.Options),
				CorrectAnswers: optionKeys(sub.CorrectAnswers),
				Solution:       sub.Solution,
			})
		}
	}
}

// validateRawAnswerKeys re-checks answer-key integrity after a partial
// update; a patch can orphan correct answers that were valid on create.
func validateRawAnswerKeys(raw assignment.RawQuestion) validator.ValidationErrors {
	var errs validator.ValidationErrors
	check := func(q assignment.RawQuestion, field string) {
		for _, key := range q.CorrectAnswers {
			if _, ok := q.Options[key]; !ok {
				errs = append(errs, validator.ValidationError{
					Field:   field,
					Message: fmt.Sprintf("answer key %q has no matching option", key),
					Value:   key,
					Rule:    "business_logic",
				})
			}
		}
	}
	if raw.IsComprehension() {
		for i, sub := range raw.SubQuestions {
			check(sub, fmt.Sprintf("subQuestions[%d].correctAnswers", i))
		}
		return errs
	}
	check(raw, "correctAnswers")
	return errs
}

func optionsFromPayload(payload map[string]validator.OptionPayload) map[assignment.OptionKey]assignment.Option {
	if payload == nil {
		return nil
	}
	options := make(map[assignment.OptionKey]assignment.Option, len(payload))
	for key, opt := range payload {
		options[assignment.OptionKey(key)] = assignment.Option{
			Text:     opt.Text,
			ImageRef: opt.ImageRef,
		}
	}
	return options
}

func optionKeys(keys []string) []assignment.OptionKey {
	if keys == nil {
		return nil
	}
	out := make([]assignment.OptionKey, len(keys))
	for i, k := range keys {
		out[i] = assignment.OptionKey(k)
	}
	return out
}
