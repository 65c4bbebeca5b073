package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/gohanrohith/ed/internal/assignment"
	"github.com/gohanrohith/ed/internal/models"
	"github.com/gohanrohith/ed/internal/validator"
)

func newTestQuestionService() (QuestionService, *mockRepo) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	repo := newMockRepo()
	repo.curriculum.chapters["ch-1"] = &models.Chapter{ID: "ch-1", SubjectID: "sub-1", Name: "Fractions"}
	return NewQuestionService(repo, nil, logger, validator.New()), repo
}

func createQuestionRequest() *CreateQuestionRequest {
	return &CreateQuestionRequest{
		ChapterID: "ch-1",
		Kind:      "standard",
		Text:      "What is 2 + 2?",
		Options: map[string]validator.OptionPayload{
			"A": {Text: "3"},
			"B": {Text: "4"},
			"C": {Text: "5"},
		},
		CorrectAnswers: []string{"B"},
		Solution:       "Add the numbers.",
	}
}

func TestQuestionService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a standard question", func(t *testing.T) {
		service, repo := newTestQuestionService()

		resp, err := service.Create(ctx, createQuestionRequest(), assignment.Remember, "teacher-1")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if !resp.CanEdit || !resp.CanDelete {
			t.Error("creator should be able to edit and delete")
		}
		if len(repo.question.questions) != 1 {
			t.Fatalf("expected 1 stored question, got %d", len(repo.question.questions))
		}
		stored := repo.question.questions[resp.ID]
		if stored.Category != assignment.Remember {
			t.Errorf("expected remember category, got %s", stored.Category)
		}
	})

	t.Run("rejects an answer key without a matching option", func(t *testing.T) {
		service, _ := newTestQuestionService()

		req := createQuestionRequest()
		req.CorrectAnswers = []string{"D"}
		if _, err := service.Create(ctx, req, assignment.Remember, "teacher-1"); err == nil {
			t.Error("expected a validation error for the dangling answer key")
		}
	})

	t.Run("rejects a missing chapter", func(t *testing.T) {
		service, _ := newTestQuestionService()

		req := createQuestionRequest()
		req.ChapterID = "ch-missing"
		if _, err := service.Create(ctx, req, assignment.Remember, "teacher-1"); !errors.Is(err, ErrChapterNotFound) {
			t.Errorf("expected ErrChapterNotFound, got %v", err)
		}
	})

	t.Run("creates a comprehension question", func(t *testing.T) {
		service, repo := newTestQuestionService()

		req := &CreateQuestionRequest{
			ChapterID: "ch-1",
			Kind:      "comprehension",
			Passage:   "Rivers carry sediment downstream.",
			SubQuestions: []validator.SubQuestionRequest{
				{
					Text: "What do rivers carry?",
					Options: map[string]validator.OptionPayload{
						"A": {Text: "sediment"},
						"B": {Text: "nothing"},
					},
					CorrectAnswers: []string{"A"},
				},
			},
		}
		resp, err := service.Create(ctx, req, assignment.Understand, "teacher-1")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		stored := repo.question.questions[resp.ID]
		raw, err := stored.ToRaw()
		if err != nil {
			t.Fatalf("ToRaw failed: %v", err)
		}
		if !raw.IsComprehension() || len(raw.SubQuestions) != 1 {
			t.Errorf("expected a comprehension question with 1 sub-question, got %+v", raw)
		}
	})
}

func TestQuestionService_Update(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestQuestionService()

	created, err := service.Create(ctx, createQuestionRequest(), assignment.Remember, "teacher-1")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	t.Run("creator can update", func(t *testing.T) {
		text := "What is 3 + 3?"
		resp, err := service.Update(ctx, created.ID, &UpdateQuestionRequest{Text: &text}, "teacher-1")
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if resp.Text != text {
			t.Errorf("expected updated text, got %q", resp.Text)
		}
	})

	t.Run("another teacher cannot update", func(t *testing.T) {
		text := "hijacked"
		_, err := service.Update(ctx, created.ID, &UpdateQuestionRequest{Text: &text}, "teacher-2")
		var permErr *PermissionError
		if !errors.As(err, &permErr) {
			t.Errorf("expected a permission error, got %v", err)
		}
	})

	t.Run("update cannot orphan the answer key", func(t *testing.T) {
		_, err := service.Update(ctx, created.ID, &UpdateQuestionRequest{CorrectAnswers: []string{"D"}}, "teacher-1")
		if err == nil {
			t.Error("expected a validation error for the dangling answer key")
		}
	})
}

func TestQuestionService_Delete(t *testing.T) {
	ctx := context.Background()
	service, repo := newTestQuestionService()

	created, err := service.Create(ctx, createQuestionRequest(), assignment.Apply, "teacher-1")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	t.Run("another teacher cannot delete", func(t *testing.T) {
		err := service.Delete(ctx, created.ID, "teacher-2")
		var permErr *PermissionError
		if !errors.As(err, &permErr) {
			t.Errorf("expected a permission error, got %v", err)
		}
	})

	t.Run("creator can delete", func(t *testing.T) {
		if err := service.Delete(ctx, created.ID, "teacher-1"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if len(repo.question.questions) != 0 {
			t.Errorf("expected the question to be gone, got %d", len(repo.question.questions))
		}
	})

	t.Run("missing question", func(t *testing.T) {
		if err := service.Delete(ctx, "nope", "teacher-1"); !errors.Is(err, ErrQuestionNotFound) {
			t.Errorf("expected ErrQuestionNotFound, got %v", err)
		}
	})
}

func TestQuestionService_ListByChapterCategory(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestQuestionService()

	for i := 0; i < 3; i++ {
		if _, err := service.Create(ctx, createQuestionRequest(), assignment.Analyse, "teacher-1"); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	if _, err := service.Create(ctx, createQuestionRequest(), assignment.Evaluate, "teacher-1"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	list, err := service.ListByChapterCategory(ctx, "ch-1", assignment.Analyse)
	if err != nil {
		t.Fatalf("ListByChapterCategory failed: %v", err)
	}
	if list.Total != 3 {
		t.Errorf("expected 3 questions in the analyse bank, got %d", list.Total)
	}
	for _, q := range list.Questions {
		if len(q.CorrectAnswers) == 0 {
			t.Error("bank listings should include the answer key")
		}
	}
}
