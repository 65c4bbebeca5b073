package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/gohanrohith/ed/internal/models"
	"github.com/gohanrohith/ed/internal/validator"
)

func newTestCurriculumService() (CurriculumService, *mockRepo) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	repo := newMockRepo()
	repo.curriculum.classes["cls-1"] = &models.Class{ID: "cls-1", Name: "Class 6", AdminID: "admin-1"}
	repo.curriculum.subjects["sub-1"] = &models.Subject{ID: "sub-1", Name: "Mathematics", CreatedBy: "admin-1"}
	repo.curriculum.classSubjects["cls-1"] = []*models.Subject{repo.curriculum.subjects["sub-1"]}
	return NewCurriculumService(repo, nil, logger, validator.New()), repo
}

func TestCurriculumService_ListSubjectsByClass(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestCurriculumService()

	subjects, err := service.ListSubjectsByClass(ctx, "cls-1")
	if err != nil {
		t.Fatalf("ListSubjectsByClass failed: %v", err)
	}
	if len(subjects) != 1 || subjects[0].ID != "sub-1" {
		t.Errorf("unexpected subjects: %+v", subjects)
	}

	if _, err := service.ListSubjectsByClass(ctx, "cls-missing"); !errors.Is(err, ErrClassNotFound) {
		t.Errorf("expected ErrClassNotFound, got %v", err)
	}
}

func TestCurriculumService_Chapters(t *testing.T) {
	ctx := context.Background()
	service, repo := newTestCurriculumService()

	t.Run("create requires an existing subject", func(t *testing.T) {
		req := &CreateChapterRequest{SubjectID: "sub-missing", Name: "Decimals", Number: 2}
		if _, err := service.CreateChapter(ctx, req, "teacher-1"); !errors.Is(err, ErrSubjectNotFound) {
			t.Errorf("expected ErrSubjectNotFound, got %v", err)
		}
	})

	req := &CreateChapterRequest{SubjectID: "sub-1", Name: "Decimals", Number: 2}
	chapter, err := service.CreateChapter(ctx, req, "teacher-1")
	if err != nil {
		t.Fatalf("CreateChapter failed: %v", err)
	}
	if chapter.CreatedBy != "teacher-1" {
		t.Errorf("expected creator teacher-1, got %s", chapter.CreatedBy)
	}

	t.Run("lists the subject's chapters", func(t *testing.T) {
		chapters, err := service.ListChaptersBySubject(ctx, "sub-1")
		if err != nil {
			t.Fatalf("ListChaptersBySubject failed: %v", err)
		}
		if len(chapters) != 1 {
			t.Errorf("expected 1 chapter, got %d", len(chapters))
		}
	})

	t.Run("get returns the chapter", func(t *testing.T) {
		got, err := service.GetChapter(ctx, chapter.ID)
		if err != nil {
			t.Fatalf("GetChapter failed: %v", err)
		}
		if got.Name != "Decimals" {
			t.Errorf("expected Decimals, got %s", got.Name)
		}
	})

	t.Run("update renames for the creator only", func(t *testing.T) {
		name := "Decimals and Percentages"
		req := &UpdateChapterRequest{Name: &name}

		_, err := service.UpdateChapter(ctx, chapter.ID, req, "teacher-2")
		var permErr *PermissionError
		if !errors.As(err, &permErr) {
			t.Errorf("expected a permission error, got %v", err)
		}

		updated, err := service.UpdateChapter(ctx, chapter.ID, req, "teacher-1")
		if err != nil {
			t.Fatalf("UpdateChapter failed: %v", err)
		}
		if updated.Name != name {
			t.Errorf("expected %q, got %q", name, updated.Name)
		}
		if updated.Number != 2 {
			t.Errorf("number changed without being set: %d", updated.Number)
		}
	})

	t.Run("only the creator can delete", func(t *testing.T) {
		err := service.DeleteChapter(ctx, chapter.ID, "teacher-2")
		var permErr *PermissionError
		if !errors.As(err, &permErr) {
			t.Errorf("expected a permission error, got %v", err)
		}

		if err := service.DeleteChapter(ctx, chapter.ID, "teacher-1"); err != nil {
			t.Fatalf("DeleteChapter failed: %v", err)
		}
		if _, ok := repo.curriculum.chapters[chapter.ID]; ok {
			t.Error("expected the chapter to be gone")
		}
	})
}
