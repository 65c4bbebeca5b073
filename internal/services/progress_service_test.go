package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"

	"gorm.io/gorm"

	"github.com/gohanrohith/ed/internal/assignment"
	"github.com/gohanrohith/ed/internal/models"
	"github.com/gohanrohith/ed/internal/repositories"
	"github.com/gohanrohith/ed/internal/validator"
)

type mockProgressRepo struct {
	aggregates map[string]*models.StudentProgress
	details    []*models.StudentProgressDetail
}

func newMockProgressRepo() *mockProgressRepo {
	return &mockProgressRepo{aggregates: make(map[string]*models.StudentProgress)}
}

func progressKey(studentID, chapterID string) string {
	return studentID + "/" + chapterID
}

func (m *mockProgressRepo) GetByStudentChapter(ctx context.Context, tx *gorm.DB, studentID, chapterID string) (*models.StudentProgress, error) {
	progress, ok := m.aggregates[progressKey(studentID, chapterID)]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *progress
	return &copied, nil
}

func (m *mockProgressRepo) ListByStudentSubject(ctx context.Context, tx *gorm.DB, studentID, subjectID string) ([]*models.StudentProgress, error) {
	var out []*models.StudentProgress
	for _, p := range m.aggregates {
		if p.StudentID == studentID && p.SubjectID == subjectID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProgressRepo) Upsert(ctx context.Context, tx *gorm.DB, progress *models.StudentProgress) error {
	copied := *progress
	m.aggregates[progressKey(progress.StudentID, progress.ChapterID)] = &copied
	return nil
}

func (m *mockProgressRepo) IncrementAttempts(ctx context.Context, tx *gorm.DB, studentID, chapterID string) error {
	if p, ok := m.aggregates[progressKey(studentID, chapterID)]; ok {
		p.Attempts++
	}
	return nil
}

func (m *mockProgressRepo) CreateDetail(ctx context.Context, tx *gorm.DB, detail *models.StudentProgressDetail) error {
	m.details = append(m.details, detail)
	return nil
}

func (m *mockProgressRepo) ListDetails(ctx context.Context, tx *gorm.DB, studentID, chapterID string, limit, offset int) ([]*models.StudentProgressDetail, int64, error) {
	var out []*models.StudentProgressDetail
	for _, d := range m.details {
		if d.StudentID == studentID && d.ChapterID == chapterID {
			out = append(out, d)
		}
	}
	return out, int64(len(out)), nil
}

func (m *mockProgressRepo) ListDetailsBySubject(ctx context.Context, tx *gorm.DB, studentID, subjectID string) ([]*models.StudentProgressDetail, error) {
	return nil, nil
}

func (m *mockProgressRepo) GetStudentStats(ctx context.Context, tx *gorm.DB, studentID string) (*repositories.StudentStats, error) {
	return nil, repositories.ErrNotFound
}

func newTestProgressService() (ProgressService, *mockRepo) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	repo := newMockRepo()
	users := newMockUserRepo()
	users.users["stu-1"] = &models.User{ID: "stu-1", FullName: "Student One", Role: models.RoleStudent}
	repo.user = users
	return NewProgressService(repo, nil, logger, validator.New()), repo
}

func addProgressRequest() *AddProgressRequest {
	return &AddProgressRequest{
		StudentID: "stu-1",
		SubjectID: "sub-1",
		ChapterID: "ch-1",
		Level:     2,
		Progress: map[string]validator.CategoryTally{
			"remember":   {QuestionCount: 10, CorrectCount: 7},
			"understand": {QuestionCount: 8, CorrectCount: 4},
		},
		TotalTimeInSeconds: 120,
	}
}

func TestProgressService_AddProgress(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the aggregate on first submission", func(t *testing.T) {
		service, repo := newTestProgressService()

		resp, err := service.AddProgress(ctx, addProgressRequest())
		if err != nil {
			t.Fatalf("AddProgress failed: %v", err)
		}
		if resp.Attempts != 1 {
			t.Errorf("expected 1 attempt, got %d", resp.Attempts)
		}
		if resp.HighestLevel != 2 {
			t.Errorf("expected highest level 2, got %d", resp.HighestLevel)
		}
		if resp.BestScore != 11 {
			t.Errorf("expected best score 11, got %d", resp.BestScore)
		}
		if resp.TotalTimeInSeconds != 120 {
			t.Errorf("expected 120s total time, got %d", resp.TotalTimeInSeconds)
		}
		if got := resp.ProgressByCategory["remember"]; got.Correct != 7 || got.Total != 10 {
			t.Errorf("unexpected remember tally: %+v", got)
		}
		if len(repo.progress.details) != 1 {
			t.Errorf("expected 1 ledger row, got %d", len(repo.progress.details))
		}
	})

	t.Run("folds repeated submissions into the aggregate", func(t *testing.T) {
		service, repo := newTestProgressService()

		if _, err := service.AddProgress(ctx, addProgressRequest()); err != nil {
			t.Fatalf("first AddProgress failed: %v", err)
		}

		second := addProgressRequest()
		second.Level = 1
		second.Progress = map[string]validator.CategoryTally{
			"remember": {QuestionCount: 5, CorrectCount: 5},
		}
		second.TotalTimeInSeconds = 60

		resp, err := service.AddProgress(ctx, second)
		if err != nil {
			t.Fatalf("second AddProgress failed: %v", err)
		}
		if resp.Attempts != 2 {
			t.Errorf("expected 2 attempts, got %d", resp.Attempts)
		}
		if resp.HighestLevel != 2 {
			t.Errorf("highest level should not regress, got %d", resp.HighestLevel)
		}
		if resp.BestScore != 11 {
			t.Errorf("best score should keep the higher run, got %d", resp.BestScore)
		}
		if resp.TotalTimeInSeconds != 180 {
			t.Errorf("expected 180s cumulative time, got %d", resp.TotalTimeInSeconds)
		}
		if got := resp.ProgressByCategory["remember"]; got.Correct != 12 || got.Total != 15 {
			t.Errorf("unexpected cumulative remember tally: %+v", got)
		}
		if got := resp.ProgressByCategory["understand"]; got.Correct != 4 || got.Total != 8 {
			t.Errorf("unexpected cumulative understand tally: %+v", got)
		}
		if len(repo.progress.details) != 2 {
			t.Errorf("expected 2 ledger rows, got %d", len(repo.progress.details))
		}
	})

	t.Run("rejects an unknown category", func(t *testing.T) {
		service, _ := newTestProgressService()

		req := addProgressRequest()
		req.Progress = map[string]validator.CategoryTally{
			"memorize": {QuestionCount: 1, CorrectCount: 1},
		}
		if _, err := service.AddProgress(ctx, req); err == nil {
			t.Error("expected an error for unknown category")
		}
	})

	t.Run("rejects an unknown student", func(t *testing.T) {
		service, _ := newTestProgressService()

		req := addProgressRequest()
		req.StudentID = "stu-missing"
		if _, err := service.AddProgress(ctx, req); !errors.Is(err, ErrStudentNotFound) {
			t.Errorf("expected ErrStudentNotFound, got %v", err)
		}
	})
}

func TestProgressService_GetProgress(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an empty aggregate on first read", func(t *testing.T) {
		service, repo := newTestProgressService()

		resp, err := service.GetProgress(ctx, "stu-1", "ch-1", "sub-1")
		if err != nil {
			t.Fatalf("GetProgress failed: %v", err)
		}
		if resp.Attempts != 0 || resp.BestScore != 0 {
			t.Errorf("expected an empty aggregate, got %+v", resp.StudentProgress)
		}
		if len(repo.progress.aggregates) != 1 {
			t.Errorf("expected the empty row to be persisted, got %d rows", len(repo.progress.aggregates))
		}
	})

	t.Run("returns the stored aggregate", func(t *testing.T) {
		service, _ := newTestProgressService()

		if _, err := service.AddProgress(ctx, addProgressRequest()); err != nil {
			t.Fatalf("AddProgress failed: %v", err)
		}
		resp, err := service.GetProgress(ctx, "stu-1", "ch-1", "sub-1")
		if err != nil {
			t.Fatalf("GetProgress failed: %v", err)
		}
		if resp.BestScore != 11 {
			t.Errorf("expected best score 11, got %d", resp.BestScore)
		}
	})
}

func TestProgressService_GetAttempts(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestProgressService()

	attempts, err := service.GetAttempts(ctx, "stu-1", "ch-1")
	if err != nil {
		t.Fatalf("GetAttempts failed: %v", err)
	}
	if attempts != 0 {
		t.Errorf("expected 0 attempts before any submission, got %d", attempts)
	}

	if _, err := service.AddProgress(ctx, addProgressRequest()); err != nil {
		t.Fatalf("AddProgress failed: %v", err)
	}
	attempts, err = service.GetAttempts(ctx, "stu-1", "ch-1")
	if err != nil {
		t.Fatalf("GetAttempts failed: %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestMergeProgress(t *testing.T) {
	stored, err := json.Marshal(map[assignment.Category]assignment.CategoryScore{
		"apply": {Correct: 3, Total: 6},
	})
	if err != nil {
		t.Fatal(err)
	}

	merged, err := mergeProgress(stored, map[string]validator.CategoryTally{
		"apply":   {QuestionCount: 4, CorrectCount: 2},
		"analyse": {QuestionCount: 5, CorrectCount: 5},
	})
	if err != nil {
		t.Fatalf("mergeProgress failed: %v", err)
	}

	var out map[assignment.Category]assignment.CategoryScore
	if err := json.Unmarshal(merged, &out); err != nil {
		t.Fatal(err)
	}
	if got := out["apply"]; got.Correct != 5 || got.Total != 10 {
		t.Errorf("unexpected apply tally: %+v", got)
	}
	if got := out["analyse"]; got.Correct != 5 || got.Total != 5 {
		t.Errorf("unexpected analyse tally: %+v", got)
	}
}

func TestProgressService_Scores(t *testing.T) {
	ctx := context.Background()

	t.Run("get by session enforces ownership", func(t *testing.T) {
		service, repo := newTestProgressService()
		repo.score.scores = append(repo.score.scores, &models.ScoreRecord{
			ID: "score-1", SessionID: "sess-1", StudentID: "stu-1", ChapterID: "ch-1", Score: 30, TotalQuestions: 45,
		})

		score, err := service.GetScoreBySession(ctx, "sess-1", "stu-1")
		if err != nil {
			t.Fatalf("GetScoreBySession failed: %v", err)
		}
		if score.Score != 30 {
			t.Errorf("expected score 30, got %d", score.Score)
		}

		var permErr *PermissionError
		if _, err := service.GetScoreBySession(ctx, "sess-1", "stu-2"); !errors.As(err, &permErr) {
			t.Errorf("expected a permission error for another student, got %v", err)
		}
	})

	t.Run("get by session reports missing scores", func(t *testing.T) {
		service, _ := newTestProgressService()

		if _, err := service.GetScoreBySession(ctx, "sess-missing", "stu-1"); !errors.Is(err, ErrScoreNotFound) {
			t.Errorf("expected ErrScoreNotFound, got %v", err)
		}
	})

	t.Run("list by chapter picks the best attempt", func(t *testing.T) {
		service, repo := newTestProgressService()
		repo.score.scores = append(repo.score.scores,
			&models.ScoreRecord{ID: "score-1", SessionID: "sess-1", StudentID: "stu-1", ChapterID: "ch-1", Score: 25},
			&models.ScoreRecord{ID: "score-2", SessionID: "sess-2", StudentID: "stu-1", ChapterID: "ch-1", Score: 38},
			&models.ScoreRecord{ID: "score-3", SessionID: "sess-3", StudentID: "stu-1", ChapterID: "ch-2", Score: 44},
		)

		resp, err := service.ListScoresByChapter(ctx, "stu-1", "ch-1")
		if err != nil {
			t.Fatalf("ListScoresByChapter failed: %v", err)
		}
		if len(resp.Scores) != 2 {
			t.Errorf("expected 2 scores for the chapter, got %d", len(resp.Scores))
		}
		if resp.Best == nil || resp.Best.ID != "score-2" {
			t.Errorf("expected score-2 as best, got %+v", resp.Best)
		}
	})

	t.Run("stats are empty before any attempt", func(t *testing.T) {
		service, _ := newTestProgressService()

		stats, err := service.GetStats(ctx, "stu-1")
		if err != nil {
			t.Fatalf("GetStats failed: %v", err)
		}
		if stats.Attempts != 0 || stats.BestScore != 0 {
			t.Errorf("expected empty stats, got %+v", stats)
		}
	})
}
