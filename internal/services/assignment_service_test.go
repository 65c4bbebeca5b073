package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/gohanrohith/ed/internal/assignment"
	"github.com/gohanrohith/ed/internal/models"
	"github.com/gohanrohith/ed/internal/repositories"
	"github.com/gohanrohith/ed/internal/validator"
)

// ===== MOCK REPOSITORIES =====

type mockSessionRepo struct {
	sessions map[string]*models.AssignmentSessionRecord
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*models.AssignmentSessionRecord)}
}

func (m *mockSessionRepo) Create(ctx context.Context, tx *gorm.DB, session *models.AssignmentSessionRecord) error {
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.AssignmentSessionRecord, error) {
	session, ok := m.sessions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return session, nil
}

func (m *mockSessionRepo) Update(ctx context.Context, tx *gorm.DB, session *models.AssignmentSessionRecord) error {
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionRepo) List(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.SessionFilters) ([]*models.AssignmentSessionRecord, int64, error) {
	var out []*models.AssignmentSessionRecord
	for _, s := range m.sessions {
		if s.StudentID == studentID {
			out = append(out, s)
		}
	}
	return out, int64(len(out)), nil
}

func (m *mockSessionRepo) GetActiveByStudent(ctx context.Context, tx *gorm.DB, studentID, chapterID string) (*models.AssignmentSessionRecord, error) {
	for _, s := range m.sessions {
		if s.StudentID == studentID && s.ChapterID == chapterID && s.Status == models.SessionInProgress {
			return s, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *mockSessionRepo) CountByStudentChapter(ctx context.Context, tx *gorm.DB, studentID, chapterID string) (int64, error) {
	var n int64
	for _, s := range m.sessions {
		if s.StudentID == studentID && s.ChapterID == chapterID {
			n++
		}
	}
	return n, nil
}

func (m *mockSessionRepo) MarkAbandonedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	var count int64
	for _, s := range m.sessions {
		if s.Status == models.SessionInProgress && s.StartedAt.Before(cutoff) {
			s.Status = models.SessionAbandoned
			reason := models.SessionEndReasonTimeout
			s.EndReason = &reason
			count++
		}
	}
	return count, nil
}

type mockQuestionRepo struct {
	pool      map[assignment.Category][]assignment.RawQuestion
	questions map[string]*models.ChapterQuestion
}

func (m *mockQuestionRepo) Create(ctx context.Context, tx *gorm.DB, question *models.ChapterQuestion) error {
	m.questions[question.ID] = question
	return nil
}
func (m *mockQuestionRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.ChapterQuestion, error) {
	question, ok := m.questions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return question, nil
}
func (m *mockQuestionRepo) Update(ctx context.Context, tx *gorm.DB, question *models.ChapterQuestion) error {
	m.questions[question.ID] = question
	return nil
}
func (m *mockQuestionRepo) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	delete(m.questions, id)
	return nil
}
func (m *mockQuestionRepo) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.ChapterQuestion) error {
	for _, q := range questions {
		m.questions[q.ID] = q
	}
	return nil
}
func (m *mockQuestionRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.QuestionFilters) ([]*models.ChapterQuestion, int64, error) {
	return nil, 0, nil
}
func (m *mockQuestionRepo) ListByChapterCategory(ctx context.Context, tx *gorm.DB, chapterID string, category assignment.Category) ([]*models.ChapterQuestion, error) {
	var out []*models.ChapterQuestion
	for _, q := range m.questions {
		if q.ChapterID == chapterID && q.Category == category {
			out = append(out, q)
		}
	}
	return out, nil
}
func (m *mockQuestionRepo) CountByChapter(ctx context.Context, tx *gorm.DB, chapterID string) (map[assignment.Category]int64, error) {
	return nil, nil
}
func (m *mockQuestionRepo) GetPool(ctx context.Context, chapterID string) (map[assignment.Category][]assignment.RawQuestion, error) {
	return m.pool, nil
}
func (m *mockQuestionRepo) GetBankStats(ctx context.Context, tx *gorm.DB, chapterID string) (*repositories.BankStats, error) {
	return nil, repositories.ErrNotFound
}

type mockCurriculumRepo struct {
	classes  map[string]*models.Class
	subjects map[string]*models.Subject
	chapters map[string]*models.Chapter

	// class -> subjects, for the class/subject join
	classSubjects map[string][]*models.Subject
}

func (m *mockCurriculumRepo) GetClass(ctx context.Context, tx *gorm.DB, id string) (*models.Class, error) {
	class, ok := m.classes[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return class, nil
}
func (m *mockCurriculumRepo) ListClasses(ctx context.Context, tx *gorm.DB) ([]*models.Class, error) {
	return nil, nil
}
func (m *mockCurriculumRepo) GetSubject(ctx context.Context, tx *gorm.DB, id string) (*models.Subject, error) {
	subject, ok := m.subjects[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return subject, nil
}
func (m *mockCurriculumRepo) ListSubjectsByClass(ctx context.Context, classID string) ([]*models.Subject, error) {
	return m.classSubjects[classID], nil
}
func (m *mockCurriculumRepo) GetChapter(ctx context.Context, tx *gorm.DB, id string) (*models.Chapter, error) {
	chapter, ok := m.chapters[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return chapter, nil
}
func (m *mockCurriculumRepo) ListChaptersBySubject(ctx context.Context, subjectID string) ([]*models.Chapter, error) {
	var out []*models.Chapter
	for _, c := range m.chapters {
		if c.SubjectID == subjectID {
			out = append(out, c)
		}
	}
	return out, nil
}
func (m *mockCurriculumRepo) CreateChapter(ctx context.Context, tx *gorm.DB, chapter *models.Chapter) error {
	m.chapters[chapter.ID] = chapter
	return nil
}
func (m *mockCurriculumRepo) UpdateChapter(ctx context.Context, tx *gorm.DB, chapter *models.Chapter) error {
	m.chapters[chapter.ID] = chapter
	return nil
}
func (m *mockCurriculumRepo) DeleteChapter(ctx context.Context, tx *gorm.DB, id string) error {
	delete(m.chapters, id)
	return nil
}

type mockScoreRepo struct {
	scores []*models.ScoreRecord
}

func (m *mockScoreRepo) Create(ctx context.Context, tx *gorm.DB, score *models.ScoreRecord) error {
	m.scores = append(m.scores, score)
	return nil
}
func (m *mockScoreRepo) GetBySession(ctx context.Context, tx *gorm.DB, sessionID string) (*models.ScoreRecord, error) {
	for _, s := range m.scores {
		if s.SessionID == sessionID {
			return s, nil
		}
	}
	return nil, repositories.ErrNotFound
}
func (m *mockScoreRepo) ListByStudent(ctx context.Context, tx *gorm.DB, studentID string, limit, offset int) ([]*models.ScoreRecord, int64, error) {
	var out []*models.ScoreRecord
	for _, s := range m.scores {
		if s.StudentID == studentID {
			out = append(out, s)
		}
	}
	return out, int64(len(out)), nil
}
func (m *mockScoreRepo) ListByStudentChapter(ctx context.Context, tx *gorm.DB, studentID, chapterID string) ([]*models.ScoreRecord, error) {
	var out []*models.ScoreRecord
	for _, s := range m.scores {
		if s.StudentID == studentID && s.ChapterID == chapterID {
			out = append(out, s)
		}
	}
	return out, nil
}
func (m *mockScoreRepo) GetBestByStudentChapter(ctx context.Context, tx *gorm.DB, studentID, chapterID string) (*models.ScoreRecord, error) {
	var best *models.ScoreRecord
	for _, s := range m.scores {
		if s.StudentID == studentID && s.ChapterID == chapterID {
			if best == nil || s.Score > best.Score {
				best = s
			}
		}
	}
	if best == nil {
		return nil, repositories.ErrNotFound
	}
	return best, nil
}
func (m *mockScoreRepo) GetMonthlyTopMarks(ctx context.Context, classID string, since time.Time, limit int) ([]repositories.TopMark, error) {
	return nil, nil
}

type mockRepo struct {
	session    *mockSessionRepo
	question   *mockQuestionRepo
	curriculum *mockCurriculumRepo
	score      *mockScoreRepo
	progress   *mockProgressRepo
	user       repositories.UserRepository
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		session:    newMockSessionRepo(),
		question: &mockQuestionRepo{
			pool:      make(map[assignment.Category][]assignment.RawQuestion),
			questions: make(map[string]*models.ChapterQuestion),
		},
		curriculum: &mockCurriculumRepo{
			classes:       make(map[string]*models.Class),
			subjects:      make(map[string]*models.Subject),
			chapters:      make(map[string]*models.Chapter),
			classSubjects: make(map[string][]*models.Subject),
		},
		score:      &mockScoreRepo{},
		progress:   newMockProgressRepo(),
		user:       newMockUserRepo(),
	}
}

func (m *mockRepo) Question() repositories.QuestionRepository     { return m.question }
func (m *mockRepo) Session() repositories.SessionRepository       { return m.session }
func (m *mockRepo) Score() repositories.ScoreRepository           { return m.score }
func (m *mockRepo) Progress() repositories.ProgressRepository     { return m.progress }
func (m *mockRepo) Curriculum() repositories.CurriculumRepository { return m.curriculum }
func (m *mockRepo) User() repositories.UserRepository             { return m.user }
func (m *mockRepo) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}
func (m *mockRepo) Ping(ctx context.Context) error { return nil }
func (m *mockRepo) Close() error                   { return nil }

// ===== FIXTURES =====

// testPool builds a bank with n standard questions per category, all with
// correct answer "A".
func testPool(n int) map[assignment.Category][]assignment.RawQuestion {
	pool := make(map[assignment.Category][]assignment.RawQuestion)
	for _, c := range assignment.Categories() {
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("%s-%d", c, i)
			pool[c] = append(pool[c], assignment.RawQuestion{
				ID:   id,
				Text: "Question " + id,
				Options: map[assignment.OptionKey]assignment.Option{
					"A": {Text: "first"},
					"B": {Text: "second"},
					"C": {Text: "third"},
					"D": {Text: "fourth"},
				},
				CorrectAnswers: []assignment.OptionKey{"A"},
			})
		}
	}
	return pool
}

type assignmentFixture struct {
	service AssignmentService
	repo    *mockRepo
	now     *time.Time
}

func newAssignmentFixture(pool map[assignment.Category][]assignment.RawQuestion) *assignmentFixture {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	repo := newMockRepo()
	repo.curriculum.chapters["ch-1"] = &models.Chapter{ID: "ch-1", SubjectID: "sub-1", Name: "Fractions"}
	repo.question.pool = pool

	runner := assignment.NewRunner(assignment.DefaultConfig(), rand.New(rand.NewSource(1)), clock, nil, logger)
	service := NewAssignmentService(repo, nil, logger, validator.New(), runner, clock)

	return &assignmentFixture{service: service, repo: repo, now: &now}
}

func (f *assignmentFixture) advance(d time.Duration) {
	*f.now = f.now.Add(d)
}

func startRequest() *StartSessionRequest {
	return &StartSessionRequest{
		StudentID: "stu-1",
		SubjectID: "sub-1",
		ChapterID: "ch-1",
		Level:     1,
	}
}

// ===== TESTS =====

func TestAssignmentService_Start(t *testing.T) {
	ctx := context.Background()

	t.Run("assembles a full session", func(t *testing.T) {
		f := newAssignmentFixture(testPool(45))

		resp, err := f.service.Start(ctx, startRequest())
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if resp.TotalQuestions != 45 {
			t.Errorf("expected 45 questions, got %d", resp.TotalQuestions)
		}
		if resp.Remaining != 300 {
			t.Errorf("expected 300s remaining, got %d", resp.Remaining)
		}
		if resp.Status != models.SessionInProgress {
			t.Errorf("expected in_progress, got %s", resp.Status)
		}
		if len(resp.Questions) != 5 {
			t.Errorf("expected first page of 5 questions, got %d", len(resp.Questions))
		}
		if resp.PageCount != 9 {
			t.Errorf("expected 9 pages, got %d", resp.PageCount)
		}
		if len(resp.Shortfall) != 0 {
			t.Errorf("expected no shortfall, got %v", resp.Shortfall)
		}
		for _, q := range resp.Questions {
			if len(q.CorrectAnswers) != 0 || q.Solution != "" {
				t.Errorf("question %d leaked its answer key before review", q.Index)
			}
		}
		if len(f.repo.session.sessions) != 1 {
			t.Errorf("expected 1 persisted session, got %d", len(f.repo.session.sessions))
		}
	})

	t.Run("records the shortfall on thin banks", func(t *testing.T) {
		f := newAssignmentFixture(testPool(3))

		resp, err := f.service.Start(ctx, startRequest())
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if resp.TotalQuestions >= 45 {
			t.Errorf("expected a shortened session, got %d questions", resp.TotalQuestions)
		}
		if len(resp.Shortfall) == 0 {
			t.Error("expected a recorded shortfall")
		}
	})

	t.Run("missing chapter", func(t *testing.T) {
		f := newAssignmentFixture(testPool(45))

		req := startRequest()
		req.ChapterID = "ch-missing"
		if _, err := f.service.Start(ctx, req); !errors.Is(err, ErrChapterNotFound) {
			t.Errorf("expected ErrChapterNotFound, got %v", err)
		}
	})

	t.Run("empty question pool", func(t *testing.T) {
		f := newAssignmentFixture(nil)

		if _, err := f.service.Start(ctx, startRequest()); !errors.Is(err, ErrEmptyQuestionPool) {
			t.Errorf("expected ErrEmptyQuestionPool, got %v", err)
		}
	})

	t.Run("resumes the active session", func(t *testing.T) {
		f := newAssignmentFixture(testPool(45))

		first, err := f.service.Start(ctx, startRequest())
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		second, err := f.service.Start(ctx, startRequest())
		if err != nil {
			t.Fatalf("second Start failed: %v", err)
		}
		if first.SessionID != second.SessionID {
			t.Errorf("expected the same session, got %s and %s", first.SessionID, second.SessionID)
		}
		if len(f.repo.session.sessions) != 1 {
			t.Errorf("expected 1 persisted session, got %d", len(f.repo.session.sessions))
		}
	})

	t.Run("rejects an unknown level", func(t *testing.T) {
		f := newAssignmentFixture(testPool(45))

		req := startRequest()
		req.Level = 9
		if _, err := f.service.Start(ctx, req); err == nil {
			t.Error("expected a validation error for level 9")
		}
	})
}

func TestAssignmentService_Retake(t *testing.T) {
	ctx := context.Background()

	t.Run("abandons the active session and starts fresh", func(t *testing.T) {
		f := newAssignmentFixture(testPool(45))

		first, err := f.service.Start(ctx, startRequest())
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		req := startRequest()
		req.Level = 2
		second, err := f.service.Retake(ctx, req)
		if err != nil {
			t.Fatalf("Retake failed: %v", err)
		}
		if second.SessionID == first.SessionID {
			t.Error("retake resumed the old session instead of replacing it")
		}

		old := f.repo.session.sessions[first.SessionID]
		if old.Status != models.SessionAbandoned {
			t.Errorf("old session status = %s, want abandoned", old.Status)
		}
		if old.EndReason == nil || *old.EndReason != models.SessionEndReasonRetake {
			t.Errorf("old session end reason = %v, want retake", old.EndReason)
		}
		if old.EndedAt == nil {
			t.Error("old session has no ended_at")
		}
		if fresh := f.repo.session.sessions[second.SessionID]; fresh.Level != 2 {
			t.Errorf("new session level = %d, want 2", fresh.Level)
		}
		if len(f.repo.session.sessions) != 2 {
			t.Errorf("expected 2 persisted sessions, got %d", len(f.repo.session.sessions))
		}
	})

	t.Run("without an active session behaves like start", func(t *testing.T) {
		f := newAssignmentFixture(testPool(45))

		resp, err := f.service.Retake(ctx, startRequest())
		if err != nil {
			t.Fatalf("Retake failed: %v", err)
		}
		if resp.TotalQuestions != 45 {
			t.Errorf("expected 45 questions, got %d", resp.TotalQuestions)
		}
		if len(f.repo.session.sessions) != 1 {
			t.Errorf("expected 1 persisted session, got %d", len(f.repo.session.sessions))
		}
	})
}

func TestAssignmentService_AbandonStale(t *testing.T) {
	ctx := context.Background()

	t.Run("marks day-old sessions abandoned", func(t *testing.T) {
		f := newAssignmentFixture(testPool(45))

		resp, err := f.service.Start(ctx, startRequest())
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		f.advance(25 * time.Hour)
		count, err := f.service.AbandonStale(ctx, 24*time.Hour)
		if err != nil {
			t.Fatalf("AbandonStale failed: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 abandoned session, got %d", count)
		}
		if got := f.repo.session.sessions[resp.SessionID].Status; got != models.SessionAbandoned {
			t.Errorf("session status = %s, want abandoned", got)
		}
	})

	t.Run("leaves fresh sessions alone", func(t *testing.T) {
		f := newAssignmentFixture(testPool(45))

		if _, err := f.service.Start(ctx, startRequest()); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		count, err := f.service.AbandonStale(ctx, 24*time.Hour)
		if err != nil {
			t.Fatalf("AbandonStale failed: %v", err)
		}
		if count != 0 {
			t.Errorf("expected no abandoned sessions, got %d", count)
		}
	})
}

func TestAssignmentService_SelectAnswer(t *testing.T) {
	ctx := context.Background()
	f := newAssignmentFixture(testPool(45))

	resp, err := f.service.Start(ctx, startRequest())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	t.Run("records and persists the answer", func(t *testing.T) {
		req := &AnswerRequest{QuestionIndex: 0, Answer: []string{"A"}}
		if err := f.service.SelectAnswer(ctx, resp.SessionID, req, "stu-1"); err != nil {
			t.Fatalf("SelectAnswer failed: %v", err)
		}

		record := f.repo.session.sessions[resp.SessionID]
		answers := make(map[int][]assignment.OptionKey)
		if err := json.Unmarshal(record.Answers, &answers); err != nil {
			t.Fatalf("failed to decode persisted answers: %v", err)
		}
		if len(answers[0]) != 1 || answers[0][0] != "A" {
			t.Errorf("expected answer [A] at index 0, got %v", answers[0])
		}
	})

	t.Run("replaces an earlier answer", func(t *testing.T) {
		req := &AnswerRequest{QuestionIndex: 0, Answer: []string{"B"}}
		if err := f.service.SelectAnswer(ctx, resp.SessionID, req, "stu-1"); err != nil {
			t.Fatalf("SelectAnswer failed: %v", err)
		}

		record := f.repo.session.sessions[resp.SessionID]
		answers := make(map[int][]assignment.OptionKey)
		if err := json.Unmarshal(record.Answers, &answers); err != nil {
			t.Fatalf("failed to decode persisted answers: %v", err)
		}
		if len(answers[0]) != 1 || answers[0][0] != "B" {
			t.Errorf("expected answer [B] at index 0, got %v", answers[0])
		}
	})

	t.Run("rejects an out-of-range index", func(t *testing.T) {
		req := &AnswerRequest{QuestionIndex: 45, Answer: []string{"A"}}
		err := f.service.SelectAnswer(ctx, resp.SessionID, req, "stu-1")
		if !errors.Is(err, assignment.ErrInvalidQuestionIndex) {
			t.Errorf("expected ErrInvalidQuestionIndex, got %v", err)
		}
	})

	t.Run("rejects another student", func(t *testing.T) {
		req := &AnswerRequest{QuestionIndex: 0, Answer: []string{"A"}}
		err := f.service.SelectAnswer(ctx, resp.SessionID, req, "stu-2")
		var permErr *PermissionError
		if !errors.As(err, &permErr) {
			t.Errorf("expected a permission error, got %v", err)
		}
	})
}

func TestAssignmentService_Navigate(t *testing.T) {
	ctx := context.Background()
	f := newAssignmentFixture(testPool(45))

	resp, err := f.service.Start(ctx, startRequest())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	t.Run("moves forward", func(t *testing.T) {
		page, err := f.service.Navigate(ctx, resp.SessionID, &NavigateRequest{Direction: 1}, "stu-1")
		if err != nil {
			t.Fatalf("Navigate failed: %v", err)
		}
		if page.Page != 1 {
			t.Errorf("expected page 1, got %d", page.Page)
		}
		if len(page.Questions) != 5 {
			t.Errorf("expected 5 questions on page 1, got %d", len(page.Questions))
		}
		if page.Questions[0].Index != 5 {
			t.Errorf("expected page to start at index 5, got %d", page.Questions[0].Index)
		}
	})

	t.Run("clamps at the first page", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			if _, err := f.service.Navigate(ctx, resp.SessionID, &NavigateRequest{Direction: -1}, "stu-1"); err != nil {
				t.Fatalf("Navigate failed: %v", err)
			}
		}
		record := f.repo.session.sessions[resp.SessionID]
		if record.Page != 0 {
			t.Errorf("expected page clamped to 0, got %d", record.Page)
		}
	})
}

func TestAssignmentService_Submit(t *testing.T) {
	ctx := context.Background()
	f := newAssignmentFixture(testPool(45))

	resp, err := f.service.Start(ctx, startRequest())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Two correct answers, one wrong.
	for index, key := range map[int]string{0: "A", 1: "A", 2: "B"} {
		req := &AnswerRequest{QuestionIndex: index, Answer: []string{key}}
		if err := f.service.SelectAnswer(ctx, resp.SessionID, req, "stu-1"); err != nil {
			t.Fatalf("SelectAnswer failed: %v", err)
		}
	}

	t.Run("result is unavailable before submission", func(t *testing.T) {
		if _, err := f.service.GetResult(ctx, resp.SessionID, "stu-1"); !errors.Is(err, ErrSessionNotSubmitted) {
			t.Errorf("expected ErrSessionNotSubmitted, got %v", err)
		}
	})

	f.advance(60 * time.Second)

	t.Run("grades and persists the score", func(t *testing.T) {
		result, err := f.service.Submit(ctx, resp.SessionID, "stu-1")
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		if result.Score != 2 {
			t.Errorf("expected score 2, got %d", result.Score)
		}
		if result.TotalQuestions != 45 {
			t.Errorf("expected 45 total questions, got %d", result.TotalQuestions)
		}
		if result.TimeTaken != 60 {
			t.Errorf("expected 60s taken, got %d", result.TimeTaken)
		}
		if len(f.repo.score.scores) != 1 {
			t.Fatalf("expected 1 score record, got %d", len(f.repo.score.scores))
		}
		if f.repo.score.scores[0].Score != 2 {
			t.Errorf("expected persisted score 2, got %d", f.repo.score.scores[0].Score)
		}
	})

	t.Run("submitting twice returns the recorded result", func(t *testing.T) {
		result, err := f.service.Submit(ctx, resp.SessionID, "stu-1")
		if err != nil {
			t.Fatalf("second Submit failed: %v", err)
		}
		if result.Score != 2 {
			t.Errorf("expected score 2, got %d", result.Score)
		}
		if len(f.repo.score.scores) != 1 {
			t.Errorf("expected 1 score record after resubmit, got %d", len(f.repo.score.scores))
		}
	})

	t.Run("result matches the submission", func(t *testing.T) {
		result, err := f.service.GetResult(ctx, resp.SessionID, "stu-1")
		if err != nil {
			t.Fatalf("GetResult failed: %v", err)
		}
		if result.Score != 2 || result.TimeTaken != 60 {
			t.Errorf("unexpected result: score %d, time %d", result.Score, result.TimeTaken)
		}
	})

	t.Run("review shows answer keys after submission", func(t *testing.T) {
		session, err := f.service.ToggleSolutions(ctx, resp.SessionID, "stu-1")
		if err != nil {
			t.Fatalf("ToggleSolutions failed: %v", err)
		}
		if !session.ShowSolutions {
			t.Error("expected review mode on")
		}
		if len(session.Questions) == 0 || len(session.Questions[0].CorrectAnswers) == 0 {
			t.Error("expected correct answers in review mode")
		}
	})
}

func TestAssignmentService_SyncTime(t *testing.T) {
	ctx := context.Background()

	t.Run("reports the server-side countdown", func(t *testing.T) {
		f := newAssignmentFixture(testPool(45))
		resp, err := f.service.Start(ctx, startRequest())
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		f.advance(100 * time.Second)
		sync, err := f.service.SyncTime(ctx, resp.SessionID, "stu-1")
		if err != nil {
			t.Fatalf("SyncTime failed: %v", err)
		}
		if sync.Remaining != 200 {
			t.Errorf("expected 200s remaining, got %d", sync.Remaining)
		}
		if sync.Expired {
			t.Error("session should not be expired")
		}
	})

	t.Run("expiry force-submits the session", func(t *testing.T) {
		f := newAssignmentFixture(testPool(45))
		resp, err := f.service.Start(ctx, startRequest())
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		f.advance(301 * time.Second)
		sync, err := f.service.SyncTime(ctx, resp.SessionID, "stu-1")
		if err != nil {
			t.Fatalf("SyncTime failed: %v", err)
		}
		if !sync.Expired {
			t.Error("expected the session to be expired")
		}
		if sync.Status != models.SessionSubmitted {
			t.Errorf("expected submitted status, got %s", sync.Status)
		}

		record := f.repo.session.sessions[resp.SessionID]
		if record.EndReason == nil || *record.EndReason != models.SessionEndReasonTimeout {
			t.Errorf("expected time_out end reason, got %v", record.EndReason)
		}
		if record.TimeTaken == nil || *record.TimeTaken != 300 {
			t.Errorf("expected full timer taken, got %v", record.TimeTaken)
		}
		if len(f.repo.score.scores) != 1 {
			t.Errorf("expected 1 score record after auto-submit, got %d", len(f.repo.score.scores))
		}
	})

	t.Run("a late read discovers the expiry", func(t *testing.T) {
		f := newAssignmentFixture(testPool(45))
		resp, err := f.service.Start(ctx, startRequest())
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		f.advance(10 * time.Minute)
		session, err := f.service.Get(ctx, resp.SessionID, "stu-1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if session.Status != models.SessionSubmitted {
			t.Errorf("expected submitted status, got %s", session.Status)
		}
	})
}
