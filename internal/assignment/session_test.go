package assignment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"
)

type recordingSink struct {
	starts      []SessionStart
	summaries   []ScoreSummary
	reports     []ProgressReport
	startErr    error
	scoreErr    error
	progressErr error
}

func (s *recordingSink) RecordStart(_ context.Context, start SessionStart) error {
	s.starts = append(s.starts, start)
	return s.startErr
}

func (s *recordingSink) RecordScore(_ context.Context, summary ScoreSummary) error {
	s.summaries = append(s.summaries, summary)
	return s.scoreErr
}

func (s *recordingSink) RecordProgress(_ context.Context, report ProgressReport) error {
	s.reports = append(s.reports, report)
	return s.progressErr
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestRunner(cfg Config, seed int64, sink ResultsSink, clock *fakeClock) *Runner {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRunner(cfg, rand.New(rand.NewSource(seed)), clock.Now, sink, logger)
}

func testIdentity() Identity {
	return Identity{StudentID: "student-1", SubjectID: "subject-1", ChapterID: "chapter-1"}
}

func fullPools(correct OptionKey, perCategory int) map[Category][]RawQuestion {
	pools := make(map[Category][]RawQuestion)
	for _, c := range Categories() {
		pools[c] = standardPool(c, perCategory, correct)
	}
	return pools
}

func TestGradeSingleAnswer(t *testing.T) {
	q := PooledQuestion{
		Question: RawQuestion{CorrectAnswers: []OptionKey{"B"}},
		Category: Remember,
		Mode:     ModeStandard,
	}
	tests := []struct {
		name   string
		answer []OptionKey
		want   bool
	}{
		{name: "exact match", answer: []OptionKey{"B"}, want: true},
		{name: "wrong option", answer: []OptionKey{"A"}, want: false},
		{name: "unanswered", answer: nil, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answers := map[int][]OptionKey{}
			if tt.answer != nil {
				answers[0] = tt.answer
			}
			breakdown := Grade([]PooledQuestion{q}, answers)
			got := breakdown.TotalCorrect == 1
			if got != tt.want {
				t.Errorf("correct = %v, want %v", got, tt.want)
			}
			if breakdown.ByCategory[Remember].Total != 1 {
				t.Errorf("total = %d, want 1", breakdown.ByCategory[Remember].Total)
			}
		})
	}
}

func TestGradeMultiAnswer(t *testing.T) {
	q := PooledQuestion{
		Question: RawQuestion{CorrectAnswers: []OptionKey{"A", "C"}},
		Category: Apply,
		Mode:     ModeStandard,
	}
	tests := []struct {
		name   string
		answer []OptionKey
		want   bool
	}{
		{name: "exact set", answer: []OptionKey{"A", "C"}, want: true},
		{name: "order independent", answer: []OptionKey{"C", "A"}, want: true},
		{name: "missing member", answer: []OptionKey{"A"}, want: false},
		{name: "extra member", answer: []OptionKey{"A", "C", "D"}, want: false},
		{name: "duplicate does not fake the set", answer: []OptionKey{"A", "A"}, want: false},
		{name: "empty", answer: []OptionKey{}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breakdown := Grade([]PooledQuestion{q}, map[int][]OptionKey{0: tt.answer})
			if got := breakdown.TotalCorrect == 1; got != tt.want {
				t.Errorf("correct = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGradeDragDropUsesFirstAnswer(t *testing.T) {
	q := PooledQuestion{
		Question: RawQuestion{CorrectAnswers: []OptionKey{"D"}},
		Category: Evaluate,
		Mode:     ModeDragDrop,
	}
	if got := Grade([]PooledQuestion{q}, map[int][]OptionKey{0: {"D"}}); got.TotalCorrect != 1 {
		t.Errorf("drag-and-drop correct answer scored %d, want 1", got.TotalCorrect)
	}
	if got := Grade([]PooledQuestion{q}, map[int][]OptionKey{0: {"A"}}); got.TotalCorrect != 0 {
		t.Errorf("drag-and-drop wrong answer scored %d, want 0", got.TotalCorrect)
	}
}

func TestStartSession(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	sink := &recordingSink{}
	runner := newTestRunner(DefaultConfig(), 7, sink, clock)

	s, err := runner.Start(context.Background(), "session-1", testIdentity(), 3, fullPools("A", 12))
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if len(s.Questions) != 45 {
		t.Errorf("questions = %d, want 45", len(s.Questions))
	}
	if s.Remaining != 300 {
		t.Errorf("remaining = %d, want 300", s.Remaining)
	}
	if s.Status != StatusInProgress {
		t.Errorf("status = %s, want in_progress", s.Status)
	}
	if !s.StartedAt.Equal(clock.now) {
		t.Errorf("startedAt = %v, want %v", s.StartedAt, clock.now)
	}
	if len(s.Shortfall) != 0 {
		t.Errorf("unexpected shortfall: %v", s.Shortfall)
	}
	if len(sink.starts) != 1 {
		t.Fatalf("start records = %d, want 1", len(sink.starts))
	}
	start := sink.starts[0]
	if start.SessionID != "session-1" || start.StudentID != "student-1" {
		t.Errorf("start record = %+v, want session-1 for student-1", start)
	}
	if start.Level != 3 || start.QuestionCount != 45 {
		t.Errorf("start record = %+v, want level 3 with 45 questions", start)
	}
}

func TestStartSinkFailureDoesNotFailStart(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	sink := &recordingSink{startErr: errors.New("broker down")}
	runner := newTestRunner(DefaultConfig(), 7, sink, clock)

	s, err := runner.Start(context.Background(), "session-1", testIdentity(), 3, fullPools("A", 12))
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if s.Status != StatusInProgress {
		t.Errorf("status = %s, want in_progress", s.Status)
	}
}

func TestStartInvalidLevel(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	runner := newTestRunner(DefaultConfig(), 7, &recordingSink{}, clock)
	if _, err := runner.Start(context.Background(), "session-1", testIdentity(), 9, fullPools("A", 12)); !errors.Is(err, ErrInvalidLevel) {
		t.Errorf("Start(level 9) error = %v, want ErrInvalidLevel", err)
	}
}

func TestSelectAnswer(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	runner := newTestRunner(DefaultConfig(), 7, &recordingSink{}, clock)
	s, _ := runner.Start(context.Background(), "session-1", testIdentity(), 3, fullPools("A", 12))

	if err := runner.SelectAnswer(s, 0, []OptionKey{"B"}); err != nil {
		t.Fatalf("SelectAnswer() error: %v", err)
	}
	if err := runner.SelectAnswer(s, 0, []OptionKey{"C"}); err != nil {
		t.Fatalf("SelectAnswer() overwrite error: %v", err)
	}
	if got := s.Answers[0]; len(got) != 1 || got[0] != "C" {
		t.Errorf("answer = %v, want [C]", got)
	}
	if err := runner.SelectAnswer(s, 45, []OptionKey{"A"}); !errors.Is(err, ErrInvalidQuestionIndex) {
		t.Errorf("out-of-range index error = %v, want ErrInvalidQuestionIndex", err)
	}

	if _, err := runner.Submit(context.Background(), s); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if err := runner.SelectAnswer(s, 1, []OptionKey{"A"}); !errors.Is(err, ErrSessionNotActive) {
		t.Errorf("answer after submit error = %v, want ErrSessionNotActive", err)
	}
}

func TestNavigatePageClamps(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	runner := newTestRunner(DefaultConfig(), 7, &recordingSink{}, clock)
	s, _ := runner.Start(context.Background(), "session-1", testIdentity(), 3, fullPools("A", 12))

	if got := runner.NavigatePage(s, -1); got != 0 {
		t.Errorf("navigate below first page = %d, want 0", got)
	}
	if got := runner.NavigatePage(s, 100); got != 8 {
		t.Errorf("navigate past last page = %d, want 8", got)
	}
	if got := runner.NavigatePage(s, -2); got != 6 {
		t.Errorf("navigate back two = %d, want 6", got)
	}
	questions, start := runner.PageQuestions(s)
	if len(questions) != 5 || start != 30 {
		t.Errorf("page 6 slice = %d questions from %d, want 5 from 30", len(questions), start)
	}
}

func TestTimeoutAutoSubmit(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	sink := &recordingSink{}
	runner := newTestRunner(DefaultConfig(), 7, sink, clock)
	s, _ := runner.Start(context.Background(), "session-1", testIdentity(), 3, fullPools("A", 12))
	for i := range s.Questions {
		_ = runner.SelectAnswer(s, i, []OptionKey{"A"})
	}
	s.Remaining = 1

	clock.Advance(299 * time.Second)
	if err := runner.Tick(context.Background(), s); err != nil {
		t.Fatalf("Tick() error: %v", err)
	}
	if s.Status != StatusSubmitted {
		t.Fatalf("status after final tick = %s, want submitted", s.Status)
	}
	if s.Score == nil || s.Score.TotalCorrect != 45 {
		t.Errorf("score = %+v, want 45 correct", s.Score)
	}
	if len(sink.summaries) != 1 || sink.summaries[0].TimeTaken != 300 {
		t.Errorf("summaries = %+v, want one with timeTaken 300", sink.summaries)
	}
}

func TestDoubleSubmitIdempotent(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	sink := &recordingSink{}
	runner := newTestRunner(DefaultConfig(), 7, sink, clock)
	s, _ := runner.Start(context.Background(), "session-1", testIdentity(), 3, fullPools("A", 12))

	first, err := runner.Submit(context.Background(), s)
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	endedAt := s.EndedAt

	clock.Advance(10 * time.Second)
	second, err := runner.Submit(context.Background(), s)
	if err != nil {
		t.Fatalf("second Submit() error: %v", err)
	}
	if second != first {
		t.Errorf("second submit produced a new breakdown")
	}
	if !s.EndedAt.Equal(endedAt) {
		t.Errorf("endedAt changed on second submit: %v -> %v", endedAt, s.EndedAt)
	}
	if len(sink.summaries) != 1 || len(sink.reports) != 1 {
		t.Errorf("sink called %d/%d times, want exactly once each", len(sink.summaries), len(sink.reports))
	}

	// A late timer tick must not re-enter submission either.
	if err := runner.Tick(context.Background(), s); err != nil {
		t.Fatalf("Tick() after submit error: %v", err)
	}
	if len(sink.summaries) != 1 {
		t.Errorf("late tick re-submitted the session")
	}
}

func TestSubmitSurvivesSinkFailure(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	sink := &recordingSink{scoreErr: errors.New("broker down"), progressErr: errors.New("broker down")}
	runner := newTestRunner(DefaultConfig(), 7, sink, clock)
	s, _ := runner.Start(context.Background(), "session-1", testIdentity(), 2, fullPools("A", 12))

	breakdown, err := runner.Submit(context.Background(), s)
	if err != nil {
		t.Fatalf("Submit() returned error on sink failure: %v", err)
	}
	if breakdown == nil || s.Status != StatusSubmitted {
		t.Errorf("submission did not complete locally despite sink failure")
	}
}

func TestToggleSolutions(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	runner := newTestRunner(DefaultConfig(), 7, &recordingSink{}, clock)
	s, _ := runner.Start(context.Background(), "session-1", testIdentity(), 1, fullPools("A", 20))

	if err := runner.ToggleSolutions(s); !errors.Is(err, ErrSessionNotSubmitted) {
		t.Errorf("toggle before submit error = %v, want ErrSessionNotSubmitted", err)
	}
	_, _ = runner.Submit(context.Background(), s)
	if err := runner.ToggleSolutions(s); err != nil {
		t.Fatalf("ToggleSolutions() error: %v", err)
	}
	if !s.ShowSolutions {
		t.Errorf("showSolutions not flipped on")
	}
	_ = runner.ToggleSolutions(s)
	if s.ShowSolutions {
		t.Errorf("showSolutions not flipped back off")
	}
}

func TestEndToEndLevelThree(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	sink := &recordingSink{}
	runner := newTestRunner(DefaultConfig(), 11, sink, clock)

	s, err := runner.Start(context.Background(), "session-1", testIdentity(), 3, fullPools("B", 9))
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if len(s.Questions) != 45 {
		t.Fatalf("questions = %d, want 45", len(s.Questions))
	}
	perCategory := make(map[Category]int)
	for i, q := range s.Questions {
		perCategory[q.Category]++
		if err := runner.SelectAnswer(s, i, []OptionKey{q.Question.CorrectAnswers[0]}); err != nil {
			t.Fatalf("SelectAnswer(%d) error: %v", i, err)
		}
	}
	for _, c := range Categories() {
		if perCategory[c] != 9 {
			t.Errorf("category %s appears %d times, want 9", c, perCategory[c])
		}
	}

	clock.Advance(120 * time.Second)
	s.Remaining = 180
	breakdown, err := runner.Submit(context.Background(), s)
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if breakdown.TotalCorrect != 45 {
		t.Errorf("totalCorrect = %d, want 45", breakdown.TotalCorrect)
	}
	for _, c := range Categories() {
		if got := breakdown.ByCategory[c]; got.Correct != 9 || got.Total != 9 {
			t.Errorf("category %s = %+v, want 9/9", c, got)
		}
	}
	if len(sink.summaries) != 1 {
		t.Fatalf("expected one score summary, got %d", len(sink.summaries))
	}
	summary := sink.summaries[0]
	if summary.Score != 45 || summary.Level != 3 || summary.TimeTaken != 120 {
		t.Errorf("summary = %+v, want score 45 level 3 timeTaken 120", summary)
	}
	report := sink.reports[0]
	if report.SubjectID != "subject-1" || report.Progress[Analyse].Correct != 9 {
		t.Errorf("report = %+v", report)
	}
}
