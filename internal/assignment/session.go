package assignment

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// Config carries the tunable session constants. The defaults reproduce
// the production configuration.
type Config struct {
	TotalQuestions int
	PageSize       int
	DragDropCount  int
	TimerSeconds   int
}

func DefaultConfig() Config {
	return Config{
		TotalQuestions: 45,
		PageSize:       5,
		DragDropCount:  5,
		TimerSeconds:   300,
	}
}

// Status is the lifecycle state of a session.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusSubmitted  Status = "submitted"
)

// Session is the mutable aggregate for one assignment attempt. It is
// owned by a single Runner and never shared between goroutines; the
// service layer serializes access per session.
type Session struct {
	ID            string
	Identity      Identity
	Level         LevelConfig
	Questions     []PooledQuestion
	Answers       map[int][]OptionKey
	Page          int
	Remaining     int
	StartedAt     time.Time
	EndedAt       time.Time
	Status        Status
	ShowSolutions bool
	Score         *ScoreBreakdown
	Shortfall     Shortfall
}

// PageCount returns how many pages the session paginates into.
func (s *Session) PageCount(pageSize int) int {
	if pageSize <= 0 || len(s.Questions) == 0 {
		return 1
	}
	return (len(s.Questions) + pageSize - 1) / pageSize
}

// Runner drives sessions through their state machine. Randomness, time
// and result delivery are all injected.
type Runner struct {
	cfg    Config
	rng    *rand.Rand
	clock  Clock
	sink   ResultsSink
	logger *slog.Logger
}

func NewRunner(cfg Config, rng *rand.Rand, clock Clock, sink ResultsSink, logger *slog.Logger) *Runner {
	if clock == nil {
		clock = time.Now
	}
	return &Runner{cfg: cfg, rng: rng, clock: clock, sink: sink, logger: logger}
}

func (r *Runner) Config() Config {
	return r.cfg
}

// Start builds a fresh session for the given level from the supplied
// per-category pools. Pools smaller than their quota shorten the session;
// the deficit is logged and recorded on the session, never fatal.
func (r *Runner) Start(ctx context.Context, id string, identity Identity, level int, pools map[Category][]RawQuestion) (*Session, error) {
	cfg, err := LevelFor(level)
	if err != nil {
		return nil, err
	}
	quotas, err := Distribute(cfg.Weights, r.cfg.TotalQuestions)
	if err != nil {
		return nil, fmt.Errorf("distribute level %d quotas: %w", level, err)
	}
	questions, shortfall := Assemble(quotas, pools, r.cfg.DragDropCount, r.rng)
	if len(shortfall) > 0 {
		r.logger.Warn("question pool shortfall",
			slog.String("session_id", id),
			slog.String("chapter_id", identity.ChapterID),
			slog.Int("level", level),
			slog.Any("shortfall", shortfall))
	}
	s := &Session{
		ID:        id,
		Identity:  identity,
		Level:     cfg,
		Questions: questions,
		Answers:   make(map[int][]OptionKey),
		Remaining: r.cfg.TimerSeconds,
		StartedAt: r.clock(),
		Status:    StatusInProgress,
		Shortfall: shortfall,
	}
	r.emitStart(ctx, s)
	return s, nil
}

// emitStart announces the new session to the sink. Like the submission
// records, delivery failures are logged and never fail the start.
func (r *Runner) emitStart(ctx context.Context, s *Session) {
	if r.sink == nil {
		return
	}
	start := SessionStart{
		SessionID:     s.ID,
		StudentID:     s.Identity.StudentID,
		SubjectID:     s.Identity.SubjectID,
		ChapterID:     s.Identity.ChapterID,
		Level:         s.Level.Number,
		QuestionCount: len(s.Questions),
	}
	if err := r.sink.RecordStart(ctx, start); err != nil {
		r.logger.Error("failed to record session start",
			slog.String("session_id", s.ID),
			slog.String("student_id", s.Identity.StudentID),
			slog.Any("error", err))
	}
}

// SelectAnswer records the student's answer for one question, replacing
// any earlier choice. Answers are not graded here.
func (r *Runner) SelectAnswer(s *Session, index int, answer []OptionKey) error {
	if s.Status != StatusInProgress {
		return ErrSessionNotActive
	}
	if index < 0 || index >= len(s.Questions) {
		return fmt.Errorf("%w: %d", ErrInvalidQuestionIndex, index)
	}
	s.Answers[index] = append([]OptionKey(nil), answer...)
	return nil
}

// NavigatePage moves the current page by delta, clamped to the valid
// range. No effect on answers or the timer.
func (r *Runner) NavigatePage(s *Session, delta int) int {
	page := s.Page + delta
	if page < 0 {
		page = 0
	}
	if last := s.PageCount(r.cfg.PageSize) - 1; page > last {
		page = last
	}
	s.Page = page
	return page
}

// PageQuestions returns the slice of questions on the session's current
// page along with the index of its first question.
func (r *Runner) PageQuestions(s *Session) ([]PooledQuestion, int) {
	start := s.Page * r.cfg.PageSize
	if start >= len(s.Questions) {
		return nil, start
	}
	end := start + r.cfg.PageSize
	if end > len(s.Questions) {
		end = len(s.Questions)
	}
	return s.Questions[start:end], start
}

// Tick advances the countdown by one second. Reaching zero forces a
// submit. Ticks after submission are no-ops, so a late timer callback can
// never re-submit.
func (r *Runner) Tick(ctx context.Context, s *Session) error {
	if s.Status != StatusInProgress {
		return nil
	}
	s.Remaining--
	if s.Remaining > 0 {
		return nil
	}
	s.Remaining = 0
	_, err := r.Submit(ctx, s)
	return err
}

// Submit grades the session and emits both result records. Calling it on
// an already-submitted session returns the existing breakdown unchanged;
// the status latch is what guards the timer-versus-manual-submit race.
func (r *Runner) Submit(ctx context.Context, s *Session) (*ScoreBreakdown, error) {
	if s.Status == StatusSubmitted {
		return s.Score, nil
	}
	breakdown := Grade(s.Questions, s.Answers)
	s.Score = &breakdown
	s.EndedAt = r.clock()
	s.Status = StatusSubmitted

	timeTaken := r.cfg.TimerSeconds - s.Remaining
	r.emitResults(ctx, s, breakdown, timeTaken)
	return s.Score, nil
}

// ToggleSolutions flips the review-mode flag. Only meaningful once the
// session is graded.
func (r *Runner) ToggleSolutions(s *Session) error {
	if s.Status != StatusSubmitted {
		return ErrSessionNotSubmitted
	}
	s.ShowSolutions = !s.ShowSolutions
	return nil
}

// emitResults delivers both submission records to the sink. Failures are
// logged and swallowed: the student sees the score regardless of whether
// delivery succeeded.
func (r *Runner) emitResults(ctx context.Context, s *Session, breakdown ScoreBreakdown, timeTaken int) {
	if r.sink == nil {
		return
	}
	scoreByLevel := make(map[Category]int, len(breakdown.ByCategory))
	for c, cs := range breakdown.ByCategory {
		scoreByLevel[c] = cs.Correct
	}
	summary := ScoreSummary{
		StudentID:    s.Identity.StudentID,
		ChapterID:    s.Identity.ChapterID,
		Level:        s.Level.Number,
		Score:        breakdown.TotalCorrect,
		ScoreByLevel: scoreByLevel,
		TimeTaken:    timeTaken,
	}
	if err := r.sink.RecordScore(ctx, summary); err != nil {
		r.logger.Error("failed to record score summary",
			slog.String("session_id", s.ID),
			slog.String("student_id", s.Identity.StudentID),
			slog.Any("error", err))
	}
	report := ProgressReport{
		StudentID:          s.Identity.StudentID,
		SubjectID:          s.Identity.SubjectID,
		ChapterID:          s.Identity.ChapterID,
		Level:              s.Level.Number,
		Progress:           breakdown.ByCategory,
		TotalTimeInSeconds: timeTaken,
	}
	if err := r.sink.RecordProgress(ctx, report); err != nil {
		r.logger.Error("failed to record progress breakdown",
			slog.String("session_id", s.ID),
			slog.String("student_id", s.Identity.StudentID),
			slog.Any("error", err))
	}
}
