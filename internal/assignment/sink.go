package assignment

import (
	"context"
	"time"
)

// Identity names who is taking the assignment and against which piece of
// the curriculum. Passed in explicitly at session start instead of read
// from ambient state.
type Identity struct {
	StudentID string `json:"studentId"`
	SubjectID string `json:"subjectId"`
	ChapterID string `json:"chapterId"`
}

// Clock supplies the current time. Injected so session timing is testable.
type Clock func() time.Time

// SessionStart is the record emitted when a session is assembled and
// handed to the student.
type SessionStart struct {
	SessionID     string `json:"sessionId"`
	StudentID     string `json:"studentId"`
	SubjectID     string `json:"subjectId"`
	ChapterID     string `json:"chapterId"`
	Level         int    `json:"level"`
	QuestionCount int    `json:"questionCount"`
}

// ScoreSummary is the compact result record emitted at submission.
type ScoreSummary struct {
	StudentID    string           `json:"studentId"`
	ChapterID    string           `json:"chapterId"`
	Level        int              `json:"level"`
	Score        int              `json:"score"`
	ScoreByLevel map[Category]int `json:"scoreByLevel"`
	TimeTaken    int              `json:"timeTaken"`
}

// ProgressReport is the per-category breakdown emitted at submission.
type ProgressReport struct {
	StudentID          string                     `json:"studentId"`
	SubjectID          string                     `json:"subjectId"`
	ChapterID          string                     `json:"chapterId"`
	Level              int                        `json:"level"`
	Progress           map[Category]CategoryScore `json:"progress"`
	TotalTimeInSeconds int                        `json:"totalTimeInSeconds"`
}

// ResultsSink receives the session lifecycle records. Delivery is
// fire-and-forget from the session's point of view: errors are logged by
// the runner and never fail a start or a submit.
type ResultsSink interface {
	RecordStart(ctx context.Context, start SessionStart) error
	RecordScore(ctx context.Context, summary ScoreSummary) error
	RecordProgress(ctx context.Context, report ProgressReport) error
}
