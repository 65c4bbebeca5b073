package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/gohanrohith/ed/internal/assignment"
	"github.com/gohanrohith/ed/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// IsNotFoundError reports whether err means a missing record, regardless
// of which repository produced it.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// ===== SHARED FILTER STRUCTS =====

type SessionFilters struct {
	Status    *models.SessionStatus `json:"status"`
	ChapterID *string               `json:"chapter_id"`
	DateFrom  *time.Time            `json:"date_from"`
	DateTo    *time.Time            `json:"date_to"`
	Limit     int                   `json:"limit"`
	Offset    int                   `json:"offset"`
	SortBy    string                `json:"sort_by"`    // "created_at", "score", "level"
	SortOrder string                `json:"sort_order"` // "asc", "desc"
}

type QuestionFilters struct {
	ChapterID *string              `json:"chapter_id"`
	Category  *assignment.Category `json:"category"`
	Kind      *models.QuestionKind `json:"kind"`
	CreatedBy *string              `json:"created_by"`
	Limit     int                  `json:"limit"`
	Offset    int                  `json:"offset"`
	SortBy    string               `json:"sort_by"`
	SortOrder string               `json:"sort_order"`
}

// ===== SHARED STATISTICS STRUCTS =====

// TopMark is one row of the monthly leaderboard.
type TopMark struct {
	StudentID string    `json:"studentId"`
	FullName  string    `json:"fullName"`
	ChapterID string    `json:"chapterId"`
	Score     int       `json:"score"`
	Level     int       `json:"level"`
	CreatedAt time.Time `json:"createdAt"`
}

// BankStats summarizes one chapter's question bank per category.
type BankStats struct {
	ChapterID       string                        `json:"chapter_id"`
	TotalQuestions  int64                         `json:"total_questions"`
	ByCategory      map[assignment.Category]int64 `json:"by_category"`
	ComprehensionCt int64                         `json:"comprehension_count"`
}

// StudentStats summarizes one student's attempt history for a chapter.
type StudentStats struct {
	Attempts     int        `json:"attempts"`
	BestScore    int        `json:"best_score"`
	LastScore    int        `json:"last_score"`
	HighestLevel int        `json:"highest_level"`
	LastAttempt  *time.Time `json:"last_attempt"`
}
