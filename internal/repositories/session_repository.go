package repositories

import (
	"context"
	"time"

	"github.com/gohanrohith/ed/internal/models"
	"gorm.io/gorm"
)

// SessionRepository interface for assignment session persistence
type SessionRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, session *models.AssignmentSessionRecord) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.AssignmentSessionRecord, error)
	Update(ctx context.Context, tx *gorm.DB, session *models.AssignmentSessionRecord) error

	// Query operations
	List(ctx context.Context, tx *gorm.DB, studentID string, filters SessionFilters) ([]*models.AssignmentSessionRecord, int64, error)
	GetActiveByStudent(ctx context.Context, tx *gorm.DB, studentID, chapterID string) (*models.AssignmentSessionRecord, error)
	CountByStudentChapter(ctx context.Context, tx *gorm.DB, studentID, chapterID string) (int64, error)

	// Maintenance
	MarkAbandonedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// ScoreRepository interface for score history operations
type ScoreRepository interface {
	Create(ctx context.Context, tx *gorm.DB, score *models.ScoreRecord) error
	GetBySession(ctx context.Context, tx *gorm.DB, sessionID string) (*models.ScoreRecord, error)

	// Query operations
	ListByStudent(ctx context.Context, tx *gorm.DB, studentID string, limit, offset int) ([]*models.ScoreRecord, int64, error)
	ListByStudentChapter(ctx context.Context, tx *gorm.DB, studentID, chapterID string) ([]*models.ScoreRecord, error)
	GetBestByStudentChapter(ctx context.Context, tx *gorm.DB, studentID, chapterID string) (*models.ScoreRecord, error)

	// Leaderboard; results are cached with a short TTL.
	GetMonthlyTopMarks(ctx context.Context, classID string, since time.Time, limit int) ([]TopMark, error)
}
