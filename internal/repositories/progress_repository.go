package repositories

import (
	"context"

	"github.com/gohanrohith/ed/internal/models"
	"gorm.io/gorm"
)

// ProgressRepository interface for per-chapter progress tracking
type ProgressRepository interface {
	// Summary row, one per (student, chapter)
	GetByStudentChapter(ctx context.Context, tx *gorm.DB, studentID, chapterID string) (*models.StudentProgress, error)
	ListByStudentSubject(ctx context.Context, tx *gorm.DB, studentID, subjectID string) ([]*models.StudentProgress, error)
	Upsert(ctx context.Context, tx *gorm.DB, progress *models.StudentProgress) error
	IncrementAttempts(ctx context.Context, tx *gorm.DB, studentID, chapterID string) error

	// Append-only attempt ledger
	CreateDetail(ctx context.Context, tx *gorm.DB, detail *models.StudentProgressDetail) error
	ListDetails(ctx context.Context, tx *gorm.DB, studentID, chapterID string, limit, offset int) ([]*models.StudentProgressDetail, int64, error)
	ListDetailsBySubject(ctx context.Context, tx *gorm.DB, studentID, subjectID string) ([]*models.StudentProgressDetail, error)

	// Statistics
	GetStudentStats(ctx context.Context, tx *gorm.DB, studentID string) (*StudentStats, error)
}
