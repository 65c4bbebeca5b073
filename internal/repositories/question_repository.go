package repositories

import (
	"context"

	"github.com/gohanrohith/ed/internal/assignment"
	"github.com/gohanrohith/ed/internal/models"
	"gorm.io/gorm"
)

// QuestionRepository interface for chapter question operations
type QuestionRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, question *models.ChapterQuestion) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.ChapterQuestion, error)
	Update(ctx context.Context, tx *gorm.DB, question *models.ChapterQuestion) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error

	// Bulk operations
	CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.ChapterQuestion) error

	// Query operations
	List(ctx context.Context, tx *gorm.DB, filters QuestionFilters) ([]*models.ChapterQuestion, int64, error)
	ListByChapterCategory(ctx context.Context, tx *gorm.DB, chapterID string, category assignment.Category) ([]*models.ChapterQuestion, error)
	CountByChapter(ctx context.Context, tx *gorm.DB, chapterID string) (map[assignment.Category]int64, error)

	// GetPool returns every question of a chapter grouped by cognitive
	// category, converted to the form the assembly engine consumes.
	// Results are cached; writes through Create/Update/Delete invalidate.
	GetPool(ctx context.Context, chapterID string) (map[assignment.Category][]assignment.RawQuestion, error)

	// Statistics
	GetBankStats(ctx context.Context, tx *gorm.DB, chapterID string) (*BankStats, error)
}
