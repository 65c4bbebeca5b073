package repositories

import (
	"context"

	"github.com/gohanrohith/ed/internal/models"
	"gorm.io/gorm"
)

// CurriculumRepository interface for class, subject and chapter reads.
// The hierarchy changes rarely, so reads go through the curriculum cache.
type CurriculumRepository interface {
	// Classes
	GetClass(ctx context.Context, tx *gorm.DB, id string) (*models.Class, error)
	ListClasses(ctx context.Context, tx *gorm.DB) ([]*models.Class, error)

	// Subjects
	GetSubject(ctx context.Context, tx *gorm.DB, id string) (*models.Subject, error)
	ListSubjectsByClass(ctx context.Context, classID string) ([]*models.Subject, error)

	// Chapters
	GetChapter(ctx context.Context, tx *gorm.DB, id string) (*models.Chapter, error)
	ListChaptersBySubject(ctx context.Context, subjectID string) ([]*models.Chapter, error)
	CreateChapter(ctx context.Context, tx *gorm.DB, chapter *models.Chapter) error
	UpdateChapter(ctx context.Context, tx *gorm.DB, chapter *models.Chapter) error
	DeleteChapter(ctx context.Context, tx *gorm.DB, id string) error
}
