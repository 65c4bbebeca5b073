package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/gohanrohith/ed/internal/cache"
	"github.com/gohanrohith/ed/internal/models"
	"github.com/gohanrohith/ed/internal/repositories"
)

type CurriculumPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewCurriculumPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.CurriculumRepository {
	return &CurriculumPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// ===== CLASSES =====

func (c *CurriculumPostgreSQL) GetClass(ctx context.Context, tx *gorm.DB, id string) (*models.Class, error) {
	db := c.getDB(tx)
	var class models.Class
	if err := db.WithContext(ctx).First(&class, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("class %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get class: %w", err)
	}
	return &class, nil
}

func (c *CurriculumPostgreSQL) ListClasses(ctx context.Context, tx *gorm.DB) ([]*models.Class, error) {
	db := c.getDB(tx)
	var classes []*models.Class
	if err := db.WithContext(ctx).Order("name ASC").Find(&classes).Error; err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}
	return classes, nil
}

// ===== SUBJECTS =====

func (c *CurriculumPostgreSQL) GetSubject(ctx context.Context, tx *gorm.DB, id string) (*models.Subject, error) {
	db := c.getDB(tx)
	var subject models.Subject
	if err := db.WithContext(ctx).First(&subject, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("subject %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get subject: %w", err)
	}
	return &subject, nil
}

// ListSubjectsByClass resolves a class's subjects through the mapping
// table, cached
func (c *CurriculumPostgreSQL) ListSubjectsByClass(ctx context.Context, classID string) ([]*models.Subject, error) {
	cacheKey := fmt.Sprintf("class:%s:subjects", classID)
	var subjects []*models.Subject

	err := c.cacheManager.Curriculum.CacheOrExecute(ctx, cacheKey, &subjects, cache.CurriculumCacheConfig.TTL, func() (interface{}, error) {
		var dbSubjects []*models.Subject
		err := c.db.WithContext(ctx).
			Joins("JOIN class_subjects cs ON cs.subject_id = subjects.id").
			Where("cs.class_id = ?", classID).
			Order("subjects.name ASC").
			Find(&dbSubjects).Error
		if err != nil {
			return nil, fmt.Errorf("failed to list subjects by class: %w", err)
		}
		return dbSubjects, nil
	})

	return subjects, err
}

// ===== CHAPTERS =====

func (c *CurriculumPostgreSQL) GetChapter(ctx context.Context, tx *gorm.DB, id string) (*models.Chapter, error) {
	db := c.getDB(tx)
	var chapter models.Chapter
	if err := db.WithContext(ctx).First(&chapter, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("chapter %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}
	return &chapter, nil
}

func (c *CurriculumPostgreSQL) ListChaptersBySubject(ctx context.Context, subjectID string) ([]*models.Chapter, error) {
	cacheKey := fmt.Sprintf("subject:%s:chapters", subjectID)
	var chapters []*models.Chapter

	err := c.cacheManager.Curriculum.CacheOrExecute(ctx, cacheKey, &chapters, cache.CurriculumCacheConfig.TTL, func() (interface{}, error) {
		var dbChapters []*models.Chapter
		err := c.db.WithContext(ctx).
			Where("subject_id = ?", subjectID).
			Order("number ASC, name ASC").
			Find(&dbChapters).Error
		if err != nil {
			return nil, fmt.Errorf("failed to list chapters by subject: %w", err)
		}
		return dbChapters, nil
	})

	return chapters, err
}

func (c *CurriculumPostgreSQL) CreateChapter(ctx context.Context, tx *gorm.DB, chapter *models.Chapter) error {
	db := c.getDB(tx)
	if err := db.WithContext(ctx).Create(chapter).Error; err != nil {
		return fmt.Errorf("failed to create chapter: %w", err)
	}

	if err := c.cacheManager.InvalidateCurriculum(ctx, "", chapter.SubjectID); err != nil {
		return err
	}

	return nil
}

func (c *CurriculumPostgreSQL) UpdateChapter(ctx context.Context, tx *gorm.DB, chapter *models.Chapter) error {
	db := c.getDB(tx)
	if err := db.WithContext(ctx).Save(chapter).Error; err != nil {
		return fmt.Errorf("failed to update chapter: %w", err)
	}

	if err := c.cacheManager.InvalidateCurriculum(ctx, "", chapter.SubjectID); err != nil {
		return err
	}

	return nil
}

func (c *CurriculumPostgreSQL) DeleteChapter(ctx context.Context, tx *gorm.DB, id string) error {
	db := c.getDB(tx)

	var chapter models.Chapter
	if err := db.WithContext(ctx).Select("id, subject_id").First(&chapter, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("chapter %s: %w", id, repositories.ErrNotFound)
		}
		return fmt.Errorf("failed to get chapter before delete: %w", err)
	}

	if err := db.WithContext(ctx).Delete(&models.Chapter{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete chapter: %w", err)
	}

	if err := c.cacheManager.InvalidateCurriculum(ctx, "", chapter.SubjectID); err != nil {
		return err
	}
	if err := c.cacheManager.InvalidateChapterPool(ctx, id); err != nil {
		return err
	}

	return nil
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (c *CurriculumPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return c.db
}
