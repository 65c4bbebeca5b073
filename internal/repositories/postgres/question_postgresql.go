package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/gohanrohith/ed/internal/assignment"
	"github.com/gohanrohith/ed/internal/cache"
	"github.com/gohanrohith/ed/internal/models"
	"github.com/gohanrohith/ed/internal/repositories"
)

type QuestionPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewQuestionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// ===== BASIC CRUD OPERATIONS =====

// Create creates a new question and invalidates the chapter pool
func (q *QuestionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, question *models.ChapterQuestion) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}

	cache.InvalidateQuestionCache(ctx, q.cacheManager, question.ID, question.ChapterID)

	return nil
}

// GetByID retrieves a question by ID with caching
func (q *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.ChapterQuestion, error) {
	db := q.getDB(tx)
	cacheKey := fmt.Sprintf("id:%s", id)
	var question models.ChapterQuestion

	err := q.cacheManager.Question.CacheOrExecute(ctx, cacheKey, &question, cache.QuestionCacheConfig.TTL, func() (interface{}, error) {
		var dbQuestion models.ChapterQuestion
		if err := db.WithContext(ctx).First(&dbQuestion, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("question %s: %w", id, repositories.ErrNotFound)
			}
			return nil, fmt.Errorf("failed to get question: %w", err)
		}
		return &dbQuestion, nil
	})

	if err != nil {
		return nil, err
	}

	return &question, nil
}

// Update updates a question and invalidates its chapter pool
func (q *QuestionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, question *models.ChapterQuestion) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Save(question).Error; err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}

	cache.InvalidateQuestionCache(ctx, q.cacheManager, question.ID, question.ChapterID)

	return nil
}

// Delete removes a question
func (q *QuestionPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	db := q.getDB(tx)

	// Get chapter info before deleting for cache invalidation
	var question models.ChapterQuestion
	if err := db.WithContext(ctx).Select("id, chapter_id").First(&question, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("question %s: %w", id, repositories.ErrNotFound)
		}
		return fmt.Errorf("failed to get question before delete: %w", err)
	}

	if err := db.WithContext(ctx).Delete(&models.ChapterQuestion{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}

	cache.InvalidateQuestionCache(ctx, q.cacheManager, id, question.ChapterID)

	return nil
}

// ===== BULK OPERATIONS =====

// CreateBatch creates multiple questions in a batch
func (q *QuestionPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.ChapterQuestion) error {
	if len(questions) == 0 {
		return nil
	}

	db := q.getDB(tx)
	if err := db.WithContext(ctx).CreateInBatches(questions, 100).Error; err != nil {
		return fmt.Errorf("failed to create questions batch: %w", err)
	}

	// One invalidation per distinct chapter
	chapters := make(map[string]bool)
	for _, question := range questions {
		if !chapters[question.ChapterID] {
			chapters[question.ChapterID] = true
			if err := q.cacheManager.InvalidateChapterPool(ctx, question.ChapterID); err != nil {
				return err
			}
		}
	}

	return nil
}


// ===== QUERY OPERATIONS =====

// List retrieves questions with filtering and pagination
func (q *QuestionPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.QuestionFilters) ([]*models.ChapterQuestion, int64, error) {
	db := q.getDB(tx)
	query := db.WithContext(ctx).Model(&models.ChapterQuestion{})

	// Apply filters
	query = q.helpers.ApplyQuestionFilters(query, filters)

	// Count total records
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count questions: %w", err)
	}

	// Apply pagination and sorting
	query = q.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var questions []*models.ChapterQuestion
	if err := query.Find(&questions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list questions: %w", err)
	}

	return questions, total, nil
}

// ListByChapterCategory retrieves one category bank of a chapter, cached
func (q *QuestionPostgreSQL) ListByChapterCategory(ctx context.Context, tx *gorm.DB, chapterID string, category assignment.Category) ([]*models.ChapterQuestion, error) {
	db := q.getDB(tx)
	cacheKey := fmt.Sprintf("chapter:%s:category:%s", chapterID, category)
	var questions []*models.ChapterQuestion

	err := q.cacheManager.Question.CacheOrExecute(ctx, cacheKey, &questions, cache.QuestionCacheConfig.TTL, func() (interface{}, error) {
		var dbQuestions []*models.ChapterQuestion
		if err := db.WithContext(ctx).
			Where("chapter_id = ? AND category = ?", chapterID, category).
			Order("created_at ASC").
			Find(&dbQuestions).Error; err != nil {
			return nil, fmt.Errorf("failed to list questions by chapter and category: %w", err)
		}
		return dbQuestions, nil
	})

	return questions, err
}

// CountByChapter returns per-category question counts for a chapter
func (q *QuestionPostgreSQL) CountByChapter(ctx context.Context, tx *gorm.DB, chapterID string) (map[assignment.Category]int64, error) {
	db := q.getDB(tx)

	var results []struct {
		Category assignment.Category
		Count    int64
	}
	if err := db.WithContext(ctx).
		Model(&models.ChapterQuestion{}).
		Select("category, COUNT(*) as count").
		Where("chapter_id = ?", chapterID).
		Group("category").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count questions by chapter: %w", err)
	}

	counts := make(map[assignment.Category]int64, len(results))
	for _, result := range results {
		counts[result.Category] = result.Count
	}

	return counts, nil
}

// GetPool loads the full question bank of a chapter grouped by category,
// in the shape the assembly engine consumes. The whole pool is cached as
// one entry; bank writes invalidate it.
func (q *QuestionPostgreSQL) GetPool(ctx context.Context, chapterID string) (map[assignment.Category][]assignment.RawQuestion, error) {
	cacheKey := fmt.Sprintf("chapter:%s:all", chapterID)
	var pool map[assignment.Category][]assignment.RawQuestion

	err := q.cacheManager.Pool.CacheOrExecute(ctx, cacheKey, &pool, cache.PoolCacheConfig.TTL, func() (interface{}, error) {
		var rows []*models.ChapterQuestion
		if err := q.db.WithContext(ctx).
			Where("chapter_id = ?", chapterID).
			Order("created_at ASC").
			Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to load question pool: %w", err)
		}

		dbPool := make(map[assignment.Category][]assignment.RawQuestion)
		for _, row := range rows {
			raw, err := row.ToRaw()
			if err != nil {
				return nil, err
			}
			dbPool[row.Category] = append(dbPool[row.Category], raw)
		}
		return dbPool, nil
	})

	if err != nil {
		return nil, err
	}

	return pool, nil
}

// ===== STATISTICS =====

// GetBankStats summarizes a chapter's question bank
func (q *QuestionPostgreSQL) GetBankStats(ctx context.Context, tx *gorm.DB, chapterID string) (*repositories.BankStats, error) {
	db := q.getDB(tx)

	counts, err := q.CountByChapter(ctx, tx, chapterID)
	if err != nil {
		return nil, err
	}

	stats := &repositories.BankStats{
		ChapterID:  chapterID,
		ByCategory: counts,
	}
	for _, count := range counts {
		stats.TotalQuestions += count
	}

	if err := db.WithContext(ctx).
		Model(&models.ChapterQuestion{}).
		Where("chapter_id = ? AND kind = ?", chapterID, models.KindComprehension).
		Count(&stats.ComprehensionCt).Error; err != nil {
		return nil, fmt.Errorf("failed to count comprehension questions: %w", err)
	}

	return stats, nil
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (q *QuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}
