package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gohanrohith/ed/internal/cache"
	"github.com/gohanrohith/ed/internal/models"
	"github.com/gohanrohith/ed/internal/repositories"
)

type ProgressPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewProgressPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ProgressRepository {
	return &ProgressPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// ===== SUMMARY ROW =====

func (p *ProgressPostgreSQL) GetByStudentChapter(ctx context.Context, tx *gorm.DB, studentID, chapterID string) (*models.StudentProgress, error) {
	db := p.getDB(tx)
	var progress models.StudentProgress
	err := db.WithContext(ctx).
		Where("student_id = ? AND chapter_id = ?", studentID, chapterID).
		First(&progress).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get student progress: %w", err)
	}
	return &progress, nil
}

func (p *ProgressPostgreSQL) ListByStudentSubject(ctx context.Context, tx *gorm.DB, studentID, subjectID string) ([]*models.StudentProgress, error) {
	db := p.getDB(tx)
	var rows []*models.StudentProgress
	err := db.WithContext(ctx).
		Where("student_id = ? AND subject_id = ?", studentID, subjectID).
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list progress by subject: %w", err)
	}
	return rows, nil
}

// Upsert writes the summary row, replacing the aggregate columns when the
// (student, chapter) pair already exists.
func (p *ProgressPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, progress *models.StudentProgress) error {
	db := p.getDB(tx)
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "student_id"}, {Name: "chapter_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"highest_level", "best_score", "attempts", "progress",
				"total_time_in_seconds", "last_attempt_at", "updated_at",
			}),
		}).
		Create(progress).Error
	if err != nil {
		return fmt.Errorf("failed to upsert student progress: %w", err)
	}

	cache.InvalidateProgressCache(ctx, p.cacheManager, progress.StudentID, progress.ChapterID)

	return nil
}

func (p *ProgressPostgreSQL) IncrementAttempts(ctx context.Context, tx *gorm.DB, studentID, chapterID string) error {
	db := p.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.StudentProgress{}).
		Where("student_id = ? AND chapter_id = ?", studentID, chapterID).
		Update("attempts", gorm.Expr("attempts + 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to increment attempts: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}

	cache.InvalidateProgressCache(ctx, p.cacheManager, studentID, chapterID)

	return nil
}

// ===== ATTEMPT LEDGER =====

func (p *ProgressPostgreSQL) CreateDetail(ctx context.Context, tx *gorm.DB, detail *models.StudentProgressDetail) error {
	db := p.getDB(tx)
	if err := db.WithContext(ctx).Create(detail).Error; err != nil {
		return fmt.Errorf("failed to create progress detail: %w", err)
	}
	return nil
}

func (p *ProgressPostgreSQL) ListDetails(ctx context.Context, tx *gorm.DB, studentID, chapterID string, limit, offset int) ([]*models.StudentProgressDetail, int64, error) {
	db := p.getDB(tx)
	query := db.WithContext(ctx).
		Model(&models.StudentProgressDetail{}).
		Where("student_id = ? AND chapter_id = ?", studentID, chapterID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count progress details: %w", err)
	}

	query = p.helpers.ApplyPaginationAndSort(query, "created_at", "desc", limit, offset)

	var details []*models.StudentProgressDetail
	if err := query.Find(&details).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list progress details: %w", err)
	}

	return details, total, nil
}

func (p *ProgressPostgreSQL) ListDetailsBySubject(ctx context.Context, tx *gorm.DB, studentID, subjectID string) ([]*models.StudentProgressDetail, error) {
	db := p.getDB(tx)
	var details []*models.StudentProgressDetail
	err := db.WithContext(ctx).
		Where("student_id = ? AND subject_id = ?", studentID, subjectID).
		Order("created_at DESC").
		Find(&details).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list progress details by subject: %w", err)
	}
	return details, nil
}

// ===== STATISTICS =====

// GetStudentStats aggregates the student's whole attempt history.
func (p *ProgressPostgreSQL) GetStudentStats(ctx context.Context, tx *gorm.DB, studentID string) (*repositories.StudentStats, error) {
	db := p.getDB(tx)

	var row struct {
		Attempts     int
		BestScore    int
		HighestLevel int
	}
	err := db.WithContext(ctx).
		Model(&models.StudentProgress{}).
		Select("COALESCE(SUM(attempts), 0) as attempts, COALESCE(MAX(best_score), 0) as best_score, COALESCE(MAX(highest_level), 0) as highest_level").
		Where("student_id = ?", studentID).
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get student stats: %w", err)
	}

	stats := &repositories.StudentStats{
		Attempts:     row.Attempts,
		BestScore:    row.BestScore,
		HighestLevel: row.HighestLevel,
	}

	// Most recent submission, if any
	var last models.ScoreRecord
	err = db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		First(&last).Error
	if err == nil {
		stats.LastScore = last.Score
		stats.LastAttempt = &last.CreatedAt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get last score: %w", err)
	}

	return stats, nil
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (p *ProgressPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return p.db
}
