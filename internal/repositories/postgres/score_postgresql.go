package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/gohanrohith/ed/internal/cache"
	"github.com/gohanrohith/ed/internal/models"
	"github.com/gohanrohith/ed/internal/repositories"
)

type ScorePostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewScorePostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ScoreRepository {
	return &ScorePostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (s *ScorePostgreSQL) Create(ctx context.Context, tx *gorm.DB, score *models.ScoreRecord) error {
	db := s.getDB(tx)
	if err := db.WithContext(ctx).Create(score).Error; err != nil {
		return fmt.Errorf("failed to create score record: %w", err)
	}

	// A new score can change the leaderboard
	cache.SafeInvalidatePattern(ctx, s.cacheManager.Stats, "topmarks:*")

	return nil
}

func (s *ScorePostgreSQL) GetBySession(ctx context.Context, tx *gorm.DB, sessionID string) (*models.ScoreRecord, error) {
	db := s.getDB(tx)
	var score models.ScoreRecord
	if err := db.WithContext(ctx).First(&score, "session_id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("score for session %s: %w", sessionID, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get score by session: %w", err)
	}
	return &score, nil
}

// ===== QUERY OPERATIONS =====

func (s *ScorePostgreSQL) ListByStudent(ctx context.Context, tx *gorm.DB, studentID string, limit, offset int) ([]*models.ScoreRecord, int64, error) {
	db := s.getDB(tx)
	query := db.WithContext(ctx).
		Model(&models.ScoreRecord{}).
		Where("student_id = ?", studentID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count score records: %w", err)
	}

	query = s.helpers.ApplyPaginationAndSort(query, "created_at", "desc", limit, offset)

	var scores []*models.ScoreRecord
	if err := query.Find(&scores).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list score records: %w", err)
	}

	return scores, total, nil
}

func (s *ScorePostgreSQL) ListByStudentChapter(ctx context.Context, tx *gorm.DB, studentID, chapterID string) ([]*models.ScoreRecord, error) {
	db := s.getDB(tx)
	var scores []*models.ScoreRecord
	err := db.WithContext(ctx).
		Where("student_id = ? AND chapter_id = ?", studentID, chapterID).
		Order("created_at DESC").
		Find(&scores).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list scores by chapter: %w", err)
	}
	return scores, nil
}

func (s *ScorePostgreSQL) GetBestByStudentChapter(ctx context.Context, tx *gorm.DB, studentID, chapterID string) (*models.ScoreRecord, error) {
	db := s.getDB(tx)
	var score models.ScoreRecord
	err := db.WithContext(ctx).
		Where("student_id = ? AND chapter_id = ?", studentID, chapterID).
		Order("score DESC, created_at ASC").
		First(&score).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get best score: %w", err)
	}
	return &score, nil
}

// GetMonthlyTopMarks returns the class leaderboard since the given time.
// One row per student taking their best score; cached with a short TTL
// because it joins across the roster.
func (s *ScorePostgreSQL) GetMonthlyTopMarks(ctx context.Context, classID string, since time.Time, limit int) ([]repositories.TopMark, error) {
	cacheKey := fmt.Sprintf("topmarks:%s:%s:%d", classID, since.Format("2006-01"), limit)
	var marks []repositories.TopMark

	err := s.cacheManager.Stats.CacheOrExecute(ctx, cacheKey, &marks, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		var rows []repositories.TopMark
		err := s.db.WithContext(ctx).
			Table("score_records sr").
			Select("DISTINCT ON (sr.student_id) sr.student_id, u.full_name, sr.chapter_id, sr.score, sr.level, sr.created_at").
			Joins("JOIN users u ON u.id = sr.student_id").
			Where("u.class_id = ? AND sr.created_at >= ?", classID, since).
			Order("sr.student_id, sr.score DESC, sr.created_at ASC").
			Find(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to get monthly top marks: %w", err)
		}

		// DISTINCT ON gives per-student bests; rank them overall
		sortTopMarks(rows)
		if limit > 0 && len(rows) > limit {
			rows = rows[:limit]
		}
		return rows, nil
	})

	return marks, err
}

// sortTopMarks orders rows highest score first, earlier submission
// breaking ties.
func sortTopMarks(marks []repositories.TopMark) {
	sort.SliceStable(marks, func(i, j int) bool {
		if marks[i].Score != marks[j].Score {
			return marks[i].Score > marks[j].Score
		}
		return marks[i].CreatedAt.Before(marks[j].CreatedAt)
	})
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (s *ScorePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}
