package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/gohanrohith/ed/internal/models"
	"github.com/gohanrohith/ed/internal/repositories"
)

type SessionPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewSessionPostgreSQL(db *gorm.DB) repositories.SessionRepository {
	return &SessionPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

// ===== BASIC CRUD OPERATIONS =====

func (s *SessionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, session *models.AssignmentSessionRecord) error {
	db := s.getDB(tx)
	if err := db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *SessionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.AssignmentSessionRecord, error) {
	db := s.getDB(tx)
	var session models.AssignmentSessionRecord
	if err := db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

func (s *SessionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, session *models.AssignmentSessionRecord) error {
	db := s.getDB(tx)
	if err := db.WithContext(ctx).Save(session).Error; err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

// ===== QUERY OPERATIONS =====

// List retrieves a student's sessions with filtering and pagination
func (s *SessionPostgreSQL) List(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.SessionFilters) ([]*models.AssignmentSessionRecord, int64, error) {
	db := s.getDB(tx)
	query := db.WithContext(ctx).
		Model(&models.AssignmentSessionRecord{}).
		Where("student_id = ?", studentID)

	query = s.helpers.ApplySessionFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	query = s.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var sessions []*models.AssignmentSessionRecord
	if err := query.Find(&sessions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	return sessions, total, nil
}

// GetActiveByStudent returns the student's in-progress session for a
// chapter, if one exists. At most one can be active per chapter.
func (s *SessionPostgreSQL) GetActiveByStudent(ctx context.Context, tx *gorm.DB, studentID, chapterID string) (*models.AssignmentSessionRecord, error) {
	db := s.getDB(tx)
	var session models.AssignmentSessionRecord
	err := db.WithContext(ctx).
		Where("student_id = ? AND chapter_id = ? AND status = ?",
			studentID, chapterID, models.SessionInProgress).
		Order("created_at DESC").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	return &session, nil
}

func (s *SessionPostgreSQL) CountByStudentChapter(ctx context.Context, tx *gorm.DB, studentID, chapterID string) (int64, error) {
	db := s.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.AssignmentSessionRecord{}).
		Where("student_id = ? AND chapter_id = ?", studentID, chapterID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

// ===== MAINTENANCE =====

// MarkAbandonedBefore flips stale in-progress sessions to abandoned.
// Runs from the janitor goroutine; returns how many rows changed.
func (s *SessionPostgreSQL) MarkAbandonedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	db := s.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.AssignmentSessionRecord{}).
		Where("status = ? AND created_at < ?", models.SessionInProgress, cutoff).
		Update("status", models.SessionAbandoned)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark abandoned sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (s *SessionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}
