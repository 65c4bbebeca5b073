package models

import (
	"time"

	"gorm.io/datatypes"
)

// StudentProgress is the rolling per-student-per-chapter aggregate. One
// row per (student, chapter); created on first read if absent and folded
// forward on every submission.
type StudentProgress struct {
	ID        string `json:"id" gorm:"primaryKey;size:255"`
	StudentID string `json:"student_id" gorm:"not null;uniqueIndex:idx_student_chapter;size:255"`
	SubjectID string `json:"subject_id" gorm:"not null;index;size:255"`
	ChapterID string `json:"chapter_id" gorm:"not null;uniqueIndex:idx_student_chapter;size:255"`

	HighestLevel int `json:"highest_level" gorm:"default:0"`
	BestScore    int `json:"best_score" gorm:"default:0"`
	Attempts     int `json:"attempts" gorm:"default:0"`

	// Cumulative per-category tallies across attempts.
	Progress datatypes.JSON `json:"progress" gorm:"type:jsonb"` // map[assignment.Category]assignment.CategoryScore

	TotalTimeInSeconds int        `json:"total_time_in_seconds" gorm:"default:0"`
	LastAttemptAt      *time.Time `json:"last_attempt_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Student User    `json:"student" gorm:"foreignKey:StudentID"`
	Chapter Chapter `json:"chapter" gorm:"foreignKey:ChapterID"`
}

func (StudentProgress) TableName() string {
	return "student_progress"
}

// StudentProgressDetail is the append-only activity ledger: one row per
// submission, feeding the recent-activity and per-chapter detail views.
type StudentProgressDetail struct {
	ID        string `json:"id" gorm:"primaryKey;size:255"`
	StudentID string `json:"student_id" gorm:"not null;index;size:255"`
	SubjectID string `json:"subject_id" gorm:"not null;size:255"`
	ChapterID string `json:"chapter_id" gorm:"not null;index;size:255"`
	Level     int    `json:"level" gorm:"not null"`

	Progress           datatypes.JSON `json:"progress" gorm:"type:jsonb"` // map[assignment.Category]assignment.CategoryScore
	TotalTimeInSeconds int            `json:"total_time_in_seconds"`

	CreatedAt time.Time `json:"created_at"`

	// Relations
	Student User    `json:"student" gorm:"foreignKey:StudentID"`
	Chapter Chapter `json:"chapter" gorm:"foreignKey:ChapterID"`
}

func (StudentProgressDetail) TableName() string {
	return "student_progress_details"
}
