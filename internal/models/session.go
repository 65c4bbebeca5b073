package models

import (
	"time"

	"gorm.io/datatypes"
)

type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionSubmitted  SessionStatus = "submitted"
	SessionAbandoned  SessionStatus = "abandoned"
)

const (
	SessionEndReasonTimeout = "time_out"
	SessionEndReasonRetake  = "retake"
)

// AssignmentSessionRecord is the persisted snapshot of one assignment
// attempt. The assembled question sequence and the answer map are stored
// as JSONB so the engine state survives process restarts.
type AssignmentSessionRecord struct {
	ID        string `json:"id" gorm:"primaryKey;size:255"`
	StudentID string `json:"student_id" gorm:"not null;index;size:255"`
	SubjectID string `json:"subject_id" gorm:"not null;size:255"`
	ChapterID string `json:"chapter_id" gorm:"not null;index;size:255"`
	Level     int    `json:"level" gorm:"not null"`

	Status    SessionStatus `json:"status" gorm:"default:in_progress;index"`
	EndReason *string       `json:"end_reason" gorm:"size:50"`

	// Engine state
	Questions datatypes.JSON `json:"questions" gorm:"type:jsonb"` // []assignment.PooledQuestion
	Answers   datatypes.JSON `json:"answers" gorm:"type:jsonb"`   // map[int][]assignment.OptionKey
	Shortfall datatypes.JSON `json:"shortfall" gorm:"type:jsonb"` // assignment.Shortfall
	Page      int            `json:"page"`

	// Timing
	Remaining     int        `json:"remaining"` // seconds
	StartedAt     time.Time  `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at"`
	ShowSolutions bool       `json:"show_solutions"`

	// Result, set once at submission
	Score        *int           `json:"score"`
	Breakdown    datatypes.JSON `json:"breakdown" gorm:"type:jsonb"` // assignment.ScoreBreakdown
	TimeTaken    *int           `json:"time_taken"`                  // seconds
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`

	// Relations
	Student User    `json:"student" gorm:"foreignKey:StudentID"`
	Chapter Chapter `json:"chapter" gorm:"foreignKey:ChapterID"`
}

func (AssignmentSessionRecord) TableName() string {
	return "assignment_sessions"
}

// ScoreRecord is the immutable per-submission score history row.
type ScoreRecord struct {
	ID        string `json:"id" gorm:"primaryKey;size:255"`
	SessionID string `json:"session_id" gorm:"not null;uniqueIndex;size:255"`
	StudentID string `json:"student_id" gorm:"not null;index:idx_student_chapter_score;size:255"`
	ChapterID string `json:"chapter_id" gorm:"not null;index:idx_student_chapter_score;size:255"`
	Level     int    `json:"level" gorm:"not null"`

	Score          int            `json:"score"`
	TotalQuestions int            `json:"total_questions"`
	ScoreByLevel   datatypes.JSON `json:"score_by_level" gorm:"type:jsonb"` // map[assignment.Category]int
	TimeTaken      int            `json:"time_taken"`                       // seconds

	CreatedAt time.Time `json:"created_at"`

	// Relations
	Student User    `json:"student" gorm:"foreignKey:StudentID"`
	Chapter Chapter `json:"chapter" gorm:"foreignKey:ChapterID"`
}

func (ScoreRecord) TableName() string {
	return "score_records"
}
