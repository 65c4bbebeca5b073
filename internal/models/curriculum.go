package models

import (
	"time"

	"gorm.io/gorm"
)

type Class struct {
	ID      string `json:"id" gorm:"primaryKey;size:255"`
	Name    string `json:"name" gorm:"not null;size:100" validate:"required,max=100"`
	Section *string `json:"section" gorm:"size:20"`

	AdminID   string    `json:"admin_id" gorm:"not null;index;size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Subjects []Subject `json:"subjects" gorm:"many2many:class_subjects"`
	Students []User    `json:"students" gorm:"foreignKey:ClassID"`
}

func (Class) TableName() string {
	return "classes"
}

type Subject struct {
	ID   string `json:"id" gorm:"primaryKey;size:255"`
	Name string `json:"name" gorm:"not null;size:100" validate:"required,max=100"`

	CreatedBy string    `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Chapters []Chapter `json:"chapters" gorm:"foreignKey:SubjectID"`
}

func (Subject) TableName() string {
	return "subjects"
}

// ClassSubject joins classes to the subjects taught in them.
type ClassSubject struct {
	ClassID   string    `json:"class_id" gorm:"primaryKey;size:255"`
	SubjectID string    `json:"subject_id" gorm:"primaryKey;size:255"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	Class   Class   `json:"class" gorm:"foreignKey:ClassID"`
	Subject Subject `json:"subject" gorm:"foreignKey:SubjectID"`
}

func (ClassSubject) TableName() string {
	return "class_subjects"
}

type Chapter struct {
	ID        string `json:"id" gorm:"primaryKey;size:255"`
	SubjectID string `json:"subject_id" gorm:"not null;index;size:255"`
	Name      string `json:"name" gorm:"not null;size:200" validate:"required,max=200"`
	Number    int    `json:"number" gorm:"default:0"`

	CreatedBy string         `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Subject Subject `json:"subject" gorm:"foreignKey:SubjectID"`
}

func (Chapter) TableName() string {
	return "chapters"
}
