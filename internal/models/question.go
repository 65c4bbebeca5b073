package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/gohanrohith/ed/internal/assignment"
)

type QuestionKind string

const (
	KindStandard      QuestionKind = "standard"
	KindComprehension QuestionKind = "comprehension"
)

// ChapterQuestion is one question-bank entry. Each row belongs to exactly
// one chapter and one cognitive category; the five category banks are
// partitions of this table, not separate tables.
type ChapterQuestion struct {
	ID        string              `json:"id" gorm:"primaryKey;size:255"`
	ChapterID string              `json:"chapter_id" gorm:"not null;index:idx_chapter_category;size:255"`
	Category  assignment.Category `json:"category" gorm:"not null;index:idx_chapter_category;size:20"`
	Kind      QuestionKind        `json:"kind" gorm:"not null;default:standard;size:20"`

	Text string `json:"text" gorm:"type:text" validate:"required_if=Kind standard"`

	// Option map, correct-answer keys and comprehension sub-questions are
	// stored as JSONB so the three shapes share one table.
	Options        datatypes.JSON `json:"options" gorm:"type:jsonb"`         // map[OptionKey]Option
	CorrectAnswers datatypes.JSON `json:"correct_answers" gorm:"type:jsonb"` // []OptionKey
	Solution       *string        `json:"solution" gorm:"type:text"`

	// Comprehension-only fields.
	Passage         *string        `json:"passage" gorm:"type:text"`
	SubQuestions    datatypes.JSON `json:"sub_questions" gorm:"type:jsonb"` // []assignment.RawQuestion
	PassageSolution *string        `json:"passage_solution" gorm:"type:text"`

	CreatedBy string    `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Chapter Chapter `json:"chapter" gorm:"foreignKey:ChapterID"`
}

func (ChapterQuestion) TableName() string {
	return "chapter_questions"
}

// ToRaw converts the stored row into the engine's question shape.
func (q *ChapterQuestion) ToRaw() (assignment.RawQuestion, error) {
	raw := assignment.RawQuestion{ID: q.ID, Text: q.Text}
	if q.Solution != nil {
		raw.Solution = *q.Solution
	}
	if q.Kind == KindComprehension {
		if q.Passage != nil {
			raw.Passage = *q.Passage
		}
		if q.PassageSolution != nil {
			raw.PassageSolution = *q.PassageSolution
		}
		if len(q.SubQuestions) > 0 {
			if err := json.Unmarshal(q.SubQuestions, &raw.SubQuestions); err != nil {
				return raw, fmt.Errorf("decode sub-questions for %s: %w", q.ID, err)
			}
		}
		return raw, nil
	}
	if len(q.Options) > 0 {
		if err := json.Unmarshal(q.Options, &raw.Options); err != nil {
			return raw, fmt.Errorf("decode options for %s: %w", q.ID, err)
		}
	}
	if len(q.CorrectAnswers) > 0 {
		if err := json.Unmarshal(q.CorrectAnswers, &raw.CorrectAnswers); err != nil {
			return raw, fmt.Errorf("decode correct answers for %s: %w", q.ID, err)
		}
	}
	return raw, nil
}

// FromRaw fills the JSONB columns from an engine-shaped question. ID,
// ChapterID, Category and CreatedBy are the caller's responsibility.
func (q *ChapterQuestion) FromRaw(raw assignment.RawQuestion) error {
	q.Text = raw.Text
	if raw.Solution != "" {
		q.Solution = &raw.Solution
	}
	if raw.IsComprehension() {
		q.Kind = KindComprehension
		if raw.Passage != "" {
			q.Passage = &raw.Passage
		}
		if raw.PassageSolution != "" {
			q.PassageSolution = &raw.PassageSolution
		}
		subs, err := json.Marshal(raw.SubQuestions)
		if err != nil {
			return fmt.Errorf("encode sub-questions: %w", err)
		}
		q.SubQuestions = subs
		return nil
	}
	q.Kind = KindStandard
	options, err := json.Marshal(raw.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	q.Options = options
	answers, err := json.Marshal(raw.CorrectAnswers)
	if err != nil {
		return fmt.Errorf("encode correct answers: %w", err)
	}
	q.CorrectAnswers = answers
	return nil
}
