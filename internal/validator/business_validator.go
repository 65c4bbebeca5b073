package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/gohanrohith/ed/internal/assignment"
)

// BusinessValidator handles rules that struct tags cannot express.
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()
	registerCustomRules(validate)
	return &BusinessValidator{validate: validate}
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	if err := bv.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateLevelWeights checks a weight map the way session start requires
// it: exactly the five cognitive categories, non-negative, summing to 100.
func (bv *BusinessValidator) ValidateLevelWeights(weights map[assignment.Category]int) ValidationErrors {
	var errors ValidationErrors

	sum := 0
	for category, weight := range weights {
		if !category.Valid() {
			errors = append(errors, ValidationError{
				Field:   "weights",
				Message: fmt.Sprintf("unknown category %q", category),
				Value:   category,
				Rule:    "cognitive_category",
			})
		}
		if weight < 0 {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("weights[%s]", category),
				Message: "must not be negative",
				Value:   weight,
				Rule:    "business_logic",
			})
		}
		sum += weight
	}
	if len(weights) != len(assignment.Categories()) {
		errors = append(errors, ValidationError{
			Field:   "weights",
			Message: fmt.Sprintf("must cover all %d categories", len(assignment.Categories())),
			Value:   len(weights),
			Rule:    "business_logic",
		})
	}
	if sum != 100 {
		errors = append(errors, ValidationError{
			Field:   "weights",
			Message: "must sum to 100",
			Value:   sum,
			Rule:    "business_logic",
		})
	}
	return errors
}

// ValidateQuestionCreate applies the cross-field rules for a question
// write: correct-answer keys must exist among the options, and each shape
// must carry its own required parts.
func (bv *BusinessValidator) ValidateQuestionCreate(req *QuestionCreateRequest) ValidationErrors {
	var errors ValidationErrors
	errors = append(errors, bv.Validate(req)...)

	switch req.Kind {
	case "standard":
		errors = append(errors, validateAnswerKeys(req.Options, req.CorrectAnswers, "correctAnswers")...)
	case "comprehension":
		for i, sub := range req.SubQuestions {
			field := fmt.Sprintf("subQuestions[%d].correctAnswers", i)
			errors = append(errors, validateAnswerKeys(sub.Options, sub.CorrectAnswers, field)...)
		}
	}
	return errors
}

func validateAnswerKeys(options map[string]OptionPayload, correct []string, field string) ValidationErrors {
	var errors ValidationErrors
	for _, key := range correct {
		if _, ok := options[key]; !ok {
			errors = append(errors, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("answer key %q has no matching option", key),
				Value:   key,
				Rule:    "business_logic",
			})
		}
	}
	if len(correct) > len(options) {
		errors = append(errors, ValidationError{
			Field:   field,
			Message: "more correct answers than options",
			Value:   len(correct),
			Rule:    "business_logic",
		})
	}
	return errors
}
