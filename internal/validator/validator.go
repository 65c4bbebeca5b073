package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/gohanrohith/ed/internal/assignment"
)

// ValidationError represents a single failed validation rule
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

// Validator wraps the struct validator with the custom rules used across
// the service.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	validate := validator.New()
	registerCustomRules(validate)
	return &Validator{validate: validate}
}

// Validate runs struct-tag validation and converts the result into the
// service's error shape.
func (v *Validator) Validate(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	return ToValidationErrors(err)
}

// ToValidationErrors converts validator.ValidationErrors into the
// service's error shape.
func ToValidationErrors(err error) ValidationErrors {
	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return ValidationErrors{{Field: "request", Message: err.Error()}}
	}
	errors := make(ValidationErrors, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		errors = append(errors, ValidationError{
			Field:   fe.Field(),
			Message: errorMessage(fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return errors
}

func registerCustomRules(validate *validator.Validate) {
	// Levels are 1..5
	validate.RegisterValidation("assignment_level", func(fl validator.FieldLevel) bool {
		level := fl.Field().Int()
		return level >= 1 && level <= 5
	})

	// Cognitive category names
	validate.RegisterValidation("cognitive_category", func(fl validator.FieldLevel) bool {
		return assignment.Category(fl.Field().String()).Valid()
	})

	// Answer option keys are single letters A-D
	validate.RegisterValidation("option_key", func(fl validator.FieldLevel) bool {
		key := fl.Field().String()
		return key == "A" || key == "B" || key == "C" || key == "D"
	})
}

func errorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", err.Param())
	case "assignment_level":
		return "must be between 1 and 5"
	case "cognitive_category":
		return "must be one of remember, understand, apply, analyse, evaluate"
	case "option_key":
		return "must be one of A, B, C, D"
	case "oneof":
		return fmt.Sprintf("must be one of %s", err.Param())
	case "email":
		return "must be a valid email address"
	default:
		return fmt.Sprintf("validation failed for rule '%s'", err.Tag())
	}
}
