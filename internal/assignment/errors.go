package assignment

import "errors"

var (
	ErrInvalidLevel         = errors.New("invalid level")
	ErrInvalidInput         = errors.New("invalid input")
	ErrSessionNotActive     = errors.New("session is not active")
	ErrSessionNotSubmitted  = errors.New("session is not submitted")
	ErrInvalidQuestionIndex = errors.New("question index out of range")
)
