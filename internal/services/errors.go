package services

import (
	"errors"
	"fmt"
)

// ===== SENTINEL ERRORS =====

var (
	// Session lifecycle
	ErrSessionNotFound         = errors.New("assignment session not found")
	ErrSessionNotActive        = errors.New("assignment session is not active")
	ErrSessionAlreadySubmitted = errors.New("assignment session already submitted")
	ErrSessionNotSubmitted     = errors.New("assignment session not submitted yet")
	ErrSessionCannotStart      = errors.New("assignment session cannot be started")

	// Question bank
	ErrQuestionNotFound  = errors.New("question not found")
	ErrEmptyQuestionPool = errors.New("chapter has no questions")

	// Curriculum
	ErrChapterNotFound = errors.New("chapter not found")
	ErrSubjectNotFound = errors.New("subject not found")
	ErrClassNotFound   = errors.New("class not found")

	// Progress and scores
	ErrProgressNotFound = errors.New("student progress not found")
	ErrScoreNotFound    = errors.New("score record not found")

	// Roster
	ErrStudentNotFound = errors.New("student not found")
)

// ===== PERMISSION ERROR =====

// PermissionError carries enough context to log and render a 403.
type PermissionError struct {
	UserID   string
	Resource string
	TargetID string
	Action   string
	Reason   string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %s: %s",
		e.UserID, e.Action, e.Resource, e.TargetID, e.Reason)
}

func NewPermissionError(userID, targetID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:   userID,
		Resource: resource,
		TargetID: targetID,
		Action:   action,
		Reason:   reason,
	}
}

// IsPermissionError reports whether err is a permission denial.
func IsPermissionError(err error) bool {
	var permErr *PermissionError
	return errors.As(err, &permErr)
}
