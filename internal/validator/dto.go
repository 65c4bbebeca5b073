package validator

// StartSessionRequest starts a new assignment attempt for a chapter.
type StartSessionRequest struct {
	StudentID string `json:"studentId" validate:"required"`
	SubjectID string `json:"subjectId" validate:"required"`
	ChapterID string `json:"chapterId" validate:"required"`
	Level     int    `json:"level" validate:"required,assignment_level"`
}

// AnswerRequest records the student's answer for one question index.
type AnswerRequest struct {
	QuestionIndex int      `json:"questionIndex" validate:"min=0"`
	Answer        []string `json:"answer" validate:"required,min=1,dive,option_key"`
}

// NavigateRequest moves the session's current page.
type NavigateRequest struct {
	Direction int `json:"direction" validate:"required,oneof=-1 1"`
}

// OptionPayload is one answer choice in a question write request.
type OptionPayload struct {
	Text     string `json:"text" validate:"required"`
	ImageRef string `json:"imageRef"`
}

// SubQuestionRequest is one comprehension sub-question.
type SubQuestionRequest struct {
	Text           string                   `json:"question" validate:"required,min=1,max=2000"`
	Options        map[string]OptionPayload `json:"options" validate:"required,min=2,max=4"`
	CorrectAnswers []string                 `json:"correctAnswers" validate:"required,min=1,dive,option_key"`
	Solution       string                   `json:"solution"`
}

// QuestionCreateRequest creates one question-bank entry in a category.
type QuestionCreateRequest struct {
	ChapterID string `json:"chapterId" validate:"required"`
	Kind      string `json:"kind" validate:"required,oneof=standard comprehension"`

	// Standard question fields
	Text           string                   `json:"question" validate:"required_if=Kind standard,omitempty,min=1,max=2000"`
	Options        map[string]OptionPayload `json:"options" validate:"required_if=Kind standard,omitempty,min=2,max=4"`
	CorrectAnswers []string                 `json:"correctAnswers" validate:"required_if=Kind standard,omitempty,min=1,dive,option_key"`
	Solution       string                   `json:"solution"`

	// Comprehension fields
	Passage         string               `json:"paragraph" validate:"required_if=Kind comprehension"`
	SubQuestions    []SubQuestionRequest `json:"subQuestions" validate:"required_if=Kind comprehension,omitempty,min=1,dive"`
	PassageSolution string               `json:"passageSolution"`
}

// QuestionUpdateRequest updates a question-bank entry.
type QuestionUpdateRequest struct {
	Text           *string                  `json:"question" validate:"omitempty,min=1,max=2000"`
	Options        map[string]OptionPayload `json:"options" validate:"omitempty,min=2,max=4"`
	CorrectAnswers []string                 `json:"correctAnswers" validate:"omitempty,min=1,dive,option_key"`
	Solution       *string                  `json:"solution"`
	Passage        *string                  `json:"paragraph"`
	SubQuestions   []SubQuestionRequest     `json:"subQuestions" validate:"omitempty,min=1,dive"`
}

// ProgressAddRequest folds one submission into the student's rolling
// progress aggregate.
type ProgressAddRequest struct {
	StudentID          string                   `json:"studentId" validate:"required"`
	SubjectID          string                   `json:"subjectId" validate:"required"`
	ChapterID          string                   `json:"chapterId" validate:"required"`
	Level              int                      `json:"level" validate:"required,assignment_level"`
	Progress           map[string]CategoryTally `json:"progress" validate:"required,min=1"`
	TotalTimeInSeconds int                      `json:"totalTimeInSeconds" validate:"min=0"`
}

// CategoryTally is one category's correct/total pair in a progress write.
type CategoryTally struct {
	QuestionCount int `json:"questionCount" validate:"min=0"`
	CorrectCount  int `json:"correctCount" validate:"min=0"`
}

// StudentCreateRequest registers one student under an admin.
type StudentCreateRequest struct {
	FullName string  `json:"fullName" validate:"required,min=1,max=100"`
	Email    string  `json:"email" validate:"required,email"`
	AdminID  string  `json:"adminId" validate:"required"`
	ClassID  *string `json:"classId"`
}

// StudentBatchCreateRequest registers several students in one call.
type StudentBatchCreateRequest struct {
	Students []StudentCreateRequest `json:"students" validate:"required,min=1,max=100,dive"`
}

// StudentUpdateRequest patches a student record. Nil fields are left
// unchanged.
type StudentUpdateRequest struct {
	FullName *string `json:"fullName,omitempty" validate:"omitempty,min=1,max=100"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	ClassID  *string `json:"classId,omitempty"`
}

// BulkAssignRequest assigns a set of students to a class in one call.
type BulkAssignRequest struct {
	ClassID    string   `json:"classId" validate:"required"`
	StudentIDs []string `json:"studentIds" validate:"required,min=1,dive,required"`
}

// ChapterCreateRequest adds a chapter to a subject.
type ChapterCreateRequest struct {
	SubjectID string `json:"subjectId" validate:"required"`
	Name      string `json:"name" validate:"required,min=1,max=200"`
	Number    int    `json:"number" validate:"min=0"`
}

// ChapterUpdateRequest renames or renumbers a chapter. Nil fields are
// left unchanged.
type ChapterUpdateRequest struct {
	Name   *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Number *int    `json:"number,omitempty" validate:"omitempty,min=0"`
}
