package assignment

// CategoryScore is the correct/total tally for one cognitive category.
type CategoryScore struct {
	Correct int `json:"correctCount"`
	Total   int `json:"questionCount"`
}

// ScoreBreakdown is the graded result of one session, computed exactly
// once at submission.
type ScoreBreakdown struct {
	ByCategory     map[Category]CategoryScore `json:"byCategory"`
	TotalCorrect   int                        `json:"totalCorrect"`
	TotalQuestions int                        `json:"totalQuestions"`
}

// Grade compares every question against the student's answers. Unanswered
// questions count toward the category total but never toward correct.
func Grade(questions []PooledQuestion, answers map[int][]OptionKey) ScoreBreakdown {
	breakdown := ScoreBreakdown{
		ByCategory:     make(map[Category]CategoryScore, len(Categories())),
		TotalQuestions: len(questions),
	}
	for _, c := range Categories() {
		breakdown.ByCategory[c] = CategoryScore{}
	}
	for i, q := range questions {
		score := breakdown.ByCategory[q.Category]
		score.Total++
		if answerCorrect(q, answers[i]) {
			score.Correct++
			breakdown.TotalCorrect++
		}
		breakdown.ByCategory[q.Category] = score
	}
	return breakdown
}

// answerCorrect applies the grading rule for one question. Single-answer
// questions (drag-and-drop is always single-answer) match on the one
// correct key. Multi-answer questions require exact set equality; partial
// overlap scores zero.
func answerCorrect(q PooledQuestion, answer []OptionKey) bool {
	correct := q.Question.CorrectAnswers
	if len(correct) == 0 || len(answer) == 0 {
		return false
	}
	if q.Mode == ModeDragDrop || len(correct) == 1 {
		return answer[0] == correct[0]
	}

	want := make(map[OptionKey]struct{}, len(correct))
	for _, k := range correct {
		want[k] = struct{}{}
	}
	got := make(map[OptionKey]struct{}, len(answer))
	for _, k := range answer {
		if _, ok := want[k]; !ok {
			return false
		}
		got[k] = struct{}{}
	}
	return len(got) == len(want)
}
