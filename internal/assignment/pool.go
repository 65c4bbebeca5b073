package assignment

import "math/rand"

// OptionKey identifies one answer option of a question ("A".."D").
type OptionKey string

// Option is a single answer choice. ImageRef is optional and points at an
// uploaded asset when the option is pictorial.
type Option struct {
	Text     string `json:"text"`
	ImageRef string `json:"imageRef,omitempty"`
}

// RawQuestion is a question record as the question banks supply it. A
// standard question carries Options/CorrectAnswers directly; a
// comprehension question carries a Passage and SubQuestions instead and is
// not itself answerable.
type RawQuestion struct {
	ID             string               `json:"id"`
	Text           string               `json:"question"`
	Options        map[OptionKey]Option `json:"options"`
	CorrectAnswers []OptionKey          `json:"correctAnswers"`
	Solution       string               `json:"solution,omitempty"`

	Passage         string        `json:"paragraph,omitempty"`
	SubQuestions    []RawQuestion `json:"subQuestions,omitempty"`
	PassageSolution string        `json:"passageSolution,omitempty"`
}

// IsComprehension reports whether the record is a passage with dependent
// sub-questions rather than a directly answerable question.
func (q RawQuestion) IsComprehension() bool {
	return len(q.SubQuestions) > 0
}

// InteractionMode is how a pooled question is presented to the student.
type InteractionMode string

const (
	ModeStandard InteractionMode = "standard"
	ModeDragDrop InteractionMode = "dragdrop"
)

// PooledQuestion is one answerable unit in an assembled session. A
// comprehension sub-question keeps the shared passage in Passage; standard
// questions leave it empty.
type PooledQuestion struct {
	Question        RawQuestion     `json:"question"`
	Category        Category        `json:"category"`
	Mode            InteractionMode `json:"mode"`
	Passage         string          `json:"passage,omitempty"`
	PassageSolution string          `json:"passageSolution,omitempty"`

	// FromComprehension marks a sub-question split out of a passage
	// group. Such questions are never presented drag-and-drop, even
	// when the passage text itself is empty.
	FromComprehension bool `json:"fromComprehension,omitempty"`
}

// Shortfall records, per category, how many questions a quota asked for
// beyond what the pool could supply. Empty means every quota was met.
type Shortfall map[Category]int

// Assemble builds the flat, shuffled question sequence for one session.
//
// Per category it flattens comprehension groups into one PooledQuestion
// per sub-question (the category comes from the pool, never from the
// record), shuffles the flattened pool and takes up to the category's
// quota. From the union of sampled standard questions it then marks up to
// dragDropCount items as drag-and-drop (comprehension sub-questions are
// never eligible) and finally shuffles everything together so categories
// interleave. A pool smaller than its quota contributes what it has; the
// deficit is reported in the returned Shortfall, not treated as an error.
func Assemble(quotas map[Category]int, pools map[Category][]RawQuestion, dragDropCount int, rng *rand.Rand) ([]PooledQuestion, Shortfall) {
	sampled := make([]PooledQuestion, 0)
	shortfall := make(Shortfall)

	for _, c := range Categories() {
		quota, ok := quotas[c]
		if !ok || quota <= 0 {
			continue
		}
		flat := flatten(c, pools[c])
		shuffle(flat, rng)
		if len(flat) < quota {
			shortfall[c] = quota - len(flat)
			quota = len(flat)
		}
		sampled = append(sampled, flat[:quota]...)
	}

	tagDragDrop(sampled, dragDropCount, rng)
	shuffle(sampled, rng)
	return sampled, shortfall
}

// flatten expands one category's raw pool into answerable units.
func flatten(c Category, pool []RawQuestion) []PooledQuestion {
	flat := make([]PooledQuestion, 0, len(pool))
	for _, q := range pool {
		if !q.IsComprehension() {
			flat = append(flat, PooledQuestion{Question: q, Category: c, Mode: ModeStandard})
			continue
		}
		for _, sub := range q.SubQuestions {
			flat = append(flat, PooledQuestion{
				Question:          sub,
				Category:          c,
				Mode:              ModeStandard,
				Passage:           q.Passage,
				PassageSolution:   q.PassageSolution,
				FromComprehension: true,
			})
		}
	}
	return flat
}

// tagDragDrop flips up to n sampled standard questions to drag-and-drop
// presentation. Runs before the final shuffle, so tagging is independent
// of presentation order.
func tagDragDrop(sampled []PooledQuestion, n int, rng *rand.Rand) {
	if n <= 0 {
		return
	}
	eligible := make([]int, 0, len(sampled))
	for i := range sampled {
		if !sampled[i].FromComprehension {
			eligible = append(eligible, i)
		}
	}
	shuffleInts(eligible, rng)
	if n > len(eligible) {
		n = len(eligible)
	}
	for _, idx := range eligible[:n] {
		sampled[idx].Mode = ModeDragDrop
	}
}

// shuffle is an in-place Fisher-Yates shuffle.
func shuffle(qs []PooledQuestion, rng *rand.Rand) {
	for i := len(qs) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		qs[i], qs[j] = qs[j], qs[i]
	}
}

func shuffleInts(xs []int, rng *rand.Rand) {
	for i := len(xs) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		xs[i], xs[j] = xs[j], xs[i]
	}
}
