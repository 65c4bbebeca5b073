package assignment

// Category is one of the five cognitive dimensions every question is
// classified under. The set is closed; Categories returns it in the
// canonical order used for weight tables and tie-breaking.
type Category string

const (
	Remember   Category = "remember"
	Understand Category = "understand"
	Apply      Category = "apply"
	Analyse    Category = "analyse"
	Evaluate   Category = "evaluate"
)

func Categories() []Category {
	return []Category{Remember, Understand, Apply, Analyse, Evaluate}
}

func (c Category) Valid() bool {
	switch c {
	case Remember, Understand, Apply, Analyse, Evaluate:
		return true
	}
	return false
}
