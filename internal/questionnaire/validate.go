package questionnaire

// Validity holds one slot per question, aligned by index. A nil Validity
// means the questionnaire has not been scored yet.
type Validity []bool

// Validate scores resp against questions. Out-of-range indices in either
// dimension are scored false rather than rejected.
func Validate(questions []Question, resp Response) Validity {
	correct := make(Validity, len(questions))
	for _, q := range resp.Questions() {
		if q < 0 || q >= len(questions) {
			continue
		}
		a, _ := resp.Answer(q)
		answers := questions[q].Answers
		if a < 0 || a >= len(answers) {
			continue
		}
		if answers[a].Correct {
			correct[q] = true
		}
	}
	return correct
}

// AllCorrect reports whether no slot is false. An empty Validity is
// vacuously correct.
func (v Validity) AllCorrect() bool {
	for _, ok := range v {
		if !ok {
			return false
		}
	}
	return true
}

// Wrong lists the indices of questions scored false, ascending.
func (v Validity) Wrong() []int {
	out := []int{}
	for i, ok := range v {
		if !ok {
			out = append(out, i)
		}
	}
	return out
}

// Scored is false for the unscored (nil) state.
func (v Validity) Scored() bool { return v != nil }

// At returns the slot for question i, false when out of range.
func (v Validity) At(i int) bool {
	if i < 0 || i >= len(v) {
		return false
	}
	return v[i]
}
