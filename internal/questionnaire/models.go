package questionnaire

type Answer struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct,omitempty"`
}

type Question struct {
	Text       string   `json:"text"`
	Answers    []Answer `json:"answers"`
	AnswerHint string   `json:"answer_hint,omitempty"` // shown after a wrong attempt
}

// Questionnaire is a named, ordered list of questions. Name is the lookup key
// it was loaded under and is not part of the stored definition.
type Questionnaire struct {
	Name      string     `json:"-"`
	Title     string     `json:"title,omitempty"`
	Questions []Question `json:"questions"`
}

// DisplayTitle falls back to the name when the definition has no title.
func (q Questionnaire) DisplayTitle() string {
	if q.Title != "" {
		return q.Title
	}
	return q.Name
}

// Clone returns a deep copy so cached definitions cannot be mutated through
// a value handed to a request.
func (q Questionnaire) Clone() Questionnaire {
	out := Questionnaire{Name: q.Name, Title: q.Title}
	if q.Questions == nil {
		return out
	}
	out.Questions = make([]Question, len(q.Questions))
	for i, qq := range q.Questions {
		out.Questions[i] = Question{
			Text:       qq.Text,
			AnswerHint: qq.AnswerHint,
			Answers:    append([]Answer(nil), qq.Answers...),
		}
	}
	return out
}
